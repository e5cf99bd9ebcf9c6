// Package bot runs the poll-process loop: scan the inbox, repost every new
// reel share from the allowed sender, then sleep until the next poll.
package bot

import (
	"context"
	"fmt"
	"time"

	"igrepost/pkg/detector"
	"igrepost/pkg/fetcher"
	"igrepost/pkg/logger"
	"igrepost/pkg/publisher"
	"igrepost/pkg/webhook"
)

// idleReportEvery is the poll cadence for idle heartbeats to the webhook
const idleReportEvery = 5

// ShareDetector finds unprocessed reel shares in the inbox
type ShareDetector interface {
	FindNewShares(ctx context.Context) ([]detector.Candidate, error)
}

// MediaFetcher resolves a candidate into a downloaded video
type MediaFetcher interface {
	Resolve(ctx context.Context, c detector.Candidate) (*fetcher.ResolvedMedia, error)
}

// ReelPublisher posts a video through the create flow
type ReelPublisher interface {
	Publish(ctx context.Context, videoPath, caption string) error
}

// Dedup records handled inbox items
type Dedup interface {
	MarkProcessed(id string) error
}

// Cleaner removes downloaded files after processing
type Cleaner interface {
	Remove(path string)
}

// Navigator moves the browser to a known-good page for recovery between
// polls
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Reporter publishes progress to the status webhook
type Reporter interface {
	Report(status webhook.Status, message string)
	ReportItem(status webhook.Status, message, reelID, sender string)
}

// Options wires the bot's collaborators and loop timing
type Options struct {
	Detector  ShareDetector
	Fetcher   MediaFetcher
	Publisher ReelPublisher
	Ledger    Dedup
	Store     Cleaner
	Session   Navigator
	Notifier  Reporter
	Logger    logger.Logger

	PollInterval time.Duration
	SettleDelay  time.Duration
	HomeURL      string
}

// Bot is the single-worker orchestrator. One poll runs at a time; one item
// is processed at a time.
type Bot struct {
	detector  ShareDetector
	fetcher   MediaFetcher
	publisher ReelPublisher
	ledger    Dedup
	store     Cleaner
	session   Navigator
	notifier  Reporter
	logger    logger.Logger

	pollInterval time.Duration
	settleDelay  time.Duration
	homeURL      string

	pollCount int
}

// New creates a bot from its collaborators
func New(opts Options) *Bot {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Notifier == nil {
		opts.Notifier = webhook.NewNotifier("", 0, log)
	}
	return &Bot{
		detector:     opts.Detector,
		fetcher:      opts.Fetcher,
		publisher:    opts.Publisher,
		ledger:       opts.Ledger,
		store:        opts.Store,
		session:      opts.Session,
		notifier:     opts.Notifier,
		logger:       log,
		pollInterval: opts.PollInterval,
		settleDelay:  opts.SettleDelay,
		homeURL:      opts.HomeURL,
	}
}

// Run polls until the context is cancelled. Poll-level failures are
// contained: the loop logs, recovers the browser, and keeps going.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.WithField("poll_interval", b.pollInterval.String()).Info("bot started")
	b.notifier.Report(webhook.StatusIdle, "bot started, waiting for shares")

	for {
		b.pollCount++
		b.logger.WithField("poll", b.pollCount).Debug("polling inbox")

		_, err := b.runPoll(ctx)
		if ctx.Err() != nil {
			b.logger.Info("bot stopping")
			return nil
		}

		if err != nil {
			b.logger.WithError(err).Error("poll failed")
			b.notifier.Report(webhook.StatusError, fmt.Sprintf("poll failed: %v", err))
			b.goHome(ctx)
		} else if b.pollCount%idleReportEvery == 0 {
			b.notifier.Report(webhook.StatusIdle, "monitoring inbox")
		}

		if !sleepCtx(ctx, b.pollInterval) {
			b.logger.Info("bot stopping")
			return nil
		}
	}
}

// runPoll executes one poll cycle. A panic anywhere in the cycle is caught
// and surfaced as the poll error.
func (b *Bot) runPoll(ctx context.Context) (handled int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll panicked: %v", r)
		}
	}()

	candidates, err := b.detector.FindNewShares(ctx)
	if err != nil {
		return 0, err
	}

	for i, candidate := range candidates {
		if ctx.Err() != nil {
			return handled, nil
		}

		// Give the UI a moment to settle between consecutive reels
		if i > 0 && !sleepCtx(ctx, b.settleDelay) {
			return handled, nil
		}

		b.processCandidate(ctx, candidate)
		handled++

		// Leave the create flow behind so the next candidate (and the
		// next poll) starts from the feed
		b.goHome(ctx)
	}

	return handled, nil
}

// processCandidate runs one share through download, publish, and cleanup.
// The item is marked processed no matter how publishing went: a failed
// repost is never retried, only logged.
func (b *Bot) processCandidate(ctx context.Context, c detector.Candidate) {
	log := b.logger.WithFields(map[string]interface{}{
		"item_id":   c.MessageID,
		"shortcode": c.Shortcode,
	})

	if !c.HasReference() {
		log.Warn("share carries no media reference, skipping")
		b.markProcessed(c.MessageID)
		return
	}

	log.Info("processing reel share")
	b.notifier.ReportItem(webhook.StatusDownloading, "downloading reel", c.Shortcode, c.Sender)

	media, err := b.fetcher.Resolve(ctx, c)
	if err != nil {
		log.WithError(err).Error("failed to fetch reel")
		b.notifier.ReportItem(webhook.StatusError, fmt.Sprintf("download failed: %v", err), c.Shortcode, c.Sender)
		b.markProcessed(c.MessageID)
		return
	}

	caption := publisher.BuildCaption(media.Caption, media.Creator)
	b.notifier.ReportItem(webhook.StatusUploading, "publishing reel", c.Shortcode, c.Sender)

	pubErr := b.publisher.Publish(ctx, media.VideoPath, caption)

	b.markProcessed(c.MessageID)
	b.store.Remove(media.VideoPath)

	if pubErr != nil {
		log.WithError(pubErr).Error("failed to publish reel")
		b.notifier.ReportItem(webhook.StatusError, fmt.Sprintf("publish failed: %v", pubErr), c.Shortcode, c.Sender)
		return
	}

	log.WithField("creator", media.Creator).Info("reel reposted")
	b.notifier.ReportItem(webhook.StatusCompleted, "reel reposted", c.Shortcode, c.Sender)
}

// markProcessed records the item, logging persistence failures instead of
// aborting: worst case the item is attempted once more next poll
func (b *Bot) markProcessed(id string) {
	if err := b.ledger.MarkProcessed(id); err != nil {
		b.logger.WithError(err).WithField("item_id", id).Error("failed to persist processed item")
	}
}

// goHome steers the browser back to the home page, best-effort, so the next
// candidate or poll starts from a known state
func (b *Bot) goHome(ctx context.Context) {
	if b.session == nil || b.homeURL == "" {
		return
	}
	if err := b.session.Navigate(ctx, b.homeURL); err != nil {
		b.logger.WithError(err).Warn("home navigation failed")
	}
}

// sleepCtx sleeps for d, returning false if the context was cancelled
// before the time passed
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
