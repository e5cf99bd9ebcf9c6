// Package publisher drives the web create flow to post a downloaded video
// as a new reel.
package publisher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"igrepost/pkg/browser"
	"igrepost/pkg/errors"
	"igrepost/pkg/instagram"
	"igrepost/pkg/logger"
)

const (
	// maxNextSteps bounds the Next clicks through the create dialog; the
	// flow has at most a crop step, an edit step and a caption step
	maxNextSteps = 5

	defaultSuccessTimeout = 3 * time.Minute
	successPollInterval   = time.Second
)

// creditPrefix and repostSuffix are the attribution lines appended to
// every repost caption
const (
	creditPrefix = "📸 Credit: @"
	repostSuffix = "🔄 Reposted via DM"
)

// successTexts are the confirmation banners shown when a post goes through
var successTexts = []string{
	"Your reel has been shared",
	"Post shared",
	"Reel shared",
}

// BuildCaption composes the repost caption: the original caption when there
// is one, then the credit line, then the repost marker.
func BuildCaption(original, creator string) string {
	creator = instagram.SanitizeUsername(creator)
	if creator == "" {
		creator = "unknown"
	}

	attribution := creditPrefix + creator + "\n" + repostSuffix
	original = strings.TrimSpace(original)
	if original == "" {
		return attribution
	}
	return original + "\n\n" + attribution
}

// Publisher posts videos through the logged-in browser session
type Publisher struct {
	session       browser.Session
	logger        logger.Logger
	screenshotDir string

	// SuccessTimeout bounds the wait for the shared confirmation banner
	SuccessTimeout time.Duration

	// sleep paces the UI interactions; replaced in tests
	sleep func(time.Duration)
}

// New creates a publisher. Failure screenshots land in screenshotDir when
// it is non-empty.
func New(session browser.Session, screenshotDir string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Publisher{
		session:        session,
		logger:         log,
		screenshotDir:  screenshotDir,
		SuccessTimeout: defaultSuccessTimeout,
		sleep:          time.Sleep,
	}
}

// Publish uploads the video file and shares it with the given caption. It
// returns once the confirmation banner appears, or a publish error if the
// flow breaks or the banner never shows up.
func (p *Publisher) Publish(ctx context.Context, videoPath, caption string) error {
	p.logger.WithField("video", videoPath).Info("starting upload")

	if err := p.session.Navigate(ctx, instagram.GetHomeURL()); err != nil {
		return errors.New(errors.ErrorTypePublish, "failed to open home page: %v", err)
	}
	browser.DismissDialogs(ctx, p.session)

	if err := p.openCreateDialog(ctx); err != nil {
		return err
	}

	if err := p.attachVideo(ctx, videoPath); err != nil {
		return err
	}

	p.advanceThroughSteps(ctx)

	if err := p.writeCaption(ctx, caption); err != nil {
		return err
	}

	if err := p.session.ClickText(ctx, "Share"); err != nil {
		p.captureFailure(ctx, "share-button-missing")
		return errors.New(errors.ErrorTypePublish, "share button not found: %v", err)
	}

	return p.waitForConfirmation(ctx)
}

// openCreateDialog opens the new-post dialog from the home page
func (p *Publisher) openCreateDialog(ctx context.Context) error {
	if err := p.session.Click(ctx, `svg[aria-label="New post"]`); err != nil {
		if err := p.session.ClickText(ctx, "Create"); err != nil {
			p.captureFailure(ctx, "create-entry-missing")
			return errors.New(errors.ErrorTypePublish, "could not open create dialog: %v", err)
		}
	}
	p.sleep(time.Second)

	// Newer layouts split Create into Post and Live options
	if err := p.session.ClickText(ctx, "Post"); err == nil {
		p.sleep(time.Second)
	}
	return nil
}

// attachVideo puts the video file on the dialog's file input
func (p *Publisher) attachVideo(ctx context.Context, videoPath string) error {
	if err := p.session.WaitVisible(ctx, `input[type="file"]`, 10*time.Second); err != nil {
		// The input may be hidden until the select button is pressed
		if clickErr := p.session.ClickText(ctx, "Select from computer"); clickErr != nil {
			p.captureFailure(ctx, "file-input-missing")
			return errors.New(errors.ErrorTypePublish, "file input never appeared: %v", err)
		}
	}

	if err := p.session.SetFileInput(ctx, `input[type="file"]`, videoPath); err != nil {
		p.captureFailure(ctx, "file-attach-failed")
		return errors.New(errors.ErrorTypePublish, "failed to attach video: %v", err)
	}

	p.sleep(3 * time.Second)
	return nil
}

// advanceThroughSteps clicks Next until the caption step. Along the way it
// dismisses the video-length OK dialog and switches the crop to Original so
// vertical video is not trimmed.
func (p *Publisher) advanceThroughSteps(ctx context.Context) {
	for step := 0; step < maxNextSteps; step++ {
		// Reels over the length limit pop a notice dialog
		if err := p.session.ClickText(ctx, "OK"); err == nil {
			p.sleep(time.Second)
		}

		if step == 0 {
			p.selectOriginalCrop(ctx)
		}

		if err := p.session.ClickText(ctx, "Next"); err != nil {
			return
		}
		p.sleep(2 * time.Second)
	}
}

// selectOriginalCrop opens the crop menu and picks Original, best-effort
func (p *Publisher) selectOriginalCrop(ctx context.Context) {
	if err := p.session.Click(ctx, `svg[aria-label="Select crop"]`); err != nil {
		return
	}
	p.sleep(time.Second)
	if err := p.session.ClickText(ctx, "Original"); err == nil {
		p.sleep(time.Second)
	}
}

// writeCaption types the caption into the share step's textbox
func (p *Publisher) writeCaption(ctx context.Context, caption string) error {
	const selector = `div[role="textbox"]`
	if err := p.session.WaitVisible(ctx, selector, 10*time.Second); err != nil {
		p.captureFailure(ctx, "caption-box-missing")
		return errors.New(errors.ErrorTypePublish, "caption box never appeared: %v", err)
	}
	if err := p.session.Type(ctx, selector, caption); err != nil {
		return errors.New(errors.ErrorTypePublish, "failed to type caption: %v", err)
	}
	return nil
}

// waitForConfirmation polls for the shared banner once a second until it
// appears, the timeout passes, or the context is cancelled
func (p *Publisher) waitForConfirmation(ctx context.Context) error {
	timeout := p.SuccessTimeout
	if timeout <= 0 {
		timeout = defaultSuccessTimeout
	}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		for _, text := range successTexts {
			visible, err := p.session.IsVisibleText(ctx, text)
			if err == nil && visible {
				p.logger.Info("reel shared successfully")
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return errors.New(errors.ErrorTypePublish, "publish interrupted: %v", ctx.Err())
		case <-time.After(successPollInterval):
		}
	}

	p.captureFailure(ctx, "confirmation-timeout")
	return errors.New(errors.ErrorTypePublish, "no share confirmation within %s", timeout)
}

// captureFailure saves a screenshot of the stuck page, best-effort
func (p *Publisher) captureFailure(ctx context.Context, reason string) {
	if p.screenshotDir == "" {
		return
	}
	path := filepath.Join(p.screenshotDir, fmt.Sprintf("publish-%s-%d.png", reason, time.Now().Unix()))
	if err := p.session.Screenshot(ctx, path); err != nil {
		p.logger.WithError(err).Debug("failed to capture failure screenshot")
		return
	}
	p.logger.WithField("path", path).Warn("saved failure screenshot")
}
