// Package detector scans the DM inbox for reel shares from the allowed
// sender and turns them into repost candidates.
package detector

import (
	"context"
	"fmt"

	"igrepost/pkg/instagram"
	"igrepost/pkg/logger"
)

// InboxClient fetches JSON from session-relative API paths. Satisfied by
// browser.Session.
type InboxClient interface {
	FetchJSON(ctx context.Context, path string, target interface{}) error
}

// Dedup answers whether an inbox item was already handled and records
// items that need no further attention. Satisfied by ledger.Ledger.
type Dedup interface {
	IsProcessed(id string) bool
	MarkProcessed(id string) error
}

// Candidate is a reel share waiting to be reposted
type Candidate struct {
	// MessageID is the inbox item ID, the dedup key
	MessageID string

	// Shortcode is the reel's URL code, empty if the payload omitted it
	Shortcode string

	// MediaID is the numeric media PK, the fallback metadata reference
	MediaID string

	// SourceURL is the canonical reel page, used for page-scrape fallback
	SourceURL string

	// Sender is the allowed sender the share came from
	Sender string
}

// HasReference reports whether the candidate carries anything the fetcher
// can resolve media from
func (c *Candidate) HasReference() bool {
	return c.Shortcode != "" || c.MediaID != ""
}

// Detector finds unprocessed reel shares in the inbox
type Detector struct {
	client        InboxClient
	dedup         Dedup
	allowedSender string
	logger        logger.Logger
}

// New creates a detector that only accepts shares from allowedSender
func New(client InboxClient, dedup Dedup, allowedSender string, log logger.Logger) *Detector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Detector{
		client:        client,
		dedup:         dedup,
		allowedSender: instagram.SanitizeUsername(allowedSender),
		logger:        log,
	}
}

// FindNewShares fetches the inbox and returns candidates for every
// unprocessed video share from the allowed sender. Everything else from
// those threads is marked processed on first sight.
func (d *Detector) FindNewShares(ctx context.Context) ([]Candidate, error) {
	var inbox instagram.InboxResponse
	if err := d.client.FetchJSON(ctx, instagram.GetInboxPath(), &inbox); err != nil {
		return nil, fmt.Errorf("failed to fetch inbox: %w", err)
	}

	var candidates []Candidate
	for _, thread := range inbox.Inbox.Threads {
		if !thread.HasUser(d.allowedSender) {
			continue
		}

		for _, item := range thread.Items {
			if item.ItemID == "" || d.dedup.IsProcessed(item.ItemID) {
				continue
			}

			// Every observed item is ledgered exactly once. Non-video
			// items (text, photos, reactions) are marked right away so
			// they are never inspected again.
			media := sharedMedia(&item)
			if media == nil || !media.IsClipContent() {
				d.logger.InfoWithFields("skipping non-video item", map[string]interface{}{
					"item_id":   item.ItemID,
					"item_type": item.ItemType,
				})
				if err := d.dedup.MarkProcessed(item.ItemID); err != nil {
					return nil, err
				}
				continue
			}

			candidates = append(candidates, Candidate{
				MessageID: item.ItemID,
				Shortcode: media.Code,
				MediaID:   media.ID.String(),
				SourceURL: instagram.GetReelURL(media.Code),
				Sender:    d.allowedSender,
			})
		}
	}

	if len(candidates) > 0 {
		d.logger.InfoWithFields("found new reel shares", map[string]interface{}{
			"count": len(candidates),
		})
	}
	return candidates, nil
}

// sharedMedia extracts the shared media payload from an item, or nil if
// the item is not a share
func sharedMedia(item *instagram.ThreadItem) *instagram.SharedMedia {
	switch item.ItemType {
	case instagram.ItemTypeMediaShare:
		return item.MediaShare
	case instagram.ItemTypeClip:
		if item.Clip == nil {
			return nil
		}
		return item.Clip.Media()
	case instagram.ItemTypeFelixShare:
		if item.FelixShare == nil {
			return nil
		}
		return item.FelixShare.Video
	}
	return nil
}
