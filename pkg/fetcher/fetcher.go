// Package fetcher resolves a repost candidate into a downloaded video file
// plus the caption and creator needed to build attribution.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"strings"

	"igrepost/pkg/detector"
	"igrepost/pkg/errors"
	"igrepost/pkg/instagram"
	"igrepost/pkg/logger"
)

// Page is the slice of the browser session the fetcher needs. Metadata
// lookups ride the session's cookies; the page scrape is the fallback when
// the private API gives nothing usable.
type Page interface {
	FetchJSON(ctx context.Context, path string, target interface{}) error
	Navigate(ctx context.Context, url string) error
	AttributeValue(ctx context.Context, selector, attribute string) (string, bool, error)
}

// Downloader streams video bytes from a CDN URL. Satisfied by
// instagram.Client.
type Downloader interface {
	FetchVideo(ctx context.Context, videoURL string) (io.ReadCloser, error)
}

// Store persists downloaded streams. Satisfied by storage.Manager.
type Store interface {
	SaveVideo(r io.Reader, name string) (string, error)
}

// ResolvedMedia is a candidate made concrete: a local video file and the
// metadata that goes into the repost caption
type ResolvedMedia struct {
	VideoPath string
	Caption   string
	Creator   string
}

// Fetcher turns candidates into downloaded videos
type Fetcher struct {
	page       Page
	downloader Downloader
	store      Store
	logger     logger.Logger
}

// New creates a fetcher
func New(page Page, downloader Downloader, store Store, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{page: page, downloader: downloader, store: store, logger: log}
}

// Resolve fetches metadata and the video for a candidate. The shortcode is
// the primary metadata reference; the numeric media ID is tried when the
// shortcode lookup fails or is absent. Only when both lookups come up empty
// is the reel page itself scraped as a last resort; metadata that resolves
// but carries no video is a hard error.
func (f *Fetcher) Resolve(ctx context.Context, c detector.Candidate) (*ResolvedMedia, error) {
	if !c.HasReference() {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeMetadata,
			Message: "candidate carries no media reference",
		}
	}

	item := f.lookupMetadata(ctx, c)

	name := c.Shortcode
	if name == "" {
		name = c.MediaID
	}

	if item != nil {
		videoURL := item.BestVideoURL()
		if videoURL == "" {
			return nil, &errors.Error{
				Type:    errors.ErrorTypeMetadata,
				Message: "metadata carries no video versions",
			}
		}
		path, err := f.download(ctx, videoURL, name)
		if err != nil {
			return nil, err
		}
		return &ResolvedMedia{
			VideoPath: path,
			Caption:   item.CaptionText(),
			Creator:   item.CreatorUsername(),
		}, nil
	}

	return f.scrapePage(ctx, c, name)
}

// lookupMetadata tries the media info endpoint by shortcode, then by
// numeric ID. A nil return means both references came up empty.
func (f *Fetcher) lookupMetadata(ctx context.Context, c detector.Candidate) *instagram.MediaItem {
	for _, ref := range []string{c.Shortcode, c.MediaID} {
		if ref == "" {
			continue
		}

		var resp instagram.MediaInfoResponse
		if err := f.page.FetchJSON(ctx, instagram.GetMediaInfoPath(ref), &resp); err != nil {
			f.logger.WithError(err).WithField("ref", ref).Warn("media info lookup failed")
			continue
		}
		if item := resp.FirstItem(); item != nil {
			return item
		}
		f.logger.WithField("ref", ref).Warn("media info response was empty")
	}
	return nil
}

// scrapePage loads the reel page and pulls the video element's source
// directly. Caption is unavailable on this path; attribution comes from the
// page header when it can be found.
func (f *Fetcher) scrapePage(ctx context.Context, c detector.Candidate, name string) (*ResolvedMedia, error) {
	if c.SourceURL == "" {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeMetadata,
			Message: "no video URL in metadata and no page URL to scrape",
		}
	}

	f.logger.WithField("url", c.SourceURL).Info("falling back to page scrape")
	if err := f.page.Navigate(ctx, c.SourceURL); err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to open reel page: %v", err),
		}
	}

	src, ok, err := f.page.AttributeValue(ctx, "video", "src")
	if err != nil || !ok || src == "" {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeDownload,
			Message: "no video element found on reel page",
		}
	}

	path, err := f.download(ctx, src, name)
	if err != nil {
		return nil, err
	}

	return &ResolvedMedia{
		VideoPath: path,
		Creator:   f.scrapeCreator(ctx),
	}, nil
}

// scrapeCreator pulls the creator username from the page header link,
// best-effort
func (f *Fetcher) scrapeCreator(ctx context.Context) string {
	href, ok, err := f.page.AttributeValue(ctx, "header a", "href")
	if err != nil || !ok {
		return "unknown"
	}
	username := strings.Trim(href, "/")
	if username == "" || strings.Contains(username, "/") {
		return "unknown"
	}
	return instagram.SanitizeUsername(username)
}

// download streams the video to local storage
func (f *Fetcher) download(ctx context.Context, videoURL, name string) (string, error) {
	body, err := f.downloader.FetchVideo(ctx, videoURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	path, err := f.store.SaveVideo(body, name)
	if err != nil {
		return "", &errors.Error{
			Type:    errors.ErrorTypeDownload,
			Message: fmt.Sprintf("failed to store video: %v", err),
		}
	}
	return path, nil
}
