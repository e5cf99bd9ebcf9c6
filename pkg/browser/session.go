// Package browser provides the authenticated browsing session the bot
// drives. The Session interface is the boundary to the external web
// surface; everything above it works against these primitives only.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned when an expected page element is missing
var ErrElementNotFound = errors.New("element not found")

// Session is an authenticated, navigable browsing session
type Session interface {
	// Navigate loads a URL and waits for the page to settle
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the URL of the current page
	CurrentURL(ctx context.Context) (string, error)

	// FetchJSON performs an authenticated JSON request against a
	// site-relative path from inside the session and decodes the
	// response into target
	FetchJSON(ctx context.Context, path string, target interface{}) error

	// Click clicks the first visible element matching a CSS selector
	Click(ctx context.Context, selector string) error

	// ClickText clicks the first visible clickable element whose text
	// equals the given string
	ClickText(ctx context.Context, text string) error

	// Type focuses the element matching selector and types text into it
	Type(ctx context.Context, selector, text string) error

	// SetFileInput attaches a local file to a file input element
	SetFileInput(ctx context.Context, selector, path string) error

	// WaitVisible blocks until an element matching selector is visible
	// or the timeout elapses
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// IsVisible reports whether an element matching selector is visible
	IsVisible(ctx context.Context, selector string) (bool, error)

	// IsVisibleText reports whether a visible element contains the text
	IsVisibleText(ctx context.Context, text string) (bool, error)

	// AttributeValue reads an attribute from the first element matching
	// selector; ok is false when the element or attribute is missing
	AttributeValue(ctx context.Context, selector, attribute string) (value string, ok bool, err error)

	// Screenshot captures the current page to a PNG file
	Screenshot(ctx context.Context, path string) error

	// IsLoggedIn probes the page for logged-in state
	IsLoggedIn(ctx context.Context) (bool, error)

	// Close releases the session. Safe to call once at shutdown.
	Close() error
}
