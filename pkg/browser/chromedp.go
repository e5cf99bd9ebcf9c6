package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"igrepost/pkg/logger"
)

const (
	navigateTimeout = 30 * time.Second
	fetchTimeout    = 20 * time.Second
	actionTimeout   = 10 * time.Second
)

// Options configures a Chrome-backed session
type Options struct {
	Headless    bool
	UserDataDir string
	UserAgent   string

	// APIHeaders are sent on every in-session FetchJSON call
	APIHeaders map[string]string
}

// ChromeSession implements Session on top of a headless Chrome instance
// with a persistent profile, so cookies survive restarts.
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	apiHeaders  map[string]string
	logger      logger.Logger
}

// NewChromeSession launches the browser and returns a ready session
func NewChromeSession(opts Options, log logger.Logger) (*ChromeSession, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create browser data directory: %w", err)
		}
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1280, 900),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Launch the browser now rather than on first use
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	log.InfoWithFields("browser session started", map[string]interface{}{
		"headless":      opts.Headless,
		"user_data_dir": opts.UserDataDir,
	})

	return &ChromeSession{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		apiHeaders:  opts.APIHeaders,
		logger:      log,
	}, nil
}

// run executes chromedp actions against the session tab with a timeout.
// The caller context only bounds the wait; in-flight browser work is not
// preemptible and finishes or times out on its own.
func (s *ChromeSession) run(timeout time.Duration, actions ...chromedp.Action) error {
	tctx, tcancel := context.WithTimeout(s.ctx, timeout)
	defer tcancel()
	return chromedp.Run(tctx, actions...)
}

// Navigate loads a URL and waits for the document body
func (s *ChromeSession) Navigate(_ context.Context, url string) error {
	return s.run(navigateTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// CurrentURL returns the URL of the current page
func (s *ChromeSession) CurrentURL(_ context.Context) (string, error) {
	var url string
	if err := s.run(actionTimeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// FetchJSON performs an authenticated fetch inside the page, so the
// session's cookies apply, and decodes the JSON body into target
func (s *ChromeSession) FetchJSON(_ context.Context, path string, target interface{}) error {
	headers, err := json.Marshal(s.apiHeaders)
	if err != nil {
		return fmt.Errorf("failed to encode API headers: %w", err)
	}

	script := fmt.Sprintf(`(async () => {
		const resp = await fetch(%q, {
			headers: %s,
			credentials: 'include',
		});
		if (!resp.ok) {
			throw new Error('fetch failed with status ' + resp.status);
		}
		return await resp.text();
	})()`, path, headers)

	var raw string
	err = s.run(fetchTimeout, chromedp.Evaluate(script, &raw,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return fmt.Errorf("in-session fetch of %s failed: %w", path, err)
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// Click clicks the first element matching a CSS selector
func (s *ChromeSession) Click(_ context.Context, selector string) error {
	return s.run(actionTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// ClickText clicks the first visible clickable element whose trimmed text
// equals the given string
func (s *ChromeSession) ClickText(_ context.Context, text string) error {
	script := fmt.Sprintf(`(() => {
		const candidates = document.querySelectorAll('button, div[role="button"], span, div');
		for (const el of candidates) {
			if (el.textContent.trim() === %q && el.offsetParent !== null) {
				const target = el.closest('button, div[role="button"]') || el;
				target.click();
				return true;
			}
		}
		return false;
	})()`, text)

	var clicked bool
	if err := s.run(actionTimeout, chromedp.Evaluate(script, &clicked)); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: text %q", ErrElementNotFound, text)
	}
	return nil
}

// Type focuses an element and types text into it
func (s *ChromeSession) Type(_ context.Context, selector, text string) error {
	return s.run(actionTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// SetFileInput attaches a local file to a file input element
func (s *ChromeSession) SetFileInput(_ context.Context, selector, path string) error {
	return s.run(actionTimeout,
		chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery),
	)
}

// WaitVisible blocks until the element is visible or the timeout elapses
func (s *ChromeSession) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	return s.run(timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// IsVisible reports whether an element matching selector is visible
func (s *ChromeSession) IsVisible(_ context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return !!(el && el.offsetParent !== null);
	})()`, selector)

	var visible bool
	if err := s.run(actionTimeout, chromedp.Evaluate(script, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

// IsVisibleText reports whether any visible element contains the text
func (s *ChromeSession) IsVisibleText(_ context.Context, text string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const candidates = document.querySelectorAll('span, div, button, img');
		for (const el of candidates) {
			const label = el.textContent || el.getAttribute('alt') || '';
			if (label.includes(%q) && el.offsetParent !== null) {
				return true;
			}
		}
		return false;
	})()`, text)

	var visible bool
	if err := s.run(actionTimeout, chromedp.Evaluate(script, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

// AttributeValue reads an attribute from the first matching element
func (s *ChromeSession) AttributeValue(_ context.Context, selector, attribute string) (string, bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return null;
		return el.getAttribute(%q);
	})()`, selector, attribute)

	var value *string
	if err := s.run(actionTimeout, chromedp.Evaluate(script, &value)); err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// Screenshot captures the current page to a PNG file
func (s *ChromeSession) Screenshot(_ context.Context, path string) error {
	var buf []byte
	if err := s.run(actionTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// loggedInProbes are selectors only present on a logged-in page
var loggedInProbes = []string{
	`a[href="/direct/inbox/"]`,
	`svg[aria-label="Home"]`,
	`svg[aria-label="Direct"]`,
	`svg[aria-label="New post"]`,
	`a[href="/explore/"]`,
}

// IsLoggedIn probes the page for logged-in state
func (s *ChromeSession) IsLoggedIn(ctx context.Context) (bool, error) {
	for _, probe := range loggedInProbes {
		visible, err := s.IsVisible(ctx, probe)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}

// Close shuts the browser down
func (s *ChromeSession) Close() error {
	s.cancel()
	s.allocCancel()
	s.logger.Info("browser session closed")
	return nil
}
