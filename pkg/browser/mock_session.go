package browser

import (
	"context"
	"sync"
	"time"
)

// MockSession is a scriptable Session for tests. Behavior is overridden
// per call via the function fields; unset fields are benign no-ops. Every
// interaction is recorded for assertions.
type MockSession struct {
	mu sync.Mutex

	NavigateFunc       func(url string) error
	CurrentURLFunc     func() (string, error)
	FetchJSONFunc      func(path string, target interface{}) error
	ClickFunc          func(selector string) error
	ClickTextFunc      func(text string) error
	TypeFunc           func(selector, text string) error
	SetFileInputFunc   func(selector, path string) error
	WaitVisibleFunc    func(selector string, timeout time.Duration) error
	IsVisibleFunc      func(selector string) (bool, error)
	IsVisibleTextFunc  func(text string) (bool, error)
	AttributeValueFunc func(selector, attribute string) (string, bool, error)
	ScreenshotFunc     func(path string) error
	IsLoggedInFunc     func() (bool, error)

	Navigations  []string
	Clicks       []string
	TextClicks   []string
	TypedInputs  map[string]string
	FileInputs   []string
	Screenshots  []string
	FetchedPaths []string
	Closed       bool
}

// NewMockSession creates a mock session with no scripted behavior
func NewMockSession() *MockSession {
	return &MockSession{TypedInputs: make(map[string]string)}
}

func (m *MockSession) Navigate(_ context.Context, url string) error {
	m.mu.Lock()
	m.Navigations = append(m.Navigations, url)
	m.mu.Unlock()
	if m.NavigateFunc != nil {
		return m.NavigateFunc(url)
	}
	return nil
}

func (m *MockSession) CurrentURL(_ context.Context) (string, error) {
	if m.CurrentURLFunc != nil {
		return m.CurrentURLFunc()
	}
	return "https://www.instagram.com/", nil
}

func (m *MockSession) FetchJSON(_ context.Context, path string, target interface{}) error {
	m.mu.Lock()
	m.FetchedPaths = append(m.FetchedPaths, path)
	m.mu.Unlock()
	if m.FetchJSONFunc != nil {
		return m.FetchJSONFunc(path, target)
	}
	return nil
}

func (m *MockSession) Click(_ context.Context, selector string) error {
	m.mu.Lock()
	m.Clicks = append(m.Clicks, selector)
	m.mu.Unlock()
	if m.ClickFunc != nil {
		return m.ClickFunc(selector)
	}
	return nil
}

func (m *MockSession) ClickText(_ context.Context, text string) error {
	m.mu.Lock()
	m.TextClicks = append(m.TextClicks, text)
	m.mu.Unlock()
	if m.ClickTextFunc != nil {
		return m.ClickTextFunc(text)
	}
	return ErrElementNotFound
}

func (m *MockSession) Type(_ context.Context, selector, text string) error {
	m.mu.Lock()
	m.TypedInputs[selector] = text
	m.mu.Unlock()
	if m.TypeFunc != nil {
		return m.TypeFunc(selector, text)
	}
	return nil
}

func (m *MockSession) SetFileInput(_ context.Context, selector, path string) error {
	m.mu.Lock()
	m.FileInputs = append(m.FileInputs, path)
	m.mu.Unlock()
	if m.SetFileInputFunc != nil {
		return m.SetFileInputFunc(selector, path)
	}
	return nil
}

func (m *MockSession) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	if m.WaitVisibleFunc != nil {
		return m.WaitVisibleFunc(selector, timeout)
	}
	return nil
}

func (m *MockSession) IsVisible(_ context.Context, selector string) (bool, error) {
	if m.IsVisibleFunc != nil {
		return m.IsVisibleFunc(selector)
	}
	return false, nil
}

func (m *MockSession) IsVisibleText(_ context.Context, text string) (bool, error) {
	if m.IsVisibleTextFunc != nil {
		return m.IsVisibleTextFunc(text)
	}
	return false, nil
}

func (m *MockSession) AttributeValue(_ context.Context, selector, attribute string) (string, bool, error) {
	if m.AttributeValueFunc != nil {
		return m.AttributeValueFunc(selector, attribute)
	}
	return "", false, nil
}

func (m *MockSession) Screenshot(_ context.Context, path string) error {
	m.mu.Lock()
	m.Screenshots = append(m.Screenshots, path)
	m.mu.Unlock()
	if m.ScreenshotFunc != nil {
		return m.ScreenshotFunc(path)
	}
	return nil
}

func (m *MockSession) IsLoggedIn(_ context.Context) (bool, error) {
	if m.IsLoggedInFunc != nil {
		return m.IsLoggedInFunc()
	}
	return true, nil
}

func (m *MockSession) Close() error {
	m.Closed = true
	return nil
}
