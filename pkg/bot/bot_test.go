package bot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igrepost/pkg/detector"
	"igrepost/pkg/fetcher"
	"igrepost/pkg/ledger"
	"igrepost/pkg/logger"
	"igrepost/pkg/storage"
	"igrepost/pkg/webhook"
)

type stubDetector struct {
	mu      sync.Mutex
	batches [][]detector.Candidate
	errs    []error
	calls   int
}

func (d *stubDetector) FindNewShares(context.Context) ([]detector.Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	call := d.calls
	d.calls++

	if call < len(d.errs) && d.errs[call] != nil {
		return nil, d.errs[call]
	}
	if call < len(d.batches) {
		return d.batches[call], nil
	}
	return nil, nil
}

func (d *stubDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type stubFetcher struct {
	mu      sync.Mutex
	resolve func(c detector.Candidate) (*fetcher.ResolvedMedia, error)
	calls   int
}

func (f *stubFetcher) Resolve(_ context.Context, c detector.Candidate) (*fetcher.ResolvedMedia, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.resolve == nil {
		return nil, assert.AnError
	}
	return f.resolve(c)
}

type stubPublisher struct {
	mu       sync.Mutex
	err      error
	captions []string
	paths    []string
}

func (p *stubPublisher) Publish(_ context.Context, videoPath, caption string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, videoPath)
	p.captions = append(p.captions, caption)
	return p.err
}

type reportEvent struct {
	status  webhook.Status
	message string
	reelID  string
}

type recordingReporter struct {
	mu     sync.Mutex
	events []reportEvent
}

func (r *recordingReporter) Report(status webhook.Status, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, reportEvent{status: status, message: message})
}

func (r *recordingReporter) ReportItem(status webhook.Status, message, reelID, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, reportEvent{status: status, message: message, reelID: reelID})
}

func (r *recordingReporter) statuses() []webhook.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []webhook.Status
	for _, e := range r.events {
		out = append(out, e.status)
	}
	return out
}

func (r *recordingReporter) countMessage(msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.message == msg {
			n++
		}
	}
	return n
}

type recordingNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *recordingNavigator) Navigate(_ context.Context, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	return nil
}

func (n *recordingNavigator) navigations() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

type fixture struct {
	bot      *Bot
	detector *stubDetector
	fetcher  *stubFetcher
	pub      *stubPublisher
	ledger   *ledger.Ledger
	store    *storage.Manager
	reporter *recordingReporter
	nav      *recordingNavigator
	dir      string
}

func newFixture(t *testing.T, d *stubDetector, f *stubFetcher, p *stubPublisher) *fixture {
	t.Helper()
	dir := t.TempDir()

	led := ledger.New(filepath.Join(dir, "processed.json"), logger.NewTestLogger())
	store, err := storage.NewManager(filepath.Join(dir, "downloads"), logger.NewTestLogger())
	require.NoError(t, err)

	reporter := &recordingReporter{}
	nav := &recordingNavigator{}

	b := New(Options{
		Detector:     d,
		Fetcher:      f,
		Publisher:    p,
		Ledger:       led,
		Store:        store,
		Session:      nav,
		Notifier:     reporter,
		Logger:       logger.NewTestLogger(),
		PollInterval: 10 * time.Millisecond,
		SettleDelay:  time.Millisecond,
		HomeURL:      "https://www.instagram.com/",
	})

	return &fixture{bot: b, detector: d, fetcher: f, pub: p, ledger: led, store: store, reporter: reporter, nav: nav, dir: dir}
}

// runUntil runs the bot until cond holds, then cancels and waits for exit
func runUntil(t *testing.T, b *Bot, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, cond, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop after cancellation")
	}
}

// savedVideo drops a fake downloaded file into the store and returns a
// fetcher stub that resolves to it
func savedVideo(t *testing.T, store *storage.Manager, caption, creator string) *stubFetcher {
	t.Helper()
	return &stubFetcher{resolve: func(c detector.Candidate) (*fetcher.ResolvedMedia, error) {
		path := store.VideoPath(c.Shortcode)
		require.NoError(t, os.WriteFile(path, []byte("video"), 0644))
		return &fetcher.ResolvedMedia{VideoPath: path, Caption: caption, Creator: creator}, nil
	}}
}

func TestRunRepostsShare(t *testing.T) {
	d := &stubDetector{batches: [][]detector.Candidate{{
		{MessageID: "item-1", Shortcode: "AAA", MediaID: "1", Sender: "alice"},
	}}}
	p := &stubPublisher{}

	fx := newFixture(t, d, nil, p)
	fx.fetcher = savedVideo(t, fx.store, "hello", "alice")
	fx.bot.fetcher = fx.fetcher

	runUntil(t, fx.bot, func() bool { return fx.ledger.IsProcessed("item-1") })

	require.Len(t, p.captions, 1)
	caption := p.captions[0]
	hello := strings.Index(caption, "hello")
	credit := strings.Index(caption, "@alice")
	suffix := strings.Index(caption, "Reposted via DM")
	require.True(t, hello >= 0 && credit >= 0 && suffix >= 0, "caption: %q", caption)
	assert.Less(t, hello, credit)
	assert.Less(t, credit, suffix)

	// Downloaded file removed after publishing
	_, err := os.Stat(p.paths[0])
	assert.True(t, os.IsNotExist(err))

	statuses := fx.reporter.statuses()
	assert.Contains(t, statuses, webhook.StatusDownloading)
	assert.Contains(t, statuses, webhook.StatusUploading)
	assert.Contains(t, statuses, webhook.StatusCompleted)
}

func TestRunMarksItemOnFetchFailure(t *testing.T) {
	d := &stubDetector{batches: [][]detector.Candidate{{
		{MessageID: "bad-1", Shortcode: "BAD", Sender: "alice"},
		{MessageID: "good-1", Shortcode: "OK", Sender: "alice"},
	}}}
	p := &stubPublisher{}

	fx := newFixture(t, d, nil, p)
	good := savedVideo(t, fx.store, "", "alice")
	fx.bot.fetcher = &stubFetcher{resolve: func(c detector.Candidate) (*fetcher.ResolvedMedia, error) {
		if c.Shortcode == "BAD" {
			return nil, assert.AnError
		}
		return good.resolve(c)
	}}

	runUntil(t, fx.bot, func() bool {
		return fx.ledger.IsProcessed("bad-1") && fx.ledger.IsProcessed("good-1")
	})

	// The failed item never reached the publisher, the next one did
	require.Len(t, p.paths, 1)
	assert.Contains(t, p.paths[0], "OK")
	assert.Contains(t, fx.reporter.statuses(), webhook.StatusError)
}

func TestRunMarksAndCleansOnPublishFailure(t *testing.T) {
	d := &stubDetector{batches: [][]detector.Candidate{{
		{MessageID: "item-1", Shortcode: "AAA", Sender: "alice"},
	}}}
	p := &stubPublisher{err: assert.AnError}

	fx := newFixture(t, d, nil, p)
	fx.bot.fetcher = savedVideo(t, fx.store, "c", "alice")

	runUntil(t, fx.bot, func() bool { return fx.ledger.IsProcessed("item-1") })

	require.Len(t, p.paths, 1)
	_, err := os.Stat(p.paths[0])
	assert.True(t, os.IsNotExist(err), "video removed even when publishing failed")
	assert.Contains(t, fx.reporter.statuses(), webhook.StatusError)
	assert.NotContains(t, fx.reporter.statuses(), webhook.StatusCompleted)
}

func TestRunSkipsShareWithoutReference(t *testing.T) {
	d := &stubDetector{batches: [][]detector.Candidate{{
		{MessageID: "bare-1", Sender: "alice"},
	}}}
	f := &stubFetcher{}
	p := &stubPublisher{}

	fx := newFixture(t, d, f, p)
	runUntil(t, fx.bot, func() bool { return fx.ledger.IsProcessed("bare-1") })

	assert.Zero(t, f.calls, "fetcher never called for a reference-less share")
	assert.Empty(t, p.paths)
}

func TestRunReturnsHomeAfterCandidate(t *testing.T) {
	d := &stubDetector{batches: [][]detector.Candidate{{
		{MessageID: "item-1", Shortcode: "AAA", Sender: "alice"},
	}}}
	p := &stubPublisher{}

	fx := newFixture(t, d, nil, p)
	fx.bot.fetcher = savedVideo(t, fx.store, "c", "alice")

	runUntil(t, fx.bot, func() bool {
		return fx.ledger.IsProcessed("item-1") && len(fx.nav.navigations()) >= 1
	})

	require.Len(t, p.paths, 1, "candidate was published")
	assert.Contains(t, fx.nav.navigations(), "https://www.instagram.com/")
}

func TestRunStopsQuicklyDuringSleep(t *testing.T) {
	d := &stubDetector{}
	fx := newFixture(t, d, &stubFetcher{}, &stubPublisher{})
	fx.bot.pollInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fx.bot.Run(ctx) }()

	require.Eventually(t, func() bool { return d.callCount() >= 1 }, 2*time.Second, time.Millisecond)

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop")
	}
	assert.Less(t, time.Since(start), time.Second, "shutdown must not wait out the poll interval")
}

func TestRunRecoversAfterPollError(t *testing.T) {
	d := &stubDetector{errs: []error{assert.AnError}}
	fx := newFixture(t, d, &stubFetcher{}, &stubPublisher{})

	runUntil(t, fx.bot, func() bool { return d.callCount() >= 2 })

	assert.Contains(t, fx.nav.navigations(), "https://www.instagram.com/")
	assert.Contains(t, fx.reporter.statuses(), webhook.StatusError)
}

func TestRunContainsPanics(t *testing.T) {
	panicky := &panickyDetector{}
	fx := newFixture(t, &stubDetector{}, &stubFetcher{}, &stubPublisher{})
	fx.bot.detector = panicky

	runUntil(t, fx.bot, func() bool { return panicky.callCount() >= 2 })

	assert.Contains(t, fx.reporter.statuses(), webhook.StatusError)
}

type panickyDetector struct {
	mu    sync.Mutex
	calls int
}

func (d *panickyDetector) FindNewShares(context.Context) ([]detector.Candidate, error) {
	d.mu.Lock()
	d.calls++
	first := d.calls == 1
	d.mu.Unlock()
	if first {
		panic("unexpected inbox shape")
	}
	return nil, nil
}

func (d *panickyDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestRunReportsIdleHeartbeat(t *testing.T) {
	d := &stubDetector{}
	fx := newFixture(t, d, &stubFetcher{}, &stubPublisher{})
	fx.bot.pollInterval = time.Millisecond

	runUntil(t, fx.bot, func() bool { return d.callCount() >= 12 })

	assert.GreaterOrEqual(t, fx.reporter.countMessage("monitoring inbox"), 2)
}

func TestRunReportsHeartbeatOnBusyPoll(t *testing.T) {
	// The fifth poll carries a candidate; the heartbeat still fires
	batches := make([][]detector.Candidate, 5)
	batches[4] = []detector.Candidate{{MessageID: "bare-5", Sender: "alice"}}
	d := &stubDetector{batches: batches}
	fx := newFixture(t, d, &stubFetcher{}, &stubPublisher{})
	fx.bot.pollInterval = time.Millisecond

	runUntil(t, fx.bot, func() bool { return d.callCount() >= 6 })

	assert.True(t, fx.ledger.IsProcessed("bare-5"))
	assert.GreaterOrEqual(t, fx.reporter.countMessage("monitoring inbox"), 1)
}
