package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igrepost/pkg/logger"
)

func TestNotifierPostsToProgressEndpoint(t *testing.T) {
	var (
		mu       sync.Mutex
		paths    []string
		payloads []map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		paths = append(paths, r.URL.Path)
		payloads = append(payloads, body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, 5*time.Second, logger.NewTestLogger())
	require.True(t, n.Enabled())

	n.Report(StatusIdle, "waiting for shares")
	n.ReportItem(StatusDownloading, "downloading reel", "ABC123", "alice")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 2)
	assert.Equal(t, "/api/progress", paths[0])

	assert.Equal(t, "idle", payloads[0]["status"])
	assert.Equal(t, "waiting for shares", payloads[0]["message"])
	_, hasReelID := payloads[0]["reelId"]
	assert.False(t, hasReelID, "item fields omitted on plain reports")

	assert.Equal(t, "downloading", payloads[1]["status"])
	assert.Equal(t, "ABC123", payloads[1]["reelId"])
	assert.Equal(t, "alice", payloads[1]["sender"])
}

func TestNotifierKeepsExistingProgressPath(t *testing.T) {
	n := NewNotifier("http://example.com/api/progress", 0, logger.NewTestLogger())
	assert.Equal(t, "http://example.com/api/progress", n.endpoint)

	n = NewNotifier("http://example.com/", 0, logger.NewTestLogger())
	assert.Equal(t, "http://example.com/api/progress", n.endpoint)
}

func TestNotifierDisabledWhenUnconfigured(t *testing.T) {
	n := NewNotifier("", time.Second, logger.NewTestLogger())
	assert.False(t, n.Enabled())

	// Must not panic or attempt network I/O
	n.Report(StatusCompleted, "done")
	n.ReportItem(StatusError, "boom", "X", "alice")
}

func TestNotifierSwallowsDeliveryFailures(t *testing.T) {
	log := logger.NewTestLogger()

	// Port from a closed listener, so the POST fails fast
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	n := NewNotifier(endpoint, time.Second, log)
	n.Report(StatusError, "unreachable")

	assert.Empty(t, log.GetMessagesByLevel("ERROR"), "delivery failures stay at debug level")
	assert.NotEmpty(t, log.GetMessagesByLevel("DEBUG"))
}

func TestNotifierLogsRejectedReports(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	log := logger.NewTestLogger()
	n := NewNotifier(server.URL, time.Second, log)
	n.Report(StatusUploading, "posting")

	assert.True(t, log.HasMessage("progress endpoint rejected report"))
	assert.Empty(t, log.GetMessagesByLevel("ERROR"))
}
