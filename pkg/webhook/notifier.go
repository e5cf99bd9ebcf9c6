// Package webhook posts bot progress to an external status endpoint.
// Delivery is fire-and-forget: the loop never stalls or fails because the
// status page is down.
package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"igrepost/pkg/logger"
)

// Status is the bot state reported to the endpoint
type Status string

const (
	StatusIdle        Status = "idle"
	StatusDownloading Status = "downloading"
	StatusUploading   Status = "uploading"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// progressPath is appended to bare endpoint URLs
const progressPath = "/api/progress"

// payload is the wire shape accepted by the progress endpoint
type payload struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	ReelID  string `json:"reelId,omitempty"`
	Sender  string `json:"sender,omitempty"`
}

// Notifier reports progress to a configured endpoint. A Notifier with an
// empty endpoint is valid and silently drops every report.
type Notifier struct {
	endpoint string
	client   *http.Client
	logger   logger.Logger
}

// NewNotifier creates a notifier for the given endpoint URL. The URL is
// normalized to end in /api/progress.
func NewNotifier(endpoint string, timeout time.Duration, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.GetLogger()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" && !strings.HasSuffix(endpoint, progressPath) {
		endpoint = strings.TrimRight(endpoint, "/") + progressPath
	}

	return &Notifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

// Enabled reports whether an endpoint is configured
func (n *Notifier) Enabled() bool {
	return n.endpoint != ""
}

// Report sends a status update without item context
func (n *Notifier) Report(status Status, message string) {
	n.send(payload{Status: status, Message: message})
}

// ReportItem sends a status update about a specific inbox item
func (n *Notifier) ReportItem(status Status, message, reelID, sender string) {
	n.send(payload{Status: status, Message: message, ReelID: reelID, Sender: sender})
}

func (n *Notifier) send(p payload) {
	if n.endpoint == "" {
		return
	}

	body, err := json.Marshal(p)
	if err != nil {
		n.logger.WithError(err).Debug("failed to encode progress payload")
		return
	}

	resp, err := n.client.Post(n.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.WithError(err).Debug("progress report failed")
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.DebugWithFields("progress endpoint rejected report", map[string]interface{}{
			"status_code": resp.StatusCode,
		})
	}
}
