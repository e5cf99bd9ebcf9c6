package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igrepost/pkg/errors"
	"igrepost/pkg/logger"
)

func TestGetInboxPath(t *testing.T) {
	path := GetInboxPath()
	assert.Contains(t, path, InboxEndpoint)
	assert.Contains(t, path, "limit=20")
	assert.Contains(t, path, "thread_message_limit=10")
	assert.Contains(t, path, "persistentBadging=true")
}

func TestGetMediaInfoPath(t *testing.T) {
	assert.Equal(t, "/api/v1/media/abc123/info/", GetMediaInfoPath("abc123"))
	assert.Equal(t, "/api/v1/media/3141592653/info/", GetMediaInfoPath("3141592653"))
}

func TestGetReelURL(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/reel/abc123/", GetReelURL("abc123"))
	assert.Equal(t, "", GetReelURL(""))
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"@alice", "alice"},
		{"alice/", "alice"},
		{"alice ", "alice"},
		{"alice", "alice"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeUsername(tt.input))
	}
}

func TestThreadHasUser(t *testing.T) {
	thread := Thread{
		Users: []ThreadUser{{Username: "Alice"}, {Username: "repostbot"}},
	}

	assert.True(t, thread.HasUser("alice"))
	assert.True(t, thread.HasUser("ALICE"))
	assert.False(t, thread.HasUser("bob"))
}

func TestInboxDecodeShareShapes(t *testing.T) {
	payload := `{
		"inbox": {
			"threads": [{
				"thread_id": "t1",
				"users": [{"username": "alice"}],
				"items": [
					{"item_id": "i1", "item_type": "media_share",
					 "media_share": {"pk": 111, "code": "aaa", "media_type": 2, "product_type": "clips"}},
					{"item_id": "i2", "item_type": "clip",
					 "clip": {"clip": {"pk": 222, "code": "bbb", "media_type": 2}}},
					{"item_id": "i3", "item_type": "clip",
					 "clip": {"pk": 333, "code": "ccc", "media_type": 2}},
					{"item_id": "i4", "item_type": "felix_share",
					 "felix_share": {"video": {"pk": 444, "code": "ddd"}}},
					{"item_id": "i5", "item_type": "text"}
				]
			}]
		},
		"status": "ok"
	}`

	var resp InboxResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	require.Len(t, resp.Inbox.Threads, 1)

	items := resp.Inbox.Threads[0].Items
	require.Len(t, items, 5)

	require.NotNil(t, items[0].MediaShare)
	assert.Equal(t, "aaa", items[0].MediaShare.Code)
	assert.True(t, items[0].MediaShare.IsClipContent())

	// Nested clip envelope
	require.NotNil(t, items[1].Clip)
	assert.Equal(t, "bbb", items[1].Clip.Media().Code)
	assert.Equal(t, "222", items[1].Clip.Media().ID.String())

	// Inline clip envelope
	require.NotNil(t, items[2].Clip)
	assert.Equal(t, "ccc", items[2].Clip.Media().Code)

	require.NotNil(t, items[3].FelixShare)
	require.NotNil(t, items[3].FelixShare.Video)
	assert.Equal(t, "ddd", items[3].FelixShare.Video.Code)

	assert.Nil(t, items[4].MediaShare)
	assert.Nil(t, items[4].Clip)
	assert.Nil(t, items[4].FelixShare)
}

func TestSharedMediaIsClipContent(t *testing.T) {
	assert.True(t, (&SharedMedia{MediaType: MediaTypeVideo}).IsClipContent())
	assert.True(t, (&SharedMedia{ProductType: ProductTypeClips}).IsClipContent())
	assert.False(t, (&SharedMedia{MediaType: 1}).IsClipContent())
}

func TestMediaItemAccessors(t *testing.T) {
	item := &MediaItem{
		User:    MediaUser{Username: "alice"},
		Caption: &Caption{Text: "hello"},
		VideoVersions: []VideoVersion{
			{URL: "https://cdn.example.com/hq.mp4", Width: 1080},
			{URL: "https://cdn.example.com/lq.mp4", Width: 480},
		},
	}

	assert.Equal(t, "alice", item.CreatorUsername())
	assert.Equal(t, "hello", item.CaptionText())
	assert.Equal(t, "https://cdn.example.com/hq.mp4", item.BestVideoURL())

	empty := &MediaItem{}
	assert.Equal(t, "unknown", empty.CreatorUsername())
	assert.Equal(t, "", empty.CaptionText())
	assert.Equal(t, "", empty.BestVideoURL())

	var nilResp *MediaInfoResponse
	assert.Nil(t, nilResp.FirstItem())
	assert.Nil(t, (&MediaInfoResponse{}).FirstItem())
}

// mockRoundTripper allows intercepting HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newTestClient(handler func(req *http.Request) (*http.Response, error)) *Client {
	client := NewClient(30*time.Second, logger.NewTestLogger())
	client.httpClient = &http.Client{
		Transport: &mockRoundTripper{handler: handler},
		Timeout:   30 * time.Second,
	}
	return client
}

func TestFetchVideo(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		assert.NotEmpty(t, req.Header.Get("User-Agent"))
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString("video-bytes")),
			Header:     make(http.Header),
		}, nil
	})

	body, err := client.FetchVideo(context.Background(), "https://cdn.example.com/reel.mp4")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestFetchVideoStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType errors.ErrorType
	}{
		{"not found", http.StatusNotFound, errors.ErrorTypeNotFound},
		{"forbidden", http.StatusForbidden, errors.ErrorTypeAuth},
		{"rate limited", http.StatusTooManyRequests, errors.ErrorTypeNetwork},
		{"server error", http.StatusBadGateway, errors.ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(func(req *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: tt.status,
					Body:       io.NopCloser(bytes.NewBufferString("")),
					Header:     make(http.Header),
				}, nil
			})

			_, err := client.FetchVideo(context.Background(), "https://cdn.example.com/reel.mp4")
			require.Error(t, err)

			var apiErr *errors.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantType, apiErr.Type)
		})
	}
}
