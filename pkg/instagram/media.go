package instagram

import "encoding/json"

// MediaInfoResponse is the shape of the media metadata payload
type MediaInfoResponse struct {
	Items  []MediaItem `json:"items"`
	Status string      `json:"status"`
}

// FirstItem returns the first media item, or nil if the response is empty
// or unusable
func (r *MediaInfoResponse) FirstItem() *MediaItem {
	if r == nil || len(r.Items) == 0 {
		return nil
	}
	return &r.Items[0]
}

// MediaItem describes a single piece of media
type MediaItem struct {
	ID            json.Number    `json:"pk"`
	Code          string         `json:"code"`
	User          MediaUser      `json:"user"`
	Caption       *Caption       `json:"caption"`
	VideoVersions []VideoVersion `json:"video_versions"`
}

// MediaUser identifies the account that owns a media item
type MediaUser struct {
	Username string `json:"username"`
}

// Caption holds the caption text; the field is null for caption-less media
type Caption struct {
	Text string `json:"text"`
}

// VideoVersion is one encoding of a video, ranked by quality (first is best)
type VideoVersion struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   int    `json:"type"`
}

// CreatorUsername returns the owning account name, or "unknown" when the
// payload does not carry one
func (m *MediaItem) CreatorUsername() string {
	if m.User.Username == "" {
		return "unknown"
	}
	return m.User.Username
}

// CaptionText returns the caption text, empty when absent
func (m *MediaItem) CaptionText() string {
	if m.Caption == nil {
		return ""
	}
	return m.Caption.Text
}

// BestVideoURL returns the highest-priority video stream URL, empty when
// the item carries no video versions
func (m *MediaItem) BestVideoURL() string {
	if len(m.VideoVersions) == 0 {
		return ""
	}
	return m.VideoVersions[0].URL
}
