package instagram

import (
	"encoding/json"
	"strings"
)

// Item types carried by DM thread items
const (
	ItemTypeMediaShare = "media_share"
	ItemTypeClip       = "clip"
	ItemTypeFelixShare = "felix_share"
)

const (
	// MediaTypeVideo marks a video in the media_type field
	MediaTypeVideo = 2

	// ProductTypeClips marks reel content in the product_type field
	ProductTypeClips = "clips"
)

// InboxResponse is the top-level shape of the DM inbox payload
type InboxResponse struct {
	Inbox  Inbox  `json:"inbox"`
	Status string `json:"status"`
}

// Inbox holds the thread list
type Inbox struct {
	Threads []Thread `json:"threads"`
}

// Thread is a single DM conversation
type Thread struct {
	ThreadID string       `json:"thread_id"`
	Users    []ThreadUser `json:"users"`
	Items    []ThreadItem `json:"items"`
}

// ThreadUser identifies a participant in a thread
type ThreadUser struct {
	Username string `json:"username"`
}

// HasUser reports whether the thread contains a participant with the given
// username (case-insensitive)
func (t *Thread) HasUser(username string) bool {
	for _, u := range t.Users {
		if strings.EqualFold(u.Username, username) {
			return true
		}
	}
	return false
}

// ThreadItem is a single message in a thread. Share payloads are optional:
// only the field matching ItemType is populated.
type ThreadItem struct {
	ItemID     string         `json:"item_id"`
	ItemType   string         `json:"item_type"`
	MediaShare *SharedMedia   `json:"media_share,omitempty"`
	Clip       *ClipEnvelope  `json:"clip,omitempty"`
	FelixShare *FelixEnvelope `json:"felix_share,omitempty"`
}

// SharedMedia describes shared post/reel content inside a DM item
type SharedMedia struct {
	ID          json.Number `json:"pk"`
	Code        string      `json:"code"`
	MediaType   int         `json:"media_type"`
	ProductType string      `json:"product_type"`
}

// IsClipContent reports whether shared media is video/reel content
func (m *SharedMedia) IsClipContent() bool {
	return m.MediaType == MediaTypeVideo || m.ProductType == ProductTypeClips
}

// ClipEnvelope wraps a dedicated reel share. Depending on payload version
// the media sits either nested under "clip" or inline on the envelope.
type ClipEnvelope struct {
	SharedMedia
	Nested *SharedMedia `json:"clip,omitempty"`
}

// Media returns the shared media, preferring the nested form
func (c *ClipEnvelope) Media() *SharedMedia {
	if c.Nested != nil {
		return c.Nested
	}
	return &c.SharedMedia
}

// FelixEnvelope wraps a long-form video share
type FelixEnvelope struct {
	Video *SharedMedia `json:"video,omitempty"`
}
