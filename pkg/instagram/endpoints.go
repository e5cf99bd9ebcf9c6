package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// AppID identifies the web client on private API calls
	AppID = "936619743392459"

	// InboxEndpoint is the direct-messages inbox endpoint
	InboxEndpoint = "/api/v1/direct_v2/inbox/"

	// MediaInfoEndpoint is the endpoint pattern for media metadata;
	// accepts either a shortcode or a numeric media ID
	MediaInfoEndpoint = "/api/v1/media/%s/info/"

	// DefaultInboxLimit is the number of threads fetched per poll
	DefaultInboxLimit = 20

	// DefaultThreadMessageLimit is the number of items fetched per thread
	DefaultThreadMessageLimit = 10
)

// GetInboxPath constructs the session-relative path for the DM inbox
func GetInboxPath() string {
	params := url.Values{}
	params.Set("persistentBadging", "true")
	params.Set("folder", "")
	params.Set("limit", fmt.Sprintf("%d", DefaultInboxLimit))
	params.Set("thread_message_limit", fmt.Sprintf("%d", DefaultThreadMessageLimit))

	return fmt.Sprintf("%s?%s", InboxEndpoint, params.Encode())
}

// GetMediaInfoPath constructs the session-relative path for media metadata.
// ref is a shortcode or a numeric media ID.
func GetMediaInfoPath(ref string) string {
	return fmt.Sprintf(MediaInfoEndpoint, url.PathEscape(ref))
}

// GetReelURL constructs the canonical page URL for a reel
func GetReelURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/reel/%s/", BaseURL, shortcode)
}

// GetHomeURL returns the logged-in landing page, used as the known-good
// location for poll-level recovery
func GetHomeURL() string {
	return BaseURL + "/"
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Usernames can only contain letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername removes any invalid characters from a username
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	// Remove @ symbol if present at the beginning
	if username[0] == '@' {
		username = username[1:]
	}

	// Remove any trailing slashes or spaces
	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
