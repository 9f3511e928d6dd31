// Package scrape defines the domain types and the contract of the blocking
// upstream scraping client, plus the error taxonomy surfaced by it.
package scrape

// MediaItem is a single extracted piece of media.
type MediaItem struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
	IsVideo   bool   `json:"is_video"`
}

// TargetKind classifies what an inbound URL points at.
type TargetKind string

// Supported target kinds.
const (
	TargetPost       TargetKind = "post"
	TargetProfile    TargetKind = "profile"
	TargetStory      TargetKind = "story"
	TargetAllStories TargetKind = "stories_all"
	TargetHighlight  TargetKind = "highlight"
	TargetUnknown    TargetKind = "unknown"
)

// Target is a parsed extraction target.
type Target struct {
	Kind        TargetKind
	Shortcode   string
	Username    string
	StoryID     string
	HighlightID string
}

// Identifier returns the value that identifies the target within its kind.
func (t Target) Identifier() string {
	switch t.Kind {
	case TargetPost:
		return t.Shortcode
	case TargetProfile, TargetAllStories:
		return t.Username
	case TargetStory:
		return t.Username + "/" + t.StoryID
	case TargetHighlight:
		return t.HighlightID
	default:
		return ""
	}
}

// Client is the synchronous upstream scraping collaborator. Calls block
// until the upstream responds; cancellation is not supported, timeouts are
// enforced on the client's own network layer.
type Client interface {
	FetchPost(shortcode string) ([]MediaItem, error)
	FetchProfile(username string) ([]MediaItem, error)
	FetchStory(username, storyID string) ([]MediaItem, error)
	FetchStories(username string) ([]MediaItem, error)
	FetchHighlight(highlightID string) ([]MediaItem, error)

	Login(username, password string) error
	ImportCookies(blob []byte) error
	ExportCookies() ([]byte, error)
	Close()
}
