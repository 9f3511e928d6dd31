package scrape

import (
	"regexp"
	"strings"
)

var (
	postRE       = regexp.MustCompile(`instagram\.com/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)
	highlightRE  = regexp.MustCompile(`instagram\.com/stories/highlights/(\d+)`)
	storyRE      = regexp.MustCompile(`instagram\.com/stories/([^/]+)/(\d+)`)
	allStoriesRE = regexp.MustCompile(`instagram\.com/stories/([A-Za-z0-9_.]+)/?$`)
	profileRE    = regexp.MustCompile(`instagram\.com/([A-Za-z0-9_.]+)/?$`)
)

// Paths under instagram.com that are never profile names.
var reservedPaths = map[string]struct{}{
	"p": {}, "reel": {}, "tv": {}, "stories": {}, "explore": {},
	"direct": {}, "accounts": {}, "about": {}, "legal": {},
}

// ParseTargetURL classifies an Instagram URL into a Target. Highlights are
// matched before plain stories because both live under /stories/.
func ParseTargetURL(raw string) Target {
	clean := strings.TrimRight(strings.SplitN(strings.TrimSpace(raw), "?", 2)[0], "/")

	if m := postRE.FindStringSubmatch(clean); m != nil {
		return Target{Kind: TargetPost, Shortcode: m[1]}
	}
	if m := highlightRE.FindStringSubmatch(clean); m != nil {
		return Target{Kind: TargetHighlight, HighlightID: m[1]}
	}
	if m := storyRE.FindStringSubmatch(clean); m != nil {
		return Target{Kind: TargetStory, Username: m[1], StoryID: m[2]}
	}
	if m := allStoriesRE.FindStringSubmatch(clean); m != nil {
		return Target{Kind: TargetAllStories, Username: m[1]}
	}
	if m := profileRE.FindStringSubmatch(clean); m != nil {
		if _, reserved := reservedPaths[strings.ToLower(m[1])]; !reserved {
			return Target{Kind: TargetProfile, Username: m[1]}
		}
	}
	return Target{Kind: TargetUnknown}
}
