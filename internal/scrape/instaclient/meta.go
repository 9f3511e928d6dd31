package instaclient

import (
	"html"
	"regexp"

	"github.com/mediagrab/mediagrab/internal/scrape"
)

// Media URLs are carried in OpenGraph meta tags. Attribute order varies
// between page renders, so both orderings are matched per property.
var (
	ogVideoRE = []*regexp.Regexp{
		regexp.MustCompile(`<meta\s+property="og:video"\s+content="([^"]+)"`),
		regexp.MustCompile(`<meta\s+content="([^"]+)"\s+property="og:video"`),
	}
	ogImageRE = []*regexp.Regexp{
		regexp.MustCompile(`<meta\s+property="og:image"\s+content="([^"]+)"`),
		regexp.MustCompile(`<meta\s+content="([^"]+)"\s+property="og:image"`),
	}
)

func firstMatch(res []*regexp.Regexp, body []byte) string {
	for _, re := range res {
		if m := re.FindSubmatch(body); m != nil {
			return html.UnescapeString(string(m[1]))
		}
	}
	return ""
}

// metaMedia extracts media from a page's OpenGraph tags. A video page still
// carries og:image for its thumbnail, so the image doubles as the video's
// thumbnail when both are present.
func metaMedia(body []byte) []scrape.MediaItem {
	video := firstMatch(ogVideoRE, body)
	image := firstMatch(ogImageRE, body)

	if video != "" {
		return []scrape.MediaItem{{URL: video, Thumbnail: image, IsVideo: true}}
	}
	if image != "" {
		return []scrape.MediaItem{{URL: image, IsVideo: false}}
	}
	return nil
}
