// Package instaclient implements scrape.Client against Instagram's public
// web pages using a Colly collector. Media is extracted from og: meta tags;
// authenticated targets ride on a cookie jar shared across requests so a
// session survives for the lifetime of the client.
package instaclient

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/mediagrab/mediagrab/internal/scrape"
)

const defaultBaseURL = "https://www.instagram.com"

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// BaseURL overrides the upstream origin, used by tests.
	BaseURL string
}

// Client is a blocking scraping client. Safe for concurrent use: every
// request runs on a clone of the base collector, sharing only the jar.
type Client struct {
	cfg    Config
	base   *colly.Collector
	jar    http.CookieJar
	origin *url.URL
	logger *zap.Logger
}

// New builds a Client with a fresh cookie jar.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	origin, err := url.Parse(cfg.BaseURL)
	if err != nil {
		origin, _ = url.Parse(defaultBaseURL)
	}

	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(cfg.Timeout)

	jar, _ := cookiejar.New(nil)
	c.SetCookieJar(jar)

	return &Client{cfg: cfg, base: c, jar: jar, origin: origin, logger: logger}
}

// page is the raw outcome of one upstream round trip.
type page struct {
	status int
	body   []byte
}

// get performs one blocking GET through a collector clone.
func (cl *Client) get(rawURL string) (page, error) {
	c := cl.base.Clone()
	c.SetCookieJar(cl.jar)

	var p page
	var respErr error
	c.OnResponse(func(r *colly.Response) {
		p.status = r.StatusCode
		p.body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			p.status = r.StatusCode
			p.body = append([]byte(nil), r.Body...)
		}
		respErr = err
	})

	if err := c.Visit(rawURL); err != nil && respErr == nil {
		respErr = err
	}
	if respErr != nil && p.status == 0 {
		return p, scrape.WrapError(scrape.KindUnavailable, "upstream connection error", respErr)
	}
	return p, nil
}

// statusError maps a non-OK upstream status to the outward taxonomy.
// notFound lets callers distinguish missing posts from missing profiles.
func statusError(status int, notFound scrape.Kind, what string) error {
	switch {
	case status == http.StatusNotFound:
		return scrape.NewError(notFound, fmt.Sprintf("%s not found", what))
	case status == http.StatusTooManyRequests:
		return scrape.NewError(scrape.KindRateLimited, "upstream rate limit hit")
	case status == http.StatusUnauthorized:
		return scrape.NewError(scrape.KindLoginRequired, fmt.Sprintf("login required for %s", what))
	case status == http.StatusForbidden:
		return scrape.NewError(scrape.KindPrivateProfile, fmt.Sprintf("%s is not accessible", what))
	case status >= 500:
		return scrape.NewError(scrape.KindUnavailable, fmt.Sprintf("upstream returned %d", status))
	case status != http.StatusOK:
		return scrape.NewError(scrape.KindInternal, fmt.Sprintf("unexpected upstream status %d", status))
	}
	return nil
}

// FetchPost extracts media from a post or reel page.
func (cl *Client) FetchPost(shortcode string) ([]scrape.MediaItem, error) {
	p, err := cl.get(fmt.Sprintf("%s/p/%s/", cl.cfg.BaseURL, shortcode))
	if err != nil {
		return nil, err
	}
	if err := statusError(p.status, scrape.KindPostNotFound, "post "+shortcode); err != nil {
		return nil, err
	}
	items := metaMedia(p.body)
	if len(items) == 0 {
		return nil, scrape.NewError(scrape.KindLoginRequired,
			"could not extract post data; upstream may require login for post "+shortcode)
	}
	return items, nil
}

// FetchProfile extracts the profile picture from a profile page.
func (cl *Client) FetchProfile(username string) ([]scrape.MediaItem, error) {
	p, err := cl.get(fmt.Sprintf("%s/%s/", cl.cfg.BaseURL, username))
	if err != nil {
		return nil, err
	}
	if err := statusError(p.status, scrape.KindProfileNotFound, "profile "+username); err != nil {
		return nil, err
	}
	items := metaMedia(p.body)
	if len(items) == 0 {
		return nil, scrape.NewError(scrape.KindProfileNotFound, "profile "+username+" not found")
	}
	return items, nil
}

// FetchStory extracts a single story item.
func (cl *Client) FetchStory(username, storyID string) ([]scrape.MediaItem, error) {
	p, err := cl.get(fmt.Sprintf("%s/stories/%s/%s/", cl.cfg.BaseURL, username, storyID))
	if err != nil {
		return nil, err
	}
	if err := statusError(p.status, scrape.KindPostNotFound, "story "+storyID); err != nil {
		return nil, err
	}
	items := metaMedia(p.body)
	if len(items) == 0 {
		return nil, scrape.NewError(scrape.KindPostNotFound, "story "+storyID+" not found or expired")
	}
	return items, nil
}

// FetchStories extracts every active story on a profile.
func (cl *Client) FetchStories(username string) ([]scrape.MediaItem, error) {
	p, err := cl.get(fmt.Sprintf("%s/stories/%s/", cl.cfg.BaseURL, username))
	if err != nil {
		return nil, err
	}
	if err := statusError(p.status, scrape.KindProfileNotFound, "stories for "+username); err != nil {
		return nil, err
	}
	items := metaMedia(p.body)
	if len(items) == 0 {
		return nil, scrape.NewError(scrape.KindPostNotFound, "user "+username+" has no active stories")
	}
	return items, nil
}

// FetchHighlight extracts a highlight reel by ID.
func (cl *Client) FetchHighlight(highlightID string) ([]scrape.MediaItem, error) {
	p, err := cl.get(fmt.Sprintf("%s/stories/highlights/%s/", cl.cfg.BaseURL, highlightID))
	if err != nil {
		return nil, err
	}
	if err := statusError(p.status, scrape.KindPostNotFound, "highlight "+highlightID); err != nil {
		return nil, err
	}
	items := metaMedia(p.body)
	if len(items) == 0 {
		return nil, scrape.NewError(scrape.KindPostNotFound,
			"highlight "+highlightID+" not found or is private")
	}
	return items, nil
}

// Close drops the session state.
func (cl *Client) Close() {
	jar, _ := cookiejar.New(nil)
	cl.jar = jar
	cl.base.SetCookieJar(jar)
}
