// Package extractor is the application service behind the extraction API:
// parse the inbound URL, answer from cache when possible, otherwise run the
// scrape through the engine and cache the outcome.
package extractor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/mediagrab/mediagrab/internal/cache"
	"github.com/mediagrab/mediagrab/internal/engine"
	"github.com/mediagrab/mediagrab/internal/metrics"
	"github.com/mediagrab/mediagrab/internal/scrape"
)

// TTLs carries the per-kind cache lifetimes. Stories are short-lived
// upstream, so they get a much shorter TTL than posts and profiles.
type TTLs struct {
	Post      time.Duration
	Profile   time.Duration
	Story     time.Duration
	Highlight time.Duration
}

// Result is a finished extraction.
type Result struct {
	Kind   scrape.TargetKind  `json:"type"`
	ID     string             `json:"id"`
	Items  []scrape.MediaItem `json:"items"`
	Cached bool               `json:"cached"`
}

// Service coordinates one extraction end to end.
type Service struct {
	engine *engine.Engine
	cache  cache.Cache
	ttls   TTLs
	logger *zap.Logger
}

// New constructs a Service.
func New(eng *engine.Engine, c cache.Cache, ttls TTLs, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: eng, cache: c, ttls: ttls, logger: logger}
}

// Extract resolves rawURL to media. Cache hits bypass the engine entirely.
func (s *Service) Extract(ctx context.Context, rawURL string) (Result, error) {
	target := scrape.ParseTargetURL(rawURL)
	if target.Kind == scrape.TargetUnknown {
		return Result{}, scrape.NewError(scrape.KindValidation,
			"unsupported or malformed URL: "+rawURL)
	}

	id := target.Identifier()
	key := cache.Fingerprint(string(target.Kind), map[string]string{"id": id})

	if blob, ok := s.cache.Get(ctx, key); ok {
		var items []scrape.MediaItem
		if err := json.Unmarshal(blob, &items); err == nil {
			metrics.ObserveCacheLookup("hit")
			return Result{Kind: target.Kind, ID: id, Items: items, Cached: true}, nil
		}
		s.cache.Delete(ctx, key)
	}
	metrics.ObserveCacheLookup("miss")

	requireAuth, work := planFor(target)
	items, err := s.engine.Run(ctx, requireAuth, work)
	if err != nil {
		metrics.ObserveUpstreamCall(string(target.Kind), "error")
		return Result{}, err
	}
	metrics.ObserveUpstreamCall(string(target.Kind), "ok")

	if blob, err := json.Marshal(items); err == nil {
		s.cache.Set(ctx, key, blob, s.ttlFor(target.Kind))
	}
	return Result{Kind: target.Kind, ID: id, Items: items}, nil
}

// planFor maps a target to the client call serving it and whether it needs
// an authenticated session. Public posts and profiles work anonymously;
// stories and highlights never do.
func planFor(t scrape.Target) (bool, engine.Work) {
	switch t.Kind {
	case scrape.TargetPost:
		return true, func(c scrape.Client) ([]scrape.MediaItem, error) {
			return c.FetchPost(t.Shortcode)
		}
	case scrape.TargetProfile:
		return false, func(c scrape.Client) ([]scrape.MediaItem, error) {
			return c.FetchProfile(t.Username)
		}
	case scrape.TargetStory:
		return true, func(c scrape.Client) ([]scrape.MediaItem, error) {
			return c.FetchStory(t.Username, t.StoryID)
		}
	case scrape.TargetAllStories:
		return true, func(c scrape.Client) ([]scrape.MediaItem, error) {
			return c.FetchStories(t.Username)
		}
	default:
		return true, func(c scrape.Client) ([]scrape.MediaItem, error) {
			return c.FetchHighlight(t.HighlightID)
		}
	}
}

func (s *Service) ttlFor(kind scrape.TargetKind) time.Duration {
	switch kind {
	case scrape.TargetPost:
		return s.ttls.Post
	case scrape.TargetProfile:
		return s.ttls.Profile
	case scrape.TargetStory, scrape.TargetAllStories:
		return s.ttls.Story
	default:
		return s.ttls.Highlight
	}
}
