// Package engine executes blocking scrape work against the upstream. It owns
// account rotation, per-account client construction with session reuse, and
// a bounded worker pool that bridges the synchronous client into a
// context-aware call path.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/mediagrab/mediagrab/internal/accounts"
	"github.com/mediagrab/mediagrab/internal/clock"
	"github.com/mediagrab/mediagrab/internal/scrape"
)

// Factory constructs fresh scraping clients.
type Factory interface {
	New() scrape.Client
}

// FactoryFunc adapts a plain function to Factory.
type FactoryFunc func() scrape.Client

// New implements Factory.
func (f FactoryFunc) New() scrape.Client { return f() }

// Work is one upstream operation executed against a chosen client.
type Work func(scrape.Client) ([]scrape.MediaItem, error)

// Engine runs Work against rotated accounts. Clients are cached per account
// for session reuse; an anonymous default client backs requests when the
// pool is empty or exhausted and the operation tolerates it.
type Engine struct {
	pool     *accounts.Pool
	factory  Factory
	sessions *SessionStore
	clock    clock.Clock
	logger   *zap.Logger
	cooldown time.Duration
	sem      *semaphore.Weighted

	clientsMu sync.Mutex
	clients   map[string]scrape.Client

	defaultMu     sync.Mutex
	defaultClient scrape.Client
	ambientUser   string
}

// Options bundles Engine construction parameters.
type Options struct {
	Pool          *accounts.Pool
	Factory       Factory
	Sessions      *SessionStore
	Clock         clock.Clock
	Logger        *zap.Logger
	Cooldown      time.Duration
	MaxConcurrent int
}

// New constructs an Engine.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = accounts.DefaultCooldown
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	return &Engine{
		pool:     opts.Pool,
		factory:  opts.Factory,
		sessions: opts.Sessions,
		clock:    opts.Clock,
		logger:   opts.Logger,
		cooldown: opts.Cooldown,
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		clients:  make(map[string]scrape.Client),
	}
}

// Run executes work against the next available account. Accounts whose
// client cannot be constructed are disabled and the rotation moves on, so a
// single broken credential never wedges the pool. When no account is usable,
// operations that require authentication fail with a login-required error
// unless an ambient login exists; the rest fall through to the anonymous
// default client.
func (e *Engine) Run(ctx context.Context, requireAuth bool, work Work) ([]scrape.MediaItem, error) {
	for attempts := e.pool.Len(); attempts > 0; attempts-- {
		acct, ok := e.pool.NextAvailable()
		if !ok {
			break
		}
		client, err := e.clientFor(acct)
		if err != nil {
			e.logger.Warn("disabling account after client construction failure",
				zap.String("username", acct.Username),
				zap.Error(err),
			)
			e.pool.RecordError(acct.Username, err.Error())
			e.pool.SetEnabled(acct.Username, false)
			continue
		}
		return e.dispatch(ctx, acct.Username, client, work)
	}

	if requireAuth && e.AmbientUser() == "" {
		return nil, scrape.NewError(scrape.KindLoginRequired,
			"no accounts available and this operation requires a logged-in session")
	}

	client, err := e.ensureDefaultClient()
	if err != nil {
		return nil, err
	}
	return e.dispatch(ctx, "", client, work)
}

// dispatch runs work on a pooled goroutine bounded by the semaphore. The
// outcome is recorded against the account even when the caller's context
// expires first, because the blocking client cannot be cancelled and its
// result still reflects account health.
func (e *Engine) dispatch(ctx context.Context, username string, client scrape.Client, work Work) ([]scrape.MediaItem, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, scrape.WrapError(scrape.KindUnavailable, "request abandoned while queued", err)
	}

	type outcome struct {
		items []scrape.MediaItem
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer e.sem.Release(1)
		items, err := work(client)
		e.record(username, err)
		done <- outcome{items: items, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, scrape.WrapError(scrape.KindUnavailable,
			"request abandoned before the upstream answered", ctx.Err())
	case out := <-done:
		if username != "" && scrape.IsRateLimited(out.err) {
			var se *scrape.Error
			if errors.As(out.err, &se) {
				return out.items, &scrape.Error{
					Kind:       se.Kind,
					Message:    se.Message,
					RetryAfter: e.cooldown,
				}
			}
		}
		return out.items, out.err
	}
}

// record feeds one upstream outcome back into the pool. The hourly counter
// only moves on success.
func (e *Engine) record(username string, err error) {
	if username == "" {
		return
	}
	switch {
	case err == nil:
		e.pool.RecordRequest(username)
	case scrape.IsRateLimited(err):
		e.pool.MarkRateLimited(username, e.cooldown)
		e.pool.RecordError(username, err.Error())
	default:
		e.pool.RecordError(username, err.Error())
	}
}

// clientFor returns the cached client for acct, constructing it on first
// use. Construction walks the session chain: environment blob, then session
// file, then a fresh login whose session is saved for next time.
// Construction is serialized; it happens at most once per account.
func (e *Engine) clientFor(acct accounts.Account) (scrape.Client, error) {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	if c, ok := e.clients[acct.Username]; ok {
		return c, nil
	}

	c := e.factory.New()
	if err := e.establishSession(c, acct); err != nil {
		c.Close()
		return nil, err
	}
	e.clients[acct.Username] = c
	return c, nil
}

func (e *Engine) establishSession(c scrape.Client, acct accounts.Account) error {
	if blob, ok := e.sessions.FromEnv(acct.Username); ok {
		if err := c.ImportCookies(blob); err == nil {
			e.logger.Info("session restored from environment",
				zap.String("username", acct.Username))
			return nil
		}
		e.logger.Warn("environment session rejected, falling back",
			zap.String("username", acct.Username))
	}

	if blob, ok := e.sessions.Load(acct.Username); ok {
		if err := c.ImportCookies(blob); err == nil {
			e.logger.Info("session restored from file",
				zap.String("username", acct.Username))
			return nil
		}
		e.logger.Warn("session file rejected, falling back",
			zap.String("username", acct.Username))
	}

	if err := c.Login(acct.Username, acct.Password); err != nil {
		return err
	}
	if blob, err := c.ExportCookies(); err == nil {
		if err := e.sessions.Save(acct.Username, blob); err != nil {
			e.logger.Warn("could not persist session",
				zap.String("username", acct.Username),
				zap.Error(err),
			)
		}
	}
	return nil
}

// ensureDefaultClient lazily builds the shared anonymous client.
func (e *Engine) ensureDefaultClient() (scrape.Client, error) {
	e.defaultMu.Lock()
	defer e.defaultMu.Unlock()
	if e.defaultClient == nil {
		e.defaultClient = e.factory.New()
	}
	return e.defaultClient, nil
}

// Login authenticates the default client with explicit credentials, making
// an ambient session available to operations that need one when the pool is
// empty. The blocking login runs through the same bounded dispatch path.
func (e *Engine) Login(ctx context.Context, username, password string) error {
	client, err := e.ensureDefaultClient()
	if err != nil {
		return err
	}
	_, err = e.dispatch(ctx, "", client, func(c scrape.Client) ([]scrape.MediaItem, error) {
		return nil, c.Login(username, password)
	})
	if err != nil {
		return err
	}
	e.defaultMu.Lock()
	e.ambientUser = username
	e.defaultMu.Unlock()
	e.logger.Info("ambient login established", zap.String("username", username))
	return nil
}

// AmbientUser returns the username behind the default client's session, or
// empty when the default client is anonymous.
func (e *Engine) AmbientUser() string {
	e.defaultMu.Lock()
	defer e.defaultMu.Unlock()
	return e.ambientUser
}

// ClientCount reports how many per-account clients are live.
func (e *Engine) ClientCount() int {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()
	return len(e.clients)
}

// Close tears down every cached client.
func (e *Engine) Close() {
	e.clientsMu.Lock()
	for name, c := range e.clients {
		c.Close()
		delete(e.clients, name)
	}
	e.clientsMu.Unlock()

	e.defaultMu.Lock()
	if e.defaultClient != nil {
		e.defaultClient.Close()
		e.defaultClient = nil
		e.ambientUser = ""
	}
	e.defaultMu.Unlock()
}
