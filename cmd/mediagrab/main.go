// Package main wires together the extraction service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mediagrab/mediagrab/internal/accounts"
	"github.com/mediagrab/mediagrab/internal/api"
	"github.com/mediagrab/mediagrab/internal/cache"
	"github.com/mediagrab/mediagrab/internal/clock/system"
	"github.com/mediagrab/mediagrab/internal/config"
	"github.com/mediagrab/mediagrab/internal/engine"
	"github.com/mediagrab/mediagrab/internal/extractor"
	"github.com/mediagrab/mediagrab/internal/logging"
	"github.com/mediagrab/mediagrab/internal/metrics"
	"github.com/mediagrab/mediagrab/internal/ratelimit"
	"github.com/mediagrab/mediagrab/internal/scrape"
	"github.com/mediagrab/mediagrab/internal/scrape/instaclient"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := system.New()

	pool := accounts.NewPool(clk, logger.Named("accounts"))
	if accs, err := accounts.LoadFile(cfg.Accounts.File); err != nil {
		logger.Warn("accounts file not loaded", zap.String("path", cfg.Accounts.File), zap.Error(err))
	} else {
		pool.Load(accs)
	}
	if envAccs, err := accounts.ParseEnv(os.Getenv("INSTAGRAM_ACCOUNTS")); err != nil {
		logger.Warn("environment accounts not parsed", zap.Error(err))
	} else if len(envAccs) > 0 {
		added := pool.Append(envAccs)
		logger.Info("environment accounts appended", zap.Int("count", added))
	}
	pool.StartHourlyReset(ctx)

	var store cache.Cache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedis(cfg.Cache.RedisURL, logger.Named("cache"))
		if err != nil {
			logger.Warn("redis cache unavailable, using memory cache", zap.Error(err))
			store = cache.NewMemory(cfg.Cache.MaxEntries, clk)
		} else {
			defer func() {
				if closeErr := redisCache.Close(); closeErr != nil {
					logger.Error("redis close failed", zap.Error(closeErr))
				}
			}()
			store = redisCache
		}
	} else {
		store = cache.NewMemory(cfg.Cache.MaxEntries, clk)
	}

	sessions := engine.NewSessionStore(cfg.Accounts.SessionDir, os.Getenv("INSTAGRAM_SESSIONS"))
	factory := engine.FactoryFunc(func() scrape.Client {
		return instaclient.New(instaclient.Config{
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   cfg.ScrapeTimeout(),
		}, logger.Named("instaclient"))
	})

	eng := engine.New(engine.Options{
		Pool:          pool,
		Factory:       factory,
		Sessions:      sessions,
		Clock:         clk,
		Logger:        logger.Named("engine"),
		Cooldown:      cfg.Cooldown(),
		MaxConcurrent: cfg.Scraper.MaxConcurrent,
	})
	defer eng.Close()

	if cfg.Scraper.Username != "" && cfg.Scraper.Password != "" {
		loginCtx, cancel := context.WithTimeout(ctx, cfg.ScrapeTimeout()+10*time.Second)
		if err := eng.Login(loginCtx, cfg.Scraper.Username, cfg.Scraper.Password); err != nil {
			logger.Warn("ambient login failed", zap.Error(err))
		}
		cancel()
	}

	svc := extractor.New(eng, store, extractor.TTLs{
		Post:      time.Duration(cfg.Cache.PostTTLSeconds) * time.Second,
		Profile:   time.Duration(cfg.Cache.ProfileTTLSeconds) * time.Second,
		Story:     time.Duration(cfg.Cache.StoryTTLSeconds) * time.Second,
		Highlight: time.Duration(cfg.Cache.StoryTTLSeconds) * time.Second,
	}, logger.Named("extractor"))

	limiter := ratelimit.New(cfg.Limiter.Requests, cfg.LimiterWindow(), clk)
	apiServer := api.NewServer(svc, pool, eng, store, limiter, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
