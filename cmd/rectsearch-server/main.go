package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/rect-search/internal/cache"
	"github.com/mohammed-shakir/rect-search/internal/cache/redisstore"
	"github.com/mohammed-shakir/rect-search/internal/core/config"
	"github.com/mohammed-shakir/rect-search/internal/core/health"
	"github.com/mohammed-shakir/rect-search/internal/core/observability"
	"github.com/mohammed-shakir/rect-search/internal/core/server"
	"github.com/mohammed-shakir/rect-search/internal/jobs/kafkaconsumer"
	"github.com/mohammed-shakir/rect-search/internal/logger"
	"github.com/mohammed-shakir/rect-search/internal/metrics"
	"github.com/mohammed-shakir/rect-search/internal/solver"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	config.LoadDotEnv()

	// overriding containment via flag
	containmentFlag := flag.String("containment", "", "default containment check: sides or perimeter")
	flag.Parse()

	cfg := config.FromEnv()
	if *containmentFlag != "" {
		cfg.Containment = strings.ToLower(strings.TrimSpace(*containmentFlag))
	}

	zl := logger.Build(logger.Config{
		Level:       cfg.LogLevel,
		Console:     cfg.LogConsole,
		Containment: cfg.Containment,
		Component:   "rectsearch-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting rectsearch server",
		"addr", cfg.Addr,
		"version", Version,
		"containment", cfg.Containment,
		"result_cache", cfg.ResultCacheEnabled,
		"jobs", cfg.Jobs.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsEnabled {
		p := metrics.New(metrics.FromConfig(cfg, Version))
		observability.Init(p.Registerer(), true)
		g.Go(func() error { return p.Serve(gctx, appLog) })
	} else {
		observability.Init(nil, false)
	}
	observability.ExposeBuildInfo(Version)

	ready := health.Checker{Timeout: cfg.CacheOpTimeout}
	var store cache.Interface
	if cfg.ResultCacheEnabled || cfg.Jobs.Enabled {
		rc, err := redisstore.New(ctx, cfg.RedisAddr,
			redisstore.WithPoolSize(64),
			redisstore.WithDialTimeout(2*time.Second),
			redisstore.WithOpTimeout(cfg.CacheOpTimeout),
		)
		if err != nil {
			appLog.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = rc.Close() }()
		store = rc
		ready.Store = rc
	}

	var resultCache cache.Interface
	if cfg.ResultCacheEnabled {
		resultCache = store
	}
	s := solver.New(solver.Config{
		Containment:      cfg.Containment,
		Workers:          cfg.SearchWorkers,
		SegmentCacheSize: cfg.SegmentCacheSize,
		MaxInputBytes:    cfg.MaxInputBytes,
		MaxPerimeter:     cfg.MaxPerimeter,
		CacheTTL:         cfg.ResultCacheTTL,
		CacheOpTimeout:   cfg.CacheOpTimeout,
	}, appLog, resultCache)

	if cfg.Jobs.Enabled {
		c := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg), appLog, s, store, &zl)
		ready.Jobs = c
		g.Go(func() error { return c.Start(gctx) })
	}

	g.Go(func() error { return server.Run(gctx, cfg, appLog, s, ready) })

	if err := g.Wait(); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
