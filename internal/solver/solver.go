// Package solver ties parsing, polygon indexing and both rectangle
// searches together, with an optional result cache in front.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mohammed-shakir/rect-search/internal/cache"
	"github.com/mohammed-shakir/rect-search/internal/cache/keys"
	"github.com/mohammed-shakir/rect-search/internal/core/input"
	"github.com/mohammed-shakir/rect-search/internal/core/model"
	obs "github.com/mohammed-shakir/rect-search/internal/core/observability"
	mylog "github.com/mohammed-shakir/rect-search/internal/logger"
	"github.com/mohammed-shakir/rect-search/internal/polygon"
	"github.com/mohammed-shakir/rect-search/internal/rectsearch"
)

var ErrInputTooLarge = errors.New("input too large")

type Config struct {
	Containment      string
	Workers          int
	SegmentCacheSize int
	MaxInputBytes    int64
	MaxPerimeter     int64
	CacheTTL         time.Duration
	CacheOpTimeout   time.Duration
}

type Result struct {
	Answer1       int64   `json:"answer1"`
	Answer2       int64   `json:"answer2"`
	Rect          string  `json:"rect,omitempty"`
	Points        int     `json:"points"`
	VerticalEdges int     `json:"vertical_edges"`
	Perimeter     int     `json:"perimeter"`
	Containment   string  `json:"containment"`
	Candidates    int     `json:"candidates"`
	Examined      int     `json:"examined"`
	Cached        bool    `json:"cached"`
	ElapsedMS     float64 `json:"elapsed_ms"`
}

type Solver struct {
	cfg    Config
	logger *slog.Logger
	cache  cache.Interface
}

// New builds a solver. c may be nil to disable result caching.
func New(cfg Config, logger *slog.Logger, c cache.Interface) *Solver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheOpTimeout <= 0 {
		cfg.CacheOpTimeout = 250 * time.Millisecond
	}
	s := &Solver{cfg: cfg, logger: logger, cache: c}
	s.cfg.Containment = s.resolveContainment(context.Background(), cfg.Containment, rectsearch.Sides)
	return s
}

// resolveContainment maps an empty name to def and an unregistered one to
// sides, logging the latter.
func (s *Solver) resolveContainment(ctx context.Context, name, def string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return def
	}
	if !slices.Contains(rectsearch.Names(), name) {
		s.logger.WarnContext(ctx, "unknown containment; falling back to sides", "containment", name)
		return rectsearch.Sides
	}
	return name
}

// Outcome classifies err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, input.ErrParse):
		return "parse_error"
	case errors.Is(err, polygon.ErrMalformedPolygon), errors.Is(err, polygon.ErrTooFewPoints):
		return "malformed"
	case errors.Is(err, ErrInputTooLarge), errors.Is(err, polygon.ErrTooLarge):
		return "too_large"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Solve parses raw "x,y" text and answers both questions. Results are
// served from and stored in the cache when one is configured.
func (s *Solver) Solve(ctx context.Context, raw []byte, containment string) (Result, error) {
	containment = s.resolveContainment(ctx, containment, s.cfg.Containment)
	ctx = mylog.WithContainment(ctx, containment)

	if s.cfg.MaxInputBytes > 0 && int64(len(raw)) > s.cfg.MaxInputBytes {
		err := fmt.Errorf("%w: %d bytes > %d", ErrInputTooLarge, len(raw), s.cfg.MaxInputBytes)
		obs.ObserveSolve(containment, Outcome(err))
		return Result{}, err
	}

	key := keys.Key(containment, raw)
	if res, ok := s.lookup(ctx, key); ok {
		obs.ObserveSolve(containment, "cached")
		return res, nil
	}

	start := time.Now()
	b, err := input.Parse(bytes.NewReader(raw))
	obs.ObserveStage(containment, "parse", time.Since(start))
	if err != nil {
		obs.ObserveSolve(containment, Outcome(err))
		return Result{}, fmt.Errorf("parse input: %w", err)
	}

	res, err := s.SolveBoundary(ctx, b, containment)
	if err != nil {
		return Result{}, err
	}
	s.store(ctx, key, res)
	return res, nil
}

// SolveBoundary answers both questions for an already parsed boundary.
func (s *Solver) SolveBoundary(ctx context.Context, b model.Boundary, containment string) (Result, error) {
	containment = s.resolveContainment(ctx, containment, s.cfg.Containment)
	start := time.Now()

	t := time.Now()
	idx, err := polygon.NewWithLimit(b, s.cfg.MaxPerimeter)
	obs.ObserveStage(containment, "index", time.Since(t))
	if err != nil {
		obs.ObserveSolve(containment, Outcome(err))
		return Result{}, fmt.Errorf("build polygon index: %w", err)
	}

	t = time.Now()
	answer1 := rectsearch.LargestArea(b)
	obs.ObserveStage(containment, "search_unconstrained", time.Since(t))

	searcher, err := rectsearch.New(idx, rectsearch.Config{
		Containment:      containment,
		Workers:          s.cfg.Workers,
		SegmentCacheSize: s.cfg.SegmentCacheSize,
	}, s.logger)
	if err != nil {
		obs.ObserveSolve(containment, Outcome(err))
		return Result{}, fmt.Errorf("rectangle search: %w", err)
	}
	t = time.Now()
	found, err := searcher.LargestContained(ctx)
	obs.ObserveStage(containment, "search_contained", time.Since(t))
	if err != nil {
		obs.ObserveSolve(containment, Outcome(err))
		return Result{}, fmt.Errorf("rectangle search: %w", err)
	}
	obs.ObserveExamined(found.Examined)

	res := Result{
		Answer1:       answer1,
		Answer2:       found.Area,
		Points:        idx.Len(),
		VerticalEdges: len(idx.VerticalEdges()),
		Perimeter:     idx.Perimeter(),
		Containment:   found.Containment,
		Candidates:    found.Candidates,
		Examined:      found.Examined,
	}
	if found.Found {
		res.Rect = found.Rect.String()
	}
	elapsed := time.Since(start)
	res.ElapsedMS = float64(elapsed.Microseconds()) / 1000
	obs.ObserveStage(containment, "total", elapsed)
	obs.ObserveSolve(containment, "ok")

	s.logger.InfoContext(ctx, "solved",
		"points", res.Points,
		"answer1", res.Answer1,
		"answer2", res.Answer2,
		"examined", res.Examined,
		"elapsed", elapsed,
	)
	return res, nil
}

func (s *Solver) lookup(ctx context.Context, key string) (Result, bool) {
	if s.cache == nil {
		return Result{}, false
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CacheOpTimeout)
	defer cancel()

	got, err := s.cache.MGet(cctx, []string{key})
	if err != nil {
		s.logger.WarnContext(ctx, "result cache read failed", "key", key, "err", err)
		obs.IncResultCacheMiss()
		return Result{}, false
	}
	raw, ok := got[key]
	if !ok {
		obs.IncResultCacheMiss()
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		s.logger.WarnContext(ctx, "result cache entry unreadable", "key", key, "err", err)
		obs.IncResultCacheMiss()
		return Result{}, false
	}
	obs.IncResultCacheHit()
	res.Cached = true
	return res, true
}

func (s *Solver) store(ctx context.Context, key string, res Result) {
	if s.cache == nil {
		return
	}
	val, err := json.Marshal(res)
	if err != nil {
		s.logger.WarnContext(ctx, "result encode failed", "err", err)
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CacheOpTimeout)
	defer cancel()
	if err := s.cache.Set(cctx, key, val, s.cfg.CacheTTL); err != nil {
		s.logger.WarnContext(ctx, "result cache write failed", "key", key, "err", err)
	}
}
