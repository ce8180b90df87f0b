// Package rectsearch finds the largest rectangle spanned by two boundary
// points, with and without a polygon containment constraint.
package rectsearch

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/rect-search/internal/core/model"
	"github.com/mohammed-shakir/rect-search/internal/polygon"
)

// how often the candidate and segment scans poll ctx
const cancelCheckEvery = 1024

// LargestArea returns the largest bounding-box area over every pair of
// points, without any containment filter.
func LargestArea(points model.Boundary) int64 {
	switch len(points) {
	case 0:
		return 0
	case 1:
		return 1
	}
	var best int64
	for i := 0; i < len(points)-1; i++ {
		for j := i + 1; j < len(points); j++ {
			if a := (model.Rect{A: points[i], B: points[j]}).Area(); a > best {
				best = a
			}
		}
	}
	return best
}

// Candidate is the pair (I, J) of parse-order indexes, I < J.
type Candidate struct {
	I, J int
	Rect model.Rect
	Area int64
}

// Candidates enumerates every unordered pair of points and returns them by
// descending area. Ties keep enumeration order. Rows are generated in
// parallel by up to workers goroutines.
func Candidates(ctx context.Context, points model.Boundary, workers int) ([]Candidate, error) {
	n := len(points)
	if n < 2 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]Candidate, n*(n-1)/2)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n-1; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// pairs before row i: sum of (n-1-k) for k < i
			off := i * (2*n - i - 1) / 2
			for j := i + 1; j < n; j++ {
				r := model.Rect{A: points[i], B: points[j]}
				out[off] = Candidate{I: i, J: j, Rect: r, Area: r.Area()}
				off++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enumerate candidates: %w", err)
	}

	slices.SortStableFunc(out, func(a, b Candidate) int { return cmp.Compare(b.Area, a.Area) })
	return out, nil
}

// Config selects the containment strategy and tunes the search.
type Config struct {
	Containment      string
	Workers          int
	SegmentCacheSize int
}

// Searcher runs LargestContained over one polygon index.
type Searcher struct {
	idx    *polygon.Index
	cont   Containment
	memo   *SegmentMemo
	cfg    Config
	logger *slog.Logger
}

// Result is the outcome of one LargestContained run.
type Result struct {
	Area        int64
	Rect        model.Rect
	Found       bool
	Containment string
	Candidates  int
	Examined    int
	Elapsed     time.Duration
}

// New builds a searcher for idx. An empty cfg.Containment means Sides.
func New(idx *polygon.Index, cfg Config, logger *slog.Logger) (*Searcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Containment == "" {
		cfg.Containment = Sides
	}
	memo := NewSegmentMemo(cfg.SegmentCacheSize)
	cont, err := NewContainment(cfg.Containment, idx, memo, logger)
	if err != nil {
		return nil, err
	}
	return &Searcher{idx: idx, cont: cont, memo: memo, cfg: cfg, logger: logger}, nil
}

func (s *Searcher) Containment() string { return s.cont.Name() }

// LargestContained scans candidates from largest to smallest area and
// returns the first one the containment strategy accepts. Since the order
// is by area the first hit is the global maximum. No hit is not an error:
// the result has Found=false and Area=0.
func (s *Searcher) LargestContained(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{Containment: s.cont.Name()}

	cands, err := Candidates(ctx, s.idx.Points(), s.cfg.Workers)
	if err != nil {
		return res, err
	}
	res.Candidates = len(cands)

	for i, c := range cands {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("search canceled after %d candidates: %w", i, err)
			}
		}
		res.Examined = i + 1
		ok, err := s.cont.Contains(ctx, c.Rect)
		if err != nil {
			return res, fmt.Errorf("search canceled at candidate %d: %w", i, err)
		}
		if ok {
			res.Area, res.Rect, res.Found = c.Area, c.Rect, true
			break
		}
	}

	res.Elapsed = time.Since(start)
	s.logger.DebugContext(ctx, "rectangle search done",
		"containment", res.Containment,
		"candidates", res.Candidates,
		"examined", res.Examined,
		"found", res.Found,
		"area", res.Area,
		"segments_cached", s.memo.Len(),
	)
	return res, nil
}
