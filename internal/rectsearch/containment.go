package rectsearch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/rect-search/internal/core/model"
	"github.com/mohammed-shakir/rect-search/internal/polygon"
)

const (
	Sides     = "sides"
	Perimeter = "perimeter"
)

// Containment decides whether a candidate rectangle counts as enclosed.
// Contains returns ctx.Err() when ctx ends mid-check.
type Containment interface {
	Name() string
	Contains(ctx context.Context, r model.Rect) (bool, error)
}

type Factory func(idx *polygon.Index, memo *SegmentMemo) Containment

var (
	regMu sync.RWMutex
	reg   = map[string]Factory{
		Sides:     func(idx *polygon.Index, memo *SegmentMemo) Containment { return sidesOnly{idx, memo} },
		Perimeter: func(idx *polygon.Index, memo *SegmentMemo) Containment { return fullPerimeter{idx, memo} },
	}
)

// Register adds or replaces the strategy built by f under name.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	reg[name] = f
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewContainment builds the strategy registered under name, falling back to
// Sides with a warning when name is unknown.
func NewContainment(name string, idx *polygon.Index, memo *SegmentMemo, logger *slog.Logger) (Containment, error) {
	if idx == nil {
		return nil, fmt.Errorf("containment %q: nil index", name)
	}
	regMu.RLock()
	f, ok := reg[name]
	fallback, hasSides := reg[Sides]
	regMu.RUnlock()
	if ok {
		return f(idx, memo), nil
	}
	if hasSides {
		if logger != nil {
			logger.Warn("unknown containment; falling back to sides", "containment", name)
		}
		return fallback(idx, memo), nil
	}
	return nil, fmt.Errorf("no factory for containment %q and no %q registered", name, Sides)
}

// sidesOnly checks the left and right sides of the rectangle only. Top,
// bottom and interior are assumed enclosed when both vertical sides are.
type sidesOnly struct {
	idx  *polygon.Index
	memo *SegmentMemo
}

func (s sidesOnly) Name() string { return Sides }

func (s sidesOnly) Contains(ctx context.Context, r model.Rect) (bool, error) {
	top, bottom := r.Top(), r.Bottom()
	return allInside(
		func() (bool, error) { return s.memo.Vertical(ctx, s.idx, r.Left(), top, bottom) },
		func() (bool, error) { return s.memo.Vertical(ctx, s.idx, r.Right(), top, bottom) },
	)
}

type fullPerimeter struct {
	idx  *polygon.Index
	memo *SegmentMemo
}

func (f fullPerimeter) Name() string { return Perimeter }

func (f fullPerimeter) Contains(ctx context.Context, r model.Rect) (bool, error) {
	left, right, top, bottom := r.Left(), r.Right(), r.Top(), r.Bottom()
	return allInside(
		func() (bool, error) { return f.memo.Vertical(ctx, f.idx, left, top, bottom) },
		func() (bool, error) { return f.memo.Vertical(ctx, f.idx, right, top, bottom) },
		func() (bool, error) { return f.memo.Horizontal(ctx, f.idx, top, left, right) },
		func() (bool, error) { return f.memo.Horizontal(ctx, f.idx, bottom, left, right) },
	)
}

// allInside runs checks in order and stops at the first miss or error.
func allInside(checks ...func() (bool, error)) (bool, error) {
	for _, check := range checks {
		ok, err := check()
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

type segment struct {
	vertical bool
	fixed    int64
	lo, hi   int64
}

// SegmentMemo caches whether every lattice point of an axis-aligned
// segment is inside the polygon. A nil memo disables caching.
type SegmentMemo struct {
	cache *lru.Cache[segment, bool]
}

func NewSegmentMemo(size int) *SegmentMemo {
	if size <= 0 {
		return nil
	}
	c, _ := lru.New[segment, bool](size)
	return &SegmentMemo{cache: c}
}

// Vertical reports whether (x, y) is inside for every y in [y0, y1].
func (m *SegmentMemo) Vertical(ctx context.Context, idx *polygon.Index, x, y0, y1 int64) (bool, error) {
	return m.lookup(segment{vertical: true, fixed: x, lo: y0, hi: y1}, func() (bool, error) {
		return scan(ctx, y0, y1, func(y int64) bool { return idx.Inside(model.Point{X: x, Y: y}) })
	})
}

// Horizontal reports whether (x, y) is inside for every x in [x0, x1].
func (m *SegmentMemo) Horizontal(ctx context.Context, idx *polygon.Index, y, x0, x1 int64) (bool, error) {
	return m.lookup(segment{fixed: y, lo: x0, hi: x1}, func() (bool, error) {
		return scan(ctx, x0, x1, func(x int64) bool { return idx.Inside(model.Point{X: x, Y: y}) })
	})
}

// scan tests every v in [lo, hi], polling ctx every cancelCheckEvery steps.
func scan(ctx context.Context, lo, hi int64, inside func(int64) bool) (bool, error) {
	if lo > hi {
		return true, nil
	}
	for v, n := lo, 0; ; v, n = v+1, n+1 {
		if n%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}
		if !inside(v) {
			return false, nil
		}
		if v == hi {
			return true, nil
		}
	}
}

func (m *SegmentMemo) lookup(k segment, check func() (bool, error)) (bool, error) {
	if m == nil {
		return check()
	}
	if v, ok := m.cache.Get(k); ok {
		return v, nil
	}
	v, err := check()
	if err != nil {
		return false, err
	}
	m.cache.Add(k, v)
	return v, nil
}

func (m *SegmentMemo) Len() int {
	if m == nil {
		return 0
	}
	return m.cache.Len()
}
