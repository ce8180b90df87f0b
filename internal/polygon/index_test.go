package polygon

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/rect-search/internal/core/model"
)

func pts(xy ...int64) model.Boundary {
	out := make(model.Boundary, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, model.Point{X: xy[i], Y: xy[i+1]})
	}
	return out
}

var (
	sample = pts(7, 1, 11, 1, 11, 7, 9, 7, 9, 5, 2, 5, 2, 3, 7, 3)
	square = pts(0, 0, 0, 3, 3, 3, 3, 0)
	notchU = pts(0, 0, 6, 0, 6, 6, 4, 6, 4, 2, 2, 2, 2, 6, 0, 6)
	notchC = pts(0, 0, 6, 0, 6, 2, 3, 2, 3, 4, 6, 4, 6, 6, 0, 6)
)

func mustIndex(t *testing.T, b model.Boundary) *Index {
	t.Helper()
	idx, err := New(b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}

// exterior flood fill over the padded bounding box
func floodInside(idx *Index) map[model.Point]bool {
	bb := idx.Bounds()
	x0, y0, x1, y1 := bb.A.X-1, bb.A.Y-1, bb.B.X+1, bb.B.Y+1
	outside := map[model.Point]bool{}
	stack := []model.Point{{X: x0, Y: y0}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.X < x0 || p.X > x1 || p.Y < y0 || p.Y > y1 || outside[p] || idx.OnBoundary(p) {
			continue
		}
		outside[p] = true
		stack = append(stack,
			model.Point{X: p.X + 1, Y: p.Y}, model.Point{X: p.X - 1, Y: p.Y},
			model.Point{X: p.X, Y: p.Y + 1}, model.Point{X: p.X, Y: p.Y - 1})
	}
	inside := map[model.Point]bool{}
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			p := model.Point{X: x, Y: y}
			inside[p] = !outside[p]
		}
	}
	return inside
}

func TestNew_RejectsDiagonalEdge(t *testing.T) {
	_, err := New(pts(0, 0, 1, 1, 0, 1))
	if !errors.Is(err, ErrMalformedPolygon) {
		t.Fatalf("err=%v want ErrMalformedPolygon", err)
	}
	var me *MalformedPolygonError
	if !errors.As(err, &me) {
		t.Fatalf("err=%T want *MalformedPolygonError", err)
	}
	if me.From != 0 || me.To != 1 {
		t.Fatalf("offending pair=%d,%d want 0,1", me.From, me.To)
	}
}

func TestNew_RejectsDiagonalClosingEdge(t *testing.T) {
	_, err := New(pts(0, 0, 4, 0, 4, 4, 1, 4))
	var me *MalformedPolygonError
	if !errors.As(err, &me) {
		t.Fatalf("err=%v want *MalformedPolygonError", err)
	}
	if me.From != 3 || me.To != 0 {
		t.Fatalf("offending pair=%d,%d want 3,0", me.From, me.To)
	}
}

func TestNew_RejectsDuplicateConsecutive(t *testing.T) {
	_, err := New(pts(0, 0, 0, 0, 3, 0, 3, 3, 0, 3))
	if !errors.Is(err, ErrMalformedPolygon) {
		t.Fatalf("err=%v want ErrMalformedPolygon", err)
	}
}

func TestNew_TooFewPoints(t *testing.T) {
	if _, err := New(pts(0, 0, 0, 3)); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("err=%v want ErrTooFewPoints", err)
	}
}

func TestIndex_EdgeViews(t *testing.T) {
	idx := mustIndex(t, sample)
	if idx.Len() != 8 {
		t.Fatalf("Len=%d want 8", idx.Len())
	}
	asc := idx.VerticalEdges()
	if len(asc) != 4 {
		t.Fatalf("vertical edges=%d want 4", len(asc))
	}
	for i := 1; i < len(asc); i++ {
		if asc[i-1].X > asc[i].X {
			t.Fatalf("ascending view out of order: %+v", asc)
		}
	}
	for i := 1; i < len(idx.vertDesc); i++ {
		if idx.vertDesc[i-1].X < idx.vertDesc[i].X {
			t.Fatalf("descending view out of order: %+v", idx.vertDesc)
		}
	}
	// 4+6+2+2+7+2+5+2 unit steps around a closed loop
	if got := idx.Perimeter(); got != 30 {
		t.Fatalf("Perimeter=%d want 30", got)
	}
	bb := idx.Bounds()
	if bb.A != (model.Point{X: 2, Y: 1}) || bb.B != (model.Point{X: 11, Y: 7}) {
		t.Fatalf("Bounds=%v", bb)
	}
}

func TestOnBoundary_WholeEdgeRuns(t *testing.T) {
	idx := mustIndex(t, square)
	for _, p := range []model.Point{{X: 0, Y: 1}, {X: 0, Y: 2}, {X: 1, Y: 3}, {X: 2, Y: 0}, {X: 3, Y: 2}} {
		if !idx.OnBoundary(p) {
			t.Fatalf("%v should be on boundary", p)
		}
	}
	if idx.OnBoundary(model.Point{X: 1, Y: 1}) {
		t.Fatalf("interior point reported on boundary")
	}
}

func TestInside_VerticesAlwaysInside(t *testing.T) {
	for _, b := range []model.Boundary{sample, square, notchU, notchC} {
		idx := mustIndex(t, b)
		for _, p := range b {
			if !idx.Inside(p) {
				t.Fatalf("vertex %v not inside", p)
			}
		}
	}
}

func TestInside_MatchesFloodFill(t *testing.T) {
	for name, b := range map[string]model.Boundary{
		"sample": sample, "square": square, "notchU": notchU, "notchC": notchC,
	} {
		t.Run(name, func(t *testing.T) {
			idx := mustIndex(t, b)
			for p, want := range floodInside(idx) {
				if got := idx.Inside(p); got != want {
					t.Fatalf("Inside(%v)=%v want %v", p, got, want)
				}
			}
		})
	}
}

func TestCrossings_LeftRightParityAgreeOffBoundary(t *testing.T) {
	for _, b := range []model.Boundary{sample, notchU, notchC} {
		idx := mustIndex(t, b)
		for p := range floodInside(idx) {
			if idx.OnBoundary(p) {
				continue
			}
			l, r := idx.Crossings(p, Left), idx.Crossings(p, Right)
			if l%2 != r%2 {
				t.Fatalf("%v: left=%d right=%d parity differs", p, l, r)
			}
		}
	}
}

func TestCrossings_GrazingHorizontalRunCountedOnce(t *testing.T) {
	// ray along y=2 runs over the bottom of the notch (2..4,2)
	idx := mustIndex(t, notchU)
	p := model.Point{X: -1, Y: 2}
	if got := idx.Crossings(p, Right); got%2 != 0 {
		t.Fatalf("crossings=%d from outside should be even", got)
	}
	q := model.Point{X: 1, Y: 2}
	if !idx.Inside(q) {
		t.Fatalf("%v should be inside", q)
	}
}

func TestInside_Idempotent_ConcurrentQueries(t *testing.T) {
	idx := mustIndex(t, sample)
	want := floodInside(idx)

	var wg sync.WaitGroup
	errs := make(chan model.Point, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p, w := range want {
				if idx.Inside(p) != w {
					errs <- p
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for p := range errs {
		t.Fatalf("Inside(%v) changed between calls", p)
	}
	if idx.Perimeter() != 30 || len(idx.VerticalEdges()) != 4 {
		t.Fatalf("index mutated by queries")
	}
}

func TestPoints_ReturnsCopy(t *testing.T) {
	idx := mustIndex(t, square)
	p := idx.Points()
	p[0] = model.Point{X: 99, Y: 99}
	if idx.Points()[0] != (model.Point{X: 0, Y: 0}) {
		t.Fatalf("Points leaked internal slice")
	}
}

func TestNew_CoordinatesAtInt64Max(t *testing.T) {
	const m = math.MaxInt64
	b := pts(m-1, 0, m, 0, m, 1, m-1, 1)

	done := make(chan error, 1)
	var idx *Index
	go func() {
		var err error
		idx, err = New(b)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("New: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("New did not return")
	}

	if idx.Perimeter() != 4 {
		t.Fatalf("perimeter=%d want 4", idx.Perimeter())
	}
	for _, p := range b {
		if !idx.Inside(p) {
			t.Fatalf("vertex %v not inside", p)
		}
	}
	if idx.Inside(model.Point{X: m - 2, Y: 0}) {
		t.Fatal("point left of the square reported inside")
	}
}

func TestNewWithLimit(t *testing.T) {
	cases := map[string]struct {
		in      model.Boundary
		limit   int64
		wantErr error
	}{
		// sample edges sum to 30
		"at limit":          {sample, 30, nil},
		"over limit":        {sample, 29, ErrTooLarge},
		"default limit":     {sample, 0, nil},
		"long thin strip":   {pts(0, 0, 0, 4000000000, 1, 4000000000, 1, 0), 0, ErrTooLarge},
		"saturating length": {pts(0, 0, 0, math.MaxInt64, 1, math.MaxInt64, 1, 0), 1099511627776, ErrTooLarge},
		"malformed first":   {pts(0, 0, 0, 1099511627776, 5, 5), 10, ErrMalformedPolygon},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			idx, err := NewWithLimit(tc.in, tc.limit)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("NewWithLimit: %v", err)
				}
				if idx.Perimeter() != 30 {
					t.Fatalf("perimeter=%d want 30", idx.Perimeter())
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err=%v want %v", err, tc.wantErr)
			}
		})
	}
}

func TestTooLargeError_ReportsLength(t *testing.T) {
	_, err := NewWithLimit(pts(0, 0, 0, 10, 3, 10, 3, 0), 20)
	var tl *TooLargeError
	if !errors.As(err, &tl) {
		t.Fatalf("err=%T want *TooLargeError", err)
	}
	if tl.Perimeter != 26 || tl.Limit != 20 {
		t.Fatalf("perimeter=%d limit=%d want 26,20", tl.Perimeter, tl.Limit)
	}
}
