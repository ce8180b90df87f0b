// Package polygon indexes a closed rectilinear boundary for point containment queries.
package polygon

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/mohammed-shakir/rect-search/internal/core/model"
)

// DefaultMaxPerimeter bounds the boundary length New accepts.
const DefaultMaxPerimeter int64 = 1 << 22

var (
	ErrMalformedPolygon = errors.New("malformed polygon")
	ErrTooFewPoints     = errors.New("polygon needs at least 3 points")
	ErrTooLarge         = errors.New("polygon too large")
)

// MalformedPolygonError names the boundary edge that is not axis-aligned.
type MalformedPolygonError struct {
	From, To int
	A, B     model.Point
}

func (e *MalformedPolygonError) Error() string {
	if e.A == e.B {
		return fmt.Sprintf("malformed polygon: points %d and %d are both %s", e.From, e.To, e.A)
	}
	return fmt.Sprintf("malformed polygon: edge %d->%d (%s to %s) is neither horizontal nor vertical",
		e.From, e.To, e.A, e.B)
}

func (e *MalformedPolygonError) Is(target error) bool { return target == ErrMalformedPolygon }

// TooLargeError reports a boundary whose summed edge length is over Limit.
// Perimeter saturates at math.MaxInt64.
type TooLargeError struct {
	Perimeter, Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("polygon too large: perimeter %d exceeds %d", e.Perimeter, e.Limit)
}

func (e *TooLargeError) Is(target error) bool { return target == ErrTooLarge }

// VerticalEdge is a boundary edge at a fixed x spanning [YMin, YMax].
type VerticalEdge struct {
	X          int64
	YMin, YMax int64
}

// Direction is the way a ray is cast from a query point.
type Direction int

const (
	Right Direction = iota
	Left
)

func (d Direction) String() string {
	if d == Left {
		return "left"
	}
	return "right"
}

// Index is built once by New and never mutated, so it is safe to query
// from multiple goroutines.
type Index struct {
	points   model.Boundary
	onEdge   map[model.Point]struct{}
	vertAsc  []VerticalEdge
	vertDesc []VerticalEdge
	bounds   model.Rect
}

// New indexes b with DefaultMaxPerimeter as the size limit.
func New(b model.Boundary) (*Index, error) {
	return NewWithLimit(b, DefaultMaxPerimeter)
}

// NewWithLimit indexes b, rejecting it with *TooLargeError when its summed
// edge length exceeds maxPerimeter. maxPerimeter <= 0 means
// DefaultMaxPerimeter. The check runs before anything is allocated.
func NewWithLimit(b model.Boundary, maxPerimeter int64) (*Index, error) {
	n := len(b)
	if n < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, n)
	}
	if maxPerimeter <= 0 {
		maxPerimeter = DefaultMaxPerimeter
	}
	length, err := edgeLength(b)
	if err != nil {
		return nil, err
	}
	if length > uint64(maxPerimeter) {
		return nil, &TooLargeError{Perimeter: int64(min(length, math.MaxInt64)), Limit: maxPerimeter}
	}

	idx := &Index{
		points: slices.Clone(b),
		onEdge: make(map[model.Point]struct{}, length),
	}
	minX, minY := b[0].X, b[0].Y
	maxX, maxY := minX, minY

	for i := range n {
		a, c := b[i], b[(i+1)%n]
		if a.X == c.X {
			lo, hi := min(a.Y, c.Y), max(a.Y, c.Y)
			for y := lo; ; y++ {
				idx.onEdge[model.Point{X: a.X, Y: y}] = struct{}{}
				if y == hi {
					break
				}
			}
			idx.vertAsc = append(idx.vertAsc, VerticalEdge{X: a.X, YMin: lo, YMax: hi})
		} else {
			lo, hi := min(a.X, c.X), max(a.X, c.X)
			for x := lo; ; x++ {
				idx.onEdge[model.Point{X: x, Y: a.Y}] = struct{}{}
				if x == hi {
					break
				}
			}
		}

		minX, maxX = min(minX, a.X), max(maxX, a.X)
		minY, maxY = min(minY, a.Y), max(maxY, a.Y)
	}

	slices.SortStableFunc(idx.vertAsc, func(x, y VerticalEdge) int { return cmp.Compare(x.X, y.X) })
	idx.vertDesc = slices.Clone(idx.vertAsc)
	slices.Reverse(idx.vertDesc)
	idx.bounds = model.Rect{A: model.Point{X: minX, Y: minY}, B: model.Point{X: maxX, Y: maxY}}
	return idx, nil
}

// edgeLength validates every edge and sums their lengths, saturating at
// math.MaxUint64.
func edgeLength(b model.Boundary) (uint64, error) {
	var total uint64
	n := len(b)
	for i := range n {
		j := (i + 1) % n
		a, c := b[i], b[j]
		var d uint64
		switch {
		case a == c:
			return 0, &MalformedPolygonError{From: i, To: j, A: a, B: c}
		case a.X == c.X:
			d = uint64(max(a.Y, c.Y)) - uint64(min(a.Y, c.Y))
		case a.Y == c.Y:
			d = uint64(max(a.X, c.X)) - uint64(min(a.X, c.X))
		default:
			return 0, &MalformedPolygonError{From: i, To: j, A: a, B: c}
		}
		if total > math.MaxUint64-d {
			total = math.MaxUint64
			continue
		}
		total += d
	}
	return total, nil
}

// OnBoundary reports whether p lies exactly on any boundary edge.
func (idx *Index) OnBoundary(p model.Point) bool {
	_, ok := idx.onEdge[p]
	return ok
}

// Crossings counts the vertical edges a horizontal ray from p meets when
// cast in dir. Spans are half-open (YMin <= y < YMax) so a ray running
// along a horizontal boundary run is counted once, not twice.
func (idx *Index) Crossings(p model.Point, dir Direction) int {
	var edges []VerticalEdge
	if dir == Left {
		start := sort.Search(len(idx.vertDesc), func(i int) bool { return idx.vertDesc[i].X < p.X })
		edges = idx.vertDesc[start:]
	} else {
		start := sort.Search(len(idx.vertAsc), func(i int) bool { return idx.vertAsc[i].X > p.X })
		edges = idx.vertAsc[start:]
	}

	count := 0
	for _, e := range edges {
		if e.YMin <= p.Y && p.Y < e.YMax {
			count++
		}
	}
	return count
}

// Inside reports whether p is on the boundary or enclosed by it (even-odd rule).
func (idx *Index) Inside(p model.Point) bool {
	if idx.OnBoundary(p) {
		return true
	}
	if !idx.inBounds(p) {
		return false
	}
	return idx.Crossings(p, Right)%2 == 1
}

func (idx *Index) inBounds(p model.Point) bool {
	return p.X >= idx.bounds.A.X && p.X <= idx.bounds.B.X &&
		p.Y >= idx.bounds.A.Y && p.Y <= idx.bounds.B.Y
}

// Len is the number of boundary vertices.
func (idx *Index) Len() int { return len(idx.points) }

// Points returns a copy of the boundary vertices in parse order.
func (idx *Index) Points() model.Boundary { return slices.Clone(idx.points) }

// VerticalEdges returns the vertical edges sorted by ascending x.
func (idx *Index) VerticalEdges() []VerticalEdge { return slices.Clone(idx.vertAsc) }

// Perimeter is the number of distinct lattice points on the boundary.
func (idx *Index) Perimeter() int { return len(idx.onEdge) }

// Bounds is the bounding box of all vertices.
func (idx *Index) Bounds() model.Rect { return idx.bounds }
