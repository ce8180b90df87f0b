// Package model defines core domain types shared across the solver.
package model

import (
	"fmt"
	"math"
	"math/bits"
)

// MaxCoord is the largest coordinate for which every rectangle area fits
// in an int64.
const MaxCoord int64 = 3037000498

// Point is a lattice point on the tile floor.
type Point struct {
	X, Y int64
}

func (p Point) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// Boundary is the ordered vertex list of a closed rectilinear polygon.
// The last point connects back to the first.
type Boundary []Point

// Rect is the axis-aligned bounding box of two corner points.
type Rect struct {
	A, B Point
}

// Normalize returns the rect with A holding the minimum corner.
func (r Rect) Normalize() Rect {
	return Rect{
		A: Point{X: min(r.A.X, r.B.X), Y: min(r.A.Y, r.B.Y)},
		B: Point{X: max(r.A.X, r.B.X), Y: max(r.A.Y, r.B.Y)},
	}
}

func (r Rect) Left() int64   { return min(r.A.X, r.B.X) }
func (r Rect) Right() int64  { return max(r.A.X, r.B.X) }
func (r Rect) Top() int64    { return min(r.A.Y, r.B.Y) }
func (r Rect) Bottom() int64 { return max(r.A.Y, r.B.Y) }

// Area is lattice-inclusive: a single point covers one tile. It saturates
// at math.MaxInt64 instead of wrapping.
func (r Rect) Area() int64 {
	a, ok := r.CheckedArea()
	if !ok {
		return math.MaxInt64
	}
	return a
}

// CheckedArea is Area with ok=false when the product overflows int64.
func (r Rect) CheckedArea() (int64, bool) {
	w := span(r.A.X, r.B.X) + 1
	h := span(r.A.Y, r.B.Y) + 1
	if w == 0 || h == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(w, h)
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// String renders min..max corners in input line format
func (r Rect) String() string {
	n := r.Normalize()
	return fmt.Sprintf("%s..%s", n.A, n.B)
}

// span is |a-b| computed without signed overflow.
func span(a, b int64) uint64 {
	if a < b {
		a, b = b, a
	}
	return uint64(a) - uint64(b)
}
