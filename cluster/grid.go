package cluster

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMaxCells caps the number of grid cells NewGrid will allocate.
const DefaultMaxCells = 1 << 24

var (
	ErrInvalidRadius   = errors.New("radius must be a finite number greater than zero")
	ErrPointOutOfRange = errors.New("point lies outside [0,1) x [0,1)")
	ErrGridTooLarge    = errors.New("radius too small: grid exceeds cell limit")
)

// Point is a position in the unit square.
type Point struct {
	X, Y float64
}

// DomainError reports an input point that cannot be binned.
type DomainError struct {
	Index int
	Point Point
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("point %d (%g, %g): %v", e.Index, e.Point.X, e.Point.Y, ErrPointOutOfRange)
}

func (e *DomainError) Unwrap() error {
	return ErrPointOutOfRange
}

// Grid bins points into square cells of side radius/sqrt(2), so any two
// points sharing a cell are within radius of each other.
//
// Cell contents live in one arena: the points of cell c are
// members[start[c]:start[c+1]].
type Grid struct {
	Size     int
	CellSize float64
	Radius   float64

	points  []Point
	start   []int32
	members []int32
	cellOf  []int32
}

type gridOptions struct {
	maxCells int
}

// GridOption tunes grid construction.
type GridOption func(*gridOptions)

// WithMaxCells overrides DefaultMaxCells. Values <= 0 are ignored.
func WithMaxCells(n int) GridOption {
	return func(o *gridOptions) {
		if n > 0 {
			o.maxCells = n
		}
	}
}

// NewGrid validates the input and bins every point into exactly one cell.
func NewGrid(points []Point, radius float64, opts ...GridOption) (*Grid, error) {
	o := gridOptions{maxCells: DefaultMaxCells}
	for _, opt := range opts {
		opt(&o)
	}

	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidRadius, radius)
	}

	cellSize := radius / math.Sqrt2
	// Checked as a float: for tiny radii 1/cellSize overflows int or is +Inf.
	side := math.Max(1, math.Ceil(1/cellSize))
	if side*side > float64(o.maxCells) {
		return nil, fmt.Errorf("%w: %gx%g cells for radius %g (limit %d)", ErrGridTooLarge, side, side, radius, o.maxCells)
	}
	n := int(side)

	for i, p := range points {
		if !inUnitSquare(p) {
			return nil, &DomainError{Index: i, Point: p}
		}
	}

	g := &Grid{
		Size:     n,
		CellSize: cellSize,
		Radius:   radius,
		points:   points,
		start:    make([]int32, n*n+1),
		members:  make([]int32, len(points)),
		cellOf:   make([]int32, len(points)),
	}

	// Counting sort: count, prefix-sum, then scatter.
	for i, p := range points {
		c := g.cellIndex(p)
		g.cellOf[i] = int32(c)
		g.start[c+1]++
	}
	for c := 0; c < n*n; c++ {
		g.start[c+1] += g.start[c]
	}
	next := make([]int32, n*n)
	copy(next, g.start[:n*n])
	for i := range points {
		c := g.cellOf[i]
		g.members[next[c]] = int32(i)
		next[c]++
	}

	return g, nil
}

func inUnitSquare(p Point) bool {
	return p.X >= 0 && p.X < 1 && p.Y >= 0 && p.Y < 1
}

func (g *Grid) cellIndex(p Point) int {
	return g.axisIndex(p.Y)*g.Size + g.axisIndex(p.X)
}

// axisIndex floors v/cellSize. Rounding can push a coordinate just below 1
// onto index Size, which is folded back into the last cell.
func (g *Grid) axisIndex(v float64) int {
	i := int(math.Floor(v / g.CellSize))
	if i >= g.Size {
		i = g.Size - 1
	}
	return i
}

// NumCells returns Size*Size.
func (g *Grid) NumCells() int {
	return g.Size * g.Size
}

// NumPoints returns the number of binned points.
func (g *Grid) NumPoints() int {
	return len(g.points)
}

// Cell returns the flat index of cell (row, col).
func (g *Grid) Cell(row, col int) int {
	return row*g.Size + col
}

// RowCol splits a flat cell index.
func (g *Grid) RowCol(cell int) (row, col int) {
	return cell / g.Size, cell % g.Size
}

// Count returns how many points the cell holds.
func (g *Grid) Count(cell int) int {
	return int(g.start[cell+1] - g.start[cell])
}

// Members returns indices (into the input slice) of the points in cell.
// The returned slice aliases the grid and must not be modified.
func (g *Grid) Members(cell int) []int32 {
	return g.members[g.start[cell]:g.start[cell+1]]
}

// CellOf returns the cell that point i was binned into.
func (g *Grid) CellOf(i int) int {
	return int(g.cellOf[i])
}

// Point returns input point i.
func (g *Grid) Point(i int) Point {
	return g.points[i]
}
