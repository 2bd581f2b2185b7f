package cluster

import (
	"math"
	"sort"
)

// Label is a cluster id carried by a grid cell.
type Label uint32

const (
	// Uncolored marks a cell the sweep has not reached yet.
	Uncolored Label = 0
	// Empty marks a cell with no points; it never joins a cluster.
	Empty Label = math.MaxUint32
)

type offset struct {
	dr, dc int
}

// neighborOffsets is the 5x5 block around a cell minus the centre and the
// four corners. Cells at (±2, ±2) are at least radius apart, every other
// cell within two steps can hold a point within radius.
var neighborOffsets = buildNeighborOffsets()

func buildNeighborOffsets() []offset {
	offsets := make([]offset, 0, 20)
	for dr := -2; dr <= 2; dr++ {
		for dc := -2; dc <= 2; dc++ {
			d := abs(dr) + abs(dc)
			if d == 0 || d == 4 {
				continue
			}
			offsets = append(offsets, offset{dr, dc})
		}
	}
	return offsets
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Labeling is the outcome of one labeling pass over a grid.
type Labeling struct {
	Radius float64
	Size   int
	Labels []Label // per cell, row-major
	Counts []int   // points per cell, row-major

	sizes       []int   // sizes[l-1] is the point count of cluster l
	pointLabels []Label // per input point
}

// LabelGrid colors every non-empty cell of g with the id of its connected
// component. Ids are minted from 1 in row-major order of each component's
// first cell.
func LabelGrid(g *Grid) *Labeling {
	numCells := g.NumCells()
	l := &Labeling{
		Radius: g.Radius,
		Size:   g.Size,
		Labels: make([]Label, numCells),
		Counts: make([]int, numCells),
	}

	for c := 0; c < numCells; c++ {
		l.Counts[c] = g.Count(c)
		if l.Counts[c] == 0 {
			l.Labels[c] = Empty
		}
	}

	var stack []int32
	next := Label(1)
	for c := 0; c < numCells; c++ {
		if l.Labels[c] != Uncolored {
			continue
		}
		l.sizes = append(l.sizes, 0)
		stack = l.fill(g, c, next, stack[:0])
		next++
	}

	l.pointLabels = make([]Label, g.NumPoints())
	for i := range l.pointLabels {
		l.pointLabels[i] = l.Labels[g.CellOf(i)]
	}
	return l
}

// fill floods label from seed using stack as the work list. Cells are
// colored when pushed, so no cell enters the stack twice.
func (l *Labeling) fill(g *Grid, seed int, label Label, stack []int32) []int32 {
	l.Labels[seed] = label
	stack = append(stack, int32(seed))
	for len(stack) > 0 {
		cell := int(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
		l.sizes[label-1] += l.Counts[cell]

		row, col := g.RowCol(cell)
		for _, o := range neighborOffsets {
			r, c := row+o.dr, col+o.dc
			if r < 0 || r >= g.Size || c < 0 || c >= g.Size {
				continue
			}
			n := g.Cell(r, c)
			if l.Labels[n] != Uncolored || !g.Connected(cell, n) {
				continue
			}
			l.Labels[n] = label
			stack = append(stack, int32(n))
		}
	}
	return stack
}

// NumClusters returns how many labels were minted.
func (l *Labeling) NumClusters() int {
	return len(l.sizes)
}

// ClusterSize returns the number of points carrying label, or 0 if the label
// was never minted.
func (l *Labeling) ClusterSize(label Label) int {
	if label == Uncolored || int(label) > len(l.sizes) {
		return 0
	}
	return l.sizes[label-1]
}

// Sizes returns all cluster sizes, largest first.
func (l *Labeling) Sizes() []int {
	out := make([]int, len(l.sizes))
	copy(out, l.sizes)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// PointLabels returns the cluster id of every input point, in input order.
func (l *Labeling) PointLabels() []Label {
	out := make([]Label, len(l.pointLabels))
	copy(out, l.pointLabels)
	return out
}

// NumPoints returns the number of labeled points.
func (l *Labeling) NumPoints() int {
	return len(l.pointLabels)
}

// Cluster runs the full pipeline: bin points, then label the grid.
func Cluster(points []Point, radius float64, opts ...GridOption) (*Labeling, error) {
	g, err := NewGrid(points, radius, opts...)
	if err != nil {
		return nil, err
	}
	return LabelGrid(g), nil
}
