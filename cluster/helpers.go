package cluster

import (
	"math/rand"
)

// GenerateTestPoints returns n uniformly distributed points in the unit
// square. The same seed always yields the same points.
func GenerateTestPoints(n int, seed int64) []Point {
	r := rand.New(rand.NewSource(seed))
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{X: r.Float64(), Y: r.Float64()}
	}
	return points
}

// GenerateBlobs returns n points scattered around k random centres with the
// given spread, folded back into the unit square. Useful for data sets with
// a known number of well separated groups.
func GenerateBlobs(n, k int, spread float64, seed int64) []Point {
	r := rand.New(rand.NewSource(seed))
	if k < 1 {
		k = 1
	}
	centres := make([]Point, k)
	for i := range centres {
		centres[i] = Point{X: r.Float64(), Y: r.Float64()}
	}

	points := make([]Point, n)
	for i := range points {
		c := centres[i%k]
		points[i] = Point{
			X: fold(c.X + r.NormFloat64()*spread),
			Y: fold(c.Y + r.NormFloat64()*spread),
		}
	}
	return points
}

// fold clamps v into [0, 1).
func fold(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return 0.999999
	}
	return v
}
