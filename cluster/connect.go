package cluster

// Connected reports whether some point of cell a lies within Radius of some
// point of cell b. Distance equal to the radius counts as connected.
func (g *Grid) Connected(a, b int) bool {
	r2 := g.Radius * g.Radius
	for _, i := range g.Members(a) {
		p := g.points[i]
		for _, j := range g.Members(b) {
			q := g.points[j]
			dx := q.X - p.X
			dy := q.Y - p.Y
			if dx*dx+dy*dy <= r2 {
				return true
			}
		}
	}
	return false
}
