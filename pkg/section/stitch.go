package section

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
)

// end is one extremity of an open contour, indexed in a k-d tree.
type end struct {
	p     r2.Vec
	chain int
	tail  bool
}

func (e end) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(end)
	if d == 0 {
		return e.p.X - q.p.X
	}
	return e.p.Y - q.p.Y
}

func (e end) Dims() int { return 2 }

func (e end) Distance(c kdtree.Comparable) float64 {
	return r2.Norm2(r2.Sub(e.p, c.(end).p))
}

type ends []end

func (e ends) Index(i int) kdtree.Comparable { return e[i] }
func (e ends) Len() int                      { return len(e) }
func (e ends) Slice(start, stop int) kdtree.Interface {
	return e[start:stop]
}
func (e ends) Pivot(d kdtree.Dim) int {
	p := endPlane{ends: e, dim: d}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// endPlane sorts ends along one dimension for pivot selection.
type endPlane struct {
	ends ends
	dim  kdtree.Dim
}

func (p endPlane) Len() int { return len(p.ends) }
func (p endPlane) Less(i, j int) bool {
	return p.ends[i].Compare(p.ends[j], p.dim) < 0
}
func (p endPlane) Swap(i, j int) { p.ends[i], p.ends[j] = p.ends[j], p.ends[i] }
func (p endPlane) Slice(start, stop int) kdtree.SortSlicer {
	return endPlane{ends: p.ends[start:stop], dim: p.dim}
}

// stitch joins open contours whose ends lie within tol of each other and
// closes contours whose own ends meet. Merges repeat until no gap within
// tol remains.
func stitch(contours []Contour, tol float64) []Contour {
	tol2 := tol * tol
	for joinOnce(contours, tol2) {
	}

	out := contours[:0]
	for _, c := range contours {
		if len(c.Points) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// joinOnce performs the first available merge and reports whether it found
// one. Merged-away contours are left with no points.
func joinOnce(contours []Contour, tol2 float64) bool {
	var pts ends
	for i, c := range contours {
		if c.Closed || len(c.Points) == 0 {
			continue
		}
		pts = append(pts,
			end{p: c.Points[0], chain: i},
			end{p: c.Points[len(c.Points)-1], chain: i, tail: true})
	}
	if len(pts) == 0 {
		return false
	}
	tree := kdtree.New(pts, false)

	for _, q := range pts {
		keep := kdtree.NewDistKeeper(tol2)
		tree.NearestSet(keep, q)
		for _, found := range keep.Heap {
			m := found.Comparable.(end)
			if m.chain == q.chain && m.tail == q.tail {
				continue
			}

			c := &contours[q.chain]
			if !q.tail {
				reverse(c.Points)
			}
			if m.chain == q.chain {
				if len(c.Points) <= 3 {
					if !q.tail {
						reverse(c.Points)
					}
					continue
				}
				c.Points = c.Points[:len(c.Points)-1]
				c.Closed = true
				return true
			}

			other := contours[m.chain].Points
			if m.tail {
				reverse(other)
			}
			c.Points = append(c.Points, other[1:]...)
			contours[m.chain] = Contour{}
			return true
		}
	}
	return false
}

func reverse(pts []r2.Vec) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}
