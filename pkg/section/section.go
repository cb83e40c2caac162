// Package section intersects triangle meshes with axis-aligned planes and
// returns the cross-sections as 2D polylines in the plane's coordinates.
package section

import (
	"math"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
)

// StitchTolerance is the gap, relative to the mesh diagonal, below which
// two open polyline ends are joined. It absorbs meshes whose triangles do
// not share vertices.
const StitchTolerance = 1e-6

// Contour is one connected polyline of a section. Points are in-plane
// coordinates as given by models.Axis.InPlane.
type Contour struct {
	Points []r2.Vec
	Closed bool
}

// Section holds every contour at one plane coordinate.
type Section struct {
	Axis     models.Axis
	Coord    float64
	Contours []Contour
}

// Empty reports whether the plane missed the mesh.
func (s Section) Empty() bool {
	return len(s.Contours) == 0
}

// Segments flattens the section into individual line segments, the form
// expected by stroke renderers.
func (s Section) Segments() [][2]r2.Vec {
	var segs [][2]r2.Vec
	for _, c := range s.Contours {
		for i := 1; i < len(c.Points); i++ {
			segs = append(segs, [2]r2.Vec{c.Points[i-1], c.Points[i]})
		}
		if c.Closed && len(c.Points) > 2 {
			segs = append(segs, [2]r2.Vec{c.Points[len(c.Points)-1], c.Points[0]})
		}
	}
	return segs
}

// Multiplane sections mesh with the planes normal to axis at each of
// coords. The result is parallel to coords; a plane outside the mesh yields
// an empty Section. Faces lying in a plane contribute nothing.
func Multiplane(mesh *models.Mesh, axis models.Axis, coords []float64) ([]Section, error) {
	if err := mesh.Validate(); err != nil {
		return nil, qcerr.Shape("section", "%v", err)
	}
	if axis < models.X || axis > models.Z {
		return nil, qcerr.Config("section", "invalid axis %v", axis)
	}

	bounds := mesh.Bounds()
	tol := StitchTolerance * r3.Norm(r3.Sub(bounds.Max, bounds.Min))
	heights := make([]float64, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		heights[i] = axis.Component(v)
	}

	sections := make([]Section, len(coords))
	for n, c := range coords {
		if math.IsNaN(c) {
			return nil, qcerr.Config("section", "coordinate %d is NaN", n)
		}
		sections[n] = Section{Axis: axis, Coord: c}
		if len(mesh.Vertices) == 0 || c < axis.Component(bounds.Min) || c >= axis.Component(bounds.Max) {
			glog.V(1).Infof("section: plane %s=%g misses the mesh", axis, c)
			continue
		}
		sections[n].Contours = stitch(plane(mesh, axis, heights, c), tol)
		if sections[n].Empty() {
			glog.V(1).Infof("section: plane %s=%g produced no contour", axis, c)
		}
	}
	return sections, nil
}

// edge identifies a mesh edge by its sorted vertex pair.
type edge [2]int

func edgeOf(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// plane intersects every face with the plane at height c and chains the
// resulting segments through their shared mesh edges.
func plane(mesh *models.Mesh, axis models.Axis, heights []float64, c float64) []Contour {
	points := make(map[edge]r2.Vec)
	var segments [][2]edge

	crossing := func(a, b int) edge {
		e := edgeOf(a, b)
		if _, ok := points[e]; !ok {
			da, db := heights[e[0]]-c, heights[e[1]]-c
			t := da / (da - db)
			va, vb := mesh.Vertices[e[0]], mesh.Vertices[e[1]]
			points[e] = axis.InPlane(r3.Add(va, r3.Scale(t, r3.Sub(vb, va))))
		}
		return e
	}

	for _, f := range mesh.Faces {
		var ends []edge
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if (heights[a] >= c) != (heights[b] >= c) {
				ends = append(ends, crossing(a, b))
			}
		}
		if len(ends) == 2 && ends[0] != ends[1] {
			segments = append(segments, [2]edge{ends[0], ends[1]})
		}
	}
	return chain(segments, points)
}

// chain walks the segment graph into polylines. Open chains are walked from
// their degree-one ends first so they are never split; what remains are
// closed loops.
func chain(segments [][2]edge, points map[edge]r2.Vec) []Contour {
	incident := make(map[edge][]int)
	var order []edge
	for i, s := range segments {
		for _, e := range s {
			if _, ok := incident[e]; !ok {
				order = append(order, e)
			}
			incident[e] = append(incident[e], i)
		}
	}

	used := make([]bool, len(segments))
	walk := func(start edge) ([]edge, bool) {
		path := []edge{start}
		cur := start
		for {
			next := -1
			for _, s := range incident[cur] {
				if !used[s] {
					next = s
					break
				}
			}
			if next < 0 {
				break
			}
			used[next] = true
			if segments[next][0] == cur {
				cur = segments[next][1]
			} else {
				cur = segments[next][0]
			}
			path = append(path, cur)
		}
		closed := len(path) > 3 && path[len(path)-1] == start
		if closed {
			path = path[:len(path)-1]
		}
		return path, closed
	}

	var contours []Contour
	emit := func(path []edge, closed bool) {
		if len(path) < 2 {
			return
		}
		pts := make([]r2.Vec, len(path))
		for i, e := range path {
			pts[i] = points[e]
		}
		contours = append(contours, Contour{Points: pts, Closed: closed})
	}

	for _, e := range order {
		if len(incident[e]) == 1 && !used[incident[e][0]] {
			emit(walk(e))
		}
	}
	for i, s := range segments {
		if !used[i] {
			emit(walk(s[0]))
		}
	}
	return contours
}
