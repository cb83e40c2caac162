package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh represents a triangulated surface: one cortical hemisphere or a
// merged full-brain surface.
type Mesh struct {
	// Vertices are physical coordinates in mm
	Vertices []r3.Vec

	// Faces index into Vertices, three per triangle
	Faces [][3]int
}

// Validate checks that every face index is smaller than the vertex count.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d references vertex %d, mesh has %d vertices", i, idx, n)
			}
		}
	}
	return nil
}

// Bounds returns the axis-aligned box enclosing all vertices. An empty mesh
// returns the zero box.
func (m *Mesh) Bounds() r3.Box {
	if len(m.Vertices) == 0 {
		return r3.Box{}
	}
	box := r3.Box{
		Min: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, v := range m.Vertices {
		box = Extend(box, v)
	}
	return box
}
