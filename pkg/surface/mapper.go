// Package surface maps dense scalar datasets (grayordinates) onto the
// vertices of cortical surface meshes and merges hemispheres into a single
// full-brain mesh.
package surface

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"neuroqc/internal/models"
	"neuroqc/pkg/intensity"
	"neuroqc/pkg/qcerr"
)

// Structure names of the cortical brain models in a dense index table.
const (
	CortexLeft  = "CORTEX_LEFT"
	CortexRight = "CORTEX_RIGHT"
)

// StructureFor returns the cortical structure name of a hemisphere
// ("left" or "right").
func StructureFor(hemi string) (string, error) {
	switch hemi {
	case "left":
		return CortexLeft, nil
	case "right":
		return CortexRight, nil
	}
	return "", qcerr.Config("surface", "unknown hemisphere %q", hemi)
}

// BrainModel describes one structure along the dense axis: rows
// [Offset, Offset+Count) of the dense data correspond, in order, to the
// surface vertices listed in Vertices.
type BrainModel struct {
	Structure   string `yaml:"structure"`
	Offset      int    `yaml:"offset"`
	Count       int    `yaml:"count"`
	Vertices    []int  `yaml:"vertices"`
	NumVertices int    `yaml:"surfaceVertices"`
}

// IndexTable is the structural index table of a dense dataset.
type IndexTable struct {
	Models []BrainModel `yaml:"brainModels"`
}

// Model returns the brain model of a structure.
func (t *IndexTable) Model(structure string) (BrainModel, error) {
	for _, m := range t.Models {
		if m.Structure == structure {
			return m, nil
		}
	}
	return BrainModel{}, qcerr.MissingName("surface", "structural index table", structure)
}

// Len returns the length of the dense axis described by the table.
func (t *IndexTable) Len() int {
	n := 0
	for _, m := range t.Models {
		if end := m.Offset + m.Count; end > n {
			n = end
		}
	}
	return n
}

// ScalarMap holds one row of per-vertex values per map.
type ScalarMap [][]float64

// Maps returns the number of maps.
func (s ScalarMap) Maps() int {
	return len(s)
}

// Options control Map.
type Options struct {
	// AllMaps keeps every map of the dataset; otherwise only MapIndex is kept
	AllMaps bool

	// MapIndex selects the map when AllMaps is false
	MapIndex int

	// ZeroNaN replaces unmapped vertices (NaN) with exactly 0
	ZeroNaN bool
}

// Promote turns a single map into a batch of one.
func Promote(data []float64) [][]float64 {
	return [][]float64{data}
}

// Map translates dense data (map-index x dense-index) into one value per
// vertex of mesh for the given structure. Vertices without a dense row are
// NaN unless opts.ZeroNaN is set. The result always has the batch shape.
func Map(mesh *models.Mesh, structure string, data [][]float64, table *IndexTable, opts Options) (ScalarMap, error) {
	if err := mesh.Validate(); err != nil {
		return nil, qcerr.Shape("surface", "%v", err)
	}
	model, err := table.Model(structure)
	if err != nil {
		return nil, err
	}
	if len(model.Vertices) != model.Count {
		return nil, qcerr.Shape("surface", "%s lists %d vertices for %d rows", structure, len(model.Vertices), model.Count)
	}
	if model.NumVertices != 0 && model.NumVertices != len(mesh.Vertices) {
		return nil, qcerr.Shape("surface", "%s expects a %d-vertex surface, mesh has %d",
			structure, model.NumVertices, len(mesh.Vertices))
	}
	if len(data) == 0 {
		return nil, qcerr.Shape("surface", "dataset holds no maps")
	}

	selected := data
	if !opts.AllMaps {
		if opts.MapIndex < 0 || opts.MapIndex >= len(data) {
			return nil, qcerr.Config("surface", "map index %d outside [0, %d)", opts.MapIndex, len(data))
		}
		selected = data[opts.MapIndex : opts.MapIndex+1]
	}

	nv := len(mesh.Vertices)
	out := make(ScalarMap, len(selected))
	for m, row := range selected {
		if len(row) < model.Offset+model.Count {
			return nil, qcerr.Shape("surface", "map %d has %d dense values, %s needs %d",
				m, len(row), structure, model.Offset+model.Count)
		}

		fill := math.NaN()
		if opts.ZeroNaN {
			fill = 0
		}
		values := make([]float64, nv)
		for i := range values {
			values[i] = fill
		}
		for i, vertex := range model.Vertices {
			if vertex < 0 || vertex >= nv {
				return nil, qcerr.Shape("surface", "%s row %d maps to vertex %d, mesh has %d",
					structure, i, vertex, nv)
			}
			v := row[model.Offset+i]
			if math.IsNaN(v) && opts.ZeroNaN {
				v = 0
			}
			values[vertex] = v
		}
		out[m] = values
	}
	return out, nil
}

// Window returns the [2, 98] percentile colour range of the whole dataset,
// ignoring NaN.
func Window(data [][]float64) intensity.Window {
	var flat []float64
	for _, row := range data {
		flat = append(flat, row...)
	}
	return intensity.Robust(flat)
}

// MergeHemispheres concatenates the left and right meshes into one
// full-brain mesh. Right faces are re-indexed by the returned offset (the
// left vertex count).
func MergeHemispheres(left, right *models.Mesh) (*models.Mesh, int, error) {
	if err := left.Validate(); err != nil {
		return nil, 0, qcerr.Shape("surface", "left hemisphere: %v", err)
	}
	if err := right.Validate(); err != nil {
		return nil, 0, qcerr.Shape("surface", "right hemisphere: %v", err)
	}

	offset := len(left.Vertices)
	merged := &models.Mesh{
		Vertices: make([]r3.Vec, 0, offset+len(right.Vertices)),
		Faces:    make([][3]int, 0, len(left.Faces)+len(right.Faces)),
	}
	merged.Vertices = append(merged.Vertices, left.Vertices...)
	merged.Vertices = append(merged.Vertices, right.Vertices...)
	merged.Faces = append(merged.Faces, left.Faces...)
	for _, f := range right.Faces {
		merged.Faces = append(merged.Faces, [3]int{f[0] + offset, f[1] + offset, f[2] + offset})
	}
	return merged, offset, nil
}
