package render

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/volume"
)

// orientation relates world axes to voxel axes for an axis-aligned affine.
type orientation struct {
	voxel [3]int  // voxel axis carrying each world axis
	flip  [3]bool // world coordinate decreases along the voxel axis
	inv   models.Affine
}

func orient(v *models.Volume) (orientation, error) {
	var o orientation
	inv, err := volume.Inverse(v.Affine)
	if err != nil {
		return o, err
	}
	o.inv = inv

	var used [3]bool
	for w := 0; w < 3; w++ {
		best, mag := 0, -1.0
		for k := 0; k < 3; k++ {
			if m := math.Abs(v.Affine[w*4+k]); m > mag {
				best, mag = k, m
			}
		}
		if used[best] {
			return o, qcerr.Shape("render", "affine is too oblique to slice along world axes")
		}
		used[best] = true
		o.voxel[w] = best
		o.flip[w] = v.Affine[w*4+best] < 0
	}
	return o, nil
}

// Tile is one slice inside a panel.
type Tile struct {
	Axis  models.Axis
	Coord float64

	// Slice is the voxel index of the slice along the sliced voxel axis
	Slice int

	// Bounds is the tile's rectangle inside the panel image
	Bounds image.Rectangle

	// Scale is the number of pixels per voxel
	Scale float64

	o      orientation
	du, dv int
	dims   [3]int
}

// inPlaneAxes returns the world axes shown horizontally and vertically on
// a tile sliced along a.
func inPlaneAxes(a models.Axis) (u, v models.Axis) {
	switch a {
	case models.X:
		return models.Y, models.Z
	case models.Y:
		return models.X, models.Z
	}
	return models.X, models.Y
}

func newTile(vol *models.Volume, o orientation, a models.Axis, coord float64, height int) Tile {
	wu, wv := inPlaneAxes(a)
	dims := [3]int{vol.Width, vol.Height, vol.Depth}
	t := Tile{Axis: a, Coord: coord, o: o, dims: dims}
	t.du = dims[o.voxel[wu]]
	t.dv = dims[o.voxel[wv]]
	t.Scale = float64(height) / float64(t.dv)

	// slice index: the voxel nearest the plane through the volume centre
	centre := vol.Affine.Apply(float64(vol.Width-1)/2, float64(vol.Height-1)/2, float64(vol.Depth-1)/2)
	p := a.Lift(a.InPlane(centre), coord)
	vox := o.inv.ApplyVec(p)
	k := o.voxel[a]
	s := int(math.Round([3]float64{vox.X, vox.Y, vox.Z}[k]))
	t.Slice = clamp(s, 0, dims[k]-1)

	t.Bounds = image.Rect(0, 0, int(math.Round(float64(t.du)*t.Scale)), height)
	return t
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// voxel returns the voxel index shown at native tile pixel (col, row).
func (t Tile) voxel(col, row int) (x, y, z int) {
	wu, wv := inPlaneAxes(t.Axis)
	u := col
	if t.o.flip[wu] {
		u = t.du - 1 - col
	}
	v := t.dv - 1 - row
	if t.o.flip[wv] {
		v = row
	}
	var idx [3]int
	idx[t.o.voxel[t.Axis]] = t.Slice
	idx[t.o.voxel[wu]] = u
	idx[t.o.voxel[wv]] = v
	return idx[0], idx[1], idx[2]
}

// native samples a volume on the tile's voxel grid and returns a du x dv
// grid of values in row-major display order.
func (t Tile) native(vol *models.Volume) []float64 {
	out := make([]float64, t.du*t.dv)
	for row := 0; row < t.dv; row++ {
		for col := 0; col < t.du; col++ {
			x, y, z := t.voxel(col, row)
			out[row*t.du+col] = vol.At(x, y, z)
		}
	}
	return out
}

// Pixel maps an in-plane world point (as produced by models.Axis.InPlane)
// to panel pixel coordinates.
func (t Tile) Pixel(q r2.Vec) (x, y float64) {
	wu, wv := inPlaneAxes(t.Axis)
	vox := t.o.inv.ApplyVec(t.Axis.Lift(q, t.Coord))
	c := [3]float64{vox.X, vox.Y, vox.Z}
	u, v := c[t.o.voxel[wu]], c[t.o.voxel[wv]]

	col := u
	if t.o.flip[wu] {
		col = float64(t.du-1) - u
	}
	row := float64(t.dv-1) - v
	if t.o.flip[wv] {
		row = v
	}
	return float64(t.Bounds.Min.X) + (col+0.5)*t.Scale, float64(t.Bounds.Min.Y) + (row+0.5)*t.Scale
}

// sameGrid reports whether vol can be sampled with the tile's geometry.
func (t Tile) sameGrid(vol *models.Volume) bool {
	return vol.Width == t.dims[0] && vol.Height == t.dims[1] && vol.Depth == t.dims[2]
}
