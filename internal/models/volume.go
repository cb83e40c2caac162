package models

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"neuroqc/pkg/qcerr"
)

// Axis names one of the three orthogonal display axes.
type Axis int

const (
	// X is the sagittal axis (left-right)
	X Axis = iota
	// Y is the coronal axis (posterior-anterior)
	Y
	// Z is the axial axis (inferior-superior)
	Z
)

// Axes lists the three axes in display order.
var Axes = []Axis{X, Y, Z}

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis converts an axis name ("x", "y", "z", case-insensitive) to an Axis.
func ParseAxis(name string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "x":
		return X, nil
	case "y":
		return Y, nil
	case "z":
		return Z, nil
	}
	return 0, qcerr.Config("models", "invalid axis %q (must be x, y, or z)", name)
}

// Component returns the coordinate of p along the axis.
func (a Axis) Component(p r3.Vec) float64 {
	switch a {
	case X:
		return p.X
	case Y:
		return p.Y
	}
	return p.Z
}

// InPlane projects p onto the plane normal to the axis. The in-plane
// coordinates are (Y, Z) for X, (X, Z) for Y and (X, Y) for Z, matching
// the pixel layout used when a slice along the axis is displayed.
func (a Axis) InPlane(p r3.Vec) r2.Vec {
	switch a {
	case X:
		return r2.Vec{X: p.Y, Y: p.Z}
	case Y:
		return r2.Vec{X: p.X, Y: p.Z}
	}
	return r2.Vec{X: p.X, Y: p.Y}
}

// Lift is the inverse of InPlane for a plane at coordinate c.
func (a Axis) Lift(q r2.Vec, c float64) r3.Vec {
	switch a {
	case X:
		return r3.Vec{X: c, Y: q.X, Z: q.Y}
	case Y:
		return r3.Vec{X: q.X, Y: c, Z: q.Y}
	}
	return r3.Vec{X: q.X, Y: q.Y, Z: c}
}

// Affine is a 4x4 row-major voxel-to-world transform.
type Affine [16]float64

// Identity is the identity affine (voxel indices are world millimetres).
var Identity = Affine{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// Apply maps the voxel position (i, j, k) to world space.
func (a Affine) Apply(i, j, k float64) r3.Vec {
	return r3.Vec{
		X: a[0]*i + a[1]*j + a[2]*k + a[3],
		Y: a[4]*i + a[5]*j + a[6]*k + a[7],
		Z: a[8]*i + a[9]*j + a[10]*k + a[11],
	}
}

// ApplyVec maps p through the affine.
func (a Affine) ApplyVec(p r3.Vec) r3.Vec {
	return a.Apply(p.X, p.Y, p.Z)
}

// Volume is a 3D or 4D regular grid of intensities.
type Volume struct {
	// Data holds the intensities in x-fastest order:
	// idx = t*W*H*D + z*W*H + y*W + x
	Data []float64

	// Width, Height and Depth are the spatial dimensions in voxels
	Width  int
	Height int
	Depth  int

	// Frames is the size of the fourth axis (1 for 3D volumes)
	Frames int

	// Affine maps voxel indices to world coordinates in mm
	Affine Affine
}

// NewVolume allocates a zero-filled 3D volume.
func NewVolume(width, height, depth int, affine Affine) *Volume {
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
		Frames: 1,
		Affine: affine,
	}
}

// NewLike allocates a zero-filled 3D volume on the same grid as v.
func NewLike(v *Volume) *Volume {
	return NewVolume(v.Width, v.Height, v.Depth, v.Affine)
}

// Validate checks that the data length matches the declared dimensions.
func (v *Volume) Validate() error {
	frames := v.Frames
	if frames == 0 {
		frames = 1
	}
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 {
		return fmt.Errorf("volume dimensions %dx%dx%d must be positive", v.Width, v.Height, v.Depth)
	}
	if want := v.Width * v.Height * v.Depth * frames; len(v.Data) != want {
		return fmt.Errorf("volume data has %d values, expected %d", len(v.Data), want)
	}
	return nil
}

// Is4D reports whether the volume carries more than one frame.
func (v *Volume) Is4D() bool {
	return v.Frames > 1
}

// Len returns the number of voxels in one frame.
func (v *Volume) Len() int {
	return v.Width * v.Height * v.Depth
}

// Index returns the flat index of voxel (x, y, z) in frame 0.
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the intensity at voxel (x, y, z) of frame 0.
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores an intensity at voxel (x, y, z) of frame 0.
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// Contains reports whether (x, y, z) is a valid voxel index.
func (v *Volume) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < v.Width && y < v.Height && z < v.Depth
}

// Dim returns the number of voxels along an axis.
func (v *Volume) Dim(a Axis) int {
	switch a {
	case X:
		return v.Width
	case Y:
		return v.Height
	}
	return v.Depth
}

// SameGrid reports whether o shares v's dimensions and affine.
func (v *Volume) SameGrid(o *Volume) bool {
	return v.Width == o.Width && v.Height == o.Height && v.Depth == o.Depth && v.Affine == o.Affine
}

// Extent returns the world-space box spanned by the centres of the corner
// voxels.
func (v *Volume) Extent() r3.Box {
	return v.IndexBox(0, 0, 0, v.Width-1, v.Height-1, v.Depth-1)
}

// IndexBox returns the world-space box enclosing the voxel index box
// [x0,x1]x[y0,y1]x[z0,z1].
func (v *Volume) IndexBox(x0, y0, z0, x1, y1, z1 int) r3.Box {
	corners := r3.Box{
		Min: r3.Vec{X: float64(x0), Y: float64(y0), Z: float64(z0)},
		Max: r3.Vec{X: float64(x1), Y: float64(y1), Z: float64(z1)},
	}.Vertices()
	first := v.Affine.ApplyVec(corners[0])
	box := r3.Box{Min: first, Max: first}
	for _, c := range corners[1:] {
		box = Extend(box, v.Affine.ApplyVec(c))
	}
	return box
}

// Extend grows box so that it contains p. Unlike r3.Box.Union it treats
// zero-volume boxes as valid, so it can accumulate single points.
func Extend(box r3.Box, p r3.Vec) r3.Box {
	return r3.Box{
		Min: r3.Vec{X: math.Min(box.Min.X, p.X), Y: math.Min(box.Min.Y, p.Y), Z: math.Min(box.Min.Z, p.Z)},
		Max: r3.Vec{X: math.Max(box.Max.X, p.X), Y: math.Max(box.Max.Y, p.Y), Z: math.Max(box.Max.Z, p.Z)},
	}
}
