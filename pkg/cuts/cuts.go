// Package cuts selects slice coordinates from the non-background extent of a
// volume.
//
// The bounding box may be computed from a different volume than the one that
// is finally rendered (for example a brain mask), so Box and FromBox are
// separate steps.
package cuts

import (
	"math"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/spatial/r3"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
)

const (
	// DefaultThreshold discards near-zero background voxels
	DefaultThreshold = 1e-3

	// DefaultCount is the number of cuts per axis when the caller gives none
	DefaultCount = 10
)

// BoundingBox is the world-space extent of the foreground of a volume.
type BoundingBox struct {
	r3.Box

	// Degenerate is set when no voxel exceeded the threshold and the box
	// fell back to the full volume extent.
	Degenerate bool

	// Pad is half the world-space size of one voxel along each axis. The
	// box spans voxel centres; cuts are spread over the box grown by Pad.
	Pad r3.Vec
}

// Range returns the box extent along one axis.
func (b BoundingBox) Range(a models.Axis) (lo, hi float64) {
	return a.Component(b.Min), a.Component(b.Max)
}

// CutRange returns the voxel-edge extent along one axis, the range cuts are
// spread over.
func (b BoundingBox) CutRange(a models.Axis) (lo, hi float64) {
	lo, hi = b.Range(a)
	pad := a.Component(b.Pad)
	return lo - pad, hi + pad
}

// voxelPad returns half the extent of one voxel of v along each world axis.
func voxelPad(v *models.Volume) r3.Vec {
	a := v.Affine
	half := func(row int) float64 {
		return 0.5 * (math.Abs(a[4*row]) + math.Abs(a[4*row+1]) + math.Abs(a[4*row+2]))
	}
	return r3.Vec{X: half(0), Y: half(1), Z: half(2)}
}

// CutSet maps each axis to strictly increasing world coordinates.
type CutSet map[models.Axis][]float64

// Box computes the bounding box of the voxels of v strictly above t. When
// no voxel qualifies the full extent of v is returned with Degenerate set.
func Box(v *models.Volume, t float64) BoundingBox {
	minX, minY, minZ := v.Width, v.Height, v.Depth
	maxX, maxY, maxZ := -1, -1, -1

	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			row := v.Data[v.Index(0, y, z) : v.Index(0, y, z)+v.Width]
			for x, value := range row {
				if !(value > t) {
					continue
				}
				minX, maxX = min(minX, x), max(maxX, x)
				minY, maxY = min(minY, y), max(maxY, y)
				minZ, maxZ = min(minZ, z), max(maxZ, z)
			}
		}
	}

	if maxX < 0 {
		glog.V(1).Infof("cuts: no voxel above %g in %dx%dx%d volume, using full extent", t, v.Width, v.Height, v.Depth)
		return BoundingBox{Box: v.Extent(), Degenerate: true, Pad: voxelPad(v)}
	}
	return BoundingBox{Box: v.IndexBox(minX, minY, minZ, maxX, maxY, maxZ), Pad: voxelPad(v)}
}

// Coords distributes n coordinates evenly inside [lo, hi]:
// lo + (hi-lo)*(i+1)/(n+1) for i in [0, n). Coordinates that coincide (a
// zero-width extent) are collapsed so the result stays strictly increasing.
func Coords(lo, hi float64, n int) ([]float64, error) {
	if n <= 0 {
		return nil, qcerr.Config("cuts", "cut count %d must be positive", n)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || hi < lo {
		return nil, qcerr.Shape("cuts", "invalid extent [%g, %g]", lo, hi)
	}

	out := make([]float64, 0, n)
	step := (hi - lo) / float64(n+1)
	for i := 0; i < n; i++ {
		c := lo + step*float64(i+1)
		if len(out) > 0 && c <= out[len(out)-1] {
			continue
		}
		out = append(out, c)
	}
	if len(out) < n {
		glog.V(1).Infof("cuts: extent [%g, %g] supports %d of %d requested cuts", lo, hi, len(out), n)
	}
	return out, nil
}

// FromBox returns n cuts per requested axis, spread over the voxel-edge
// extent of the box so that a one-voxel-thick box still yields n distinct
// cuts. With no axes all three are computed.
func FromBox(box BoundingBox, n int, axes ...models.Axis) (CutSet, error) {
	if len(axes) == 0 {
		axes = models.Axes
	}
	set := make(CutSet, len(axes))
	for _, a := range axes {
		lo, hi := box.CutRange(a)
		coords, err := Coords(lo, hi, n)
		if err != nil {
			return nil, err
		}
		set[a] = coords
	}
	return set, nil
}

// FromVolume is Box followed by FromBox.
func FromVolume(v *models.Volume, t float64, n int, axes ...models.Axis) (CutSet, BoundingBox, error) {
	box := Box(v, t)
	set, err := FromBox(box, n, axes...)
	return set, box, err
}
