// Package volume implements the read-only operations the composition engine
// applies to volumes: 4D to 3D reduction, intensity sampling, affine
// inversion and resampling onto another grid.
package volume

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
)

// Interpolation selects how Resample reads the source grid.
type Interpolation int

const (
	// Nearest picks the closest source voxel (use for labels and masks)
	Nearest Interpolation = iota
	// Linear interpolates trilinearly between the eight surrounding voxels
	Linear
)

// ParseInterpolation converts "nearest" or "linear" to an Interpolation.
func ParseInterpolation(name string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nearest":
		return Nearest, nil
	case "linear", "continuous":
		return Linear, nil
	}
	return 0, qcerr.Config("volume", "unknown interpolation %q", name)
}

// Frame returns frame idx of a 4D volume as a 3D volume. 3D volumes are
// returned unchanged (identity mapping), as are the Data slices they share.
func Frame(v *models.Volume, idx int) (*models.Volume, error) {
	if !v.Is4D() {
		return v, nil
	}
	if idx < 0 || idx >= v.Frames {
		return nil, qcerr.Config("volume", "frame %d outside [0, %d)", idx, v.Frames)
	}
	n := v.Len()
	out := models.NewLike(v)
	copy(out.Data, v.Data[idx*n:(idx+1)*n])
	return out, nil
}

// Samples returns the finite intensities of v's first frame.
func Samples(v *models.Volume) []float64 {
	out := make([]float64, 0, v.Len())
	for _, value := range v.Data[:v.Len()] {
		if !math.IsNaN(value) && !math.IsInf(value, 0) {
			out = append(out, value)
		}
	}
	return out
}

// Range returns the minimum and maximum finite intensity of v. An empty or
// all-NaN volume returns (0, 0).
func Range(v *models.Volume) (lo, hi float64) {
	s := Samples(v)
	if len(s) == 0 {
		return 0, 0
	}
	return floats.Min(s), floats.Max(s)
}

// Inverse returns the world-to-voxel transform of an affine.
func Inverse(a models.Affine) (models.Affine, error) {
	m := mat.NewDense(4, 4, append([]float64(nil), a[:]...))
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return models.Affine{}, qcerr.Shape("volume", "affine is singular: %v", err)
	}
	var out models.Affine
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = inv.At(r, c)
		}
	}
	return out, nil
}

// Resample maps src onto ref's grid. Voxels of ref that fall outside src
// receive zero. When both volumes already share a grid a copy is returned.
func Resample(src, ref *models.Volume, interp Interpolation) (*models.Volume, error) {
	src, err := Frame(src, 0)
	if err != nil {
		return nil, err
	}
	out := models.NewLike(ref)
	if src.SameGrid(ref) {
		copy(out.Data, src.Data)
		return out, nil
	}

	toSrc, err := Inverse(src.Affine)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	for z := 0; z < ref.Depth; z++ {
		for y := 0; y < ref.Height; y++ {
			for x := 0; x < ref.Width; x++ {
				world := ref.Affine.Apply(float64(x), float64(y), float64(z))
				p := toSrc.ApplyVec(world)
				switch interp {
				case Nearest:
					out.Set(x, y, z, nearest(src, p))
				default:
					out.Set(x, y, z, trilinear(src, p))
				}
			}
		}
	}
	return out, nil
}

func nearest(v *models.Volume, p r3.Vec) float64 {
	x, y, z := int(math.Round(p.X)), int(math.Round(p.Y)), int(math.Round(p.Z))
	if !v.Contains(x, y, z) {
		return 0
	}
	return v.At(x, y, z)
}

func trilinear(v *models.Volume, p r3.Vec) float64 {
	x0, y0, z0 := int(math.Floor(p.X)), int(math.Floor(p.Y)), int(math.Floor(p.Z))
	fx, fy, fz := p.X-float64(x0), p.Y-float64(y0), p.Z-float64(z0)

	var sum, weight float64
	for dz := 0; dz <= 1; dz++ {
		for dy := 0; dy <= 1; dy++ {
			for dx := 0; dx <= 1; dx++ {
				x, y, z := x0+dx, y0+dy, z0+dz
				if !v.Contains(x, y, z) {
					continue
				}
				w := lerpWeight(fx, dx) * lerpWeight(fy, dy) * lerpWeight(fz, dz)
				if w == 0 {
					continue
				}
				sum += w * v.At(x, y, z)
				weight += w
			}
		}
	}
	// Points outside the grid by more than one voxel have no support.
	if weight < 0.5 {
		return 0
	}
	return sum / weight
}

func lerpWeight(f float64, d int) float64 {
	if d == 0 {
		return 1 - f
	}
	return f
}
