// Package compose lays cut slices out as orthogonal view grids, montages
// and surface view grids, delegating the drawing to a render.Backend.
package compose

import (
	"fmt"

	"github.com/golang/glog"

	"neuroqc/internal/models"
	"neuroqc/pkg/colormap"
	"neuroqc/pkg/cuts"
	"neuroqc/pkg/intensity"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/render"
	"neuroqc/pkg/volume"
)

// Options control how a figure is planned and titled.
type Options struct {
	// Axes to display; nil means x, y, z
	Axes []models.Axis

	// NCuts is the number of cuts per axis; 0 means cuts.DefaultCount
	NCuts int

	// AutoBrightness merges the robust intensity window into Params
	AutoBrightness bool

	FigureTitle string
	Colormap    *colormap.Map

	// Mask, when set, supplies the bounding box instead of the displayed
	// volume. On the same grid it also restricts the window sample.
	Mask *models.Volume

	// Params are caller render parameters; they are never overridden
	Params intensity.Params

	// Plan reuses the geometry of another figure (same cuts and window)
	Plan *Plan
}

func (o Options) axes() []models.Axis {
	if len(o.Axes) == 0 {
		return models.Axes
	}
	return o.Axes
}

// Plan is the geometry shared by every panel of a figure.
type Plan struct {
	Box    cuts.BoundingBox
	Cuts   cuts.CutSet
	Params intensity.Params
}

// NewPlan selects cut coordinates and render parameters for v.
func NewPlan(v *models.Volume, opts Options) (*Plan, error) {
	if opts.Plan != nil {
		return opts.Plan, nil
	}
	if v == nil {
		return nil, qcerr.Shape("compose", "no volume")
	}
	if err := v.Validate(); err != nil {
		return nil, qcerr.Shape("compose", "%v", err)
	}
	v, err := volume.Frame(v, 0)
	if err != nil {
		return nil, err
	}

	source := v
	if opts.Mask != nil {
		if err := opts.Mask.Validate(); err != nil {
			return nil, qcerr.Shape("compose", "mask: %v", err)
		}
		if source, err = volume.Frame(opts.Mask, 0); err != nil {
			return nil, err
		}
	}

	n := opts.NCuts
	if n == 0 {
		n = cuts.DefaultCount
	}
	set, box, err := cuts.FromVolume(source, cuts.DefaultThreshold, n, opts.axes()...)
	if err != nil {
		return nil, err
	}

	params := intensity.Window{}.Merge(opts.Params)
	if opts.AutoBrightness {
		params = intensity.Robust(windowSample(v, source)).Merge(opts.Params)
	}
	return &Plan{Box: box, Cuts: set, Params: params}, nil
}

// windowSample returns the intensities of v the window is estimated from:
// the voxels under mask when mask shares v's grid, else all of v.
func windowSample(v, mask *models.Volume) []float64 {
	if mask == v || !v.SameGrid(mask) {
		return volume.Samples(v)
	}
	sample := make([]float64, 0, v.Len())
	for i, m := range mask.Data[:mask.Len()] {
		if m > cuts.DefaultThreshold {
			sample = append(sample, v.Data[i])
		}
	}
	if len(sample) == 0 {
		return volume.Samples(v)
	}
	return sample
}

// Figure is a composed set of panels and the plan that produced them.
type Figure struct {
	Panels []*render.Panel
	Plan   *Plan
}

// Orthogonal renders one panel per requested axis, titled
// "<figureTitle>-<axis>".
func Orthogonal(b render.Backend, v *models.Volume, opts Options) (*Figure, error) {
	plan, err := NewPlan(v, opts)
	if err != nil {
		return nil, err
	}

	fig := &Figure{Plan: plan}
	for _, a := range opts.axes() {
		coords, ok := plan.Cuts[a]
		if !ok {
			return nil, qcerr.Config("compose", "plan has no cuts for axis %s", a)
		}
		p, err := b.Slice(render.SliceRequest{
			Volume:   v,
			Axis:     a,
			Coords:   coords,
			Params:   plan.Params,
			Colormap: opts.Colormap,
			Title:    axisTitle(opts.FigureTitle, a),
		})
		if err != nil {
			return nil, fmt.Errorf("axis %s: %w", a, err)
		}
		fig.Panels = append(fig.Panels, p)
	}
	glog.V(1).Infof("compose: orthogonal %q, %d panels", opts.FigureTitle, len(fig.Panels))
	return fig, nil
}

func axisTitle(title string, a models.Axis) string {
	return fmt.Sprintf("%s-%s", title, a)
}
