package compose

import (
	"fmt"

	"neuroqc/internal/models"
	"neuroqc/pkg/colormap"
	"neuroqc/pkg/intensity"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/render"
	"neuroqc/pkg/surface"
)

// SurfaceView is one column of a surface grid.
type SurfaceView struct {
	View render.View
	Hemi string
}

func (v SurfaceView) String() string {
	return fmt.Sprintf("%s %s", v.View, v.Hemi)
}

// DefaultSurfaceViews shows both sides of each hemisphere.
var DefaultSurfaceViews = []SurfaceView{
	{View: render.Lateral, Hemi: "left"},
	{View: render.Medial, Hemi: "left"},
	{View: render.Lateral, Hemi: "right"},
	{View: render.Medial, Hemi: "right"},
}

// Hemispheres pairs per-hemisphere data.
type Hemispheres[T any] struct {
	Left  T
	Right T
}

// Get returns the value for "left" or "right".
func (h Hemispheres[T]) Get(hemi string) (T, error) {
	switch hemi {
	case "left":
		return h.Left, nil
	case "right":
		return h.Right, nil
	}
	var zero T
	return zero, qcerr.Config("compose", "unknown hemisphere %q", hemi)
}

// SurfaceInput is everything a surface grid displays.
type SurfaceInput struct {
	Meshes Hemispheres[*models.Mesh]

	// Maps holds the mapped scalar data; both hemispheres must carry the
	// same number of maps. Empty maps draw the bare surfaces
	Maps Hemispheres[surface.ScalarMap]

	// Background holds one optional per-vertex shading map per hemisphere
	Background Hemispheres[[]float64]

	Views    []SurfaceView
	Colormap *colormap.Map
	Window   intensity.Window
	Darkness float64
	Title    string
}

// SurfaceGrid renders one row per map and one column per view. Cell i of
// the grid shows view i % len(views) of map i / len(views).
func SurfaceGrid(b render.Backend, in SurfaceInput) ([]*render.Panel, error) {
	views := in.Views
	if len(views) == 0 {
		views = DefaultSurfaceViews
	}
	nmaps := len(in.Maps.Left)
	if len(in.Maps.Right) != nmaps {
		return nil, qcerr.Shape("compose", "left hemisphere has %d maps, right has %d", nmaps, len(in.Maps.Right))
	}
	rows := nmaps
	if rows == 0 {
		rows = 1
	}

	cells := make([]*render.Panel, rows*len(views))
	for i := range cells {
		view := views[i%len(views)]
		mapIdx := i / len(views)

		mesh, err := in.Meshes.Get(view.Hemi)
		if err != nil {
			return nil, err
		}
		bg, _ := in.Background.Get(view.Hemi)
		var values []float64
		if nmaps > 0 {
			maps, _ := in.Maps.Get(view.Hemi)
			values = maps[mapIdx]
		}

		cells[i], err = b.Surface(render.SurfaceRequest{
			Mesh:       mesh,
			Values:     values,
			Background: bg,
			View:       view.View,
			Hemi:       view.Hemi,
			Colormap:   in.Colormap,
			Window:     in.Window,
			Darkness:   in.Darkness,
			Title:      view.String(),
		})
		if err != nil {
			return nil, fmt.Errorf("map %d, %s: %w", mapIdx, view, err)
		}
	}

	panels := make([]*render.Panel, rows)
	for r := range panels {
		title := in.Title
		if nmaps > 1 {
			title = fmt.Sprintf("%s:map %d", in.Title, r)
		}
		panels[r] = render.HStack(title, cells[r*len(views):(r+1)*len(views)]...)
	}
	return panels, nil
}
