package report

import (
	"image/color"
	"strings"

	"neuroqc/internal/models"
	"neuroqc/pkg/colormap"
	"neuroqc/pkg/compose"
	"neuroqc/pkg/intensity"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/render"
	"neuroqc/pkg/section"
	"neuroqc/pkg/surface"
	"neuroqc/pkg/volume"
)

// ContourStroke is how surface sections are drawn over volume slices.
var ContourStroke = render.Stroke{Color: color.NRGBA{R: 255, A: 255}, Width: 1}

// parseViews reads "view:hemi" pairs separated by commas, for example
// "lateral:left,medial:right".
func parseViews(spec string) ([]compose.SurfaceView, error) {
	if spec == "" {
		return nil, nil
	}
	var views []compose.SurfaceView
	for _, item := range strings.Split(spec, ",") {
		name, hemi, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok {
			return nil, qcerr.Config("report", "view %q is not view:hemi", item)
		}
		v, err := render.ParseView(name)
		if err != nil {
			return nil, err
		}
		if _, err := surface.StructureFor(hemi); err != nil {
			return nil, err
		}
		views = append(views, compose.SurfaceView{View: v, Hemi: hemi})
	}
	return views, nil
}

func meshes(req Request, leftKey, rightKey string) (compose.Hemispheres[*models.Mesh], error) {
	var h compose.Hemispheres[*models.Mesh]
	left, err := req.Path(leftKey)
	if err != nil {
		return h, err
	}
	right, err := req.Path(rightKey)
	if err != nil {
		return h, err
	}
	if h.Left, err = req.src.Mesh(left); err != nil {
		return h, err
	}
	if h.Right, err = req.src.Mesh(right); err != nil {
		return h, err
	}
	return h, nil
}

// mapHemispheres maps dense data onto both hemispheres.
func mapHemispheres(m compose.Hemispheres[*models.Mesh], data [][]float64, table *surface.IndexTable, opts surface.Options) (compose.Hemispheres[surface.ScalarMap], error) {
	var out compose.Hemispheres[surface.ScalarMap]
	var err error
	if out.Left, err = surface.Map(m.Left, surface.CortexLeft, data, table, opts); err != nil {
		return out, err
	}
	if out.Right, err = surface.Map(m.Right, surface.CortexRight, data, table, opts); err != nil {
		return out, err
	}
	return out, nil
}

// surfaceMap renders scalar maps on both hemispheres, one row per map and
// one column per view.
func surfaceMap(b render.Backend, req Request) ([]*render.Panel, error) {
	m, err := meshes(req, "left_surf", "right_surf")
	if err != nil {
		return nil, err
	}
	cmap, err := colormap.ByName(req.String("colormap", "magma"))
	if err != nil {
		return nil, err
	}
	views, err := parseViews(req.String("views", ""))
	if err != nil {
		return nil, err
	}
	darkness, err := req.Float("darkness", render.DefaultDarkness)
	if err != nil {
		return nil, err
	}
	allMaps, err := req.Bool("visualize_all_maps", false)
	if err != nil {
		return nil, err
	}
	zeroNaN, err := req.Bool("zero_nan", false)
	if err != nil {
		return nil, err
	}

	in := compose.SurfaceInput{
		Meshes:   m,
		Views:    views,
		Colormap: cmap,
		Darkness: darkness,
		Title:    req.String("title", "surface"),
	}

	var table *surface.IndexTable
	if req.Has("cifti_map") || req.Has("bg_map") {
		path, err := req.Path("index_table")
		if err != nil {
			return nil, err
		}
		if table, err = req.src.IndexTable(path); err != nil {
			return nil, err
		}
	}
	if req.Has("cifti_map") {
		path, _ := req.Path("cifti_map")
		data, err := req.src.Scalars(path)
		if err != nil {
			return nil, err
		}
		opts := surface.Options{AllMaps: allMaps, ZeroNaN: zeroNaN}
		if in.Maps, err = mapHemispheres(m, data, table, opts); err != nil {
			return nil, err
		}
		in.Window = surface.Window(data)
	}
	if req.Has("bg_map") {
		path, _ := req.Path("bg_map")
		data, err := req.src.Scalars(path)
		if err != nil {
			return nil, err
		}
		bg, err := mapHemispheres(m, data, table, surface.Options{})
		if err != nil {
			return nil, err
		}
		in.Background.Left, in.Background.Right = bg.Left[0], bg.Right[0]
	}
	return compose.SurfaceGrid(b, in)
}

// surfaceCoreg draws the cortical surfaces as contours over an axial
// montage of the volume, optionally with a foreground volume blended on
// top through a ramp that fades to transparent.
func surfaceCoreg(b render.Backend, req Request) ([]*render.Panel, error) {
	bg, err := req.volume("bg_nii")
	if err != nil {
		return nil, err
	}
	if bg, err = volume.Frame(bg, 0); err != nil {
		return nil, err
	}
	m, err := meshes(req, "surf_l", "surf_r")
	if err != nil {
		return nil, err
	}
	merged, _, err := surface.MergeHemispheres(m.Left, m.Right)
	if err != nil {
		return nil, err
	}
	n, err := req.Int("n_cuts", OverlayCuts)
	if err != nil {
		return nil, err
	}
	if _, err := compose.SplitRows(n, n); err != nil {
		return nil, err
	}

	fig, err := compose.Montage(b, bg, models.Z, n, compose.Options{NCuts: n, FigureTitle: "surface_coreg"})
	if err != nil {
		return nil, err
	}
	coords := fig.Plan.Cuts[models.Z]
	rows, err := compose.SplitRows(len(coords), n)
	if err != nil {
		return nil, err
	}

	var fg *models.Volume
	if req.Has("fg_nii") {
		v, err := req.volume("fg_nii")
		if err != nil {
			return nil, err
		}
		interp, err := volume.ParseInterpolation(req.String("interpolation", "linear"))
		if err != nil {
			return nil, err
		}
		if fg, err = volume.Resample(v, bg, interp); err != nil {
			return nil, err
		}
	}
	ramp := section.OverlayRamp(section.RampSize)

	for i, row := range rows {
		p := fig.Panels[i]
		if fg != nil {
			if err := b.OverlayScalar(p, fg, ramp, intensity.Window{}); err != nil {
				return nil, err
			}
		}
		sections, err := section.Multiplane(merged, models.Z, coords[row.Start:row.End])
		if err != nil {
			return nil, err
		}
		if err := b.OverlayContours(p, sections, ContourStroke); err != nil {
			return nil, err
		}
	}
	return fig.Panels, nil
}
