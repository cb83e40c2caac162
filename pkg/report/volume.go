package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"neuroqc/internal/models"
	"neuroqc/pkg/compose"
	"neuroqc/pkg/cuts"
	"neuroqc/pkg/labels"
	"neuroqc/pkg/render"
	"neuroqc/pkg/volume"
)

const (
	// OverlayCuts is the number of cuts per axis of the overlay reports
	OverlayCuts = 7

	// ParcellationAlpha is the fill opacity of parcellation labels
	ParcellationAlpha = 0.3
)

var (
	contourStyle = render.MaskStyle{Color: color.NRGBA{R: 255, A: 255}}

	// segmentation outline colours, cycled
	palette = []color.NRGBA{
		{R: 255, A: 255},
		{G: 200, A: 255},
		{B: 255, A: 255},
		{G: 255, B: 255, A: 255},
		{R: 255, B: 255, A: 255},
		{R: 255, G: 255, A: 255},
	}
)

func orthogonalOptions(req Request, title string, n int) (compose.Options, error) {
	axes, err := req.Axes("display_modes")
	if err != nil {
		return compose.Options{}, err
	}
	if n, err = req.Int("n_cuts", n); err != nil {
		return compose.Options{}, err
	}
	return compose.Options{Axes: axes, NCuts: n, FigureTitle: title}, nil
}

func anatomical(b render.Backend, req Request) ([]*render.Panel, error) {
	v, err := req.volume("nii")
	if err != nil {
		return nil, err
	}
	opts, err := orthogonalOptions(req, "anatomical", cuts.DefaultCount)
	if err != nil {
		return nil, err
	}
	opts.AutoBrightness = true
	fig, err := compose.Orthogonal(b, v, opts)
	if err != nil {
		return nil, err
	}
	return fig.Panels, nil
}

// functional shows the first frame scaled to its own range.
func functional(b render.Backend, req Request) ([]*render.Panel, error) {
	v, err := req.volume("nii")
	if err != nil {
		return nil, err
	}
	if v, err = volume.Frame(v, 0); err != nil {
		return nil, err
	}
	opts, err := orthogonalOptions(req, "functional", cuts.DefaultCount)
	if err != nil {
		return nil, err
	}
	fig, err := compose.Orthogonal(b, v, opts)
	if err != nil {
		return nil, err
	}
	return fig.Panels, nil
}

func montage(b render.Backend, req Request) ([]*render.Panel, error) {
	v, err := req.volume("nii")
	if err != nil {
		return nil, err
	}
	axis, err := models.ParseAxis(req.String("axis", "z"))
	if err != nil {
		return nil, err
	}
	n, err := req.Int("n_cuts", compose.DefaultMontageCuts)
	if err != nil {
		return nil, err
	}
	columns, err := req.Int("columns", compose.DefaultColumns)
	if err != nil {
		return nil, err
	}
	auto, err := req.Bool("auto_brightness", false)
	if err != nil {
		return nil, err
	}
	opts := compose.Options{NCuts: n, AutoBrightness: auto, FigureTitle: req.String("title", "figure")}
	if _, err := compose.SplitRows(n, columns); err != nil {
		return nil, err
	}
	fig, err := compose.Montage(b, v, axis, columns, opts)
	if err != nil {
		return nil, err
	}
	return fig.Panels, nil
}

func registration(b render.Backend, req Request) ([]*render.Panel, error) {
	fixed, err := req.volume("fg_nii")
	if err != nil {
		return nil, err
	}
	moving, err := req.volume("bg_nii")
	if err != nil {
		return nil, err
	}
	var contour *models.Volume
	if req.Has("contours") {
		if contour, err = req.volume("contours"); err != nil {
			return nil, err
		}
	}
	return coregister(b, req, fixed, moving, contour)
}

// freesurferCoreg checks a volume against a FreeSurfer subject, outlining
// the cortical ribbon. The subject's T1 is the default background.
func freesurferCoreg(b render.Backend, req Request) ([]*render.Panel, error) {
	fsDir, err := req.Path("fs_dir")
	if err != nil {
		return nil, err
	}
	fixed, err := fsBackground(req, fsDir)
	if err != nil {
		return nil, err
	}
	moving, err := req.volume("fg_nii")
	if err != nil {
		return nil, err
	}
	ribbon, err := req.src.Volume(filepath.Join(fsDir, "mri", "ribbon.mgz"))
	if err != nil {
		return nil, err
	}
	return coregister(b, req, fixed, moving, ribbon)
}

func fsBackground(req Request, fsDir string) (*models.Volume, error) {
	if req.Has("bg_nii") {
		return req.volume("bg_nii")
	}
	return req.src.Volume(filepath.Join(fsDir, "mri", "T1.mgz"))
}

// coregister renders fixed and moving side by side per axis at the same
// cuts, each with its own intensity window. The contour volume, if any,
// bounds the cuts and is outlined on both.
func coregister(b render.Backend, req Request, fixed, moving, contour *models.Volume) ([]*render.Panel, error) {
	fixed, err := volume.Frame(fixed, 0)
	if err != nil {
		return nil, err
	}
	if moving, err = volume.Frame(moving, 0); err != nil {
		return nil, err
	}
	opts, err := orthogonalOptions(req, "fixed", OverlayCuts)
	if err != nil {
		return nil, err
	}
	opts.AutoBrightness = true

	var fixedMask, movingMask *models.Volume
	if contour != nil {
		if fixedMask, err = binaryOn(contour, fixed); err != nil {
			return nil, err
		}
		if movingMask, err = binaryOn(contour, moving); err != nil {
			return nil, err
		}
		opts.Mask = fixedMask
	}

	fx, err := compose.Orthogonal(b, fixed, opts)
	if err != nil {
		return nil, fmt.Errorf("fixed: %w", err)
	}

	opts.Mask, opts.FigureTitle = nil, "moving"
	plan, err := compose.NewPlan(moving, opts)
	if err != nil {
		return nil, fmt.Errorf("moving: %w", err)
	}
	plan.Box, plan.Cuts = fx.Plan.Box, fx.Plan.Cuts
	opts.Plan = plan
	mv, err := compose.Orthogonal(b, moving, opts)
	if err != nil {
		return nil, fmt.Errorf("moving: %w", err)
	}

	panels := make([]*render.Panel, 0, 2*len(fx.Panels))
	for i := range fx.Panels {
		if contour != nil {
			if err := b.OverlayMask(fx.Panels[i], fixedMask, contourStyle); err != nil {
				return nil, err
			}
			if err := b.OverlayMask(mv.Panels[i], movingMask, contourStyle); err != nil {
				return nil, err
			}
		}
		panels = append(panels, fx.Panels[i], mv.Panels[i])
	}
	return panels, nil
}

// binaryOn resamples v onto ref's grid and sets every positive voxel to 1.
func binaryOn(v, ref *models.Volume) (*models.Volume, error) {
	r, err := volume.Resample(v, ref, volume.Nearest)
	if err != nil {
		return nil, err
	}
	for i, value := range r.Data {
		if value > 0 {
			r.Data[i] = 1
		} else {
			r.Data[i] = 0
		}
	}
	return r, nil
}

// segmentation outlines every label of every segmentation over the
// anatomical image, one colour per label.
func segmentation(b render.Backend, req Request) ([]*render.Panel, error) {
	anat, err := req.volume("anat_file")
	if err != nil {
		return nil, err
	}
	if anat, err = volume.Frame(anat, 0); err != nil {
		return nil, err
	}
	paths, err := req.Paths("seg_files")
	if err != nil {
		return nil, err
	}
	opts, err := orthogonalOptions(req, "segmentation", OverlayCuts)
	if err != nil {
		return nil, err
	}
	opts.AutoBrightness = true
	if req.Has("mask_file") {
		mask, err := req.volume("mask_file")
		if err != nil {
			return nil, err
		}
		if opts.Mask, err = binaryOn(mask, anat); err != nil {
			return nil, err
		}
	}

	fig, err := compose.Orthogonal(b, anat, opts)
	if err != nil {
		return nil, err
	}

	next := 0
	for _, path := range paths {
		seg, err := req.src.Volume(path)
		if err != nil {
			return nil, err
		}
		if seg, err = volume.Resample(seg, anat, volume.Nearest); err != nil {
			return nil, err
		}
		codes, err := labels.Codes(seg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		lut := make(labels.LUT, len(codes))
		for _, c := range codes {
			lut[c] = labels.RGB{}
		}
		rem, err := labels.Remap(seg, lut)
		if err != nil {
			return nil, err
		}
		masks := rem.Masks()
		for _, rank := range rem.Without(0) {
			style := render.MaskStyle{Color: palette[next%len(palette)]}
			next++
			for _, p := range fig.Panels {
				if err := b.OverlayMask(p, masks[rank], style); err != nil {
					return nil, err
				}
			}
		}
	}
	return fig.Panels, nil
}

// freesurferParcellation fills every parcel with its lookup table colour.
// Label ranks are computed on the parcellation grid and then resampled
// onto the background, so no rank is invented by interpolation.
func freesurferParcellation(b render.Backend, req Request) ([]*render.Panel, error) {
	fsDir, err := req.Path("fs_dir")
	if err != nil {
		return nil, err
	}
	bg, err := fsBackground(req, fsDir)
	if err != nil {
		return nil, err
	}
	if bg, err = volume.Frame(bg, 0); err != nil {
		return nil, err
	}
	parc, err := req.volume("parcellation")
	if err != nil {
		return nil, err
	}
	lutPath, err := req.Path("colortable")
	if err != nil {
		return nil, err
	}
	lut, err := req.src.LUT(lutPath)
	if err != nil {
		return nil, err
	}

	rem, err := labels.Remap(parc, lut)
	if err != nil {
		return nil, err
	}
	ranks, err := volume.Resample(rem.Volume, bg, volume.Nearest)
	if err != nil {
		return nil, err
	}
	resampled := &labels.Remapped{Volume: ranks, Codes: rem.Codes, Colors: rem.Colors}

	opts, err := orthogonalOptions(req, "parcellation", OverlayCuts)
	if err != nil {
		return nil, err
	}
	opts.AutoBrightness = true
	if req.Has("mask_nii") {
		mask, err := req.volume("mask_nii")
		if err != nil {
			return nil, err
		}
		if opts.Mask, err = binaryOn(mask, bg); err != nil {
			return nil, err
		}
	}
	fig, err := compose.Orthogonal(b, bg, opts)
	if err != nil {
		return nil, err
	}

	// Unknown (code 0) is left undrawn rather than filled black
	masks := resampled.Masks()
	for _, rank := range resampled.Without(0) {
		style := render.MaskStyle{Color: toNRGBA(resampled.Colors[rank]), Filled: true, Alpha: ParcellationAlpha}
		for _, p := range fig.Panels {
			if err := b.OverlayMask(p, masks[rank], style); err != nil {
				return nil, err
			}
		}
	}
	return fig.Panels, nil
}

func toNRGBA(c labels.RGB) color.NRGBA {
	u := func(f float64) uint8 { return uint8(f*255 + 0.5) }
	return color.NRGBA{R: u(c[0]), G: u(c[1]), B: u(c[2]), A: 255}
}
