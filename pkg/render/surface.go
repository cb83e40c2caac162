package render

import (
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"neuroqc/internal/models"
	"neuroqc/pkg/colormap"
	"neuroqc/pkg/intensity"
	"neuroqc/pkg/qcerr"
)

const (
	// DefaultSurfaceSize is the edge length of a surface view in pixels
	DefaultSurfaceSize = 256

	// DefaultDarkness is the weight of the background map on the surface
	DefaultDarkness = 0.3

	surfaceMargin = 8
)

// View is a camera position around a hemisphere.
type View int

const (
	Lateral View = iota
	Medial
	Dorsal
	Ventral
	Anterior
	Posterior
)

var viewNames = []string{"lateral", "medial", "dorsal", "ventral", "anterior", "posterior"}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ParseView converts a view name to a View.
func ParseView(name string) (View, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range viewNames {
		if n == name {
			return View(i), nil
		}
	}
	return 0, qcerr.Config("render", "unknown surface view %q", name)
}

// SurfaceRequest asks for one view of a surface.
type SurfaceRequest struct {
	Mesh *models.Mesh

	// Values holds one scalar per vertex; NaN vertices show the background.
	// Nil renders the background only
	Values []float64

	// Background is an optional per-vertex map (sulcal depth) shading the
	// surface
	Background []float64

	View     View
	Hemi     string
	Colormap *colormap.Map

	// Window normalises Values; an invalid window uses their range
	Window   intensity.Window
	Darkness float64
	Title    string
}

// camera returns the screen axes and the direction towards the viewer.
func camera(view View, hemi string) (right, up, toward r3.Vec, err error) {
	x, y, z := r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1}
	neg := func(v r3.Vec) r3.Vec { return r3.Scale(-1, v) }

	if hemi != "left" && hemi != "right" {
		return right, up, toward, qcerr.Config("render", "unknown hemisphere %q", hemi)
	}
	fromLeft := (view == Lateral) == (hemi == "left")

	switch view {
	case Lateral, Medial:
		if fromLeft {
			return neg(y), z, neg(x), nil
		}
		return y, z, x, nil
	case Dorsal:
		return x, y, z, nil
	case Ventral:
		return neg(x), y, neg(z), nil
	case Anterior:
		return neg(x), z, y, nil
	case Posterior:
		return x, z, neg(y), nil
	}
	return right, up, toward, qcerr.Config("render", "unknown surface view %d", int(view))
}

// Surface renders an orthographic, flat-shaded view of req.Mesh with a
// depth buffer.
func (r *Raster) Surface(req SurfaceRequest) (*Panel, error) {
	mesh := req.Mesh
	if mesh == nil || len(mesh.Vertices) == 0 {
		return nil, qcerr.Shape("render", "empty surface")
	}
	if err := mesh.Validate(); err != nil {
		return nil, qcerr.Shape("render", "%v", err)
	}
	nv := len(mesh.Vertices)
	if req.Values != nil && len(req.Values) != nv {
		return nil, qcerr.Shape("render", "%d values for %d vertices", len(req.Values), nv)
	}
	if req.Background != nil && len(req.Background) != nv {
		return nil, qcerr.Shape("render", "%d background values for %d vertices", len(req.Background), nv)
	}
	right, up, toward, err := camera(req.View, req.Hemi)
	if err != nil {
		return nil, err
	}

	size := r.SurfaceSize
	if size <= 0 {
		size = DefaultSurfaceSize
	}
	cmap := req.Colormap
	if cmap == nil {
		cmap = colormap.Magma
	}
	w := req.Window
	if !w.Valid && req.Values != nil {
		w = finiteRange(req.Values)
	}

	// project
	sx := make([]float64, nv)
	sy := make([]float64, nv)
	depth := make([]float64, nv)
	for i, p := range mesh.Vertices {
		sx[i], sy[i], depth[i] = r3.Dot(p, right), r3.Dot(p, up), r3.Dot(p, toward)
	}
	cx := (floats.Min(sx) + floats.Max(sx)) / 2
	cy := (floats.Min(sy) + floats.Max(sy)) / 2
	extent := math.Max(floats.Max(sx)-floats.Min(sx), floats.Max(sy)-floats.Min(sy))
	scale := 1.0
	if extent > 0 {
		scale = float64(size-2*surfaceMargin) / extent
	}
	for i := range sx {
		sx[i] = float64(size)/2 + (sx[i]-cx)*scale
		sy[i] = float64(TitleHeight) + float64(size)/2 - (sy[i]-cy)*scale
	}

	shade := backgroundShade(mesh, req.Background, req.Darkness)

	img := image.NewRGBA(image.Rect(0, 0, size, TitleHeight+size))
	draw.Draw(img, img.Bounds(), image.NewUniform(Black), image.Point{}, draw.Src)
	zbuf := make([]float64, size*(TitleHeight+size))
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}

	for fi, f := range mesh.Faces {
		a, b, c := mesh.Vertices[f[0]], mesh.Vertices[f[1]], mesh.Vertices[f[2]]
		normal := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		light := 0.35
		if n := r3.Norm(normal); n > 0 {
			light += 0.65 * math.Abs(r3.Dot(normal, toward)) / n
		}

		base := shade[fi]
		col := color.NRGBA{A: 255}
		var rgb [3]float64
		if req.Values != nil {
			m := (req.Values[f[0]] + req.Values[f[1]] + req.Values[f[2]]) / 3
			if !math.IsNaN(m) {
				mc := cmap.At(w.Normalize(m))
				rgb = [3]float64{float64(mc.R) / 255 * base, float64(mc.G) / 255 * base, float64(mc.B) / 255 * base}
			} else {
				rgb = [3]float64{base, base, base}
			}
		} else {
			rgb = [3]float64{base, base, base}
		}
		col.R = uint8(math.Round(255 * clamp01(rgb[0]*light)))
		col.G = uint8(math.Round(255 * clamp01(rgb[1]*light)))
		col.B = uint8(math.Round(255 * clamp01(rgb[2]*light)))

		fillTriangle(img, zbuf, [3]int{f[0], f[1], f[2]}, sx, sy, depth, col)
	}
	drawTitle(img, req.Title)
	return &Panel{Title: req.Title, Image: img}, nil
}

// backgroundShade returns the grey level of every face: the background map,
// normalised to [0, 1] over its range and scaled by darkness, shown on a
// reversed grey ramp. Without a map every face gets the mid level.
func backgroundShade(mesh *models.Mesh, bg []float64, darkness float64) []float64 {
	shade := make([]float64, len(mesh.Faces))
	faceBg := make([]float64, len(mesh.Faces))
	for i := range faceBg {
		faceBg[i] = 0.5
	}
	if bg != nil {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i, f := range mesh.Faces {
			faceBg[i] = (bg[f[0]] + bg[f[1]] + bg[f[2]]) / 3
			if !math.IsNaN(faceBg[i]) {
				lo, hi = math.Min(lo, faceBg[i]), math.Max(hi, faceBg[i])
			}
		}
		for i, v := range faceBg {
			switch {
			case math.IsNaN(v):
				faceBg[i] = 0
			case hi > lo:
				faceBg[i] = (v - lo) / (hi - lo)
			default:
				faceBg[i] = 0
			}
		}
	}
	for i, v := range faceBg {
		shade[i] = 1 - clamp01(v*darkness)
	}
	return shade
}

func finiteRange(values []float64) intensity.Window {
	w := intensity.Window{Lower: math.Inf(1), Upper: math.Inf(-1)}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		w.Lower, w.Upper = math.Min(w.Lower, v), math.Max(w.Upper, v)
		w.Valid = true
	}
	if !w.Valid {
		return intensity.Window{}
	}
	return w
}

// fillTriangle rasterises one projected face into img, keeping the pixels
// nearer to the viewer than what zbuf already holds.
func fillTriangle(img *image.RGBA, zbuf []float64, f [3]int, sx, sy, depth []float64, c color.NRGBA) {
	b := img.Bounds()
	x0, y0 := sx[f[0]], sy[f[0]]
	x1, y1 := sx[f[1]], sy[f[1]]
	x2, y2 := sx[f[2]], sy[f[2]]

	area := (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
	if area == 0 {
		return
	}

	minX := clamp(int(math.Floor(math.Min(x0, math.Min(x1, x2)))), b.Min.X, b.Max.X-1)
	maxX := clamp(int(math.Ceil(math.Max(x0, math.Max(x1, x2)))), b.Min.X, b.Max.X-1)
	minY := clamp(int(math.Floor(math.Min(y0, math.Min(y1, y2)))), b.Min.Y, b.Max.Y-1)
	maxY := clamp(int(math.Ceil(math.Max(y0, math.Max(y1, y2)))), b.Min.Y, b.Max.Y-1)

	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			x, y := float64(px)+0.5, float64(py)+0.5
			w0 := ((x1-x)*(y2-y) - (x2-x)*(y1-y)) / area
			w1 := ((x2-x)*(y0-y) - (x0-x)*(y2-y)) / area
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*depth[f[0]] + w1*depth[f[1]] + w2*depth[f[2]]
			i := (py-b.Min.Y)*b.Dx() + (px - b.Min.X)
			if z <= zbuf[i] {
				continue
			}
			zbuf[i] = z
			img.SetRGBA(px, py, rgba)
		}
	}
}
