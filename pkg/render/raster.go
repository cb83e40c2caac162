package render

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/glog"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"neuroqc/internal/models"
	"neuroqc/pkg/colormap"
	"neuroqc/pkg/intensity"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/section"
	"neuroqc/pkg/volume"
)

const (
	// DefaultTileHeight is the pixel height of one slice tile
	DefaultTileHeight = 192

	// TitleHeight is the height of the title band above the tiles
	TitleHeight = 18
)

// Black is the figure background.
var Black = color.RGBA{A: 255}

// Raster is the image-based Backend.
type Raster struct {
	TileHeight int

	// SurfaceSize is the edge length of one surface view in pixels
	SurfaceSize int
}

// NewRaster returns a backend with the default tile sizes.
func NewRaster() *Raster {
	return &Raster{TileHeight: DefaultTileHeight, SurfaceSize: DefaultSurfaceSize}
}

func (r *Raster) tileHeight() int {
	if r.TileHeight <= 0 {
		return DefaultTileHeight
	}
	return r.TileHeight
}

// Slice renders one tile per coordinate of req.Coords along req.Axis.
func (r *Raster) Slice(req SliceRequest) (*Panel, error) {
	if req.Volume == nil {
		return nil, qcerr.Shape("render", "no volume to slice")
	}
	if err := req.Volume.Validate(); err != nil {
		return nil, qcerr.Shape("render", "%v", err)
	}
	if len(req.Coords) == 0 {
		return nil, qcerr.Config("render", "no cut coordinates for axis %s", req.Axis)
	}
	vol, err := volume.Frame(req.Volume, 0)
	if err != nil {
		return nil, err
	}
	o, err := orient(vol)
	if err != nil {
		return nil, err
	}

	lo, hi := volume.Range(vol)
	w := intensity.FromParams(req.Params, intensity.Window{Lower: lo, Upper: hi, Valid: true})
	cmap := req.Colormap
	if cmap == nil {
		cmap = colormap.Gray
	}

	height := r.tileHeight()
	tiles := make([]Tile, len(req.Coords))
	width := 0
	for i, c := range req.Coords {
		t := newTile(vol, o, req.Axis, c, height)
		t.Bounds = t.Bounds.Add(image.Pt(width, TitleHeight))
		width += t.Bounds.Dx()
		tiles[i] = t
	}

	img := image.NewRGBA(image.Rect(0, 0, width, TitleHeight+height))
	draw.Draw(img, img.Bounds(), image.NewUniform(Black), image.Point{}, draw.Src)

	for _, t := range tiles {
		values := t.native(vol)
		nat := image.NewNRGBA(image.Rect(0, 0, t.du, t.dv))
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			nat.SetNRGBA(i%t.du, i/t.du, cmap.At(w.Normalize(v)))
		}
		draw.ApproxBiLinear.Scale(img, t.Bounds, nat, nat.Bounds(), draw.Over, nil)
	}
	drawTitle(img, req.Title)

	glog.V(1).Infof("render: %q axis %s, %d tiles, window [%g, %g]", req.Title, req.Axis, len(tiles), w.Lower, w.Upper)
	return &Panel{Title: req.Title, Image: img, Tiles: tiles}, nil
}

func (r *Raster) overlayVolume(p *Panel, v *models.Volume) (*models.Volume, error) {
	if p == nil || p.Image == nil {
		return nil, qcerr.Shape("render", "overlay on an empty panel")
	}
	if v == nil {
		return nil, qcerr.Shape("render", "no overlay volume")
	}
	if err := v.Validate(); err != nil {
		return nil, qcerr.Shape("render", "%v", err)
	}
	v, err := volume.Frame(v, 0)
	if err != nil {
		return nil, err
	}
	for _, t := range p.Tiles {
		if !t.sameGrid(v) {
			return nil, qcerr.Shape("render", "overlay grid %dx%dx%d differs from the panel's %dx%dx%d",
				v.Width, v.Height, v.Depth, t.dims[0], t.dims[1], t.dims[2])
		}
	}
	return v, nil
}

// OverlayMask draws the voxels of mask above 0.5, filled or outlined.
func (r *Raster) OverlayMask(p *Panel, mask *models.Volume, style MaskStyle) error {
	mask, err := r.overlayVolume(p, mask)
	if err != nil {
		return err
	}

	for _, t := range p.Tiles {
		nat := image.NewAlpha(image.Rect(0, 0, t.du, t.dv))
		for i, v := range t.native(mask) {
			if v > 0.5 {
				nat.Pix[i] = 0xff
			}
		}
		scaled := image.NewAlpha(image.Rect(0, 0, t.Bounds.Dx(), t.Bounds.Dy()))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), nat, nat.Bounds(), draw.Src, nil)

		c := style.Color
		if style.Filled {
			c.A = uint8(math.Round(255 * clamp01(style.Alpha)))
		} else {
			scaled = outline(scaled)
			c.A = 0xff
		}
		draw.DrawMask(p.Image, t.Bounds, image.NewUniform(c), image.Point{}, scaled, image.Point{}, draw.Over)
	}
	return nil
}

// outline keeps the mask pixels that touch a non-mask pixel or the edge.
func outline(m *image.Alpha) *image.Alpha {
	b := m.Bounds()
	out := image.NewAlpha(b)
	inside := func(x, y int) bool {
		return x >= b.Min.X && y >= b.Min.Y && x < b.Max.X && y < b.Max.Y && m.AlphaAt(x, y).A != 0
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !inside(x, y) {
				continue
			}
			if !inside(x-1, y) || !inside(x+1, y) || !inside(x, y-1) || !inside(x, y+1) {
				out.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}
	return out
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// OverlayScalar draws v through ramp. Zero and NaN voxels stay transparent.
// An invalid window falls back to the range of v.
func (r *Raster) OverlayScalar(p *Panel, v *models.Volume, ramp []color.NRGBA, w intensity.Window) error {
	v, err := r.overlayVolume(p, v)
	if err != nil {
		return err
	}
	if len(ramp) == 0 {
		return qcerr.Config("render", "empty overlay ramp")
	}
	if !w.Valid {
		lo, hi := volume.Range(v)
		w = intensity.Window{Lower: lo, Upper: hi, Valid: true}
	}

	for _, t := range p.Tiles {
		nat := image.NewNRGBA(image.Rect(0, 0, t.du, t.dv))
		for i, value := range t.native(v) {
			if value == 0 || math.IsNaN(value) {
				continue
			}
			nat.SetNRGBA(i%t.du, i/t.du, section.RampColor(ramp, w.Normalize(value)))
		}
		draw.ApproxBiLinear.Scale(p.Image, t.Bounds, nat, nat.Bounds(), draw.Over, nil)
	}
	return nil
}

// OverlayContours strokes sections[i] over tile i of p. Each stroke is also
// recorded in p.Strokes.
func (r *Raster) OverlayContours(p *Panel, sections []section.Section, style Stroke) error {
	if p == nil || p.Image == nil {
		return qcerr.Shape("render", "overlay on an empty panel")
	}
	if len(sections) != len(p.Tiles) {
		return qcerr.Shape("render", "%d sections for %d tiles", len(sections), len(p.Tiles))
	}
	if style.Width <= 0 {
		style.Width = 1
	}

	for i, s := range sections {
		t := p.Tiles[i]
		if s.Axis != t.Axis {
			return qcerr.Shape("render", "section %d is along %s, tile along %s", i, s.Axis, t.Axis)
		}
		if s.Empty() {
			continue
		}

		ras := vector.NewRasterizer(t.Bounds.Dx(), t.Bounds.Dy())
		for _, c := range s.Contours {
			line := Polyline{Closed: c.Closed, Style: style, Points: make([][2]float64, len(c.Points))}
			for k, q := range c.Points {
				x, y := t.Pixel(q)
				line.Points[k] = [2]float64{x, y}
			}
			p.Strokes = append(p.Strokes, line)
			strokePolyline(ras, line, t.Bounds.Min)
		}
		ras.Draw(p.Image, t.Bounds, image.NewUniform(style.Color), image.Point{})
	}
	return nil
}
