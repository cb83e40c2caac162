// Package render turns volumes, masks, scalar maps, section contours and
// surface meshes into raster panels. It implements the narrow rendering
// contract the view composers depend on; any other backend satisfying
// Backend can replace it.
package render

import (
	"image"
	"image/color"

	"neuroqc/internal/models"
	"neuroqc/pkg/colormap"
	"neuroqc/pkg/intensity"
	"neuroqc/pkg/section"
)

// Panel is one row of a figure: a title band above a strip of tiles.
type Panel struct {
	Title string
	Image *image.RGBA

	// Tiles are the slices of the panel in cut order; overlays are matched
	// to them by position
	Tiles []Tile

	// Strokes records every polyline drawn on the panel, in panel pixel
	// coordinates, so vector document writers can redraw them
	Strokes []Polyline
}

// Bounds returns the panel image bounds.
func (p *Panel) Bounds() image.Rectangle {
	return p.Image.Bounds()
}

// Polyline is a stroked path in panel pixel coordinates.
type Polyline struct {
	Points [][2]float64
	Closed bool
	Style  Stroke
}

// Stroke describes how contours are drawn.
type Stroke struct {
	Color color.NRGBA

	// Width is the line width in pixels
	Width float64
}

// MaskStyle describes how a binary mask is drawn.
type MaskStyle struct {
	Color color.NRGBA

	// Filled paints the whole mask with Color at Alpha; otherwise only its
	// outline is drawn, opaque
	Filled bool
	Alpha  float64
}

// SliceRequest asks the backend for one panel of slices of a volume.
type SliceRequest struct {
	Volume *models.Volume
	Axis   models.Axis
	Coords []float64

	// Params carries vmin/vmax; missing bounds fall back to the volume range
	Params   intensity.Params
	Colormap *colormap.Map
	Title    string
}

// Backend is the rendering contract used by the composers.
type Backend interface {
	// Slice renders one tile per coordinate along an axis
	Slice(req SliceRequest) (*Panel, error)

	// OverlayMask draws a binary mask (values > 0.5) over every tile
	OverlayMask(p *Panel, mask *models.Volume, style MaskStyle) error

	// OverlayScalar draws v through ramp, normalised by w, over every tile;
	// fully transparent ramp entries leave the tile untouched
	OverlayScalar(p *Panel, v *models.Volume, ramp []color.NRGBA, w intensity.Window) error

	// OverlayContours strokes sections[i] on tile i
	OverlayContours(p *Panel, sections []section.Section, style Stroke) error

	// Surface renders one view of a triangulated surface
	Surface(req SurfaceRequest) (*Panel, error)
}
