package render

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"neuroqc/internal/models"
	"neuroqc/pkg/colormap"
	"neuroqc/pkg/intensity"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/section"
)

// zRamp returns a 4x4x4 volume whose intensity equals the z index.
func zRamp(aff models.Affine) *models.Volume {
	v := models.NewVolume(4, 4, 4, aff)
	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				v.Set(x, y, z, float64(z))
			}
		}
	}
	return v
}

var unitWindow = intensity.Params{intensity.ParamVMin: 0, intensity.ParamVMax: 1}

func TestSliceTilesAndWindow(t *testing.T) {
	r := &Raster{TileHeight: 8}
	p, err := r.Slice(SliceRequest{Volume: zRamp(models.Identity), Axis: models.Z, Coords: []float64{0, 3}, Title: "anat-z"})
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if len(p.Tiles) != 2 {
		t.Fatalf("Expected 2 tiles, got %d", len(p.Tiles))
	}
	if p.Bounds().Dx() != 16 || p.Bounds().Dy() != TitleHeight+8 {
		t.Errorf("Unexpected panel size %v", p.Bounds())
	}
	if p.Tiles[0].Slice != 0 || p.Tiles[1].Slice != 3 {
		t.Errorf("Expected slices 0 and 3, got %d and %d", p.Tiles[0].Slice, p.Tiles[1].Slice)
	}

	dark := p.Image.RGBAAt(p.Tiles[0].Bounds.Min.X+4, p.Tiles[0].Bounds.Min.Y+4)
	bright := p.Image.RGBAAt(p.Tiles[1].Bounds.Min.X+4, p.Tiles[1].Bounds.Min.Y+4)
	if dark.R != 0 || bright.R != 255 {
		t.Errorf("Expected black then white tiles, got %v and %v", dark, bright)
	}

	// a caller window saturates the first tile as well
	p, err = r.Slice(SliceRequest{Volume: zRamp(models.Identity), Axis: models.Z, Coords: []float64{0},
		Params: intensity.Params{intensity.ParamVMin: -1, intensity.ParamVMax: 0}})
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if got := p.Image.RGBAAt(p.Tiles[0].Bounds.Min.X+4, p.Tiles[0].Bounds.Min.Y+4); got.R != 255 {
		t.Errorf("Expected saturated tile, got %v", got)
	}
}

func TestSliceErrors(t *testing.T) {
	r := NewRaster()
	if _, err := r.Slice(SliceRequest{Volume: zRamp(models.Identity), Axis: models.Z}); !errors.Is(err, qcerr.ErrConfiguration) {
		t.Errorf("Expected configuration error for no coordinates, got %v", err)
	}
	bad := zRamp(models.Identity)
	bad.Data = bad.Data[:10]
	if _, err := r.Slice(SliceRequest{Volume: bad, Axis: models.Z, Coords: []float64{1}}); !errors.Is(err, qcerr.ErrInputShape) {
		t.Errorf("Expected shape error for truncated data, got %v", err)
	}
}

func TestTilePixel(t *testing.T) {
	r := &Raster{TileHeight: 8}
	p, err := r.Slice(SliceRequest{Volume: zRamp(models.Identity), Axis: models.Z, Coords: []float64{1}})
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	tile := p.Tiles[0]
	x, y := tile.Pixel(r2.Vec{X: 1, Y: 2})
	if x != 3 || y != float64(TitleHeight)+3 {
		t.Errorf("Expected pixel (3, %d), got (%f, %f)", TitleHeight+3, x, y)
	}

	flipped := models.Identity
	flipped[0] = -1
	flipped[3] = 3
	p, err = r.Slice(SliceRequest{Volume: zRamp(flipped), Axis: models.Z, Coords: []float64{1}})
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	// world x=1 is voxel 2, shown in column 1 once the axis is flipped back
	x, _ = p.Tiles[0].Pixel(r2.Vec{X: 1, Y: 2})
	if x != 3 {
		t.Errorf("Expected flipped pixel x 3, got %f", x)
	}
}

func TestOverlayMaskFilledAndOutline(t *testing.T) {
	r := &Raster{TileHeight: 8}
	base := models.NewVolume(4, 4, 1, models.Identity)
	mask := models.NewLike(base)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			mask.Set(x, y, 0, 1)
		}
	}

	req := SliceRequest{Volume: base, Axis: models.Z, Coords: []float64{0}, Params: unitWindow}
	p, err := r.Slice(req)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	red := color.NRGBA{R: 255, A: 255}
	if err := r.OverlayMask(p, mask, MaskStyle{Color: red, Filled: true, Alpha: 1}); err != nil {
		t.Fatalf("OverlayMask failed: %v", err)
	}
	b := p.Tiles[0].Bounds
	if got := p.Image.RGBAAt(b.Min.X+4, b.Min.Y+4); got.R != 255 || got.G != 0 {
		t.Errorf("Expected red fill, got %v", got)
	}

	p, _ = r.Slice(req)
	if err := r.OverlayMask(p, mask, MaskStyle{Color: red}); err != nil {
		t.Fatalf("OverlayMask failed: %v", err)
	}
	if got := p.Image.RGBAAt(b.Min.X, b.Min.Y+4); got.R != 255 {
		t.Errorf("Expected red outline on the tile edge, got %v", got)
	}
	if got := p.Image.RGBAAt(b.Min.X+4, b.Min.Y+4); got.R == 255 {
		t.Errorf("Outline must leave the interior untouched, got %v", got)
	}

	if err := r.OverlayMask(p, models.NewVolume(2, 2, 2, models.Identity), MaskStyle{}); !errors.Is(err, qcerr.ErrInputShape) {
		t.Errorf("Expected shape error for mismatched grid, got %v", err)
	}
}

func TestOverlayScalarLeavesZeroTransparent(t *testing.T) {
	r := &Raster{TileHeight: 8}
	base := zRamp(models.Identity)
	p, err := r.Slice(SliceRequest{Volume: base, Axis: models.Z, Coords: []float64{3}})
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	before := p.Image.RGBAAt(p.Tiles[0].Bounds.Min.X+4, p.Tiles[0].Bounds.Min.Y+4)

	fg := models.NewLike(base)
	if err := r.OverlayScalar(p, fg, section.OverlayRamp(section.RampSize), intensity.Window{}); err != nil {
		t.Fatalf("OverlayScalar failed: %v", err)
	}
	after := p.Image.RGBAAt(p.Tiles[0].Bounds.Min.X+4, p.Tiles[0].Bounds.Min.Y+4)
	if before != after {
		t.Errorf("Zero overlay changed the tile: %v -> %v", before, after)
	}
}

func TestOverlayContours(t *testing.T) {
	r := &Raster{TileHeight: 16}
	base := models.NewVolume(8, 8, 8, models.Identity)
	p, err := r.Slice(SliceRequest{Volume: base, Axis: models.Z, Coords: []float64{2, 5}, Params: unitWindow})
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}

	square := section.Contour{Closed: true, Points: []r2.Vec{{X: 1, Y: 1}, {X: 6, Y: 1}, {X: 6, Y: 6}, {X: 1, Y: 6}}}
	sections := []section.Section{
		{Axis: models.Z, Coord: 2, Contours: []section.Contour{square}},
		{Axis: models.Z, Coord: 5},
	}
	style := Stroke{Color: color.NRGBA{R: 255, A: 255}, Width: 2}
	if err := r.OverlayContours(p, sections, style); err != nil {
		t.Fatalf("OverlayContours failed: %v", err)
	}
	if len(p.Strokes) != 1 {
		t.Fatalf("Expected 1 recorded stroke, got %d", len(p.Strokes))
	}

	x, y := p.Tiles[0].Pixel(r2.Vec{X: 1, Y: 3})
	if got := p.Image.RGBAAt(int(x), int(y)); got.R < 128 {
		t.Errorf("Expected red stroke at (%f, %f), got %v", x, y, got)
	}
	second := p.Tiles[1].Bounds
	if got := p.Image.RGBAAt(second.Min.X+3, second.Min.Y+3); got.R != 0 {
		t.Errorf("Empty section must not draw, got %v", got)
	}

	if err := r.OverlayContours(p, sections[:1], style); !errors.Is(err, qcerr.ErrInputShape) {
		t.Errorf("Expected shape error for section count mismatch, got %v", err)
	}
}

func TestHStack(t *testing.T) {
	r := &Raster{TileHeight: 8}
	a, _ := r.Slice(SliceRequest{Volume: zRamp(models.Identity), Axis: models.Z, Coords: []float64{0}})
	b, _ := r.Slice(SliceRequest{Volume: zRamp(models.Identity), Axis: models.Z, Coords: []float64{1, 2}})

	s := HStack("row", a, b)
	if s.Bounds().Dx() != a.Bounds().Dx()+b.Bounds().Dx() {
		t.Errorf("Unexpected stacked width %d", s.Bounds().Dx())
	}
	if len(s.Tiles) != 3 {
		t.Fatalf("Expected 3 tiles, got %d", len(s.Tiles))
	}
	if s.Tiles[1].Bounds.Min.X != a.Bounds().Dx() {
		t.Errorf("Second panel tiles not shifted: %v", s.Tiles[1].Bounds)
	}
}

func tetra() *models.Mesh {
	return &models.Mesh{
		Vertices: []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 10, Z: 0}, {X: 0, Y: 0, Z: 10}, {X: 5, Y: 3, Z: 3}},
		Faces:    [][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}},
	}
}

func TestSurfaceRendersMesh(t *testing.T) {
	r := &Raster{SurfaceSize: 64}
	values := []float64{1, 2, 3, math.NaN()}
	p, err := r.Surface(SurfaceRequest{
		Mesh: tetra(), Values: values, View: Lateral, Hemi: "left",
		Colormap: colormap.Magma, Darkness: DefaultDarkness, Title: "lateral left",
	})
	if err != nil {
		t.Fatalf("Surface failed: %v", err)
	}
	if p.Bounds().Dx() != 64 || p.Bounds().Dy() != TitleHeight+64 {
		t.Errorf("Unexpected surface panel size %v", p.Bounds())
	}

	lit := 0
	for y := TitleHeight; y < p.Bounds().Dy(); y++ {
		for x := 0; x < 64; x++ {
			if c := p.Image.RGBAAt(x, y); c.R != 0 || c.G != 0 || c.B != 0 {
				lit++
			}
		}
	}
	if lit < 64*64/5 {
		t.Errorf("Expected the mesh to cover a large part of the view, %d pixels lit", lit)
	}
	if c := p.Image.RGBAAt(1, p.Bounds().Dy()-1); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("Expected background corner, got %v", c)
	}
}

func TestSurfaceErrors(t *testing.T) {
	r := NewRaster()
	if _, err := r.Surface(SurfaceRequest{Mesh: tetra(), Values: []float64{1}, Hemi: "left"}); !errors.Is(err, qcerr.ErrInputShape) {
		t.Errorf("Expected shape error, got %v", err)
	}
	if _, err := r.Surface(SurfaceRequest{Mesh: tetra(), Hemi: "both"}); !errors.Is(err, qcerr.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
	if _, err := ParseView("oblique"); !errors.Is(err, qcerr.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
	if v, err := ParseView("Medial"); err != nil || v != Medial {
		t.Errorf("Expected medial view, got %v, %v", v, err)
	}
}

func TestCameraIsRightHanded(t *testing.T) {
	for _, hemi := range []string{"left", "right"} {
		for v := Lateral; v <= Posterior; v++ {
			right, up, toward, err := camera(v, hemi)
			if err != nil {
				t.Fatalf("camera(%s, %s): %v", v, hemi, err)
			}
			if r3.Cross(right, up) != toward {
				t.Errorf("camera(%s, %s) is not right-handed", v, hemi)
			}
		}
	}
	_, _, toward, _ := camera(Lateral, "left")
	if toward.X != -1 {
		t.Errorf("Left lateral view must look from -x, got %v", toward)
	}
}
