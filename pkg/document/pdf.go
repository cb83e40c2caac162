package document

import (
	"image"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
	pdfdoc "seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics/color"

	"neuroqc/pkg/render"
)

// PDF writes the stacked page as a single-page PDF, one point per pixel.
// Raster content becomes runs of RGB rectangles; contour strokes are
// redrawn as vector paths on top in their own colour.
type PDF struct{}

// Write implements Writer.
func (PDF) Write(path string, panels []*render.Panel) error {
	page, err := Layout(panels)
	if err != nil {
		return err
	}
	return writeAtomic(path, func(tmp string) error {
		return writePDF(tmp, page)
	})
}

func writePDF(path string, page *Page) error {
	b := page.Image.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	out, err := pdfdoc.CreateSinglePage(path, &pdf.Rectangle{URx: w, URy: h}, pdf.V1_7, nil)
	if err != nil {
		return err
	}

	out.SetFillColor(color.DeviceRGB{0, 0, 0})
	out.Rectangle(0, 0, w, h)
	out.Fill()

	// image rows run top to bottom
	out.Transform(matrix.Matrix{1, 0, 0, -1, 0, h})

	for _, run := range colorRuns(page.Image) {
		out.SetFillColor(deviceRGB(run.c.R, run.c.G, run.c.B))
		out.Rectangle(float64(run.x0), float64(run.y), float64(run.x1-run.x0), 1)
		out.Fill()
	}

	for _, s := range page.Strokes {
		if len(s.Points) < 2 {
			continue
		}
		c := s.Style.Color
		out.SetStrokeColor(deviceRGB(c.R, c.G, c.B))
		out.SetLineWidth(s.Style.Width)
		out.MoveTo(s.Points[0][0], s.Points[0][1])
		for _, q := range s.Points[1:] {
			out.LineTo(q[0], q[1])
		}
		if s.Closed {
			out.ClosePath()
		}
		out.Stroke()
	}
	return out.Close()
}

func deviceRGB(r, g, b uint8) color.DeviceRGB {
	return color.DeviceRGB{float64(r) / 255, float64(g) / 255, float64(b) / 255}
}

// run is a horizontal stretch of pixels sharing one colour.
type run struct {
	y, x0, x1 int
	c         rgb
}

type rgb struct{ R, G, B uint8 }

// colorRuns merges equal neighbouring pixels on each row of img. Black
// runs are dropped since the page is painted black first.
func colorRuns(img *image.RGBA) []run {
	b := img.Bounds()
	var runs []run
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := b.Min.X
		var cur rgb
		for x := b.Min.X; x <= b.Max.X; x++ {
			var c rgb
			if x < b.Max.X {
				p := img.RGBAAt(x, y)
				c = rgb{p.R, p.G, p.B}
			}
			if x == b.Max.X || (x > start && c != cur) {
				if cur != (rgb{}) {
					runs = append(runs, run{y: y - b.Min.Y, x0: start - b.Min.X, x1: x - b.Min.X, c: cur})
				}
				start = x
			}
			cur = c
		}
	}
	return runs
}
