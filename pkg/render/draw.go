package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// drawTitle writes title into the top band of img, white on a dark shadow.
func drawTitle(img *image.RGBA, title string) {
	if title == "" {
		return
	}
	face := basicfont.Face7x13
	x := img.Bounds().Min.X + 4
	y := img.Bounds().Min.Y + face.Metrics().Ascent.Ceil() + 2

	shadow := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{A: 180}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x + 1), Y: fixed.I(y + 1)},
	}
	shadow.DrawString(title)

	text := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	text.DrawString(title)
}

// strokePolyline adds the outline of a stroked polyline to ras. Each
// segment becomes a quad of the stroke width; all quads share one winding
// so overlaps saturate instead of cancelling.
func strokePolyline(ras *vector.Rasterizer, line Polyline, origin image.Point) {
	n := len(line.Points)
	if n < 2 {
		return
	}
	half := line.Style.Width / 2
	segment := func(a, b [2]float64) {
		dx, dy := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			return
		}
		// normal scaled to half the width
		nx, ny := -dy/l*half, dx/l*half
		// extend both ends so consecutive segments overlap at joints
		ex, ey := dx/l*half, dy/l*half
		ox, oy := float64(origin.X), float64(origin.Y)

		ras.MoveTo(float32(a[0]-ex+nx-ox), float32(a[1]-ey+ny-oy))
		ras.LineTo(float32(b[0]+ex+nx-ox), float32(b[1]+ey+ny-oy))
		ras.LineTo(float32(b[0]+ex-nx-ox), float32(b[1]+ey-ny-oy))
		ras.LineTo(float32(a[0]-ex-nx-ox), float32(a[1]-ey-ny-oy))
		ras.ClosePath()
	}
	for i := 1; i < n; i++ {
		segment(line.Points[i-1], line.Points[i])
	}
	if line.Closed && n > 2 {
		segment(line.Points[n-1], line.Points[0])
	}
}

// HStack places panels side by side under a single title. Tiles and strokes
// are carried over with their coordinates shifted.
func HStack(title string, panels ...*Panel) *Panel {
	width, height := 0, 0
	for _, p := range panels {
		width += p.Bounds().Dx()
		if h := p.Bounds().Dy(); h > height {
			height = h
		}
	}

	out := &Panel{Title: title, Image: image.NewRGBA(image.Rect(0, 0, width, height))}
	draw.Draw(out.Image, out.Image.Bounds(), image.NewUniform(Black), image.Point{}, draw.Src)

	x := 0
	for _, p := range panels {
		off := image.Pt(x, 0)
		draw.Draw(out.Image, p.Bounds().Add(off), p.Image, p.Bounds().Min, draw.Src)
		for _, t := range p.Tiles {
			t.Bounds = t.Bounds.Add(off)
			out.Tiles = append(out.Tiles, t)
		}
		for _, s := range p.Strokes {
			shifted := s
			shifted.Points = make([][2]float64, len(s.Points))
			for i, q := range s.Points {
				shifted.Points[i] = [2]float64{q[0] + float64(off.X), q[1] + float64(off.Y)}
			}
			out.Strokes = append(out.Strokes, shifted)
		}
		x += p.Bounds().Dx()
	}
	if title != "" {
		band := image.Rect(0, 0, width, TitleHeight)
		draw.Draw(out.Image, band, image.NewUniform(Black), image.Point{}, draw.Src)
		drawTitle(out.Image, title)
	}
	return out
}
