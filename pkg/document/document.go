// Package document composes rendered panels into a single output file.
package document

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/render"
)

// Format names an output document type.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat validates a format name ("png" or "pdf", case-insensitive).
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatPNG, FormatPDF:
		return f, nil
	}
	return "", qcerr.Config("document", "unknown output format %q", name)
}

// FormatFor guesses the format from a file extension, defaulting to PNG.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return FormatPDF
	}
	return FormatPNG
}

// Writer serialises panels into one document at path.
type Writer interface {
	Write(path string, panels []*render.Panel) error
}

// ForFormat returns the writer for a format.
func ForFormat(f Format) (Writer, error) {
	switch f {
	case FormatPNG:
		return PNG{}, nil
	case FormatPDF:
		return PDF{}, nil
	}
	return nil, qcerr.Config("document", "unknown output format %q", string(f))
}

// Page is the stacked figure: every panel below the previous one on a
// black background.
type Page struct {
	Image *image.RGBA

	// Strokes holds every panel's polylines shifted to page coordinates
	Strokes []render.Polyline
}

// Layout stacks panels vertically, left aligned.
func Layout(panels []*render.Panel) (*Page, error) {
	if len(panels) == 0 {
		return nil, qcerr.Config("document", "no panels to compose")
	}
	width, height := 0, 0
	for i, p := range panels {
		if p == nil || p.Image == nil {
			return nil, qcerr.Shape("document", "panel %d has no image", i)
		}
		if w := p.Bounds().Dx(); w > width {
			width = w
		}
		height += p.Bounds().Dy()
	}

	page := &Page{Image: image.NewRGBA(image.Rect(0, 0, width, height))}
	draw.Draw(page.Image, page.Image.Bounds(), image.NewUniform(render.Black), image.Point{}, draw.Src)

	y := 0
	for _, p := range panels {
		dst := p.Bounds().Sub(p.Bounds().Min).Add(image.Pt(0, y))
		draw.Draw(page.Image, dst, p.Image, p.Bounds().Min, draw.Src)
		for _, s := range p.Strokes {
			shifted := s
			shifted.Points = make([][2]float64, len(s.Points))
			for i, q := range s.Points {
				shifted.Points[i] = [2]float64{q[0], q[1] + float64(y)}
			}
			page.Strokes = append(page.Strokes, shifted)
		}
		y += p.Bounds().Dy()
	}
	return page, nil
}

// writeAtomic lets write produce the document under a temporary name in
// the destination directory, then renames it into place. A failed write
// leaves neither a partial document nor the temporary file behind.
func writeAtomic(path string, write func(tmp string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move document into place: %w", err)
	}
	return nil
}
