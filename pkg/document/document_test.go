package document

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/render"
)

func solidPanel(w, h int, c color.RGBA) *render.Panel {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return &render.Panel{Image: img}
}

func TestLayoutStacksPanels(t *testing.T) {
	a := solidPanel(10, 4, color.RGBA{R: 255, A: 255})
	b := solidPanel(6, 3, color.RGBA{G: 255, A: 255})
	b.Strokes = []render.Polyline{{Points: [][2]float64{{1, 1}, {2, 2}}}}

	page, err := Layout([]*render.Panel{a, b})
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if page.Image.Bounds() != image.Rect(0, 0, 10, 7) {
		t.Errorf("Unexpected page bounds %v", page.Image.Bounds())
	}
	if c := page.Image.RGBAAt(0, 0); c.R != 255 {
		t.Errorf("Expected first panel at the top, got %v", c)
	}
	if c := page.Image.RGBAAt(0, 5); c.G != 255 {
		t.Errorf("Expected second panel below, got %v", c)
	}
	if c := page.Image.RGBAAt(8, 5); c != render.Black {
		t.Errorf("Expected black padding, got %v", c)
	}
	if len(page.Strokes) != 1 || page.Strokes[0].Points[0][1] != 5 {
		t.Errorf("Strokes not shifted to page coordinates: %+v", page.Strokes)
	}

	if _, err := Layout(nil); !errors.Is(err, qcerr.ErrConfiguration) {
		t.Errorf("Expected configuration error for no panels, got %v", err)
	}
}

func TestPNGWriteIsAtomicAndDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "figure.png")
	panels := []*render.Panel{solidPanel(8, 8, color.RGBA{B: 200, A: 255})}

	if err := (PNG{}).Write(path, panels); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Output missing: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("Unexpected image size %v", img.Bounds())
	}

	if err := (PNG{}).Write(path, panels); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}
	second, _ := os.ReadFile(path)
	if !bytes.Equal(first, second) {
		t.Error("Identical inputs produced different bytes")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected only the document in the directory, found %d entries", len(entries))
	}
}

func TestPNGWriteFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "figure.png")
	if err := (PNG{}).Write(path, []*render.Panel{{}}); err == nil {
		t.Fatal("Expected an error for a panel without image")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Failed write left %d files behind", len(entries))
	}
}

func TestPDFWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figure.pdf")
	p := solidPanel(6, 4, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	p.Strokes = []render.Polyline{{
		Points: [][2]float64{{1, 1}, {5, 1}, {5, 3}},
		Closed: true,
		Style:  render.Stroke{Color: color.NRGBA{R: 255, A: 255}, Width: 0.5},
	}}
	if err := (PDF{}).Write(path, []*render.Panel{p}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Output missing: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("Output does not start with a PDF header: %q", data[:min(len(data), 8)])
	}
}

func TestColorRuns(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 6, 1))
	set := func(x int, c color.RGBA) { img.SetRGBA(x, 0, c) }
	red := color.RGBA{R: 255, A: 255}
	grey := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	set(0, red)
	set(1, red)
	set(2, color.RGBA{A: 255})
	set(3, grey)
	set(4, grey)
	set(5, color.RGBA{R: 200, G: 200, B: 201, A: 255})

	runs := colorRuns(img)
	want := []run{
		{y: 0, x0: 0, x1: 2, c: rgb{255, 0, 0}},
		{y: 0, x0: 3, x1: 5, c: rgb{200, 200, 200}},
		{y: 0, x0: 5, x1: 6, c: rgb{200, 200, 201}},
	}
	if len(runs) != len(want) {
		t.Fatalf("Expected %d runs, got %+v", len(want), runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("Run %d: expected %+v, got %+v", i, want[i], runs[i])
		}
	}
}

func TestDeviceRGBKeepsHue(t *testing.T) {
	got := deviceRGB(255, 0, 51)
	if got[0] != 1 || got[1] != 0 || got[2] != 0.2 {
		t.Errorf("Expected red to stay red, got %v", got)
	}
}

func TestFormats(t *testing.T) {
	if f, err := ParseFormat("PDF"); err != nil || f != FormatPDF {
		t.Errorf("Expected pdf, got %q, %v", f, err)
	}
	if _, err := ParseFormat("svg"); !errors.Is(err, qcerr.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
	if FormatFor("out/report.PDF") != FormatPDF || FormatFor("out/report.png") != FormatPNG {
		t.Error("Unexpected format guess")
	}
	if _, err := ForFormat(FormatPNG); err != nil {
		t.Errorf("ForFormat(png): %v", err)
	}
}
