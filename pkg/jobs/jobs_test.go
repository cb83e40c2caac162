package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"neuroqc/internal/models"
	"neuroqc/pkg/config"
	"neuroqc/pkg/labels"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/render"
	"neuroqc/pkg/surface"
)

// volumes serves synthetic volumes by path.
type volumes map[string]*models.Volume

func (v volumes) Volume(p string) (*models.Volume, error) {
	if vol, ok := v[p]; ok {
		return vol, nil
	}
	return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
}

func (volumes) Mesh(p string) (*models.Mesh, error)   { return nil, os.ErrNotExist }
func (volumes) LUT(p string) (labels.LUT, error)      { return nil, os.ErrNotExist }
func (volumes) Scalars(p string) ([][]float64, error) { return nil, os.ErrNotExist }
func (volumes) IndexTable(p string) (*surface.IndexTable, error) {
	return nil, os.ErrNotExist
}

func anatomy() *models.Volume {
	v := models.NewVolume(12, 12, 12, models.Identity)
	for z := 3; z < 9; z++ {
		for y := 3; y < 9; y++ {
			for x := 3; x < 9; x++ {
				v.Set(x, y, z, float64(x*y+z))
			}
		}
	}
	return v
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		Base:       "/in",
		OutDir:     t.TempDir(),
		Workers:    2,
		NewBackend: func() render.Backend { return &render.Raster{TileHeight: 24} },
		Source:     volumes{"/in/t1.nii": anatomy()},
	}
}

func testJobs() []config.Job {
	return []config.Job{
		{Name: "t1", Method: "anatomical", Output: "sub-01/t1.png", Args: map[string]string{"nii": "t1.nii"}},
		{Name: "bad", Method: "anatomical", Output: "sub-01/bad.png", Args: map[string]string{"nii": "none.nii"}},
		{Name: "unknown", Method: "flicker", Output: "sub-01/x.png"},
		{Name: "mont", Method: "montage", Output: "sub-01/mont.svg", Args: map[string]string{"nii": "t1.nii"}},
	}
}

func TestRunCollectsPerJobResults(t *testing.T) {
	r := newRunner(t)
	results := r.Run(context.Background(), testJobs())
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}

	if results[0].Err != nil || results[3].Err != nil {
		t.Fatalf("Expected good jobs to succeed: %v, %v", results[0].Err, results[3].Err)
	}
	if !errors.Is(results[1].Err, os.ErrNotExist) {
		t.Errorf("Expected missing input error, got %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, qcerr.ErrConfiguration) {
		t.Errorf("Expected unknown method error, got %v", results[2].Err)
	}
	if len(Failed(results)) != 2 {
		t.Errorf("Expected 2 failures, got %d", len(Failed(results)))
	}

	for _, i := range []int{0, 3} {
		if results[i].Job.Name != testJobs()[i].Name {
			t.Errorf("Result %d out of order: %s", i, results[i].Job.Name)
		}
		if _, err := os.Stat(results[i].Output); err != nil {
			t.Errorf("Output of %s missing: %v", results[i].Job.Name, err)
		}
	}
	if filepath.Ext(results[3].Output) != ".png" {
		t.Errorf("Expected svg output to become png, got %s", results[3].Output)
	}
	if _, err := os.Stat(results[1].Output); !os.IsNotExist(err) {
		t.Errorf("Failed job left an output behind")
	}
}

func TestRunSkipsExistingOutputs(t *testing.T) {
	r := newRunner(t)
	jobs := testJobs()[:1]
	first := r.Run(context.Background(), jobs)
	if first[0].Err != nil {
		t.Fatalf("First run failed: %v", first[0].Err)
	}
	info, _ := os.Stat(first[0].Output)

	second := r.Run(context.Background(), jobs)
	if !second[0].Skipped {
		t.Error("Expected existing output to be skipped")
	}
	after, _ := os.Stat(first[0].Output)
	if !after.ModTime().Equal(info.ModTime()) {
		t.Error("Skipped job rewrote its output")
	}

	r.Rewrite = true
	third := r.Run(context.Background(), jobs)
	if third[0].Skipped || third[0].Err != nil {
		t.Errorf("Expected rewrite, got %+v", third[0])
	}
}

func TestRunCancelled(t *testing.T) {
	r := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := r.Run(ctx, testJobs())
	for i, res := range results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("Job %d: expected cancellation, got %v", i, res.Err)
		}
	}
}

func TestOutputPath(t *testing.T) {
	r := &Runner{OutDir: "/out/qc", Format: "pdf"}
	cases := map[string]string{
		"a/b.png": "/out/qc/a/b.png",
		"a/b.PDF": "/out/qc/a/b.PDF",
		"a/b.svg": "/out/qc/a/b.pdf",
		"a/b":     "/out/qc/a/b.pdf",
	}
	for in, want := range cases {
		if got := r.OutputPath(config.Job{Output: in}); got != want {
			t.Errorf("OutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResultElapsed(t *testing.T) {
	r := newRunner(t)
	res := r.Run(context.Background(), testJobs()[:1])
	if res[0].Elapsed <= 0 || res[0].Elapsed > time.Minute {
		t.Errorf("Unexpected elapsed time %v", res[0].Elapsed)
	}
}
