package volume

import (
	"errors"
	"math"
	"testing"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
)

// createTestVolume fills a volume with value x+10y+100z
func createTestVolume(w, h, d int, affine models.Affine) *models.Volume {
	v := models.NewVolume(w, h, d, affine)
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v.Set(x, y, z, float64(x+10*y+100*z))
			}
		}
	}
	return v
}

func TestFrame(t *testing.T) {
	v := &models.Volume{
		Data:   make([]float64, 2*2*2*3),
		Width:  2,
		Height: 2,
		Depth:  2,
		Frames: 3,
		Affine: models.Identity,
	}
	for i := range v.Data {
		v.Data[i] = float64(i / 8)
	}

	f, err := Frame(v, 2)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if f.Is4D() || len(f.Data) != 8 {
		t.Fatalf("Expected a 3D volume with 8 voxels, got frames=%d len=%d", f.Frames, len(f.Data))
	}
	for i, value := range f.Data {
		if value != 2 {
			t.Errorf("Voxel %d: expected 2, got %f", i, value)
		}
	}

	if _, err := Frame(v, 3); !errors.Is(err, qcerr.ErrConfiguration) {
		t.Errorf("Expected configuration error for frame 3, got %v", err)
	}

	v3 := createTestVolume(2, 2, 2, models.Identity)
	same, err := Frame(v3, 0)
	if err != nil || same != v3 {
		t.Errorf("Expected identity mapping for 3D volume")
	}
}

func TestInverse(t *testing.T) {
	a := models.Affine{
		2, 0, 0, -10,
		0, 3, 0, 5,
		0, 0, 4, 1,
		0, 0, 0, 1,
	}
	inv, err := Inverse(a)
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	world := a.Apply(1, 2, 3)
	back := inv.ApplyVec(world)
	if math.Abs(back.X-1) > 1e-9 || math.Abs(back.Y-2) > 1e-9 || math.Abs(back.Z-3) > 1e-9 {
		t.Errorf("Expected (1,2,3), got %v", back)
	}

	if _, err := Inverse(models.Affine{}); !errors.Is(err, qcerr.ErrInputShape) {
		t.Errorf("Expected shape error for singular affine, got %v", err)
	}
}

func TestResampleSameGrid(t *testing.T) {
	src := createTestVolume(3, 3, 3, models.Identity)
	out, err := Resample(src, src, Linear)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	for i := range src.Data {
		if out.Data[i] != src.Data[i] {
			t.Fatalf("Voxel %d: expected %f, got %f", i, src.Data[i], out.Data[i])
		}
	}
}

func TestResampleUpsample(t *testing.T) {
	// Source voxels are 2mm, reference voxels are 1mm
	srcAffine := models.Affine{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	}
	src := createTestVolume(3, 3, 3, srcAffine)
	ref := models.NewVolume(5, 5, 5, models.Identity)

	lin, err := Resample(src, ref, Linear)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	// world (1,0,0) lies half way between source voxels 0 and 1
	if got := lin.At(1, 0, 0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected 0.5 at (1,0,0), got %f", got)
	}
	if got := lin.At(2, 2, 2); math.Abs(got-111) > 1e-9 {
		t.Errorf("Expected 111 at (2,2,2), got %f", got)
	}

	nn, err := Resample(src, ref, Nearest)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if got := nn.At(4, 4, 4); got != 222 {
		t.Errorf("Expected 222 at (4,4,4), got %f", got)
	}
}

func TestRange(t *testing.T) {
	v := models.NewVolume(3, 1, 1, models.Identity)
	copy(v.Data, []float64{math.NaN(), -2, 7})
	lo, hi := Range(v)
	if lo != -2 || hi != 7 {
		t.Errorf("Expected (-2, 7), got (%f, %f)", lo, hi)
	}
}
