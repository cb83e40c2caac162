package colormap

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"neuroqc/pkg/qcerr"
)

func TestAtEndpointsAndClamp(t *testing.T) {
	if got := Gray.At(0); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("Expected black at 0, got %v", got)
	}
	if got := Gray.At(1); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Expected white at 1, got %v", got)
	}
	if got := Gray.At(0.5); got.R != 128 || got.G != 128 || got.B != 128 {
		t.Errorf("Expected mid gray, got %v", got)
	}
	if Gray.At(-3) != Gray.At(0) || Gray.At(7) != Gray.At(1) {
		t.Error("Out-of-range values must clamp")
	}
	if Gray.At(math.NaN()) != Gray.At(0) {
		t.Error("NaN must map to the first colour")
	}
}

func TestReversed(t *testing.T) {
	r := Viridis.Reversed()
	if r.Name != "viridis_r" {
		t.Errorf("Expected viridis_r, got %s", r.Name)
	}
	if r.At(0) != Viridis.At(1) || r.At(1) != Viridis.At(0) {
		t.Error("Reversed map endpoints do not swap")
	}
	if r.Reversed().Name != "viridis" {
		t.Errorf("Double reversal should restore the name, got %s", r.Reversed().Name)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"gray", "Magma", "viridis_r", "hot", "red"} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q): %v", name, err)
		}
	}
	_, err := ByName("jet")
	if !errors.Is(err, qcerr.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestRamp(t *testing.T) {
	ramp := Magma.Ramp(5)
	if len(ramp) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(ramp))
	}
	if ramp[0] != Magma.At(0) || ramp[4] != Magma.At(1) {
		t.Error("Ramp must span the whole map")
	}
	if Magma.Ramp(0) != nil {
		t.Error("Expected nil ramp for n=0")
	}
}
