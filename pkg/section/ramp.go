package section

import (
	"image/color"
	"math"

	"neuroqc/pkg/colormap"
)

// RampSize is the number of entries of the default overlay ramp.
const RampSize = 256

// OverlayRamp builds the foreground overlay ramp: reversed viridis colours
// whose alpha fades linearly from opaque (entry 0) to transparent (entry
// n-1), with entry 0 then cleared entirely so zero-valued foreground voxels
// never cover the background.
func OverlayRamp(n int) []color.NRGBA {
	if n <= 0 {
		return nil
	}
	ramp := colormap.Viridis.Reversed().Ramp(n)
	for i := range ramp {
		alpha := 1.0
		if n > 1 {
			alpha = 1 - float64(i)/float64(n-1)
		}
		ramp[i].A = uint8(math.Round(255 * alpha))
	}
	ramp[0] = color.NRGBA{}
	return ramp
}

// RampColor picks the ramp entry for a normalised value t. Values outside
// [0, 1] clamp to the end entries; NaN maps to the transparent entry 0.
func RampColor(ramp []color.NRGBA, t float64) color.NRGBA {
	if len(ramp) == 0 || math.IsNaN(t) {
		return color.NRGBA{}
	}
	i := int(math.Round(t * float64(len(ramp)-1)))
	if i < 0 {
		i = 0
	}
	if i >= len(ramp) {
		i = len(ramp) - 1
	}
	return ramp[i]
}
