// Package intensity estimates robust display ranges from voxel intensities.
package intensity

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// LowerPercentile and UpperPercentile bound the robust window
	LowerPercentile = 2.0
	UpperPercentile = 98.0
)

// Render parameter names produced by Merge.
const (
	ParamVMin = "vmin"
	ParamVMax = "vmax"
)

// Window is a display intensity range. The zero value is invalid and tells
// the renderer to fall back to its own scaling.
type Window struct {
	Lower float64
	Upper float64
	Valid bool
}

// Robust returns the [2, 98] percentile window of the finite values of
// sample, so a single outlier voxel cannot compress the dynamic range.
func Robust(sample []float64) Window {
	return Percentiles(sample, LowerPercentile, UpperPercentile)
}

// Percentiles returns the [lo, hi] percentile window of the finite values
// of sample. An empty sample returns the invalid zero Window.
func Percentiles(sample []float64, lo, hi float64) Window {
	sorted := make([]float64, 0, len(sample))
	for _, v := range sample {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return Window{}
	}
	sort.Float64s(sorted)

	w := Window{
		Lower: stat.Quantile(lo/100, stat.LinInterp, sorted, nil),
		Upper: stat.Quantile(hi/100, stat.LinInterp, sorted, nil),
		Valid: true,
	}
	if w.Upper < w.Lower {
		w.Lower, w.Upper = w.Upper, w.Lower
	}
	return w
}

// Params holds named render parameters passed to the rendering backend.
type Params map[string]float64

// Merge returns a copy of params extended with the window's vmin/vmax.
// Keys already set by the caller are kept; an invalid window adds nothing.
func (w Window) Merge(params Params) Params {
	out := make(Params, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	if !w.Valid {
		return out
	}
	if _, ok := out[ParamVMin]; !ok {
		out[ParamVMin] = w.Lower
	}
	if _, ok := out[ParamVMax]; !ok {
		out[ParamVMax] = w.Upper
	}
	return out
}

// FromParams reads a window back from render parameters. Missing bounds
// are filled from fallback.
func FromParams(params Params, fallback Window) Window {
	w := fallback
	lo, hasLo := params[ParamVMin]
	hi, hasHi := params[ParamVMax]
	if hasLo {
		w.Lower = lo
	}
	if hasHi {
		w.Upper = hi
	}
	if hasLo || hasHi {
		w.Valid = true
	}
	if w.Upper < w.Lower {
		w.Lower, w.Upper = w.Upper, w.Lower
	}
	return w
}

// Normalize maps v into [0, 1] relative to the window, clamping outside
// values. A zero-width window maps everything at or above Lower to 1.
func (w Window) Normalize(v float64) float64 {
	span := w.Upper - w.Lower
	if span <= 0 {
		if v >= w.Lower {
			return 1
		}
		return 0
	}
	t := (v - w.Lower) / span
	return math.Max(0, math.Min(1, t))
}
