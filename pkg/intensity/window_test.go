package intensity

import (
	"math"
	"testing"
)

func TestRobustIgnoresOutlier(t *testing.T) {
	sample := make([]float64, 1000)
	for i := range sample {
		sample[i] = float64(i % 100)
	}
	sample[500] = 1e9

	w := Robust(sample)
	if !w.Valid {
		t.Fatal("Expected a valid window")
	}
	if w.Upper > 100 {
		t.Errorf("Outlier leaked into window: upper=%f", w.Upper)
	}
	if w.Lower < 0 || w.Lower > 5 {
		t.Errorf("Unexpected lower bound %f", w.Lower)
	}
	if w.Lower > w.Upper {
		t.Errorf("Lower %f above upper %f", w.Lower, w.Upper)
	}
}

func TestRobustEmptySample(t *testing.T) {
	if w := Robust(nil); w.Valid {
		t.Errorf("Expected invalid window for empty sample, got %+v", w)
	}
	if w := Robust([]float64{math.NaN(), math.Inf(1)}); w.Valid {
		t.Errorf("Expected invalid window for non-finite sample, got %+v", w)
	}
}

func TestRobustConstantSample(t *testing.T) {
	w := Robust([]float64{3, 3, 3, 3})
	if !w.Valid || w.Lower != 3 || w.Upper != 3 {
		t.Errorf("Expected [3, 3], got %+v", w)
	}
	if got := w.Normalize(3); got != 1 {
		t.Errorf("Expected 1 for value on zero-width window, got %f", got)
	}
}

func TestMergeKeepsCallerParams(t *testing.T) {
	w := Window{Lower: 1, Upper: 9, Valid: true}

	merged := w.Merge(Params{ParamVMax: 100, "alpha": 0.5})
	if merged[ParamVMin] != 1 {
		t.Errorf("Expected vmin 1, got %f", merged[ParamVMin])
	}
	if merged[ParamVMax] != 100 {
		t.Errorf("Caller vmax was overridden: %f", merged[ParamVMax])
	}
	if merged["alpha"] != 0.5 {
		t.Errorf("Caller alpha lost")
	}

	caller := Params{}
	w.Merge(caller)
	if len(caller) != 0 {
		t.Error("Merge must not modify the caller's map")
	}

	if got := (Window{}).Merge(nil); len(got) != 0 {
		t.Errorf("Invalid window added parameters: %v", got)
	}
}

func TestNormalizeClamps(t *testing.T) {
	w := Window{Lower: 10, Upper: 20, Valid: true}
	cases := map[float64]float64{5: 0, 10: 0, 15: 0.5, 20: 1, 25: 1}
	for in, want := range cases {
		if got := w.Normalize(in); math.Abs(got-want) > 1e-12 {
			t.Errorf("Normalize(%f): expected %f, got %f", in, want, got)
		}
	}
}

func TestFromParams(t *testing.T) {
	w := FromParams(Params{ParamVMin: 4}, Window{Lower: 0, Upper: 10, Valid: true})
	if w.Lower != 4 || w.Upper != 10 {
		t.Errorf("Expected [4, 10], got %+v", w)
	}
	if w := FromParams(nil, Window{}); w.Valid {
		t.Errorf("Expected invalid window, got %+v", w)
	}
}
