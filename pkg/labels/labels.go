// Package labels remaps categorical label volumes (parcellations) to dense
// ranks and binds them to a colour table.
//
// Rank i always names the i-th smallest original code, and the colour table
// entry i is looked up with that original code, never with the rank.
package labels

import (
	"math"
	"sort"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
)

// RGB is a colour with components normalised to [0, 1].
type RGB [3]float64

// LUT maps original integer label codes to colours.
type LUT map[int]RGB

// Remapped is a rank-remapped label volume with its colour table.
type Remapped struct {
	// Volume holds the rank of each voxel's original code
	Volume *models.Volume

	// Codes are the distinct original codes, ascending; Codes[rank] is the
	// code that rank replaces
	Codes []int

	// Colors[rank] == lut[Codes[rank]]
	Colors []RGB
}

// Len returns the number of distinct labels.
func (r *Remapped) Len() int {
	return len(r.Codes)
}

// Codes returns the sorted distinct integer codes present in v. Voxel
// values are truncated toward zero, as label files store integers in
// floating point containers.
func Codes(v *models.Volume) ([]int, error) {
	seen := make(map[int]struct{})
	for i, value := range v.Data[:v.Len()] {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, qcerr.Shape("labels", "voxel %d holds non-finite label %v", i, value)
		}
		seen[int(value)] = struct{}{}
	}
	codes := make([]int, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes, nil
}

// Remap replaces each voxel's code by its 0-based rank among the sorted
// distinct codes and resolves the colour of every code through lut. A code
// absent from lut fails with a MissingMappingError naming it.
func Remap(v *models.Volume, lut LUT) (*Remapped, error) {
	codes, err := Codes(v)
	if err != nil {
		return nil, err
	}

	rank := make(map[int]int, len(codes))
	colors := make([]RGB, len(codes))
	for i, c := range codes {
		color, ok := lut[c]
		if !ok {
			return nil, qcerr.Missing("labels", "colour lookup table", c)
		}
		rank[c] = i
		colors[i] = color
	}

	out := models.NewLike(v)
	for i, value := range v.Data[:v.Len()] {
		out.Data[i] = float64(rank[int(value)])
	}
	return &Remapped{Volume: out, Codes: codes, Colors: colors}, nil
}

// Masks decomposes the rank volume into one binary (0/1) volume per rank,
// indexed 0..k-1. The slice is materialised so it can be walked any number
// of times.
func (r *Remapped) Masks() []*models.Volume {
	masks := make([]*models.Volume, len(r.Codes))
	for i := range masks {
		masks[i] = models.NewLike(r.Volume)
	}
	for i, value := range r.Volume.Data[:r.Volume.Len()] {
		rank := int(value)
		if rank >= 0 && rank < len(masks) {
			masks[rank].Data[i] = 1
		}
	}
	return masks
}

// Without returns the ranks whose original code differs from code
// (typically 0, "Unknown").
func (r *Remapped) Without(code int) []int {
	ranks := make([]int, 0, len(r.Codes))
	for i, c := range r.Codes {
		if c != code {
			ranks = append(ranks, i)
		}
	}
	return ranks
}
