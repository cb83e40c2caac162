package compose

import (
	"fmt"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/render"
)

const (
	// DefaultMontageCuts is the default number of montage cuts
	DefaultMontageCuts = 15

	// DefaultColumns is the default number of cuts per montage row
	DefaultColumns = 5
)

// Row is one montage row covering cuts [Start, End).
type Row struct {
	Start  int
	End    int
	Coords []float64
}

// SplitRows partitions n cuts into ceil(n/columns) contiguous rows. Only
// the last row may be shorter than columns.
func SplitRows(n, columns int) ([]Row, error) {
	if n <= 0 {
		return nil, qcerr.Config("compose", "montage needs a positive cut count, got %d", n)
	}
	if columns <= 0 {
		return nil, qcerr.Config("compose", "montage needs a positive column count, got %d", columns)
	}
	rows := make([]Row, 0, (n+columns-1)/columns)
	for start := 0; start < n; start += columns {
		rows = append(rows, Row{Start: start, End: min(start+columns, n)})
	}
	return rows, nil
}

// Montage renders the cuts of one axis in rows of columns slices, titled
// "<figureTitle>:<start>-<end>". opts.NCuts defaults to
// DefaultMontageCuts and columns to DefaultColumns.
func Montage(b render.Backend, v *models.Volume, axis models.Axis, columns int, opts Options) (*Figure, error) {
	if opts.NCuts == 0 {
		opts.NCuts = DefaultMontageCuts
	}
	if columns == 0 {
		columns = DefaultColumns
	}
	opts.Axes = []models.Axis{axis}

	plan, err := NewPlan(v, opts)
	if err != nil {
		return nil, err
	}
	coords := plan.Cuts[axis]
	rows, err := SplitRows(len(coords), columns)
	if err != nil {
		return nil, err
	}

	fig := &Figure{Plan: plan}
	for _, row := range rows {
		row.Coords = coords[row.Start:row.End]
		p, err := b.Slice(render.SliceRequest{
			Volume:   v,
			Axis:     axis,
			Coords:   row.Coords,
			Params:   plan.Params,
			Colormap: opts.Colormap,
			Title:    fmt.Sprintf("%s:%d-%d", opts.FigureTitle, row.Start, row.End),
		})
		if err != nil {
			return nil, fmt.Errorf("montage row %d-%d: %w", row.Start, row.End, err)
		}
		fig.Panels = append(fig.Panels, p)
	}
	return fig, nil
}
