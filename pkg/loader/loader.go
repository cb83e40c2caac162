// Package loader reads the inputs of a QC report from disk: NIfTI-1 and
// MGH volumes, ASCII PLY meshes, colour lookup tables, dense scalar tables
// and grayordinate index tables.
package loader

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"neuroqc/internal/models"
	"neuroqc/pkg/labels"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/surface"
)

// Volume reads a volume, choosing the format from the file extension:
// .nii and .nii.gz are NIfTI-1, .mgh and .mgz are FreeSurfer MGH.
func Volume(path string) (*models.Volume, error) {
	name := strings.ToLower(filepath.Base(path))
	var read func(io.Reader) (*models.Volume, error)
	switch {
	case strings.HasSuffix(name, ".nii"), strings.HasSuffix(name, ".nii.gz"):
		read = ReadNIfTI
	case strings.HasSuffix(name, ".mgh"), strings.HasSuffix(name, ".mgz"):
		read = ReadMGH
	default:
		return nil, qcerr.Config("loader", "unknown volume format %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening volume: %w", err)
	}
	defer f.Close()

	r, err := maybeGzip(f, strings.HasSuffix(name, ".gz") || strings.HasSuffix(name, ".mgz"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	v, err := read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	glog.V(1).Infof("loader: %s is %dx%dx%dx%d", path, v.Width, v.Height, v.Depth, v.Frames)
	return v, nil
}

func maybeGzip(r io.Reader, compressed bool) (io.Reader, error) {
	br := bufio.NewReader(r)
	if !compressed {
		return br, nil
	}
	return gzip.NewReader(br)
}

// Mesh reads an ASCII PLY surface.
func Mesh(path string) (*models.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening mesh: %w", err)
	}
	defer f.Close()

	m, err := ReadPLY(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LUT reads a FreeSurfer colour lookup table.
func LUT(path string) (labels.LUT, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening colour table: %w", err)
	}
	defer f.Close()
	return labels.ParseLUT(f)
}

// Scalars reads a dense scalar table from path; see ReadScalars.
func Scalars(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening scalar table: %w", err)
	}
	defer f.Close()
	return ReadScalars(f)
}

// ReadScalars reads one map per non-blank line, values separated by
// whitespace. "nan" entries are kept as NaN. A table holding a single value
// per line is one map written as a column and is promoted to a batch of one.
func ReadScalars(r io.Reader) ([][]float64, error) {
	var rows [][]float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, qcerr.Shape("loader", "scalar table line %d: bad value %q", lineNo, f)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(rows) > 1 && isColumn(rows) {
		column := make([]float64, len(rows))
		for i, row := range rows {
			column[i] = row[0]
		}
		return surface.Promote(column), nil
	}
	return rows, nil
}

func isColumn(rows [][]float64) bool {
	for _, row := range rows {
		if len(row) != 1 {
			return false
		}
	}
	return true
}

// IndexTable reads a grayordinate index table from YAML.
func IndexTable(path string) (*surface.IndexTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading index table: %w", err)
	}
	table := &surface.IndexTable{}
	if err := yaml.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("error parsing index table: %w", err)
	}
	return table, nil
}
