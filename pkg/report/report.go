// Package report turns a named QC method and its arguments into figure
// panels. Each Kind has one generator; generators read their inputs through
// a Source and draw through a render.Backend.
package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"neuroqc/internal/models"
	"neuroqc/pkg/labels"
	"neuroqc/pkg/loader"
	"neuroqc/pkg/qcerr"
	"neuroqc/pkg/render"
	"neuroqc/pkg/surface"
)

// Kind names a report method.
type Kind string

const (
	Anatomical             Kind = "anatomical"
	Functional             Kind = "functional"
	Registration           Kind = "registration"
	Segmentation           Kind = "segmentation"
	Surface                Kind = "surface"
	SurfaceCoreg           Kind = "surface_coreg"
	FreesurferCoreg        Kind = "freesurfer_coreg"
	FreesurferParcellation Kind = "freesurfer_parcellation"
	Montage                Kind = "montage"
)

// Generator builds the panels of one report.
type Generator func(b render.Backend, req Request) ([]*render.Panel, error)

var generators = map[Kind]Generator{
	Anatomical:             anatomical,
	Functional:             functional,
	Registration:           registration,
	Segmentation:           segmentation,
	Surface:                surfaceMap,
	SurfaceCoreg:           surfaceCoreg,
	FreesurferCoreg:        freesurferCoreg,
	FreesurferParcellation: freesurferParcellation,
	Montage:                montage,
}

// Kinds returns the supported methods, sorted.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(generators))
	for k := range generators {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ParseKind validates a method name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := generators[k]; !ok {
		return "", qcerr.Config("report", "unknown method %q", name)
	}
	return k, nil
}

// Source resolves file arguments to data.
type Source interface {
	Volume(path string) (*models.Volume, error)
	Mesh(path string) (*models.Mesh, error)
	LUT(path string) (labels.LUT, error)
	Scalars(path string) ([][]float64, error)
	IndexTable(path string) (*surface.IndexTable, error)
}

// Files reads arguments from disk with the loader package.
type Files struct{}

func (Files) Volume(path string) (*models.Volume, error)          { return loader.Volume(path) }
func (Files) Mesh(path string) (*models.Mesh, error)              { return loader.Mesh(path) }
func (Files) LUT(path string) (labels.LUT, error)                 { return loader.LUT(path) }
func (Files) Scalars(path string) ([][]float64, error)            { return loader.Scalars(path) }
func (Files) IndexTable(path string) (*surface.IndexTable, error) { return loader.IndexTable(path) }

// Request is one report to generate: a method and its arguments. It is
// never modified once built.
type Request struct {
	kind Kind
	args map[string]string
	base string
	src  Source
}

// NewRequest validates kind and copies args. Relative paths are resolved
// against base; a nil src reads from disk.
func NewRequest(kind Kind, args map[string]string, base string, src Source) (Request, error) {
	if _, ok := generators[kind]; !ok {
		return Request{}, qcerr.Config("report", "unknown method %q", kind)
	}
	if src == nil {
		src = Files{}
	}
	copied := make(map[string]string, len(args))
	for k, v := range args {
		copied[k] = strings.TrimSpace(v)
	}
	return Request{kind: kind, args: copied, base: base, src: src}, nil
}

// Kind returns the report method.
func (r Request) Kind() Kind { return r.kind }

// Has reports whether key was given a non-empty value.
func (r Request) Has(key string) bool {
	return r.args[key] != ""
}

// String returns the argument or def.
func (r Request) String(key, def string) string {
	if v := r.args[key]; v != "" {
		return v
	}
	return def
}

// Path returns the argument resolved against the base directory.
func (r Request) Path(key string) (string, error) {
	v := r.args[key]
	if v == "" {
		return "", qcerr.Config("report", "%s: missing argument %q", r.kind, key)
	}
	return r.resolve(v), nil
}

func (r Request) resolve(p string) string {
	if filepath.IsAbs(p) || r.base == "" {
		return p
	}
	return filepath.Join(r.base, p)
}

// Paths splits a comma separated list of paths.
func (r Request) Paths(key string) ([]string, error) {
	v := r.args[key]
	if v == "" {
		return nil, qcerr.Config("report", "%s: missing argument %q", r.kind, key)
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, r.resolve(p))
		}
	}
	return out, nil
}

// Int parses an integer argument.
func (r Request) Int(key string, def int) (int, error) {
	v := r.args[key]
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, qcerr.Config("report", "%s: %s=%q is not an integer", r.kind, key, v)
	}
	return n, nil
}

// Float parses a floating point argument.
func (r Request) Float(key string, def float64) (float64, error) {
	v := r.args[key]
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, qcerr.Config("report", "%s: %s=%q is not a number", r.kind, key, v)
	}
	return f, nil
}

// Bool parses a boolean argument.
func (r Request) Bool(key string, def bool) (bool, error) {
	v := r.args[key]
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, qcerr.Config("report", "%s: %s=%q is not a boolean", r.kind, key, v)
	}
	return b, nil
}

// Axes parses a comma separated axis list such as "x,z". Missing means
// all three.
func (r Request) Axes(key string) ([]models.Axis, error) {
	v := r.args[key]
	if v == "" {
		return nil, nil
	}
	var axes []models.Axis
	for _, name := range strings.Split(v, ",") {
		a, err := models.ParseAxis(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		axes = append(axes, a)
	}
	return axes, nil
}

// volume loads the volume named by key.
func (r Request) volume(key string) (*models.Volume, error) {
	path, err := r.Path(key)
	if err != nil {
		return nil, err
	}
	return r.src.Volume(path)
}

// Generate runs the generator of req's kind.
func Generate(b render.Backend, req Request) ([]*render.Panel, error) {
	gen, ok := generators[req.kind]
	if !ok {
		return nil, qcerr.Config("report", "unknown method %q", req.kind)
	}
	panels, err := gen(b, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.kind, err)
	}
	glog.V(1).Infof("report: %s produced %d panels", req.kind, len(panels))
	return panels, nil
}
