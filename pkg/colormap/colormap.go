// Package colormap provides the continuous colour maps used to display
// intensities, scalar maps and overlays.
package colormap

import (
	"image/color"
	"math"
	"sort"
	"strings"

	"neuroqc/pkg/qcerr"
)

// Map is a piecewise linear colour map over [0, 1].
type Map struct {
	Name    string
	anchors []color.NRGBA
}

// New builds a map from evenly spaced anchor colours.
func New(name string, anchors ...color.NRGBA) *Map {
	return &Map{Name: name, anchors: anchors}
}

// At returns the colour at t. Values outside [0, 1] clamp to the end
// colours; NaN returns the first colour.
func (m *Map) At(t float64) color.NRGBA {
	n := len(m.anchors)
	if n == 0 {
		return color.NRGBA{}
	}
	if n == 1 || math.IsNaN(t) || t <= 0 {
		return m.anchors[0]
	}
	if t >= 1 {
		return m.anchors[n-1]
	}

	pos := t * float64(n-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := m.anchors[i], m.anchors[i+1]
	return color.NRGBA{
		R: lerp(a.R, b.R, f),
		G: lerp(a.G, b.G, f),
		B: lerp(a.B, b.B, f),
		A: lerp(a.A, b.A, f),
	}
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}

// Reversed returns the map traversed from 1 to 0, named with an "_r"
// suffix.
func (m *Map) Reversed() *Map {
	rev := make([]color.NRGBA, len(m.anchors))
	for i, c := range m.anchors {
		rev[len(rev)-1-i] = c
	}
	name := strings.TrimSuffix(m.Name, "_r")
	if name == m.Name {
		name += "_r"
	}
	return New(name, rev...)
}

// Ramp samples n evenly spaced colours from the map, first entry at t=0 and
// last at t=1.
func (m *Map) Ramp(n int) []color.NRGBA {
	if n <= 0 {
		return nil
	}
	ramp := make([]color.NRGBA, n)
	if n == 1 {
		ramp[0] = m.At(0)
		return ramp
	}
	for i := range ramp {
		ramp[i] = m.At(float64(i) / float64(n-1))
	}
	return ramp
}

func rgb(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

var (
	// Gray runs from black to white
	Gray = New("gray", rgb(0, 0, 0), rgb(255, 255, 255))

	// Viridis is the perceptually uniform blue-green-yellow map
	Viridis = New("viridis",
		rgb(68, 1, 84), rgb(72, 36, 117), rgb(65, 68, 135), rgb(53, 95, 141),
		rgb(42, 120, 142), rgb(33, 145, 140), rgb(34, 168, 132), rgb(68, 191, 112),
		rgb(122, 209, 81), rgb(189, 223, 38), rgb(253, 231, 37))

	// Magma runs from black through purple and orange to pale yellow
	Magma = New("magma",
		rgb(0, 0, 4), rgb(20, 14, 54), rgb(59, 15, 112), rgb(100, 26, 128),
		rgb(140, 41, 129), rgb(183, 55, 121), rgb(222, 73, 104), rgb(247, 112, 92),
		rgb(254, 159, 109), rgb(254, 207, 146), rgb(252, 253, 191))

	// Hot runs from black through red and yellow to white
	Hot = New("hot",
		rgb(0, 0, 0), rgb(170, 0, 0), rgb(255, 85, 0), rgb(255, 255, 0),
		rgb(255, 255, 128), rgb(255, 255, 255))

	// Red is a constant red, used for contours
	Red = New("red", rgb(255, 0, 0))
)

var registry = map[string]*Map{
	Gray.Name:    Gray,
	Viridis.Name: Viridis,
	Magma.Name:   Magma,
	Hot.Name:     Hot,
	Red.Name:     Red,
}

// ByName looks a map up by name. A "_r" suffix selects the reversed map.
func ByName(name string) (*Map, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if m, ok := registry[name]; ok {
		return m, nil
	}
	if base, ok := registry[strings.TrimSuffix(name, "_r")]; ok && strings.HasSuffix(name, "_r") {
		return base.Reversed(), nil
	}
	return nil, qcerr.Config("colormap", "unknown colour map %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Names lists the registered map names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
