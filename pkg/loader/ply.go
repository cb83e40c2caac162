package loader

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
)

type plyElement struct {
	name       string
	count      int
	properties []string
}

// ReadPLY decodes an ASCII PLY mesh. Only the x, y and z vertex
// properties and the face index lists are kept; polygons with more than
// three corners are split into a triangle fan.
func ReadPLY(r io.Reader) (*models.Mesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	elements, err := readPLYHeader(scanner)
	if err != nil {
		return nil, err
	}

	mesh := &models.Mesh{}
	for _, el := range elements {
		for i := 0; i < el.count; i++ {
			if !scanner.Scan() {
				return nil, qcerr.Shape("loader", "PLY %s %d of %d missing", el.name, i, el.count)
			}
			fields := strings.Fields(scanner.Text())
			switch el.name {
			case "vertex":
				p, err := plyVertex(el, fields)
				if err != nil {
					return nil, err
				}
				mesh.Vertices = append(mesh.Vertices, p)
			case "face":
				faces, err := plyFace(fields)
				if err != nil {
					return nil, err
				}
				mesh.Faces = append(mesh.Faces, faces...)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := mesh.Validate(); err != nil {
		return nil, qcerr.Shape("loader", "%v", err)
	}
	return mesh, nil
}

func readPLYHeader(scanner *bufio.Scanner) ([]*plyElement, error) {
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "ply" {
		return nil, qcerr.Shape("loader", "missing PLY magic")
	}
	var elements []*plyElement
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 || fields[1] != "ascii" {
				return nil, qcerr.Config("loader", "unsupported PLY format %q", strings.Join(fields[1:], " "))
			}
		case "element":
			if len(fields) != 3 {
				return nil, qcerr.Shape("loader", "bad PLY element line %q", scanner.Text())
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, qcerr.Shape("loader", "bad PLY element count %q", fields[2])
			}
			elements = append(elements, &plyElement{name: fields[1], count: count})
		case "property":
			if len(elements) == 0 {
				return nil, qcerr.Shape("loader", "PLY property before any element")
			}
			el := elements[len(elements)-1]
			el.properties = append(el.properties, fields[len(fields)-1])
		case "end_header":
			return elements, nil
		}
	}
	return nil, qcerr.Shape("loader", "PLY header not terminated")
}

func plyVertex(el *plyElement, fields []string) (r3.Vec, error) {
	if len(fields) < len(el.properties) {
		return r3.Vec{}, qcerr.Shape("loader", "PLY vertex has %d values, expected %d", len(fields), len(el.properties))
	}
	var p r3.Vec
	for i, name := range el.properties {
		var dst *float64
		switch name {
		case "x":
			dst = &p.X
		case "y":
			dst = &p.Y
		case "z":
			dst = &p.Z
		default:
			continue
		}
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return r3.Vec{}, qcerr.Shape("loader", "PLY vertex %s: %q", name, fields[i])
		}
		*dst = v
	}
	return p, nil
}

func plyFace(fields []string) ([][3]int, error) {
	if len(fields) == 0 {
		return nil, qcerr.Shape("loader", "empty PLY face")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 3 || len(fields) < n+1 {
		return nil, qcerr.Shape("loader", "bad PLY face %q", strings.Join(fields, " "))
	}
	idx := make([]int, n)
	for i := range idx {
		if idx[i], err = strconv.Atoi(fields[i+1]); err != nil {
			return nil, qcerr.Shape("loader", "bad PLY face index %q", fields[i+1])
		}
	}
	faces := make([][3]int, 0, n-2)
	for i := 1; i+1 < n; i++ {
		faces = append(faces, [3]int{idx[0], idx[i], idx[i+1]})
	}
	return faces, nil
}
