package labels

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"neuroqc/pkg/qcerr"
)

// ParseLUT reads a FreeSurfer-style colour table. Blank lines and lines
// containing '#' are skipped; every other line holds
//
//	code name r g b alpha
//
// with r, g and b integers in [0, 255], normalised here to [0, 1].
func ParseLUT(r io.Reader) (LUT, error) {
	lut := make(LUT)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.Contains(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 6 {
			return nil, qcerr.Shape("labels", "colour table line %d: expected 6 fields, got %d", lineNo, len(fields))
		}

		code, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, qcerr.Shape("labels", "colour table line %d: bad code %q", lineNo, fields[0])
		}
		var rgb RGB
		for i, f := range fields[2:5] {
			c, err := strconv.Atoi(f)
			if err != nil || c < 0 || c > 255 {
				return nil, qcerr.Shape("labels", "colour table line %d: bad component %q", lineNo, f)
			}
			rgb[i] = float64(c) / 255
		}
		lut[code] = rgb
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lut, nil
}
