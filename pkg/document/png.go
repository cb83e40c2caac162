package document

import (
	"bufio"
	"fmt"
	"image/png"
	"os"

	"neuroqc/pkg/render"
)

// PNG writes the stacked page as one PNG image.
type PNG struct{}

// Write implements Writer.
func (PNG) Write(path string, panels []*render.Panel) error {
	page, err := Layout(panels)
	if err != nil {
		return err
	}
	return writeAtomic(path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		w := bufio.NewWriter(f)
		if err := png.Encode(w, page.Image); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}
