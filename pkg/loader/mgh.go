package loader

import (
	"encoding/binary"
	"io"
	"math"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
)

const mghHeaderSize = 284

// MGH datatype codes
const (
	mghUchar = 0
	mghInt   = 1
	mghFloat = 3
	mghShort = 4
)

type mghHeader struct {
	Version   int32
	Dims      [4]int32
	Type      int32
	DOF       int32
	GoodRAS   int16
	VoxelSize [3]float32
	Mdc       [9]float32
	Center    [3]float32
}

// ReadMGH decodes an uncompressed FreeSurfer MGH volume (big-endian).
// Without a valid RAS block the volume is given the conformed coronal
// orientation at 1mm.
func ReadMGH(r io.Reader) (*models.Volume, error) {
	raw := make([]byte, mghHeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, qcerr.Shape("loader", "short MGH header: %v", err)
	}
	var h mghHeader
	if _, err := binary.Decode(raw, binary.BigEndian, &h); err != nil {
		return nil, qcerr.Shape("loader", "MGH header: %v", err)
	}
	if h.Version != 1 {
		return nil, qcerr.Config("loader", "unsupported MGH version %d", h.Version)
	}
	for i, d := range h.Dims {
		if d <= 0 {
			return nil, qcerr.Shape("loader", "MGH dimension %d is %d", i, d)
		}
	}

	size := map[int32]int{mghUchar: 1, mghInt: 4, mghFloat: 4, mghShort: 2}[h.Type]
	if size == 0 {
		return nil, qcerr.Config("loader", "unsupported MGH datatype %d", h.Type)
	}
	v := &models.Volume{
		Width:  int(h.Dims[0]),
		Height: int(h.Dims[1]),
		Depth:  int(h.Dims[2]),
		Frames: int(h.Dims[3]),
		Affine: mghAffine(&h),
	}
	n := v.Len() * v.Frames
	buf := make([]byte, n*size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, qcerr.Shape("loader", "expected %d voxels: %v", n, err)
	}

	v.Data = make([]float64, n)
	for i := range v.Data {
		b := buf[i*size:]
		switch h.Type {
		case mghUchar:
			v.Data[i] = float64(b[0])
		case mghInt:
			v.Data[i] = float64(int32(binary.BigEndian.Uint32(b)))
		case mghFloat:
			v.Data[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
		case mghShort:
			v.Data[i] = float64(int16(binary.BigEndian.Uint16(b)))
		}
	}
	return v, nil
}

// mghAffine builds vox2ras from the direction cosines, voxel sizes and the
// RAS coordinate of the volume centre.
func mghAffine(h *mghHeader) models.Affine {
	size := [3]float64{1, 1, 1}
	mdc := [9]float64{-1, 0, 0, 0, 0, -1, 0, 1, 0}
	var center [3]float64
	if h.GoodRAS > 0 {
		for i := range size {
			size[i] = float64(h.VoxelSize[i])
			center[i] = float64(h.Center[i])
		}
		for i := range mdc {
			mdc[i] = float64(h.Mdc[i])
		}
	}

	var a models.Affine
	for row := 0; row < 3; row++ {
		t := center[row]
		for col := 0; col < 3; col++ {
			m := mdc[3*col+row] * size[col]
			a[4*row+col] = m
			t -= m * float64(h.Dims[col]) / 2
		}
		a[4*row+3] = t
	}
	a[15] = 1
	return a
}
