package loader

import (
	"encoding/binary"
	"io"
	"math"

	"neuroqc/internal/models"
	"neuroqc/pkg/qcerr"
)

const niftiHeaderSize = 348

// niftiHeader mirrors the packed 348-byte NIfTI-1 header.
type niftiHeader struct {
	SizeofHdr    int32
	DataType     [10]byte
	DBName       [18]byte
	Extents      int32
	SessionError int16
	Regular      byte
	DimInfo      byte
	Dim          [8]int16
	IntentP      [3]float32
	IntentCode   int16
	Datatype     int16
	Bitpix       int16
	SliceStart   int16
	Pixdim       [8]float32
	VoxOffset    float32
	SclSlope     float32
	SclInter     float32
	SliceEnd     int16
	SliceCode    byte
	XYZTUnits    byte
	CalMax       float32
	CalMin       float32
	SliceDur     float32
	TOffset      float32
	GLMax        int32
	GLMin        int32
	Descrip      [80]byte
	AuxFile      [24]byte
	QformCode    int16
	SformCode    int16
	Quatern      [3]float32
	QOffset      [3]float32
	SRowX        [4]float32
	SRowY        [4]float32
	SRowZ        [4]float32
	IntentName   [16]byte
	Magic        [4]byte
}

// NIfTI-1 datatype codes
const (
	dtUint8   = 2
	dtInt16   = 4
	dtInt32   = 8
	dtFloat32 = 16
	dtFloat64 = 64
	dtInt8    = 256
	dtUint16  = 512
	dtUint32  = 768
	dtInt64   = 1024
	dtUint64  = 1280
)

// ReadNIfTI decodes a single-file NIfTI-1 image (n+1). The affine comes
// from the sform when set, else the qform, else the voxel sizes. Values
// are scaled by scl_slope and scl_inter when the slope is non-zero.
func ReadNIfTI(r io.Reader) (*models.Volume, error) {
	raw := make([]byte, niftiHeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, qcerr.Shape("loader", "short NIfTI header: %v", err)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if int32(order.Uint32(raw)) != niftiHeaderSize {
		order = binary.BigEndian
		if int32(order.Uint32(raw)) != niftiHeaderSize {
			return nil, qcerr.Shape("loader", "not a NIfTI-1 header")
		}
	}
	var h niftiHeader
	if _, err := binary.Decode(raw, order, &h); err != nil {
		return nil, qcerr.Shape("loader", "NIfTI header: %v", err)
	}
	if string(h.Magic[:3]) != "n+1" {
		return nil, qcerr.Config("loader", "unsupported NIfTI magic %q", h.Magic[:3])
	}

	ndim := int(h.Dim[0])
	if ndim < 1 || ndim > 7 {
		return nil, qcerr.Shape("loader", "NIfTI dim[0] = %d", ndim)
	}
	dims := [7]int{1, 1, 1, 1, 1, 1, 1}
	for i := 0; i < ndim; i++ {
		dims[i] = int(h.Dim[i+1])
		if dims[i] <= 0 {
			return nil, qcerr.Shape("loader", "NIfTI dim[%d] = %d", i+1, dims[i])
		}
	}
	frames := dims[3] * dims[4] * dims[5] * dims[6]

	skip := int64(h.VoxOffset) - niftiHeaderSize
	if skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, qcerr.Shape("loader", "NIfTI extension: %v", err)
		}
	}

	v := &models.Volume{
		Width:  dims[0],
		Height: dims[1],
		Depth:  dims[2],
		Frames: frames,
		Affine: niftiAffine(&h),
	}
	data, err := readSamples(r, order, int(h.Datatype), v.Len()*frames)
	if err != nil {
		return nil, err
	}
	if slope := float64(h.SclSlope); slope != 0 && !math.IsNaN(slope) {
		inter := float64(h.SclInter)
		for i := range data {
			data[i] = data[i]*slope + inter
		}
	}
	v.Data = data
	return v, nil
}

func niftiAffine(h *niftiHeader) models.Affine {
	if h.SformCode > 0 {
		var a models.Affine
		for i, row := range [][4]float32{h.SRowX, h.SRowY, h.SRowZ} {
			for j, x := range row {
				a[4*i+j] = float64(x)
			}
		}
		a[15] = 1
		return a
	}

	dx, dy, dz := float64(h.Pixdim[1]), float64(h.Pixdim[2]), float64(h.Pixdim[3])
	for _, d := range []*float64{&dx, &dy, &dz} {
		if *d <= 0 {
			*d = 1
		}
	}
	if h.QformCode <= 0 {
		a := models.Identity
		a[0], a[5], a[10] = dx, dy, dz
		return a
	}

	b, c, d := float64(h.Quatern[0]), float64(h.Quatern[1]), float64(h.Quatern[2])
	aq := math.Sqrt(math.Max(0, 1-(b*b+c*c+d*d)))
	qfac := 1.0
	if h.Pixdim[0] < 0 {
		qfac = -1
	}
	rot := [3][3]float64{
		{aq*aq + b*b - c*c - d*d, 2 * (b*c - aq*d), 2 * (b*d + aq*c)},
		{2 * (b*c + aq*d), aq*aq + c*c - b*b - d*d, 2 * (c*d - aq*b)},
		{2 * (b*d - aq*c), 2 * (c*d + aq*b), aq*aq + d*d - c*c - b*b},
	}
	scale := [3]float64{dx, dy, dz * qfac}
	var a models.Affine
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a[4*i+j] = rot[i][j] * scale[j]
		}
		a[4*i+3] = float64(h.QOffset[i])
	}
	a[15] = 1
	return a
}

// readSamples decodes n voxels of the given NIfTI datatype.
func readSamples(r io.Reader, order binary.ByteOrder, datatype, n int) ([]float64, error) {
	size := map[int]int{
		dtUint8: 1, dtInt8: 1, dtInt16: 2, dtUint16: 2, dtInt32: 4, dtUint32: 4,
		dtFloat32: 4, dtFloat64: 8, dtInt64: 8, dtUint64: 8,
	}[datatype]
	if size == 0 {
		return nil, qcerr.Config("loader", "unsupported NIfTI datatype %d", datatype)
	}
	buf := make([]byte, n*size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, qcerr.Shape("loader", "expected %d voxels: %v", n, err)
	}

	out := make([]float64, n)
	for i := range out {
		b := buf[i*size:]
		switch datatype {
		case dtUint8:
			out[i] = float64(b[0])
		case dtInt8:
			out[i] = float64(int8(b[0]))
		case dtInt16:
			out[i] = float64(int16(order.Uint16(b)))
		case dtUint16:
			out[i] = float64(order.Uint16(b))
		case dtInt32:
			out[i] = float64(int32(order.Uint32(b)))
		case dtUint32:
			out[i] = float64(order.Uint32(b))
		case dtFloat32:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case dtFloat64:
			out[i] = math.Float64frombits(order.Uint64(b))
		case dtInt64:
			out[i] = float64(int64(order.Uint64(b)))
		case dtUint64:
			out[i] = float64(order.Uint64(b))
		}
	}
	return out, nil
}
