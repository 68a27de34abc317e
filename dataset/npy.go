// Package dataset reads, writes and prepares ITOP-style depth datasets stored as NumPy arrays.
package dataset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
	"go.uber.org/multierr"
	"gorgonia.org/tensor"

	"go.viam.com/depthpose/pose"
)

const npyMagic = "\x93NUMPY"

var (
	npyDescrRE   = regexp.MustCompile(`'descr':\s*'([^']*)'`)
	npyFortranRE = regexp.MustCompile(`'fortran_order':\s*(False|True)`)
	npyShapeRE   = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

// npyHeader is the parsed header of a .npy file.
type npyHeader struct {
	descr   string
	fortran bool
	shape   []int
	// offset is where the array data starts.
	offset int
}

func parseNpyHeader(buf []byte) (npyHeader, error) {
	var h npyHeader
	if len(buf) < 10 || string(buf[:6]) != npyMagic {
		return h, errors.New("not a numpy file")
	}
	var headerLen int
	switch major := buf[6]; major {
	case 1:
		headerLen, h.offset = int(binary.LittleEndian.Uint16(buf[8:10])), 10
	case 2, 3:
		if len(buf) < 12 {
			return h, errors.New("truncated numpy header")
		}
		headerLen, h.offset = int(binary.LittleEndian.Uint32(buf[8:12])), 12
	default:
		return h, errors.Errorf("unsupported numpy format version %d", major)
	}
	if len(buf) < h.offset+headerLen {
		return h, errors.New("truncated numpy header")
	}
	header := buf[h.offset : h.offset+headerLen]
	h.offset += headerLen

	match := npyDescrRE.FindSubmatch(header)
	if match == nil {
		return h, errors.New("no dtype in numpy header")
	}
	h.descr = string(match[1])
	if match = npyFortranRE.FindSubmatch(header); match == nil {
		return h, errors.New("no fortran_order in numpy header")
	}
	h.fortran = string(match[1]) == "True"
	if match = npyShapeRE.FindSubmatch(header); match == nil {
		return h, errors.New("no shape in numpy header")
	}
	for _, dim := range strings.Split(string(match[1]), ",") {
		dim = strings.TrimSpace(dim)
		if dim == "" {
			continue
		}
		n, err := strconv.Atoi(dim)
		if err != nil {
			return h, errors.Wrapf(err, "bad shape %q", match[1])
		}
		h.shape = append(h.shape, n)
	}
	return h, nil
}

func isFloat16(descr string) bool {
	return descr == "<f2" || descr == "|f2" || descr == ">f2" || descr == "=f2"
}

// decodeFloat16 returns the half precision array of a .npy file as a Float32 tensor.
func decodeFloat16(buf []byte, h npyHeader) (*tensor.Dense, error) {
	if h.fortran {
		return nil, errors.New("fortran ordered arrays are not supported")
	}
	var order binary.ByteOrder = binary.LittleEndian
	if h.descr == ">f2" {
		order = binary.BigEndian
	}
	size := 1
	for _, n := range h.shape {
		size *= n
	}
	data := buf[h.offset:]
	if len(data) < 2*size {
		return nil, errors.Errorf("expected %d float16 values, file holds %d bytes", size, len(data))
	}
	values := make([]float32, size)
	for i := range values {
		values[i] = float16.Frombits(order.Uint16(data[2*i:])).Float32()
	}
	return tensor.New(tensor.WithShape(h.shape...), tensor.WithBacking(values)), nil
}

// ReadTensor reads a .npy file and returns its array with the dtype stored in the file.
// Half precision arrays are returned as Float32 tensors with dtype pose.Float16.
func ReadTensor(path string) (*tensor.Dense, tensor.Dtype, error) {
	//nolint:gosec
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, tensor.Dtype{}, err
	}
	h, err := parseNpyHeader(buf)
	if err != nil {
		return nil, tensor.Dtype{}, errors.Wrapf(err, "reading %s", path)
	}
	if isFloat16(h.descr) {
		t, err := decodeFloat16(buf, h)
		if err != nil {
			return nil, tensor.Dtype{}, errors.Wrapf(err, "reading %s", path)
		}
		return t, pose.Float16, nil
	}
	t := new(tensor.Dense)
	if err := t.ReadNpy(bytes.NewReader(buf)); err != nil {
		return nil, tensor.Dtype{}, errors.Wrapf(err, "reading %s", path)
	}
	return t, t.Dtype(), nil
}

// WriteTensor writes t to a .npy file in dtype, creating parent directories as needed.
// dtype differs from t's own dtype only for pose.Float16, written as '<f2'.
func WriteTensor(path string, t *tensor.Dense, dtype tensor.Dtype) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if dtype == pose.Float16 {
		return errors.Wrapf(writeFloat16(f, t), "writing %s", path)
	}
	return errors.Wrapf(t.WriteNpy(f), "writing %s", path)
}

func writeFloat16(f *os.File, t *tensor.Dense) error {
	values, err := pose.Float64s(t)
	if err != nil {
		return err
	}
	shape := make([]string, len(t.Shape()))
	for i, n := range t.Shape() {
		shape[i] = strconv.Itoa(n)
	}
	dims := strings.Join(shape, ", ")
	if len(shape) == 1 {
		dims += ","
	}
	header := fmt.Sprintf("{'descr': '<f2', 'fortran_order': False, 'shape': (%s), }", dims)
	// the data starts on a 64 byte boundary and the header ends with a newline
	header += strings.Repeat(" ", 63-(10+len(header))%64) + "\n"

	buf := make([]byte, 0, 10+len(header)+2*len(values))
	buf = append(buf, npyMagic...)
	buf = append(buf, 1, 0)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(header)))
	buf = append(buf, header...)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint16(buf, float16.Fromfloat32(float32(v)).Bits())
	}
	_, err = f.Write(buf)
	return err
}

// LoadDepth reads a frames x height x width depth array.
func LoadDepth(path string) (*pose.DepthBatch, error) {
	t, dtype, err := ReadTensor(path)
	if err != nil {
		return nil, err
	}
	db, err := pose.DepthBatchFromTensor(t)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return db, errors.Wrap(db.SetDtype(dtype), path)
}

// LoadJoints reads a frames x joints x dims joint array. Coordinates beyond the third are
// dropped.
func LoadJoints(path string) (*pose.Batch, error) {
	t, dtype, err := ReadTensor(path)
	if err != nil {
		return nil, err
	}
	var b *pose.Batch
	if shape := t.Shape(); len(shape) == 3 && shape[2] > 3 {
		b, err = keepCoordinates(t, 3)
	} else {
		b, err = pose.BatchFromTensor(t)
	}
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return b, errors.Wrap(b.SetDtype(dtype), path)
}

func keepCoordinates(t *tensor.Dense, dims int) (*pose.Batch, error) {
	shape := t.Shape()
	data, err := pose.Float64s(t)
	if err != nil {
		return nil, err
	}
	b, err := pose.NewBatch(pose.Shape{Frames: shape[0], Joints: shape[1], Dims: dims})
	if err != nil {
		return nil, err
	}
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			start := (i*shape[1] + j) * shape[2]
			b.Set(i, j, data[start:start+dims]...)
		}
	}
	return b, nil
}

// SaveDepth writes db in its dtype.
func SaveDepth(path string, db *pose.DepthBatch) error {
	t, err := db.Tensor()
	if err != nil {
		return err
	}
	return WriteTensor(path, t, db.Dtype())
}

// SaveJoints writes b in its dtype.
func SaveJoints(path string, b *pose.Batch) error {
	t, err := b.Tensor()
	if err != nil {
		return err
	}
	return WriteTensor(path, t, b.Dtype())
}
