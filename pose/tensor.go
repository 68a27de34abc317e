package pose

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
	"gorgonia.org/tensor"
)

// Float16 marks batches stored on disk as IEEE 754 half precision floats. gorgonia has no
// half precision dtype, so Tensor returns such batches as Float32, which holds every
// float16 value exactly.
var Float16 = tensor.Dtype{Type: reflect.TypeOf(float16.Float16(0))}

// number interface for converting between numbers.
type number interface {
	constraints.Integer | constraints.Float
}

// convertNumberSlice converts any number slice into another number slice.
func convertNumberSlice[T1, T2 number](t1 []T1) []T2 {
	t2 := make([]T2, len(t1))
	for i := range t1 {
		t2[i] = T2(t1[i])
	}
	return t2
}

// CheckDtype returns an error unless batches can be converted to tensors of dtype.
func CheckDtype(dtype tensor.Dtype) error {
	switch dtype {
	case tensor.Float64, tensor.Float32, Float16,
		tensor.Int, tensor.Int8, tensor.Int16, tensor.Int32, tensor.Int64,
		tensor.Uint, tensor.Uint8, tensor.Uint16, tensor.Uint32, tensor.Uint64:
		return nil
	default:
		return errors.Errorf("unsupported dtype %v", dtype)
	}
}

// Float64s returns the tensor's values as float64s. A float64 tensor's backing slice is
// returned as is; other numeric dtypes are converted into a new slice.
func Float64s(t *tensor.Dense) ([]float64, error) {
	switch v := t.Data().(type) {
	case []float64:
		return v, nil
	case []float32:
		return convertNumberSlice[float32, float64](v), nil
	case []int:
		return convertNumberSlice[int, float64](v), nil
	case []int8:
		return convertNumberSlice[int8, float64](v), nil
	case []int16:
		return convertNumberSlice[int16, float64](v), nil
	case []int32:
		return convertNumberSlice[int32, float64](v), nil
	case []int64:
		return convertNumberSlice[int64, float64](v), nil
	case []uint:
		return convertNumberSlice[uint, float64](v), nil
	case []uint8:
		return convertNumberSlice[uint8, float64](v), nil
	case []uint16:
		return convertNumberSlice[uint16, float64](v), nil
	case []uint32:
		return convertNumberSlice[uint32, float64](v), nil
	case []uint64:
		return convertNumberSlice[uint64, float64](v), nil
	default:
		return nil, errors.Errorf("dont know how to convert tensor of %v into a []float64", t.Dtype())
	}
}

// NewTensor builds a tensor of the given shape and dtype from float64 values. Values are
// copied unless dtype is Float64. Float16 yields a Float32 tensor of values rounded to half
// precision.
func NewTensor(dtype tensor.Dtype, data []float64, shape ...int) (*tensor.Dense, error) {
	var backing interface{}
	switch dtype {
	case tensor.Float64:
		backing = data
	case tensor.Float32:
		backing = convertNumberSlice[float64, float32](data)
	case Float16:
		halves := make([]float32, len(data))
		for i, v := range data {
			halves[i] = float16.Fromfloat32(float32(v)).Float32()
		}
		backing = halves
	case tensor.Int:
		backing = convertNumberSlice[float64, int](data)
	case tensor.Int8:
		backing = convertNumberSlice[float64, int8](data)
	case tensor.Int16:
		backing = convertNumberSlice[float64, int16](data)
	case tensor.Int32:
		backing = convertNumberSlice[float64, int32](data)
	case tensor.Int64:
		backing = convertNumberSlice[float64, int64](data)
	case tensor.Uint:
		backing = convertNumberSlice[float64, uint](data)
	case tensor.Uint8:
		backing = convertNumberSlice[float64, uint8](data)
	case tensor.Uint16:
		backing = convertNumberSlice[float64, uint16](data)
	case tensor.Uint32:
		backing = convertNumberSlice[float64, uint32](data)
	case tensor.Uint64:
		backing = convertNumberSlice[float64, uint64](data)
	default:
		return nil, errors.Errorf("cannot build a tensor of unsupported dtype %v", dtype)
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing)), nil
}
