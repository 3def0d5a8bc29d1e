package binning

import (
	"fmt"
	"math"
)

// Array is a dense numeric array: a dtype, the extent of each dimension and a
// typed Go slice ([]int8 … []float64) holding the elements, axis 0 fastest.
type Array struct {
	dtype Dtype
	dims  []int
	data  any
}

// NewArray allocates a zeroed array. The caller owns the returned buffer.
func NewArray(dt Dtype, dims ...int) (*Array, error) {
	n, err := numElements(dims)
	if err != nil {
		return nil, err
	}
	data, err := makeSlice(dt, n)
	if err != nil {
		return nil, err
	}
	return &Array{dtype: dt, dims: append([]int(nil), dims...), data: data}, nil
}

// FromSlice wraps data without copying it. len(data) must equal the product
// of dims.
func FromSlice[T Number](data []T, dims ...int) (*Array, error) {
	return wrap(data, dims)
}

func wrap(data any, dims []int) (*Array, error) {
	n, err := numElements(dims)
	if err != nil {
		return nil, err
	}
	dt, l, err := dtypeOfSlice(data)
	if err != nil {
		return nil, err
	}
	if l != n {
		return nil, fmt.Errorf("%w: %d elements for dimensions %v (%d elements)", ErrBufferSize, l, dims, n)
	}
	return &Array{dtype: dt, dims: append([]int(nil), dims...), data: data}, nil
}

func numElements(dims []int) (int, error) {
	if len(dims) == 0 {
		return 0, fmt.Errorf("%w: array without dimensions", ErrInvalidConfig)
	}
	n := 1
	for i, d := range dims {
		if d < 1 {
			return 0, fmt.Errorf("%w: dimension %d has extent %d", ErrInvalidConfig, i, d)
		}
		if d > math.MaxInt/n {
			return 0, fmt.Errorf("%w: dimensions %v exceed the addressable element count", ErrInvalidConfig, dims)
		}
		n *= d
	}
	return n, nil
}

func (a *Array) Dtype() Dtype { return a.dtype }

// Dims returns a copy of the extents.
func (a *Array) Dims() []int { return append([]int(nil), a.dims...) }

// Len is the number of elements.
func (a *Array) Len() int {
	_, n, _ := dtypeOfSlice(a.data)
	return n
}

// Data returns the typed element slice. It is shared, not copied.
func (a *Array) Data() any { return a.data }

func (a *Array) String() string {
	return fmt.Sprintf("<binning.Array %s %v>", a.dtype, a.dims)
}

// Values returns the elements of a as []T, failing if T does not match the
// dtype of a.
func Values[T Number](a *Array) ([]T, error) {
	v, ok := a.data.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: array holds %s, not %s", ErrBufferSize, a.dtype, DtypeOf[T]())
	}
	return v, nil
}

// shape checks that a is rank 4 and that its buffer matches its dimensions.
func (a *Array) shape() (Shape, error) {
	if a == nil || a.data == nil {
		return Shape{}, fmt.Errorf("%w: nil array", ErrBufferSize)
	}
	s, err := ShapeOf(a.dims)
	if err != nil {
		return s, err
	}
	if !a.dtype.Supported() {
		return s, fmt.Errorf("%w: %s", ErrUnsupportedDtype, a.dtype)
	}
	dt, n, err := dtypeOfSlice(a.data)
	if err != nil {
		return s, err
	}
	if !dt.Same(a.dtype) || n != s.Len() {
		return s, fmt.Errorf("%w: %s buffer of %d elements declared as %s %v",
			ErrBufferSize, dt, n, a.dtype, a.dims)
	}
	return s, nil
}
