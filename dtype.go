package binning

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dtype describes the numeric representation of array elements, as a string
// following the NumPy array protocol type string (typestr) format. The format
// consists of 3 parts:
//   - One character describing the byteorder of the data:
//     "<": little-endian; ">": big-endian; "|": not-relevant)
//   - One character code giving the basic type of the array:
//     "i": integer; "u": unsigned integer; "f": floating point
//   - An integer specifying the number of bytes the type uses.
//
// Only the ten numeric dtypes listed below can be binned. Byte order only
// matters when arrays are persisted; in memory elements are native Go values.
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
}

// Supported dtypes.
var (
	Int8    = Dtype{BONotRelevant, BTInteger, 1}
	Int16   = Dtype{BOLittleEndian, BTInteger, 2}
	Int32   = Dtype{BOLittleEndian, BTInteger, 4}
	Int64   = Dtype{BOLittleEndian, BTInteger, 8}
	Uint8   = Dtype{BONotRelevant, BTUnsigned, 1}
	Uint16  = Dtype{BOLittleEndian, BTUnsigned, 2}
	Uint32  = Dtype{BOLittleEndian, BTUnsigned, 4}
	Uint64  = Dtype{BOLittleEndian, BTUnsigned, 8}
	Float32 = Dtype{BOLittleEndian, BTFloatingPoint, 4}
	Float64 = Dtype{BOLittleEndian, BTFloatingPoint, 8}
)

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = (*Dtype)(nil)
)

// ParseDtype parses a typestr like "<f8" or "|u1".
func ParseDtype(s string) (dt Dtype, err error) {
	// bug in python implementation uses HTML escape sequences when serializaing JSON
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid Dtype string. %q is too short", s)
	}

	boByte, s := s[0], s[1:]
	dt.ByteOrder, err = ParseByteOrder(rune(boByte))
	if err != nil {
		return dt, err
	}

	typeByte, s := s[0], s[1:]
	dt.BasicType, err = ParseBasicType(rune(typeByte))
	if err != nil {
		return dt, err
	}

	size, err := strconv.ParseInt(s, 10, 0)
	if err != nil {
		return dt, fmt.Errorf("invalid Dtype size %q: %w", s, err)
	}
	dt.ByteSize = int(size)
	return dt, nil
}

func (dt Dtype) String() string {
	return fmt.Sprintf("%s%s%d", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize)
}

// Same reports whether two dtypes denote the same in-memory representation,
// ignoring byte order.
func (dt Dtype) Same(other Dtype) bool {
	return dt.BasicType == other.BasicType && dt.ByteSize == other.ByteSize
}

// Supported reports whether arrays of this dtype can be binned.
func (dt Dtype) Supported() bool {
	switch dt.BasicType {
	case BTInteger, BTUnsigned:
		switch dt.ByteSize {
		case 1, 2, 4, 8:
			return true
		}
	case BTFloatingPoint:
		return dt.ByteSize == 4 || dt.ByteSize == 8
	}
	return false
}

func (dt Dtype) MarshalJSON() ([]byte, error) {
	return []byte(`"` + dt.String() + `"`), nil
}

func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return err
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}

	*dt = t
	return nil
}

// makeSlice allocates a zeroed typed slice of n elements for dt.
func makeSlice(dt Dtype, n int) (data any, err error) {
	if dt.Supported() && n > math.MaxInt/dt.ByteSize {
		return nil, fmt.Errorf("%w: %d elements of %s exceed the addressable size", ErrInvalidConfig, n, dt)
	}
	defer func() {
		// make panics with "len out of range" above the allocator limit
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("%w: cannot allocate %d elements of %s: %v", ErrInvalidConfig, n, dt, r)
		}
	}()
	switch dt.BasicType {
	case BTInteger:
		switch dt.ByteSize {
		case 1:
			return make([]int8, n), nil
		case 2:
			return make([]int16, n), nil
		case 4:
			return make([]int32, n), nil
		case 8:
			return make([]int64, n), nil
		}
	case BTUnsigned:
		switch dt.ByteSize {
		case 1:
			return make([]uint8, n), nil
		case 2:
			return make([]uint16, n), nil
		case 4:
			return make([]uint32, n), nil
		case 8:
			return make([]uint64, n), nil
		}
	case BTFloatingPoint:
		switch dt.ByteSize {
		case 4:
			return make([]float32, n), nil
		case 8:
			return make([]float64, n), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDtype, dt)
}

// dtypeOfSlice returns the dtype of a typed slice and its length.
func dtypeOfSlice(data any) (Dtype, int, error) {
	switch v := data.(type) {
	case []int8:
		return Int8, len(v), nil
	case []int16:
		return Int16, len(v), nil
	case []int32:
		return Int32, len(v), nil
	case []int64:
		return Int64, len(v), nil
	case []uint8:
		return Uint8, len(v), nil
	case []uint16:
		return Uint16, len(v), nil
	case []uint32:
		return Uint32, len(v), nil
	case []uint64:
		return Uint64, len(v), nil
	case []float32:
		return Float32, len(v), nil
	case []float64:
		return Float64, len(v), nil
	}
	return Dtype{}, 0, fmt.Errorf("%w: element type %T", ErrUnsupportedDtype, data)
}

// DtypeOf returns the dtype of Go element type T.
func DtypeOf[T Number]() Dtype {
	dt, _, _ := dtypeOfSlice([]T(nil))
	return dt
}

// Number is the set of element types arrays can hold.
type Number interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]struct{}{
	BONotRelevant:  {},
	BOLittleEndian: {},
	BOBigEndian:    {},
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := basicTypeNames[t]; !ok {
		return t, fmt.Errorf("unsupported basic type: %q", r)
	}
	return t, nil
}

func (bt BasicType) Human() string {
	return basicTypeNames[bt]
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
	BTComplex       BasicType = 'c'
)

// Boolean and complex are recognized when parsing but cannot be binned.
var basicTypeNames = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float",
	BTComplex:       "complex",
}
