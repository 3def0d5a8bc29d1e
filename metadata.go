package binning

import (
	"encoding/json"
	"fmt"
)

type MetaType string

const (
	// MTAttributes stores userland metadata keyed by array name
	MTAttributes MetaType = ".zattrs"
	// MTArray is the key for storing metadata on an array store
	MTArray MetaType = ".zarray"
)

// FormatVersion is the zarr storage specification version of written arrays.
const FormatVersion = 2

// OrderF is the only layout written and read: the first dimension varies fastest.
const OrderF = "F"

type MetaTyper interface {
	MetaType() MetaType
}

var metaTypes = map[MetaType]struct{}{
	MTAttributes: {},
	MTArray:      {},
}

// relies on the fact that all keynames are 7 characters long
func KeyMetaType(s string) (mt MetaType, ok bool) {
	if len(s) < 7 {
		return mt, false
	}
	mt = MetaType(s[len(s)-7:])
	_, ok = metaTypes[mt]
	return mt, ok
}

// Attribute keys recorded next to binned arrays.
const (
	AttrOriginalShape = "binning:original_shape"
)

type Attributes map[string]interface{}

func (Attributes) MetaType() MetaType { return MTAttributes }

// OriginalShape returns the full resolution dimensions recorded for a binned
// array.
func (a Attributes) OriginalShape() ([]int, bool) {
	raw, ok := a[AttrOriginalShape]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []int:
		return append([]int(nil), v...), true
	case []interface{}:
		// decoded from JSON
		dims := make([]int, 0, len(v))
		for _, x := range v {
			f, ok := x.(float64)
			if !ok {
				return nil, false
			}
			dims = append(dims, int(f))
		}
		return dims, true
	}
	return nil, false
}

// ArrayMeta is the configuration metadata of a stored array, encoded as JSON
// under the ".zarray" key of the array's path.
type ArrayMeta struct {
	// An integer defining the version of the storage specification to which
	// the array store adheres.
	ZarrFormat int `json:"zarr_format"`
	// A list of integers defining the length of each dimension of the array.
	Shape []int `json:"shape"`
	// A list of integers defining the length of each dimension of a chunk of
	// the array. Arrays are written as one chunk, so Chunks equals Shape.
	Chunks []int `json:"chunks"`
	// Data type of the elements.
	Dtype Dtype `json:"dtype"`
	// Codec applied to the chunk bytes, or null if stored raw.
	Compressor *CompressionMeta `json:"compressor"`
	// A scalar value providing the default value to use for uninitialized
	// portions of the array, or null if no fill_value is to be used.
	FillValue interface{} `json:"fill_value"`
	// Either “C” or “F”, defining the layout of bytes within each chunk of the
	// array. “C” means row-major order, i.e., the last dimension varies fastest;
	// “F” means column-major order, i.e., the first dimension varies fastest.
	Order string `json:"order"`
	// Transforms which produced the stored values, outermost last.
	Filters []Filter `json:"filters"`
	// If present, either the string "." or "/" definining the separator placed
	// between the dimensions of a chunk. If the value is not set, then the
	// default MUST be assumed to be ".", leading to chunk keys of the form “0.0”.
	DimensionSeparator string `json:"dimension_separator,omitempty"`
}

func (a ArrayMeta) MetaType() MetaType { return MTArray }

// Validate checks the fields this package relies on when reading an array.
func (a *ArrayMeta) Validate() error {
	if a.ZarrFormat != FormatVersion {
		return fmt.Errorf("%w: unsupported zarr_format %d", ErrInvalidConfig, a.ZarrFormat)
	}
	if a.Order != OrderF {
		return fmt.Errorf("%w: unsupported order %q", ErrInvalidConfig, a.Order)
	}
	if _, err := numElements(a.Shape); err != nil {
		return err
	}
	if len(a.Chunks) != len(a.Shape) {
		return fmt.Errorf("%w: chunks %v do not match shape %v", ErrInvalidConfig, a.Chunks, a.Shape)
	}
	for i := range a.Shape {
		if a.Chunks[i] != a.Shape[i] {
			return fmt.Errorf("%w: chunked arrays are not supported (chunks %v, shape %v)",
				ErrInvalidConfig, a.Chunks, a.Shape)
		}
	}
	if !a.Dtype.Supported() {
		return fmt.Errorf("%w: %s", ErrUnsupportedDtype, a.Dtype)
	}
	return nil
}

// Binning returns the bin sizes of the binning filter, if the array was
// produced by Compress.
func (a *ArrayMeta) Binning() ([]int, bool) {
	for _, f := range a.Filters {
		if f.ID == Prefix {
			return f.Bins, true
		}
	}
	return nil, false
}

// Filter records a transform applied to the stored values.
type Filter struct {
	ID   string `json:"id"`
	Bins []int  `json:"bins,omitempty"`
}

// decodeMeta reads a JSON document into m.
func decodeMeta(data []byte, m MetaTyper) error {
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("reading %s: %w", m.MetaType(), err)
	}
	return nil
}
