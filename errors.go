package binning

import "errors"

var (
	// ErrInvalidConfig signals an invalid bin-size vector, shape rank or option value.
	ErrInvalidConfig = errors.New("binning: invalid configuration")
	// ErrUnsupportedDtype signals a numeric representation outside the supported set.
	ErrUnsupportedDtype = errors.New("binning: unsupported dtype")
	// ErrBufferSize signals a buffer whose length or dtype does not match its declared shape.
	ErrBufferSize = errors.New("binning: buffer size mismatch")
	// ErrIndexOutOfRange signals a coordinate or offset outside of a shape.
	ErrIndexOutOfRange = errors.New("binning: index out of range")
	// ErrInvariant signals a broken internal invariant, e.g. a bin without members.
	ErrInvariant = errors.New("binning: internal invariant violated")
)

// Status codes reported across the host boundary.
const (
	StatusOK               = 0
	StatusInvalidConfig    = 1
	StatusUnsupportedDtype = 2
	StatusBufferSize       = 3
	StatusIndexOutOfRange  = 4
	StatusInvariant        = 5
)

// Status flattens err into a status code and message for hosts which do not
// handle Go errors. A nil error yields StatusOK and an empty message.
func Status(err error) (code int, msg string) {
	switch {
	case err == nil:
		return StatusOK, ""
	case errors.Is(err, ErrUnsupportedDtype):
		code = StatusUnsupportedDtype
	case errors.Is(err, ErrBufferSize):
		code = StatusBufferSize
	case errors.Is(err, ErrIndexOutOfRange):
		code = StatusIndexOutOfRange
	case errors.Is(err, ErrInvariant):
		code = StatusInvariant
	default:
		code = StatusInvalidConfig
	}
	return code, err.Error()
}
