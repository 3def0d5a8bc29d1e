package binning

import (
	"fmt"
)

const (
	// Prefix is the name binning is registered under.
	Prefix = "binning"
	// Version of the transform.
	Version      = "0.0.1"
	MajorVersion = 0
	MinorVersion = 0
	PatchVersion = 1
)

// DefaultBins are the bin sizes of a new Compressor.
var DefaultBins = []int{2, 2, 1, 1}

// Plugin is the interface a host uses to drive a transform found in a Registry.
type Plugin interface {
	Prefix() string
	Version() string
	Compress(in *Array) (*Array, error)
	Decompress(in, out *Array) error
	Options() Options
	SetOptions(Options) error
	CheckOptions(Options) error
	Configuration() Options
	Documentation() Options
	Clone() Plugin
}

// Compressor bins arrays on Compress and restores them on Decompress.
//
// A Compressor holds configuration only. Concurrent calls are safe as long as
// the configuration is not changed while a call is running.
type Compressor struct {
	// Bins holds the bin size for each of the four axes. It is validated on use.
	Bins []int
	// Workers bounds the number of goroutines per call; <= 0 selects DefaultWorkers.
	Workers int
	// Rounding of integer means.
	Rounding Rounding
}

var _ Plugin = (*Compressor)(nil)

// New returns a Compressor with DefaultBins.
func New() *Compressor {
	return &Compressor{Bins: append([]int(nil), DefaultBins...)}
}

func (c *Compressor) Prefix() string  { return Prefix }
func (c *Compressor) Version() string { return Version }

func (c *Compressor) exec() Exec {
	return Exec{Workers: c.Workers, Rounding: c.Rounding}
}

// Compress bins in and returns a newly allocated array of the binned shape and
// the same dtype.
func (c *Compressor) Compress(in *Array) (*Array, error) {
	s, err := in.shape()
	if err != nil {
		return nil, c.fail("compress", err)
	}
	p, err := newBinProjection(s, c.Bins)
	if err != nil {
		return nil, c.fail("compress", err)
	}
	out, err := NewArray(in.dtype, p.Binned.Dims()...)
	if err != nil {
		return nil, c.fail("compress", err)
	}
	T().Debugf("binning: compress %s %v -> %v, bins %v", in.dtype, s, p.Binned, c.Bins)

	e := c.exec()
	switch data := in.data.(type) {
	case []int8:
		err = reduceTyped(p, data, out, e)
	case []int16:
		err = reduceTyped(p, data, out, e)
	case []int32:
		err = reduceTyped(p, data, out, e)
	case []int64:
		err = reduceTyped(p, data, out, e)
	case []uint8:
		err = reduceTyped(p, data, out, e)
	case []uint16:
		err = reduceTyped(p, data, out, e)
	case []uint32:
		err = reduceTyped(p, data, out, e)
	case []uint64:
		err = reduceTyped(p, data, out, e)
	case []float32:
		err = reduceTyped(p, data, out, e)
	case []float64:
		err = reduceTyped(p, data, out, e)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedDtype, in.dtype)
	}
	if err != nil {
		return nil, c.fail("compress", err)
	}
	return out, nil
}

func reduceTyped[T Number](p binProjection, in []T, out *Array, e Exec) error {
	return reduce(p, in, out.data.([]T), averagerFor[T](e.Rounding), e.Workers, e.grain())
}

// Decompress restores in, a binned array, into out. The shape and dtype of out
// determine the result: the expected binned shape is computed from the
// dimensions of out and the configured bins. A rank 4 input must have exactly
// these dimensions; an input of any other rank, e.g. a flat buffer handed over
// by a host, only needs the matching element count.
func (c *Compressor) Decompress(in, out *Array) error {
	s, err := out.shape()
	if err != nil {
		return c.fail("decompress", err)
	}
	p, err := newBinProjection(s, c.Bins)
	if err != nil {
		return c.fail("decompress", err)
	}
	if in == nil || in.data == nil {
		return c.fail("decompress", fmt.Errorf("%w: nil input array", ErrBufferSize))
	}
	if !in.dtype.Same(out.dtype) {
		return c.fail("decompress", fmt.Errorf("%w: binned data is %s, output is %s",
			ErrBufferSize, in.dtype, out.dtype))
	}
	if err := checkBuffers(p, s.Len(), in.Len()); err != nil {
		return c.fail("decompress", err)
	}
	if len(in.dims) == Rank {
		if bs, err := ShapeOf(in.dims); err != nil || bs != p.Binned {
			return c.fail("decompress", fmt.Errorf("%w: binned array has dimensions %v, want %v",
				ErrBufferSize, in.dims, p.Binned))
		}
	}
	T().Debugf("binning: decompress %s %v -> %v, bins %v", out.dtype, p.Binned, s, c.Bins)

	e := c.exec()
	switch data := out.data.(type) {
	case []int8:
		err = restoreTyped(p, in, data, e)
	case []int16:
		err = restoreTyped(p, in, data, e)
	case []int32:
		err = restoreTyped(p, in, data, e)
	case []int64:
		err = restoreTyped(p, in, data, e)
	case []uint8:
		err = restoreTyped(p, in, data, e)
	case []uint16:
		err = restoreTyped(p, in, data, e)
	case []uint32:
		err = restoreTyped(p, in, data, e)
	case []uint64:
		err = restoreTyped(p, in, data, e)
	case []float32:
		err = restoreTyped(p, in, data, e)
	case []float64:
		err = restoreTyped(p, in, data, e)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedDtype, out.dtype)
	}
	if err != nil {
		return c.fail("decompress", err)
	}
	return nil
}

func restoreTyped[T Number](p binProjection, in *Array, out []T, e Exec) error {
	data, err := Values[T](in)
	if err != nil {
		return err
	}
	return restore(p, data, out, e.Workers, e.grain())
}

// DecompressTo allocates an array of the given dtype and dimensions, restores
// in into it and returns it.
func (c *Compressor) DecompressTo(in *Array, dt Dtype, dims ...int) (*Array, error) {
	out, err := NewArray(dt, dims...)
	if err != nil {
		return nil, c.fail("decompress", err)
	}
	if err := c.Decompress(in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Compressor) fail(op string, err error) error {
	T().Errorf("binning: %s: %v", op, err)
	return err
}

// Options reports the current configuration.
func (c *Compressor) Options() Options {
	return Options{
		OptBins:     append([]int(nil), c.Bins...),
		OptThreads:  c.Workers,
		OptRounding: c.Rounding.String(),
	}
}

// CheckOptions reports whether SetOptions would accept opts. Unlike
// SetOptions it also validates the bin sizes.
func (c *Compressor) CheckOptions(opts Options) error {
	tmp := c.clone()
	if err := tmp.SetOptions(opts); err != nil {
		return err
	}
	return checkBins(tmp.Bins)
}

// SetOptions applies every recognized key of opts. Unknown keys are ignored.
// Bin sizes are stored as given and validated when first used.
func (c *Compressor) SetOptions(opts Options) error {
	bins, hasBins, err := opts.Ints(OptBins)
	if err != nil {
		return err
	}
	threads, hasThreads, err := opts.Int(OptThreads)
	if err != nil {
		return err
	}
	var rounding Rounding
	name, hasRounding, err := opts.String(OptRounding)
	if err != nil {
		return err
	}
	if hasRounding {
		if rounding, err = ParseRounding(name); err != nil {
			return err
		}
	}
	if hasBins {
		c.Bins = bins
	}
	if hasThreads {
		c.Workers = threads
	}
	if hasRounding {
		c.Rounding = rounding
	}
	return nil
}

// Configuration reports host-level metadata which does not affect results.
func (c *Compressor) Configuration() Options {
	return Options{
		OptThreadSafe: "multiple",
		OptStability:  "experimental",
	}
}

// Documentation describes the transform and its options.
func (c *Compressor) Documentation() Options {
	return Options{
		OptDescription: "bins the input on compression by averaging each block of elements and broadcasts the block values back on decompression",
		OptBins:        "bin size along each of the four axes, default 2,2,1,1",
		OptThreads:     "maximum number of worker goroutines, <= 0 uses " + EnvThreads + " or GOMAXPROCS",
		OptRounding:    "rounding of integer means: truncate or nearest",
	}
}

// Clone returns an independent copy of the configuration.
func (c *Compressor) Clone() Plugin {
	return c.clone()
}

func (c *Compressor) clone() *Compressor {
	cc := *c
	cc.Bins = append([]int(nil), c.Bins...)
	return &cc
}
