package binning

import (
	"fmt"
	"math/bits"
)

// Rounding selects how the mean of an integer bin is mapped back to an integer.
type Rounding int

const (
	// RoundTruncate rounds toward zero.
	RoundTruncate Rounding = iota
	// RoundNearest rounds to the nearest integer, halves away from zero.
	RoundNearest
)

var roundingNames = map[Rounding]string{
	RoundTruncate: "truncate",
	RoundNearest:  "nearest",
}

func (r Rounding) String() string {
	if s, ok := roundingNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Rounding(%d)", int(r))
}

// ParseRounding is the inverse of Rounding.String.
func ParseRounding(s string) (Rounding, error) {
	for r, name := range roundingNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown rounding %q", ErrInvalidConfig, s)
}

// Exec holds execution parameters for Reduce and Restore.
type Exec struct {
	// Workers is the maximum number of goroutines; <= 0 selects DefaultWorkers.
	Workers int
	// Grain is the minimum number of output elements per worker;
	// <= 0 selects MinElementsPerWorker.
	Grain int
	// Rounding applies to integer element types only.
	Rounding Rounding
}

func (e Exec) grain() int {
	if e.Grain <= 0 {
		return MinElementsPerWorker
	}
	return e.Grain
}

// Reduce bins in, an array of shape orig, into out, which must hold exactly
// BinnedShape(orig, bins).Len() elements. Every element of out is set to the
// arithmetic mean of the members of its bin. in is not modified.
func Reduce[T Number](orig Shape, bins []int, in, out []T, e Exec) error {
	p, err := newBinProjection(orig, bins)
	if err != nil {
		return err
	}
	if err := checkBuffers(p, len(in), len(out)); err != nil {
		return err
	}
	return reduce(p, in, out, averagerFor[T](e.Rounding), e.Workers, e.grain())
}

func checkBuffers(p binProjection, full, binned int) error {
	if full != p.Orig.Len() {
		return fmt.Errorf("%w: full resolution buffer has %d elements, shape %v needs %d",
			ErrBufferSize, full, p.Orig, p.Orig.Len())
	}
	if binned != p.Binned.Len() {
		return fmt.Errorf("%w: binned buffer has %d elements, shape %v needs %d",
			ErrBufferSize, binned, p.Binned, p.Binned.Len())
	}
	return nil
}

func reduce[T Number](p binProjection, in, out []T, newAvg func() averager[T], workers, grain int) error {
	strides := p.Orig.Strides()
	return parallelFor(len(out), workers, grain, func(from, to int) error {
		avg := newAvg()
		b := p.Binned.coordOf(from)
		for o := from; o < to; o++ {
			lo, hi := p.members(b)
			n := 0
			for c3 := lo[3]; c3 < hi[3]; c3++ {
				for c2 := lo[2]; c2 < hi[2]; c2++ {
					for c1 := lo[1]; c1 < hi[1]; c1++ {
						row := in[c1*strides[1]+c2*strides[2]+c3*strides[3]:]
						for c0 := lo[0]; c0 < hi[0]; c0++ {
							avg.add(row[c0])
						}
						n += max(hi[0]-lo[0], 0)
					}
				}
			}
			if n == 0 {
				return fmt.Errorf("%w: bin %v of %v has no members", ErrInvariant, b, p.Binned)
			}
			out[o] = avg.mean(n)
			p.Binned.next(&b)
		}
		return nil
	})
}

// averager accumulates the members of one bin. mean returns the average of
// the n values added since the previous call to mean and resets the sum.
type averager[T Number] interface {
	add(v T)
	mean(n int) T
}

func averagerFor[T Number](r Rounding) func() averager[T] {
	switch DtypeOf[T]().BasicType {
	case BTFloatingPoint:
		return func() averager[T] { return &floatMean[T]{} }
	case BTInteger:
		return func() averager[T] { return &signedMean[T]{round: r} }
	default:
		return func() averager[T] { return &unsignedMean[T]{round: r} }
	}
}

type floatMean[T Number] struct {
	sum float64
}

func (a *floatMean[T]) add(v T) { a.sum += float64(v) }

func (a *floatMean[T]) mean(n int) T {
	m := a.sum / float64(n)
	a.sum = 0
	return T(m)
}

// signedMean keeps an exact 128-bit two's complement sum.
type signedMean[T Number] struct {
	hi, lo uint64
	round  Rounding
}

func (a *signedMean[T]) add(v T) {
	x := int64(v)
	var carry uint64
	a.lo, carry = bits.Add64(a.lo, uint64(x), 0)
	a.hi, _ = bits.Add64(a.hi, uint64(x>>63), carry)
}

func (a *signedMean[T]) mean(n int) T {
	hi, lo := a.hi, a.lo
	a.hi, a.lo = 0, 0
	neg := int64(hi) < 0
	if neg {
		var borrow uint64
		lo, borrow = bits.Add64(^lo, 1, 0)
		hi, _ = bits.Add64(^hi, 0, borrow)
	}
	// |sum| <= n * 2^63, so hi < n and the division cannot overflow.
	q := divRound(hi, lo, uint64(n), a.round)
	if neg {
		return T(int64(^q + 1))
	}
	return T(int64(q))
}

// unsignedMean keeps an exact 128-bit sum.
type unsignedMean[T Number] struct {
	hi, lo uint64
	round  Rounding
}

func (a *unsignedMean[T]) add(v T) {
	var carry uint64
	a.lo, carry = bits.Add64(a.lo, uint64(v), 0)
	a.hi += carry
}

func (a *unsignedMean[T]) mean(n int) T {
	q := divRound(a.hi, a.lo, uint64(n), a.round)
	a.hi, a.lo = 0, 0
	return T(q)
}

// divRound divides the 128-bit value hi:lo by n. hi must be less than n.
func divRound(hi, lo, n uint64, r Rounding) uint64 {
	q, rem := bits.Div64(hi, lo, n)
	if r == RoundNearest && rem >= n-rem {
		q++
	}
	return q
}
