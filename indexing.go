package binning

import (
	"fmt"
	"math"
)

// Rank is the number of axes of every array this package bins.
const Rank = 4

// Shape holds the extent of an array along each of its four axes.
// Axis 0 varies fastest in memory.
type Shape [Rank]int

// Coord addresses a single element of an array.
type Coord [Rank]int

// ShapeOf converts a dimension list to a Shape. dims must have exactly four
// entries, all of them positive.
func ShapeOf(dims []int) (Shape, error) {
	var s Shape
	if len(dims) != Rank {
		return s, fmt.Errorf("%w: shape rank %d, want %d", ErrInvalidConfig, len(dims), Rank)
	}
	copy(s[:], dims)
	return s, s.Validate()
}

// Pad4 extends a dimension list of rank up to four with trailing extents of 1.
func Pad4(dims ...int) []int {
	out := []int{1, 1, 1, 1}
	copy(out, dims)
	return out
}

// Validate checks that every extent is at least 1 and that Len does not
// overflow int.
func (s Shape) Validate() error {
	n := 1
	for i, d := range s {
		if d < 1 {
			return fmt.Errorf("%w: extent %d of axis %d, must be >= 1", ErrInvalidConfig, d, i)
		}
		if d > math.MaxInt/n {
			return fmt.Errorf("%w: shape %v exceeds the addressable element count", ErrInvalidConfig, s)
		}
		n *= d
	}
	return nil
}

// Len is the number of elements of an array of shape s.
func (s Shape) Len() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Dims returns the extents as a slice.
func (s Shape) Dims() []int {
	return []int{s[0], s[1], s[2], s[3]}
}

// Strides returns the distance in elements between neighbours along each axis.
func (s Shape) Strides() Coord {
	return Coord{1, s[0], s[0] * s[1], s[0] * s[1] * s[2]}
}

// Contains reports whether c addresses an element of s.
func (s Shape) Contains(c Coord) bool {
	for i := range s {
		if c[i] < 0 || c[i] >= s[i] {
			return false
		}
	}
	return true
}

// Offset computes the linear buffer offset of coordinate c.
func (s Shape) Offset(c Coord) (int, error) {
	if !s.Contains(c) {
		return 0, fmt.Errorf("%w: coordinate %v in shape %v", ErrIndexOutOfRange, c, s)
	}
	return s.offset(c), nil
}

// offset skips range checks; callers guarantee s.Contains(c).
func (s Shape) offset(c Coord) int {
	return c[0] + s[0]*(c[1]+s[1]*(c[2]+s[2]*c[3]))
}

// CoordOf is the inverse of Offset.
func (s Shape) CoordOf(off int) (Coord, error) {
	if off < 0 || off >= s.Len() {
		return Coord{}, fmt.Errorf("%w: offset %d in shape %v of %d elements",
			ErrIndexOutOfRange, off, s, s.Len())
	}
	return s.coordOf(off), nil
}

func (s Shape) coordOf(off int) Coord {
	var c Coord
	for i := range s {
		c[i] = off % s[i]
		off /= s[i]
	}
	return c
}

// next advances c to the following coordinate in memory order. It returns
// false once c has wrapped around past the last element.
func (s Shape) next(c *Coord) bool {
	for i := range s {
		c[i]++
		if c[i] < s[i] {
			return true
		}
		c[i] = 0
	}
	return false
}

// checkBins validates a bin-size vector.
func checkBins(bins []int) error {
	if len(bins) != Rank {
		return fmt.Errorf("%w: %d bin sizes, want %d", ErrInvalidConfig, len(bins), Rank)
	}
	for i, k := range bins {
		if k < 1 {
			return fmt.Errorf("%w: bin size %d on axis %d, must be >= 1", ErrInvalidConfig, k, i)
		}
	}
	return nil
}

// BinnedShape computes the shape of the array produced by binning an array of
// shape s with the given per-axis bin sizes: ceil(s[i] / bins[i]).
func BinnedShape(s Shape, bins []int) (Shape, error) {
	if err := s.Validate(); err != nil {
		return Shape{}, err
	}
	if err := checkBins(bins); err != nil {
		return Shape{}, err
	}
	var b Shape
	for i := range s {
		b[i] = (s[i] + bins[i] - 1) / bins[i]
	}
	return b, nil
}

// binProjection maps between an array and its binned counterpart. It is the
// per-call plan shared read-only by all workers.
type binProjection struct {
	// Shape of the full resolution array.
	Orig Shape
	// Shape of the binned array.
	Binned Shape
	// Bin sizes per axis.
	Bins Coord
}

func newBinProjection(orig Shape, bins []int) (binProjection, error) {
	binned, err := BinnedShape(orig, bins)
	if err != nil {
		return binProjection{}, err
	}
	p := binProjection{Orig: orig, Binned: binned}
	copy(p.Bins[:], bins)
	return p, nil
}

// binOf returns the bin coordinate containing original coordinate c.
func (p binProjection) binOf(c Coord) Coord {
	var b Coord
	for i := range c {
		b[i] = c[i] / p.Bins[i]
	}
	return b
}

// members returns the half-open range [lo, hi) of original coordinates along
// every axis that belong to bin b. Ranges are clipped at the array boundary.
func (p binProjection) members(b Coord) (lo, hi Coord) {
	for i := range b {
		lo[i] = b[i] * p.Bins[i]
		hi[i] = min(lo[i]+p.Bins[i], p.Orig[i])
	}
	return lo, hi
}

// memberCount is the number of original elements summarized by bin b.
func (p binProjection) memberCount(b Coord) int {
	lo, hi := p.members(b)
	n := 1
	for i := range lo {
		n *= max(hi[i]-lo[i], 0)
	}
	return n
}
