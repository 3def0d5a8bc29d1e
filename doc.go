/*
Package binning implements a lossy spatial reduction for dense rank-4 numeric
arrays, together with its inverse.

Compress partitions an array into axis-aligned rectangular bins and replaces
every bin by the arithmetic mean of its members. Decompress broadcasts every
bin value back to all coordinates of the bin it summarizes. With the default
bin sizes {2,2,1,1} a 512×512×1×1 image becomes 256×256×1×1.

Arrays are stored with axis 0 varying fastest:

	offset = c[0] + S[0]*(c[1] + S[1]*(c[2] + S[2]*c[3]))

Shapes whose extents are not multiples of the bin sizes are fine; bins at the
upper boundary simply have fewer members. Because of this, the original shape
cannot be derived from a binned array and has to be supplied to Decompress.

Binned arrays may be persisted with Save and read back with Open. The storage
layout follows zarr v2 (a ".zarray" document next to a single chunk) and values
may be compressed with any codec of github.com/qri-io/dataset/compression.
*/
package binning

import (
	"sync"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
)

var traceInit sync.Once

// T traces to a global core-tracer. If no core-tracer has been configured,
// a Go log adapter at level Error is installed.
func T() tracing.Trace {
	traceInit.Do(func() {
		if gtrace.CoreTracer == nil {
			gtrace.CoreTracer = gologadapter.New()
			gtrace.CoreTracer.SetTraceLevel(tracing.LevelError)
		}
	})
	return gtrace.CoreTracer
}
