package binning

import (
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// MinElementsPerWorker is the smallest output range handed to a worker.
// Arrays with fewer output elements are processed on the calling goroutine.
const MinElementsPerWorker = 16 * 1024

// EnvThreads names the environment variable which overrides the default
// number of workers.
const EnvThreads = "BINNING_NTHREADS"

// DefaultWorkers is the number of workers used when none is configured:
// $BINNING_NTHREADS if set to a positive integer, GOMAXPROCS otherwise.
func DefaultWorkers() int {
	if s := os.Getenv(EnvThreads); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
		T().Errorf("binning: ignoring %s=%q", EnvThreads, s)
	}
	return runtime.GOMAXPROCS(0)
}

// parallelFor splits [0, n) into at most workers contiguous ranges of at least
// grain elements and calls fn once per range. It returns after every call has
// finished, with the first error encountered.
func parallelFor(n, workers, grain int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if grain < 1 {
		grain = 1
	}
	workers = min(workers, (n+grain-1)/grain)
	if workers <= 1 {
		return fn(0, n)
	}

	T().Debugf("binning: splitting %d elements over %d workers", n, workers)
	var g errgroup.Group
	for w := range workers {
		lo := w * n / workers
		hi := (w + 1) * n / workers
		g.Go(func() error {
			return fn(lo, hi)
		})
	}
	return g.Wait()
}
