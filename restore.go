package binning

// Restore expands in, a binned array, into out, an array of shape orig.
// Every element of out receives the value of the bin containing it; no
// interpolation takes place. in must hold exactly BinnedShape(orig, bins).Len()
// elements and is not modified. e.Rounding is ignored.
func Restore[T Number](orig Shape, bins []int, in, out []T, e Exec) error {
	p, err := newBinProjection(orig, bins)
	if err != nil {
		return err
	}
	if err := checkBuffers(p, len(out), len(in)); err != nil {
		return err
	}
	return restore(p, in, out, e.Workers, e.grain())
}

func restore[T Number](p binProjection, in, out []T, workers, grain int) error {
	return parallelFor(len(out), workers, grain, func(from, to int) error {
		c := p.Orig.coordOf(from)
		for o := from; o < to; o++ {
			out[o] = in[p.Binned.offset(p.binOf(c))]
			p.Orig.next(&c)
		}
		return nil
	})
}
