package binning

import (
	"io"

	"github.com/qri-io/dataset/compression"
)

// CodecZstd is the codec id used by default when saving arrays.
const CodecZstd = "zst"

// CompressionMeta identifies the codec applied to stored chunk bytes.
type CompressionMeta struct {
	ID string `json:"id"`
}

// NewCompressionMeta returns nil for the empty codec id, meaning chunks are
// stored raw.
func NewCompressionMeta(id string) (*CompressionMeta, error) {
	if id == "" {
		return nil, nil
	}
	if _, err := compression.ParseFormat(id); err != nil {
		return nil, err
	}
	return &CompressionMeta{ID: id}, nil
}

// Compressor wraps w. Callers must Close the returned writer to flush it.
func (m *CompressionMeta) Compressor(w io.Writer) (io.WriteCloser, error) {
	if m == nil {
		return nopWriteCloser{w}, nil
	}
	return compression.Compressor(m.ID, w)
}

func (m *CompressionMeta) Decompressor(r io.ReadCloser) (io.ReadCloser, error) {
	if m == nil {
		return r, nil
	}
	return compression.Decompressor(m.ID, r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
