package binning

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// Stored is an array read from a Store together with its metadata.
type Stored struct {
	*Array
	Meta  ArrayMeta
	Attrs Attributes
}

// SaveOptions controls how Save writes an array.
type SaveOptions struct {
	// Codec is a github.com/qri-io/dataset/compression format id; "" stores raw bytes.
	Codec string
	// Filters are recorded in the array metadata.
	Filters []Filter
	// Attrs are written to ".zattrs" when not empty.
	Attrs Attributes
}

// Save writes arr under path as a zarr v2 array consisting of a single chunk.
func Save(store Store, path string, arr *Array, opts SaveOptions) error {
	p, err := NewPath(path)
	if err != nil {
		return err
	}
	comp, err := NewCompressionMeta(opts.Codec)
	if err != nil {
		return err
	}
	meta := ArrayMeta{
		ZarrFormat: FormatVersion,
		Shape:      arr.Dims(),
		Chunks:     arr.Dims(),
		Dtype:      arr.Dtype(),
		Compressor: comp,
		Order:      OrderF,
		Filters:    opts.Filters,
	}
	if err := meta.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	w, err := comp.Compressor(&buf)
	if err != nil {
		return err
	}
	if err := binary.Write(w, byteOrder(meta.Dtype), arr.Data()); err != nil {
		w.Close()
		return fmt.Errorf("encoding chunk: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := store.Put(chunkPath(p, len(meta.Shape)).String(), &buf); err != nil {
		return err
	}

	if len(opts.Attrs) > 0 {
		if err := putJSON(store, p.Join(string(MTAttributes)), opts.Attrs); err != nil {
			return err
		}
	}
	T().Debugf("binning: saved %s %v to %s/%s", meta.Dtype, meta.Shape, store.Type(), p)
	// metadata last, so a readable ".zarray" implies a complete chunk
	return putJSON(store, p.Join(string(MTArray)), &meta)
}

// SaveBinned writes the result of Compress together with the bins that produced
// it and the dimensions of the original array, which Decompress needs.
func SaveBinned(store Store, path string, binned *Array, bins, original []int, codec string) error {
	return Save(store, path, binned, SaveOptions{
		Codec:   codec,
		Filters: []Filter{{ID: Prefix, Bins: append([]int(nil), bins...)}},
		Attrs:   Attributes{AttrOriginalShape: append([]int(nil), original...)},
	})
}

// Open reads the array stored under path.
func Open(store Store, path string) (*Stored, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}
	s := &Stored{}
	if err := getJSON(store, p.Join(string(MTArray)), &s.Meta); err != nil {
		return nil, err
	}
	if err := s.Meta.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	s.Attrs = Attributes{}
	if err := getJSON(store, p.Join(string(MTAttributes)), &s.Attrs); err != nil && !isNotFound(err) {
		return nil, err
	}

	n, _ := numElements(s.Meta.Shape)
	if n >= math.MaxInt/s.Meta.Dtype.ByteSize {
		return nil, fmt.Errorf("%w: %s: shape %v of %s is too large", ErrInvalidConfig, p, s.Meta.Shape, s.Meta.Dtype)
	}
	f, err := store.Get(chunkPath(p, len(s.Meta.Shape)).String())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := s.Meta.Compressor.Decompressor(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	// the chunk size is checked before allocating for the declared shape
	raw, err := io.ReadAll(io.LimitReader(r, int64(n*s.Meta.Dtype.ByteSize)+1))
	if err != nil {
		return nil, fmt.Errorf("reading chunk of %s: %w", p, err)
	}
	if len(raw) != n*s.Meta.Dtype.ByteSize {
		return nil, fmt.Errorf("%w: chunk of %s holds %d bytes, shape %v of %s needs %d",
			ErrBufferSize, p, len(raw), s.Meta.Shape, s.Meta.Dtype, n*s.Meta.Dtype.ByteSize)
	}
	data, err := makeSlice(s.Meta.Dtype, n)
	if err != nil {
		return nil, err
	}
	if err := binary.Read(bytes.NewReader(raw), byteOrder(s.Meta.Dtype), data); err != nil {
		return nil, fmt.Errorf("%w: reading chunk of %s: %v", ErrBufferSize, p, err)
	}
	if s.Array, err = wrap(data, s.Meta.Shape); err != nil {
		return nil, err
	}
	return s, nil
}

// Restore decompresses a stored binned array into a newly allocated array of
// its original dimensions, using the recorded bins.
func (s *Stored) Restore(c *Compressor) (*Array, error) {
	dims, ok := s.Attrs.OriginalShape()
	if !ok {
		return nil, fmt.Errorf("%w: no %s attribute", ErrInvalidConfig, AttrOriginalShape)
	}
	if bins, ok := s.Meta.Binning(); ok {
		c = c.clone()
		c.Bins = bins
	}
	return c.DecompressTo(s.Array, s.Array.Dtype(), dims...)
}

// Arrays lists the paths of all arrays in store, sorted.
func Arrays(store Store) ([]string, error) {
	keys, err := store.Keys("")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, k := range keys {
		if mt, ok := KeyMetaType(k); ok && mt == MTArray {
			paths = append(paths, strings.TrimSuffix(strings.TrimSuffix(k, string(MTArray)), "/"))
		}
	}
	return paths, nil
}

func byteOrder(dt Dtype) binary.ByteOrder {
	if dt.ByteOrder == BOBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func putJSON(store Store, p Path, v interface{}) error {
	data, err := encodeMeta(v)
	if err != nil {
		return err
	}
	return store.Put(p.String(), bytes.NewReader(data))
}

// encodeMeta writes v as JSON without HTML escaping, so dtypes read "<f8"
// rather than "\u003cf8".
func encodeMeta(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func getJSON(store Store, p Path, m MetaTyper) error {
	f, err := store.Get(p.String())
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return decodeMeta(data, m)
}

// chunkPath names the single chunk of an array, e.g. "0.0.0.0" for rank 4.
func chunkPath(p Path, rank int) Path {
	return p.Join(strings.TrimSuffix(strings.Repeat("0.", rank), "."))
}

// Path is a logical, "/" separated location of an array within a store.
type Path []string

// NewPath normalizes a logical path:
//   - Replace all backward slash characters ("\") with forward slash characters ("/")
//   - Strip any leading and trailing "/" characters
//   - Collapse any sequence of more than one "/" character into a single "/" character
//
// Path segments "." and ".." are rejected.
func NewPath(posix string) (Path, error) {
	var p Path
	for _, seg := range strings.Split(strings.ReplaceAll(posix, `\`, "/"), "/") {
		switch seg {
		case "":
			continue
		case ".", "..":
			return nil, fmt.Errorf("%w: invalid path %q", ErrInvalidConfig, posix)
		}
		p = append(p, seg)
	}
	return p, nil
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Join returns a new path; p is never modified.
func (p Path) Join(elems ...string) Path {
	return append(append(Path(nil), p...), elems...)
}
