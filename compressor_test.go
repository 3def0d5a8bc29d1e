package binning

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func grid4x4[T Number](t *testing.T) *Array {
	v := make([]T, 16)
	for i := range v {
		v[i] = T(i)
	}
	a, err := FromSlice(v, 4, 4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func checkGrid4x4[T Number](t *testing.T, c *Compressor) {
	t.Helper()
	in := grid4x4[T](t)
	binned, err := c.Compress(in)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 2, 1, 1}, binned.Dims()); diff != "" {
		t.Fatalf("%s: binned dims mismatch (-want +got):\n%s", in.Dtype(), diff)
	}
	if !binned.Dtype().Same(in.Dtype()) {
		t.Fatalf("binned dtype %s, want %s", binned.Dtype(), in.Dtype())
	}
	bv, err := Values[T](binned)
	if err != nil {
		t.Fatal(err)
	}
	want := []T{2, 4, 10, 12}
	if DtypeOf[T]().BasicType == BTFloatingPoint {
		h := 0.5
		want = []T{T(2 + h), T(4 + h), T(10 + h), T(12 + h)}
	}
	if diff := cmp.Diff(want, bv); diff != "" {
		t.Errorf("%s: binned values mismatch (-want +got):\n%s", in.Dtype(), diff)
	}

	out, err := c.DecompressTo(binned, in.Dtype(), 4, 4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	ov, _ := Values[T](out)
	for _, off := range []int{0, 1, 4, 5} {
		if ov[off] != want[0] {
			t.Errorf("%s: restored top-left element %d = %v, want %v", in.Dtype(), off, ov[off], want[0])
		}
	}
	if ov[15] != want[3] {
		t.Errorf("%s: restored last element = %v, want %v", in.Dtype(), ov[15], want[3])
	}
}

func TestCompressAllDtypes(t *testing.T) {
	gtrace.CoreTracer = gotestingadapter.New(t)
	gtrace.CoreTracer.SetTraceLevel(tracing.LevelDebug)
	//
	c := New()
	checkGrid4x4[int8](t, c)
	checkGrid4x4[int16](t, c)
	checkGrid4x4[int32](t, c)
	checkGrid4x4[int64](t, c)
	checkGrid4x4[uint8](t, c)
	checkGrid4x4[uint16](t, c)
	checkGrid4x4[uint32](t, c)
	checkGrid4x4[uint64](t, c)
	checkGrid4x4[float32](t, c)
	checkGrid4x4[float64](t, c)
}

func TestCompressOddExtentDividesByMemberCount(t *testing.T) {
	in, err := FromSlice([]int32{
		0, 10, 20,
		30, 40, 50,
		60, 70, 80,
	}, 3, 3, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	binned, err := New().Compress(in)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 2, 1, 1}, binned.Dims()); diff != "" {
		t.Fatalf("binned dims mismatch (-want +got):\n%s", diff)
	}
	// a fixed divisor of 4 would give 17, 17 and 20 for the boundary bins
	want := []int32{20, 35, 65, 80}
	if diff := cmp.Diff(want, binned.Data()); diff != "" {
		t.Errorf("binned values mismatch (-want +got):\n%s", diff)
	}
}

func TestCompressDeterministic(t *testing.T) {
	v := make([]float64, 31*17*3*2)
	for i := range v {
		v[i] = 1.0 / float64(i+1)
	}
	in, err := FromSlice(v, 31, 17, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	c := &Compressor{Bins: []int{3, 4, 2, 1}, Workers: 5}
	a, err := c.Compress(in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Compress(in)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Data(), b.Data()); diff != "" {
		t.Errorf("repeated compression differs:\n%s", diff)
	}
}

func TestCompressErrors(t *testing.T) {
	gtrace.CoreTracer = gotestingadapter.New(t)
	gtrace.CoreTracer.SetTraceLevel(tracing.LevelError)
	//
	rank3, _ := FromSlice(make([]float32, 8), 2, 2, 2)
	ok := grid4x4[float32](t)
	cases := []struct {
		name string
		bins []int
		in   *Array
		want error
		code int
	}{
		{"bins too short", []int{2, 2}, ok, ErrInvalidConfig, StatusInvalidConfig},
		{"zero bin", []int{2, 2, 0, 1}, ok, ErrInvalidConfig, StatusInvalidConfig},
		{"rank 3", []int{2, 2, 1, 1}, rank3, ErrInvalidConfig, StatusInvalidConfig},
		{"nil array", []int{2, 2, 1, 1}, nil, ErrBufferSize, StatusBufferSize},
		{"complex dtype", []int{2, 2, 1, 1},
			&Array{dtype: Dtype{BOLittleEndian, BTComplex, 16}, dims: []int{1, 1, 1, 1}, data: []complex128{1}},
			ErrUnsupportedDtype, StatusUnsupportedDtype},
		{"buffer smaller than dims", []int{2, 2, 1, 1},
			&Array{dtype: Float32, dims: []int{4, 4, 1, 1}, data: make([]float32, 15)},
			ErrBufferSize, StatusBufferSize},
	}
	for _, c := range cases {
		out, err := (&Compressor{Bins: c.bins}).Compress(c.in)
		if !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
			continue
		}
		if out != nil {
			t.Errorf("%s: partial output returned", c.name)
		}
		code, msg := Status(err)
		if code != c.code || msg == "" {
			t.Errorf("%s: Status = %d %q, want code %d", c.name, code, msg, c.code)
		}
	}
}

func TestDecompressErrors(t *testing.T) {
	c := New()
	binned, _ := FromSlice([]int32{1, 2, 3, 4}, 2, 2, 1, 1)
	wrongType, _ := NewArray(Float32, 4, 4, 1, 1)
	if err := c.Decompress(binned, wrongType); !errors.Is(err, ErrBufferSize) {
		t.Errorf("dtype mismatch: expected ErrBufferSize, got %v", err)
	}
	tooBig, _ := NewArray(Int32, 6, 4, 1, 1)
	if err := c.Decompress(binned, tooBig); !errors.Is(err, ErrBufferSize) {
		t.Errorf("target shape mismatch: expected ErrBufferSize, got %v", err)
	}
	if _, err := c.DecompressTo(binned, Int32, 4, 4); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("rank 2 target: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := c.DecompressTo(binned, Dtype{BONotRelevant, BTBoolean, 1}, 4, 4, 1, 1); !errors.Is(err, ErrUnsupportedDtype) {
		t.Errorf("bool target: expected ErrUnsupportedDtype, got %v", err)
	}
	if err := c.Decompress(nil, tooBig); !errors.Is(err, ErrBufferSize) {
		t.Errorf("nil input: expected ErrBufferSize, got %v", err)
	}
	flat, _ := FromSlice([]int32{1, 2, 3, 4}, 4, 1, 1, 1)
	if _, err := c.DecompressTo(flat, Int32, 4, 4, 1, 1); !errors.Is(err, ErrBufferSize) {
		t.Errorf("binned dims mismatch: expected ErrBufferSize, got %v", err)
	}
	// a host buffer without rank 4 dims only needs the element count
	host, _ := FromSlice([]int32{1, 2, 3, 4}, 4)
	if _, err := c.DecompressTo(host, Int32, 4, 4, 1, 1); err != nil {
		t.Errorf("flat host buffer: %v", err)
	}
	// a 3x3 target also bins to 2x2 with the default bins
	out, err := c.DecompressTo(binned, Int32, 3, 3, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{1, 1, 2, 1, 1, 2, 3, 3, 4}, out.Data()); diff != "" {
		t.Errorf("restored 3x3 mismatch (-want +got):\n%s", diff)
	}
}

func TestBinsValidatedOnUse(t *testing.T) {
	c := New()
	if err := c.SetOptions(Options{OptBins: []int{0, 1}}); err != nil {
		t.Fatalf("SetOptions must not validate bin sizes, got %v", err)
	}
	if err := c.CheckOptions(Options{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("CheckOptions: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := c.Compress(grid4x4[uint8](t)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Compress: expected ErrInvalidConfig, got %v", err)
	}
	if err := c.SetOptions(Options{OptBins: "4, 4, 1, 1"}); err != nil {
		t.Fatal(err)
	}
	out, err := c.Compress(grid4x4[uint8](t))
	if err != nil {
		t.Fatal(err)
	}
	// 120 / 16
	if diff := cmp.Diff([]uint8{7}, out.Data()); diff != "" {
		t.Errorf("binned values mismatch (-want +got):\n%s", diff)
	}
}

func TestOptions(t *testing.T) {
	c := New()
	opts := c.Options()
	if diff := cmp.Diff([]int{2, 2, 1, 1}, opts[OptBins]); diff != "" {
		t.Errorf("default bins mismatch (-want +got):\n%s", diff)
	}
	err := c.SetOptions(Options{
		OptBins:     []uint64{3, 1, 1, 2},
		OptThreads:  int32(3),
		OptRounding: "nearest",
		"other:key": 42,
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&Compressor{Bins: []int{3, 1, 1, 2}, Workers: 3, Rounding: RoundNearest}, c); diff != "" {
		t.Errorf("configuration mismatch (-want +got):\n%s", diff)
	}
	for _, bad := range []Options{
		{OptBins: 3.5},
		{OptThreads: "many"},
		{OptRounding: 1},
		{OptRounding: "up"},
	} {
		if err := c.SetOptions(bad); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("SetOptions(%v): expected ErrInvalidConfig, got %v", bad, err)
		}
	}
	if c.Workers != 3 || c.Rounding != RoundNearest {
		t.Errorf("rejected options changed the configuration: %+v", c)
	}
	if got := c.Configuration()[OptThreadSafe]; got != "multiple" {
		t.Errorf("thread safety = %v", got)
	}
	doc := c.Documentation()
	for _, k := range []string{OptDescription, OptBins, OptThreads, OptRounding} {
		if s, _ := doc[k].(string); s == "" {
			t.Errorf("no documentation for %s", k)
		}
	}
}

func TestClone(t *testing.T) {
	c := New()
	cc := c.Clone().(*Compressor)
	cc.Bins[0] = 4
	if c.Bins[0] != 2 {
		t.Errorf("clone shares bins with its origin")
	}
}

func TestConcurrentCalls(t *testing.T) {
	c := &Compressor{Bins: []int{2, 3, 1, 1}, Workers: 2}
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := make([]int32, 6*6)
			for j := range v {
				v[j] = int32(i)
			}
			in, err := FromSlice(v, 6, 6, 1, 1)
			if err != nil {
				errs <- err
				return
			}
			binned, err := c.Compress(in)
			if err != nil {
				errs <- err
				return
			}
			out, err := c.DecompressTo(binned, Int32, 6, 6, 1, 1)
			if err != nil {
				errs <- err
				return
			}
			if diff := cmp.Diff(v, out.Data()); diff != "" {
				t.Errorf("call %d: round trip mismatch:\n%s", i, diff)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestStatus(t *testing.T) {
	if code, msg := Status(nil); code != StatusOK || msg != "" {
		t.Errorf("Status(nil) = %d %q", code, msg)
	}
	if code, _ := Status(errors.New("disk on fire")); code != StatusInvalidConfig {
		t.Errorf("unclassified errors must map to 1, got %d", code)
	}
	if code, _ := Status(ErrIndexOutOfRange); code != StatusIndexOutOfRange {
		t.Errorf("got %d", code)
	}
	if code, _ := Status(ErrInvariant); code != StatusInvariant {
		t.Errorf("got %d", code)
	}
}
