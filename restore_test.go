package binning

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestRestoreGrid4x4(t *testing.T) {
	gtrace.CoreTracer = gotestingadapter.New(t)
	gtrace.CoreTracer.SetTraceLevel(tracing.LevelDebug)
	//
	out := make([]int32, 16)
	if err := Restore(Shape{4, 4, 1, 1}, []int{2, 2, 1, 1}, []int32{2, 4, 10, 12}, out, Exec{}); err != nil {
		t.Fatal(err)
	}
	want := []int32{
		2, 2, 4, 4,
		2, 2, 4, 4,
		10, 10, 12, 12,
		10, 10, 12, 12,
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("restored grid mismatch (-want +got):\n%s", diff)
	}
}

func TestRestoreOddExtent(t *testing.T) {
	out := make([]uint8, 9)
	if err := Restore(Shape{3, 3, 1, 1}, []int{2, 2, 1, 1}, []uint8{1, 2, 3, 4}, out, Exec{}); err != nil {
		t.Fatal(err)
	}
	want := []uint8{
		1, 1, 2,
		1, 1, 2,
		3, 3, 4,
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("restored grid mismatch (-want +got):\n%s", diff)
	}
}

func TestRestoreParallelEquivalence(t *testing.T) {
	s := Shape{19, 11, 4, 3}
	bins := []int{3, 2, 4, 1}
	b, _ := BinnedShape(s, bins)
	in := make([]float64, b.Len())
	for i := range in {
		in[i] = float64(i) * 0.5
	}
	seq := make([]float64, s.Len())
	if err := Restore(s, bins, in, seq, Exec{Workers: 1}); err != nil {
		t.Fatal(err)
	}
	for _, workers := range []int{2, 5, 16} {
		par := make([]float64, s.Len())
		if err := Restore(s, bins, in, par, Exec{Workers: workers, Grain: 1}); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(seq, par); diff != "" {
			t.Errorf("%d workers differ from sequential run (-seq +par):\n%s", workers, diff)
		}
	}
}

func TestRestoreBufferSize(t *testing.T) {
	err := Restore(Shape{3, 3, 1, 1}, []int{2, 2, 1, 1}, []uint8{1, 2, 3}, make([]uint8, 9), Exec{})
	if !errors.Is(err, ErrBufferSize) {
		t.Errorf("short binned input: expected ErrBufferSize, got %v", err)
	}
	err = Restore(Shape{3, 3, 1, 1}, []int{2, 2, 1, 1}, []uint8{1, 2, 3, 4}, make([]uint8, 8), Exec{})
	if !errors.Is(err, ErrBufferSize) {
		t.Errorf("short output: expected ErrBufferSize, got %v", err)
	}
	err = Restore(Shape{3, 3, 1, 1}, []int{2, 2}, []uint8{1, 2, 3, 4}, make([]uint8, 9), Exec{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("two bin sizes: expected ErrInvalidConfig, got %v", err)
	}
}
