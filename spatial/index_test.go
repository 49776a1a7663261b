package spatial

import (
	"testing"

	"fresnel/types"
)

func TestEncodeBounds(t *testing.T) {
	min := types.Vec3{0, 0, 0}
	max := types.Vec3{10, 10, 10}

	if code := Encode(min, min, max); code != 0 {
		t.Fatalf("expected spacecode 0 at min corner, got %d", code)
	}
	if code := Encode(max, min, max); code != SpacecodeMax {
		t.Fatalf("expected spacecode %d at max corner, got %d", SpacecodeMax, code)
	}
}

func TestEncodeClampsOutOfBounds(t *testing.T) {
	min := types.Vec3{0, 0, 0}
	max := types.Vec3{10, 10, 10}

	below := Encode(types.Vec3{-5, -5, -5}, min, max)
	above := Encode(types.Vec3{50, 50, 50}, min, max)

	if below != 0 {
		t.Fatalf("expected out-of-bounds-low centroid to clamp to 0, got %d", below)
	}
	if above != SpacecodeMax {
		t.Fatalf("expected out-of-bounds-high centroid to clamp to max, got %d", above)
	}
}

// TestTwoWorkersLinearScan mirrors the "two workers, linear scan" scenario:
// a spacecode of 0 must route to worker 1 and SpacecodeMax must route to
// the last worker.
func TestTwoWorkersLinearScan(t *testing.T) {
	idx := BuildIndex([]uint32{1, 2})

	if got := idx.Lookup(0); got != 1 {
		t.Fatalf("expected worker 1 for spacecode 0, got %d", got)
	}
	if got := idx.Lookup(SpacecodeMax); got != 2 {
		t.Fatalf("expected worker 2 for spacecode max, got %d", got)
	}
}

// TestSpatialCoverage checks the "every spacecode maps into [1, W]"
// property at the chunk boundaries and a dense sample within each chunk,
// standing in for exhaustive coverage of the full 63-bit space.
func TestSpatialCoverage(t *testing.T) {
	for _, w := range []int{1, 2, 3, 5, 8} {
		workerIDs := make([]uint32, w)
		for i := range workerIDs {
			workerIDs[i] = uint32(i + 1)
		}
		idx := BuildIndex(workerIDs)

		check := func(code uint64) {
			got := idx.Lookup(code)
			if got < 1 || got > uint32(w) {
				t.Fatalf("W=%d: spacecode %d mapped to out-of-range worker %d", w, code, got)
			}
		}

		check(0)
		check(SpacecodeMax)
		for slot := uint64(0); slot < uint64(w); slot++ {
			check(slot * idx.chunkSize)
			if slot*idx.chunkSize+idx.chunkSize/2 <= SpacecodeMax {
				check(slot*idx.chunkSize + idx.chunkSize/2)
			}
		}
	}
}

func TestMortonInterleavingIsDeterministic(t *testing.T) {
	min := types.Vec3{0, 0, 0}
	max := types.Vec3{100, 100, 100}
	p := types.Vec3{33, 66, 10}

	a := Encode(p, min, max)
	b := Encode(p, min, max)
	if a != b {
		t.Fatalf("expected deterministic encoding, got %d and %d", a, b)
	}
}
