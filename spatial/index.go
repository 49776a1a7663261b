// Package spatial implements the Morton/Z-order spatial index that maps
// a mesh centroid to its owning worker, so the scene-streaming pipeline
// can route each mesh to exactly one worker.
package spatial

import "fresnel/types"

// SpacecodeMax is the largest representable 63-bit Morton code.
const SpacecodeMax uint64 = 1<<63 - 1

// quantBits is the number of bits used to quantize each axis before
// interleaving; 3*quantBits must not exceed 63.
const quantBits = 21
const quantMax = (1 << quantBits) - 1

// Encode computes the 63-bit Morton code of centroid, quantizing each
// axis over [min[i], max[i]] into a 21-bit integer (clamped to the
// bounds) and interleaving the three integers bit by bit.
func Encode(centroid, min, max types.Vec3) uint64 {
	clamped := (types.AABB{Min: min, Max: max}).Clamp(centroid)

	var qx, qy, qz uint64
	for axis, q := range []*uint64{&qx, &qy, &qz} {
		span := max[axis] - min[axis]
		if span <= 0 {
			*q = 0
			continue
		}
		t := (clamped[axis] - min[axis]) / span
		*q = uint64(t * float32(quantMax))
		if *q > quantMax {
			*q = quantMax
		}
	}

	return spreadBits(qx) | (spreadBits(qy) << 1) | (spreadBits(qz) << 2)
}

// spreadBits spreads the low 21 bits of v so that bit i moves to bit
// 3*i, leaving the two bits in between clear for the other two axes to
// be OR'd in.
func spreadBits(v uint64) uint64 {
	v &= quantMax
	v = (v | (v << 32)) & 0x1f00000000ffff
	v = (v | (v << 16)) & 0x1f0000ff0000ff
	v = (v | (v << 8)) & 0x100f00f00f00f00f
	v = (v | (v << 4)) & 0x10c30c30c30c30c3
	v = (v | (v << 2)) & 0x1249249249249249
	return v
}

// Index is a permutation table mapping a chunk of the spacecode range to
// a worker id.
type Index struct {
	chunkSize uint64
	workerIDs []uint32
}

// BuildIndex builds the spatial index over the given worker ids, in
// order: chunkSize = ceil((SpacecodeMax+1)/W) + 1, and the index is the
// worker id list itself (a permutation of [1, W]), so Lookup(s) returns
// workerIDs[s/chunkSize].
func BuildIndex(workerIDs []uint32) *Index {
	w := uint64(len(workerIDs))
	if w == 0 {
		return &Index{chunkSize: SpacecodeMax + 1, workerIDs: nil}
	}

	chunkSize := ceilDiv(SpacecodeMax+1, w) + 1
	perm := make([]uint32, w)
	copy(perm, workerIDs)

	return &Index{chunkSize: chunkSize, workerIDs: perm}
}

// Lookup returns the worker id owning the given spacecode.
func (idx *Index) Lookup(code uint64) uint32 {
	if len(idx.workerIDs) == 0 {
		return 0
	}
	slot := code / idx.chunkSize
	if slot >= uint64(len(idx.workerIDs)) {
		slot = uint64(len(idx.workerIDs)) - 1
	}
	return idx.workerIDs[slot]
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}
