package scene

import "fresnel/types"

// BvhNode is a single node of either the per-worker mesh BVH or the
// top-level worker BVH (WBVH). Each node takes 32 bytes on the wire.
//
// Min.W/Max.W follow the teacher convention: for an interior node, Min.W
// and Max.W hold the left and right child indices (positive); for a leaf,
// Min.W holds the index of the first item and Max.W holds the (negated)
// item count.
type BvhNode struct {
	Min types.Vec4
	Max types.Vec4
}

// SetChildNodes marks this node as an interior node with the given child
// indices.
func (n *BvhNode) SetChildNodes(left, right uint32) {
	n.Min[3] = float32(left)
	n.Max[3] = float32(right)
}

// SetLeaf marks this node as a leaf spanning [firstItem, firstItem+count).
func (n *BvhNode) SetLeaf(firstItem, count uint32) {
	n.Min[3] = float32(firstItem)
	n.Max[3] = -float32(count)
}

// IsLeaf reports whether this node is a leaf.
func (n *BvhNode) IsLeaf() bool {
	return n.Max[3] <= 0
}

// WorkerBound pairs a worker id with the AABB it reported after
// BUILDING_BVH (§4.4's worker_bounds, §4.1 Entity: Worker record).
type WorkerBound struct {
	WorkerID uint32
	Bounds   types.AABB
}

// BBox implements bvh.BoundedVolume.
func (w WorkerBound) BBox() [2]types.Vec3 {
	return w.Bounds.BBox()
}

// Center implements bvh.BoundedVolume.
func (w WorkerBound) Center() types.Vec3 {
	return w.Bounds.Center()
}
