package types

import "math"

// AABB is an axis-aligned bounding box. It implements the BoundedVolume
// interface expected by the bvh package.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns a degenerate box suitable as the identity element for
// repeated Union calls.
func EmptyAABB() AABB {
	return AABB{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// BBox implements bvh.BoundedVolume.
func (b AABB) BBox() [2]Vec3 {
	return [2]Vec3{b.Min, b.Max}
}

// Center implements bvh.BoundedVolume.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Union returns the smallest box containing both b and other.
func (b AABB) Union(other AABB) AABB {
	return AABB{
		Min: MinVec3(b.Min, other.Min),
		Max: MaxVec3(b.Max, other.Max),
	}
}

// ExtendPoint grows b to contain p.
func (b AABB) ExtendPoint(p Vec3) AABB {
	return AABB{
		Min: MinVec3(b.Min, p),
		Max: MaxVec3(b.Max, p),
	}
}

// Clamp clamps p to lie within b on every axis.
func (b AABB) Clamp(p Vec3) Vec3 {
	out := p
	for i := 0; i < 3; i++ {
		if out[i] < b.Min[i] {
			out[i] = b.Min[i]
		}
		if out[i] > b.Max[i] {
			out[i] = b.Max[i]
		}
	}
	return out
}
