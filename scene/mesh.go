package scene

import "fresnel/types"

// Face indexes three vertices of the owning mesh's Vertices slice.
type Face [3]uint32

// Mesh is a single piece of geometry distributed to exactly one worker.
// The registry assigns Mesh.ID when the mesh is stored (§3, Entity: Mesh).
type Mesh struct {
	ID uint32

	// MaterialID references the registry's material table.
	MaterialID uint32

	Transform    types.Mat4
	InvTransform types.Mat4

	Vertices []types.Vec3
	Faces    []Face

	// Centroid is cached at parse time; it drives the spatial lookup
	// that assigns this mesh to a worker (§3, §4.5).
	Centroid types.Vec3

	bbox types.AABB
}

// NewMesh computes the mesh's local-space bounding box and centroid from
// its vertex list, then applies Transform to move both into world space.
func NewMesh(materialID uint32, transform, invTransform types.Mat4, vertices []types.Vec3, faces []Face) *Mesh {
	local := types.EmptyAABB()
	for _, v := range vertices {
		local = local.ExtendPoint(v)
	}

	worldMin := transform.MulPoint3(local.Min)
	worldMax := transform.MulPoint3(local.Max)
	bbox := types.AABB{Min: types.MinVec3(worldMin, worldMax), Max: types.MaxVec3(worldMin, worldMax)}

	return &Mesh{
		MaterialID:   materialID,
		Transform:    transform,
		InvTransform: invTransform,
		Vertices:     vertices,
		Faces:        faces,
		Centroid:     bbox.Center(),
		bbox:         bbox,
	}
}

// BBox implements bvh.BoundedVolume.
func (m *Mesh) BBox() [2]types.Vec3 {
	return m.bbox.BBox()
}

// Center implements bvh.BoundedVolume.
func (m *Mesh) Center() types.Vec3 {
	return m.Centroid
}
