package scene

import "fresnel/types"

// Camera holds the parameters the coordinator forwards to every worker via
// SYNC_CAMERA (§6). Workers, not the coordinator, derive view/projection
// matrices and per-pixel ray frustums from these values.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	FOV float32
}

func NewCamera(fov float32) *Camera {
	return &Camera{
		Position: types.Vec3{0, 0, 0},
		LookAt:   types.Vec3{0, 0, -1},
		Up:       types.Vec3{0, 1, 0},
		FOV:      fov,
	}
}
