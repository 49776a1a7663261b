package scene

import "fresnel/types"

// Light is a point light contributed by the scene description. Emissive
// meshes (see Material.IsEmissive) are tracked separately by the registry
// and synced via SYNC_EMISSIVE rather than through the light list.
type Light struct {
	Position  types.Vec3
	Color     types.Vec3
	Intensity float32
}
