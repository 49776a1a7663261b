package scene

import "fresnel/types"

type MaterialType uint8

const (
	DiffuseMaterial MaterialType = iota
	SpecularMaterial
	RefractiveMaterial
	EmissiveMaterial
)

// Material defines the surface characteristics referenced by a mesh. The
// registry indexes materials by both id and name (§4.2).
type Material struct {
	Name string

	Type MaterialType

	// Diffuse color.
	Diffuse types.Vec3

	// Emissive color (if material is a light source).
	Emissive types.Vec3

	// Index of refraction (refractive materials only).
	IOR float32
}

// IsEmissive reports whether this material emits light, matching the
// registry's emissive-mesh index lookup in StoreMesh.
func (m *Material) IsEmissive() bool {
	return m.Type == EmissiveMaterial || m.Emissive.Len() > floatCmpEpsilon32
}

const floatCmpEpsilon32 = 1e-6
