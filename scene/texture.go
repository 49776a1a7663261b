package scene

// Texture is a placeholder for the original data model's image-mapped
// texture. The scene format fresnel/sceneio parses has no texture
// directive, so no Texture is ever constructed; the type exists only so
// fresnel/registry's table set matches the Library entity in full.
type Texture struct {
	Name string
}
