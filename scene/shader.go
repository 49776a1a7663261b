package scene

// Shader is a placeholder for the original data model's programmable
// shading unit. The scene format fresnel/sceneio parses has no shader
// directive, so no Shader is ever constructed; the type exists only so
// fresnel/registry's table set matches the Library entity in full.
type Shader struct {
	Name string
}
