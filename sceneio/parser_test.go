package sceneio

import (
	"strings"
	"testing"

	"fresnel/asset"
	"fresnel/scene"
)

func parseString(t *testing.T, src string) (*Scene, []*scene.Mesh) {
	t.Helper()
	res := asset.NewResourceFromStream("test.scene", strings.NewReader(src))
	var materials []*scene.Material
	var meshes []*scene.Mesh
	sc, err := Parse(res,
		func(mat *scene.Material) uint32 {
			materials = append(materials, mat)
			return uint32(len(materials))
		},
		func(m *scene.Mesh) uint32 {
			if m == nil {
				return 0
			}
			meshes = append(meshes, m)
			return uint32(len(meshes))
		})
	if err != nil {
		t.Fatalf("Parse: %s", err)
	}
	return sc, meshes
}

func nopMaterialCallback(*scene.Material) uint32 { return 1 }

func TestParseCameraAndLight(t *testing.T) {
	src := `
bounds -10 -10 -10 10 10 10
camera 0 1 2  0 0 -1  0 1 0  60
light 1 2 3  1 1 1  5.5
`
	sc, _ := parseString(t, src)

	if sc.Camera.FOV != 60 {
		t.Fatalf("expected fov 60, got %v", sc.Camera.FOV)
	}
	if len(sc.Lights) != 1 {
		t.Fatalf("expected 1 light, got %d", len(sc.Lights))
	}
	if sc.Lights[0].Intensity != 5.5 {
		t.Fatalf("expected intensity 5.5, got %v", sc.Lights[0].Intensity)
	}
}

func TestParseMeshStream(t *testing.T) {
	src := `
material red diffuse 1 0 0  0 0 0  1.0
mesh red translate 1 0 0
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
endmesh
`
	sc, meshes := parseString(t, src)

	if len(sc.Materials) != 1 || sc.Materials[0].Name != "red" {
		t.Fatalf("expected material 'red', got %+v", sc.Materials)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if len(m.Vertices) != 3 || len(m.Faces) != 1 {
		t.Fatalf("unexpected mesh shape: %+v", m)
	}
	if m.Faces[0] != (scene.Face{0, 1, 2}) {
		t.Fatalf("unexpected face indices: %v", m.Faces[0])
	}
	if m.MaterialID != 1 {
		t.Fatalf("expected material id 1, got %d", m.MaterialID)
	}
}

func TestParseUndefinedMaterial(t *testing.T) {
	src := "mesh ghost\nv 0 0 0\nendmesh\n"
	res := asset.NewResourceFromStream("test.scene", strings.NewReader(src))
	if _, err := Parse(res, nopMaterialCallback, func(*scene.Mesh) uint32 { return 0 }); err == nil {
		t.Fatal("expected error for undefined material")
	}
}

func TestParseUnterminatedMesh(t *testing.T) {
	src := "material m diffuse 1 1 1  0 0 0  1\nmesh m\nv 0 0 0\n"
	res := asset.NewResourceFromStream("test.scene", strings.NewReader(src))
	if _, err := Parse(res, nopMaterialCallback, func(*scene.Mesh) uint32 { return 0 }); err == nil {
		t.Fatal("expected error for unterminated mesh block")
	}
}

func TestParseFaceOutOfRange(t *testing.T) {
	src := "material m diffuse 1 1 1  0 0 0  1\nmesh m\nv 0 0 0\nf 1 2 3\nendmesh\n"
	res := asset.NewResourceFromStream("test.scene", strings.NewReader(src))
	if _, err := Parse(res, nopMaterialCallback, func(*scene.Mesh) uint32 { return 0 }); err == nil {
		t.Fatal("expected error for out-of-range face index")
	}
}
