package registry

import (
	"testing"

	"fresnel/config"
	"fresnel/scene"
	"fresnel/types"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Bounds.Min = [3]float32{0, 0, 0}
	cfg.Bounds.Max = [3]float32{10, 10, 10}
	return cfg
}

func TestStoreMeshReplacesNotShifts(t *testing.T) {
	reg := New(testConfig())

	m1 := scene.NewMesh(0, types.Ident4(), types.Ident4(), nil, nil)
	m2 := scene.NewMesh(0, types.Ident4(), types.Ident4(), nil, nil)

	id1 := reg.NextMeshID()
	reg.StoreMesh(id1, m1)
	id2 := reg.NextMeshID()
	reg.StoreMesh(id2, m2)

	if id1 != 1 || id2 != 2 {
		t.Fatalf("expected sequential ids 1, 2, got %d, %d", id1, id2)
	}

	// Re-storing at id1 must assign in place, never shifting id2.
	m3 := scene.NewMesh(0, types.Ident4(), types.Ident4(), nil, nil)
	reg.StoreMesh(id1, m3)
	if reg.Mesh(id1) != m3 {
		t.Fatalf("expected id %d to hold the replacement mesh", id1)
	}
	if reg.Mesh(id2) != m2 {
		t.Fatalf("expected id %d to still hold its original mesh after a replace at a lower id", id2)
	}
}

func TestStoreMeshNilFreesSlot(t *testing.T) {
	reg := New(testConfig())
	m := scene.NewMesh(0, types.Ident4(), types.Ident4(), nil, nil)
	id := reg.NextMeshID()
	reg.StoreMesh(id, m)
	reg.StoreMesh(id, nil)

	if reg.Mesh(id) != nil {
		t.Fatalf("expected mesh slot %d to be freed", id)
	}

	// The id itself must stay reserved: the next fresh id is still
	// monotonic, not id again.
	next := reg.NextMeshID()
	if next == id {
		t.Fatalf("freeing a mesh slot must not cause its id to be reused")
	}
}

func TestStoreMeshTracksEmissive(t *testing.T) {
	reg := New(testConfig())
	matID := reg.NextMaterialID()
	reg.StoreMaterial(matID, &scene.Material{Name: "light", Type: scene.EmissiveMaterial}, "light")

	m := scene.NewMesh(matID, types.Ident4(), types.Ident4(), nil, nil)
	id := reg.NextMeshID()
	reg.StoreMesh(id, m)

	ids := reg.EmissiveMeshIDs()
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected emissive list [%d], got %v", id, ids)
	}
}

func TestStoreShaderAndTextureAssignByIndex(t *testing.T) {
	reg := New(testConfig())

	id := reg.NextShaderID()
	reg.StoreShader(id, &scene.Shader{Name: "s1"})
	if got := reg.Shader(id); got == nil || got.Name != "s1" {
		t.Fatalf("expected shader %d to hold s1, got %v", id, got)
	}
	if reg.Shader(id+1) != nil {
		t.Fatalf("expected an unoccupied shader slot to be nil")
	}

	tid := reg.NextTextureID()
	reg.StoreTexture(tid, &scene.Texture{Name: "t1"})
	if got := reg.Texture(tid); got == nil || got.Name != "t1" {
		t.Fatalf("expected texture %d to hold t1, got %v", tid, got)
	}
	if reg.Texture(tid+1) != nil {
		t.Fatalf("expected an unoccupied texture slot to be nil")
	}
}

func TestMaterialByName(t *testing.T) {
	reg := New(testConfig())
	id := reg.NextMaterialID()
	reg.StoreMaterial(id, &scene.Material{Name: "wall"}, "wall")

	got, ok := reg.MaterialByName("wall")
	if !ok || got != id {
		t.Fatalf("expected wall -> %d, got %d ok=%v", id, got, ok)
	}
	if _, ok := reg.MaterialByName("missing"); ok {
		t.Fatalf("expected lookup of an unknown material name to fail")
	}
}

func TestForEachWorkerSkipsZeroAndNil(t *testing.T) {
	reg := New(testConfig())
	reg.StoreWorker(1, NewWorker(1, nil, 3))
	reg.StoreWorker(3, NewWorker(3, nil, 3))

	var seen []uint32
	reg.ForEachWorker(func(id uint32, w *Worker) {
		seen = append(seen, id)
	})
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 3 {
		t.Fatalf("expected [1, 3], got %v", seen)
	}
	if n := reg.WorkerCount(); n != 2 {
		t.Fatalf("expected WorkerCount 2, got %d", n)
	}
}

func TestSpatialCoverage(t *testing.T) {
	reg := New(testConfig())
	const w = 4
	for i := uint32(1); i <= w; i++ {
		reg.StoreWorker(i, NewWorker(i, nil, 3))
	}
	reg.BuildSpatialIndex()

	corners := []types.Vec3{
		{0, 0, 0},
		{10, 10, 10},
		{5, 5, 5},
		{0, 10, 0},
	}
	for _, c := range corners {
		mesh := scene.NewMesh(0, types.Translate4(c), types.Ident4(), []types.Vec3{{0, 0, 0}}, nil)
		code := reg.SpaceCodeForMesh(mesh)
		owner := reg.LookupWorkerBySpaceCode(code)
		if owner < 1 || owner > w {
			t.Fatalf("centroid %v mapped to out-of-range worker id %d", c, owner)
		}
	}
}
