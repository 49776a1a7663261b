// Package registry implements the coordinator's Library: the owner of
// configuration, camera, final image, light list, and the dense
// id-indexed tables of shaders, textures, materials, meshes, and
// workers.
package registry

import (
	"fresnel/config"
	"fresnel/imagebuf"
	"fresnel/scene"
	"fresnel/spatial"
)

// Registry owns exactly one of each of config, camera, final image,
// light list, and the worker-level BVH, plus dense id-indexed tables of
// shaders, textures, materials, meshes and workers (index 0 always
// nil). Storing at an existing id replaces that slot; it never shifts
// later ids.
type Registry struct {
	Config *config.Config
	Camera *scene.Camera
	Image  *imagebuf.Image
	Lights []scene.Light

	// WorkerBVH is the top-level WBVH built once built==W and
	// !UseLinearScan (§4.4). MeshBVH is part of the original data
	// model's Library but is never populated by this coordinator: BVH
	// construction over mesh geometry happens at each worker, which
	// reports back only its bounding box (§4.3's BUILDING_BVH OK).
	WorkerBVH []scene.BvhNode
	MeshBVH   []scene.BvhNode

	// shaders and textures complete the Library entity's table set.
	// Nothing in fresnel/sceneio's scene format ever constructs a Shader
	// or Texture, so both tables stay at their id-0-reserved initial
	// state for the life of a run; see protocol.SYNC_SHADER/SYNC_TEXTURE.
	shaders  []*scene.Shader
	textures []*scene.Texture

	materials         []*scene.Material
	materialNameIndex map[string]uint32

	meshes []*scene.Mesh

	workers []*Worker

	emissiveMeshIDs []uint32

	spatialIndex *spatial.Index

	nextMeshID     uint32
	nextMaterialID uint32
	nextShaderID   uint32
	nextTextureID  uint32
}

// New creates an empty registry with id 0 reserved in every table.
func New(cfg *config.Config) *Registry {
	return &Registry{
		Config:            cfg,
		shaders:           []*scene.Shader{nil},
		textures:          []*scene.Texture{nil},
		materials:         []*scene.Material{nil},
		materialNameIndex: make(map[string]uint32),
		meshes:            []*scene.Mesh{nil},
		workers:           []*Worker{nil},
		nextMeshID:        1,
		nextMaterialID:    1,
		nextShaderID:      1,
		nextTextureID:     1,
	}
}

// NextShaderID returns a fresh, monotonically increasing shader id.
func (r *Registry) NextShaderID() uint32 {
	id := r.nextShaderID
	r.nextShaderID++
	return id
}

// StoreShader assigns shader at id, growing the table on demand and
// replacing (never shifting) any prior occupant.
func (r *Registry) StoreShader(id uint32, shader *scene.Shader) {
	r.shaders = growShaders(r.shaders, id)
	r.shaders[id] = shader
}

// Shader returns the shader stored at id, or nil if id is out of range
// or unoccupied.
func (r *Registry) Shader(id uint32) *scene.Shader {
	if int(id) >= len(r.shaders) {
		return nil
	}
	return r.shaders[id]
}

// NextTextureID returns a fresh, monotonically increasing texture id.
func (r *Registry) NextTextureID() uint32 {
	id := r.nextTextureID
	r.nextTextureID++
	return id
}

// StoreTexture assigns texture at id, growing the table on demand and
// replacing (never shifting) any prior occupant.
func (r *Registry) StoreTexture(id uint32, texture *scene.Texture) {
	r.textures = growTextures(r.textures, id)
	r.textures[id] = texture
}

// Texture returns the texture stored at id, or nil if id is out of range
// or unoccupied.
func (r *Registry) Texture(id uint32) *scene.Texture {
	if int(id) >= len(r.textures) {
		return nil
	}
	return r.textures[id]
}

// NextMaterialID returns a fresh, monotonically increasing material id.
// Used by the scene streaming pipeline's material callback, which runs on
// the parser goroutine but -- like NextMeshID's caller -- never races the
// event loop: the materials table is only read by the event loop after the
// streaming sentinel, by which point the parser goroutine has exited.
func (r *Registry) NextMaterialID() uint32 {
	id := r.nextMaterialID
	r.nextMaterialID++
	return id
}

// StoreMaterial assigns mat at id, growing the table on demand and
// replacing (never shifting) any prior occupant.
func (r *Registry) StoreMaterial(id uint32, mat *scene.Material, name string) {
	r.materials = growMaterials(r.materials, id)
	r.materials[id] = mat
	if mat != nil && name != "" {
		r.materialNameIndex[name] = id
	}
}

// MaterialByName looks up a material's id via the name index.
func (r *Registry) MaterialByName(name string) (uint32, bool) {
	id, ok := r.materialNameIndex[name]
	return id, ok
}

// Material returns the material stored at id, or nil if id is out of
// range or unoccupied.
func (r *Registry) Material(id uint32) *scene.Material {
	if int(id) >= len(r.materials) {
		return nil
	}
	return r.materials[id]
}

// NextMeshID returns a fresh, monotonically increasing mesh id.
func (r *Registry) NextMeshID() uint32 {
	id := r.nextMeshID
	r.nextMeshID++
	return id
}

// StoreMesh assigns mesh at id, growing the table on demand and
// replacing any prior occupant. If mesh is non-nil and its material is
// emissive, id is appended to the emissive-mesh list. Storing nil at an
// id (after the mesh has been shipped to its worker) frees the slot
// without reclaiming the id.
func (r *Registry) StoreMesh(id uint32, mesh *scene.Mesh) {
	r.meshes = growMeshes(r.meshes, id)
	r.meshes[id] = mesh
	if mesh != nil {
		if mat := r.Material(mesh.MaterialID); mat != nil && mat.IsEmissive() {
			r.emissiveMeshIDs = append(r.emissiveMeshIDs, id)
		}
	}
}

// Mesh returns the mesh stored at id, or nil if freed/out of range.
func (r *Registry) Mesh(id uint32) *scene.Mesh {
	if int(id) >= len(r.meshes) {
		return nil
	}
	return r.meshes[id]
}

// EmissiveMeshIDs returns the ids of every mesh whose material is
// emissive, in the order they were stored.
func (r *Registry) EmissiveMeshIDs() []uint32 {
	return r.emissiveMeshIDs
}

// StoreWorker assigns w at id, growing the table on demand.
func (r *Registry) StoreWorker(id uint32, w *Worker) {
	r.workers = growWorkers(r.workers, id)
	r.workers[id] = w
}

// Worker returns the worker record stored at id, or nil.
func (r *Registry) Worker(id uint32) *Worker {
	if int(id) >= len(r.workers) {
		return nil
	}
	return r.workers[id]
}

// WorkerCount returns W, the number of occupied worker slots (ids [1, W]).
func (r *Registry) WorkerCount() int {
	n := 0
	r.ForEachWorker(func(uint32, *Worker) { n++ })
	return n
}

// ForEachWorker iterates live workers in id order, skipping id 0 and
// nil slots.
func (r *Registry) ForEachWorker(fn func(id uint32, w *Worker)) {
	for id := 1; id < len(r.workers); id++ {
		if r.workers[id] != nil {
			fn(uint32(id), r.workers[id])
		}
	}
}

// ForEachMesh iterates live meshes in id order, skipping id 0 and nil
// (freed) slots.
func (r *Registry) ForEachMesh(fn func(id uint32, m *scene.Mesh)) {
	for id := 1; id < len(r.meshes); id++ {
		if r.meshes[id] != nil {
			fn(uint32(id), r.meshes[id])
		}
	}
}

// BuildSpatialIndex builds the permutation table over the currently
// stored worker ids, using Config.Bounds as the quantization range.
func (r *Registry) BuildSpatialIndex() {
	var ids []uint32
	r.ForEachWorker(func(id uint32, _ *Worker) {
		ids = append(ids, id)
	})
	r.spatialIndex = spatial.BuildIndex(ids)
}

// LookupWorkerBySpaceCode returns the worker id owning the given
// spacecode, via the spatial index built by BuildSpatialIndex.
func (r *Registry) LookupWorkerBySpaceCode(code uint64) uint32 {
	if r.spatialIndex == nil {
		return 0
	}
	return r.spatialIndex.Lookup(code)
}

// SpaceCodeForMesh computes the spacecode of mesh's centroid within the
// configured scene bounds.
func (r *Registry) SpaceCodeForMesh(mesh *scene.Mesh) uint64 {
	return spatial.Encode(mesh.Centroid, r.Config.MinBounds(), r.Config.MaxBounds())
}

func growShaders(s []*scene.Shader, id uint32) []*scene.Shader {
	for uint32(len(s)) <= id {
		s = append(s, nil)
	}
	return s
}

func growTextures(s []*scene.Texture, id uint32) []*scene.Texture {
	for uint32(len(s)) <= id {
		s = append(s, nil)
	}
	return s
}

func growMaterials(s []*scene.Material, id uint32) []*scene.Material {
	for uint32(len(s)) <= id {
		s = append(s, nil)
	}
	return s
}

func growMeshes(s []*scene.Mesh, id uint32) []*scene.Mesh {
	for uint32(len(s)) <= id {
		s = append(s, nil)
	}
	return s
}

func growWorkers(s []*Worker, id uint32) []*Worker {
	for uint32(len(s)) <= id {
		s = append(s, nil)
	}
	return s
}
