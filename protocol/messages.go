package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"fresnel/scene"
	"fresnel/types"
)

func float32bits(f float32) uint32   { return math.Float32bits(f) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }

// AABBSize is the on-wire size of a serialised AABB: min.xyz + max.xyz,
// as little-endian float32s. BUILDING_BVH's OK payload must be exactly
// this many bytes; any other size aborts the run (§4.3).
const AABBSize = 6 * 4

// EncodeInit serialises the INIT body: the worker's assigned id.
func EncodeInit(workerID uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, workerID)
	return buf
}

// DecodeInit parses an INIT body.
func DecodeInit(body []byte) (workerID uint32, err error) {
	if len(body) != 4 {
		return 0, fmt.Errorf("protocol: INIT body must be 4 bytes, got %d", len(body))
	}
	return binary.LittleEndian.Uint32(body), nil
}

// EncodeRenderStart packs (offset<<16)|chunk into the RENDER_START body,
// per the original tile-assignment formula (§4.4).
func EncodeRenderStart(offset, chunk uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, (offset<<16)|chunk)
	return buf
}

// DecodeRenderStart unpacks a RENDER_START payload.
func DecodeRenderStart(body []byte) (offset, chunk uint32, err error) {
	if len(body) != 4 {
		return 0, 0, fmt.Errorf("protocol: RENDER_START body must be 4 bytes, got %d", len(body))
	}
	packed := binary.LittleEndian.Uint32(body)
	return packed >> 16, packed & 0xffff, nil
}

// EncodeAABB serialises an AABB as min.xyz, max.xyz.
func EncodeAABB(box types.AABB) []byte {
	buf := make([]byte, AABBSize)
	putVec3(buf[0:12], box.Min)
	putVec3(buf[12:24], box.Max)
	return buf
}

// DecodeAABB parses the AABB carried in BUILDING_BVH's OK payload.
func DecodeAABB(body []byte) (types.AABB, error) {
	if len(body) != AABBSize {
		return types.AABB{}, fmt.Errorf("protocol: AABB body must be %d bytes, got %d", AABBSize, len(body))
	}
	return types.AABB{
		Min: getVec3(body[0:12]),
		Max: getVec3(body[12:24]),
	}, nil
}

// EncodeCamera serialises a camera as position, lookAt, up, fov.
func EncodeCamera(cam *scene.Camera) []byte {
	buf := make([]byte, 10*4)
	putVec3(buf[0:12], cam.Position)
	putVec3(buf[12:24], cam.LookAt)
	putVec3(buf[24:36], cam.Up)
	binary.LittleEndian.PutUint32(buf[36:40], float32bits(cam.FOV))
	return buf
}

// DecodeCamera parses a SYNC_CAMERA body.
func DecodeCamera(body []byte) (*scene.Camera, error) {
	if len(body) != 10*4 {
		return nil, fmt.Errorf("protocol: camera body must be %d bytes, got %d", 10*4, len(body))
	}
	return &scene.Camera{
		Position: getVec3(body[0:12]),
		LookAt:   getVec3(body[12:24]),
		Up:       getVec3(body[24:36]),
		FOV:      float32frombits(binary.LittleEndian.Uint32(body[36:40])),
	}, nil
}

// EncodeMesh serialises a mesh: id, materialID, transform, invTransform,
// vertex list, face list.
func EncodeMesh(m *scene.Mesh) []byte {
	size := 4 + 4 + 16*4 + 16*4 + 4 + len(m.Vertices)*12 + 4 + len(m.Faces)*12
	buf := make([]byte, size)
	off := 0

	binary.LittleEndian.PutUint32(buf[off:], m.ID)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], m.MaterialID)
	off += 4
	off += putMat4(buf[off:], m.Transform)
	off += putMat4(buf[off:], m.InvTransform)

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(m.Vertices)))
	off += 4
	for _, v := range m.Vertices {
		putVec3(buf[off:off+12], v)
		off += 12
	}

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(m.Faces)))
	off += 4
	for _, f := range m.Faces {
		binary.LittleEndian.PutUint32(buf[off:], f[0])
		binary.LittleEndian.PutUint32(buf[off+4:], f[1])
		binary.LittleEndian.PutUint32(buf[off+8:], f[2])
		off += 12
	}

	return buf
}

// DecodeMesh parses a SYNC_MESH body.
func DecodeMesh(body []byte) (*scene.Mesh, error) {
	const headerSize = 4 + 4 + 16*4 + 16*4
	if len(body) < headerSize+4 {
		return nil, fmt.Errorf("protocol: mesh body too short: %d bytes", len(body))
	}

	off := 0
	id := binary.LittleEndian.Uint32(body[off:])
	off += 4
	matID := binary.LittleEndian.Uint32(body[off:])
	off += 4
	transform, n := getMat4(body[off:])
	off += n
	invTransform, n := getMat4(body[off:])
	off += n

	vertCount := binary.LittleEndian.Uint32(body[off:])
	off += 4
	if len(body) < off+int(vertCount)*12+4 {
		return nil, fmt.Errorf("protocol: mesh body truncated in vertex list")
	}
	vertices := make([]types.Vec3, vertCount)
	for i := range vertices {
		vertices[i] = getVec3(body[off : off+12])
		off += 12
	}

	faceCount := binary.LittleEndian.Uint32(body[off:])
	off += 4
	if len(body) < off+int(faceCount)*12 {
		return nil, fmt.Errorf("protocol: mesh body truncated in face list")
	}
	faces := make([]scene.Face, faceCount)
	for i := range faces {
		faces[i] = scene.Face{
			binary.LittleEndian.Uint32(body[off:]),
			binary.LittleEndian.Uint32(body[off+4:]),
			binary.LittleEndian.Uint32(body[off+8:]),
		}
		off += 12
	}

	mesh := scene.NewMesh(matID, transform, invTransform, vertices, faces)
	mesh.ID = id
	return mesh, nil
}

// EmissiveEntry pairs an emissive mesh id with the worker that owns it,
// the shape SYNC_EMISSIVE broadcasts to every worker.
type EmissiveEntry struct {
	MeshID   uint32
	WorkerID uint32
}

// EncodeEmissiveList serialises the SYNC_EMISSIVE body.
func EncodeEmissiveList(entries []EmissiveEntry) []byte {
	buf := make([]byte, 4+len(entries)*8)
	binary.LittleEndian.PutUint32(buf, uint32(len(entries)))
	off := 4
	for _, e := range entries {
		binary.LittleEndian.PutUint32(buf[off:], e.MeshID)
		binary.LittleEndian.PutUint32(buf[off+4:], e.WorkerID)
		off += 8
	}
	return buf
}

// DecodeEmissiveList parses a SYNC_EMISSIVE body.
func DecodeEmissiveList(body []byte) ([]EmissiveEntry, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("protocol: emissive list body too short")
	}
	count := binary.LittleEndian.Uint32(body)
	if len(body) != 4+int(count)*8 {
		return nil, fmt.Errorf("protocol: emissive list body size mismatch")
	}
	entries := make([]EmissiveEntry, count)
	off := 4
	for i := range entries {
		entries[i] = EmissiveEntry{
			MeshID:   binary.LittleEndian.Uint32(body[off:]),
			WorkerID: binary.LittleEndian.Uint32(body[off+4:]),
		}
		off += 8
	}
	return entries, nil
}

// Stats carries one worker's per-interval ray counters and progress.
type Stats struct {
	Produced uint32
	Killed   uint32
	Queued   uint32
	Progress float32
}

// EncodeStats serialises a RENDER_STATS body.
func EncodeStats(s Stats) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], s.Produced)
	binary.LittleEndian.PutUint32(buf[4:8], s.Killed)
	binary.LittleEndian.PutUint32(buf[8:12], s.Queued)
	binary.LittleEndian.PutUint32(buf[12:16], float32bits(s.Progress))
	return buf
}

// DecodeStats parses a RENDER_STATS body.
func DecodeStats(body []byte) (Stats, error) {
	if len(body) != 16 {
		return Stats{}, fmt.Errorf("protocol: stats body must be 16 bytes, got %d", len(body))
	}
	return Stats{
		Produced: binary.LittleEndian.Uint32(body[0:4]),
		Killed:   binary.LittleEndian.Uint32(body[4:8]),
		Queued:   binary.LittleEndian.Uint32(body[8:12]),
		Progress: float32frombits(binary.LittleEndian.Uint32(body[12:16])),
	}, nil
}

// ConfigPayload is the SYNC_CONFIG body: everything a worker needs to know
// about the run besides its own id (carried separately by INIT).
type ConfigPayload struct {
	Width, Height   uint32
	MinBounds       types.Vec3
	MaxBounds       types.Vec3
	Runaway         float32
	StatsIntervalMS uint32
	MaxIntervals    uint32
	UseLinearScan   bool
}

const configPayloadSize = 4 + 4 + 12 + 12 + 4 + 4 + 4 + 1

// EncodeConfig serialises a ConfigPayload for SYNC_CONFIG.
func EncodeConfig(c ConfigPayload) []byte {
	buf := make([]byte, configPayloadSize)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], c.Width)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], c.Height)
	off += 4
	putVec3(buf[off:off+12], c.MinBounds)
	off += 12
	putVec3(buf[off:off+12], c.MaxBounds)
	off += 12
	binary.LittleEndian.PutUint32(buf[off:], float32bits(c.Runaway))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], c.StatsIntervalMS)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], c.MaxIntervals)
	off += 4
	if c.UseLinearScan {
		buf[off] = 1
	}
	return buf
}

// DecodeConfig parses a SYNC_CONFIG body.
func DecodeConfig(body []byte) (ConfigPayload, error) {
	if len(body) != configPayloadSize {
		return ConfigPayload{}, fmt.Errorf("protocol: config body must be %d bytes, got %d", configPayloadSize, len(body))
	}
	off := 0
	c := ConfigPayload{}
	c.Width = binary.LittleEndian.Uint32(body[off:])
	off += 4
	c.Height = binary.LittleEndian.Uint32(body[off:])
	off += 4
	c.MinBounds = getVec3(body[off : off+12])
	off += 12
	c.MaxBounds = getVec3(body[off : off+12])
	off += 12
	c.Runaway = float32frombits(binary.LittleEndian.Uint32(body[off:]))
	off += 4
	c.StatsIntervalMS = binary.LittleEndian.Uint32(body[off:])
	off += 4
	c.MaxIntervals = binary.LittleEndian.Uint32(body[off:])
	off += 4
	c.UseLinearScan = body[off] != 0
	return c, nil
}

// EncodeCameraAndLights serialises a SYNC_CAMERA body: the fixed camera
// block (same layout as EncodeCamera) followed by a light count and the
// point-light list. Lights are folded into this message rather than given
// a wire kind of their own, since they're known only once scene streaming
// has drained (§4.5) and the original state table has no dedicated light
// phase between SYNCING_ASSETS and SYNCING_CAMERA.
func EncodeCameraAndLights(cam *scene.Camera, lights []scene.Light) []byte {
	buf := make([]byte, 10*4+4+len(lights)*(3*4+3*4+4))
	off := copy(buf, EncodeCamera(cam))
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(lights)))
	off += 4
	for _, l := range lights {
		putVec3(buf[off:off+12], l.Position)
		off += 12
		putVec3(buf[off:off+12], l.Color)
		off += 12
		binary.LittleEndian.PutUint32(buf[off:], float32bits(l.Intensity))
		off += 4
	}
	return buf
}

// DecodeCameraAndLights parses a SYNC_CAMERA body produced by
// EncodeCameraAndLights.
func DecodeCameraAndLights(body []byte) (*scene.Camera, []scene.Light, error) {
	const camSize = 10 * 4
	if len(body) < camSize+4 {
		return nil, nil, fmt.Errorf("protocol: camera+lights body too short: %d bytes", len(body))
	}
	cam, err := DecodeCamera(body[:camSize])
	if err != nil {
		return nil, nil, err
	}
	off := camSize
	count := binary.LittleEndian.Uint32(body[off:])
	off += 4
	const lightSize = 3*4 + 3*4 + 4
	if len(body) != off+int(count)*lightSize {
		return nil, nil, fmt.Errorf("protocol: camera+lights body size mismatch")
	}
	lights := make([]scene.Light, count)
	for i := range lights {
		lights[i].Position = getVec3(body[off : off+12])
		off += 12
		lights[i].Color = getVec3(body[off : off+12])
		off += 12
		lights[i].Intensity = float32frombits(binary.LittleEndian.Uint32(body[off:]))
		off += 4
	}
	return cam, lights, nil
}

// bvhNodeSize is the on-wire size of one scene.BvhNode: Min.xyzw +
// Max.xyzw as little-endian float32s.
const bvhNodeSize = 8 * 4

// EncodeWBVH serialises the top-level worker BVH for SYNC_WBVH.
func EncodeWBVH(nodes []scene.BvhNode) []byte {
	buf := make([]byte, 4+len(nodes)*bvhNodeSize)
	binary.LittleEndian.PutUint32(buf, uint32(len(nodes)))
	off := 4
	for _, n := range nodes {
		off += putVec4(buf[off:], n.Min)
		off += putVec4(buf[off:], n.Max)
	}
	return buf
}

// DecodeWBVH parses a SYNC_WBVH body.
func DecodeWBVH(body []byte) ([]scene.BvhNode, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("protocol: WBVH body too short")
	}
	count := binary.LittleEndian.Uint32(body)
	if len(body) != 4+int(count)*bvhNodeSize {
		return nil, fmt.Errorf("protocol: WBVH body size mismatch")
	}
	off := 4
	nodes := make([]scene.BvhNode, count)
	for i := range nodes {
		nodes[i].Min, off = getVec4(body, off)
		nodes[i].Max, off = getVec4(body, off)
	}
	return nodes, nil
}

func putVec4(dst []byte, v types.Vec4) int {
	binary.LittleEndian.PutUint32(dst[0:4], float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], float32bits(v[2]))
	binary.LittleEndian.PutUint32(dst[12:16], float32bits(v[3]))
	return 16
}

func getVec4(src []byte, off int) (types.Vec4, int) {
	v := types.Vec4{
		float32frombits(binary.LittleEndian.Uint32(src[off:])),
		float32frombits(binary.LittleEndian.Uint32(src[off+4:])),
		float32frombits(binary.LittleEndian.Uint32(src[off+8:])),
		float32frombits(binary.LittleEndian.Uint32(src[off+12:])),
	}
	return v, off + 16
}

func putVec3(dst []byte, v types.Vec3) {
	binary.LittleEndian.PutUint32(dst[0:4], float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], float32bits(v[2]))
}

func getVec3(src []byte) types.Vec3 {
	return types.Vec3{
		float32frombits(binary.LittleEndian.Uint32(src[0:4])),
		float32frombits(binary.LittleEndian.Uint32(src[4:8])),
		float32frombits(binary.LittleEndian.Uint32(src[8:12])),
	}
}

func putMat4(dst []byte, m types.Mat4) int {
	for i, f := range m {
		binary.LittleEndian.PutUint32(dst[i*4:], float32bits(f))
	}
	return 16 * 4
}

func getMat4(src []byte) (types.Mat4, int) {
	var m types.Mat4
	for i := range m {
		m[i] = float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return m, 16 * 4
}
