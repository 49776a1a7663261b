package protocol

import (
	"testing"

	"fresnel/scene"
	"fresnel/types"
)

func TestRenderStartPacking(t *testing.T) {
	body := EncodeRenderStart(32, 16)
	offset, chunk, err := DecodeRenderStart(body)
	if err != nil {
		t.Fatalf("DecodeRenderStart: %s", err)
	}
	if offset != 32 || chunk != 16 {
		t.Fatalf("expected offset=32 chunk=16, got offset=%d chunk=%d", offset, chunk)
	}
}

func TestRenderStartScenario(t *testing.T) {
	// Mirrors the two-worker scenario: width=64, W=2 -> chunk=32 each,
	// payloads (0<<16)|32 and (32<<16)|32.
	w1 := EncodeRenderStart(0, 32)
	w2 := EncodeRenderStart(32, 32)

	o1, c1, _ := DecodeRenderStart(w1)
	o2, c2, _ := DecodeRenderStart(w2)
	if o1 != 0 || c1 != 32 || o2 != 32 || c2 != 32 {
		t.Fatalf("unexpected tile payloads: (%d,%d) (%d,%d)", o1, c1, o2, c2)
	}
}

func TestAABBRoundTrip(t *testing.T) {
	box := types.AABB{Min: types.Vec3{-1, -2, -3}, Max: types.Vec3{4, 5, 6}}
	body := EncodeAABB(box)
	if len(body) != AABBSize {
		t.Fatalf("expected AABB body of %d bytes, got %d", AABBSize, len(body))
	}
	got, err := DecodeAABB(body)
	if err != nil {
		t.Fatalf("DecodeAABB: %s", err)
	}
	if got != box {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, box)
	}
}

func TestAABBWrongSizeRejected(t *testing.T) {
	if _, err := DecodeAABB(make([]byte, AABBSize-1)); err == nil {
		t.Fatal("expected error for undersized AABB body")
	}
}

func TestCameraRoundTrip(t *testing.T) {
	cam := &scene.Camera{
		Position: types.Vec3{1, 2, 3},
		LookAt:   types.Vec3{0, 0, -1},
		Up:       types.Vec3{0, 1, 0},
		FOV:      72.5,
	}
	got, err := DecodeCamera(EncodeCamera(cam))
	if err != nil {
		t.Fatalf("DecodeCamera: %s", err)
	}
	if *got != *cam {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, cam)
	}
}

func TestMeshRoundTrip(t *testing.T) {
	mesh := scene.NewMesh(
		3,
		types.Ident4(),
		types.Ident4(),
		[]types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		[]scene.Face{{0, 1, 2}},
	)
	mesh.ID = 7

	got, err := DecodeMesh(EncodeMesh(mesh))
	if err != nil {
		t.Fatalf("DecodeMesh: %s", err)
	}
	if got.ID != mesh.ID || got.MaterialID != mesh.MaterialID {
		t.Fatalf("id/material mismatch: got %+v", got)
	}
	if len(got.Vertices) != len(mesh.Vertices) || len(got.Faces) != len(mesh.Faces) {
		t.Fatalf("shape mismatch: got %+v", got)
	}
	for i := range mesh.Vertices {
		if got.Vertices[i] != mesh.Vertices[i] {
			t.Fatalf("vertex %d mismatch: got %v want %v", i, got.Vertices[i], mesh.Vertices[i])
		}
	}
	if got.Faces[0] != mesh.Faces[0] {
		t.Fatalf("face mismatch: got %v want %v", got.Faces[0], mesh.Faces[0])
	}
}

func TestEmissiveListRoundTrip(t *testing.T) {
	entries := []EmissiveEntry{{MeshID: 1, WorkerID: 1}, {MeshID: 5, WorkerID: 2}}
	got, err := DecodeEmissiveList(EncodeEmissiveList(entries))
	if err != nil {
		t.Fatalf("DecodeEmissiveList: %s", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got[i], entries[i])
		}
	}
}

func TestStatsRoundTrip(t *testing.T) {
	s := Stats{Produced: 100, Killed: 40, Queued: 7, Progress: 0.33}
	got, err := DecodeStats(EncodeStats(s))
	if err != nil {
		t.Fatalf("DecodeStats: %s", err)
	}
	if got != s {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, s)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	c := ConfigPayload{
		Width: 64, Height: 32,
		MinBounds: types.Vec3{-10, -10, -10}, MaxBounds: types.Vec3{10, 10, 10},
		Runaway: 0.2, StatsIntervalMS: 1000, MaxIntervals: 3, UseLinearScan: true,
	}
	got, err := DecodeConfig(EncodeConfig(c))
	if err != nil {
		t.Fatalf("DecodeConfig: %s", err)
	}
	if got != c {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, c)
	}
}

func TestCameraAndLightsRoundTrip(t *testing.T) {
	cam := &scene.Camera{
		Position: types.Vec3{1, 2, 3},
		LookAt:   types.Vec3{0, 0, -1},
		Up:       types.Vec3{0, 1, 0},
		FOV:      72.5,
	}
	lights := []scene.Light{
		{Position: types.Vec3{0, 5, 0}, Color: types.Vec3{1, 1, 1}, Intensity: 5},
		{Position: types.Vec3{1, 2, 3}, Color: types.Vec3{1, 0, 0}, Intensity: 2.5},
	}
	gotCam, gotLights, err := DecodeCameraAndLights(EncodeCameraAndLights(cam, lights))
	if err != nil {
		t.Fatalf("DecodeCameraAndLights: %s", err)
	}
	if *gotCam != *cam {
		t.Fatalf("camera mismatch: got %+v, want %+v", gotCam, cam)
	}
	if len(gotLights) != len(lights) {
		t.Fatalf("expected %d lights, got %d", len(lights), len(gotLights))
	}
	for i := range lights {
		if gotLights[i] != lights[i] {
			t.Fatalf("light %d mismatch: got %+v want %+v", i, gotLights[i], lights[i])
		}
	}
}

func TestWBVHRoundTrip(t *testing.T) {
	var nodes []scene.BvhNode
	var leaf scene.BvhNode
	leaf.Min = types.Vec4{-1, -2, -3, 0}
	leaf.Max = types.Vec4{1, 2, 3, 0}
	leaf.SetLeaf(0, 2)
	nodes = append(nodes, leaf)

	got, err := DecodeWBVH(EncodeWBVH(nodes))
	if err != nil {
		t.Fatalf("DecodeWBVH: %s", err)
	}
	if len(got) != len(nodes) {
		t.Fatalf("expected %d nodes, got %d", len(nodes), len(got))
	}
	if got[0].Min != nodes[0].Min || got[0].Max != nodes[0].Max {
		t.Fatalf("node mismatch: got %+v, want %+v", got[0], nodes[0])
	}
	if !got[0].IsLeaf() {
		t.Fatalf("expected decoded node to still report as a leaf")
	}
}

func TestKindString(t *testing.T) {
	if RENDER_START.String() != "RENDER_START" {
		t.Fatalf("unexpected string for RENDER_START: %s", RENDER_START.String())
	}
	if Kind(9999).String() != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN for undefined kind")
	}
}
