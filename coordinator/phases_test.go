package coordinator

import (
	"testing"

	"fresnel/config"
	"fresnel/protocol"
	"fresnel/registry"
	"fresnel/scene"
	"fresnel/types"
)

// TestBuildAndBroadcastWBVH covers scenario 2: with four workers reporting
// bounds and UseLinearScan off, the coordinator builds exactly one worker
// BVH and broadcasts SYNC_WBVH to every worker, moving each into
// SyncingWBVH.
func TestBuildAndBroadcastWBVH(t *testing.T) {
	cfg := &config.Config{}
	c, chans := newTestCoordinator(t, 4, cfg)
	c.useLinearScan = false

	bounds := []types.AABB{
		{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{1, 1, 1}},
		{Min: types.Vec3{1, 0, 0}, Max: types.Vec3{2, 1, 1}},
		{Min: types.Vec3{0, 1, 0}, Max: types.Vec3{1, 2, 1}},
		{Min: types.Vec3{1, 1, 0}, Max: types.Vec3{2, 2, 1}},
	}
	for i, b := range bounds {
		id := uint32(i + 1)
		c.reg.Worker(id).State = registry.BuildingBVH
		c.workerBounds = append(c.workerBounds, scene.WorkerBound{WorkerID: id, Bounds: b})
	}

	if err := c.buildAndBroadcastWBVH(); err != nil {
		t.Fatalf("buildAndBroadcastWBVH: %s", err)
	}
	flushAll(t, c)

	if len(c.reg.WorkerBVH) == 0 {
		t.Fatal("expected a non-empty worker BVH to be built")
	}

	for i, ch := range chans {
		id := uint32(i + 1)
		msg := recv(t, ch)
		if protocol.Kind(msg.Kind) != protocol.SYNC_WBVH {
			t.Fatalf("worker %d: expected SYNC_WBVH, got %s", id, protocol.Kind(msg.Kind))
		}
		nodes, err := protocol.DecodeWBVH(msg.Body)
		if err != nil {
			t.Fatalf("worker %d: DecodeWBVH: %s", id, err)
		}
		if len(nodes) != len(c.reg.WorkerBVH) {
			t.Fatalf("worker %d: got %d BVH nodes, want %d", id, len(nodes), len(c.reg.WorkerBVH))
		}
		if st := c.reg.Worker(id).State; st != registry.SyncingWBVH {
			t.Fatalf("worker %d: expected state SyncingWBVH, got %s", id, st)
		}
	}
}
