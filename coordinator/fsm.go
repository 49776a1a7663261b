package coordinator

import (
	"fmt"

	"fresnel/protocol"
	"fresnel/registry"
	"fresnel/scene"
)

// onOK advances workerID's per-connection state machine (§4.3) by one
// step. SyncingAssets self-loops, driving the streaming pipeline one mesh
// at a time. BuildingBVH moves on at once only under linear scan;
// otherwise it stays put until built==W triggers the WBVH broadcast.
// Configuring and SyncingWBVH send nothing to the worker itself; they
// bump a phase counter whose W-th step fires the phase action. The other
// states send whatever the next state requires.
func (c *Coordinator) onOK(workerID uint32, body []byte) error {
	w := c.reg.Worker(workerID)
	if w == nil {
		c.logger.Warningf("OK from unknown worker %d", workerID)
		return nil
	}

	switch w.State {
	case registry.Initializing:
		w.State = registry.Configuring
		c.logger.Noticef("[worker %d] configuring", workerID)
		return c.send(w, protocol.SYNC_CONFIG, protocol.EncodeConfig(c.configPayload()))

	case registry.Configuring:
		w.State = registry.SyncingAssets
		c.syncing++
		c.logger.Noticef("[worker %d] ready for asset sync", workerID)
		if c.syncing == c.reg.WorkerCount() {
			c.startSync()
		}
		return nil

	case registry.SyncingAssets:
		// The worker just acknowledged the mesh most recently handed to
		// it. Drop it from the registry (its owner now holds the only
		// copy) and wake the parser goroutine for the next one (§4.5).
		c.reg.StoreMesh(c.currentMeshID, nil)
		c.meshSynced <- struct{}{}
		return nil

	case registry.SyncingCamera:
		w.State = registry.SyncingEmissive
		c.logger.Noticef("[worker %d] syncing emissive list", workerID)
		return c.send(w, protocol.SYNC_EMISSIVE, protocol.EncodeEmissiveList(c.emissiveEntries()))

	case registry.SyncingEmissive:
		w.State = registry.BuildingBVH
		c.logger.Noticef("[worker %d] building local BVH", workerID)
		return c.send(w, protocol.BUILD_BVH, nil)

	case registry.BuildingBVH:
		box, err := protocol.DecodeAABB(body)
		if err != nil {
			return fmt.Errorf("%w: worker %d: %s", ErrBadAABBSize, workerID, err)
		}
		w.Bounds = &box
		c.workerBounds = append(c.workerBounds, scene.WorkerBound{WorkerID: workerID, Bounds: box})
		c.built++
		c.logger.Noticef("[worker %d] local BVH ready", workerID)

		if c.useLinearScan {
			w.State = registry.SyncingWBVH
			return c.onOK(workerID, nil)
		}
		if c.built == c.reg.WorkerCount() {
			if err := c.buildAndBroadcastWBVH(); err != nil {
				return err
			}
		}
		return nil

	case registry.SyncingWBVH:
		w.State = registry.Ready
		c.ready++
		c.logger.Noticef("[worker %d] ready to render", workerID)
		if c.ready == c.reg.WorkerCount() {
			if err := c.startRender(); err != nil {
				return err
			}
		}
		return nil

	default:
		c.logger.Warningf("[worker %d] OK received in unexpected state %s", workerID, w.State)
		return nil
	}
}

// configPayload assembles the SYNC_CONFIG body every worker receives once
// it leaves Initializing.
func (c *Coordinator) configPayload() protocol.ConfigPayload {
	return protocol.ConfigPayload{
		Width:           uint32(c.cfg.Image.Width),
		Height:          uint32(c.cfg.Image.Height),
		MinBounds:       c.cfg.MinBounds(),
		MaxBounds:       c.cfg.MaxBounds(),
		Runaway:         c.cfg.Runaway,
		StatsIntervalMS: uint32(c.cfg.StatsIntervalMS),
		MaxIntervals:    uint32(c.maxIntervals),
		UseLinearScan:   c.useLinearScan,
	}
}

// emissiveEntries pairs every emissive mesh id the registry recorded
// during streaming with the worker it was routed to.
func (c *Coordinator) emissiveEntries() []protocol.EmissiveEntry {
	ids := c.reg.EmissiveMeshIDs()
	entries := make([]protocol.EmissiveEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, protocol.EmissiveEntry{MeshID: id, WorkerID: c.meshOwner[id]})
	}
	return entries
}

// onRenderStats records a RENDER_STATS sample regardless of the sending
// worker's state (§4.3): the runaway throttle and interest detector both
// need a continuous history even across a Paused/Rendering toggle.
func (c *Coordinator) onRenderStats(workerID uint32, body []byte) error {
	w := c.reg.Worker(workerID)
	if w == nil {
		return nil
	}
	s, err := protocol.DecodeStats(body)
	if err != nil {
		c.logger.Warningf("[worker %d] malformed stats payload: %s", workerID, err)
		return nil
	}
	w.RecordStats(registry.Sample{Produced: s.Produced, Killed: s.Killed, Queued: s.Queued, Progress: s.Progress})
	return nil
}
