package coordinator

import (
	"fresnel/bvh"
	"fresnel/protocol"
	"fresnel/registry"
	"fresnel/scene"
)

// startSync fires once syncing==W (§4.4): every worker has acknowledged
// its SYNC_CONFIG and is ready to receive assets. It builds the spatial
// index over the now-complete worker set, allocates the final image, and
// kicks off the scene-streaming pipeline's background parser goroutine.
func (c *Coordinator) startSync() {
	c.reg.BuildSpatialIndex()
	c.reg.Image = c.newFinalImage()

	c.meshRead = make(chan uint32, 1)
	c.meshSynced = make(chan struct{}, 1)
	c.meshSynced <- struct{}{}
	c.meshOwner = make(map[uint32]uint32)

	go c.runParser()
	c.logger.Notice("scene streaming started")
}

// onMeshHandoff is the event loop's half of the mesh_read rendezvous
// (§4.5): id==0 is the sentinel marking the end of the stream, anything
// else is a mesh waiting to be routed to its owning worker.
func (c *Coordinator) onMeshHandoff(id uint32) error {
	if id == 0 {
		c.meshRead = nil // disarm; the parser goroutine has exited
		return c.onSceneDrained()
	}

	mesh := c.reg.Mesh(id)
	code := c.reg.SpaceCodeForMesh(mesh)
	ownerID := c.reg.LookupWorkerBySpaceCode(code)
	owner := c.reg.Worker(ownerID)
	if owner == nil {
		c.logger.Warningf("mesh %d maps to unknown worker %d, dropping", id, ownerID)
		c.reg.StoreMesh(id, nil)
		c.meshSynced <- struct{}{}
		return nil
	}

	c.meshOwner[id] = ownerID
	c.currentMeshID = id
	c.logger.Debugf("routing mesh %d to worker %d", id, ownerID)
	return c.send(owner, protocol.SYNC_MESH, protocol.EncodeMesh(mesh))
}

// onSceneDrained fires once the parser goroutine has streamed every mesh
// and handed back the camera/light list: SYNCING_CAMERA broadcasts to
// every worker at once, since all of them are still waiting in that state
// (§4.5 Design Notes -- camera sync only begins after the last mesh).
func (c *Coordinator) onSceneDrained() error {
	c.buildStart = c.now()
	c.reg.Camera = c.parsedScene.Camera
	c.reg.Lights = c.parsedScene.Lights

	body := protocol.EncodeCameraAndLights(c.reg.Camera, c.reg.Lights)
	var firstErr error
	c.reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		w.State = registry.SyncingCamera
		if err := c.send(w, protocol.SYNC_CAMERA, body); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	c.logger.Notice("scene fully distributed, syncing camera and lights")
	return firstErr
}

// buildAndBroadcastWBVH fires once built==W and UseLinearScan is false
// (§4.4): it assembles the top-level worker BVH from every worker's
// reported bounding box and broadcasts it via SYNC_WBVH.
func (c *Coordinator) buildAndBroadcastWBVH() error {
	items := make([]bvh.BoundedVolume, len(c.workerBounds))
	for i, wb := range c.workerBounds {
		items[i] = wb
	}
	nodes := bvh.Build(items, 1, func(*scene.BvhNode, []bvh.BoundedVolume) {}, bvh.SurfaceAreaHeuristic)
	c.reg.WorkerBVH = nodes

	body := protocol.EncodeWBVH(nodes)
	var firstErr error
	c.reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		w.State = registry.SyncingWBVH
		if err := c.send(w, protocol.SYNC_WBVH, body); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	c.buildStop = c.now()
	c.logger.Noticef("worker BVH built over %d bounds, syncing", len(c.workerBounds))
	return firstErr
}

// startRender fires once ready==W (§4.4): it records sync_stop and
// render_start (the original sets both at this same gate), assigns each
// worker its column tile, and arms the interest-detector and
// runaway-throttle timers.
func (c *Coordinator) startRender() error {
	c.syncStop = c.now()
	c.renderStart = c.now()

	w := c.reg.WorkerCount()
	width := uint32(c.cfg.Image.Width)
	chunkBase := width / uint32(w)

	var firstErr error
	c.reg.ForEachWorker(func(id uint32, wk *registry.Worker) {
		offset := (id - 1) * chunkBase
		chunk := chunkBase
		if int(id) == w {
			chunk = width - uint32(w-1)*chunkBase
		}
		if err := c.send(wk, protocol.RENDER_START, protocol.EncodeRenderStart(offset, chunk)); err != nil && firstErr == nil {
			firstErr = err
		}
		wk.State = registry.Rendering
		c.logger.Noticef("[worker %d] rendering tile offset=%d chunk=%d", id, offset, chunk)
	})

	c.armInterestTimer()
	c.armRunawayTimer()
	c.logger.Notice("rendering started")
	return firstErr
}
