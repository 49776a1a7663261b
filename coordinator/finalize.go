package coordinator

import (
	"fmt"

	"fresnel/imagebuf"
	"fresnel/registry"
)

// onSyncImage handles a SYNC_IMAGE frame regardless of the sending
// worker's state (§4.3): it writes that worker's component image and
// stats history to disk, merges the image into the run's final canvas,
// and -- once every worker has reported in -- finalizes the run (§4.7).
func (c *Coordinator) onSyncImage(workerID uint32, body []byte) error {
	w := c.reg.Worker(workerID)
	if w == nil {
		return nil
	}

	component, err := imagebuf.DecodeImage(body)
	if err != nil {
		return fmt.Errorf("coordinator: decode image from worker %d: %w", workerID, err)
	}

	ip, port := w.Conn.RemoteAddr()
	base := fmt.Sprintf("%s-%s_%d", c.cfg.Image.Name, ip, port)

	if err := writeImageBuffers(component, base); err != nil {
		return fmt.Errorf("coordinator: worker %d: %w", workerID, err)
	}
	c.logger.Noticef("[worker %d] wrote %s.*", workerID, base)

	if err := imagebuf.WriteStatsCSV(base+".csv", w.StatsHistory()); err != nil {
		return fmt.Errorf("coordinator: worker %d: %w", workerID, err)
	}

	if err := c.reg.Image.Merge(component); err != nil {
		return fmt.Errorf("coordinator: merge worker %d's image: %w", workerID, err)
	}

	w.State = registry.Done
	c.complete++
	c.logger.Noticef("[worker %d] done (%d/%d)", workerID, c.complete, c.reg.WorkerCount())

	if c.complete != c.reg.WorkerCount() {
		return nil
	}
	return c.finalizeRun()
}

// writeImageBuffers writes one EXR per buffer in img, naming the primary
// "color" buffer base+".exr" and every other configured buffer
// base+"-<name>.exr".
func writeImageBuffers(img *imagebuf.Image, base string) error {
	for name := range img.Buffers {
		path := base + ".exr"
		if name != "color" {
			path = base + "-" + name + ".exr"
		}
		if err := img.WriteEXR(path, name); err != nil {
			return err
		}
	}
	return nil
}

// finalizeRun fires once complete==W (§4.4's final gate): it writes the
// merged final image, logs the phase timings, closes every connection,
// and marks the event loop finished.
func (c *Coordinator) finalizeRun() error {
	if err := writeImageBuffers(c.reg.Image, c.cfg.Image.Name); err != nil {
		return fmt.Errorf("coordinator: write final image: %w", err)
	}
	c.logger.Noticef("run %s: wrote %s.exr", c.runID, c.cfg.Image.Name)

	c.logger.Noticef("time syncing: %s", c.syncStop.Sub(c.syncStart))
	if !c.useLinearScan {
		c.logger.Noticef("time building WBVH: %s", c.buildStop.Sub(c.buildStart))
	}
	c.logger.Noticef("time rendering: %s", c.renderStop.Sub(c.renderStart))

	c.reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		w.Conn.Close()
	})

	c.finished = true
	return nil
}
