package coordinator

import (
	"math"
	"time"

	"fresnel/protocol"
	"fresnel/registry"
)

// armInterestTimer starts the interest detector's ticker, which fires
// every StatsIntervalMS*MaxIntervals -- one full ring-buffer window
// (§4.6).
func (c *Coordinator) armInterestTimer() {
	interval := time.Duration(c.cfg.StatsIntervalMS) * time.Duration(c.maxIntervals) * time.Millisecond
	c.interestTicker = time.NewTicker(interval)
}

// armRunawayTimer starts the runaway throttle's ticker, at the base stats
// interval.
func (c *Coordinator) armRunawayTimer() {
	interval := time.Duration(c.cfg.StatsIntervalMS) * time.Millisecond
	c.runawayTicker = time.NewTicker(interval)
}

// disarmRenderTimers stops and clears both render-phase timers, leaving
// them nil so the event loop's select simply stops considering them
// (§4.6's "no separate armed/disarmed flag needed").
func (c *Coordinator) disarmRenderTimers() {
	if c.interestTicker != nil {
		c.interestTicker.Stop()
		c.interestTicker = nil
	}
	if c.runawayTicker != nil {
		c.runawayTicker.Stop()
		c.runawayTicker = nil
	}
}

// onFlushTick runs every FlushTimeoutMS: for every worker not already
// flushed since the previous tick but with bytes pending, it issues an
// out-of-band flush (§4.1, §4.6). This is what bounds end-to-end latency
// for small, infrequent messages without forcing a syscall per Send.
func (c *Coordinator) onFlushTick() {
	c.reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		if w.Conn.FlushedSinceTick() {
			return
		}
		if w.Conn.PendingBytes() == 0 {
			return
		}
		if err := w.Conn.Flush(); err != nil {
			c.logger.Errorf("[worker %d] flush: %s", id, err)
		}
	})
}

// onInterestTick runs every interest-detector window: it reports the
// aggregate ray counters across all workers and, if not one of them was
// interesting during the window, stops rendering (§4.6).
func (c *Coordinator) onInterestTick() {
	anyInteresting := false
	var produced, killed, queued uint64

	c.reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		if w.IsInteresting(c.maxIntervals) {
			anyInteresting = true
		}
		for _, s := range w.StatsHistory() {
			produced += uint64(s.Produced)
			killed += uint64(s.Killed)
			queued += uint64(s.Queued)
		}
	})

	c.logger.Noticef("rays: produced=%d killed=%d queued=%d", produced, killed, queued)

	if !anyInteresting {
		c.logger.Notice("no worker reported activity this window, stopping render")
		c.stopRender()
	}
}

// onRunawayTick runs every stats interval: it finds the slowest worker's
// progress and, for every worker, applies the asymmetric
// pause/resume comparison that creates a stable hysteresis band
// (slowest, slowest+runaway] (§4.6).
func (c *Coordinator) onRunawayTick() error {
	slowest := float32(math.MaxFloat32)
	c.reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		if p := w.Progress(); p < slowest {
			slowest = p
		}
	})

	var firstErr error
	c.reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		p := w.Progress()
		switch {
		case p > slowest+c.cfg.Runaway && w.State == registry.Rendering:
			c.logger.Noticef("[worker %d] running away (progress=%.3f, slowest=%.3f), pausing", id, p, slowest)
			if err := c.send(w, protocol.RENDER_PAUSE, nil); err != nil && firstErr == nil {
				firstErr = err
				return
			}
			w.State = registry.Paused

		case p <= slowest && w.State == registry.Paused:
			c.logger.Noticef("[worker %d] caught up, resuming", id)
			if err := c.send(w, protocol.RENDER_RESUME, nil); err != nil && firstErr == nil {
				firstErr = err
				return
			}
			w.State = registry.Rendering
		}
	})
	return firstErr
}

// stopRender fires once the interest detector decides nothing is left to
// do (§4.4/§4.6): it disarms the render-phase timers and broadcasts
// RENDER_STOP, moving every worker into SyncingImages.
func (c *Coordinator) stopRender() {
	c.renderStop = c.now()
	c.disarmRenderTimers()

	c.reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		if err := c.send(w, protocol.RENDER_STOP, nil); err != nil {
			c.logger.Errorf("[worker %d] send RENDER_STOP: %s", id, err)
		}
		w.State = registry.SyncingImages
	})
	c.logger.Notice("rendering stopped, syncing final images")
}
