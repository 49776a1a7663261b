// Package coordinator implements the distributed ray tracer's client-side
// orchestrator: the per-connection protocol state machine (§4.3), the
// global phase coordinator (§4.4), the scene-streaming pipeline (§4.5),
// the control loops (§4.6), and merge/finalize (§4.7). Everything else in
// this module is a collaborator the coordinator calls into.
package coordinator

import (
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"fresnel/asset"
	"fresnel/config"
	"fresnel/imagebuf"
	"fresnel/log"
	"fresnel/protocol"
	"fresnel/registry"
	"fresnel/scene"
	"fresnel/sceneio"
	"fresnel/wire"
)

// FlushTimeoutMS is the flush timer interval (§4.1/§4.6).
const FlushTimeoutMS = 10

// Coordinator is the single-instance run object: one per render, created
// by cmd.Render and driven to completion by Run. All of its mutable state
// -- phase counters, timers, the streaming pipeline's channels, the
// registry -- is owned by the goroutine that calls Run, which runs the event loop,
// except for the documented mesh_read/mesh_synced handshake with the
// scene-parsing goroutine (§4.5, §5).
type Coordinator struct {
	cfg *config.Config
	reg *registry.Registry

	// runID correlates this run's connect, final-image and stats log lines with
	// one render invocation, since a single coordinator process is otherwise
	// indistinguishable from any other run in aggregated log output.
	runID uuid.UUID

	logger log.Logger

	maxIntervals  int
	useLinearScan bool

	sceneRes *asset.Resource

	connected, syncing, built, ready, complete int
	finished                                   bool

	syncStart, syncStop     time.Time
	buildStart, buildStop   time.Time
	renderStart, renderStop time.Time

	flushTicker    *time.Ticker
	interestTicker *time.Ticker
	runawayTicker  *time.Ticker

	// meshRead/meshSynced are the single-producer/single-consumer
	// rendezvous channels replacing the original's semaphore ping-pong
	// (§4.5, Design Notes). Both have capacity 1; meshSynced starts
	// preloaded with one token. meshRead is set back to nil once the
	// sentinel is consumed, which disarms that case of the event loop's
	// select the same way the original disarms its idle callback.
	meshRead   chan uint32
	meshSynced chan struct{}

	// currentMeshID is the id of the mesh most recently handed to a
	// worker via SYNC_MESH, read back by onOK's SyncingAssets case to
	// know which mesh to drop from the registry. It is mutated only by
	// the event-loop goroutine.
	currentMeshID uint32

	// meshOwner records which worker each mesh was routed to, since the
	// registry drops the mesh itself once its owner acknowledges it
	// (§4.2) but the emissive list (sent later, in SYNCING_CAMERA) still
	// needs the (meshID, workerID) pairing.
	meshOwner map[uint32]uint32

	workerBounds []scene.WorkerBound

	parsedScene *sceneio.Scene

	incoming chan inboundMsg
	connErr  chan connFailure

	now func() time.Time
}

type inboundMsg struct {
	workerID uint32
	msg      wire.Message
}

type connFailure struct {
	workerID uint32
	err      error
}

// New creates a Coordinator for one render run.
func New(cfg *config.Config, maxIntervals int, useLinearScan bool) *Coordinator {
	return &Coordinator{
		cfg:           cfg,
		reg:           registry.New(cfg),
		runID:         uuid.New(),
		logger:        log.New("coordinator"),
		maxIntervals:  maxIntervals,
		useLinearScan: useLinearScan,
		incoming:      make(chan inboundMsg, 256),
		connErr:       make(chan connFailure, 64),
		now:           time.Now,
	}
}

// RunID returns this run's correlation id, logged when the coordinator
// starts connecting and when it writes the final image, and reused by
// cmd.Render for the final stats report.
func (c *Coordinator) RunID() uuid.UUID {
	return c.runID
}

// Registry exposes the run's registry, used by cmd.Render to report final
// stats after Run returns.
func (c *Coordinator) Registry() *registry.Registry {
	return c.reg
}

// Run connects to every configured worker, drives the render to
// completion, and returns once the final image has been written (nil) or
// a fatal error occurs (§7(a)/(b)).
func (c *Coordinator) Run(sceneRes *asset.Resource) error {
	c.sceneRes = sceneRes

	if err := c.connect(); err != nil {
		return err
	}
	if err := c.onAllConnected(); err != nil {
		return err
	}

	c.flushTicker = time.NewTicker(FlushTimeoutMS * time.Millisecond)
	defer c.flushTicker.Stop()

	return c.loop()
}

// connect dials every configured worker in turn and starts its reader
// goroutine. Sequential dialing is fine: there is no ordering guarantee
// across connections (§5), only that every worker must be connected
// before the INIT broadcast fires.
func (c *Coordinator) connect() error {
	n := c.cfg.WorkerCount()
	c.logger.Noticef("run %s: connecting to %d workers...", c.runID, n)
	for i := 0; i < n; i++ {
		addr, err := c.cfg.WorkerAddr(i)
		if err != nil {
			return err
		}
		netConn, err := net.Dial("tcp", addr)
		if err != nil {
			return fmt.Errorf("coordinator: connect %s: %w", addr, err)
		}
		id := uint32(i + 1)
		conn := wire.New(netConn)
		w := registry.NewWorker(id, conn, c.maxIntervals)
		c.reg.StoreWorker(id, w)

		go c.readLoop(id, conn)
		c.logger.Noticef("[%s] connected", addr)
	}
	c.connected = c.reg.WorkerCount()
	return nil
}

// readLoop is the one goroutine per connection that the concurrency model
// allows (§5): it only ever decodes frames and pushes them onto the
// shared incoming channel, never touching the registry or any Worker
// field directly.
func (c *Coordinator) readLoop(id uint32, conn *wire.Conn) {
	err := conn.ReadLoop(func(m wire.Message) {
		c.incoming <- inboundMsg{workerID: id, msg: m}
	})
	c.connErr <- connFailure{workerID: id, err: err}
}

// loop is the single event-loop goroutine: it owns the registry, the
// phase counters, and every connection's write side, selecting over
// inbound messages, connection failures, the streaming pipeline's
// rendezvous channel, and the three control-loop tickers.
func (c *Coordinator) loop() error {
	for {
		select {
		case im := <-c.incoming:
			if err := c.dispatch(im.workerID, im.msg); err != nil {
				return err
			}

		case f := <-c.connErr:
			if f.workerID == 0 {
				// The scene-parsing goroutine failed outright.
				return f.err
			}
			if f.err != nil {
				return fmt.Errorf("%w: worker %d: %s", ErrWorkerDisconnected, f.workerID, f.err)
			}
			if !c.finished {
				return fmt.Errorf("%w: worker %d", ErrWorkerDisconnected, f.workerID)
			}

		case id := <-c.meshRead:
			if err := c.onMeshHandoff(id); err != nil {
				return err
			}

		case <-c.flushTicker.C:
			c.onFlushTick()

		case <-tickerC(c.interestTicker):
			c.onInterestTick()

		case <-tickerC(c.runawayTicker):
			if err := c.onRunawayTick(); err != nil {
				return err
			}
		}

		if c.finished {
			return nil
		}
	}
}

// tickerC returns t.C, or a nil channel (which blocks forever in a
// select) when the timer hasn't been armed yet -- the idiomatic
// replacement for checking "is this timer running" before every tick.
func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// dispatch routes one decoded frame to its handler by kind, mirroring the
// original's DispatchMessage switch (§4.3). RENDER_STATS and SYNC_IMAGE
// are handled regardless of the sending worker's state, per spec.
func (c *Coordinator) dispatch(workerID uint32, msg wire.Message) error {
	switch protocol.Kind(msg.Kind) {
	case protocol.OK:
		return c.onOK(workerID, msg.Body)
	case protocol.RENDER_STATS:
		return c.onRenderStats(workerID, msg.Body)
	case protocol.SYNC_IMAGE:
		return c.onSyncImage(workerID, msg.Body)
	case protocol.ERROR:
		c.logger.Warningf("[worker %d] reported an error: %s", workerID, string(msg.Body))
		return nil
	default:
		c.logger.Warningf("[worker %d] received unknown message kind %d", workerID, msg.Kind)
		return nil
	}
}

// send encodes and queues a message on w's connection. Write errors are
// fatal during a run (§7(b)): no retries, reliability is TCP's job.
func (c *Coordinator) send(w *registry.Worker, kind protocol.Kind, body []byte) error {
	if err := w.Conn.Send(uint32(kind), body); err != nil {
		return fmt.Errorf("coordinator: send %s to worker %d: %w", kind, w.ID, err)
	}
	return nil
}

// onAllConnected fires once connected==W: the "connected" phase action
// (§4.4), broadcasting INIT with each worker's own id. A send failure
// here is as fatal as one anywhere else in the run (§7(b)), so it is
// collected and returned exactly like every other broadcast helper in
// this package.
func (c *Coordinator) onAllConnected() error {
	c.syncStart = c.now()
	var firstErr error
	c.reg.ForEachWorker(func(id uint32, w *registry.Worker) {
		w.State = registry.Initializing
		if err := c.send(w, protocol.INIT, protocol.EncodeInit(id)); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	c.logger.Notice("all workers connected, sending INIT")
	return firstErr
}

// newFinalImage allocates the final image from config's image width,
// height and buffer names.
func (c *Coordinator) newFinalImage() *imagebuf.Image {
	return imagebuf.New(c.cfg.Image.Width, c.cfg.Image.Height, c.cfg.Image.Buffers)
}
