package registry

import (
	"fresnel/protocol"
	"fresnel/types"
	"fresnel/wire"
)

// State is the per-connection protocol state a Worker progresses
// through, driven exclusively by the coordinator's OK/message handlers.
type State uint8

const (
	Connecting State = iota
	Initializing
	Configuring
	SyncingAssets
	SyncingCamera
	SyncingEmissive
	BuildingBVH
	SyncingWBVH
	Ready
	Rendering
	Paused
	SyncingImages
	Done
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Initializing:
		return "INITIALIZING"
	case Configuring:
		return "CONFIGURING"
	case SyncingAssets:
		return "SYNCING_ASSETS"
	case SyncingCamera:
		return "SYNCING_CAMERA"
	case SyncingEmissive:
		return "SYNCING_EMISSIVE"
	case BuildingBVH:
		return "BUILDING_BVH"
	case SyncingWBVH:
		return "SYNCING_WBVH"
	case Ready:
		return "READY"
	case Rendering:
		return "RENDERING"
	case Paused:
		return "PAUSED"
	case SyncingImages:
		return "SYNCING_IMAGES"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Sample is one stats interval's ray counters and progress, kept in each
// worker's fixed-size ring buffer for the interest detector's sliding
// window and for StatsHistory.
type Sample struct {
	Produced uint32
	Killed   uint32
	Queued   uint32
	Progress float32
}

// Worker is the coordinator's record of one remote worker: its stable
// id, its connection, its protocol state, and the counters the control
// loops (§4.6) read every tick. Id 0 is reserved as "no worker."
type Worker struct {
	ID   uint32
	Conn *wire.Conn

	State State

	// Bounds is set once BUILDING_BVH's OK arrives.
	Bounds *types.AABB

	// samples is a fixed-size ring buffer of the last MaxIntervals
	// stats reports, used by the interest detector and StatsHistory.
	// The runaway throttle reads progress, which holds the latest
	// report's value.
	samples    []Sample
	sampleHead int
	sampleLen  int

	progress float32
}

// NewWorker creates a worker record with a ring buffer sized for
// maxIntervals samples.
func NewWorker(id uint32, conn *wire.Conn, maxIntervals int) *Worker {
	return &Worker{
		ID:      id,
		Conn:    conn,
		State:   Connecting,
		samples: make([]Sample, maxIntervals),
	}
}

// RecordStats pushes a new sample into the ring buffer, evicting the
// oldest once full, and updates the worker's progress.
func (w *Worker) RecordStats(s Sample) {
	w.samples[w.sampleHead] = s
	w.sampleHead = (w.sampleHead + 1) % len(w.samples)
	if w.sampleLen < len(w.samples) {
		w.sampleLen++
	}
	w.progress = s.Progress
}

// Progress returns this worker's most recently reported progress in
// [0, 1].
func (w *Worker) Progress() float32 {
	return w.progress
}

// StatsHistory returns every sample currently held in the ring buffer, in
// the order it was recorded, as protocol.Stats rows -- the shape the
// per-worker CSV writer wants.
func (w *Worker) StatsHistory() []protocol.Stats {
	out := make([]protocol.Stats, w.sampleLen)
	for i := 0; i < w.sampleLen; i++ {
		idx := (w.sampleHead - w.sampleLen + i + len(w.samples)) % len(w.samples)
		s := w.samples[idx]
		out[i] = protocol.Stats{Produced: s.Produced, Killed: s.Killed, Queued: s.Queued, Progress: s.Progress}
	}
	return out
}

// IsInteresting reports whether any of produced/killed/queued was
// nonzero in any of the last maxIntervals samples -- a window over the
// samples actually recorded so far, not a cumulative total.
func (w *Worker) IsInteresting(maxIntervals int) bool {
	n := w.sampleLen
	if n > maxIntervals {
		n = maxIntervals
	}
	for i := 0; i < n; i++ {
		idx := (w.sampleHead - 1 - i + len(w.samples)) % len(w.samples)
		s := w.samples[idx]
		if s.Produced != 0 || s.Killed != 0 || s.Queued != 0 {
			return true
		}
	}
	return false
}
