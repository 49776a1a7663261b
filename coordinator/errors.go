package coordinator

import "errors"

// Sentinel errors surfaced by the event loop, matching the original's
// error categories (§7): fatal-at-startup and fatal-during-run errors
// propagate up to cmd.Render as a returned error; everything else is
// logged and the run continues.
var (
	// ErrWorkerDisconnected is returned when a worker's connection drops
	// mid-render. The spec treats this as fatal: there is no
	// reconnection or replay.
	ErrWorkerDisconnected = errors.New("coordinator: worker disconnected")

	// ErrBadAABBSize is returned when a BUILDING_BVH OK payload is not
	// exactly protocol.AABBSize bytes (§4.3's assertion).
	ErrBadAABBSize = errors.New("coordinator: BUILDING_BVH OK payload has the wrong size")
)
