package engine

import "time"

// State represents lifecycle state of the engine/instances.
type State string

const (
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateDraining State = "draining"
	StateError    State = "error"
)

// ModelInfo is a minimal view of the current model.
type ModelInfo struct {
	ID     string
	Name   string
	Path   string
	Family string
}

// Snapshot is a read-only projection of the engine state.
type Snapshot struct {
	State        State
	CurrentModel *ModelInfo
	Err          string
}

// Instance represents a live model context (one per model id).
type Instance struct {
	ID       string
	State    State
	LastUsed time.Time
	EstMemMB int
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight inference
	queueCh chan struct{} // buffered: queue slots
	// Session backing this instance; nil until the load commits.
	sess Session
}
