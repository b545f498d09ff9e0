package engine

import (
	"sync"
	"time"

	"depthd/pkg/types"
)

type Engine struct {
	mu        sync.RWMutex
	state     State
	cur       *ModelInfo
	err       string
	lastError string
	registry  []types.Model

	budgetMB      int
	marginMB      int
	defaultModel  string
	fallbackModel string

	instances map[string]*Instance
	usedEstMB int

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration

	// allowUnlisted admits model ids absent from the local registry; set for
	// remote runtimes where weights live on the server.
	allowUnlisted bool

	runtime   Runtime
	publisher EventPublisher
	startTime time.Time

	evictionsTotal uint64
	loadsTotal     uint64
}

func New(reg []types.Model, budgetMB, marginMB int, defaultModel string) *Engine {
	// Delegate to NewWithConfig to centralize defaults and option parsing
	return NewWithConfig(EngineConfig{
		Registry:     reg,
		BudgetMB:     budgetMB,
		MarginMB:     marginMB,
		DefaultModel: defaultModel,
	})
}

func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == StateError {
		return false
	}
	// Ready if any instance is ready
	for _, inst := range e.instances {
		if inst.State == StateReady {
			return true
		}
	}
	return e.state == StateReady && e.cur != nil
}

func (e *Engine) ListModels() []types.Model {
	e.mu.RLock()
	defer e.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(e.registry))
	copy(out, e.registry)
	return out
}

// DefaultModel reports the configured default model id.
func (e *Engine) DefaultModel() string { return e.defaultModel }

// Close drains and unloads every instance. Intended for graceful shutdown.
func (e *Engine) Close() error {
	e.mu.RLock()
	ids := make([]string, 0, len(e.instances))
	for id := range e.instances {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	var firstErr error
	for _, id := range ids {
		if err := e.Unload(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
