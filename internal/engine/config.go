package engine

import (
	"time"

	"depthd/pkg/types"
)

// Defaults applied when corresponding EngineConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Second
)

// EngineConfig encapsulates all tunables for Engine construction.
type EngineConfig struct {
	Registry      []types.Model
	BudgetMB      int
	MarginMB      int
	DefaultModel  string
	FallbackModel string
	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration
	// Runtime selects the model backend. Nil uses the in-process ONNX
	// runtime (or its fail-fast stub when the 'onnx' tag is not built in).
	Runtime Runtime
	// ORTLibPath points at the onnxruntime shared library for the default
	// in-process runtime; ignored when Runtime is set.
	ORTLibPath string
	// AllowUnlistedModels admits model ids missing from the registry.
	// Remote runtimes set this because weights live on the server.
	AllowUnlistedModels bool
	// Publisher receives lifecycle events; nil drops them.
	Publisher EventPublisher
}

// NewWithConfig constructs an Engine from EngineConfig.
func NewWithConfig(cfg EngineConfig) *Engine {
	e := &Engine{
		state:         StateLoading,
		registry:      cfg.Registry,
		budgetMB:      cfg.BudgetMB,
		marginMB:      cfg.MarginMB,
		defaultModel:  cfg.DefaultModel,
		fallbackModel: cfg.FallbackModel,
		instances:     make(map[string]*Instance),
		allowUnlisted: cfg.AllowUnlistedModels,
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		e.maxQueueDepth = defaultMaxQueueDepth
	} else {
		e.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		e.maxWait = defaultMaxWait
	} else {
		e.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		e.drainTimeout = defaultDrainTimeout
	} else {
		e.drainTimeout = cfg.DrainTimeout
	}
	if cfg.Runtime != nil {
		e.runtime = cfg.Runtime
	} else {
		e.runtime = NewONNXRuntime(cfg.ORTLibPath)
	}
	if cfg.Publisher != nil {
		e.publisher = cfg.Publisher
	} else {
		e.publisher = noopPublisher{}
	}
	e.startTime = time.Now()
	return e
}
