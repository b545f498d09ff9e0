// Package engine provides lifecycle, admission, and inference coordination for
// depth-model instances. It is structured into small files by concern:
//
//   - engine.go: core Engine type, constructor, simple getters, Close.
//   - config.go: EngineConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: internal state types (State, ModelInfo, Instance, Snapshot).
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound,
//     IsModelUnavailable, IsInvalidImage).
//   - helpers.go: small utilities (model lookup, memory estimation).
//   - admission.go: per-instance queueing and inference admission.
//   - ensure.go: EnsureInstance lifecycle, loading and fallback resolution.
//   - evict.go: eviction logic to fit within the memory budget.
//   - infer.go: inference API entry point.
//   - status.go: Status/Snapshot reporting helpers.
//   - metrics.go: Prometheus counters for loads, evictions and inference.
//
// Build tags and runtimes:
//
//   - In-process onnxruntime (standard): enabled with `-tags=onnx`.
//     File: runtime_onnx.go. A no-CGO stub compiles when the tag is not set
//     (runtime_onnx_stub.go) and fails fast instead of mocking inference.
//
//   - Remote depth server: runtime_remote.go posts the image to another
//     depth server and decodes the NPY response. Always available; selected
//     by configuring a remote URL.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (e.g., New/NewWithConfig, Ready, ListModels, Status,
// Infer, Unload, Close). Internal types are subject to change.
package engine
