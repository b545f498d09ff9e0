//go:build !onnx

package engine

// This file provides a no-CGO stub for the in-process runtime. It is compiled
// when the 'onnx' build tag is NOT set, keeping default builds and CI CGO-free.
// The real runtime lives in runtime_onnx.go (tagged 'onnx').

import "depthd/pkg/types"

// onnxBuilt indicates this binary was compiled with in-process ONNX support.
var onnxBuilt = false

// onnxRuntime is a stub that satisfies Runtime but refuses to load models
// without the 'onnx' build tag. This avoids any mocked inference in
// production binaries built without CGO support.
type onnxRuntime struct {
	libPath string
}

func NewONNXRuntime(libPath string) Runtime {
	return &onnxRuntime{libPath: libPath}
}

func (r *onnxRuntime) Load(mdl types.Model) (Session, error) {
	// Fail fast: onnxruntime not available in this build.
	return nil, ErrModelUnavailable("onnx support not built (missing 'onnx' build tag)")
}
