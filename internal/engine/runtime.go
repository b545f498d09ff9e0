package engine

import (
	"context"
	"image"

	"depthd/internal/depthmap"
	"depthd/pkg/types"
)

// Runtime abstracts the depth-model backend used by the Engine.
// Concrete implementations (in-process onnxruntime, remote server) satisfy it.
type Runtime interface {
	// Load opens a session for the given model. Implementations return a
	// model-unavailable error when weights or the backend are missing.
	Load(mdl types.Model) (Session, error)
}

// Session is a loaded model that turns images into raw depth maps.
// Sessions own preallocated buffers and must not be run concurrently;
// the engine serializes access through per-instance admission.
type Session interface {
	// Run executes one forward pass. The returned map carries the backend's
	// native output resolution, not the source image dimensions.
	Run(ctx context.Context, img image.Image) (*depthmap.DepthMap, error)
	// Close releases any resources associated with the session.
	Close() error
}
