package engine

import (
	"context"
	"fmt"
	"image"
	"time"

	"depthd/internal/depthmap"
)

// Infer runs depth estimation for img on the requested model (empty selects
// the configured default, falling back when the default cannot serve).
// The returned map always matches the source image dimensions; the backend's
// native output is resampled bilinearly. It ensures the model instance
// exists, serializes access through per-instance admission, and fails fast
// with a model-unavailable error when no backend is built in (no mocking).
func (e *Engine) Infer(ctx context.Context, modelID string, img image.Image) (*depthmap.DepthMap, error) {
	if img == nil {
		return nil, ErrInvalidImage("nil image")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrInvalidImage("image has zero dimensions")
	}

	effectiveID, err := e.ensureWithFallback(ctx, modelID)
	if err != nil {
		return nil, err
	}

	// Admission: per-instance FIFO queue, single in-flight
	release, err := e.beginInference(ctx, effectiveID)
	if err != nil {
		return nil, err
	}
	defer release()

	e.mu.RLock()
	var sess Session
	if inst := e.instances[effectiveID]; inst != nil {
		sess = inst.sess
	}
	e.mu.RUnlock()
	if sess == nil {
		// instance was unloaded between ensure and admission
		return nil, ErrModelUnavailable("no loaded session for " + effectiveID)
	}

	started := time.Now()
	raw, err := sess.Run(ctx, img)
	if err != nil {
		engineInferenceFailures.Inc()
		e.mu.Lock()
		e.lastError = err.Error()
		e.mu.Unlock()
		return nil, err
	}
	engineInferenceSeconds.Observe(time.Since(started).Seconds())

	dm, err := raw.Resize(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, fmt.Errorf("resize depth map: %w", err)
	}
	return dm, nil
}
