package engine

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"depthd/pkg/types"
)

func TestInfer_MatchesSourceDimensions(t *testing.T) {
	dir := t.TempDir()
	p := createModelFile(t, dir, "m.onnx", 1)
	rt := &fakeRuntime{outW: 8, outH: 8}
	e := NewWithConfig(EngineConfig{Registry: []types.Model{{ID: "m", Path: p}}, DefaultModel: "m", Runtime: rt})

	dm, err := e.Infer(testCtx(t), "m", testImage(20, 10))
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if dm.Width != 20 || dm.Height != 10 {
		t.Fatalf("expected 20x10 output, got %dx%d", dm.Width, dm.Height)
	}
	if len(dm.Data) != 200 {
		t.Fatalf("expected 200 values, got %d", len(dm.Data))
	}
}

func TestInfer_NilImage(t *testing.T) {
	e := NewWithConfig(EngineConfig{Runtime: &fakeRuntime{}})
	_, err := e.Infer(context.Background(), "m", nil)
	if err == nil || !IsInvalidImage(err) {
		t.Fatalf("expected invalid image error, got %v", err)
	}
}

func TestInfer_ZeroSizeImage(t *testing.T) {
	e := NewWithConfig(EngineConfig{Runtime: &fakeRuntime{}})
	_, err := e.Infer(context.Background(), "m", image.NewRGBA(image.Rect(0, 0, 0, 0)))
	if err == nil || !IsInvalidImage(err) {
		t.Fatalf("expected invalid image error, got %v", err)
	}
}

func TestInfer_NoDefaultModelError(t *testing.T) {
	e := NewWithConfig(EngineConfig{Runtime: &fakeRuntime{}})
	_, err := e.Infer(context.Background(), "", testImage(4, 4))
	if err == nil || !IsModelNotFound(err) {
		t.Fatalf("expected model not found for unspecified model without default, got %v", err)
	}
}

func TestInfer_UnknownModelError(t *testing.T) {
	e := NewWithConfig(EngineConfig{Runtime: &fakeRuntime{}})
	_, err := e.Infer(context.Background(), "missing", testImage(4, 4))
	if err == nil || !IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
}

func TestInfer_RunErrorRecordsLastError(t *testing.T) {
	dir := t.TempDir()
	p := createModelFile(t, dir, "m.onnx", 1)
	rt := &fakeRuntime{runErr: errors.New("forward pass failed")}
	e := NewWithConfig(EngineConfig{Registry: []types.Model{{ID: "m", Path: p}}, DefaultModel: "m", Runtime: rt})
	_, err := e.Infer(testCtx(t), "m", testImage(4, 4))
	if err == nil {
		t.Fatalf("expected run error")
	}
	if st := e.Status(); st.LastError == "" {
		t.Fatalf("expected LastError recorded, got %+v", st)
	}
}

func TestInfer_DefaultFallsBackWhenDefaultMissing(t *testing.T) {
	dir := t.TempDir()
	p := createModelFile(t, dir, "fb.onnx", 1)
	rt := &fakeRuntime{}
	e := NewWithConfig(EngineConfig{
		Registry:      []types.Model{{ID: "fb", Path: p}},
		DefaultModel:  "gone",
		FallbackModel: "fb",
		Runtime:       rt,
	})
	dm, err := e.Infer(testCtx(t), "", testImage(6, 6))
	if err != nil {
		t.Fatalf("expected fallback to serve, got %v", err)
	}
	if dm == nil || dm.Width != 6 {
		t.Fatalf("unexpected result: %+v", dm)
	}
	e.mu.RLock()
	_, hasFB := e.instances["fb"]
	_, hasGone := e.instances["gone"]
	e.mu.RUnlock()
	if !hasFB || hasGone {
		t.Fatalf("expected only fallback instance, got fb=%v gone=%v", hasFB, hasGone)
	}
}

func TestInfer_ExplicitUnknownDoesNotFallBack(t *testing.T) {
	dir := t.TempDir()
	p := createModelFile(t, dir, "fb.onnx", 1)
	e := NewWithConfig(EngineConfig{
		Registry:      []types.Model{{ID: "fb", Path: p}},
		FallbackModel: "fb",
		Runtime:       &fakeRuntime{},
	})
	_, err := e.Infer(testCtx(t), "ghost", testImage(4, 4))
	if err == nil || !IsModelNotFound(err) {
		t.Fatalf("expected model not found without fallback, got %v", err)
	}
}

func TestInfer_ExplicitFallsBackWhenUnavailable(t *testing.T) {
	dir := t.TempDir()
	p1 := createModelFile(t, dir, "m.onnx", 1)
	p2 := createModelFile(t, dir, "fb.onnx", 1)
	rt := &fakeRuntime{failFor: map[string]error{"m": ErrModelUnavailable("backend down")}}
	e := NewWithConfig(EngineConfig{
		Registry:      []types.Model{{ID: "m", Path: p1}, {ID: "fb", Path: p2}},
		DefaultModel:  "m",
		FallbackModel: "fb",
		Runtime:       rt,
	})
	dm, err := e.Infer(testCtx(t), "m", testImage(5, 5))
	if err != nil {
		t.Fatalf("expected fallback to serve, got %v", err)
	}
	if dm.Width != 5 || dm.Height != 5 {
		t.Fatalf("unexpected dimensions %dx%d", dm.Width, dm.Height)
	}
	// The failed primary must not leave a ghost instance behind
	e.mu.RLock()
	_, hasM := e.instances["m"]
	e.mu.RUnlock()
	if hasM {
		t.Fatalf("expected failed primary instance removed")
	}
}

func TestInfer_FallbackFailureSurfacesOriginalError(t *testing.T) {
	dir := t.TempDir()
	p1 := createModelFile(t, dir, "m.onnx", 1)
	p2 := createModelFile(t, dir, "fb.onnx", 1)
	rt := &fakeRuntime{failFor: map[string]error{
		"m":  ErrModelUnavailable("primary down"),
		"fb": ErrModelUnavailable("fallback down"),
	}}
	e := NewWithConfig(EngineConfig{
		Registry:      []types.Model{{ID: "m", Path: p1}, {ID: "fb", Path: p2}},
		DefaultModel:  "m",
		FallbackModel: "fb",
		Runtime:       rt,
	})
	_, err := e.Infer(testCtx(t), "m", testImage(4, 4))
	if err == nil || !IsModelUnavailable(err) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
	if err.Error() != "primary down" {
		t.Fatalf("expected original error surfaced, got %q", err.Error())
	}
}

func TestInfer_BackpressureTooBusy(t *testing.T) {
	dir := t.TempDir()
	p := createModelFile(t, dir, "m.onnx", 1)
	e := NewWithConfig(EngineConfig{Registry: []types.Model{{ID: "m", Path: p}}, DefaultModel: "m", MaxQueueDepth: 1, MaxWait: 10 * time.Millisecond, Runtime: &fakeRuntime{}})

	if err := e.EnsureInstance(context.Background(), "m"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	// Saturate queue and in-flight slots to force backpressure
	e.mu.RLock()
	inst := e.instances["m"]
	e.mu.RUnlock()
	inst.queueCh <- struct{}{}
	inst.genCh <- struct{}{}

	_, err := e.Infer(context.Background(), "m", testImage(4, 4))
	if err == nil || !IsTooBusy(err) {
		t.Fatalf("expected too busy error, got %v", err)
	}
	// cleanup
	<-inst.genCh
	<-inst.queueCh
}

func TestEnsureInstance_CanceledBeforeLoad_SetsErrorState(t *testing.T) {
	e := NewWithConfig(EngineConfig{Registry: []types.Model{{ID: "m", Path: "nonexistent"}}, DefaultModel: "m", Runtime: &fakeRuntime{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.EnsureInstance(ctx, "m")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	snap := e.Snapshot()
	if snap.State != StateError || snap.Err == "" {
		t.Fatalf("expected error state and non-empty err, got %+v", snap)
	}
}

func TestEnsureInstance_LoadErrorCleansPlaceholder(t *testing.T) {
	dir := t.TempDir()
	p := createModelFile(t, dir, "m.onnx", 1)
	rt := &fakeRuntime{loadErr: errors.New("no such backend")}
	e := NewWithConfig(EngineConfig{Registry: []types.Model{{ID: "m", Path: p}}, DefaultModel: "m", Runtime: rt})
	if err := e.EnsureInstance(context.Background(), "m"); err == nil {
		t.Fatalf("expected load error")
	}
	e.mu.RLock()
	_, exists := e.instances["m"]
	e.mu.RUnlock()
	if exists {
		t.Fatalf("expected placeholder instance removed after load failure")
	}
}
