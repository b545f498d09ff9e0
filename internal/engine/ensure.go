package engine

import (
	"context"
	"log"
	"time"
)

// EnsureInstance ensures a model instance is loaded and marked ready
// according to current resource budgeting and readiness state.
func (e *Engine) EnsureInstance(ctx context.Context, modelID string) error {
	startTs := time.Now()
	if modelID == "" {
		// If unspecified, use default if present; else no-op
		modelID = e.defaultModel
		if modelID == "" {
			return nil
		}
	}
	log.Printf("engine event=ensure_start model=%q", modelID)
	e.publisher.Publish(Event{Name: "ensure_start", ModelID: modelID, Fields: map[string]any{}})

	e.mu.RLock()
	inst, ok := e.instances[modelID]
	ready := ok && inst != nil && inst.State == StateReady
	e.mu.RUnlock()
	if ready {
		// Upgrade to write lock to safely mutate LastUsed and re-check state
		e.mu.Lock()
		if inst2, ok2 := e.instances[modelID]; ok2 && inst2 != nil && inst2.State == StateReady {
			inst2.LastUsed = time.Now()
			e.mu.Unlock()
			return nil
		}
		e.mu.Unlock()
		// If state changed in between, continue with ensure path
	}

	// Resolve model metadata
	mdl, err := e.resolveModel(modelID)
	if err != nil {
		log.Printf("engine event=ensure_model_not_found model=%q", modelID)
		e.publisher.Publish(Event{Name: "ensure_model_not_found", ModelID: modelID, Fields: map[string]any{}})
		return err
	}
	reqMB := e.estimateMemMB(mdl)

	// Evict until it fits budget + margin, if budget configured
	if e.budgetMB > 0 {
		if err := e.evictUntilFits(reqMB); err != nil {
			log.Printf("engine event=ensure_budget_fail model=%q err=%v", modelID, err)
			e.publisher.Publish(Event{Name: "ensure_budget_fail", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
			return err
		}
	}

	// Per-instance load state transition
	e.mu.Lock()
	e.state = StateLoading
	e.err = ""
	if e.instances == nil {
		e.instances = make(map[string]*Instance)
	}
	inst, existed := e.instances[modelID]
	addedNow := false
	if !existed || inst == nil {
		inst = &Instance{
			ID:       modelID,
			State:    StateLoading,
			LastUsed: time.Now(),
			EstMemMB: reqMB,
			genCh:    make(chan struct{}, 1),
			queueCh:  make(chan struct{}, e.maxQueueDepth),
		}
		e.instances[modelID] = inst
		addedNow = true
	} else {
		inst.State = StateLoading
		inst.EstMemMB = reqMB
		inst.LastUsed = time.Now()
	}
	alreadyLoaded := inst.sess != nil
	e.mu.Unlock()

	// Load weights outside the lock; this is the slow path.
	var sess Session
	if !alreadyLoaded {
		if err := ctx.Err(); err != nil {
			e.failEnsure(modelID, inst, addedNow, err.Error())
			return err
		}
		sess, err = e.runtime.Load(mdl)
		if err != nil {
			e.failEnsure(modelID, inst, addedNow, err.Error())
			log.Printf("engine event=ensure_load_error model=%q err=%v", modelID, err)
			e.publisher.Publish(Event{Name: "ensure_load_error", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
			return err
		}
	}

	// Commit instance as ready
	var stale Session
	e.mu.Lock()
	if sess != nil {
		if inst.sess == nil {
			inst.sess = sess
		} else {
			// a concurrent ensure won the load race
			stale = sess
		}
	}
	if addedNow {
		// Only add to used estimate when we actually added a new instance
		e.usedEstMB += reqMB
	}
	inst.State = StateReady
	inst.LastUsed = time.Now()
	e.cur = &ModelInfo{ID: mdl.ID, Name: mdl.Name, Path: mdl.Path, Family: mdl.Family}
	e.state = StateReady
	e.err = ""
	e.loadsTotal++
	e.mu.Unlock()
	if stale != nil {
		_ = stale.Close()
	}
	engineLoadsTotal.Inc()
	log.Printf("engine event=ensure_ready model=%q dur_ms=%d", modelID, time.Since(startTs)/time.Millisecond)
	e.publisher.Publish(Event{Name: "ensure_ready", ModelID: modelID, Fields: map[string]any{"dur_ms": int(time.Since(startTs) / time.Millisecond)}})
	return nil
}

// failEnsure records a load failure and discards the placeholder instance
// when this ensure created it and nothing is queued against it.
func (e *Engine) failEnsure(modelID string, inst *Instance, addedNow bool, msg string) {
	e.mu.Lock()
	e.state = StateError
	e.err = msg
	e.lastError = msg
	if addedNow && inst != nil && inst.sess == nil && len(inst.queueCh) == 0 && len(inst.genCh) == 0 {
		delete(e.instances, modelID)
	}
	e.mu.Unlock()
}

// ensureWithFallback resolves the effective model for a request, falling back
// to the configured fallback model when the primary cannot serve. Explicitly
// requested ids only fall back on load failures so unknown ids stay not-found;
// defaulted requests also fall back when the default model is missing.
func (e *Engine) ensureWithFallback(ctx context.Context, requestedID string) (string, error) {
	explicit := requestedID != ""
	modelID := requestedID
	if modelID == "" {
		modelID = e.defaultModel
	}
	if modelID == "" {
		return "", modelNotFoundError{id: "(unspecified)"}
	}
	err := e.EnsureInstance(ctx, modelID)
	if err == nil {
		return modelID, nil
	}
	fb := e.fallbackModel
	if fb == "" || fb == modelID {
		return "", err
	}
	if explicit && !IsModelUnavailable(err) {
		return "", err
	}
	if !IsModelUnavailable(err) && !IsModelNotFound(err) {
		return "", err
	}
	log.Printf("engine event=ensure_fallback from=%q to=%q err=%v", modelID, fb, err)
	e.publisher.Publish(Event{Name: "ensure_fallback", ModelID: fb, Fields: map[string]any{"from": modelID, "error": err.Error()}})
	if err2 := e.EnsureInstance(ctx, fb); err2 != nil {
		// surface the original failure; the fallback attempt is best-effort
		return "", err
	}
	return fb, nil
}
