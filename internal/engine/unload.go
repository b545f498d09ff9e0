package engine

import (
	"time"
)

// Unload initiates a graceful drain of a model instance and removes it.
// - Sets instance state to draining to reject new enqueues.
// - Waits up to drainTimeout for in-flight and queued requests to finish.
// - Closes the session and removes the instance entry.
func (e *Engine) Unload(modelID string) error {
	if modelID == "" {
		return ErrModelNotFound("(unspecified)")
	}
	e.mu.Lock()
	inst := e.instances[modelID]
	if inst == nil {
		e.mu.Unlock()
		return ErrModelNotFound(modelID)
	}
	inst.State = StateDraining
	e.mu.Unlock()
	e.publisher.Publish(Event{Name: "unload_start", ModelID: modelID, Fields: map[string]any{}})

	deadline := time.Now().Add(e.drainTimeout)
	for {
		e.mu.RLock()
		qlen := len(inst.queueCh)
		inflight := len(inst.genCh)
		e.mu.RUnlock()
		if inflight == 0 && qlen == 0 {
			break
		}
		if time.Now().After(deadline) {
			e.publisher.Publish(Event{Name: "unload_timeout", ModelID: modelID, Fields: map[string]any{"inflight": inflight, "queue": qlen}})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	e.mu.Lock()
	// Adjust accounting and remove
	var sess Session
	if inst2 := e.instances[modelID]; inst2 != nil {
		e.usedEstMB -= inst2.EstMemMB
		if e.usedEstMB < 0 {
			e.usedEstMB = 0
		}
		sess = inst2.sess
		inst2.sess = nil
	}
	delete(e.instances, modelID)
	if e.cur != nil && e.cur.ID == modelID {
		e.cur = nil
	}
	e.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	e.publisher.Publish(Event{Name: "unload_done", ModelID: modelID, Fields: map[string]any{}})
	return nil
}
