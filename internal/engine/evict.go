package engine

import (
	"fmt"
	"log"
	"time"
)

// Evict LRU idle instances until required MB fits budget + margin.
func (e *Engine) evictUntilFits(requiredMB int) error {
	deadline := time.Now().Add(1 * time.Second)
	for {
		e.mu.Lock()
		fits := (e.usedEstMB + requiredMB + e.marginMB) <= e.budgetMB
		if fits {
			e.mu.Unlock()
			return nil
		}
		// Pick LRU idle instance (no in-flight and no queued requests)
		var lru *Instance
		for _, inst := range e.instances {
			if len(inst.genCh) > 0 || len(inst.queueCh) > 0 {
				// active or has queued work; skip
				continue
			}
			if lru == nil || inst.LastUsed.Before(lru.LastUsed) {
				lru = inst
			}
		}
		if lru == nil {
			// Nothing idle to evict and the requirement still does not fit.
			need, used, budget := requiredMB, e.usedEstMB, e.budgetMB
			e.mu.Unlock()
			return ErrBudgetExceeded(fmt.Sprintf("need %dMB, used %dMB, budget %dMB", need, used, budget))
		}
		// Evict it
		delete(e.instances, lru.ID)
		e.usedEstMB -= lru.EstMemMB
		if e.usedEstMB < 0 {
			e.usedEstMB = 0
		}
		sess := lru.sess
		lru.sess = nil
		e.evictionsTotal++
		e.mu.Unlock()

		if sess != nil {
			_ = sess.Close()
		}
		engineEvictionsTotal.Inc()
		log.Printf("engine event=evict model=%q freed_mb=%d", lru.ID, lru.EstMemMB)
		e.publisher.Publish(Event{Name: "evict", ModelID: lru.ID, Fields: map[string]any{"freed_mb": lru.EstMemMB}})

		if time.Now().After(deadline) {
			return ErrBudgetExceeded("eviction deadline exceeded")
		}
		// loop to re-check
	}
}
