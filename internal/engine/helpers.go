package engine

import (
	"os"

	"depthd/pkg/types"
)

// Helper: find model in registry by id.
func (e *Engine) getModelByID(id string) (types.Model, bool) {
	for _, mdl := range e.registry {
		if mdl.ID == id {
			return mdl, true
		}
	}
	return types.Model{}, false
}

// Helper: estimate resident memory based on weight-file size (MB). Returns a
// conservative minimum when the file cannot be stat'ed (remote models have no
// local path) so budget checks are never bypassed by an unknown size.
func (e *Engine) estimateMemMB(mdl types.Model) int {
	fi, err := os.Stat(mdl.Path)
	if err != nil {
		return 1
	}
	mb := int(fi.Size() / (1024 * 1024))
	if mb <= 0 {
		mb = 1
	}
	return mb
}

// resolveModel maps a requested id to registry metadata. Unlisted ids pass
// through with bare metadata when the runtime owns the weights remotely.
func (e *Engine) resolveModel(modelID string) (types.Model, error) {
	if mdl, ok := e.getModelByID(modelID); ok {
		return mdl, nil
	}
	if e.allowUnlisted {
		return types.Model{ID: modelID, Name: modelID}, nil
	}
	return types.Model{}, modelNotFoundError{id: modelID}
}
