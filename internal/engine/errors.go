package engine

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// ErrModelNotFound returns an error when a requested model id is not present in the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// modelUnavailableError signals that model weights could not be loaded or the
// inference backend is missing, so the HTTP layer can return 503 Service
// Unavailable instead of 500.
type modelUnavailableError struct{ msg string }

func (e modelUnavailableError) Error() string { return e.msg }

// ErrModelUnavailable constructs a modelUnavailableError.
func ErrModelUnavailable(msg string) error { return modelUnavailableError{msg: msg} }

// IsModelUnavailable reports whether err indicates a missing/failed model backend.
func IsModelUnavailable(err error) bool {
	_, ok := err.(modelUnavailableError)
	return ok
}

// budgetExceededError signals that a model cannot fit within the memory
// budget even after evicting every idle instance.
type budgetExceededError struct{ msg string }

func (e budgetExceededError) Error() string { return "budget exceeded: " + e.msg }

// ErrBudgetExceeded constructs a budgetExceededError.
func ErrBudgetExceeded(msg string) error { return budgetExceededError{msg: msg} }

// IsBudgetExceeded reports whether err indicates the memory budget cannot
// admit the requested model.
func IsBudgetExceeded(err error) bool {
	_, ok := err.(budgetExceededError)
	return ok
}

// invalidImageError signals an unusable input image for 400 mapping.
type invalidImageError struct{ msg string }

func (e invalidImageError) Error() string { return "invalid image: " + e.msg }

// ErrInvalidImage constructs an invalidImageError.
func ErrInvalidImage(msg string) error { return invalidImageError{msg: msg} }

// IsInvalidImage reports whether err indicates a rejected input image.
func IsInvalidImage(err error) bool {
	_, ok := err.(invalidImageError)
	return ok
}
