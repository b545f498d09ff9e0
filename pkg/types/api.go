package types

// RootResponse is the service banner returned by GET /.
type RootResponse struct {
	// Service name.
	// example: depthd
	Service string `json:"service" example:"depthd"`
	// Overall service status.
	// example: running
	Status string `json:"status" example:"running"`
	// Whether at least one model instance is loaded and ready.
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
}

// PredictResponse is returned by POST /predict after a stored estimation.
type PredictResponse struct {
	// Whether the estimation succeeded.
	// example: true
	Success bool `json:"success" example:"true"`
	// Human-readable result message.
	// example: depth map generated successfully
	Message string `json:"message" example:"depth map generated successfully"`
	// Identifier of the stored result, used by the download and cleanup endpoints.
	// example: 2QhTKbzYJ9VZkHRW3gDpQq0FxnM
	FileID string `json:"file_id" example:"2QhTKbzYJ9VZkHRW3gDpQq0FxnM"`
	// Original filename of the uploaded image.
	// example: room.jpg
	OriginalFilename string `json:"original_filename" example:"room.jpg"`
	// Relative URL of the rendered depth-map image.
	// example: /download/2QhTKbzYJ9VZkHRW3gDpQq0FxnM
	DepthMapURL string `json:"depth_map_url" example:"/download/2QhTKbzYJ9VZkHRW3gDpQq0FxnM"`
	// Relative URL to download the rendered depth-map image.
	// example: /download/2QhTKbzYJ9VZkHRW3gDpQq0FxnM
	DownloadURL string `json:"download_url" example:"/download/2QhTKbzYJ9VZkHRW3gDpQq0FxnM"`
	// Whether the raw float32 depth buffer was stored alongside the image.
	// example: true
	RawDataAvailable bool `json:"raw_data_available" example:"true"`
	// Relative URL of the raw depth buffer in NPY form, when available.
	// example: /download/2QhTKbzYJ9VZkHRW3gDpQq0FxnM/raw
	RawDataURL string `json:"raw_data_url,omitempty" example:"/download/2QhTKbzYJ9VZkHRW3gDpQq0FxnM/raw"`
}

// CleanupResponse is returned by DELETE /cleanup/{fileID}.
type CleanupResponse struct {
	// Whether anything was removed.
	// example: true
	Success bool `json:"success" example:"true"`
	// Human-readable result message.
	// example: removed 2 files
	Message string `json:"message" example:"removed 2 files"`
	// Number of artifact files removed.
	// example: 2
	FilesRemoved int `json:"files_removed" example:"2"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: unsupported image type
	Error string `json:"error" example:"unsupported image type"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// InstanceStatus summarizes a loaded instance for /status.
type InstanceStatus struct {
	// ID of the model this instance serves.
	// example: midas-v21-small
	ModelID string `json:"model_id" example:"midas-v21-small"`
	// Current lifecycle state of the instance (e.g., unloaded, loading, ready).
	// example: ready
	State string `json:"state" example:"ready"`
	// Last time this instance served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Estimated resident memory in MB.
	// example: 420
	EstMemMB int `json:"est_mem_mb" example:"420"`
	// Current queue length for incoming requests.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Number of in-flight requests currently being processed.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued requests allowed before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Loaded/managed instances.
	Instances []InstanceStatus `json:"instances"`
	// Memory budget in MB across all instances.
	// example: 4096
	BudgetMB int `json:"budget_mb" example:"4096"`
	// Estimated used memory in MB.
	// example: 840
	UsedMB int `json:"used_est_mb" example:"840"`
	// Reserved memory margin in MB.
	// example: 256
	MarginMB int `json:"margin_mb" example:"256"`
	// Optional top-level error message.
	Error string `json:"error,omitempty"`
	// Last error observed by the engine (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total number of evictions performed to free memory.
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// Total number of model loads.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Overall engine state (e.g., loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Number of instances currently warming up (loading).
	// example: 1
	WarmupsInProgress int `json:"warmups_in_progress" example:"1"`
	// Number of instances currently draining (unload in progress).
	// example: 1
	DrainingCount int `json:"draining_count" example:"1"`
}
