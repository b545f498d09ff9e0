package httpapi

// maxUploadBytes caps multipart upload bodies. Default 10 MiB, the limit the
// original depth service enforced.
var maxUploadBytes int64 = 10 << 20

// SetMaxUploadBytes configures the maximum upload size; n <= 0 restores the default.
func SetMaxUploadBytes(n int64) {
	if n <= 0 {
		maxUploadBytes = 10 << 20
		return
	}
	maxUploadBytes = n
}

// defaultColormap applies when a request does not name a palette. Empty
// falls through to the renderer's own default.
var defaultColormap string

// SetDefaultColormap sets the palette used when requests omit one.
func SetDefaultColormap(name string) { defaultColormap = name }

// inferTimeout controls the maximum duration a depth request may run before
// timing out. Zero means no additional timeout beyond server/connection timeouts.
var inferTimeout = int64(0) // seconds

// SetInferTimeoutSeconds sets the inference timeout in seconds (0 disables).
func SetInferTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	inferTimeout = sec
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
