package engine

import (
	"os"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	ONNXBuilt        bool   `json:"onnx_built"`
	ORTLibPath       string `json:"ort_lib_path,omitempty"`
	ORTLibFound      bool   `json:"ort_lib_found"`
	RemoteURL        string `json:"remote_url,omitempty"`
	ModelsInRegistry int    `json:"models_in_registry"`
	Error            string `json:"error,omitempty"`
}

// SanityCheck validates that the configured backend can plausibly serve.
// It does not mutate state and is safe to call at any time.
func SanityCheck(ortLibPath, remoteURL string, registrySize int) SanityReport {
	r := SanityReport{
		ONNXBuilt:        onnxBuilt,
		ORTLibPath:       ortLibPath,
		RemoteURL:        remoteURL,
		ModelsInRegistry: registrySize,
	}
	if remoteURL != "" {
		// remote backend; local runtime checks do not apply
		return r
	}
	if !onnxBuilt {
		r.Error = "in-process inference not built (missing 'onnx' build tag) and no remote URL configured"
		return r
	}
	if ortLibPath != "" {
		if fi, err := os.Stat(ortLibPath); err != nil || fi.IsDir() {
			r.ORTLibFound = false
			if err != nil {
				r.Error = err.Error()
			} else {
				r.Error = "onnxruntime library path is a directory"
			}
			return r
		}
		r.ORTLibFound = true
	}
	if registrySize == 0 {
		r.Error = "no models in registry"
	}
	return r
}
