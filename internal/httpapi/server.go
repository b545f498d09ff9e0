package httpapi

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"depthd/internal/depthmap"
	"depthd/internal/imageio"
	"depthd/internal/store"
	"depthd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Infer(ctx context.Context, modelID string, img image.Image) (*depthmap.DepthMap, error)
	Ready() bool
}

// ResultStore persists rendered depth maps for later download/cleanup.
// *store.Store satisfies it; nil disables the stored-result endpoints.
type ResultStore interface {
	Save(originalFilename string, img image.Image, raw *depthmap.DepthMap) (store.Result, error)
	Lookup(id string) (store.Result, bool)
	Cleanup(id string) (int, error)
}

// NewMux builds the router without a result store; POST /predict and the
// download/cleanup endpoints respond 503 until one is configured.
func NewMux(svc Service) http.Handler { return NewMuxWithStore(svc, nil) }

// NewMuxWithStore builds the full router.
func NewMuxWithStore(svc Service, results ResultStore) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints (PNG bodies are already compressed)
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Get("/", handleRoot(svc))
	r.Post("/depth", handleDepth(svc))
	r.Post("/predict", handlePredict(svc, results))
	r.Get("/download/{fileID}", handleDownload(results))
	r.Get("/download/{fileID}/raw", handleDownloadRaw(results))
	r.Delete("/cleanup/{fileID}", handleCleanup(results))

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.ListModels()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleRoot godoc
// @Summary Service banner
// @Produce json
// @Success 200 {object} types.RootResponse
// @Router / [get]
func handleRoot(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.RootResponse{
			Service:     "depthd",
			Status:      "running",
			ModelLoaded: svc.Ready(),
		})
	}
}

// runPipeline decodes the upload, runs inference and renders the depth map.
// On failure it writes the error response and returns ok=false.
func runPipeline(svc Service, w http.ResponseWriter, r *http.Request) (rendered image.Image, raw *depthmap.DepthMap, filename string, ok bool) {
	up, err := readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return nil, nil, "", false
	}
	colormap := r.FormValue("colormap")
	if colormap == "" {
		colormap = defaultColormap
	}
	palette, err := depthmap.ParsePalette(colormap)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return nil, nil, "", false
	}
	invert := r.FormValue("invert") == "1" || r.FormValue("invert") == "true"

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if sec := inferTimeout; sec > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
		defer tcancel()
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "depth start", r.FormValue("model"))
	dm, err := svc.Infer(ctx, r.FormValue("model"), up.image)
	if err != nil {
		// Client disconnects produce context errors; nothing useful to write.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return nil, nil, "", false
		}
		status := writeError(w, err)
		logEnd(r, lvl, "depth end", status, start, err)
		return nil, nil, "", false
	}
	img, err := depthmap.Render(dm, palette, invert)
	if err != nil {
		status := writeError(w, err)
		logEnd(r, lvl, "depth end", status, start, err)
		return nil, nil, "", false
	}
	logEnd(r, lvl, "depth end", http.StatusOK, start, nil)
	return img, dm, up.filename, true
}

// handleDepth godoc
// @Summary Estimate depth for an uploaded image
// @Accept mpfd
// @Produce png
// @Param image formData file true "Image to estimate depth for"
// @Param model formData string false "Model id (default model when empty)"
// @Param colormap formData string false "Rendering palette: plasma or gray"
// @Success 200 {file} binary "Rendered depth map (PNG)"
// @Failure 400 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /depth [post]
func handleDepth(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rendered, raw, _, ok := runPipeline(svc, w, r)
		if !ok {
			return
		}
		// format=npy returns the raw float map; the remote runtime asks for
		// this when one depthd proxies to another.
		if r.FormValue("format") == "npy" {
			w.Header().Set("Content-Type", "application/octet-stream")
			if err := depthmap.WriteNPY(w, raw); err != nil && zlog != nil {
				zlog.Error().Err(err).Msg("write raw response")
			}
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if err := imageio.EncodePNG(w, rendered); err != nil && zlog != nil {
			zlog.Error().Err(err).Msg("write depth response")
		}
	}
}

// handlePredict godoc
// @Summary Estimate depth and store the result for download
// @Accept mpfd
// @Produce json
// @Param image formData file true "Image to estimate depth for"
// @Param model formData string false "Model id (default model when empty)"
// @Param colormap formData string false "Rendering palette: plasma or gray"
// @Success 200 {object} types.PredictResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /predict [post]
func handlePredict(svc Service, results ResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if results == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "result store not configured")
			return
		}
		rendered, dm, filename, ok := runPipeline(svc, w, r)
		if !ok {
			return
		}
		res, err := results.Save(filename, rendered, dm)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.PredictResponse{
			Success:          true,
			Message:          "depth map generated successfully",
			FileID:           res.FileID,
			OriginalFilename: res.OriginalFilename,
			DepthMapURL:      "/download/" + res.FileID,
			DownloadURL:      "/download/" + res.FileID,
			RawDataAvailable: res.RawPath != "",
			RawDataURL:       "/download/" + res.FileID + "/raw",
		})
	}
}

// handleDownload godoc
// @Summary Download a stored depth-map image
// @Produce png
// @Param fileID path string true "Result file id"
// @Success 200 {file} binary
// @Failure 404 {object} types.ErrorResponse
// @Router /download/{fileID} [get]
func handleDownload(results ResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if results == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "result store not configured")
			return
		}
		id := chi.URLParam(r, "fileID")
		res, ok := results.Lookup(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "file not found")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `attachment; filename="depth_map_`+id+`.png"`)
		http.ServeFile(w, r, res.ImagePath)
	}
}

// handleDownloadRaw godoc
// @Summary Download the raw float32 depth buffer (NPY)
// @Produce octet-stream
// @Param fileID path string true "Result file id"
// @Success 200 {file} binary
// @Failure 404 {object} types.ErrorResponse
// @Router /download/{fileID}/raw [get]
func handleDownloadRaw(results ResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if results == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "result store not configured")
			return
		}
		id := chi.URLParam(r, "fileID")
		res, ok := results.Lookup(id)
		if !ok || res.RawPath == "" {
			writeJSONError(w, http.StatusNotFound, "raw data not found")
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="depth_map_`+id+`_raw.npy"`)
		http.ServeFile(w, r, res.RawPath)
	}
}

// handleCleanup godoc
// @Summary Remove a stored result
// @Produce json
// @Param fileID path string true "Result file id"
// @Success 200 {object} types.CleanupResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /cleanup/{fileID} [delete]
func handleCleanup(results ResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if results == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "result store not configured")
			return
		}
		id := chi.URLParam(r, "fileID")
		if _, ok := results.Lookup(id); !ok {
			writeJSONError(w, http.StatusNotFound, "file not found")
			return
		}
		removed, err := results.Cleanup(id)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.CleanupResponse{
			Success:      true,
			Message:      "removed " + itoa(removed) + " files",
			FilesRemoved: removed,
		})
	}
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}
