package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"depthd/internal/config"
	"depthd/internal/engine"
	"depthd/internal/httpapi"
	"depthd/internal/registry"
	"depthd/internal/store"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitCSV splits a comma-separated flag value, dropping empty entries.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func main() {
	// Flags with environment variable defaults
	addr := flag.String("addr", envOr("DEPTHD_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	configPath := flag.String("config", envOr("DEPTHD_CONFIG", ""), "Optional config file (.yaml/.json/.toml); flags override file values")
	envFile := flag.String("env-file", envOr("DEPTHD_ENV_FILE", ".env"), "Dotenv file with pass-through credentials (ignored when missing)")
	modelsDir := flag.String("models-dir", envOr("DEPTHD_MODELS_DIR", "~/models/depth"), "Directory to scan for *.onnx model files")
	outputsDir := flag.String("outputs-dir", envOr("DEPTHD_OUTPUTS_DIR", "outputs"), "Directory for stored depth-map results")
	memBudgetMB := flag.Int("mem-budget-mb", 0, "Memory budget in MB for all loaded models (0=unlimited)")
	memMarginMB := flag.Int("mem-margin-mb", 0, "Reserved memory margin in MB to keep free")
	defaultModel := flag.String("default-model", envOr("DEPTHD_DEFAULT_MODEL", ""), "Default model id when request omits model")
	fallbackModel := flag.String("fallback-model", envOr("DEPTHD_FALLBACK_MODEL", ""), "Model id to load when the default fails")
	colormap := flag.String("colormap", envOr("DEPTHD_COLORMAP", ""), "Default rendering palette: plasma or gray")
	maxUploadMB := flag.Int("max-upload-mb", 10, "Maximum upload size in MB")
	inferTimeoutSec := flag.Int("infer-timeout-sec", 0, "Per-request inference timeout in seconds (0 disables)")
	ortLib := flag.String("ort-lib", envOr("DEPTHD_ORT_LIB", ""), "Path to the onnxruntime shared library")
	remoteURL := flag.String("remote-url", envOr("DEPTHD_REMOTE_URL", ""), "Remote depth-inference server URL (uses the remote runtime when set)")
	remoteTimeout := flag.Duration("remote-timeout", 60*time.Second, "Remote inference request timeout")
	retentionMaxAge := flag.Duration("retention-max-age", 0, "Delete stored results older than this (0 disables)")
	retentionSchedule := flag.String("retention-schedule", "", "Cron expression for the retention sweep (hourly when empty)")
	logLevel := flag.String("log-level", envOr("DEPTHD_LOG_LEVEL", "info"), "Log level: debug, info, warn, error, off")
	corsEnabled := flag.Bool("cors", false, "Enable CORS middleware")
	corsOrigins := flag.String("cors-origins", "*", "Comma-separated allowed CORS origins")
	corsMethods := flag.String("cors-methods", "GET,POST,DELETE,OPTIONS", "Comma-separated allowed CORS methods")
	corsHeaders := flag.String("cors-headers", "Content-Type,X-Log-Level", "Comma-separated allowed CORS headers")
	flag.Parse()

	logger := newLogger(*logLevel)

	// Pass-through credentials (DEPTHD_HUB_TOKEN, IMG_API_KEY) may live in a
	// dotenv file next to the binary; a missing file is not an error.
	if err := config.LoadEnvFile(*envFile); err != nil {
		logger.Warn().Err(err).Str("path", *envFile).Msg("env file not loaded")
	}

	// Config file fills in anything the flags left at their defaults.
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		applyFileConfig(fileCfg, map[string]*string{
			"addr": addr, "models-dir": modelsDir, "outputs-dir": outputsDir,
			"default-model": defaultModel, "fallback-model": fallbackModel,
			"colormap": colormap, "ort-lib": ortLib, "remote-url": remoteURL,
		}, map[string]*int{
			"mem-budget-mb": memBudgetMB, "mem-margin-mb": memMarginMB,
			"max-upload-mb": maxUploadMB,
		}, retentionMaxAge, retentionSchedule)
	}

	// Load registry by scanning modelsDir for *.onnx
	reg, err := registry.LoadDir(*modelsDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", *modelsDir).Msg("load models")
	}

	engCfg := engine.EngineConfig{
		Registry:      reg,
		BudgetMB:      *memBudgetMB,
		MarginMB:      *memMarginMB,
		DefaultModel:  *defaultModel,
		FallbackModel: *fallbackModel,
		ORTLibPath:    *ortLib,
	}
	if *remoteURL != "" {
		engCfg.Runtime = engine.NewRemoteRuntime(*remoteURL, os.Getenv("DEPTHD_HUB_TOKEN"), *remoteTimeout)
		engCfg.AllowUnlistedModels = true
	}
	eng := engine.NewWithConfig(engCfg)

	if rep := engine.SanityCheck(*ortLib, *remoteURL, len(reg)); rep.Error != "" {
		logger.Warn().Str("reason", rep.Error).Msg("inference backend sanity check failed")
	}

	results, err := store.Open(*outputsDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", *outputsDir).Msg("open result store")
	}
	janitor, err := store.StartJanitor(results, *retentionSchedule, *retentionMaxAge, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("start retention janitor")
	}
	defer janitor.Stop()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetMaxUploadBytes(int64(*maxUploadMB) << 20)
	httpapi.SetDefaultColormap(*colormap)
	httpapi.SetInferTimeoutSeconds(int64(*inferTimeoutSec))
	httpapi.SetCORSOptions(*corsEnabled, splitCSV(*corsOrigins), splitCSV(*corsMethods), splitCSV(*corsHeaders))

	mux := httpapi.NewMuxWithStore(eng, results)
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", *addr).Str("models_dir", *modelsDir).Int("models", len(reg)).Msg("depthd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := eng.Close(); err != nil {
		logger.Warn().Err(err).Msg("engine close error")
	}
}

// newLogger builds the process logger writing console output to stderr.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if level == "off" {
		lvl = zerolog.Disabled
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// applyFileConfig copies file values into flags the user did not set.
func applyFileConfig(cfg config.Config, strs map[string]*string, ints map[string]*int, retentionMaxAge *time.Duration, retentionSchedule *string) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	fileStr := map[string]string{
		"addr": cfg.Addr, "models-dir": cfg.ModelsDir, "outputs-dir": cfg.OutputsDir,
		"default-model": cfg.DefaultModel, "fallback-model": cfg.FallbackModel,
		"colormap": cfg.Colormap, "ort-lib": cfg.ORTLibPath, "remote-url": cfg.RemoteURL,
	}
	for name, dst := range strs {
		if v := fileStr[name]; v != "" && !set[name] {
			*dst = v
		}
	}
	fileInt := map[string]int{
		"mem-budget-mb": cfg.MemBudgetMB, "mem-margin-mb": cfg.MemMarginMB,
		"max-upload-mb": cfg.MaxUploadMB,
	}
	for name, dst := range ints {
		if v := fileInt[name]; v != 0 && !set[name] {
			*dst = v
		}
	}
	if cfg.RetentionMaxAge != "" && !set["retention-max-age"] {
		if d, err := time.ParseDuration(cfg.RetentionMaxAge); err == nil {
			*retentionMaxAge = d
		}
	}
	if cfg.RetentionSchedule != "" && !set["retention-schedule"] {
		*retentionSchedule = cfg.RetentionSchedule
	}
}
