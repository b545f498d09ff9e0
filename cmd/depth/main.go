// Command depth runs the depth-estimation pipeline once:
// read an image, infer a depth map, write the rendered PNG.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"depthd/internal/config"
	"depthd/internal/depthmap"
	"depthd/internal/engine"
	"depthd/internal/imageio"
	"depthd/internal/imghost"
	"depthd/internal/registry"
)

type options struct {
	modelsDir string
	model     string
	colormap  string
	invert    bool
	raw       bool
	share     bool
	ortLib    string
	remoteURL string
	timeout   time.Duration
	envFile   string
}

func buildRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "depth <image_path> <output_path>",
		Short:         "Estimate a depth map for a single image",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args[0], args[1], cmd.OutOrStdout())
		},
	}
	f := root.Flags()
	f.StringVar(&opts.modelsDir, "models-dir", envOr("DEPTHD_MODELS_DIR", "~/models/depth"), "Directory to scan for *.onnx model files")
	f.StringVar(&opts.model, "model", envOr("DEPTHD_DEFAULT_MODEL", ""), "Model id (default model when empty)")
	f.StringVar(&opts.colormap, "colormap", envOr("DEPTHD_COLORMAP", ""), "Rendering palette: plasma or gray")
	f.BoolVar(&opts.invert, "invert", false, "Invert the depth scale before rendering")
	f.BoolVar(&opts.raw, "raw", false, "Also write the raw float32 buffer as <output>_raw.npy")
	f.BoolVar(&opts.share, "share", false, "Upload the result to the image host and print the URL")
	f.StringVar(&opts.ortLib, "ort-lib", envOr("DEPTHD_ORT_LIB", ""), "Path to the onnxruntime shared library")
	f.StringVar(&opts.remoteURL, "remote-url", envOr("DEPTHD_REMOTE_URL", ""), "Remote depth-inference server URL")
	f.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Overall pipeline timeout")
	f.StringVar(&opts.envFile, "env-file", ".env", "Dotenv file with pass-through credentials")
	return root
}

func run(ctx context.Context, opts *options, imagePath, outputPath string, stdout io.Writer) error {
	// Credentials for the remote backend / image host may live in a dotenv
	// file; a missing file is fine.
	_ = config.LoadEnvFile(opts.envFile)

	img, err := imageio.Open(imagePath)
	if err != nil {
		return err
	}

	palette, err := depthmap.ParsePalette(opts.colormap)
	if err != nil {
		return err
	}

	reg, err := registry.LoadDir(opts.modelsDir)
	if err != nil && opts.remoteURL == "" {
		return fmt.Errorf("load models: %w", err)
	}
	model := opts.model
	if model == "" {
		switch {
		case len(reg) > 0:
			model = reg[0].ID
		case opts.remoteURL != "":
			// the remote server applies its own default
			model = "default"
		default:
			return fmt.Errorf("no models found in %s", opts.modelsDir)
		}
	}
	engCfg := engine.EngineConfig{
		Registry:     reg,
		DefaultModel: model,
		ORTLibPath:   opts.ortLib,
	}
	if opts.remoteURL != "" {
		engCfg.Runtime = engine.NewRemoteRuntime(opts.remoteURL, os.Getenv("DEPTHD_HUB_TOKEN"), opts.timeout)
		engCfg.AllowUnlistedModels = true
	}
	eng := engine.NewWithConfig(engCfg)
	defer eng.Close()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	dm, err := eng.Infer(ctx, model, img)
	if err != nil {
		return err
	}
	rendered, err := depthmap.Render(dm, palette, opts.invert)
	if err != nil {
		return err
	}
	if err := imageio.SavePNG(outputPath, rendered); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "depth map saved to %s\n", outputPath)

	if opts.raw {
		rawPath := sidecarPath(outputPath)
		f, err := os.Create(rawPath)
		if err != nil {
			return fmt.Errorf("write raw sidecar: %w", err)
		}
		if err := depthmap.WriteNPY(f, dm); err != nil {
			f.Close()
			return fmt.Errorf("write raw sidecar: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write raw sidecar: %w", err)
		}
		fmt.Fprintf(stdout, "raw depth data saved to %s\n", rawPath)
	}

	if opts.share {
		png, err := os.ReadFile(outputPath)
		if err != nil {
			return err
		}
		client := imghost.New("", os.Getenv("IMG_API_KEY"), 0)
		up, err := client.Share(ctx, filepath.Base(outputPath), png)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "shared: %s\n", up.URL)
	}
	return nil
}

// sidecarPath derives the raw NPY path from the output path:
// out.png -> out_raw.npy
func sidecarPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + "_raw.npy"
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	opts := &options{}
	if err := buildRootCmd(opts).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
