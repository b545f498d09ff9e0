package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"depthd/pkg/types"
)

const (
	// DefaultInputSize is assumed when a model ships no metadata sidecar.
	DefaultInputSize = 384

	defaultInputName  = "input"
	defaultOutputName = "output"
)

// sidecar is the optional JSON metadata file stored next to a model,
// named <model-id>.json.
type sidecar struct {
	Name       string `json:"name"`
	Family     string `json:"family"`
	InputSize  int    `json:"input_size"`
	InputName  string `json:"input_name"`
	OutputName string `json:"output_name"`
}

// ONNXScanner discovers *.onnx model files in a directory.
type ONNXScanner struct{}

func NewONNXScanner() *ONNXScanner { return &ONNXScanner{} }

// Scan builds a registry from a models directory. ID is the filename without
// extension; Path is the absolute file path. A JSON sidecar may override the
// display name, family and tensor metadata; missing fields fall back to
// MiDaS-family defaults.
func (s *ONNXScanner) Scan(dir string) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() { continue }
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".onnx") { continue }
		id := strings.TrimSuffix(name, filepath.Ext(name))
		mdl := types.Model{
			ID:         id,
			Name:       id,
			Path:       filepath.Join(abs, name),
			InputSize:  DefaultInputSize,
			InputName:  defaultInputName,
			OutputName: defaultOutputName,
		}
		if err := applySidecar(&mdl, filepath.Join(abs, id+".json")); err != nil {
			return nil, err
		}
		models = append(models, mdl)
	}
	return models, nil
}

// LoadDir scans a directory with the default scanner.
func LoadDir(dir string) ([]types.Model, error) {
	return NewONNXScanner().Scan(dir)
}

func applySidecar(mdl *types.Model, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read sidecar %s: %w", path, err)
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("parse sidecar %s: %w", path, err)
	}
	if sc.Name != "" {
		mdl.Name = sc.Name
	}
	if sc.Family != "" {
		mdl.Family = sc.Family
	}
	if sc.InputSize > 0 {
		mdl.InputSize = sc.InputSize
	}
	if sc.InputName != "" {
		mdl.InputName = sc.InputName
	}
	if sc.OutputName != "" {
		mdl.OutputName = sc.OutputName
	}
	return nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" { return path, nil }
	if path[0] != '~' { return path, nil }
	home, err := os.UserHomeDir()
	if err != nil { return "", fmt.Errorf("home dir: %w", err) }
	if path == "~" { return home, nil }
	// handle cases like ~/models/depth
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
