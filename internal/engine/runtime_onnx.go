//go:build onnx

package engine

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"depthd/internal/depthmap"
	"depthd/internal/imageio"
	"depthd/pkg/types"
)

// onnxBuilt indicates this binary was compiled with in-process ONNX support.
var onnxBuilt = true

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initEnvironment configures the onnxruntime shared library once per process.
// The environment stays alive until exit; sessions come and go independently.
func initEnvironment(libPath string) error {
	ortInitOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// onnxRuntime loads models as in-process onnxruntime sessions.
type onnxRuntime struct {
	libPath string
}

// NewONNXRuntime returns the in-process runtime. libPath optionally points at
// the onnxruntime shared library; empty uses the platform default lookup.
func NewONNXRuntime(libPath string) Runtime {
	return &onnxRuntime{libPath: libPath}
}

func (r *onnxRuntime) Load(mdl types.Model) (Session, error) {
	if err := initEnvironment(r.libPath); err != nil {
		return nil, ErrModelUnavailable(fmt.Sprintf("onnxruntime init: %v", err))
	}
	size := mdl.InputSize
	if size <= 0 {
		return nil, fmt.Errorf("model %s has no input size", mdl.ID)
	}
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	// MiDaS-family exports emit a (1, H, W) depth plane
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(size), int64(size)))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(mdl.Path,
		[]string{mdl.InputName}, []string{mdl.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, ErrModelUnavailable(fmt.Sprintf("load model %s: %v", mdl.ID, err))
	}
	return &onnxSession{
		size:         size,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// onnxSession owns the loaded model and its preallocated I/O tensors.
type onnxSession struct {
	size         int
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func (s *onnxSession) Run(ctx context.Context, img image.Image) (*depthmap.DepthMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tensor, err := imageio.Preprocess(img, s.size)
	if err != nil {
		return nil, ErrInvalidImage(err.Error())
	}
	copy(s.inputTensor.GetData(), tensor)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	out := s.outputTensor.GetData()
	data := make([]float32, len(out))
	copy(data, out)
	return depthmap.FromData(s.size, s.size, data)
}

func (s *onnxSession) Close() error {
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	return nil
}
