package engine

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"depthd/internal/depthmap"
	"depthd/pkg/types"
)

// createModelFile creates a file of approximately sizeMB megabytes and returns its path.
func createModelFile(t *testing.T, dir, name string, sizeMB int) string {
	t.Helper()
	if sizeMB <= 0 {
		sizeMB = 1
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	// write sizeMB megabytes (use 1MiB blocks)
	block := make([]byte, 1024*1024)
	for i := 0; i < sizeMB; i++ {
		if _, err := f.Write(block); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	return p
}

// fakeRuntime is a lightweight in-memory runtime used for tests.
type fakeRuntime struct {
	mu      sync.Mutex
	loadErr error
	// failFor overrides loadErr per model id.
	failFor map[string]error
	runErr  error
	outW    int
	outH    int
	loads   []string
	closed  int
}

func (f *fakeRuntime) Load(mdl types.Model) (Session, error) {
	f.mu.Lock()
	f.loads = append(f.loads, mdl.ID)
	f.mu.Unlock()
	if err, ok := f.failFor[mdl.ID]; ok {
		return nil, err
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return &fakeSession{f: f}, nil
}

func (f *fakeRuntime) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeSession struct{ f *fakeRuntime }

func (s *fakeSession) Run(ctx context.Context, img image.Image) (*depthmap.DepthMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.f.runErr != nil {
		return nil, s.f.runErr
	}
	w, h := s.f.outW, s.f.outH
	if w <= 0 || h <= 0 {
		w, h = 4, 4
	}
	data := make([]float32, w*h)
	for i := range data {
		data[i] = float32(i)
	}
	return depthmap.FromData(w, h, data)
}

func (s *fakeSession) Close() error {
	s.f.mu.Lock()
	s.f.closed++
	s.f.mu.Unlock()
	return nil
}

// testImage returns a small RGBA image with a deterministic gradient.
func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 13), G: uint8(y * 29), B: 128, A: 255})
		}
	}
	return img
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
