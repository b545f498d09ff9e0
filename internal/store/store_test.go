package store

import (
	"image"
	"image/color"
	"os"
	"testing"
	"time"

	"depthd/internal/depthmap"
)

func testImage(t *testing.T) image.Image {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 60), B: 0, A: 255})
		}
	}
	return img
}

func testDepth(t *testing.T) *depthmap.DepthMap {
	t.Helper()
	m, err := depthmap.New(4, 4)
	if err != nil { t.Fatalf("new: %v", err) }
	for i := range m.Data { m.Data[i] = float32(i) }
	return m
}

func TestSaveLookupCleanup(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil { t.Fatalf("open: %v", err) }
	res, err := s.Save("room.jpg", testImage(t), testDepth(t))
	if err != nil { t.Fatalf("save: %v", err) }
	if res.FileID == "" { t.Fatalf("empty file id") }
	if res.OriginalFilename != "room.jpg" { t.Fatalf("original=%q", res.OriginalFilename) }
	if res.RawPath == "" { t.Fatalf("expected raw sidecar path") }
	if _, err := os.Stat(res.ImagePath); err != nil { t.Fatalf("image not on disk: %v", err) }
	if _, err := os.Stat(res.RawPath); err != nil { t.Fatalf("raw not on disk: %v", err) }

	got, ok := s.Lookup(res.FileID)
	if !ok || got.ImagePath != res.ImagePath { t.Fatalf("lookup: ok=%v got=%+v", ok, got) }

	removed, err := s.Cleanup(res.FileID)
	if err != nil { t.Fatalf("cleanup: %v", err) }
	if removed != 2 { t.Fatalf("removed=%d, want 2", removed) }
	if _, ok := s.Lookup(res.FileID); ok { t.Fatalf("result still indexed after cleanup") }
	if _, err := os.Stat(res.ImagePath); !os.IsNotExist(err) { t.Fatalf("image still on disk") }
}

func TestSaveWithoutRaw(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil { t.Fatalf("open: %v", err) }
	res, err := s.Save("a.png", testImage(t), nil)
	if err != nil { t.Fatalf("save: %v", err) }
	if res.RawPath != "" { t.Fatalf("unexpected raw path %q", res.RawPath) }
	removed, err := s.Cleanup(res.FileID)
	if err != nil { t.Fatalf("cleanup: %v", err) }
	if removed != 1 { t.Fatalf("removed=%d, want 1", removed) }
}

func TestCleanupUnknownID(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil { t.Fatalf("open: %v", err) }
	removed, err := s.Cleanup("nope")
	if err != nil { t.Fatalf("cleanup: %v", err) }
	if removed != 0 { t.Fatalf("removed=%d, want 0", removed) }
}

func TestReindexOnOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil { t.Fatalf("open: %v", err) }
	res, err := s.Save("b.png", testImage(t), testDepth(t))
	if err != nil { t.Fatalf("save: %v", err) }

	reopened, err := Open(dir)
	if err != nil { t.Fatalf("reopen: %v", err) }
	got, ok := reopened.Lookup(res.FileID)
	if !ok { t.Fatalf("result lost across reopen") }
	if got.RawPath == "" { t.Fatalf("raw sidecar not reindexed") }
}

func TestSweepRemovesOnlyStale(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil { t.Fatalf("open: %v", err) }
	old, err := s.Save("old.png", testImage(t), nil)
	if err != nil { t.Fatalf("save: %v", err) }
	fresh, err := s.Save("fresh.png", testImage(t), nil)
	if err != nil { t.Fatalf("save: %v", err) }

	s.mu.Lock()
	r := s.results[old.FileID]
	r.CreatedAt = time.Now().Add(-48 * time.Hour)
	s.results[old.FileID] = r
	s.mu.Unlock()

	swept, err := s.Sweep(24 * time.Hour)
	if err != nil { t.Fatalf("sweep: %v", err) }
	if swept != 1 { t.Fatalf("swept=%d, want 1", swept) }
	if _, ok := s.Lookup(old.FileID); ok { t.Fatalf("stale result survived sweep") }
	if _, ok := s.Lookup(fresh.FileID); !ok { t.Fatalf("fresh result swept") }
}

func TestSweepDisabled(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil { t.Fatalf("open: %v", err) }
	if _, err := s.Save("c.png", testImage(t), nil); err != nil { t.Fatalf("save: %v", err) }
	swept, err := s.Sweep(0)
	if err != nil { t.Fatalf("sweep: %v", err) }
	if swept != 0 || s.Len() != 1 { t.Fatalf("swept=%d len=%d", swept, s.Len()) }
}
