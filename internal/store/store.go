// Package store keeps rendered depth-map results on disk so they can be
// downloaded or cleaned up after the request that produced them returns.
package store

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"depthd/internal/common/fsutil"
	"depthd/internal/depthmap"
	"depthd/internal/imageio"
)

// Result describes one stored estimation: the rendered PNG and, when the
// caller asked for it, the raw float32 buffer as an NPY sidecar.
type Result struct {
	FileID           string
	OriginalFilename string
	ImagePath        string
	RawPath          string // empty when no raw buffer was stored
	CreatedAt        time.Time
}

// Store is a directory of results keyed by KSUID file ids. All methods are
// safe for concurrent use.
type Store struct {
	dir string

	mu      sync.RWMutex
	results map[string]Result
}

// Open ensures dir exists and indexes any results already on disk, so
// downloads survive a daemon restart.
func Open(dir string) (*Store, error) {
	expanded, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(expanded); err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	s := &Store{dir: expanded, results: make(map[string]Result)}
	if err := s.reindex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

func (s *Store) imagePath(id string) string {
	return filepath.Join(s.dir, "output_"+id+".png")
}

func (s *Store) rawPath(id string) string {
	return filepath.Join(s.dir, "output_"+id+"_raw.npy")
}

// reindex rebuilds the in-memory index from output_<id>.png files on disk.
func (s *Store) reindex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "output_") || !strings.HasSuffix(name, ".png") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, "output_"), ".png")
		if id == "" || strings.HasSuffix(id, "_raw") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		res := Result{
			FileID:    id,
			ImagePath: s.imagePath(id),
			CreatedAt: info.ModTime(),
		}
		if fsutil.PathExists(s.rawPath(id)) {
			res.RawPath = s.rawPath(id)
		}
		s.results[id] = res
	}
	return nil
}

// Save writes the rendered image and, when raw is non-nil, its NPY sidecar,
// and returns the stored result under a fresh file id.
func (s *Store) Save(originalFilename string, img image.Image, raw *depthmap.DepthMap) (Result, error) {
	id := ksuid.New().String()
	res := Result{
		FileID:           id,
		OriginalFilename: originalFilename,
		ImagePath:        s.imagePath(id),
		CreatedAt:        time.Now(),
	}
	if err := imageio.SavePNG(res.ImagePath, img); err != nil {
		return Result{}, fmt.Errorf("store image: %w", err)
	}
	if raw != nil {
		f, err := os.Create(s.rawPath(id))
		if err != nil {
			_ = os.Remove(res.ImagePath)
			return Result{}, fmt.Errorf("store raw buffer: %w", err)
		}
		if err := depthmap.WriteNPY(f, raw); err != nil {
			_ = f.Close()
			_ = os.Remove(res.ImagePath)
			_ = os.Remove(s.rawPath(id))
			return Result{}, fmt.Errorf("store raw buffer: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(res.ImagePath)
			_ = os.Remove(s.rawPath(id))
			return Result{}, fmt.Errorf("store raw buffer: %w", err)
		}
		res.RawPath = s.rawPath(id)
	}
	s.mu.Lock()
	s.results[id] = res
	s.mu.Unlock()
	return res, nil
}

// Lookup returns the stored result for id, if any.
func (s *Store) Lookup(id string) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[id]
	return res, ok
}

// Cleanup removes the artifacts for id and reports how many files were
// deleted. Unknown ids delete nothing.
func (s *Store) Cleanup(id string) (int, error) {
	s.mu.Lock()
	res, ok := s.results[id]
	delete(s.results, id)
	s.mu.Unlock()
	if !ok {
		return 0, nil
	}
	removed := 0
	if err := os.Remove(res.ImagePath); err == nil {
		removed++
	} else if !os.IsNotExist(err) {
		return removed, err
	}
	if res.RawPath != "" {
		if err := os.Remove(res.RawPath); err == nil {
			removed++
		} else if !os.IsNotExist(err) {
			return removed, err
		}
	}
	return removed, nil
}

// Sweep removes every result older than maxAge and reports how many results
// were dropped. A non-positive maxAge sweeps nothing.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge)
	s.mu.RLock()
	stale := make([]string, 0)
	for id, res := range s.results {
		if res.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()
	swept := 0
	var firstErr error
	for _, id := range stale {
		if _, err := s.Cleanup(id); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		swept++
	}
	return swept, firstErr
}

// Len reports how many results are currently indexed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
