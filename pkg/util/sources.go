package util

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// ErrSourceLimit is returned when a SourceSet already holds its maximum
// number of files.
var ErrSourceLimit = errors.New("source set limit reached")

// SourceSet reads SCSS and stylesheet sources through read-only memory
// maps. A file is mapped on first Read and stays mapped until Close. Read
// always returns a private copy, so results outlive the set.
//
// When mmap fails the file is read into memory instead and counted as a
// fallback. Safe for concurrent use.
type SourceSet struct {
	maxFiles int
	logger   *slog.Logger

	mu    sync.Mutex
	files map[string]*source
	stats SourceStats
}

type source struct {
	file *os.File
	// data is the mapping, or the heap copy for fallbacks. Nil for empty files.
	data     []byte
	mapped   mmap.MMap
	fallback bool
}

// SourceStats counts SourceSet activity.
type SourceStats struct {
	Files       int   `json:"files"`
	Loaded      int64 `json:"loaded"`
	Hits        int64 `json:"hits"`
	Fallbacks   int64 `json:"fallbacks"`
	MappedBytes int64 `json:"mappedBytes"`
}

// NewSourceSet returns an empty set. maxFiles <= 0 means unlimited.
func NewSourceSet(maxFiles int, logger *slog.Logger) *SourceSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceSet{
		maxFiles: maxFiles,
		logger:   logger,
		files:    make(map[string]*source),
	}
}

// Read returns a copy of path's contents.
func (s *SourceSet) Read(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.files[path]
	if ok {
		s.stats.Hits++
	} else {
		if s.maxFiles > 0 && len(s.files) >= s.maxFiles {
			return nil, fmt.Errorf("%w: %d files", ErrSourceLimit, s.maxFiles)
		}
		var err error
		if src, err = s.load(path); err != nil {
			return nil, err
		}
		s.files[path] = src
		s.stats.Loaded++
	}

	out := make([]byte, len(src.data))
	copy(out, src.data)
	return out, nil
}

// load must be called with mu held.
func (s *SourceSet) load(path string) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if st.Size() == 0 {
		return &source{file: f}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		s.logger.Warn("mmap failed, reading source instead", "path", path, "error", err)
		data, readErr := os.ReadFile(path)
		f.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read source %q: %w", path, errors.Join(err, readErr))
		}
		s.stats.Fallbacks++
		return &source{data: data, fallback: true}, nil
	}
	s.stats.MappedBytes += int64(len(m))
	return &source{file: f, data: m, mapped: m}, nil
}

// Len reports how many files are held.
func (s *SourceSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *SourceSet) Stats() SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Files = len(s.files)
	return st
}

// Close unmaps every file. The set is empty and reusable afterwards.
func (s *SourceSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path, src := range s.files {
		if src.mapped != nil {
			if err := src.mapped.Unmap(); err != nil {
				errs = append(errs, fmt.Errorf("unmap %q: %w", path, err))
			}
		}
		if src.file != nil {
			if err := src.file.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %q: %w", path, err))
			}
		}
	}
	clear(s.files)
	s.stats.MappedBytes = 0
	return errors.Join(errs...)
}
