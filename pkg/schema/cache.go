package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheFile is the on-disk envelope for a cached schema.
type cacheFile struct {
	Timestamp time.Time    `json:"timestamp"`
	SassRoot  string       `json:"sassRoot"`
	Hash      string       `json:"hash"`
	Schema    *TokenSchema `json:"schema"`
}

// CacheConfig configures a schema Cache.
type CacheConfig struct {
	// Dir holds cache files. Defaults to <user cache dir>/themeforge/schema.
	Dir string
	// MemoryEntries bounds the in-process layer (default 16).
	MemoryEntries int
	Logger        *slog.Logger
	// BuildFunc replaces Build; tests use it to count parses.
	BuildFunc func(Options) (*TokenSchema, error)
}

type memEntry struct {
	hash   string
	schema *TokenSchema
}

// Cache memoizes built schemas keyed by source root. Entries are valid only
// while the content fingerprint of the source artifacts is unchanged.
// Lookups never fail because of the cache itself: any unreadable or stale
// entry is a miss.
type Cache struct {
	dir    string
	logger *slog.Logger
	build  func(Options) (*TokenSchema, error)
	mem    *lru.Cache[string, memEntry]

	writes sync.WaitGroup
	mu     sync.Mutex
	stats  CacheStats
}

// CacheStats counts cache outcomes.
type CacheStats struct {
	MemoryHits int64 `json:"memoryHits"`
	DiskHits   int64 `json:"diskHits"`
	Misses     int64 `json:"misses"`
	Builds     int64 `json:"builds"`
	SaveErrors int64 `json:"saveErrors"`
}

// NewCache creates a cache. A nil config uses defaults.
func NewCache(cfg *CacheConfig) *Cache {
	if cfg == nil {
		cfg = &CacheConfig{}
	}
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultCacheDir()
	}
	n := cfg.MemoryEntries
	if n <= 0 {
		n = 16
	}
	mem, _ := lru.New[string, memEntry](n)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	build := cfg.BuildFunc
	if build == nil {
		build = Build
	}
	return &Cache{dir: dir, logger: logger, build: build, mem: mem}
}

// DefaultCacheDir returns the per-user schema cache directory.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "themeforge", "schema")
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns the cache file for a source root.
func (c *Cache) Path(opts Options) string {
	return filepath.Join(c.dir, "schema-"+cacheKey(opts.Resolved().SassRoot)+".json")
}

// Load returns the cached schema for opts if its fingerprint still matches.
func (c *Cache) Load(opts Options) (*TokenSchema, bool) {
	opts = opts.Resolved()
	return c.load(opts, Fingerprint(opts))
}

func (c *Cache) load(opts Options, hash string) (*TokenSchema, bool) {
	key := cacheKey(opts.SassRoot)

	if e, ok := c.mem.Get(key); ok && e.hash == hash {
		c.count(func(s *CacheStats) { s.MemoryHits++ })
		return e.schema, true
	}

	data, err := os.ReadFile(c.Path(opts))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("schema cache unreadable", "path", c.Path(opts), "error", err)
		}
		c.count(func(s *CacheStats) { s.Misses++ })
		return nil, false
	}

	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil || f.Schema == nil {
		c.logger.Warn("schema cache corrupt, ignoring", "path", c.Path(opts), "error", err)
		c.count(func(s *CacheStats) { s.Misses++ })
		return nil, false
	}
	if f.Hash != hash || f.SassRoot != opts.SassRoot {
		c.logger.Debug("schema cache stale", "root", opts.SassRoot)
		c.count(func(s *CacheStats) { s.Misses++ })
		return nil, false
	}

	f.Schema.reindex()
	c.mem.Add(key, memEntry{hash: hash, schema: f.Schema})
	c.count(func(s *CacheStats) { s.DiskHits++ })
	return f.Schema, true
}

// Save stores schema asynchronously. Write failures are logged and never
// surface to the caller; Wait blocks until pending writes finish.
func (c *Cache) Save(opts Options, schema *TokenSchema) {
	opts = opts.Resolved()
	c.save(opts, Fingerprint(opts), schema)
}

// save stores schema under hash, the fingerprint the schema was built from.
func (c *Cache) save(opts Options, hash string, schema *TokenSchema) {
	c.mem.Add(cacheKey(opts.SassRoot), memEntry{hash: hash, schema: schema})

	f := cacheFile{
		Timestamp: time.Now().UTC(),
		SassRoot:  opts.SassRoot,
		Hash:      hash,
		Schema:    schema,
	}
	path := c.Path(opts)

	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		if err := writeFileAtomic(path, f); err != nil {
			c.count(func(s *CacheStats) { s.SaveErrors++ })
			c.logger.Warn("schema cache write failed", "path", path, "error", err)
		}
	}()
}

// BuildWithCache returns a cached schema when valid, otherwise builds and
// saves one. The bool reports whether the result came from the cache.
// The fingerprint is taken before building, so an artifact edited during
// the build leaves a stale entry that the next call rebuilds.
func (c *Cache) BuildWithCache(opts Options) (*TokenSchema, bool, error) {
	opts = opts.Resolved()
	hash := Fingerprint(opts)
	if s, ok := c.load(opts, hash); ok {
		return s, true, nil
	}
	c.count(func(s *CacheStats) { s.Builds++ })
	s, err := c.build(opts)
	if err != nil {
		return nil, false, err
	}
	c.save(opts, hash, s)
	return s, false, nil
}

// Invalidate drops the memory and disk entries for a source root.
func (c *Cache) Invalidate(opts Options) error {
	opts = opts.Resolved()
	c.mem.Remove(cacheKey(opts.SassRoot))
	if err := os.Remove(c.Path(opts)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove schema cache: %w", err)
	}
	return nil
}

// Wait blocks until all pending background saves complete.
func (c *Cache) Wait() {
	c.writes.Wait()
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Cache) count(fn func(*CacheStats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

func writeFileAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".schema-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func cacheKey(root string) string {
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:8])
}

type hasher struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
}

func newHasher() *hasher { return &hasher{h: sha256.New()} }

func (h *hasher) write(s string) {
	h.h.Write([]byte(s))
	h.h.Write([]byte{0})
}

func (h *hasher) sum() string { return hex.EncodeToString(h.h.Sum(nil)) }
