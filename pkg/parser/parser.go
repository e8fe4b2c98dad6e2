package parser

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/gnana997/themeforge/pkg/util"
)

// ParserManager owns one lazily created parser pool per grammar.
//
// Memory Management:
//   - ParserManager owns the pools and must be closed via Close()
//   - Callers own returned Trees and must call tree.Close()
//
// Thread Safety:
//   - Safe for concurrent use; parses of the same grammar run in parallel
//     up to the pool size
//
// Example:
//
//	manager := NewParserManager(logger)
//	defer manager.Close()
//
//	tree, err := manager.Parse([]byte(":root { --brand: #2563eb; }"), LanguageCSS)
//	if err != nil {
//	    return err
//	}
//	defer tree.Close()
type ParserManager struct {
	pools    map[Language]*parserPool
	poolSize int
	mutex    sync.RWMutex
	logger   *slog.Logger

	stats struct {
		parsesCalled int
		parseErrors  int
	}
}

// NewParserManager creates a manager with CPU-sized pools.
func NewParserManager(logger *slog.Logger) *ParserManager {
	return NewParserManagerWithSize(logger, 0)
}

// NewParserManagerWithSize creates a manager whose pools hold up to size
// parsers each. size <= 0 selects the CPU-based default.
func NewParserManagerWithSize(logger *slog.Logger, size int) *ParserManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParserManager{
		pools:    make(map[Language]*parserPool),
		poolSize: util.PoolSize(size),
		logger:   logger,
	}
}

// Parse parses source with the grammar for lang. A tree is returned even
// when the source has syntax errors; tree-sitter recovers and the partial
// tree is still useful for evidence scanning.
func (pm *ParserManager) Parse(source []byte, lang Language) (*ts.Tree, error) {
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("cannot parse unknown language")
	}

	pm.mutex.Lock()
	pm.stats.parsesCalled++
	pm.mutex.Unlock()

	pool, err := pm.getOrCreatePool(lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool for %s: %w", lang, err)
	}

	parser, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire parser: %w", err)
	}
	tree := parser.Parse(source, nil)
	pool.release(parser)

	if tree == nil {
		return nil, fmt.Errorf("%s parser returned nil tree", lang)
	}

	if tree.RootNode().HasError() {
		pm.mutex.Lock()
		pm.stats.parseErrors++
		pm.mutex.Unlock()
		pm.logger.Debug("parse tree contains errors", "language", lang.String(), "bytes", len(source))
	}

	return tree, nil
}

// ParseFile detects the grammar from filePath and parses source.
func (pm *ParserManager) ParseFile(source []byte, filePath string) (*ts.Tree, error) {
	lang := DetectLanguage(filePath)
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("unsupported file extension: %s", filePath)
	}
	return pm.Parse(source, lang)
}

// Close releases all pools. The manager cannot be used afterwards.
func (pm *ParserManager) Close() error {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	pm.logger.Debug("closing ParserManager",
		"parses_called", pm.stats.parsesCalled,
		"parse_errors", pm.stats.parseErrors)

	for _, pool := range pm.pools {
		if pool != nil {
			pool.close()
		}
	}
	pm.pools = make(map[Language]*parserPool)
	return nil
}

func (pm *ParserManager) getOrCreatePool(lang Language) (*parserPool, error) {
	pm.mutex.RLock()
	pool, exists := pm.pools[lang]
	pm.mutex.RUnlock()
	if exists {
		return pool, nil
	}

	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	if pool, exists = pm.pools[lang]; exists {
		return pool, nil
	}

	langPtr, err := pm.GetLanguagePointer(lang)
	if err != nil {
		return nil, err
	}
	pool = newParserPool(lang, langPtr, pm.poolSize, pm.logger)
	pm.pools[lang] = pool

	pm.logger.Debug("created new parser pool", "language", lang.String(), "maxSize", pm.poolSize)
	return pool, nil
}

// GetLanguagePointer returns the tree-sitter grammar for lang.
func (pm *ParserManager) GetLanguagePointer(lang Language) (unsafe.Pointer, error) {
	switch lang {
	case LanguageCSS:
		return ts_css.Language(), nil
	case LanguageJavaScript:
		return ts_javascript.Language(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang.String())
	}
}

// GetStats returns parser usage statistics.
func (pm *ParserManager) GetStats() ParserStats {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	total := 0
	for _, pool := range pm.pools {
		total += pool.getCreatedCount()
	}
	return ParserStats{
		ParsersCreated: total,
		ParsesCalled:   pm.stats.parsesCalled,
		ParseErrors:    pm.stats.parseErrors,
	}
}

// ParserStats contains parser usage statistics.
type ParserStats struct {
	ParsersCreated int `json:"parsersCreated"`
	ParsesCalled   int `json:"parsesCalled"`
	// ParseErrors counts trees that needed error recovery.
	ParseErrors int `json:"parseErrors"`
}
