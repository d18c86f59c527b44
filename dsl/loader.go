package dsl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrModuleNotFound is returned when an import path resolves to no readable file.
var ErrModuleNotFound = errors.New("module not found")

// Module is an imported scaf file.
type Module struct {
	Path    string
	Symbols *Symbols
}

// Loader loads imported modules. importer is the path of the importing file;
// importPath is the path as written in the import declaration.
type Loader interface {
	Load(importer, importPath string) (*Module, error)
}

// FileLoader loads modules from the filesystem and caches them by absolute path.
type FileLoader struct {
	mu    sync.RWMutex
	cache map[string]*Module
}

var _ Loader = (*FileLoader)(nil)

// NewFileLoader creates an empty file loader.
func NewFileLoader() *FileLoader {
	return &FileLoader{cache: make(map[string]*Module)}
}

// Resolve turns an import path into a file path relative to the importing
// file's directory. Paths without an extension try "<path>.scaf" and then a
// unique dialect-specific file such as "<path>.cypher.scaf".
func (l *FileLoader) Resolve(importer, importPath string) string {
	resolved := importPath
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(importer), importPath)
	}

	resolved = filepath.Clean(resolved)

	if _, err := os.Stat(resolved); err == nil || strings.HasSuffix(resolved, ".scaf") {
		return resolved
	}

	withScaf := resolved + ".scaf"
	if _, err := os.Stat(withScaf); err == nil {
		return withScaf
	}

	matches, err := filepath.Glob(resolved + ".*.scaf")
	if err == nil && len(matches) == 1 {
		return matches[0]
	}

	return withScaf
}

// Load implements Loader.
func (l *FileLoader) Load(importer, importPath string) (*Module, error) {
	path := l.Resolve(importer, importPath)

	l.mu.RLock()
	mod, ok := l.cache[path]
	l.mu.RUnlock()

	if ok {
		return mod, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, path)
		}

		return nil, fmt.Errorf("read module %s: %w", path, err)
	}

	mod = LoadModule(path, data)

	l.mu.Lock()
	l.cache[path] = mod
	l.mu.Unlock()

	return mod, nil
}

// Invalidate drops a cached module, e.g. after the file changed on disk.
func (l *FileLoader) Invalidate(path string) {
	l.mu.Lock()
	delete(l.cache, filepath.Clean(path))
	l.mu.Unlock()
}

// LoadModule builds a module from source. Parse errors are tolerated: the
// symbols come from whatever could be recovered.
func LoadModule(path string, data []byte) *Module {
	suite, _ := Parse(data)

	return &Module{
		Path:    path,
		Symbols: BuildSymbols(suite, Tokenize(string(data))),
	}
}
