package shader

import (
	"fmt"
	"os"
	"sync"
)

// Library deduplicates shaders by path and content hash.
type Library struct {
	mu     *sync.Mutex
	byKey  map[string]Shader
	byPath map[string]Shader
}

// NewLibrary creates a library with the built-in shaders registered.
//
// Returns:
//   - *Library: the new library
func NewLibrary() *Library {
	l := &Library{
		mu:     &sync.Mutex{},
		byKey:  make(map[string]Shader),
		byPath: make(map[string]Shader),
	}
	for path, src := range builtinSources {
		l.register(path, src)
	}
	return l
}

// Register adds a shader, or returns the existing one when the same path was registered with
// identical content. An empty source is read from path on disk.
//
// Parameters:
//   - path: the shader path, also the cache key prefix
//   - source: the WGSL source, or "" to load path
//
// Returns:
//   - Shader: the registered shader
//   - error: an error if the source could not be read or has no entry point
func (l *Library) Register(path, source string) (Shader, error) {
	if source == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("shader: failed to read %q: %w", path, err)
		}
		source = string(data)
	}
	s := l.register(path, source)
	if s.EntryPoint(StageFragment) == "" && s.EntryPoint(StageVertex) == "" && s.EntryPoint(StageCompute) == "" {
		return nil, fmt.Errorf("shader: %q has no entry point", path)
	}
	return s, nil
}

func (l *Library) register(path, source string) Shader {
	candidate := newShader(path, source)
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.byKey[candidate.key]; ok {
		return existing
	}
	l.byKey[candidate.key] = candidate
	l.byPath[path] = candidate
	return candidate
}

// Lookup returns the shader registered under key.
//
// Parameters:
//   - key: a shader key, or the path of a built-in shader
//
// Returns:
//   - Shader: the shader
//   - bool: false if no shader has that key
func (l *Library) Lookup(key string) (Shader, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.byKey[key]; ok {
		return s, true
	}
	s, ok := l.byPath[key]
	return s, ok
}

// Len returns the number of distinct shaders.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}
