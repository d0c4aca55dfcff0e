// Package shader holds the per-window shader library. Shaders are deduplicated by path and
// content hash, so identical snippets used by many materials compile once.
package shader

import (
	"crypto/sha256"
	"encoding/hex"
)

// Stage is a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

// Shader is a registered WGSL module.
type Shader interface {
	// Key is the library key: the path followed by a short content hash.
	//
	// Returns:
	//   - string: the unique key
	Key() string

	// Path returns the path the shader was registered under.
	//
	// Returns:
	//   - string: the source path
	Path() string

	// Source returns the WGSL source.
	//
	// Returns:
	//   - string: the source code
	Source() string

	// Hash returns the hex SHA-256 of the source.
	//
	// Returns:
	//   - string: the content hash
	Hash() string

	// Stage returns the primary stage: fragment when the module has a fragment entry point,
	// otherwise vertex or compute.
	//
	// Returns:
	//   - Stage: the primary stage
	Stage() Stage

	// EntryPoint returns the entry point of stage s, or "" if the module has none.
	//
	// Parameters:
	//   - s: the stage to look up
	//
	// Returns:
	//   - string: the entry point function name
	EntryPoint(s Stage) string

	// Bindings returns the resource declarations sorted by group and binding.
	//
	// Returns:
	//   - []Binding: the declared bindings
	Bindings() []Binding
}

type shader struct {
	key      string
	path     string
	source   string
	hash     string
	entries  map[Stage]string
	bindings []Binding
}

var _ Shader = &shader{}

func newShader(path, source string) *shader {
	sum := sha256.Sum256([]byte(source))
	hash := hex.EncodeToString(sum[:])
	s := &shader{
		key:      path + "#" + hash[:12],
		path:     path,
		source:   source,
		hash:     hash,
		entries:  make(map[Stage]string, 3),
		bindings: parseBindings(source),
	}
	for _, st := range []Stage{StageVertex, StageFragment, StageCompute} {
		if e := parseEntryPoint(source, st); e != "" {
			s.entries[st] = e
		}
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Path() string {
	return s.path
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Hash() string {
	return s.hash
}

func (s *shader) Stage() Stage {
	switch {
	case s.entries[StageFragment] != "":
		return StageFragment
	case s.entries[StageCompute] != "":
		return StageCompute
	}
	return StageVertex
}

func (s *shader) EntryPoint(st Stage) string {
	return s.entries[st]
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}
