package shader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customFragment = `
// tint the base color
@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4f {
    return frame.color * vec4f(1.0, 0.5, 0.5, 1.0);
}
`

func TestNewLibraryRegistersBuiltins(t *testing.T) {
	l := NewLibrary()
	for _, path := range []string{BuiltinUnlit, BuiltinBlit, BuiltinBlend, BuiltinDownsample, BuiltinTonemap} {
		s, ok := l.Lookup(path)
		require.True(t, ok, path)
		assert.Equal(t, "vs_main", s.EntryPoint(StageVertex), path)
		assert.Equal(t, "fs_main", s.EntryPoint(StageFragment), path)
		assert.Equal(t, StageFragment, s.Stage())
	}
	assert.Equal(t, 5, l.Len())
}

func TestRegisterDeduplicatesIdenticalContent(t *testing.T) {
	l := NewLibrary()
	a, err := l.Register("materials/tint.wgsl", customFragment)
	require.NoError(t, err)
	b, err := l.Register("materials/tint.wgsl", customFragment)
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := l.Register("materials/tint.wgsl", customFragment+"\n")
	require.NoError(t, err)
	assert.NotEqual(t, a.Key(), c.Key(), "changed content gets a new key")
	assert.Equal(t, 7, l.Len())

	got, ok := l.Lookup(a.Key())
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestRegisterReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(customFragment), 0o644))

	s, err := NewLibrary().Register(path, "")
	require.NoError(t, err)
	assert.Equal(t, customFragment, s.Source())
	assert.Len(t, s.Hash(), 64)

	_, err = NewLibrary().Register(filepath.Join(t.TempDir(), "missing.wgsl"), "")
	assert.Error(t, err)
}

func TestRegisterRejectsSourceWithoutEntryPoint(t *testing.T) {
	_, err := NewLibrary().Register("broken.wgsl", "fn helper() -> f32 { return 1.0; }")
	assert.Error(t, err)
}

func TestParseBindings(t *testing.T) {
	s, ok := NewLibrary().Lookup(BuiltinBlend)
	require.True(t, ok)
	bindings := s.Bindings()
	require.Len(t, bindings, 4)
	assert.Equal(t, Binding{Group: 0, Binding: 0, Name: "src_tex", Kind: BindingTexture, Type: "texture_2d<f32>"}, bindings[0])
	assert.Equal(t, BindingSampler, bindings[1].Kind)
	assert.Equal(t, BindingUniform, bindings[2].Kind)
	assert.Equal(t, "accum_tex", bindings[3].Name)
}

func TestStripCommentsIgnoresCommentedEntryPoints(t *testing.T) {
	src := "/* @vertex fn hidden() {} /* nested */ */\n// @fragment fn also_hidden()\n@fragment fn visible() {}"
	assert.Equal(t, "", parseEntryPoint(src, StageVertex))
	assert.Equal(t, "visible", parseEntryPoint(src, StageFragment))
}
