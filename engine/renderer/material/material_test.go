package material

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redFragment = `
@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4f {
    return vec4f(1.0, 0.0, 0.0, 1.0);
}
`

const invertPass = `
@fragment
fn fs_main(in: FullscreenOut) -> @location(0) vec4f {
    let c = textureSample(src_tex, src_samp, in.uv);
    return vec4f(vec3f(1.0) - c.rgb, c.a);
}
`

func TestPrepareBuiltinMaterial(t *testing.T) {
	lib := shader.NewLibrary()
	m := graph.NewMaterial(graph.MaterialPrincipled)
	m.BaseColor = common.Color{R: 0.5, G: 0.5, B: 0.5, A: 1}
	m.Opacity = 0.5
	m.Cull = graph.CullNone

	s, ok := Prepare(lib, m)
	require.True(t, ok)
	assert.Equal(t, shader.BuiltinUnlit, m.ShaderKey)
	assert.Empty(t, s.ShaderKey)
	assert.InDelta(t, 0.5, s.Color.A, 1e-6)
	assert.True(t, s.Transparent)
	assert.Equal(t, rhi.CullNone, s.CullMode)

	s, ok = Prepare(lib, nil)
	assert.True(t, ok)
	assert.Equal(t, Default, s)
}

func TestPrepareCustomMaterialDeduplicates(t *testing.T) {
	lib := shader.NewLibrary()
	before := lib.Len()

	a := graph.NewMaterial(graph.MaterialCustom)
	a.ShaderPath, a.ShaderSource = "materials/red.wgsl", redFragment
	b := graph.NewMaterial(graph.MaterialCustom)
	b.ShaderPath, b.ShaderSource = "materials/red.wgsl", redFragment

	sa, ok := Prepare(lib, a)
	require.True(t, ok)
	sb, ok := Prepare(lib, b)
	require.True(t, ok)
	assert.Equal(t, sa.ShaderKey, sb.ShaderKey)
	assert.Equal(t, before+1, lib.Len())
	assert.Equal(t, redFragment, sa.ShaderSource)
}

func TestPrepareCustomMaterialFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "red.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(redFragment), 0o644))

	m := graph.NewMaterial(graph.MaterialCustom)
	m.ShaderPath = path
	s, ok := Prepare(shader.NewLibrary(), m)
	require.True(t, ok)
	assert.NotEmpty(t, s.ShaderKey)
}

func TestPrepareInvalidMaterialWarnsOnce(t *testing.T) {
	common.ResetWarnings()
	t.Cleanup(common.ResetWarnings)

	m := graph.NewMaterial(graph.MaterialCustom)
	m.ShaderPath, m.ShaderSource = "materials/broken.wgsl", "fn helper() {}"
	_, ok := Prepare(shader.NewLibrary(), m)
	assert.False(t, ok)
	assert.Empty(t, m.ShaderKey)
	assert.False(t, common.WarnOnce("material.shader.materials/broken.wgsl", "again"), "the warning was already emitted")
}

func TestPrepareEffectSkipsBadPasses(t *testing.T) {
	common.ResetWarnings()
	t.Cleanup(common.ResetWarnings)
	lib := shader.NewLibrary()

	e := graph.NewEffect()
	e.Name = "grade"
	e.Passes = []graph.EffectPass{
		{ShaderPath: "effects/invert.wgsl", ShaderSource: invertPass, Uniforms: []float32{1}},
		{ShaderKey: "effects/missing.wgsl"},
		{ShaderKey: shader.BuiltinBlit},
		{ShaderSource: invertPass, Uniforms: make([]float32, MaxEffectUniforms+1)},
	}
	passes := PrepareEffect(lib, e)
	require.Len(t, passes, 2)
	assert.Equal(t, e.Passes[0].ShaderKey, passes[0].ShaderKey)
	assert.Equal(t, invertPass, passes[0].Source)
	assert.Equal(t, []float32{1}, passes[0].Uniforms)
	assert.Equal(t, shader.BuiltinBlit, passes[1].ShaderKey)

	assert.Nil(t, PrepareEffect(lib, nil))
}
