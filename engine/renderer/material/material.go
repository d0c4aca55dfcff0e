// Package material turns backend materials and effects into draw and pass settings, resolving
// their shaders through the shader library.
package material

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
)

// MaxEffectUniforms is the number of scalars an effect pass can pass to its shader (array<vec4f, 4>).
const MaxEffectUniforms = 16

// Settings are the per-draw values derived from a material.
type Settings struct {
	// ShaderKey is the library key of the fragment shader, or "" for the built-in unlit shader.
	ShaderKey string
	// ShaderSource is the custom fragment snippet without the model prelude.
	ShaderSource string
	Color        common.Color
	// BaseColorMap is the image to sample, or the zero Handle.
	BaseColorMap graph.Handle
	CullMode     rhi.CullMode
	Transparent  bool
}

// Default is used for models without a material.
var Default = Settings{Color: common.Color{R: 1, G: 1, B: 1, A: 1}}

// Prepare resolves the material's shader and derives its draw settings. Custom materials register
// their snippet with the library; an invalid snippet warns once and the draw is skipped.
//
// Parameters:
//   - lib: the shader library
//   - m: the material
//
// Returns:
//   - Settings: the draw settings
//   - bool: false if the material cannot be drawn
func Prepare(lib *shader.Library, m *graph.Material) (Settings, bool) {
	if m == nil {
		return Default, true
	}
	s := Settings{
		BaseColorMap: m.BaseColorMap,
		CullMode:     cullMode(m.Cull),
		Transparent:  m.IsTransparent(),
	}
	s.Color = m.BaseColor
	s.Color.A *= common.Clamp(m.Opacity, 0, 1)

	if m.MaterialKind != graph.MaterialCustom {
		m.ShaderKey = shader.BuiltinUnlit
		return s, true
	}
	sh, err := registerSnippet(lib, m.ShaderPath, m.ShaderSource, shader.ModelPrelude)
	if err != nil {
		common.WarnOnce("material.shader."+m.ShaderPath, "skipping draws of material with an invalid shader", "path", m.ShaderPath, "error", err)
		m.ShaderKey = ""
		return Settings{}, false
	}
	m.ShaderKey = sh.Key()
	s.ShaderKey = sh.Key()
	s.ShaderSource = m.ShaderSource
	return s, true
}

// PrepareEffect resolves every pass of an effect. A pass with a missing shader or too many
// uniforms warns once and is left out; an effect with no valid pass yields no passes.
//
// Parameters:
//   - lib: the shader library
//   - e: the effect
//
// Returns:
//   - []rhi.EffectPassDesc: the passes to run, in order
func PrepareEffect(lib *shader.Library, e *graph.Effect) []rhi.EffectPassDesc {
	if e == nil {
		return nil
	}
	passes := make([]rhi.EffectPassDesc, 0, len(e.Passes))
	for i := range e.Passes {
		p := &e.Passes[i]
		desc, err := preparePass(lib, p)
		if err != nil {
			key := fmt.Sprintf("material.effect.%s.%d", e.Name, i)
			common.WarnOnce(key, "skipping effect pass", "effect", e.Name, "pass", i, "error", err)
			continue
		}
		passes = append(passes, desc)
	}
	return passes
}

func preparePass(lib *shader.Library, p *graph.EffectPass) (rhi.EffectPassDesc, error) {
	if len(p.Uniforms) > MaxEffectUniforms {
		return rhi.EffectPassDesc{}, fmt.Errorf("material: %d uniforms exceed the limit of %d", len(p.Uniforms), MaxEffectUniforms)
	}
	if p.ShaderSource == "" && p.ShaderPath == "" {
		if p.ShaderKey == "" {
			return rhi.EffectPassDesc{}, fmt.Errorf("material: pass has no shader")
		}
		if _, ok := lib.Lookup(p.ShaderKey); !ok {
			return rhi.EffectPassDesc{}, fmt.Errorf("material: shader %q is not registered", p.ShaderKey)
		}
		return rhi.EffectPassDesc{ShaderKey: p.ShaderKey, Uniforms: p.Uniforms}, nil
	}
	sh, err := registerSnippet(lib, p.ShaderPath, p.ShaderSource, shader.FullscreenPrelude)
	if err != nil {
		return rhi.EffectPassDesc{}, err
	}
	p.ShaderKey = sh.Key()
	return rhi.EffectPassDesc{ShaderKey: sh.Key(), Source: p.ShaderSource, Uniforms: p.Uniforms}, nil
}

// registerSnippet registers prelude+source under path. An empty source is read from path.
func registerSnippet(lib *shader.Library, path, source, prelude string) (shader.Shader, error) {
	if lib == nil {
		return nil, fmt.Errorf("material: no shader library")
	}
	if path == "" {
		path = "inline"
	}
	if source == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("material: failed to read %q: %w", path, err)
		}
		source = string(data)
	}
	sh, err := lib.Register(path, prelude+source)
	if err != nil {
		return nil, fmt.Errorf("material: failed to register %q: %w", path, err)
	}
	if sh.EntryPoint(shader.StageFragment) == "" {
		return nil, fmt.Errorf("material: %q has no fragment entry point", path)
	}
	return sh, nil
}

func cullMode(c graph.CullMode) rhi.CullMode {
	switch c {
	case graph.CullFront:
		return rhi.CullFront
	case graph.CullNone:
		return rhi.CullNone
	}
	return rhi.CullBack
}
