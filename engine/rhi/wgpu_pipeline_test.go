package rhi

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindGroupLayoutDescriptorsForModelPrelude(t *testing.T) {
	lib := shader.NewLibrary()
	unlit, ok := lib.Lookup(shader.BuiltinUnlit)
	require.True(t, ok)

	descs := bindGroupLayoutDescriptors(unlit.Key(), unlit.Bindings())
	require.Len(t, descs, 2)

	frame := descs[0].Entries
	require.Len(t, frame, 2)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, frame[0].Buffer.Type)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, frame[1].Buffer.Type)

	material := descs[1].Entries
	require.Len(t, material, 2)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, material[0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, material[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, material[1].Sampler.Type)
}

func TestBindGroupLayoutDescriptorsSortsByBinding(t *testing.T) {
	descs := bindGroupLayoutDescriptors("test", []shader.Binding{
		{Group: 0, Binding: 3, Kind: shader.BindingTexture, Type: "texture_2d<f32>"},
		{Group: 0, Binding: 0, Kind: shader.BindingTexture, Type: "texture_2d<f32>"},
		{Group: 0, Binding: 1, Kind: shader.BindingSampler, Type: "sampler"},
	})
	entries := descs[0].Entries
	require.Len(t, entries, 3)
	assert.Equal(t, []uint32{0, 1, 3}, []uint32{entries[0].Binding, entries[1].Binding, entries[2].Binding})
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, entries[0].Visibility)
}

func TestFormatAndModeMapping(t *testing.T) {
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, toWGPUFormat(FormatRGBA8))
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, toWGPUFormat(FormatRGBA16F))
	assert.Equal(t, depthFormat, toWGPUFormat(FormatDepth24Stencil8))
	assert.Equal(t, wgpu.PresentModeFifo, toWGPUPresentMode(PresentModeVSync))
	assert.Equal(t, wgpu.PresentModeImmediate, toWGPUPresentMode(PresentModeUncapped))
	assert.Equal(t, wgpu.CullModeNone, toWGPUCullMode(CullNone))
	assert.Equal(t, "D24S8", FormatDepth24Stencil8.String())
	assert.Equal(t, "WebGPU", BackendWGPU.String())
}
