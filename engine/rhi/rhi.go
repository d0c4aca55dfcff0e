// Package rhi is the graphics device abstraction the scene renderer draws through. The WebGPU
// implementation drives a real GPU; rhitest provides a recording device for tests.
package rhi

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrNoDevice is returned when an operation needs a device that is not available.
var ErrNoDevice = errors.New("rhi: no device")

// Backend identifies the device implementation.
type Backend int

const (
	BackendNull Backend = iota
	BackendWGPU
)

func (b Backend) String() string {
	if b == BackendWGPU {
		return "WebGPU"
	}
	return "Null"
}

// Format is a texture or render buffer pixel format.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA16F
	FormatRGBA32F
	FormatDepth24Stencil8
)

func (f Format) String() string {
	switch f {
	case FormatRGBA16F:
		return "RGBA16F"
	case FormatRGBA32F:
		return "RGBA32F"
	case FormatDepth24Stencil8:
		return "D24S8"
	}
	return "RGBA8"
}

// Feature is an optional device capability.
type Feature int

const (
	// FeatureMultisampleRenderBuffer is support for multisampled color render buffers.
	FeatureMultisampleRenderBuffer Feature = iota
)

// PresentMode controls how frames reach the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for vertical blank before presenting.
	PresentModeVSync PresentMode = iota
	// PresentModeUncapped presents immediately and may tear.
	PresentModeUncapped
)

// Resource is a device object with a pixel size that can be rebuilt in place.
type Resource interface {
	// Size returns the pixel size the resource was last built with, or the pending size if never built.
	//
	// Returns:
	//   - common.Size: the pixel size
	Size() common.Size

	// SetPixelSize changes the size used by the next Build.
	//
	// Parameters:
	//   - s: the new pixel size
	SetPixelSize(s common.Size)

	// Build (re)creates the device object at the current size. Building an unchanged resource does nothing.
	//
	// Returns:
	//   - error: an error if the device object could not be created
	Build() error

	// Release destroys the device object. Releasing twice is a no-op.
	Release()
}

// Texture is a sampleable color image.
type Texture interface {
	Resource

	// Format returns the pixel format.
	//
	// Returns:
	//   - Format: the texture format
	Format() Format

	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label given at creation
	Label() string
}

// RenderBuffer is a non-sampleable attachment, typically multisampled color or depth.
type RenderBuffer interface {
	Resource

	// Format returns the pixel format.
	//
	// Returns:
	//   - Format: the buffer format
	Format() Format

	// SampleCount returns the number of samples per pixel.
	//
	// Returns:
	//   - int: the sample count, 1 for single-sampled buffers
	SampleCount() int
}

// RenderTarget groups the attachments of a render pass. Color is the resolved result when
// a multisampled ColorBuffer is present.
type RenderTarget interface {
	Resource

	// Color returns the texture that receives the pass output.
	//
	// Returns:
	//   - Texture: the color texture
	Color() Texture

	// SampleCount returns the sample count of the pass.
	//
	// Returns:
	//   - int: the number of samples per pixel
	SampleCount() int
}

// Mesh is an uploaded vertex and index buffer pair.
type Mesh interface {
	// IndexCount returns the number of indices drawn.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// Release destroys the device buffers. Releasing twice is a no-op.
	Release()
}

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Label  string
	Size   common.Size
	Format Format
}

// RenderBufferDesc describes a render buffer to create.
type RenderBufferDesc struct {
	Label       string
	Size        common.Size
	Format      Format
	SampleCount int
}

// RenderTargetDesc describes a render target. ColorBuffer and Depth are optional.
type RenderTargetDesc struct {
	Label       string
	Color       Texture
	ColorBuffer RenderBuffer
	Depth       RenderBuffer
}

// MeshDesc is interleaved vertex data: position xyz, normal xyz, uv.
type MeshDesc struct {
	Label    string
	Vertices []float32
	Indices  []uint32
}

// VertexStride is the number of floats per interleaved vertex in MeshDesc.
const VertexStride = 8

// DrawItem is one prepared draw call.
type DrawItem struct {
	Label string
	Mesh  Mesh
	// Instances are world transforms, one draw instance each.
	Instances      []mgl32.Mat4
	ViewProjection mgl32.Mat4
	Color          common.Color
	// Texture is the base color map, or nil.
	Texture Texture
	// ShaderKey selects a custom fragment shader registered with ShaderSource, or "" for the built-in unlit shader.
	ShaderKey    string
	ShaderSource string
	CullMode     CullMode
	DepthTest    bool
	DepthWrite   bool
	Blend        bool
}

// CullMode is the face culling mode of a draw.
type CullMode int

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// EffectPassDesc is one full-screen post-processing pass.
type EffectPassDesc struct {
	ShaderKey string
	// Source is the WGSL fragment entry "fs_main" sampling binding 0 (texture) and 1 (sampler).
	Source   string
	Uniforms []float32
	// Reference is the per-pixel CPU equivalent of the pass, used by devices that simulate content.
	Reference func(common.Color) common.Color
}

// CommandBuffer records the work of one frame. A nil RenderTarget always means the window surface.
type CommandBuffer interface {
	// BeginPass starts a render pass into rt, clearing color and depth. A nil rt targets the
	// window surface.
	//
	// Parameters:
	//   - rt: the target, or nil for the surface
	//   - clear: the clear color
	//   - depth: the depth clear value
	BeginPass(rt RenderTarget, clear common.Color, depth float32)

	// Draw records a draw into the current pass.
	//
	// Parameters:
	//   - item: the prepared draw
	Draw(item DrawItem)

	// EndPass ends the current pass.
	EndPass()

	// Blend writes frame*factors[0] + accum*factors[1] into dst.
	//
	// Parameters:
	//   - dst: the target receiving the blend
	//   - frame: the newly rendered frame
	//   - accum: the accumulated history
	//   - factors: the frame and accumulator weights
	Blend(dst RenderTarget, frame, accum Texture, factors [2]float32)

	// CopyTexture copies src into dst. Both must have the same size.
	//
	// Parameters:
	//   - dst: the destination texture
	//   - src: the source texture
	CopyTexture(dst, src Texture)

	// Downsample draws src into the smaller dst with linear filtering.
	//
	// Parameters:
	//   - dst: the destination target
	//   - src: the larger source texture
	Downsample(dst RenderTarget, src Texture)

	// RunEffectPass draws one full-screen effect pass reading src into dst.
	//
	// Parameters:
	//   - dst: the destination target
	//   - src: the input texture
	//   - pass: the pass to run
	RunEffectPass(dst RenderTarget, src Texture, pass EffectPassDesc)
}

// Device creates resources and records frames.
type Device interface {
	// Backend returns the implementation kind.
	//
	// Returns:
	//   - Backend: the device backend
	Backend() Backend

	// SupportedSampleCounts returns the supported MSAA sample counts in ascending order.
	//
	// Returns:
	//   - []int: the sample counts
	SupportedSampleCounts() []int

	// IsFeatureSupported reports whether an optional capability is available.
	//
	// Parameters:
	//   - f: the feature to query
	//
	// Returns:
	//   - bool: true if supported
	IsFeatureSupported(f Feature) bool

	// IsTextureFormatSupported reports whether f can be rendered to and sampled.
	//
	// Parameters:
	//   - f: the format to query
	//
	// Returns:
	//   - bool: true if supported
	IsTextureFormatSupported(f Format) bool

	// NewTexture creates an unbuilt texture.
	//
	// Parameters:
	//   - desc: the texture description
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: an error if the description is invalid
	NewTexture(desc TextureDesc) (Texture, error)

	// NewRenderBuffer creates an unbuilt render buffer.
	//
	// Parameters:
	//   - desc: the render buffer description
	//
	// Returns:
	//   - RenderBuffer: the new buffer
	//   - error: an error if the description is invalid
	NewRenderBuffer(desc RenderBufferDesc) (RenderBuffer, error)

	// NewRenderTarget creates an unbuilt render target over existing attachments.
	//
	// Parameters:
	//   - desc: the render target description
	//
	// Returns:
	//   - RenderTarget: the new target
	//   - error: an error if the description is invalid
	NewRenderTarget(desc RenderTargetDesc) (RenderTarget, error)

	// UploadTexture writes RGBA8 pixels into a built texture.
	//
	// Parameters:
	//   - t: the destination texture
	//   - pixels: width*height*4 bytes
	//
	// Returns:
	//   - error: an error if the upload failed
	UploadTexture(t Texture, pixels []byte) error

	// NewMesh uploads interleaved vertex data.
	//
	// Parameters:
	//   - desc: the mesh data
	//
	// Returns:
	//   - Mesh: the uploaded mesh
	//   - error: an error if the buffers could not be created
	NewMesh(desc MeshDesc) (Mesh, error)

	// ConfigureSurface resizes the window surface.
	//
	// Parameters:
	//   - size: the surface size in pixels
	ConfigureSurface(size common.Size)

	// SetPresentMode sets the surface present mode, applied at the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the present mode
	SetPresentMode(mode PresentMode)

	// BeginFrame starts recording a frame.
	//
	// Returns:
	//   - CommandBuffer: the frame's command buffer
	//   - error: an error if the frame could not be started
	BeginFrame() (CommandBuffer, error)

	// EndFrame submits the recorded frame and presents the surface.
	//
	// Returns:
	//   - error: an error if submission failed
	EndFrame() error

	// Release destroys the device.
	Release()
}
