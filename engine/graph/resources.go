package graph

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
)

// TextureData is raw RGBA8 pixel content.
type TextureData struct {
	header

	Width  int
	Height int
	Pixels []byte
	// Version increases each time Pixels is replaced so residency can re-upload.
	Version uint64
}

// NewTextureData creates empty texture data.
func NewTextureData() *TextureData {
	return &TextureData{header: header{typ: TypeTextureData}}
}

// Image is a sampled texture. Its content comes from TextureData or from a 2D subscene.
type Image struct {
	header

	// Source is the TextureData providing pixels, or the zero Handle.
	Source Handle
	// Subscene is an Item2D rendering into this image, or the zero Handle.
	Subscene Handle
	Sampler  common.SamplerStagingData
	Mipmaps  bool
	FlipV    bool
}

// NewImage creates an image with no source.
func NewImage() *Image {
	return &Image{header: header{typ: TypeImage}}
}

// MaterialKind is the shading model of a material.
type MaterialKind uint8

const (
	MaterialDefault MaterialKind = iota
	MaterialPrincipled
	MaterialCustom
)

// CullMode is the face culling mode of a material.
type CullMode uint8

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// Material holds surface parameters and the key of the shader that draws it.
type Material struct {
	header

	MaterialKind MaterialKind
	BaseColor    common.Color
	Opacity      float32
	Metalness    float32
	Roughness    float32
	// BaseColorMap is an Image, or the zero Handle.
	BaseColorMap Handle
	Cull         CullMode
	Unlit        bool
	// ShaderPath and ShaderSource describe a custom material's fragment snippet.
	ShaderPath   string
	ShaderSource string
	// ShaderKey is resolved by the shader library during prepare.
	ShaderKey string
}

// NewMaterial creates an opaque white material of the given kind.
func NewMaterial(kind MaterialKind) *Material {
	return &Material{
		header:       header{typ: TypeMaterial},
		MaterialKind: kind,
		BaseColor:    common.Color{R: 1, G: 1, B: 1, A: 1},
		Opacity:      1,
		Roughness:    0.5,
	}
}

// IsTransparent reports whether draws with this material need back-to-front ordering.
func (m *Material) IsTransparent() bool {
	return m.Opacity < 1 || m.BaseColor.A < 1
}

// EffectPass is one full-screen pass of an effect.
type EffectPass struct {
	ShaderPath   string
	ShaderSource string
	// ShaderKey is resolved by the shader library during prepare.
	ShaderKey string
	// Uniforms are scalar parameters passed to the shader in declaration order.
	Uniforms []float32
}

// Effect is a post-processing step. Layers link effects into a chain through NextEffect.
type Effect struct {
	header

	Name       string
	Passes     []EffectPass
	NextEffect Handle
	// RequiresDepth marks effects that sample the depth texture.
	RequiresDepth bool
}

// NewEffect creates an effect with no passes.
func NewEffect() *Effect {
	return &Effect{header: header{typ: TypeEffect}}
}

// Geometry is a custom mesh resource registered with the buffer manager.
type Geometry struct {
	header

	Positions []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint32
	// Version increases each time the vertex data is replaced.
	Version uint64
}

// NewGeometry creates empty geometry.
func NewGeometry() *Geometry {
	return &Geometry{header: header{typ: TypeGeometry}}
}

// ResourceLoader lists resources that must be resident before the first frame that uses them.
type ResourceLoader struct {
	header

	Resources []Handle
}

// NewResourceLoader creates an empty resource loader.
func NewResourceLoader() *ResourceLoader {
	return &ResourceLoader{header: header{typ: TypeResourceLoader}}
}

// ExtensionStage is the point in a frame at which a render extension runs.
type ExtensionStage uint8

const (
	StagePrepare ExtensionStage = iota
	StageRender
)

// Extension is a user render hook.
type Extension struct {
	header

	Name string
	// Run is called once per stage per frame.
	Run func(stage ExtensionStage)
}

// NewExtension creates a render extension.
func NewExtension(name string, run func(ExtensionStage)) *Extension {
	return &Extension{header: header{typ: TypeRenderExtension}, Name: name, Run: run}
}
