package object

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeBuilderOption is a function that configures a Node during construction.
type NodeBuilderOption func(*Node)

// ModelBuilderOption is a function that configures a Model during construction.
type ModelBuilderOption func(*Model)

// CameraBuilderOption is a function that configures a Camera during construction.
type CameraBuilderOption func(*Camera)

// LightBuilderOption is a function that configures a Light during construction.
type LightBuilderOption func(*Light)

// TextureBuilderOption is a function that configures a Texture during construction.
type TextureBuilderOption func(*Texture)

// MaterialBuilderOption is a function that configures a Material during construction.
type MaterialBuilderOption func(*Material)

// EnvironmentBuilderOption is a function that configures a SceneEnvironment during construction.
type EnvironmentBuilderOption func(*SceneEnvironment)

// WithName is an option builder that sets the debug name of a node.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - NodeBuilderOption: a function that applies the name option to a Node
func WithName(name string) NodeBuilderOption {
	return func(n *Node) {
		n.name = name
	}
}

// WithPosition is an option builder that sets the local position of a node.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - NodeBuilderOption: a function that applies the position option to a Node
func WithPosition(x, y, z float32) NodeBuilderOption {
	return func(n *Node) {
		n.position = mgl32.Vec3{x, y, z}
	}
}

// WithScale is an option builder that sets the local scale of a node.
//
// Parameters:
//   - x: the x scale factor
//   - y: the y scale factor
//   - z: the z scale factor
//
// Returns:
//   - NodeBuilderOption: a function that applies the scale option to a Node
func WithScale(x, y, z float32) NodeBuilderOption {
	return func(n *Node) {
		n.scale = mgl32.Vec3{x, y, z}
	}
}

// WithPickable is an option builder that sets whether picking can hit the node.
//
// Parameters:
//   - pickable: true to make the node pickable
//
// Returns:
//   - NodeBuilderOption: a function that applies the pickable option to a Node
func WithPickable(pickable bool) NodeBuilderOption {
	return func(n *Node) {
		n.pickable = pickable
	}
}

// WithModelNode is an option builder that applies node options to a model.
//
// Parameters:
//   - options: the node options to apply
//
// Returns:
//   - ModelBuilderOption: a function that applies the node options to a Model
func WithModelNode(options ...NodeBuilderOption) ModelBuilderOption {
	return func(m *Model) {
		for _, opt := range options {
			opt(&m.Node)
		}
	}
}

// WithModelMaterials is an option builder that sets the materials of a model.
//
// Parameters:
//   - materials: the materials, one per sub-mesh
//
// Returns:
//   - ModelBuilderOption: a function that applies the materials option to a Model
func WithModelMaterials(materials ...*Material) ModelBuilderOption {
	return func(m *Model) {
		m.materials = append([]*Material(nil), materials...)
	}
}

// WithModelGeometry is an option builder that sets custom geometry on a model.
//
// Parameters:
//   - g: the geometry resource
//
// Returns:
//   - ModelBuilderOption: a function that applies the geometry option to a Model
func WithModelGeometry(g *Geometry) ModelBuilderOption {
	return func(m *Model) {
		m.geometry = g
	}
}

// WithInstances is an option builder that sets per-instance transforms on a model.
//
// Parameters:
//   - instances: the instance transforms
//
// Returns:
//   - ModelBuilderOption: a function that applies the instances option to a Model
func WithInstances(instances ...mgl32.Mat4) ModelBuilderOption {
	return func(m *Model) {
		m.instances = append([]mgl32.Mat4(nil), instances...)
	}
}

// WithCameraNode is an option builder that applies node options to a camera.
//
// Parameters:
//   - options: the node options to apply
//
// Returns:
//   - CameraBuilderOption: a function that applies the node options to a Camera
func WithCameraNode(options ...NodeBuilderOption) CameraBuilderOption {
	return func(c *Camera) {
		for _, opt := range options {
			opt(&c.Node)
		}
	}
}

// WithOrthographic is an option builder that switches a camera to orthographic projection.
//
// Parameters:
//   - magnification: the zoom factor, 1 maps one world unit to one pixel
//
// Returns:
//   - CameraBuilderOption: a function that applies the projection option to a Camera
func WithOrthographic(magnification float32) CameraBuilderOption {
	return func(c *Camera) {
		c.projection = graph.ProjectionOrthographic
		c.magnification = magnification
	}
}

// WithFieldOfView is an option builder that sets the vertical field of view of a perspective camera.
//
// Parameters:
//   - deg: the field of view in degrees
//
// Returns:
//   - CameraBuilderOption: a function that applies the field of view option to a Camera
func WithFieldOfView(deg float32) CameraBuilderOption {
	return func(c *Camera) {
		c.fieldOfView = deg
	}
}

// WithClipPlanes is an option builder that sets the near and far clip distances.
//
// Parameters:
//   - near: the near clip distance
//   - far: the far clip distance
//
// Returns:
//   - CameraBuilderOption: a function that applies the clip option to a Camera
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *Camera) {
		c.clipNear, c.clipFar = near, far
	}
}

// WithLightNode is an option builder that applies node options to a light.
//
// Parameters:
//   - options: the node options to apply
//
// Returns:
//   - LightBuilderOption: a function that applies the node options to a Light
func WithLightNode(options ...NodeBuilderOption) LightBuilderOption {
	return func(l *Light) {
		for _, opt := range options {
			opt(&l.Node)
		}
	}
}

// WithLightColor is an option builder that sets the color and brightness of a light.
//
// Parameters:
//   - c: the light color
//   - brightness: the scalar intensity
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a Light
func WithLightColor(c common.Color, brightness float32) LightBuilderOption {
	return func(l *Light) {
		l.color = c
		l.brightness = brightness
	}
}

// WithBakeMode is an option builder that sets how a light contributes to baked lightmaps.
//
// Parameters:
//   - mode: the bake mode
//
// Returns:
//   - LightBuilderOption: a function that applies the bake mode option to a Light
func WithBakeMode(mode graph.BakeMode) LightBuilderOption {
	return func(l *Light) {
		l.bakeMode = mode
	}
}

// WithTextureData is an option builder that sets the pixel source of a texture.
//
// Parameters:
//   - td: the texture data
//
// Returns:
//   - TextureBuilderOption: a function that applies the source option to a Texture
func WithTextureData(td *TextureData) TextureBuilderOption {
	return func(t *Texture) {
		t.source = td
		if td != nil {
			td.addDependent(t)
		}
	}
}

// WithSourceItem is an option builder that uses a 2D subscene as the content of a texture.
//
// Parameters:
//   - item: the subscene proxy
//
// Returns:
//   - TextureBuilderOption: a function that applies the source item option to a Texture
func WithSourceItem(item *Item2D) TextureBuilderOption {
	return func(t *Texture) {
		t.sourceItem = item
		if item != nil {
			item.addDependent(t)
		}
	}
}

// WithSampler is an option builder that sets the sampler state of a texture.
//
// Parameters:
//   - s: the sampler description
//   - mipmaps: true to generate mipmaps
//
// Returns:
//   - TextureBuilderOption: a function that applies the sampler option to a Texture
func WithSampler(s common.SamplerStagingData, mipmaps bool) TextureBuilderOption {
	return func(t *Texture) {
		t.sampler = s
		t.mipmaps = mipmaps
	}
}

// WithBaseColor is an option builder that sets the base color of a material.
//
// Parameters:
//   - c: the base color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the color option to a Material
func WithBaseColor(c common.Color) MaterialBuilderOption {
	return func(m *Material) {
		m.baseColor = c
	}
}

// WithOpacity is an option builder that sets the opacity of a material.
//
// Parameters:
//   - opacity: the opacity in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the opacity option to a Material
func WithOpacity(opacity float32) MaterialBuilderOption {
	return func(m *Material) {
		m.opacity = opacity
	}
}

// WithPBR is an option builder that sets the metalness and roughness of a principled material.
//
// Parameters:
//   - metalness: the metalness in [0, 1]
//   - roughness: the roughness in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the PBR option to a Material
func WithPBR(metalness, roughness float32) MaterialBuilderOption {
	return func(m *Material) {
		m.metalness, m.roughness = metalness, roughness
	}
}

// WithBaseColorMap is an option builder that sets the base color texture of a material.
//
// Parameters:
//   - t: the texture
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a Material
func WithBaseColorMap(t *Texture) MaterialBuilderOption {
	return func(m *Material) {
		m.baseColorMap = t
		if t != nil {
			t.addDependent(m)
		}
	}
}

// WithCullMode is an option builder that sets the face culling of a material.
//
// Parameters:
//   - c: the cull mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the cull option to a Material
func WithCullMode(c graph.CullMode) MaterialBuilderOption {
	return func(m *Material) {
		m.cull = c
	}
}

// WithUnlit is an option builder that disables lighting for a material.
//
// Returns:
//   - MaterialBuilderOption: a function that applies the unlit option to a Material
func WithUnlit() MaterialBuilderOption {
	return func(m *Material) {
		m.unlit = true
	}
}

// WithShader is an option builder that sets the fragment snippet of a custom material.
//
// Parameters:
//   - path: the shader path, used as the cache key
//   - source: the WGSL snippet, or "" to load path from disk
//
// Returns:
//   - MaterialBuilderOption: a function that applies the shader option to a Material
func WithShader(path, source string) MaterialBuilderOption {
	return func(m *Material) {
		m.shaderPath, m.shaderSource = path, source
	}
}

// WithAntialiasing is an option builder that sets the antialiasing mode and quality.
//
// Parameters:
//   - mode: the antialiasing mode
//   - quality: the quality level
//
// Returns:
//   - EnvironmentBuilderOption: a function that applies the antialiasing option to a SceneEnvironment
func WithAntialiasing(mode graph.AntialiasingMode, quality graph.AntialiasingQuality) EnvironmentBuilderOption {
	return func(e *SceneEnvironment) {
		e.aaMode, e.aaQuality = mode, quality
	}
}

// WithTemporalAA is an option builder that enables temporal antialiasing.
//
// Parameters:
//   - strength: the jitter amplitude
//
// Returns:
//   - EnvironmentBuilderOption: a function that applies the temporal AA option to a SceneEnvironment
func WithTemporalAA(strength float32) EnvironmentBuilderOption {
	return func(e *SceneEnvironment) {
		e.temporalAA = true
		e.temporalAAStr = strength
	}
}

// WithClearColor is an option builder that clears the viewport to a solid color.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - EnvironmentBuilderOption: a function that applies the background option to a SceneEnvironment
func WithClearColor(c common.Color) EnvironmentBuilderOption {
	return func(e *SceneEnvironment) {
		e.background = graph.BackgroundColor
		e.clearColor = c
	}
}

// WithEffects is an option builder that sets the post-processing chain.
//
// Parameters:
//   - effects: the effects in execution order
//
// Returns:
//   - EnvironmentBuilderOption: a function that applies the effects option to a SceneEnvironment
func WithEffects(effects ...*Effect) EnvironmentBuilderOption {
	return func(e *SceneEnvironment) {
		e.effects = append([]*Effect(nil), effects...)
	}
}

// WithTonemap is an option builder that sets the tonemapping mode.
//
// Parameters:
//   - m: the tonemap mode
//
// Returns:
//   - EnvironmentBuilderOption: a function that applies the tonemap option to a SceneEnvironment
func WithTonemap(m graph.TonemapMode) EnvironmentBuilderOption {
	return func(e *SceneEnvironment) {
		e.tonemap = m
	}
}
