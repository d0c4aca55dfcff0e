// Package graph holds the backend render graph: the per-frame objects the renderer reads, stored in a
// generation-checked arena and addressed by Handle. Graph objects know nothing about the front end that produced them.
package graph

// Kind is the coarse category of a graph object.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindNode objects have a place in the spatial hierarchy.
	KindNode
	// KindResource objects are shared data with no graph position (textures, materials, meshes).
	KindResource
	// KindExtension objects are render hooks.
	KindExtension
)

// Type is the concrete type tag of a graph object.
type Type uint8

const (
	TypeUnknown Type = iota

	TypeNode
	TypeLayer
	TypeCamera
	TypeLight
	TypeModel
	TypeItem2D

	TypeTextureData
	TypeImage
	TypeMaterial
	TypeEffect
	TypeGeometry
	TypeResourceLoader

	TypeRenderExtension
)

var typeNames = map[Type]string{
	TypeUnknown:         "Unknown",
	TypeNode:            "Node",
	TypeLayer:           "Layer",
	TypeCamera:          "Camera",
	TypeLight:           "Light",
	TypeModel:           "Model",
	TypeItem2D:          "Item2D",
	TypeTextureData:     "TextureData",
	TypeImage:           "Image",
	TypeMaterial:        "Material",
	TypeEffect:          "Effect",
	TypeGeometry:        "Geometry",
	TypeResourceLoader:  "ResourceLoader",
	TypeRenderExtension: "RenderExtension",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "Unknown"
}

// Kind returns the category the type belongs to.
func (t Type) Kind() Kind {
	switch {
	case t >= TypeNode && t <= TypeItem2D:
		return KindNode
	case t >= TypeTextureData && t <= TypeResourceLoader:
		return KindResource
	case t == TypeRenderExtension:
		return KindExtension
	}
	return KindUnknown
}

// IsNodeType reports whether objects of this type live in the spatial hierarchy.
func (t Type) IsNodeType() bool {
	return t.Kind() == KindNode
}

// IsResource reports whether objects of this type are resources.
func (t Type) IsResource() bool {
	return t.Kind() == KindResource
}

// IsLight reports whether the type is a light. Lights are synchronized after every other spatial node.
func (t Type) IsLight() bool {
	return t == TypeLight
}

// HasGraphicsResources reports whether objects of this type may own GPU-resident data.
// Such objects cannot be freed synchronously when their front end goes away; they are routed
// through the window's resource release queue instead.
func (t Type) HasGraphicsResources() bool {
	switch t {
	case TypeModel, TypeImage, TypeGeometry, TypeTextureData:
		return true
	}
	return false
}

// IsSharedResource reports whether a change to objects of this type can be observed by other scenes on the same window.
func (t Type) IsSharedResource() bool {
	switch t {
	case TypeTextureData, TypeImage, TypeGeometry:
		return true
	}
	return false
}
