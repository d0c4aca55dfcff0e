package graph

// Object is a backend render graph object. The set of implementations is closed:
// *Node, *Layer, *Camera, *Light, *Model, *Item2D, *TextureData, *Image, *Material, *Effect,
// *Geometry, *ResourceLoader and *Extension. Callers dispatch with type switches.
type Object interface {
	// Type returns the concrete type tag.
	//
	// Returns:
	//   - Type: the type tag
	Type() Type

	// Kind returns the category of the object.
	//
	// Returns:
	//   - Kind: node, resource or extension
	Kind() Kind

	// Handle returns the arena handle of the object, or the zero Handle if it has not been inserted.
	//
	// Returns:
	//   - Handle: the object's handle
	Handle() Handle

	graphHeader() *header
}

// Spatial is implemented by every node-kind object.
type Spatial interface {
	Object

	// SpatialNode returns the hierarchy and transform state shared by all node kinds.
	//
	// Returns:
	//   - *Node: the embedded node
	SpatialNode() *Node
}

// header is embedded by every object type.
type header struct {
	typ    Type
	handle Handle
}

func (h *header) Type() Type {
	return h.typ
}

func (h *header) Kind() Kind {
	return h.typ.Kind()
}

func (h *header) Handle() Handle {
	return h.handle
}

func (h *header) graphHeader() *header {
	return h
}

var (
	_ Spatial = &Node{}
	_ Spatial = &Layer{}
	_ Spatial = &Camera{}
	_ Spatial = &Light{}
	_ Spatial = &Model{}
	_ Spatial = &Item2D{}
	_ Object  = &TextureData{}
	_ Object  = &Image{}
	_ Object  = &Material{}
	_ Object  = &Effect{}
	_ Object  = &Geometry{}
	_ Object  = &ResourceLoader{}
	_ Object  = &Extension{}
)
