package object

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
)

// Light is a directional, point or spot light. A scope limits it to one subtree.
type Light struct {
	Node

	kind        graph.LightKind
	color       common.Color
	brightness  float32
	scope       Spatial
	castsShadow bool
	coneAngle   float32
	innerCone   float32
	lightRange  float32
	bakeMode    graph.BakeMode
}

var _ Spatial = &Light{}

// NewLight creates a white light of the given kind.
//
// Parameters:
//   - kind: directional, point or spot
//   - options: functional options applied in order
//
// Returns:
//   - *Light: the new light
func NewLight(kind graph.LightKind, options ...LightBuilderOption) *Light {
	l := &Light{
		kind:       kind,
		color:      common.Color{R: 1, G: 1, B: 1, A: 1},
		brightness: 1,
		coneAngle:  40,
		innerCone:  30,
		lightRange: 1000,
	}
	l.initNode(l, graph.TypeLight)
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *Light) Kind() graph.LightKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kind
}

func (l *Light) SetColor(c common.Color) {
	l.mu.Lock()
	l.color = c
	l.mu.Unlock()
	l.MarkDirty(DirtyLight)
}

func (l *Light) SetBrightness(b float32) {
	l.mu.Lock()
	l.brightness = b
	l.mu.Unlock()
	l.MarkDirty(DirtyLight)
}

// SetScope restricts the light to scope's subtree. Nil lights the whole scene.
func (l *Light) SetScope(scope Spatial) {
	l.mu.Lock()
	l.scope = scope
	l.mu.Unlock()
	l.MarkDirty(DirtyLight)
}

func (l *Light) SetCastsShadow(v bool) {
	l.mu.Lock()
	l.castsShadow = v
	l.mu.Unlock()
	l.MarkDirty(DirtyLight)
}

func (l *Light) SetBakeMode(m graph.BakeMode) {
	l.mu.Lock()
	l.bakeMode = m
	l.mu.Unlock()
	l.MarkDirty(DirtyLight)
}

// UpdateGraphObject resolves the scope to its backend handle, which is why lights are processed
// after every other spatial node of the cycle.
func (l *Light) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	gl, ok := existing.(*graph.Light)
	if !ok {
		gl = graph.NewLight(l.Kind())
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applySpatial(&gl.Node)
	gl.LightKind = l.kind
	gl.Color = l.color
	gl.Brightness = l.brightness
	gl.Scope = graph.Handle{}
	if l.scope != nil && Object(l.scope) != Object(l) {
		gl.Scope = handleOf(l.scope)
	}
	gl.CastsShadow = l.castsShadow
	gl.ConeAngle = l.coneAngle
	gl.InnerCone = l.innerCone
	gl.Range = l.lightRange
	gl.BakeMode = l.bakeMode
	return gl
}
