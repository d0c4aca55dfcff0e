package object

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/go-gl/mathgl/mgl32"
)

// Model is a drawable mesh. Its mesh comes from a Geometry resource or a built-in source such as "#Cube".
type Model struct {
	Node

	source              string
	geometry            *Geometry
	materials           []*Material
	instances           []mgl32.Mat4
	instanceRoot        Spatial
	castsShadows        bool
	receivesShadows     bool
	usedInBakedLighting bool
	opacity             float32

	bounds        common.AABB
	boundsChanged func(common.AABB)
}

var (
	_ Spatial        = &Model{}
	_ Referencer     = &Model{}
	_ InstanceRooted = &Model{}
)

// NewModel creates a model drawing the given source.
//
// Parameters:
//   - source: a built-in mesh name like "#Cube", or "" when a Geometry is set later
//   - options: functional options applied in order
//
// Returns:
//   - *Model: the new model
func NewModel(source string, options ...ModelBuilderOption) *Model {
	m := &Model{
		source:          source,
		castsShadows:    true,
		receivesShadows: true,
		opacity:         1,
		bounds:          common.EmptyAABB(),
	}
	m.initNode(m, graph.TypeModel)
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *Model) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

func (m *Model) SetSource(source string) {
	m.mu.Lock()
	changed := m.source != source
	m.source = source
	m.mu.Unlock()
	if changed {
		m.MarkDirty(DirtySource | DirtyBounds)
	}
}

func (m *Model) SetGeometry(g *Geometry) {
	m.mu.Lock()
	changed := m.geometry != g
	m.geometry = g
	mgr := m.manager
	m.mu.Unlock()
	if !changed {
		return
	}
	if g != nil && mgr != nil {
		g.AttachTo(mgr)
	}
	m.MarkDirty(DirtyGeometry | DirtyBounds)
}

// Materials returns a copy of the material list.
func (m *Model) Materials() []*Material {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Material, len(m.materials))
	copy(out, m.materials)
	return out
}

func (m *Model) SetMaterials(materials ...*Material) {
	m.mu.Lock()
	m.materials = append([]*Material(nil), materials...)
	mgr := m.manager
	m.mu.Unlock()
	if mgr != nil {
		for _, mat := range materials {
			if mat != nil {
				mat.AttachTo(mgr)
			}
		}
	}
	m.MarkDirty(DirtyMaterial)
}

// SetInstances replaces the per-instance transforms. An empty list draws one instance at the model transform.
func (m *Model) SetInstances(instances []mgl32.Mat4) {
	m.mu.Lock()
	m.instances = append([]mgl32.Mat4(nil), instances...)
	m.mu.Unlock()
	m.MarkDirty(DirtyInstances | DirtyBounds)
}

// SetInstanceRoot sets the node whose space the instance transforms are expressed in.
func (m *Model) SetInstanceRoot(root Spatial) {
	m.mu.Lock()
	m.instanceRoot = root
	m.mu.Unlock()
	m.MarkDirty(DirtyInstances)
}

func (m *Model) InstanceRoot() Spatial {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instanceRoot
}

func (m *Model) SetCastsShadows(v bool) {
	m.mu.Lock()
	m.castsShadows = v
	m.mu.Unlock()
	m.MarkDirty(DirtyContent)
}

func (m *Model) SetUsedInBakedLighting(v bool) {
	m.mu.Lock()
	m.usedInBakedLighting = v
	m.mu.Unlock()
	m.MarkDirty(DirtyContent)
}

func (m *Model) SetOpacity(v float32) {
	m.mu.Lock()
	m.opacity = v
	m.mu.Unlock()
	m.MarkDirty(DirtyContent)
}

// Bounds returns the last bounds read back from the renderer.
func (m *Model) Bounds() common.AABB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds
}

// SetBoundsChangedCallback registers a function called whenever read-back bounds change.
func (m *Model) SetBoundsChangedCallback(fn func(common.AABB)) {
	m.mu.Lock()
	m.boundsChanged = fn
	m.mu.Unlock()
}

// SetBounds stores bounds computed by the backend. This is the one place backend state flows to the front end.
//
// Parameters:
//   - min: local-space minimum corner
//   - max: local-space maximum corner
func (m *Model) SetBounds(min, max mgl32.Vec3) {
	b := common.AABB{Min: min, Max: max}
	m.mu.Lock()
	changed := m.bounds != b
	m.bounds = b
	fn := m.boundsChanged
	m.mu.Unlock()
	if changed && fn != nil {
		fn(b)
	}
}

func (m *Model) References() []Object {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := make([]Object, 0, len(m.materials)+1)
	if m.geometry != nil {
		refs = append(refs, m.geometry)
	}
	for _, mat := range m.materials {
		if mat != nil {
			refs = append(refs, mat)
		}
	}
	return refs
}

func (m *Model) UpdateGraphObject(ctx *UpdateContext, existing graph.Object) graph.Object {
	if !ctx.Ready() {
		return nil
	}
	gm, ok := existing.(*graph.Model)
	if !ok {
		gm = graph.NewModel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.applySpatial(&gm.Node)
	gm.Source = m.source
	gm.Geometry = graph.Handle{}
	if m.geometry != nil {
		gm.Geometry = m.geometry.Handle()
	}
	gm.Materials = gm.Materials[:0]
	for _, mat := range m.materials {
		if mat == nil {
			continue
		}
		if h := mat.Handle(); ctx.Arena.Contains(h) {
			gm.Materials = append(gm.Materials, h)
		}
	}
	gm.Instances = append(gm.Instances[:0], m.instances...)
	gm.CastsShadows = m.castsShadows
	gm.ReceivesShadows = m.receivesShadows
	gm.UsedInBakedLighting = m.usedInBakedLighting
	gm.Opacity = m.opacity
	return gm
}
