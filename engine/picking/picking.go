// Package picking intersects rays with the models and 2D subscene proxies of a layer.
package picking

import (
	"sort"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a half line in scene space. Direction does not need to be normalized.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point at parameter t.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Result is one ray hit.
type Result struct {
	// Object is the hit Model or Item2D.
	Object     graph.Handle
	Distance   float32
	DistanceSq float32
	// ScenePosition and LocalPosition are the hit point in world and object space.
	ScenePosition mgl32.Vec3
	LocalPosition mgl32.Vec3
	// UV is the interpolated texture coordinate with its origin at the bottom-left corner.
	UV mgl32.Vec2
	// Normal is the world-space face normal, facing the ray origin.
	Normal mgl32.Vec3
	// InstanceIndex is the hit instance, or -1 for models that are not instanced.
	InstanceIndex int
	// Subscene is the Item2D the hit lands on, with SubscenePosition in its pixel space.
	Subscene         graph.Handle
	SubscenePosition mgl32.Vec2

	order int
}

// ViewportRay builds the pick ray through a viewport pixel.
//
// Parameters:
//   - proj: the camera projection, or nil when the layer has no camera
//   - x, y: the point in the viewport's coordinate space
//   - viewport: the viewport rectangle
//
// Returns:
//   - Ray: the pick ray
//   - bool: false without a camera or when the point is outside the viewport
func ViewportRay(proj *camera.Projection, x, y float32, viewport common.Rect) (Ray, bool) {
	if proj == nil {
		return Ray{}, false
	}
	origin, dir, ok := proj.Unproject(x, y, viewport)
	if !ok {
		return Ray{}, false
	}
	return Ray{Origin: origin, Direction: dir}, true
}

// Picker finds ray intersections in a layer. Triangle tests run on a worker pool.
type Picker interface {
	// Pick returns the nearest hit.
	//
	// Parameters:
	//   - ray: the pick ray
	//   - arena: the backend arena
	//   - layer: the layer or subtree root to search
	//
	// Returns:
	//   - Result: the nearest hit
	//   - bool: false if nothing was hit
	Pick(ray Ray, arena *graph.Arena, layer graph.Handle) (Result, bool)

	// PickAll returns every hit ordered by distance.
	//
	// Parameters:
	//   - ray: the pick ray
	//   - arena: the backend arena
	//   - layer: the layer or subtree root to search
	//
	// Returns:
	//   - []Result: the hits, nearest first
	PickAll(ray Ray, arena *graph.Arena, layer graph.Handle) []Result

	// PickSubset is PickAll restricted to the given objects. Non-pickable objects in the subset
	// are still tested.
	//
	// Parameters:
	//   - ray: the pick ray
	//   - arena: the backend arena
	//   - layer: the layer or subtree root to search
	//   - objects: the candidate models and items
	//
	// Returns:
	//   - []Result: the hits, nearest first
	PickSubset(ray Ray, arena *graph.Arena, layer graph.Handle, objects []graph.Handle) []Result

	// Close stops the workers the picker started itself. A pool given with WithWorkerPool is left
	// running. Picks after Close run on the calling goroutine.
	Close()
}

type picker struct {
	mu      *sync.Mutex
	buffers *buffer_manager.BufferManager
	pool    TaskRunner
	own     *Pool
	workers int
	taskID  int
}

var _ Picker = &picker{}

// NewPicker creates a picker reading meshes from bm.
//
// Parameters:
//   - bm: the buffer manager holding model meshes
//   - options: functional options to configure the picker
//
// Returns:
//   - Picker: the new picker
func NewPicker(bm *buffer_manager.BufferManager, options ...PickerBuilderOption) Picker {
	if bm == nil {
		panic("picking: NewPicker requires a buffer manager")
	}
	p := &picker{
		mu:      &sync.Mutex{},
		buffers: bm,
		workers: 4,
	}
	for _, option := range options {
		option(p)
	}
	if p.pool == nil {
		p.own = NewPool(p.workers, 256)
		p.pool = p.own
	}
	return p
}

func (p *picker) Close() {
	if p.own != nil {
		p.own.Close()
	}
}

func (p *picker) Pick(ray Ray, arena *graph.Arena, layer graph.Handle) (Result, bool) {
	hits := p.pick(ray, arena, layer, nil)
	if len(hits) == 0 {
		return Result{}, false
	}
	return hits[0], true
}

func (p *picker) PickAll(ray Ray, arena *graph.Arena, layer graph.Handle) []Result {
	return p.pick(ray, arena, layer, nil)
}

func (p *picker) PickSubset(ray Ray, arena *graph.Arena, layer graph.Handle, objects []graph.Handle) []Result {
	subset := make(map[graph.Handle]struct{}, len(objects))
	for _, h := range objects {
		subset[h] = struct{}{}
	}
	return p.pick(ray, arena, layer, subset)
}

// candidate is one instance of a pickable object.
type candidate struct {
	handle   graph.Handle
	order    int
	instance int
	world    mgl32.Mat4
	mesh     *buffer_manager.Mesh
	subscene *graph.Item2D
}

func (p *picker) pick(ray Ray, arena *graph.Arena, layer graph.Handle, subset map[graph.Handle]struct{}) []Result {
	if arena == nil || ray.Direction.Len() == 0 {
		return nil
	}
	candidates := p.collect(ray, arena, layer, subset)
	if len(candidates) == 0 {
		return nil
	}

	hits := make([]*Result, len(candidates))
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		c := &candidates[i]
		slot := &hits[i]
		p.pool.SubmitTask(worker.Task{
			ID: p.nextTaskID(),
			Do: func() (any, error) {
				defer wg.Done()
				if r, ok := intersectCandidate(ray, c); ok {
					*slot = &r
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	out := make([]Result, 0, len(hits))
	for _, r := range hits {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceSq != out[j].DistanceSq {
			return out[i].DistanceSq < out[j].DistanceSq
		}
		if out[i].order != out[j].order {
			return out[i].order < out[j].order
		}
		return out[i].InstanceIndex < out[j].InstanceIndex
	})
	return out
}

func (p *picker) nextTaskID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taskID++
	return p.taskID
}

// collect walks the layer in pre-order and keeps the instances whose world box the ray enters.
// Candidate order is the walk order then the instance index, which is the tie-break for hits at
// equal distance.
func (p *picker) collect(ray Ray, arena *graph.Arena, layer graph.Handle, subset map[graph.Handle]struct{}) []candidate {
	var out []candidate
	order := 0
	arena.Walk(layer, func(h graph.Handle, n graph.Spatial) bool {
		node := n.SpatialNode()
		if !node.Visible {
			return false
		}
		if subset != nil {
			if _, ok := subset[h]; !ok {
				return true
			}
		} else if !node.Pickable {
			return true
		}
		order++
		switch obj := n.(type) {
		case *graph.Model:
			mesh, ok := p.buffers.ModelMesh(arena, obj)
			if !ok || mesh.Bounds.IsEmpty() {
				return true
			}
			worlds := arena.WorldInstances(obj)
			for i, world := range worlds {
				if !rayHitsBox(ray, mesh.Bounds.Transform(world)) {
					continue
				}
				idx := i
				if len(obj.Instances) == 0 {
					idx = -1
				}
				out = append(out, candidate{handle: h, order: order, instance: idx, world: world, mesh: mesh})
			}
		case *graph.Item2D:
			mesh, ok := p.buffers.Mesh(buffer_manager.MeshRectangle)
			if !ok || obj.Size.Empty() {
				return true
			}
			world := obj.Transform()
			if !rayHitsBox(ray, mesh.Bounds.Transform(world)) {
				return true
			}
			out = append(out, candidate{handle: h, order: order, instance: -1, world: world, mesh: mesh, subscene: obj})
		}
		return true
	})
	return out
}

// intersectCandidate tests every triangle of the candidate in its local space and keeps the
// nearest hit in front of the ray origin.
func intersectCandidate(ray Ray, c *candidate) (Result, bool) {
	inv := c.world.Inv()
	local := Ray{
		Origin:    inv.Mul4x1(ray.Origin.Vec4(1)).Vec3(),
		Direction: inv.Mul4x1(ray.Direction.Vec4(0)).Vec3(),
	}
	bestT := math32.Inf(1)
	bestTri := -1
	var bestU, bestV float32
	for tri := 0; tri < c.mesh.TriangleCount(); tri++ {
		i0, i1, i2 := c.mesh.Triangle(tri)
		t, u, v, ok := intersectTriangle(local, c.mesh.Vertex(int(i0)), c.mesh.Vertex(int(i1)), c.mesh.Vertex(int(i2)))
		if ok && t < bestT {
			bestT, bestTri, bestU, bestV = t, tri, u, v
		}
	}
	if bestTri < 0 {
		return Result{}, false
	}

	i0, i1, i2 := c.mesh.Triangle(bestTri)
	a, b, d := c.mesh.Vertex(int(i0)), c.mesh.Vertex(int(i1)), c.mesh.Vertex(int(i2))
	w := 1 - bestU - bestV
	uv := c.mesh.UV(int(i0)).Mul(w).Add(c.mesh.UV(int(i1)).Mul(bestU)).Add(c.mesh.UV(int(i2)).Mul(bestV))
	uv[1] = 1 - uv[1]

	localPos := local.At(bestT)
	scenePos := c.world.Mul4x1(localPos.Vec4(1)).Vec3()
	normal := c.world.Mat3().Inv().Transpose().Mul3x1(b.Sub(a).Cross(d.Sub(a)))
	if normal.Len() > 0 {
		normal = normal.Normalize()
	}
	if normal.Dot(ray.Direction) > 0 {
		normal = normal.Mul(-1)
	}
	distSq := scenePos.Sub(ray.Origin).LenSqr()

	r := Result{
		Object:        c.handle,
		Distance:      math32.Sqrt(distSq),
		DistanceSq:    distSq,
		ScenePosition: scenePos,
		LocalPosition: localPos,
		UV:            uv,
		Normal:        normal,
		InstanceIndex: c.instance,
		order:         c.order,
	}
	if c.subscene != nil {
		r.Subscene = c.handle
		r.SubscenePosition = SubscenePosition(uv, c.subscene.Size)
	}
	return r, true
}

// SubscenePosition maps a texture coordinate on a subscene rectangle to the subscene's pixel
// space, whose origin is the top-left corner.
//
// Parameters:
//   - uv: the hit texture coordinate
//   - size: the subscene size in pixels
//
// Returns:
//   - mgl32.Vec2: the pixel position
func SubscenePosition(uv mgl32.Vec2, size common.Size) mgl32.Vec2 {
	return mgl32.Vec2{uv.X() * float32(size.Width), (1 - uv.Y()) * float32(size.Height)}
}
