// Package lightmapper bakes direct lighting into the vertices of models. A bake blocks the calling
// goroutine until every model is done; it can be cancelled from any other goroutine.
package lightmapper

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/light"
	"github.com/Carmen-Shannon/oxy-scene/engine/picking"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrBakeCancelled is returned by a bake stopped through Cancel.
	ErrBakeCancelled = errors.New("lightmapper: bake cancelled")
	// ErrBakeRunning is returned when a bake is started while another one runs.
	ErrBakeRunning = errors.New("lightmapper: a bake is already running")
)

// pollInterval bounds how long a cancel request waits for the next finished model.
const pollInterval = 10 * time.Millisecond

// Progress is reported after each baked model.
type Progress struct {
	// Model is the model that finished.
	Model graph.Handle
	// Done and Total count finished and scheduled models.
	Done, Total int
}

// Result summarizes a finished bake.
type Result struct {
	// Models are the baked models in layer order.
	Models []graph.Handle
	// Vertices is the number of lit vertices over all models.
	Vertices int
	// Lights is the number of lights that contributed.
	Lights   int
	Duration time.Duration
}

// Lightmapper computes per-vertex direct lighting with shadow rays for the models of a layer that
// take part in baked lighting, and stores it in their Lighting field.
type Lightmapper interface {
	// Bake lights every visible model flagged UsedInBakedLighting under layer with the visible lights
	// whose bake mode is not BakeDisabled. Shadow rays are traced against visible shadow casting models
	// whose opacity is at least settings.Opacity. Bake blocks until all models are lit; the lighting is
	// written to the models only when the whole bake completes.
	//
	// Parameters:
	//   - arena: the backend arena, which must not change during the bake
	//   - layer: the layer whose subtree is baked
	//   - settings: the layer's lightmapper settings
	//   - progress: called on the calling goroutine after each model, may be nil
	//
	// Returns:
	//   - Result: the bake summary
	//   - error: ErrBakeCancelled after Cancel, ErrBakeRunning, or an error if the layer is missing
	Bake(arena *graph.Arena, layer graph.Handle, settings graph.LightmapperSettings, progress func(Progress)) (Result, error)

	// Cancel asks the running bake to stop. It is safe to call from any goroutine.
	Cancel()

	// Running reports whether a bake is in progress.
	//
	// Returns:
	//   - bool: true while Bake runs
	Running() bool

	// Close stops the workers and the shadow ray picker the lightmapper created itself. A later
	// Bake still works, running its jobs on the calling goroutine.
	Close()
}

type lightmapper struct {
	buffers   *buffer_manager.BufferManager
	picker    picking.Picker
	ownPicker bool
	pool      picking.TaskRunner
	ownPool   *picking.Pool
	workers   int
	bias      float32

	cancelled atomic.Bool
	running   atomic.Bool
	taskID    atomic.Int64
}

var _ Lightmapper = &lightmapper{}

// NewLightmapper creates a lightmapper reading meshes from bm.
//
// Parameters:
//   - bm: the buffer manager holding model meshes
//   - options: optional LightmapperBuilderOption functions
//
// Returns:
//   - Lightmapper: the new lightmapper
func NewLightmapper(bm *buffer_manager.BufferManager, options ...LightmapperBuilderOption) Lightmapper {
	if bm == nil {
		panic("lightmapper: NewLightmapper requires a buffer manager")
	}
	l := &lightmapper{
		buffers: bm,
		workers: runtime.NumCPU(),
		bias:    light.ShadowBias,
	}
	for _, opt := range options {
		opt(l)
	}
	if l.picker == nil {
		l.picker = picking.NewPicker(bm)
		l.ownPicker = true
	}
	if l.pool == nil {
		l.ownPool = picking.NewPool(l.workers, 256)
		l.pool = l.ownPool
	}
	return l
}

func (l *lightmapper) Close() {
	if l.ownPool != nil {
		l.ownPool.Close()
	}
	if l.ownPicker {
		l.picker.Close()
	}
}

func (l *lightmapper) Cancel() {
	l.cancelled.Store(true)
}

func (l *lightmapper) Running() bool {
	return l.running.Load()
}

// target is one model to bake.
type target struct {
	handle graph.Handle
	model  *graph.Model
	mesh   *buffer_manager.Mesh
	lights []light.Resolved
}

type baked struct {
	index    int
	lighting []common.Color
}

func (l *lightmapper) Bake(arena *graph.Arena, layer graph.Handle, settings graph.LightmapperSettings, progress func(Progress)) (Result, error) {
	if !l.running.CompareAndSwap(false, true) {
		return Result{}, ErrBakeRunning
	}
	defer l.running.Store(false)
	l.cancelled.Store(false)

	start := time.Now()
	if arena == nil || !arena.Contains(layer) {
		return Result{}, fmt.Errorf("lightmapper: layer %v not found", layer)
	}
	arena.CalculateGlobalTransforms(layer)
	targets, casters, lightCount := l.collect(arena, layer, settings)
	if len(targets) == 0 {
		return Result{Duration: time.Since(start)}, nil
	}
	common.Logger().Info("Lightmap bake started", "layer", layer, "models", len(targets), "lights", lightCount)

	results := make(chan baked, len(targets))
	var wg sync.WaitGroup
	for i := range targets {
		wg.Add(1)
		t := &targets[i]
		index := i
		l.pool.SubmitTask(worker.Task{
			ID: int(l.taskID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				results <- baked{index: index, lighting: l.bakeModel(arena, layer, t, casters)}
				return nil, nil
			},
		})
	}

	lighting := make([][]common.Color, len(targets))
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	for done := 0; done < len(targets); {
		select {
		case r := <-results:
			done++
			lighting[r.index] = r.lighting
			if progress != nil {
				progress(Progress{Model: targets[r.index].handle, Done: done, Total: len(targets)})
			}
		case <-poll.C:
		}
		if l.cancelled.Load() {
			wg.Wait()
			common.Logger().Info("Lightmap bake cancelled", "layer", layer, "done", done, "total", len(targets))
			return Result{}, ErrBakeCancelled
		}
	}

	res := Result{Lights: lightCount}
	for i, t := range targets {
		t.model.Lighting = lighting[i]
		res.Models = append(res.Models, t.handle)
		res.Vertices += len(lighting[i])
	}
	arena.Touch()
	res.Duration = time.Since(start)
	common.Logger().Info("Lightmap bake finished", "layer", layer, "models", len(res.Models), "vertices", res.Vertices, "duration", res.Duration)
	return res, nil
}

// collect walks the visible subtree of layer for bake targets, shadow casters and baked lights.
func (l *lightmapper) collect(arena *graph.Arena, layer graph.Handle, settings graph.LightmapperSettings) ([]target, []graph.Handle, int) {
	var (
		targets []target
		casters []graph.Handle
		lights  []graph.Handle
	)
	arena.Walk(layer, func(h graph.Handle, n graph.Spatial) bool {
		if !n.SpatialNode().Visible {
			return false
		}
		switch obj := n.(type) {
		case *graph.Light:
			if obj.BakeMode != graph.BakeDisabled {
				lights = append(lights, h)
			}
		case *graph.Model:
			if obj.CastsShadows && obj.Opacity >= settings.Opacity {
				casters = append(casters, h)
			}
			if !obj.UsedInBakedLighting {
				return true
			}
			mesh, ok := l.buffers.ModelMesh(arena, obj)
			if !ok {
				common.WarnOnce("lightmapper.mesh."+obj.MeshKey(), "Model mesh is unknown, skipping bake", "model", h)
				return true
			}
			targets = append(targets, target{handle: h, model: obj, mesh: mesh})
		}
		return true
	})
	for i := range targets {
		targets[i].lights = light.Collect(arena, lights, targets[i].handle)
	}
	return targets, casters, len(lights)
}

// bakeModel lights every vertex of the model's first instance. It returns nil when cancelled.
func (l *lightmapper) bakeModel(arena *graph.Arena, layer graph.Handle, t *target, casters []graph.Handle) []common.Color {
	world := arena.WorldInstances(t.model)[0]
	normalMat := world.Mat3().Inv().Transpose()
	out := make([]common.Color, t.mesh.VertexCount())
	for i := range out {
		if l.cancelled.Load() {
			return nil
		}
		p := world.Mul4x1(t.mesh.Vertex(i).Vec4(1)).Vec3()
		n := normalMat.Mul3x1(mgl32.Vec3{t.mesh.Normals[i*3], t.mesh.Normals[i*3+1], t.mesh.Normals[i*3+2]})
		if n.Len() > 0 {
			n = n.Normalize()
		}
		var c common.Color
		for _, r := range t.lights {
			contrib := r.Lambert(p, n)
			if contrib.R == 0 && contrib.G == 0 && contrib.B == 0 {
				continue
			}
			if r.CastsShadows && t.model.ReceivesShadows && l.occluded(arena, layer, r, p, n, casters) {
				continue
			}
			c = c.Add(contrib)
		}
		c.A = 1
		out[i] = c
	}
	return out
}

// occluded traces a shadow ray from p toward the light.
func (l *lightmapper) occluded(arena *graph.Arena, layer graph.Handle, r light.Resolved, p, n mgl32.Vec3, casters []graph.Handle) bool {
	if len(casters) == 0 {
		return false
	}
	dir, dist, _ := r.Incidence(p)
	ray := picking.Ray{Origin: p.Add(n.Mul(l.bias)), Direction: dir}
	hits := l.picker.PickSubset(ray, arena, layer, casters)
	return len(hits) > 0 && hits[0].Distance < dist
}
