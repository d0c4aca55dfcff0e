// Package buffer_manager tracks mesh and texture residency for one window. It owns the CPU-side
// meshes used for bounds and picking, and the device buffers and textures built from them.
package buffer_manager

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnknownMesh is returned for mesh keys that are neither primitives nor registered.
var ErrUnknownMesh = errors.New("buffer_manager: unknown mesh")

// ErrInvalidMesh is returned for meshes whose indices do not describe triangles over their vertices.
var ErrInvalidMesh = errors.New("buffer_manager: invalid mesh")

// imageResidency is the device texture of one Image. texture is nil when no device is present.
type imageResidency struct {
	texture rhi.Texture
	source  graph.Handle
	version uint64
	size    common.Size
}

// BufferManager owns meshes and image textures. It is safe for concurrent use, but device
// objects are only created on the render thread.
type BufferManager struct {
	mu     *sync.Mutex
	device rhi.Device

	meshes    map[string]*Mesh
	gpuMeshes map[string]rhi.Mesh
	images    map[graph.Handle]*imageResidency
}

// NewBufferManager creates a buffer manager with the primitive meshes registered.
//
// Parameters:
//   - device: the device to upload to, or nil to track residency only
//
// Returns:
//   - *BufferManager: the new buffer manager
func NewBufferManager(device rhi.Device) *BufferManager {
	bm := &BufferManager{
		mu:        &sync.Mutex{},
		device:    device,
		meshes:    make(map[string]*Mesh),
		gpuMeshes: make(map[string]rhi.Mesh),
		images:    make(map[graph.Handle]*imageResidency),
	}
	for _, m := range primitiveMeshes() {
		bm.meshes[m.Key] = m
	}
	return bm
}

// SetDevice switches the upload device. Device objects built on the previous device are released
// and rebuilt lazily.
func (bm *BufferManager) SetDevice(device rhi.Device) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if bm.device == device {
		return
	}
	bm.releaseDeviceObjects()
	bm.device = device
}

// Device returns the upload device, or nil.
func (bm *BufferManager) Device() rhi.Device {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.device
}

// RegisterMesh stores a custom mesh under key, replacing any previous mesh and its device buffers.
// An invalid mesh is not stored and any previous mesh under key is dropped.
//
// Parameters:
//   - key: the mesh key
//   - m: the mesh data
//
// Returns:
//   - error: an ErrInvalidMesh wrap if m fails Validate
func (bm *BufferManager) RegisterMesh(key string, m *Mesh) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	m.Key = key
	err := m.Validate()
	if err != nil {
		common.WarnOnce("buffer_manager.invalid."+key, "Mesh skipped", "error", err)
		delete(bm.meshes, key)
	} else {
		bm.meshes[key] = m
	}
	if gm, ok := bm.gpuMeshes[key]; ok {
		gm.Release()
		delete(bm.gpuMeshes, key)
	}
	return err
}

// Mesh returns the CPU mesh registered under key.
//
// Parameters:
//   - key: a primitive key such as "#Cube" or a registered key
//
// Returns:
//   - *Mesh: the mesh
//   - bool: false if no mesh has that key
func (bm *BufferManager) Mesh(key string) (*Mesh, bool) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	m, ok := bm.meshes[key]
	return m, ok
}

// ModelMesh returns the mesh a model draws, loading its custom geometry when needed.
//
// Parameters:
//   - a: the arena holding the model
//   - model: the model
//
// Returns:
//   - *Mesh: the mesh
//   - bool: false if the model's mesh is unknown
func (bm *BufferManager) ModelMesh(a *graph.Arena, model *graph.Model) (*Mesh, bool) {
	if model.Geometry.IsValid() {
		m, err := bm.LoadGeometry(a, model.Geometry)
		return m, err == nil
	}
	return bm.Mesh(model.Source)
}

// LoadGeometry registers the mesh of a Geometry resource, rebuilding it when the geometry version changed.
//
// Parameters:
//   - a: the arena holding the geometry
//   - h: the geometry handle
//
// Returns:
//   - *Mesh: the mesh
//   - error: an ErrUnknownMesh wrap if h is not a live geometry, an ErrInvalidMesh wrap if its
//     indices are out of range
func (bm *BufferManager) LoadGeometry(a *graph.Arena, h graph.Handle) (*Mesh, error) {
	g, ok := graph.Lookup[*graph.Geometry](a, h)
	if !ok {
		return nil, fmt.Errorf("%w: geometry %s", ErrUnknownMesh, h)
	}
	key := h.String()

	bm.mu.Lock()
	defer bm.mu.Unlock()
	if m, ok := bm.meshes[key]; ok && m.Version == g.Version {
		return m, nil
	}
	if gm, ok := bm.gpuMeshes[key]; ok {
		gm.Release()
		delete(bm.gpuMeshes, key)
	}
	m := NewMesh(key, g.Positions, g.Normals, g.UVs, g.Indices)
	m.Version = g.Version
	if err := m.Validate(); err != nil {
		delete(bm.meshes, key)
		common.WarnOnce(fmt.Sprintf("buffer_manager.invalid.%s.%d", key, g.Version), "Geometry skipped", "error", err)
		return nil, err
	}
	bm.meshes[key] = m
	return m, nil
}

// ModelBounds returns the local bounding box of a model's mesh.
//
// Parameters:
//   - a: the arena holding the model
//   - h: the model handle
//
// Returns:
//   - mgl32.Vec3: the minimum corner
//   - mgl32.Vec3: the maximum corner
//   - bool: false if h is not a model or its mesh is unknown
func (bm *BufferManager) ModelBounds(a *graph.Arena, h graph.Handle) (mgl32.Vec3, mgl32.Vec3, bool) {
	model, ok := graph.Lookup[*graph.Model](a, h)
	if !ok {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	m, ok := bm.ModelMesh(a, model)
	if !ok || m.Bounds.IsEmpty() {
		return mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	return m.Bounds.Min, m.Bounds.Max, true
}

// RenderMesh returns the device mesh for key, uploading it on first use.
//
// Parameters:
//   - key: the mesh key
//
// Returns:
//   - rhi.Mesh: the device mesh
//   - error: rhi.ErrNoDevice without a device, ErrUnknownMesh for unknown keys
func (bm *BufferManager) RenderMesh(key string) (rhi.Mesh, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if gm, ok := bm.gpuMeshes[key]; ok {
		return gm, nil
	}
	if bm.device == nil {
		return nil, rhi.ErrNoDevice
	}
	m, ok := bm.meshes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMesh, key)
	}
	gm, err := bm.device.NewMesh(m.Interleaved())
	if err != nil {
		return nil, fmt.Errorf("failed to upload mesh %q: %w", key, err)
	}
	bm.gpuMeshes[key] = gm
	return gm, nil
}

// LoadRenderImage makes an Image resident. Images backed by TextureData are uploaded, re-uploading
// when the data version changed. Images rendered from a subscene get a texture at the subscene size
// for the renderer to draw into. Without a device only the residency is recorded.
//
// Parameters:
//   - a: the arena holding the image
//   - h: the image handle
//
// Returns:
//   - rhi.Texture: the device texture, or nil without a device
//   - error: an error if h is not an image or the upload failed
func (bm *BufferManager) LoadRenderImage(a *graph.Arena, h graph.Handle) (rhi.Texture, error) {
	img, ok := graph.Lookup[*graph.Image](a, h)
	if !ok {
		return nil, fmt.Errorf("buffer_manager: %s is not a live image", h)
	}

	var (
		size    common.Size
		pixels  []byte
		version uint64
		source  graph.Handle
	)
	switch {
	case img.Source.IsValid():
		td, ok := graph.Lookup[*graph.TextureData](a, img.Source)
		if !ok {
			return nil, fmt.Errorf("buffer_manager: image %s has no texture data", h)
		}
		size = common.Size{Width: td.Width, Height: td.Height}
		pixels, version, source = td.Pixels, td.Version, img.Source
		if img.FlipV {
			pixels = flipRows(pixels, td.Width, td.Height)
		}
	case img.Subscene.IsValid():
		item, ok := graph.Lookup[*graph.Item2D](a, img.Subscene)
		if !ok {
			return nil, fmt.Errorf("buffer_manager: image %s has no subscene", h)
		}
		size, source = item.Size, img.Subscene
	default:
		return nil, fmt.Errorf("buffer_manager: image %s has no source", h)
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	res, ok := bm.images[h]
	if !ok {
		res = &imageResidency{}
		bm.images[h] = res
	}
	if bm.device == nil {
		res.source, res.version, res.size = source, version, size
		return nil, nil
	}
	if res.texture != nil && res.source == source && res.version == version && res.size == size {
		return res.texture, nil
	}

	if res.texture == nil {
		tex, err := bm.device.NewTexture(rhi.TextureDesc{Label: "Image " + h.String(), Size: size, Format: rhi.FormatRGBA8})
		if err != nil {
			return nil, err
		}
		res.texture = tex
	}
	res.texture.SetPixelSize(size)
	if err := res.texture.Build(); err != nil {
		return nil, fmt.Errorf("failed to build image %s: %w", h, err)
	}
	if pixels != nil {
		if err := bm.device.UploadTexture(res.texture, pixels); err != nil {
			return nil, fmt.Errorf("failed to upload image %s: %w", h, err)
		}
	}
	res.source, res.version, res.size = source, version, size
	return res.texture, nil
}

// ImageTexture returns the resident texture of an image without loading it.
func (bm *BufferManager) ImageTexture(h graph.Handle) (rhi.Texture, bool) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	res, ok := bm.images[h]
	if !ok || res.texture == nil {
		return nil, false
	}
	return res.texture, true
}

// ReleaseImage drops the residency of an image. Releasing an unknown image does nothing.
//
// Parameters:
//   - h: the image handle
//
// Returns:
//   - bool: true if residency was dropped by this call
func (bm *BufferManager) ReleaseImage(h graph.Handle) bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	res, ok := bm.images[h]
	if !ok {
		return false
	}
	if res.texture != nil {
		res.texture.Release()
	}
	delete(bm.images, h)
	return true
}

// ReleaseMesh drops the mesh registered for a Geometry handle. Primitive meshes are never released.
//
// Parameters:
//   - h: the geometry handle
//
// Returns:
//   - bool: true if a mesh was dropped by this call
func (bm *BufferManager) ReleaseMesh(h graph.Handle) bool {
	key := h.String()
	bm.mu.Lock()
	defer bm.mu.Unlock()
	_, cpu := bm.meshes[key]
	gm, gpu := bm.gpuMeshes[key]
	if gpu {
		gm.Release()
		delete(bm.gpuMeshes, key)
	}
	delete(bm.meshes, key)
	return cpu || gpu
}

// RegisteredImages returns the resident image handles in slot order.
func (bm *BufferManager) RegisteredImages() []graph.Handle {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	out := make([]graph.Handle, 0, len(bm.images))
	for h := range bm.images {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// RegisteredMeshes returns the keys of every known mesh in sorted order.
func (bm *BufferManager) RegisteredMeshes() []string {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return common.SortedKeys(bm.meshes)
}

// Release drops every device object. CPU meshes stay registered.
func (bm *BufferManager) Release() {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.releaseDeviceObjects()
}

func (bm *BufferManager) releaseDeviceObjects() {
	for key, gm := range bm.gpuMeshes {
		gm.Release()
		delete(bm.gpuMeshes, key)
	}
	for _, res := range bm.images {
		if res.texture != nil {
			res.texture.Release()
			res.texture = nil
		}
	}
}

func flipRows(pixels []byte, width, height int) []byte {
	row := width * 4
	if len(pixels) < row*height {
		return pixels
	}
	out := make([]byte, row*height)
	for y := 0; y < height; y++ {
		copy(out[y*row:(y+1)*row], pixels[(height-1-y)*row:(height-y)*row])
	}
	return out
}
