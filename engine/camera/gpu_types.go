package camera

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUFrameUniform is the per-draw uniform of the model shaders. It matches the WGSL Frame struct
// at group 0 binding 0 of the model prelude.
// Size: 96 bytes (WGSL aligned).
type GPUFrameUniform struct {
	ViewProj [16]float32 // offset  0: view-projection matrix (mat4x4<f32>)
	Color    [4]float32  // offset 64: base color (vec4<f32>)
	Flags    [4]float32  // offset 80: x > 0.5 samples base_tex (vec4<f32>)
}

// NewGPUFrameUniform packs the per-draw values.
//
// Parameters:
//   - viewProj: the jittered view-projection matrix
//   - color: the draw color
//   - textured: true if the base color map is bound
//
// Returns:
//   - GPUFrameUniform: the uniform
func NewGPUFrameUniform(viewProj mgl32.Mat4, color common.Color, textured bool) GPUFrameUniform {
	u := GPUFrameUniform{
		ViewProj: viewProj,
		Color:    [4]float32{color.R, color.G, color.B, color.A},
	}
	if textured {
		u.Flags[0] = 1
	}
	return u
}

// Size returns the size of the GPUFrameUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUFrameUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFrameUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUFrameUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Color[i]))
		binary.LittleEndian.PutUint32(buf[80+i*4:], math.Float32bits(g.Flags[i]))
	}
	return buf
}
