package shader

// Paths of the built-in shaders.
const (
	BuiltinUnlit      = "builtin/unlit.wgsl"
	BuiltinBlit       = "builtin/blit.wgsl"
	BuiltinBlend      = "builtin/blend.wgsl"
	BuiltinDownsample = "builtin/downsample.wgsl"
	BuiltinTonemap    = "builtin/tonemap.wgsl"
)

// ModelPrelude declares the vertex stage and bindings shared by every model fragment shader.
// Custom material shaders are appended to it and must define
// "@fragment fn fs_main(in: VertexOut) -> @location(0) vec4f".
const ModelPrelude = `
struct Frame {
    view_proj: mat4x4f,
    color: vec4f,
    flags: vec4f,
};

@group(0) @binding(0) var<uniform> frame: Frame;
@group(0) @binding(1) var<storage, read> instances: array<mat4x4f>;
@group(1) @binding(0) var base_tex: texture_2d<f32>;
@group(1) @binding(1) var base_samp: sampler;

struct VertexIn {
    @location(0) position: vec3f,
    @location(1) normal: vec3f,
    @location(2) uv: vec2f,
};

struct VertexOut {
    @builtin(position) clip: vec4f,
    @location(0) normal: vec3f,
    @location(1) uv: vec2f,
};

@vertex
fn vs_main(v: VertexIn, @builtin(instance_index) inst: u32) -> VertexOut {
    var out: VertexOut;
    let world = instances[inst];
    out.clip = frame.view_proj * world * vec4f(v.position, 1.0);
    out.normal = (world * vec4f(v.normal, 0.0)).xyz;
    out.uv = v.uv;
    return out;
}
`

// FullscreenPrelude declares the full-screen triangle and the source texture shared by every
// post-processing pass. Passes are appended to it and must define
// "@fragment fn fs_main(in: FullscreenOut) -> @location(0) vec4f".
const FullscreenPrelude = `
struct FullscreenOut {
    @builtin(position) clip: vec4f,
    @location(0) uv: vec2f,
};

@group(0) @binding(0) var src_tex: texture_2d<f32>;
@group(0) @binding(1) var src_samp: sampler;
@group(0) @binding(2) var<uniform> params: array<vec4f, 4>;

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> FullscreenOut {
    var out: FullscreenOut;
    let uv = vec2f(f32((idx << 1u) & 2u), f32(idx & 2u));
    out.clip = vec4f(uv * vec2f(2.0, -2.0) + vec2f(-1.0, 1.0), 0.0, 1.0);
    out.uv = uv;
    return out;
}
`

const unlitFragment = `
@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4f {
    var c = frame.color;
    if (frame.flags.x > 0.5) {
        c = c * textureSample(base_tex, base_samp, in.uv);
    }
    return c;
}
`

const blitFragment = `
@fragment
fn fs_main(in: FullscreenOut) -> @location(0) vec4f {
    return textureSample(src_tex, src_samp, in.uv);
}
`

// The blend pass weighs the frame by params[0].x and the accumulator at binding 3 by params[0].y.
const blendFragment = `
@group(0) @binding(3) var accum_tex: texture_2d<f32>;

@fragment
fn fs_main(in: FullscreenOut) -> @location(0) vec4f {
    let f = params[0].xy;
    return textureSample(src_tex, src_samp, in.uv) * f.x + textureSample(accum_tex, src_samp, in.uv) * f.y;
}
`

const tonemapFragment = `
@fragment
fn fs_main(in: FullscreenOut) -> @location(0) vec4f {
    let c = textureSample(src_tex, src_samp, in.uv);
    return vec4f(c.rgb / (c.rgb + vec3f(1.0)), c.a);
}
`

var builtinSources = map[string]string{
	BuiltinUnlit:      ModelPrelude + unlitFragment,
	BuiltinBlit:       FullscreenPrelude + blitFragment,
	BuiltinBlend:      FullscreenPrelude + blendFragment,
	BuiltinDownsample: FullscreenPrelude + blitFragment,
	BuiltinTonemap:    FullscreenPrelude + tonemapFragment,
}
