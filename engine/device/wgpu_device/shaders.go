package wgpu_device

import (
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
)

// frameSource declares group 0, shared by every pipeline that reads frame
// constants: the camera, a light list and the scene parameters.
const frameSource = camera.GPUCameraUniformSource + light.GPULightSource + `
struct LightBuffer {
    ambient: vec3<f32>,
    count: u32,
    lights: array<Light>,
};

struct FrameParams {
    scene_radius: f32,
    _pad0: f32,
    _pad1: f32,
    _pad2: f32,
};

@group(0) @binding(0) var<uniform> camera: CameraUniform;
@group(0) @binding(1) var<storage, read> light_buffer: LightBuffer;
@group(0) @binding(2) var<uniform> frame: FrameParams;

fn shade(l: Light, p: vec3<f32>, n: vec3<f32>, diffuse: vec3<f32>, specular: vec3<f32>, shininess: f32) -> vec3<f32> {
    let col = l.color * l.intensity;
    if (l.light_type == 3u) {
        return diffuse * col;
    }
    var to_light = -l.direction;
    var atten = 1.0;
    if (l.light_type == 1u || l.light_type == 2u) {
        let d = l.position - p;
        let dist = length(d);
        if (dist >= l.light_range || dist < 1e-6) {
            return vec3<f32>(0.0);
        }
        to_light = d / dist;
        let falloff = 1.0 - dist / l.light_range;
        atten = falloff * falloff;
        if (l.light_type == 2u) {
            atten = atten * smoothstep(l.outer_cone, l.inner_cone, dot(-to_light, l.direction));
        }
    }
    let ndotl = dot(n, to_light);
    if (ndotl <= 0.0 || atten <= 0.0) {
        return vec3<f32>(0.0);
    }
    var out = diffuse * col * ndotl;
    if (shininess > 0.0) {
        let view = normalize(camera.camera_position - p);
        let half_dir = normalize(to_light + view);
        out = out + specular * col * pow(max(dot(n, half_dir), 0.0), shininess);
    }
    return out * atten;
}
`

// meshSource draws render.Mesh geometry. The instance stream carries the world
// matrix and the material of one DrawMesh call.
const meshSource = frameSource + `
struct VertexIn {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) m0: vec4<f32>,
    @location(3) m1: vec4<f32>,
    @location(4) m2: vec4<f32>,
    @location(5) m3: vec4<f32>,
    @location(6) diffuse: vec4<f32>,
    @location(7) specular: vec4<f32>,
};

struct VertexOut {
    @builtin(position) clip: vec4<f32>,
    @location(0) world: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) diffuse: vec4<f32>,
    @location(3) specular: vec4<f32>,
};

struct GBufferOut {
    @location(0) normal: vec4<f32>,
    @location(1) diffuse: vec4<f32>,
    @location(2) specular: vec4<f32>,
    @location(3) position: vec4<f32>,
};

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
    let model = mat4x4<f32>(in.m0, in.m1, in.m2, in.m3);
    let world = model * vec4<f32>(in.position, 1.0);
    var out: VertexOut;
    var clip = camera.view_proj * world;
    clip.z = (clip.z + clip.w) * 0.5;
    out.clip = clip;
    out.world = world.xyz;
    out.normal = (model * vec4<f32>(in.normal, 0.0)).xyz;
    out.diffuse = in.diffuse;
    out.specular = in.specular;
    return out;
}

@fragment
fn fs_forward(in: VertexOut) -> @location(0) vec4<f32> {
    if (light_buffer.count == 0u) {
        return vec4<f32>(in.diffuse.rgb, 1.0);
    }
    let n = normalize(in.normal);
    var sum = vec3<f32>(0.0);
    for (var i = 0u; i < light_buffer.count; i = i + 1u) {
        sum = sum + shade(light_buffer.lights[i], in.world, n, in.diffuse.rgb, in.specular.rgb, in.specular.a);
    }
    return vec4<f32>(sum, 1.0);
}

@fragment
fn fs_gbuffer(in: VertexOut) -> GBufferOut {
    var out: GBufferOut;
    let n = normalize(in.normal);
    out.normal = vec4<f32>(n * 0.5 + 0.5, 1.0);
    out.diffuse = vec4<f32>(in.diffuse.rgb, 1.0);
    out.specular = vec4<f32>(in.specular.rgb, clamp(in.specular.a / 255.0, 0.0, 1.0));
    out.position = vec4<f32>(in.world / (2.0 * frame.scene_radius) + 0.5, 1.0);
    return out;
}
`

// fullscreenSource emits one triangle covering the viewport.
const fullscreenSource = `
@vertex
fn vs_fullscreen(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
    let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    return vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
}
`

// lightingSource evaluates the lights in light_buffer for every G-buffer texel.
// Texels without geometry are cleared by the opaque pass and skipped by the
// additive ones.
const lightingSource = frameSource + fullscreenSource + `
@group(1) @binding(0) var gbuffer_normal: texture_2d<f32>;
@group(1) @binding(1) var gbuffer_diffuse: texture_2d<f32>;
@group(1) @binding(2) var gbuffer_specular: texture_2d<f32>;
@group(1) @binding(3) var gbuffer_position: texture_2d<f32>;

fn lighting(coord: vec2<i32>) -> vec4<f32> {
    let nc = textureLoad(gbuffer_normal, coord, 0);
    if (nc.a == 0.0) {
        return vec4<f32>(0.0);
    }
    let n = normalize(nc.rgb * 2.0 - 1.0);
    let diffuse = textureLoad(gbuffer_diffuse, coord, 0).rgb;
    let sc = textureLoad(gbuffer_specular, coord, 0);
    let p = (textureLoad(gbuffer_position, coord, 0).rgb - 0.5) * 2.0 * frame.scene_radius;
    var sum = vec3<f32>(0.0);
    for (var i = 0u; i < light_buffer.count; i = i + 1u) {
        sum = sum + shade(light_buffer.lights[i], p, n, diffuse, sc.rgb, sc.a * 255.0);
    }
    return vec4<f32>(sum, 1.0);
}

@fragment
fn fs_lighting_opaque(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return lighting(vec2<i32>(pos.xy));
}

@fragment
fn fs_lighting_additive(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    let c = lighting(vec2<i32>(pos.xy));
    if (c.a == 0.0) {
        discard;
    }
    return c;
}
`

// blitSource copies a source rectangle into the viewport, scaling with
// nearest sampling.
const blitSource = fullscreenSource + `
struct BlitParams {
    src_min: vec2<f32>,
    src_size: vec2<f32>,
    dst_min: vec2<f32>,
    dst_size: vec2<f32>,
};

@group(0) @binding(0) var blit_source: texture_2d<f32>;
@group(0) @binding(1) var<uniform> blit: BlitParams;

@fragment
fn fs_blit(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    let uv = (pos.xy - blit.dst_min) / blit.dst_size;
    let coord = blit.src_min + uv * blit.src_size;
    return textureLoad(blit_source, vec2<i32>(coord), 0);
}
`
