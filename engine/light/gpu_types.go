package light

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-view/common"
)

// MaxGPULights is the maximum number of lights marshaled into one proxy batch
// upload. Larger batches are split by the caller.
const MaxGPULights = 1024

// GPULightSource is the WGSL definition of the Light struct.
// Matches GPULight layout exactly (64 bytes, std430 aligned).
const GPULightSource = `struct Light {
    position: vec3<f32>,
    light_type: u32,
    color: vec3<f32>,
    intensity: f32,
    direction: vec3<f32>,
    light_range: f32,
    inner_cone: f32,
    outer_cone: f32,
    casts_shadows: u32,
    _pad: u32,
};
`

// GPULight is the GPU-aligned representation of a single light source.
// Size: 64 bytes (std430 / WGSL aligned).
type GPULight struct {
	Position     [3]float32 // offset  0: world-space position (point/spot)
	LightType    uint32     // offset 12: LightType value
	Color        [3]float32 // offset 16: RGB color
	Intensity    float32    // offset 28: scalar multiplier
	Direction    [3]float32 // offset 32: normalized direction (directional/spot)
	LightRange   float32    // offset 44: attenuation cutoff distance
	InnerCone    float32    // offset 48: cos(inner half-angle) for spot
	OuterCone    float32    // offset 52: cos(outer half-angle) for spot
	CastsShadows uint32     // offset 56: 1 = casts shadows, 0 = does not
	_pad         uint32     // offset 60: padding to 64-byte alignment
}

// NewGPULight converts a light snapshot into its GPU representation.
//
// Parameters:
//   - p: the light snapshot
//
// Returns:
//   - GPULight: the GPU-aligned representation
func NewGPULight(p Params) GPULight {
	shadowVal := uint32(0)
	if p.CastsShadows {
		shadowVal = 1
	}
	return GPULight{
		Position:     p.Position,
		LightType:    uint32(p.Type),
		Color:        [3]float32{p.Color.R, p.Color.G, p.Color.B},
		Intensity:    p.Intensity,
		Direction:    p.Direction,
		LightRange:   p.Range,
		InnerCone:    p.InnerCone,
		OuterCone:    p.OuterCone,
		CastsShadows: shadowVal,
	}
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 64)
	putVec3(buf[0:12], g.Position)
	binary.LittleEndian.PutUint32(buf[12:16], g.LightType)
	putVec3(buf[16:28], g.Color)
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
	putVec3(buf[32:44], g.Direction)
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.LightRange))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(g.InnerCone))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(g.OuterCone))
	binary.LittleEndian.PutUint32(buf[56:60], g.CastsShadows)
	return buf
}

// GPULightHeader is the header prepended to a light batch buffer.
// Size: 16 bytes (vec3 + u32, std430 aligned).
type GPULightHeader struct {
	AmbientColor [3]float32 // offset 0: ambient RGB
	LightCount   uint32     // offset 12: number of lights following the header
}

// Size returns the size of the GPULightHeader struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (h *GPULightHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// Marshal serializes the GPULightHeader struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (h *GPULightHeader) Marshal() []byte {
	buf := make([]byte, 16)
	putVec3(buf[0:12], h.AmbientColor)
	binary.LittleEndian.PutUint32(buf[12:16], h.LightCount)
	return buf
}

// MarshalLightBuffer marshals light snapshots into a byte buffer suitable for
// GPU upload. The buffer layout is:
//
//	[GPULightHeader (16 bytes)] [GPULight × count (64 bytes each)]
//
// At most MaxGPULights lights are written; the rest are dropped.
//
// Parameters:
//   - lights: the light snapshots
//   - ambient: the ambient color written to the header
//
// Returns:
//   - []byte: the marshaled buffer ready for GPU upload
func MarshalLightBuffer(lights []Params, ambient common.Color) []byte {
	count := min(len(lights), MaxGPULights)
	header := GPULightHeader{
		AmbientColor: [3]float32{ambient.R, ambient.G, ambient.B},
		LightCount:   uint32(count),
	}
	headerSize := header.Size()
	lightSize := (&GPULight{}).Size()

	buf := make([]byte, headerSize+count*lightSize)
	copy(buf, header.Marshal())
	offset := headerSize
	for _, p := range lights[:count] {
		gpu := NewGPULight(p)
		copy(buf[offset:offset+lightSize], gpu.Marshal())
		offset += lightSize
	}
	return buf
}

func putVec3(dst []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v[2]))
}
