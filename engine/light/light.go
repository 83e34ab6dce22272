package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun. Affects all fragments
	// uniformly with no distance attenuation and is drawn with a full-screen quad.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance up to a configurable range and is drawn with a
	// sphere proxy scaled to that range.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Attenuates with both distance and angle from the cone axis, controlled by inner
	// and outer cone angles, and is drawn with a cone proxy.
	LightTypeSpot

	// LightTypeAmbient is a constant term added to every lit fragment before the
	// additive light passes.
	LightTypeAmbient
)

// String returns the lower-case name of the light type.
func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	case LightTypeAmbient:
		return "ambient"
	}
	return "unknown"
}

// Params is an immutable snapshot of a light, safe to hand to another goroutine.
type Params struct {
	Type         LightType
	Position     mgl32.Vec3
	Direction    mgl32.Vec3
	Color        common.Color
	Intensity    float32
	Range        float32
	InnerCone    float32 // cos(inner half-angle)
	OuterCone    float32 // cos(outer half-angle)
	CastsShadows bool
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu           *sync.Mutex
	lightType    LightType
	position     mgl32.Vec3
	direction    mgl32.Vec3
	color        common.Color
	intensity    float32
	lightRange   float32
	innerCone    float32 // stored as cos(angle in radians)
	outerCone    float32 // stored as cos(angle in radians)
	enabled      bool
	castsShadows bool
}

// Light defines the interface for a light source in the scene.
//
// Lights contribute to the deferred lighting pass, where each enabled light is
// drawn as proxy geometry batched by type, and to the forward Blinn-Phong path.
// All light types share this interface; type-specific properties (e.g. cone
// angles for spot lights) are ignored when not applicable.
//
// Lights may be mutated from the UI goroutine while a frame is being recorded,
// so renderers read them through Params.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for directional and ambient lights.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Direction returns the normalized direction of the light.
	// For directional lights this is the light direction. For spot lights this
	// is the cone axis. Meaningless for point and ambient lights.
	//
	// Returns:
	//   - mgl32.Vec3: normalized direction
	Direction() mgl32.Vec3

	// Color returns the color of the light.
	//
	// Returns:
	//   - common.Color: the color
	Color() common.Color

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Range returns the maximum attenuation distance for point and spot lights.
	// Beyond this distance the light contributes zero energy.
	//
	// Returns:
	//   - float32: the range value
	Range() float32

	// Enabled returns whether this light is active for rendering.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// CastsShadows returns whether this light renders into the shadow map.
	//
	// Returns:
	//   - bool: true if the light casts shadows
	CastsShadows() bool

	// Params returns a snapshot of every light property.
	//
	// Returns:
	//   - Params: the snapshot
	Params() Params

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - p: the position
	SetPosition(p mgl32.Vec3)

	// SetDirection sets the direction of the light and normalizes it. A zero
	// vector is ignored.
	//
	// Parameters:
	//   - d: direction (will be normalized)
	SetDirection(d mgl32.Vec3)

	// SetColor sets the color of the light.
	//
	// Parameters:
	//   - c: the color
	SetColor(c common.Color)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// SetRange sets the maximum attenuation distance.
	//
	// Parameters:
	//   - lightRange: the range value
	SetRange(lightRange float32)

	// SetSpotCone sets the inner and outer cone half-angles for spot lights.
	// Angles are specified in degrees and stored internally as cosines.
	//
	// Parameters:
	//   - innerDeg: inner cone half-angle in degrees
	//   - outerDeg: outer cone half-angle in degrees
	SetSpotCone(innerDeg, outerDeg float32)

	// SetEnabled enables or disables the light for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetCastsShadows sets whether the light is eligible for shadow mapping.
	//
	// Parameters:
	//   - castsShadows: true to enable shadow casting
	SetCastsShadows(castsShadows bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:         &sync.Mutex{},
		lightType:  lightType,
		direction:  mgl32.Vec3{0, -1, 0},
		color:      common.ColorWhite,
		intensity:  1.0,
		lightRange: 10.0,
		innerCone:  0.9063, // cos(25°)
		outerCone:  0.8192, // cos(35°)
		enabled:    true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) Color() common.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lightRange
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) CastsShadows() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.castsShadows
}

func (l *lightImpl) Params() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Params{
		Type:         l.lightType,
		Position:     l.position,
		Direction:    l.direction,
		Color:        l.color,
		Intensity:    l.intensity,
		Range:        l.lightRange,
		InnerCone:    l.innerCone,
		OuterCone:    l.outerCone,
		CastsShadows: l.castsShadows,
	}
}

func (l *lightImpl) SetPosition(p mgl32.Vec3) {
	if !common.IsFiniteVec3(p) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = p
}

func (l *lightImpl) SetDirection(d mgl32.Vec3) {
	n, ok := common.SafeNormalize(d)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = n
}

func (l *lightImpl) SetColor(c common.Color) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = c
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lightRange = lightRange
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.castsShadows = castsShadows
}
