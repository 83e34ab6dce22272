package render

import (
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/light"
)

// Slot identifies one render target owned by a TargetArena.
type Slot int

const (
	SlotColor Slot = iota
	SlotDepthStencil
	SlotMSAA
	SlotGBuffer0
	SlotGBuffer1
	SlotGBuffer2
	SlotGBuffer3
	SlotPing
	SlotPong
	SlotShadowMap

	slotCount
)

// GBufferSlots lists the G-buffer channels in binding order: normal, diffuse,
// specular, position.
var GBufferSlots = [4]Slot{SlotGBuffer0, SlotGBuffer1, SlotGBuffer2, SlotGBuffer3}

var slotNames = [slotCount]string{
	"color", "depth-stencil", "msaa",
	"gbuffer0", "gbuffer1", "gbuffer2", "gbuffer3",
	"ping", "pong", "shadow-map",
}

func (s Slot) String() string {
	if s < 0 || s >= slotCount {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return slotNames[s]
}

type slotDesc struct {
	slot Slot
	desc TargetDesc
}

// MinTargetSize is the floor applied to every target dimension.
const MinTargetSize = 100

// ArenaOptions selects which optional targets Build allocates.
type ArenaOptions struct {
	// MSAA is the sample count of the multisampled color target; values below 2
	// disable it.
	MSAA int

	// GBuffer allocates the four G-buffer channels and the ping-pong pair.
	GBuffer bool

	// Shadows allocates the shadow depth map.
	Shadows bool
}

// TargetArena owns every render target of a host, keyed by Slot, so that they
// are created and released together.
type TargetArena struct {
	device  Device
	targets [slotCount]Target
	size    common.Size
	opts    ArenaOptions
}

// NewTargetArena creates an empty arena allocating from device.
func NewTargetArena(device Device) *TargetArena {
	return &TargetArena{device: device}
}

// ClampTargetSize applies MinTargetSize to both dimensions.
func ClampTargetSize(size common.Size) common.Size {
	return common.Size{
		Width:  max(size.Width, MinTargetSize),
		Height: max(size.Height, MinTargetSize),
	}
}

// Build tears down the current targets and allocates a new set of the given
// size. When an allocation fails every target created so far is released and
// the arena is left empty.
//
// Parameters:
//   - size: requested size, clamped to MinTargetSize
//   - opts: optional targets to allocate
//
// Returns:
//   - error: the wrapped device error
func (a *TargetArena) Build(size common.Size, opts ArenaOptions) error {
	a.TearDown()
	size = ClampTargetSize(size)

	descs := []slotDesc{
		{SlotColor, TargetDesc{Format: FormatRGBA8, Samples: 1, BackBuffer: true}},
		{SlotDepthStencil, TargetDesc{Format: FormatDepth24Stencil8, Samples: max(opts.MSAA, 1)}},
	}
	if opts.MSAA > 1 {
		descs = append(descs, slotDesc{SlotMSAA, TargetDesc{Format: FormatRGBA8, Samples: opts.MSAA}})
	}
	if opts.GBuffer {
		for _, s := range []Slot{SlotGBuffer0, SlotGBuffer1, SlotGBuffer2, SlotGBuffer3, SlotPing, SlotPong} {
			descs = append(descs, slotDesc{s, TargetDesc{Format: FormatRGBA16F, Samples: 1}})
		}
	}

	for _, d := range descs {
		d.desc.Label = d.slot.String()
		d.desc.Size = size
		// G-buffer passes share the single-sampled depth buffer.
		if opts.GBuffer && d.slot == SlotDepthStencil {
			d.desc.Samples = 1
		}
		t, err := a.device.CreateTarget(d.desc)
		if err != nil {
			a.TearDown()
			return fmt.Errorf("failed to create %s target: %w", d.slot, err)
		}
		a.targets[d.slot] = t
	}

	if opts.Shadows {
		res := light.ShadowMapResolution
		t, err := a.device.CreateTarget(TargetDesc{
			Label:   SlotShadowMap.String(),
			Size:    common.Size{Width: res, Height: res},
			Format:  FormatDepth32F,
			Samples: 1,
		})
		if err != nil {
			a.TearDown()
			return fmt.Errorf("failed to create %s target: %w", SlotShadowMap, err)
		}
		a.targets[SlotShadowMap] = t
	}

	a.size = size
	a.opts = opts
	return nil
}

// Get returns the target in slot, or nil when it is not allocated.
func (a *TargetArena) Get(slot Slot) Target {
	if slot < 0 || slot >= slotCount {
		return nil
	}
	return a.targets[slot]
}

// GBuffer returns the four G-buffer channels, or nil when they are not allocated.
func (a *TargetArena) GBuffer() []Target {
	if a.targets[SlotGBuffer0] == nil {
		return nil
	}
	out := make([]Target, len(GBufferSlots))
	for i, s := range GBufferSlots {
		out[i] = a.targets[s]
	}
	return out
}

// Size returns the size of the screen-sized targets.
func (a *TargetArena) Size() common.Size {
	return a.size
}

// Bounds returns the pixel rectangle of the screen-sized targets.
func (a *TargetArena) Bounds() image.Rectangle {
	return image.Rect(0, 0, a.size.Width, a.size.Height)
}

// Options returns the options of the last successful Build.
func (a *TargetArena) Options() ArenaOptions {
	return a.opts
}

// Live returns the number of allocated targets.
func (a *TargetArena) Live() int {
	n := 0
	for _, t := range a.targets {
		if t != nil {
			n++
		}
	}
	return n
}

// TearDown releases every target. It is safe to call on an empty arena.
func (a *TargetArena) TearDown() {
	for i := len(a.targets) - 1; i >= 0; i-- {
		if a.targets[i] != nil {
			a.targets[i].Release()
			a.targets[i] = nil
		}
	}
	a.size = common.Size{}
}
