package render

import (
	"image"
	"slices"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/go-gl/mathgl/mgl32"
)

// CommandList is a Context that records commands for later execution on another
// goroutine. Arguments are copied at record time, so a recorded list never reads
// scene state again.
type CommandList struct {
	cmds []func(Context)
}

var _ Context = &CommandList{}

// NewCommandList returns an empty command list.
func NewCommandList() *CommandList {
	return &CommandList{}
}

// Len returns the number of recorded commands.
func (l *CommandList) Len() int {
	return len(l.cmds)
}

// Execute replays the recorded commands on ctx and flushes it.
//
// Parameters:
//   - ctx: the executing context, usually a device's immediate context
//
// Returns:
//   - error: the error returned by ctx.Flush
func (l *CommandList) Execute(ctx Context) error {
	for _, cmd := range l.cmds {
		cmd(ctx)
	}
	return ctx.Flush()
}

func (l *CommandList) SetRenderTargets(depth Target, colors ...Target) {
	colors = slices.Clone(colors)
	l.cmds = append(l.cmds, func(c Context) { c.SetRenderTargets(depth, colors...) })
}

func (l *CommandList) SetShaderResources(inputs ...Target) {
	inputs = slices.Clone(inputs)
	l.cmds = append(l.cmds, func(c Context) { c.SetShaderResources(inputs...) })
}

func (l *CommandList) SetViewport(r image.Rectangle) {
	l.cmds = append(l.cmds, func(c Context) { c.SetViewport(r) })
}

func (l *CommandList) SetBlendMode(m BlendMode) {
	l.cmds = append(l.cmds, func(c Context) { c.SetBlendMode(m) })
}

func (l *CommandList) SetFrameConstants(fc FrameConstants) {
	fc.Lights = slices.Clone(fc.Lights)
	l.cmds = append(l.cmds, func(c Context) { c.SetFrameConstants(fc) })
}

func (l *CommandList) ClearRenderTarget(t Target, col common.Color) {
	l.cmds = append(l.cmds, func(c Context) { c.ClearRenderTarget(t, col) })
}

func (l *CommandList) ClearDepthStencil(t Target, depth float32, stencil uint8) {
	l.cmds = append(l.cmds, func(c Context) { c.ClearDepthStencil(t, depth, stencil) })
}

// DrawMesh records a draw of m. The mesh itself is shared, not copied; meshes
// are treated as immutable once drawn.
func (l *CommandList) DrawMesh(m *Mesh, world mgl32.Mat4, mat Material) {
	l.cmds = append(l.cmds, func(c Context) { c.DrawMesh(m, world, mat) })
}

func (l *CommandList) DrawProxy(kind ProxyKind, instances []ProxyInstance) {
	instances = slices.Clone(instances)
	l.cmds = append(l.cmds, func(c Context) { c.DrawProxy(kind, instances) })
}

func (l *CommandList) CopyRegion(dst Target, dstRect image.Rectangle, src Target, srcRect image.Rectangle) {
	l.cmds = append(l.cmds, func(c Context) { c.CopyRegion(dst, dstRect, src, srcRect) })
}

func (l *CommandList) Resolve(dst, src Target) {
	l.cmds = append(l.cmds, func(c Context) { c.Resolve(dst, src) })
}

// Flush is a no-op while recording; Execute flushes the executing context.
func (l *CommandList) Flush() error {
	return nil
}
