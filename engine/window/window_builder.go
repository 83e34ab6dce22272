package window

import (
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
)

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the title bar text.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial framebuffer size the viewport is started with.
// The platform may hand back a different size on high-DPI displays; read
// Width and Height after NewWindow returns.
//
// Parameters:
//   - size: initial size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(size common.Size) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = size.Width
		w.height = size.Height
	}
}

// WithSizeLimits bounds how far the user can resize the window. Render
// targets below 100 pixels on a side are clamped by the render host anyway,
// so a smaller minimum only wastes space on an upscaled image.
//
// Parameters:
//   - min: smallest allowed size in pixels (default 320x240)
//   - max: largest allowed size in pixels (default 3840x2160)
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(min, max common.Size) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth, w.minHeight = min.Width, min.Height
		w.maxWidth, w.maxHeight = max.Width, max.Height
	}
}

// WithEscapeToClose controls whether pressing Escape closes the window.
// Enabled by default.
func WithEscapeToClose(enabled bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.escapeCloses = enabled
	}
}

// WithDoubleClick sets how close in time and space two presses of the same
// button must be to count as a double click.
//
// Parameters:
//   - interval: maximum time between the presses (default 500ms)
//   - slop: maximum distance in pixels between the presses (default 4)
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithDoubleClick(interval time.Duration, slop float32) WindowBuilderOption {
	return func(w *engineWindow) {
		w.clicks = newClickTracker(interval, slop)
	}
}
