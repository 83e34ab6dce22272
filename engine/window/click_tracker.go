package window

import (
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/chewxy/math32"
)

// clickTracker detects double clicks from a stream of button presses.
type clickTracker struct {
	interval time.Duration
	slop     float32

	button common.MouseButton
	at     time.Time
	x, y   float32
	armed  bool
}

// newClickTracker creates a tracker.
//
// Parameters:
//   - interval: maximum time between the two presses
//   - slop: maximum distance in pixels between the two presses
//
// Returns:
//   - *clickTracker: the tracker
func newClickTracker(interval time.Duration, slop float32) *clickTracker {
	return &clickTracker{interval: interval, slop: slop}
}

// press records a button press.
//
// Returns:
//   - bool: true if the press completes a double click; the next press starts a new pair
func (c *clickTracker) press(button common.MouseButton, x, y float32, now time.Time) bool {
	if c.armed && button == c.button && now.Sub(c.at) <= c.interval &&
		math32.Abs(x-c.x) <= c.slop && math32.Abs(y-c.y) <= c.slop {
		c.armed = false
		return true
	}
	c.button, c.at, c.x, c.y, c.armed = button, now, x, y, true
	return false
}
