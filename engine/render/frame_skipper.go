package render

import (
	"sync"
	"time"
)

// FrameSkipper gates rendering to a maximum frame rate.
type FrameSkipper struct {
	mu       *sync.Mutex
	interval time.Duration
	last     time.Duration
	started  bool
}

// NewFrameSkipper creates a skipper allowing at most maxFPS frames per second.
// A maxFPS of zero or less disables the ceiling.
func NewFrameSkipper(maxFPS int) *FrameSkipper {
	s := &FrameSkipper{mu: &sync.Mutex{}}
	s.SetMaxFPS(maxFPS)
	return s
}

// SetMaxFPS changes the ceiling.
func (s *FrameSkipper) SetMaxFPS(maxFPS int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxFPS <= 0 {
		s.interval = 0
		return
	}
	s.interval = time.Second / time.Duration(maxFPS)
}

// Interval returns the minimum time between two allowed frames.
func (s *FrameSkipper) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// ShouldSkip reports whether a tick at now comes too soon after the last allowed
// one. An allowed tick becomes the new reference point.
//
// Parameters:
//   - now: the compositor timestamp
//
// Returns:
//   - bool: true when the tick must not render
func (s *FrameSkipper) ShouldSkip(now time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval == 0 {
		return false
	}
	if s.started && now >= s.last && now-s.last < s.interval {
		return true
	}
	s.last = now
	s.started = true
	return false
}
