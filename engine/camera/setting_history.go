package camera

import "sync"

// DefaultHistoryCapacity is the number of snapshots kept by the undo history.
const DefaultHistoryCapacity = 100

// SettingHistory is a bounded LIFO of camera snapshots used for undo.
// When full, pushing evicts the oldest snapshot so the history never grows past its capacity.
type SettingHistory interface {
	// Push stores s as the most recent snapshot, evicting the oldest one when full.
	//
	// Parameters:
	//   - s: the snapshot to store
	Push(s CameraSetting)

	// Pop removes and returns the most recent snapshot.
	//
	// Returns:
	//   - CameraSetting: the most recent snapshot
	//   - bool: false if the history is empty
	Pop() (CameraSetting, bool)

	// Len returns the number of stored snapshots.
	//
	// Returns:
	//   - int: the current size
	Len() int

	// Capacity returns the maximum number of stored snapshots.
	//
	// Returns:
	//   - int: the fixed capacity
	Capacity() int

	// Snapshots returns the stored snapshots ordered oldest first.
	//
	// Returns:
	//   - []CameraSetting: a copy of the stored snapshots
	Snapshots() []CameraSetting

	// Clear drops every stored snapshot.
	Clear()
}

type settingHistoryImpl struct {
	mu    *sync.Mutex
	items []CameraSetting
	head  int // index of the oldest entry
	count int
}

var _ SettingHistory = &settingHistoryImpl{}

// NewSettingHistory creates a ring buffer holding at most capacity snapshots.
// A non-positive capacity falls back to DefaultHistoryCapacity.
//
// Parameters:
//   - capacity: maximum number of snapshots
//
// Returns:
//   - SettingHistory: the empty history
func NewSettingHistory(capacity int) SettingHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &settingHistoryImpl{
		mu:    &sync.Mutex{},
		items: make([]CameraSetting, capacity),
	}
}

func (h *settingHistoryImpl) Push(s CameraSetting) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := len(h.items)
	if h.count == c {
		h.items[h.head] = s
		h.head = (h.head + 1) % c
		return
	}
	h.items[(h.head+h.count)%c] = s
	h.count++
}

func (h *settingHistoryImpl) Pop() (CameraSetting, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return CameraSetting{}, false
	}
	h.count--
	i := (h.head + h.count) % len(h.items)
	s := h.items[i]
	h.items[i] = CameraSetting{}
	return s, true
}

func (h *settingHistoryImpl) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *settingHistoryImpl) Capacity() int {
	return len(h.items)
}

func (h *settingHistoryImpl) Snapshots() []CameraSetting {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]CameraSetting, h.count)
	for i := range h.count {
		out[i] = h.items[(h.head+i)%len(h.items)]
	}
	return out
}

func (h *settingHistoryImpl) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.items)
	h.head = 0
	h.count = 0
}
