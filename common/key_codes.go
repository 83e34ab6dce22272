package common

// Key is a virtual key code. Values match GLFW key codes, which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
type Key uint32

const (
	KeyW         Key = 87  // W key (ASCII)
	KeyA         Key = 65  // A key (ASCII)
	KeyS         Key = 83  // S key (ASCII)
	KeyD         Key = 68  // D key (ASCII)
	KeyQ         Key = 81  // Q key (ASCII)
	KeyZ         Key = 90  // Z key (ASCII)
	KeyR         Key = 82  // R key (ASCII)
	KeyE         Key = 69  // E key (ASCII)
	KeySpace     Key = 32  // Spacebar (ASCII)
	KeyBackspace Key = 259 // Backspace key (GLFW)
	KeyEsc       Key = 256 // Escape key (GLFW)

	KeyRight    Key = 262 // Right arrow (GLFW)
	KeyLeft     Key = 263 // Left arrow (GLFW)
	KeyDown     Key = 264 // Down arrow (GLFW)
	KeyUp       Key = 265 // Up arrow (GLFW)
	KeyPageUp   Key = 266 // Page Up (GLFW)
	KeyPageDown Key = 267 // Page Down (GLFW)
	KeyHome     Key = 268 // Home (GLFW)
)

// Additional non-printable keys
const (
	KeyLeftShift    Key = 340 // Left Shift (GLFW)
	KeyLeftControl  Key = 341 // Left Control (GLFW)
	KeyLeftAlt      Key = 342 // Left Alt (GLFW)
	KeyRightShift   Key = 344 // Right Shift (GLFW)
	KeyRightControl Key = 345 // Right Control (GLFW)
	KeyRightAlt     Key = 346 // Right Alt (GLFW)
)

// ModifierKeys is a bit set of held modifier keys. Bits match glfw.ModifierKey.
type ModifierKeys uint8

const (
	ModShift   ModifierKeys = 1 << 0
	ModControl ModifierKeys = 1 << 1
	ModAlt     ModifierKeys = 1 << 2
	ModSuper   ModifierKeys = 1 << 3
)

// Has reports whether every bit of m is set.
func (k ModifierKeys) Has(m ModifierKeys) bool {
	return k&m == m
}

// MouseButton identifies a pointer button. Values match glfw.MouseButton.
type MouseButton int

const (
	MouseButtonLeft   MouseButton = 0
	MouseButtonRight  MouseButton = 1
	MouseButtonMiddle MouseButton = 2
)
