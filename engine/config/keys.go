package config

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/controller"
)

var keyNames = map[common.Key]string{
	common.KeyW:            "w",
	common.KeyA:            "a",
	common.KeyS:            "s",
	common.KeyD:            "d",
	common.KeyQ:            "q",
	common.KeyZ:            "z",
	common.KeyR:            "r",
	common.KeyE:            "e",
	common.KeySpace:        "space",
	common.KeyBackspace:    "backspace",
	common.KeyRight:        "right",
	common.KeyLeft:         "left",
	common.KeyDown:         "down",
	common.KeyUp:           "up",
	common.KeyPageUp:       "page_up",
	common.KeyPageDown:     "page_down",
	common.KeyHome:         "home",
	common.KeyLeftShift:    "left_shift",
	common.KeyLeftControl:  "left_control",
	common.KeyLeftAlt:      "left_alt",
	common.KeyRightShift:   "right_shift",
	common.KeyRightControl: "right_control",
	common.KeyRightAlt:     "right_alt",
}

var actionNames = map[controller.KeyAction]string{
	controller.KeyActionNone:        "none",
	controller.KeyActionRotateLeft:  "rotate_left",
	controller.KeyActionRotateRight: "rotate_right",
	controller.KeyActionRotateUp:    "rotate_up",
	controller.KeyActionRotateDown:  "rotate_down",
	controller.KeyActionZoomIn:      "zoom_in",
	controller.KeyActionZoomOut:     "zoom_out",
	controller.KeyActionUndo:        "undo",
	controller.KeyActionMoveForward: "move_forward",
	controller.KeyActionMoveBack:    "move_back",
	controller.KeyActionMoveLeft:    "move_left",
	controller.KeyActionMoveRight:   "move_right",
	controller.KeyActionMoveUp:      "move_up",
	controller.KeyActionMoveDown:    "move_down",
	controller.KeyActionReset:       "reset",
}

var (
	keyByName    = invert(keyNames)
	actionByName = invert(actionNames)
)

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
