package controller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("controller: invalid config")

// CameraMode selects how rotation and zoom move the camera.
type CameraMode int

const (
	// CameraModeInspect orbits the camera around the pivot point.
	CameraModeInspect CameraMode = iota

	// CameraModeWalkAround turns the view direction around the camera position.
	CameraModeWalkAround

	// CameraModeFixedPosition never translates the camera; zoom changes the field of view.
	CameraModeFixedPosition
)

var cameraModeNames = map[CameraMode]string{
	CameraModeInspect:       "inspect",
	CameraModeWalkAround:    "walkaround",
	CameraModeFixedPosition: "fixedposition",
}

func (m CameraMode) String() string {
	if s, ok := cameraModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("CameraMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m CameraMode) MarshalText() ([]byte, error) {
	if _, ok := cameraModeNames[m]; !ok {
		return nil, fmt.Errorf("%w: unknown camera mode %d", ErrInvalidConfig, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (m *CameraMode) UnmarshalText(b []byte) error {
	for k, v := range cameraModeNames {
		if strings.EqualFold(v, string(b)) {
			*m = k
			return nil
		}
	}
	return fmt.Errorf("%w: unknown camera mode %q", ErrInvalidConfig, string(b))
}

// RotationMode selects how a 2D drag maps to a 3D rotation.
type RotationMode int

const (
	// RotationModeTurntable yaws about the model up direction and pitches about the camera right axis.
	RotationModeTurntable RotationMode = iota

	// RotationModeTrackball rotates along a virtual sphere under the cursor.
	RotationModeTrackball

	// RotationModeTurnball yaws about the camera up direction and pitches about the camera right axis.
	RotationModeTurnball
)

var rotationModeNames = map[RotationMode]string{
	RotationModeTurntable: "turntable",
	RotationModeTrackball: "trackball",
	RotationModeTurnball:  "turnball",
}

func (m RotationMode) String() string {
	if s, ok := rotationModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("RotationMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m RotationMode) MarshalText() ([]byte, error) {
	if _, ok := rotationModeNames[m]; !ok {
		return nil, fmt.Errorf("%w: unknown rotation mode %d", ErrInvalidConfig, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Matching is case-insensitive.
func (m *RotationMode) UnmarshalText(b []byte) error {
	for k, v := range rotationModeNames {
		if strings.EqualFold(v, string(b)) {
			*m = k
			return nil
		}
	}
	return fmt.Errorf("%w: unknown rotation mode %q", ErrInvalidConfig, string(b))
}

// KeyAction is a keyboard command understood by the controller.
type KeyAction int

const (
	KeyActionNone KeyAction = iota
	KeyActionRotateLeft
	KeyActionRotateRight
	KeyActionRotateUp
	KeyActionRotateDown
	KeyActionZoomIn
	KeyActionZoomOut
	KeyActionUndo
	KeyActionMoveForward
	KeyActionMoveBack
	KeyActionMoveLeft
	KeyActionMoveRight
	KeyActionMoveUp
	KeyActionMoveDown
	KeyActionReset
)

// DefaultKeyBindings returns the stock keyboard layout: arrows rotate (pan with Shift),
// PageUp/PageDown zoom, Backspace undoes, W/A/S/D/Q/Z move, Home resets.
//
// Returns:
//   - map[common.Key]KeyAction: a fresh binding map
func DefaultKeyBindings() map[common.Key]KeyAction {
	return map[common.Key]KeyAction{
		common.KeyLeft:      KeyActionRotateLeft,
		common.KeyRight:     KeyActionRotateRight,
		common.KeyUp:        KeyActionRotateUp,
		common.KeyDown:      KeyActionRotateDown,
		common.KeyPageUp:    KeyActionZoomIn,
		common.KeyPageDown:  KeyActionZoomOut,
		common.KeyBackspace: KeyActionUndo,
		common.KeyW:         KeyActionMoveForward,
		common.KeyS:         KeyActionMoveBack,
		common.KeyA:         KeyActionMoveLeft,
		common.KeyD:         KeyActionMoveRight,
		common.KeyQ:         KeyActionMoveUp,
		common.KeyZ:         KeyActionMoveDown,
		common.KeyHome:      KeyActionReset,
	}
}

// Config is the complete option set of a CameraController. It is applied as a whole
// through CameraController.ApplyConfig.
type Config struct {
	CameraMode   CameraMode   `toml:"camera_mode"`
	RotationMode RotationMode `toml:"rotation_mode"`

	IsInertiaEnabled bool    `toml:"inertia_enabled"`
	InertiaFactor    float32 `toml:"inertia_factor"`
	InfiniteSpin     bool    `toml:"infinite_spin"`

	IsRotationEnabled          bool `toml:"rotation_enabled"`
	IsPanEnabled               bool `toml:"pan_enabled"`
	IsZoomEnabled              bool `toml:"zoom_enabled"`
	IsMoveEnabled              bool `toml:"move_enabled"`
	IsChangeFieldOfViewEnabled bool `toml:"change_fov_enabled"`

	RotationSensitivity          float32 `toml:"rotation_sensitivity"`
	ZoomSensitivity              float32 `toml:"zoom_sensitivity"`
	LeftRightRotationSensitivity float32 `toml:"left_right_rotation_sensitivity"`
	UpDownRotationSensitivity    float32 `toml:"up_down_rotation_sensitivity"`
	LeftRightPanSensitivity      float32 `toml:"left_right_pan_sensitivity"`
	UpDownPanSensitivity         float32 `toml:"up_down_pan_sensitivity"`
	PageUpDownZoomSensitivity    float32 `toml:"page_up_down_zoom_sensitivity"`
	MoveSensitivity              float32 `toml:"move_sensitivity"`

	ZoomDistanceLimitNear float32 `toml:"zoom_distance_limit_near"`
	ZoomDistanceLimitFar  float32 `toml:"zoom_distance_limit_far"`
	MinimumFieldOfView    float32 `toml:"min_fov"`
	MaximumFieldOfView    float32 `toml:"max_fov"`

	FixedRotationPointEnabled  bool       `toml:"fixed_rotation_point_enabled"`
	FixedRotationPoint         mgl32.Vec3 `toml:"fixed_rotation_point"`
	RotateAroundMouseDownPoint bool       `toml:"rotate_around_mouse_down_point"`
	ZoomAroundMouseDownPoint   bool       `toml:"zoom_around_mouse_down_point"`
	ModelUpDirection           mgl32.Vec3 `toml:"model_up_direction"`

	// SpinReleaseTime is the longest pause in milliseconds between the last drag
	// movement and the button release that still counts as a flick.
	SpinReleaseTime int `toml:"spin_release_time"`

	EnableTouchRotate    bool `toml:"touch_rotate"`
	EnablePinchZoom      bool `toml:"pinch_zoom"`
	EnableThreeFingerPan bool `toml:"three_finger_pan"`

	// RotateOnLeft moves rotation from the right to the left mouse button.
	RotateOnLeft bool `toml:"rotate_on_left"`

	KeyBindings map[common.Key]KeyAction `toml:"-"`
}

// DefaultConfig returns the stock controller configuration.
//
// Returns:
//   - Config: inertia on (0.93), every capability enabled, unit sensitivities
func DefaultConfig() Config {
	return Config{
		CameraMode:   CameraModeInspect,
		RotationMode: RotationModeTurntable,

		IsInertiaEnabled: true,
		InertiaFactor:    0.93,

		IsRotationEnabled:          true,
		IsPanEnabled:               true,
		IsZoomEnabled:              true,
		IsMoveEnabled:              true,
		IsChangeFieldOfViewEnabled: true,

		RotationSensitivity:          1,
		ZoomSensitivity:              1,
		LeftRightRotationSensitivity: 1,
		UpDownRotationSensitivity:    1,
		LeftRightPanSensitivity:      1,
		UpDownPanSensitivity:         1,
		PageUpDownZoomSensitivity:    1,
		MoveSensitivity:              1,

		ZoomDistanceLimitNear: 0.001,
		ZoomDistanceLimitFar:  1e6,
		MinimumFieldOfView:    10,
		MaximumFieldOfView:    160,

		ModelUpDirection: mgl32.Vec3{0, 1, 0},
		SpinReleaseTime:  200,

		EnableTouchRotate:    true,
		EnablePinchZoom:      true,
		EnableThreeFingerPan: true,

		KeyBindings: DefaultKeyBindings(),
	}
}

// Validate reports the first out-of-range option.
//
// Returns:
//   - error: nil, or an error wrapping ErrInvalidConfig
func (c Config) Validate() error {
	switch {
	case c.InertiaFactor <= 0 || c.InertiaFactor >= 1:
		return fmt.Errorf("%w: inertia factor %v outside (0, 1)", ErrInvalidConfig, c.InertiaFactor)
	case c.ZoomDistanceLimitNear < 0 || c.ZoomDistanceLimitNear >= c.ZoomDistanceLimitFar:
		return fmt.Errorf("%w: zoom limits [%v, %v]", ErrInvalidConfig, c.ZoomDistanceLimitNear, c.ZoomDistanceLimitFar)
	case c.MinimumFieldOfView <= 0 || c.MaximumFieldOfView >= 180 || c.MinimumFieldOfView > c.MaximumFieldOfView:
		return fmt.Errorf("%w: field of view limits [%v, %v]", ErrInvalidConfig, c.MinimumFieldOfView, c.MaximumFieldOfView)
	case c.SpinReleaseTime < 0:
		return fmt.Errorf("%w: negative spin release time", ErrInvalidConfig)
	case c.ModelUpDirection.Len() < common.Epsilon:
		return fmt.Errorf("%w: zero model up direction", ErrInvalidConfig)
	}
	for name, v := range map[string]float32{
		"rotation":            c.RotationSensitivity,
		"zoom":                c.ZoomSensitivity,
		"left/right rotation": c.LeftRightRotationSensitivity,
		"up/down rotation":    c.UpDownRotationSensitivity,
		"left/right pan":      c.LeftRightPanSensitivity,
		"up/down pan":         c.UpDownPanSensitivity,
		"page up/down zoom":   c.PageUpDownZoomSensitivity,
		"move":                c.MoveSensitivity,
	} {
		if v < 0 || !common.IsFinite(v) {
			return fmt.Errorf("%w: %s sensitivity %v", ErrInvalidConfig, name, v)
		}
	}
	if _, err := c.CameraMode.MarshalText(); err != nil {
		return err
	}
	if _, err := c.RotationMode.MarshalText(); err != nil {
		return err
	}
	return nil
}
