// Package config loads viewer configuration files: the camera controller
// options, the render host options and key bindings, stored as TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/controller"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every error caused by the content of a file,
// as opposed to failing to read it.
var ErrInvalidConfig = errors.New("config: invalid config")

// File is the content of a configuration file.
//
//	[controller]
//	inertia_factor = 0.9
//	rotation_mode = "trackball"
//
//	[host]
//	max_fps = 30
//	technique = "Deferred"
//
//	[keys]
//	w = "move_forward"
//	backspace = "none"
type File struct {
	Controller controller.Config `toml:"controller"`
	Host       render.HostConfig `toml:"host"`

	// Keys overrides individual default key bindings by key name. The action
	// "none" removes a binding.
	Keys map[string]string `toml:"keys,omitempty"`
}

// Default returns the stock configuration.
//
// Returns:
//   - File: default controller and host options with the default key bindings
func Default() File {
	return File{
		Controller: controller.DefaultConfig(),
		Host:       render.DefaultHostConfig(),
	}
}

// Parse decodes a TOML document on top of the defaults, so a file only needs to
// name the options it changes. Unknown keys are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - File: the decoded and validated configuration
//   - error: nil, or an error wrapping ErrInvalidConfig
func Parse(data []byte) (File, error) {
	f := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return File{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		return File{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	bindings, err := resolveKeys(f.Keys)
	if err != nil {
		return File{}, err
	}
	f.Controller.KeyBindings = bindings

	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Load reads and parses a configuration file.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - File: the decoded and validated configuration
//   - error: a read error, or an error wrapping ErrInvalidConfig
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks both option sets.
//
// Returns:
//   - error: nil, or an error wrapping ErrInvalidConfig and the section's own sentinel
func (f File) Validate() error {
	if err := f.Controller.Validate(); err != nil {
		return fmt.Errorf("%w: controller: %w", ErrInvalidConfig, err)
	}
	if err := f.Host.Validate(); err != nil {
		return fmt.Errorf("%w: host: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Encode renders f as TOML. Key bindings that differ from the defaults are
// written to the keys table.
//
// Returns:
//   - []byte: the TOML document
//   - error: error if a value cannot be encoded
func (f File) Encode() ([]byte, error) {
	out := f
	out.Keys = diffKeys(f.Controller.KeyBindings)
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf).SetIndentTables(true)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func resolveKeys(keys map[string]string) (map[common.Key]controller.KeyAction, error) {
	bindings := controller.DefaultKeyBindings()
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key, ok := keyByName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, name)
		}
		action, ok := actionByName[strings.ToLower(keys[name])]
		if !ok {
			return nil, fmt.Errorf("%w: unknown action %q for key %q", ErrInvalidConfig, keys[name], name)
		}
		if action == controller.KeyActionNone {
			delete(bindings, key)
			continue
		}
		bindings[key] = action
	}
	return bindings, nil
}

func diffKeys(bindings map[common.Key]controller.KeyAction) map[string]string {
	if bindings == nil {
		return nil
	}
	out := make(map[string]string)
	defaults := controller.DefaultKeyBindings()
	for key, action := range bindings {
		if defaults[key] != action {
			out[keyNames[key]] = actionNames[action]
		}
	}
	for key := range defaults {
		if _, ok := bindings[key]; !ok {
			out[keyNames[key]] = actionNames[controller.KeyActionNone]
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
