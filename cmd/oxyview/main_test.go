package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-view/engine/config"
	"github.com/Carmen-Shannon/oxy-view/engine/render"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runConfigCommand(t *testing.T, args ...string) (config.File, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"config"}, args...))
	if err := cmd.Execute(); err != nil {
		return config.File{}, err
	}
	return config.Parse(out.Bytes())
}

func TestConfigCommandAppliesFlags(t *testing.T) {
	file, err := runConfigCommand(t, "--technique", render.TechniqueDeferred, "--max-fps", "30", "--threaded", "--spin", "50")
	require.NoError(t, err)
	assert.Equal(t, render.TechniqueDeferred, file.Host.Technique)
	assert.Equal(t, 30, file.Host.MaxFPS)
	assert.True(t, file.Host.Threaded)
	assert.True(t, file.Controller.InfiniteSpin)
}

func TestConfigCommandFileBeatsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxyview.toml")
	require.NoError(t, os.WriteFile(path, []byte("[host]\ntechnique = \"GBuffer\"\nmax_fps = 10\n"), 0o644))

	file, err := runConfigCommand(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, render.TechniqueGBuffer, file.Host.Technique)
	assert.Equal(t, 10, file.Host.MaxFPS)

	file, err = runConfigCommand(t, "--config", path, "--max-fps", "0")
	require.NoError(t, err)
	assert.Equal(t, render.TechniqueGBuffer, file.Host.Technique)
	assert.Equal(t, 0, file.Host.MaxFPS)
}

func TestConfigCommandRejectsInvalidValues(t *testing.T) {
	_, err := runConfigCommand(t, "--max-fps=-1")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = runConfigCommand(t, "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestRaySphere(t *testing.T) {
	tests := []struct {
		name   string
		origin mgl32.Vec3
		dir    mgl32.Vec3
		hit    bool
		t      float32
	}{
		{"front", mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}, true, 4},
		{"inside", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, true, 1},
		{"behind", mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 1}, false, 0},
		{"miss", mgl32.Vec3{3, 0, 5}, mgl32.Vec3{0, 0, -1}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := raySphere(tt.origin, tt.dir, mgl32.Vec3{}, 1)
			assert.Equal(t, tt.hit, hit)
			assert.InDelta(t, tt.t, got, 1e-5)
		})
	}
}

func TestDemoSceneLayout(t *testing.T) {
	s := newDemoScene(3)
	assert.Len(t, s.objects, 9)
	assert.Len(t, s.lights, 5)
	assert.Len(t, s.markers, 3, "two point lights and one spot light get a marker")
	assert.Positive(t, s.SceneRadius())

	_, ok := s.HitTest(mgl32.Vec2{10, 10})
	assert.False(t, ok, "no hits before the scene is attached")

	assert.Len(t, newDemoScene(0).objects, 1)
}
