package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3InDelta(t *testing.T, want, got mgl32.Vec3, delta float64) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v vs %v", i, want, got)
	}
}

func TestSafeNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   mgl32.Vec3
		ok   bool
	}{
		{"unit", mgl32.Vec3{1, 0, 0}, true},
		{"scaled", mgl32.Vec3{0, 3, 4}, true},
		{"zero", mgl32.Vec3{}, false},
		{"nan", mgl32.Vec3{math32.NaN(), 0, 0}, false},
		{"inf", mgl32.Vec3{math32.Inf(1), 0, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := SafeNormalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, 1, out.Len(), 1e-6)
			} else {
				assert.Equal(t, tt.in[1], out[1])
			}
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(0.1), Clamp(0.01, 0.1, 1))
	assert.Equal(t, float32(1), Clamp(3, 0.1, 1))
	assert.Equal(t, float32(0.5), Clamp(0.5, 0.1, 1))
}

func TestIsParallel(t *testing.T) {
	assert.True(t, IsParallel(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, -2, 0}))
	assert.False(t, IsParallel(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, -1}))
	assert.True(t, IsParallel(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}))
}

func TestQuatFromAxisAngleDegDegenerateAxis(t *testing.T) {
	q := QuatFromAxisAngleDeg(mgl32.Vec3{}, 45)
	v := q.Rotate(mgl32.Vec3{1, 2, 3})
	assertVec3InDelta(t, mgl32.Vec3{1, 2, 3}, v, 1e-5)
}

func TestRotateAround(t *testing.T) {
	q := QuatFromAxisAngleDeg(mgl32.Vec3{0, 1, 0}, 90)
	p := RotateAround(q, mgl32.Vec3{2, 0, 0}, mgl32.Vec3{1, 0, 0})
	assertVec3InDelta(t, mgl32.Vec3{1, 0, -1}, p, 1e-5)
}

func TestExtractFrustum(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	f := ExtractFrustum(proj.Mul4(view))

	for i, p := range f.Planes {
		require.InDelta(t, 1, p.Normal.Len(), 1e-4, "plane %d not normalized", i)
	}

	assert.True(t, f.ContainsPoint(mgl32.Vec3{}))
	assert.False(t, f.ContainsPoint(mgl32.Vec3{0, 0, 20}), "behind the camera")
	assert.False(t, f.ContainsPoint(mgl32.Vec3{0, 0, -200}), "beyond the far plane")
	assert.False(t, f.IntersectsSphere(mgl32.Vec3{50, 0, 0}, 1))
	assert.True(t, f.IntersectsSphere(mgl32.Vec3{50, 0, 0}, 60))
}

func TestColorNRGBA(t *testing.T) {
	c := Color{R: 1, G: 0.5, B: -1, A: 2}.NRGBA()
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(128), c.G)
	assert.Equal(t, uint8(0), c.B)
	assert.Equal(t, uint8(255), c.A)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestModifierKeysHas(t *testing.T) {
	m := ModShift | ModControl
	assert.True(t, m.Has(ModShift))
	assert.True(t, m.Has(ModShift|ModControl))
	assert.False(t, m.Has(ModAlt))
}
