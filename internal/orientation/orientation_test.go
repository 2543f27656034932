package orientation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/inertial_radar/internal/spatial"
)

const eps = 1e-9

func assertVecInDelta(t *testing.T, want, got spatial.Vector3, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func TestRotateIdentity(t *testing.T) {
	t.Parallel()

	v := spatial.Vector3{X: 1.5, Y: -2, Z: 9.81}
	assertVecInDelta(t, v, Rotate(v, Angles{}), eps)
}

func TestRotateHeadingOnly(t *testing.T) {
	t.Parallel()

	// alpha = 90°: device +x points world north, device +y points world west.
	a := Angles{Alpha: 90}.Radians()
	assertVecInDelta(t, spatial.Vector3{X: 0, Y: 1, Z: 0}, Rotate(spatial.Vector3{X: 1}, a), eps)
	assertVecInDelta(t, spatial.Vector3{X: -1, Y: 0, Z: 0}, Rotate(spatial.Vector3{Y: 1}, a), eps)
	assertVecInDelta(t, spatial.Vector3{Z: 1}, Rotate(spatial.Vector3{Z: 1}, a), eps)
}

func TestRotateMatchesClosedForm(t *testing.T) {
	t.Parallel()

	a := Angles{Alpha: 30, Beta: -20, Gamma: 45}.Radians()
	sa, ca := math.Sin(a.Alpha), math.Cos(a.Alpha)
	sb, cb := math.Sin(a.Beta), math.Cos(a.Beta)
	sg, cg := math.Sin(a.Gamma), math.Cos(a.Gamma)
	ax, ay, az := 0.3, -1.2, 9.5

	want := spatial.Vector3{
		X: ax*(ca*cg-sa*sb*sg) + ay*(-sa*cb) + az*(ca*sg+sa*sb*cg),
		Y: ax*(sa*cg+ca*sb*sg) + ay*(ca*cb) + az*(sa*sg-ca*sb*cg),
		Z: ax*(-cb*sg) + ay*sb + az*(cb*cg),
	}
	assertVecInDelta(t, want, Rotate(spatial.Vector3{X: ax, Y: ay, Z: az}, a), eps)
}

func TestRotatePreservesLength(t *testing.T) {
	t.Parallel()

	v := spatial.Vector3{X: 3, Y: 4, Z: 12}
	for _, a := range []Angles{
		{Alpha: 10, Beta: 20, Gamma: 30},
		{Alpha: -170, Beta: 89, Gamma: -45},
		{Alpha: 359, Beta: -60, Gamma: 90},
	} {
		got := Rotate(v, a.Radians())
		assert.InDelta(t, v.Norm(), got.Norm(), 1e-9)
	}
}

func TestFromGravityRoundTrip(t *testing.T) {
	t.Parallel()

	const g = 9.81
	cases := []struct {
		name        string
		beta, gamma float64
	}{
		{"flat", 0, 0},
		{"nose up", 30, 0},
		{"rolled right", 0, 25},
		{"both", -40, -60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rad := Angles{Beta: tc.beta, Gamma: tc.gamma}.Radians()
			sb, cb := math.Sincos(rad.Beta)
			sg, cg := math.Sincos(rad.Gamma)
			device := spatial.Vector3{X: -g * cb * sg, Y: g * sb, Z: g * cb * cg}

			got := FromGravity(device.X, device.Y, device.Z)
			assert.InDelta(t, tc.beta, got.Beta, 1e-9)
			assert.InDelta(t, tc.gamma, got.Gamma, 1e-9)
			assert.Zero(t, got.Alpha)

			// The estimated attitude must map the reading back onto world up.
			assertVecInDelta(t, spatial.Vector3{Z: g}, Rotate(device, got.Radians()), 1e-9)
		})
	}
}

func TestDegreesRadiansInverse(t *testing.T) {
	t.Parallel()

	a := Angles{Alpha: 123, Beta: -45, Gamma: 7.5}
	back := a.Radians().Degrees()
	assert.InDelta(t, a.Alpha, back.Alpha, eps)
	assert.InDelta(t, a.Beta, back.Beta, eps)
	assert.InDelta(t, a.Gamma, back.Gamma, eps)
}

func TestMockSource(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	now := start.Add(9 * time.Second)
	src := &mockSource{start: start, now: func() time.Time { return now }}

	a, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, Angles{Alpha: 90}, a)

	now = start.Add(40 * time.Second)
	a, err = src.Next()
	require.NoError(t, err)
	assert.InDelta(t, 40, a.Alpha, eps, "heading wraps at 360")
}
