package imu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleMissingAxesDecodeAsZero(t *testing.T) {
	t.Parallel()

	var s Sample
	require.NoError(t, json.Unmarshal([]byte(`{"ax":1.25,"az":null,"t":40}`), &s))
	assert.Equal(t, Sample{Ax: 1.25, TimestampMs: 40}, s)
}

func TestCountsToMS2(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, StandardGravity, CountsToMS2(16384, 0), 1e-9)
	assert.InDelta(t, StandardGravity, CountsToMS2(2048, 3), 1e-9)
	assert.InDelta(t, -StandardGravity/2, CountsToMS2(-4096, 1), 1e-9)
	// unknown selector falls back to ±2g
	assert.InDelta(t, StandardGravity, CountsToMS2(16384, 9), 1e-9)
}

func TestMockSourceWalk(t *testing.T) {
	t.Parallel()

	src := NewMockSource(20, 0, 1)

	first, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, Sample{Az: StandardGravity, TimestampMs: 0}, first)

	var last Sample
	for i := 1; i <= 120; i++ {
		last, err = src.Next()
		require.NoError(t, err)
	}
	// sample 120 is the first of the acceleration leg
	assert.Equal(t, int64(2400), last.TimestampMs)
	assert.InDelta(t, 1.5, last.Ax, 1e-12)
}

func TestMockSourceNoiseBounded(t *testing.T) {
	t.Parallel()

	src := NewMockSource(10, 0.05, 42)
	for i := 0; i < 200; i++ {
		s, err := src.Next()
		require.NoError(t, err)
		assert.InDelta(t, StandardGravity, s.Az, 0.05)
	}
}
