package execute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatency_Stats(t *testing.T) {
	l := newLatency()
	assert.Equal(t, LatencyStats{}, l.stats())

	for range 99 {
		require.NoError(t, l.record(time.Millisecond))
	}

	require.NoError(t, l.record(100*time.Millisecond))

	s := l.stats()
	assert.Equal(t, int64(100), s.Count)
	assert.Equal(t, int64(1000), s.P50)
	assert.Equal(t, int64(1000), s.P99)
	assert.InDelta(t, 100000, s.Max, 100)
	assert.InDelta(t, 1990, s.Mean, 5)
}

func TestLatency_ClampsOutOfRange(t *testing.T) {
	l := newLatency()
	require.NoError(t, l.record(0))
	require.NoError(t, l.record(2*time.Hour))

	s := l.stats()
	assert.Equal(t, int64(2), s.Count)
	assert.Equal(t, int64(1), s.P50)
	assert.InDelta(t, maxLatencyMicros, s.Max, float64(maxLatencyMicros)/500)
}
