package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProducesSnapshotWhenVectorsMatch(t *testing.T) {
	c := &Collector{
		Transport: func() string { return "playing" },
		CPULoad:   func() float64 { return 0.42 },
		Master:    func() float64 { return 0.9 },
	}

	snap, ok := c.Build([]SourceID{1, 2}, []float64{0.1, 0.2})
	require.True(t, ok)
	assert.Equal(t, "playing", snap.Transport)
	assert.Equal(t, 0.42, snap.CPULoad)
	assert.Equal(t, 0.9, snap.MasterLevel)
	assert.Equal(t, 0.1, snap.SourceLevels[1])
	assert.Equal(t, 0.2, snap.SourceLevels[2])
}

func TestBuildRejectsMismatchedVectors(t *testing.T) {
	c := &Collector{}
	_, ok := c.Build([]SourceID{1, 2, 3}, []float64{0.1, 0.2})
	assert.False(t, ok, "a resize mid-period must be ignored for one cycle, not read out of bounds")
}

func TestBuildToleratesNilCallbacks(t *testing.T) {
	c := &Collector{}
	snap, ok := c.Build(nil, nil)
	require.True(t, ok)
	assert.Equal(t, "", snap.Transport)
	assert.Equal(t, 0.0, snap.CPULoad)
}
