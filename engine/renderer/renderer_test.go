package renderer

import (
	"testing"

	"github.com/doismellburning/ssrender/dsp/combine"
	"github.com/doismellburning/ssrender/engine/mimo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightingFactor(t *testing.T) {
	assert.Equal(t, 0.0, WeightingFactor(Params{Gain: 1, Mute: true, ProcessingEnabled: true}, 1, 1))
	assert.Equal(t, 0.0, WeightingFactor(Params{Gain: 1, Mute: false, ProcessingEnabled: false}, 1, 1))
	assert.InDelta(t, 2.0, WeightingFactor(Params{Gain: 2, Mute: false, ProcessingEnabled: true}, 1, 1), 1e-9)
	assert.InDelta(t, 6.0, WeightingFactor(Params{Gain: 2, Mute: false, ProcessingEnabled: true}, 3, 1), 1e-9)
}

func TestDetermineMode(t *testing.T) {
	assert.Equal(t, combine.Nothing, DetermineMode(0, 0, false, true))
	assert.Equal(t, combine.FadeIn, DetermineMode(0, 1, false, true))
	assert.Equal(t, combine.FadeOut, DetermineMode(1, 0, false, true))
	assert.Equal(t, combine.Constant, DetermineMode(1, 1, false, true))
	assert.Equal(t, combine.Change, DetermineMode(1, 1, true, true))
	assert.Equal(t, combine.Change, DetermineMode(1, 1, false, false))
	assert.Equal(t, combine.Change, DetermineMode(1, 2, false, true))
}

type fakeSource struct {
	name string
}

func TestBaseAddRemSource(t *testing.T) {
	proc := mimo.New(64, 1, nil)
	base := NewBase[*fakeSource](proc)

	id := base.AddSource(&fakeSource{name: "a"})
	require.Equal(t, 1, base.Len())

	got, ok := base.Source(id)
	require.True(t, ok)
	assert.Equal(t, "a", got.name)

	removed, ok := base.RemSource(id)
	require.True(t, ok)
	assert.Equal(t, "a", removed.name)
	assert.Equal(t, 0, base.Len())

	_, ok = base.RemSource(id)
	assert.False(t, ok)
}

func TestBaseMasterVolumeSharedData(t *testing.T) {
	proc := mimo.New(64, 1, nil)
	base := NewBase[*fakeSource](proc)

	assert.Equal(t, 1.0, base.MasterVolume.Read())
	base.MasterVolume.Write(0.5)
	proc.AudioCallback(nil, nil) // drains the write command onto the RT slot
	assert.Equal(t, 0.5, base.MasterVolume.Read())
}

func TestLevelMeterRoundTrip(t *testing.T) {
	proc := mimo.New(64, 1, nil)
	base := NewBase[*fakeSource](proc)

	assert.Equal(t, 0.0, base.Level())
	base.ReportLevel(0.73)
	assert.InDelta(t, 0.73, base.Level(), 1e-9)
}
