package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
speakers:
  - x: 1.0
    y: 0.0
    orientation_deg: 180
  - x: 0.0
    y: 1.0
    orientation_deg: 270
    weight: 0.5
    subwoofer: true
`

func TestLoadParsesSpeakers(t *testing.T) {
	s, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, s.Speakers, 2)
	assert.Equal(t, 1.0, s.Speakers[0].Weight, "unset weight defaults to 1")
	assert.True(t, s.Speakers[1].Subwoofer)
}

func TestLoadRejectsEmptySetup(t *testing.T) {
	_, err := Load(strings.NewReader("speakers: []"))
	require.Error(t, err)
}

func TestPositionsMatchesSpeakerOrder(t *testing.T) {
	s, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	positions := s.Positions()
	require.Len(t, positions, 2)
	assert.Equal(t, 1.0, positions[0].X)
	assert.Equal(t, 1.0, positions[1].Y)
}

func TestWFSLoudspeakersCarriesWeightAndSubwoofer(t *testing.T) {
	s, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	speakers := s.WFSLoudspeakers()
	require.Len(t, speakers, 2)
	assert.Equal(t, 0.5, speakers[1].Weight)
	assert.True(t, speakers[1].Subwoofer)
	assert.False(t, speakers[0].Subwoofer)
}
