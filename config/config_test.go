package config

import (
	"errors"
	"testing"

	"github.com/doismellburning/ssrender/internal/xerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse(Map{
		"block_size":  "64",
		"sample_rate": "44100",
	})
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.BlockSize)
	assert.Equal(t, 44100.0, cfg.SampleRate)
	assert.Equal(t, defaultThreads, cfg.Threads)
	assert.Equal(t, defaultFifoSize, cfg.FifoSize)
	assert.Equal(t, defaultMasterVolumeCorrection, cfg.MasterVolumeCorrection)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(Map{
		"block_size":               "128",
		"sample_rate":              "48000",
		"threads":                  "4",
		"fifo_size":                "256",
		"master_volume_correction": "0.5",
		"prefilter_file":           "prefilter.wav",
		"delayline_size":           "4096",
		"initial_delay":            "64",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 256, cfg.FifoSize)
	assert.Equal(t, 0.5, cfg.MasterVolumeCorrection)
	assert.Equal(t, "prefilter.wav", cfg.PrefilterFile)
	assert.Equal(t, 4096, cfg.DelaylineSize)
	assert.Equal(t, 64, cfg.InitialDelay)
}

func TestParseMissingBlockSizeIsConfigurationError(t *testing.T) {
	_, err := Parse(Map{"sample_rate": "44100"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerr.ErrConfiguration))
}

func TestParseBlockSizeNotMultipleOfEightIsRejected(t *testing.T) {
	_, err := Parse(Map{"block_size": "100", "sample_rate": "44100"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerr.ErrConfiguration))
}

func TestParseMissingSampleRateIsConfigurationError(t *testing.T) {
	_, err := Parse(Map{"block_size": "64"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerr.ErrConfiguration))
}

func TestParseMalformedIntegerIsRejected(t *testing.T) {
	_, err := Parse(Map{"block_size": "64", "sample_rate": "44100", "threads": "many"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerr.ErrConfiguration))
}
