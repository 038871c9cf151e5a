// Package config parses a key→string map into a typed Config,
// validating every constraint the core requires (block_size a power of
// two and at least 8, sample_rate required, and so on) before the core is
// ever constructed — every failure here is a Configuration error,
// raised at construction time and never recovered from.
//
// Grounded on the teacher's config_init (src/config.go): a flat
// key→value map is walked once, each recognized key is converted to
// its typed field with strconv, and an unrecognized or malformed value
// is a hard error rather than a silently ignored default. This package
// keeps that shape but drops the teacher's line-oriented file-format
// parsing (whatever produces the key→string map — flags, a file, an
// RPC call — is left to the host) and its direct C struct population
// in favor of a single immutable Config value.
package config

import (
	"fmt"
	"strconv"

	"github.com/doismellburning/ssrender/internal/xerr"
)

// Map is the key→string configuration the host hands to the core.
type Map map[string]string

// Config is the validated, typed form of a Map.
type Config struct {
	BlockSize  int     // samples per period; power of two, at least 8
	SampleRate float64 // required

	Threads  int // default 1
	FifoSize int // default 128

	ReproductionSetup string // path to loudspeaker-layout file; renderer-specific

	HrirFile string // binaural renderer IR source
	HrirSize int    // truncation length; 0 = full

	PrefilterFile string // WFS pre-filter IR

	DelaylineSize int // WFS delay line size, in samples
	InitialDelay  int // WFS initial delay, in samples

	MasterVolumeCorrection float64 // linear factor on top of master volume; default 1

	SystemOutputPrefix string // host-port naming hint, opaque to the core
	Name               string // client name hint, opaque to the core
}

const (
	defaultThreads                = 1
	defaultFifoSize               = 128
	defaultMasterVolumeCorrection = 1.0
)

// Parse validates and converts m into a Config. Every error it returns
// wraps xerr.ErrConfiguration.
func Parse(m Map) (*Config, error) {
	cfg := &Config{
		Threads:                defaultThreads,
		FifoSize:               defaultFifoSize,
		MasterVolumeCorrection: defaultMasterVolumeCorrection,
	}

	blockSize, ok, err := requireInt(m, "block_size")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: block_size is required", xerr.ErrConfiguration)
	}
	if blockSize < 8 || blockSize&(blockSize-1) != 0 {
		return nil, fmt.Errorf("%w: block_size must be a power of two of at least 8, got %d", xerr.ErrConfiguration, blockSize)
	}
	cfg.BlockSize = blockSize

	sampleRate, ok, err := requireFloat(m, "sample_rate")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: sample_rate is required", xerr.ErrConfiguration)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample_rate must be positive, got %v", xerr.ErrConfiguration, sampleRate)
	}
	cfg.SampleRate = sampleRate

	if threads, ok, err := optionalInt(m, "threads"); err != nil {
		return nil, err
	} else if ok {
		if threads <= 0 {
			return nil, fmt.Errorf("%w: threads must be positive, got %d", xerr.ErrConfiguration, threads)
		}
		cfg.Threads = threads
	}

	if fifoSize, ok, err := optionalInt(m, "fifo_size"); err != nil {
		return nil, err
	} else if ok {
		if fifoSize <= 0 {
			return nil, fmt.Errorf("%w: fifo_size must be positive, got %d", xerr.ErrConfiguration, fifoSize)
		}
		cfg.FifoSize = fifoSize
	}

	cfg.ReproductionSetup = m["reproduction_setup"]
	cfg.HrirFile = m["hrir_file"]
	cfg.PrefilterFile = m["prefilter_file"]
	cfg.SystemOutputPrefix = m["system_output_prefix"]
	cfg.Name = m["name"]

	if hrirSize, ok, err := optionalInt(m, "hrir_size"); err != nil {
		return nil, err
	} else if ok {
		if hrirSize < 0 {
			return nil, fmt.Errorf("%w: hrir_size must not be negative, got %d", xerr.ErrConfiguration, hrirSize)
		}
		cfg.HrirSize = hrirSize
	}

	if delaylineSize, ok, err := optionalInt(m, "delayline_size"); err != nil {
		return nil, err
	} else if ok {
		if delaylineSize <= 0 {
			return nil, fmt.Errorf("%w: delayline_size must be positive, got %d", xerr.ErrConfiguration, delaylineSize)
		}
		cfg.DelaylineSize = delaylineSize
	}

	if initialDelay, ok, err := optionalInt(m, "initial_delay"); err != nil {
		return nil, err
	} else if ok {
		if initialDelay < 0 {
			return nil, fmt.Errorf("%w: initial_delay must not be negative, got %d", xerr.ErrConfiguration, initialDelay)
		}
		cfg.InitialDelay = initialDelay
	}

	if mvc, ok, err := optionalFloat(m, "master_volume_correction"); err != nil {
		return nil, err
	} else if ok {
		cfg.MasterVolumeCorrection = mvc
	}

	return cfg, nil
}

func requireInt(m Map, key string) (int, bool, error) {
	return optionalInt(m, key)
}

func requireFloat(m Map, key string) (float64, bool, error) {
	return optionalFloat(m, key)
}

func optionalInt(m Map, key string) (int, bool, error) {
	raw, present := m[key]
	if !present {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer, got %q", xerr.ErrConfiguration, key, raw)
	}
	return v, true, nil
}

func optionalFloat(m Map, key string) (float64, bool, error) {
	raw, present := m[key]
	if !present {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be a number, got %q", xerr.ErrConfiguration, key, raw)
	}
	return v, true, nil
}
