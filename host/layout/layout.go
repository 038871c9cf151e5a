// Package layout loads a loudspeaker reproduction setup from YAML,
// using gopkg.in/yaml.v3, and converts it into the position/loudspeaker
// types the renderers expect. Reproduction-setup file parsing is a
// host concern rather than a core one; this package is the host-side
// piece that fills that gap, grounded on the general shape of the
// teacher's own config loading (a flat file read once at startup,
// converted to typed fields, never touched again).
package layout

import (
	"fmt"
	"io"

	"github.com/doismellburning/ssrender/geometry"
	"github.com/doismellburning/ssrender/internal/xerr"
	"github.com/doismellburning/ssrender/render/wfs"
	"gopkg.in/yaml.v3"
)

// Speaker is one loudspeaker entry in a reproduction setup file.
type Speaker struct {
	X             float64 `yaml:"x"`
	Y             float64 `yaml:"y"`
	OrientationDeg float64 `yaml:"orientation_deg"`
	Weight        float64 `yaml:"weight"`
	Subwoofer     bool    `yaml:"subwoofer"`
}

// Setup is a full reproduction setup: an ordered list of loudspeakers.
type Setup struct {
	Speakers []Speaker `yaml:"speakers"`
}

// Load parses a reproduction setup document from r.
func Load(r io.Reader) (*Setup, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read reproduction setup: %w", xerr.ErrConfiguration, err)
	}

	var s Setup
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: parse reproduction setup: %w", xerr.ErrConfiguration, err)
	}
	if len(s.Speakers) == 0 {
		return nil, fmt.Errorf("%w: reproduction setup has no speakers", xerr.ErrConfiguration)
	}
	for i, sp := range s.Speakers {
		if sp.Weight == 0 {
			s.Speakers[i].Weight = 1
		}
	}
	return &s, nil
}

// Positions returns each speaker's position only, in file order, for
// renderers (such as render/hoa) that only need the array geometry.
func (s *Setup) Positions() []geometry.Position {
	out := make([]geometry.Position, len(s.Speakers))
	for i, sp := range s.Speakers {
		out[i] = geometry.NewPosition(sp.X, sp.Y)
	}
	return out
}

// WFSLoudspeakers converts the setup into render/wfs's Loudspeaker
// type, preserving orientation, taper weight and subwoofer marking.
func (s *Setup) WFSLoudspeakers() []wfs.Loudspeaker {
	out := make([]wfs.Loudspeaker, len(s.Speakers))
	for i, sp := range s.Speakers {
		out[i] = wfs.Loudspeaker{
			Position:    geometry.NewPosition(sp.X, sp.Y),
			Orientation: geometry.OrientationFromDegrees(sp.OrientationDeg),
			Weight:      sp.Weight,
			Subwoofer:   sp.Subwoofer,
		}
	}
	return out
}
