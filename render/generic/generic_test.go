package generic

import (
	"testing"

	"github.com/doismellburning/ssrender/engine/mimo"
	"github.com/doismellburning/ssrender/engine/renderer"
	"github.com/stretchr/testify/assert"
)

func TestMatrixOfFIRsRoutesToCorrectLoudspeakers(t *testing.T) {
	const blockSize = 4
	proc := mimo.New(64, 1, nil)
	r := NewRenderer(proc, blockSize, 3)

	// loudspeaker 0 gets the input verbatim (delta), loudspeaker 1 gets
	// it at half gain, loudspeaker 2 gets silence.
	irMatrix := [][]float64{
		{1, 0, 0, 0},
		{0.5, 0, 0, 0},
		{0, 0, 0, 0},
	}
	params := renderer.Params{Gain: 1, ProcessingEnabled: true}
	_, src := r.AddSource(irMatrix, params)

	input := []float64{0.3, -0.2, 0.1, 0.4}
	src.Feed(input)

	outputs := make([][]float64, 3)
	for i := range outputs {
		outputs[i] = make([]float64, blockSize)
	}
	proc.AudioCallback(func() { r.Process(outputs) }, nil)

	anyNonZero := false
	for i := range outputs[0] {
		assert.InDelta(t, 0.5*outputs[0][i], outputs[1][i], 1e-9)
		assert.Equal(t, 0.0, outputs[2][i])
		if outputs[0][i] != 0 {
			anyNonZero = true
		}
	}
	assert.True(t, anyNonZero)
}

func TestMutedSourceProducesNoOutput(t *testing.T) {
	const blockSize = 4
	proc := mimo.New(64, 1, nil)
	r := NewRenderer(proc, blockSize, 2)

	irMatrix := [][]float64{{1, 0, 0, 0}, {1, 0, 0, 0}}
	params := renderer.Params{Gain: 1, Mute: true, ProcessingEnabled: true}
	_, src := r.AddSource(irMatrix, params)

	src.Feed([]float64{1, 1, 1, 1})

	outputs := make([][]float64, 2)
	for i := range outputs {
		outputs[i] = make([]float64, blockSize)
	}
	proc.AudioCallback(func() { r.Process(outputs) }, nil)

	for _, out := range outputs {
		for _, v := range out {
			assert.Equal(t, 0.0, v)
		}
	}
}
