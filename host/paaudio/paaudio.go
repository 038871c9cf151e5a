// Package paaudio opens the host's default duplex sound device and
// drives it with a per-period render callback, using
// github.com/gordonklaus/portaudio in place of the teacher's cgo/ALSA
// binding (src/audio.go's audio_open/audio_get_real/audio_put_real/
// audio_close). PortAudio carries its own block size and channel
// count; this package's job is only to own the stream's lifecycle and
// convert between its non-interleaved float32 buffers and this
// module's float64 per-channel blocks.
package paaudio

import (
	"fmt"

	"github.com/doismellburning/ssrender/internal/xerr"
	"github.com/gordonklaus/portaudio"
)

// Render processes one period: in holds one []float64 of length
// blockSize per input channel, out the same per output channel. Render
// must not allocate and must not block beyond what the RT budget
// allows; it is called directly on PortAudio's audio thread.
type Render func(in, out [][]float64)

// Host owns one open PortAudio duplex stream.
type Host struct {
	stream *portaudio.Stream

	in, out       [][]float32
	inF64, outF64 [][]float64

	render Render
}

// Open initializes PortAudio and opens the system's default duplex
// stream at sampleRate with blockSize frames per buffer,
// inChannels inputs and outChannels outputs. render is invoked once
// per period after Start.
func Open(sampleRate float64, blockSize, inChannels, outChannels int, render Render) (*Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio init: %w", xerr.ErrFatal, err)
	}

	h := &Host{
		render: render,
		in:     make([][]float32, inChannels),
		out:    make([][]float32, outChannels),
		inF64:  make([][]float64, inChannels),
		outF64: make([][]float64, outChannels),
	}
	for i := range h.in {
		h.in[i] = make([]float32, blockSize)
		h.inF64[i] = make([]float64, blockSize)
	}
	for i := range h.out {
		h.out[i] = make([]float32, blockSize)
		h.outF64[i] = make([]float64, blockSize)
	}

	stream, err := portaudio.OpenDefaultStream(inChannels, outChannels, sampleRate, blockSize, h.callback)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: open default stream: %w", xerr.ErrFatal, err)
	}
	h.stream = stream
	return h, nil
}

// callback runs on PortAudio's audio thread: convert in to float64,
// render, convert out back to float32.
func (h *Host) callback(in, out [][]float32) {
	float32To64Channels(in, h.inF64)
	h.render(h.inF64, h.outF64)
	float64To32Channels(h.outF64, out)
}

// float32To64Channels converts each input channel in place into dst,
// which must already be sized to match.
func float32To64Channels(src [][]float32, dst [][]float64) {
	for c := range src {
		for i, v := range src[c] {
			dst[c][i] = float64(v)
		}
	}
}

// float64To32Channels is float32To64Channels's inverse.
func float64To32Channels(src [][]float64, dst [][]float32) {
	for c := range src {
		for i, v := range src[c] {
			dst[c][i] = float32(v)
		}
	}
}

// Start begins streaming. Render callbacks begin arriving immediately.
func (h *Host) Start() error {
	if err := h.stream.Start(); err != nil {
		return fmt.Errorf("%w: start stream: %w", xerr.ErrFatal, err)
	}
	return nil
}

// Stop halts streaming without closing the device; Start may be called
// again.
func (h *Host) Stop() error {
	if err := h.stream.Stop(); err != nil {
		return fmt.Errorf("%w: stop stream: %w", xerr.ErrFatal, err)
	}
	return nil
}

// Close releases the stream and terminates PortAudio. The Host must
// not be used afterward.
func (h *Host) Close() error {
	err := h.stream.Close()
	if termErr := portaudio.Terminate(); termErr != nil && err == nil {
		err = termErr
	}
	if err != nil {
		return fmt.Errorf("%w: close stream: %w", xerr.ErrFatal, err)
	}
	return nil
}
