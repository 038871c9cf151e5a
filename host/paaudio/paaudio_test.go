package paaudio

import "testing"

func TestFloat32To64ChannelsConverts(t *testing.T) {
	src := [][]float32{{1, -1, 0.5}, {0, 0.25, -0.25}}
	dst := [][]float64{make([]float64, 3), make([]float64, 3)}

	float32To64Channels(src, dst)

	want := [][]float64{{1, -1, 0.5}, {0, 0.25, -0.25}}
	for c := range want {
		for i := range want[c] {
			if dst[c][i] != want[c][i] {
				t.Fatalf("channel %d sample %d: got %v want %v", c, i, dst[c][i], want[c][i])
			}
		}
	}
}

func TestFloat64To32ChannelsRoundTrips(t *testing.T) {
	src := [][]float64{{1, -1, 0.5}}
	dst := [][]float32{make([]float32, 3)}

	float64To32Channels(src, dst)

	want := []float32{1, -1, 0.5}
	for i := range want {
		if dst[0][i] != want[i] {
			t.Fatalf("sample %d: got %v want %v", i, dst[0][i], want[i])
		}
	}
}
