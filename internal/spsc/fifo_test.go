package spsc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFifoPopEmpty(t *testing.T) {
	f := New[int](4)
	_, ok := f.Pop()
	assert.False(t, ok)
	assert.True(t, f.Empty())
}

func TestFifoFullReturnsFalse(t *testing.T) {
	f := New[int](2)
	require.True(t, f.Push(1))
	require.True(t, f.Push(2))
	assert.False(t, f.Push(3))
}

// TestFifoSingleProducerSingleConsumer asserts that for any interleaving
// of N pushes and N pops with a single producer and a single consumer,
// every payload is popped exactly once, in push order.
func TestFifoSingleProducerSingleConsumer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 2000).Draw(t, "n")
		f := New[int](64)

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				for !f.Push(i) {
					// spin, matching the non-blocking push contract
				}
			}
		}()

		got := make([]int, 0, n)
		go func() {
			defer wg.Done()
			for len(got) < n {
				if v, ok := f.Pop(); ok {
					got = append(got, v)
				}
			}
		}()

		wg.Wait()

		want := make([]int, n)
		for i := range want {
			want[i] = i
		}
		assert.Equal(t, want, got)
	})
}
