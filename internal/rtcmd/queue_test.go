package rtcmd

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCommand struct {
	executed *atomic.Int32
	cleaned  *atomic.Int32
}

func (c *countingCommand) Execute() { c.executed.Add(1) }
func (c *countingCommand) Cleanup() { c.cleaned.Add(1) }

// TestCommandExecuteThenCleanupExactlyOnce asserts that for every
// command pushed, Execute runs exactly once and Cleanup runs exactly
// once, Cleanup strictly after Execute.
func TestCommandExecuteThenCleanupExactlyOnce(t *testing.T) {
	q := NewQueue(16)

	const n = 200
	var executed, cleaned atomic.Int32
	cmds := make([]*countingCommand, n)
	for i := range cmds {
		cmds[i] = &countingCommand{executed: &executed, cleaned: &cleaned}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, c := range cmds {
			q.Push(c)
		}
	}()

	// Act as the RT thread until every command has executed; cleanup
	// happens on the pushing (NRT) side and by the final drainOut.
	for executed.Load() < n {
		q.ProcessCommands(nil)
	}
	wg.Wait()
	q.drainOut()

	assert.EqualValues(t, n, executed.Load())
	assert.EqualValues(t, n, cleaned.Load())
}

func TestWaitBlocksUntilProcessed(t *testing.T) {
	q := NewQueue(16)
	var executed atomic.Int32
	cmd := &countingCommand{executed: &executed, cleaned: &atomic.Int32{}}

	done := make(chan struct{})
	go func() {
		q.Wait(cmd)
		close(done)
	}()

	// Drain like the RT thread would, until Wait unblocks.
	for {
		q.ProcessCommands(nil)
		select {
		case <-done:
			assert.EqualValues(t, 1, executed.Load())
			return
		default:
		}
	}
}

func TestDeactivateFailsWithPendingCommands(t *testing.T) {
	q := NewQueue(16)
	var executed, cleaned atomic.Int32
	require.True(t, q.in.Push(&countingCommand{executed: &executed, cleaned: &cleaned}))

	err := q.Deactivate()
	assert.Error(t, err)

	// Drain it so deactivate can succeed.
	q.ProcessCommands(nil)
	q.drainOut()
	assert.NoError(t, q.Deactivate())
}

func TestPushWhileInactiveRunsInline(t *testing.T) {
	q := NewQueue(16)
	require.NoError(t, q.Deactivate())

	var executed, cleaned atomic.Int32
	cmd := &countingCommand{executed: &executed, cleaned: &cleaned}
	q.Push(cmd)

	assert.EqualValues(t, 1, executed.Load())

	q.drainOut()
	assert.EqualValues(t, 1, cleaned.Load())
}

func TestSharedDataReadWrite(t *testing.T) {
	q := NewQueue(16)
	sd := NewSharedData(q, 0)

	sd.Write(42)
	assert.Equal(t, 42, sd.ReadNRT())
	assert.Equal(t, 0, sd.Read()) // RT side hasn't processed yet

	q.ProcessCommands(nil)
	assert.Equal(t, 42, sd.Read())

	q.drainOut()
}
