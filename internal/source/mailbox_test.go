package source

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMailbox() *Mailbox {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMailbox(NewBlock(64, 8), logger)
}

func TestMailboxHandoff(t *testing.T) {
	m := newTestMailbox()

	require.True(t, m.Claim())
	raw := make([]byte, 2*64)
	for i := range raw {
		raw[i] = 130
	}
	m.Slot().Fill(raw, 5)
	m.Commit()

	blk, ok := m.Acquire()
	require.True(t, ok)
	assert.Equal(t, uint64(5), blk.Index)
	assert.InDelta(t, 2.0, blk.Re[0], 1e-6)
	m.Release()

	// Slot is free again.
	assert.True(t, m.Claim())
	assert.Equal(t, uint64(0), m.Overflows())
}

// A producer arriving while the worker still holds the slot is an overflow:
// reported, counted, then waited out without losing the mailbox state.
func TestMailboxOverflow(t *testing.T) {
	m := newTestMailbox()

	require.True(t, m.Claim())
	m.Commit()

	workerHolding := make(chan struct{})
	go func() {
		_, ok := m.Acquire()
		assert.True(t, ok)
		close(workerHolding)
		time.Sleep(50 * time.Millisecond)
		m.Release()
	}()

	<-workerHolding
	ok := m.Claim() // slot busy: overflow, then block until released
	assert.True(t, ok)
	assert.Equal(t, uint64(1), m.Overflows())

	m.Commit()
	blk, ok := m.Acquire()
	require.True(t, ok)
	assert.NotNil(t, blk)
	m.Release()
	assert.Equal(t, uint64(1), m.Overflows(), "recovered claim must not count again")
}

func TestMailboxShutdown(t *testing.T) {
	m := newTestMailbox()
	m.Shutdown()

	assert.True(t, m.Exiting())
	assert.False(t, m.Claim())
	assert.False(t, m.Reserve())
	_, ok := m.Acquire()
	assert.False(t, ok)
}

// Shutdown must wake a worker parked in Acquire.
func TestMailboxShutdownWakesWorker(t *testing.T) {
	m := newTestMailbox()

	done := make(chan bool)
	go func() {
		_, ok := m.Acquire()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	m.Shutdown()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("worker did not wake on shutdown")
	}
}
