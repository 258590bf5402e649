package source

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type slotState int

const (
	slotEmpty slotState = iota // producer may fill
	slotFull                   // worker may take
	slotBusy                   // worker is processing
)

// Mailbox is the single-slot handoff between the sample producer and the
// processing worker. It owns exactly one Block; whoever holds the slot owns
// the block's contents. There is one producer and one worker.
//
// The producer claims the slot non-blockingly; finding it unavailable is an
// overflow (the worker is not keeping up), which is reported and then
// waited out. Overflow loses samples but corrupts nothing. Shutdown is a
// separate flag set by the signal handler or at end of stream; it is the
// only control channel that crosses the producer/worker boundary.
type Mailbox struct {
	mu        sync.Mutex
	cond      *sync.Cond
	state     slotState
	exiting   bool
	block     *Block
	overflows atomic.Uint64
	logger    *logrus.Logger
}

// NewMailbox wraps block in a mailbox. The slot starts empty.
func NewMailbox(block *Block, logger *logrus.Logger) *Mailbox {
	m := &Mailbox{block: block, logger: logger}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Slot returns the block; valid only while the caller holds the slot.
func (m *Mailbox) Slot() *Block { return m.block }

// Reserve waits until the slot is free and claims it for the producer.
// Returns false once the mailbox is shutting down. Demand-paced producers
// (file replay) use this directly so an occupied slot is not an overflow.
func (m *Mailbox) Reserve() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.state != slotEmpty && !m.exiting {
		m.cond.Wait()
	}
	return !m.exiting
}

// Claim is the data-driven producer path: a non-blocking attempt first, and
// if the slot is still held by the worker, an overflow is logged before
// falling back to a blocking wait. Returns false on shutdown.
func (m *Mailbox) Claim() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exiting {
		return false
	}
	if m.state == slotEmpty {
		return true
	}

	m.overflows.Add(1)
	m.logger.Warn("overflow: sample processing is not keeping up")
	for m.state != slotEmpty && !m.exiting {
		m.cond.Wait()
	}
	return !m.exiting
}

// Commit publishes a filled block and wakes the worker.
func (m *Mailbox) Commit() {
	m.mu.Lock()
	m.state = slotFull
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Acquire waits for a published block. Returns false when the mailbox is
// shutting down; a block left in the slot at that point is abandoned.
func (m *Mailbox) Acquire() (*Block, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.state != slotFull && !m.exiting {
		m.cond.Wait()
	}
	if m.exiting {
		return nil, false
	}
	m.state = slotBusy
	return m.block, true
}

// Release frees the slot after processing and wakes a waiting producer.
func (m *Mailbox) Release() {
	m.mu.Lock()
	m.state = slotEmpty
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Shutdown sets the exiting flag and wakes both sides.
func (m *Mailbox) Shutdown() {
	m.mu.Lock()
	m.exiting = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Exiting reports whether Shutdown has been called.
func (m *Mailbox) Exiting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exiting
}

// Overflows returns the number of overflow events so far.
func (m *Mailbox) Overflows() uint64 { return m.overflows.Load() }
