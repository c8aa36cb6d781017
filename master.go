package apb

import (
	"errors"
	"sync"

	"github.com/example/apb_sim/bus"
	"github.com/example/apb_sim/core"
	"github.com/example/apb_sim/queue"
)

// ErrMasterReset is returned by Send when a reset drops the transaction
// before it completes.
var ErrMasterReset = errors.New("master reset while transaction pending")

type masterState int

const (
	masterIdle   masterState = iota
	masterSetup              // setup lines driven, PENABLE asserted next edge
	masterAccess             // PENABLE driven, sampling PREADY each edge
)

type pendingTransfer struct {
	txn        *core.Transaction
	done       chan *core.Transaction
	setupCycle int
}

// Master drives the request lines of the bus. It owns a FIFO of pending
// transactions and advances a SETUP/ACCESS state machine once per rising
// edge, pipelining back-to-back transfers with PSEL held asserted.
//
// The master is the sole writer of PSEL, PENABLE, PWRITE, PADDR, PWDATA and
// PSTRB. Address and control lines stay stable from SETUP until the transfer
// is accepted.
type Master struct {
	bus *bus.Bus
	log *Logger

	mu      sync.Mutex
	queue   *queue.FIFO[*pendingTransfer]
	state   masterState
	current *pendingTransfer

	issued     int
	completed  int
	errorCount int
	waitCycles int
}

// NewMaster builds a master attached to the bus and drives every request
// line to zero. capacity bounds the transmit queue, 0 for unlimited.
func NewMaster(b *bus.Bus, capacity int, log *Logger) *Master {
	if capacity <= 0 {
		capacity = queue.UnlimitedCapacity
	}
	if log == nil {
		log = GetLogger()
	}
	m := &Master{
		bus:   b,
		log:   log,
		queue: queue.NewFIFO[*pendingTransfer]("transmit", capacity, nil, queue.Hooks[*pendingTransfer]{}),
	}
	m.idleLines()
	return m
}

// Issue enqueues a transaction and returns a channel that delivers it once
// completed on the bus. The channel is buffered; the master never blocks on
// it. An already busy queue simply grows, transfers complete in issue order.
func (m *Master) Issue(txn *core.Transaction) (<-chan *core.Transaction, error) {
	if txn == nil {
		return nil, errors.New("transaction is nil")
	}
	pend := &pendingTransfer{
		txn:        txn,
		done:       make(chan *core.Transaction, 1),
		setupCycle: core.NotStarted,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.queue.Enqueue(pend, core.NotStarted); err != nil {
		return nil, err
	}
	m.issued++
	return pend.done, nil
}

// Send enqueues the transaction and suspends the caller until that specific
// transaction completes, then returns it with read data and error status
// populated. Completion is keyed by identity: equal transactions queued
// together each get their own completion.
func (m *Master) Send(txn *core.Transaction) (*core.Transaction, error) {
	done, err := m.Issue(txn)
	if err != nil {
		return nil, err
	}
	completed, ok := <-done
	if !ok {
		return nil, ErrMasterReset
	}
	return completed, nil
}

// Tick advances the state machine by one rising edge, reading the latched
// sample and driving the request lines for the next cycle.
func (m *Master) Tick(cycle int, s bus.Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case masterIdle:
		m.startNextLocked(cycle)

	case masterSetup:
		m.bus.DrivePEnable(true)
		m.state = masterAccess

	case masterAccess:
		if !s.PReady {
			m.waitCycles++
			return
		}

		txn := m.current.txn
		if s.HasPSlvErr && s.PSlvErr {
			txn.Error = true
		}
		if txn.Direction == core.DirectionRead {
			data := s.PRData
			txn.Data = &data
		}
		txn.StartedAt = m.current.setupCycle

		m.completed++
		if txn.Error {
			m.errorCount++
		}
		m.current.done <- txn
		m.current = nil

		if m.queue.Len() > 0 {
			// Back-to-back: next SETUP on the same edge, PSEL stays high.
			m.bus.DrivePEnable(false)
			m.startNextLocked(cycle)
		} else {
			m.idleLines()
			m.state = masterIdle
		}
	}
}

// startNextLocked pops the head transaction and drives its SETUP phase.
func (m *Master) startNextLocked(cycle int) {
	pend, ok := m.queue.PopFront(cycle)
	if !ok {
		return
	}
	txn := pend.txn
	pend.setupCycle = cycle

	m.bus.DrivePSel(true)
	m.bus.DrivePEnable(false)
	m.bus.DrivePAddr(txn.Address)
	m.bus.DrivePWrite(txn.Direction == core.DirectionWrite)
	m.bus.DrivePStrb(txn.StrobeMask())
	if txn.Direction == core.DirectionWrite && txn.Data != nil {
		m.bus.DrivePWData(*txn.Data)
	}

	m.log.Debugf("master: setup %s at cycle %d", txn, cycle)
	m.current = pend
	m.state = masterSetup
}

func (m *Master) idleLines() {
	m.bus.DrivePSel(false)
	m.bus.DrivePEnable(false)
	m.bus.DrivePWrite(false)
	m.bus.DrivePAddr(0)
	m.bus.DrivePWData(0)
	m.bus.DrivePStrb(0)
}

// Busy reports whether a transfer is in flight or queued.
func (m *Master) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != masterIdle || m.queue.Len() > 0
}

// Pending returns the number of transactions not yet completed, including
// the one currently on the bus.
func (m *Master) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.queue.Len()
	if m.current != nil {
		n++
	}
	return n
}

// Reset returns the master to idle, drops every pending transaction and
// drives all request lines to zero. Blocked Send callers receive
// ErrMasterReset.
func (m *Master) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		close(m.current.done)
		m.current = nil
	}
	for _, pend := range m.queue.Drain(core.NotStarted) {
		close(pend.done)
	}
	m.state = masterIdle
	m.idleLines()
}

// MasterStats is a point-in-time view of master counters.
type MasterStats struct {
	Issued        int
	Completed     int
	Errors        int
	WaitCycles    int
	MaxQueueDepth int
}

// SnapshotStats returns current counter values.
func (m *Master) SnapshotStats() MasterStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MasterStats{
		Issued:        m.issued,
		Completed:     m.completed,
		Errors:        m.errorCount,
		WaitCycles:    m.waitCycles,
		MaxQueueDepth: m.queue.MaxDepth(),
	}
}
