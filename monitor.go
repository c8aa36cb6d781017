package apb

import (
	"github.com/example/apb_sim/bus"
	"github.com/example/apb_sim/core"
	"github.com/example/apb_sim/hooks"
)

type monitorPhase int

const (
	phaseIdle monitorPhase = iota
	phaseSetup
	phaseAccess
)

// Monitor passively reconstructs the transaction stream by watching PSEL and
// PENABLE. It drives nothing. On the edge where PSEL, PENABLE and PREADY are
// all sampled asserted it assembles a completed transaction and publishes it
// through the broker, synchronously and in registration order.
type Monitor struct {
	busWidth     int
	addressWidth int
	broker       *hooks.Broker
	log          *Logger

	phase      monitorPhase
	setupCycle int

	observed       int
	errorsObserved int
}

// NewMonitor builds a monitor for the bus geometry publishing into broker.
// A nil broker gets a private one.
func NewMonitor(b *bus.Bus, broker *hooks.Broker) *Monitor {
	if broker == nil {
		broker = hooks.NewBroker()
	}
	return &Monitor{
		busWidth:     b.BusWidth(),
		addressWidth: b.AddressWidth(),
		broker:       broker,
		log:          GetLogger(),
		setupCycle:   core.NotStarted,
	}
}

// Broker returns the broker observers hang off.
func (m *Monitor) Broker() *hooks.Broker {
	return m.broker
}

// AddCallback registers fn to run for every completed transaction, in
// registration order, on the same edge the completion is detected. Callbacks
// receive the monitor's own reconstruction and must not block or mutate it.
func (m *Monitor) AddCallback(fn func(*core.Transaction)) {
	if fn == nil {
		return
	}
	m.broker.RegisterTransfer(func(ctx *hooks.TransferContext) error {
		fn(ctx.Transaction)
		return nil
	})
}

// Tick samples the bus lines for one rising edge.
func (m *Monitor) Tick(cycle int, s bus.Sample) {
	if !s.PSel {
		m.phase = phaseIdle
		return
	}

	if !s.PEnable {
		// SETUP: address and control first asserted with PENABLE low.
		m.phase = phaseSetup
		m.setupCycle = cycle
		if err := m.broker.EmitSetup(&hooks.PhaseContext{Cycle: cycle, Address: s.PAddr, Write: s.PWrite}); err != nil {
			m.log.Errorf("monitor: setup hook failed: %v", err)
		}
		return
	}

	m.phase = phaseAccess
	if !s.PReady {
		return // wait state
	}

	txn := m.assemble(s)
	txn.StartedAt = m.setupCycle
	m.observed++
	if txn.Error {
		m.errorsObserved++
	}
	m.phase = phaseIdle
	m.setupCycle = core.NotStarted

	if err := m.broker.EmitTransfer(&hooks.TransferContext{Transaction: txn, Cycle: cycle}); err != nil {
		m.log.Errorf("monitor: transfer hook failed: %v", err)
	}
}

// assemble builds the monitor's own record of the completed transfer from
// the sampled lines.
func (m *Monitor) assemble(s bus.Sample) *core.Transaction {
	direction := core.DirectionRead
	data := s.PRData
	if s.PWrite {
		direction = core.DirectionWrite
		data = s.PWData
	}

	lanes := m.busWidth / 8
	strobe := make([]bool, lanes)
	for i := 0; i < lanes; i++ {
		strobe[i] = s.PStrb&(uint64(1)<<uint(i)) != 0
	}

	errVal := s.HasPSlvErr && s.PSlvErr
	txn, err := core.NewTransaction(core.TransactionSpec{
		Address:      s.PAddr,
		Data:         &data,
		Direction:    &direction,
		Strobe:       strobe,
		Error:        &errVal,
		BusWidth:     m.busWidth,
		AddressWidth: m.addressWidth,
	})
	if err != nil {
		// Lines are truncated to their widths by the bus, so this only
		// fires on a geometry mismatch between monitor and bus.
		m.log.Errorf("monitor: could not assemble transaction: %v", err)
		return &core.Transaction{Address: s.PAddr, Direction: direction, BusWidth: m.busWidth, AddressWidth: m.addressWidth, StartedAt: core.NotStarted}
	}
	return txn
}

// Reset clears the in-progress phase tracking.
func (m *Monitor) Reset() {
	m.phase = phaseIdle
	m.setupCycle = core.NotStarted
}

// MonitorStats is a point-in-time view of monitor counters.
type MonitorStats struct {
	Observed       int
	ErrorsObserved int
}

// SnapshotStats returns current counter values.
func (m *Monitor) SnapshotStats() MonitorStats {
	return MonitorStats{
		Observed:       m.observed,
		ErrorsObserved: m.errorsObserved,
	}
}
