package apb

import (
	"math/rand"

	"github.com/example/apb_sim/bus"
)

type slaveState int

const (
	slaveIdle   slaveState = iota // waiting for PSEL, readiness decision each cycle
	slaveAccess                   // response driven, commit on the acceptance edge
)

// Slave responds to transfers against a register file with programmable
// randomized flow control. Each waited cycle it independently draws whether
// to insert a wait state; on the cycle readiness is asserted it independently
// draws whether to respond with PSLVERR instead of completing normally.
//
// The slave is the sole writer of PRDATA, PREADY and PSLVERR.
type Slave struct {
	bus  *bus.Bus
	regs *RegisterFile
	rng  *rand.Rand
	log  *Logger

	readyProbability float64 // chance of a wait state per waited cycle
	errorProbability float64 // chance of an error response per acceptance

	state        slaveState
	errorPending bool

	accepted       int
	errorResponses int
	decodeErrors   int
	waitStates     int
	reads          int
	writes         int
}

// NewSlave builds a slave owning a register file initialized from registers.
// The random source drives the wait state and error draws; runs are
// reproducible given a fixed seed. Out of reset the slave drives PREADY high.
func NewSlave(b *bus.Bus, registers []uint64, readyProbability, errorProbability float64, rng *rand.Rand) *Slave {
	s := &Slave{
		bus:              b,
		regs:             NewRegisterFile(registers, b.BusWidth()),
		rng:              rng,
		log:              GetLogger(),
		readyProbability: readyProbability,
		errorProbability: errorProbability,
	}
	s.responseLines()
	return s
}

// SetLogger replaces the slave's logger.
func (s *Slave) SetLogger(log *Logger) {
	if log != nil {
		s.log = log
	}
}

// Registers exposes the register file for test inspection.
func (s *Slave) Registers() *RegisterFile {
	return s.regs
}

// Tick advances the responder state machine by one rising edge.
func (s *Slave) Tick(cycle int, sm bus.Sample) {
	switch s.state {
	case slaveIdle:
		if !sm.PSel {
			return
		}

		// Wait state draw, independent each waited cycle.
		if s.rng.Float64() < s.readyProbability {
			s.bus.DrivePReady(false)
			s.waitStates++
			return
		}

		idx, inRange := s.regs.Index(sm.PAddr)
		switch {
		case s.rng.Float64() < s.errorProbability:
			s.errorPending = true
			s.bus.DrivePRData(0)
			s.bus.DrivePSlvErr(true)
		case !inRange:
			s.log.Infof("slave: address 0x%X outside register range, error response", sm.PAddr)
			s.errorPending = true
			s.decodeErrors++
			s.bus.DrivePRData(0)
			s.bus.DrivePSlvErr(true)
		case !sm.PWrite:
			word, _ := s.regs.Read(idx)
			s.bus.DrivePRData(word)
		}

		s.bus.DrivePReady(true)
		s.state = slaveAccess

	case slaveAccess:
		// Acceptance edge: the master samples PREADY high on this same
		// edge, so the sampled lines still belong to the transfer.
		if !s.errorPending {
			if sm.PWrite {
				if idx, inRange := s.regs.Index(sm.PAddr); inRange {
					s.regs.WriteMasked(idx, sm.PWData, sm.PStrb)
				}
				s.writes++
			} else {
				s.reads++
			}
		} else {
			s.errorResponses++
		}
		s.accepted++

		s.responseLines()
		s.errorPending = false
		s.state = slaveIdle
	}
}

// responseLines returns the response lines to their resting state.
func (s *Slave) responseLines() {
	s.bus.DrivePRData(0)
	s.bus.DrivePSlvErr(false)
	s.bus.DrivePReady(true)
}

// Reset restores the initial register image and returns the responder to
// its out-of-reset state.
func (s *Slave) Reset() {
	s.regs.Reset()
	s.state = slaveIdle
	s.errorPending = false
	s.responseLines()
}

// SlaveStats is a point-in-time view of slave counters.
type SlaveStats struct {
	Accepted       int
	Reads          int
	Writes         int
	ErrorResponses int
	DecodeErrors   int
	WaitStates     int
}

// SnapshotStats returns current counter values.
func (s *Slave) SnapshotStats() SlaveStats {
	return SlaveStats{
		Accepted:       s.accepted,
		Reads:          s.reads,
		Writes:         s.writes,
		ErrorResponses: s.errorResponses,
		DecodeErrors:   s.decodeErrors,
		WaitStates:     s.waitStates,
	}
}
