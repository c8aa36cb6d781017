// Package observers provides ready-made bench observers that attach to the
// hook broker: a scoreboard that checks transfers against a reference model
// of the register file, and a coverage collector that tracks which addresses
// and directions the stimulus actually exercised.
package observers

import (
	"fmt"
	"sync"

	"github.com/example/apb_sim/core"
	"github.com/example/apb_sim/hooks"
)

// Mismatch records a transfer whose read data disagreed with the reference
// model.
type Mismatch struct {
	Cycle    int
	Address  uint64
	Got      uint64
	Expected uint64
}

// Scoreboard shadows the slave's register file. Writes update the model with
// the transfer's strobe mask applied; reads are compared against it.
// Transfers that completed with an error response are expected to leave the
// model untouched and return nothing checkable, so they are skipped.
type Scoreboard struct {
	mu         sync.Mutex
	model      []uint64
	lanes      int
	checked    int
	mismatches []Mismatch
}

// NewScoreboard builds a scoreboard seeded with the slave's initial register
// image.
func NewScoreboard(initial []uint64, busWidth int) *Scoreboard {
	model := make([]uint64, len(initial))
	copy(model, initial)
	return &Scoreboard{
		model: model,
		lanes: busWidth / 8,
	}
}

func (s *Scoreboard) observe(ctx *hooks.TransferContext) error {
	txn := ctx.Transaction
	if txn == nil || txn.Error || txn.Data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := int(txn.Address) / s.lanes
	if index < 0 || index >= len(s.model) {
		return nil
	}

	switch txn.Direction {
	case core.DirectionWrite:
		mask := laneMask(txn.Strobe)
		s.model[index] = (s.model[index] &^ mask) | (*txn.Data & mask)
	case core.DirectionRead:
		s.checked++
		if *txn.Data != s.model[index] {
			s.mismatches = append(s.mismatches, Mismatch{
				Cycle:    ctx.Cycle,
				Address:  txn.Address,
				Got:      *txn.Data,
				Expected: s.model[index],
			})
		}
	}
	return nil
}

// Checked reports how many reads were compared against the model.
func (s *Scoreboard) Checked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checked
}

// Mismatches returns a copy of all recorded data mismatches.
func (s *Scoreboard) Mismatches() []Mismatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Mismatch, len(s.mismatches))
	copy(out, s.mismatches)
	return out
}

func laneMask(strobe []bool) uint64 {
	var mask uint64
	for i, on := range strobe {
		if on {
			mask |= uint64(0xFF) << uint(8*i)
		}
	}
	return mask
}

// Coverage counts observed traffic by direction, address and outcome.
type Coverage struct {
	mu        sync.Mutex
	reads     map[uint64]int
	writes    map[uint64]int
	errors    int
	transfers int
}

// NewCoverage builds an empty coverage collector.
func NewCoverage() *Coverage {
	return &Coverage{
		reads:  make(map[uint64]int),
		writes: make(map[uint64]int),
	}
}

func (c *Coverage) observe(ctx *hooks.TransferContext) error {
	txn := ctx.Transaction
	if txn == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.transfers++
	if txn.Error {
		c.errors++
	}
	if txn.Direction == core.DirectionWrite {
		c.writes[txn.Address]++
	} else {
		c.reads[txn.Address]++
	}
	return nil
}

// CoverageSnapshot is a point-in-time copy of coverage counters.
type CoverageSnapshot struct {
	Transfers int
	Errors    int
	Reads     map[uint64]int
	Writes    map[uint64]int
}

// Snapshot returns a copy of the collected coverage.
func (c *Coverage) Snapshot() CoverageSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := CoverageSnapshot{
		Transfers: c.transfers,
		Errors:    c.errors,
		Reads:     make(map[uint64]int, len(c.reads)),
		Writes:    make(map[uint64]int, len(c.writes)),
	}
	for addr, n := range c.reads {
		snap.Reads[addr] = n
	}
	for addr, n := range c.writes {
		snap.Writes[addr] = n
	}
	return snap
}

// Addresses reports how many distinct addresses were touched in either
// direction.
func (c *Coverage) Addresses() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[uint64]struct{}, len(c.reads)+len(c.writes))
	for addr := range c.reads {
		seen[addr] = struct{}{}
	}
	for addr := range c.writes {
		seen[addr] = struct{}{}
	}
	return len(seen)
}

// RegisterScoreboard records the scoreboard in the registry under the
// "scoreboard" name so configs can load it by name.
func RegisterScoreboard(reg *hooks.Registry, sb *Scoreboard) error {
	if reg == nil {
		return fmt.Errorf("registry is nil")
	}
	if sb == nil {
		return fmt.Errorf("scoreboard is nil")
	}
	desc := hooks.ObserverDescriptor{
		Name:        "scoreboard",
		Category:    hooks.CategoryScoreboard,
		Description: "checks read data against a register file reference model",
	}
	return reg.Register(desc.Name, desc, func(b *hooks.Broker) error {
		if b == nil {
			return fmt.Errorf("broker is nil")
		}
		b.RegisterBundle(desc, hooks.HookBundle{
			Transfer: []hooks.TransferHook{sb.observe},
		})
		return nil
	})
}

// RegisterCoverage records the coverage collector in the registry under the
// "coverage" name.
func RegisterCoverage(reg *hooks.Registry, cov *Coverage) error {
	if reg == nil {
		return fmt.Errorf("registry is nil")
	}
	if cov == nil {
		return fmt.Errorf("coverage collector is nil")
	}
	desc := hooks.ObserverDescriptor{
		Name:        "coverage",
		Category:    hooks.CategoryCoverage,
		Description: "tracks exercised addresses, directions and error outcomes",
	}
	return reg.Register(desc.Name, desc, func(b *hooks.Broker) error {
		if b == nil {
			return fmt.Errorf("broker is nil")
		}
		b.RegisterBundle(desc, hooks.HookBundle{
			Transfer: []hooks.TransferHook{cov.observe},
		})
		return nil
	})
}
