package observers

import (
	"testing"

	apb "github.com/example/apb_sim"
	"github.com/example/apb_sim/core"
)

func runBench(t *testing.T, cfg *apb.Config, txns ...*core.Transaction) (*Scoreboard, *Coverage) {
	t.Helper()
	agent, err := apb.NewAgent(cfg)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	sb := NewScoreboard(cfg.Registers, cfg.BusWidth)
	cov := NewCoverage()
	if err := RegisterScoreboard(agent.Registry(), sb); err != nil {
		t.Fatalf("RegisterScoreboard: %v", err)
	}
	if err := RegisterCoverage(agent.Registry(), cov); err != nil {
		t.Fatalf("RegisterCoverage: %v", err)
	}
	if err := agent.LoadObservers(); err != nil {
		t.Fatalf("LoadObservers: %v", err)
	}

	for _, txn := range txns {
		if _, err := agent.Master().Issue(txn); err != nil {
			t.Fatalf("Issue(%s): %v", txn, err)
		}
	}
	if ran := agent.RunUntilIdle(5000); ran >= 5000 {
		t.Fatalf("bench did not drain")
	}

	return sb, cov
}

func write(t *testing.T, address, data uint64) *core.Transaction {
	t.Helper()
	txn, err := core.NewWrite(address, data)
	if err != nil {
		t.Fatalf("NewWrite: %v", err)
	}
	return txn
}

func read(t *testing.T, address uint64) *core.Transaction {
	t.Helper()
	txn, err := core.NewRead(address)
	if err != nil {
		t.Fatalf("NewRead: %v", err)
	}
	return txn
}

func TestScoreboardTracksWritesAndChecksReads(t *testing.T) {
	cfg := &apb.Config{
		Registers: []uint64{0x10, 0x20, 0x30, 0x40},
		Seed:      1,
		Observers: []string{"scoreboard", "coverage"},
		Logger:    apb.NewLogger(apb.LogLevelError, "[APB] "),
	}
	sb, _ := runBench(t, cfg,
		write(t, 0x0, 0xAAAA),
		read(t, 0x0),
		read(t, 0x4), // still holds its initial value
	)

	if got := sb.Checked(); got != 2 {
		t.Fatalf("checked %d reads, want 2", got)
	}
	if mm := sb.Mismatches(); len(mm) != 0 {
		t.Fatalf("unexpected mismatches: %+v", mm)
	}
}

func TestScoreboardAppliesStrobeMask(t *testing.T) {
	cfg := &apb.Config{
		Registers: []uint64{0x11223344},
		Seed:      1,
		Observers: []string{"scoreboard"},
		Logger:    apb.NewLogger(apb.LogLevelError, "[APB] "),
	}
	data := uint64(0xAABBCCDD)
	partial, err := core.NewTransaction(core.TransactionSpec{
		Address: 0x0,
		Data:    &data,
		Strobe:  []bool{false, true, false, true},
	})
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	sb, _ := runBench(t, cfg, partial, read(t, 0x0))

	if mm := sb.Mismatches(); len(mm) != 0 {
		t.Fatalf("model diverged from slave on masked write: %+v", mm)
	}
}

func TestScoreboardSkipsErroredTransfers(t *testing.T) {
	cfg := &apb.Config{
		Registers:              []uint64{0x1, 0x2},
		RandomErrorProbability: 1,
		Seed:                   1,
		Observers:              []string{"scoreboard"},
		Logger:                 apb.NewLogger(apb.LogLevelError, "[APB] "),
	}
	sb, _ := runBench(t, cfg, write(t, 0x0, 0xFF), read(t, 0x0))

	if got := sb.Checked(); got != 0 {
		t.Fatalf("errored reads must not be checked, got %d", got)
	}
	if mm := sb.Mismatches(); len(mm) != 0 {
		t.Fatalf("unexpected mismatches: %+v", mm)
	}
}

func TestCoverageCountsTraffic(t *testing.T) {
	cfg := &apb.Config{
		Registers: []uint64{0, 0, 0, 0},
		Seed:      1,
		Observers: []string{"coverage"},
		Logger:    apb.NewLogger(apb.LogLevelError, "[APB] "),
	}
	_, cov := runBench(t, cfg,
		write(t, 0x0, 0x1),
		write(t, 0x0, 0x2),
		write(t, 0x4, 0x3),
		read(t, 0x8),
	)

	snap := cov.Snapshot()
	if snap.Transfers != 4 || snap.Errors != 0 {
		t.Fatalf("coverage totals wrong: %+v", snap)
	}
	if snap.Writes[0x0] != 2 || snap.Writes[0x4] != 1 || snap.Reads[0x8] != 1 {
		t.Fatalf("per-address counts wrong: writes=%v reads=%v", snap.Writes, snap.Reads)
	}
	if got := cov.Addresses(); got != 3 {
		t.Fatalf("distinct addresses = %d, want 3", got)
	}
}

func TestLoadUnknownObserverFails(t *testing.T) {
	cfg := &apb.Config{
		Registers: []uint64{0},
		Seed:      1,
		Observers: []string{"nonexistent"},
		Logger:    apb.NewLogger(apb.LogLevelError, "[APB] "),
	}
	agent, err := apb.NewAgent(cfg)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	if err := agent.LoadObservers(); err == nil {
		t.Fatalf("loading an unregistered observer must fail")
	}
}
