package core

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func mustTransaction(t *testing.T, spec TransactionSpec) *Transaction {
	t.Helper()
	txn, err := NewTransaction(spec)
	if err != nil {
		t.Fatalf("NewTransaction(%+v): %v", spec, err)
	}
	return txn
}

func uint64p(v uint64) *uint64 { return &v }

func TestDirectionInference(t *testing.T) {
	read := mustTransaction(t, TransactionSpec{Address: 0x10})
	if read.Direction != DirectionRead {
		t.Fatalf("expected READ for data-less spec, got %s", read.Direction)
	}
	if read.Data != nil {
		t.Fatalf("read request should carry no data yet")
	}

	write := mustTransaction(t, TransactionSpec{Address: 0x10, Data: uint64p(0xAB)})
	if write.Direction != DirectionWrite {
		t.Fatalf("expected WRITE when data supplied, got %s", write.Direction)
	}

	// Explicit direction override models a completed read.
	dir := DirectionRead
	done := mustTransaction(t, TransactionSpec{Address: 0x10, Data: uint64p(0xAB), Direction: &dir})
	if done.Direction != DirectionRead || done.Data == nil || *done.Data != 0xAB {
		t.Fatalf("override lost: direction %s data %v", done.Direction, done.Data)
	}

	// Without data the override is ignored: the request is a read.
	w := DirectionWrite
	forced := mustTransaction(t, TransactionSpec{Address: 0x10, Direction: &w})
	if forced.Direction != DirectionRead {
		t.Fatalf("data-less request must be READ, got %s", forced.Direction)
	}
}

func TestConstructionValidation(t *testing.T) {
	cases := []struct {
		name string
		spec TransactionSpec
		want error
	}{
		{"address overflow", TransactionSpec{Address: 1 << 12}, ErrAddressOverflow},
		{"data overflow", TransactionSpec{Address: 0, Data: uint64p(1 << 32)}, ErrDataOverflow},
		{"short strobe", TransactionSpec{Address: 0, Strobe: []bool{true, true, true}}, ErrStrobeLength},
		{"bad bus width", TransactionSpec{Address: 0, BusWidth: 12}, ErrBusWidth},
		{"bad address width", TransactionSpec{Address: 0, AddressWidth: 65}, ErrAddressWidth},
	}
	for _, tc := range cases {
		if _, err := NewTransaction(tc.spec); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestNarrowWidths(t *testing.T) {
	txn, err := NewTransaction(TransactionSpec{Address: 0x7, Data: uint64p(0xFF), BusWidth: 8, AddressWidth: 3})
	if err != nil {
		t.Fatalf("narrow transaction: %v", err)
	}
	if len(txn.Strobe) != 1 {
		t.Fatalf("8 bit bus wants 1 strobe lane, got %d", len(txn.Strobe))
	}
	if _, err := NewTransaction(TransactionSpec{Address: 0x8, AddressWidth: 3}); !errors.Is(err, ErrAddressOverflow) {
		t.Fatalf("expected overflow for address 0x8 at width 3, got %v", err)
	}
}

func TestEqualityIgnoresTimestamps(t *testing.T) {
	a := mustTransaction(t, TransactionSpec{Address: 0x20, Data: uint64p(0xCAFE)})
	b := mustTransaction(t, TransactionSpec{Address: 0x20, Data: uint64p(0xCAFE)})
	a.StartedAt = 3
	b.StartedAt = 99

	if !a.Equal(a) {
		t.Fatalf("transaction must equal itself")
	}
	if !a.Equal(b) || !b.Equal(a) {
		t.Fatalf("timestamps must not affect equality")
	}

	c := mustTransaction(t, TransactionSpec{Address: 0x24, Data: uint64p(0xCAFE)})
	if a.Equal(c) {
		t.Fatalf("different address must not be equal")
	}
	d := mustTransaction(t, TransactionSpec{Address: 0x20, Data: uint64p(0xBEEF)})
	if a.Equal(d) {
		t.Fatalf("different data must not be equal")
	}
	e := mustTransaction(t, TransactionSpec{Address: 0x20, Data: uint64p(0xCAFE), Strobe: []bool{false, true, true, true}})
	if a.Equal(e) {
		t.Fatalf("different strobe must not be equal")
	}
	f := mustTransaction(t, TransactionSpec{Address: 0x20})
	if a.Equal(f) {
		t.Fatalf("write must not equal pending read")
	}
	g := mustTransaction(t, TransactionSpec{Address: 0x20, Data: uint64p(0xCAFE)})
	g.Error = true
	if a.Equal(g) {
		t.Fatalf("error flag must affect equality")
	}
}

func TestStrobeMask(t *testing.T) {
	txn := mustTransaction(t, TransactionSpec{Address: 0, Data: uint64p(1), Strobe: []bool{true, false, true, true}})
	if mask := txn.StrobeMask(); mask != 0xD {
		t.Fatalf("strobe mask: got 0x%X, want 0xD", mask)
	}
	full := mustTransaction(t, TransactionSpec{Address: 0})
	if mask := full.StrobeMask(); mask != 0xF {
		t.Fatalf("default strobe mask: got 0x%X, want 0xF", mask)
	}
}

func TestRandomizeKeepsDirection(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	read := mustTransaction(t, TransactionSpec{Address: 0})
	read.Randomize(rng)
	if read.Direction != DirectionRead {
		t.Fatalf("randomize must not change direction")
	}
	if read.Data != nil {
		t.Fatalf("randomized read must not gain data")
	}
	if read.Address >= 1<<12 {
		t.Fatalf("randomized address 0x%X outside 12 bit space", read.Address)
	}

	write := mustTransaction(t, TransactionSpec{Address: 0, Data: uint64p(0)})
	for i := 0; i < 32; i++ {
		write.Randomize(rng)
		if write.Direction != DirectionWrite {
			t.Fatalf("randomize must not change direction")
		}
		if write.Data == nil || *write.Data >= 1<<32 {
			t.Fatalf("randomized data outside 32 bit space: %v", write.Data)
		}
		if len(write.Strobe) != 4 {
			t.Fatalf("strobe length changed to %d", len(write.Strobe))
		}
	}
}

func TestRandomizeIsSeedReproducible(t *testing.T) {
	a := mustTransaction(t, TransactionSpec{Address: 0, Data: uint64p(0)})
	b := mustTransaction(t, TransactionSpec{Address: 0, Data: uint64p(0)})
	a.Randomize(rand.New(rand.NewSource(42)))
	b.Randomize(rand.New(rand.NewSource(42)))
	if !a.Equal(b) {
		t.Fatalf("same seed must give the same transaction:\n%s\n%s", a, b)
	}
}

func TestRenderAndString(t *testing.T) {
	txn := mustTransaction(t, TransactionSpec{Address: 0x40, Data: uint64p(0xDEADBEEF)})
	if got := txn.Render(); !strings.Contains(got, "has not occurred yet") {
		t.Fatalf("pending transaction render missing placeholder:\n%s", got)
	}
	txn.StartedAt = 7
	if got := txn.Render(); !strings.Contains(got, "started at cycle 7") {
		t.Fatalf("render missing start cycle:\n%s", got)
	}
	if got := txn.String(); !strings.Contains(got, "0xDEADBEEF") || !strings.Contains(got, "WRITE") {
		t.Fatalf("unexpected string form: %s", got)
	}

	pending := mustTransaction(t, TransactionSpec{Address: 0x40})
	if got := pending.Render(); !strings.Contains(got, "NO DATA YET") {
		t.Fatalf("pending read render missing data placeholder:\n%s", got)
	}
}
