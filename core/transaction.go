package core

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// Direction distinguishes the two APB transfer kinds, mirroring PWRITE.
type Direction int

const (
	DirectionRead Direction = iota
	DirectionWrite
)

func (d Direction) String() string {
	switch d {
	case DirectionRead:
		return "READ"
	case DirectionWrite:
		return "WRITE"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Default transaction encoding widths.
const (
	DefaultBusWidth     = 32 // data width in bits
	DefaultAddressWidth = 12 // address width in bits
)

// NotStarted is the StartedAt value of a transaction that has not been issued yet.
const NotStarted = -1

// Construction-time validation failures.
var (
	ErrAddressOverflow = errors.New("address does not fit in address width")
	ErrDataOverflow    = errors.New("data does not fit in bus width")
	ErrStrobeLength    = errors.New("strobe length must equal bus width in bytes")
	ErrBusWidth        = errors.New("bus width must be a positive multiple of 8")
	ErrAddressWidth    = errors.New("address width must be between 1 and 64")
)

// TransactionSpec carries the construction parameters for a Transaction.
// Zero values select the defaults: width defaults per the constants above,
// nil Strobe enables every byte lane, nil Direction is inferred from Data.
type TransactionSpec struct {
	Address      uint64
	Data         *uint64    // nil for a read request
	Direction    *Direction // explicit override, only meaningful when Data is set
	Strobe       []bool     // one entry per byte lane
	Error        *bool
	BusWidth     int
	AddressWidth int
}

// Transaction describes one APB transfer. It is built by NewTransaction and not
// mutated after construction, except by the agent completing it on the bus:
// the Master fills Data/Error/StartedAt when the transfer is accepted, and the
// Monitor constructs its own completed instance for the same bus event.
type Transaction struct {
	Address      uint64
	Direction    Direction
	Data         *uint64 // nil until a read completes; set at construction for writes
	Strobe       []bool  // per byte lane write enable
	Error        bool    // slave error response, meaningful once completed
	BusWidth     int
	AddressWidth int
	StartedAt    int // cycle the SETUP phase was driven, NotStarted until issued
}

// NewTransaction validates the spec and builds a Transaction from it.
// A request without data is a read regardless of the direction override; a
// request with data defaults to a write unless the override says otherwise
// (a read carrying data models an already-completed transfer).
func NewTransaction(spec TransactionSpec) (*Transaction, error) {
	busWidth := spec.BusWidth
	if busWidth == 0 {
		busWidth = DefaultBusWidth
	}
	if busWidth <= 0 || busWidth%8 != 0 || busWidth > 64 {
		return nil, fmt.Errorf("%w: got %d", ErrBusWidth, spec.BusWidth)
	}
	addressWidth := spec.AddressWidth
	if addressWidth == 0 {
		addressWidth = DefaultAddressWidth
	}
	if addressWidth < 1 || addressWidth > 64 {
		return nil, fmt.Errorf("%w: got %d", ErrAddressWidth, spec.AddressWidth)
	}
	if addressWidth < 64 && spec.Address >= uint64(1)<<uint(addressWidth) {
		return nil, fmt.Errorf("%w: address 0x%X, width %d", ErrAddressOverflow, spec.Address, addressWidth)
	}

	t := &Transaction{
		Address:      spec.Address,
		BusWidth:     busWidth,
		AddressWidth: addressWidth,
		StartedAt:    NotStarted,
	}

	if spec.Data != nil {
		if busWidth < 64 && *spec.Data >= uint64(1)<<uint(busWidth) {
			return nil, fmt.Errorf("%w: data 0x%X, width %d", ErrDataOverflow, *spec.Data, busWidth)
		}
		data := *spec.Data
		t.Data = &data
		t.Direction = DirectionWrite
		if spec.Direction != nil {
			t.Direction = *spec.Direction
		}
	} else {
		t.Direction = DirectionRead
	}

	lanes := busWidth / 8
	if spec.Strobe != nil {
		if len(spec.Strobe) != lanes {
			return nil, fmt.Errorf("%w: got %d lanes, want %d", ErrStrobeLength, len(spec.Strobe), lanes)
		}
		t.Strobe = append([]bool(nil), spec.Strobe...)
	} else {
		t.Strobe = make([]bool, lanes)
		for i := range t.Strobe {
			t.Strobe[i] = true
		}
	}

	if spec.Error != nil {
		t.Error = *spec.Error
	}
	return t, nil
}

// NewRead builds a read request for the given byte address with default widths.
func NewRead(address uint64) (*Transaction, error) {
	return NewTransaction(TransactionSpec{Address: address})
}

// NewWrite builds a write request with every byte lane enabled.
func NewWrite(address, data uint64) (*Transaction, error) {
	return NewTransaction(TransactionSpec{Address: address, Data: &data})
}

// ByteLanes returns the number of byte lanes on the data bus.
func (t *Transaction) ByteLanes() int {
	return t.BusWidth / 8
}

// StrobeMask packs the byte strobes into the PSTRB wire encoding, bit i
// qualifying byte lane i.
func (t *Transaction) StrobeMask() uint64 {
	var mask uint64
	for i, enabled := range t.Strobe {
		if enabled {
			mask |= uint64(1) << uint(i)
		}
	}
	return mask
}

// Completed reports whether the transfer has finished on the bus.
func (t *Transaction) Completed() bool {
	if t.Direction == DirectionRead {
		return t.Data != nil
	}
	return t.StartedAt != NotStarted
}

// Equal compares address, direction, data, strobe and error. Timestamps and
// encoding widths are excluded.
func (t *Transaction) Equal(other *Transaction) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Address != other.Address || t.Direction != other.Direction || t.Error != other.Error {
		return false
	}
	if (t.Data == nil) != (other.Data == nil) {
		return false
	}
	if t.Data != nil && *t.Data != *other.Data {
		return false
	}
	if len(t.Strobe) != len(other.Strobe) {
		return false
	}
	for i := range t.Strobe {
		if t.Strobe[i] != other.Strobe[i] {
			return false
		}
	}
	return true
}

// Randomize redraws the transaction fields in place using the supplied
// generator: the address is uniform over the address space, and for writes the
// data is uniform over the data space with every strobe bit drawn
// independently. The direction is never altered.
func (t *Transaction) Randomize(rng *rand.Rand) {
	t.Address = randBits(rng, t.AddressWidth)
	if t.Direction == DirectionWrite {
		data := randBits(rng, t.BusWidth)
		t.Data = &data
		for i := range t.Strobe {
			t.Strobe[i] = rng.Intn(2) == 1
		}
	}
}

// randBits draws a uniform value in [0, 2^bits).
func randBits(rng *rand.Rand, bits int) uint64 {
	if bits >= 64 {
		return rng.Uint64()
	}
	return rng.Uint64() >> uint(64-bits)
}

// String returns the single line form used in log output.
func (t *Transaction) String() string {
	data := "none"
	if t.Data != nil {
		data = fmt.Sprintf("0x%0*X", t.BusWidth/4, *t.Data)
	}
	return fmt.Sprintf("APB: address: 0x%X, direction: %s, data: %s, strobe: 0x%X",
		t.Address, t.Direction, data, t.StrobeMask())
}

// Render produces a multi line human readable description of the transaction.
func (t *Transaction) Render() string {
	var b strings.Builder
	rule := strings.Repeat("-", 72)

	b.WriteString(rule + "\n")
	if t.StartedAt != NotStarted {
		fmt.Fprintf(&b, "APB Transaction - started at cycle %d\n\n", t.StartedAt)
	} else {
		b.WriteString("APB Transaction - has not occurred yet\n\n")
	}

	fmt.Fprintf(&b, "  Address:   0x%08X\n", t.Address)
	fmt.Fprintf(&b, "  Direction: %s\n", t.Direction)
	if t.Data != nil {
		fmt.Fprintf(&b, "  Data:      0x%0*X\n", t.BusWidth/4, *t.Data)
	} else {
		b.WriteString("  Data:      NO DATA YET\n")
	}
	fmt.Fprintf(&b, "  Strobe:    0x%X\n", t.StrobeMask())
	if t.Error {
		b.WriteString("  TRANSACTION ENDED IN ERROR\n")
	}
	b.WriteString(rule)
	return b.String()
}
