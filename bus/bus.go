// Package bus models the logical APB signal lines shared by the master,
// slave and monitor agents. The environment owns name binding to real
// hardware signals; agents only ever see the fixed logical lines here.
package bus

// Default line widths in bits.
const (
	DefaultBusWidth     = 32
	DefaultAddressWidth = 12
)

// Config describes the geometry and optional-line wiring of a bus instance.
// The zero value is a fully wired 32 bit bus with 12 address bits.
type Config struct {
	BusWidth     int // data width in bits, default 32
	AddressWidth int // address width in bits, default 12

	// Optional lines. Leaving one out mimics a DUT that does not expose it:
	// drives become no-ops and samples report the documented default.
	OmitPStrb   bool
	OmitPSlvErr bool
}

// Bus holds the current driven value of every line. The master is the sole
// writer of the request lines, the slave of the response lines; the per-cycle
// schedule serializes all access, so there is no locking here.
type Bus struct {
	busWidth     int
	addressWidth int
	hasPStrb     bool
	hasPSlvErr   bool

	// master driven
	psel    bool
	penable bool
	pwrite  bool
	paddr   uint64
	pwdata  uint64
	pstrb   uint64

	// slave driven
	prdata  uint64
	pready  bool
	pslverr bool
}

// Sample is the value of every line latched at a rising edge. All agents
// ticking on that edge receive the same Sample, which is what makes their
// per-cycle views consistent. Unwired optional lines read as their defaults:
// PStrb with every lane enabled, PSlvErr false.
type Sample struct {
	PSel    bool
	PEnable bool
	PWrite  bool
	PAddr   uint64
	PWData  uint64
	PStrb   uint64
	PRData  uint64
	PReady  bool
	PSlvErr bool

	HasPStrb   bool
	HasPSlvErr bool
}

// New builds a bus with all lines at zero.
func New(cfg Config) *Bus {
	busWidth := cfg.BusWidth
	if busWidth == 0 {
		busWidth = DefaultBusWidth
	}
	addressWidth := cfg.AddressWidth
	if addressWidth == 0 {
		addressWidth = DefaultAddressWidth
	}
	return &Bus{
		busWidth:     busWidth,
		addressWidth: addressWidth,
		hasPStrb:     !cfg.OmitPStrb,
		hasPSlvErr:   !cfg.OmitPSlvErr,
	}
}

// BusWidth returns the data width in bits.
func (b *Bus) BusWidth() int { return b.busWidth }

// AddressWidth returns the address width in bits.
func (b *Bus) AddressWidth() int { return b.addressWidth }

// ByteLanes returns the number of byte lanes on the data bus.
func (b *Bus) ByteLanes() int { return b.busWidth / 8 }

// HasPStrb reports whether the byte strobe line is wired.
func (b *Bus) HasPStrb() bool { return b.hasPStrb }

// HasPSlvErr reports whether the error line is wired.
func (b *Bus) HasPSlvErr() bool { return b.hasPSlvErr }

func (b *Bus) DrivePSel(v bool)    { b.psel = v }
func (b *Bus) DrivePEnable(v bool) { b.penable = v }
func (b *Bus) DrivePWrite(v bool)  { b.pwrite = v }
func (b *Bus) DrivePReady(v bool)  { b.pready = v }

// DrivePAddr drives the address lines, truncated to the address width.
func (b *Bus) DrivePAddr(v uint64) { b.paddr = v & mask(b.addressWidth) }

// DrivePWData drives the write data lines, truncated to the bus width.
func (b *Bus) DrivePWData(v uint64) { b.pwdata = v & mask(b.busWidth) }

// DrivePRData drives the read data lines, truncated to the bus width.
func (b *Bus) DrivePRData(v uint64) { b.prdata = v & mask(b.busWidth) }

// DrivePStrb drives the byte strobes. A no-op when the line is unwired.
func (b *Bus) DrivePStrb(v uint64) {
	if !b.hasPStrb {
		return
	}
	b.pstrb = v & mask(b.busWidth/8)
}

// DrivePSlvErr drives the error response line. A no-op when unwired.
func (b *Bus) DrivePSlvErr(v bool) {
	if !b.hasPSlvErr {
		return
	}
	b.pslverr = v
}

// Snapshot latches every line into a Sample.
func (b *Bus) Snapshot() Sample {
	s := Sample{
		PSel:       b.psel,
		PEnable:    b.penable,
		PWrite:     b.pwrite,
		PAddr:      b.paddr,
		PWData:     b.pwdata,
		PStrb:      b.pstrb,
		PRData:     b.prdata,
		PReady:     b.pready,
		PSlvErr:    b.pslverr,
		HasPStrb:   b.hasPStrb,
		HasPSlvErr: b.hasPSlvErr,
	}
	if !b.hasPStrb {
		s.PStrb = mask(b.busWidth / 8)
	}
	return s
}

// Reset returns every line to zero.
func (b *Bus) Reset() {
	b.psel = false
	b.penable = false
	b.pwrite = false
	b.paddr = 0
	b.pwdata = 0
	b.pstrb = 0
	b.prdata = 0
	b.pready = false
	b.pslverr = false
}

func mask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bits)) - 1
}
