// Package apb implements a bus-functional model for the AMBA APB protocol:
// a master that drives transfers, a slave that responds with programmable
// randomized flow control, and a monitor that passively reconstructs the
// transaction stream. All three advance on a shared clock edge source and
// exchange core.Transaction values.
package apb

import (
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/example/apb_sim/bus"
)

// DefaultRegisterCount is the slave register file size when none is given.
const DefaultRegisterCount = 16

// Config holds the bench configuration for an Agent.
type Config struct {
	BusWidth     int // data width in bits, default 32
	AddressWidth int // address width in bits, default 12

	// Initial register file contents. Defaults to DefaultRegisterCount
	// zeroed words.
	Registers []uint64

	// RandomReadyProbability is the chance, each waited cycle, that the
	// slave deasserts PREADY and inserts a wait state. 0 means always
	// ready, 1 models a hung bus.
	RandomReadyProbability float64

	// RandomErrorProbability is the chance, on the cycle readiness is
	// asserted, that the slave responds with PSLVERR instead of completing
	// normally.
	RandomErrorProbability float64

	// Seed for the injected random source. 0 picks a time based seed.
	Seed int64

	// QueueCapacity bounds the master transmit queue. 0 means unlimited.
	QueueCapacity int

	// Optional bus lines left unwired.
	OmitPStrb   bool
	OmitPSlvErr bool

	// Observers are loaded by name from the agent's registry.
	Observers []string

	Logger *Logger
}

// ValidateConfig applies structural checks to Config and populates defaults
// where required.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if cfg.BusWidth == 0 {
		cfg.BusWidth = bus.DefaultBusWidth
	}
	if cfg.BusWidth <= 0 || cfg.BusWidth%8 != 0 || cfg.BusWidth > 64 {
		return fmt.Errorf("BusWidth must be a multiple of 8 within (0,64], got %d", cfg.BusWidth)
	}
	if lanes := cfg.BusWidth / 8; bits.OnesCount(uint(lanes)) != 1 {
		return fmt.Errorf("BusWidth must give a power of two byte lane count, got %d lanes", lanes)
	}
	if cfg.AddressWidth == 0 {
		cfg.AddressWidth = bus.DefaultAddressWidth
	}
	if cfg.AddressWidth < 1 || cfg.AddressWidth > 64 {
		return fmt.Errorf("AddressWidth must be within [1,64], got %d", cfg.AddressWidth)
	}
	if cfg.RandomReadyProbability < 0 || cfg.RandomReadyProbability > 1 {
		return fmt.Errorf("RandomReadyProbability must be within [0,1], got %.3f", cfg.RandomReadyProbability)
	}
	if cfg.RandomErrorProbability < 0 || cfg.RandomErrorProbability > 1 {
		return fmt.Errorf("RandomErrorProbability must be within [0,1], got %.3f", cfg.RandomErrorProbability)
	}
	if cfg.QueueCapacity < 0 {
		return fmt.Errorf("QueueCapacity must be non-negative (0 for unlimited), got %d", cfg.QueueCapacity)
	}

	if cfg.Registers == nil {
		cfg.Registers = make([]uint64, DefaultRegisterCount)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	return nil
}
