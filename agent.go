package apb

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/example/apb_sim/bus"
	"github.com/example/apb_sim/clock"
	"github.com/example/apb_sim/hooks"
)

// Agent assembles a complete bench: one bus, one clock, and the master,
// slave and monitor attached to them. Every rising edge it latches a single
// bus sample and ticks the three agents with it, in that order, so all of
// them see identical line values for the cycle.
type Agent struct {
	cfg      *Config
	bus      *bus.Bus
	clk      *clock.Clock
	master   *Master
	slave    *Slave
	monitor  *Monitor
	broker   *hooks.Broker
	registry *hooks.Registry
	rng      *rand.Rand
	log      *Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewAgent validates the config and wires up the bench. The clock does not
// advance until Run, RunUntilIdle, Start, or a manual Clock().Step().
func NewAgent(cfg *Config) (*Agent, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	b := bus.New(bus.Config{
		BusWidth:     cfg.BusWidth,
		AddressWidth: cfg.AddressWidth,
		OmitPStrb:    cfg.OmitPStrb,
		OmitPSlvErr:  cfg.OmitPSlvErr,
	})
	rng := rand.New(rand.NewSource(cfg.Seed))
	broker := hooks.NewBroker()

	a := &Agent{
		cfg:      cfg,
		bus:      b,
		clk:      clock.New(),
		master:   NewMaster(b, cfg.QueueCapacity, cfg.Logger),
		slave:    NewSlave(b, cfg.Registers, cfg.RandomReadyProbability, cfg.RandomErrorProbability, rng),
		monitor:  NewMonitor(b, broker),
		broker:   broker,
		registry: hooks.NewRegistry(broker),
		rng:      rng,
		log:      cfg.Logger,
	}
	a.slave.SetLogger(cfg.Logger)
	a.clk.Subscribe(clock.TickerFunc(a.edge))

	a.log.Debugf("agent: bench ready (bus %d bits, %d address bits, %d registers, seed %d)",
		cfg.BusWidth, cfg.AddressWidth, len(cfg.Registers), cfg.Seed)
	return a, nil
}

// edge runs one rising edge for the whole bench.
func (a *Agent) edge(cycle int) {
	s := a.bus.Snapshot()
	a.master.Tick(cycle, s)
	a.slave.Tick(cycle, s)
	a.monitor.Tick(cycle, s)
}

// LoadObservers activates the config's named observers against the registry.
// Factories must have been registered beforehand.
func (a *Agent) LoadObservers() error {
	return a.registry.Load(a.cfg.Observers)
}

// Master returns the driving agent.
func (a *Agent) Master() *Master { return a.master }

// Slave returns the responding agent.
func (a *Agent) Slave() *Slave { return a.slave }

// Monitor returns the observing agent.
func (a *Agent) Monitor() *Monitor { return a.monitor }

// Clock returns the shared edge source.
func (a *Agent) Clock() *clock.Clock { return a.clk }

// Bus returns the shared signal lines.
func (a *Agent) Bus() *bus.Bus { return a.bus }

// Broker returns the monitor's observer broker.
func (a *Agent) Broker() *hooks.Broker { return a.broker }

// Registry returns the named observer registry.
func (a *Agent) Registry() *hooks.Registry { return a.registry }

// Rand returns the bench random source.
func (a *Agent) Rand() *rand.Rand { return a.rng }

// Run steps the clock n cycles. Returns the number of cycles run.
func (a *Agent) Run(n int) int {
	return a.clk.Run(n)
}

// RunUntilIdle steps the clock until the master has nothing in flight, up to
// maxCycles edges. Returns the number of cycles run. The bound is the
// caller's watchdog: the protocol itself places no limit on wait states.
func (a *Agent) RunUntilIdle(maxCycles int) int {
	return a.clk.RunUntil(maxCycles, func() bool { return !a.master.Busy() })
}

// Start free-runs the clock on a background goroutine so blocking Send
// callers make progress. Stop halts it.
func (a *Agent) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true
	a.stop = make(chan struct{})
	a.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if !a.clk.Step() {
				return
			}
		}
	}(a.stop, a.done)
}

// Stop halts a background run started with Start and waits for it to exit.
func (a *Agent) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	stop, done := a.stop, a.done
	a.running = false
	a.mu.Unlock()

	close(stop)
	<-done
}

// Reset returns the whole bench to its out-of-reset state: pending
// transactions dropped, register image restored, lines re-driven.
func (a *Agent) Reset() {
	a.master.Reset()
	a.slave.Reset()
	a.monitor.Reset()
}
