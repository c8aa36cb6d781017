// Package clock delivers rising clock edges to a fixed set of subscribers.
// Subscribers only make progress at an edge, and every subscriber sees the
// edge for cycle N before any subscriber sees cycle N+1.
package clock

import "sync"

// Ticker is implemented by components advanced once per rising edge.
type Ticker interface {
	RisingEdge(cycle int)
}

// TickerFunc adapts a plain function to the Ticker interface.
type TickerFunc func(cycle int)

func (f TickerFunc) RisingEdge(cycle int) { f(cycle) }

// Clock is the shared edge source. Edges are delivered synchronously to
// subscribers in registration order; goroutines elsewhere can block on cycle
// progress through WaitFor. Stepping happens from a single goroutine.
type Clock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	cycle   int
	stopped bool

	tickers []Ticker
}

// New creates a stopped-at-zero clock with no subscribers.
func New() *Clock {
	c := &Clock{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Subscribe appends a ticker. Order of registration is the order of delivery
// within each edge.
func (c *Clock) Subscribe(t Ticker) {
	if t == nil {
		return
	}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
}

// Cycle returns the number of edges delivered so far.
func (c *Clock) Cycle() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycle
}

// Stopped reports whether Stop has been called.
func (c *Clock) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Step delivers one rising edge. Returns false once the clock is stopped.
func (c *Clock) Step() bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	cycle := c.cycle
	tickers := c.tickers
	c.mu.Unlock()

	for _, t := range tickers {
		t.RisingEdge(cycle)
	}

	c.mu.Lock()
	c.cycle++
	c.cond.Broadcast()
	c.mu.Unlock()
	return true
}

// Run delivers n edges, stopping early if the clock is stopped.
// Returns the number of edges actually delivered.
func (c *Clock) Run(n int) int {
	for i := 0; i < n; i++ {
		if !c.Step() {
			return i
		}
	}
	return n
}

// RunUntil steps the clock until done reports true or maxCycles edges have
// been delivered, whichever comes first. Returns the number of edges
// delivered. This is the external bound on ACCESS-phase duration: the clock
// itself places none.
func (c *Clock) RunUntil(maxCycles int, done func() bool) int {
	for i := 0; i < maxCycles; i++ {
		if done() {
			return i
		}
		if !c.Step() {
			return i
		}
	}
	return maxCycles
}

// WaitFor blocks until at least cycle edges have been delivered. Returns
// false if the clock was stopped first.
func (c *Clock) WaitFor(cycle int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.cycle < cycle {
		if c.stopped {
			return false
		}
		c.cond.Wait()
	}
	return true
}

// Stop wakes every waiter and prevents further stepping.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.cond.Broadcast()
	c.mu.Unlock()
}
