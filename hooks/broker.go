// Package hooks provides the observer fabric for bus activity. The monitor
// publishes completed transfers and phase changes through a Broker; test
// benches attach scoreboards, coverage collectors and loggers to it.
package hooks

import (
	"sync"

	"github.com/example/apb_sim/core"
)

// ObserverCategory represents the high-level role of an observer.
type ObserverCategory string

const (
	// CategoryScoreboard covers checkers comparing observed against expected transfers.
	CategoryScoreboard ObserverCategory = "scoreboard"
	// CategoryCoverage covers functional coverage collectors.
	CategoryCoverage ObserverCategory = "coverage"
	// CategoryInstrumentation covers metrics, tracing, and diagnostics.
	CategoryInstrumentation ObserverCategory = "instrumentation"
)

// ObserverDescriptor describes an observer registered with the broker.
type ObserverDescriptor struct {
	Name        string
	Category    ObserverCategory
	Description string
}

// TransferContext carries a completed transfer to observers. The transaction
// is fully populated and must not be mutated by handlers.
type TransferContext struct {
	Transaction *core.Transaction
	Cycle       int // cycle the transfer was accepted
}

// PhaseContext carries a SETUP phase observation.
type PhaseContext struct {
	Cycle   int
	Address uint64
	Write   bool
}

// TransferHook executes when a transfer completes on the bus.
type TransferHook func(ctx *TransferContext) error

// SetupHook executes when a SETUP phase is observed.
type SetupHook func(ctx *PhaseContext) error

// HookBundle groups the hook handlers that belong to one observer.
type HookBundle struct {
	Transfer []TransferHook
	Setup    []SetupHook
}

// Broker coordinates hook registration and dispatch. Hooks run synchronously
// in registration order within the same clock edge as the observation, so
// handlers must not block.
type Broker struct {
	mu sync.RWMutex

	transferHooks []TransferHook
	setupHooks    []SetupHook

	catalog map[ObserverCategory][]ObserverDescriptor
	index   map[string]ObserverDescriptor
}

// NewBroker creates an empty broker instance.
func NewBroker() *Broker {
	return &Broker{
		catalog: make(map[ObserverCategory][]ObserverDescriptor),
		index:   make(map[string]ObserverDescriptor),
	}
}

// RegisterTransfer adds a hook executed on every completed transfer.
func (b *Broker) RegisterTransfer(h TransferHook) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transferHooks = append(b.transferHooks, h)
}

// RegisterSetup adds a hook executed on every observed SETUP phase.
func (b *Broker) RegisterSetup(h SetupHook) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setupHooks = append(b.setupHooks, h)
}

// EmitTransfer triggers transfer hooks in registration order. Dispatch stops
// at the first handler error.
func (b *Broker) EmitTransfer(ctx *TransferContext) error {
	if b == nil || ctx == nil {
		return nil
	}
	b.mu.RLock()
	handlers := make([]TransferHook, len(b.transferHooks))
	copy(handlers, b.transferHooks)
	b.mu.RUnlock()
	for _, handler := range handlers {
		if err := handler(ctx); err != nil {
			return err
		}
	}
	return nil
}

// EmitSetup triggers setup hooks in registration order.
func (b *Broker) EmitSetup(ctx *PhaseContext) error {
	if b == nil || ctx == nil {
		return nil
	}
	b.mu.RLock()
	handlers := make([]SetupHook, len(b.setupHooks))
	copy(handlers, b.setupHooks)
	b.mu.RUnlock()
	for _, handler := range handlers {
		if err := handler(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RegisterBundle registers an observer descriptor together with all of its
// hook handlers.
func (b *Broker) RegisterBundle(desc ObserverDescriptor, bundle HookBundle) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.registerDescriptorLocked(desc)

	if len(bundle.Transfer) > 0 {
		b.transferHooks = append(b.transferHooks, bundle.Transfer...)
	}
	if len(bundle.Setup) > 0 {
		b.setupHooks = append(b.setupHooks, bundle.Setup...)
	}
}

// RegisterObserverMetadata stores observer metadata without registering hooks.
func (b *Broker) RegisterObserverMetadata(desc ObserverDescriptor) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerDescriptorLocked(desc)
}

// ListObservers returns descriptors for observers in the requested category.
func (b *Broker) ListObservers(category ObserverCategory) []ObserverDescriptor {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	catalog := b.catalog[category]
	if len(catalog) == 0 {
		return nil
	}
	out := make([]ObserverDescriptor, len(catalog))
	copy(out, catalog)
	return out
}

// ListAllObservers returns descriptors of every registered observer.
func (b *Broker) ListAllObservers() []ObserverDescriptor {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ObserverDescriptor, 0, len(b.index))
	for _, desc := range b.index {
		out = append(out, desc)
	}
	return out
}

func (b *Broker) registerDescriptorLocked(desc ObserverDescriptor) {
	if desc.Name == "" {
		return
	}
	if _, exists := b.index[desc.Name]; exists {
		return
	}
	b.index[desc.Name] = desc
	b.catalog[desc.Category] = append(b.catalog[desc.Category], desc)
}
