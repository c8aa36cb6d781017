package hooks

import (
	"fmt"
	"sync"
)

// ObserverFactory installs an observer's hooks into the broker.
type ObserverFactory func(broker *Broker) error

type registryEntry struct {
	desc    ObserverDescriptor
	factory ObserverFactory
}

// Registry keeps observer factories that can be activated by name via
// configuration, so a bench can pick its scoreboards and collectors without
// wiring them by hand.
type Registry struct {
	mu     sync.RWMutex
	broker *Broker

	entries map[string]registryEntry
}

// NewRegistry creates an empty observer registry bound to a broker.
func NewRegistry(broker *Broker) *Registry {
	if broker == nil {
		broker = NewBroker()
	}
	return &Registry{
		broker:  broker,
		entries: make(map[string]registryEntry),
	}
}

// Broker returns the underlying broker associated with the registry.
func (r *Registry) Broker() *Broker {
	if r == nil {
		return nil
	}
	return r.broker
}

// Register records an observer factory under a unique name.
func (r *Registry) Register(name string, desc ObserverDescriptor, factory ObserverFactory) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if name == "" {
		return fmt.Errorf("observer name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("observer factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("observer already registered: %s", name)
	}

	r.entries[name] = registryEntry{
		desc:    desc,
		factory: factory,
	}
	return nil
}

// Load activates the requested observers in order.
func (r *Registry) Load(names []string) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	for _, name := range names {
		entry, err := r.get(name)
		if err != nil {
			return err
		}
		if err := entry.factory(r.broker); err != nil {
			return fmt.Errorf("observer %s failed: %w", name, err)
		}
		r.broker.RegisterObserverMetadata(entry.desc)
	}
	return nil
}

// Descriptor returns metadata registered under the provided name.
func (r *Registry) Descriptor(name string) (ObserverDescriptor, bool) {
	if r == nil {
		return ObserverDescriptor{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return ObserverDescriptor{}, false
	}
	return entry.desc, true
}

func (r *Registry) get(name string) (registryEntry, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return registryEntry{}, fmt.Errorf("observer not found: %s", name)
	}
	return entry, nil
}
