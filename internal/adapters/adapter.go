// Package adapters holds the signal producers. Each adapter watches
// one activity source and emits signals through a callback; the
// pipeline neither knows nor cares what kind of source sits behind the
// interface.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"contextos/internal/logging"
	"contextos/internal/types"
)

// ErrAdapterNotFound is returned for operations on an unknown adapter.
var ErrAdapterNotFound = errors.New("adapter not found")

// EmitFunc delivers a produced signal to the pipeline.
type EmitFunc func(types.Signal)

// Adapter is one signal source.
type Adapter interface {
	// Name identifies the adapter, also used as the signal source.
	Name() string

	// Start begins producing signals through emit until ctx is
	// canceled or Stop is called. Non-blocking.
	Start(ctx context.Context, emit EmitFunc) error

	// Stop halts production and releases resources.
	Stop() error
}

// Dispatcher manages the registered adapters: which are enabled, and
// starting and stopping them with the pipeline.
type Dispatcher struct {
	mu      sync.Mutex
	items   map[string]Adapter
	enabled map[string]bool
	running bool
	ctx     context.Context
	emit    EmitFunc
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		items:   make(map[string]Adapter),
		enabled: make(map[string]bool),
	}
}

// Register adds an adapter. Enabled adapters start with the
// dispatcher; disabled ones wait for Enable.
func (d *Dispatcher) Register(a Adapter, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[a.Name()] = a
	d.enabled[a.Name()] = enabled
	logging.Get(logging.CategoryAdapters).Infow("adapter registered", "name", a.Name(), "enabled", enabled)
}

// Start launches all enabled adapters.
func (d *Dispatcher) Start(ctx context.Context, emit EmitFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.running = true
	d.ctx = ctx
	d.emit = emit

	log := logging.Get(logging.CategoryAdapters)
	for name, a := range d.items {
		if !d.enabled[name] {
			continue
		}
		if err := a.Start(ctx, emit); err != nil {
			log.Errorw("adapter failed to start", "name", name, "error", err)
			return fmt.Errorf("starting adapter %s: %w", name, err)
		}
		log.Infow("adapter started", "name", name)
	}
	return nil
}

// Stop halts all enabled adapters.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := logging.Get(logging.CategoryAdapters)
	for name, a := range d.items {
		if !d.enabled[name] {
			continue
		}
		if err := a.Stop(); err != nil {
			log.Warnw("adapter failed to stop cleanly", "name", name, "error", err)
		}
	}
	d.running = false
}

// Enable switches an adapter on, starting it immediately when the
// dispatcher is already running.
func (d *Dispatcher) Enable(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}
	if d.enabled[name] {
		return nil
	}
	if d.running {
		if err := a.Start(d.ctx, d.emit); err != nil {
			return fmt.Errorf("starting adapter %s: %w", name, err)
		}
	}
	d.enabled[name] = true
	logging.Get(logging.CategoryAdapters).Infow("adapter enabled", "name", name)
	return nil
}

// Disable switches an adapter off, stopping it when running.
func (d *Dispatcher) Disable(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}
	if !d.enabled[name] {
		return nil
	}
	if d.running {
		if err := a.Stop(); err != nil {
			logging.Get(logging.CategoryAdapters).Warnw("adapter failed to stop", "name", name, "error", err)
		}
	}
	d.enabled[name] = false
	logging.Get(logging.CategoryAdapters).Infow("adapter disabled", "name", name)
	return nil
}

// Names returns registered adapter names and their enabled state.
func (d *Dispatcher) Names() map[string]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]bool, len(d.enabled))
	for name, on := range d.enabled {
		out[name] = on
	}
	return out
}
