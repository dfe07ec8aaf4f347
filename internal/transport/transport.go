// Package transport defines the port I/O boundary of the switch and a
// registry of backends selected by name from configuration.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/vbridge/internal/config"
	"firestige.xyz/vbridge/internal/core"
)

// ErrClosed is returned by Recv and Send after Close.
var ErrClosed = errors.New("vbridge: transport closed")

// Transport moves raw frames between the switch and its ports.
type Transport interface {
	// Send transmits data out of port. port is always valid.
	Send(port core.PortNumber, data []byte) error
	// Recv blocks until a frame arrives on any port. Any error is fatal to
	// the caller; ErrClosed and io.EOF mark an orderly end.
	Recv() (core.PortNumber, []byte, error)
	// Close releases the ports and unblocks Recv.
	Close() error
}

// Factory opens a backend for numPorts ports.
type Factory func(ctx context.Context, cfg config.TransportConfig, numPorts int) (Transport, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register makes a backend available under name. Backends call it from init.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[name]; dup {
		panic("transport: Register called twice for " + name)
	}
	registry[name] = factory
}

// Names returns the registered backend names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the backend named by cfg.Type.
func Open(ctx context.Context, cfg config.TransportConfig, numPorts int) (Transport, error) {
	mu.RLock()
	factory, ok := registry[cfg.Type]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown transport type %q (registered: %v)", cfg.Type, Names())
	}
	t, err := factory(ctx, cfg, numPorts)
	if err != nil {
		return nil, fmt.Errorf("open %s transport: %w", cfg.Type, err)
	}
	return t, nil
}
