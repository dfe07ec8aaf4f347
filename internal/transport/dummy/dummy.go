// Package dummy provides a transport with no ports attached: sends are
// discarded and Recv blocks until Close.
package dummy

import (
	"context"
	"sync"

	"firestige.xyz/vbridge/internal/config"
	"firestige.xyz/vbridge/internal/core"
	"firestige.xyz/vbridge/internal/transport"
)

const Name = "dummy"

func init() {
	transport.Register(Name, func(_ context.Context, _ config.TransportConfig, numPorts int) (transport.Transport, error) {
		return New(numPorts), nil
	})
}

// Transport counts what it is given and nothing more.
type Transport struct {
	numPorts int
	done     chan struct{}
	once     sync.Once

	mu   sync.Mutex
	sent []uint64
}

func New(numPorts int) *Transport {
	return &Transport{
		numPorts: numPorts,
		done:     make(chan struct{}),
		sent:     make([]uint64, numPorts),
	}
}

func (t *Transport) Send(port core.PortNumber, _ []byte) error {
	select {
	case <-t.done:
		return transport.ErrClosed
	default:
	}
	t.mu.Lock()
	if int(port) >= 0 && int(port) < t.numPorts {
		t.sent[port]++
	}
	t.mu.Unlock()
	return nil
}

func (t *Transport) Recv() (core.PortNumber, []byte, error) {
	<-t.done
	return 0, nil, transport.ErrClosed
}

func (t *Transport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

// Sent returns the number of frames discarded on port.
func (t *Transport) Sent(port core.PortNumber) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(port) < 0 || int(port) >= t.numPorts {
		return 0
	}
	return t.sent[port]
}
