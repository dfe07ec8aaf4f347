// Package mux multiplexes per-port devices into a single receive stream.
// Each device gets its own reader goroutine so that a quiet or slow port
// never delays frames from the others.
package mux

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"firestige.xyz/vbridge/internal/core"
	"firestige.xyz/vbridge/internal/transport"
)

// Device is one port's frame I/O. ReadFrame blocks for the next frame and
// must return an error once Close has been called.
type Device interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}

type item struct {
	port core.PortNumber
	data []byte
	err  error
}

// Mux implements transport.Transport over a fixed set of devices.
type Mux struct {
	devices []Device
	queue   chan item
	done    chan struct{}
	cancel  context.CancelFunc
	wg      *errgroup.Group

	closeOnce sync.Once
	closeErr  error
}

// New starts one reader per device. Port numbers are device indices.
// queueSize bounds the frames buffered ahead of Recv.
func New(devices []Device, queueSize int) (*Mux, error) {
	if len(devices) == 0 {
		return nil, errors.New("mux: no devices")
	}
	if queueSize <= 0 {
		return nil, fmt.Errorf("mux: queue size must be positive, got %d", queueSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg, ctx := errgroup.WithContext(ctx)
	m := &Mux{
		devices: devices,
		queue:   make(chan item, queueSize),
		done:    make(chan struct{}),
		cancel:  cancel,
		wg:      wg,
	}
	for i, dev := range devices {
		port := core.PortNumber(i)
		wg.Go(func() error {
			return m.read(ctx, port, dev)
		})
	}
	return m, nil
}

func (m *Mux) read(ctx context.Context, port core.PortNumber, dev Device) error {
	for {
		data, err := dev.ReadFrame()
		if err != nil {
			select {
			case <-m.done:
				return nil
			default:
			}
			err = fmt.Errorf("port %d: %w", port, err)
			select {
			case m.queue <- item{port: port, err: err}:
			case <-ctx.Done():
			case <-m.done:
			}
			return err
		}

		select {
		case m.queue <- item{port: port, data: data}:
		case <-ctx.Done():
			return nil
		case <-m.done:
			return nil
		}
	}
}

// Recv returns the next frame from any port. A device read error is
// returned once and is fatal; after Close it returns transport.ErrClosed.
func (m *Mux) Recv() (core.PortNumber, []byte, error) {
	select {
	case it := <-m.queue:
		return it.port, it.data, it.err
	case <-m.done:
		return 0, nil, transport.ErrClosed
	}
}

// Send writes data to the device for port.
func (m *Mux) Send(port core.PortNumber, data []byte) error {
	select {
	case <-m.done:
		return transport.ErrClosed
	default:
	}
	if int(port) < 0 || int(port) >= len(m.devices) {
		return fmt.Errorf("mux: port %d out of range", port)
	}
	return m.devices[port].WriteFrame(data)
}

// Close closes every device and waits for the readers to exit.
func (m *Mux) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.cancel()
		var errs []error
		for i, dev := range m.devices {
			if err := dev.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close port %d: %w", i, err))
			}
		}
		// reader errors were already delivered through Recv
		_ = m.wg.Wait()
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}
