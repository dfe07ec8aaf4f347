// Package switcher runs the receive, learn and dispatch loop of the bridge.
package switcher

import (
	"fmt"

	"firestige.xyz/vbridge/internal/core"
	"firestige.xyz/vbridge/internal/egress"
	"firestige.xyz/vbridge/internal/fdb"
	"firestige.xyz/vbridge/internal/ingress"
	"firestige.xyz/vbridge/internal/transport"
)

type options struct {
	capacity int
	observer Observer
	onEvict  fdb.EvictFunc
}

// Option configures a Switch.
type Option func(*options)

// WithFDBCapacity sets the per-VLAN forwarding table capacity.
func WithFDBCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithObserver installs an observer for frame events.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithEvictCallback is notified when a learned address is evicted.
func WithEvictCallback(fn fdb.EvictFunc) Option {
	return func(o *options) { o.onEvict = fn }
}

// Switch binds one configuration and one transport. It is not safe for
// concurrent use: Run must be the only caller into the forwarding table.
type Switch struct {
	cfg        *core.Config
	ingress    *ingress.Processor
	fdb        *fdb.Table
	dispatcher *egress.Dispatcher
	transport  transport.Transport
	observer   Observer
}

// New builds a Switch over cfg reading from and writing to t.
func New(cfg *core.Config, t transport.Transport, opts ...Option) (*Switch, error) {
	o := options{
		capacity: fdb.DefaultCapacity,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	var tableOpts []fdb.Option
	if o.onEvict != nil {
		tableOpts = append(tableOpts, fdb.WithEvictCallback(o.onEvict))
	}
	table, err := fdb.New(o.capacity, tableOpts...)
	if err != nil {
		return nil, err
	}

	return &Switch{
		cfg:        cfg,
		ingress:    ingress.NewProcessor(cfg),
		fdb:        table,
		dispatcher: egress.NewDispatcher(cfg, table),
		transport:  t,
		observer:   o.observer,
	}, nil
}

// FDB exposes the forwarding table for inspection.
func (s *Switch) FDB() *fdb.Table { return s.fdb }

// Run processes frames until the transport fails. It never returns nil;
// transport.ErrClosed or io.EOF (wrapped) mark an orderly shutdown.
func (s *Switch) Run() error {
	for {
		if err := s.Step(); err != nil {
			return err
		}
	}
}

// Step receives and handles exactly one frame.
func (s *Switch) Step() error {
	port, data, err := s.transport.Recv()
	if err != nil {
		return fmt.Errorf("recv: %w", err)
	}
	if int(port) < 0 || int(port) >= s.cfg.NumPorts() {
		return fmt.Errorf("recv: transport reported port %d, only %d ports defined", port, s.cfg.NumPorts())
	}
	s.observer.FrameReceived(port, len(data))

	frame, verdict := s.ingress.Classify(port, data)
	if verdict != ingress.Accepted {
		s.observer.FrameDropped(port, verdict)
		return nil
	}

	s.fdb.Update(frame.Vlan, frame.Frame.Src, port)
	s.observer.AddressLearned(frame.Vlan, frame.Frame.Src, port)

	dec, err := s.dispatcher.Dispatch(&frame, s.transport)
	if err != nil {
		return err
	}
	s.observer.FrameDispatched(&frame, dec)
	return nil
}
