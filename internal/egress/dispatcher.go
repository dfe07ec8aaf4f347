// Package egress decides which ports receive a scoped frame and in which
// encoding.
//
// The egress set is never filtered by the port a frame arrived on: a port
// that is a member of the frame's VLAN receives its own flooded frames, and
// a unicast frame is sent back out of its ingress port when the destination
// was learned there. Callers that need split-horizon forwarding must filter
// Decision.Targets themselves.
package egress

import (
	"fmt"

	"firestige.xyz/vbridge/internal/core"
	"firestige.xyz/vbridge/internal/ingress"
)

// Mode is the forwarding decision taken for a frame.
type Mode uint8

const (
	// ModeDrop means the frame's VLAN is not configured.
	ModeDrop Mode = iota
	// ModeUnicast means the destination was learned; only that port is a
	// candidate, and only if it is a member of the VLAN.
	ModeUnicast
	// ModeFlood means the destination is unknown (or multicast/broadcast)
	// and every VLAN member receives the frame.
	ModeFlood
)

func (m Mode) String() string {
	switch m {
	case ModeDrop:
		return "drop"
	case ModeUnicast:
		return "unicast"
	case ModeFlood:
		return "flood"
	default:
		return "unknown"
	}
}

// Target is one egress port and the encoding it receives.
type Target struct {
	Port   core.PortNumber
	Tagged bool
}

// Decision is the result of planning a frame's egress.
type Decision struct {
	Mode    Mode
	Targets []Target
}

// Lookuper resolves a learned destination.
type Lookuper interface {
	Lookup(vlan core.VlanID, mac core.HwAddr) (core.PortNumber, bool)
}

// Sender transmits an encoded frame out of a port.
type Sender interface {
	Send(port core.PortNumber, data []byte) error
}

// Dispatcher plans and performs egress for scoped frames.
type Dispatcher struct {
	cfg *core.Config
	fdb Lookuper
}

// NewDispatcher returns a Dispatcher using cfg for VLAN membership and fdb
// for learned destinations.
func NewDispatcher(cfg *core.Config, fdb Lookuper) *Dispatcher {
	return &Dispatcher{cfg: cfg, fdb: fdb}
}

// Plan computes the egress ports of frame without sending anything.
// Untagged members come first, then tagged members, each in configured order.
func (d *Dispatcher) Plan(frame *ingress.ScopedFrame) Decision {
	vlan, ok := d.cfg.Vlan(frame.Vlan)
	if !ok {
		return Decision{Mode: ModeDrop}
	}

	known, learned := d.fdb.Lookup(frame.Vlan, frame.Frame.Dst)
	mode := ModeFlood
	if learned {
		mode = ModeUnicast
	}
	eligible := func(p core.PortNumber) bool { return !learned || p == known }

	dec := Decision{Mode: mode}
	for _, p := range vlan.Untagged() {
		if eligible(p) {
			dec.Targets = append(dec.Targets, Target{Port: p})
		}
	}
	for _, p := range vlan.Tagged() {
		if eligible(p) {
			dec.Targets = append(dec.Targets, Target{Port: p, Tagged: true})
		}
	}
	return dec
}

// Dispatch plans frame and sends it to every target. Each encoding is built
// at most once. The first send error aborts dispatch and is returned.
func (d *Dispatcher) Dispatch(frame *ingress.ScopedFrame, sender Sender) (Decision, error) {
	dec := d.Plan(frame)

	var untagged, tagged []byte
	for _, t := range dec.Targets {
		var data []byte
		if t.Tagged {
			if tagged == nil {
				tagged = frame.Tagged()
			}
			data = tagged
		} else {
			if untagged == nil {
				untagged = frame.Untagged()
			}
			data = untagged
		}
		if err := sender.Send(t.Port, data); err != nil {
			return dec, fmt.Errorf("send to port %d: %w", t.Port, err)
		}
	}
	return dec, nil
}
