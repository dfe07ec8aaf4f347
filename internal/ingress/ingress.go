package ingress

import (
	"firestige.xyz/vbridge/internal/core"
)

// Verdict is the outcome of classifying one received frame.
type Verdict uint8

const (
	// Accepted means the frame was admitted and scoped to a VLAN.
	Accepted Verdict = iota
	// DropMalformed means the header could not be parsed or carried VLAN 0.
	DropMalformed
	// DropFrameType means the port's acceptable-frame-types policy rejected it.
	DropFrameType
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case DropMalformed:
		return "malformed"
	case DropFrameType:
		return "frame_type"
	default:
		return "unknown"
	}
}

// Processor applies per-port admission and VLAN scoping.
type Processor struct {
	cfg *core.Config
}

// NewProcessor returns a Processor reading port policy from cfg.
func NewProcessor(cfg *core.Config) *Processor {
	return &Processor{cfg: cfg}
}

// Process returns the admitted, VLAN-scoped frame, or false when the frame
// is dropped. Drops are routine and carry no error. port must be a valid
// port number for the configuration.
func (p *Processor) Process(port core.PortNumber, data []byte) (ScopedFrame, bool) {
	frame, verdict := p.Classify(port, data)
	return frame, verdict == Accepted
}

// Classify is Process with the reason for a drop.
func (p *Processor) Classify(port core.PortNumber, data []byte) (ScopedFrame, Verdict) {
	portCfg := p.cfg.Port(port)

	tag, frame, err := ParseFrame(data)
	if err != nil {
		return ScopedFrame{}, DropMalformed
	}

	tagged := tag != 0
	if !portCfg.FrameTypes.Accepts(tagged) {
		return ScopedFrame{}, DropFrameType
	}

	vlan := portCfg.PVID
	if tagged {
		vlan = tag
	}
	return ScopedFrame{Vlan: vlan, Frame: frame}, Accepted
}
