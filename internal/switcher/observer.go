package switcher

import (
	"firestige.xyz/vbridge/internal/core"
	"firestige.xyz/vbridge/internal/egress"
	"firestige.xyz/vbridge/internal/ingress"
)

// Observer is notified of every step the run loop takes. Calls are made
// from the loop goroutine and must not block.
type Observer interface {
	FrameReceived(port core.PortNumber, size int)
	FrameDropped(port core.PortNumber, reason ingress.Verdict)
	AddressLearned(vlan core.VlanID, mac core.HwAddr, port core.PortNumber)
	FrameDispatched(frame *ingress.ScopedFrame, dec egress.Decision)
}

type nopObserver struct{}

func (nopObserver) FrameReceived(core.PortNumber, int)                       {}
func (nopObserver) FrameDropped(core.PortNumber, ingress.Verdict)            {}
func (nopObserver) AddressLearned(core.VlanID, core.HwAddr, core.PortNumber) {}
func (nopObserver) FrameDispatched(*ingress.ScopedFrame, egress.Decision)    {}

type multiObserver []Observer

// MultiObserver fans every event out to each of obs in order.
func MultiObserver(obs ...Observer) Observer {
	return multiObserver(obs)
}

func (m multiObserver) FrameReceived(port core.PortNumber, size int) {
	for _, o := range m {
		o.FrameReceived(port, size)
	}
}

func (m multiObserver) FrameDropped(port core.PortNumber, reason ingress.Verdict) {
	for _, o := range m {
		o.FrameDropped(port, reason)
	}
}

func (m multiObserver) AddressLearned(vlan core.VlanID, mac core.HwAddr, port core.PortNumber) {
	for _, o := range m {
		o.AddressLearned(vlan, mac, port)
	}
}

func (m multiObserver) FrameDispatched(frame *ingress.ScopedFrame, dec egress.Decision) {
	for _, o := range m {
		o.FrameDispatched(frame, dec)
	}
}
