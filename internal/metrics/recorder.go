package metrics

import (
	"strconv"

	"firestige.xyz/vbridge/internal/core"
	"firestige.xyz/vbridge/internal/egress"
	"firestige.xyz/vbridge/internal/ingress"
)

// Recorder feeds switch events into the package counters.
type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (*Recorder) FrameReceived(port core.PortNumber, size int) {
	FramesReceivedTotal.WithLabelValues(portLabel(port)).Inc()
	FrameBytes.Observe(float64(size))
}

func (*Recorder) FrameDropped(_ core.PortNumber, reason ingress.Verdict) {
	FramesDroppedTotal.WithLabelValues(reason.String()).Inc()
}

func (*Recorder) AddressLearned(vlan core.VlanID, _ core.HwAddr, _ core.PortNumber) {
	FDBLearnedTotal.WithLabelValues(vlan.String()).Inc()
}

func (*Recorder) FrameDispatched(_ *ingress.ScopedFrame, dec egress.Decision) {
	FramesForwardedTotal.WithLabelValues(dec.Mode.String()).Inc()
	for _, t := range dec.Targets {
		enc := EncodingUntagged
		if t.Tagged {
			enc = EncodingTagged
		}
		FramesSentTotal.WithLabelValues(portLabel(t.Port), enc).Inc()
	}
}

// AddressEvicted matches fdb.EvictFunc.
func (*Recorder) AddressEvicted(vlan core.VlanID, _ core.HwAddr, _ core.PortNumber) {
	FDBEvictionsTotal.WithLabelValues(vlan.String()).Inc()
}

func portLabel(p core.PortNumber) string {
	return strconv.Itoa(int(p))
}
