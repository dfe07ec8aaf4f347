// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesReceivedTotal counts frames read from each port, before admission.
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbridge_frames_received_total",
			Help: "Total number of frames received per port",
		},
		[]string{"port"},
	)

	// FrameBytes observes received frame sizes.
	FrameBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vbridge_frame_bytes",
			Help:    "Size of received frames in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10), // 64 to 32768
		},
	)

	// FramesDroppedTotal counts frames rejected at ingress by reason.
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbridge_frames_dropped_total",
			Help: "Total number of frames dropped at ingress",
		},
		[]string{"reason"},
	)

	// FramesForwardedTotal counts forwarding decisions by mode (unicast/flood/drop).
	FramesForwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbridge_frames_forwarded_total",
			Help: "Total number of forwarding decisions by mode",
		},
		[]string{"mode"},
	)

	// FramesSentTotal counts frames written to each port by encoding.
	FramesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbridge_frames_sent_total",
			Help: "Total number of frames sent per port and encoding",
		},
		[]string{"port", "encoding"},
	)

	// FDBLearnedTotal counts learning updates per VLAN, refreshes included.
	FDBLearnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbridge_fdb_learned_total",
			Help: "Total number of source address learning updates per VLAN",
		},
		[]string{"vlan"},
	)

	// FDBEvictionsTotal counts LRU evictions per VLAN.
	FDBEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vbridge_fdb_evictions_total",
			Help: "Total number of forwarding table entries evicted per VLAN",
		},
		[]string{"vlan"},
	)
)

const (
	EncodingTagged   = "tagged"
	EncodingUntagged = "untagged"
)
