//go:build linux

package afpacket

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"

	"firestige.xyz/vbridge/internal/config"
	"firestige.xyz/vbridge/internal/log"
	"firestige.xyz/vbridge/internal/transport"
	"firestige.xyz/vbridge/internal/transport/mux"
)

const Name = "afpacket"

func init() {
	transport.Register(Name, Open)
}

// Open binds port i to cfg.AfPacket.Devices[i].
func Open(ctx context.Context, cfg config.TransportConfig, numPorts int) (transport.Transport, error) {
	ac := cfg.AfPacket
	if len(ac.Devices) != numPorts {
		return nil, fmt.Errorf("afpacket: %d devices configured for %d ports", len(ac.Devices), numPorts)
	}
	frameSize, blockSize, numBlocks, err := ringLayout(ac.BufferSize, ac.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("afpacket: %w", err)
	}

	var filter []bpf.RawInstruction
	if ac.BpfFilter != "" {
		filter, err = compileFilter(ac.BpfFilter, ac.SnapLen)
		if err != nil {
			return nil, fmt.Errorf("afpacket: %w", err)
		}
	}

	devices := make([]mux.Device, 0, numPorts)
	closeAll := func() {
		for _, d := range devices {
			_ = d.Close()
		}
	}
	for port, iface := range ac.Devices {
		tp, err := transport.OpenWithRetry(ctx, cfg.OpenTimeout, func() (*afpacket.TPacket, error) {
			tp, err := afpacket.NewTPacket(
				afpacket.OptInterface(iface),
				afpacket.OptFrameSize(frameSize),
				afpacket.OptBlockSize(blockSize),
				afpacket.OptNumBlocks(numBlocks),
				afpacket.OptPollTimeout(time.Duration(ac.TimeoutMs)*time.Millisecond),
				afpacket.OptAddVLANHeader(true),
				afpacket.SocketRaw,
				afpacket.TPacketVersion3,
			)
			if err != nil {
				log.GetLogger().WithField("device", iface).WithError(err).Debug("afpacket open failed, retrying")
				return nil, err
			}
			if filter != nil {
				if err := tp.SetBPF(filter); err != nil {
					tp.Close()
					return nil, backoff.Permanent(fmt.Errorf("set bpf: %w", err))
				}
			}
			return tp, nil
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("afpacket: port %d (%s): %w", port, iface, err)
		}
		log.GetLogger().WithFields(map[string]interface{}{
			"port":   port,
			"device": iface,
			"frame":  frameSize,
			"block":  blockSize,
			"blocks": numBlocks,
		}).Info("afpacket port attached")
		devices = append(devices, &device{tp: tp})
	}

	m, err := mux.New(devices, cfg.QueueSize)
	if err != nil {
		closeAll()
		return nil, err
	}
	return m, nil
}

func compileFilter(expr string, snapLen int) ([]bpf.RawInstruction, error) {
	insns, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snapLen, expr)
	if err != nil {
		return nil, fmt.Errorf("compile bpf %q: %w", expr, err)
	}
	raw := make([]bpf.RawInstruction, len(insns))
	for i, ins := range insns {
		raw[i] = bpf.RawInstruction{
			Op: ins.Code,
			Jt: ins.Jt,
			Jf: ins.Jf,
			K:  ins.K,
		}
	}
	return raw, nil
}

// device serializes ring access with Close so the ring is never unmapped
// under an in-flight read. Reads wake up at least once per poll timeout.
type device struct {
	mu     sync.RWMutex
	tp     *afpacket.TPacket
	closed bool
}

func (d *device) ReadFrame() ([]byte, error) {
	for {
		d.mu.RLock()
		if d.closed {
			d.mu.RUnlock()
			return nil, transport.ErrClosed
		}
		data, _, err := d.tp.ReadPacketData()
		d.mu.RUnlock()

		if errors.Is(err, afpacket.ErrTimeout) {
			continue
		}
		return data, err
	}
}

func (d *device) WriteFrame(data []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return transport.ErrClosed
	}
	return d.tp.WritePacketData(data)
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		d.tp.Close()
	}
	return nil
}
