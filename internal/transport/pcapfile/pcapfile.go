// Package pcapfile replays per-port capture files through the switch and
// records each port's egress to its own capture file.
//
// Recv is port-synchronous: it always returns the pending packet with the
// earliest capture timestamp, ties going to the lowest port, and io.EOF once
// every input is exhausted.
package pcapfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/vbridge/internal/config"
	"firestige.xyz/vbridge/internal/core"
	"firestige.xyz/vbridge/internal/transport"
)

const Name = "pcap"

func init() {
	transport.Register(Name, func(_ context.Context, cfg config.TransportConfig, numPorts int) (transport.Transport, error) {
		t, err := Open(cfg.Pcap, numPorts)
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}

type input struct {
	file    *os.File
	reader  *pcapgo.Reader
	data    []byte
	ci      gopacket.CaptureInfo
	pending bool
}

func (in *input) advance() error {
	data, ci, err := in.reader.ReadPacketData()
	if errors.Is(err, io.EOF) {
		in.pending = false
		in.data = nil
		return nil
	}
	if err != nil {
		return err
	}
	in.data, in.ci, in.pending = data, ci, true
	return nil
}

type output struct {
	file   *os.File
	buf    *bufio.Writer
	writer *pcapgo.Writer
}

// Transport is a file-backed transport. Ports without an input never
// receive; ports without an output discard what is sent to them.
type Transport struct {
	mu      sync.Mutex
	inputs  []*input
	outputs []*output
	closed  bool
	now     func() time.Time
}

// Open prepares numPorts ports from cfg. cfg.Inputs and cfg.Outputs are
// indexed by port and may be shorter than numPorts.
func Open(cfg config.PcapConfig, numPorts int) (*Transport, error) {
	if len(cfg.Inputs) > numPorts || len(cfg.Outputs) > numPorts {
		return nil, fmt.Errorf("pcap: more files than the %d configured ports", numPorts)
	}
	snapLen := cfg.SnapLen
	if snapLen <= 0 {
		snapLen = 65535
	}

	t := &Transport{
		inputs:  make([]*input, numPorts),
		outputs: make([]*output, numPorts),
		now:     time.Now,
	}

	for port, path := range cfg.Inputs {
		if path == "" {
			continue
		}
		in, err := openInput(path)
		if err != nil {
			_ = t.Close()
			return nil, fmt.Errorf("pcap: port %d input: %w", port, err)
		}
		t.inputs[port] = in
	}
	for port, path := range cfg.Outputs {
		if path == "" {
			continue
		}
		out, err := createOutput(path, uint32(snapLen))
		if err != nil {
			_ = t.Close()
			return nil, fmt.Errorf("pcap: port %d output: %w", port, err)
		}
		t.outputs[port] = out
	}
	return t, nil
}

func openInput(path string) (*input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if r.LinkType() != layers.LinkTypeEthernet {
		f.Close()
		return nil, fmt.Errorf("%s: link type %s is not ethernet", path, r.LinkType())
	}
	in := &input{file: f, reader: r}
	if err := in.advance(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

func createOutput(path string, snapLen uint32) (*output, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	w := pcapgo.NewWriter(buf)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &output{file: f, buf: buf, writer: w}, nil
}

// Recv returns the earliest pending packet across all inputs.
func (t *Transport) Recv() (core.PortNumber, []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, nil, transport.ErrClosed
	}

	next := -1
	for port, in := range t.inputs {
		if in == nil || !in.pending {
			continue
		}
		if next < 0 || in.ci.Timestamp.Before(t.inputs[next].ci.Timestamp) {
			next = port
		}
	}
	if next < 0 {
		return 0, nil, io.EOF
	}

	in := t.inputs[next]
	data := in.data
	if err := in.advance(); err != nil {
		return 0, nil, fmt.Errorf("pcap: port %d: %w", next, err)
	}
	return core.PortNumber(next), data, nil
}

// Send appends data to port's output file.
func (t *Transport) Send(port core.PortNumber, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return transport.ErrClosed
	}
	if int(port) < 0 || int(port) >= len(t.outputs) {
		return fmt.Errorf("pcap: port %d out of range", port)
	}
	out := t.outputs[port]
	if out == nil {
		return nil
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     t.now(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := out.writer.WritePacket(ci, data); err != nil {
		return fmt.Errorf("pcap: port %d: %w", port, err)
	}
	return nil
}

// Close flushes outputs and closes every file.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	for _, in := range t.inputs {
		if in != nil {
			errs = append(errs, in.file.Close())
		}
	}
	for _, out := range t.outputs {
		if out != nil {
			errs = append(errs, out.buf.Flush(), out.file.Close())
		}
	}
	return errors.Join(errs...)
}
