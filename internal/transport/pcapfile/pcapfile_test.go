package pcapfile

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/vbridge/internal/config"
	"firestige.xyz/vbridge/internal/core"
	"firestige.xyz/vbridge/internal/transport"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type packet struct {
	at   time.Duration
	data []byte
}

func writeCapture(t *testing.T, path string, link layers.LinkType, pkts ...packet) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, link))
	for _, p := range pkts {
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     epoch.Add(p.at),
			CaptureLength: len(p.data),
			Length:        len(p.data),
		}, p.data))
	}
}

func readCapture(t *testing.T, path string) [][]byte {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)
	var out [][]byte
	for {
		data, _, err := r.ReadPacketData()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, data)
	}
}

func TestRecvOrdersByTimestamp(t *testing.T) {
	dir := t.TempDir()
	p0 := filepath.Join(dir, "p0.pcap")
	p2 := filepath.Join(dir, "p2.pcap")
	writeCapture(t, p0, layers.LinkTypeEthernet,
		packet{at: 1 * time.Millisecond, data: []byte{0, 1}},
		packet{at: 3 * time.Millisecond, data: []byte{0, 3}},
	)
	writeCapture(t, p2, layers.LinkTypeEthernet,
		packet{at: 1 * time.Millisecond, data: []byte{2, 1}},
		packet{at: 2 * time.Millisecond, data: []byte{2, 2}},
	)

	tr, err := Open(config.PcapConfig{Inputs: []string{p0, "", p2}}, 3)
	require.NoError(t, err)
	defer tr.Close()

	type got struct {
		port core.PortNumber
		data []byte
	}
	var seq []got
	for {
		port, data, err := tr.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		seq = append(seq, got{port, data})
	}

	assert.Equal(t, []got{
		{0, []byte{0, 1}}, // tie at 1ms goes to the lower port
		{2, []byte{2, 1}},
		{2, []byte{2, 2}},
		{0, []byte{0, 3}},
	}, seq)

	// exhausted inputs stay exhausted
	_, _, err = tr.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSendWritesPerPortOutput(t *testing.T) {
	dir := t.TempDir()
	out1 := filepath.Join(dir, "out1.pcap")

	tr, err := Open(config.PcapConfig{Outputs: []string{"", out1}}, 2)
	require.NoError(t, err)

	require.NoError(t, tr.Send(0, []byte{0xde, 0xad}))
	require.NoError(t, tr.Send(1, []byte{0xbe, 0xef}))
	require.NoError(t, tr.Send(1, []byte{0xca, 0xfe}))
	require.NoError(t, tr.Close())

	assert.Equal(t, [][]byte{{0xbe, 0xef}, {0xca, 0xfe}}, readCapture(t, out1))
}

func TestNoInputsIsImmediateEOF(t *testing.T) {
	tr, err := Open(config.PcapConfig{}, 2)
	require.NoError(t, err)
	defer tr.Close()

	_, _, err = tr.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClosed(t *testing.T) {
	tr, err := Open(config.PcapConfig{}, 1)
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, _, err = tr.Recv()
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.ErrorIs(t, tr.Send(0, []byte{1}), transport.ErrClosed)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.pcap")
	writeCapture(t, raw, layers.LinkTypeRaw)

	tests := []struct {
		name string
		cfg  config.PcapConfig
	}{
		{"missing input", config.PcapConfig{Inputs: []string{filepath.Join(dir, "nope.pcap")}}},
		{"not ethernet", config.PcapConfig{Inputs: []string{raw}}},
		{"too many files", config.PcapConfig{Outputs: []string{"a", "b", "c"}}},
		{"output dir missing", config.PcapConfig{Outputs: []string{filepath.Join(dir, "x", "y.pcap")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg, 2)
			assert.Error(t, err)
		})
	}
}

func TestRegistered(t *testing.T) {
	tr, err := transport.Open(context.Background(), config.TransportConfig{Type: Name}, 1)
	require.NoError(t, err)
	defer tr.Close()
	assert.IsType(t, &Transport{}, tr)
}
