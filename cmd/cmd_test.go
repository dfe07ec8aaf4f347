package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/vbridge/internal/config"
)

var (
	macAA = []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0xaa}
	macBB = []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0xbb}
	bcast = []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

func frame(dst, src []byte) []byte {
	b := append(append(append([]byte(nil), dst...), src...), 0x08, 0x00)
	return append(b, bytes.Repeat([]byte{0x45}, 46)...)
}

func writePcap(t *testing.T, path string, at time.Duration, frames ...[]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for i, data := range frames {
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     time.Unix(1700000000, 0).Add(at + time.Duration(i)*time.Second),
			CaptureLength: len(data),
			Length:        len(data),
		}, data))
	}
}

func readPcap(t *testing.T, path string) [][]byte {
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

func switchConfig(dir string) string {
	p := func(name string) string { return filepath.Join(dir, name) }
	return fmt.Sprintf(`
vbridge:
  log:
    level: warn
  transport:
    type: pcap
    pcap:
      inputs: [%q, %q]
      outputs: [%q, %q, %q]
  switch:
    ports:
      - frame_types: all
      - frame_types: all
      - frame_types: all
    vlans:
      - id: 1
        untagged: [0, 1, 2]
`, p("in0.pcap"), p("in1.pcap"), p("out0.pcap"), p("out1.pcap"), p("out2.pcap"))
}

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "vbridge.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunSwitchReplaysCaptures(t *testing.T) {
	dir := t.TempDir()
	first := frame(bcast, macAA)  // port 1, floods and teaches AA@1
	second := frame(macAA, macBB) // port 0, unicast to 1
	writePcap(t, filepath.Join(dir, "in1.pcap"), 0, first)
	writePcap(t, filepath.Join(dir, "in0.pcap"), time.Second, second)

	cfg, err := config.Load(writeFile(t, dir, switchConfig(dir)))
	require.NoError(t, err)
	require.NoError(t, runSwitch(context.Background(), cfg))

	assert.Equal(t, [][]byte{first}, readPcap(t, filepath.Join(dir, "out0.pcap")))
	assert.Equal(t, [][]byte{first, second}, readPcap(t, filepath.Join(dir, "out1.pcap")))
	assert.Equal(t, [][]byte{first}, readPcap(t, filepath.Join(dir, "out2.pcap")))
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	writePcap(t, filepath.Join(dir, "in0.pcap"), 0, frame(bcast, macAA))
	writePcap(t, filepath.Join(dir, "in1.pcap"), 0)

	_, err := execute(t, "run", "-c", writeFile(t, dir, switchConfig(dir)))
	require.NoError(t, err)
	assert.Len(t, readPcap(t, filepath.Join(dir, "out2.pcap")), 1)
}

func TestRunDummyStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(writeFile(t, dir, `
vbridge:
  log: {level: error}
  transport: {type: dummy}
  switch:
    ports: [{frame_types: all}]
`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- runSwitch(ctx, cfg) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("switch did not stop after cancel")
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "config", "validate", "-c", writeFile(t, dir, switchConfig(dir)))
	require.NoError(t, err)
	assert.Contains(t, out, "VALID: 3 port(s), 1 vlan(s), transport pcap")
}

func TestConfigValidateRejects(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "config", "validate", "-c", writeFile(t, dir, `
vbridge:
  switch:
    ports: [{frame_types: all}]
    vlans: [{id: 1, untagged: [1]}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vlan 1 references port 1")
}

func TestConfigShow(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "config", "show", "-c", writeFile(t, dir, switchConfig(dir)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "vbridge:"), out)
	assert.Contains(t, out, "fdb_capacity: 65536")
	assert.Contains(t, out, "type: pcap")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vbridge dev")
}
