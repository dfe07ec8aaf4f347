package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/vbridge/internal/core"
)

const (
	untaggedHex = "003018051cc074563cffd2780800"
	taggedHex   = "001562643341001c582364c18100000a0800"
)

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	cfg, err := core.NewConfigBuilder().
		WithPorts(
			core.NewPortConfig(core.FrameTypesAll, core.MustVlanID(1)),
			core.NewPortConfig(core.FrameTypesTagged, core.MustVlanID(2)),
			core.NewPortConfig(core.FrameTypesUntagged, core.MustVlanID(3)),
		).
		Build()
	require.NoError(t, err)
	return cfg
}

func TestClassifyAdmissionMatrix(t *testing.T) {
	p := NewProcessor(testConfig(t))

	tests := []struct {
		name     string
		port     core.PortNumber
		data     string
		verdict  Verdict
		wantVlan core.VlanID
	}{
		{"all/untagged", 0, untaggedHex, Accepted, 1},
		{"all/tagged", 0, taggedHex, Accepted, 10},
		{"tagged/tagged", 1, taggedHex, Accepted, 10},
		{"tagged/untagged", 1, untaggedHex, DropFrameType, 0},
		{"untagged/untagged", 2, untaggedHex, Accepted, 3},
		{"untagged/tagged", 2, taggedHex, DropFrameType, 0},
		{"malformed", 0, "0030", DropMalformed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, verdict := p.Classify(tt.port, mustHex(t, tt.data))
			assert.Equal(t, tt.verdict, verdict)
			assert.Equal(t, tt.wantVlan, frame.Vlan)

			_, ok := p.Process(tt.port, mustHex(t, tt.data))
			assert.Equal(t, tt.verdict == Accepted, ok)
		})
	}
}

func TestProcessScopesUntaggedToPVID(t *testing.T) {
	p := NewProcessor(testConfig(t))

	scoped, ok := p.Process(2, mustHex(t, untaggedHex))
	require.True(t, ok)
	assert.Equal(t, core.MustVlanID(3), scoped.Vlan)
	assert.Equal(t, core.HwAddr{0x74, 0x56, 0x3c, 0xff, 0xd2, 0x78}, scoped.Frame.Src)
}

func TestProcessTagOverridesPVID(t *testing.T) {
	p := NewProcessor(testConfig(t))

	scoped, ok := p.Process(1, mustHex(t, taggedHex))
	require.True(t, ok)
	assert.Equal(t, core.MustVlanID(10), scoped.Vlan)
	assert.Equal(t, []byte{0x08, 0x00}, scoped.Frame.Payload)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "malformed", DropMalformed.String())
	assert.Equal(t, "frame_type", DropFrameType.String())
}
