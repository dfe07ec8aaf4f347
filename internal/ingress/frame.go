// Package ingress turns raw frames received on a port into VLAN-scoped frames.
package ingress

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/vbridge/internal/core"
)

const (
	// EtherTypeDot1Q is the 802.1Q tag protocol identifier.
	EtherTypeDot1Q = 0x8100

	untaggedHeaderLen = 12 // dst + src, payload starts at the EtherType
	taggedHeaderLen   = 16 // dst + src + TPID + TCI
	tciVlanMask       = 0x0FFF
)

// Frame is a parsed Ethernet header. Payload starts at the EtherType/length
// field, after the 802.1Q tag when one was present.
type Frame struct {
	Dst     core.HwAddr
	Src     core.HwAddr
	Payload []byte
}

// ScopedFrame is a Frame assigned to a VLAN, either from its own tag or from
// the ingress port's PVID.
type ScopedFrame struct {
	Vlan  core.VlanID
	Frame Frame
}

// ParseFrame decodes the Ethernet header of data. The returned vlan is zero
// when the frame carries no 802.1Q tag. The payload is copied out of data.
func ParseFrame(data []byte) (vlan core.VlanID, frame Frame, err error) {
	if len(data) < untaggedHeaderLen+2 {
		return 0, Frame{}, fmt.Errorf("%w: %d bytes", core.ErrFrameTooShort, len(data))
	}

	copy(frame.Dst[:], data[0:6])
	copy(frame.Src[:], data[6:12])

	offset := untaggedHeaderLen
	if binary.BigEndian.Uint16(data[12:14]) == EtherTypeDot1Q {
		if len(data) < taggedHeaderLen {
			return 0, Frame{}, fmt.Errorf("%w: %d bytes for tagged frame", core.ErrFrameTooShort, len(data))
		}
		tci := binary.BigEndian.Uint16(data[14:16])
		vlan, err = core.NewVlanID(int(tci & tciVlanMask))
		if err != nil {
			return 0, Frame{}, err
		}
		offset = taggedHeaderLen
	}

	frame.Payload = append([]byte(nil), data[offset:]...)
	return vlan, frame, nil
}

// Untagged encodes the frame without a tag: dst | src | payload.
func (s *ScopedFrame) Untagged() []byte {
	buf := make([]byte, 0, untaggedHeaderLen+len(s.Frame.Payload))
	buf = append(buf, s.Frame.Dst[:]...)
	buf = append(buf, s.Frame.Src[:]...)
	return append(buf, s.Frame.Payload...)
}

// Tagged encodes the frame with an 802.1Q tag for its VLAN:
// dst | src | 0x8100 | vid | payload. Priority and DEI bits are zero.
func (s *ScopedFrame) Tagged() []byte {
	buf := make([]byte, 0, taggedHeaderLen+len(s.Frame.Payload))
	buf = append(buf, s.Frame.Dst[:]...)
	buf = append(buf, s.Frame.Src[:]...)
	buf = binary.BigEndian.AppendUint16(buf, EtherTypeDot1Q)
	buf = binary.BigEndian.AppendUint16(buf, s.Vlan.Uint16()&tciVlanMask)
	return append(buf, s.Frame.Payload...)
}
