// Package core defines the switch data model with zero external dependencies.
package core

import (
	"fmt"
	"net"
	"strings"
)

const (
	// MinVlanID and MaxVlanID bound the usable 12-bit 802.1Q identifiers.
	MinVlanID = 1
	MaxVlanID = 4095
)

// VlanID is a validated 802.1Q VLAN identifier in [1, 4095].
// The zero value is not a valid VLAN and is only used as "no VLAN".
type VlanID uint16

// DefaultVlan is the VLAN every port defaults to when no PVID is configured.
const DefaultVlan VlanID = 1

// NewVlanID validates v and returns it as a VlanID.
func NewVlanID(v int) (VlanID, error) {
	if v < MinVlanID || v > MaxVlanID {
		return 0, fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidVlan, v, MinVlanID, MaxVlanID)
	}
	return VlanID(v), nil
}

// MustVlanID is like NewVlanID but panics on an invalid identifier.
// Intended for literals in bootstrap code and tests.
func MustVlanID(v int) VlanID {
	id, err := NewVlanID(v)
	if err != nil {
		panic(err)
	}
	return id
}

// Uint16 returns the identifier as it is carried in the low 12 bits of a TCI.
func (v VlanID) Uint16() uint16 { return uint16(v) }

// Valid reports whether v is in the 802.1Q range.
func (v VlanID) Valid() bool { return v >= MinVlanID && v <= MaxVlanID }

func (v VlanID) String() string { return fmt.Sprintf("%d", uint16(v)) }

// HwAddr is a 6-byte Ethernet MAC address, usable as a map key.
type HwAddr [6]byte

// BroadcastAddr is ff:ff:ff:ff:ff:ff.
var BroadcastAddr = HwAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseHwAddr parses a colon or dash separated 48-bit MAC address.
func ParseHwAddr(s string) (HwAddr, error) {
	var addr HwAddr
	mac, err := net.ParseMAC(s)
	if err != nil {
		return addr, err
	}
	if len(mac) != len(addr) {
		return addr, fmt.Errorf("not an ethernet address: %s", s)
	}
	copy(addr[:], mac)
	return addr, nil
}

func (a HwAddr) String() string { return net.HardwareAddr(a[:]).String() }

// IsMulticast reports whether the group bit is set (broadcast included).
func (a HwAddr) IsMulticast() bool { return a[0]&0x01 != 0 }

// PortNumber indexes Config.Ports; valid values are [0, NumPorts).
type PortNumber int

// FrameTypes is a port's acceptable-frame-types admission policy.
type FrameTypes uint8

const (
	// FrameTypesAll admits tagged and untagged frames.
	FrameTypesAll FrameTypes = iota
	// FrameTypesTagged admits only frames carrying an 802.1Q tag.
	FrameTypesTagged
	// FrameTypesUntagged admits only frames without a tag.
	FrameTypesUntagged
)

// ParseFrameTypes maps "all", "tagged" or "untagged" (any case) to a FrameTypes.
func ParseFrameTypes(s string) (FrameTypes, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "":
		return FrameTypesAll, nil
	case "tagged":
		return FrameTypesTagged, nil
	case "untagged":
		return FrameTypesUntagged, nil
	default:
		return FrameTypesAll, fmt.Errorf("%w: unknown frame types %q (must be tagged/untagged/all)", ErrConfigInvalid, s)
	}
}

// Accepts applies the admission matrix: All admits anything, Tagged requires
// a tag, Untagged requires its absence.
func (f FrameTypes) Accepts(tagged bool) bool {
	switch f {
	case FrameTypesAll:
		return true
	case FrameTypesTagged:
		return tagged
	case FrameTypesUntagged:
		return !tagged
	default:
		return false
	}
}

func (f FrameTypes) String() string {
	switch f {
	case FrameTypesAll:
		return "all"
	case FrameTypesTagged:
		return "tagged"
	case FrameTypesUntagged:
		return "untagged"
	default:
		return fmt.Sprintf("FrameTypes(%d)", uint8(f))
	}
}
