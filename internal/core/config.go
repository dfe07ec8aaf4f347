package core

import (
	"fmt"
	"slices"
	"sort"
)

// PortConfig is the ingress policy of a single port.
type PortConfig struct {
	FrameTypes FrameTypes
	PVID       VlanID // VLAN assigned to untagged frames
}

// NewPortConfig returns a PortConfig.
func NewPortConfig(frameTypes FrameTypes, pvid VlanID) PortConfig {
	return PortConfig{FrameTypes: frameTypes, PVID: pvid}
}

// VlanConfig lists the egress members of a VLAN. A port may be listed in
// several VLANs, and even untagged in one and tagged in another.
type VlanConfig struct {
	untagged []PortNumber
	tagged   []PortNumber
}

// NewVlanConfig copies the given member lists, preserving their order.
func NewVlanConfig(untagged, tagged []PortNumber) VlanConfig {
	return VlanConfig{
		untagged: slices.Clone(untagged),
		tagged:   slices.Clone(tagged),
	}
}

// Untagged returns the ports that egress this VLAN without a tag.
// The returned slice is shared and must not be modified.
func (v VlanConfig) Untagged() []PortNumber { return v.untagged }

// Tagged returns the ports that egress this VLAN with an 802.1Q tag.
// The returned slice is shared and must not be modified.
func (v VlanConfig) Tagged() []PortNumber { return v.tagged }

// Config is the validated, read-only switch configuration. Every port number
// referenced by a VlanConfig is guaranteed to be < NumPorts.
type Config struct {
	ports []PortConfig
	vlans map[VlanID]VlanConfig
}

// NumPorts returns the number of configured ports.
func (c *Config) NumPorts() int { return len(c.ports) }

// Port returns the configuration of port p. p must be in [0, NumPorts).
func (c *Config) Port(p PortNumber) PortConfig { return c.ports[p] }

// Vlan returns the membership of VLAN id, or false when it is not configured.
func (c *Config) Vlan(id VlanID) (VlanConfig, bool) {
	v, ok := c.vlans[id]
	return v, ok
}

// VlanIDs returns the configured VLAN identifiers in ascending order.
func (c *Config) VlanIDs() []VlanID {
	ids := make([]VlanID, 0, len(c.vlans))
	for id := range c.vlans {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ConfigBuilder accumulates ports and VLANs and validates them in Build.
type ConfigBuilder struct {
	ports []PortConfig
	vlans map[VlanID]VlanConfig
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{vlans: make(map[VlanID]VlanConfig)}
}

// WithPorts replaces the port list; the index of each entry is its port number.
func (b *ConfigBuilder) WithPorts(ports ...PortConfig) *ConfigBuilder {
	b.ports = slices.Clone(ports)
	return b
}

// WithPort appends one port and returns the builder.
func (b *ConfigBuilder) WithPort(port PortConfig) *ConfigBuilder {
	b.ports = append(b.ports, port)
	return b
}

// WithVlan associates a VlanConfig with id, replacing any earlier association.
func (b *ConfigBuilder) WithVlan(id VlanID, vlan VlanConfig) *ConfigBuilder {
	b.vlans[id] = vlan
	return b
}

// Build validates the accumulated configuration: at least one port must be
// defined, every PVID and VLAN id must be in range and every VLAN member must
// name an existing port.
func (b *ConfigBuilder) Build() (*Config, error) {
	if len(b.ports) == 0 {
		return nil, fmt.Errorf("%w: no ports provided", ErrConfigInvalid)
	}
	for i, p := range b.ports {
		if !p.PVID.Valid() {
			return nil, fmt.Errorf("%w: port %d has pvid %d outside %d-%d",
				ErrConfigInvalid, i, p.PVID.Uint16(), MinVlanID, MaxVlanID)
		}
	}

	cfg := &Config{
		ports: slices.Clone(b.ports),
		vlans: make(map[VlanID]VlanConfig, len(b.vlans)),
	}
	for id, v := range b.vlans {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: vlan id %d outside %d-%d", ErrConfigInvalid, id.Uint16(), MinVlanID, MaxVlanID)
		}
		for _, p := range slices.Concat(v.tagged, v.untagged) {
			if p < 0 || int(p) >= len(b.ports) {
				return nil, fmt.Errorf("%w: vlan %d references port %d, only %d ports defined",
					ErrConfigInvalid, id, p, len(b.ports))
			}
		}
		cfg.vlans[id] = NewVlanConfig(v.untagged, v.tagged)
	}
	return cfg, nil
}
