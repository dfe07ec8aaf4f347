package config

import (
	"fmt"

	"firestige.xyz/vbridge/internal/core"
)

// SwitchConfig is the file form of the switch data model.
type SwitchConfig struct {
	FDBCapacity int         `mapstructure:"fdb_capacity" yaml:"fdb_capacity"`
	Ports       []PortEntry `mapstructure:"ports" yaml:"ports"`
	Vlans       []VlanEntry `mapstructure:"vlans" yaml:"vlans"`
}

// PortEntry configures one port; its index in SwitchConfig.Ports is the port number.
type PortEntry struct {
	FrameTypes string `mapstructure:"frame_types" yaml:"frame_types"` // tagged / untagged / all
	PVID       int    `mapstructure:"pvid" yaml:"pvid"`               // 0 = VLAN 1
}

// VlanEntry lists the egress members of one VLAN.
type VlanEntry struct {
	ID       int   `mapstructure:"id" yaml:"id"`
	Untagged []int `mapstructure:"untagged" yaml:"untagged"`
	Tagged   []int `mapstructure:"tagged" yaml:"tagged"`
}

// Build converts the file model into a validated core.Config.
func (s *SwitchConfig) Build() (*core.Config, error) {
	b := core.NewConfigBuilder()

	for i, p := range s.Ports {
		frameTypes, err := core.ParseFrameTypes(p.FrameTypes)
		if err != nil {
			return nil, fmt.Errorf("switch.ports[%d]: %w", i, err)
		}
		pvid := core.DefaultVlan
		if p.PVID != 0 {
			if pvid, err = core.NewVlanID(p.PVID); err != nil {
				return nil, fmt.Errorf("switch.ports[%d].pvid: %w", i, err)
			}
		}
		b.WithPort(core.NewPortConfig(frameTypes, pvid))
	}

	seen := make(map[core.VlanID]bool, len(s.Vlans))
	for i, v := range s.Vlans {
		id, err := core.NewVlanID(v.ID)
		if err != nil {
			return nil, fmt.Errorf("switch.vlans[%d].id: %w", i, err)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: vlan %d configured twice", core.ErrConfigInvalid, id)
		}
		seen[id] = true
		b.WithVlan(id, core.NewVlanConfig(portNumbers(v.Untagged), portNumbers(v.Tagged)))
	}

	return b.Build()
}

func portNumbers(ports []int) []core.PortNumber {
	out := make([]core.PortNumber, len(ports))
	for i, p := range ports {
		out[i] = core.PortNumber(p)
	}
	return out
}
