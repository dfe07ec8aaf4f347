package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/vbridge/internal/config"
	"firestige.xyz/vbridge/internal/transport"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the switch configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without opening any port.

Examples:
  vbridge config validate -c /etc/vbridge/vbridge.yml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if !registered(cfg.Transport.Type) {
			return fmt.Errorf("transport %q is not available on this platform (have: %s)",
				cfg.Transport.Type, strings.Join(transport.Names(), ", "))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "VALID: %d port(s), %d vlan(s), transport %s\n",
			len(cfg.Switch.Ports), len(cfg.Switch.Vlans), cfg.Transport.Type)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration, defaults included",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		out, err := cfg.Marshal()
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func registered(name string) bool {
	for _, n := range transport.Names() {
		if n == name {
			return true
		}
	}
	return false
}
