// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	// transport backends register themselves by name
	_ "firestige.xyz/vbridge/internal/transport/afpacket"
	_ "firestige.xyz/vbridge/internal/transport/dummy"
	_ "firestige.xyz/vbridge/internal/transport/pcapfile"
	_ "firestige.xyz/vbridge/internal/transport/tap"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vbridge",
	Short: "vbridge - VLAN-aware software Ethernet switch",
	Long: `vbridge is a software Ethernet switch with IEEE 802.1Q VLAN support.
It forwards raw frames between TAP interfaces, AF_PACKET sockets or capture
files, learning source addresses per VLAN to avoid unnecessary flooding.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/vbridge/vbridge.yml",
		"config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
