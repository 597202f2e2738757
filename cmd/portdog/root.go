package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for portdog.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portdog",
		Short: "Adaptive TCP port scanner with protocol fingerprinting",
		Long: `Portdog is a fast TCP port scanner that identifies the service behind
each open port. It reads banners, sends protocol-specific probes to
services that stay silent, and classifies whatever comes back.

Timing profiles -T0 through -T5 trade speed against stealth; -T4
measures the target's latency first and derives the concurrency and
timeout budget from it, so the same command works against a LAN host
and a high-latency WAN host. Completed scans are archived locally and
'portdog history' shows how a host changed between scans.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
