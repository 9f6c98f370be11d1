// Package cmd provides the command-line interface of portmux.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "portmux",
	Short: "Portmux simulates port demultiplexing over a simulated network.",
	Long: `Portmux simulates endpoints bound to ports on top of a ` +
		`connectionless network service. Inbound packets are routed to the ` +
		`mailbox of the endpoint that owns the destination port.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env",
		"File to read PORTMUX_* settings from")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
