package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the two-host demultiplexing simulation.",
	Long: "`run` builds two hosts on a loopback fabric, binds agents to " +
		"ports on both and lets every agent send packets to its peer. " +
		"Settings come from flags, PORTMUX_* environment variables and the " +
		"env file, in that order of priority.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")

		cfg, err := LoadConfig(envFile, cmd.Flags())
		if err != nil {
			return err
		}

		summary, err := Simulate(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		summary.Print(cmd.OutOrStdout())

		if cfg.Monitor {
			fmt.Fprintln(cmd.ErrOrStderr(),
				"Monitoring server is still running. Press Ctrl+C to exit.")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			<-ctx.Done()
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	registerConfigFlags(runCmd.Flags())
}
