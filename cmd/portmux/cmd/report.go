package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/pkg/errors"
	"github.com/sarchlab/portmux/datarecording"
	"github.com/sarchlab/portmux/mux"
	"github.com/sarchlab/portmux/tracing"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [recording.sqlite3]",
	Short: "Summarize a traffic recording.",
	Long: "`report` counts the sends, deliveries, reads and drops stored " +
		"in a database written by `run --record`.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Report(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

// Report prints the number of traffic records per kind.
func Report(ctx context.Context, filename string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reader, err := datarecording.NewReader(filename)
	if err != nil {
		return err
	}
	defer reader.Close()

	tables, err := reader.ListTables(ctx)
	if err != nil {
		return err
	}

	if !slices.Contains(tables, tracing.TrafficTable) {
		return errors.Errorf("%s has no %s table", filename, tracing.TrafficTable)
	}

	for _, pos := range []string{
		mux.HookPosMuxSend.Name,
		mux.HookPosMuxDeliver.Name,
		mux.HookPosMuxRead.Name,
		mux.HookPosMuxDrop.Name,
	} {
		n, err := reader.Count(ctx, tracing.TrafficTable, "What = ?", pos)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s: %d\n", pos, n)
	}

	return nil
}
