package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fpsearch/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		lines int
		level string
		file  string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent debug log entries",
		Long: `Show the most recent entries of the debug log written by --debug.

Entries below --level are skipped.`,
		Example: `  fpsearch logs
  fpsearch logs -n 100 --level warn`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := newWriter(cmd)
			if err != nil {
				return err
			}
			path, err := logging.FindLogFile(file)
			if err != nil {
				return err
			}
			entries, err := logging.Tail(path, lines, logging.ParseLevel(level))
			if err != nil {
				return err
			}

			if out.IsJSON() {
				for _, e := range entries {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), e.Raw); err != nil {
						return err
					}
				}
				return nil
			}
			for _, e := range entries {
				if err := logging.FormatEntry(cmd.OutOrStdout(), e); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of entries to show (0 for all)")
	cmd.Flags().StringVar(&level, "level", "debug", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&file, "file", "", "Log file (default ~/.fpsearch/logs/fpsearch.log)")

	return cmd
}
