package cli

import (
	"fmt"

	"github.com/dorae/dorae/internal/app"
	"github.com/dorae/dorae/internal/usecase"
	"github.com/spf13/cobra"
)

func newLogsCommand(c *app.Container) *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs [subject]",
		Short: "Show log output",
		Long: `Show the global log, or the log of one subject.

Each timer logs to its own file; pass "timer-<job id>" as the subject.

Examples:
  dorae logs
  dorae logs timer-3f2a... -n 50`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: noStore,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.ShowLogsInput{Lines: lines}
			if len(args) == 1 {
				in.Subject = args[0]
			}
			out, err := c.ShowLogsUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Content)
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "Number of lines from the end (0 = all)")
	return cmd
}
