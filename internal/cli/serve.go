package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/dorae/dorae/internal/app"
	"github.com/spf13/cobra"
)

// newServeCommand creates the serve command, which hosts the timer engine.
func newServeCommand(c *app.Container) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the timer engine",
		Long: `Run the HTTP API and the timer engine until interrupted.

On start every persisted timer is restored. Stopping the server leaves the
timers in the store; they resume on the next start.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, report, err := c.Server(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Restored %d timer(s)", report.Restored)
			if n := len(report.Corrupt) + len(report.Invalid); n > 0 {
				_, _ = fmt.Fprintf(w, ", skipped %d unreadable", n)
			}
			_, _ = fmt.Fprintln(w)

			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return srv.Serve(ctx, addr, func(a net.Addr) {
				_, _ = fmt.Fprintf(w, "Listening on http://%s\n", a)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: [server] addr)")
	return cmd
}
