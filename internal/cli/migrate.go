package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dorae/dorae/internal/app"
	"github.com/dorae/dorae/internal/domain"
	"github.com/spf13/cobra"
)

// newMigrateCommand creates the migrate command.
func newMigrateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		To   string
		Path string
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy all data into another store driver",
		Long: `Copy every task, agent and timer from the configured store into another
store driver. IDs are preserved, so the command can be rerun after a partial
failure. Point [store] driver at the new store afterwards.

Examples:
  # Move from the JSON file to SQLite (.dorae/store.db)
  dorae migrate --to sqlite

  # Move into a git repository at a custom path
  dorae migrate --to git --path ~/dorae-data.git`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			to := strings.ToLower(strings.TrimSpace(opts.To))
			switch to {
			case domain.StoreJSON, domain.StoreSQLite, domain.StoreGit:
			default:
				return fmt.Errorf("%w: --to must be json, sqlite or git", domain.ErrInvalidInput)
			}

			dest, err := c.OpenTarget(to, opts.Path)
			if err != nil {
				return err
			}
			defer func() { _ = dest.Close() }()

			if sameStore(c.Store, dest) {
				return errors.New("source and destination are the same store")
			}

			out, err := c.MigrateStoreUseCase(dest).Execute(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Migrated into %s store at %s\n", dest.Driver, dest.Path)
			_, _ = fmt.Fprintf(w, "  agents: %d copied, %d already present\n", out.Agents.Migrated, out.Agents.Skipped)
			_, _ = fmt.Fprintf(w, "  tasks:  %d copied, %d already present\n", out.Tasks.Migrated, out.Tasks.Skipped)
			_, _ = fmt.Fprintf(w, "  timers: %d copied, %d already present\n", out.Timers.Migrated, out.Timers.Skipped)
			if len(out.Corrupt) > 0 {
				_, _ = fmt.Fprintf(w, "Skipped unreadable timers: %s\n", strings.Join(out.Corrupt, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "Destination driver: json, sqlite or git (required)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "Destination path (default: the driver's file under .dorae)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func sameStore(a, b *app.Store) bool {
	if a == nil || b == nil || a.Driver != b.Driver || a.Path == "" {
		return false
	}
	pa, errA := filepath.Abs(a.Path)
	pb, errB := filepath.Abs(b.Path)
	return errA == nil && errB == nil && pa == pb
}
