package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dorae/dorae/internal/app"
	"github.com/dorae/dorae/internal/infra/gitstore"
	"github.com/spf13/cobra"
)

var errNoSnapshots = errors.New("snapshots need the git store driver ([store] driver = \"git\")")

func newStoreCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage store snapshots",
		Long:  "Save, list, and restore snapshots of all tasks, agents and timers (git driver).",
	}

	cmd.AddCommand(newSnapshotSaveCmd(c))
	cmd.AddCommand(newSnapshotListCmd(c))
	cmd.AddCommand(newSnapshotRestoreCmd(c))

	return cmd
}

func gitStore(c *app.Container) (*gitstore.Store, error) {
	if c.Store == nil || c.Store.Git == nil {
		return nil, errNoSnapshots
	}
	return c.Store.Git, nil
}

func newSnapshotSaveCmd(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Save the current state as a snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gs, err := gitStore(c)
			if err != nil {
				return err
			}
			snap, err := gs.SaveSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot %d\n", snap.Seq)
			return nil
		},
	}
}

func newSnapshotListCmd(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gs, err := gitStore(c)
			if err != nil {
				return err
			}
			snaps, err := gs.ListSnapshots(cmd.Context())
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No snapshots")
				return nil
			}
			for _, s := range snaps {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", s.Seq, s.Ref)
			}
			return nil
		},
	}
}

func newSnapshotRestoreCmd(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <seq>",
		Short: "Replace the current state with a snapshot",
		Long: `Replace every task, agent and timer with the contents of a snapshot.
Restart 'dorae serve' afterwards so restored timers are scheduled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid snapshot number %q", args[0])
			}
			gs, err := gitStore(c)
			if err != nil {
				return err
			}
			if err := gs.RestoreSnapshot(cmd.Context(), seq); err != nil {
				return fmt.Errorf("restore snapshot: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Restored snapshot %d\n", seq)
			return nil
		},
	}
}
