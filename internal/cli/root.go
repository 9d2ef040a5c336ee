// Package cli provides the command-line interface for dorae.
package cli

import (
	"fmt"

	"github.com/dorae/dorae/internal/app"
	"github.com/spf13/cobra"
)

// Command group IDs.
const (
	groupSetup = "setup"
	groupTask  = "task"
	groupAgent = "agent"
	groupRun   = "run"
)

// annotationNoStore marks commands (and their subcommands) that never touch the store.
const annotationNoStore = "dorae/no-store"

func needsStore(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations[annotationNoStore] != "" {
			return false
		}
	}
	return true
}

var noStore = map[string]string{annotationNoStore: "true"}

// NewRootCommand creates the root command for dorae.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "dorae",
		Short: "Task tracker with AI agents",
		Long: `dorae tracks tasks and lets AI agents act on them.

Agents carry skills. An agent with the add_task skill may create tasks,
and an agent with the timer skill may run an instruction against a set
of tasks on a fixed interval. Timers run inside 'dorae serve'.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil || c.Config == nil {
				return nil
			}
			for _, w := range c.Config.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			if c.StoreInit == nil || !needsStore(cmd) {
				return nil
			}
			if err := c.StoreInit.Initialize(); err != nil {
				return fmt.Errorf("initialize store: %w", err)
			}
			return nil
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Management:"},
		&cobra.Group{ID: groupAgent, Title: "Agents:"},
		&cobra.Group{ID: groupRun, Title: "Server:"},
	)

	add := func(group string, cmds ...*cobra.Command) {
		for _, cmd := range cmds {
			cmd.GroupID = group
			root.AddCommand(cmd)
		}
	}

	add(groupSetup,
		newConfigCommand(c),
		newMigrateCommand(c),
		newStoreCommand(c),
		newLogsCommand(c),
	)
	add(groupTask,
		newTaskCommand(c),
		newChatCommand(c),
	)
	add(groupAgent,
		newAgentCommand(c),
		newTimerCommand(c),
	)
	add(groupRun,
		newServeCommand(c),
	)

	return root
}
