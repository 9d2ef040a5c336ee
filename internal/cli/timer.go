package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dorae/dorae/internal/app"
	"github.com/dorae/dorae/internal/client"
	"github.com/dorae/dorae/internal/server"
	"github.com/spf13/cobra"
)

// newTimerCommand creates the timer command group. Timers are owned by the
// running server, so every subcommand talks to it over HTTP.
func newTimerCommand(c *app.Container) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:         "timer",
		Short:       "Manage agent timers on a running server",
		Annotations: noStore,
		Long: `Manage agent timers. Timers run inside 'dorae serve'; these commands
talk to it at --addr (default: [server] addr from the config).`,
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "", "Server address")

	newClient := func() *client.Client {
		if addr == "" && c != nil && c.Config != nil {
			addr = c.Config.Server.Addr
		}
		return client.New(addr)
	}

	cmd.AddCommand(
		newTimerStartCommand(newClient),
		newTimerListCommand(newClient),
		newTimerStopCommand(newClient),
		newTimerRunCommand(newClient),
	)
	return cmd
}

func newTimerStartCommand(newClient func() *client.Client) *cobra.Command {
	var opts struct {
		Instruction string
		Tasks       []string
		Every       time.Duration
	}

	cmd := &cobra.Command{
		Use:   "start <agent-id>",
		Short: "Start a timer for an agent",
		Long: `Start a timer that hands the instruction and each target task to the AI
every interval. The agent needs the timer skill.

Examples:
  dorae timer start planner --every 1h --task t1 --task t2 --instruction "Check progress and note blockers"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Every < time.Second {
				return errors.New("--every must be at least 1s")
			}
			jobID, err := newClient().StartTimer(cmd.Context(), args[0], server.StartTimerRequest{
				Instruction: opts.Instruction,
				TaskIDs:     opts.Tasks,
				Interval:    int(opts.Every / time.Second),
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Started timer %s\n", jobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Instruction, "instruction", "", "Instruction for the AI (required)")
	cmd.Flags().StringArrayVar(&opts.Tasks, "task", nil, "Target task ID (can specify multiple)")
	cmd.Flags().DurationVar(&opts.Every, "every", 0, "Tick interval, e.g. 30m (required)")
	_ = cmd.MarkFlagRequired("instruction")
	_ = cmd.MarkFlagRequired("every")

	return cmd
}

func newTimerListCommand(newClient func() *client.Client) *cobra.Command {
	var agentID string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List scheduled timers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := newClient().ListTimers(cmd.Context(), agentID)
			if err != nil {
				return err
			}
			printTimerList(cmd.OutOrStdout(), jobs)
			return nil
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Only this agent's timers")
	return cmd
}

func newTimerStopCommand(newClient func() *client.Client) *cobra.Command {
	var agentID string

	cmd := &cobra.Command{
		Use:   "stop [job-id]",
		Short: "Stop a timer, or every timer of an agent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := newClient()
			w := cmd.OutOrStdout()
			switch {
			case len(args) == 1 && agentID == "":
				stopped, err := cl.StopTimer(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !stopped {
					_, _ = fmt.Fprintf(w, "Timer %s was not running\n", args[0])
					return nil
				}
				_, _ = fmt.Fprintf(w, "Stopped timer %s\n", args[0])
			case len(args) == 0 && agentID != "":
				n, err := cl.StopAgentTimers(cmd.Context(), agentID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "Stopped %d timer(s) of agent %s\n", n, agentID)
			default:
				return errors.New("give either a job ID or --agent")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Stop every timer of this agent")
	return cmd
}

func newTimerRunCommand(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "run <job-id>",
		Short: "Run one tick of a timer now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := newClient().RunTick(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range report.Results {
				line := fmt.Sprintf("%s: %s", r.TaskID, r.Outcome)
				if r.UpdateID != "" {
					line += " (update " + r.UpdateID + ")"
				}
				if r.Error != "" {
					line += ": " + r.Error
				}
				_, _ = fmt.Fprintln(w, line)
			}
			return nil
		},
	}
}
