package cli

import (
	"fmt"
	"strings"

	"github.com/dorae/dorae/internal/app"
	"github.com/dorae/dorae/internal/usecase"
	"github.com/spf13/cobra"
)

func newChatCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Agent string
		Owner string
	}

	cmd := &cobra.Command{
		Use:   "chat <message>...",
		Short: "Ask the AI about your tasks",
		Long: `Send a message to the AI with your open tasks as context.

With --agent the agent's persona and notes are included, and a reply that
asks to create a task is carried out through the agent's add_task skill.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ChatUseCase().Execute(cmd.Context(), usecase.ChatInput{
				Message: strings.Join(args, " "),
				AgentID: opts.Agent,
				Owner:   opts.Owner,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(w, out.Reply)
			if out.Created != nil {
				_, _ = fmt.Fprintf(w, "\nCreated task %s: %s\n", out.Created.ID, out.Created.Title)
			}
			if out.Declined != "" {
				_, _ = fmt.Fprintf(w, "\n(not done: %s)\n", out.Declined)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Agent, "agent", "", "Talk to this agent")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "Only this owner's tasks as context")
	return cmd
}
