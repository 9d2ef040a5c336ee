package cli

import (
	"fmt"
	"strings"

	"github.com/dorae/dorae/internal/app"
	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase"
	"github.com/spf13/cobra"
)

// newAgentCommand creates the agent command group.
func newAgentCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage AI agents and their skills",
	}
	cmd.AddCommand(
		newAgentNewCommand(c),
		newAgentListCommand(c),
		newAgentShowCommand(c),
		newAgentEditCommand(c),
		newAgentDeleteCommand(c),
		newAgentCreateTaskCommand(c),
		newAgentCreatedTasksCommand(c),
		newAgentSkillsCommand(),
		newAgentNoteCommand(c),
	)
	return cmd
}

func newAgentNewCommand(c *app.Container) *cobra.Command {
	var in usecase.CreateAgentInput

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create an agent",
		Long: `Create an agent.

Examples:
  dorae agent new --name Planner --role "event planner" --skill add_task --skill timer`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.CreateAgentUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created agent %s (%s)\n", out.Agent.ID, out.Agent.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&in.Role, "role", "", "Role")
	cmd.Flags().StringVar(&in.Description, "description", "", "Persona description")
	cmd.Flags().StringVar(&in.Status, "status", "", "idle, busy or focused")
	cmd.Flags().StringArrayVar(&in.Skills, "skill", nil, "Enabled skill (can specify multiple)")
	cmd.Flags().StringArrayVar(&in.Folders, "folder", nil, "Folder the agent works in (can specify multiple)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newAgentListCommand(c *app.Container) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ListAgentsUseCase().Execute(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out.Agents)
			}
			printAgentList(cmd.OutOrStdout(), out.Agents)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newAgentShowCommand(c *app.Container) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an agent with its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ShowAgentUseCase().Execute(cmd.Context(), usecase.ShowAgentInput{AgentID: args[0]})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out.Agent)
			}
			printAgent(cmd.OutOrStdout(), out.Agent)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newAgentEditCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Name        string
		Role        string
		Description string
		Status      string
		Skills      []string
		Folders     []string
	}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an agent",
		Long: `Edit an agent. Only flags that are given change the agent.
--skill and --folder replace the whole list; pass --skill "" to disable every skill.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.EditAgentInput{AgentID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = &opts.Name
			}
			if flags.Changed("role") {
				in.Role = &opts.Role
			}
			if flags.Changed("description") {
				in.Description = &opts.Description
			}
			if flags.Changed("status") {
				in.Status = &opts.Status
			}
			if flags.Changed("skill") {
				skills := nonEmpty(opts.Skills)
				in.Skills = &skills
			}
			if flags.Changed("folder") {
				folders := nonEmpty(opts.Folders)
				in.Folders = &folders
			}

			out, err := c.EditAgentUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated agent %s\n", out.Agent.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "New name")
	cmd.Flags().StringVar(&opts.Role, "role", "", "New role")
	cmd.Flags().StringVar(&opts.Description, "description", "", "New description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "idle, busy or focused")
	cmd.Flags().StringArrayVar(&opts.Skills, "skill", nil, "Enabled skills (replaces the list)")
	cmd.Flags().StringArrayVar(&opts.Folders, "folder", nil, "Folders (replaces the list)")

	return cmd
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func newAgentDeleteCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an agent",
		Long: `Delete an agent. Timers owned by the agent stay scheduled until stopped
with 'dorae timer stop --agent <id>'; their ticks run without skills.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.DeleteAgentUseCase().Execute(cmd.Context(), usecase.DeleteAgentInput{AgentID: args[0]}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted agent %s\n", args[0])
			return nil
		},
	}
}

func newAgentCreateTaskCommand(c *app.Container) *cobra.Command {
	var in usecase.CreateTaskAsAgentInput

	cmd := &cobra.Command{
		Use:   "create-task <agent-id>",
		Short: "Create a task through an agent's add_task skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.AgentID = args[0]
			out, err := c.CreateTaskAsAgentUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s as agent %s\n", out.Task.ID, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "Priority: low, medium or high")
	cmd.Flags().StringVar(&in.Category, "category", "", "Category (default General)")
	cmd.Flags().StringVar(&in.FolderID, "folder", "", "Folder ID")
	cmd.Flags().StringVar(&in.Owner, "owner", "", "Owning user")
	cmd.Flags().StringVar(&in.InitialUpdate, "detail", "", "Initial detail update")
	cmd.Flags().StringArrayVar(&in.Labels, "label", nil, "Labels (can specify multiple)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newAgentCreatedTasksCommand(c *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "created-tasks <agent-id>",
		Short: "List tasks an agent created, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ListAgentCreatedTasksUseCase().Execute(cmd.Context(), usecase.ListAgentCreatedTasksInput{
				AgentID: args[0],
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			printTaskList(cmd.OutOrStdout(), out.Tasks)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", usecase.DefaultAgentCreatedLimit, "Maximum number of tasks")
	return cmd
}

func newAgentSkillsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "skills",
		Short:       "List the skills an agent can be given",
		Annotations: noStore,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range domain.SkillRegistry() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", s.Name, s.Description)
			}
			return nil
		},
	}
}

func newAgentNoteCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage agent notes",
	}

	add := &cobra.Command{
		Use:   "add <agent-id> <text>...",
		Short: "Add a note to an agent",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.AddAgentNoteUseCase().Execute(cmd.Context(), usecase.AddAgentNoteInput{
				AgentID: args[0],
				Content: strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added note %s\n", out.Note.ID)
			return nil
		},
	}

	edit := &cobra.Command{
		Use:   "edit <agent-id> <note-id> <text>...",
		Short: "Edit an agent note",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.EditAgentNoteUseCase().Execute(cmd.Context(), usecase.EditAgentNoteInput{
				AgentID: args[0],
				NoteID:  args[1],
				Content: strings.Join(args[2:], " "),
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Edited note %s\n", args[1])
			return nil
		},
	}

	del := &cobra.Command{
		Use:     "delete <agent-id> <note-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an agent note",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.DeleteAgentNoteUseCase().Execute(cmd.Context(), usecase.DeleteAgentNoteInput{AgentID: args[0], NoteID: args[1]}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s\n", args[1])
			return nil
		},
	}

	cmd.AddCommand(add, edit, del)
	return cmd
}
