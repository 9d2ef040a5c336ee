package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dorae/dorae/internal/app"
	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase"
	"github.com/spf13/cobra"
)

// newTaskCommand creates the task command group.
func newTaskCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"t"},
		Short:   "Manage tasks",
	}
	cmd.AddCommand(
		newTaskNewCommand(c),
		newTaskListCommand(c),
		newTaskShowCommand(c),
		newTaskEditCommand(c),
		newTaskCloseCommand(c),
		newTaskReopenCommand(c),
		newTaskDeleteCommand(c),
		newTaskTrashCommand(c),
		newTaskEmptyTrashCommand(c),
		newTaskAnalyzeCommand(c),
		newTaskImportCommand(c),
		newUpdateCommand(c),
	)
	return cmd
}

func newTaskNewCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title    string
		Detail   string
		Priority string
		Category string
		Folder   string
		Owner    string
		Labels   []string
	}

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new task",
		Long: `Create a new Active task.

Examples:
  dorae task new --title "Book venue"
  dorae task new --title "Fix login" --priority high --label bug --detail "Fails on Safari"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.NewTaskUseCase().Execute(cmd.Context(), usecase.NewTaskInput{
				Title:    opts.Title,
				Detail:   opts.Detail,
				Priority: opts.Priority,
				Category: opts.Category,
				FolderID: opts.Folder,
				Owner:    opts.Owner,
				Labels:   opts.Labels,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", out.Task.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&opts.Detail, "detail", "", "First detail update")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "Priority: low, medium or high")
	cmd.Flags().StringVar(&opts.Category, "category", "", "Category (default General)")
	cmd.Flags().StringVar(&opts.Folder, "folder", "", "Folder ID")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "Owning user")
	cmd.Flags().StringArrayVar(&opts.Labels, "label", nil, "Labels (can specify multiple)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newTaskListCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Statuses []string
		Label    string
		Folder   string
		Owner    string
		Agent    string
		All      bool
		JSON     bool
	}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long: `Display a list of tasks.

By default Active and Closed tasks are shown. Use --status to pick
statuses explicitly or --all to include the trash and the archive.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := usecase.ListTasksInput{
				Label:    opts.Label,
				FolderID: opts.Folder,
				Owner:    opts.Owner,
				AgentID:  opts.Agent,
			}
			if opts.All {
				in.Statuses = domain.AllStatuses()
			}
			for _, s := range opts.Statuses {
				status, err := domain.ParseStatus(s)
				if err != nil {
					return err
				}
				in.Statuses = append(in.Statuses, status)
			}

			out, err := c.ListTasksUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.JSON {
				return printJSON(cmd.OutOrStdout(), out.Tasks)
			}
			printTaskList(cmd.OutOrStdout(), out.Tasks)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.Statuses, "status", nil, "Filter by status (can specify multiple)")
	cmd.Flags().StringVar(&opts.Label, "label", "", "Filter by label")
	cmd.Flags().StringVar(&opts.Folder, "folder", "", "Filter by folder")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "Filter by owner")
	cmd.Flags().StringVar(&opts.Agent, "agent", "", "Filter by assigned agent")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Include deleted and archived tasks")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

func newTaskShowCommand(c *app.Container) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its update log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ShowTaskUseCase().Execute(cmd.Context(), usecase.ShowTaskInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out.Task)
			}
			printTask(cmd.OutOrStdout(), out.Task)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTaskEditCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title        string
		Priority     string
		Category     string
		Status       string
		Folder       string
		AddLabels    []string
		RemoveLabels []string
	}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit task properties",
		Long: `Edit the title, priority, category, status, folder or labels of a task.

Only flags that are given change the task. Priority and category changes
are recorded as property_change updates, status changes as status_change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.EditTaskInput{
				TaskID:       args[0],
				AddLabels:    opts.AddLabels,
				RemoveLabels: opts.RemoveLabels,
			}
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = &opts.Title
			}
			if flags.Changed("priority") {
				in.Priority = &opts.Priority
			}
			if flags.Changed("category") {
				in.Category = &opts.Category
			}
			if flags.Changed("status") {
				in.Status = &opts.Status
			}
			if flags.Changed("folder") {
				in.FolderID = &opts.Folder
			}

			out, err := c.EditTaskUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", out.Task.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "New title")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "New priority")
	cmd.Flags().StringVar(&opts.Category, "category", "", "New category")
	cmd.Flags().StringVar(&opts.Status, "status", "", "New status")
	cmd.Flags().StringVar(&opts.Folder, "folder", "", "New folder (empty clears)")
	cmd.Flags().StringArrayVar(&opts.AddLabels, "add-label", nil, "Labels to add")
	cmd.Flags().StringArrayVar(&opts.RemoveLabels, "rm-label", nil, "Labels to remove")

	return cmd
}

func newTaskCloseCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Mark a task as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.CloseTaskUseCase().Execute(cmd.Context(), usecase.CloseTaskInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			if !out.Changed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s is already %s\n", out.Task.ID, out.Task.Status)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Closed task %s\n", out.Task.ID)
			return nil
		},
	}
}

func newTaskReopenCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <id>",
		Short: "Move a closed task back to Active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ReopenTaskUseCase().Execute(cmd.Context(), usecase.ReopenTaskInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			if !out.Changed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s is already %s\n", out.Task.ID, out.Task.Status)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reopened task %s\n", out.Task.ID)
			return nil
		},
	}
}

func newTaskDeleteCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Move a task to the trash",
		Long: `Move a task to the trash. Deleting a task that is already in the
trash archives it permanently.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.DeleteTaskUseCase().Execute(cmd.Context(), usecase.DeleteTaskInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			if out.Archived {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Archived task %s\n", out.Task.ID)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved task %s to the trash\n", out.Task.ID)
			return nil
		},
	}
}

func newTaskTrashCommand(c *app.Container) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "trash",
		Short: "List deleted tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ListTrashUseCase().Execute(cmd.Context(), usecase.ListTrashInput{Owner: owner})
			if err != nil {
				return err
			}
			printTaskList(cmd.OutOrStdout(), out.Tasks)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Only this owner's trash")
	return cmd
}

func newTaskEmptyTrashCommand(c *app.Container) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "empty-trash",
		Short: "Archive every deleted task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.EmptyTrashUseCase().Execute(cmd.Context(), usecase.EmptyTrashInput{Owner: owner})
			if out != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Archived %d task(s)\n", len(out.Archived))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Only this owner's trash")
	return cmd
}

func newTaskAnalyzeCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Ask the AI for feedback on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.AnalyzeTaskUseCase().Execute(cmd.Context(), usecase.AnalyzeTaskInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !out.Analyzed {
				_, _ = fmt.Fprintln(w, "No analysis available (is the oracle configured?)")
				return nil
			}
			_, _ = fmt.Fprintf(w, "Summary:     %s\n", out.Analysis.Summary)
			_, _ = fmt.Fprintf(w, "Suggestions: %s\n", out.Analysis.Suggestions)
			if out.Analysis.Priority != "" {
				_, _ = fmt.Fprintf(w, "Priority:    %s\n", out.Analysis.Priority)
			}
			if out.Analysis.Category != "" {
				_, _ = fmt.Fprintf(w, "Category:    %s\n", out.Analysis.Category)
			}
			return nil
		},
	}
}

func newTaskImportCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Owner  string
		Agent  string
		DryRun bool
	}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create tasks from a Markdown file",
		Long: `Create tasks from a Markdown file with one YAML frontmatter block per task.

With --agent the tasks are created through that agent's add_task skill.

File format:
  ---
  title: Book venue
  priority: high
  labels: [event]
  ---
  Call the three shortlisted places.

  ---
  title: Send invitations
  ---`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			out, err := c.CreateTasksFromFileUseCase().Execute(cmd.Context(), usecase.CreateTasksFromFileInput{
				Content: string(content),
				Owner:   opts.Owner,
				AgentID: opts.Agent,
				DryRun:  opts.DryRun,
			})
			if err != nil && (out == nil || len(out.Tasks) == 0) {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.DryRun {
				_, _ = fmt.Fprintln(w, "Dry run - tasks that would be created:")
				for i, d := range out.Drafts {
					_, _ = fmt.Fprintf(w, "  %d. %s (%s, %s) %s\n", i+1, d.Title, d.Priority, orDash(d.Category), formatLabels(d.Labels))
				}
				return nil
			}
			for _, task := range out.Tasks {
				_, _ = fmt.Fprintf(w, "Created task %s: %s\n", task.ID, task.Title)
			}
			_, _ = fmt.Fprintf(w, "\nCreated %d task(s)\n", len(out.Tasks))
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "Owner for all tasks")
	cmd.Flags().StringVar(&opts.Agent, "agent", "", "Create through this agent")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Preview tasks without creating")
	return cmd
}

// newUpdateCommand creates the update command group for task update logs.
func newUpdateCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Manage task updates",
	}
	cmd.AddCommand(newUpdateAddCommand(c), newUpdateEditCommand(c), newUpdateDeleteCommand(c))
	return cmd
}

func newUpdateAddCommand(c *app.Container) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "add <task-id> <text>...",
		Short: "Append an update to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.AddUpdateUseCase().Execute(cmd.Context(), usecase.AddUpdateInput{
				TaskID:  args[0],
				Content: strings.Join(args[1:], " "),
				Type:    domain.UpdateType(typ),
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added update %s to task %s\n", out.Update.ID, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Update type (default note)")
	return cmd
}

func newUpdateEditCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <task-id> <update-id> <text>...",
		Short: "Edit the text of an update",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.EditUpdateUseCase().Execute(cmd.Context(), usecase.EditUpdateInput{
				TaskID:   args[0],
				UpdateID: args[1],
				Content:  strings.Join(args[2:], " "),
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Edited update %s\n", args[1])
			return nil
		},
	}
}

func newUpdateDeleteCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task-id> <update-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an update",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.DeleteUpdateUseCase().Execute(cmd.Context(), usecase.DeleteUpdateInput{TaskID: args[0], UpdateID: args[1]})
			if errors.Is(err, domain.ErrUpdateNotFound) {
				return fmt.Errorf("task %s has no update %s: %w", args[0], args[1], err)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted update %s\n", args[1])
			return nil
		},
	}
}
