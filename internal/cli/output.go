package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatLabels(labels []string) string {
	if len(labels) == 0 {
		return "-"
	}
	return "[" + strings.Join(labels, ",") + "]"
}

// printTaskList prints tasks in TSV format.
func printTaskList(w io.Writer, tasks []*domain.Task) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tCATEGORY\tAGENT\tLABELS\tTITLE")
	for _, task := range tasks {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			task.ID,
			task.Status,
			task.Priority,
			orDash(task.Category),
			orDash(task.AssignedAgentID),
			formatLabels(task.Labels),
			task.Title,
		)
	}
}

// printTask prints one task with its update log.
func printTask(w io.Writer, task *domain.Task) {
	_, _ = fmt.Fprintf(w, "Task %s: %s\n\n", task.ID, task.Title)
	_, _ = fmt.Fprintf(w, "Status:   %s\n", task.Status)
	_, _ = fmt.Fprintf(w, "Priority: %s (importance %d)\n", task.Priority, task.Importance)
	_, _ = fmt.Fprintf(w, "Category: %s\n", orDash(task.Category))
	_, _ = fmt.Fprintf(w, "Labels:   %s\n", formatLabels(task.Labels))
	if task.FolderID != "" {
		_, _ = fmt.Fprintf(w, "Folder:   %s\n", task.FolderID)
	}
	if task.Owner != "" {
		_, _ = fmt.Fprintf(w, "Owner:    %s\n", task.Owner)
	}
	if task.AssignedAgentID != "" {
		_, _ = fmt.Fprintf(w, "Agent:    %s\n", task.AssignedAgentID)
	}
	_, _ = fmt.Fprintf(w, "Created:  %s\n", task.Created.Local().Format(timeLayout))
	if task.CompletedAt != nil {
		_, _ = fmt.Fprintf(w, "Closed:   %s\n", task.CompletedAt.Local().Format(timeLayout))
	}

	if a := task.Analysis; a != nil {
		_, _ = fmt.Fprintf(w, "\nAnalysis (%s):\n", a.AnalyzedAt.Local().Format(timeLayout))
		_, _ = fmt.Fprintf(w, "  %s\n", a.Summary)
		if a.Suggestions != "" {
			_, _ = fmt.Fprintf(w, "  Suggestions: %s\n", a.Suggestions)
		}
	}

	if len(task.Updates) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "\nUpdates:")
	for _, u := range task.Updates {
		printUpdate(w, u)
	}
}

func printUpdate(w io.Writer, u domain.Update) {
	source := ""
	if u.Provenance != nil {
		source = fmt.Sprintf(" by %s/%s", u.Provenance.AgentID, u.Provenance.Skill)
	}
	edited := ""
	if u.LastEditedAt != nil {
		edited = " (edited)"
	}
	_, _ = fmt.Fprintf(w, "  [%s] %s %s%s%s\n      %s\n",
		u.ID, u.Timestamp.Local().Format(timeLayout), u.Type, source, edited, u.Content)
}

// printAgentList prints agents in TSV format.
func printAgentList(w io.Writer, agents []*domain.Agent) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "ID\tNAME\tROLE\tSTATUS\tSKILLS")
	for _, a := range agents {
		skills := make([]string, 0, len(a.Skills))
		for _, s := range a.Skills {
			skills = append(skills, string(s))
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, orDash(a.Role), a.Status, formatLabels(skills))
	}
}

func printAgent(w io.Writer, a *domain.Agent) {
	_, _ = fmt.Fprintf(w, "Agent %s: %s\n\n", a.ID, a.Name)
	_, _ = fmt.Fprintf(w, "Role:        %s\n", orDash(a.Role))
	_, _ = fmt.Fprintf(w, "Status:      %s\n", a.Status)
	_, _ = fmt.Fprintf(w, "Description: %s\n", orDash(a.Description))
	skills := make([]string, 0, len(a.Skills))
	for _, s := range a.Skills {
		skills = append(skills, string(s))
	}
	_, _ = fmt.Fprintf(w, "Skills:      %s\n", formatLabels(skills))
	_, _ = fmt.Fprintf(w, "Folders:     %s\n", formatLabels(a.Folders))
	if len(a.Notes) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "\nNotes:")
	for _, n := range a.Notes {
		printUpdate(w, n)
	}
}

// printTimerList prints timer jobs in TSV format.
func printTimerList(w io.Writer, jobs []domain.TimerJob) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "JOB\tAGENT\tINTERVAL\tTASKS\tINSTRUCTION")
	for _, j := range jobs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			j.ID,
			j.AgentID,
			(time.Duration(j.IntervalSeconds) * time.Second).String(),
			strings.Join(j.TaskIDs, ","),
			j.Instruction,
		)
	}
}
