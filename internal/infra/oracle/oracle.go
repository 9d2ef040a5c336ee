package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

var (
	_ domain.Oracle = (*Client)(nil)
	_ domain.Oracle = Unconfigured{}
)

// actionNone is how a model says "nothing to do" besides a JSON null.
const actionNone = "none"

const analyzeSystem = `You analyze tasks and provide structured feedback.
Return a valid JSON object with these fields:
- summary: a brief summary of the status.
- suggestions: 1-2 actionable next steps.
- priority: "high", "medium", or "low".
- category: a loose category label (e.g. "Development", "Personal", "Research").
- importance: an integer 1-5 (5 is highest).`

const instructionSystem = `You are an AI agent executing a timed instruction against one task.
Based on the instruction, determine the action to take.
Supported actions:
1. "add_update": add a text update to the task.
If nothing should be done, return {"action": "none"}.
Return a valid JSON object (no markdown formatting):
{"action": "add_update", "content": "The text content to add to the task updates"}`

// Analyze produces structured feedback for a task.
func (c *Client) Analyze(ctx context.Context, title string, updates []domain.Update) (*domain.Analysis, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\nUpdates/Details:\n", title)
	for _, u := range updates {
		fmt.Fprintf(&b, "- %s\n", u.Content)
	}

	text, err := c.complete(ctx, analyzeSystem, b.String(), true)
	if err != nil {
		return nil, domain.OracleFailure("analyze task", err)
	}
	analysis, err := parseAnalysis(text)
	if err != nil {
		return nil, domain.OracleFailure("analyze task", err)
	}
	return analysis, nil
}

// Chat answers a message given task contexts and an optional agent.
func (c *Client) Chat(ctx context.Context, message string, tasks []domain.TaskContext, agent *domain.AgentContext) (*domain.ChatReply, error) {
	text, err := c.complete(ctx, chatSystemPrompt(tasks, agent), message, true)
	if err != nil {
		return nil, domain.OracleFailure("chat", err)
	}
	reply, err := parseChat(text)
	if err != nil {
		return nil, domain.OracleFailure("chat", err)
	}
	return reply, nil
}

// ExecuteInstruction decides what to do with a task for a timed instruction.
func (c *Client) ExecuteInstruction(ctx context.Context, instruction string, snap domain.TaskSnapshot, now time.Time) (*domain.Action, error) {
	text, err := c.complete(ctx, instructionSystem, instructionPrompt(instruction, snap, now), true)
	if err != nil {
		return nil, domain.OracleFailure("execute instruction", err)
	}
	action, err := parseAction(text)
	if err != nil {
		return nil, domain.OracleFailure("execute instruction", err)
	}
	return action, nil
}

func instructionPrompt(instruction string, snap domain.TaskSnapshot, now time.Time) string {
	skills := make([]string, len(snap.Skills))
	for i, s := range snap.Skills {
		skills[i] = string(s)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Instruction: %q\n", instruction)
	fmt.Fprintf(&b, "Current Time: %s\n\n", now.Format(time.RFC3339))
	b.WriteString("Task Context:\n")
	fmt.Fprintf(&b, "Title: %s\n", snap.Title)
	fmt.Fprintf(&b, "Status: %s\n", snap.Status)
	fmt.Fprintf(&b, "Latest Update: %s\n", snap.LastUpdate)
	if len(skills) > 0 {
		fmt.Fprintf(&b, "Agent Skills: %s\n", strings.Join(skills, ", "))
	}
	return b.String()
}

func chatSystemPrompt(tasks []domain.TaskContext, agent *domain.AgentContext) string {
	var b strings.Builder
	b.WriteString("You are Dorae, an AI task assistant. Be helpful, concise, and encouraging.\n")
	b.WriteString("Use tags (labels) and folders to understand what each task is about, and recent progress to understand what has been done.\n")

	canCreate := false
	if agent != nil {
		fmt.Fprintf(&b, "\nYou are acting as agent %q", agent.Name)
		if agent.Role != "" {
			fmt.Fprintf(&b, " (role: %s)", agent.Role)
		}
		b.WriteString(".\n")
		if agent.Description != "" {
			fmt.Fprintf(&b, "%s\n", agent.Description)
		}
		for _, n := range agent.Notes {
			fmt.Fprintf(&b, "Note: %s\n", n)
		}
		for _, s := range agent.Skills {
			if s == domain.SkillAddTask {
				canCreate = true
			}
		}
	}

	b.WriteString("\nContext (user's current tasks):\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "- [%s] %s\n", strings.ToUpper(string(t.Status)), t.Title)
		fmt.Fprintf(&b, "  Priority: %s | Category: %s\n", t.Priority, t.Category)
		if len(t.Labels) > 0 {
			fmt.Fprintf(&b, "  Tags: %s\n", strings.Join(t.Labels, ", "))
		}
		if t.Folder != "" {
			fmt.Fprintf(&b, "  Folder/Project: %s\n", t.Folder)
		}
		if len(t.RecentUpdates) > 0 {
			fmt.Fprintf(&b, "  Recent Progress: %s\n", strings.Join(t.RecentUpdates, " -> "))
		}
	}

	b.WriteString("\nAnswer with a JSON object: {\"reply\": \"your answer\", \"action\": null}.\n")
	if canCreate {
		b.WriteString(`When the user asks you to create a task, set "action" to ` +
			`{"action": "create_task", "task": {"title": "...", "priority": "medium", "category": "...", "labels": [], "initial_update": "..."}}.` + "\n")
	}
	return b.String()
}

// analysisDoc is the analysis response format. Suggestions may be a list.
type analysisDoc struct {
	Suggestions json.RawMessage `json:"suggestions"`
	Summary     string          `json:"summary"`
	Priority    string          `json:"priority"`
	Category    string          `json:"category"`
	Importance  int             `json:"importance"`
}

func parseAnalysis(text string) (*domain.Analysis, error) {
	doc := []byte(stripFences(text))
	if err := validate(analysisValidator, doc); err != nil {
		return nil, err
	}
	var raw analysisDoc
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	a := &domain.Analysis{
		Summary:    strings.TrimSpace(raw.Summary),
		Category:   strings.TrimSpace(raw.Category),
		Importance: raw.Importance,
	}
	if p, err := domain.ParsePriority(raw.Priority); err == nil && raw.Priority != "" {
		a.Priority = p
	}
	var list []string
	if err := json.Unmarshal(raw.Suggestions, &list); err == nil {
		a.Suggestions = strings.Join(list, "\n")
	} else {
		_ = json.Unmarshal(raw.Suggestions, &a.Suggestions)
	}
	return a, nil
}

func parseAction(text string) (*domain.Action, error) {
	doc := []byte(stripFences(text))
	if err := validate(actionValidator, doc); err != nil {
		return nil, err
	}
	var action *domain.Action
	if err := json.Unmarshal(doc, &action); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	if action == nil || action.Kind == actionNone {
		return nil, nil
	}
	return action, nil
}

// chatDoc is the chat response format.
type chatDoc struct {
	Action *domain.Action `json:"action"`
	Reply  string         `json:"reply"`
}

// parseChat decodes a chat answer. Text that is not JSON at all is taken as
// a plain reply without an action.
func parseChat(text string) (*domain.ChatReply, error) {
	doc := []byte(stripFences(text))
	if !json.Valid(doc) {
		return &domain.ChatReply{Text: strings.TrimSpace(text)}, nil
	}
	if err := validate(chatValidator, doc); err != nil {
		return nil, err
	}
	var raw chatDoc
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode chat reply: %w", err)
	}
	reply := &domain.ChatReply{Text: raw.Reply, Action: raw.Action}
	if reply.Action != nil && reply.Action.Kind == actionNone {
		reply.Action = nil
	}
	return reply, nil
}

// Unconfigured is the oracle used when no provider is available.
// Analysis and timed instructions take no action; chat reports the oracle as unavailable.
type Unconfigured struct{}

// Analyze returns no analysis.
func (Unconfigured) Analyze(context.Context, string, []domain.Update) (*domain.Analysis, error) {
	return nil, nil
}

// Chat always fails with domain.ErrOracleUnavailable.
func (Unconfigured) Chat(context.Context, string, []domain.TaskContext, *domain.AgentContext) (*domain.ChatReply, error) {
	return nil, domain.ErrOracleUnavailable
}

// ExecuteInstruction returns no action.
func (Unconfigured) ExecuteInstruction(context.Context, string, domain.TaskSnapshot, time.Time) (*domain.Action, error) {
	return nil, nil
}
