package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dorae/dorae/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel serves /chat/completions, answering with content and recording the last request.
type fakeModel struct {
	mu      sync.Mutex
	content string
	status  int
	last    chatRequest
	auth    string
}

func (f *fakeModel) request() (chatRequest, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.auth
}

func (f *fakeModel) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.last, f.auth = req, r.Header.Get("Authorization")
		f.mu.Unlock()
		if f.status != 0 {
			http.Error(w, "quota exceeded", f.status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": f.content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{BaseURL: srv.URL + "/", Model: "test-model", APIKey: "secret", Timeout: 5 * time.Second})
}

var snap = domain.TaskSnapshot{
	ID:         "task1",
	Title:      "Write report",
	Status:     domain.StatusActive,
	LastUpdate: "draft written",
	Skills:     []domain.Skill{domain.SkillTimer},
}

func TestClient_ExecuteInstruction(t *testing.T) {
	model := &fakeModel{content: `{"action": "add_update", "content": "Reviewed draft"}`}
	c := newTestClient(model.server(t))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	action, err := c.ExecuteInstruction(context.Background(), "check progress", snap, now)

	require.NoError(t, err)
	assert.Equal(t, &domain.Action{Kind: domain.ActionAddUpdate, Content: "Reviewed draft"}, action)
	last, auth := model.request()
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "test-model", last.Model)
	require.NotNil(t, last.ResponseFormat)
	assert.Equal(t, "json_object", last.ResponseFormat.Type)
	require.Len(t, last.Messages, 2)
	user := last.Messages[1].Content
	assert.Contains(t, user, `Instruction: "check progress"`)
	assert.Contains(t, user, "Current Time: 2025-06-01T09:00:00Z")
	assert.Contains(t, user, "Latest Update: draft written")
	assert.Contains(t, user, "Agent Skills: timer")
}

func TestClient_ExecuteInstruction_NoAction(t *testing.T) {
	for _, content := range []string{"null", `{"action": "none"}`, "```json\nnull\n```"} {
		t.Run(content, func(t *testing.T) {
			c := newTestClient((&fakeModel{content: content}).server(t))

			action, err := c.ExecuteInstruction(context.Background(), "go", snap, time.Now())

			require.NoError(t, err)
			assert.Nil(t, action)
		})
	}
}

func TestClient_ExecuteInstruction_Failures(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"http error", &fakeModel{status: http.StatusTooManyRequests}},
		{"not json", &fakeModel{content: "I think you should add an update"}},
		{"schema violation", &fakeModel{content: `{"content": "missing action"}`}},
		{"wrong type", &fakeModel{content: `{"action": 7}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(tt.model.server(t))

			action, err := c.ExecuteInstruction(context.Background(), "go", snap, time.Now())

			assert.Nil(t, action)
			assert.ErrorIs(t, err, domain.ErrOracleFailure)
		})
	}
}

func TestClient_ExecuteInstruction_ContextCanceled(t *testing.T) {
	c := newTestClient((&fakeModel{content: "null"}).server(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteInstruction(ctx, "go", snap, time.Now())

	assert.ErrorIs(t, err, domain.ErrOracleFailure)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Analyze(t *testing.T) {
	model := &fakeModel{content: `{"summary": "On track", "suggestions": ["Send draft", "Book review"], "priority": "HIGH", "category": "Work", "importance": 4}`}
	c := newTestClient(model.server(t))

	a, err := c.Analyze(context.Background(), "Write report", []domain.Update{{Content: "draft written"}})

	require.NoError(t, err)
	assert.Equal(t, &domain.Analysis{
		Summary:     "On track",
		Suggestions: "Send draft\nBook review",
		Priority:    domain.PriorityHigh,
		Category:    "Work",
		Importance:  4,
	}, a)
	last, _ := model.request()
	assert.Contains(t, last.Messages[1].Content, "Task: Write report")
	assert.Contains(t, last.Messages[1].Content, "- draft written")
}

func TestClient_Analyze_InvalidPriorityDropped(t *testing.T) {
	c := newTestClient((&fakeModel{content: `{"summary": "s", "suggestions": "do it", "priority": "urgent"}`}).server(t))

	a, err := c.Analyze(context.Background(), "t", nil)

	require.NoError(t, err)
	assert.Empty(t, a.Priority)
	assert.Equal(t, "do it", a.Suggestions)
}

func TestClient_Analyze_SchemaViolation(t *testing.T) {
	c := newTestClient((&fakeModel{content: `{"summary": "s", "suggestions": "x", "importance": 9}`}).server(t))

	_, err := c.Analyze(context.Background(), "t", nil)

	assert.ErrorIs(t, err, domain.ErrOracleFailure)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestClient_Chat(t *testing.T) {
	model := &fakeModel{content: `{"reply": "Done, I added it.", "action": {"action": "create_task", "task": {"title": "Book venue", "labels": ["event"]}}}`}
	c := newTestClient(model.server(t))
	tasks := []domain.TaskContext{{
		Title: "Plan party", Status: domain.StatusActive, Priority: domain.PriorityHigh, Category: "Personal",
		Folder: "Events", Labels: []string{"event"}, RecentUpdates: []string{"guest list", "budget"},
	}}
	agent := &domain.AgentContext{ID: "a1", Name: "Planner", Role: "organizer", Skills: []domain.Skill{domain.SkillAddTask}, Notes: []string{"likes lists"}}

	reply, err := c.Chat(context.Background(), "add a task to book the venue", tasks, agent)

	require.NoError(t, err)
	assert.Equal(t, "Done, I added it.", reply.Text)
	require.NotNil(t, reply.Action)
	assert.Equal(t, domain.ActionCreateTask, reply.Action.Kind)
	require.NotNil(t, reply.Action.Task)
	assert.Equal(t, "Book venue", reply.Action.Task.Title)

	last, _ := model.request()
	system := last.Messages[0].Content
	assert.Contains(t, system, "- [ACTIVE] Plan party")
	assert.Contains(t, system, "Folder/Project: Events")
	assert.Contains(t, system, "Recent Progress: guest list -> budget")
	assert.Contains(t, system, `agent "Planner" (role: organizer)`)
	assert.Contains(t, system, "Note: likes lists")
	assert.Contains(t, system, "create_task")
	assert.Equal(t, "add a task to book the venue", last.Messages[1].Content)
}

func TestClient_Chat_NoCreateInstructionsWithoutSkill(t *testing.T) {
	model := &fakeModel{content: `{"reply": "Hi", "action": null}`}
	c := newTestClient(model.server(t))

	reply, err := c.Chat(context.Background(), "hello", nil, &domain.AgentContext{Name: "Reviewer", Skills: []domain.Skill{domain.SkillTimer}})

	require.NoError(t, err)
	assert.Equal(t, &domain.ChatReply{Text: "Hi"}, reply)
	last, _ := model.request()
	assert.NotContains(t, last.Messages[0].Content, "create_task")
}

func TestClient_Chat_PlainTextReply(t *testing.T) {
	c := newTestClient((&fakeModel{content: "You have two open tasks."}).server(t))

	reply, err := c.Chat(context.Background(), "summary?", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, &domain.ChatReply{Text: "You have two open tasks."}, reply)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		wantClient bool
		wantErr    bool
	}{
		{"none", Config{Provider: domain.OracleNone, APIKey: "k"}, false, false},
		{"gemini without key", Config{Provider: domain.OracleGemini}, false, false},
		{"gemini with key", Config{Provider: domain.OracleGemini, APIKey: "k"}, true, false},
		{"openai without key", Config{Provider: domain.OracleOpenAI}, false, false},
		{"openai local server", Config{Provider: domain.OracleOpenAI, BaseURL: "http://localhost:11434/v1"}, true, false},
		{"unknown", Config{Provider: "mystery"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, isClient := o.(*Client)
			assert.Equal(t, tt.wantClient, isClient)
		})
	}
}

func TestNew_GeminiDefaultsToCompatEndpoint(t *testing.T) {
	o, err := New(Config{Provider: domain.OracleGemini, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultGeminiBaseURL, o.(*Client).baseURL)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(domain.OracleConfig{
		Provider:  domain.OracleOpenAI,
		Model:     "gpt-4o-mini",
		APIKeyEnv: "DORAE_TEST_KEY",
		Timeout:   domain.Duration(10 * time.Second),
	}, func(k string) string {
		if k == "DORAE_TEST_KEY" {
			return "abc"
		}
		return ""
	})

	assert.Equal(t, Config{Provider: domain.OracleOpenAI, Model: "gpt-4o-mini", APIKey: "abc", Timeout: 10 * time.Second}, cfg)
}

func TestUnconfigured(t *testing.T) {
	var o Unconfigured

	a, err := o.Analyze(context.Background(), "t", nil)
	assert.NoError(t, err)
	assert.Nil(t, a)

	act, err := o.ExecuteInstruction(context.Background(), "i", snap, time.Now())
	assert.NoError(t, err)
	assert.Nil(t, act)

	_, err = o.Chat(context.Background(), "hi", nil, nil)
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
	assert.ErrorIs(t, err, domain.ErrOracleFailure)
}
