package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestNew_Addr(t *testing.T) {
	assert.Equal(t, "http://"+server.DefaultAddr, New("").baseURL)
	assert.Equal(t, "http://localhost:9000", New("localhost:9000").baseURL)
	assert.Equal(t, "https://example.test", New("https://example.test/").baseURL)
}

func TestStartTimer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/agents/agent-1/timers", r.URL.Path)
		var req server.StartTimerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, server.StartTimerRequest{Instruction: "check", TaskIDs: []string{"t1"}, Interval: 30}, req)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(server.StartTimerResponse{JobID: "job-1"})
	})

	id, err := c.StartTimer(t.Context(), "agent-1", server.StartTimerRequest{Instruction: "check", TaskIDs: []string{"t1"}, Interval: 30})

	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
}

func TestListTimers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/timers", r.URL.Path)
		assert.Equal(t, "agent-1", r.URL.Query().Get("agent_id"))
		_ = json.NewEncoder(w).Encode([]domain.TimerJob{{ID: "job-1", AgentID: "agent-1", IntervalSeconds: 60}})
	})

	jobs, err := c.ListTimers(t.Context(), "agent-1")

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.Equal(t, 60, jobs[0].IntervalSeconds)
}

func TestStopTimer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/timers/job-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(server.StopTimerResponse{Stopped: true})
	})

	stopped, err := c.StopTimer(t.Context(), "job-1")

	require.NoError(t, err)
	assert.True(t, stopped)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"forbidden", http.StatusForbidden, domain.ErrSkillDisabled},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"bad request", http.StatusBadRequest, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(server.ErrorResponse{Error: "nope"})
			})

			_, err := c.RunTick(t.Context(), "job-1")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestUnreachable(t *testing.T) {
	c := New("127.0.0.1:1")

	_, err := c.Health(t.Context())

	assert.ErrorContains(t, err, "dorae serve")
}
