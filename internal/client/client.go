// Package client talks to a running dorae server. Timers live inside the server
// process, so timer commands go through this client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/server"
)

const defaultTimeout = 2 * time.Minute

// APIError is a non-2xx response from the server.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server: %s (HTTP %d)", e.Message, e.Status)
}

// Is maps the status back to the domain error category.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case http.StatusBadRequest:
		return target == domain.ErrInvalidInput
	case http.StatusNotFound:
		return target == domain.ErrNotFound
	case http.StatusForbidden:
		return target == domain.ErrSkillDisabled
	case http.StatusServiceUnavailable:
		return target == domain.ErrPersistence
	case http.StatusBadGateway:
		return target == domain.ErrOracleFailure
	}
	return false
}

// Client is an HTTP client for the dorae API.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a client for the server listening on addr ("host:port" or a URL).
func New(addr string) *Client {
	if addr == "" {
		addr = server.DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: strings.TrimRight(addr, "/"),
	}
}

// Health returns the server status.
func (c *Client) Health(ctx context.Context) (*server.HealthResponse, error) {
	var out server.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartTimer schedules a timer for agentID and returns its job ID.
func (c *Client) StartTimer(ctx context.Context, agentID string, req server.StartTimerRequest) (string, error) {
	var out server.StartTimerResponse
	if err := c.do(ctx, http.MethodPost, "/api/agents/"+url.PathEscape(agentID)+"/timers", req, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

// ListTimers returns the scheduled timers, optionally for one agent.
func (c *Client) ListTimers(ctx context.Context, agentID string) ([]domain.TimerJob, error) {
	path := "/api/timers"
	if agentID != "" {
		path += "?agent_id=" + url.QueryEscape(agentID)
	}
	var out []domain.TimerJob
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StopTimer stops one timer. It reports false if the job was not scheduled.
func (c *Client) StopTimer(ctx context.Context, jobID string) (bool, error) {
	var out server.StopTimerResponse
	if err := c.do(ctx, http.MethodDelete, "/api/timers/"+url.PathEscape(jobID), nil, &out); err != nil {
		return false, err
	}
	return out.Stopped, nil
}

// StopAgentTimers stops every timer of an agent and returns how many were stopped.
func (c *Client) StopAgentTimers(ctx context.Context, agentID string) (int, error) {
	var out server.StopAgentTimersResponse
	if err := c.do(ctx, http.MethodDelete, "/api/agents/"+url.PathEscape(agentID)+"/timers", nil, &out); err != nil {
		return 0, err
	}
	return out.Stopped, nil
}

// RunTick runs one tick of a timer now.
func (c *Client) RunTick(ctx context.Context, jobID string) (*server.TickResponse, error) {
	var out server.TickResponse
	if err := c.do(ctx, http.MethodPost, "/api/timers/"+url.PathEscape(jobID)+"/run", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w (is `dorae serve` running?)", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var e server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
