package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/timer"
	"github.com/dorae/dorae/internal/usecase"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeFailure maps a domain error to its HTTP status.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.deps.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

// StatusFor returns the HTTP status that reports err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSkillDisabled):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOracleFailure):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrPersistence),
		errors.Is(err, domain.ErrEngineNotRestored),
		errors.Is(err, timer.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode request body: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Restored: s.deps.Engine.Restored(),
		Timers:   len(s.deps.Engine.ListTimers("")),
	})
}

// handleEvents streams engine events to the client.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.deps.Broker.Subscribe()
	defer s.deps.Broker.Unsubscribe(ch)

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req StartTimerRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	jobID, err := s.deps.Engine.StartTimer(r.Context(), timer.StartTimerInput{
		AgentID:         r.PathValue("id"),
		Instruction:     req.Instruction,
		TaskIDs:         req.TaskIDs,
		IntervalSeconds: req.Interval,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, StartTimerResponse{JobID: jobID})
}

func (s *Server) handleListTimers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.ListTimers(r.URL.Query().Get("agent_id")))
}

func (s *Server) handleListAgentTimers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.ListTimers(r.PathValue("id")))
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	stopped, err := s.deps.Engine.StopTimer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StopTimerResponse{Stopped: stopped})
}

func (s *Server) handleStopAgentTimers(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Engine.StopAgentTimers(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StopAgentTimersResponse{Stopped: n})
}

func (s *Server) handleRunTick(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Engine.RunTick(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTickResponse(report))
}

func (s *Server) handleCreateTaskAsAgent(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	out, err := s.deps.CreateTask.Execute(r.Context(), usecase.CreateTaskAsAgentInput{
		AgentID:       r.PathValue("id"),
		Title:         req.Title,
		Priority:      req.Priority,
		Category:      req.Category,
		FolderID:      req.FolderID,
		Owner:         req.Owner,
		InitialUpdate: req.InitialUpdate,
		Labels:        req.Labels,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out.Task)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	out, err := s.deps.Chat.Execute(r.Context(), usecase.ChatInput{
		Message: req.Message,
		AgentID: req.AgentID,
		Owner:   req.Owner,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: out.Reply, Created: out.Created, Declined: out.Declined})
}

func (s *Server) handleCloseTask(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.CloseTask.Execute(r.Context(), usecase.CloseTaskInput{TaskID: r.PathValue("id")})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResponse{Task: out.Task, Changed: out.Changed})
}

func (s *Server) handleReopenTask(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.ReopenTask.Execute(r.Context(), usecase.ReopenTaskInput{TaskID: r.PathValue("id")})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResponse{Task: out.Task, Changed: out.Changed})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.DeleteTask.Execute(r.Context(), usecase.DeleteTaskInput{TaskID: r.PathValue("id")})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteTaskResponse{Task: out.Task, Archived: out.Archived})
}

func (s *Server) handleEmptyTrash(w http.ResponseWriter, r *http.Request) {
	var req EmptyTrashRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	out, err := s.deps.EmptyTrash.Execute(r.Context(), usecase.EmptyTrashInput{Owner: req.Owner})
	if err != nil && out == nil {
		s.writeFailure(w, r, err)
		return
	}
	resp := EmptyTrashResponse{Archived: out.Archived}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func newTickResponse(r *timer.TickReport) TickResponse {
	resp := TickResponse{JobID: r.JobID, Started: r.Started, Results: make([]TickResult, 0, len(r.Results))}
	for _, res := range r.Results {
		tr := TickResult{TaskID: res.TaskID, Outcome: string(res.Outcome), UpdateID: res.UpdateID}
		if res.Err != nil {
			tr.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, tr)
	}
	return resp
}

// Wire types.

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Restored bool   `json:"restored"`
	Timers   int    `json:"timers"`
}

type StartTimerRequest struct {
	Instruction string   `json:"instruction"`
	TaskIDs     []string `json:"task_ids"`
	Interval    int      `json:"interval"`
}

type StartTimerResponse struct {
	JobID string `json:"job_id"`
}

type StopTimerResponse struct {
	Stopped bool `json:"stopped"`
}

type StopAgentTimersResponse struct {
	Stopped int `json:"stopped"`
}

type TickResult struct {
	TaskID   string `json:"task_id"`
	Outcome  string `json:"outcome"`
	UpdateID string `json:"update_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type TickResponse struct {
	Started time.Time    `json:"started"`
	JobID   string       `json:"job_id"`
	Results []TickResult `json:"results"`
}

type CreateTaskRequest struct {
	Title         string   `json:"title"`
	Priority      string   `json:"priority"`
	Category      string   `json:"category"`
	FolderID      string   `json:"folder_id"`
	Owner         string   `json:"owner"`
	InitialUpdate string   `json:"initial_update"`
	Labels        []string `json:"labels"`
}

type ChatRequest struct {
	Message string `json:"message"`
	AgentID string `json:"agent_id"`
	Owner   string `json:"owner"`
}

type ChatResponse struct {
	Created  *domain.Task `json:"created,omitempty"`
	Reply    string       `json:"reply"`
	Declined string       `json:"declined,omitempty"`
}

type TransitionResponse struct {
	Task    *domain.Task `json:"task"`
	Changed bool         `json:"changed"`
}

type DeleteTaskResponse struct {
	Task     *domain.Task `json:"task"`
	Archived bool         `json:"archived"`
}

type EmptyTrashRequest struct {
	Owner string `json:"owner"`
}

type EmptyTrashResponse struct {
	Archived []string `json:"archived"`
	Error    string   `json:"error,omitempty"`
}
