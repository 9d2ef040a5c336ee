package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

// agentDoc is the stored profile of an agent. Notes live in agent_notes.
type agentDoc struct {
	Created     time.Time          `json:"created_at"`
	Name        string             `json:"name"`
	Role        string             `json:"role"`
	Description string             `json:"description"`
	Status      domain.AgentStatus `json:"status"`
	Skills      []domain.Skill     `json:"skills"`
	Folders     []string           `json:"folders"`
}

// AgentStore implements domain.AgentRepository.
type AgentStore struct {
	s *Store
}

// Get retrieves an agent by ID.
func (r *AgentStore) Get(ctx context.Context, id string) (*domain.Agent, error) {
	var raw string
	err := r.s.db.QueryRowContext(ctx, `SELECT doc FROM agents WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	agent, err := decodeAgent(id, raw)
	if err != nil {
		return nil, err
	}
	if agent.Notes, err = loadNotes(ctx, r.s.db, id); err != nil {
		return nil, err
	}
	return agent, nil
}

// List retrieves all agents ordered by creation time.
func (r *AgentStore) List(ctx context.Context) ([]*domain.Agent, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT id, doc FROM agents`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	var agents []*domain.Agent
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agent, err := decodeAgent(id, raw)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		agents = append(agents, agent)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, a := range agents {
		if a.Notes, err = loadNotes(ctx, r.s.db, a.ID); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(agents, func(a, b *domain.Agent) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return agents, nil
}

// Insert stores a new agent, assigning an ID when it is empty.
func (r *AgentStore) Insert(ctx context.Context, agent *domain.Agent) error {
	id := agent.ID
	if id == "" {
		id = r.s.ids.NewID()
	}
	doc, err := encodeAgent(agent)
	if err != nil {
		return err
	}
	err = r.s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, `SELECT 1 FROM agents WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("agent %s: %w", id, domain.ErrDuplicateID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO agents (id, doc) VALUES (?, ?)`, id, doc); err != nil {
			return fmt.Errorf("insert agent: %w", err)
		}
		for _, n := range agent.Notes {
			if err := insertNote(ctx, tx, id, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	agent.ID = id
	return nil
}

// Save replaces the agent's profile fields. Notes are left untouched.
func (r *AgentStore) Save(ctx context.Context, agent *domain.Agent) error {
	doc, err := encodeAgent(agent)
	if err != nil {
		return err
	}
	res, err := r.s.db.ExecContext(ctx, `UPDATE agents SET doc = ? WHERE id = ?`, doc, agent.ID)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", agent.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

// Delete removes an agent together with its notes.
func (r *AgentStore) Delete(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM agent_notes WHERE agent_id = ?`, id); err != nil {
			return fmt.Errorf("delete notes: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete agent: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		found = n > 0
		return nil
	})
	return found, err
}

// AppendNote appends a note to the agent.
func (r *AgentStore) AppendNote(ctx context.Context, id string, note domain.Update) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, `SELECT 1 FROM agents WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrAgentNotFound
		}
		return insertNote(ctx, tx, id, note)
	})
}

// EditNote replaces the content of one note.
func (r *AgentStore) EditNote(ctx context.Context, id, noteID, content string, editedAt time.Time) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, `SELECT 1 FROM agents WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrAgentNotFound
		}

		var seq int64
		var raw string
		err = tx.QueryRowContext(ctx,
			`SELECT seq, body FROM agent_notes WHERE agent_id = ? AND id = ? ORDER BY seq LIMIT 1`, id, noteID,
		).Scan(&seq, &raw)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNoteNotFound
		}
		if err != nil {
			return fmt.Errorf("get note: %w", err)
		}

		var n domain.Update
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return fmt.Errorf("decode note %s: %w", noteID, err)
		}
		n.Content = content
		edited := editedAt
		n.LastEditedAt = &edited
		body, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode note: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE agent_notes SET body = ? WHERE seq = ?`, string(body), seq); err != nil {
			return fmt.Errorf("update note: %w", err)
		}
		return nil
	})
}

// DeleteNote removes one note. Absent IDs are a no-op.
func (r *AgentStore) DeleteNote(ctx context.Context, id, noteID string) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, `SELECT 1 FROM agents WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrAgentNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM agent_notes WHERE agent_id = ? AND id = ?`, id, noteID); err != nil {
			return fmt.Errorf("delete note: %w", err)
		}
		return nil
	})
}

func encodeAgent(a *domain.Agent) (string, error) {
	b, err := json.Marshal(agentDoc{
		Created:     a.Created,
		Name:        a.Name,
		Role:        a.Role,
		Description: a.Description,
		Status:      a.Status,
		Skills:      a.Skills,
		Folders:     a.Folders,
	})
	if err != nil {
		return "", fmt.Errorf("encode agent: %w", err)
	}
	return string(b), nil
}

func decodeAgent(id, raw string) (*domain.Agent, error) {
	var doc agentDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode agent %s: %w", id, err)
	}
	return &domain.Agent{
		ID:          id,
		Created:     doc.Created,
		Name:        doc.Name,
		Role:        doc.Role,
		Description: doc.Description,
		Status:      doc.Status,
		Skills:      doc.Skills,
		Folders:     doc.Folders,
	}, nil
}

func insertNote(ctx context.Context, tx *sql.Tx, agentID string, note domain.Update) error {
	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encode note: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO agent_notes (agent_id, id, body) VALUES (?, ?, ?)`, agentID, note.ID, string(body),
	); err != nil {
		return fmt.Errorf("append note: %w", err)
	}
	return nil
}

func loadNotes(ctx context.Context, q querier, agentID string) ([]domain.Update, error) {
	bodies, err := loadBodies(ctx, q, `SELECT body FROM agent_notes WHERE agent_id = ? ORDER BY seq`, agentID)
	if err != nil {
		return nil, fmt.Errorf("load notes of %s: %w", agentID, err)
	}
	var notes []domain.Update
	for _, b := range bodies {
		var n domain.Update
		if err := json.Unmarshal([]byte(b), &n); err != nil {
			return nil, fmt.Errorf("decode note of %s: %w", agentID, err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}
