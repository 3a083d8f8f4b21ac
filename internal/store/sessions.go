package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frankenlab/frankend/pkg/types"
)

// SessionStore manages chat sessions and their message history. Messages are
// append-only and addressed by (session_id, message_index).
type SessionStore struct {
	store *Store
}

// NewSessionStore creates a session store backed by the given store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

// CreateSession inserts a new chat session. The ID is assigned when empty.
func (s *SessionStore) CreateSession(session *types.ChatSession) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	_, err := s.store.db.Exec(`
		INSERT INTO sessions (id, agent_id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.AgentID, session.UserID, session.Title,
		session.CreatedAt.Format(time.RFC3339Nano),
		session.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a chat session by ID.
func (s *SessionStore) GetSession(id string) (*types.ChatSession, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var session types.ChatSession
	var createdAt, updatedAt string
	err := s.store.db.QueryRow(`
		SELECT id, agent_id, user_id, title, created_at, updated_at
		FROM sessions WHERE id = ?`, id).
		Scan(&session.ID, &session.AgentID, &session.UserID, &session.Title,
			&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	session.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &session, nil
}

// ListSessions returns the sessions for an agent, most recently active first.
func (s *SessionStore) ListSessions(agentID string) ([]*types.ChatSession, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	rows, err := s.store.db.Query(`
		SELECT id, agent_id, user_id, title, created_at, updated_at
		FROM sessions WHERE agent_id = ?
		ORDER BY updated_at DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.ChatSession
	for rows.Next() {
		var session types.ChatSession
		var createdAt, updatedAt string
		err := rows.Scan(&session.ID, &session.AgentID, &session.UserID,
			&session.Title, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		session.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages.
func (s *SessionStore) DeleteSession(id string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	res, err := s.store.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage appends a message to a session, assigning the next index, and
// touches the session's updated_at.
func (s *SessionStore) AppendMessage(msg *types.ChatMessageRecord) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.store.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRow(`
		SELECT COALESCE(MAX(message_index) + 1, 0)
		FROM messages WHERE session_id = ?`, msg.SessionID).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to compute message index: %w", err)
	}
	msg.Index = next

	_, err = tx.Exec(`
		INSERT INTO messages (session_id, message_index, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.SessionID, msg.Index, msg.Role, msg.Content,
		msg.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	_, err = tx.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt.Format(time.RFC3339Nano), msg.SessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return tx.Commit()
}

// ListMessages returns a session's messages in order.
func (s *SessionStore) ListMessages(sessionID string) ([]*types.ChatMessageRecord, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	rows, err := s.store.db.Query(`
		SELECT session_id, message_index, role, content, created_at
		FROM messages WHERE session_id = ?
		ORDER BY message_index ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// RecentMessages returns the last limit messages of a session, oldest first.
// A limit of zero or less returns nothing.
func (s *SessionStore) RecentMessages(sessionID string, limit int) ([]*types.ChatMessageRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	rows, err := s.store.db.Query(`
		SELECT session_id, message_index, role, content, created_at
		FROM (
			SELECT session_id, message_index, role, content, created_at
			FROM messages WHERE session_id = ?
			ORDER BY message_index DESC
			LIMIT ?
		)
		ORDER BY message_index ASC`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*types.ChatMessageRecord, error) {
	var messages []*types.ChatMessageRecord
	for rows.Next() {
		var msg types.ChatMessageRecord
		var createdAt string
		err := rows.Scan(&msg.SessionID, &msg.Index, &msg.Role, &msg.Content, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
