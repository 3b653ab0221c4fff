// Package history persists sessions and their messages against a
// dialect-aware SQL backend (sqlite, postgres or mysql).
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

// Role is one of the recognized message roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

func (r Role) valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// Message is one immutable, chronologically-ordered entry in a session.
type Message struct {
	ID        int64
	SessionID string
	Role      Role
	Content   string
	Metadata  string // opaque JSON, e.g. {"timestamp":..., "mode":..., "tool_name":...}
	CreatedAt time.Time
}

// Session owns an ordered sequence of messages.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const maxTitleLen = 160

const createSessionsTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id VARCHAR(255) PRIMARY KEY,
	title VARCHAR(255) NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

const createMessagesTableSQLite = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id VARCHAR(255) NOT NULL,
	role VARCHAR(20) NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);
CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at, id);
`

const createMessagesTablePostgres = `
CREATE TABLE IF NOT EXISTS messages (
	id SERIAL PRIMARY KEY,
	session_id VARCHAR(255) NOT NULL,
	role VARCHAR(20) NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);
`

const createMessagesTableMySQL = `
CREATE TABLE IF NOT EXISTS messages (
	id BIGINT PRIMARY KEY AUTO_INCREMENT,
	session_id VARCHAR(255) NOT NULL,
	role VARCHAR(20) NOT NULL,
	content TEXT NOT NULL,
	metadata TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX idx_messages_session_id ON messages(session_id);
`

// Store implements the History Store component over database/sql.
type Store struct {
	db      *sql.DB
	dialect string
	mu      sync.Mutex
}

// Open connects to dialect ("sqlite", "postgres", or "mysql") at dsn and
// initializes the schema.
func Open(dialect, dsn string) (*Store, error) {
	driverName := dialect
	if dialect == "sqlite" {
		driverName = "sqlite3"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, coreconfig.Internal(err, "opening history database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, coreconfig.Internal(err, "pinging history database")
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, createSessionsTableSQL); err != nil {
		return coreconfig.Internal(err, "creating sessions table")
	}

	messagesSQL := createMessagesTableSQLite
	switch s.dialect {
	case "postgres":
		messagesSQL = createMessagesTablePostgres
	case "mysql":
		messagesSQL = createMessagesTableMySQL
	}
	if _, err := s.db.ExecContext(ctx, messagesSQL); err != nil {
		return coreconfig.Internal(err, "creating messages table")
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// GetOrCreateSession returns the session, creating it with a timestamped
// default title if it does not exist — a turn arriving for an unknown id
// creates that session on demand.
func (s *Store) GetOrCreateSession(ctx context.Context, id string) (*Session, error) {
	sess, err := s.getSession(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !coreconfig.Is(err, coreconfig.KindNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	title := truncateTitle(fmt.Sprintf("Session %s", now.Format(time.RFC3339)))
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, title, now, now)
	if err != nil {
		return nil, coreconfig.Internal(err, "creating session %s", id)
	}
	return &Session{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) getSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, coreconfig.NotFound("session %s", id)
		}
		return nil, coreconfig.Internal(err, "fetching session %s", id)
	}
	return &sess, nil
}

func truncateTitle(title string) string {
	r := []rune(title)
	if len(r) <= maxTitleLen {
		return title
	}
	return string(r[:maxTitleLen])
}

// AppendMessage persists a new message and bumps the session's updated_at.
// The role is validated against the recognized set.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, role Role, content, metadata string) (*Message, error) {
	if !role.valid() {
		return nil, coreconfig.Validation("unrecognized role %q", role)
	}
	if metadata == "" {
		metadata = "{}"
	}

	if _, err := s.GetOrCreateSession(ctx, sessionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(role), content, metadata, now)
	if err != nil {
		return nil, coreconfig.Internal(err, "appending message")
	}
	id, _ := res.LastInsertId()

	if _, err := s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return nil, coreconfig.Internal(err, "touching session %s", sessionID)
	}

	return &Message{ID: id, SessionID: sessionID, Role: role, Content: content, Metadata: metadata, CreatedAt: now}, nil
}

// RecentMessages returns the most recent `limit` messages for a session in
// chronological order, oldest first. limit is saturated into [1, 1000];
// zero or negative is treated as 1.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	limit = saturateLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, metadata, created_at
		 FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, coreconfig.Internal(err, "querying recent messages")
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, coreconfig.Internal(err, "scanning message row")
		}
		m.Role = Role(role)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, coreconfig.Internal(err, "iterating message rows")
	}

	// rows came back newest-first; reverse to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func saturateLimit(limit int) int {
	if limit <= 0 {
		return 1
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

// DeleteSession removes a session and cascades to its messages.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return coreconfig.Internal(err, "cascading delete of messages for session %s", sessionID)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return coreconfig.Internal(err, "deleting session %s", sessionID)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return coreconfig.NotFound("session %s", sessionID)
	}
	return nil
}
