package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// dialect captures what differs between the supported SQL backends.
type dialect struct {
	name              string
	numbered          bool // $1, $2 ... instead of ?
	migrations        []string
	isUniqueViolation func(error) bool
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

var _ Store = (*SQLStore)(nil)

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLStore) migrate() error {
	for _, m := range s.dialect.migrations {
		if _, err := s.db.Exec(m); err != nil {
			return errors.Wrapf(err, "migration failed\n%s", m)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateUser creates a new user.
func (s *SQLStore) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO users (user_id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`),
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil && s.dialect.isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetUser retrieves a user by ID.
func (s *SQLStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT user_id, username, email, password_hash, created_at FROM users WHERE user_id = ?`, userID)
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT user_id, username, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (s *SQLStore) getUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx, s.rebind(query), arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateSession creates a new chat session.
func (s *SQLStore) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO chat_sessions (session_id, user_id, name, start_time) VALUES (?, ?, ?, ?)`),
		session.ID, session.UserID, session.Name, session.StartTime)
	return err
}

const sessionColumns = `session_id, user_id, name, start_time, end_time, summary`

func scanSession(row interface{ Scan(...any) error }) (*domain.ChatSession, error) {
	var session domain.ChatSession
	var endTime sql.NullTime
	var summary sql.NullString
	if err := row.Scan(&session.ID, &session.UserID, &session.Name, &session.StartTime, &endTime, &summary); err != nil {
		return nil, err
	}
	if endTime.Valid {
		session.EndTime = &endTime.Time
	}
	if summary.Valid {
		session.Summary = &summary.String
	}
	return &session, nil
}

// GetSession retrieves a session by ID.
func (s *SQLStore) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE session_id = ?`), sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return session, err
}

// ListSessions lists the sessions owned by a user, most recent first.
func (s *SQLStore) ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE user_id = ? ORDER BY start_time DESC, seq DESC`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.ChatSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// CloseSession sets end time and summary on a session owned by userID.
// Returns (nil, nil) when no such session exists.
func (s *SQLStore) CloseSession(ctx context.Context, userID, sessionID string, endTime time.Time, summary string) (*domain.ChatSession, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE chat_sessions SET end_time = ?, summary = ? WHERE session_id = ? AND user_id = ?`),
		endTime, summary, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return s.updatedSession(ctx, res, sessionID)
}

// RenameSession changes the display name of a session owned by userID.
// Returns (nil, nil) when no such session exists.
func (s *SQLStore) RenameSession(ctx context.Context, userID, sessionID, name string) (*domain.ChatSession, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE chat_sessions SET name = ? WHERE session_id = ? AND user_id = ?`),
		name, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return s.updatedSession(ctx, res, sessionID)
}

func (s *SQLStore) updatedSession(ctx context.Context, res sql.Result, sessionID string) (*domain.ChatSession, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetSession(ctx, sessionID)
}

// CreateMessage appends a message to a session's log.
func (s *SQLStore) CreateMessage(ctx context.Context, message *domain.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO chat_messages (message_id, session_id, sender_id, ts, is_user_message, content) VALUES (?, ?, ?, ?, ?, ?)`),
		message.ID, message.SessionID, message.SenderID, message.Timestamp, message.IsUserMessage, message.Content)
	return err
}

// GetMessages retrieves every message of a session in insertion order.
func (s *SQLStore) GetMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT message_id, session_id, sender_id, ts, is_user_message, content FROM chat_messages WHERE session_id = ? ORDER BY seq ASC`),
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.SenderID, &msg.Timestamp, &msg.IsUserMessage, &msg.Content); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of messages stored for a session.
func (s *SQLStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`), sessionID).Scan(&n)
	return n, err
}
