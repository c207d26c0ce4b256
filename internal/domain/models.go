// Package domain defines the core domain models for chatrelay.
package domain

import "time"

// DefaultSessionName is the name given to a session when none is supplied.
const DefaultSessionName = "New Chat"

// User is an account in the identity store.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChatSession is a bounded conversation owned by one user.
// EndTime and Summary are both nil while the session is open.
type ChatSession struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user"`
	Name      string     `json:"name"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Summary   *string    `json:"summary"`
}

// Closed reports whether the session has been closed at least once.
func (s *ChatSession) Closed() bool {
	return s.EndTime != nil
}

// ChatMessage is one turn of a session. Messages are never modified after
// they are written.
type ChatMessage struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"chatSession"`
	SenderID      string    `json:"sender"`
	Timestamp     time.Time `json:"timestamp"`
	IsUserMessage bool      `json:"isUserMessage"`
	Content       string    `json:"content"`
}
