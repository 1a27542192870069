package types

import (
	"errors"
	"fmt"
	"time"
)

// Status is the session lifecycle state. Transitions are monotonic:
// pending -> active -> completed, with error reachable from any
// non-terminal state. No backward transitions.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ErrInvalidTransition is returned for a backward or otherwise
// disallowed status transition.
var ErrInvalidTransition = errors.New("invalid session status transition")

// SessionConfig is the level-derived behavior of a session.
type SessionConfig struct {
	Level Level

	// MaxTurns bounds the number of user turns: 0 means the session
	// never continues (Notify), -1 means unbounded (Review default).
	MaxTurns int
}

// UIConfig carries presentation hints derived from the level.
type UIConfig struct {
	Level        Level
	ShowInput    bool
	ShowHistory  bool
	AutoDismiss  bool
	DismissDelay time.Duration
	Style        string
}

// SessionMetadata identifies a session and ties it back to the intent
// and signal it was built from.
type SessionMetadata struct {
	UUID          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastReadAt    time.Time
	IntentUUID    string
	Source        string
	IntentContext Content
}

// Session is the conversational record handed to the presentation
// layer and the unit of multi-turn state.
//
// Ownership: the session handler is the only writer while a session is
// active. Concurrent readers get deep copies via Clone; they never
// mutate a live session directly.
type Session struct {
	Level  Level
	Title  string
	Status Status

	// Messages is the full LLM-format transcript. MessagesToUser is
	// the parallel UI-safe transcript with the agent's reasoning
	// scaffolding stripped. The two are always the same length.
	Messages       []Message
	MessagesToUser []Message

	Config   SessionConfig
	UI       UIConfig
	Metadata SessionMetadata

	// IsRead starts false; the Notify auto-finalize check is gated on
	// it, and new assistant output flips it back to false.
	IsRead bool
}

// NewSession creates a pending session. The messages and messagesToUser
// transcripts must be the same length.
func NewSession(level Level, title string, messages, messagesToUser []Message) (*Session, error) {
	if len(messages) != len(messagesToUser) {
		return nil, fmt.Errorf("transcript length mismatch: %d vs %d", len(messages), len(messagesToUser))
	}
	now := time.Now()
	return &Session{
		Level:          level,
		Title:          title,
		Status:         StatusPending,
		Messages:       messages,
		MessagesToUser: messagesToUser,
		Metadata: SessionMetadata{
			UUID:      NewMetadata().UUID,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}, nil
}

// AppendMessage appends one turn to both transcripts in lockstep,
// preserving the length invariant, and bumps UpdatedAt.
func (s *Session) AppendMessage(msg, toUser Message) {
	s.Messages = append(s.Messages, msg)
	s.MessagesToUser = append(s.MessagesToUser, toUser)
	s.Metadata.UpdatedAt = time.Now()
}

// RewriteLastMessage replaces the trailing turn of the LLM transcript
// only. The continuation loop uses this to swap the user's plain text
// for the composed agent prompt while the UI transcript keeps the
// plain text. Lengths are unchanged.
func (s *Session) RewriteLastMessage(msg Message) {
	if len(s.Messages) == 0 {
		return
	}
	s.Messages[len(s.Messages)-1] = msg
	s.Metadata.UpdatedAt = time.Now()
}

// SetStatus applies a lifecycle transition, rejecting backward moves.
func (s *Session) SetStatus(next Status) error {
	if !validTransition(s.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}
	s.Status = next
	s.Metadata.UpdatedAt = time.Now()
	return nil
}

func validTransition(from, to Status) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusActive || to == StatusError
	case StatusActive:
		return to == StatusCompleted || to == StatusError
	default:
		// completed and error are terminal
		return false
	}
}

// MarkRead flags the session as seen by the user.
func (s *Session) MarkRead() {
	if s.IsRead {
		return
	}
	s.IsRead = true
	now := time.Now()
	s.Metadata.UpdatedAt = now
	s.Metadata.LastReadAt = now
}

// MarkUnread flags the session as holding output the user has not
// seen yet. Called when a new assistant message lands in a multi-turn
// session.
func (s *Session) MarkUnread() {
	if !s.IsRead {
		return
	}
	s.IsRead = false
	s.Metadata.UpdatedAt = time.Now()
}

// UserTurns counts user messages in the transcript, which is the unit
// the turn budget is charged in.
func (s *Session) UserTurns() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe for concurrent readers.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Messages = CloneMessages(s.Messages)
	cp.MessagesToUser = CloneMessages(s.MessagesToUser)
	return &cp
}
