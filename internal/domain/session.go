package domain

import "time"

type SessionID string
type UserID string

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionAbandoned:
		return true
	default:
		return false
	}
}

type Role string

const (
	RoleUser   Role = "user"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

type Message struct {
	ID        string
	SessionID SessionID
	Role      Role
	Content   string
	Timestamp time.Time
}

type Session struct {
	ID          SessionID
	UserID      UserID
	ScenarioID  ScenarioID
	Status      SessionStatus
	Messages    []Message
	Feedback    *Feedback
	StartedAt   time.Time
	CompletedAt *time.Time
}

// UserTurns counts user-authored messages; each one consumes a turn.
func UserTurns(messages []Message) int {
	count := 0
	for _, message := range messages {
		if message.Role == RoleUser {
			count++
		}
	}
	return count
}

func (s Session) UserTurns() int {
	return UserTurns(s.Messages)
}

// Duration is the time from start to completion. Active sessions run until
// now; finished sessions without a completion time end at their last
// message.
func (s Session) Duration(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := now
	switch {
	case s.CompletedAt != nil:
		end = *s.CompletedAt
	case s.Status == SessionCompleted || s.Status == SessionAbandoned:
		end = s.StartedAt
		for _, message := range s.Messages {
			if message.Timestamp.After(end) {
				end = message.Timestamp
			}
		}
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// MessageExchange is the pair returned by a successful send: the stored user
// message followed by the persona reply.
type MessageExchange struct {
	UserMessage Message
	AIMessage   Message
}
