package core

import "time"

const (
	AppName          = "LetterDesk"
	AppUserAgent     = "LetterDesk/0.1"
	AppRepositoryURL = "https://github.com/sandevgo/letterdesk"
	AppVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message sent to or received from an LLM provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one entry of a session's conversation window.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo is a read-only view of a live session.
// ConversationLength counts individual turns, not user/assistant pairs.
type SessionInfo struct {
	ID                 string    `json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	LastActivity       time.Time `json:"last_activity"`
	ConversationLength int       `json:"conversation_length"`
	HasOriginalLetter  bool      `json:"has_original_letter"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
