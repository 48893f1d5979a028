package model

// Turn roles accepted in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message in a conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is an ordered conversation, oldest turn first. It is supplied by
// the caller on every request; the server keeps no session state.
type History []Turn
