package llm

import "context"

// Message roles understood by Client implementations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a minimal completion interface to allow pluggable providers.
// Transport, authentication and rate-limit failures are returned as-is.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
