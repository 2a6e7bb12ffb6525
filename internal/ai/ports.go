package ai

import "context"

// Role tags one chat message. The set is closed; the prompt composer
// switches over it exhaustively.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message — universal dialogue format for the model client.
type Message struct {
	Role Role
	Text string
}

// TokenStream is a finite, non-restartable sequence of response chunks.
// Recv returns io.EOF once the model signals completion.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// ModelClient — the external model. Knows nothing about cars or the DB.
type ModelClient interface {
	// Available reports whether a credential is configured. An
	// unavailable client must not be invoked; callers degrade to
	// canned text instead.
	Available() bool
	Complete(ctx context.Context, msgs []Message) (string, error)
	Stream(ctx context.Context, msgs []Message) (TokenStream, error)
}
