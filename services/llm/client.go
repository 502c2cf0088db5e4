package llm

import "context"

// Message is a single role-tagged entry in a conversation, oldest first.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// StreamEventType discriminates events delivered to a StreamCallback.
type StreamEventType string

const (
	// StreamEventToken carries a fragment of generated text.
	StreamEventToken StreamEventType = "token"
	// StreamEventDone signals that the stream finished normally.
	StreamEventDone StreamEventType = "done"
)

// StreamEvent is a single event emitted during streaming generation.
type StreamEvent struct {
	Type    StreamEventType
	Content string
}

// StreamCallback receives stream events in generation order. Returning a
// non-nil error aborts the stream and cancels the upstream call.
type StreamCallback func(event StreamEvent) error

// LLMClient defines the standard interface for any LLM backend.
//
// Generate is a single-prompt completion where the prompt carries its own
// instructions. Chat and ChatStream take a full conversation; every pipeline
// stage, classification calls included, goes through them so the system
// instruction stays a separate message.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
	ChatStream(ctx context.Context, messages []Message, params GenerationParams, callback StreamCallback) error
}

// Float32Ptr returns a pointer to v. Convenience for GenerationParams.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr returns a pointer to v. Convenience for GenerationParams.
func IntPtr(v int) *int { return &v }
