// Package types defines the core types shared by all chat model
// implementations: messages, requests, responses, and the standardized
// provider error.
package types

import "context"

// Message roles understood by every provider client. Providers that use
// different role names on the wire translate these internally.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request in provider-neutral
// form. Zero-value fields fall back to the defaults the client was
// configured with.
type ChatRequest struct {
	// Model overrides the client's configured model when non-empty.
	Model string `json:"model,omitempty"`

	Messages []ChatMessage `json:"messages"`

	// Temperature is a pointer so 0 can be expressed explicitly.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Usage tracks token consumption for a single request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the provider-neutral result of a chat completion.
type ChatResponse struct {
	ID           string `json:"id,omitempty"`
	Model        string `json:"model,omitempty"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
}

// ChatModel is the interface every provider client implements. A
// ChatModel is safe for use from a single goroutine; construct one per
// concurrent caller if needed.
type ChatModel interface {
	// Chat sends a completion request and returns the model response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier (e.g. "openai").
	Name() string

	// Model returns the configured default model, if any.
	Model() string
}

// SystemAndTurns splits messages into the leading system prompt (joined
// if several) and the remaining conversation turns. Several provider
// APIs carry the system prompt out of band.
func SystemAndTurns(messages []ChatMessage) (system string, turns []ChatMessage) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += m.Content
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
