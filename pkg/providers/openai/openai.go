// Package openai provides the chat completion client for OpenAI and
// OpenAI-compatible endpoints.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/msabramo/langchaingang/internal/httpclient"
	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/providers/common"
	"github.com/msabramo/langchaingang/pkg/types"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
)

// chatRequest is the OpenAI chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
}

type choice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Client implements types.ChatModel for the OpenAI chat completions API.
type Client struct {
	settings common.ClientSettings
	http     *httpclient.Client
}

// New creates an OpenAI client from config. The API key falls back to
// OPENAI_API_KEY and the base URL to OPENAI_BASE_URL.
func New(cfg provider.Config) (*Client, error) {
	if err := provider.CheckKeys(cfg, common.Keys("model")...); err != nil {
		return nil, types.NewProviderError(providerName, types.ErrCodeInvalidRequest, err.Error())
	}
	s := common.ExtractSettings(cfg, "model")
	if s.APIKey == "" {
		s.APIKey = common.FirstEnv("OPENAI_API_KEY")
	}
	if s.APIKey == "" {
		return nil, common.MissingConfigError(providerName, "api_key is required (set OPENAI_API_KEY)")
	}
	if s.BaseURL == "" {
		s.BaseURL = common.FirstEnv("OPENAI_BASE_URL")
	}
	if s.BaseURL == "" {
		s.BaseURL = defaultBaseURL
	}
	return &Client{settings: s, http: s.HTTPClient(nil)}, nil
}

// Producer yields the registry descriptor for this provider.
func Producer() (provider.Info, error) {
	return provider.Info{
		Name: providerName,
		New: func(cfg provider.Config) (types.ChatModel, error) {
			return New(cfg)
		},
	}, nil
}

func (c *Client) Name() string { return providerName }

func (c *Client) Model() string { return c.settings.Model }

// Chat sends a chat completion request.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	model, temperature, maxTokens := c.settings.Resolve(req)
	if model == "" {
		return nil, common.MissingConfigError(providerName, "model is required")
	}

	body := chatRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stop:        req.Stop,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	headers := map[string]string{"Authorization": "Bearer " + c.settings.APIKey}
	var out chatResponse
	resp, err := c.http.PostJSON(ctx, c.settings.BaseURL+"/chat/completions", headers, body, &out)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	if len(out.Choices) == 0 {
		return nil, types.NewProviderError(providerName, types.ErrCodeUnknown, "response contained no choices")
	}

	first := out.Choices[0]
	return &types.ChatResponse{
		ID:           out.ID,
		Model:        out.Model,
		Content:      first.Message.Content,
		FinishReason: first.FinishReason,
		Usage: types.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}

func decodeAPIError(resp *httpclient.Response) error {
	var apiErr errorResponse
	_ = json.Unmarshal(resp.Body, &apiErr)
	return common.APIError(providerName, resp, apiErr.Error.Message)
}
