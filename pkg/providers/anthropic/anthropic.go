// Package anthropic provides the chat completion client for the
// Anthropic Messages API.
package anthropic

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
	providerName   = "anthropic"
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	// The Messages API requires max_tokens; used when the caller sets
	// none.
	defaultMaxTokens = 1024
)

type messagesRequest struct {
	Model         string        `json:"model"`
	MaxTokens     int           `json:"max_tokens"`
	Messages      []chatMessage `json:"messages"`
	System        string        `json:"system,omitempty"`
	Temperature   *float64      `json:"temperature,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client implements types.ChatModel for the Anthropic Messages API.
type Client struct {
	settings common.ClientSettings
	http     *httpclient.Client
}

// New creates an Anthropic client from config. The API key falls back to
// ANTHROPIC_API_KEY.
func New(cfg provider.Config) (*Client, error) {
	if err := provider.CheckKeys(cfg, common.Keys("model")...); err != nil {
		return nil, types.NewProviderError(providerName, types.ErrCodeInvalidRequest, err.Error())
	}
	s := common.ExtractSettings(cfg, "model")
	if s.APIKey == "" {
		s.APIKey = common.FirstEnv("ANTHROPIC_API_KEY")
	}
	if s.APIKey == "" {
		return nil, common.MissingConfigError(providerName, "api_key is required (set ANTHROPIC_API_KEY)")
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

// Chat sends a Messages API request. Leading system messages travel in
// the request's system field.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	model, temperature, maxTokens := c.settings.Resolve(req)
	if model == "" {
		return nil, common.MissingConfigError(providerName, "model is required")
	}
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	system, turns := types.SystemAndTurns(req.Messages)
	body := messagesRequest{
		Model:         model,
		MaxTokens:     maxTokens,
		System:        system,
		Temperature:   temperature,
		StopSequences: req.Stop,
	}
	for _, m := range turns {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	headers := map[string]string{
		"x-api-key":         c.settings.APIKey,
		"anthropic-version": apiVersion,
	}
	var out messagesResponse
	resp, err := c.http.PostJSON(ctx, c.settings.BaseURL+"/v1/messages", headers, body, &out)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var content string
	for _, block := range out.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &types.ChatResponse{
		ID:           out.ID,
		Model:        out.Model,
		Content:      content,
		FinishReason: out.StopReason,
		Usage: types.Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.InputTokens + out.Usage.OutputTokens,
		},
	}, nil
}

func decodeAPIError(resp *httpclient.Response) error {
	var apiErr errorResponse
	_ = json.Unmarshal(resp.Body, &apiErr)
	return common.APIError(providerName, resp, apiErr.Error.Message)
}
