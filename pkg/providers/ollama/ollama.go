// Package ollama provides the chat completion client for a local Ollama
// server. No authentication is required.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/msabramo/langchaingang/internal/httpclient"
	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/providers/common"
	"github.com/msabramo/langchaingang/pkg/types"
)

const (
	providerName   = "ollama"
	defaultBaseURL = "http://localhost:11434"
)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client implements types.ChatModel for Ollama's /api/chat endpoint.
type Client struct {
	settings common.ClientSettings
	http     *httpclient.Client
}

// New creates an Ollama client from config. The base URL falls back to
// OLLAMA_HOST, then to http://localhost:11434.
func New(cfg provider.Config) (*Client, error) {
	if err := provider.CheckKeys(cfg, common.Keys("model")...); err != nil {
		return nil, types.NewProviderError(providerName, types.ErrCodeInvalidRequest, err.Error())
	}
	s := common.ExtractSettings(cfg, "model")
	if s.BaseURL == "" {
		s.BaseURL = common.FirstEnv("OLLAMA_HOST")
	}
	if s.BaseURL == "" {
		s.BaseURL = defaultBaseURL
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
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

// Chat sends a non-streaming chat request.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	model, temperature, maxTokens := c.settings.Resolve(req)
	if model == "" {
		return nil, common.MissingConfigError(providerName, "model is required")
	}

	body := chatRequest{Model: model, Stream: false}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if temperature != nil || maxTokens > 0 || len(req.Stop) > 0 {
		body.Options = &options{
			Temperature: temperature,
			NumPredict:  maxTokens,
			Stop:        req.Stop,
		}
	}

	var out chatResponse
	resp, err := c.http.PostJSON(ctx, c.settings.BaseURL+"/api/chat", nil, body, &out)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	return &types.ChatResponse{
		Model:        out.Model,
		Content:      out.Message.Content,
		FinishReason: out.DoneReason,
		Usage: types.Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
	}, nil
}

func decodeAPIError(resp *httpclient.Response) error {
	var apiErr errorResponse
	_ = json.Unmarshal(resp.Body, &apiErr)
	return common.APIError(providerName, resp, apiErr.Error)
}
