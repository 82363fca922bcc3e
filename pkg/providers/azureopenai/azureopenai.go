// Package azureopenai provides the chat completion client for Azure
// OpenAI deployments. The model name selects the deployment in the
// request path; authentication uses the api-key header.
package azureopenai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/msabramo/langchaingang/internal/httpclient"
	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/providers/common"
	"github.com/msabramo/langchaingang/pkg/types"
)

const (
	providerName      = "azure_openai"
	defaultAPIVersion = "2024-06-01"
)

// Azure serves the OpenAI chat completions wire format.
type chatRequest struct {
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
		Code    string `json:"code"`
	} `json:"error"`
}

// Client implements types.ChatModel for Azure OpenAI.
type Client struct {
	settings   common.ClientSettings
	endpoint   string
	apiVersion string
	http       *httpclient.Client
}

// New creates an Azure OpenAI client from config. Extra keys: endpoint
// (AZURE_OPENAI_ENDPOINT) and api_version (AZURE_OPENAI_API_VERSION).
// The API key falls back to AZURE_OPENAI_API_KEY.
func New(cfg provider.Config) (*Client, error) {
	allowed := append(common.Keys("model"), "endpoint", "api_version")
	if err := provider.CheckKeys(cfg, allowed...); err != nil {
		return nil, types.NewProviderError(providerName, types.ErrCodeInvalidRequest, err.Error())
	}
	s := common.ExtractSettings(cfg, "model")
	if s.APIKey == "" {
		s.APIKey = common.FirstEnv("AZURE_OPENAI_API_KEY")
	}
	if s.APIKey == "" {
		return nil, common.MissingConfigError(providerName, "api_key is required (set AZURE_OPENAI_API_KEY)")
	}

	endpoint, _ := cfg.String("endpoint")
	if endpoint == "" {
		endpoint = common.FirstEnv("AZURE_OPENAI_ENDPOINT")
	}
	if endpoint == "" {
		return nil, common.MissingConfigError(providerName, "endpoint is required (set AZURE_OPENAI_ENDPOINT)")
	}

	apiVersion, _ := cfg.String("api_version")
	if apiVersion == "" {
		apiVersion = common.FirstEnv("AZURE_OPENAI_API_VERSION")
	}
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	return &Client{
		settings:   s,
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiVersion: apiVersion,
		http:       s.HTTPClient(nil),
	}, nil
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

// Chat sends a chat completion request to the deployment named by the
// model.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	model, temperature, maxTokens := c.settings.Resolve(req)
	if model == "" {
		return nil, common.MissingConfigError(providerName, "model (deployment name) is required")
	}

	body := chatRequest{
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stop:        req.Stop,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(model), url.QueryEscape(c.apiVersion))

	headers := map[string]string{"api-key": c.settings.APIKey}
	var out chatResponse
	resp, err := c.http.PostJSON(ctx, endpoint, headers, body, &out)
	if err != nil {
		return nil, fmt.Errorf("azure_openai: %w", err)
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
