// Package gemini provides the chat completion client for the Google
// Gemini API (Generative Language API, API-key authenticated).
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/msabramo/langchaingang/internal/httpclient"
	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/providers/common"
	"github.com/msabramo/langchaingang/pkg/types"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Client implements types.ChatModel for the Gemini API.
type Client struct {
	settings common.ClientSettings
	http     *httpclient.Client
}

// New creates a Gemini client from config. The API key falls back to
// GOOGLE_API_KEY.
func New(cfg provider.Config) (*Client, error) {
	if err := provider.CheckKeys(cfg, common.Keys("model")...); err != nil {
		return nil, types.NewProviderError(providerName, types.ErrCodeInvalidRequest, err.Error())
	}
	s := common.ExtractSettings(cfg, "model")
	if s.APIKey == "" {
		s.APIKey = common.FirstEnv("GOOGLE_API_KEY")
	}
	if s.APIKey == "" {
		return nil, common.MissingConfigError(providerName, "api_key is required (set GOOGLE_API_KEY)")
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

// Chat sends a generateContent request. Assistant turns map to the
// "model" role; leading system messages become the system instruction.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	model, temperature, maxTokens := c.settings.Resolve(req)
	if model == "" {
		return nil, common.MissingConfigError(providerName, "model is required")
	}

	system, turns := types.SystemAndTurns(req.Messages)
	body := generateRequest{}
	if system != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	for _, m := range turns {
		role := m.Role
		if role == types.RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	if temperature != nil || maxTokens > 0 || len(req.Stop) > 0 {
		body.GenerationConfig = &generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
			StopSequences:   req.Stop,
		}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.settings.BaseURL, url.PathEscape(model))
	headers := map[string]string{"x-goog-api-key": c.settings.APIKey}

	var out generateResponse
	resp, err := c.http.PostJSON(ctx, endpoint, headers, body, &out)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	if len(out.Candidates) == 0 {
		return nil, types.NewProviderError(providerName, types.ErrCodeUnknown, "response contained no candidates")
	}

	first := out.Candidates[0]
	var text string
	for _, p := range first.Content.Parts {
		text += p.Text
	}

	return &types.ChatResponse{
		Model:        model,
		Content:      text,
		FinishReason: first.FinishReason,
		Usage: types.Usage{
			PromptTokens:     out.UsageMetadata.PromptTokenCount,
			CompletionTokens: out.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      out.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

func decodeAPIError(resp *httpclient.Response) error {
	var apiErr errorResponse
	_ = json.Unmarshal(resp.Body, &apiErr)
	return common.APIError(providerName, resp, apiErr.Error.Message)
}
