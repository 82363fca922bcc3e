// Package vertex provides the chat completion client for Google Vertex
// AI generateContent endpoints, authenticated with GCP OAuth2
// credentials.
package vertex

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
	providerName    = "vertex"
	defaultLocation = "us-central1"
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
	ModelVersion string `json:"modelVersion"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Client implements types.ChatModel for Vertex AI. The model is
// addressed by the model_name config key.
type Client struct {
	settings common.ClientSettings
	project  string
	location string
	http     *httpclient.Client
}

// New creates a Vertex AI client from config. Extra keys: model_name,
// project (GOOGLE_CLOUD_PROJECT), location, credentials_file
// (GOOGLE_APPLICATION_CREDENTIALS), access_token. Without an explicit
// token or credentials file, application default credentials apply.
func New(cfg provider.Config) (*Client, error) {
	allowed := []string{
		"model_name", "temperature", "max_tokens", "base_url", "timeout", "rate_limit",
		"project", "location", "credentials_file", "access_token",
	}
	if err := provider.CheckKeys(cfg, allowed...); err != nil {
		return nil, types.NewProviderError(providerName, types.ErrCodeInvalidRequest, err.Error())
	}
	s := common.ExtractSettings(cfg, "model_name")

	project, _ := cfg.String("project")
	if project == "" {
		project = common.FirstEnv("GOOGLE_CLOUD_PROJECT")
	}
	if project == "" {
		return nil, common.MissingConfigError(providerName, "project is required (set GOOGLE_CLOUD_PROJECT)")
	}

	location, _ := cfg.String("location")
	if location == "" {
		location = defaultLocation
	}

	accessToken, _ := cfg.String("access_token")
	credentialsFile, _ := cfg.String("credentials_file")
	ts, err := tokenSource(context.Background(), accessToken, credentialsFile)
	if err != nil {
		return nil, &types.ProviderError{
			Provider:    providerName,
			Code:        types.ErrCodeAuthentication,
			Message:     "could not set up GCP credentials",
			OriginalErr: err,
		}
	}

	if s.BaseURL == "" {
		s.BaseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com", location)
	}

	return &Client{
		settings: s,
		project:  project,
		location: location,
		http:     s.HTTPClient(authorize(ts)),
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

// Chat sends a generateContent request. Assistant turns map to the
// "model" role; leading system messages become the system instruction.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	model, temperature, maxTokens := c.settings.Resolve(req)
	if model == "" {
		return nil, common.MissingConfigError(providerName, "model_name is required")
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

	endpoint := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		c.settings.BaseURL, url.PathEscape(c.project), url.PathEscape(c.location), url.PathEscape(model))

	var out generateResponse
	resp, err := c.http.PostJSON(ctx, endpoint, nil, body, &out)
	if err != nil {
		return nil, fmt.Errorf("vertex: %w", err)
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
