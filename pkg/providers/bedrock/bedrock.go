// Package bedrock provides the chat completion client for the AWS
// Bedrock Converse API, with AWS Signature V4 request signing.
package bedrock

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

const providerName = "bedrock"

type converseRequest struct {
	Messages        []converseMessage `json:"messages"`
	System          []contentBlock    `json:"system,omitempty"`
	InferenceConfig *inferenceConfig  `json:"inferenceConfig,omitempty"`
}

type converseMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Text string `json:"text"`
}

type inferenceConfig struct {
	MaxTokens     int      `json:"maxTokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	StopSequences []string `json:"stopSequences,omitempty"`
}

type converseResponse struct {
	Output struct {
		Message converseMessage `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
	Usage      struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
		TotalTokens  int `json:"totalTokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Client implements types.ChatModel for the Bedrock Converse API. The
// model is addressed by Bedrock model ID (config key model_id).
type Client struct {
	settings common.ClientSettings
	region   string
	http     *httpclient.Client
}

// New creates a Bedrock client from config. Extra keys: model_id,
// region, access_key_id, secret_access_key, session_token. Credentials
// and region fall back to the standard AWS environment variables.
func New(cfg provider.Config) (*Client, error) {
	allowed := append(common.Keys("model_id"), "region", "access_key_id", "secret_access_key", "session_token")
	if err := provider.CheckKeys(cfg, allowed...); err != nil {
		return nil, types.NewProviderError(providerName, types.ErrCodeInvalidRequest, err.Error())
	}
	s := common.ExtractSettings(cfg, "model_id")

	region, _ := cfg.String("region")
	if region == "" {
		region = common.FirstEnv("AWS_REGION", "AWS_DEFAULT_REGION")
	}
	if region == "" {
		return nil, common.MissingConfigError(providerName, "region is required (set AWS_REGION)")
	}

	creds := credentials{}
	creds.accessKeyID, _ = cfg.String("access_key_id")
	if creds.accessKeyID == "" {
		creds.accessKeyID = common.FirstEnv("AWS_ACCESS_KEY_ID")
	}
	creds.secretAccessKey, _ = cfg.String("secret_access_key")
	if creds.secretAccessKey == "" {
		creds.secretAccessKey = common.FirstEnv("AWS_SECRET_ACCESS_KEY")
	}
	creds.sessionToken, _ = cfg.String("session_token")
	if creds.sessionToken == "" {
		creds.sessionToken = common.FirstEnv("AWS_SESSION_TOKEN")
	}
	if creds.accessKeyID == "" || creds.secretAccessKey == "" {
		return nil, common.MissingConfigError(providerName,
			"AWS credentials are required (set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY)")
	}

	if s.BaseURL == "" {
		s.BaseURL = fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region)
	}

	sig := newSigner(creds, region)
	return &Client{
		settings: s,
		region:   region,
		http:     s.HTTPClient(sig.sign),
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

// Chat sends a Converse request. Leading system messages travel in the
// request's system field.
func (c *Client) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	modelID, temperature, maxTokens := c.settings.Resolve(req)
	if modelID == "" {
		return nil, common.MissingConfigError(providerName, "model_id is required")
	}

	system, turns := types.SystemAndTurns(req.Messages)
	body := converseRequest{}
	if system != "" {
		body.System = []contentBlock{{Text: system}}
	}
	for _, m := range turns {
		body.Messages = append(body.Messages, converseMessage{
			Role:    m.Role,
			Content: []contentBlock{{Text: m.Content}},
		})
	}
	if temperature != nil || maxTokens > 0 || len(req.Stop) > 0 {
		body.InferenceConfig = &inferenceConfig{
			MaxTokens:     maxTokens,
			Temperature:   temperature,
			StopSequences: req.Stop,
		}
	}

	endpoint := fmt.Sprintf("%s/model/%s/converse", c.settings.BaseURL, url.PathEscape(modelID))
	var out converseResponse
	resp, err := c.http.PostJSON(ctx, endpoint, nil, body, &out)
	if err != nil {
		return nil, fmt.Errorf("bedrock: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var content string
	for _, block := range out.Output.Message.Content {
		content += block.Text
	}

	return &types.ChatResponse{
		Model:        modelID,
		Content:      content,
		FinishReason: out.StopReason,
		Usage: types.Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}

func decodeAPIError(resp *httpclient.Response) error {
	var apiErr errorResponse
	_ = json.Unmarshal(resp.Body, &apiErr)
	return common.APIError(providerName, resp, apiErr.Message)
}
