// Package common holds the helpers shared by the provider client
// packages: config extraction, environment fallbacks, and API error
// construction.
package common

import (
	"net/http"
	"os"
	"time"

	"github.com/msabramo/langchaingang/internal/httpclient"
	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/types"
)

// UserAgent identifies this library to provider APIs.
const UserAgent = "langchaingang/0.1.0"

// ClientSettings are the config fields every provider client understands.
// Provider packages extract these once at construction time.
type ClientSettings struct {
	Model             string
	Temperature       *float64
	MaxTokens         int
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Keys returns the config keys ExtractSettings consumes, with modelKey
// standing in for "model" (Bedrock and Vertex use renamed model keys).
// Clients append their provider-specific keys when validating config.
func Keys(modelKey string) []string {
	return []string{modelKey, "temperature", "max_tokens", "api_key", "base_url", "timeout", "rate_limit"}
}

// ExtractSettings pulls the shared client settings out of cfg. The
// timeout key is in seconds.
func ExtractSettings(cfg provider.Config, modelKey string) ClientSettings {
	s := ClientSettings{}
	s.Model, _ = cfg.String(modelKey)
	if t, ok := cfg.Float("temperature"); ok {
		s.Temperature = &t
	}
	s.MaxTokens, _ = cfg.Int("max_tokens")
	s.APIKey, _ = cfg.String("api_key")
	s.BaseURL, _ = cfg.String("base_url")
	if secs, ok := cfg.Float("timeout"); ok && secs > 0 {
		s.Timeout = time.Duration(secs * float64(time.Second))
	}
	s.RequestsPerSecond, _ = cfg.Float("rate_limit")
	return s
}

// Resolve merges per-request fields with the client's configured
// defaults.
func (s ClientSettings) Resolve(req *types.ChatRequest) (model string, temperature *float64, maxTokens int) {
	model = req.Model
	if model == "" {
		model = s.Model
	}
	temperature = req.Temperature
	if temperature == nil {
		temperature = s.Temperature
	}
	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.MaxTokens
	}
	return model, temperature, maxTokens
}

// HTTPClient builds the shared HTTP client for a provider from its
// settings. mutate may be nil.
func (s ClientSettings) HTTPClient(mutate httpclient.Mutator) *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:           s.Timeout,
		UserAgent:         UserAgent,
		RequestsPerSecond: s.RequestsPerSecond,
		Mutate:            mutate,
	})
}

// FirstEnv returns the value of the first environment variable in names
// that is set and non-empty.
func FirstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// APIError builds a ProviderError from a non-2xx response. message is
// the provider-specific error text the client decoded from the body;
// when empty, the HTTP status text is used.
func APIError(providerName string, resp *httpclient.Response, message string) *types.ProviderError {
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &types.ProviderError{
		Provider:   providerName,
		Code:       types.CodeFromStatus(resp.StatusCode),
		Message:    message,
		StatusCode: resp.StatusCode,
		RequestID:  resp.RequestID,
	}
}

// MissingConfigError reports a required config key that was neither in
// the config nor available from the environment.
func MissingConfigError(providerName, what string) *types.ProviderError {
	return types.NewProviderError(providerName, types.ErrCodeInvalidRequest, what)
}
