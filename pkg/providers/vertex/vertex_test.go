package vertex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/types"
)

func testConfig(extra provider.Config) provider.Config {
	cfg := provider.Config{
		"model_name":   "gemini-2.0-flash-001",
		"project":      "my-project",
		"access_token": "ya29.token",
	}
	for k, v := range extra {
		cfg[k] = v
	}
	return cfg
}

func TestNew(t *testing.T) {
	t.Run("StaticToken", func(t *testing.T) {
		client, err := New(testConfig(nil))
		require.NoError(t, err)
		assert.Equal(t, "vertex", client.Name())
		assert.Equal(t, "gemini-2.0-flash-001", client.Model())
		assert.Equal(t, defaultLocation, client.location)
		assert.Equal(t, "https://us-central1-aiplatform.googleapis.com", client.settings.BaseURL)
	})

	t.Run("ProjectFromEnvironment", func(t *testing.T) {
		t.Setenv("GOOGLE_CLOUD_PROJECT", "env-project")
		client, err := New(provider.Config{"model_name": "m", "access_token": "tok"})
		require.NoError(t, err)
		assert.Equal(t, "env-project", client.project)
	})

	t.Run("MissingProject", func(t *testing.T) {
		t.Setenv("GOOGLE_CLOUD_PROJECT", "")
		_, err := New(provider.Config{"model_name": "m", "access_token": "tok"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GOOGLE_CLOUD_PROJECT")
	})

	t.Run("BadCredentialsFile", func(t *testing.T) {
		_, err := New(testConfig(provider.Config{
			"access_token":     "",
			"credentials_file": "/nonexistent/creds.json",
		}))
		require.Error(t, err)

		var provErr *types.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, types.ErrCodeAuthentication, provErr.Code)
	})
}

func TestProducer(t *testing.T) {
	info, err := Producer()
	require.NoError(t, err)
	assert.Equal(t, "vertex", info.Name)
}

func TestChat(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{
			"candidates": [
				{"content": {"role": "model", "parts": [{"text": "A summary."}]}, "finishReason": "STOP"}
			],
			"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 3, "totalTokenCount": 10}
		}`))
	}))
	defer server.Close()

	client, err := New(testConfig(provider.Config{"base_url": server.URL}))
	require.NoError(t, err)

	resp, err := client.Chat(context.Background(), &types.ChatRequest{
		Messages: []types.ChatMessage{
			{Role: types.RoleSystem, Content: "be terse"},
			{Role: types.RoleUser, Content: "Summarize this."},
			{Role: types.RoleAssistant, Content: "Sure."},
			{Role: types.RoleUser, Content: "Go on."},
		},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"/v1/projects/my-project/locations/us-central1/publishers/google/models/gemini-2.0-flash-001:generateContent",
		gotPath)
	assert.Equal(t, "Bearer ya29.token", gotAuth)

	require.NotNil(t, gotBody.SystemInstruction)
	assert.Equal(t, "be terse", gotBody.SystemInstruction.Parts[0].Text)
	require.Len(t, gotBody.Contents, 3)
	assert.Equal(t, "user", gotBody.Contents[0].Role)
	assert.Equal(t, "model", gotBody.Contents[1].Role)

	assert.Equal(t, "A summary.", resp.Content)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestChat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Permission denied on resource project","status":"PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	client, err := New(testConfig(provider.Config{"base_url": server.URL}))
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), &types.ChatRequest{
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	var provErr *types.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, types.ErrCodeAuthentication, provErr.Code)
	assert.Contains(t, provErr.Message, "Permission denied")
}
