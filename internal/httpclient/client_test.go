package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Value string `json:"value"`
}

type echoResponse struct {
	Echoed string `json:"echoed"`
}

func TestClient_PostJSON(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()

		var in echoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(echoResponse{Echoed: in.Value})
	}))
	defer server.Close()

	client := New(Config{UserAgent: "test-agent/1.0"})

	var out echoResponse
	resp, err := client.PostJSON(context.Background(), server.URL, map[string]string{"X-Custom": "yes"}, echoRequest{Value: "hello"}, &out)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", out.Echoed)
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "test-agent/1.0", gotHeaders.Get("User-Agent"))
	assert.Equal(t, "yes", gotHeaders.Get("X-Custom"))
	assert.NotEmpty(t, gotHeaders.Get("X-Request-ID"))
	assert.Equal(t, gotHeaders.Get("X-Request-ID"), resp.RequestID)
}

func TestClient_PostJSON_NonOKReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	client := New(Config{})

	var out echoResponse
	resp, err := client.PostJSON(context.Background(), server.URL, nil, echoRequest{}, &out)
	require.NoError(t, err)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "slow down")
	// out is untouched on non-2xx.
	assert.Empty(t, out.Echoed)
}

func TestClient_PostJSON_Mutator(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(Config{
		Mutate: func(req *http.Request) error {
			req.Header.Set("Authorization", "Bearer signed")
			return nil
		},
	})

	_, err := client.PostJSON(context.Background(), server.URL, nil, echoRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer signed", gotAuth)
}

func TestClient_PostJSON_MutatorError(t *testing.T) {
	client := New(Config{
		Mutate: func(req *http.Request) error {
			return assert.AnError
		},
	})

	_, err := client.PostJSON(context.Background(), "http://127.0.0.1:0", nil, echoRequest{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestClient_PostJSON_NetworkError(t *testing.T) {
	client := New(Config{})

	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := client.PostJSON(context.Background(), url, nil, echoRequest{}, nil)
	assert.Error(t, err)
}

func TestClient_PostJSON_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	// A generous limit should not block sequential requests.
	client := New(Config{RequestsPerSecond: 1000})
	for i := 0; i < 3; i++ {
		_, err := client.PostJSON(context.Background(), server.URL, nil, echoRequest{}, nil)
		require.NoError(t, err)
	}
}

func TestClient_PostJSON_RateLimiterRespectsContext(t *testing.T) {
	client := New(Config{RequestsPerSecond: 0.001})

	ctx, cancel := context.WithCancel(context.Background())
	// First request consumes the burst.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := client.PostJSON(ctx, server.URL, nil, echoRequest{}, nil)
	require.NoError(t, err)

	cancel()
	_, err = client.PostJSON(ctx, server.URL, nil, echoRequest{}, nil)
	assert.Error(t, err)
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte("document body"))
	}))
	defer server.Close()

	client := New(Config{})
	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "document body", string(resp.Body))
}
