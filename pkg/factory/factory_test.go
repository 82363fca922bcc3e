package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/types"
)

// capturingModel records the config its constructor received.
type capturingModel struct {
	provider string
	cfg      provider.Config
}

func (m *capturingModel) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	return &types.ChatResponse{Content: "ok"}, nil
}
func (m *capturingModel) Name() string  { return m.provider }
func (m *capturingModel) Model() string { return "" }

// capturingProducer registers name with a constructor that stores the
// config it was called with into sink.
func capturingProducer(name string, sink *provider.Config) provider.Producer {
	return func() (provider.Info, error) {
		return provider.Info{
			Name: name,
			New: func(cfg provider.Config) (types.ChatModel, error) {
				*sink = cfg
				return &capturingModel{provider: name, cfg: cfg}, nil
			},
		}, nil
	}
}

func TestNewChatModel_BedrockModelRename(t *testing.T) {
	var got provider.Config
	reg := provider.New(capturingProducer("bedrock", &got))

	cfg := provider.Config{"model": "m", "other": "v"}
	_, err := NewChatModel(reg, "bedrock", cfg)
	require.NoError(t, err)

	assert.Equal(t, "m", got["model_id"])
	assert.Equal(t, "v", got["other"])
	assert.NotContains(t, got, "model")

	// The caller's config is untouched.
	assert.Equal(t, provider.Config{"model": "m", "other": "v"}, cfg)
}

func TestNewChatModel_VertexModelRename(t *testing.T) {
	var got provider.Config
	reg := provider.New(capturingProducer("vertex", &got))

	_, err := NewChatModel(reg, "vertex", provider.Config{"model": "m", "other": "v"})
	require.NoError(t, err)

	assert.Equal(t, "m", got["model_name"])
	assert.Equal(t, "v", got["other"])
	assert.NotContains(t, got, "model")
}

func TestNewChatModel_NoRenameForOtherProviders(t *testing.T) {
	var got provider.Config
	reg := provider.New(capturingProducer("openai", &got))

	_, err := NewChatModel(reg, "openai", provider.Config{"model": "m", "api_key": "k"})
	require.NoError(t, err)

	assert.Equal(t, provider.Config{"model": "m", "api_key": "k"}, got)
}

func TestNewChatModel_RenameWithoutModelKey(t *testing.T) {
	var got provider.Config
	reg := provider.New(capturingProducer("bedrock", &got))

	_, err := NewChatModel(reg, "bedrock", provider.Config{"region": "us-east-1"})
	require.NoError(t, err)

	assert.Equal(t, provider.Config{"region": "us-east-1"}, got)
	assert.NotContains(t, got, "model_id")
}

func TestNewChatModel_UnsupportedProvider(t *testing.T) {
	reg := provider.New()

	_, err := NewChatModel(reg, "nonexistent", provider.Config{})
	require.Error(t, err)

	var unsupported *UnsupportedProviderError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "nonexistent", unsupported.Provider)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestNewChatModel_ConstructionErrorPropagates(t *testing.T) {
	boom := errors.New("bad credentials")
	reg := provider.New(func() (provider.Info, error) {
		return provider.Info{
			Name: "broken",
			New: func(cfg provider.Config) (types.ChatModel, error) {
				return nil, boom
			},
		}, nil
	})

	_, err := NewChatModel(reg, "broken", provider.Config{})
	assert.ErrorIs(t, err, boom)
}

func TestNewChatModel_FreshInstancePerCall(t *testing.T) {
	reg := provider.New(func() (provider.Info, error) {
		return provider.Info{
			Name: "fresh",
			New: func(cfg provider.Config) (types.ChatModel, error) {
				return &capturingModel{provider: "fresh"}, nil
			},
		}, nil
	})

	a, err := NewChatModel(reg, "fresh", provider.Config{})
	require.NoError(t, err)
	b, err := NewChatModel(reg, "fresh", provider.Config{})
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}
