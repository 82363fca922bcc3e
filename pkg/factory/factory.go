// Package factory turns a provider name plus keyword configuration into
// an instantiated chat model client, consulting a provider registry and
// applying per-provider config key renames.
package factory

import (
	"errors"
	"fmt"

	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/types"
)

// UnsupportedProviderError reports a provider name that did not resolve
// in the registry. It is the user-facing form of the registry's lookup
// failure.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s", e.Provider)
}

// configRenames maps provider names to config key renames applied before
// construction. Extend per provider here; lookup and instantiation stay
// untouched.
var configRenames = map[string]map[string]string{
	// Bedrock addresses models by model_id.
	"bedrock": {"model": "model_id"},
	// Vertex AI uses model_name.
	"vertex": {"model": "model_name"},
}

// NewChatModel resolves name in reg, applies the provider's config key
// renames, and constructs a fresh client. Construction errors from the
// provider propagate unmodified. No clients are cached.
func NewChatModel(reg *provider.Registry, name string, cfg provider.Config) (types.ChatModel, error) {
	ctor, err := reg.Constructor(name)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownProvider) {
			return nil, &UnsupportedProviderError{Provider: name}
		}
		return nil, err
	}
	return ctor(renameKeys(name, cfg))
}

// renameKeys applies the provider's key renames to a copy of cfg. The
// caller's map is never mutated; providers without renames get cfg
// unchanged.
func renameKeys(name string, cfg provider.Config) provider.Config {
	renames, ok := configRenames[name]
	if !ok {
		return cfg
	}
	out := cfg.Clone()
	for from, to := range renames {
		if v, ok := out[from]; ok {
			delete(out, from)
			out[to] = v
		}
	}
	return out
}
