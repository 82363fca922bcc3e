package factory

import (
	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/providers/anthropic"
	"github.com/msabramo/langchaingang/pkg/providers/azureopenai"
	"github.com/msabramo/langchaingang/pkg/providers/bedrock"
	"github.com/msabramo/langchaingang/pkg/providers/gemini"
	"github.com/msabramo/langchaingang/pkg/providers/ollama"
	"github.com/msabramo/langchaingang/pkg/providers/openai"
	"github.com/msabramo/langchaingang/pkg/providers/vertex"
)

// DefaultRegistry creates a registry seeded with every builtin provider
// producer, in registration order. Callers own the returned registry;
// construct one per process at startup and pass it down.
func DefaultRegistry() *provider.Registry {
	return provider.New(
		openai.Producer,
		azureopenai.Producer,
		anthropic.Producer,
		bedrock.Producer,
		vertex.Producer,
		gemini.Producer,
		ollama.Producer,
	)
}
