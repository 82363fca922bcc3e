// Command tldr summarizes a document (file or URL) in a single sentence
// using a selected LLM provider.
//
// Environment variables consumed by the providers:
//
//	OpenAI:          OPENAI_API_KEY, OPENAI_BASE_URL
//	Azure OpenAI:    AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY, AZURE_OPENAI_API_VERSION
//	Anthropic:       ANTHROPIC_API_KEY
//	AWS Bedrock:     AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION
//	Google Vertex:   GOOGLE_APPLICATION_CREDENTIALS (or ADC), GOOGLE_CLOUD_PROJECT
//	Google Gemini:   GOOGLE_API_KEY
//	Ollama:          OLLAMA_HOST
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msabramo/langchaingang/pkg/factory"
	"github.com/msabramo/langchaingang/pkg/provider"
	"github.com/msabramo/langchaingang/pkg/types"
)

const summaryPrompt = "Please summarize this document in a single sentence:\n\n"

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile     string
		configFile  string
		providerUsr string
		model       string
		temperature float64
		maxTokens   int
		timeoutSecs float64
	)

	cmd := &cobra.Command{
		Use:   "tldr <filename-or-url>",
		Short: "Summarize a document using an LLM provider",
		Long: `Summarize a document in a single sentence using one of the
available LLM providers (openai, azure_openai, anthropic, bedrock,
vertex, gemini, ollama).

The document argument is a local file path or an http(s) URL.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := loadEnvFile(envFile); err != nil {
					return fmt.Errorf("loading env file: %w", err)
				}
			}

			s, err := resolveSettings(configFile, func(name string) bool {
				return cmd.Flags().Changed(name)
			}, providerUsr, model, temperature, maxTokens)
			if err != nil {
				return err
			}

			timeout := time.Duration(timeoutSecs * float64(time.Second))
			return run(cmd.Context(), cmd.OutOrStdout(), s, args[0], timeout)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "read a file of environment variables before running")
	cmd.Flags().StringVar(&configFile, "config", "", "YAML config file with provider settings")
	cmd.Flags().StringVar(&providerUsr, "provider", defaultProviderName, "LLM provider to use")
	cmd.Flags().StringVar(&model, "model", defaultModel, "model to use")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum completion tokens (0 = provider default)")
	cmd.Flags().Float64Var(&timeoutSecs, "timeout", 120, "request timeout in seconds")

	return cmd
}

func run(ctx context.Context, out io.Writer, s settings, docArg string, timeout time.Duration) error {
	reg := factory.DefaultRegistry()
	names, err := reg.List()
	if err != nil {
		return fmt.Errorf("resolving providers: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no LLM providers are available")
	}
	slices.Sort(names)
	if !slices.Contains(names, s.Provider) {
		return fmt.Errorf("unknown provider %q (available: %s)", s.Provider, strings.Join(names, ", "))
	}

	document, err := readDocument(ctx, docArg, timeout)
	if err != nil {
		return err
	}

	cfg := provider.Config{
		"model":       s.Model,
		"temperature": s.Temperature,
	}
	if s.MaxTokens > 0 {
		cfg["max_tokens"] = s.MaxTokens
	}
	if timeout > 0 {
		cfg["timeout"] = timeout.Seconds()
	}
	for k, v := range s.Options {
		cfg[k] = v
	}

	llm, err := factory.NewChatModel(reg, s.Provider, cfg)
	if err != nil {
		return err
	}

	resp, err := llm.Chat(ctx, &types.ChatRequest{
		Messages: []types.ChatMessage{
			{Role: types.RoleUser, Content: summaryPrompt + document},
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, resp.Content)
	return nil
}
