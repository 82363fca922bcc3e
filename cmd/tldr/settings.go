package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultProviderName = "openai"
	defaultModel        = "gpt-4o-mini"
)

// settings are the resolved run parameters. Precedence, lowest to
// highest: built-in defaults, YAML config file, TLDR_* environment
// variables, command-line flags.
type settings struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int

	// Options carries extra provider config keys from the YAML file
	// (api_key, base_url, region, project, ...), merged into the
	// provider config verbatim.
	Options map[string]any
}

// envSettings are the environment-variable overrides.
type envSettings struct {
	Provider    string   `env:"TLDR_PROVIDER"`
	Model       string   `env:"TLDR_MODEL"`
	Temperature *float64 `env:"TLDR_TEMPERATURE"`
	MaxTokens   int      `env:"TLDR_MAX_TOKENS"`
}

// fileConfig is the YAML config file shape.
type fileConfig struct {
	Provider    string         `yaml:"provider"`
	Model       string         `yaml:"model"`
	Temperature *float64       `yaml:"temperature"`
	MaxTokens   int            `yaml:"max_tokens"`
	Options     map[string]any `yaml:"options"`
}

// resolveSettings layers the config file, environment, and changed flags
// over the defaults. flagChanged reports whether the user set the named
// flag explicitly; unchanged flags do not override file or env values.
func resolveSettings(configFile string, flagChanged func(string) bool, flagProvider, flagModel string, flagTemperature float64, flagMaxTokens int) (settings, error) {
	s := settings{
		Provider: defaultProviderName,
		Model:    defaultModel,
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return settings{}, fmt.Errorf("reading config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return settings{}, fmt.Errorf("parsing config file: %w", err)
		}
		if fc.Provider != "" {
			s.Provider = fc.Provider
		}
		if fc.Model != "" {
			s.Model = fc.Model
		}
		if fc.Temperature != nil {
			s.Temperature = *fc.Temperature
		}
		if fc.MaxTokens > 0 {
			s.MaxTokens = fc.MaxTokens
		}
		s.Options = fc.Options
	}

	var es envSettings
	if err := env.Parse(&es); err != nil {
		return settings{}, fmt.Errorf("parsing environment: %w", err)
	}
	if es.Provider != "" {
		s.Provider = es.Provider
	}
	if es.Model != "" {
		s.Model = es.Model
	}
	if es.Temperature != nil {
		s.Temperature = *es.Temperature
	}
	if es.MaxTokens > 0 {
		s.MaxTokens = es.MaxTokens
	}

	if flagChanged("provider") {
		s.Provider = flagProvider
	}
	if flagChanged("model") {
		s.Model = flagModel
	}
	if flagChanged("temperature") {
		s.Temperature = flagTemperature
	}
	if flagChanged("max-tokens") {
		s.MaxTokens = flagMaxTokens
	}

	return s, nil
}
