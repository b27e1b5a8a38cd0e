package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
)

// NewProvider creates the LLM provider named in config. An empty provider
// disables narratives and returns nil, nil.
func NewProvider(config Config, logger *zap.Logger) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config, logger)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:        c.Provider,
		Model:           c.Model,
		APIKey:          c.APIKey,
		BaseURL:         c.BaseURL,
		Timeout:         c.Timeout,
		StrictCitations: c.StrictCitations,
		MaxTokens:       c.MaxTokens,
	}
}
