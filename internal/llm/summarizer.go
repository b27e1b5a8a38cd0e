package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
)

// Summarizer writes the optional narrative of a report. It runs after every
// score is final and its output never feeds back into them.
type Summarizer struct {
	provider Provider // nil when disabled
	config   Config
	logger   *zap.Logger
}

// NewSummarizer creates a summarizer for config. An empty provider yields a disabled summarizer.
func NewSummarizer(config Config, logger *zap.Logger) (*Summarizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider, err := NewProvider(config, logger)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return &Summarizer{provider: provider, config: config, logger: logger.Named("llm")}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary returns nil when disabled. Provider failures degrade to a
// narrative carrying warnings; they never fail the analysis.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.Narrative, error) {
	if !s.IsEnabled() {
		return nil, nil
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	if !s.provider.IsAvailable(ctx) {
		return &model.Narrative{
			Enabled:  false,
			Provider: s.provider.Name(),
			Warnings: []string{fmt.Sprintf("LLM provider %s is not available; narrative skipped", s.provider.Name())},
		}, nil
	}

	allowed := AllowedCitations(report)
	narrative := &model.Narrative{
		Enabled:         true,
		Provider:        s.provider.Name(),
		Model:           s.config.Model,
		StrictCitations: s.config.StrictCitations,
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:           report,
		AllowedCitations: allowed,
		Model:            s.config.Model,
		MaxTokens:        s.config.MaxTokens,
	})
	if err != nil {
		s.logger.Warn("narrative generation failed", zap.String("provider", s.provider.Name()), zap.Error(err))
		narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Narrative generation failed: %v", err))
		return narrative, nil
	}

	narrative.Model = resp.Model
	narrative.SummaryMD = resp.Summary
	narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if s.config.StrictCitations {
		narrative.Warnings = append(narrative.Warnings,
			fmt.Sprintf("Verified %d citations against the analysis allowlist of %d", len(resp.CitedCitations), len(allowed)))
	}
	return narrative, nil
}

// RenderMarkdown renders a narrative as a standalone markdown section.
// It returns "" for a nil or disabled narrative.
func RenderMarkdown(n *model.Narrative) string {
	if n == nil || !n.Enabled {
		return ""
	}
	var b strings.Builder
	b.WriteString("# Narrative Summary\n\n")
	b.WriteString("> **GENERATED CONTENT.** Written by a language model from the analysis below. ")
	b.WriteString("Status, signals and scores were determined independently and are not affected by this text.\n\n")
	fmt.Fprintf(&b, "- **Provider:** %s\n", n.Provider)
	if n.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", n.Model)
	}
	fmt.Fprintf(&b, "- **Strict Citation Mode:** %t\n\n", n.StrictCitations)

	if n.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(n.SummaryMD)
		b.WriteString("\n")
	}

	if len(n.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range n.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
