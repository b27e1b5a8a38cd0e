package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/shepard/internal/citation"
	"github.com/ppiankov/shepard/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize writes a narrative of the report, citing only allowlisted authority
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Report is the analysis report to summarize
	Report model.Report

	// AllowedCitations is the STRICT allowlist of legal citations the model may mention.
	// Anything else in the output is treated as invented authority.
	AllowedCitations []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text
	Summary string

	// CitedCitations are the citations found in the summary (for verification)
	CitedCitations []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai" or "" (disabled)
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for OpenAI-compatible endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictCitations rejects summaries that cite authority outside the allowlist
	StrictCitations bool

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:         30,
		StrictCitations: true,
		MaxTokens:       800,
	}
}

// maxPromptCitations caps the allowlist printed into the prompt
const maxPromptCitations = 20

// AllowedCitations collects every citation the report itself contains:
// the document's own, its citing cases and validated citations from its text
func AllowedCitations(report model.Report) []string {
	seen := map[string]bool{}
	var out []string
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	add(report.Document.Citation)
	if report.Shepard != nil {
		add(report.Shepard.Citation)
		for _, c := range report.Shepard.CitingCases {
			add(c.Citation)
		}
	}
	for _, v := range report.Citations {
		add(v.NormalizedCitation)
	}
	return out
}

// BuildPrompt constructs the default prompt for a narrative with strict citation mode
func BuildPrompt(report model.Report, allowed []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are summarizing a citation analysis of a legal authority. The analysis classifies how later decisions treat it; it is NOT legal advice.

CRITICAL RULES:
1. You MUST ONLY mention citations from this allowed list:
%s

2. DO NOT cite, infer or recall any other case, statute or regulation.
3. Describe treatment, not the merits. Use phrases like:
   - "Later courts have followed..."
   - "N citing decisions question..."
   - "The analysis found no negative treatment..."
4. Where the data is thin or confidence is low, say so explicitly.

Analysis:
- Document: %s
`, joinCitations(allowed), displayName(report.Document))

	if s := report.Shepard; s != nil {
		fmt.Fprintf(&b, "- Status: %s (confidence %.2f)\n", s.OverallStatus, s.Confidence)
		fmt.Fprintf(&b, "- Citing decisions: %d (%d positive, %d negative, %d neutral)\n",
			s.TotalCitations, s.PositiveTreatmentCount, s.NegativeTreatmentCount, s.NeutralTreatmentCount)
		fmt.Fprintf(&b, "- Precedential value: %.2f, reliability: %.2f\n", s.PrecedentialValue, s.ReliabilityScore)
		for i, alert := range s.Alerts {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- Alert: %s\n", alert)
		}
	}
	if t := report.Treatment; t != nil {
		fmt.Fprintf(&b, "- Overall treatment: %s (consensus %.2f)\n", t.OverallTreatment, t.Consensus)
		for i, p := range t.Patterns {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- Pattern: %s\n", p.Description)
		}
	}
	if n := report.Network; n != nil {
		fmt.Fprintf(&b, "- Citation network: %d documents, %d citations\n", n.NodeCount, n.EdgeCount)
	}

	b.WriteString("\nProvide a 3-4 sentence summary of how the authority has been treated.")
	return b.String()
}

func displayName(ref model.DocumentRef) string {
	if ref.Name != "" {
		return ref.Name
	}
	if ref.Citation != "" {
		return ref.Citation
	}
	return ref.ID
}

func joinCitations(citations []string) string {
	if len(citations) == 0 {
		return "(No citations available)"
	}
	var b strings.Builder
	for i, c := range citations {
		if i >= maxPromptCitations { // Avoid token bloat
			fmt.Fprintf(&b, "\n... and %d more citations", len(citations)-maxPromptCitations)
			break
		}
		fmt.Fprintf(&b, "\n- %s", c)
	}
	return b.String()
}

// allowlist answers whether a citation found in model output refers to allowed authority.
// Case citations match on volume, reporter and page; short forms on volume and reporter.
type allowlist struct {
	full  map[string]bool
	short map[string]bool
}

func newAllowlist(citations []string) allowlist {
	a := allowlist{full: map[string]bool{}, short: map[string]bool{}}
	for _, c := range citations {
		full, short, _ := citationKeys(c)
		a.full[full] = true
		if short != "" {
			a.short[short] = true
		}
	}
	return a
}

func (a allowlist) allows(c string) bool {
	full, short, shortForm := citationKeys(c)
	if a.full[full] {
		return true
	}
	return shortForm && a.short[short]
}

func citationKeys(c string) (full, short string, shortForm bool) {
	ctype, comps, ok := citation.Parse(c)
	if ok && ctype == model.CitationCase && comps.Volume != "" && comps.Reporter != "" {
		reporter := comps.Reporter
		if canonical, known := citation.LookupReporter(reporter); known {
			reporter = canonical
		}
		short = comps.Volume + " " + reporter
		return short + " " + comps.Page, short, comps.ShortForm
	}
	if normalized, ok := citation.Normalize(c); ok {
		return normalized, "", false
	}
	return strings.ToLower(strings.Join(strings.Fields(c), " ")), "", false
}
