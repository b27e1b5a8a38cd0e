package model

import "time"

// Report bundles every analysis produced for one document by a single pipeline run
type Report struct {
	Document    DocumentRef                `json:"document"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Citations   []CitationValidationResult `json:"citation_validation,omitempty"`
	Shepard     *ShepardAnalysis           `json:"shepard"`
	Treatment   *TreatmentAnalysis         `json:"treatment,omitempty"`
	Network     *NetworkAnalysis           `json:"network,omitempty"`
	Snapshot    *StatusSnapshot            `json:"snapshot,omitempty"`
	Principles  Principles                 `json:"principles"`
	Narrative   *Narrative                 `json:"narrative,omitempty"` // Optional, never affects any score
}

// Principles documents the rules every analysis follows
type Principles struct {
	FatalSignalDispositive bool `json:"fatal_signal_dispositive"` // One fatal citation decides the status
	Transparent            bool `json:"transparent"`              // Every score is reproducible from its inputs
	Advisory               bool `json:"advisory"`                 // Output supports, never replaces, legal review
}

// DefaultPrinciples returns the standard principles
func DefaultPrinciples() Principles {
	return Principles{
		FatalSignalDispositive: true,
		Transparent:            true,
		Advisory:               true,
	}
}

// Narrative is an optional LLM-written summary of a report.
// It is generated after all scoring and never feeds back into it.
type Narrative struct {
	Enabled         bool     `json:"enabled"`
	Provider        string   `json:"provider,omitempty"`
	Model           string   `json:"model,omitempty"`
	StrictCitations bool     `json:"strict_citations"` // Whether the citation allowlist was enforced
	SummaryMD       string   `json:"summary_md,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}
