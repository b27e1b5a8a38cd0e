package model

import "time"

// CitingCase is one document citing the analyzed document, with its classified treatment
type CitingCase struct {
	CaseID            string          `json:"case_id"`
	CaseName          string          `json:"case_name"`
	Citation          string          `json:"citation,omitempty"`
	Court             string          `json:"court,omitempty"`
	Jurisdiction      string          `json:"jurisdiction,omitempty"`
	DecisionDate      *time.Time      `json:"decision_date,omitempty"`
	Signal            TreatmentSignal `json:"treatment_signal"`
	Context           CitationContext `json:"citation_context"`
	PageReference     string          `json:"page_reference,omitempty"`
	HeadnoteReference string          `json:"headnote_reference,omitempty"`
	RelevantText      string          `json:"relevant_text,omitempty"`
	ConfidenceScore   float64         `json:"confidence_score"`
}

// HistoryEntry is one step of a case's procedural history
type HistoryEntry struct {
	CaseID      string          `json:"case_id,omitempty"`
	Court       string          `json:"court,omitempty"`
	Citation    string          `json:"citation,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
	Disposition string          `json:"disposition,omitempty"` // e.g. "affirmed", "reversed"
	Signal      TreatmentSignal `json:"treatment_signal,omitempty"`
}

// CaseHistory is the procedural history of a case
type CaseHistory struct {
	PriorHistory      []HistoryEntry `json:"prior_history"`
	SubsequentHistory []HistoryEntry `json:"subsequent_history"`
	RelatedCases      []string       `json:"related_cases"`
	FinalDisposition  string         `json:"final_disposition,omitempty"`
}

// HeadnoteAnalysis is the treatment of one headnote (legal point) of a case
type HeadnoteAnalysis struct {
	Headnote         string                  `json:"headnote"`
	Status           CaseStatus              `json:"status"`
	Confidence       float64                 `json:"confidence"`
	CitingCount      int                     `json:"citing_count"`
	TreatmentSummary map[TreatmentSignal]int `json:"treatment_summary"`
}

// ShepardAnalysis is the full validity analysis of one document
type ShepardAnalysis struct {
	CaseID                 string                  `json:"case_id"`
	CaseName               string                  `json:"case_name"`
	Citation               string                  `json:"citation,omitempty"`
	AnalysisDate           time.Time               `json:"analysis_date"`
	OverallStatus          CaseStatus              `json:"overall_status"`
	Confidence             float64                 `json:"confidence"`
	AverageScore           float64                 `json:"average_score"`
	CitingCases            []CitingCase            `json:"citing_cases"`
	TotalCitations         int                     `json:"total_citations"`
	PositiveTreatmentCount int                     `json:"positive_treatment_count"`
	NegativeTreatmentCount int                     `json:"negative_treatment_count"`
	NeutralTreatmentCount  int                     `json:"neutral_treatment_count"`
	TreatmentSummary       map[TreatmentSignal]int `json:"treatment_summary"`
	History                *CaseHistory            `json:"case_history,omitempty"`
	Headnotes              []HeadnoteAnalysis      `json:"headnote_analysis,omitempty"`
	Alerts                 []string                `json:"alerts"`
	Warnings               []string                `json:"warnings"`
	PrecedentialValue      float64                 `json:"precedential_value"`
	ReliabilityScore       float64                 `json:"reliability_score"`
}

// SignalCategory returns the dominant signal category of the analysis:
// negative if any fatal signal appears, then cautionary, positive, neutral by count.
func (a *ShepardAnalysis) SignalCategory() SignalCategory {
	counts := make(map[SignalCategory]int)
	for signal, n := range a.TreatmentSummary {
		counts[signal.Category()] += n
	}
	if counts[CategoryNegative] > 0 {
		return CategoryNegative
	}
	best := CategoryNeutral
	bestCount := 0
	for _, c := range []SignalCategory{CategoryCautionary, CategoryPositive, CategoryNeutral} {
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}

// Jurisdictions returns the distinct citing jurisdictions in first-seen order
func (a *ShepardAnalysis) Jurisdictions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range a.CitingCases {
		if c.Jurisdiction == "" || seen[c.Jurisdiction] {
			continue
		}
		seen[c.Jurisdiction] = true
		out = append(out, c.Jurisdiction)
	}
	return out
}
