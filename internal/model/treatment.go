package model

import "time"

// TreatmentDepth grades how deeply a citing case engages with the cited one
type TreatmentDepth string

const (
	DepthSurface       TreatmentDepth = "surface"
	DepthSubstantive   TreatmentDepth = "substantive"
	DepthComprehensive TreatmentDepth = "comprehensive"
)

// Reliability grades how much weight a single treatment classification deserves
type Reliability string

const (
	ReliabilityLow      Reliability = "low"
	ReliabilityMedium   Reliability = "medium"
	ReliabilityHigh     Reliability = "high"
	ReliabilityVeryHigh Reliability = "very_high"
)

// PatternType names a cross-citation treatment pattern
type PatternType string

const (
	PatternConsistentCriticism PatternType = "consistent_criticism"
	PatternJurisdictionalSplit PatternType = "jurisdictional_split"
	PatternEvolvingTreatment   PatternType = "evolving_treatment"
	PatternThoroughAnalysis    PatternType = "thorough_analysis"
)

// TreatmentContext is the deep analysis of one citing case
type TreatmentContext struct {
	CaseID            string          `json:"case_id"`
	CaseName          string          `json:"case_name"`
	Court             string          `json:"court,omitempty"`
	Jurisdiction      string          `json:"jurisdiction,omitempty"`
	Year              int             `json:"year,omitempty"`
	Signal            TreatmentSignal `json:"treatment_signal"`
	SignalConfidence  float64         `json:"signal_confidence"`
	Depth             TreatmentDepth  `json:"depth"`
	Reliability       Reliability     `json:"reliability"`
	SentimentScore    float64         `json:"sentiment_score"` // [-1, 1]
	LegalReasoning    string          `json:"legal_reasoning,omitempty"`
	PageReferences    []string        `json:"page_references,omitempty"`
	HeadnoteReference string          `json:"headnote_reference,omitempty"`
	WordCount         int             `json:"word_count"`
	SentenceCount     int             `json:"sentence_count"`
}

// TreatmentPattern is a pattern detected across all citing cases
type TreatmentPattern struct {
	Type         PatternType `json:"pattern_type"`
	Description  string      `json:"description"`
	Frequency    int         `json:"frequency"`
	Significance float64     `json:"significance"`
	CaseIDs      []string    `json:"case_ids,omitempty"`
}

// JurisdictionalTreatment rolls up citations from one (jurisdiction, court) pair
type JurisdictionalTreatment struct {
	Jurisdiction       string                  `json:"jurisdiction"`
	Court              string                  `json:"court"`
	TotalCitations     int                     `json:"total_citations"`
	PositiveCount      int                     `json:"positive_count"`
	NegativeCount      int                     `json:"negative_count"`
	NeutralCount       int                     `json:"neutral_count"`
	DominantSignal     TreatmentSignal         `json:"dominant_signal"`
	Consistency        float64                 `json:"consistency"`
	AuthorityWeight    float64                 `json:"authority_weight"`
	SignalDistribution map[TreatmentSignal]int `json:"signal_distribution"`
}

// TemporalTrend labels the year-over-year movement of treatment
type TemporalTrend string

const (
	TrendImproving TemporalTrend = "improving"
	TrendDeclining TemporalTrend = "declining"
	TrendStable    TemporalTrend = "stable"
	TrendVolatile  TemporalTrend = "volatile"
)

// TemporalTreatment rolls up citations decided in one calendar year
type TemporalTreatment struct {
	Year               int                     `json:"year"`
	TotalCitations     int                     `json:"total_citations"`
	PositiveCount      int                     `json:"positive_count"`
	NegativeCount      int                     `json:"negative_count"`
	AverageWeight      float64                 `json:"average_weight"`
	Trend              TemporalTrend           `json:"trend"`
	SignalDistribution map[TreatmentSignal]int `json:"signal_distribution"`
}

// TreatmentAnalysis is the deep textual treatment analysis of one document
type TreatmentAnalysis struct {
	CaseID           string                    `json:"case_id"`
	CaseName         string                    `json:"case_name"`
	AnalysisDate     time.Time                 `json:"analysis_date"`
	OverallTreatment TreatmentSignal           `json:"overall_treatment"`
	Confidence       float64                   `json:"confidence"`
	Consensus        float64                   `json:"consensus"`
	Contexts         []TreatmentContext        `json:"treatment_contexts"`
	Patterns         []TreatmentPattern        `json:"patterns"`
	Jurisdictional   []JurisdictionalTreatment `json:"jurisdictional_treatment,omitempty"`
	Temporal         []TemporalTreatment       `json:"temporal_treatment,omitempty"`
	Insights         []string                  `json:"insights"`
	Warnings         []string                  `json:"warnings"`
	Recommendations  []string                  `json:"recommendations"`
}
