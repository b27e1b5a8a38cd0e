package model

// TreatmentSignal classifies how a later document treats the one it cites.
// Exactly one signal is assigned per citing case.
type TreatmentSignal string

const (
	// Negative (fatal)
	SignalOverruled  TreatmentSignal = "overruled"
	SignalReversed   TreatmentSignal = "reversed"
	SignalSuperseded TreatmentSignal = "superseded"
	SignalVacated    TreatmentSignal = "vacated"

	// Cautionary
	SignalQuestioned    TreatmentSignal = "questioned"
	SignalCriticized    TreatmentSignal = "criticized"
	SignalLimited       TreatmentSignal = "limited"
	SignalDistinguished TreatmentSignal = "distinguished"

	// Positive
	SignalFollowed  TreatmentSignal = "followed"
	SignalAffirmed  TreatmentSignal = "affirmed"
	SignalCited     TreatmentSignal = "cited"
	SignalExplained TreatmentSignal = "explained"

	// Neutral
	SignalNeutral   TreatmentSignal = "neutral"
	SignalMentioned TreatmentSignal = "mentioned"
)

// SignalCategory is the coarse grouping of treatment signals
type SignalCategory string

const (
	CategoryNegative   SignalCategory = "negative"
	CategoryCautionary SignalCategory = "cautionary"
	CategoryPositive   SignalCategory = "positive"
	CategoryNeutral    SignalCategory = "neutral"
)

// signalWeights drives aggregate status scoring. Values are fixed; never mutate.
var signalWeights = map[TreatmentSignal]float64{
	SignalOverruled:     -1.0,
	SignalReversed:      -1.0,
	SignalVacated:       -0.9,
	SignalSuperseded:    -0.8,
	SignalCriticized:    -0.6,
	SignalQuestioned:    -0.5,
	SignalLimited:       -0.4,
	SignalDistinguished: -0.2,
	SignalNeutral:       0.0,
	SignalMentioned:     0.1,
	SignalCited:         0.5,
	SignalExplained:     0.6,
	SignalFollowed:      1.0,
	SignalAffirmed:      1.0,
}

// AllSignals lists every signal in classification precedence order
var AllSignals = []TreatmentSignal{
	SignalOverruled, SignalReversed, SignalSuperseded, SignalVacated,
	SignalQuestioned, SignalCriticized, SignalLimited, SignalDistinguished,
	SignalFollowed, SignalAffirmed, SignalExplained, SignalCited,
	SignalMentioned, SignalNeutral,
}

// Weight returns the fixed scoring weight of the signal in [-1, 1]
func (s TreatmentSignal) Weight() float64 {
	return signalWeights[s]
}

// Category returns the signal's coarse grouping
func (s TreatmentSignal) Category() SignalCategory {
	switch s {
	case SignalOverruled, SignalReversed, SignalSuperseded, SignalVacated:
		return CategoryNegative
	case SignalQuestioned, SignalCriticized, SignalLimited, SignalDistinguished:
		return CategoryCautionary
	case SignalFollowed, SignalAffirmed, SignalCited, SignalExplained:
		return CategoryPositive
	default:
		return CategoryNeutral
	}
}

// IsFatal reports whether a single occurrence of the signal invalidates the cited authority
func (s TreatmentSignal) IsFatal() bool {
	return s.Category() == CategoryNegative
}

// IsValid reports whether s is a known signal
func (s TreatmentSignal) IsValid() bool {
	_, ok := signalWeights[s]
	return ok
}

// CitationContext is the part of an opinion in which a citation appears
type CitationContext string

const (
	ContextHolding        CitationContext = "holding"
	ContextDictum         CitationContext = "dictum"
	ContextDissent        CitationContext = "dissent"
	ContextProcedural     CitationContext = "procedural"
	ContextFactual        CitationContext = "factual"
	ContextDistinguishing CitationContext = "distinguishing"
	ContextBackground     CitationContext = "background"
)

// CaseStatus is the user-facing validity verdict
type CaseStatus string

const (
	StatusGoodLaw      CaseStatus = "good_law"
	StatusQuestionable CaseStatus = "questionable"
	StatusBadLaw       CaseStatus = "bad_law"
	StatusSuperseded   CaseStatus = "superseded"
	StatusUnknown      CaseStatus = "unknown"
)

// Rank orders statuses from worst (0) to best (3). Superseded ranks with bad law.
func (s CaseStatus) Rank() int {
	switch s {
	case StatusGoodLaw:
		return 3
	case StatusUnknown:
		return 2
	case StatusQuestionable:
		return 1
	default:
		return 0
	}
}
