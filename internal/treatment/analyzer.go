// Package treatment reads the text of every citing case closely: how strongly it
// signals its treatment, how deeply it engages, and in what tone. It then rolls the
// per-citation readings up into patterns and an overall treatment.
package treatment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/shepard/internal/citation"
	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
)

const (
	comprehensiveWords      = 200
	comprehensiveIndicators = 3
	substantiveWords        = 50
	substantiveIndicators   = 1
	hedgeDowngradeCount     = 3

	// unclassifiedConfidenceCap bounds the confidence of a signal carried over from
	// the citing case when the text scores no keyword at all
	unclassifiedConfidenceCap = 0.3
)

// Analyzer produces treatment analyses. It is safe for concurrent use.
type Analyzer struct {
	validator *citation.Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyzer creates a treatment analyzer
func NewAnalyzer(validator *citation.Validator, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = citation.NewValidator(logger)
	}
	return &Analyzer{
		validator: validator,
		logger:    logger.Named("treatment"),
		now:       time.Now,
	}
}

// AnalyzeCaseTreatment analyzes how citingCases treat doc. Citing case order is kept
// in the returned contexts. The only error is cancellation of ctx.
func (a *Analyzer) AnalyzeCaseTreatment(ctx context.Context, doc model.Document, citingCases []model.CitingCase, includeTemporal, includeJurisdictional bool) (*model.TreatmentAnalysis, error) {
	analysis := &model.TreatmentAnalysis{
		CaseID:           doc.ID,
		CaseName:         doc.DisplayName(),
		AnalysisDate:     a.now().UTC(),
		OverallTreatment: model.SignalNeutral,
		Contexts:         make([]model.TreatmentContext, 0, len(citingCases)),
		Patterns:         []model.TreatmentPattern{},
		Insights:         []string{},
		Warnings:         []string{},
		Recommendations:  []string{},
	}

	for _, c := range citingCases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analyze treatment of %q: %w", doc.ID, err)
		}
		analysis.Contexts = append(analysis.Contexts, a.analyzeContext(c))
	}

	analysis.Patterns = detectPatterns(analysis.Contexts)
	if includeJurisdictional {
		analysis.Jurisdictional = jurisdictionalTreatment(analysis.Contexts)
	}
	if includeTemporal {
		analysis.Temporal = temporalTreatment(analysis.Contexts)
	}
	analysis.OverallTreatment, analysis.Confidence = overallTreatment(analysis.Contexts)
	analysis.Consensus = consensus(analysis.Contexts)

	analysis.Insights = insights(analysis)
	analysis.Warnings = warnings(analysis)
	analysis.Recommendations = recommendations(analysis)

	a.logger.Debug("treatment analyzed",
		zap.String("document", doc.ID),
		zap.String("overall", string(analysis.OverallTreatment)),
		zap.Int("contexts", len(analysis.Contexts)),
		zap.Int("patterns", len(analysis.Patterns)))

	return analysis, nil
}

func (a *Analyzer) analyzeContext(c model.CitingCase) model.TreatmentContext {
	text := c.RelevantText
	signal, confidence := scoreSignal(text)
	if confidence == 0 {
		signal = c.Signal
		if !signal.IsValid() {
			signal = model.SignalNeutral
		}
		confidence = min(c.ConfidenceScore, unclassifiedConfidenceCap)
	}

	wordCount, indicators := len(wordRe.FindAllString(text, -1)), len(analysisIndicatorRe.FindAllString(text, -1))

	tc := model.TreatmentContext{
		CaseID:            c.CaseID,
		CaseName:          c.CaseName,
		Court:             c.Court,
		Jurisdiction:      c.Jurisdiction,
		Signal:            signal,
		SignalConfidence:  confidence,
		Depth:             depthOf(wordCount, indicators),
		Reliability:       reliabilityOf(confidence, len(hedgeRe.FindAllString(text, -1))),
		SentimentScore:    sentiment(text),
		LegalReasoning:    extractReasoning(text),
		PageReferences:    pageReferences(c.PageReference, text),
		HeadnoteReference: c.HeadnoteReference,
		WordCount:         wordCount,
		SentenceCount:     sentenceCount(text),
	}
	if c.DecisionDate != nil {
		tc.Year = c.DecisionDate.Year()
	}
	a.fillFromCitation(&tc, c.Citation)
	return tc
}

// fillFromCitation recovers a missing year, court or jurisdiction from the citing case's own citation
func (a *Analyzer) fillFromCitation(tc *model.TreatmentContext, cite string) {
	if cite == "" || (tc.Year != 0 && tc.Court != "" && tc.Jurisdiction != "") {
		return
	}
	result := a.validator.ValidateCitation(cite, model.FormatBluebook)
	comp := result.Components
	if tc.Year == 0 {
		if y, err := strconv.Atoi(comp.Year); err == nil {
			tc.Year = y
		}
	}
	if tc.Court == "" {
		tc.Court = comp.Court
	}
	if tc.Jurisdiction == "" {
		tc.Jurisdiction = comp.Jurisdiction
	}
	if tc.Jurisdiction == "" {
		tc.Jurisdiction = citation.JurisdictionFor(tc.Court, cite)
	}
}

// scoreSignal sums the tier scores of every signal's keywords and returns the
// best-scoring signal with confidence min(1, score/2). Zero confidence means no keyword matched.
func scoreSignal(text string) (model.TreatmentSignal, float64) {
	best, bestScore := model.SignalNeutral, 0.0
	for _, tiers := range signalKeywords {
		var score float64
		if tiers.strong.MatchString(text) {
			score += strongScore
		}
		if tiers.moderate.MatchString(text) {
			score += moderateScore
		}
		if tiers.weak.MatchString(text) {
			score += weakScore
		}
		if score > bestScore {
			best, bestScore = tiers.signal, score
		}
	}
	return best, min(1.0, bestScore/2.0)
}

func depthOf(wordCount, indicators int) model.TreatmentDepth {
	switch {
	case wordCount >= comprehensiveWords && indicators >= comprehensiveIndicators:
		return model.DepthComprehensive
	case wordCount >= substantiveWords && indicators >= substantiveIndicators:
		return model.DepthSubstantive
	default:
		return model.DepthSurface
	}
}

var reliabilityTiers = []model.Reliability{
	model.ReliabilityLow, model.ReliabilityMedium, model.ReliabilityHigh, model.ReliabilityVeryHigh,
}

func reliabilityOf(confidence float64, hedges int) model.Reliability {
	var tier int
	switch {
	case confidence >= 0.8:
		tier = 3
	case confidence >= 0.6:
		tier = 2
	case confidence >= 0.4:
		tier = 1
	}
	if hedges >= hedgeDowngradeCount && tier > 0 {
		tier--
	}
	return reliabilityTiers[tier]
}

// sentiment is the weighted positive-minus-negative keyword tally scaled into [-1, 1]
func sentiment(text string) float64 {
	pos := float64(len(positiveStrongRe.FindAllString(text, -1))) + 0.5*float64(len(positiveModerateRe.FindAllString(text, -1)))
	neg := float64(len(negativeStrongRe.FindAllString(text, -1))) + 0.5*float64(len(negativeModerateRe.FindAllString(text, -1)))
	return clamp((pos-neg)/sentimentScale, -1, 1)
}

func extractReasoning(text string) string {
	m := reasoningRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	reasoning := strings.Join(strings.Fields(m[1]), " ")
	if len(reasoning) > maxReasoningLen {
		reasoning = strings.TrimSpace(truncateUTF8(reasoning, maxReasoningLen))
	}
	return reasoning
}

// sentenceCount counts terminal punctuation runs; trailing text without one is a sentence too
func sentenceCount(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	ends := sentenceEndRe.FindAllStringIndex(text, -1)
	n := len(ends)
	if n == 0 || ends[n-1][1] < len(text) {
		n++
	}
	return n
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// pageReferences lists the pinpoint page of the record followed by pages cited in the text, deduplicated
func pageReferences(page, text string) []string {
	var refs []string
	seen := map[string]bool{}
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		refs = append(refs, p)
	}
	add(page)
	for _, m := range pageRefRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return refs
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
