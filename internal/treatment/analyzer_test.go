package treatment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/shepard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDoc = model.Document{
	ID:        "smith-v-jones",
	Title:     "Smith v. Jones",
	Citations: []string{"Smith v. Jones, 123 F.3d 456 (9th Cir. 2022)"},
	Court:     "9th Cir.",
}

func dated(year int) *time.Time {
	t := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestScoreSignal(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		signal     model.TreatmentSignal
		confidence float64
	}{
		{"all three tiers", "The court followed Smith and applied the rule consistent with it.", model.SignalFollowed, 0.95},
		{"strong only", "Smith is hereby overruled.", model.SignalOverruled, 0.5},
		{"overruled beats followed", "Smith was overruled; earlier panels followed it.", model.SignalOverruled, 0.5},
		{"reversed beats cited", "The judgment was reversed; the panel cited Smith.", model.SignalReversed, 0.5},
		{"questioned beats explained", "Later courts questioned Smith, which explained the rule.", model.SignalQuestioned, 0.5},
		{"no keywords", "Nothing relevant here.", model.SignalNeutral, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal, confidence := scoreSignal(tt.text)
			assert.Equal(t, tt.signal, signal)
			assert.InDelta(t, tt.confidence, confidence, 1e-9)
		})
	}
}

func TestDepthOf(t *testing.T) {
	long := strings.Repeat("word ", 200) + "because therefore analysis"
	medium := strings.Repeat("word ", 50) + "because"

	tests := []struct {
		name string
		text string
		want model.TreatmentDepth
	}{
		{"comprehensive", long, model.DepthComprehensive},
		{"substantive", medium, model.DepthSubstantive},
		{"long without indicators", strings.Repeat("word ", 250), model.DepthSurface},
		{"short", "Cited.", model.DepthSurface},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := len(wordRe.FindAllString(tt.text, -1))
			indicators := len(analysisIndicatorRe.FindAllString(tt.text, -1))
			assert.Equal(t, tt.want, depthOf(words, indicators))
		})
	}
}

func TestSentenceCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"Cited.", 1},
		{"Smith is followed", 1},
		{"We agree. Smith controls! Does it apply? Yes.", 4},
		{"See 123 F.3d at 460. The rule stands", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sentenceCount(tt.text), tt.text)
	}
}

func TestAnalyzeContext_CountsWordsAndSentences(t *testing.T) {
	tc := NewAnalyzer(nil, nil).analyzeContext(model.CitingCase{
		CaseID:       "c1",
		RelevantText: "We followed Smith. The rule applies here",
	})
	assert.Equal(t, model.SignalFollowed, tc.Signal)
	assert.Equal(t, 7, tc.WordCount)
	assert.Equal(t, 2, tc.SentenceCount)
}

func TestReliabilityOf(t *testing.T) {
	tests := []struct {
		confidence float64
		hedges     int
		want       model.Reliability
	}{
		{0.9, 0, model.ReliabilityVeryHigh},
		{0.9, 3, model.ReliabilityHigh},
		{0.7, 0, model.ReliabilityHigh},
		{0.5, 0, model.ReliabilityMedium},
		{0.5, 4, model.ReliabilityLow},
		{0.2, 5, model.ReliabilityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reliabilityOf(tt.confidence, tt.hedges), "confidence %.1f hedges %d", tt.confidence, tt.hedges)
	}
}

func TestSentiment(t *testing.T) {
	assert.InDelta(t, 1.0, sentiment("The court correctly followed and affirmed Smith."), 1e-9)
	assert.InDelta(t, -1.0, sentiment("Smith is erroneous, wrongly reasoned and incorrect."), 1e-9)
	assert.InDelta(t, -0.5/3, sentiment("The reasoning is doubtful."), 1e-9)
	assert.Zero(t, sentiment(""))

	heavy := strings.Repeat("affirmed ", 10)
	assert.Equal(t, 1.0, sentiment(heavy))
}

func TestExtractReasoning(t *testing.T) {
	assert.Equal(t, "the contract was never signed", extractReasoning("We agree because the contract was never signed. Other text."))
	assert.Empty(t, extractReasoning("No reasoning given."))

	long := extractReasoning("since " + strings.Repeat("a", 400))
	assert.Len(t, long, maxReasoningLen)
}

func TestPageReferences(t *testing.T) {
	assert.Equal(t, []string{"460", "462", "463"}, pageReferences("460", "See id. at 462 and *463, also at 460."))
	assert.Nil(t, pageReferences("", "No pages."))
}

func TestDetectPatterns(t *testing.T) {
	t.Run("consistent criticism and evolving treatment", func(t *testing.T) {
		contexts := []model.TreatmentContext{
			{CaseID: "a", Year: 2001, Signal: model.SignalFollowed, SentimentScore: 0.8},
			{CaseID: "b", Year: 2002, Signal: model.SignalFollowed, SentimentScore: 0.8},
			{CaseID: "c", Year: 2003, Signal: model.SignalFollowed, SentimentScore: -0.5},
			{CaseID: "d", Year: 2004, Signal: model.SignalFollowed, SentimentScore: -0.5},
			{CaseID: "e", Year: 2005, Signal: model.SignalFollowed, SentimentScore: -0.5},
		}
		patterns := detectPatterns(contexts)
		require.Len(t, patterns, 2)
		assert.Equal(t, model.PatternConsistentCriticism, patterns[0].Type)
		assert.Equal(t, 0.9, patterns[0].Significance)
		assert.Equal(t, []string{"c", "d", "e"}, patterns[0].CaseIDs)
		assert.Equal(t, model.PatternEvolvingTreatment, patterns[1].Type)
		assert.Equal(t, 0.7, patterns[1].Significance)
		assert.Contains(t, patterns[1].Description, "less favorable")
	})

	t.Run("jurisdictional split", func(t *testing.T) {
		contexts := []model.TreatmentContext{
			{CaseID: "a", Signal: model.SignalFollowed},
			{CaseID: "b", Signal: model.SignalQuestioned},
			{CaseID: "c", Signal: model.SignalDistinguished},
			{CaseID: "d", Signal: model.SignalFollowed},
		}
		patterns := detectPatterns(contexts)
		require.Len(t, patterns, 1)
		assert.Equal(t, model.PatternJurisdictionalSplit, patterns[0].Type)
		assert.Equal(t, 0.8, patterns[0].Significance)
	})

	t.Run("no split when one signal dominates", func(t *testing.T) {
		contexts := []model.TreatmentContext{
			{Signal: model.SignalFollowed}, {Signal: model.SignalFollowed}, {Signal: model.SignalFollowed},
			{Signal: model.SignalFollowed}, {Signal: model.SignalQuestioned}, {Signal: model.SignalCited},
			{Signal: model.SignalFollowed},
		}
		for _, p := range detectPatterns(contexts) {
			assert.NotEqual(t, model.PatternJurisdictionalSplit, p.Type)
		}
	})

	t.Run("thorough analysis", func(t *testing.T) {
		contexts := []model.TreatmentContext{
			{CaseID: "a", Signal: model.SignalFollowed, Depth: model.DepthComprehensive},
			{CaseID: "b", Signal: model.SignalFollowed, Depth: model.DepthComprehensive},
		}
		patterns := detectPatterns(contexts)
		require.Len(t, patterns, 1)
		assert.Equal(t, model.PatternThoroughAnalysis, patterns[0].Type)
		assert.Equal(t, 2, patterns[0].Frequency)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, detectPatterns(nil))
	})
}

func TestJurisdictionalTreatment(t *testing.T) {
	contexts := []model.TreatmentContext{
		{Court: "9th Cir.", Jurisdiction: "federal", Signal: model.SignalFollowed},
		{Court: "Cal.", Jurisdiction: "California", Signal: model.SignalCited},
		{Court: "9th Cir.", Jurisdiction: "federal", Signal: model.SignalFollowed},
		{Court: "9th Cir.", Jurisdiction: "federal", Signal: model.SignalQuestioned},
		{Signal: model.SignalMentioned},
	}
	groups := jurisdictionalTreatment(contexts)
	require.Len(t, groups, 3)

	circuit := groups[0]
	assert.Equal(t, "federal", circuit.Jurisdiction)
	assert.Equal(t, 3, circuit.TotalCitations)
	assert.Equal(t, 2, circuit.PositiveCount)
	assert.Equal(t, 1, circuit.NegativeCount)
	assert.Equal(t, model.SignalFollowed, circuit.DominantSignal)
	assert.InDelta(t, 0.5408, circuit.Consistency, 1e-4)
	assert.Equal(t, 0.8, circuit.AuthorityWeight)

	state := groups[1]
	assert.Equal(t, "California", state.Jurisdiction)
	assert.Equal(t, 1.0, state.Consistency)
	assert.Equal(t, 0.9, state.AuthorityWeight)

	unknown := groups[2]
	assert.Equal(t, "unknown", unknown.Court)
	assert.Equal(t, 1, unknown.NeutralCount)
	assert.Equal(t, 0.5, unknown.AuthorityWeight)
}

func TestTemporalTreatment(t *testing.T) {
	contexts := []model.TreatmentContext{
		{Year: 2021, Signal: model.SignalCited},
		{Year: 2019, Signal: model.SignalFollowed},
		{Year: 2020, Signal: model.SignalQuestioned},
		{Signal: model.SignalOverruled},
		{Year: 2021, Signal: model.SignalCited},
	}
	years := temporalTreatment(contexts)
	require.Len(t, years, 3)

	assert.Equal(t, 2019, years[0].Year)
	assert.Equal(t, model.TrendStable, years[0].Trend)
	assert.Equal(t, 1, years[0].PositiveCount)

	assert.Equal(t, 2020, years[1].Year)
	assert.Equal(t, model.TrendDeclining, years[1].Trend)
	assert.Equal(t, 1, years[1].NegativeCount)

	assert.Equal(t, 2021, years[2].Year)
	assert.Equal(t, model.TrendImproving, years[2].Trend)
	assert.Equal(t, 2, years[2].TotalCitations)
	assert.InDelta(t, 0.5, years[2].AverageWeight, 1e-9)
}

func TestOverallTreatment(t *testing.T) {
	contexts := []model.TreatmentContext{
		{Signal: model.SignalFollowed, SignalConfidence: 1.0, Depth: model.DepthSurface, Reliability: model.ReliabilityHigh},
		{Signal: model.SignalOverruled, SignalConfidence: 0.5, Depth: model.DepthComprehensive, Reliability: model.ReliabilityVeryHigh},
	}
	signal, confidence := overallTreatment(contexts)
	assert.Equal(t, model.SignalOverruled, signal)
	assert.InDelta(t, 1.2/2.2, confidence, 1e-9)

	signal, confidence = overallTreatment(nil)
	assert.Equal(t, model.SignalNeutral, signal)
	assert.Zero(t, confidence)
}

func TestConsensus(t *testing.T) {
	same := []model.TreatmentContext{{Signal: model.SignalFollowed}, {Signal: model.SignalFollowed}}
	assert.Equal(t, 1.0, consensus(same))

	spread := []model.TreatmentContext{
		{Signal: model.SignalFollowed}, {Signal: model.SignalQuestioned},
		{Signal: model.SignalCited}, {Signal: model.SignalOverruled},
	}
	assert.Zero(t, consensus(spread))
	assert.Zero(t, consensus(nil))
}

func TestAnalyzeCaseTreatment(t *testing.T) {
	cases := []model.CitingCase{
		{
			CaseID:        "doe-v-roe",
			CaseName:      "Doe v. Roe",
			Citation:      "Doe v. Roe, 500 F.3d 100 (9th Cir. 2021)",
			Signal:        model.SignalFollowed,
			PageReference: "460",
			RelevantText:  "We followed Smith because the contract was never signed.",
		},
		{
			CaseID:       "brown-v-green",
			CaseName:     "Brown v. Green",
			Court:        "Cal.",
			Jurisdiction: "California",
			DecisionDate: dated(2024),
			Signal:       model.SignalQuestioned,
			RelevantText: "We questioned Smith and doubted its reach.",
		},
		{
			CaseID:          "quiet",
			CaseName:        "Quiet v. Case",
			DecisionDate:    dated(2022),
			Signal:          model.SignalCited,
			ConfidenceScore: 0.9,
		},
	}

	a := NewAnalyzer(nil, nil)
	analysis, err := a.AnalyzeCaseTreatment(context.Background(), testDoc, cases, true, true)
	require.NoError(t, err)

	assert.Equal(t, "smith-v-jones", analysis.CaseID)
	require.Len(t, analysis.Contexts, 3)

	doe := analysis.Contexts[0]
	assert.Equal(t, "doe-v-roe", doe.CaseID)
	assert.Equal(t, model.SignalFollowed, doe.Signal)
	assert.Equal(t, 2021, doe.Year, "year recovered from the citation")
	assert.Equal(t, "9th Cir.", doe.Court, "court recovered from the citation")
	assert.Equal(t, "federal", doe.Jurisdiction)
	assert.Equal(t, "the contract was never signed", doe.LegalReasoning)
	assert.Equal(t, []string{"460"}, doe.PageReferences)

	brown := analysis.Contexts[1]
	assert.Equal(t, model.SignalQuestioned, brown.Signal)
	assert.InDelta(t, 0.8, brown.SignalConfidence, 1e-9)
	assert.Equal(t, 2024, brown.Year)
	assert.Less(t, brown.SentimentScore, 0.0)

	quiet := analysis.Contexts[2]
	assert.Equal(t, model.SignalCited, quiet.Signal, "signal carried over when the text has no keywords")
	assert.InDelta(t, unclassifiedConfidenceCap, quiet.SignalConfidence, 1e-9)
	assert.Equal(t, model.ReliabilityLow, quiet.Reliability)

	require.Len(t, analysis.Jurisdictional, 3)
	require.Len(t, analysis.Temporal, 3)
	assert.Equal(t, []int{2021, 2022, 2024}, []int{analysis.Temporal[0].Year, analysis.Temporal[1].Year, analysis.Temporal[2].Year})

	assert.NotEmpty(t, analysis.Insights)
	assert.NotEmpty(t, analysis.Recommendations)
	assert.NotNil(t, analysis.Warnings)
	assertBounded(t, analysis)
}

func TestAnalyzeCaseTreatmentOptionalRollups(t *testing.T) {
	cases := []model.CitingCase{{CaseID: "a", RelevantText: "Followed."}}
	analysis, err := NewAnalyzer(nil, nil).AnalyzeCaseTreatment(context.Background(), testDoc, cases, false, false)
	require.NoError(t, err)
	assert.Nil(t, analysis.Jurisdictional)
	assert.Nil(t, analysis.Temporal)
}

func TestAnalyzeCaseTreatmentEmpty(t *testing.T) {
	analysis, err := NewAnalyzer(nil, nil).AnalyzeCaseTreatment(context.Background(), testDoc, nil, true, true)
	require.NoError(t, err)

	assert.Equal(t, model.SignalNeutral, analysis.OverallTreatment)
	assert.Zero(t, analysis.Confidence)
	assert.Zero(t, analysis.Consensus)
	assert.Empty(t, analysis.Contexts)
	assert.Empty(t, analysis.Patterns)
	assert.Empty(t, analysis.Jurisdictional)
	assert.Empty(t, analysis.Temporal)
	assert.Contains(t, analysis.Recommendations, "Supplement with additional authority; treatment history is limited")
}

func TestAnalyzeCaseTreatmentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []model.CitingCase{{CaseID: "a", RelevantText: "Followed."}}
	_, err := NewAnalyzer(nil, nil).AnalyzeCaseTreatment(ctx, testDoc, cases, true, true)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeCaseTreatmentNegativeWarnings(t *testing.T) {
	var cases []model.CitingCase
	for i, id := range []string{"a", "b", "c"} {
		cases = append(cases, model.CitingCase{
			CaseID:       id,
			DecisionDate: dated(2020 + i),
			RelevantText: "Smith is expressly overruled; its reasoning was erroneous and wrongly applied.",
		})
	}
	analysis, err := NewAnalyzer(nil, nil).AnalyzeCaseTreatment(context.Background(), testDoc, cases, true, true)
	require.NoError(t, err)

	assert.Equal(t, model.SignalOverruled, analysis.OverallTreatment)
	assert.InDelta(t, 1.0, analysis.Confidence, 1e-9)
	assert.Equal(t, 1.0, analysis.Consensus)
	require.NotEmpty(t, analysis.Patterns)
	assert.Equal(t, model.PatternConsistentCriticism, analysis.Patterns[0].Type)
	assert.Contains(t, analysis.Warnings, "3 citing case(s) overrule, reverse, supersede or vacate the decision")
	assert.Equal(t, "Verify current validity before relying on this authority and identify alternative authority", analysis.Recommendations[0])
	assertBounded(t, analysis)
}

func assertBounded(t *testing.T, a *model.TreatmentAnalysis) {
	t.Helper()
	assert.GreaterOrEqual(t, a.Confidence, 0.0)
	assert.LessOrEqual(t, a.Confidence, 1.0)
	assert.GreaterOrEqual(t, a.Consensus, 0.0)
	assert.LessOrEqual(t, a.Consensus, 1.0)
	for _, c := range a.Contexts {
		assert.GreaterOrEqual(t, c.SignalConfidence, 0.0)
		assert.LessOrEqual(t, c.SignalConfidence, 1.0)
		assert.GreaterOrEqual(t, c.SentimentScore, -1.0)
		assert.LessOrEqual(t, c.SentimentScore, 1.0)
	}
	for _, j := range a.Jurisdictional {
		assert.GreaterOrEqual(t, j.Consistency, 0.0)
		assert.LessOrEqual(t, j.Consistency, 1.0)
	}
}
