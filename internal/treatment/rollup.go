package treatment

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/shepard/internal/citation"
	"github.com/ppiankov/shepard/internal/model"
)

const (
	criticismSentiment   = -0.3
	criticismMinCount    = 3
	splitMinSignals      = 3
	splitMaxShare        = 0.6
	evolvingMinCount     = 5
	evolvingRecent       = 3
	evolvingMinShift     = 0.5
	thoroughMinCount     = 2
	trendThreshold       = 0.2
	lowConsensus         = 0.5
	limitedCitationCount = 3
)

var patternSignificance = map[model.PatternType]float64{
	model.PatternConsistentCriticism: 0.9,
	model.PatternJurisdictionalSplit: 0.8,
	model.PatternEvolvingTreatment:   0.7,
	model.PatternThoroughAnalysis:    0.6,
}

var depthMultiplier = map[model.TreatmentDepth]float64{
	model.DepthSurface:       1.0,
	model.DepthSubstantive:   1.5,
	model.DepthComprehensive: 2.0,
}

var reliabilityMultiplier = map[model.Reliability]float64{
	model.ReliabilityLow:      0.5,
	model.ReliabilityMedium:   0.8,
	model.ReliabilityHigh:     1.0,
	model.ReliabilityVeryHigh: 1.2,
}

var authorityWeights = map[citation.CourtLevel]float64{
	citation.CourtUSSupreme:    1.0,
	citation.CourtStateSupreme: 0.9,
	citation.CourtCircuit:      0.8,
	citation.CourtAppellate:    0.7,
	citation.CourtDistrict:     0.6,
	citation.CourtTrial:        0.4,
	citation.CourtLocal:        0.3,
	citation.CourtUnknown:      0.5,
}

// Roll-up polarity differs from signal categories: only these signals count as positive or negative
func isRollupPositive(s model.TreatmentSignal) bool {
	return s == model.SignalFollowed || s == model.SignalAffirmed || s == model.SignalCited
}

func isRollupNegative(s model.TreatmentSignal) bool {
	return s == model.SignalOverruled || s == model.SignalQuestioned || s == model.SignalCriticized
}

func detectPatterns(contexts []model.TreatmentContext) []model.TreatmentPattern {
	patterns := []model.TreatmentPattern{}
	n := len(contexts)

	var critical []string
	for _, c := range contexts {
		if c.SentimentScore < criticismSentiment {
			critical = append(critical, c.CaseID)
		}
	}
	if len(critical) >= criticismMinCount {
		patterns = append(patterns, newPattern(model.PatternConsistentCriticism,
			fmt.Sprintf("%d citing cases discuss the decision critically", len(critical)), critical))
	}

	dist := signalDistribution(contexts)
	if len(dist) >= splitMinSignals {
		maxCount := 0
		for _, count := range dist {
			maxCount = max(maxCount, count)
		}
		if float64(maxCount)/float64(n) <= splitMaxShare {
			patterns = append(patterns, newPattern(model.PatternJurisdictionalSplit,
				fmt.Sprintf("Courts are split: %d different treatments, none above %.0f%% of citations", len(dist), splitMaxShare*100),
				caseIDs(contexts)))
		}
	}

	if n >= evolvingMinCount {
		ordered := chronological(contexts)
		earlier := meanSentiment(ordered[:n-evolvingRecent])
		recent := meanSentiment(ordered[n-evolvingRecent:])
		if shift := recent - earlier; math.Abs(shift) > evolvingMinShift {
			direction := "more favorable"
			if shift < 0 {
				direction = "less favorable"
			}
			patterns = append(patterns, newPattern(model.PatternEvolvingTreatment,
				fmt.Sprintf("Recent treatment has become %s (sentiment shift %+.2f)", direction, shift),
				caseIDs(ordered[n-evolvingRecent:])))
		}
	}

	var thorough []string
	for _, c := range contexts {
		if c.Depth == model.DepthComprehensive {
			thorough = append(thorough, c.CaseID)
		}
	}
	if len(thorough) >= thoroughMinCount {
		patterns = append(patterns, newPattern(model.PatternThoroughAnalysis,
			fmt.Sprintf("%d citing cases analyze the decision in depth", len(thorough)), thorough))
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Significance > patterns[j].Significance
	})
	return patterns
}

func newPattern(t model.PatternType, description string, ids []string) model.TreatmentPattern {
	return model.TreatmentPattern{
		Type:         t,
		Description:  description,
		Frequency:    len(ids),
		Significance: patternSignificance[t],
		CaseIDs:      ids,
	}
}

// chronological orders contexts by decision year; undated contexts sort first and ties keep input order
func chronological(contexts []model.TreatmentContext) []model.TreatmentContext {
	ordered := append([]model.TreatmentContext(nil), contexts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Year < ordered[j].Year
	})
	return ordered
}

func meanSentiment(contexts []model.TreatmentContext) float64 {
	if len(contexts) == 0 {
		return 0
	}
	var sum float64
	for _, c := range contexts {
		sum += c.SentimentScore
	}
	return sum / float64(len(contexts))
}

func caseIDs(contexts []model.TreatmentContext) []string {
	ids := make([]string, len(contexts))
	for i, c := range contexts {
		ids[i] = c.CaseID
	}
	return ids
}

func signalDistribution(contexts []model.TreatmentContext) map[model.TreatmentSignal]int {
	dist := map[model.TreatmentSignal]int{}
	for _, c := range contexts {
		dist[c.Signal]++
	}
	return dist
}

// dominantSignal returns the most frequent signal, ties going to the earlier signal in precedence order
func dominantSignal(dist map[model.TreatmentSignal]int) model.TreatmentSignal {
	best, bestCount := model.SignalNeutral, 0
	for _, s := range model.AllSignals {
		if dist[s] > bestCount {
			best, bestCount = s, dist[s]
		}
	}
	return best
}

// entropyScore is max(0, 1 - H/2) where H is the Shannon entropy of dist in bits
func entropyScore(dist map[model.TreatmentSignal]int) float64 {
	var total int
	for _, count := range dist {
		total += count
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, s := range model.AllSignals {
		if dist[s] == 0 {
			continue
		}
		p := float64(dist[s]) / float64(total)
		h -= p * math.Log2(p)
	}
	return math.Max(0, 1-h/2.0)
}

func jurisdictionalTreatment(contexts []model.TreatmentContext) []model.JurisdictionalTreatment {
	type groupKey struct{ jurisdiction, court string }
	groups := map[groupKey]*model.JurisdictionalTreatment{}
	var order []groupKey

	for _, c := range contexts {
		k := groupKey{c.Jurisdiction, c.Court}
		if k.jurisdiction == "" {
			k.jurisdiction = "unknown"
		}
		if k.court == "" {
			k.court = "unknown"
		}
		g, ok := groups[k]
		if !ok {
			g = &model.JurisdictionalTreatment{
				Jurisdiction:       k.jurisdiction,
				Court:              k.court,
				AuthorityWeight:    authorityWeights[citation.ClassifyCourt(c.Court)],
				SignalDistribution: map[model.TreatmentSignal]int{},
			}
			groups[k] = g
			order = append(order, k)
		}
		g.TotalCitations++
		g.SignalDistribution[c.Signal]++
		switch {
		case isRollupPositive(c.Signal):
			g.PositiveCount++
		case isRollupNegative(c.Signal):
			g.NegativeCount++
		default:
			g.NeutralCount++
		}
	}

	out := make([]model.JurisdictionalTreatment, 0, len(order))
	for _, k := range order {
		g := groups[k]
		g.DominantSignal = dominantSignal(g.SignalDistribution)
		g.Consistency = entropyScore(g.SignalDistribution)
		out = append(out, *g)
	}
	return out
}

// temporalTreatment buckets dated contexts by year, oldest first. Each year's trend
// compares its average signal weight with the previous bucket's.
func temporalTreatment(contexts []model.TreatmentContext) []model.TemporalTreatment {
	buckets := map[int]*model.TemporalTreatment{}
	weightSums := map[int]float64{}
	for _, c := range contexts {
		if c.Year == 0 {
			continue
		}
		b, ok := buckets[c.Year]
		if !ok {
			b = &model.TemporalTreatment{Year: c.Year, SignalDistribution: map[model.TreatmentSignal]int{}}
			buckets[c.Year] = b
		}
		b.TotalCitations++
		b.SignalDistribution[c.Signal]++
		weightSums[c.Year] += c.Signal.Weight()
		switch {
		case isRollupPositive(c.Signal):
			b.PositiveCount++
		case isRollupNegative(c.Signal):
			b.NegativeCount++
		}
	}

	years := make([]int, 0, len(buckets))
	for y := range buckets {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]model.TemporalTreatment, 0, len(years))
	for i, y := range years {
		b := buckets[y]
		b.AverageWeight = weightSums[y] / float64(b.TotalCitations)
		b.Trend = model.TrendStable
		if i > 0 {
			switch diff := b.AverageWeight - out[i-1].AverageWeight; {
			case diff > trendThreshold:
				b.Trend = model.TrendImproving
			case diff < -trendThreshold:
				b.Trend = model.TrendDeclining
			}
		}
		out = append(out, *b)
	}
	return out
}

// overallTreatment weighs each context by confidence, depth and reliability and picks
// the heaviest signal. Confidence is its share of the total weight.
func overallTreatment(contexts []model.TreatmentContext) (model.TreatmentSignal, float64) {
	weights := map[model.TreatmentSignal]float64{}
	var total float64
	for _, c := range contexts {
		w := c.SignalConfidence * depthMultiplier[c.Depth] * reliabilityMultiplier[c.Reliability]
		weights[c.Signal] += w
		total += w
	}
	if total == 0 {
		return model.SignalNeutral, 0
	}
	best, bestWeight := model.SignalNeutral, 0.0
	for _, s := range model.AllSignals {
		if weights[s] > bestWeight {
			best, bestWeight = s, weights[s]
		}
	}
	return best, clamp(bestWeight/total, 0, 1)
}

// consensus is the entropy score of the raw signal distribution; no contexts means no consensus
func consensus(contexts []model.TreatmentContext) float64 {
	return entropyScore(signalDistribution(contexts))
}

func insights(a *model.TreatmentAnalysis) []string {
	out := []string{}
	n := len(a.Contexts)
	if n == 0 {
		return append(out, "No citing cases to analyze")
	}

	var positive, negative int
	for _, c := range a.Contexts {
		switch c.Signal.Category() {
		case model.CategoryPositive:
			positive++
		case model.CategoryNegative, model.CategoryCautionary:
			negative++
		}
	}
	out = append(out, fmt.Sprintf("%d of %d citing cases treat the decision positively, %d negatively", positive, n, negative))
	out = append(out, fmt.Sprintf("Overall treatment is %s (confidence %.2f, consensus %.2f)", a.OverallTreatment, a.Confidence, a.Consensus))

	for _, p := range a.Patterns {
		out = append(out, p.Description)
	}

	if len(a.Jurisdictional) > 0 {
		top := a.Jurisdictional[0]
		for _, j := range a.Jurisdictional[1:] {
			if j.AuthorityWeight > top.AuthorityWeight {
				top = j
			}
		}
		out = append(out, fmt.Sprintf("Most authoritative treatment: %s (%s), predominantly %s", top.Court, top.Jurisdiction, top.DominantSignal))
	}

	if len(a.Temporal) > 1 {
		last := a.Temporal[len(a.Temporal)-1]
		if last.Trend != model.TrendStable {
			out = append(out, fmt.Sprintf("Treatment in %d is %s compared with the prior year", last.Year, last.Trend))
		}
	}
	return out
}

func warnings(a *model.TreatmentAnalysis) []string {
	out := []string{}
	var fatal, lowReliability int
	for _, c := range a.Contexts {
		if c.Signal.IsFatal() {
			fatal++
		}
		if c.Reliability == model.ReliabilityLow {
			lowReliability++
		}
	}
	if fatal > 0 {
		out = append(out, fmt.Sprintf("%d citing case(s) overrule, reverse, supersede or vacate the decision", fatal))
	}
	if a.OverallTreatment.Category() == model.CategoryNegative || a.OverallTreatment.Category() == model.CategoryCautionary {
		out = append(out, fmt.Sprintf("Dominant treatment is negative (%s)", a.OverallTreatment))
	}
	if len(a.Contexts) > 1 && a.Consensus < lowConsensus {
		out = append(out, fmt.Sprintf("Low consensus among citing courts (%.2f)", a.Consensus))
	}
	if len(a.Contexts) > 0 && lowReliability*2 > len(a.Contexts) {
		out = append(out, fmt.Sprintf("%d of %d treatment classifications have low reliability", lowReliability, len(a.Contexts)))
	}
	return out
}

func recommendations(a *model.TreatmentAnalysis) []string {
	out := []string{}
	has := func(t model.PatternType) bool {
		for _, p := range a.Patterns {
			if p.Type == t {
				return true
			}
		}
		return false
	}

	switch a.OverallTreatment.Category() {
	case model.CategoryNegative:
		out = append(out, "Verify current validity before relying on this authority and identify alternative authority")
	case model.CategoryCautionary:
		out = append(out, "Review the negative treatment and be ready to distinguish it")
	}
	if has(model.PatternConsistentCriticism) {
		out = append(out, "Anticipate opposing counsel relying on the critical citing cases")
	}
	if has(model.PatternJurisdictionalSplit) {
		out = append(out, "Address the split in treatment and favor authority from the controlling jurisdiction")
	}
	if has(model.PatternEvolvingTreatment) {
		out = append(out, "Rely on the most recent treatment when characterizing the decision")
	}
	if has(model.PatternThoroughAnalysis) {
		out = append(out, "Read the citing cases that analyze the decision in depth")
	}
	if len(a.Contexts) < limitedCitationCount {
		out = append(out, "Supplement with additional authority; treatment history is limited")
	}
	if len(out) == 0 {
		out = append(out, "Authority appears reliable for the propositions cited")
	}
	return out
}
