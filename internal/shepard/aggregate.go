package shepard

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/shepard/internal/citation"
	"github.com/ppiankov/shepard/internal/model"
)

const (
	goodLawThreshold      = 0.3
	questionableThreshold = -0.3
	maxStatusConfidence   = 0.9
	noCitersReliability   = 0.5
	lowConfidence         = 0.5
	limitedHistoryCount   = 3
)

// aggregation is the weighted verdict over a set of citing cases
type aggregation struct {
	status        model.CaseStatus
	confidence    float64
	average       float64
	total         int
	positive      int
	negative      int // Negative and cautionary signals
	neutral       int
	fatal         int
	avgConfidence float64
	summary       map[model.TreatmentSignal]int
}

// aggregate weights each signal by its citing case's confidence.
// One fatal signal decides the status as bad law regardless of the rest.
func aggregate(cases []model.CitingCase) aggregation {
	agg := aggregation{
		status:  model.StatusUnknown,
		total:   len(cases),
		summary: make(map[model.TreatmentSignal]int),
	}
	if len(cases) == 0 {
		return agg
	}

	var weighted, totalConfidence float64
	for _, c := range cases {
		agg.summary[c.Signal]++
		switch c.Signal.Category() {
		case model.CategoryPositive:
			agg.positive++
		case model.CategoryNegative:
			agg.negative++
			agg.fatal++
		case model.CategoryCautionary:
			agg.negative++
		default:
			agg.neutral++
		}
		weighted += c.Signal.Weight() * c.ConfidenceScore
		totalConfidence += c.ConfidenceScore
	}

	if totalConfidence > 0 {
		agg.average = weighted / totalConfidence
	}
	agg.avgConfidence = totalConfidence / float64(len(cases))
	agg.confidence = math.Min(maxStatusConfidence, agg.avgConfidence)

	switch {
	case agg.fatal > 0:
		agg.status = model.StatusBadLaw
	case agg.average >= goodLawThreshold:
		agg.status = model.StatusGoodLaw
	case agg.average >= questionableThreshold:
		agg.status = model.StatusQuestionable
	default:
		agg.status = model.StatusBadLaw
	}
	return agg
}

// precedentialValue scores how much weight the document carries as precedent, in [0,1]
func precedentialValue(agg aggregation, level citation.CourtLevel) float64 {
	v := 0.5 +
		math.Min(0.3, float64(agg.total)*0.01) +
		math.Min(0.2, float64(agg.positive)*0.02) +
		courtBonus(level) -
		math.Min(0.4, float64(agg.negative)*0.05)
	return clamp01(v)
}

func courtBonus(level citation.CourtLevel) float64 {
	switch level {
	case citation.CourtUSSupreme, citation.CourtStateSupreme:
		return 0.3
	case citation.CourtCircuit, citation.CourtAppellate:
		return 0.2
	case citation.CourtDistrict:
		return 0.1
	default:
		return 0
	}
}

// reliability discounts the average classification confidence by the share of negative treatment
func reliability(agg aggregation) float64 {
	if agg.total == 0 {
		return noCitersReliability
	}
	negativeShare := float64(agg.negative) / float64(agg.total)
	return clamp01(agg.avgConfidence * (1 - 0.5*negativeShare))
}

// headnoteAnalyses aggregates citing cases per headnote, in first-seen order
func headnoteAnalyses(cases []model.CitingCase) []model.HeadnoteAnalysis {
	var order []string
	groups := make(map[string][]model.CitingCase)
	for _, c := range cases {
		if c.HeadnoteReference == "" {
			continue
		}
		if _, ok := groups[c.HeadnoteReference]; !ok {
			order = append(order, c.HeadnoteReference)
		}
		groups[c.HeadnoteReference] = append(groups[c.HeadnoteReference], c)
	}

	out := make([]model.HeadnoteAnalysis, 0, len(order))
	for _, hn := range order {
		agg := aggregate(groups[hn])
		out = append(out, model.HeadnoteAnalysis{
			Headnote:         hn,
			Status:           agg.status,
			Confidence:       agg.confidence,
			CitingCount:      agg.total,
			TreatmentSummary: agg.summary,
		})
	}
	return out
}

// addAlerts appends the alerts and warnings a researcher must see before relying on the document
func addAlerts(a *model.ShepardAnalysis) {
	for _, c := range a.CitingCases {
		switch c.Signal.Category() {
		case model.CategoryNegative:
			a.Alerts = append(a.Alerts, fmt.Sprintf("%s by %s", signalVerb(c.Signal), describeCiter(c)))
		case model.CategoryCautionary:
			a.Warnings = append(a.Warnings, fmt.Sprintf("%s by %s", signalVerb(c.Signal), describeCiter(c)))
		}
	}

	switch a.OverallStatus {
	case model.StatusBadLaw:
		if a.NegativeTreatmentCount > 0 && len(a.Alerts) == 0 {
			a.Alerts = append(a.Alerts, "Predominantly negative treatment; do not rely on this authority without review")
		}
	case model.StatusQuestionable:
		a.Alerts = append(a.Alerts, "Status is questionable; review negative treatment before relying on this authority")
	}

	for _, h := range a.Headnotes {
		if h.Status == model.StatusBadLaw && a.OverallStatus != model.StatusBadLaw {
			a.Alerts = append(a.Alerts, fmt.Sprintf("Headnote %s has negative treatment", h.Headnote))
		}
	}

	switch {
	case a.TotalCitations == 0:
		a.Warnings = append(a.Warnings, "No citing references found; status cannot be determined")
	case a.TotalCitations < limitedHistoryCount:
		a.Warnings = append(a.Warnings, fmt.Sprintf("Limited citation history (%d citing references)", a.TotalCitations))
	}
	if a.TotalCitations > 0 && a.Confidence < lowConfidence {
		a.Warnings = append(a.Warnings, fmt.Sprintf("Low classification confidence (%.2f)", a.Confidence))
	}
}

func signalVerb(s model.TreatmentSignal) string {
	v := string(s)
	return strings.ToUpper(v[:1]) + v[1:]
}

func describeCiter(c model.CitingCase) string {
	name := c.CaseName
	if c.Citation != "" {
		name += ", " + c.Citation
	}
	if c.DecisionDate != nil {
		name += fmt.Sprintf(" (%d)", c.DecisionDate.Year())
	}
	return name
}

// sortEntries orders history entries by date, undated last, keeping input order for ties
func sortEntries(entries []model.HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].Date, entries[j].Date
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
