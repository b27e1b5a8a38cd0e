package tracker

import (
	"context"
	"fmt"
	"math"

	"github.com/ppiankov/shepard/internal/model"
)

const (
	minPredictionConfidence = 0.3
	maxPredictionConfidence = 0.7
)

// AnalyzeStatusTrends reports how a document's status moved over the last
// periodDays. It returns nil, nil when the window holds fewer than two snapshots.
func (t *Tracker) AnalyzeStatusTrends(ctx context.Context, docID string, periodDays int) (*model.TrendAnalysis, error) {
	if periodDays <= 0 {
		periodDays = t.defaultPeriod
	}
	history, err := t.store.Snapshots(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("analyze status trends: %w", err)
	}

	end := t.now()
	start := end.AddDate(0, 0, -periodDays)
	var window []model.StatusSnapshot
	for _, s := range history {
		if !s.Timestamp.Before(start) && !s.Timestamp.After(end) {
			window = append(window, s)
		}
	}
	if len(window) < 2 {
		return nil, nil
	}

	slope := statusSlope(window)
	changes := 0
	for i := 1; i < len(window); i++ {
		if window[i].Status != window[i-1].Status {
			changes++
		}
	}
	stability := 1 - float64(changes)/float64(len(window)-1)
	direction := trendDirection(slope)
	current := window[len(window)-1].Status

	tr := &model.TrendAnalysis{
		DocumentID:              docID,
		PeriodDays:              periodDays,
		SnapshotCount:           len(window),
		WindowStart:             start,
		WindowEnd:               end,
		Direction:               direction,
		Slope:                   slope,
		StatusStability:         stability,
		SignalConsistency:       signalConsistency(window),
		JurisdictionalAgreement: jurisdictionalAgreement(window),
		StatusChanges:           changes,
		CurrentStatus:           current,
	}
	tr.PredictedStatus, tr.PredictionConfidence = predictStatus(current, direction, stability, tr.SignalConsistency)
	tr.RiskLevel = riskLevel(current, direction, stability)
	tr.Insights = trendInsights(tr)
	return tr, nil
}

// statusSlope is the least-squares slope of the encoded status over snapshot order
func statusSlope(window []model.StatusSnapshot) float64 {
	n := float64(len(window))
	var sumX, sumY, sumXY, sumXX float64
	for i, s := range window {
		x, y := float64(i), float64(s.Status.Rank())
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func trendDirection(slope float64) model.TemporalTrend {
	switch {
	case slope > 0.5:
		return model.TrendImproving
	case slope < -0.5:
		return model.TrendDeclining
	case math.Abs(slope) < 0.1:
		return model.TrendStable
	default:
		return model.TrendVolatile
	}
}

// signalConsistency is 1 minus the mean coefficient of variation of the
// positive and negative counts
func signalConsistency(window []model.StatusSnapshot) float64 {
	pos := make([]float64, len(window))
	neg := make([]float64, len(window))
	for i, s := range window {
		pos[i] = float64(s.PositiveCount)
		neg[i] = float64(s.NegativeCount)
	}
	return clamp01(1 - (coefficientOfVariation(pos)+coefficientOfVariation(neg))/2)
}

// jurisdictionalAgreement is high when the number of citing jurisdictions holds steady
func jurisdictionalAgreement(window []model.StatusSnapshot) float64 {
	counts := make([]float64, len(window))
	for i, s := range window {
		counts[i] = float64(len(s.Jurisdictions))
	}
	return clamp01(1 - coefficientOfVariation(counts))
}

func coefficientOfVariation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance) / mean
}

// predictStatus extrapolates one step along the trend. It is a heuristic, so
// its confidence never leaves [0.3, 0.7].
func predictStatus(current model.CaseStatus, direction model.TemporalTrend, stability, consistency float64) (model.CaseStatus, float64) {
	predicted := current
	switch direction {
	case model.TrendImproving:
		predicted = betterStatus(current)
	case model.TrendDeclining:
		predicted = worseStatus(current)
	}
	conf := minPredictionConfidence
	if direction != model.TrendVolatile {
		conf += (maxPredictionConfidence - minPredictionConfidence) * stability * consistency
	}
	return predicted, math.Min(maxPredictionConfidence, math.Max(minPredictionConfidence, conf))
}

func betterStatus(s model.CaseStatus) model.CaseStatus {
	switch s {
	case model.StatusBadLaw, model.StatusSuperseded:
		return model.StatusQuestionable
	case model.StatusQuestionable, model.StatusUnknown:
		return model.StatusGoodLaw
	default:
		return s
	}
}

func worseStatus(s model.CaseStatus) model.CaseStatus {
	switch s {
	case model.StatusGoodLaw, model.StatusUnknown:
		return model.StatusQuestionable
	case model.StatusQuestionable:
		return model.StatusBadLaw
	default:
		return s
	}
}

func riskLevel(current model.CaseStatus, direction model.TemporalTrend, stability float64) model.Severity {
	switch {
	case current == model.StatusBadLaw || current == model.StatusSuperseded:
		return model.SeverityCritical
	case current == model.StatusQuestionable || direction == model.TrendDeclining:
		return model.SeverityHigh
	case direction == model.TrendVolatile || stability < 0.5:
		return model.SeverityMedium
	case current == model.StatusGoodLaw:
		return model.SeverityInfo
	default:
		return model.SeverityLow
	}
}

func trendInsights(tr *model.TrendAnalysis) []string {
	out := []string{
		fmt.Sprintf("%d snapshots over %d days; trend is %s (slope %.2f)", tr.SnapshotCount, tr.PeriodDays, tr.Direction, tr.Slope),
	}
	if tr.StatusChanges == 0 {
		out = append(out, fmt.Sprintf("Status held at %s throughout the window", label(tr.CurrentStatus)))
	} else {
		out = append(out, fmt.Sprintf("Status changed %d time(s); currently %s", tr.StatusChanges, label(tr.CurrentStatus)))
	}
	if tr.SignalConsistency < 0.5 {
		out = append(out, "Treatment counts fluctuate widely between snapshots")
	}
	if tr.JurisdictionalAgreement < 0.5 {
		out = append(out, "The set of citing jurisdictions is shifting")
	}
	if tr.PredictedStatus != tr.CurrentStatus {
		out = append(out, fmt.Sprintf("Heuristic outlook: %s (confidence %.2f)", label(tr.PredictedStatus), tr.PredictionConfidence))
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
