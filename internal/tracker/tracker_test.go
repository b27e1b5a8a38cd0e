package tracker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/shepard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestTracker(cfg model.TrackerConfig) (*Tracker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewTracker(NewMemoryStore(), cfg, nil)
	tr.now = c.now
	return tr, c
}

var testDoc = model.Document{ID: "smith", Title: "Smith v. Jones"}

func goodAnalysis() *model.ShepardAnalysis {
	return &model.ShepardAnalysis{
		CaseID:                 "smith",
		OverallStatus:          model.StatusGoodLaw,
		Confidence:             0.8,
		TotalCitations:         2,
		PositiveTreatmentCount: 2,
		TreatmentSummary:       map[model.TreatmentSignal]int{model.SignalFollowed: 2},
		CitingCases: []model.CitingCase{
			{CaseID: "c1", Jurisdiction: "federal", Signal: model.SignalFollowed},
			{CaseID: "c2", Jurisdiction: "California", Signal: model.SignalFollowed},
		},
	}
}

func badAnalysis() *model.ShepardAnalysis {
	a := goodAnalysis()
	a.OverallStatus = model.StatusBadLaw
	a.Confidence = 0.75
	a.TotalCitations = 3
	a.NegativeTreatmentCount = 1
	a.TreatmentSummary = map[model.TreatmentSignal]int{model.SignalFollowed: 2, model.SignalOverruled: 1}
	a.CitingCases = append(a.CitingCases, model.CitingCase{CaseID: "c3", Jurisdiction: "federal", Signal: model.SignalOverruled})
	return a
}

func TestGoodGoodBadYieldsOneCriticalChange(t *testing.T) {
	ctx := context.Background()
	tr, c := newTestTracker(model.TrackerConfig{})

	var snaps []*model.StatusSnapshot
	for _, a := range []*model.ShepardAnalysis{goodAnalysis(), goodAnalysis(), badAnalysis()} {
		s, err := tr.TrackDocumentStatus(ctx, testDoc, a)
		require.NoError(t, err)
		snaps = append(snaps, s)
		c.advance(24 * time.Hour)
	}

	changes, err := tr.Changes(ctx, "smith")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeNewlyOverruled, changes[0].Type)
	assert.Equal(t, model.SeverityCritical, changes[0].Severity)
	assert.Equal(t, snaps[1].ID, changes[0].FromSnapshotID)
	assert.Equal(t, snaps[2].ID, changes[0].ToSnapshotID)
	assert.Equal(t, model.StatusGoodLaw, changes[0].PreviousStatus)
	assert.Equal(t, model.StatusBadLaw, changes[0].CurrentStatus)

	alerts, err := tr.GetPendingAlerts(ctx, "smith", "")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Smith v. Jones: newly overruled", alerts[0].Title)

	history, err := tr.History(ctx, "smith")
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, model.CategoryNegative, history[2].SignalCategory)
	assert.Equal(t, []string{"federal", "California"}, history[2].Jurisdictions)
}

func TestTrackDocumentStatusValidation(t *testing.T) {
	tr, _ := newTestTracker(model.TrackerConfig{})
	_, err := tr.TrackDocumentStatus(context.Background(), testDoc, nil)
	assert.Error(t, err)

	_, err = tr.TrackDocumentStatus(context.Background(), model.Document{}, &model.ShepardAnalysis{})
	assert.Error(t, err)

	// The analysis supplies the id when the document has none
	s, err := tr.TrackDocumentStatus(context.Background(), model.Document{}, &model.ShepardAnalysis{CaseID: "x", CaseName: "X v. Y"})
	require.NoError(t, err)
	assert.Equal(t, "x", s.DocumentID)
	assert.Equal(t, "X v. Y", s.DocumentName)
	assert.Equal(t, model.StatusUnknown, s.Status)
	assert.NotNil(t, s.Jurisdictions)
}

func TestDiffSnapshots(t *testing.T) {
	snap := func(status model.CaseStatus, cat model.SignalCategory, neg int, conf float64) model.StatusSnapshot {
		return model.StatusSnapshot{ID: "s", DocumentID: "d", Status: status, SignalCategory: cat, NegativeCount: neg, Confidence: conf}
	}
	type change struct {
		t   model.ChangeType
		sev model.Severity
	}
	tests := []struct {
		name      string
		prev, cur model.StatusSnapshot
		want      []change
	}{
		{"unchanged", snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.8), snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.7), nil},
		{"newly questioned", snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.8), snap(model.StatusQuestionable, model.CategoryCautionary, 1, 0.8),
			[]change{{model.ChangeNewlyQuestioned, model.SeverityHigh}}},
		{"newly superseded", snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.8), snap(model.StatusSuperseded, model.CategoryNegative, 1, 0.8),
			[]change{{model.ChangeNewlySuperseded, model.SeverityCritical}}},
		{"improved", snap(model.StatusQuestionable, model.CategoryCautionary, 1, 0.6), snap(model.StatusGoodLaw, model.CategoryPositive, 1, 0.6),
			[]change{{model.ChangeStatusImproved, model.SeverityMedium}}},
		{"recovered from bad law", snap(model.StatusBadLaw, model.CategoryNegative, 1, 0.6), snap(model.StatusQuestionable, model.CategoryCautionary, 1, 0.6),
			[]change{{model.ChangeStatusImproved, model.SeverityHigh}}},
		{"degraded", snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.6), snap(model.StatusUnknown, model.CategoryNeutral, 0, 0.6),
			[]change{{model.ChangeStatusDegraded, model.SeverityMedium}}},
		{"category and negatives under steady status", snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.8), snap(model.StatusGoodLaw, model.CategoryCautionary, 1, 0.8),
			[]change{{model.ChangeSignalChanged, model.SeverityMedium}, {model.ChangeNewNegativeTreatment, model.SeverityMedium}}},
		{"confidence drop", snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.8), snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.5),
			[]change{{model.ChangeConfidenceChanged, model.SeverityLow}}},
		{"confidence rise", snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.5), snap(model.StatusGoodLaw, model.CategoryPositive, 0, 0.8),
			[]change{{model.ChangeConfidenceChanged, model.SeverityInfo}}},
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 0
			got := diffSnapshots(tt.prev, tt.cur, now, func() string { n++; return fmt.Sprint(n) })
			var gotChanges []change
			for _, c := range got {
				gotChanges = append(gotChanges, change{c.Type, c.Severity})
				assert.NotEmpty(t, c.Description)
			}
			assert.Equal(t, tt.want, gotChanges)
		})
	}
}

func TestGroupAlerts(t *testing.T) {
	changes := []model.StatusChange{
		{Type: model.ChangeNewlyOverruled, Severity: model.SeverityCritical, Description: "a"},
		{Type: model.ChangeSignalChanged, Severity: model.SeverityHigh, Description: "b"},
		{Type: model.ChangeNewNegativeTreatment, Severity: model.SeverityMedium, Description: "c"},
		{Type: model.ChangeConfidenceChanged, Severity: model.SeverityLow, Description: "d"},
		{Type: model.ChangeConfidenceChanged, Severity: model.SeverityInfo, Description: "e"},
	}
	snap := model.StatusSnapshot{DocumentID: "d", DocumentName: "Doe v. Roe"}
	n := 0
	newID := func() string { n++; return fmt.Sprint(n) }

	alerts := groupAlerts(snap, changes, model.SeverityLow, time.Now(), newID)
	require.Len(t, alerts, 3)
	assert.Equal(t, model.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, model.SeverityHigh, alerts[1].Severity)
	assert.Equal(t, model.SeverityMedium, alerts[2].Severity)
	assert.Len(t, alerts[2].Changes, 2)
	assert.Equal(t, "c; d", alerts[2].Message)
	assert.Equal(t, "Doe v. Roe: 2 status changes", alerts[2].Title)

	alerts = groupAlerts(snap, changes, model.SeverityHigh, time.Now(), newID)
	assert.Len(t, alerts, 2)

	alerts = groupAlerts(snap, changes[3:], model.SeverityMedium, time.Now(), newID)
	assert.Empty(t, alerts)
}

func TestMinSeveritySuppressesAlertsNotChanges(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(model.TrackerConfig{AlertMinSeverity: model.SeverityCritical})

	_, err := tr.TrackDocumentStatus(ctx, testDoc, goodAnalysis())
	require.NoError(t, err)
	q := goodAnalysis()
	q.OverallStatus = model.StatusQuestionable
	_, err = tr.TrackDocumentStatus(ctx, testDoc, q)
	require.NoError(t, err)

	changes, err := tr.Changes(ctx, "smith")
	require.NoError(t, err)
	assert.Len(t, changes, 1)

	alerts, err := tr.GetPendingAlerts(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestPendingAlertsAndAcknowledge(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(model.TrackerConfig{})
	require.NoError(t, tr.store.AppendAlerts(ctx, []model.StatusAlert{
		{ID: "low", DocumentID: "a", Severity: model.SeverityLow},
		{ID: "crit", DocumentID: "a", Severity: model.SeverityCritical},
		{ID: "med", DocumentID: "b", Severity: model.SeverityMedium},
	}))

	all, err := tr.GetPendingAlerts(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"crit", "med", "low"}, alertIDs(all))

	medUp, err := tr.GetPendingAlerts(ctx, "", model.SeverityMedium)
	require.NoError(t, err)
	assert.Equal(t, []string{"crit", "med"}, alertIDs(medUp))

	forA, err := tr.GetPendingAlerts(ctx, "a", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"crit", "low"}, alertIDs(forA))

	ok, err := tr.AcknowledgeAlert(ctx, "crit")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = tr.AcknowledgeAlert(ctx, "crit")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = tr.AcknowledgeAlert(ctx, "missing")
	assert.ErrorIs(t, err, ErrAlertNotFound)

	forA, err = tr.GetPendingAlerts(ctx, "a", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"low"}, alertIDs(forA))
}

func TestAcknowledgeConcurrently(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(model.TrackerConfig{})
	var alerts []model.StatusAlert
	for i := 0; i < 50; i++ {
		alerts = append(alerts, model.StatusAlert{ID: fmt.Sprintf("a%d", i), DocumentID: "d", Severity: model.SeverityHigh})
	}
	require.NoError(t, tr.store.AppendAlerts(ctx, alerts))

	var wg sync.WaitGroup
	var mu sync.Mutex
	acked := 0
	for i := 0; i < 50; i++ {
		for dup := 0; dup < 2; dup++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				ok, err := tr.AcknowledgeAlert(ctx, id)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					acked++
					mu.Unlock()
				}
			}(fmt.Sprintf("a%d", i))
		}
	}
	wg.Wait()

	assert.Equal(t, 50, acked, "each alert is acknowledged exactly once")
	pending, err := tr.GetPendingAlerts(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConcurrentTrackingKeepsDiffsConsistent(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(model.TrackerConfig{})
	docs := []string{"d1", "d2", "d3"}

	var wg sync.WaitGroup
	for _, id := range docs {
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id string, i int) {
				defer wg.Done()
				a := goodAnalysis()
				if i%2 == 1 {
					a = badAnalysis()
				}
				_, err := tr.TrackDocumentStatus(ctx, model.Document{ID: id}, a)
				assert.NoError(t, err)
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range docs {
		history, err := tr.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 20)

		transitions := 0
		for i := 1; i < len(history); i++ {
			if history[i].Status != history[i-1].Status {
				transitions++
			}
		}
		changes, err := tr.Changes(ctx, id)
		require.NoError(t, err)
		statusChanges := 0
		for _, c := range changes {
			if c.PreviousStatus != c.CurrentStatus {
				statusChanges++
			}
		}
		assert.Equal(t, transitions, statusChanges, id)
	}
	assert.Zero(t, tr.locks.size())
}

func TestAnalyzeStatusTrendsDeclining(t *testing.T) {
	ctx := context.Background()
	tr, c := newTestTracker(model.TrackerConfig{})

	statuses := []model.CaseStatus{model.StatusGoodLaw, model.StatusGoodLaw, model.StatusQuestionable, model.StatusBadLaw}
	for _, s := range statuses {
		a := goodAnalysis()
		a.OverallStatus = s
		_, err := tr.TrackDocumentStatus(ctx, testDoc, a)
		require.NoError(t, err)
		c.advance(24 * time.Hour)
	}

	tr2, err := tr.AnalyzeStatusTrends(ctx, "smith", 30)
	require.NoError(t, err)
	require.NotNil(t, tr2)
	assert.Equal(t, 4, tr2.SnapshotCount)
	assert.InDelta(t, -1.1, tr2.Slope, 1e-9)
	assert.Equal(t, model.TrendDeclining, tr2.Direction)
	assert.Equal(t, 2, tr2.StatusChanges)
	assert.InDelta(t, 1.0/3, tr2.StatusStability, 1e-9)
	assert.Equal(t, model.StatusBadLaw, tr2.CurrentStatus)
	assert.Equal(t, model.StatusBadLaw, tr2.PredictedStatus)
	assert.Equal(t, model.SeverityCritical, tr2.RiskLevel)
	assert.GreaterOrEqual(t, tr2.PredictionConfidence, 0.3)
	assert.LessOrEqual(t, tr2.PredictionConfidence, 0.7)
	assert.NotEmpty(t, tr2.Insights)
}

func TestAnalyzeStatusTrendsStable(t *testing.T) {
	ctx := context.Background()
	tr, c := newTestTracker(model.TrackerConfig{})
	for i := 0; i < 3; i++ {
		_, err := tr.TrackDocumentStatus(ctx, testDoc, goodAnalysis())
		require.NoError(t, err)
		c.advance(time.Hour)
	}

	got, err := tr.AnalyzeStatusTrends(ctx, "smith", 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, DefaultPeriodDays, got.PeriodDays)
	assert.Equal(t, model.TrendStable, got.Direction)
	assert.Equal(t, 1.0, got.StatusStability)
	assert.Equal(t, 1.0, got.SignalConsistency)
	assert.Equal(t, 1.0, got.JurisdictionalAgreement)
	assert.Equal(t, model.StatusGoodLaw, got.PredictedStatus)
	assert.InDelta(t, 0.7, got.PredictionConfidence, 1e-9)
	assert.Equal(t, model.SeverityInfo, got.RiskLevel)
}

func TestAnalyzeStatusTrendsWindow(t *testing.T) {
	ctx := context.Background()
	tr, c := newTestTracker(model.TrackerConfig{})

	_, err := tr.TrackDocumentStatus(ctx, testDoc, goodAnalysis())
	require.NoError(t, err)
	c.advance(10 * 24 * time.Hour)
	_, err = tr.TrackDocumentStatus(ctx, testDoc, badAnalysis())
	require.NoError(t, err)

	got, err := tr.AnalyzeStatusTrends(ctx, "smith", 5)
	require.NoError(t, err)
	assert.Nil(t, got, "only one snapshot falls inside five days")

	got, err = tr.AnalyzeStatusTrends(ctx, "smith", 30)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.SnapshotCount)

	got, err = tr.AnalyzeStatusTrends(ctx, "nobody", 30)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTrendDirection(t *testing.T) {
	assert.Equal(t, model.TrendImproving, trendDirection(0.6))
	assert.Equal(t, model.TrendDeclining, trendDirection(-0.6))
	assert.Equal(t, model.TrendStable, trendDirection(0.05))
	assert.Equal(t, model.TrendVolatile, trendDirection(0.3))
	assert.Equal(t, model.TrendVolatile, trendDirection(-0.3))
}

func TestPredictionConfidenceBounds(t *testing.T) {
	for _, dir := range []model.TemporalTrend{model.TrendImproving, model.TrendDeclining, model.TrendStable, model.TrendVolatile} {
		for _, stability := range []float64{0, 0.5, 1} {
			for _, consistency := range []float64{0, 0.5, 1} {
				_, conf := predictStatus(model.StatusQuestionable, dir, stability, consistency)
				assert.GreaterOrEqual(t, conf, 0.3)
				assert.LessOrEqual(t, conf, 0.7)
			}
		}
	}
	got, _ := predictStatus(model.StatusQuestionable, model.TrendImproving, 1, 1)
	assert.Equal(t, model.StatusGoodLaw, got)
	got, _ = predictStatus(model.StatusQuestionable, model.TrendDeclining, 1, 1)
	assert.Equal(t, model.StatusBadLaw, got)
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Zero(t, coefficientOfVariation(nil))
	assert.Zero(t, coefficientOfVariation([]float64{0, 0}))
	assert.Zero(t, coefficientOfVariation([]float64{3, 3, 3}))
	assert.InDelta(t, 0.5, coefficientOfVariation([]float64{1, 3}), 1e-9)
}
