// Package tracker keeps a per-document history of Shepard results, detects
// status changes between consecutive snapshots and raises alerts for them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
)

// DefaultPeriodDays is the trend window used when none is given
const DefaultPeriodDays = 365

// Tracker records status snapshots and the changes and alerts derived from them
type Tracker struct {
	store         Store
	locks         *keyedMutex
	minSeverity   model.Severity
	defaultPeriod int
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string
}

// NewTracker creates a tracker over store. A nil store keeps history in memory.
func NewTracker(store Store, cfg model.TrackerConfig, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	minSeverity := cfg.AlertMinSeverity
	if minSeverity == "" {
		minSeverity = model.SeverityLow
	}
	period := cfg.DefaultPeriodDays
	if period <= 0 {
		period = DefaultPeriodDays
	}
	return &Tracker{
		store:         store,
		locks:         newKeyedMutex(),
		minSeverity:   minSeverity,
		defaultPeriod: period,
		logger:        logger.Named("tracker"),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// TrackDocumentStatus appends a snapshot of analysis to the document's history
// and diffs it against the previous one. Append and diff happen under the
// document's lock, so concurrent calls for one document never skip a change.
func (t *Tracker) TrackDocumentStatus(ctx context.Context, doc model.Document, analysis *model.ShepardAnalysis) (*model.StatusSnapshot, error) {
	if analysis == nil {
		return nil, errors.New("track document status: analysis is required")
	}
	docID := doc.ID
	if docID == "" {
		docID = analysis.CaseID
	}
	if docID == "" {
		return nil, errors.New("track document status: document id is required")
	}

	unlock := t.locks.Lock(docID)
	defer unlock()

	now := t.now()
	snap := snapshotOf(docID, doc, analysis, now, t.newID())
	if err := t.store.AppendSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("track document status: %w", err)
	}

	latest, err := t.store.LatestSnapshots(ctx, docID, 2)
	if err != nil {
		return nil, fmt.Errorf("track document status: %w", err)
	}
	if len(latest) < 2 {
		return &snap, nil
	}

	changes := diffSnapshots(latest[0], latest[1], now, t.newID)
	if len(changes) == 0 {
		return &snap, nil
	}
	if err := t.store.AppendChanges(ctx, changes); err != nil {
		return nil, fmt.Errorf("track document status: %w", err)
	}
	alerts := groupAlerts(snap, changes, t.minSeverity, now, t.newID)
	if len(alerts) > 0 {
		if err := t.store.AppendAlerts(ctx, alerts); err != nil {
			return nil, fmt.Errorf("track document status: %w", err)
		}
	}

	t.logger.Info("status change detected",
		zap.String("document", docID),
		zap.String("from", string(latest[0].Status)),
		zap.String("to", string(snap.Status)),
		zap.Int("changes", len(changes)),
		zap.Int("alerts", len(alerts)))
	return &snap, nil
}

func snapshotOf(docID string, doc model.Document, a *model.ShepardAnalysis, now time.Time, id string) model.StatusSnapshot {
	name := doc.DisplayName()
	if doc.Title == "" && a.CaseName != "" {
		name = a.CaseName
	}
	jurisdictions := a.Jurisdictions()
	if jurisdictions == nil {
		jurisdictions = []string{}
	}
	status := a.OverallStatus
	if status == "" {
		status = model.StatusUnknown
	}
	return model.StatusSnapshot{
		ID:                id,
		DocumentID:        docID,
		DocumentName:      name,
		Timestamp:         now,
		Status:            status,
		SignalCategory:    a.SignalCategory(),
		Confidence:        a.Confidence,
		TotalCitations:    a.TotalCitations,
		PositiveCount:     a.PositiveTreatmentCount,
		NegativeCount:     a.NegativeTreatmentCount,
		NeutralCount:      a.NeutralTreatmentCount,
		Jurisdictions:     jurisdictions,
		ReliabilityScore:  a.ReliabilityScore,
		PrecedentialValue: a.PrecedentialValue,
	}
}

// GetPendingAlerts lists unacknowledged alerts, most severe first. An empty
// docID covers every document; an empty minSeverity applies no floor.
func (t *Tracker) GetPendingAlerts(ctx context.Context, docID string, minSeverity model.Severity) ([]model.StatusAlert, error) {
	alerts, err := t.store.Alerts(ctx, docID, true)
	if err != nil {
		return nil, fmt.Errorf("get pending alerts: %w", err)
	}
	out := alerts[:0]
	for _, a := range alerts {
		if minSeverity == "" || a.Severity.AtLeast(minSeverity) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out, nil
}

// AcknowledgeAlert marks an alert as seen. It reports false when the alert
// was already acknowledged and returns ErrAlertNotFound for unknown ids.
func (t *Tracker) AcknowledgeAlert(ctx context.Context, alertID string) (bool, error) {
	ok, err := t.store.AcknowledgeAlert(ctx, alertID, t.now())
	if err != nil {
		return false, fmt.Errorf("acknowledge alert %s: %w", alertID, err)
	}
	return ok, nil
}

// History returns every snapshot of a document, oldest first
func (t *Tracker) History(ctx context.Context, docID string) ([]model.StatusSnapshot, error) {
	snaps, err := t.store.Snapshots(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return snaps, nil
}

// Changes returns every status change detected for a document, oldest first
func (t *Tracker) Changes(ctx context.Context, docID string) ([]model.StatusChange, error) {
	changes, err := t.store.Changes(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("changes: %w", err)
	}
	return changes, nil
}

// Close releases the store
func (t *Tracker) Close() error {
	return t.store.Close()
}
