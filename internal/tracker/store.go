package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/shepard/internal/model"
)

// ErrAlertNotFound is returned when acknowledging an alert id no store knows
var ErrAlertNotFound = errors.New("alert not found")

// Store persists status history. Snapshots, changes and alerts are append-only;
// the acknowledgement of an alert is the only update. Every implementation is
// safe for concurrent use. Ordering per document is insertion order.
type Store interface {
	AppendSnapshot(ctx context.Context, snap model.StatusSnapshot) error
	// Snapshots returns a document's full history, oldest first
	Snapshots(ctx context.Context, docID string) ([]model.StatusSnapshot, error)
	// LatestSnapshots returns up to n most recent snapshots, oldest first
	LatestSnapshots(ctx context.Context, docID string, n int) ([]model.StatusSnapshot, error)

	AppendChanges(ctx context.Context, changes []model.StatusChange) error
	Changes(ctx context.Context, docID string) ([]model.StatusChange, error)

	AppendAlerts(ctx context.Context, alerts []model.StatusAlert) error
	// Alerts lists alerts in creation order. An empty docID matches every document.
	Alerts(ctx context.Context, docID string, pendingOnly bool) ([]model.StatusAlert, error)
	// AcknowledgeAlert marks an alert acknowledged at ts. It reports false if
	// the alert was already acknowledged and ErrAlertNotFound if it does not exist.
	AcknowledgeAlert(ctx context.Context, alertID string, ts time.Time) (bool, error)

	Close() error
}

// OpenStore creates the store selected by cfg.Store
func OpenStore(ctx context.Context, cfg model.TrackerConfig) (Store, error) {
	switch strings.ToLower(cfg.Store) {
	case "", "memory":
		return NewMemoryStore(), nil

	case "sqlite":
		return OpenSQLiteStore(cfg.SQLitePath)

	case "postgres":
		return OpenPostgresStore(ctx, cfg.PostgresDSN)

	default:
		return nil, fmt.Errorf("unknown tracker store: %s (supported: memory, sqlite, postgres)", cfg.Store)
	}
}

// MemoryStore keeps history in process. It does not survive restarts.
type MemoryStore struct {
	mu         sync.RWMutex
	snapshots  map[string][]model.StatusSnapshot
	changes    map[string][]model.StatusChange
	alerts     []*model.StatusAlert
	alertsByID map[string]*model.StatusAlert
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots:  make(map[string][]model.StatusSnapshot),
		changes:    make(map[string][]model.StatusChange),
		alertsByID: make(map[string]*model.StatusAlert),
	}
}

func (s *MemoryStore) AppendSnapshot(_ context.Context, snap model.StatusSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.DocumentID] = append(s.snapshots[snap.DocumentID], snap)
	return nil
}

func (s *MemoryStore) Snapshots(ctx context.Context, docID string) ([]model.StatusSnapshot, error) {
	return s.LatestSnapshots(ctx, docID, 0)
}

func (s *MemoryStore) LatestSnapshots(_ context.Context, docID string, n int) ([]model.StatusSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.snapshots[docID]
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	return append([]model.StatusSnapshot{}, history...), nil
}

func (s *MemoryStore) AppendChanges(_ context.Context, changes []model.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range changes {
		s.changes[c.DocumentID] = append(s.changes[c.DocumentID], c)
	}
	return nil
}

func (s *MemoryStore) Changes(_ context.Context, docID string) ([]model.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.StatusChange{}, s.changes[docID]...), nil
}

func (s *MemoryStore) AppendAlerts(_ context.Context, alerts []model.StatusAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range alerts {
		if _, dup := s.alertsByID[a.ID]; dup {
			return fmt.Errorf("append alert: duplicate id %s", a.ID)
		}
		s.alerts = append(s.alerts, &a)
		s.alertsByID[a.ID] = &a
	}
	return nil
}

func (s *MemoryStore) Alerts(_ context.Context, docID string, pendingOnly bool) ([]model.StatusAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.StatusAlert{}
	for _, a := range s.alerts {
		if docID != "" && a.DocumentID != docID {
			continue
		}
		if pendingOnly && a.Acknowledged {
			continue
		}
		out = append(out, copyAlert(a))
	}
	return out, nil
}

func (s *MemoryStore) AcknowledgeAlert(_ context.Context, alertID string, ts time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alertsByID[alertID]
	if !ok {
		return false, ErrAlertNotFound
	}
	if a.Acknowledged {
		return false, nil
	}
	a.Acknowledged = true
	a.AcknowledgedDate = &ts
	return true, nil
}

func (s *MemoryStore) Close() error { return nil }

// copyAlert detaches the mutable acknowledgement fields from the stored alert
func copyAlert(a *model.StatusAlert) model.StatusAlert {
	out := *a
	out.Changes = append([]model.StatusChange{}, a.Changes...)
	if a.AcknowledgedDate != nil {
		ts := *a.AcknowledgedDate
		out.AcknowledgedDate = &ts
	}
	return out
}
