package model

import "time"

// Severity grades status changes and alerts
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from info (0) to critical (4); unknown values rank -1
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return -1
	}
}

// AtLeast reports whether s is at or above min
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// ChangeType names the kind of status change detected between two snapshots
type ChangeType string

const (
	ChangeNewlyOverruled       ChangeType = "newly_overruled"
	ChangeNewlySuperseded      ChangeType = "newly_superseded"
	ChangeNewlyQuestioned      ChangeType = "newly_questioned"
	ChangeStatusImproved       ChangeType = "status_improved"
	ChangeStatusDegraded       ChangeType = "status_degraded"
	ChangeSignalChanged        ChangeType = "signal_changed"
	ChangeConfidenceChanged    ChangeType = "confidence_changed"
	ChangeNewNegativeTreatment ChangeType = "new_negative_treatment"
)

// StatusSnapshot is an immutable point-in-time record of a document's status
type StatusSnapshot struct {
	ID                string         `json:"snapshot_id"`
	DocumentID        string         `json:"document_id"`
	DocumentName      string         `json:"document_name,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
	Status            CaseStatus     `json:"status"`
	SignalCategory    SignalCategory `json:"signal_category"`
	Confidence        float64        `json:"confidence"`
	TotalCitations    int            `json:"total_citations"`
	PositiveCount     int            `json:"positive_count"`
	NegativeCount     int            `json:"negative_count"`
	NeutralCount      int            `json:"neutral_count"`
	Jurisdictions     []string       `json:"citing_jurisdictions"`
	ReliabilityScore  float64        `json:"reliability_score"`
	PrecedentialValue float64        `json:"precedential_value"`
}

// StatusChange is derived by diffing two consecutive snapshots
type StatusChange struct {
	ID             string     `json:"change_id"`
	DocumentID     string     `json:"document_id"`
	Type           ChangeType `json:"change_type"`
	Severity       Severity   `json:"severity"`
	PreviousStatus CaseStatus `json:"previous_status"`
	CurrentStatus  CaseStatus `json:"current_status"`
	Description    string     `json:"description"`
	FromSnapshotID string     `json:"from_snapshot_id"`
	ToSnapshotID   string     `json:"to_snapshot_id"`
	DetectedAt     time.Time  `json:"detected_at"`
}

// StatusAlert groups status changes for notification. Acknowledged and
// AcknowledgedDate are the only fields mutated after creation.
type StatusAlert struct {
	ID               string         `json:"alert_id"`
	DocumentID       string         `json:"document_id"`
	DocumentName     string         `json:"document_name,omitempty"`
	Severity         Severity       `json:"severity"`
	Title            string         `json:"title"`
	Message          string         `json:"message"`
	Changes          []StatusChange `json:"changes"`
	CreatedAt        time.Time      `json:"created_at"`
	Acknowledged     bool           `json:"acknowledged"`
	AcknowledgedDate *time.Time     `json:"acknowledged_date,omitempty"`
}

// TrendAnalysis is an on-demand report over a window of snapshot history
type TrendAnalysis struct {
	DocumentID              string        `json:"document_id"`
	PeriodDays              int           `json:"period_days"`
	SnapshotCount           int           `json:"snapshot_count"`
	WindowStart             time.Time     `json:"window_start"`
	WindowEnd               time.Time     `json:"window_end"`
	Direction               TemporalTrend `json:"trend_direction"`
	Slope                   float64       `json:"slope"`
	StatusStability         float64       `json:"status_stability"`
	SignalConsistency       float64       `json:"signal_consistency"`
	JurisdictionalAgreement float64       `json:"jurisdictional_agreement"`
	StatusChanges           int           `json:"status_changes"`
	CurrentStatus           CaseStatus    `json:"current_status"`
	PredictedStatus         CaseStatus    `json:"predicted_status"`
	PredictionConfidence    float64       `json:"prediction_confidence"`
	RiskLevel               Severity      `json:"risk_level"`
	Insights                []string      `json:"insights"`
}
