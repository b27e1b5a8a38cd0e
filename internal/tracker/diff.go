package tracker

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/shepard/internal/model"
)

// confidenceShift is the absolute confidence delta that counts as a change
const confidenceShift = 0.2

// diffSnapshots compares two consecutive snapshots of one document. A status
// transition already explains the category shift and new negative citers that
// caused it, so those two checks only run while the status holds steady.
func diffSnapshots(prev, cur model.StatusSnapshot, now time.Time, newID func() string) []model.StatusChange {
	var out []model.StatusChange
	add := func(t model.ChangeType, sev model.Severity, desc string) {
		out = append(out, model.StatusChange{
			ID:             newID(),
			DocumentID:     cur.DocumentID,
			Type:           t,
			Severity:       sev,
			PreviousStatus: prev.Status,
			CurrentStatus:  cur.Status,
			Description:    desc,
			FromSnapshotID: prev.ID,
			ToSnapshotID:   cur.ID,
			DetectedAt:     now,
		})
	}

	if prev.Status != cur.Status {
		t, sev := statusTransition(prev.Status, cur.Status)
		add(t, sev, fmt.Sprintf("Status changed from %s to %s", label(prev.Status), label(cur.Status)))
	} else {
		if prev.SignalCategory != cur.SignalCategory {
			add(model.ChangeSignalChanged, categorySeverity(cur.SignalCategory),
				fmt.Sprintf("Dominant treatment changed from %s to %s", prev.SignalCategory, cur.SignalCategory))
		}
		if added := cur.NegativeCount - prev.NegativeCount; added > 0 {
			sev := model.SeverityMedium
			if cur.SignalCategory == model.CategoryNegative {
				sev = model.SeverityHigh
			}
			add(model.ChangeNewNegativeTreatment, sev,
				fmt.Sprintf("%d new negative citing reference(s); %d in total", added, cur.NegativeCount))
		}
	}

	if delta := cur.Confidence - prev.Confidence; math.Abs(delta) > confidenceShift {
		sev := model.SeverityInfo
		direction := "rose"
		if delta < 0 {
			sev = model.SeverityLow
			direction = "dropped"
		}
		add(model.ChangeConfidenceChanged, sev,
			fmt.Sprintf("Confidence %s from %.2f to %.2f", direction, prev.Confidence, cur.Confidence))
	}
	return out
}

func statusTransition(prev, cur model.CaseStatus) (model.ChangeType, model.Severity) {
	switch {
	case cur == model.StatusBadLaw:
		return model.ChangeNewlyOverruled, model.SeverityCritical
	case cur == model.StatusSuperseded:
		return model.ChangeNewlySuperseded, model.SeverityCritical
	case cur == model.StatusQuestionable && prev.Rank() > cur.Rank():
		return model.ChangeNewlyQuestioned, model.SeverityHigh
	case cur.Rank() > prev.Rank():
		if prev.Rank() == 0 {
			// Recovery from bad law is rare and worth a close look
			return model.ChangeStatusImproved, model.SeverityHigh
		}
		return model.ChangeStatusImproved, model.SeverityMedium
	default:
		return model.ChangeStatusDegraded, model.SeverityMedium
	}
}

func categorySeverity(c model.SignalCategory) model.Severity {
	switch c {
	case model.CategoryNegative:
		return model.SeverityHigh
	case model.CategoryCautionary:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func label(s model.CaseStatus) string {
	return strings.ToUpper(string(s))
}

// groupAlerts turns the changes at or above minSeverity into alerts: one per
// critical or high change, the rest together at their highest severity
func groupAlerts(snap model.StatusSnapshot, changes []model.StatusChange, minSeverity model.Severity, now time.Time, newID func() string) []model.StatusAlert {
	var alerts []model.StatusAlert
	var rest []model.StatusChange
	for _, c := range changes {
		if !c.Severity.AtLeast(minSeverity) {
			continue
		}
		if c.Severity.AtLeast(model.SeverityHigh) {
			alerts = append(alerts, newAlert(snap, []model.StatusChange{c}, c.Severity, now, newID))
			continue
		}
		rest = append(rest, c)
	}
	if len(rest) > 0 {
		top := rest[0].Severity
		for _, c := range rest[1:] {
			if c.Severity.Rank() > top.Rank() {
				top = c.Severity
			}
		}
		alerts = append(alerts, newAlert(snap, rest, top, now, newID))
	}
	return alerts
}

func newAlert(snap model.StatusSnapshot, changes []model.StatusChange, sev model.Severity, now time.Time, newID func() string) model.StatusAlert {
	name := snap.DocumentName
	if name == "" {
		name = snap.DocumentID
	}
	title := fmt.Sprintf("%s: %s", name, strings.ReplaceAll(string(changes[0].Type), "_", " "))
	if len(changes) > 1 {
		title = fmt.Sprintf("%s: %d status changes", name, len(changes))
	}
	lines := make([]string, len(changes))
	for i, c := range changes {
		lines[i] = c.Description
	}
	return model.StatusAlert{
		ID:           newID(),
		DocumentID:   snap.DocumentID,
		DocumentName: snap.DocumentName,
		Severity:     sev,
		Title:        title,
		Message:      strings.Join(lines, "; "),
		Changes:      changes,
		CreatedAt:    now,
	}
}
