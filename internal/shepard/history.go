package shepard

import (
	"context"
	"fmt"

	"github.com/ppiankov/shepard/internal/lookup"
	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
)

// caseHistory asks the index for the procedural history of doc, and otherwise
// reconstructs subsequent history from citing cases that affirm, reverse or vacate it.
// History failures degrade to a warning; the citing analysis is still returned.
func (e *Engine) caseHistory(ctx context.Context, doc model.Document, analysis *model.ShepardAnalysis) *model.CaseHistory {
	if hi, ok := e.index.(lookup.HistoryIndex); ok {
		lctx, cancel := e.lookupContext(ctx)
		h, err := hi.History(lctx, doc.Ref())
		cancel()
		switch {
		case err != nil:
			e.logger.Warn("history lookup failed", zap.String("document", doc.ID), zap.Error(err))
			analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("Procedural history unavailable: %v", err))
		case h != nil:
			return normalizeHistory(h)
		}
	}
	return derivedHistory(analysis.CitingCases)
}

func derivedHistory(cases []model.CitingCase) *model.CaseHistory {
	h := &model.CaseHistory{
		PriorHistory:      []model.HistoryEntry{},
		SubsequentHistory: []model.HistoryEntry{},
		RelatedCases:      []string{},
	}
	for _, c := range cases {
		switch c.Signal {
		case model.SignalAffirmed, model.SignalReversed, model.SignalVacated:
			h.SubsequentHistory = append(h.SubsequentHistory, model.HistoryEntry{
				CaseID:      c.CaseID,
				Court:       c.Court,
				Citation:    c.Citation,
				Date:        c.DecisionDate,
				Disposition: string(c.Signal),
				Signal:      c.Signal,
			})
		}
	}
	sortEntries(h.SubsequentHistory)
	if n := len(h.SubsequentHistory); n > 0 {
		h.FinalDisposition = h.SubsequentHistory[n-1].Disposition
	}
	return h
}

// normalizeHistory replaces nil lists so the JSON shape is stable
func normalizeHistory(h *model.CaseHistory) *model.CaseHistory {
	out := *h
	if out.PriorHistory == nil {
		out.PriorHistory = []model.HistoryEntry{}
	}
	if out.SubsequentHistory == nil {
		out.SubsequentHistory = []model.HistoryEntry{}
	}
	if out.RelatedCases == nil {
		out.RelatedCases = []string{}
	}
	return &out
}
