// Package shepard checks whether a document is still good law by classifying
// how every later document citing it treats it.
package shepard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ppiankov/shepard/internal/cache"
	"github.com/ppiankov/shepard/internal/citation"
	"github.com/ppiankov/shepard/internal/lookup"
	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
)

const (
	// DefaultCacheTTL is how long an analysis is served from cache
	DefaultCacheTTL = 6 * time.Hour

	cacheNamespace = "shepard"
)

// Engine produces Shepard analyses from an injected citation index
type Engine struct {
	index         lookup.Index
	cache         cache.Cache
	cacheTTL      time.Duration
	lookupTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewEngine creates an engine. A nil cache gets a private in-memory cache;
// pass cache.NopCache{} to disable caching.
func NewEngine(index lookup.Index, cfg model.EngineConfig, c cache.Cache, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if c == nil {
		c = cache.NewMemoryCache(ttl, 10*time.Minute)
	}
	return &Engine{
		index:         index,
		cache:         c,
		cacheTTL:      ttl,
		lookupTimeout: cfg.LookupTimeout,
		logger:        logger.Named("shepard"),
		now:           time.Now,
	}
}

// ShepardizeCase analyzes how later documents treat doc.
// A document nobody cites yields an UNKNOWN status, not an error; an unreachable
// index yields an error satisfying errors.Is(err, lookup.ErrIndexUnavailable).
func (e *Engine) ShepardizeCase(ctx context.Context, doc model.Document, includeHistory, includeHeadnotes bool) (*model.ShepardAnalysis, error) {
	caseID := documentKey(doc)
	key := analysisKey(caseID, includeHistory, includeHeadnotes)

	// A document with neither id nor citation has no identity to cache under
	var cached model.ShepardAnalysis
	if caseID != "" && cache.GetJSON(e.cache, key, &cached) {
		e.logger.Debug("analysis cache hit", zap.String("document", caseID))
		return &cached, nil
	}

	records, err := e.findCiting(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("find citing documents for %q: %w", caseID, err)
	}

	analysis := &model.ShepardAnalysis{
		CaseID:       caseID,
		CaseName:     doc.DisplayName(),
		Citation:     doc.PrimaryCitation(),
		AnalysisDate: e.now().UTC(),
		Alerts:       []string{},
		Warnings:     []string{},
	}
	analysis.CitingCases = e.citingCases(doc, records, analysis)

	agg := aggregate(analysis.CitingCases)
	analysis.OverallStatus = agg.status
	analysis.Confidence = agg.confidence
	analysis.AverageScore = agg.average
	analysis.TotalCitations = len(analysis.CitingCases)
	analysis.PositiveTreatmentCount = agg.positive
	analysis.NegativeTreatmentCount = agg.negative
	analysis.NeutralTreatmentCount = agg.neutral
	analysis.TreatmentSummary = agg.summary
	analysis.PrecedentialValue = precedentialValue(agg, citation.CourtLevelFor(doc.Court, doc.PrimaryCitation()))
	analysis.ReliabilityScore = reliability(agg)

	if includeHistory {
		analysis.History = e.caseHistory(ctx, doc, analysis)
	}
	if includeHeadnotes {
		analysis.Headnotes = headnoteAnalyses(analysis.CitingCases)
	}
	addAlerts(analysis)

	if caseID != "" {
		if err := cache.SetJSON(e.cache, key, analysis, e.cacheTTL); err != nil {
			e.logger.Warn("cache analysis", zap.String("document", caseID), zap.Error(err))
		}
	}

	e.logger.Info("shepardized",
		zap.String("document", caseID),
		zap.String("status", string(analysis.OverallStatus)),
		zap.Int("citing", analysis.TotalCitations),
		zap.Float64("confidence", analysis.Confidence))

	return analysis, nil
}

// Invalidate drops every cached analysis of docID, which is a document's id
// or, for documents without one, its primary citation
func (e *Engine) Invalidate(docID string) {
	for _, history := range []bool{false, true} {
		for _, headnotes := range []bool{false, true} {
			_ = e.cache.Delete(analysisKey(docID, history, headnotes))
		}
	}
}

// documentKey identifies a document for caching: its id, else its primary citation
func documentKey(doc model.Document) string {
	if doc.ID != "" {
		return doc.ID
	}
	return doc.PrimaryCitation()
}

func analysisKey(docID string, includeHistory, includeHeadnotes bool) string {
	return cache.Key(cacheNamespace, docID, strconv.FormatBool(includeHistory), strconv.FormatBool(includeHeadnotes))
}

func (e *Engine) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.lookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.lookupTimeout)
}

func (e *Engine) findCiting(ctx context.Context, doc model.Document) ([]model.CitationRecord, error) {
	lctx, cancel := e.lookupContext(ctx)
	defer cancel()

	records, err := e.index.FindCiting(lctx, doc.Ref())
	if err != nil {
		return nil, lookup.AsUnavailable(fmt.Sprintf("%T", e.index), "citing", err)
	}
	return records, nil
}

// citingCases classifies every index record, skipping records that cannot be used.
// Lookup order is preserved.
func (e *Engine) citingCases(doc model.Document, records []model.CitationRecord, analysis *model.ShepardAnalysis) []model.CitingCase {
	cases := make([]model.CitingCase, 0, len(records))
	for i, r := range records {
		c, err := toCitingCase(r)
		if err != nil {
			e.logger.Warn("skipping citing record",
				zap.String("document", doc.ID),
				zap.Int("index", i),
				zap.String("record", r.ID),
				zap.Error(err))
			analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("Skipped citing record %d (%s): %v", i, recordLabel(r), err))
			continue
		}
		cases = append(cases, c)
	}
	return cases
}

func toCitingCase(r model.CitationRecord) (model.CitingCase, error) {
	if r.ID == "" {
		return model.CitingCase{}, errors.New("missing id")
	}
	date, err := model.ParseDate(r.Date)
	if err != nil {
		return model.CitingCase{}, fmt.Errorf("malformed date %q", r.Date)
	}

	c := model.CitingCase{
		CaseID:            r.ID,
		CaseName:          r.Name,
		Citation:          r.Citation,
		Court:             r.Court,
		Jurisdiction:      r.Jurisdiction,
		DecisionDate:      date,
		Signal:            ClassifySignal(r.RelevantText),
		Context:           ClassifyContext(r.RelevantText),
		PageReference:     r.Page,
		HeadnoteReference: r.Headnote,
		RelevantText:      r.RelevantText,
		ConfidenceScore:   r.EffectiveConfidence(),
	}
	if c.CaseName == "" {
		c.CaseName = r.ID
	}
	if c.Jurisdiction == "" {
		c.Jurisdiction = citation.JurisdictionFor(c.Court, c.Citation)
	}
	return c, nil
}

func recordLabel(r model.CitationRecord) string {
	switch {
	case r.Name != "":
		return r.Name
	case r.ID != "":
		return r.ID
	default:
		return "unnamed"
	}
}
