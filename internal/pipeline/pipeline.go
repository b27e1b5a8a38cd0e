package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/shepard/internal/cache"
	"github.com/ppiankov/shepard/internal/citation"
	"github.com/ppiankov/shepard/internal/llm"
	"github.com/ppiankov/shepard/internal/lookup"
	"github.com/ppiankov/shepard/internal/model"
	"github.com/ppiankov/shepard/internal/network"
	"github.com/ppiankov/shepard/internal/shepard"
	"github.com/ppiankov/shepard/internal/tracker"
	"github.com/ppiankov/shepard/internal/treatment"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pipeline wires the analysis components around one citation index
type Pipeline struct {
	index      lookup.Index
	validator  *citation.Validator
	engine     *shepard.Engine
	analyzer   *treatment.Analyzer
	mapper     *network.Mapper
	tracker    *tracker.Tracker
	summarizer *llm.Summarizer // Optional narrative summarizer (nil if disabled)
	config     *model.Config
	options    Options // Used by AnalyzeID
	logger     *zap.Logger
	now        func() time.Time
}

// Options selects the optional stages of a full analysis
type Options struct {
	ValidateCitations bool // Validate the citations found in the document text
	Treatment         bool
	Network           bool
	Track             bool // Record a status snapshot and raise alerts
	Narrative         bool // Ask the LLM for a summary when a provider is configured
}

// DefaultOptions enables every stage except tracking
func DefaultOptions() Options {
	return Options{
		ValidateCitations: true,
		Treatment:         true,
		Network:           true,
		Narrative:         true,
	}
}

// Deps are the collaborators a pipeline does not build itself
type Deps struct {
	Index lookup.Index
	Store tracker.Store // nil selects an in-memory store
	Cache cache.Cache   // Analysis and network cache; nil gives each component a private memory cache
}

// New creates a pipeline with the given configuration
func New(cfg *model.Config, deps Deps, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if deps.Index == nil {
		return nil, errors.New("new pipeline: citation index is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store := deps.Store
	if store == nil {
		store = tracker.NewMemoryStore()
	}

	// A narrative provider that fails to initialize disables narratives, never the pipeline
	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM), logger)
		if err != nil {
			logger.Warn("failed to initialize LLM provider", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
		} else {
			summarizer = s
		}
	}

	validator := citation.NewValidator(logger)
	return &Pipeline{
		index:      deps.Index,
		validator:  validator,
		engine:     shepard.NewEngine(deps.Index, cfg.Engine, deps.Cache, logger),
		analyzer:   treatment.NewAnalyzer(validator, logger),
		mapper:     network.NewMapper(deps.Index, cfg.Network, cfg.Engine.LookupTimeout, deps.Cache, logger),
		tracker:    tracker.NewTracker(store, cfg.Tracker, logger),
		summarizer: summarizer,
		config:     cfg,
		options:    DefaultOptions(),
		logger:     logger.Named("pipeline"),
		now:        time.Now,
	}, nil
}

// SetOptions changes the stages AnalyzeID runs
func (p *Pipeline) SetOptions(o Options) {
	p.options = o
}

// Close releases the tracker store
func (p *Pipeline) Close() error {
	return p.tracker.Close()
}

// Resolve returns the document with the given id. Indexes that cannot return
// documents, or do not know the id, yield a bare document carrying only the id;
// shepardizing it reports UNKNOWN rather than failing.
func (p *Pipeline) Resolve(ctx context.Context, id string) (model.Document, error) {
	src, ok := p.index.(lookup.DocumentSource)
	if !ok {
		return model.Document{ID: id}, nil
	}
	doc, err := src.Document(ctx, id)
	if errors.Is(err, lookup.ErrDocumentNotFound) {
		p.logger.Debug("document not in index", zap.String("id", id))
		return model.Document{ID: id}, nil
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("resolve %s: %w", id, err)
	}
	return doc, nil
}

// Analyze runs the Shepard analysis of doc and then every stage enabled in opts.
// Treatment and network analyses run concurrently. Only a failed Shepard
// analysis or a failed status write fails the report.
func (p *Pipeline) Analyze(ctx context.Context, doc model.Document, opts Options) (*model.Report, error) {
	report := &model.Report{
		Document:    doc.Ref(),
		GeneratedAt: p.now().UTC(),
		Principles:  model.DefaultPrinciples(),
	}
	report.Document.Name = doc.DisplayName()

	// 1. Validate citations found in the text
	if opts.ValidateCitations && doc.Content != "" {
		results, err := p.validator.ValidateDocumentCitations(ctx, doc, p.config.Validation.FormatPreference)
		if err != nil {
			return nil, fmt.Errorf("validate citations: %w", err)
		}
		report.Citations = results
	}

	// 2. Shepardize
	analysis, err := p.engine.ShepardizeCase(ctx, doc, p.config.Engine.IncludeHistory, p.config.Engine.IncludeHeadnotes)
	if err != nil {
		return nil, fmt.Errorf("shepardize: %w", err)
	}
	report.Shepard = analysis

	// 3. Treatment and network, concurrently; either failing degrades to a warning
	g, gctx := errgroup.WithContext(ctx)
	if opts.Treatment {
		g.Go(func() error {
			t, err := p.analyzer.AnalyzeCaseTreatment(gctx, doc, analysis.CitingCases, true, true)
			if err != nil {
				p.logger.Warn("treatment analysis failed", zap.String("document", doc.ID), zap.Error(err))
				return nil
			}
			report.Treatment = t
			return nil
		})
	}
	if opts.Network {
		g.Go(func() error {
			n, err := p.mapper.BuildCitationNetwork(gctx, doc, p.config.Network.Scope, p.config.Network.MaxDepth, p.config.Network.MaxNodes)
			if err != nil {
				p.logger.Warn("network analysis failed", zap.String("document", doc.ID), zap.Error(err))
				return nil
			}
			report.Network = n
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", doc.ID, err)
	}

	// 4. Record status history
	if opts.Track {
		snap, err := p.tracker.TrackDocumentStatus(ctx, doc, analysis)
		if err != nil {
			return nil, fmt.Errorf("track status: %w", err)
		}
		report.Snapshot = snap
	}

	// 5. Narrative, after all scoring so it cannot affect it
	if opts.Narrative && p.summarizer != nil && p.summarizer.IsEnabled() {
		narrative, err := p.summarizer.GenerateSummary(ctx, *report)
		if err != nil {
			p.logger.Warn("narrative generation failed", zap.Error(err))
		} else {
			report.Narrative = narrative
		}
	}

	return report, nil
}

// AnalyzeID resolves a document id and analyzes it with the pipeline's options
func (p *Pipeline) AnalyzeID(ctx context.Context, id string) (*model.Report, error) {
	doc, err := p.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Analyze(ctx, doc, p.options)
}

// ValidateCitation validates a single citation string
func (p *Pipeline) ValidateCitation(text string, format model.CitationFormat) model.CitationValidationResult {
	if format == "" {
		format = p.config.Validation.FormatPreference
	}
	return p.validator.ValidateCitation(text, format)
}

// ValidateDocument validates every citation in doc's text
func (p *Pipeline) ValidateDocument(ctx context.Context, doc model.Document) ([]model.CitationValidationResult, error) {
	return p.validator.ValidateDocumentCitations(ctx, doc, p.config.Validation.FormatPreference)
}

// Shepardize analyzes how later documents treat doc
func (p *Pipeline) Shepardize(ctx context.Context, doc model.Document) (*model.ShepardAnalysis, error) {
	return p.engine.ShepardizeCase(ctx, doc, p.config.Engine.IncludeHistory, p.config.Engine.IncludeHeadnotes)
}

// Invalidate drops cached analyses of a document
func (p *Pipeline) Invalidate(docID string) {
	p.engine.Invalidate(docID)
}

// Treatment shepardizes doc and analyzes the treatment by its citing cases
func (p *Pipeline) Treatment(ctx context.Context, doc model.Document) (*model.TreatmentAnalysis, error) {
	analysis, err := p.Shepardize(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("shepardize: %w", err)
	}
	return p.analyzer.AnalyzeCaseTreatment(ctx, doc, analysis.CitingCases, true, true)
}

// Network builds the citation network around doc. Zero arguments fall back to configuration.
func (p *Pipeline) Network(ctx context.Context, doc model.Document, scope model.NetworkScope, maxDepth, maxNodes int) (*model.NetworkAnalysis, error) {
	if scope == "" {
		scope = p.config.Network.Scope
	}
	if maxDepth <= 0 {
		maxDepth = p.config.Network.MaxDepth
	}
	if maxNodes <= 0 {
		maxNodes = p.config.Network.MaxNodes
	}
	return p.mapper.BuildCitationNetwork(ctx, doc, scope, maxDepth, maxNodes)
}

// Bridges finds citation paths connecting two documents
func (p *Pipeline) Bridges(ctx context.Context, from, to model.Document, maxDepth int) ([]model.NetworkPath, error) {
	if maxDepth <= 0 {
		maxDepth = p.config.Network.MaxDepth
	}
	return p.mapper.FindCitationBridges(ctx, from, to, maxDepth)
}

// Influence reports how influential doc is within its citation network
func (p *Pipeline) Influence(ctx context.Context, doc model.Document) (*model.InfluenceReport, error) {
	return p.mapper.AnalyzeCitationInfluence(ctx, doc)
}

// Track shepardizes doc and records a status snapshot
func (p *Pipeline) Track(ctx context.Context, doc model.Document) (*model.StatusSnapshot, error) {
	analysis, err := p.Shepardize(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("shepardize: %w", err)
	}
	return p.tracker.TrackDocumentStatus(ctx, doc, analysis)
}

// Trends analyzes a document's status history; nil when there is too little of it
func (p *Pipeline) Trends(ctx context.Context, docID string, periodDays int) (*model.TrendAnalysis, error) {
	return p.tracker.AnalyzeStatusTrends(ctx, docID, periodDays)
}

// History returns every snapshot recorded for a document, oldest first
func (p *Pipeline) History(ctx context.Context, docID string) ([]model.StatusSnapshot, error) {
	return p.tracker.History(ctx, docID)
}

// Changes returns every status change recorded for a document
func (p *Pipeline) Changes(ctx context.Context, docID string) ([]model.StatusChange, error) {
	return p.tracker.Changes(ctx, docID)
}

// Alerts lists unacknowledged alerts at or above minSeverity, most severe first
func (p *Pipeline) Alerts(ctx context.Context, docID string, minSeverity model.Severity) ([]model.StatusAlert, error) {
	return p.tracker.GetPendingAlerts(ctx, docID, minSeverity)
}

// Acknowledge marks an alert acknowledged
func (p *Pipeline) Acknowledge(ctx context.Context, alertID string) (bool, error) {
	return p.tracker.AcknowledgeAlert(ctx, alertID)
}
