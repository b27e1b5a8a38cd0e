// Package network maps the citation network around a document: who cites it, what it
// cites, and how authority flows through the resulting graph.
package network

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/shepard/internal/cache"
	"github.com/ppiankov/shepard/internal/citation"
	"github.com/ppiankov/shepard/internal/lookup"
	"github.com/ppiankov/shepard/internal/model"
	"github.com/ppiankov/shepard/internal/shepard"
	"github.com/ppiankov/shepard/internal/worker"
	"go.uber.org/zap"
)

const (
	// DefaultMaxNodes caps a network when neither the caller nor the configuration does
	DefaultMaxNodes = 100

	// DefaultCacheTTL is how long a built network is served from cache
	DefaultCacheTTL = time.Hour

	cacheNamespace = "network"
	maxScopeDepth  = 3
)

type direction string

const (
	dirCiting direction = "citing"
	dirCited  direction = "cited"
)

var directions = [2]direction{dirCiting, dirCited}

// Mapper builds citation networks by breadth-first expansion over a citation index.
// It is safe for concurrent use.
type Mapper struct {
	index         lookup.Index
	pool          *worker.Pool
	cache         cache.Cache
	cacheTTL      time.Duration
	defaults      model.NetworkConfig
	lookupTimeout time.Duration // Per lookup call; 0 means only the caller's context applies
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string
}

// NewMapper creates a network mapper. A nil cache gets a private in-memory cache;
// pass cache.NopCache{} to disable caching.
func NewMapper(index lookup.Index, cfg model.NetworkConfig, lookupTimeout time.Duration, c cache.Cache, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = DefaultMaxNodes
	}
	if cfg.Scope == "" {
		cfg.Scope = model.ScopeExtended
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = cfg.Scope.MaxDepth()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if c == nil {
		c = cache.NewMemoryCache(ttl, 10*time.Minute)
	}
	return &Mapper{
		index:         index,
		pool:          worker.NewPool(cfg.Workers),
		cache:         c,
		cacheTTL:      ttl,
		defaults:      cfg,
		lookupTimeout: lookupTimeout,
		logger:        logger.Named("network"),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// BuildCitationNetwork expands the citation network around doc.
//
// The expansion depth is maxDepth bounded by the scope preset (immediate 1, extended 2,
// comprehensive 3); maxDepth <= 0 uses the preset. The network never holds more than
// maxNodes documents; maxNodes <= 0 uses the configured cap. Hitting the cap, a
// cancelled context or an expired deadline returns the partial network with a warning.
// Failed lookups for doc itself return an error satisfying errors.Is(err, lookup.ErrIndexUnavailable);
// failures deeper in the expansion become warnings.
func (m *Mapper) BuildCitationNetwork(ctx context.Context, doc model.Document, scope model.NetworkScope, maxDepth, maxNodes int) (*model.NetworkAnalysis, error) {
	if scope == "" {
		scope = m.defaults.Scope
	}
	depth := scope.MaxDepth()
	if maxDepth > 0 && maxDepth < depth {
		depth = maxDepth
	}
	if maxNodes <= 0 {
		maxNodes = m.defaults.MaxNodes
	}

	centerID := doc.ID
	if centerID == "" {
		centerID = doc.PrimaryCitation()
	}
	if centerID == "" {
		return nil, errors.New("build citation network: document has neither id nor citation")
	}

	key := cache.Key(cacheNamespace, centerID, string(scope), strconv.Itoa(depth), strconv.Itoa(maxNodes))
	var cached model.NetworkAnalysis
	if cache.GetJSON(m.cache, key, &cached) {
		m.logger.Debug("network cache hit", zap.String("document", centerID))
		return &cached, nil
	}

	b := newBuilder(maxNodes)
	b.insertCenter(centerID, doc)

	if err := m.expand(ctx, b, depth); err != nil {
		return nil, fmt.Errorf("build citation network for %q: %w", centerID, err)
	}

	analysis := b.finalize()
	analysis.NetworkID = m.newID()
	analysis.AnalysisDate = m.now().UTC()
	analysis.Scope = scope
	analysis.MaxDepth = depth

	// Interrupted or degraded expansions depend on timing, so only complete ones are cached
	if !b.interrupted && len(b.lookupFailures) == 0 {
		if err := cache.SetJSON(m.cache, key, analysis, m.cacheTTL); err != nil {
			m.logger.Warn("cache network", zap.String("document", centerID), zap.Error(err))
		}
	}

	m.logger.Info("citation network built",
		zap.String("document", centerID),
		zap.Int("nodes", analysis.NodeCount),
		zap.Int("edges", analysis.EdgeCount),
		zap.Int("depth", depth),
		zap.Bool("partial", analysis.Partial))

	return analysis, nil
}

type lookupResult struct {
	records []model.CitationRecord
	err     error
}

func (r *lookupResult) GetError() error { return r.err }

// expand runs the BFS. Each level's lookups fan out on the pool; this goroutine alone
// merges their results, in submission order, and enforces the node cap.
func (m *Mapper) expand(ctx context.Context, b *builder, depth int) error {
	frontier := []string{b.centerID}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		jobs := make([]worker.Job, 0, len(directions)*len(frontier))
		for _, id := range frontier {
			for _, dir := range directions {
				jobs = append(jobs, m.lookupJob(b.refs[id], dir))
			}
		}
		results := m.pool.Run(ctx, jobs)

		var next []string
		for i, res := range results {
			id, dir := frontier[i/len(directions)], directions[i%len(directions)]
			if res == nil {
				b.interrupt(level, context.Cause(ctx))
				return nil
			}
			if err := res.GetError(); err != nil {
				if ctx.Err() != nil {
					b.interrupt(level, context.Cause(ctx))
					return nil
				}
				if level == 0 {
					return fmt.Errorf("%s lookup: %w", dir, err)
				}
				m.logger.Warn("network lookup failed",
					zap.String("document", id),
					zap.String("direction", string(dir)),
					zap.Error(err))
				b.lookupFailures = append(b.lookupFailures, fmt.Sprintf("%s lookup for %s failed: %v", dir, b.nodes[id].Title, err))
				continue
			}
			for _, r := range res.(*lookupResult).records {
				added, ok := b.add(id, dir, r, level+1)
				if !ok {
					b.capReached(level + 1)
					return nil
				}
				if added {
					next = append(next, r.ID)
				}
			}
		}
		frontier = next
	}
	return nil
}

func (m *Mapper) lookupJob(ref model.DocumentRef, dir direction) worker.Job {
	return worker.JobFunc(func(ctx context.Context) worker.Result {
		lctx, cancel := m.lookupContext(ctx)
		defer cancel()

		var (
			records []model.CitationRecord
			err     error
		)
		if dir == dirCiting {
			records, err = m.index.FindCiting(lctx, ref)
		} else {
			records, err = m.index.FindCited(lctx, ref)
		}
		return &lookupResult{records: records, err: lookup.AsUnavailable(fmt.Sprintf("%T", m.index), string(dir), err)}
	})
}

func (m *Mapper) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.lookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.lookupTimeout)
}

// builder accumulates the graph during expansion. Only the coordinating goroutine touches it.
type builder struct {
	centerID string
	maxNodes int
	nodes    map[string]*model.NetworkNode
	order    []string
	refs     map[string]model.DocumentRef
	edges    []model.NetworkEdge
	edgeSet  map[edgeKey]bool

	interrupted    bool // Cancelled or past its deadline
	capped         bool
	warnings       []string
	lookupFailures []string
}

type edgeKey struct{ source, target string }

func newBuilder(maxNodes int) *builder {
	return &builder{
		maxNodes: max(maxNodes, 1),
		nodes:    make(map[string]*model.NetworkNode),
		refs:     make(map[string]model.DocumentRef),
		edgeSet:  make(map[edgeKey]bool),
	}
}

func (b *builder) insertCenter(id string, doc model.Document) {
	body := doc.Content
	if text, err := citation.PlainText(body); err == nil {
		body = text
	}
	node := &model.NetworkNode{
		ID:           id,
		Type:         model.NodeTypeFor(doc.ContentType),
		Title:        doc.DisplayName(),
		Citation:     doc.PrimaryCitation(),
		Court:        doc.Court,
		Jurisdiction: doc.Jurisdiction,
		Date:         doc.DecisionDate,
	}
	if node.Jurisdiction == "" {
		node.Jurisdiction = citation.JurisdictionFor(doc.Court, node.Citation)
	}
	b.centerID = id
	b.insert(node, doc.Ref(), body)
}

func (b *builder) insert(node *model.NetworkNode, ref model.DocumentRef, body string) {
	text := topicText(node.Title, body)
	node.PracticeAreas = matchTopics(text, practiceAreas)
	node.LegalConcepts = matchTopics(text, legalConcepts)
	node.Color = nodeColors[node.Type]
	b.nodes[node.ID] = node
	b.order = append(b.order, node.ID)
	b.refs[node.ID] = ref
}

// add records r, found by a dir lookup for from. It reports whether r became a new
// node, and false for ok when the node cap stopped the expansion.
func (b *builder) add(from string, dir direction, r model.CitationRecord, depth int) (added, ok bool) {
	if r.ID == "" || r.ID == from {
		return false, true
	}
	if _, exists := b.nodes[r.ID]; !exists {
		if len(b.nodes) >= b.maxNodes {
			return false, false
		}
		b.insertRecord(r, depth)
		added = true
	}

	k := edgeKey{source: r.ID, target: from}
	if dir == dirCited {
		k = edgeKey{source: from, target: r.ID}
	}
	if !b.edgeSet[k] {
		b.edgeSet[k] = true
		edge := model.NetworkEdge{
			Source: k.source,
			Target: k.target,
			Type:   model.EdgeCites,
			Signal: shepard.ClassifySignal(r.RelevantText),
			Weight: r.EffectiveConfidence(),
		}
		if r.RelevantText != "" {
			edge.Context = string(shepard.ClassifyContext(r.RelevantText))
		}
		b.edges = append(b.edges, edge)
	}
	return added, true
}

func (b *builder) insertRecord(r model.CitationRecord, depth int) {
	doc := lookup.RecordDocument(r)
	node := &model.NetworkNode{
		ID:           r.ID,
		Type:         model.NodeTypeFor(doc.ContentType),
		Title:        doc.DisplayName(),
		Citation:     r.Citation,
		Court:        r.Court,
		Jurisdiction: r.Jurisdiction,
		Date:         doc.DecisionDate,
		Depth:        depth,
	}
	if node.Jurisdiction == "" {
		node.Jurisdiction = citation.JurisdictionFor(r.Court, r.Citation)
	}
	b.insert(node, model.DocumentRef{ID: r.ID, Name: r.Name, Citation: r.Citation}, r.Summary)
}

func (b *builder) interrupt(level int, cause error) {
	b.interrupted = true
	b.warnings = append(b.warnings, fmt.Sprintf("Expansion interrupted at depth %d (%v); network is partial", level+1, cause))
}

func (b *builder) capReached(depth int) {
	b.capped = true
	b.warnings = append(b.warnings, fmt.Sprintf("Node cap of %d reached at depth %d; network is partial", b.maxNodes, depth))
}

var nodeColors = map[model.NodeType]string{
	model.NodeCase:         "#1f77b4",
	model.NodeStatute:      "#2ca02c",
	model.NodeRegulation:   "#9467bd",
	model.NodeConstitution: "#d62728",
	model.NodeSecondary:    "#ff7f0e",
	model.NodeUnknown:      "#7f7f7f",
}
