package network

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxBridges           = 10
	topCitingDocuments   = 5
	directCitationsScale = 20.0 // Direct citations at which that component of influence saturates
)

// FindCitationBridges finds citation chains connecting doc1 and doc2. Both networks
// are expanded to maxDepth concurrently; paths run through the direct connection, if
// any, and through every document the two networks share. Direction is ignored.
func (m *Mapper) FindCitationBridges(ctx context.Context, doc1, doc2 model.Document, maxDepth int) ([]model.NetworkPath, error) {
	if maxDepth <= 0 {
		maxDepth = m.defaults.MaxDepth
	}
	maxDepth = min(maxDepth, maxScopeDepth)

	var first, second *model.NetworkAnalysis
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := m.BuildCitationNetwork(gctx, doc1, model.ScopeComprehensive, maxDepth, m.defaults.MaxNodes)
		first = n
		return err
	})
	g.Go(func() error {
		n, err := m.BuildCitationNetwork(gctx, doc2, model.ScopeComprehensive, maxDepth, m.defaults.MaxNodes)
		second = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("find citation bridges: %w", err)
	}

	from, to := first.CenterNodeID, second.CenterNodeID
	if from == to {
		return []model.NetworkPath{}, nil
	}

	order, edges := mergeNetworks(first, second)
	cg := newCitationGraph(order, edges)
	adj := adjacency(cg, edges, true)
	weights := edgeWeights(edges)
	src, dst := int(cg.index[from]), int(cg.index[to])

	var candidates [][]int
	if p := shortestPath(adj, src, dst); p != nil {
		candidates = append(candidates, p)
	}
	for _, id := range order {
		if id == from || id == to {
			continue
		}
		if _, ok := first.Nodes[id]; !ok {
			continue
		}
		if _, ok := second.Nodes[id]; !ok {
			continue
		}
		via := int(cg.index[id])
		head, tail := shortestPath(adj, src, via), shortestPath(adj, via, dst)
		if head == nil || tail == nil {
			continue
		}
		candidates = append(candidates, append(append([]int{}, head...), tail[1:]...))
	}

	paths := []model.NetworkPath{}
	seen := map[string]bool{}
	for _, c := range candidates {
		if !simplePath(c) {
			continue
		}
		p := newPath(cg, c, "bridge", weights)
		key := strings.Join(p.NodeIDs, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		paths = append(paths, p)
	}
	sortPaths(paths)
	if len(paths) > maxBridges {
		paths = paths[:maxBridges]
	}

	m.logger.Debug("citation bridges found",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("paths", len(paths)))
	return paths, nil
}

// mergeNetworks unions two networks: a's nodes first, then b's new ones, edges deduplicated
func mergeNetworks(a, b *model.NetworkAnalysis) ([]string, []model.NetworkEdge) {
	order := append([]string{}, a.NodeOrder...)
	inA := make(map[string]bool, len(order))
	for _, id := range order {
		inA[id] = true
	}
	for _, id := range b.NodeOrder {
		if !inA[id] {
			order = append(order, id)
		}
	}

	edges := append([]model.NetworkEdge{}, a.Edges...)
	seen := make(map[edgeKey]bool, len(edges))
	for _, e := range edges {
		seen[edgeKey{e.Source, e.Target}] = true
	}
	for _, e := range b.Edges {
		if k := (edgeKey{e.Source, e.Target}); !seen[k] {
			seen[k] = true
			edges = append(edges, e)
		}
	}
	return order, edges
}

func simplePath(p []int) bool {
	seen := make(map[int]bool, len(p))
	for _, v := range p {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// AnalyzeCitationInfluence measures how influential doc is within its configured-scope network
func (m *Mapper) AnalyzeCitationInfluence(ctx context.Context, doc model.Document) (*model.InfluenceReport, error) {
	n, err := m.BuildCitationNetwork(ctx, doc, m.defaults.Scope, m.defaults.MaxDepth, m.defaults.MaxNodes)
	if err != nil {
		return nil, fmt.Errorf("analyze citation influence: %w", err)
	}
	center := n.Nodes[n.CenterNodeID]

	// Reverse BFS over citations reaching the center
	citers := map[string][]string{}
	for _, e := range n.Edges {
		citers[e.Target] = append(citers[e.Target], e.Source)
	}
	dist := map[string]int{n.CenterNodeID: 0}
	queue := []string{n.CenterNodeID}
	var reached []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range citers[id] {
			if _, ok := dist[c]; ok {
				continue
			}
			dist[c] = dist[id] + 1
			reached = append(reached, c)
			queue = append(queue, c)
		}
	}

	report := &model.InfluenceReport{
		DocumentID:          n.CenterNodeID,
		NetworkID:           n.NetworkID,
		PageRank:            center.PageRank,
		AuthorityScore:      center.AuthorityScore,
		BetweennessScore:    center.BetweennessCentrality,
		JurisdictionalReach: map[string]int{},
		CitationsByYear:     map[int]int{},
		TopCitingDocuments:  []string{},
		Insights:            []string{},
	}
	var direct []string
	for _, id := range reached {
		node := n.Nodes[id]
		if dist[id] == 1 {
			report.DirectCitations++
			direct = append(direct, id)
			if node.Date != nil {
				report.CitationsByYear[node.Date.Year()]++
			}
		} else {
			report.IndirectCitations++
		}
		jurisdiction := node.Jurisdiction
		if jurisdiction == "" {
			jurisdiction = "unknown"
		}
		report.JurisdictionalReach[jurisdiction]++
	}
	for rank, id := range n.AuthorityRankings {
		if id == n.CenterNodeID {
			report.AuthorityRank = rank + 1
			break
		}
	}

	sort.SliceStable(direct, func(i, j int) bool {
		return n.Nodes[direct[i]].PageRank > n.Nodes[direct[j]].PageRank
	})
	if len(direct) > topCitingDocuments {
		direct = direct[:topCitingDocuments]
	}
	report.TopCitingDocuments = append(report.TopCitingDocuments, direct...)

	var maxPR, maxAuth float64
	for _, node := range n.Nodes {
		maxPR = math.Max(maxPR, node.PageRank)
		maxAuth = math.Max(maxAuth, node.AuthorityScore)
	}
	score := 0.4*normalized(center.PageRank, maxPR) +
		0.3*normalized(center.AuthorityScore, maxAuth) +
		0.3*math.Min(1, float64(report.DirectCitations)/directCitationsScale)
	if report.DirectCitations == 0 {
		// Nothing cites the document: its PageRank share is only the teleport mass
		score = 0
	}
	report.InfluenceScore = round(math.Min(1, math.Max(0, score)))
	report.InfluenceLevel = influenceLevel(report.InfluenceScore)
	report.Insights = influenceInsights(report, center, n)
	return report, nil
}

func influenceLevel(score float64) string {
	switch {
	case score >= 0.7:
		return "high"
	case score >= 0.4:
		return "moderate"
	case score >= 0.15:
		return "low"
	default:
		return "minimal"
	}
}

func influenceInsights(r *model.InfluenceReport, center *model.NetworkNode, n *model.NetworkAnalysis) []string {
	out := []string{
		fmt.Sprintf("%s has %s influence (score %.2f)", center.Title, r.InfluenceLevel, r.InfluenceScore),
		fmt.Sprintf("Cited directly by %d and indirectly by %d documents", r.DirectCitations, r.IndirectCitations),
	}
	if r.AuthorityRank > 0 && n.NodeCount > 1 {
		out = append(out, fmt.Sprintf("Ranks %d of %d by authority in its network", r.AuthorityRank, n.NodeCount))
	}
	if len(r.JurisdictionalReach) > 1 {
		out = append(out, fmt.Sprintf("Cited across %d jurisdictions", len(r.JurisdictionalReach)))
	}
	if n.Partial {
		out = append(out, "Network expansion was partial; influence may be understated")
	}
	return out
}
