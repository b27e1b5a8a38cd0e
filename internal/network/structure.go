package network

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/shepard/internal/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

const (
	minClusterSize = 3
	keyAuthorities = 5
	sparseDensity  = 0.05
)

// finalize computes metrics once over the expanded graph and assembles the analysis
func (b *builder) finalize() *model.NetworkAnalysis {
	cg := newCitationGraph(b.order, b.edges)
	m := computeMetrics(cg, b.edges)

	for i, id := range b.order {
		node := b.nodes[id]
		node.InDegree = m.inDegree[i]
		node.OutDegree = m.outDegree[i]
		node.PageRank = m.pageRank[i]
		node.AuthorityScore = m.authority[i]
		node.HubScore = m.hub[i]
		node.BetweennessCentrality = m.betweenness[i]
		node.ClosenessCentrality = m.closeness[i]
		node.Size = visualSize(m, i)
	}

	n := len(b.order)
	a := &model.NetworkAnalysis{
		CenterNodeID:          b.centerID,
		NodeCount:             n,
		EdgeCount:             len(b.edges),
		Density:               density(n, len(b.edges)),
		AveragePathLength:     m.averagePathLength,
		ClusteringCoefficient: clusteringCoefficient(cg),
		Nodes:                 b.nodes,
		NodeOrder:             append([]string(nil), b.order...),
		Edges:                 append([]model.NetworkEdge{}, b.edges...),
		Partial:               b.interrupted || b.capped,
		Warnings:              append(append([]string{}, b.warnings...), b.lookupFailures...),
	}

	byInDegree := rankBy(n, func(i int) float64 { return float64(m.inDegree[i]) })
	byPageRank := rankBy(n, func(i int) float64 { return m.pageRank[i] })
	byAuthority := rankBy(n, func(i int) float64 { return m.authority[i] })
	a.MostCited = cg.idsOf(byInDegree, topRanked)
	a.MostInfluential = cg.idsOf(byPageRank, topRanked)
	a.AuthorityRankings = cg.idsOf(byAuthority, 0)

	a.Clusters = clusters(cg, b.nodes, m)
	a.Patterns = citationPatterns(b.nodes, b.order, b.edges)
	a.KeyPaths = keyPaths(cg, b.edges, b.centerID, byAuthority)
	a.Insights = networkInsights(a)
	return a
}

// clusters groups connected components of the undirected projection with at least
// minClusterSize nodes. Components and their members are ordered by insertion.
func clusters(cg *citationGraph, nodes map[string]*model.NetworkNode, m metrics) []model.NetworkCluster {
	var components [][]int
	func() {
		defer func() {
			if recover() != nil {
				components = nil
			}
		}()
		for _, comp := range topo.ConnectedComponents(graph.Undirect{G: cg.g}) {
			idx := make([]int, len(comp))
			for i, node := range comp {
				idx[i] = int(node.ID())
			}
			sort.Ints(idx)
			components = append(components, idx)
		}
	}()
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })

	out := []model.NetworkCluster{}
	for _, comp := range components {
		if len(comp) < minClusterSize {
			continue
		}
		central := comp[0]
		areaCounts := map[string]int{}
		var areaOrder []string
		ids := make([]string, len(comp))
		for i, idx := range comp {
			ids[i] = cg.ids[idx]
			if m.pageRank[idx] > m.pageRank[central] {
				central = idx
			}
			for _, area := range nodes[cg.ids[idx]].PracticeAreas {
				if areaCounts[area] == 0 {
					areaOrder = append(areaOrder, area)
				}
				areaCounts[area]++
			}
		}

		dominant := ""
		for _, area := range areaOrder {
			if areaCounts[area] > areaCounts[dominant] {
				dominant = area
			}
		}

		out = append(out, model.NetworkCluster{
			ID:                   fmt.Sprintf("cluster-%d", len(out)+1),
			NodeIDs:              ids,
			CentralNode:          cg.ids[central],
			DominantPracticeArea: dominant,
			Coherence:            coherence(len(areaOrder), len(comp)),
			Size:                 len(comp),
		})
	}
	return out
}

// coherence is 1 - (distinct areas - 1) / nodes: a cluster sharing one practice area is fully coherent
func coherence(distinctAreas, nodes int) float64 {
	if distinctAreas <= 1 || nodes == 0 {
		return 1
	}
	return round(math.Max(0, 1-float64(distinctAreas-1)/float64(nodes)))
}

func citationPatterns(nodes map[string]*model.NetworkNode, order []string, edges []model.NetworkEdge) model.CitationPatterns {
	p := model.CitationPatterns{
		NodeTypes:      map[model.NodeType]int{},
		Signals:        map[model.TreatmentSignal]int{},
		Jurisdictions:  map[string]int{},
		Courts:         map[string]int{},
		Years:          map[int]int{},
		PracticeAreas:  map[string]int{},
		DepthHistogram: map[int]int{},
	}
	for _, id := range order {
		n := nodes[id]
		p.NodeTypes[n.Type]++
		p.DepthHistogram[n.Depth]++
		if n.Jurisdiction != "" {
			p.Jurisdictions[n.Jurisdiction]++
		}
		if n.Court != "" {
			p.Courts[n.Court]++
		}
		if n.Date != nil {
			p.Years[n.Date.Year()]++
		}
		for _, area := range n.PracticeAreas {
			p.PracticeAreas[area]++
		}
	}
	for _, e := range edges {
		p.Signals[e.Signal]++
	}
	return p
}

// adjacency lists each node's successors in edge insertion order
func adjacency(cg *citationGraph, edges []model.NetworkEdge, undirected bool) [][]int {
	adj := make([][]int, cg.size())
	for _, e := range edges {
		from, okFrom := cg.index[e.Source]
		to, okTo := cg.index[e.Target]
		if !okFrom || !okTo {
			continue
		}
		adj[from] = append(adj[from], int(to))
		if undirected {
			adj[to] = append(adj[to], int(from))
		}
	}
	return adj
}

// shortestPath runs a BFS over adj. Neighbors are visited in list order, so equal-length
// alternatives always resolve the same way. It returns nil when to is unreachable.
func shortestPath(adj [][]int, from, to int) []int {
	if from == to {
		return []int{from}
	}
	prev := make([]int, len(adj))
	for i := range prev {
		prev[i] = -1
	}
	prev[from] = from
	queue := []int{from}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range adj[u] {
			if prev[v] != -1 {
				continue
			}
			prev[v] = u
			if v == to {
				var p []int
				for x := to; x != from; x = prev[x] {
					p = append(p, x)
				}
				p = append(p, from)
				for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
					p[i], p[j] = p[j], p[i]
				}
				return p
			}
			queue = append(queue, v)
		}
	}
	return nil
}

// edgeWeights maps each unordered node pair to its heaviest citation weight
func edgeWeights(edges []model.NetworkEdge) map[edgeKey]float64 {
	w := make(map[edgeKey]float64, len(edges))
	for _, e := range edges {
		k := pairKey(e.Source, e.Target)
		w[k] = math.Max(w[k], e.Weight)
	}
	return w
}

func pairKey(a, b string) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{source: a, target: b}
}

// pathStrength is the geometric mean of the edge weights along ids
func pathStrength(ids []string, weights map[edgeKey]float64) float64 {
	if len(ids) < 2 {
		return 0
	}
	var logSum float64
	for i := 1; i < len(ids); i++ {
		w := weights[pairKey(ids[i-1], ids[i])]
		if w <= 0 {
			return 0
		}
		logSum += math.Log(w)
	}
	return round(math.Exp(logSum / float64(len(ids)-1)))
}

func newPath(cg *citationGraph, idx []int, kind string, weights map[edgeKey]float64) model.NetworkPath {
	ids := cg.idsOf(idx, 0)
	return model.NetworkPath{
		Source:   ids[0],
		Target:   ids[len(ids)-1],
		NodeIDs:  ids,
		Length:   len(ids) - 1,
		Strength: pathStrength(ids, weights),
		Kind:     kind,
	}
}

// keyPaths links the center with the top authority nodes in both citation directions,
// strongest and shortest first
func keyPaths(cg *citationGraph, edges []model.NetworkEdge, centerID string, byAuthority []int) []model.NetworkPath {
	out := []model.NetworkPath{}
	center, ok := cg.index[centerID]
	if !ok {
		return out
	}
	adj := adjacency(cg, edges, false)
	weights := edgeWeights(edges)

	var targets []int
	for _, idx := range byAuthority {
		if len(targets) == keyAuthorities {
			break
		}
		if int64(idx) != center {
			targets = append(targets, idx)
		}
	}
	for _, t := range targets {
		if p := shortestPath(adj, int(center), t); p != nil {
			out = append(out, newPath(cg, p, "to_authority", weights))
		}
		if p := shortestPath(adj, t, int(center)); p != nil {
			out = append(out, newPath(cg, p, "from_authority", weights))
		}
	}
	sortPaths(out)
	return out
}

func sortPaths(paths []model.NetworkPath) {
	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].Strength != paths[j].Strength {
			return paths[i].Strength > paths[j].Strength
		}
		return paths[i].Length < paths[j].Length
	})
}

func networkInsights(a *model.NetworkAnalysis) []string {
	out := []string{}
	center := a.Nodes[a.CenterNodeID]
	out = append(out, fmt.Sprintf("Network of %d documents and %d citations around %s", a.NodeCount, a.EdgeCount, center.Title))

	if center.InDegree > 0 {
		out = append(out, fmt.Sprintf("%s is cited by %d documents in the network", center.Title, center.InDegree))
	}
	if len(a.MostCited) > 0 && a.MostCited[0] != a.CenterNodeID {
		top := a.Nodes[a.MostCited[0]]
		if top.InDegree > 0 {
			out = append(out, fmt.Sprintf("Most cited document: %s (%d citations)", top.Title, top.InDegree))
		}
	}
	for rank, id := range a.AuthorityRankings {
		if id == a.CenterNodeID && a.NodeCount > 1 {
			out = append(out, fmt.Sprintf("Authority rank of the center document: %d of %d", rank+1, a.NodeCount))
			break
		}
	}

	var negative int
	for signal, count := range a.Patterns.Signals {
		if signal.IsFatal() {
			negative += count
		}
	}
	if negative > 0 {
		out = append(out, fmt.Sprintf("%d citations in the network carry negative treatment", negative))
	}

	if len(a.Clusters) > 0 {
		largest := a.Clusters[0]
		for _, c := range a.Clusters[1:] {
			if c.Size > largest.Size {
				largest = c
			}
		}
		out = append(out, fmt.Sprintf("%d cluster(s); the largest has %d documents", len(a.Clusters), largest.Size))
	}
	if a.NodeCount > 2 && a.Density < sparseDensity {
		out = append(out, fmt.Sprintf("Sparse network (density %.3f)", a.Density))
	}
	return out
}
