package network

import (
	"math"
	"sort"

	"github.com/ppiankov/shepard/internal/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

const (
	pageRankDamping   = 0.85
	pageRankTolerance = 1e-8
	hitsTolerance     = 1e-8
	rankingPrecision  = 1e-9
	topRanked         = 10
)

// citationGraph is the gonum view of a network. Node ids are insertion indexes,
// so every per-node slice below is in insertion order.
type citationGraph struct {
	g     *simple.DirectedGraph
	ids   []string
	index map[string]int64
}

func newCitationGraph(order []string, edges []model.NetworkEdge) *citationGraph {
	cg := &citationGraph{
		g:     simple.NewDirectedGraph(),
		ids:   order,
		index: make(map[string]int64, len(order)),
	}
	for i, id := range order {
		cg.index[id] = int64(i)
		cg.g.AddNode(simple.Node(i))
	}
	for _, e := range edges {
		from, okFrom := cg.index[e.Source]
		to, okTo := cg.index[e.Target]
		if !okFrom || !okTo || from == to {
			continue
		}
		cg.g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}
	return cg
}

func (cg *citationGraph) size() int { return len(cg.ids) }

// metrics holds per-node scores indexed by insertion order
type metrics struct {
	inDegree    []int
	outDegree   []int
	pageRank    []float64
	authority   []float64
	hub         []float64
	betweenness []float64
	closeness   []float64

	averagePathLength float64
}

func computeMetrics(cg *citationGraph, edges []model.NetworkEdge) metrics {
	n := cg.size()
	m := metrics{
		inDegree:  make([]int, n),
		outDegree: make([]int, n),
	}
	for _, e := range edges {
		if from, ok := cg.index[e.Source]; ok {
			m.outDegree[from]++
		}
		if to, ok := cg.index[e.Target]; ok {
			m.inDegree[to]++
		}
	}

	m.pageRank = safeScores(n, 1/float64(n), func() map[int64]float64 {
		return network.PageRank(cg.g, pageRankDamping, pageRankTolerance)
	})
	m.authority, m.hub = hits(cg)
	m.betweenness = safeScores(n, 0, func() map[int64]float64 {
		scores := network.Betweenness(cg.g)
		if n > 2 {
			// Normalize by the number of ordered pairs excluding the node itself
			norm := float64((n - 1) * (n - 2))
			for id, v := range scores {
				scores[id] = v / norm
			}
		}
		return scores
	})
	m.closeness, m.averagePathLength = closeness(cg)
	return m
}

// safeScores runs compute and returns its scores by node index, rounded for stable
// ranking. A panic or any NaN/Inf value yields fallback for every node.
func safeScores(n int, fallback float64, compute func() map[int64]float64) (scores []float64) {
	scores = make([]float64, n)
	defer func() {
		if r := recover(); r != nil {
			fill(scores, fallback)
		}
	}()
	raw := compute()
	for i := range scores {
		v := raw[int64(i)]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			fill(scores, fallback)
			return scores
		}
		scores[i] = round(v)
	}
	return scores
}

// hits returns authority and hub scores. Graphs without edges have no authorities: all zero.
func hits(cg *citationGraph) (authority, hub []float64) {
	n := cg.size()
	var ha map[int64]network.HubAuthority
	if cg.g.Edges().Len() > 0 {
		func() {
			defer func() {
				if recover() != nil {
					ha = nil
				}
			}()
			ha = network.HITS(cg.g, hitsTolerance)
		}()
	}
	authority = safeScores(n, 0, func() map[int64]float64 {
		out := make(map[int64]float64, len(ha))
		for id, v := range ha {
			out[id] = v.Authority
		}
		return out
	})
	hub = safeScores(n, 0, func() map[int64]float64 {
		out := make(map[int64]float64, len(ha))
		for id, v := range ha {
			out[id] = v.Hub
		}
		return out
	})
	return authority, hub
}

// closeness computes Wasserman-Faust closeness on the undirected projection, which
// stays meaningful when parts of the graph are unreachable. It also returns the
// mean shortest path length over all connected pairs.
func closeness(cg *citationGraph) (scores []float64, averagePath float64) {
	n := cg.size()
	scores = make([]float64, n)
	if n < 2 {
		return scores, 0
	}
	defer func() {
		if recover() != nil {
			fill(scores, 0)
			averagePath = 0
		}
	}()

	paths := path.DijkstraAllPaths(graph.Undirect{G: cg.g})
	var totalDist float64
	var pairs int
	for u := 0; u < n; u++ {
		var sum float64
		var reachable int
		for v := 0; v < n; v++ {
			if u == v {
				continue
			}
			d := paths.Weight(int64(u), int64(v))
			if math.IsInf(d, 0) || math.IsNaN(d) {
				continue
			}
			sum += d
			reachable++
		}
		if reachable > 0 && sum > 0 {
			r := float64(reachable)
			scores[u] = round((r / float64(n-1)) * (r / sum))
		}
		totalDist += sum
		pairs += reachable
	}
	if pairs > 0 {
		averagePath = round(totalDist / float64(pairs))
	}
	return scores, averagePath
}

// clusteringCoefficient is the mean local clustering coefficient of the undirected projection
func clusteringCoefficient(cg *citationGraph) float64 {
	n := cg.size()
	if n < 3 {
		return 0
	}
	neighbors := undirectedNeighbors(cg)
	var total float64
	for u := 0; u < n; u++ {
		nb := neighbors[u]
		k := len(nb)
		if k < 2 {
			continue
		}
		var links int
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if cg.g.HasEdgeBetween(nb[i], nb[j]) {
					links++
				}
			}
		}
		total += 2 * float64(links) / float64(k*(k-1))
	}
	return round(total / float64(n))
}

// undirectedNeighbors lists each node's neighbors ignoring direction, sorted by id
func undirectedNeighbors(cg *citationGraph) [][]int64 {
	n := cg.size()
	out := make([][]int64, n)
	for u := 0; u < n; u++ {
		seen := map[int64]bool{}
		it := graph.Undirect{G: cg.g}.From(int64(u))
		for it.Next() {
			if id := it.Node().ID(); !seen[id] {
				seen[id] = true
				out[u] = append(out[u], id)
			}
		}
		sort.Slice(out[u], func(i, j int) bool { return out[u][i] < out[u][j] })
	}
	return out
}

func density(nodes, edges int) float64 {
	if nodes < 2 {
		return 0
	}
	return round(float64(edges) / float64(nodes*(nodes-1)))
}

// visualSize blends in-degree, PageRank and authority, each normalized by its
// maximum, into [0.5, 2.5]
func visualSize(m metrics, i int) float64 {
	blend := 0.3*normalized(float64(m.inDegree[i]), maxInt(m.inDegree)) +
		0.3*normalized(m.pageRank[i], maxFloat(m.pageRank)) +
		0.4*normalized(m.authority[i], maxFloat(m.authority))
	return round(0.5 + 2.0*blend)
}

func normalized(v, maxV float64) float64 {
	if maxV <= 0 {
		return 0
	}
	return v / maxV
}

// rankBy orders node indexes by score, highest first; ties keep insertion order
func rankBy(n int, score func(i int) float64) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return score(idx[a]) > score(idx[b])
	})
	return idx
}

func (cg *citationGraph) idsOf(indexes []int, limit int) []string {
	if limit > 0 && len(indexes) > limit {
		indexes = indexes[:limit]
	}
	out := make([]string, len(indexes))
	for i, idx := range indexes {
		out[i] = cg.ids[idx]
	}
	return out
}

func round(v float64) float64 {
	return math.Round(v/rankingPrecision) * rankingPrecision
}

func fill(s []float64, v float64) {
	for i := range s {
		s[i] = v
	}
}

func maxInt(s []int) float64 {
	m := 0
	for _, v := range s {
		m = max(m, v)
	}
	return float64(m)
}

func maxFloat(s []float64) float64 {
	m := 0.0
	for _, v := range s {
		m = math.Max(m, v)
	}
	return m
}
