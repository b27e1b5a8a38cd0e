package model

import "time"

// NetworkScope bounds how far a citation network expands from its center
type NetworkScope string

const (
	ScopeImmediate     NetworkScope = "immediate"
	ScopeExtended      NetworkScope = "extended"
	ScopeComprehensive NetworkScope = "comprehensive"
)

// MaxDepth returns the deepest BFS level the scope permits
func (s NetworkScope) MaxDepth() int {
	switch s {
	case ScopeImmediate:
		return 1
	case ScopeComprehensive:
		return 3
	default:
		return 2
	}
}

// NodeType classifies a network node, derived from the document content type
type NodeType string

const (
	NodeCase         NodeType = "case"
	NodeStatute      NodeType = "statute"
	NodeRegulation   NodeType = "regulation"
	NodeConstitution NodeType = "constitution"
	NodeSecondary    NodeType = "secondary"
	NodeUnknown      NodeType = "unknown"
)

// NodeTypeFor maps a document content type to a node type
func NodeTypeFor(ct ContentType) NodeType {
	switch ct {
	case ContentCaseLaw, "":
		return NodeCase
	case ContentStatute:
		return NodeStatute
	case ContentRegulation:
		return NodeRegulation
	case ContentConstitutional:
		return NodeConstitution
	case ContentLawReview, ContentBrief, ContentPracticeGuide, ContentTreatise:
		return NodeSecondary
	default:
		return NodeUnknown
	}
}

// EdgeType is the direction of a citation relative to the node that discovered it
type EdgeType string

const (
	EdgeCites EdgeType = "cites"
)

// NetworkNode is one document in a citation network
type NetworkNode struct {
	ID                    string     `json:"id"`
	Type                  NodeType   `json:"node_type"`
	Title                 string     `json:"title"`
	Citation              string     `json:"citation,omitempty"`
	Court                 string     `json:"court,omitempty"`
	Jurisdiction          string     `json:"jurisdiction,omitempty"`
	Date                  *time.Time `json:"date,omitempty"`
	Depth                 int        `json:"depth"`
	InDegree              int        `json:"in_degree"`
	OutDegree             int        `json:"out_degree"`
	BetweennessCentrality float64    `json:"betweenness_centrality"`
	ClosenessCentrality   float64    `json:"closeness_centrality"`
	PageRank              float64    `json:"pagerank"`
	AuthorityScore        float64    `json:"authority_score"`
	HubScore              float64    `json:"hub_score"`
	PracticeAreas         []string   `json:"practice_areas,omitempty"`
	LegalConcepts         []string   `json:"legal_concepts,omitempty"`
	Size                  float64    `json:"size"`
	Color                 string     `json:"color"`
}

// NetworkEdge is one citation: Source cites Target
type NetworkEdge struct {
	Source  string          `json:"source"`
	Target  string          `json:"target"`
	Type    EdgeType        `json:"edge_type"`
	Signal  TreatmentSignal `json:"treatment_signal"`
	Weight  float64         `json:"weight"`
	Context string          `json:"context,omitempty"`
}

// NetworkCluster is a group of densely connected documents
type NetworkCluster struct {
	ID                   string   `json:"cluster_id"`
	NodeIDs              []string `json:"node_ids"`
	CentralNode          string   `json:"central_node"`
	DominantPracticeArea string   `json:"dominant_practice_area,omitempty"`
	Coherence            float64  `json:"coherence"`
	Size                 int      `json:"size"`
}

// NetworkPath is a chain of citations between two documents
type NetworkPath struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	NodeIDs  []string `json:"node_ids"`
	Length   int      `json:"length"`
	Strength float64  `json:"strength"` // Geometric mean of edge weights
	Kind     string   `json:"kind"`     // "to_authority", "from_authority", "bridge"
}

// CitationPatterns are distribution dictionaries over the whole network
type CitationPatterns struct {
	NodeTypes      map[NodeType]int        `json:"node_types"`
	Signals        map[TreatmentSignal]int `json:"signals"`
	Jurisdictions  map[string]int          `json:"jurisdictions"`
	Courts         map[string]int          `json:"courts"`
	Years          map[int]int             `json:"years"`
	PracticeAreas  map[string]int          `json:"practice_areas"`
	DepthHistogram map[int]int             `json:"depth_histogram"`
}

// NetworkAnalysis is the citation network built around one document
type NetworkAnalysis struct {
	NetworkID             string                  `json:"network_id"`
	CenterNodeID          string                  `json:"center_node_id"`
	AnalysisDate          time.Time               `json:"analysis_date"`
	Scope                 NetworkScope            `json:"scope"`
	MaxDepth              int                     `json:"max_depth"`
	NodeCount             int                     `json:"node_count"`
	EdgeCount             int                     `json:"edge_count"`
	Density               float64                 `json:"density"`
	AveragePathLength     float64                 `json:"average_path_length"`
	ClusteringCoefficient float64                 `json:"clustering_coefficient"`
	Nodes                 map[string]*NetworkNode `json:"nodes"`
	NodeOrder             []string                `json:"node_order"` // Insertion order, for stable iteration
	Edges                 []NetworkEdge           `json:"edges"`
	MostCited             []string                `json:"most_cited"`
	MostInfluential       []string                `json:"most_influential"`
	AuthorityRankings     []string                `json:"authority_rankings"`
	Clusters              []NetworkCluster        `json:"clusters"`
	Patterns              CitationPatterns        `json:"citation_patterns"`
	KeyPaths              []NetworkPath           `json:"key_paths"`
	Partial               bool                    `json:"partial"` // Expansion stopped early (cap, cancel or deadline)
	Insights              []string                `json:"insights"`
	Warnings              []string                `json:"warnings"`
}

// InfluenceReport summarizes how influential a document is within its citation network
type InfluenceReport struct {
	DocumentID          string         `json:"document_id"`
	NetworkID           string         `json:"network_id"`
	InfluenceScore      float64        `json:"influence_score"` // [0, 1]
	InfluenceLevel      string         `json:"influence_level"` // "high", "moderate", "low", "minimal"
	DirectCitations     int            `json:"direct_citations"`
	IndirectCitations   int            `json:"indirect_citations"`
	AuthorityRank       int            `json:"authority_rank"` // 1-based rank within the network
	PageRank            float64        `json:"pagerank"`
	AuthorityScore      float64        `json:"authority_score"`
	BetweennessScore    float64        `json:"betweenness_centrality"`
	JurisdictionalReach map[string]int `json:"jurisdictional_reach"`
	CitationsByYear     map[int]int    `json:"citations_by_year"`
	TopCitingDocuments  []string       `json:"top_citing_documents"`
	Insights            []string       `json:"insights"`
}
