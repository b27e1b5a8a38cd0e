package model

// CitationType is the kind of authority a citation string points at
type CitationType string

const (
	CitationCase         CitationType = "case"
	CitationStatute      CitationType = "statute"
	CitationRegulation   CitationType = "regulation"
	CitationConstitution CitationType = "constitution"
	CitationLawReview    CitationType = "law_review"
)

// CitationFormat is a citation style guide
type CitationFormat string

const (
	FormatBluebook CitationFormat = "bluebook"
	FormatALWD     CitationFormat = "alwd"
	FormatChicago  CitationFormat = "chicago"
	FormatUnknown  CitationFormat = "unknown"
)

// IssueSeverity grades a validation issue
type IssueSeverity string

const (
	IssueError      IssueSeverity = "error"
	IssueWarning    IssueSeverity = "warning"
	IssueInfo       IssueSeverity = "info"
	IssueSuggestion IssueSeverity = "suggestion"
)

// ValidationIssue is one problem found in a citation string
type ValidationIssue struct {
	Severity   IssueSeverity `json:"severity"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
	Rule       string        `json:"rule,omitempty"`     // Rule identifier, e.g. "reporter_abbreviation"
	Position   *int          `json:"position,omitempty"` // Byte offset into the citation, when known
}

// CitationComponents holds the fields parsed out of one citation string.
// Which fields are populated depends on the citation type.
type CitationComponents struct {
	// Cases
	CaseName          string   `json:"case_name,omitempty"`
	Volume            string   `json:"volume,omitempty"`
	Reporter          string   `json:"reporter,omitempty"`
	Page              string   `json:"page,omitempty"`
	Year              string   `json:"year,omitempty"`
	Court             string   `json:"court,omitempty"`
	Jurisdiction      string   `json:"jurisdiction,omitempty"`
	Pinpoint          string   `json:"pinpoint,omitempty"`
	ParallelCitations []string `json:"parallel_citations,omitempty"`
	ShortForm         bool     `json:"short_form,omitempty"`

	// Statutes, regulations, constitutions
	Title    string `json:"title,omitempty"`
	Section  string `json:"section,omitempty"`
	CodeName string `json:"code_name,omitempty"`

	// Law review articles
	Author        string `json:"author,omitempty"`
	ArticleTitle  string `json:"article_title,omitempty"`
	JournalName   string `json:"journal_name,omitempty"`
	JournalVolume string `json:"journal_volume,omitempty"`
	StartPage     string `json:"start_page,omitempty"`
}

// CitationValidationResult is the outcome of validating one citation string
type CitationValidationResult struct {
	Citation           string             `json:"citation"`
	IsValid            bool               `json:"is_valid"`
	Format             CitationFormat     `json:"format"`
	Type               CitationType       `json:"citation_type"`
	Components         CitationComponents `json:"components"`
	Issues             []ValidationIssue  `json:"issues"`
	NormalizedCitation string             `json:"normalized_citation,omitempty"`
	ConfidenceScore    float64            `json:"confidence_score"`
}

// CountIssues counts issues of the given severity
func (r CitationValidationResult) CountIssues(severity IssueSeverity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}
