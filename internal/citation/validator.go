package citation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/shepard/internal/model"
	"go.uber.org/zap"
)

// Confidence adjustments applied per validation result
const (
	errorPenalty    = 0.3
	warningPenalty  = 0.1
	infoPenalty     = 0.05
	coreFieldsBonus = 0.1
	reporterBonus   = 0.1

	earliestReportedYear = 1658
)

// Validator parses, validates and normalizes legal citation strings.
// It is safe for concurrent use.
type Validator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewValidator creates a citation validator. A nil logger disables logging.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger, now: time.Now}
}

// ValidateCitation validates one citation string against the preferred style.
// Malformed input never fails: it yields IsValid=false and at least one error issue.
func (v *Validator) ValidateCitation(text string, preference model.CitationFormat) (result model.CitationValidationResult) {
	if preference == "" {
		preference = model.FormatBluebook
	}
	result = model.CitationValidationResult{
		Citation: text,
		Format:   model.FormatUnknown,
		Type:     model.CitationCase,
		Issues:   []model.ValidationIssue{},
	}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("citation validation failed",
				zap.String("citation", text),
				zap.Any("panic", r))
			result.Issues = append(result.Issues, newIssue(model.IssueError, "internal validation failure", "", "internal"))
			result.IsValid = false
			result.ConfidenceScore = 0
		}
	}()

	clean := cleanCitation(text)
	if clean == "" {
		result.Issues = append(result.Issues, newIssue(model.IssueError, "citation is empty", "", "empty"))
		return result
	}

	ctype := DetectType(clean)
	p := parse(ctype, clean)
	result.Type = ctype
	result.Components = p.components
	result.Format = detectFormat(ctype, p, clean)

	var issues []model.ValidationIssue
	switch ctype {
	case model.CitationStatute:
		issues = statuteIssues(clean, p)
	case model.CitationRegulation:
		issues = regulationIssues(clean, p)
	case model.CitationConstitution:
		issues = constitutionIssues(clean, p)
	case model.CitationLawReview:
		issues = lawReviewIssues(p, preference)
	default:
		issues = caseIssues(p, v.now().Year())
	}
	issues = append(issues, formatIssues(result.Format, preference, p.ok)...)
	result.Issues = append(result.Issues, issues...)

	if p.ok {
		result.NormalizedCitation = normalize(ctype, p)
	}
	result.IsValid = result.CountIssues(model.IssueError) == 0
	result.ConfidenceScore = confidence(result, p)

	v.logger.Debug("citation validated",
		zap.String("citation", text),
		zap.String("type", string(ctype)),
		zap.Bool("valid", result.IsValid),
		zap.Int("issues", len(result.Issues)))
	return result
}

// ValidateDocumentCitations validates the document's explicit citations plus every
// citation extracted from its content, in order of first appearance.
func (v *Validator) ValidateDocumentCitations(ctx context.Context, doc model.Document, preference model.CitationFormat) ([]model.CitationValidationResult, error) {
	candidates := append([]string{}, doc.Citations...)
	if doc.Content != "" {
		text, err := PlainText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("extract document text: %w", err)
		}
		candidates = append(candidates, ExtractCitations(text)...)
	}

	seen := make(map[string]bool, len(candidates))
	results := make([]model.CitationValidationResult, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("validate document citations: %w", err)
		}
		key := strings.ToLower(collapseSpaces(cleanCitation(c)))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		results = append(results, v.ValidateCitation(c, preference))
	}
	return results, nil
}

// Normalize parses a citation and reassembles it in Bluebook form.
// It returns false when the citation cannot be parsed.
func Normalize(text string) (string, bool) {
	text = cleanCitation(text)
	ctype := DetectType(text)
	p := parse(ctype, text)
	if !p.ok {
		return "", false
	}
	return normalize(ctype, p), true
}

func newIssue(severity model.IssueSeverity, message, suggestion, rule string) model.ValidationIssue {
	return model.ValidationIssue{
		Severity:   severity,
		Message:    message,
		Suggestion: suggestion,
		Rule:       rule,
	}
}

var versusRe = regexp.MustCompile(`\s(?:vs\.?|v)\s`)

func caseIssues(p parsed, currentYear int) []model.ValidationIssue {
	if !p.ok {
		return []model.ValidationIssue{newIssue(model.IssueError,
			"citation does not match any case citation form",
			"use the form: Name v. Name, Volume Reporter Page (Court Year)",
			"case_format")}
	}

	c := p.components
	var issues []model.ValidationIssue

	if !c.ShortForm && c.CaseName == "" {
		issues = append(issues, newIssue(model.IssueError, "case name is missing", "", "case_name"))
	}

	canonical, known := LookupReporter(c.Reporter)
	switch {
	case !known:
		issues = append(issues, newIssue(model.IssueWarning,
			fmt.Sprintf("reporter abbreviation %q is not recognized", c.Reporter), "", "reporter_abbreviation"))
	case canonical != c.Reporter:
		issues = append(issues, newIssue(model.IssueInfo,
			fmt.Sprintf("reporter abbreviation %q is not in standard form", c.Reporter), canonical, "reporter_abbreviation"))
	}

	if !c.ShortForm {
		if c.Year == "" {
			issues = append(issues, newIssue(model.IssueWarning,
				"year parenthetical is missing", "append (Court Year)", "year_parenthetical"))
		} else if y, err := strconv.Atoi(c.Year); err == nil && (y < earliestReportedYear || y > currentYear+1) {
			issues = append(issues, newIssue(model.IssueError,
				fmt.Sprintf("year %d is outside the range of reported decisions", y), "", "year_range"))
		}

		info, _ := reporterDetails(c.Reporter)
		if c.Court == "" && info.level != "supreme" {
			issues = append(issues, newIssue(model.IssueWarning,
				"deciding court is not identified in the parenthetical", "", "court_identification"))
		}

		if versusRe.MatchString(c.CaseName) {
			issues = append(issues, newIssue(model.IssueWarning,
				`parties must be separated by "v."`, versusRe.ReplaceAllString(c.CaseName, " v. "), "case_name_versus"))
		}
		if first := firstRune(c.CaseName); first != 0 && first >= 'a' && first <= 'z' {
			issues = append(issues, newIssue(model.IssueInfo,
				"case name should begin with a capital letter", "", "capitalization"))
		}
	}

	if c.Pinpoint != "" && c.Page != "" {
		pin, errPin := strconv.Atoi(firstNumber(c.Pinpoint))
		page, errPage := strconv.Atoi(c.Page)
		if errPin == nil && errPage == nil && pin < page {
			issues = append(issues, newIssue(model.IssueWarning,
				fmt.Sprintf("pinpoint %d precedes the first page %d", pin, page), "", "pinpoint_range"))
		}
	}

	if c.ShortForm {
		issues = append(issues, newIssue(model.IssueInfo,
			"short form citation requires a prior full citation", "", "short_form"))
	}
	return issues
}

func statuteIssues(text string, p parsed) []model.ValidationIssue {
	if !p.ok {
		return []model.ValidationIssue{newIssue(model.IssueError,
			"citation does not match a statutory citation form",
			"use the form: Title Code § Section (Year)",
			"statute_format")}
	}
	issues := sectionSymbolIssues(text, p)
	if p.components.Year == "" {
		issues = append(issues, newIssue(model.IssueInfo,
			"code year is not given", "", "code_year"))
	}
	issues = append(issues, codeAbbreviationIssues(text, p.components.CodeName)...)
	return issues
}

func regulationIssues(text string, p parsed) []model.ValidationIssue {
	if !p.ok {
		return []model.ValidationIssue{newIssue(model.IssueError,
			"citation does not match a regulatory citation form",
			"use the form: Title C.F.R. § Section (Year) or Volume Fed. Reg. Page (Date)",
			"regulation_format")}
	}
	var issues []model.ValidationIssue
	if p.components.CodeName == "Fed. Reg." {
		if p.paren == "" {
			issues = append(issues, newIssue(model.IssueWarning,
				"Federal Register citation is missing its date parenthetical", "", "fed_reg_date"))
		}
	} else {
		issues = append(issues, sectionSymbolIssues(text, p)...)
		if p.components.Year == "" {
			issues = append(issues, newIssue(model.IssueInfo,
				"code year is not given", "", "code_year"))
		}
	}
	issues = append(issues, codeAbbreviationIssues(text, p.components.CodeName)...)
	return issues
}

func sectionSymbolIssues(text string, p parsed) []model.ValidationIssue {
	if p.symbol == "" {
		return []model.ValidationIssue{newIssue(model.IssueWarning,
			"section symbol is missing", "insert § before the section number", "section_symbol")}
	}
	idx := strings.Index(text, p.symbol)
	end := idx + len(p.symbol)
	if idx >= 0 && end < len(text) && text[end] != ' ' {
		is := newIssue(model.IssueWarning,
			"section symbol must be followed by a space", p.symbol+" "+p.components.Section, "section_symbol_spacing")
		is.Position = &idx
		return []model.ValidationIssue{is}
	}
	return nil
}

func codeAbbreviationIssues(text, code string) []model.ValidationIssue {
	canonical := canonicalCode(code)
	if strings.Contains(text, canonical) {
		return nil
	}
	return []model.ValidationIssue{newIssue(model.IssueInfo,
		fmt.Sprintf("code abbreviation should be written %q", canonical), canonical, "code_abbreviation")}
}

func constitutionIssues(text string, p parsed) []model.ValidationIssue {
	if !p.ok {
		if strings.Contains(strings.ToLower(text), "constitution") {
			return []model.ValidationIssue{newIssue(model.IssueError,
				`constitution must be abbreviated "Const." with an article or amendment`,
				"U.S. Const. art. I, § 8", "constitution_format")}
		}
		return []model.ValidationIssue{newIssue(model.IssueError,
			"constitutional citation is missing its article or amendment",
			"U.S. Const. amend. XIV, § 1", "constitution_format")}
	}
	s := p.components.Section
	if strings.HasPrefix(s, "Art.") || strings.HasPrefix(s, "Amend.") || strings.HasPrefix(s, "Pmbl.") {
		return []model.ValidationIssue{newIssue(model.IssueInfo,
			"article and amendment abbreviations are lowercase", lowerDivision(s), "constitution_capitalization")}
	}
	return nil
}

var unabbreviatedJournalRe = regexp.MustCompile(`\b(?:Law Review|Journal|Review|Quarterly|University)\b`)

func lawReviewIssues(p parsed, preference model.CitationFormat) []model.ValidationIssue {
	if !p.ok {
		return []model.ValidationIssue{newIssue(model.IssueError,
			"citation does not match the law review form",
			"use the form: Author, Title, Volume Journal Page (Year)",
			"law_review_format")}
	}
	var issues []model.ValidationIssue
	if p.components.Year == "" {
		issues = append(issues, newIssue(model.IssueWarning,
			"year parenthetical is missing", "", "year_parenthetical"))
	}
	if unabbreviatedJournalRe.MatchString(p.components.JournalName) {
		issues = append(issues, newIssue(model.IssueWarning,
			fmt.Sprintf("journal name %q should be abbreviated", p.components.JournalName),
			"e.g. L. Rev., L.J., Q.", "journal_abbreviation"))
	}
	if p.quotedTitle && preference != model.FormatChicago {
		issues = append(issues, newIssue(model.IssueInfo,
			"article titles are italicized, not quoted", "", "article_title"))
	}
	return issues
}

// detectFormat guesses the citation style from structural cues
func detectFormat(ctype model.CitationType, p parsed, text string) model.CitationFormat {
	if !p.ok {
		return model.FormatUnknown
	}
	c := p.components
	switch ctype {
	case model.CitationCase:
		switch {
		case c.ShortForm:
			return model.FormatBluebook
		case c.Year == "":
			return model.FormatUnknown
		case p.fullDate:
			return model.FormatALWD
		default:
			return model.FormatBluebook
		}
	case model.CitationStatute, model.CitationRegulation:
		if c.CodeName == "Fed. Reg." {
			return model.FormatBluebook
		}
		if p.symbol == "" || len(sectionSymbolIssues(text, p)) > 0 {
			return model.FormatUnknown
		}
		return model.FormatBluebook
	case model.CitationConstitution:
		return model.FormatBluebook
	case model.CitationLawReview:
		switch {
		case p.quotedTitle:
			return model.FormatChicago
		case c.Year != "":
			return model.FormatBluebook
		}
	}
	return model.FormatUnknown
}

func formatIssues(format, preference model.CitationFormat, parsedOK bool) []model.ValidationIssue {
	if !parsedOK {
		return nil
	}
	if format == model.FormatUnknown {
		return []model.ValidationIssue{newIssue(model.IssueInfo,
			"citation style could not be determined", "", "format_detection")}
	}
	if preference != model.FormatUnknown && format != preference {
		return []model.ValidationIssue{newIssue(model.IssueWarning,
			fmt.Sprintf("citation appears to follow %s style, not %s", format, preference), "", "format_preference")}
	}
	return nil
}

func confidence(r model.CitationValidationResult, p parsed) float64 {
	score := 1.0
	score -= errorPenalty * float64(r.CountIssues(model.IssueError))
	score -= warningPenalty * float64(r.CountIssues(model.IssueWarning))
	score -= infoPenalty * float64(r.CountIssues(model.IssueInfo))
	if p.ok && coreFieldsPresent(r.Type, r.Components) {
		score += coreFieldsBonus
	}
	if r.Type == model.CitationCase {
		if _, ok := LookupReporter(r.Components.Reporter); ok {
			score += reporterBonus
		}
	}
	return clamp01(score)
}

func coreFieldsPresent(ctype model.CitationType, c model.CitationComponents) bool {
	switch ctype {
	case model.CitationStatute:
		return c.CodeName != "" && c.Section != ""
	case model.CitationRegulation:
		return c.Title != "" && c.Section != ""
	case model.CitationConstitution:
		return c.CodeName != "" && c.Section != ""
	case model.CitationLawReview:
		return c.Author != "" && c.ArticleTitle != "" && c.JournalVolume != "" && c.JournalName != "" && c.StartPage != ""
	default:
		if c.ShortForm {
			return c.Volume != "" && c.Reporter != "" && c.Pinpoint != ""
		}
		return c.CaseName != "" && c.Volume != "" && c.Reporter != "" && c.Page != "" && c.Year != ""
	}
}

// normalize reassembles parsed components into the Bluebook template for the type
func normalize(ctype model.CitationType, p parsed) string {
	c := p.components
	var b strings.Builder
	switch ctype {
	case model.CitationStatute, model.CitationRegulation:
		if c.Title != "" {
			b.WriteString(c.Title + " ")
		}
		b.WriteString(canonicalCode(c.CodeName))
		if c.CodeName == "Fed. Reg." {
			b.WriteString(" " + c.Section)
		} else {
			symbol := p.symbol
			if symbol == "" {
				symbol = "§"
			}
			b.WriteString(" " + symbol + " " + c.Section)
		}
		writeParen(&b, collapseSpaces(p.paren))
	case model.CitationConstitution:
		b.WriteString(c.CodeName + " " + lowerDivision(c.Section))
		writeParen(&b, collapseSpaces(p.paren))
	case model.CitationLawReview:
		b.WriteString(c.Author + ", " + c.ArticleTitle + ", " + c.JournalVolume + " " + c.JournalName + " " + c.StartPage)
		if c.Pinpoint != "" {
			b.WriteString(", " + c.Pinpoint)
		}
		writeParen(&b, c.Year)
	default:
		name := versusRe.ReplaceAllString(c.CaseName, " v. ")
		if c.ShortForm {
			if name != "" {
				b.WriteString(name + ", ")
			}
			b.WriteString(c.Volume + " " + canonicalReporter(c.Reporter) + " at " + c.Pinpoint)
			return b.String()
		}
		b.WriteString(name + ", " + c.Volume + " " + canonicalReporter(c.Reporter) + " " + c.Page)
		if c.Pinpoint != "" {
			b.WriteString(", " + c.Pinpoint)
		}
		for _, par := range c.ParallelCitations {
			b.WriteString(", " + normalizeParallel(par))
		}
		writeParen(&b, strings.TrimSpace(c.Court+" "+c.Year))
	}
	return b.String()
}

func writeParen(b *strings.Builder, inner string) {
	if inner != "" {
		b.WriteString(" (" + inner + ")")
	}
}

func canonicalReporter(reporter string) string {
	if canonical, ok := LookupReporter(reporter); ok {
		return canonical
	}
	return reporter
}

func normalizeParallel(par string) string {
	m := parallelRe.FindStringSubmatch(par)
	if m == nil {
		return par
	}
	return m[1] + " " + canonicalReporter(collapseSpaces(m[2])) + " " + m[3]
}

// canonicalCode closes up the spacing of federal code abbreviations
func canonicalCode(code string) string {
	closed := strings.ReplaceAll(code, " ", "")
	if strings.HasPrefix(closed, "U.S.C.") || closed == "C.F.R." {
		return closed
	}
	if closed == "Fed.Reg." {
		return "Fed. Reg."
	}
	return code
}

var divisionRe = regexp.MustCompile(`^(?i:(art|amend|pmbl)\.)`)

func lowerDivision(section string) string {
	return divisionRe.ReplaceAllStringFunc(section, strings.ToLower)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func firstNumber(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		return s
	}
	return s[:end]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
