package citation

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/shepard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasRule(issues []model.ValidationIssue, rule string) bool {
	for _, is := range issues {
		if is.Rule == rule {
			return true
		}
	}
	return false
}

func TestValidateCitation_CircuitCase(t *testing.T) {
	v := NewValidator(nil)

	r := v.ValidateCitation("Smith v. Jones, 123 F.3d 456 (9th Cir. 2022)", model.FormatBluebook)

	assert.True(t, r.IsValid)
	assert.Equal(t, model.CitationCase, r.Type)
	assert.Equal(t, model.FormatBluebook, r.Format)
	assert.Equal(t, "F.3d", r.Components.Reporter)
	assert.Equal(t, "Smith v. Jones", r.Components.CaseName)
	assert.Equal(t, "123", r.Components.Volume)
	assert.Equal(t, "456", r.Components.Page)
	assert.Equal(t, "9th Cir.", r.Components.Court)
	assert.Equal(t, "2022", r.Components.Year)
	assert.Equal(t, "federal", r.Components.Jurisdiction)
	assert.Zero(t, r.CountIssues(model.IssueError))
	assert.Empty(t, r.Issues)
	assert.Equal(t, "Smith v. Jones, 123 F.3d 456 (9th Cir. 2022)", r.NormalizedCitation)
	assert.Equal(t, 1.0, r.ConfidenceScore)

	_, ok := LookupReporter(r.Components.Reporter)
	assert.True(t, ok)
}

func TestValidateCitation_Types(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		name       string
		citation   string
		wantType   model.CitationType
		wantValid  bool
		normalized string
	}{
		{"federal statute", "42 U.S.C. § 1983 (2018)", model.CitationStatute, true, "42 U.S.C. § 1983 (2018)"},
		{"state statute", "Cal. Civ. Code § 1714", model.CitationStatute, true, "Cal. Civ. Code § 1714"},
		{"regulation", "40 C.F.R. § 52.21 (2020)", model.CitationRegulation, true, "40 C.F.R. § 52.21 (2020)"},
		{"federal register", "85 Fed. Reg. 12345 (Mar. 1, 2020)", model.CitationRegulation, true, "85 Fed. Reg. 12345 (Mar. 1, 2020)"},
		{"constitution", "U.S. Const. art. I, § 8", model.CitationConstitution, true, "U.S. Const. art. I, § 8"},
		{"law review", "Jane Doe, Reading Statutes, 100 Harv. L. Rev. 123 (2000)", model.CitationLawReview, true, "Jane Doe, Reading Statutes, 100 Harv. L. Rev. 123 (2000)"},
		{"short form", "Smith, 123 F.3d at 460", model.CitationCase, true, "Smith, 123 F.3d at 460"},
		{"parallel", "Roe v. Wade, 410 U.S. 113, 93 S. Ct. 705 (1973)", model.CitationCase, true, "Roe v. Wade, 410 U.S. 113, 93 S. Ct. 705 (1973)"},
		{"pinpoint", "Smith v. Jones, 123 F.3d 456, 460 (9th Cir. 2022)", model.CitationCase, true, "Smith v. Jones, 123 F.3d 456, 460 (9th Cir. 2022)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := v.ValidateCitation(tt.citation, model.FormatBluebook)
			assert.Equal(t, tt.wantType, r.Type)
			assert.Equal(t, tt.wantValid, r.IsValid, "issues: %+v", r.Issues)
			assert.Equal(t, tt.normalized, r.NormalizedCitation)
		})
	}
}

func TestValidateCitation_Components(t *testing.T) {
	v := NewValidator(nil)

	lr := v.ValidateCitation("Jane Doe, Reading Statutes, 100 Harv. L. Rev. 123, 130 (2000)", model.FormatBluebook)
	assert.Equal(t, "Jane Doe", lr.Components.Author)
	assert.Equal(t, "Reading Statutes", lr.Components.ArticleTitle)
	assert.Equal(t, "Harv. L. Rev.", lr.Components.JournalName)
	assert.Equal(t, "100", lr.Components.JournalVolume)
	assert.Equal(t, "123", lr.Components.StartPage)
	assert.Equal(t, "130", lr.Components.Pinpoint)

	st := v.ValidateCitation("42 U.S.C. § 1983", model.FormatBluebook)
	assert.Equal(t, "42", st.Components.Title)
	assert.Equal(t, "U.S.C.", st.Components.CodeName)
	assert.Equal(t, "1983", st.Components.Section)

	par := v.ValidateCitation("Roe v. Wade, 410 U.S. 113, 93 S. Ct. 705 (1973)", model.FormatBluebook)
	assert.Equal(t, []string{"93 S. Ct. 705"}, par.Components.ParallelCitations)
	assert.Empty(t, par.Components.Court)

	state := v.ValidateCitation("Cal. Civ. Code § 1714", model.FormatBluebook)
	assert.Equal(t, "California", state.Components.Jurisdiction)
}

func TestValidateCitation_Rules(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		name      string
		citation  string
		rule      string
		severity  model.IssueSeverity
		wantValid bool
	}{
		{"unknown reporter", "Smith v. Jones, 123 Foo. Rptr. 456 (Cal. 2001)", "reporter_abbreviation", model.IssueWarning, true},
		{"nonstandard reporter", "Smith v. Jones, 123 F. 3d 456 (9th Cir. 2022)", "reporter_abbreviation", model.IssueInfo, true},
		{"missing year", "Smith v. Jones, 123 F.3d 456", "year_parenthetical", model.IssueWarning, true},
		{"missing court", "Smith v. Jones, 123 F.3d 456 (2022)", "court_identification", model.IssueWarning, true},
		{"year out of range", "Smith v. Jones, 123 F.3d 456 (9th Cir. 1200)", "year_range", model.IssueError, false},
		{"versus spelling", "Smith vs. Jones, 123 F.3d 456 (9th Cir. 2022)", "case_name_versus", model.IssueWarning, true},
		{"lowercase name", "smith v. Jones, 123 F.3d 456 (9th Cir. 2022)", "capitalization", model.IssueInfo, true},
		{"pinpoint before page", "Smith v. Jones, 123 F.3d 456, 400 (9th Cir. 2022)", "pinpoint_range", model.IssueWarning, true},
		{"short form", "Smith, 123 F.3d at 460", "short_form", model.IssueInfo, true},
		{"section spacing", "42 U.S.C. §1983", "section_symbol_spacing", model.IssueWarning, true},
		{"missing section symbol", "42 U.S.C. 1983 (2018)", "section_symbol", model.IssueWarning, true},
		{"code year", "42 U.S.C. § 1983", "code_year", model.IssueInfo, true},
		{"fed reg date", "85 Fed. Reg. 12345", "fed_reg_date", model.IssueWarning, true},
		{"constitution spelled out", "United States Constitution, Article I", "constitution_format", model.IssueError, false},
		{"constitution capitals", "U.S. Const. Art. I, § 8", "constitution_capitalization", model.IssueInfo, true},
		{"unabbreviated journal", "Jane Doe, Reading Statutes, 100 Harvard Law Review 123 (2000)", "journal_abbreviation", model.IssueWarning, true},
		{"alwd date", "Smith v. Jones, 123 F.3d 456 (9th Cir. Mar. 3, 2022)", "format_preference", model.IssueWarning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := v.ValidateCitation(tt.citation, model.FormatBluebook)
			var found *model.ValidationIssue
			for i := range r.Issues {
				if r.Issues[i].Rule == tt.rule {
					found = &r.Issues[i]
					break
				}
			}
			require.NotNil(t, found, "rule %s not reported; issues: %+v", tt.rule, r.Issues)
			assert.Equal(t, tt.severity, found.Severity)
			assert.Equal(t, tt.wantValid, r.IsValid)
		})
	}
}

func TestValidateCitation_SectionSpacingPosition(t *testing.T) {
	r := NewValidator(nil).ValidateCitation("42 U.S.C. §1983", model.FormatBluebook)

	for _, is := range r.Issues {
		if is.Rule == "section_symbol_spacing" {
			require.NotNil(t, is.Position)
			assert.Equal(t, 10, *is.Position)
			assert.Equal(t, "§ 1983", is.Suggestion)
		}
	}
	assert.Equal(t, "42 U.S.C. § 1983", r.NormalizedCitation)
}

func TestValidateCitation_ALWDPreference(t *testing.T) {
	v := NewValidator(nil)
	r := v.ValidateCitation("Smith v. Jones, 123 F.3d 456 (9th Cir. Mar. 3, 2022)", model.FormatALWD)

	assert.Equal(t, model.FormatALWD, r.Format)
	assert.False(t, hasRule(r.Issues, "format_preference"))
	assert.Equal(t, "9th Cir.", r.Components.Court)
	assert.Equal(t, "2022", r.Components.Year)
}

func TestValidateCitation_Malformed(t *testing.T) {
	v := NewValidator(nil)

	for _, in := range []string{"", "   ", "not a citation at all", "123", "v.", "§§§", "(((", "Smith v. Jones"} {
		r := v.ValidateCitation(in, model.FormatBluebook)
		assert.False(t, r.IsValid, "input %q", in)
		assert.GreaterOrEqual(t, r.CountIssues(model.IssueError), 1, "input %q", in)
		assert.Empty(t, r.NormalizedCitation, "input %q", in)
		assert.GreaterOrEqual(t, r.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, r.ConfidenceScore, 1.0)
	}

	r := v.ValidateCitation("not a citation at all", model.FormatBluebook)
	assert.Equal(t, model.CitationCase, r.Type)
	assert.Equal(t, model.FormatUnknown, r.Format)
	assert.Equal(t, model.CitationComponents{}, r.Components)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Smith v. Jones, 123 F.3d 456 (9th Cir. 2022)",
		"Smith vs. Jones, 123 F. 3d 456, 460 (9th Cir. Mar. 3, 2022)",
		"Roe v. Wade, 410 U.S. 113, 93 S.Ct. 705 (1973)",
		"Smith, 123 F.3d at 460",
		"42 U.S.C. §1983 (2018)",
		"42 U. S. C. § 1983",
		"Cal. Civ. Code § 1714",
		"40 C.F.R. 52.21",
		"85 Fed. Reg. 12345 (Mar. 1, 2020)",
		"U.S. Const. Amend. XIV, § 1",
		`Jane Doe, "Reading Statutes", 100 Harv. L. Rev. 123 (2000)`,
	}

	for _, in := range inputs {
		once, ok := Normalize(in)
		require.True(t, ok, "input %q did not parse", in)
		twice, ok := Normalize(once)
		require.True(t, ok, "normalized %q did not parse", once)
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestNormalize_Unparseable(t *testing.T) {
	_, ok := Normalize("nothing to see here")
	assert.False(t, ok)
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		in   string
		want model.CitationType
	}{
		{"U.S. Const. amend. I", model.CitationConstitution},
		{"the Constitution of Ohio", model.CitationConstitution},
		{"40 C.F.R. § 1", model.CitationRegulation},
		{"42 U.S.C. § 1983", model.CitationStatute},
		{"Tex. Penal Code § 1", model.CitationStatute},
		{"Jane Doe, Title, 1 Yale L.J. 1 (1990)", model.CitationLawReview},
		{"Smith v. Jones, 1 N.J. Super. 5 (1990)", model.CitationCase},
		{"In re Estate of Smith, 5 Cal. 4th 1 (1992)", model.CitationCase},
		{"Smith v. Code Corp., 1 F.3d 2 (2d Cir. 1990)", model.CitationCase},
		{"anything else", model.CitationCase},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectType(tt.in), tt.in)
	}
}

func TestConfidence_Penalties(t *testing.T) {
	v := NewValidator(nil)

	// two warnings (year, court), one info (format) and the reporter bonus
	r := v.ValidateCitation("Smith v. Jones, 123 F.3d 456", model.FormatBluebook)
	assert.InDelta(t, 1.0-0.1-0.1-0.05+0.1, r.ConfidenceScore, 1e-9)

	// unknown reporter: one warning and the core-fields bonus only
	r = v.ValidateCitation("Smith v. Jones, 123 Foo. Rptr. 456 (Cal. 2001)", model.FormatBluebook)
	assert.InDelta(t, 1.0, r.ConfidenceScore, 1e-9)

	// unparseable: one error and no bonus
	r = v.ValidateCitation("not a citation at all", model.FormatBluebook)
	assert.InDelta(t, 0.7, r.ConfidenceScore, 1e-9)
}

func TestExtractCitations(t *testing.T) {
	text := "The rule is settled. See Smith v. Jones, 123 F.3d 456, 460 (9th Cir. 2022). " +
		"Congress enacted 42 U.S.C. § 1983 long ago. Later, 123 F.3d at 461 and " +
		"U.S. Const. amend. XIV, § 1 apply, as does 40 C.F.R. § 52.21."

	got := ExtractCitations(text)

	assert.Equal(t, []string{
		"Smith v. Jones, 123 F.3d 456, 460 (9th Cir. 2022)",
		"42 U.S.C. § 1983",
		"123 F.3d at 461",
		"U.S. Const. amend. XIV, § 1",
		"40 C.F.R. § 52.21",
	}, got)
}

func TestExtractCitations_ParallelNotPinpoint(t *testing.T) {
	got := ExtractCitations("In Roe v. Wade, 410 U.S. 113, 93 S. Ct. 705 (1973), the Court held otherwise.")
	assert.Equal(t, []string{"Roe v. Wade, 410 U.S. 113, 93 S. Ct. 705 (1973)"}, got)
}

func TestExtractCitations_RequiresCaseName(t *testing.T) {
	assert.Empty(t, ExtractCitations("the figure on page 12 of 123 F.3d 456 is wrong"))
	assert.Empty(t, ExtractCitations(""))
}

func TestValidateDocumentCitations(t *testing.T) {
	v := NewValidator(nil)
	doc := model.Document{
		ID:        "doc-1",
		Citations: []string{"Smith v. Jones, 123 F.3d 456 (9th Cir. 2022)"},
		Content: `<html><body><script>var s = "Fake v. Case, 1 U.S. 1 (1800)";</script>
			<p>As held in Roe v. Wade, 410 U.S. 113 (1973), the right exists.</p>
			<p>Also Smith v. Jones, 123 F.3d 456 (9th Cir. 2022).</p></body></html>`,
	}

	results, err := v.ValidateDocumentCitations(context.Background(), doc, model.FormatBluebook)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Smith v. Jones, 123 F.3d 456 (9th Cir. 2022)", results[0].Citation)
	assert.Equal(t, "Roe v. Wade, 410 U.S. 113 (1973)", results[1].Citation)
	for _, r := range results {
		assert.True(t, r.IsValid, r.Citation)
	}
}

func TestValidateDocumentCitations_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := model.Document{ID: "doc-1", Citations: []string{"42 U.S.C. § 1983"}}
	_, err := NewValidator(nil).ValidateDocumentCitations(ctx, doc, model.FormatBluebook)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPlainText(t *testing.T) {
	text, err := PlainText("<html><head><title>x</title><style>p{}</style></head><body><p>Visible  text.</p><noscript>hidden</noscript></body></html>")
	require.NoError(t, err)
	assert.Equal(t, "Visible text.", text)

	plain, err := PlainText("no markup here")
	require.NoError(t, err)
	assert.Equal(t, "no markup here", plain)
}

func TestClassifyCourt(t *testing.T) {
	tests := []struct {
		court string
		want  CourtLevel
	}{
		{"U.S.", CourtUSSupreme},
		{"Supreme Court of the United States", CourtUSSupreme},
		{"Cal.", CourtStateSupreme},
		{"Supreme Court of Ohio", CourtStateSupreme},
		{"9th Cir.", CourtCircuit},
		{"Cal. Ct. App.", CourtAppellate},
		{"D. Mass.", CourtDistrict},
		{"S.D.N.Y.", CourtDistrict},
		{"Bankr. D. Del.", CourtTrial},
		{"Superior Court", CourtTrial},
		{"Cook County Court", CourtLocal},
		{"", CourtUnknown},
		{"Tribunal", CourtUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyCourt(tt.court), tt.court)
	}
	assert.True(t, CourtUSSupreme.IsSupreme())
	assert.False(t, CourtCircuit.IsSupreme())
}

func TestDeriveJurisdiction(t *testing.T) {
	assert.Equal(t, "federal", deriveJurisdiction("9th Cir.", "F.3d"))
	assert.Equal(t, "federal", deriveJurisdiction("D. Mass.", "F. Supp. 2d"))
	assert.Equal(t, "California", deriveJurisdiction("Cal. Ct. App.", "Cal. Rptr."))
	assert.Equal(t, "federal", deriveJurisdiction("", "U.S."))
	assert.Equal(t, "New York", deriveJurisdiction("", "N.Y.2d"))
	assert.Equal(t, "federal", deriveJurisdiction("N.D. Cal.", "F. Supp. 3d"))
	assert.Equal(t, "", deriveJurisdiction("", "Unknown Rptr."))
}
