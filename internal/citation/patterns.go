package citation

import (
	"regexp"
	"strings"

	"github.com/ppiankov/shepard/internal/model"
)

const reporterPattern = `[A-Z][A-Za-z0-9.'’ ]*?`

// Case citation grammars, tried in order; the first match wins.
var casePatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"full_pinpoint", regexp.MustCompile(`^(?P<name>.+?),\s+(?P<volume>\d{1,4})\s+(?P<reporter>` + reporterPattern + `)\s+(?P<page>\d{1,5}),\s+(?P<pin>\d{1,5}(?:[-–]\d{1,5})?)(?P<parallel>(?:,\s+\d{1,4}\s+` + reporterPattern + `\s+\d{1,5})*)(?:\s*\((?P<paren>[^()]*)\))?$`)},
	{"full", regexp.MustCompile(`^(?P<name>.+?),\s+(?P<volume>\d{1,4})\s+(?P<reporter>` + reporterPattern + `)\s+(?P<page>\d{1,5})(?P<parallel>(?:,\s+\d{1,4}\s+` + reporterPattern + `\s+\d{1,5})*)(?:\s*\((?P<paren>[^()]*)\))?$`)},
	{"short", regexp.MustCompile(`^(?:(?P<name>[^,]+?),\s+)?(?P<volume>\d{1,4})\s+(?P<reporter>` + reporterPattern + `)\s+at\s+(?P<pin>\d{1,5}(?:[-–]\d{1,5})?)$`)},
}

var (
	parallelRe  = regexp.MustCompile(`^(\d{1,4})\s+(` + reporterPattern + `)\s+(\d{1,5})$`)
	parenYearRe = regexp.MustCompile(`^(?P<court>.*?)\s*(?P<year>\d{4})$`)
	fullDateRe  = regexp.MustCompile(`(?:Jan|Feb|Mar|Apr|May|June?|July?|Aug|Sept?|Oct|Nov|Dec)\.?\s+\d{1,2},?\s*`)

	federalStatuteRe = regexp.MustCompile(`^(?P<title>\d{1,3})\s+(?P<code>U\.\s?S\.\s?C\.(?:\s?[AS]\.)?)\s*(?P<symbol>§§?)?\s*(?P<section>[0-9][\w.\-–():]*)(?:\s+\((?P<paren>[^()]*)\))?$`)
	stateStatuteRe   = regexp.MustCompile(`^(?P<code>[A-Z][A-Za-z.&'’ ]*?(?:Code|Stat\.|Laws|Law)[A-Za-z.&'’ ]*?)\s*(?P<symbol>§§?)\s*(?P<section>[0-9][\w.\-–():]*)(?:\s+\((?P<paren>[^()]*)\))?$`)
	cfrRe            = regexp.MustCompile(`^(?P<title>\d{1,3})\s+(?P<code>C\.\s?F\.\s?R\.)\s*(?P<symbol>§§?)?\s*(?P<section>[0-9][\w.\-–():]*)(?:\s+\((?P<paren>[^()]*)\))?$`)
	fedRegRe         = regexp.MustCompile(`^(?P<title>\d{1,3})\s+(?P<code>Fed\.\s?Reg\.)\s+(?P<section>\d[\d,]*)(?:\s+\((?P<paren>[^()]*)\))?$`)
	constitutionRe   = regexp.MustCompile(`^(?P<code>(?:[A-Z][A-Za-z.]*\s+)*Const\.)\s+(?P<section>(?i:art\.|amend\.|pmbl\.).*?)(?:\s+\((?P<paren>[^()]*)\))?$`)
	lawReviewRe      = regexp.MustCompile(`^(?P<author>[^,]+),\s+(?P<title>.+?),\s+(?P<volume>\d{1,4})\s+(?P<journal>[A-Z][A-Za-z.&'’ ]*?)\s+(?P<page>\d{1,5})(?:,\s+(?P<pin>\d{1,5}(?:[-–]\d{1,5})?))?(?:\s+\((?P<year>\d{4})\))?$`)

	constitutionMarkerRe = regexp.MustCompile(`\bConst\.|(?i:\bconstitution\b)`)
	regulationMarkerRe   = regexp.MustCompile(`C\.\s?F\.\s?R\.|Fed\.\s?Reg\.`)
	statuteMarkerRe      = regexp.MustCompile(`U\.\s?S\.\s?C\.|§|\bCode\b|\bStat\.`)
	journalMarkerRe      = regexp.MustCompile(`L\.\s?Rev\.|L\.\s?J\.|\bJ\.|\bRev\.|\bQ\.|Law Review|Journal`)
	leadingAuthorRe      = regexp.MustCompile(`^[A-Z][^,]*,\s+`)
	caseNameMarkerRe     = regexp.MustCompile(`\s(?:v\.?|vs\.?)\s|^(?:In re|Ex parte)\s`)
)

// DetectType classifies a raw citation string by keyword heuristics.
// Anything unrecognized is treated as a case citation.
func DetectType(text string) model.CitationType {
	isCaseName := caseNameMarkerRe.MatchString(text)
	switch {
	case !isCaseName && constitutionMarkerRe.MatchString(text):
		return model.CitationConstitution
	case !isCaseName && regulationMarkerRe.MatchString(text):
		return model.CitationRegulation
	case !isCaseName && statuteMarkerRe.MatchString(text):
		return model.CitationStatute
	case !isCaseName && leadingAuthorRe.MatchString(text) && journalMarkerRe.MatchString(text):
		return model.CitationLawReview
	default:
		return model.CitationCase
	}
}

// namedGroups returns the named submatches of re in text, or nil when it does not match
func namedGroups(re *regexp.Regexp, text string) map[string]string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			out[name] = strings.TrimSpace(m[i])
		}
	}
	return out
}

// parsed is the raw parse of one citation before validation
type parsed struct {
	ok          bool
	pattern     string
	components  model.CitationComponents
	paren       string
	symbol      string
	fullDate    bool
	quotedTitle bool
}

// Parse parses a citation into components without validating it
func Parse(text string) (model.CitationType, model.CitationComponents, bool) {
	text = cleanCitation(text)
	ctype := DetectType(text)
	p := parse(ctype, text)
	return ctype, p.components, p.ok
}

func parse(ctype model.CitationType, text string) parsed {
	switch ctype {
	case model.CitationStatute:
		return parseStatute(text)
	case model.CitationRegulation:
		return parseRegulation(text)
	case model.CitationConstitution:
		return parseConstitution(text)
	case model.CitationLawReview:
		return parseLawReview(text)
	default:
		return parseCase(text)
	}
}

func parseCase(text string) parsed {
	for _, pat := range casePatterns {
		g := namedGroups(pat.re, text)
		if g == nil {
			continue
		}
		// "123 F.3d at 460" would otherwise match the full grammar with reporter "F.3d at"
		if pat.name != "short" && strings.HasSuffix(g["reporter"], " at") {
			continue
		}
		p := parsed{ok: true, pattern: pat.name}
		c := &p.components
		c.CaseName = collapseSpaces(g["name"])
		c.Volume = g["volume"]
		c.Reporter = collapseSpaces(g["reporter"])
		c.Page = g["page"]
		c.Pinpoint = g["pin"]
		c.ShortForm = pat.name == "short"
		for _, par := range strings.Split(g["parallel"], ",") {
			if par = collapseSpaces(par); par != "" {
				c.ParallelCitations = append(c.ParallelCitations, par)
			}
		}
		p.paren = g["paren"]
		if p.paren != "" {
			c.Court, c.Year, p.fullDate = splitParenthetical(p.paren)
		}
		c.Jurisdiction = deriveJurisdiction(c.Court, c.Reporter)
		return p
	}
	return parsed{}
}

// splitParenthetical splits "(9th Cir. Mar. 3, 2022)" into court, year and whether a full date was present
func splitParenthetical(paren string) (court, year string, fullDate bool) {
	g := namedGroups(parenYearRe, paren)
	if g == nil {
		return collapseSpaces(paren), "", false
	}
	court = g["court"]
	if fullDateRe.MatchString(court) {
		fullDate = true
		court = fullDateRe.ReplaceAllString(court, "")
	}
	return strings.TrimRight(collapseSpaces(court), ", "), g["year"], fullDate
}

func parseStatute(text string) parsed {
	if g := namedGroups(federalStatuteRe, text); g != nil {
		return parsed{
			ok:     true,
			symbol: g["symbol"],
			paren:  g["paren"],
			components: model.CitationComponents{
				Title:        g["title"],
				CodeName:     collapseSpaces(g["code"]),
				Section:      g["section"],
				Year:         yearOf(g["paren"]),
				Jurisdiction: "federal",
			},
		}
	}
	if g := namedGroups(stateStatuteRe, text); g != nil {
		code := collapseSpaces(g["code"])
		return parsed{
			ok:     true,
			symbol: g["symbol"],
			paren:  g["paren"],
			components: model.CitationComponents{
				CodeName:     code,
				Section:      g["section"],
				Year:         yearOf(g["paren"]),
				Jurisdiction: stateForAbbreviation(firstToken(code)),
			},
		}
	}
	return parsed{}
}

func parseRegulation(text string) parsed {
	if g := namedGroups(cfrRe, text); g != nil {
		return parsed{
			ok:     true,
			symbol: g["symbol"],
			paren:  g["paren"],
			components: model.CitationComponents{
				Title:        g["title"],
				CodeName:     "C.F.R.",
				Section:      g["section"],
				Year:         yearOf(g["paren"]),
				Jurisdiction: "federal",
			},
		}
	}
	if g := namedGroups(fedRegRe, text); g != nil {
		return parsed{
			ok:    true,
			paren: g["paren"],
			components: model.CitationComponents{
				Title:        g["title"],
				CodeName:     "Fed. Reg.",
				Section:      g["section"],
				Year:         yearOf(g["paren"]),
				Jurisdiction: "federal",
			},
		}
	}
	return parsed{}
}

func parseConstitution(text string) parsed {
	g := namedGroups(constitutionRe, text)
	if g == nil {
		return parsed{}
	}
	code := collapseSpaces(g["code"])
	jurisdiction := "federal"
	if code != "U.S. Const." {
		jurisdiction = stateForAbbreviation(firstToken(code))
	}
	return parsed{
		ok:    true,
		paren: g["paren"],
		components: model.CitationComponents{
			CodeName:     code,
			Section:      collapseSpaces(g["section"]),
			Year:         yearOf(g["paren"]),
			Jurisdiction: jurisdiction,
		},
	}
}

func parseLawReview(text string) parsed {
	g := namedGroups(lawReviewRe, text)
	if g == nil {
		return parsed{}
	}
	title := g["title"]
	quoted := isQuoted(title)
	return parsed{
		ok:          true,
		quotedTitle: quoted,
		paren:       g["year"],
		components: model.CitationComponents{
			Author:        collapseSpaces(g["author"]),
			ArticleTitle:  strings.Trim(title, `"“”`),
			JournalVolume: g["volume"],
			JournalName:   collapseSpaces(g["journal"]),
			StartPage:     g["page"],
			Pinpoint:      g["pin"],
			Year:          g["year"],
		},
	}
}

var yearInTextRe = regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})\b`)

func yearOf(s string) string {
	return yearInTextRe.FindString(s)
}

// cleanCitation trims whitespace and trailing separators that are not part of the citation
func cleanCitation(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimRight(text, ";, ")
	if strings.HasSuffix(text, ").") {
		text = strings.TrimSuffix(text, ".")
	}
	return text
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstToken(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

func isQuoted(s string) bool {
	return (strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) ||
		(strings.HasPrefix(s, "“") && strings.HasSuffix(s, "”"))
}
