package citation

import (
	"regexp"
	"sort"
	"strings"
)

const (
	sectionPattern  = `[0-9][\w\-–]*(?:\.[\w\-–]+)*(?:\([\w]+\))*`
	yearParenInText = `(?:\s+\([^()]{0,40}\d{4}\))?`
	nameLookback    = 160
)

// Extraction grammars for citations embedded in running text
var (
	caseInTextRe         = regexp.MustCompile(`\b\d{1,4}\s+(?:` + reporterAlternation() + `)\s+\d{1,5}\b`)
	shortCaseInTextRe    = regexp.MustCompile(`\b\d{1,4}\s+(?:` + reporterAlternation() + `)\s+at\s+\d{1,5}(?:[-–]\d{1,5})?`)
	federalInTextRe      = regexp.MustCompile(`\b\d{1,3}\s+U\.\s?S\.\s?C\.(?:\s?[AS]\.)?\s*§§?\s*` + sectionPattern + yearParenInText)
	stateInTextRe        = regexp.MustCompile(`(?:` + stateAlternation() + `)[A-Za-z.&' ]*?(?:Code|Stat\.|Laws|Law)[A-Za-z.&' ]*?\s*§§?\s*` + sectionPattern + yearParenInText)
	cfrInTextRe          = regexp.MustCompile(`\b\d{1,3}\s+C\.\s?F\.\s?R\.\s*(?:§§?\s*)?` + sectionPattern + yearParenInText)
	fedRegInTextRe       = regexp.MustCompile(`\b\d{1,3}\s+Fed\.\s?Reg\.\s+\d[\d,]*\d` + yearParenInText)
	constitutionInTextRe = regexp.MustCompile(`(?:U\.S\.|` + stateAlternation() + `)\s+Const\.\s+(?i:art\.|amend\.)\s+[IVXLC\d]+(?:,\s+§\s*\d+)?(?:,\s+cl\.\s*\d+)?`)

	// Tails of a case citation, matched in order after "vol reporter page"
	pinpointTailRe = regexp.MustCompile(`^,\s+\d{1,5}(?:[-–]\d{1,5})?\b`)
	parallelTailRe = regexp.MustCompile(`^(?:,\s+\d{1,4}\s+(?:` + reporterAlternation() + `)\s+\d{1,5}\b)+`)
	parenTailRe    = regexp.MustCompile(`^\s*\([^()]{0,60}\d{4}\)`)

	// The party names immediately before ", <volume>"
	caseNameTailRe = regexp.MustCompile(`(?:^|\s)((?:[A-Z][\w.'’&\-]*|In re|Ex parte)(?:\s+(?:[A-Z][\w.'’&\-]*|of|the|and|for|de|ex|rel\.|v\.|vs\.|&))*),\s*$`)
)

var signalWords = []string{"See also", "See, e.g.,", "See", "But see", "But cf.", "Cf.", "Accord", "Compare", "Contra", "E.g.,", "Also"}

// ExtractCitations finds citation strings in free text, in order of appearance.
// Full case citations are only returned when a party name precedes them.
func ExtractCitations(text string) []string {
	type span struct {
		start, end int
		text       string
	}
	var spans []span

	for _, loc := range caseInTextRe.FindAllStringIndex(text, -1) {
		start, name := caseNameBefore(text, loc[0])
		if name == "" {
			continue
		}
		end := caseTailEnd(text, loc[1])
		spans = append(spans, span{start, end, name + ", " + text[loc[0]:end]})
	}
	for _, loc := range shortCaseInTextRe.FindAllStringIndex(text, -1) {
		spans = append(spans, span{loc[0], loc[1], text[loc[0]:loc[1]]})
	}
	for _, re := range []*regexp.Regexp{federalInTextRe, stateInTextRe, cfrInTextRe, fedRegInTextRe, constitutionInTextRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{loc[0], loc[1], text[loc[0]:loc[1]]})
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var out []string
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		out = append(out, collapseSpaces(s.text))
		lastEnd = s.end
	}
	return out
}

// caseTailEnd extends a matched "vol reporter page" over its pinpoint, parallel citations and parenthetical.
// Parallels are tried before the pinpoint so "113, 93 S. Ct. 705" is not read as pinpoint 93.
func caseTailEnd(text string, end int) int {
	if m := parallelTailRe.FindStringIndex(text[end:]); m != nil {
		end += m[1]
	} else if m := pinpointTailRe.FindStringIndex(text[end:]); m != nil {
		end += m[1]
		if m := parallelTailRe.FindStringIndex(text[end:]); m != nil {
			end += m[1]
		}
	}
	if m := parenTailRe.FindStringIndex(text[end:]); m != nil {
		end += m[1]
	}
	return end
}

// caseNameBefore finds the party names preceding a reporter citation starting at idx
func caseNameBefore(text string, idx int) (int, string) {
	from := idx - nameLookback
	if from < 0 {
		from = 0
	}
	prefix := text[from:idx]
	m := caseNameTailRe.FindStringSubmatchIndex(prefix)
	if m == nil {
		return idx, ""
	}
	name := stripSignal(prefix[m[2]:m[3]])
	if !caseNameMarkerRe.MatchString(name) {
		return idx, ""
	}
	return from + m[2] + (m[3] - m[2] - len(name)), name
}

func stripSignal(name string) string {
	for changed := true; changed; {
		changed = false
		for _, w := range signalWords {
			if strings.HasPrefix(name, w+" ") {
				name = strings.TrimSpace(strings.TrimPrefix(name, w))
				changed = true
			}
		}
		if strings.HasPrefix(name, "In ") && !strings.HasPrefix(name, "In re ") {
			name = strings.TrimPrefix(name, "In ")
			changed = true
		}
	}
	return name
}

func reporterAlternation() string {
	names := make([]string, 0, len(reporters))
	for _, info := range reporters {
		names = append(names, info.canonical)
	}
	// Longest first so "F. Supp. 2d" wins over "F."
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = strings.ReplaceAll(regexp.QuoteMeta(n), " ", `\s?`)
	}
	return strings.Join(parts, "|")
}

func stateAlternation() string {
	names := make([]string, 0, len(stateAbbreviations))
	for abbr := range stateAbbreviations {
		names = append(names, abbr)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = `\b` + regexp.QuoteMeta(n)
	}
	return strings.Join(parts, "|")
}
