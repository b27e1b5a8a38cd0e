package citation

import (
	"strings"

	"github.com/ppiankov/shepard/internal/model"
)

// CourtLevel is the rank of a court in the judicial hierarchy
type CourtLevel string

const (
	CourtUSSupreme    CourtLevel = "us_supreme"
	CourtStateSupreme CourtLevel = "state_supreme"
	CourtCircuit      CourtLevel = "circuit"
	CourtAppellate    CourtLevel = "appellate"
	CourtDistrict     CourtLevel = "district"
	CourtTrial        CourtLevel = "trial"
	CourtLocal        CourtLevel = "local"
	CourtUnknown      CourtLevel = "unknown"
)

// IsSupreme reports whether the level is a court of last resort
func (l CourtLevel) IsSupreme() bool {
	return l == CourtUSSupreme || l == CourtStateSupreme
}

// ClassifyCourt maps a court name or Bluebook court abbreviation to its level
func ClassifyCourt(court string) CourtLevel {
	c := strings.ToLower(strings.TrimSpace(court))
	switch {
	case c == "":
		return CourtUnknown
	case c == "u.s." || c == "scotus" || strings.Contains(c, "supreme court of the united states") ||
		(strings.Contains(c, "supreme") && (strings.Contains(c, "u.s.") || strings.Contains(c, "united states"))):
		return CourtUSSupreme
	case strings.Contains(c, "supreme"):
		return CourtStateSupreme
	case strings.Contains(c, "cir.") || strings.Contains(c, "circuit") || strings.Contains(c, "court of appeals"):
		return CourtCircuit
	case strings.Contains(c, "app") || strings.Contains(c, "appellate"):
		return CourtAppellate
	case strings.HasPrefix(c, "bankr") || strings.Contains(c, "trial") || strings.Contains(c, "superior") ||
		strings.Contains(c, "fed. cl.") || strings.Contains(c, "tax ct."):
		return CourtTrial
	case strings.HasPrefix(c, "d. ") || strings.Contains(c, "district") || strings.HasPrefix(c, "n.d.") ||
		strings.HasPrefix(c, "s.d.") || strings.HasPrefix(c, "e.d.") || strings.HasPrefix(c, "w.d.") ||
		strings.HasPrefix(c, "m.d.") || strings.HasPrefix(c, "c.d."):
		return CourtDistrict
	case strings.Contains(c, "county") || strings.Contains(c, "municipal") || strings.Contains(c, "city"):
		return CourtLocal
	}
	if _, ok := stateAbbreviations[strings.TrimSpace(court)]; ok {
		// A bare state abbreviation in a parenthetical denotes that state's highest court
		return CourtStateSupreme
	}
	return CourtUnknown
}

// CitationCourtLevel returns the level of the court that decided a cited case,
// falling back to the reporter when the parenthetical names no court
func CitationCourtLevel(c model.CitationComponents) CourtLevel {
	if level := ClassifyCourt(c.Court); level != CourtUnknown {
		return level
	}
	info, ok := reporterDetails(c.Reporter)
	if !ok {
		return CourtUnknown
	}
	switch info.level {
	case "supreme":
		if info.federal {
			return CourtUSSupreme
		}
		return CourtStateSupreme
	case "appellate":
		if info.federal {
			return CourtCircuit
		}
		return CourtAppellate
	case "trial":
		if info.federal {
			return CourtDistrict
		}
		return CourtTrial
	}
	return CourtUnknown
}

// CourtLevelFor classifies court, or the court named by citationText when court is empty or unrecognized
func CourtLevelFor(court, citationText string) CourtLevel {
	if level := ClassifyCourt(court); level != CourtUnknown || citationText == "" {
		return level
	}
	ctype, c, ok := Parse(citationText)
	if !ok || ctype != model.CitationCase {
		return CourtUnknown
	}
	return CitationCourtLevel(c)
}

// JurisdictionFor infers a jurisdiction from a court name, falling back to the citation
func JurisdictionFor(court, citationText string) string {
	if court != "" {
		if j := deriveJurisdiction(court, ""); j != "" {
			return j
		}
	}
	if citationText == "" {
		return ""
	}
	_, c, ok := Parse(citationText)
	if !ok {
		return ""
	}
	return c.Jurisdiction
}

// deriveJurisdiction infers the jurisdiction from a court parenthetical or, failing that, the reporter
func deriveJurisdiction(court, reporter string) string {
	if court != "" {
		switch ClassifyCourt(court) {
		case CourtUSSupreme, CourtCircuit, CourtDistrict:
			return "federal"
		}
		if strings.HasPrefix(court, "Bankr.") || strings.Contains(court, "Fed. Cl.") {
			return "federal"
		}
		return stateForAbbreviation(firstToken(court))
	}
	if info, ok := reporterDetails(reporter); ok {
		if info.federal {
			return "federal"
		}
		return stateForReporter(info.canonical)
	}
	return ""
}

func stateForAbbreviation(abbr string) string {
	return stateAbbreviations[abbr]
}

// stateForReporter maps an official state reporter ("Cal. 4th", "N.Y.2d") to its state
func stateForReporter(canonical string) string {
	best := ""
	for abbr := range stateAbbreviations {
		if strings.HasPrefix(canonical, abbr) && len(abbr) > len(best) {
			best = abbr
		}
	}
	return stateAbbreviations[best]
}

// stateAbbreviations maps Bluebook state abbreviations to state names. Read only.
var stateAbbreviations = map[string]string{
	"Ala.": "Alabama", "Alaska": "Alaska", "Ariz.": "Arizona", "Ark.": "Arkansas",
	"Cal.": "California", "Colo.": "Colorado", "Conn.": "Connecticut", "Del.": "Delaware",
	"Fla.": "Florida", "Ga.": "Georgia", "Haw.": "Hawaii", "Idaho": "Idaho",
	"Ill.": "Illinois", "Ind.": "Indiana", "Iowa": "Iowa", "Kan.": "Kansas",
	"Ky.": "Kentucky", "La.": "Louisiana", "Me.": "Maine", "Md.": "Maryland",
	"Mass.": "Massachusetts", "Mich.": "Michigan", "Minn.": "Minnesota", "Miss.": "Mississippi",
	"Mo.": "Missouri", "Mont.": "Montana", "Neb.": "Nebraska", "Nev.": "Nevada",
	"N.H.": "New Hampshire", "N.J.": "New Jersey", "N.M.": "New Mexico", "N.Y.": "New York",
	"N.C.": "North Carolina", "N.D.": "North Dakota", "Ohio": "Ohio", "Okla.": "Oklahoma",
	"Or.": "Oregon", "Pa.": "Pennsylvania", "R.I.": "Rhode Island", "S.C.": "South Carolina",
	"S.D.": "South Dakota", "Tenn.": "Tennessee", "Tex.": "Texas", "Utah": "Utah",
	"Vt.": "Vermont", "Va.": "Virginia", "Wash.": "Washington", "W. Va.": "West Virginia",
	"Wis.": "Wisconsin", "Wyo.": "Wyoming",
}
