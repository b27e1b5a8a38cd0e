package network

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// topicWindow is how much of a document's opening text is scanned for topics
const topicWindow = 2000

type topic struct {
	name string
	re   *regexp.Regexp
}

func keywords(alternation string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + alternation + `)\b`)
}

var practiceAreas = []topic{
	{"contract", keywords(`contracts?|breach|consideration|warrant(?:y|ies)|agreement`)},
	{"tort", keywords(`torts?|negligen(?:ce|t)|liability|duty of care|malpractice|defamation`)},
	{"criminal", keywords(`criminal|prosecution|defendant was convicted|sentenc(?:e|ing)|indictment|miranda`)},
	{"constitutional", keywords(`constitution(?:al)?|amendment|due process|equal protection|first amendment`)},
	{"property", keywords(`property|easement|landlord|tenant|title to|eminent domain|zoning`)},
	{"employment", keywords(`employ(?:er|ee|ment)|discrimination|wrongful termination|title vii|wage`)},
	{"intellectual_property", keywords(`patent|copyright|trademark|trade secret|infring(?:e|ement)`)},
	{"administrative", keywords(`agency|administrative|rulemaking|chevron|regulat(?:ion|ory)`)},
	{"civil_procedure", keywords(`jurisdiction|standing|summary judgment|class action|pleading|venue`)},
	{"family", keywords(`custody|divorce|marital|child support|adoption`)},
	{"tax", keywords(`tax(?:es|ation|payer)?|internal revenue|deduction`)},
	{"corporate", keywords(`corporat(?:e|ion)|shareholder|fiduciary|securities|merger`)},
	{"environmental", keywords(`environmental|pollution|clean air|clean water|emissions`)},
	{"immigration", keywords(`immigration|deportation|removal proceedings|asylum|alien`)},
}

var legalConcepts = []topic{
	{"negligence", keywords(`negligen(?:ce|t)`)},
	{"due_process", keywords(`due process`)},
	{"equal_protection", keywords(`equal protection`)},
	{"breach_of_contract", keywords(`breach of (?:the )?contract`)},
	{"summary_judgment", keywords(`summary judgment`)},
	{"standing", keywords(`standing`)},
	{"personal_jurisdiction", keywords(`personal jurisdiction|minimum contacts`)},
	{"damages", keywords(`damages`)},
	{"injunction", keywords(`injunct(?:ion|ive)`)},
	{"statute_of_limitations", keywords(`statute of limitations?|time[- ]barred`)},
	{"qualified_immunity", keywords(`qualified immunity`)},
	{"res_judicata", keywords(`res judicata|claim preclusion|collateral estoppel`)},
	{"search_and_seizure", keywords(`search and seizure|fourth amendment|warrantless`)},
	{"free_speech", keywords(`free speech|freedom of speech|first amendment`)},
	{"strict_scrutiny", keywords(`strict scrutiny|rational basis|intermediate scrutiny`)},
	{"preemption", keywords(`preempt(?:ion|ed|s)?`)},
}

// topicText joins a node's title and opening text, capped at topicWindow bytes
func topicText(title, body string) string {
	text := strings.TrimSpace(title + "\n" + body)
	if len(text) <= topicWindow {
		return text
	}
	n := topicWindow
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// matchTopics returns the names of every topic present in text, in table order
func matchTopics(text string, topics []topic) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, t := range topics {
		if t.re.MatchString(text) {
			out = append(out, t.name)
		}
	}
	return out
}
