package shepard

import (
	"regexp"

	"github.com/ppiankov/shepard/internal/model"
)

type signalRule struct {
	signal model.TreatmentSignal
	re     *regexp.Regexp
}

// words compiles a case-insensitive, word-bounded alternation
func words(alternation string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + alternation + `)\b`)
}

// signalCascade is evaluated top to bottom and the first match wins.
// Negative rules come first so a passage that both follows and overrules classifies as overruled.
var signalCascade = []signalRule{
	// Negative
	{model.SignalOverruled, words(`overrul(?:e|ed|es|ing)|abrogat(?:e|ed|es|ing)|no longer good law`)},
	{model.SignalReversed, words(`revers(?:e|ed|es|ing|al)`)},
	{model.SignalSuperseded, words(`supersed(?:e|ed|es|ing)|superseded by statute`)},
	{model.SignalVacated, words(`vacat(?:e|ed|es|ing)`)},

	// Cautionary
	{model.SignalQuestioned, words(`questioned|questions? the (?:validity|continuing vitality|reasoning)|call(?:s|ed)? into (?:question|doubt)|doubt(?:ed|ful)`)},
	{model.SignalCriticized, words(`critici[sz](?:e|ed|es|ing)|disapprov(?:e|ed|es|ing)|declin(?:e|ed|es|ing) to follow`)},
	{model.SignalLimited, words(`limit(?:ed|s|ing) (?:to|its|the holding)|narrow(?:ed|ly|s|ing)|confin(?:e|ed|es) to`)},
	{model.SignalDistinguished, words(`distinguish(?:ed|es|ing|able)?`)},

	// Positive
	{model.SignalFollowed, words(`follow(?:ed|s)?|adopt(?:ed|s)?|appl(?:y|ied|ies) the (?:rule|holding|reasoning)`)},
	{model.SignalAffirmed, words(`affirm(?:ed|s|ing|ance)?|upheld|reaffirm(?:ed|s|ing)?`)},
	{model.SignalExplained, words(`explain(?:ed|s|ing)?|clarif(?:y|ied|ies)|elaborat(?:e|ed|es|ing)`)},

	// Generic citation markers
	{model.SignalCited, words(`cit(?:e|ed|es|ing)|quot(?:e|ed|es|ing)|rel(?:y|ied|ies|ying) (?:on|upon)|see|accord`)},
	{model.SignalMentioned, words(`mention(?:ed|s)?|noted|refer(?:red|s)? to|cf\.?`)},
}

// ClassifySignal assigns exactly one treatment signal to a passage of a citing opinion.
// A passage matching nothing is neutral.
func ClassifySignal(text string) model.TreatmentSignal {
	for _, rule := range signalCascade {
		if rule.re.MatchString(text) {
			return rule.signal
		}
	}
	return model.SignalNeutral
}

type contextRule struct {
	context model.CitationContext
	re      *regexp.Regexp
}

var contextCascade = []contextRule{
	{model.ContextHolding, words(`we hold|(?:the )?court held|holding|held that|we conclude`)},
	{model.ContextDictum, words(`dict(?:um|a)|in passing|obiter|we note|we observe`)},
	{model.ContextDissent, words(`dissent(?:ing|ed|s)?|minority opinion`)},
	{model.ContextProcedural, words(`procedur(?:e|al)|jurisdiction(?:al)?|standing|remand(?:ed)?|motion to dismiss|summary judgment|timeliness`)},
	{model.ContextFactual, words(`facts?|factual(?:ly)?|the record|evidence|testimony`)},
	{model.ContextDistinguishing, words(`distinguish(?:ed|es|ing|able)?|unlike|different from|inapposite`)},
}

// ClassifyContext names the part of the opinion a passage comes from. The default is background.
func ClassifyContext(text string) model.CitationContext {
	for _, rule := range contextCascade {
		if rule.re.MatchString(text) {
			return rule.context
		}
	}
	return model.ContextBackground
}
