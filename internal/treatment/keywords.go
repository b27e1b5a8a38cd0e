package treatment

import (
	"regexp"

	"github.com/ppiankov/shepard/internal/model"
)

// Tier scores, strongest first
const (
	strongScore   = 1.0
	moderateScore = 0.6
	weakScore     = 0.3
)

type signalTiers struct {
	signal   model.TreatmentSignal
	strong   *regexp.Regexp
	moderate *regexp.Regexp
	weak     *regexp.Regexp
}

func words(alternation string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + alternation + `)\b`)
}

// signalKeywords lists every signal in precedence order; score ties go to the earlier entry
var signalKeywords = []signalTiers{
	{model.SignalOverruled,
		words(`overrul(?:e|ed|es|ing)|expressly overruled|no longer good law`),
		words(`abrogat(?:e|ed|es|ing)|repudiat(?:e|ed|es|ing)`),
		words(`implicitly overruled|undermined`)},
	{model.SignalReversed,
		words(`revers(?:e|ed|es|ing)`),
		words(`reversal`),
		words(`set aside`)},
	{model.SignalSuperseded,
		words(`supersed(?:e|ed|es|ing)|superseded by statute`),
		words(`displaced by|replaced by statute`),
		words(`amended`)},
	{model.SignalVacated,
		words(`vacat(?:e|ed|es|ing)`),
		words(`withdrawn`),
		words(`nullif(?:y|ied)`)},
	{model.SignalQuestioned,
		words(`questioned|call(?:s|ed)? into question`),
		words(`doubt(?:ed|ful)?|skeptical`),
		words(`uncertain|unclear whether`)},
	{model.SignalCriticized,
		words(`critici[sz](?:e|ed|es|ing)|disapprov(?:e|ed|es|ing)`),
		words(`erroneous|wrongly decided|flawed`),
		words(`unpersuasive|problematic`)},
	{model.SignalLimited,
		words(`limit(?:ed|s|ing) (?:to|its|the holding)|confin(?:e|ed|es) to`),
		words(`narrow(?:ed|ly|s|ing)`),
		words(`restrict(?:ed|s)`)},
	{model.SignalDistinguished,
		words(`distinguish(?:ed|es|ing)`),
		words(`distinguishable|inapposite`),
		words(`unlike|different facts`)},
	{model.SignalFollowed,
		words(`follow(?:ed|s)?|adopt(?:ed|s)? the (?:rule|reasoning|test)`),
		words(`appl(?:y|ied|ies) the (?:rule|holding|reasoning|test)|in accordance with`),
		words(`consistent with|in line with`)},
	{model.SignalAffirmed,
		words(`affirm(?:ed|s|ing)?`),
		words(`upheld|reaffirm(?:ed|s|ing)?`),
		words(`sustain(?:ed|s)`)},
	{model.SignalExplained,
		words(`explain(?:ed|s|ing)?`),
		words(`clarif(?:y|ied|ies)|elaborat(?:e|ed|es|ing)`),
		words(`describ(?:e|ed|es|ing)|discuss(?:ed|es|ing)?`)},
	{model.SignalCited,
		words(`cit(?:e|ed|es|ing)|quot(?:e|ed|es|ing)`),
		words(`rel(?:y|ied|ies|ying) (?:on|upon)|accord`),
		words(`see`)},
	{model.SignalMentioned,
		words(`mention(?:ed|s)?`),
		words(`noted|refer(?:red|s)? to`),
		words(`cf\.?`)},
}

var (
	analysisIndicatorRe = regexp.MustCompile(`(?i)\b(?:analy[sz](?:is|es|ed|ing)|reason(?:ing|ed)|rationale|because|therefore|thus|consider(?:ed|ing)?|examin(?:e|ed|ing)|interpret(?:ed|ing|ation)?|appl(?:y|ied|ying)|conclud(?:e|ed|ing)|held|hold)\b`)
	hedgeRe             = regexp.MustCompile(`(?i)\b(?:may|might|arguably|perhaps|possibly|could|seem(?:s|ed)?|appear(?:s|ed)?|suggest(?:s|ed)?|unclear)\b`)
	wordRe              = regexp.MustCompile(`[\p{L}\p{N}'’]+`)
	sentenceEndRe       = regexp.MustCompile(`[.!?]+(?:\s|$)`)

	// Sentiment keywords: strong terms count 1.0, moderate ones 0.5
	positiveStrongRe   = words(`followed|affirmed|correctly|persuasive|sound|well[- ]reasoned|landmark`)
	positiveModerateRe = words(`agree(?:s|d)?|consistent|support(?:s|ed)?|adopt(?:s|ed)?|reasonable|instructive`)
	negativeStrongRe   = words(`overruled|reversed|erroneous|wrongly|incorrect(?:ly)?|vacated|abrogated`)
	negativeModerateRe = words(`questioned|critici[sz]ed|doubt(?:ed|ful)?|flawed|unpersuasive|disagree(?:s|d)?|limited`)

	reasoningRe = regexp.MustCompile(`(?i)\b(?:because|since|the court reasoned that|reasoning that|on the ground(?:s)? that|given that|in light of)\s+([^.;]+)`)
	pageRefRe   = regexp.MustCompile(`(?:\bat\s+|\*)(\d{1,5}(?:[-–]\d{1,5})?)\b`)
)

const (
	sentimentScale  = 3.0
	maxReasoningLen = 300
)
