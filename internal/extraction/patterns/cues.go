package patterns

import (
	"regexp"
	"strings"
)

var sentenceSplitRE = regexp.MustCompile(`[.;\n]+`)

// Sentences splits note text into rough clause units with their byte
// offsets. Clause granularity keeps negation scope tight: "no vasospasm;
// EVD in place" must not negate the EVD.
func Sentences(text string) []Sentence {
	out := make([]Sentence, 0, 16)
	start := 0
	for _, loc := range sentenceSplitRE.FindAllStringIndex(text, -1) {
		seg := text[start:loc[0]]
		if strings.TrimSpace(seg) != "" {
			out = append(out, Sentence{Text: seg, Start: start, End: loc[0]})
		}
		start = loc[1]
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		out = append(out, Sentence{Text: text[start:], Start: start, End: len(text)})
	}
	return out
}

type Sentence struct {
	Text  string
	Start int
	End   int
}

var negationCues = []string{
	"no ", "not ", "denies", "denied", "without ", "ruled out", "rules out",
	"negative for", "no evidence of", "no signs of", "free of", "absence of",
}

var uncertaintyCues = []string{
	"possible", "possibly", "probable", "likely", "concern for", "concerning for",
	"cannot rule out", "cannot exclude", "questionable", "suspected", "suspicious for",
	"versus", " vs ", "rule out", "r/o",
}

// Negation cues only count when they precede the match within the clause;
// "vasospasm, not improving" is not a negated vasospasm.
func IsNegated(sentence string, matchOffset int) bool {
	prefix := strings.ToLower(sentence)
	if matchOffset >= 0 && matchOffset <= len(sentence) {
		prefix = strings.ToLower(sentence[:matchOffset])
	}
	for _, cue := range negationCues {
		if idx := strings.LastIndex(prefix, cue); idx >= 0 {
			// A cue more than ~8 tokens back is out of scope.
			if tokensBetween(prefix[idx:]) <= 8 {
				return true
			}
		}
	}
	return false
}

func IsUncertain(sentence string) bool {
	low := strings.ToLower(sentence)
	for _, cue := range uncertaintyCues {
		if strings.Contains(low, cue) {
			return true
		}
	}
	return false
}

func tokensBetween(s string) int {
	return len(strings.Fields(s))
}

// Temporal qualifiers recognized on a clause; they downgrade or re-tag a
// match rather than suppressing it.
const (
	QualifierResolved  = "resolved"
	QualifierOngoing   = "ongoing"
	QualifierHistoryOf = "history_of"
	QualifierImproving = "improving"
	QualifierWorsening = "worsening"
)

var temporalQualifierCues = map[string]string{
	"resolved":   QualifierResolved,
	"resolving":  QualifierImproving,
	"improved":   QualifierImproving,
	"improving":  QualifierImproving,
	"ongoing":    QualifierOngoing,
	"persistent": QualifierOngoing,
	"continues":  QualifierOngoing,
	"worsened":   QualifierWorsening,
	"worsening":  QualifierWorsening,
	"history of": QualifierHistoryOf,
	"h/o":        QualifierHistoryOf,
	"hx of":      QualifierHistoryOf,
	"prior":      QualifierHistoryOf,
	"chronic":    QualifierHistoryOf,
	"known":      QualifierHistoryOf,
}

func TemporalQualifiers(sentence string) []string {
	low := strings.ToLower(sentence)
	seen := map[string]bool{}
	var out []string
	for cue, q := range temporalQualifierCues {
		if strings.Contains(low, cue) && !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

// AdjustConfidence applies the shared confidence model: rule specificity as
// the base, a small bonus per independent corroborating match, and
// uncertainty downgrades. Bounds are clamped to [0,1].
func AdjustConfidence(base float64, corroborations int, uncertain bool, qualifiers []string) float64 {
	conf := base
	for i := 0; i < corroborations; i++ {
		conf += 0.05
	}
	if conf > 0.95 {
		conf = 0.95
	}
	if uncertain {
		conf *= 0.6
	}
	for _, q := range qualifiers {
		if q == QualifierHistoryOf {
			conf *= 0.75
		}
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}
