package normalization

import (
	"regexp"
	"strings"
)

var (
	wsRE       = regexp.MustCompile(`\s+`)
	nonAlnumRE = regexp.MustCompile(`[^a-z0-9 ]+`)
)

func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// EntityName canonicalizes a clinical entity name for matching: lowercase,
// punctuation stripped, whitespace collapsed, common abbreviations expanded.
func EntityName(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = nonAlnumRE.ReplaceAllString(s, " ")
	s = wsRE.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	words := strings.Split(s, " ")
	for i, w := range words {
		if exp, ok := entityAbbrev[w]; ok {
			words[i] = exp
		}
	}
	return strings.Join(words, " ")
}

// entityAbbrev maps common clinical shorthand to the expanded form so that
// "EVD placed" and "external ventricular drain placement" land on the same
// canonical key.
var entityAbbrev = map[string]string{
	"evd":   "external ventricular drain",
	"vps":   "ventriculoperitoneal shunt",
	"vp":    "ventriculoperitoneal",
	"crani": "craniotomy",
	"uti":   "urinary tract infection",
	"dvt":   "deep vein thrombosis",
	"pe":    "pulmonary embolism",
	"sah":   "subarachnoid hemorrhage",
	"sdh":   "subdural hematoma",
	"ich":   "intracerebral hemorrhage",
	"acdf":  "anterior cervical discectomy and fusion",
}

// SameEntityName reports whether two canonicalized names refer to the same
// entity: equal, one contains the other, or they share most tokens.
func SameEntityName(a, b string) bool {
	na, nb := EntityName(a), EntityName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	ta := strings.Split(na, " ")
	tb := strings.Split(nb, " ")
	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	shared := 0
	for _, t := range tb {
		if set[t] {
			shared++
		}
	}
	min := len(ta)
	if len(tb) < min {
		min = len(tb)
	}
	if min == 0 {
		return false
	}
	return float64(shared)/float64(min) >= 0.8
}
