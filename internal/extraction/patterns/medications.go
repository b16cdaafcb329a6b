package patterns

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

var (
	doseRE      = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?\s?(?:mg|mcg|g|units?|mEq|mL))\b`)
	routeRE     = regexp.MustCompile(`(?i)\b(PO|IV|IM|SC|SQ|PR|SL|per\s+(?:NG|PEG)\s+tube)\b`)
	frequencyRE = regexp.MustCompile(`(?i)\b(daily|twice\s+daily|BID|TID|QID|QHS|nightly|weekly|PRN|q\s?\d+\s?h(?:ours)?|every\s+\d+\s+hours)\b`)
)

var medNameRE = buildMedNameRE()

func buildMedNameRE() *regexp.Regexp {
	escaped := make([]string, 0, len(medicationLexicon))
	for _, name := range medicationLexicon {
		escaped = append(escaped, strings.ReplaceAll(regexp.QuoteMeta(name), `\ `, `\s+`))
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// extractMedications scans clause by clause so dose/route/frequency
// captures attach to the right drug when several appear on one line.
func (s *Service) extractMedications(notes []domain.Note) []domain.EntityMention {
	var out []domain.EntityMention
	for _, note := range notes {
		for _, sent := range Sentences(note.Text) {
			for _, loc := range medNameRE.FindAllStringIndex(sent.Text, -1) {
				name := strings.ToLower(strings.TrimSpace(sent.Text[loc[0]:loc[1]]))
				if IsNegated(sent.Text, loc[0]) {
					continue
				}
				tail := sent.Text[loc[1]:]
				// Attribute detail only up to the next recognized drug name.
				if next := medNameRE.FindStringIndex(tail); next != nil {
					tail = tail[:next[0]]
				}

				m := domain.EntityMention{
					ID:         uuid.New(),
					Kind:       domain.KindMedication,
					Name:       name,
					NoteID:     note.ID,
					NoteDate:   note.ReportedDate,
					Sentence:   strings.TrimSpace(sent.Text),
					SpanStart:  sent.Start + loc[0],
					SpanEnd:    sent.Start + loc[1],
					RuleID:     "med.lexicon",
					Source:     domain.SourcePattern,
					Qualifiers: TemporalQualifiers(sent.Text),
				}
				if d := doseRE.FindString(tail); d != "" {
					m.Dose = strings.ToLower(strings.TrimSpace(d))
				}
				if r := routeRE.FindString(tail); r != "" {
					m.Route = strings.ToUpper(strings.TrimSpace(r))
				}
				if f := frequencyRE.FindString(tail); f != "" {
					m.Frequency = strings.ToLower(strings.TrimSpace(f))
				}

				base := 0.6
				if m.Dose != "" {
					base += 0.15
				}
				if m.Frequency != "" || m.Route != "" {
					base += 0.05
				}
				m.Confidence = AdjustConfidence(base, 0, IsUncertain(sent.Text), m.Qualifiers)
				out = append(out, m)
			}
		}
	}
	return out
}
