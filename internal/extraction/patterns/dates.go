package patterns

import (
	"regexp"
	"time"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

// Dates here are already ISO: the normalizer canonicalizes every timestamp
// style before extraction runs.
var (
	admissionRE = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\badmi(?:tted|ssion)(?:\s+date)?\s*(?:on|:)?\s*(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)\badmit(?:ted)?\s+(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)\bdate\s+of\s+admission\s*:?\s*(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)\bDOA\s*:?\s*(\d{4}-\d{2}-\d{2})`),
	}
	dischargeRE = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bdischarge(?:d)?(?:\s+date)?\s*(?:on|:|home\s+on)?\s*(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)\bdate\s+of\s+discharge\s*:?\s*(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)\bDOD\s*:?\s*(\d{4}-\d{2}-\d{2})`),
	}
	procedureDateRE = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:underwent|surgery|operation|procedure|taken\s+to\s+(?:the\s+)?OR)\b[^.\n]{0,80}?\bon\s+(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)\bdate\s+of\s+(?:surgery|procedure|operation)\s*:?\s*(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)\bDOS\s*:?\s*(\d{4}-\d{2}-\d{2})`),
	}
)

func (s *Service) extractDates(notes []domain.Note, rec *domain.ExtractedRecord) {
	admitHits, dischargeHits := 0, 0
	procSeen := map[time.Time]bool{}

	for _, note := range notes {
		for _, re := range admissionRE {
			if m := re.FindStringSubmatch(note.Text); m != nil {
				if d, ok := parseISO(m[1]); ok {
					if rec.Dates.Admission.IsZero() {
						rec.Dates.Admission = domain.DateField{Value: d, Resolved: true, Confidence: 0.9, Source: domain.SourcePattern}
					}
					admitHits++
				}
				break
			}
		}
		for _, re := range dischargeRE {
			if m := re.FindStringSubmatch(note.Text); m != nil {
				if d, ok := parseISO(m[1]); ok {
					if rec.Dates.Discharge.IsZero() {
						rec.Dates.Discharge = domain.DateField{Value: d, Resolved: true, Confidence: 0.9, Source: domain.SourcePattern}
					}
					dischargeHits++
				}
				break
			}
		}
		for _, re := range procedureDateRE {
			for _, m := range re.FindAllStringSubmatch(note.Text, -1) {
				if d, ok := parseISO(m[1]); ok && !procSeen[d] {
					procSeen[d] = true
					rec.Dates.ProcedureDates = append(rec.Dates.ProcedureDates, domain.DateField{
						Value: d, Resolved: true, Confidence: 0.85, Source: domain.SourcePattern,
					})
				}
			}
		}
	}

	if !rec.Dates.Admission.IsZero() && admitHits > 1 {
		rec.Dates.Admission.Confidence = AdjustConfidence(rec.Dates.Admission.Confidence, admitHits-1, false, nil)
	}
	if !rec.Dates.Discharge.IsZero() && dischargeHits > 1 {
		rec.Dates.Discharge.Confidence = AdjustConfidence(rec.Dates.Discharge.Confidence, dischargeHits-1, false, nil)
	}
}

func parseISO(v string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
