package patterns

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

type scorePattern struct {
	id  string
	re  *regexp.Regexp
	typ domain.FunctionalScoreType
	min float64
	max float64
}

var scorePatterns = []scorePattern{
	{id: "score.kps", re: regexp.MustCompile(`(?i)\bKPS\s*(?:of|:|=)?\s*(\d{1,3})\b`), typ: domain.ScoreKPS, min: 0, max: 100},
	{id: "score.ecog", re: regexp.MustCompile(`(?i)\bECOG\s*(?:of|:|=)?\s*([0-5])\b`), typ: domain.ScoreECOG, min: 0, max: 5},
	{id: "score.mrs", re: regexp.MustCompile(`(?i)\bmRS\s*(?:of|:|=)?\s*([0-6])\b`), typ: domain.ScoreMRS, min: 0, max: 6},
	{id: "score.gcs", re: regexp.MustCompile(`(?i)\bGCS\s*(?:of|:|=)?\s*(\d{1,2})\b`), typ: domain.ScoreGCS, min: 3, max: 15},
}

var gcsComponentRE = regexp.MustCompile(`(?i)\bGCS\s*:?\s*E(\d)\s*V(\d{1,2})\s*M(\d)\b`)
var asiaRE = regexp.MustCompile(`(?i)\bASIA\s*(?:grade\s*)?([A-E])\b`)

// ASIA grades map A..E onto 0..4 for storage; normalization to 0-100
// happens in the intelligence layer.
var asiaGradeValue = map[string]float64{"A": 0, "B": 1, "C": 2, "D": 3, "E": 4}

func (s *Service) extractFunctionalScores(notes []domain.Note) []domain.EntityMention {
	var out []domain.EntityMention
	for _, note := range notes {
		for _, sent := range Sentences(note.Text) {
			// Component-form GCS first so the summed form does not also
			// match the plain GCS pattern's numeric capture.
			if m := gcsComponentRE.FindStringSubmatchIndex(sent.Text); m != nil {
				e, _ := strconv.ParseFloat(sent.Text[m[2]:m[3]], 64)
				v, _ := strconv.ParseFloat(sent.Text[m[4]:m[5]], 64)
				mo, _ := strconv.ParseFloat(sent.Text[m[6]:m[7]], 64)
				total := e + v + mo
				if total >= 3 && total <= 15 {
					out = append(out, s.scoreMention(note, sent, m[0], m[1], "score.gcs_components", domain.ScoreGCS, total, sent.Text[m[0]:m[1]], 0.9))
				}
				continue
			}
			for _, pat := range scorePatterns {
				for _, m := range pat.re.FindAllStringSubmatchIndex(sent.Text, -1) {
					raw := sent.Text[m[2]:m[3]]
					val, err := strconv.ParseFloat(raw, 64)
					if err != nil || val < pat.min || val > pat.max {
						continue
					}
					out = append(out, s.scoreMention(note, sent, m[0], m[1], pat.id, pat.typ, val, sent.Text[m[0]:m[1]], 0.85))
				}
			}
			if m := asiaRE.FindStringSubmatchIndex(sent.Text); m != nil {
				grade := strings.ToUpper(sent.Text[m[2]:m[3]])
				if val, ok := asiaGradeValue[grade]; ok {
					out = append(out, s.scoreMention(note, sent, m[0], m[1], "score.asia", domain.ScoreASIA, val, sent.Text[m[0]:m[1]], 0.85))
				}
			}
		}
	}
	return out
}

func (s *Service) scoreMention(note domain.Note, sent Sentence, start, end int, ruleID string, typ domain.FunctionalScoreType, val float64, raw string, base float64) domain.EntityMention {
	return domain.EntityMention{
		ID:         uuid.New(),
		Kind:       domain.KindFunctionalScore,
		Name:       string(typ),
		ScoreType:  typ,
		ScoreValue: val,
		NoteID:     note.ID,
		NoteDate:   note.ReportedDate,
		Sentence:   strings.TrimSpace(sent.Text),
		SpanStart:  sent.Start + start,
		SpanEnd:    sent.Start + end,
		RuleID:     ruleID,
		Source:     domain.SourcePattern,
		Confidence: AdjustConfidence(base, 0, IsUncertain(sent.Text), nil),
	}
}
