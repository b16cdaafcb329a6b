package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

// Service cleans and segments raw note text before extraction. Failure is
// non-fatal: a note that cannot be normalized passes through unchanged.
type Service struct {
	log *logger.Logger
}

func NewService(log *logger.Logger) *Service {
	return &Service{log: log.With("service", "TextNormalizer")}
}

var (
	bulletRE     = regexp.MustCompile(`(?m)^[\s]*[•·▪*o]\s+`)
	multiBlankRE = regexp.MustCompile(`\n{3,}`)
	trailWSRE    = regexp.MustCompile(`(?m)[ \t]+$`)
	headerRE     = regexp.MustCompile(`(?mi)^[ \t]*(hpi|history of present illness|pmh|past medical history|assessment|plan|assessment and plan|a/p|hospital course|physical exam|pe|exam|medications|meds|labs|imaging|operative note|procedure|impression|hospital day|disposition)[ \t]*:`)

	// Timestamp styles seen across note headers, most specific first.
	usDateTimeRE = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})(?::\d{2})?\s*(AM|PM|am|pm)?\b`)
	usDateRE     = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	usShortYrRE  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2})\b`)
	monthNameRE  = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	isoDateRE    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "sept": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// Normalize converts raw inputs into pipeline notes: canonical line endings,
// ISO dates, uppercase section headers, dash bullets, collapsed whitespace.
func (s *Service) Normalize(inputs []domain.NoteInput) []domain.Note {
	out := make([]domain.Note, 0, len(inputs))
	for i, in := range inputs {
		note := domain.Note{
			ID:           fmt.Sprintf("note-%03d-%s", i+1, uuid.NewString()[:8]),
			Text:         in.Text,
			Type:         strings.ToLower(strings.TrimSpace(in.Type)),
			ReportedDate: in.ReportedDate,
		}
		text, err := s.normalizeText(in.Text)
		if err != nil {
			s.log.Warn("note normalization failed, passing through unchanged", "note_id", note.ID, "error", err)
		} else {
			note.Text = text
		}
		if note.ReportedDate == nil {
			if d, ok := FirstDate(note.Text); ok {
				note.ReportedDate = &d
			}
		}
		out = append(out, note)
	}
	return out
}

func (s *Service) normalizeText(raw string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("normalize panic: %v", r)
		}
	}()

	text = raw
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, " ", " ")
	text = bulletRE.ReplaceAllString(text, "- ")
	text = CanonicalizeDates(text)
	text = headerRE.ReplaceAllStringFunc(text, func(h string) string {
		return strings.ToUpper(strings.TrimRight(strings.TrimSpace(h), ":")) + ":"
	})
	text = trailWSRE.ReplaceAllString(text, "")
	text = multiBlankRE.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

// CanonicalizeDates rewrites every recognized timestamp style to ISO
// YYYY-MM-DD so downstream regexes only ever see one format.
func CanonicalizeDates(text string) string {
	text = usDateTimeRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := usDateTimeRE.FindStringSubmatch(m)
		return rewriteUS(sub[1], sub[2], sub[3])
	})
	text = monthNameRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := monthNameRE.FindStringSubmatch(m)
		mon, ok := monthIndex[strings.ToLower(sub[1])[:3]]
		if !ok {
			return m
		}
		return fmt.Sprintf("%s-%02d-%s", sub[3], int(mon), pad2(sub[2]))
	})
	text = usDateRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := usDateRE.FindStringSubmatch(m)
		return rewriteUS(sub[1], sub[2], sub[3])
	})
	text = usShortYrRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := usShortYrRE.FindStringSubmatch(m)
		return rewriteUS(sub[1], sub[2], "20"+sub[3])
	})
	return text
}

func rewriteUS(month, day, year string) string {
	return fmt.Sprintf("%s-%s-%s", year, pad2(month), pad2(day))
}

func pad2(v string) string {
	if len(v) == 1 {
		return "0" + v
	}
	return v
}

// FirstDate returns the first ISO date appearing in already-canonicalized
// text.
func FirstDate(text string) (time.Time, bool) {
	m := isoDateRE.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", m[0])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
