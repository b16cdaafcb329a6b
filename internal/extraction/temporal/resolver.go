package temporal

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/normalization"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

// Config bounds the new-event vs reference classification.
type Config struct {
	// ReferenceWindow is how far apart two datings of the same entity may
	// sit and still count as the same event. Default: same calendar day.
	ReferenceWindow time.Duration
}

func DefaultConfig() Config {
	return Config{ReferenceWindow: 24 * time.Hour}
}

// Anchors are the resolved reference dates relative markers hang off.
// Surgery is preferred for POD counting; Admission anchors HD and is the
// POD fallback when no surgery date resolved.
type Anchors struct {
	Admission time.Time
	Surgery   time.Time
	Discharge time.Time
}

// AnchorsFromRecord derives anchors from the scalar fields the pattern pass
// already resolved.
func AnchorsFromRecord(rec domain.ExtractedRecord) Anchors {
	a := Anchors{}
	if rec.Dates.Admission.Resolved {
		a.Admission = rec.Dates.Admission.Value
	}
	if rec.Dates.Discharge.Resolved {
		a.Discharge = rec.Dates.Discharge.Value
	}
	for _, pd := range rec.Dates.ProcedureDates {
		if pd.Resolved && (a.Surgery.IsZero() || pd.Value.Before(a.Surgery)) {
			a.Surgery = pd.Value
		}
	}
	return a
}

type Service struct {
	log *logger.Logger
	cfg Config
}

func NewService(log *logger.Logger, cfg Config) *Service {
	if cfg.ReferenceWindow <= 0 {
		cfg.ReferenceWindow = DefaultConfig().ReferenceWindow
	}
	return &Service{log: log.With("service", "TemporalResolver"), cfg: cfg}
}

var (
	isoInSentenceRE = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	podRE           = regexp.MustCompile(`(?i)\b(?:POD\s*#?\s*(\d{1,3})|post-?op(?:erative)?\s+day\s+#?\s*(\d{1,3}))\b`)
	hdRE            = regexp.MustCompile(`(?i)\b(?:HD\s*#?\s*(\d{1,3})|hospital\s+day\s+#?\s*(\d{1,3}))\b`)
	daysAgoRE       = regexp.MustCompile(`(?i)\b(\d{1,2})\s+days?\s+ago\b`)
	yesterdayRE     = regexp.MustCompile(`(?i)\byesterday\b|\blast\s+night\b`)
	todayRE         = regexp.MustCompile(`(?i)\btoday\b|\bthis\s+(?:morning|afternoon|evening)\b|\btonight\b|\bovernight\b`)
)

// Resolve dates every mention in place and classifies repeats as
// references. Fallback order per mention: explicit date in the clause >
// relative marker anchored to surgery/admission > note date > admission+2d
// > unresolved.
func (s *Service) Resolve(mentions []domain.EntityMention, anchors Anchors) []domain.EntityMention {
	for i := range mentions {
		s.resolveMention(&mentions[i], anchors)
		if !withinStay(mentions[i].Date, anchors) {
			mentions[i].DateResolved = false
		}
	}
	s.classifyReferences(mentions)
	return mentions
}

func (s *Service) resolveMention(m *domain.EntityMention, anchors Anchors) {
	// Mentions dated upstream (LLM output with an explicit date) stand.
	if m.DateResolved && !m.Date.IsZero() {
		return
	}

	// Explicit date inside the clause wins outright.
	if iso := isoInSentenceRE.FindString(m.Sentence); iso != "" {
		if t, err := time.Parse("2006-01-02", iso); err == nil {
			m.Date, m.DateResolved = t, true
			return
		}
	}

	if marker, d, ok := s.resolveRelative(m.Sentence, m.NoteDate, anchors); ok {
		m.RelativeMarker = marker
		m.Date, m.DateResolved = d, true
		return
	}

	if m.NoteDate != nil && !m.NoteDate.IsZero() {
		m.Date, m.DateResolved = day(*m.NoteDate), true
		return
	}

	if !anchors.Admission.IsZero() {
		m.Date = anchors.Admission.AddDate(0, 0, 2)
		m.DateResolved = false
		return
	}
	m.DateResolved = false
}

// resolveRelative maps one relative marker to an absolute date. POD anchors
// to the surgery date, falling back to admission when no surgery date
// resolved; HD always anchors to admission.
func (s *Service) resolveRelative(sentence string, noteDate *time.Time, anchors Anchors) (string, time.Time, bool) {
	if m := podRE.FindStringSubmatch(sentence); m != nil {
		n := firstInt(m[1:])
		anchor := anchors.Surgery
		if anchor.IsZero() {
			anchor = anchors.Admission
		}
		if !anchor.IsZero() {
			return "POD#" + strconv.Itoa(n), day(anchor).AddDate(0, 0, n), true
		}
		return "POD#" + strconv.Itoa(n), time.Time{}, false
	}
	if m := hdRE.FindStringSubmatch(sentence); m != nil {
		n := firstInt(m[1:])
		if !anchors.Admission.IsZero() {
			// HD#1 is the admission day itself.
			return "HD#" + strconv.Itoa(n), day(anchors.Admission).AddDate(0, 0, n-1), true
		}
		return "HD#" + strconv.Itoa(n), time.Time{}, false
	}
	base := time.Time{}
	if noteDate != nil {
		base = day(*noteDate)
	}
	if m := daysAgoRE.FindStringSubmatch(sentence); m != nil && !base.IsZero() {
		n, _ := strconv.Atoi(m[1])
		return m[0], base.AddDate(0, 0, -n), true
	}
	if yesterdayRE.MatchString(sentence) && !base.IsZero() {
		return "yesterday", base.AddDate(0, 0, -1), true
	}
	if todayRE.MatchString(sentence) && !base.IsZero() {
		return "today", base, true
	}
	return "", time.Time{}, false
}

// classifyReferences walks each entity's mentions in date order; a later
// mention inside the window that adds no new qualifying detail is a
// reference to the first, not a new event.
func (s *Service) classifyReferences(mentions []domain.EntityMention) {
	byEntity := map[string][]int{}
	for i, m := range mentions {
		key := string(m.Kind) + ":" + normalization.EntityName(m.Name)
		byEntity[key] = append(byEntity[key], i)
	}

	for _, idxs := range byEntity {
		if len(idxs) < 2 {
			continue
		}
		sort.SliceStable(idxs, func(a, b int) bool {
			return mentions[idxs[a]].Date.Before(mentions[idxs[b]].Date)
		})
		for pos := 1; pos < len(idxs); pos++ {
			cur := &mentions[idxs[pos]]
			prev := mentions[idxs[pos-1]]
			if !cur.DateResolved || !prev.DateResolved {
				// Undated repeats of a dated entity are references.
				cur.IsReference = true
				continue
			}
			gap := cur.Date.Sub(prev.Date)
			if gap < 0 {
				gap = -gap
			}
			if gap < s.cfg.ReferenceWindow && !addsNewDetail(prev, *cur) {
				cur.IsReference = true
			}
		}
	}
}

// addsNewDetail reports whether the later mention carries qualifying detail
// the earlier one lacked; such a mention is a new event even on the same day.
func addsNewDetail(prev, cur domain.EntityMention) bool {
	if cur.Severity != "" && cur.Severity != prev.Severity {
		return true
	}
	if cur.Kind == domain.KindMedication {
		if cur.Dose != "" && cur.Dose != prev.Dose {
			return true
		}
		if cur.Frequency != "" && cur.Frequency != prev.Frequency {
			return true
		}
	}
	if cur.Kind == domain.KindFunctionalScore && cur.ScoreValue != prev.ScoreValue {
		return true
	}
	if cur.HasQualifier("worsening") && !prev.HasQualifier("worsening") {
		return true
	}
	return false
}

func withinStay(d time.Time, anchors Anchors) bool {
	if d.IsZero() {
		return false
	}
	if !anchors.Admission.IsZero() && d.Before(day(anchors.Admission)) {
		return false
	}
	if !anchors.Discharge.IsZero() && d.After(day(anchors.Discharge)) {
		return false
	}
	return true
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func firstInt(groups []string) int {
	for _, g := range groups {
		if strings.TrimSpace(g) != "" {
			n, err := strconv.Atoi(g)
			if err == nil {
				return n
			}
		}
	}
	return 0
}
