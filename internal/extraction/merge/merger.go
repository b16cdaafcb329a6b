package merge

import (
	"sort"
	"strconv"
	"time"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/normalization"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

const (
	agreementBonus = 0.05
	confidenceCap  = 0.95
	// Array entries from different sources within this gap are the same
	// entity.
	arrayDateWindow = 24 * time.Hour
)

type Service struct {
	log   *logger.Logger
	table PriorityTable
}

func NewService(log *logger.Logger, table PriorityTable) *Service {
	if table.Default == "" && table.Fields == nil {
		table = DefaultPriorityTable()
	}
	return &Service{log: log.With("service", "Merger"), table: table}
}

// Input carries both source records plus the canonical (already
// entity-deduplicated) mentions from both sources.
type Input struct {
	Pattern  domain.ExtractionSet
	LLM      *domain.ExtractionSet // nil when the adapter failed or was disabled
	Mentions []domain.EntityMention
	Groups   []domain.DeduplicationGroup
}

type Output struct {
	Record        domain.ExtractedRecord
	Disagreements []domain.FieldDisagreement
}

// Merge combines the two extraction sources field by field, then
// materializes the entity arrays from the canonical mentions.
func (s *Service) Merge(in Input) Output {
	out := Output{}
	rec := &out.Record

	var llmRec domain.ExtractedRecord
	if in.LLM != nil {
		llmRec = in.LLM.Record
	}
	pat := in.Pattern.Record

	rec.Demographics.Name = s.mergeString("demographics.name", pat.Demographics.Name, llmRec.Demographics.Name, &out.Disagreements)
	rec.Demographics.MRN = s.mergeString("demographics.mrn", pat.Demographics.MRN, llmRec.Demographics.MRN, &out.Disagreements)
	rec.Demographics.Sex = s.mergeString("demographics.sex", pat.Demographics.Sex, llmRec.Demographics.Sex, &out.Disagreements)
	rec.Demographics.Age = s.mergeInt("demographics.age", pat.Demographics.Age, llmRec.Demographics.Age, &out.Disagreements)

	rec.Dates.Admission = s.mergeDate("dates.admission", pat.Dates.Admission, llmRec.Dates.Admission, &out.Disagreements)
	rec.Dates.Discharge = s.mergeDate("dates.discharge", pat.Dates.Discharge, llmRec.Dates.Discharge, &out.Disagreements)
	rec.Dates.ProcedureDates = mergeDateLists(pat.Dates.ProcedureDates, llmRec.Dates.ProcedureDates)

	rec.Pathology = s.mergePathology(pat.Pathology, llmRec.Pathology, &out.Disagreements)

	s.buildArrays(rec, in.Mentions, &out.Disagreements)

	s.log.Debug("merge done",
		"procedures", len(rec.Procedures),
		"complications", len(rec.Complications),
		"medications", len(rec.Medications),
		"disagreements", len(out.Disagreements),
	)
	return out
}

func (s *Service) mergeString(field string, p, l domain.StringField, dis *[]domain.FieldDisagreement) domain.StringField {
	switch {
	case p.IsZero() && l.IsZero():
		return domain.StringField{}
	case l.IsZero():
		return p
	case p.IsZero():
		return l
	}
	if normalization.ParseInputString(p.Value) == normalization.ParseInputString(l.Value) {
		return domain.StringField{
			Value:      p.Value,
			Confidence: capConf(maxf(p.Confidence, l.Confidence) + agreementBonus),
			Source:     domain.SourceMerged,
		}
	}
	winner := s.table.Winner(field)
	*dis = append(*dis, domain.FieldDisagreement{Field: field, PatternValue: p.Value, LLMValue: l.Value, Winner: winner})
	if winner == domain.SourcePattern {
		return p
	}
	return l
}

func (s *Service) mergeInt(field string, p, l domain.IntField, dis *[]domain.FieldDisagreement) domain.IntField {
	switch {
	case !p.Present && !l.Present:
		return domain.IntField{}
	case !l.Present:
		return p
	case !p.Present:
		return l
	}
	if p.Value == l.Value {
		return domain.IntField{
			Value: p.Value, Present: true,
			Confidence: capConf(maxf(p.Confidence, l.Confidence) + agreementBonus),
			Source:     domain.SourceMerged,
		}
	}
	winner := s.table.Winner(field)
	*dis = append(*dis, domain.FieldDisagreement{
		Field: field, PatternValue: itoa(p.Value), LLMValue: itoa(l.Value), Winner: winner,
	})
	if winner == domain.SourcePattern {
		return p
	}
	return l
}

func (s *Service) mergeDate(field string, p, l domain.DateField, dis *[]domain.FieldDisagreement) domain.DateField {
	switch {
	case !p.Resolved && !l.Resolved:
		if !p.IsZero() {
			return p
		}
		return l
	case !l.Resolved:
		return p
	case !p.Resolved:
		return l
	}
	if p.Value.Equal(l.Value) {
		return domain.DateField{
			Value: p.Value, Resolved: true,
			Confidence: capConf(maxf(p.Confidence, l.Confidence) + agreementBonus),
			Source:     domain.SourceMerged,
		}
	}
	winner := s.table.Winner(field)
	*dis = append(*dis, domain.FieldDisagreement{
		Field:        field,
		PatternValue: p.Value.Format("2006-01-02"),
		LLMValue:     l.Value.Format("2006-01-02"),
		Winner:       winner,
	})
	if winner == domain.SourcePattern {
		return p
	}
	return l
}

func (s *Service) mergePathology(p, l domain.Pathology, dis *[]domain.FieldDisagreement) domain.Pathology {
	switch {
	case p.Category.IsZero() && l.Category.IsZero():
		return domain.Pathology{}
	case l.Category.IsZero():
		return p
	case p.Category.IsZero():
		return l
	}
	if p.Category.Kind() == l.Category.Kind() {
		out := p
		out.Source = domain.SourceMerged
		out.Confidence = capConf(maxf(p.Confidence, l.Confidence) + agreementBonus)
		if out.Subtype.IsZero() {
			out.Subtype = l.Subtype
		}
		if out.Location.IsZero() {
			out.Location = l.Location
		}
		return out
	}
	winner := s.table.Winner("pathology.type")
	*dis = append(*dis, domain.FieldDisagreement{
		Field: "pathology.type", PatternValue: p.Category.String(), LLMValue: l.Category.String(), Winner: winner,
	})
	if winner == domain.SourcePattern {
		return p
	}
	return l
}

// buildArrays materializes procedures, complications, medications and
// functional scores from the canonical mentions, resolving cross-source
// detail conflicts via the priority table.
func (s *Service) buildArrays(rec *domain.ExtractedRecord, mentions []domain.EntityMention, dis *[]domain.FieldDisagreement) {
	type bucket struct {
		members []domain.EntityMention
	}
	buckets := map[domain.EntityKind][]*bucket{}

	for _, m := range mentions {
		if m.Negated {
			continue
		}
		kindBuckets := buckets[m.Kind]
		var home *bucket
		for _, b := range kindBuckets {
			if sameArrayEntity(b.members[0], m) {
				home = b
				break
			}
		}
		if home == nil {
			home = &bucket{}
			buckets[m.Kind] = append(buckets[m.Kind], home)
		}
		home.members = append(home.members, m)
	}

	for kind, kindBuckets := range buckets {
		for _, b := range kindBuckets {
			merged := s.resolveBucket(kind, b.members, dis)
			switch kind {
			case domain.KindProcedure:
				rec.Procedures = append(rec.Procedures, domain.Procedure{
					ID: merged.ID, Name: merged.Name, Date: merged.Date, DateResolved: merged.DateResolved,
					Confidence: merged.Confidence, Source: merged.Source, NoteID: merged.NoteID,
				})
			case domain.KindComplication:
				rec.Complications = append(rec.Complications, domain.Complication{
					ID: merged.ID, Name: merged.Name, OnsetDate: merged.Date, DateResolved: merged.DateResolved,
					Severity: merged.Severity, Resolved: merged.ResolvedFlag,
					Confidence: merged.Confidence, Source: merged.Source, NoteID: merged.NoteID,
				})
			case domain.KindMedication:
				rec.Medications = append(rec.Medications, domain.Medication{
					ID: merged.ID, Name: merged.Name, Dose: merged.Dose, Frequency: merged.Frequency,
					Route: merged.Route, Confidence: merged.Confidence, Source: merged.Source, NoteID: merged.NoteID,
				})
			case domain.KindFunctionalScore:
				rec.FunctionalScores = append(rec.FunctionalScores, domain.FunctionalScore{
					ID: merged.ID, Type: merged.ScoreType, Value: merged.ScoreValue,
					Date: merged.Date, DateResolved: merged.DateResolved,
					Confidence: merged.Confidence, Source: merged.Source, NoteID: merged.NoteID,
				})
			}
		}
	}

	sortRecord(rec)
}

// sameArrayEntity unions cross-source entries: same normalized name and
// dates within one day (undated entries attach to the dated ones).
func sameArrayEntity(a, b domain.EntityMention) bool {
	if !normalization.SameEntityName(a.Name, b.Name) {
		return false
	}
	if !a.DateResolved || !b.DateResolved {
		return true
	}
	gap := a.Date.Sub(b.Date)
	if gap < 0 {
		gap = -gap
	}
	return gap <= arrayDateWindow
}

// resolveBucket folds one entity's cross-source members into one entry.
// Pattern-vs-LLM detail conflicts go to the priority table; agreement earns
// the bonus.
func (s *Service) resolveBucket(kind domain.EntityKind, members []domain.EntityMention, dis *[]domain.FieldDisagreement) domain.EntityMention {
	var patM, llmM *domain.EntityMention
	for i := range members {
		switch members[i].Source {
		case domain.SourcePattern, domain.SourceMerged:
			if patM == nil {
				patM = &members[i]
			}
		case domain.SourceLLM:
			if llmM == nil {
				llmM = &members[i]
			}
		}
	}

	if patM == nil {
		return *llmM
	}
	if llmM == nil {
		return *patM
	}

	out := *patM
	out.Source = domain.SourceMerged
	out.Confidence = capConf(maxf(patM.Confidence, llmM.Confidence) + agreementBonus)

	if kind == domain.KindMedication {
		if patM.Dose != "" && llmM.Dose != "" && patM.Dose != llmM.Dose {
			winner := s.table.Winner("medications.dose")
			*dis = append(*dis, domain.FieldDisagreement{
				Field: "medications.dose." + out.Name, PatternValue: patM.Dose, LLMValue: llmM.Dose, Winner: winner,
			})
			if winner == domain.SourceLLM {
				out.Dose = llmM.Dose
			} else {
				out.Source = domain.SourcePattern
			}
		}
		if out.Dose == "" {
			out.Dose = llmM.Dose
		}
		if out.Frequency == "" {
			out.Frequency = llmM.Frequency
		}
		if out.Route == "" {
			out.Route = llmM.Route
		}
	}
	if kind == domain.KindFunctionalScore && patM.ScoreValue != llmM.ScoreValue {
		winner := s.table.Winner("functional_scores.value")
		*dis = append(*dis, domain.FieldDisagreement{
			Field:        "functional_scores." + string(out.ScoreType),
			PatternValue: ftoa(patM.ScoreValue), LLMValue: ftoa(llmM.ScoreValue), Winner: winner,
		})
		if winner == domain.SourceLLM {
			out.ScoreValue = llmM.ScoreValue
		} else {
			out.Source = domain.SourcePattern
		}
	}
	if out.Severity == "" {
		out.Severity = llmM.Severity
	}
	if !out.DateResolved && llmM.DateResolved {
		out.Date, out.DateResolved = llmM.Date, true
	}
	return out
}

func mergeDateLists(p, l []domain.DateField) []domain.DateField {
	out := append([]domain.DateField(nil), p...)
	for _, ld := range l {
		dup := false
		for _, pd := range out {
			gap := pd.Value.Sub(ld.Value)
			if gap < 0 {
				gap = -gap
			}
			if gap <= arrayDateWindow {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, ld)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Value.Before(out[b].Value) })
	return out
}

func sortRecord(rec *domain.ExtractedRecord) {
	sort.SliceStable(rec.Procedures, func(a, b int) bool { return rec.Procedures[a].Date.Before(rec.Procedures[b].Date) })
	sort.SliceStable(rec.Complications, func(a, b int) bool { return rec.Complications[a].OnsetDate.Before(rec.Complications[b].OnsetDate) })
	sort.SliceStable(rec.Medications, func(a, b int) bool { return rec.Medications[a].Name < rec.Medications[b].Name })
	sort.SliceStable(rec.FunctionalScores, func(a, b int) bool { return rec.FunctionalScores[a].Date.Before(rec.FunctionalScores[b].Date) })
}

func capConf(v float64) float64 {
	if v > confidenceCap {
		return confidenceCap
	}
	if v < 0 {
		return 0
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
