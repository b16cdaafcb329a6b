package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

// sourceVerifyPenalty is applied to a field whose value cannot be found (or
// closely paraphrased) in any source note. Fields are never deleted over
// this; they only lose confidence.
const sourceVerifyPenalty = 0.5

type Service struct {
	log *logger.Logger
}

func NewService(log *logger.Logger) *Service {
	return &Service{log: log.With("service", "Validator")}
}

// Validate runs structural, chronological, plausibility and
// source-verification checks. It mutates confidences in place (downgrades
// only) and reports everything else as errors or warnings.
func (s *Service) Validate(rec *domain.ExtractedRecord, notes []domain.Note) domain.ValidationResult {
	res := domain.ValidationResult{IsValid: true}

	s.checkRequired(rec, &res)
	s.checkChronology(rec, &res)
	s.checkPlausibility(rec, &res)
	s.verifySources(rec, notes, &res)

	res.Completeness = completeness(rec)
	res.Confidence = meanConfidence(rec)
	if len(res.Errors) > 0 {
		res.IsValid = false
	}
	s.log.Debug("validation done", "valid", res.IsValid, "errors", len(res.Errors), "warnings", len(res.Warnings), "completeness", res.Completeness)
	return res
}

func (s *Service) checkRequired(rec *domain.ExtractedRecord, res *domain.ValidationResult) {
	if rec.Pathology.Category.IsZero() {
		res.Errors = append(res.Errors, domain.ValidationIssue{Field: "pathology.type", Message: "no pathology identified"})
	}
	if !rec.Dates.Admission.Resolved {
		res.Warnings = append(res.Warnings, domain.ValidationIssue{Field: "dates.admission", Message: "admission date unresolved"})
	}
	if len(rec.Procedures) == 0 {
		res.Warnings = append(res.Warnings, domain.ValidationIssue{Field: "procedures", Message: "no procedures extracted"})
	}
}

// checkChronology enforces admission <= procedure <= discharge and keeps
// every date inside [epoch, now]. Violations flag the date unresolved
// rather than erasing it.
func (s *Service) checkChronology(rec *domain.ExtractedRecord, res *domain.ValidationResult) {
	now := time.Now().AddDate(0, 0, 1)
	epoch := time.Unix(0, 0)

	checkRange := func(field string, df *domain.DateField) {
		if df.IsZero() {
			return
		}
		if df.Value.Before(epoch) || df.Value.After(now) {
			df.Resolved = false
			res.Errors = append(res.Errors, domain.ValidationIssue{Field: field, Message: fmt.Sprintf("date %s outside plausible range", df.Value.Format("2006-01-02"))})
		}
	}
	checkRange("dates.admission", &rec.Dates.Admission)
	checkRange("dates.discharge", &rec.Dates.Discharge)
	for i := range rec.Dates.ProcedureDates {
		checkRange("dates.procedure_dates", &rec.Dates.ProcedureDates[i])
	}

	admission := rec.Dates.Admission
	discharge := rec.Dates.Discharge
	if admission.Resolved && discharge.Resolved && discharge.Value.Before(admission.Value) {
		res.Errors = append(res.Errors, domain.ValidationIssue{Field: "dates", Message: "discharge precedes admission"})
		rec.Dates.Discharge.Resolved = false
	}

	for i := range rec.Procedures {
		p := &rec.Procedures[i]
		if !p.DateResolved {
			continue
		}
		if admission.Resolved && p.Date.Before(admission.Value) {
			p.DateResolved = false
			res.Warnings = append(res.Warnings, domain.ValidationIssue{Field: "procedures", Message: fmt.Sprintf("%s dated before admission", p.Name)})
		}
		if discharge.Resolved && p.Date.After(discharge.Value) {
			p.DateResolved = false
			res.Warnings = append(res.Warnings, domain.ValidationIssue{Field: "procedures", Message: fmt.Sprintf("%s dated after discharge", p.Name)})
		}
	}
	for i := range rec.Complications {
		c := &rec.Complications[i]
		if !c.DateResolved {
			continue
		}
		if admission.Resolved && c.OnsetDate.Before(admission.Value) {
			c.DateResolved = false
			res.Warnings = append(res.Warnings, domain.ValidationIssue{Field: "complications", Message: fmt.Sprintf("%s onset before admission", c.Name)})
		}
	}
}

// checkPlausibility: cross-field sanity. These are warnings, never errors;
// clinically unusual is not the same as wrong.
func (s *Service) checkPlausibility(rec *domain.ExtractedRecord, res *domain.ValidationResult) {
	if rec.Pathology.Category.Kind() == domain.PathologyVascular &&
		strings.Contains(strings.ToLower(rec.Pathology.Subtype.Value), "hemorrhage") {
		for _, med := range rec.Medications {
			if isAnticoagulant(med.Name) {
				res.Warnings = append(res.Warnings, domain.ValidationIssue{
					Field:   "medications",
					Message: fmt.Sprintf("anticoagulant %s with hemorrhagic pathology", med.Name),
				})
			}
		}
	}
	if rec.Demographics.Age.Present && rec.Demographics.Age.Value > 110 {
		res.Warnings = append(res.Warnings, domain.ValidationIssue{Field: "demographics.age", Message: "implausible age"})
	}
	for _, fs := range rec.FunctionalScores {
		if fs.Confidence < 0 || fs.Confidence > 1 {
			res.Errors = append(res.Errors, domain.ValidationIssue{Field: "functional_scores", Message: "confidence out of bounds"})
		}
	}
}

var anticoagulants = map[string]bool{
	"heparin": true, "enoxaparin": true, "lovenox": true, "warfarin": true,
	"apixaban": true, "rivaroxaban": true, "aspirin": true, "clopidogrel": true,
	"plavix": true,
}

func isAnticoagulant(name string) bool {
	return anticoagulants[strings.ToLower(name)]
}

// verifySources downgrades any field whose value never appears (or closely
// paraphrases) in the note text.
func (s *Service) verifySources(rec *domain.ExtractedRecord, notes []domain.Note, res *domain.ValidationResult) {
	if len(notes) == 0 {
		return
	}
	var corpus strings.Builder
	for _, n := range notes {
		corpus.WriteString(strings.ToLower(n.Text))
		corpus.WriteString("\n")
	}
	text := corpus.String()

	downgrade := func(field, value string, conf *float64) {
		if value == "" || appearsIn(text, value) {
			return
		}
		*conf *= sourceVerifyPenalty
		res.Warnings = append(res.Warnings, domain.ValidationIssue{
			Field: field, Message: fmt.Sprintf("value %q not found in source notes", value),
		})
	}

	downgrade("demographics.name", rec.Demographics.Name.Value, &rec.Demographics.Name.Confidence)
	downgrade("demographics.mrn", rec.Demographics.MRN.Value, &rec.Demographics.MRN.Confidence)
	for i := range rec.Procedures {
		downgrade("procedures", rec.Procedures[i].Name, &rec.Procedures[i].Confidence)
	}
	for i := range rec.Complications {
		downgrade("complications", rec.Complications[i].Name, &rec.Complications[i].Confidence)
	}
	for i := range rec.Medications {
		downgrade("medications", rec.Medications[i].Name, &rec.Medications[i].Confidence)
	}
}

// appearsIn accepts exact substring hits or most-tokens-present
// paraphrases ("external ventricular drain placement" vs "EVD placed" is
// handled upstream by name canonicalization; here we only need token
// coverage).
func appearsIn(corpus, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	if strings.Contains(corpus, v) {
		return true
	}
	tokens := strings.Fields(v)
	if len(tokens) == 0 {
		return true
	}
	found := 0
	for _, t := range tokens {
		if len(t) < 3 || strings.Contains(corpus, t) {
			found++
		}
	}
	return float64(found)/float64(len(tokens)) >= 0.6
}

// completeness is the weighted presence ratio the quality scorer consumes:
// required fields weigh double.
func completeness(rec *domain.ExtractedRecord) float64 {
	type item struct {
		present  bool
		required bool
	}
	items := []item{
		{!rec.Demographics.Name.IsZero(), false},
		{!rec.Demographics.MRN.IsZero(), false},
		{rec.Demographics.Age.Present, false},
		{!rec.Demographics.Sex.IsZero(), false},
		{rec.Dates.Admission.Resolved, true},
		{rec.Dates.Discharge.Resolved, false},
		{!rec.Pathology.Category.IsZero(), true},
		{len(rec.Procedures) > 0, true},
		{len(rec.Complications) > 0, false},
		{len(rec.Medications) > 0, false},
		{len(rec.FunctionalScores) > 0, false},
	}
	var got, total float64
	for _, it := range items {
		w := 1.0
		if it.required {
			w = 2.0
		}
		total += w
		if it.present {
			got += w
		}
	}
	if total == 0 {
		return 0
	}
	return got / total
}

// meanConfidence averages every populated leaf's confidence.
func meanConfidence(rec *domain.ExtractedRecord) float64 {
	var sum float64
	var n int
	add := func(conf float64, present bool) {
		if present {
			sum += conf
			n++
		}
	}
	add(rec.Demographics.Name.Confidence, !rec.Demographics.Name.IsZero())
	add(rec.Demographics.MRN.Confidence, !rec.Demographics.MRN.IsZero())
	add(rec.Demographics.Age.Confidence, rec.Demographics.Age.Present)
	add(rec.Demographics.Sex.Confidence, !rec.Demographics.Sex.IsZero())
	add(rec.Dates.Admission.Confidence, rec.Dates.Admission.Resolved)
	add(rec.Dates.Discharge.Confidence, rec.Dates.Discharge.Resolved)
	add(rec.Pathology.Confidence, !rec.Pathology.Category.IsZero())
	for _, p := range rec.Procedures {
		add(p.Confidence, true)
	}
	for _, c := range rec.Complications {
		add(c.Confidence, true)
	}
	for _, m := range rec.Medications {
		add(m.Confidence, true)
	}
	for _, f := range rec.FunctionalScores {
		add(f.Confidence, true)
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
