package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func baseRecord() domain.ExtractedRecord {
	return domain.ExtractedRecord{
		Dates: domain.RecordDates{
			Admission: domain.DateField{Value: day(1), Resolved: true, Confidence: 0.9},
			Discharge: domain.DateField{Value: day(20), Resolved: true, Confidence: 0.9},
		},
		Pathology: domain.Pathology{
			Category:   domain.KnownPathology(domain.PathologyVascular),
			Subtype:    domain.StringField{Value: "subarachnoid hemorrhage", Confidence: 0.85},
			Confidence: 0.85,
		},
		Procedures: []domain.Procedure{
			{ID: uuid.New(), Name: "craniotomy", Date: day(2), DateResolved: true, Confidence: 0.85},
		},
	}
}

func notesFor(rec domain.ExtractedRecord) []domain.Note {
	var b strings.Builder
	b.WriteString("Admitted 2024-03-01 with subarachnoid hemorrhage. ")
	for _, p := range rec.Procedures {
		b.WriteString("Underwent " + p.Name + ". ")
	}
	for _, m := range rec.Medications {
		b.WriteString("Started " + m.Name + ". ")
	}
	b.WriteString("Discharged 2024-03-20.")
	return []domain.Note{{ID: "n1", Text: b.String()}}
}

func TestValidate_CleanRecordPasses(t *testing.T) {
	svc := NewService(logger.NewNop())
	rec := baseRecord()
	res := svc.Validate(&rec, notesFor(rec))
	if !res.IsValid {
		t.Fatalf("expected a clean record to validate, got errors %+v", res.Errors)
	}
	if res.Completeness <= 0 || res.Confidence <= 0 {
		t.Fatalf("expected positive completeness and confidence, got %v / %v", res.Completeness, res.Confidence)
	}
}

func TestValidate_DischargeBeforeAdmissionIsErrorAndUnresolves(t *testing.T) {
	svc := NewService(logger.NewNop())
	rec := baseRecord()
	rec.Dates.Discharge = domain.DateField{Value: day(1), Resolved: true, Confidence: 0.9}
	rec.Dates.Admission = domain.DateField{Value: day(10), Resolved: true, Confidence: 0.9}
	rec.Procedures = nil

	res := svc.Validate(&rec, nil)
	if res.IsValid {
		t.Fatalf("discharge before admission must invalidate")
	}
	if rec.Dates.Discharge.Resolved {
		t.Fatalf("conflicting discharge should be flagged unresolved, not erased")
	}
	if rec.Dates.Discharge.IsZero() {
		t.Fatalf("the date value itself must survive")
	}
}

func TestValidate_ProcedureAfterDischargeIsWarning(t *testing.T) {
	svc := NewService(logger.NewNop())
	rec := baseRecord()
	rec.Procedures[0].Date = day(25)

	res := svc.Validate(&rec, notesFor(rec))
	if !res.IsValid {
		t.Fatalf("out-of-window procedure should warn, not error: %+v", res.Errors)
	}
	if rec.Procedures[0].DateResolved {
		t.Fatalf("procedure date outside the stay should be flagged unresolved")
	}
	found := false
	for _, w := range res.Warnings {
		if w.Field == "procedures" && strings.Contains(w.Message, "after discharge") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an after-discharge warning, got %+v", res.Warnings)
	}
}

func TestValidate_MissingPathologyIsError(t *testing.T) {
	svc := NewService(logger.NewNop())
	rec := baseRecord()
	rec.Pathology = domain.Pathology{}

	res := svc.Validate(&rec, notesFor(rec))
	if res.IsValid {
		t.Fatalf("a record without pathology must not validate")
	}
	if res.Errors[0].Field != "pathology.type" {
		t.Fatalf("unexpected error: %+v", res.Errors[0])
	}
}

func TestValidate_AnticoagulantWithHemorrhageWarns(t *testing.T) {
	svc := NewService(logger.NewNop())
	rec := baseRecord()
	rec.Medications = []domain.Medication{
		{ID: uuid.New(), Name: "heparin", Confidence: 0.8},
	}

	res := svc.Validate(&rec, notesFor(rec))
	found := false
	for _, w := range res.Warnings {
		if w.Field == "medications" && strings.Contains(w.Message, "heparin") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an anticoagulant warning, got %+v", res.Warnings)
	}
	if !res.IsValid {
		t.Fatalf("plausibility findings are warnings only")
	}
}

func TestValidate_UnverifiableFieldLosesHalfConfidence(t *testing.T) {
	svc := NewService(logger.NewNop())
	rec := baseRecord()
	rec.Procedures = append(rec.Procedures, domain.Procedure{
		ID: uuid.New(), Name: "lumbar puncture", Date: day(4), DateResolved: true, Confidence: 0.8,
	})
	notes := []domain.Note{{ID: "n1", Text: "Admitted 2024-03-01 with subarachnoid hemorrhage. Underwent craniotomy."}}

	svc.Validate(&rec, notes)
	if rec.Procedures[1].Confidence != 0.4 {
		t.Fatalf("unverified field should drop to half confidence, got %v", rec.Procedures[1].Confidence)
	}
	if rec.Procedures[0].Confidence != 0.85 {
		t.Fatalf("verified field must keep its confidence, got %v", rec.Procedures[0].Confidence)
	}
}

func TestValidate_TokenCoverageCountsAsVerified(t *testing.T) {
	svc := NewService(logger.NewNop())
	rec := baseRecord()
	rec.Procedures[0].Name = "right frontal craniotomy"
	notes := []domain.Note{{ID: "n1", Text: "subarachnoid hemorrhage. craniotomy performed over the right convexity."}}

	svc.Validate(&rec, notes)
	if rec.Procedures[0].Confidence != 0.85 {
		t.Fatalf("two of three tokens present should verify, got %v", rec.Procedures[0].Confidence)
	}
}

func TestCompleteness_WeighsRequiredFieldsDouble(t *testing.T) {
	rec := baseRecord()
	// Admission, pathology, procedures present (2.0 each); discharge 1.0.
	// Total weight 14, got 7.
	got := completeness(&rec)
	if got != 0.5 {
		t.Fatalf("expected completeness 0.5, got %v", got)
	}
}
