package intelligence

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

func TestBuildTreatmentResponses_MedicationPairedWithOutcome(t *testing.T) {
	rec := domain.ExtractedRecord{
		Complications: []domain.Complication{
			{ID: uuid.New(), Name: "vasospasm", OnsetDate: day(6), DateResolved: true, Confidence: 0.8},
		},
		Medications: []domain.Medication{
			{ID: uuid.New(), Name: "nimodipine", Dose: "60 mg", Confidence: 0.8},
		},
	}
	reported := day(8)
	notes := []domain.Note{{
		ID: "n3", Text: "Vasospasm improved on nimodipine. Exam at baseline.", ReportedDate: &reported,
	}}

	responses := buildTreatmentResponses(rec, notes)
	if len(responses) != 1 {
		t.Fatalf("expected one treatment response, got %+v", responses)
	}
	r := responses[0]
	if r.Intervention != "nimodipine" || r.Problem != "vasospasm" {
		t.Fatalf("unexpected pairing: %+v", r)
	}
	if r.Effectiveness != domain.EffectivenessGood {
		t.Fatalf("'improved' maps to good, got %s", r.Effectiveness)
	}
	if r.Confidence != 0.7 {
		t.Fatalf("outcome-backed response scores 0.7, got %v", r.Confidence)
	}
	if r.OutcomeStatement == "" || !r.OutcomeDate.Equal(reported) {
		t.Fatalf("outcome statement and date should come from the note: %+v", r)
	}
}

func TestBuildTreatmentResponses_ResolvedFlagWithoutOutcomeSentence(t *testing.T) {
	rec := domain.ExtractedRecord{
		Complications: []domain.Complication{
			{ID: uuid.New(), Name: "hydrocephalus", OnsetDate: day(3), DateResolved: true, Resolved: true, Confidence: 0.8},
		},
		Procedures: []domain.Procedure{
			{ID: uuid.New(), Name: "external ventricular drain placement", Date: day(3), DateResolved: true, Confidence: 0.85},
		},
	}

	responses := buildTreatmentResponses(rec, nil)
	if len(responses) != 1 {
		t.Fatalf("expected one response, got %+v", responses)
	}
	r := responses[0]
	if r.Effectiveness != domain.EffectivenessExcellent || r.Confidence != 0.6 {
		t.Fatalf("resolved complication without outcome text scores excellent at 0.6, got %+v", r)
	}
}

func TestBuildTreatmentResponses_NoTableEntryNoResponse(t *testing.T) {
	rec := domain.ExtractedRecord{
		Complications: []domain.Complication{
			{ID: uuid.New(), Name: "dysphagia", OnsetDate: day(4), DateResolved: true, Confidence: 0.7},
		},
		Medications: []domain.Medication{
			{ID: uuid.New(), Name: "nimodipine", Confidence: 0.8},
		},
	}
	if responses := buildTreatmentResponses(rec, nil); len(responses) != 0 {
		t.Fatalf("problems outside the intervention table must not pair: %+v", responses)
	}
}

func TestBuildTreatmentResponses_UnmatchedInterventionIsUnknown(t *testing.T) {
	rec := domain.ExtractedRecord{
		Complications: []domain.Complication{
			{ID: uuid.New(), Name: "seizure", OnsetDate: day(5), DateResolved: true, Confidence: 0.8},
		},
		Medications: []domain.Medication{
			{ID: uuid.New(), Name: "levetiracetam", Confidence: 0.8},
		},
	}

	responses := buildTreatmentResponses(rec, nil)
	if len(responses) != 1 {
		t.Fatalf("expected one response, got %+v", responses)
	}
	r := responses[0]
	if r.Effectiveness != domain.EffectivenessUnknown || r.Confidence != 0.5 {
		t.Fatalf("no outcome and no resolved flag should stay unknown at 0.5, got %+v", r)
	}
}

func TestBuildTreatmentResponses_OutcomeBeforeInterventionIgnored(t *testing.T) {
	procDate := day(10)
	rec := domain.ExtractedRecord{
		Complications: []domain.Complication{
			{ID: uuid.New(), Name: "vasospasm", OnsetDate: day(6), DateResolved: true, Confidence: 0.8},
		},
		Procedures: []domain.Procedure{
			{ID: uuid.New(), Name: "angioplasty", Date: procDate, DateResolved: true, Confidence: 0.85},
		},
	}
	earlier := day(7)
	notes := []domain.Note{{
		ID: "n2", Text: "Vasospasm unchanged on imaging.", ReportedDate: &earlier,
	}}

	responses := buildTreatmentResponses(rec, notes)
	if len(responses) != 1 {
		t.Fatalf("expected one response, got %+v", responses)
	}
	if responses[0].Effectiveness != domain.EffectivenessUnknown {
		t.Fatalf("an outcome dated before the intervention must not pair: %+v", responses[0])
	}
}
