package merge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func newMerger(t *testing.T) *Service {
	t.Helper()
	return NewService(logger.NewNop(), DefaultPriorityTable())
}

func TestMerge_AgreementEarnsBonusAndMergedSource(t *testing.T) {
	svc := newMerger(t)
	out := svc.Merge(Input{
		Pattern: domain.ExtractionSet{Record: domain.ExtractedRecord{
			Demographics: domain.Demographics{MRN: domain.StringField{Value: "1234567", Confidence: 0.9, Source: domain.SourcePattern}},
		}},
		LLM: &domain.ExtractionSet{Record: domain.ExtractedRecord{
			Demographics: domain.Demographics{MRN: domain.StringField{Value: "1234567", Confidence: 0.8, Source: domain.SourceLLM}},
		}},
	})
	mrn := out.Record.Demographics.MRN
	if mrn.Source != domain.SourceMerged {
		t.Fatalf("expected merged source, got %q", mrn.Source)
	}
	if mrn.Confidence != 0.95 {
		t.Fatalf("expected max confidence plus bonus, got %v", mrn.Confidence)
	}
	if len(out.Disagreements) != 0 {
		t.Fatalf("agreement must not record a disagreement: %+v", out.Disagreements)
	}
}

func TestMerge_AdmissionDateConflictGoesToPattern(t *testing.T) {
	svc := newMerger(t)
	out := svc.Merge(Input{
		Pattern: domain.ExtractionSet{Record: domain.ExtractedRecord{
			Dates: domain.RecordDates{Admission: domain.DateField{Value: day(1), Resolved: true, Confidence: 0.9, Source: domain.SourcePattern}},
		}},
		LLM: &domain.ExtractionSet{Record: domain.ExtractedRecord{
			Dates: domain.RecordDates{Admission: domain.DateField{Value: day(2), Resolved: true, Confidence: 0.85, Source: domain.SourceLLM}},
		}},
	})
	if !out.Record.Dates.Admission.Value.Equal(day(1)) {
		t.Fatalf("pattern admission date should win, got %v", out.Record.Dates.Admission.Value)
	}
	if len(out.Disagreements) != 1 {
		t.Fatalf("expected one disagreement, got %+v", out.Disagreements)
	}
	d := out.Disagreements[0]
	if d.Field != "dates.admission" || d.Winner != domain.SourcePattern || d.PatternValue != "2024-03-01" {
		t.Fatalf("unexpected disagreement record: %+v", d)
	}
}

func TestMerge_PathologyConflictGoesToLLMByDefault(t *testing.T) {
	svc := newMerger(t)
	out := svc.Merge(Input{
		Pattern: domain.ExtractionSet{Record: domain.ExtractedRecord{
			Pathology: domain.Pathology{Category: domain.KnownPathology(domain.PathologyVascular), Confidence: 0.7, Source: domain.SourcePattern},
		}},
		LLM: &domain.ExtractionSet{Record: domain.ExtractedRecord{
			Pathology: domain.Pathology{Category: domain.KnownPathology(domain.PathologyTumor), Confidence: 0.8, Source: domain.SourceLLM},
		}},
	})
	if out.Record.Pathology.Category.Kind() != domain.PathologyTumor {
		t.Fatalf("default winner for pathology.type is llm, got %v", out.Record.Pathology.Category.Kind())
	}
	if len(out.Disagreements) != 1 || out.Disagreements[0].Field != "pathology.type" {
		t.Fatalf("expected pathology.type disagreement, got %+v", out.Disagreements)
	}
}

func TestMerge_DoseConflictKeepsPatternDose(t *testing.T) {
	svc := newMerger(t)
	out := svc.Merge(Input{
		Pattern: domain.ExtractionSet{},
		LLM:     &domain.ExtractionSet{},
		Mentions: []domain.EntityMention{
			{
				ID: uuid.New(), Kind: domain.KindMedication, Name: "nimodipine", Dose: "60 mg",
				Date: day(2), DateResolved: true, Source: domain.SourcePattern, Confidence: 0.8,
			},
			{
				ID: uuid.New(), Kind: domain.KindMedication, Name: "nimodipine", Dose: "30 mg",
				Date: day(2), DateResolved: true, Source: domain.SourceLLM, Confidence: 0.75,
			},
		},
	})
	if len(out.Record.Medications) != 1 {
		t.Fatalf("expected one medication, got %+v", out.Record.Medications)
	}
	med := out.Record.Medications[0]
	if med.Dose != "60 mg" || med.Source != domain.SourcePattern {
		t.Fatalf("pattern dose should win, got dose=%q source=%q", med.Dose, med.Source)
	}
	if len(out.Disagreements) != 1 || out.Disagreements[0].Field != "medications.dose.nimodipine" {
		t.Fatalf("expected medications.dose.nimodipine disagreement, got %+v", out.Disagreements)
	}
}

func TestMerge_CrossSourceArrayEntriesUnion(t *testing.T) {
	svc := newMerger(t)
	out := svc.Merge(Input{
		Pattern: domain.ExtractionSet{},
		LLM:     &domain.ExtractionSet{},
		Mentions: []domain.EntityMention{
			{
				ID: uuid.New(), Kind: domain.KindProcedure, Name: "evd",
				Date: day(2), DateResolved: true, Source: domain.SourcePattern, Confidence: 0.8,
			},
			{
				ID: uuid.New(), Kind: domain.KindProcedure, Name: "external ventricular drain placement",
				Date: day(2), DateResolved: true, Source: domain.SourceLLM, Confidence: 0.7,
			},
			{
				ID: uuid.New(), Kind: domain.KindProcedure, Name: "craniotomy",
				Date: day(5), DateResolved: true, Source: domain.SourceLLM, Confidence: 0.7,
			},
		},
	})
	if len(out.Record.Procedures) != 2 {
		t.Fatalf("expected evd entries to union into one procedure, got %+v", out.Record.Procedures)
	}
	if out.Record.Procedures[0].Source != domain.SourceMerged {
		t.Fatalf("cross-source entry should be merged, got %q", out.Record.Procedures[0].Source)
	}
	if out.Record.Procedures[0].Confidence != 0.85 {
		t.Fatalf("expected max confidence plus bonus, got %v", out.Record.Procedures[0].Confidence)
	}
	if out.Record.Procedures[1].Name != "craniotomy" || out.Record.Procedures[1].Source != domain.SourceLLM {
		t.Fatalf("LLM-only entry should pass through, got %+v", out.Record.Procedures[1])
	}
}

func TestMerge_NegatedMentionsExcluded(t *testing.T) {
	svc := newMerger(t)
	out := svc.Merge(Input{
		Pattern: domain.ExtractionSet{},
		Mentions: []domain.EntityMention{
			{ID: uuid.New(), Kind: domain.KindComplication, Name: "vasospasm", Negated: true, Source: domain.SourcePattern, Confidence: 0.8},
		},
	})
	if len(out.Record.Complications) != 0 {
		t.Fatalf("negated mention must not reach the record: %+v", out.Record.Complications)
	}
}

func TestMerge_NilLLMIsPatternPassthrough(t *testing.T) {
	svc := newMerger(t)
	out := svc.Merge(Input{
		Pattern: domain.ExtractionSet{Record: domain.ExtractedRecord{
			Demographics: domain.Demographics{Age: domain.IntField{Value: 54, Present: true, Confidence: 0.9, Source: domain.SourcePattern}},
		}},
	})
	if !out.Record.Demographics.Age.Present || out.Record.Demographics.Age.Value != 54 {
		t.Fatalf("pattern-only record should pass through, got %+v", out.Record.Demographics.Age)
	}
	if len(out.Disagreements) != 0 {
		t.Fatalf("no disagreements expected without an LLM record: %+v", out.Disagreements)
	}
}

func TestLoadPriorityTable_OverridesMergeIntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "priority.yaml")
	body := "default: pattern\nfields:\n  pathology.type: llm\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	table, err := LoadPriorityTable(path)
	if err != nil {
		t.Fatalf("LoadPriorityTable: %v", err)
	}
	if table.Winner("pathology.type") != domain.SourceLLM {
		t.Fatalf("override not applied")
	}
	if table.Winner("demographics.mrn") != domain.SourcePattern {
		t.Fatalf("built-in field defaults should survive an override load")
	}
	if table.Winner("unlisted.field") != domain.SourcePattern {
		t.Fatalf("default override not applied")
	}
}

func TestLoadPriorityTable_RejectsUnknownSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "priority.yaml")
	if err := os.WriteFile(path, []byte("fields:\n  dates.admission: guess\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadPriorityTable(path); err == nil {
		t.Fatalf("expected an error for an unknown source")
	}
}
