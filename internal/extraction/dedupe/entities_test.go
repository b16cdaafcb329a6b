package dedupe

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

func datedMention(kind domain.EntityKind, name string, day int, conf float64) domain.EntityMention {
	return domain.EntityMention{
		ID: uuid.New(), Kind: kind, Name: name,
		Date: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC), DateResolved: true,
		Source: domain.SourcePattern, Confidence: conf,
	}
}

func TestDedupeEntities_EVDMentionsCollapseToOneEvent(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	mentions := []domain.EntityMention{
		datedMention(domain.KindProcedure, "external ventricular drain placement", 2, 0.85),
		datedMention(domain.KindProcedure, "EVD", 2, 0.7),
		datedMention(domain.KindProcedure, "evd placement", 2, 0.7),
		datedMention(domain.KindProcedure, "external ventricular drain", 3, 0.75),
	}
	lead := mentions[0].ID

	canonical, groups := svc.DedupeEntities(mentions)
	if len(canonical) != 1 {
		t.Fatalf("expected one canonical EVD event, got %d: %+v", len(canonical), canonical)
	}
	if canonical[0].ID != lead {
		t.Fatalf("canonical should keep the lead mention's identity")
	}
	if len(groups) != 1 || len(groups[0].DuplicateMentionIDs) != 3 {
		t.Fatalf("expected one group with 3 duplicates, got %+v", groups)
	}
	if canonical[0].Confidence != 0.95 {
		t.Fatalf("expected boosted confidence capped at 0.95, got %v", canonical[0].Confidence)
	}
}

func TestDedupeEntities_DistantRepeatIsSeparateEvent(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	canonical, groups := svc.DedupeEntities([]domain.EntityMention{
		datedMention(domain.KindComplication, "seizure", 3, 0.7),
		datedMention(domain.KindComplication, "seizure", 12, 0.7),
	})
	if len(canonical) != 2 || len(groups) != 0 {
		t.Fatalf("seizures nine days apart are distinct events, got %d canonical, %d groups", len(canonical), len(groups))
	}
}

func TestDedupeEntities_DoseChangeIsNewRegimen(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	a := datedMention(domain.KindMedication, "dexamethasone", 2, 0.75)
	a.Dose = "4 mg"
	b := datedMention(domain.KindMedication, "dexamethasone", 8, 0.75)
	b.Dose = "2 mg"

	canonical, _ := svc.DedupeEntities([]domain.EntityMention{a, b})
	if len(canonical) != 2 {
		t.Fatalf("dose change must stay separate, got %d", len(canonical))
	}
}

func TestDedupeEntities_StableRegimenCollapsesAcrossDays(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	a := datedMention(domain.KindMedication, "nimodipine", 2, 0.75)
	a.Dose = "60 mg"
	b := datedMention(domain.KindMedication, "nimodipine", 9, 0.75)
	b.Dose = "60 mg"

	canonical, _ := svc.DedupeEntities([]domain.EntityMention{a, b})
	if len(canonical) != 1 {
		t.Fatalf("stable regimen should collapse, got %d", len(canonical))
	}
	if !canonical[0].Date.Equal(a.Date) {
		t.Fatalf("canonical should keep the earliest date, got %v", canonical[0].Date)
	}
}

func TestDedupeEntities_MergesDetailFromDuplicates(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	a := datedMention(domain.KindComplication, "vasospasm", 6, 0.75)
	b := datedMention(domain.KindComplication, "vasospasm", 6, 0.7)
	b.Severity = "severe"
	b.IsReference = true

	canonical, _ := svc.DedupeEntities([]domain.EntityMention{a, b})
	if len(canonical) != 1 {
		t.Fatalf("expected collapse, got %d", len(canonical))
	}
	if canonical[0].Severity != "severe" {
		t.Fatalf("detail from the duplicate should be folded in, got %+v", canonical[0])
	}
}
