package dedupe

import (
	"strings"
	"testing"
	"time"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

func noteWithDate(id, text string, date *time.Time) domain.Note {
	return domain.Note{ID: id, Text: text, ReportedDate: date}
}

func TestDedupeNotes_ExactDuplicateRemoved(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	notes := []domain.Note{
		noteWithDate("n1", "Patient stable. Continue nimodipine.", nil),
		noteWithDate("n2", "Patient  stable.\nContinue nimodipine.", nil), // whitespace-only variant
	}
	out, stats := svc.DedupeNotes(notes)
	if len(out) != 1 || stats.ExactRemoved != 1 {
		t.Fatalf("expected 1 survivor / 1 exact removal, got %d survivors, stats=%+v", len(out), stats)
	}
	if out[0].ID != "n1" {
		t.Fatalf("first occurrence should survive, got %s", out[0].ID)
	}
}

func TestDedupeNotes_VerbatimSubstringRemoved(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	long := "Operative note. Patient underwent craniotomy for tumor resection. EVD placed at the end of the case. Transferred to ICU in stable condition."
	short := "Patient underwent craniotomy for tumor resection."
	out, stats := svc.DedupeNotes([]domain.Note{
		noteWithDate("full", long, nil),
		noteWithDate("excerpt", short, nil),
	})
	if len(out) != 1 || stats.NearRemoved != 1 {
		t.Fatalf("expected substring note removed, got %d survivors, stats=%+v", len(out), stats)
	}
	if out[0].ID != "full" {
		t.Fatalf("the longer note should survive, got %s", out[0].ID)
	}
}

func TestDedupeNotes_ComplementaryNotesMerged(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	day := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	a := "patient remains stable in the neuro icu overnight exam unchanged"
	b := "patient remains stable in the neuro icu new fever workup sent today"
	out, stats := svc.DedupeNotes([]domain.Note{
		noteWithDate("a", a, &day),
		noteWithDate("b", b, &day),
	})
	if stats.MergeCount != 1 {
		t.Fatalf("expected one complementary merge, stats=%+v", stats)
	}
	if len(out) != 1 {
		t.Fatalf("expected single merged note, got %d", len(out))
	}
	if !strings.Contains(out[0].Text, "fever workup") || !strings.Contains(out[0].Text, "overnight exam") {
		t.Fatalf("merged note should carry both texts: %q", out[0].Text)
	}
	if len(out[0].MergedFrom) != 1 || out[0].MergedFrom[0] != "b" {
		t.Fatalf("merge provenance wrong: %+v", out[0].MergedFrom)
	}
}

func TestDedupeNotes_DifferentDaysNotMerged(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	d1 := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	out, stats := svc.DedupeNotes([]domain.Note{
		noteWithDate("a", "patient remains stable in the neuro icu overnight exam unchanged", &d1),
		noteWithDate("b", "patient remains stable in the neuro icu new fever workup sent today", &d2),
	})
	if len(out) != 2 || stats.MergeCount != 0 {
		t.Fatalf("notes from different days must not merge: %d survivors, stats=%+v", len(out), stats)
	}
}

func TestDedupeNotes_UnrelatedNotesUntouched(t *testing.T) {
	svc := NewService(logger.NewNop(), DefaultNoteConfig())
	out, stats := svc.DedupeNotes([]domain.Note{
		noteWithDate("op", "Underwent coiling of ACOM aneurysm without complication.", nil),
		noteWithDate("pt", "Worked with physical therapy, ambulating with walker.", nil),
	})
	if len(out) != 2 || stats.ExactRemoved != 0 || stats.NearRemoved != 0 || stats.MergeCount != 0 {
		t.Fatalf("unrelated notes altered: %d survivors, stats=%+v", len(out), stats)
	}
}
