package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

func TestCanonicalizeDates_RewritesEveryStyle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Admitted 3/5/2024.", "Admitted 2024-03-05."},
		{"Admitted 03/05/24.", "Admitted 2024-03-05."},
		{"Seen on March 5, 2024 in clinic.", "Seen on 2024-03-05 in clinic."},
		{"Note of 3/5/2024 14:30.", "Note of 2024-03-05."},
		{"Already 2024-03-05 stays.", "Already 2024-03-05 stays."},
	}
	for _, c := range cases {
		got := CanonicalizeDates(c.in)
		if got != c.want {
			t.Fatalf("CanonicalizeDates(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_IsIdempotent(t *testing.T) {
	svc := NewService(logger.NewNop())
	raw := "HPI: 54-year-old male admitted 3/5/2024.\r\n• EVD placed.\n\n\n\nPlan: continue nimodipine.   "

	first := svc.Normalize([]domain.NoteInput{{Text: raw}})
	if len(first) != 1 {
		t.Fatalf("expected 1 note, got %d", len(first))
	}
	second := svc.Normalize([]domain.NoteInput{{Text: first[0].Text}})
	if first[0].Text != second[0].Text {
		t.Fatalf("normalization not idempotent:\nfirst:  %q\nsecond: %q", first[0].Text, second[0].Text)
	}
}

func TestNormalize_CanonicalizesHeadersAndBullets(t *testing.T) {
	svc := NewService(logger.NewNop())
	out := svc.Normalize([]domain.NoteInput{{Text: "hpi: stable overnight\n• tolerating PO"}})
	text := out[0].Text
	if !strings.Contains(text, "HPI:") {
		t.Fatalf("expected uppercase header, got %q", text)
	}
	if !strings.Contains(text, "- tolerating PO") {
		t.Fatalf("expected dash bullet, got %q", text)
	}
}

func TestNormalize_BackfillsReportedDateFromText(t *testing.T) {
	svc := NewService(logger.NewNop())
	out := svc.Normalize([]domain.NoteInput{{Text: "Progress note 3/7/2024. Stable."}})
	if out[0].ReportedDate == nil {
		t.Fatalf("expected reported date backfilled from text")
	}
	want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	if !out[0].ReportedDate.Equal(want) {
		t.Fatalf("reported date = %v, want %v", out[0].ReportedDate, want)
	}
}

func TestNormalize_KeepsExplicitReportedDate(t *testing.T) {
	svc := NewService(logger.NewNop())
	given := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := svc.Normalize([]domain.NoteInput{{Text: "Note of 2024-03-09.", ReportedDate: &given}})
	if !out[0].ReportedDate.Equal(given) {
		t.Fatalf("explicit reported date overwritten: %v", out[0].ReportedDate)
	}
}

func TestFirstDate_FindsISO(t *testing.T) {
	d, ok := FirstDate("discharged 2024-03-20 home")
	if !ok {
		t.Fatalf("expected a date")
	}
	if d.Day() != 20 || d.Month() != time.March {
		t.Fatalf("unexpected date %v", d)
	}
	if _, ok := FirstDate("no dates here"); ok {
		t.Fatalf("expected no date")
	}
}
