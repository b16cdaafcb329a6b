package intelligence

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func stayRecord() domain.ExtractedRecord {
	return domain.ExtractedRecord{
		Dates: domain.RecordDates{
			Admission: domain.DateField{Value: day(1), Resolved: true, Confidence: 0.9},
			Discharge: domain.DateField{Value: day(20), Resolved: true, Confidence: 0.9},
		},
		Procedures: []domain.Procedure{
			{ID: uuid.New(), Name: "coil embolization", Date: day(1), DateResolved: true, Confidence: 0.85},
		},
		Complications: []domain.Complication{
			{ID: uuid.New(), Name: "vasospasm", OnsetDate: day(6), DateResolved: true, Confidence: 0.8},
		},
	}
}

func TestBuildTimeline_OrdersEventsWithSameDayTiebreak(t *testing.T) {
	rec := stayRecord()
	events := buildTimeline(rec)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	// Admission and procedure share a day; admission comes first.
	want := []domain.EventType{domain.EventAdmission, domain.EventProcedure, domain.EventComplication, domain.EventDischarge}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Fatalf("event %d: want %s, got %s", i, typ, events[i].Type)
		}
	}
}

func TestBuildTimeline_ComplicationLinksToRecentProcedure(t *testing.T) {
	rec := stayRecord()
	events := buildTimeline(rec)
	comp := events[2]
	if len(comp.RelatedEventIDs) != 1 || comp.RelatedEventIDs[0] != rec.Procedures[0].ID {
		t.Fatalf("complication should link back to the procedure, got %+v", comp.RelatedEventIDs)
	}
}

func TestBuildTimeline_DistantComplicationNotLinked(t *testing.T) {
	rec := stayRecord()
	rec.Dates.Discharge = domain.DateField{}
	rec.Complications[0].OnsetDate = day(1).AddDate(0, 0, 31)
	events := buildTimeline(rec)
	comp := events[len(events)-1]
	if comp.Type != domain.EventComplication {
		t.Fatalf("expected trailing complication, got %s", comp.Type)
	}
	if len(comp.RelatedEventIDs) != 0 {
		t.Fatalf("a complication past the causal window must not link: %+v", comp.RelatedEventIDs)
	}
}

func TestBuildTimeline_InterventionLinksToComplication(t *testing.T) {
	rec := stayRecord()
	rec.Procedures = append(rec.Procedures, domain.Procedure{
		ID: uuid.New(), Name: "cerebral angiogram", Date: day(7), DateResolved: true, Confidence: 0.8,
	})
	events := buildTimeline(rec)
	var angio domain.TimelineEvent
	for _, e := range events {
		if e.Description == "cerebral angiogram" {
			angio = e
		}
	}
	found := false
	for _, id := range angio.RelatedEventIDs {
		if id == rec.Complications[0].ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("day-after procedure should link to the complication, got %+v", angio.RelatedEventIDs)
	}
}

func TestBuildTimeline_DischargeLinksToAdmission(t *testing.T) {
	events := buildTimeline(stayRecord())
	disch := events[len(events)-1]
	adm := events[0]
	found := false
	for _, id := range disch.RelatedEventIDs {
		if id == adm.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("discharge should reference admission, got %+v", disch.RelatedEventIDs)
	}
}

func TestBuildTimeline_UndatedEventsExcluded(t *testing.T) {
	rec := stayRecord()
	rec.Procedures = append(rec.Procedures, domain.Procedure{
		ID: uuid.New(), Name: "tracheostomy", DateResolved: false, Confidence: 0.7,
	})
	events := buildTimeline(rec)
	for _, e := range events {
		if e.Description == "tracheostomy" {
			t.Fatalf("undated procedure must stay off the timeline")
		}
	}
}

func TestTimelineCompleteness_FullyDatedRecordScoresOne(t *testing.T) {
	rec := stayRecord()
	events := buildTimeline(rec)
	if got := timelineCompleteness(rec, events); got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}

	rec.Procedures = append(rec.Procedures, domain.Procedure{ID: uuid.New(), Name: "tracheostomy"})
	events = buildTimeline(rec)
	if got := timelineCompleteness(rec, events); got != 0.8 {
		t.Fatalf("one undated of five should score 0.8, got %v", got)
	}
}

func TestVerifyAcyclic_BuiltTimelinePasses(t *testing.T) {
	events := buildTimeline(stayRecord())
	if err := verifyAcyclic(events); err != nil {
		t.Fatalf("built timeline should be acyclic: %v", err)
	}
}

func TestVerifyAcyclic_ForwardEdgeRejected(t *testing.T) {
	a := domain.TimelineEvent{ID: uuid.New(), Timestamp: day(1), Type: domain.EventAdmission}
	b := domain.TimelineEvent{ID: uuid.New(), Timestamp: day(2), Type: domain.EventDischarge}
	a.RelatedEventIDs = []uuid.UUID{b.ID}
	if err := verifyAcyclic([]domain.TimelineEvent{a, b}); err == nil {
		t.Fatalf("forward relation must be rejected")
	}
}
