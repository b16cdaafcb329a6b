package intelligence

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

// Causal windows. An edge is only inferred when the category rule matches
// and the later event falls inside the window.
const (
	procToComplicationWindow = 30 * 24 * time.Hour
	compToInterventionWindow = 14 * 24 * time.Hour
)

// buildTimeline orders every dated event and infers directed edges. Edges
// always point from an earlier event to a later one, so the relation set is
// acyclic by construction.
func buildTimeline(rec domain.ExtractedRecord) []domain.TimelineEvent {
	var events []domain.TimelineEvent

	if rec.Dates.Admission.Resolved {
		events = append(events, domain.TimelineEvent{
			ID: uuid.New(), Timestamp: rec.Dates.Admission.Value, Type: domain.EventAdmission,
			Description: "hospital admission", Confidence: rec.Dates.Admission.Confidence,
		})
	}
	for _, p := range rec.Procedures {
		if !p.DateResolved {
			continue
		}
		events = append(events, domain.TimelineEvent{
			ID: p.ID, Timestamp: p.Date, Type: domain.EventProcedure,
			Description: p.Name, Confidence: p.Confidence,
		})
	}
	for _, c := range rec.Complications {
		if !c.DateResolved {
			continue
		}
		events = append(events, domain.TimelineEvent{
			ID: c.ID, Timestamp: c.OnsetDate, Type: domain.EventComplication,
			Description: c.Name, Confidence: c.Confidence,
		})
	}
	if rec.Dates.Discharge.Resolved {
		events = append(events, domain.TimelineEvent{
			ID: uuid.New(), Timestamp: rec.Dates.Discharge.Value, Type: domain.EventDischarge,
			Description: "hospital discharge", Confidence: rec.Dates.Discharge.Confidence,
		})
	}

	sort.SliceStable(events, func(a, b int) bool {
		if events[a].Timestamp.Equal(events[b].Timestamp) {
			return eventRank(events[a].Type) < eventRank(events[b].Type)
		}
		return events[a].Timestamp.Before(events[b].Timestamp)
	})

	linkEvents(events)
	return events
}

// eventRank breaks same-day ties into clinical order: admission happens
// before a same-day procedure, discharge after everything.
func eventRank(t domain.EventType) int {
	switch t {
	case domain.EventAdmission:
		return 0
	case domain.EventProcedure:
		return 1
	case domain.EventComplication:
		return 2
	case domain.EventMedicationChange:
		return 3
	case domain.EventDischarge:
		return 4
	}
	return 5
}

// linkEvents adds RelatedEventIDs on later events pointing at the earlier
// events they plausibly follow from.
func linkEvents(events []domain.TimelineEvent) {
	for j := range events {
		later := &events[j]
		for i := j - 1; i >= 0; i-- {
			earlier := events[i]
			gap := later.Timestamp.Sub(earlier.Timestamp)
			if gap < 0 {
				continue
			}
			switch {
			case later.Type == domain.EventComplication && earlier.Type == domain.EventProcedure && gap <= procToComplicationWindow:
				later.RelatedEventIDs = append(later.RelatedEventIDs, earlier.ID)
			case later.Type == domain.EventProcedure && earlier.Type == domain.EventComplication && gap <= compToInterventionWindow:
				// A procedure shortly after a complication is usually its
				// intervention.
				later.RelatedEventIDs = append(later.RelatedEventIDs, earlier.ID)
			case later.Type == domain.EventDischarge && earlier.Type == domain.EventAdmission:
				later.RelatedEventIDs = append(later.RelatedEventIDs, earlier.ID)
			}
		}
	}
}

// timelineCompleteness feeds the quality score: dated events over all
// events, with a floor term for having any timeline at all.
func timelineCompleteness(rec domain.ExtractedRecord, events []domain.TimelineEvent) float64 {
	total := len(rec.Procedures) + len(rec.Complications)
	if rec.Dates.Admission.Resolved || !rec.Dates.Admission.IsZero() {
		total++
	}
	if rec.Dates.Discharge.Resolved || !rec.Dates.Discharge.IsZero() {
		total++
	}
	if total == 0 {
		return 0
	}
	return float64(len(events)) / float64(total)
}

// verifyAcyclic is a defensive check on the relation set; it returns an
// error naming the first back edge found.
func verifyAcyclic(events []domain.TimelineEvent) error {
	pos := make(map[uuid.UUID]int, len(events))
	for i, e := range events {
		pos[e.ID] = i
	}
	for i, e := range events {
		for _, rel := range e.RelatedEventIDs {
			if p, ok := pos[rel]; ok && p > i {
				return fmt.Errorf("timeline relation from %s points forward", e.ID)
			}
		}
	}
	return nil
}
