package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntityKind string

const (
	KindProcedure       EntityKind = "procedure"
	KindComplication    EntityKind = "complication"
	KindMedication      EntityKind = "medication"
	KindFunctionalScore EntityKind = "functional_score"
)

// EntityMention is one raw sighting of a clinical entity in one note. A
// mention is not yet an event: temporal resolution dates it and decides
// whether it introduces a new event or restates a recorded one, then
// entity-level deduplication collapses mentions into canonical entities.
type EntityMention struct {
	ID   uuid.UUID  `json:"id"`
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`

	// Medication detail.
	Dose      string `json:"dose,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Route     string `json:"route,omitempty"`

	// Complication detail.
	Severity     string `json:"severity,omitempty"`
	ResolvedFlag bool   `json:"resolved_flag,omitempty"`

	// Functional-score detail.
	ScoreType  FunctionalScoreType `json:"score_type,omitempty"`
	ScoreValue float64             `json:"score_value,omitempty"`

	// Provenance.
	NoteID    string     `json:"note_id"`
	NoteDate  *time.Time `json:"note_date,omitempty"`
	Sentence  string     `json:"sentence,omitempty"`
	SpanStart int        `json:"span_start"`
	SpanEnd   int        `json:"span_end"`
	RuleID    string     `json:"rule_id,omitempty"`
	Source    Source     `json:"source"`

	Confidence float64  `json:"confidence"`
	Negated    bool     `json:"negated"`
	Qualifiers []string `json:"qualifiers,omitempty"` // resolved|ongoing|history_of|...

	// Temporal resolution output.
	Date           time.Time `json:"date"`
	DateResolved   bool      `json:"date_resolved"`
	RelativeMarker string    `json:"relative_marker,omitempty"` // e.g. POD#3, HD#5
	IsReference    bool      `json:"is_reference"`              // restates an earlier mention
}

func (m EntityMention) HasQualifier(q string) bool {
	for _, have := range m.Qualifiers {
		if have == q {
			return true
		}
	}
	return false
}

// ExtractionSet is the output of one extraction source for one note batch:
// scalar record fields plus raw entity mentions awaiting temporal
// resolution.
type ExtractionSet struct {
	Record   ExtractedRecord `json:"record"`
	Mentions []EntityMention `json:"mentions,omitempty"`
}
