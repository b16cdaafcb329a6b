package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAdmission        EventType = "admission"
	EventProcedure        EventType = "procedure"
	EventComplication     EventType = "complication"
	EventMedicationChange EventType = "medication_change"
	EventDischarge        EventType = "discharge"
)

// TimelineEvent is one node of the causal timeline. RelatedEventIDs point at
// earlier events this one follows from; the edge set must stay acyclic.
type TimelineEvent struct {
	ID              uuid.UUID   `json:"id"`
	Timestamp       time.Time   `json:"timestamp"`
	Type            EventType   `json:"type"`
	Description     string      `json:"description"`
	RelatedEventIDs []uuid.UUID `json:"related_event_ids,omitempty"`
	Confidence      float64     `json:"confidence"`
}

// DeduplicationGroup records one collapsed set of entity mentions: the
// canonical survivor plus the mention IDs folded into it.
type DeduplicationGroup struct {
	CanonicalEventID    uuid.UUID   `json:"canonical_event_id"`
	DuplicateMentionIDs []uuid.UUID `json:"duplicate_mention_ids"`
	SimilarityScore     float64     `json:"similarity_score"`
}

type Effectiveness string

const (
	EffectivenessExcellent Effectiveness = "excellent"
	EffectivenessGood      Effectiveness = "good"
	EffectivenessPoor      Effectiveness = "poor"
	EffectivenessUnknown   Effectiveness = "unknown"
)

// TreatmentResponse pairs an intervention with the nearest subsequent
// outcome statement for the same problem.
type TreatmentResponse struct {
	InterventionID   uuid.UUID     `json:"intervention_id"`
	Intervention     string        `json:"intervention"`
	Problem          string        `json:"problem"`
	OutcomeStatement string        `json:"outcome_statement"`
	OutcomeDate      time.Time     `json:"outcome_date"`
	Effectiveness    Effectiveness `json:"effectiveness"`
	Confidence       float64       `json:"confidence"`
}

type Trajectory string

const (
	TrajectoryImproving Trajectory = "improving"
	TrajectoryStable    Trajectory = "stable"
	TrajectoryDeclining Trajectory = "declining"
	TrajectoryUnknown   Trajectory = "unknown"
)

// FunctionalPoint is one functional-score mention normalized to 0-100
// (100 = best) for cross-scale comparability.
type FunctionalPoint struct {
	Type       FunctionalScoreType `json:"type"`
	Raw        float64             `json:"raw"`
	Normalized float64             `json:"normalized"`
	Date       time.Time           `json:"date"`
}

type FunctionalEvolution struct {
	Points     []FunctionalPoint `json:"points,omitempty"`
	Slope      float64           `json:"slope"`
	Trajectory Trajectory        `json:"trajectory"`
}

// IntelligenceBundle is the derived layer. Error is set when a build stage
// failed; the bundle is then empty but the pipeline result is still valid.
type IntelligenceBundle struct {
	Timeline            []TimelineEvent     `json:"timeline,omitempty"`
	TreatmentResponses  []TreatmentResponse `json:"treatment_responses,omitempty"`
	FunctionalEvolution FunctionalEvolution `json:"functional_evolution"`
	Error               string              `json:"error,omitempty"`
}
