package orchestrator

import (
	"github.com/yungbote/clinrecord-backend/internal/domain"
)

// State is the orchestration state machine position. Transitions:
//
//	Init -> Extracting -> Validating -> BuildingIntelligence -> Done
//	                        |
//	                        +-> Refining -> Extracting   (quality low, iterations left)
//	                        +-> Failed                   (iterations exhausted)
//
// Failed is terminal but still yields the best-so-far result.
type State string

const (
	StateInit                 State = "init"
	StateExtracting           State = "extracting"
	StateValidating           State = "validating"
	StateRefining             State = "refining"
	StateBuildingIntelligence State = "building_intelligence"
	StateDone                 State = "done"
	StateFailed               State = "failed"
)

// iteration is one immutable extraction snapshot. Refinement passes build a
// fresh iteration rather than mutating the previous one, so the loop's
// behavior is deterministic and each pass is individually inspectable.
type iteration struct {
	index         int
	record        domain.ExtractedRecord
	notes         []domain.Note
	validation    domain.ValidationResult
	quality       domain.QualityMetrics
	dedupStats    domain.NoteDedupStats
	dedupGroups   []domain.DeduplicationGroup
	disagreements []domain.FieldDisagreement
	method        domain.ExtractionMethod
}
