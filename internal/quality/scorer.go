package quality

import (
	"github.com/yungbote/clinrecord-backend/internal/domain"
)

// Weights of the overall score. Narrative coherence comes from the
// downstream narrative generator; when it has not run, the term defaults to
// a full 1.0 so its absence never drags the score.
const (
	weightCompleteness = 0.35
	weightValidation   = 0.25
	weightNarrative    = 0.25
	weightTimeline     = 0.15
)

// Input gathers the per-iteration signals the scorer folds together.
type Input struct {
	Completeness         float64
	ValidationConfidence float64
	// NarrativeCoherence is nil when no narrative was generated.
	NarrativeCoherence   *float64
	TimelineCompleteness float64
}

// Score computes the deterministic weighted quality metrics.
func Score(in Input) domain.QualityMetrics {
	narrative := 1.0
	if in.NarrativeCoherence != nil {
		narrative = clamp(*in.NarrativeCoherence)
	}
	completeness := clamp(in.Completeness)
	validation := clamp(in.ValidationConfidence)
	timeline := clamp(in.TimelineCompleteness)

	overall := weightCompleteness*completeness +
		weightValidation*validation +
		weightNarrative*narrative +
		weightTimeline*timeline

	return domain.QualityMetrics{
		Completeness: completeness,
		Accuracy:     validation,
		Confidence:   validation,
		Consistency:  timeline,
		Overall:      clamp(overall),
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
