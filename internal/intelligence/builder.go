package intelligence

import (
	"fmt"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	apperrors "github.com/yungbote/clinrecord-backend/internal/pkg/errors"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

type Builder struct {
	log *logger.Logger
}

func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{log: log.With("service", "IntelligenceBuilder")}
}

// Build derives the intelligence layer. A failure in any stage is
// non-fatal: the caller gets an empty bundle carrying the error message and
// the pipeline keeps going.
func (b *Builder) Build(rec domain.ExtractedRecord, notes []domain.Note) (bundle domain.IntelligenceBundle, timelineScore float64) {
	defer func() {
		if r := recover(); r != nil {
			err := &apperrors.IntelligenceBuildError{Stage: "build", Err: fmt.Errorf("%v", r)}
			b.log.Error("intelligence build panicked, returning empty bundle", "error", err)
			bundle = domain.IntelligenceBundle{Error: err.Error()}
			timelineScore = 0
		}
	}()

	events := buildTimeline(rec)
	if err := verifyAcyclic(events); err != nil {
		build := &apperrors.IntelligenceBuildError{Stage: "timeline", Err: err}
		b.log.Error("timeline relation check failed, returning empty bundle", "error", build)
		return domain.IntelligenceBundle{Error: build.Error()}, 0
	}

	bundle = domain.IntelligenceBundle{
		Timeline:            events,
		TreatmentResponses:  buildTreatmentResponses(rec, notes),
		FunctionalEvolution: buildFunctionalEvolution(rec),
	}
	timelineScore = timelineCompleteness(rec, events)

	b.log.Debug("intelligence built",
		"events", len(bundle.Timeline),
		"treatment_responses", len(bundle.TreatmentResponses),
		"functional_points", len(bundle.FunctionalEvolution.Points),
		"trajectory", bundle.FunctionalEvolution.Trajectory,
	)
	return bundle, timelineScore
}
