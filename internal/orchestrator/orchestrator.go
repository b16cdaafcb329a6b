package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/extraction/dedupe"
	"github.com/yungbote/clinrecord-backend/internal/extraction/llm"
	"github.com/yungbote/clinrecord-backend/internal/extraction/merge"
	"github.com/yungbote/clinrecord-backend/internal/extraction/normalize"
	"github.com/yungbote/clinrecord-backend/internal/extraction/patterns"
	"github.com/yungbote/clinrecord-backend/internal/extraction/temporal"
	"github.com/yungbote/clinrecord-backend/internal/extraction/validate"
	"github.com/yungbote/clinrecord-backend/internal/intelligence"
	"github.com/yungbote/clinrecord-backend/internal/learned"
	"github.com/yungbote/clinrecord-backend/internal/pkg/errors"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
	"github.com/yungbote/clinrecord-backend/internal/quality"
)

// Service drives the full extraction pipeline through the state machine.
// All collaborators are injected; the LLM extractor and the learned-pattern
// store are optional and the pipeline degrades to pattern-only without them.
type Service struct {
	log        *logger.Logger
	normalizer *normalize.Service
	deduper    *dedupe.Service
	patterns   *patterns.Service
	adapter    llm.Extractor
	resolver   *temporal.Service
	merger     *merge.Service
	validator  *validate.Service
	builder    *intelligence.Builder
	learned    *learned.Store
}

type Deps struct {
	Log       *logger.Logger
	Adapter   llm.Extractor // nil disables LLM extraction
	Learned   *learned.Store
	Priority  merge.PriorityTable
	NoteDedup dedupe.NoteConfig
	Temporal  temporal.Config
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	if d.Priority.Fields == nil {
		d.Priority = merge.DefaultPriorityTable()
	}
	if d.NoteDedup.NearThreshold == 0 {
		d.NoteDedup = dedupe.DefaultNoteConfig()
	}
	return &Service{
		log:        log,
		normalizer: normalize.NewService(log),
		deduper:    dedupe.NewService(log, d.NoteDedup),
		patterns:   patterns.NewService(log),
		adapter:    d.Adapter,
		resolver:   temporal.NewService(log, d.Temporal),
		merger:     merge.NewService(log, d.Priority),
		validator:  validate.NewService(log),
		builder:    intelligence.NewBuilder(log),
		learned:    d.Learned,
	}
}

// Extract runs the pipeline end to end. Input errors fail fast with an
// error; any other failure, including a panic inside a stage, terminates on
// the Failed state and still returns the best structurally valid result
// produced so far.
func (s *Service) Extract(ctx context.Context, notes []domain.NoteInput, opts domain.ExtractOptions) (domain.OrchestrationResult, error) {
	start := time.Now()
	if err := validateInput(notes); err != nil {
		return domain.OrchestrationResult{}, err
	}
	if opts.MaxRefinementIterations <= 0 {
		opts.MaxRefinementIterations = domain.DefaultExtractOptions().MaxRefinementIterations
	}
	if opts.QualityThreshold <= 0 {
		opts.QualityThreshold = domain.DefaultExtractOptions().QualityThreshold
	}

	state := s.transition(StateInit, 0)
	var best *iteration
	var history []domain.QualityMetrics
	failed := false

	for idx := 0; idx <= opts.MaxRefinementIterations; idx++ {
		var extra []patterns.ExtraRule
		if idx > 0 {
			state = s.transition(StateRefining, idx)
			extra = s.refinementRules(best)
		}
		state = s.transition(StateExtracting, idx)
		it, err := s.runIteration(ctx, idx, notes, opts, extra)
		if err != nil {
			s.log.Warn("iteration failed", "iteration", idx, "error", err)
			failed = true
			break
		}
		state = s.transition(StateValidating, idx)
		history = append(history, it.quality)
		if best == nil || it.quality.Overall > best.quality.Overall {
			best = it
		}
		if it.quality.Overall >= opts.QualityThreshold {
			break
		}
		if idx == opts.MaxRefinementIterations {
			failed = true
		}
	}

	if best == nil {
		// Every iteration failed outright. Return an empty but
		// structurally valid result.
		best = &iteration{}
		failed = true
	}

	state = s.transition(StateBuildingIntelligence, 0)
	bundle, timelineScore := s.builder.Build(best.record, best.notes)
	// Timeline completeness only becomes known here; rescore the chosen
	// iteration with it. History keeps the per-iteration scores untouched,
	// the final score is reported through QualityMetrics.
	final := quality.Score(quality.Input{
		Completeness:         best.validation.Completeness,
		ValidationConfidence: best.validation.Confidence,
		TimelineCompleteness: timelineScore,
	})
	if len(history) == 0 {
		history = append(history, final)
	}

	success := !failed && final.Overall >= opts.QualityThreshold && best.validation.IsValid
	if failed {
		state = StateFailed
	} else {
		state = StateDone
	}
	s.log.Info("extraction finished",
		"state", state,
		"iterations", best.index+1,
		"overall", final.Overall,
		"method", best.method,
	)

	return domain.OrchestrationResult{
		Success:        success,
		ExtractedData:  best.record,
		Intelligence:   bundle,
		Validation:     best.validation,
		QualityMetrics: final,
		DedupGroups:    best.dedupGroups,
		Metadata: domain.ResultMetadata{
			ExtractionMethod:     best.method,
			RefinementIterations: best.index,
			ProcessingTimeMs:     time.Since(start).Milliseconds(),
			NoteDedup:            best.dedupStats,
			Disagreements:        best.disagreements,
			QualityHistory:       history,
		},
	}, nil
}

// runIteration executes one immutable pass of the pipeline. A panic in any
// stage is recovered and surfaced as an error so the state machine can
// terminate cleanly.
func (s *Service) runIteration(ctx context.Context, idx int, inputs []domain.NoteInput, opts domain.ExtractOptions, extra []patterns.ExtraRule) (it *iteration, err error) {
	defer func() {
		if r := recover(); r != nil {
			it = nil
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	it = &iteration{index: idx}

	notes := s.normalizer.Normalize(inputs)
	if !opts.EnablePreprocessing {
		// Raw passthrough: keep note identity assignment but skip text
		// canonicalization.
		for i := range notes {
			notes[i].Text = inputs[i].Text
		}
	}
	if opts.EnableDeduplication {
		notes, it.dedupStats = s.deduper.DedupeNotes(notes)
	} else {
		it.dedupStats = domain.NoteDedupStats{OriginalCount: len(notes), FinalCount: len(notes)}
	}
	it.notes = notes

	useLLM := s.adapter != nil
	if opts.UseLLM != nil {
		useLLM = *opts.UseLLM && s.adapter != nil
	}

	var patternSet domain.ExtractionSet
	var llmSet *domain.ExtractionSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("pattern extraction panic: %v", r)
			}
		}()
		patternSet = s.patterns.Extract(notes, extra)
		return nil
	})
	if useLLM {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.Warn("llm extraction panicked, continuing pattern-only", "panic", r)
				}
			}()
			set, err := s.adapter.Extract(gctx, notes)
			if err != nil {
				// LLM failure degrades to pattern-only rather than
				// aborting the iteration.
				s.log.Warn("llm extraction unavailable", "error", err)
				return nil
			}
			llmSet = &set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	it.method = domain.MethodPatternOnly
	if llmSet != nil {
		it.method = domain.MethodHybrid
	}

	mentions := append([]domain.EntityMention(nil), patternSet.Mentions...)
	if llmSet != nil {
		mentions = append(mentions, llmSet.Mentions...)
	}
	anchors := s.anchors(patternSet, llmSet)
	mentions = s.resolver.Resolve(mentions, anchors)

	if opts.EnableDeduplication {
		mentions, it.dedupGroups = s.deduper.DedupeEntities(mentions)
	}

	out := s.merger.Merge(merge.Input{
		Pattern:  patternSet,
		LLM:      llmSet,
		Mentions: mentions,
		Groups:   it.dedupGroups,
	})
	it.record = out.Record
	it.disagreements = out.Disagreements

	it.validation = s.validator.Validate(&it.record, notes)
	it.quality = quality.Score(quality.Input{
		Completeness:         it.validation.Completeness,
		ValidationConfidence: it.validation.Confidence,
		TimelineCompleteness: datedShare(it.record),
	})
	return it, nil
}

func (s *Service) transition(next State, iteration int) State {
	s.log.Debug("state transition", "state", next, "iteration", iteration)
	return next
}

// anchors derives temporal anchors from whichever source resolved the stay
// dates. Pattern dates win on conflict, matching the merge priority.
func (s *Service) anchors(pattern domain.ExtractionSet, llmSet *domain.ExtractionSet) temporal.Anchors {
	a := temporal.AnchorsFromRecord(pattern.Record)
	if llmSet == nil {
		return a
	}
	b := temporal.AnchorsFromRecord(llmSet.Record)
	if a.Admission.IsZero() {
		a.Admission = b.Admission
	}
	if a.Surgery.IsZero() {
		a.Surgery = b.Surgery
	}
	if a.Discharge.IsZero() {
		a.Discharge = b.Discharge
	}
	return a
}

// refinementRules pulls learned patterns for the best iteration's pathology
// so the next pass can extract what the generic rules missed.
func (s *Service) refinementRules(best *iteration) []patterns.ExtraRule {
	if s.learned == nil || best == nil {
		return nil
	}
	return s.learned.ExtraRules(best.record.Pathology.Category)
}

// datedShare is the pre-intelligence stand-in for timeline completeness:
// the fraction of extracted events carrying a resolved date.
func datedShare(rec domain.ExtractedRecord) float64 {
	total, dated := 0, 0
	for _, p := range rec.Procedures {
		total++
		if p.DateResolved {
			dated++
		}
	}
	for _, c := range rec.Complications {
		total++
		if c.DateResolved {
			dated++
		}
	}
	if rec.Dates.Admission.Resolved {
		dated++
	}
	total++
	if total == 0 {
		return 0
	}
	return float64(dated) / float64(total)
}

func validateInput(notes []domain.NoteInput) error {
	if len(notes) == 0 {
		return errors.NewInputError("no notes provided")
	}
	hasText := false
	for _, n := range notes {
		if len(n.Text) > 0 {
			hasText = true
			break
		}
	}
	if !hasText {
		return errors.NewInputError("all %d notes are empty", len(notes))
	}
	return nil
}
