package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/orchestrator"
	apperrors "github.com/yungbote/clinrecord-backend/internal/pkg/errors"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
	"github.com/yungbote/clinrecord-backend/internal/repos"
)

type ExtractHandler struct {
	log     *logger.Logger
	service *orchestrator.Service
	runRepo repos.ExtractionRunRepo
}

func NewExtractHandler(log *logger.Logger, service *orchestrator.Service, runRepo repos.ExtractionRunRepo) *ExtractHandler {
	return &ExtractHandler{
		log:     log.With("handler", "ExtractHandler"),
		service: service,
		runRepo: runRepo,
	}
}

type ExtractRequest struct {
	Notes   []domain.NoteInput   `json:"notes"`
	Options *ExtractOptionsInput `json:"options,omitempty"`
}

// ExtractOptionsInput mirrors domain.ExtractOptions with pointer fields so a
// partial request body only overrides what it names.
type ExtractOptionsInput struct {
	EnablePreprocessing     *bool    `json:"enable_preprocessing,omitempty"`
	EnableDeduplication     *bool    `json:"enable_deduplication,omitempty"`
	UseLLM                  *bool    `json:"use_llm,omitempty"`
	LLMProvider             *string  `json:"llm_provider,omitempty"`
	MaxRefinementIterations *int     `json:"max_refinement_iterations,omitempty"`
	QualityThreshold        *float64 `json:"quality_threshold,omitempty"`
}

// resolveOptions layers the supplied overrides over the defaults.
func resolveOptions(in *ExtractOptionsInput) domain.ExtractOptions {
	opts := domain.DefaultExtractOptions()
	if in == nil {
		return opts
	}
	if in.EnablePreprocessing != nil {
		opts.EnablePreprocessing = *in.EnablePreprocessing
	}
	if in.EnableDeduplication != nil {
		opts.EnableDeduplication = *in.EnableDeduplication
	}
	if in.UseLLM != nil {
		opts.UseLLM = in.UseLLM
	}
	if in.LLMProvider != nil {
		opts.LLMProvider = *in.LLMProvider
	}
	if in.MaxRefinementIterations != nil {
		opts.MaxRefinementIterations = *in.MaxRefinementIterations
	}
	if in.QualityThreshold != nil {
		opts.QualityThreshold = *in.QualityThreshold
	}
	return opts
}

// Extract runs the full pipeline over the posted notes and persists the run.
func (h *ExtractHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	opts := resolveOptions(req.Options)

	res, err := h.service.Extract(c.Request.Context(), req.Notes, opts)
	if err != nil {
		if apperrors.IsInputError(err) {
			RespondError(c, http.StatusBadRequest, "invalid_input", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "extraction_failed", err)
		return
	}

	if h.runRepo != nil {
		row, err := repos.FromResult(len(req.Notes), res)
		if err != nil {
			h.log.Warn("failed to serialize run", "error", err)
		} else if _, err := h.runRepo.Create(c.Request.Context(), nil, row); err != nil {
			h.log.Warn("failed to persist run", "error", err)
		}
	}

	RespondOK(c, res)
}
