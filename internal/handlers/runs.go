package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
	"github.com/yungbote/clinrecord-backend/internal/repos"
)

type RunsHandler struct {
	log     *logger.Logger
	runRepo repos.ExtractionRunRepo
}

func NewRunsHandler(log *logger.Logger, runRepo repos.ExtractionRunRepo) *RunsHandler {
	return &RunsHandler{
		log:     log.With("handler", "RunsHandler"),
		runRepo: runRepo,
	}
}

func (h *RunsHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.runRepo.ListRecent(c.Request.Context(), nil, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"runs": runs})
}

func (h *RunsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	run, err := h.runRepo.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, run)
}
