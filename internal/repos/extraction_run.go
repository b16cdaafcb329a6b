package repos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

type ExtractionRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *domain.ExtractionRun) (*domain.ExtractionRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ExtractionRun, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.ExtractionRun, error)
}

type extractionRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExtractionRunRepo(db *gorm.DB, baseLog *logger.Logger) ExtractionRunRepo {
	return &extractionRunRepo{
		db:  db,
		log: baseLog.With("repo", "ExtractionRunRepo"),
	}
}

// FromResult builds a persistable row from an orchestration result.
func FromResult(noteCount int, res domain.OrchestrationResult) (*domain.ExtractionRun, error) {
	historyJSON, err := json.Marshal(res.Metadata.QualityHistory)
	if err != nil {
		return nil, err
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return &domain.ExtractionRun{
		ID:                   uuid.New(),
		Success:              res.Success,
		ExtractionMethod:     string(res.Metadata.ExtractionMethod),
		NoteCount:            noteCount,
		RefinementIterations: res.Metadata.RefinementIterations,
		ProcessingTimeMs:     res.Metadata.ProcessingTimeMs,
		OverallQuality:       res.QualityMetrics.Overall,
		Completeness:         res.QualityMetrics.Completeness,
		QualityHistory:       datatypes.JSON(historyJSON),
		Result:               datatypes.JSON(resultJSON),
	}, nil
}

func (r *extractionRunRepo) Create(ctx context.Context, tx *gorm.DB, run *domain.ExtractionRun) (*domain.ExtractionRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *extractionRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.ExtractionRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out domain.ExtractionRun
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *extractionRunRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*domain.ExtractionRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*domain.ExtractionRun
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
