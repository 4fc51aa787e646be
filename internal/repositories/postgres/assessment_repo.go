package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nbtcare/voicescreen/internal/models"
	"github.com/nbtcare/voicescreen/internal/utils"
)

type AssessmentRepository interface {
	// Upsert keeps one row per call id; a reprocessed summary replaces the
	// earlier result.
	Upsert(ctx context.Context, a *models.Assessment) error
	GetByCallID(ctx context.Context, callID string) (*models.Assessment, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Assessment, error)
	ListAll(ctx context.Context, limit int) ([]models.Assessment, error)
}

type assessmentRepo struct {
	db *gorm.DB
}

func NewAssessmentRepo(db *gorm.DB) AssessmentRepository {
	return &assessmentRepo{db: db}
}

func (r *assessmentRepo) Upsert(ctx context.Context, a *models.Assessment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "call_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"child_name", "question_count", "languages", "summary", "completed_at"}),
		}).
		Create(a).Error
}

func (r *assessmentRepo) GetByCallID(ctx context.Context, callID string) (*models.Assessment, error) {
	var row models.Assessment
	err := r.db.WithContext(ctx).Where("call_id = ?", callID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *assessmentRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Assessment, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.Assessment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *assessmentRepo) ListAll(ctx context.Context, limit int) ([]models.Assessment, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []models.Assessment
	err := r.db.WithContext(ctx).
		Order("completed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
