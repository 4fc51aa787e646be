package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"github.com/nbtcare/voicescreen/internal/models"
	pgrepo "github.com/nbtcare/voicescreen/internal/repositories/postgres"
	"github.com/nbtcare/voicescreen/internal/utils"
)

type AssessmentService interface {
	// Record persists the outcome of a successful summary run for a call.
	Record(ctx context.Context, job SummaryJob, record *models.SummaryRecord) (*models.Assessment, error)
	GetByCallID(ctx context.Context, userID, callID string) (*models.Assessment, error)
	ListMine(ctx context.Context, userID string, limit int) ([]models.Assessment, error)
	// ListAll is the clinician view across every account.
	ListAll(ctx context.Context, limit int) ([]models.Assessment, error)
}

type assessmentService struct {
	assessments pgrepo.AssessmentRepository
}

func NewAssessmentService(assessments pgrepo.AssessmentRepository) AssessmentService {
	return &assessmentService{assessments: assessments}
}

func (s *assessmentService) Record(ctx context.Context, job SummaryJob, record *models.SummaryRecord) (*models.Assessment, error) {
	const op = "AssessmentService.Record"

	if job.CallID == "" || job.UserID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_id and user_id are required", nil)
	}
	if record == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "summary record is required", nil)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode summary", err)
	}

	row := &models.Assessment{
		ID:            uuid.NewString(),
		UserID:        job.UserID,
		CallID:        job.CallID,
		SessionID:     job.SessionID,
		ChildName:     job.ChildName,
		QuestionCount: len(record.QuestionsMapping),
		Languages:     pq.StringArray(distinctLanguages(record.QuestionsMapping)),
		Summary:       datatypes.JSON(raw),
		CompletedAt:   time.Now().UTC(),
	}

	if err := s.assessments.Upsert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save assessment", err)
	}
	return row, nil
}

func (s *assessmentService) GetByCallID(ctx context.Context, userID, callID string) (*models.Assessment, error) {
	const op = "AssessmentService.GetByCallID"

	if userID == "" || callID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and call_id are required", nil)
	}

	row, err := s.assessments.GetByCallID(ctx, callID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "assessment not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get assessment", err)
	}
	if row.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "assessment belongs to another user", nil)
	}
	return row, nil
}

func (s *assessmentService) ListMine(ctx context.Context, userID string, limit int) ([]models.Assessment, error) {
	const op = "AssessmentService.ListMine"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	rows, err := s.assessments.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list assessments", err)
	}
	return rows, nil
}

func (s *assessmentService) ListAll(ctx context.Context, limit int) ([]models.Assessment, error) {
	const op = "AssessmentService.ListAll"

	rows, err := s.assessments.ListAll(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list assessments", err)
	}
	return rows, nil
}

// distinctLanguages keeps first-seen order.
func distinctLanguages(mappings []models.QuestionMapping) []string {
	seen := make(map[string]struct{}, len(mappings))
	var out []string
	for _, m := range mappings {
		if m.Language == "" {
			continue
		}
		if _, ok := seen[m.Language]; ok {
			continue
		}
		seen[m.Language] = struct{}{}
		out = append(out, m.Language)
	}
	return out
}
