package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nbtcare/voicescreen/internal/models"
	"github.com/nbtcare/voicescreen/internal/utils"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.ScreeningSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.ScreeningSession, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.ScreeningSession, error)
	SetStatus(ctx context.Context, sessionID string, status models.CallStatus) error
	SetCallID(ctx context.Context, sessionID, callID string) error
	MarkCompleted(ctx context.Context, sessionID string) error
	End(ctx context.Context, sessionID string, endedAt time.Time) error
}

type sessionRepo struct {
	col *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepository {
	return &sessionRepo{col: db.Collection("sessions")}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.ScreeningSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = models.CallInactive
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *sessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.ScreeningSession, error) {
	var s models.ScreeningSession
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.ScreeningSession, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ScreeningSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) SetStatus(ctx context.Context, sessionID string, status models.CallStatus) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"status": status}},
	)
	return err
}

// SetCallID records the platform call id. The filter keeps the first write:
// a session's call id never changes once assigned.
func (r *sessionRepo) SetCallID(ctx context.Context, sessionID, callID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "call_id": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"call_id": callID}},
	)
	return err
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, sessionID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"completed": true}},
	)
	return err
}

func (r *sessionRepo) End(ctx context.Context, sessionID string, endedAt time.Time) error {
	s, err := r.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}

	set := bson.M{
		"status":   models.CallEnded,
		"ended_at": endedAt.UTC(),
	}
	if !s.CreatedAt.IsZero() {
		set["duration_seconds"] = int64(endedAt.Sub(s.CreatedAt).Seconds())
	}

	_, err = r.col.UpdateOne(ctx, bson.M{"session_id": sessionID}, bson.M{"$set": set})
	return err
}
