package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nbtcare/voicescreen/internal/models"
)

type TranscriptRepository interface {
	// Upsert writes one finalized entry, keyed by session + entry id.
	// In-progress parent fragments get overwritten by the same key once
	// the final text lands.
	Upsert(ctx context.Context, e *models.ArchivedEntry) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.ArchivedEntry, error)
}

type transcriptRepo struct {
	col *mongo.Collection
}

func NewTranscriptRepo(db *mongo.Database) TranscriptRepository {
	return &transcriptRepo{col: db.Collection("transcript_entries")}
}

func (r *transcriptRepo) Upsert(ctx context.Context, e *models.ArchivedEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": e.SessionID, "entry_id": e.EntryID},
		bson.M{"$set": bson.M{
			"speaker":    e.Speaker,
			"text":       e.Text,
			"timestamp":  e.Timestamp,
			"expires_at": e.ExpiresAt,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *transcriptRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.ArchivedEntry, error) {
	if limit <= 0 {
		limit = 500
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "entry_id", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ArchivedEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
