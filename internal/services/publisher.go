package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nbtcare/voicescreen/internal/models"
)

// StatusUpdate is pushed on session:<id>:status whenever the call lifecycle
// changes; the WS handler forwards it to the UI as-is.
type StatusUpdate struct {
	Type       string            `json:"type"` // "status" | "summary_ready"
	Status     models.CallStatus `json:"status"`
	Muted      bool              `json:"muted"`
	Connecting bool              `json:"connecting"`
	CallID     string            `json:"call_id,omitempty"`
	Message    string            `json:"message,omitempty"`
}

type transcriptUpdate struct {
	Type  string                 `json:"type"` // "transcript"
	Entry models.TranscriptEntry `json:"entry"`
}

// SessionPublisher fans session events out to whoever renders them.
type SessionPublisher interface {
	PublishTranscript(ctx context.Context, sessionID string, entry models.TranscriptEntry)
	PublishStatus(ctx context.Context, sessionID string, update StatusUpdate)
}

func TranscriptChannel(sessionID string) string { return "session:" + sessionID + ":transcript" }
func StatusChannel(sessionID string) string     { return "session:" + sessionID + ":status" }

// RedisPublisher publishes session events on Redis pub/sub channels.
// Delivery is best-effort; a render miss must never fail the call.
type RedisPublisher struct {
	rdb *redis.Client
	log *logrus.Logger
}

func NewRedisPublisher(rdb *redis.Client, log *logrus.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, log: log}
}

func (p *RedisPublisher) PublishTranscript(ctx context.Context, sessionID string, entry models.TranscriptEntry) {
	payload, err := json.Marshal(transcriptUpdate{Type: "transcript", Entry: entry})
	if err != nil {
		return
	}
	if err := p.rdb.Publish(ctx, TranscriptChannel(sessionID), payload).Err(); err != nil {
		p.log.WithError(err).WithField("session_id", sessionID).Warn("transcript publish failed")
	}
}

func (p *RedisPublisher) PublishStatus(ctx context.Context, sessionID string, update StatusUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	if err := p.rdb.Publish(ctx, StatusChannel(sessionID), payload).Err(); err != nil {
		p.log.WithError(err).WithField("session_id", sessionID).Warn("status publish failed")
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishTranscript(context.Context, string, models.TranscriptEntry) {}
func (noopPublisher) PublishStatus(context.Context, string, StatusUpdate)               {}
