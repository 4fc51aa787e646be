package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nbtcare/voicescreen/internal/services"
)

// StreamEnqueuer pushes summary jobs onto the Redis stream the worker pool
// consumes. Satisfies services.SummaryEnqueuer.
type StreamEnqueuer struct {
	Redis  *redis.Client
	Stream string
}

func (e *StreamEnqueuer) Enqueue(ctx context.Context, job services.SummaryJob) error {
	stream := e.Stream
	if stream == "" {
		stream = "summary:stream"
	}
	return e.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"call_id":    job.CallID,
			"session_id": job.SessionID,
			"user_id":    job.UserID,
			"child_name": job.ChildName,
		},
	}).Err()
}

// SummaryWorkerPool drains ended calls off the summary stream, runs the
// retrieval pipeline, and persists the assessment. Processing off the request
// path means a slow platform transcript never blocks the UI.
type SummaryWorkerPool struct {
	Redis       *redis.Client
	Summaries   services.SummaryService
	Assessments services.AssessmentService
	NumWorkers  int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *SummaryWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Summaries == nil || p.Assessments == nil {
		return errors.New("SummaryWorkerPool missing dependency: Redis/Summaries/Assessments must be set")
	}
	if p.Stream == "" {
		p.Stream = "summary:stream"
	}
	if p.Group == "" {
		p.Group = "summary-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *SummaryWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *SummaryWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	job := services.SummaryJob{
		CallID:    getStr("call_id"),
		SessionID: getStr("session_id"),
		UserID:    getStr("user_id"),
		ChildName: getStr("child_name"),
	}
	if job.CallID == "" || job.UserID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"call_id":    job.CallID,
		"session_id": job.SessionID,
	})

	statusCh := services.StatusChannel(job.SessionID)

	result := p.Summaries.GetCallSummary(ctx, job.CallID)
	if !result.OK {
		log.WithField("reason", result.Error).Warn("summary pipeline failed")
		p.publish(ctx, statusCh, map[string]any{
			"type":    "summary_failed",
			"call_id": job.CallID,
			"message": result.Error,
		})
		return
	}

	if _, err := p.Assessments.Record(ctx, job, result.Summary); err != nil {
		log.WithError(err).Error("assessment save failed")
		p.publish(ctx, statusCh, map[string]any{
			"type":    "summary_failed",
			"call_id": job.CallID,
			"message": "failed to save assessment",
		})
		return
	}

	log.WithField("questions", len(result.Summary.QuestionsMapping)).Info("assessment recorded")
	p.publish(ctx, statusCh, map[string]any{
		"type":    "summary_saved",
		"call_id": job.CallID,
	})
}

func (p *SummaryWorkerPool) publish(ctx context.Context, channel string, payload map[string]any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = p.Redis.Publish(ctx, channel, b).Err()
}
