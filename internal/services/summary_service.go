package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/nbtcare/voicescreen/internal/cache"
	"github.com/nbtcare/voicescreen/internal/models"
	"github.com/nbtcare/voicescreen/internal/providers/segmenter"
	"github.com/nbtcare/voicescreen/internal/utils"
)

// CallDataFetcher pulls the finished transcript for a call from the voice
// platform. Satisfied by *voice.API.
type CallDataFetcher interface {
	GetCall(ctx context.Context, callID string) (*models.CallData, error)
}

type SummaryConfig struct {
	// MaxAttempts bounds transcript fetches per request, first try included.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; each subsequent wait
	// is the previous one times Multiplier.
	BaseDelay  time.Duration
	Multiplier float64
	CacheTTL   time.Duration
}

func (c *SummaryConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
}

type SummaryService interface {
	// GetCallSummary runs the full pipeline: fetch the transcript with
	// bounded exponential backoff, then segment it into the script's
	// question/answer structure. The outcome is discriminated, never an
	// error: callers branch on OK.
	GetCallSummary(ctx context.Context, callID string) *models.SummaryResult
	Rephrase(ctx context.Context, text string) (string, error)
}

type summaryService struct {
	calls CallDataFetcher
	seg   segmenter.Provider
	cache cache.Cache // optional
	cfg   SummaryConfig
	log   *logrus.Logger
}

func NewSummaryService(calls CallDataFetcher, seg segmenter.Provider, c cache.Cache, cfg SummaryConfig, log *logrus.Logger) SummaryService {
	cfg.applyDefaults()
	if log == nil {
		log = logrus.New()
	}
	return &summaryService{calls: calls, seg: seg, cache: c, cfg: cfg, log: log}
}

func summaryCacheKey(callID string) string { return "summary:" + callID }

func (s *summaryService) GetCallSummary(ctx context.Context, callID string) *models.SummaryResult {
	if callID == "" {
		return &models.SummaryResult{Error: "call id is required"}
	}

	if s.cache != nil {
		var cached models.SummaryResult
		if hit, err := s.cache.GetJSON(ctx, summaryCacheKey(callID), &cached); err == nil && hit && cached.OK {
			return &cached
		}
	}

	data, err := s.fetchCallData(ctx, callID)
	if err != nil {
		s.log.WithError(err).WithField("call_id", callID).Warn("call data fetch exhausted")
		msg := "call transcript was not available in time"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			msg = "summary request was cancelled"
		}
		return &models.SummaryResult{Error: msg}
	}

	record, err := s.seg.Segment(ctx, data.Messages)
	if err != nil {
		// segmentation failure is terminal: the raw transcript still goes
		// back so the UI can render something
		s.log.WithError(err).WithField("call_id", callID).Error("segmentation failed")
		return &models.SummaryResult{CallData: data, Error: "failed to process conversation"}
	}

	result := &models.SummaryResult{OK: true, Summary: record, CallData: data}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, summaryCacheKey(callID), result, s.cfg.CacheTTL); err != nil {
			s.log.WithError(err).Warn("summary cache write failed")
		}
	}
	return result
}

// fetchCallData retries until the platform returns a non-empty message list.
// Waits are deterministic: BaseDelay, then BaseDelay*Multiplier, and so on,
// with no jitter and no elapsed-time cap.
func (s *summaryService) fetchCallData(ctx context.Context, callID string) (*models.CallData, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.BaseDelay
	bo.Multiplier = s.cfg.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxInterval = 5 * time.Minute
	bo.MaxElapsedTime = 0

	var data *models.CallData
	op := func() error {
		d, err := s.calls.GetCall(ctx, callID)
		if err != nil {
			return err
		}
		if len(d.Messages) == 0 {
			return utils.ErrNotReady
		}
		data = d
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(s.cfg.MaxAttempts-1)), ctx))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *summaryService) Rephrase(ctx context.Context, text string) (string, error) {
	const op = "SummaryService.Rephrase"

	text = strings.TrimSpace(text)
	if text == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "text is required", nil)
	}

	out, err := s.seg.Rephrase(ctx, text)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to rephrase text", err)
	}
	return out, nil
}
