package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nbtcare/voicescreen/internal/models"
)

type fakeFetcher struct {
	mu       sync.Mutex
	attempts int
	// readyAfter is the attempt number that first returns messages
	readyAfter int
	err        error
}

func (f *fakeFetcher) GetCall(ctx context.Context, callID string) (*models.CallData, error) {
	f.mu.Lock()
	f.attempts++
	n := f.attempts
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	data := &models.CallData{ID: callID}
	if n >= f.readyAfter {
		data.Messages = []models.CallMessage{
			{Role: "bot", Message: "Does your child enjoy being swung?"},
			{Role: "user", Message: "yes"},
		}
	}
	return data, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

type fakeSegmenter struct {
	record *models.SummaryRecord
	err    error

	mu        sync.Mutex
	rephrased string
}

func (f *fakeSegmenter) Segment(ctx context.Context, messages []models.CallMessage) (*models.SummaryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func (f *fakeSegmenter) Rephrase(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.rephrased = text
	f.mu.Unlock()
	return "rephrased: " + text, nil
}

func testSummaryConfig() SummaryConfig {
	return SummaryConfig{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestGetCallSummaryRetriesUntilReady(t *testing.T) {
	fetcher := &fakeFetcher{readyAfter: 3}
	seg := &fakeSegmenter{record: &models.SummaryRecord{
		QuestionsMapping: []models.QuestionMapping{
			{QuestionFromScript: "q1", ActualQuestionAsked: "q1", UserResponse: "yes", Language: "English"},
		},
	}}
	svc := NewSummaryService(fetcher, seg, nil, testSummaryConfig(), nil)

	start := time.Now()
	result := svc.GetCallSummary(context.Background(), "call-1")
	elapsed := time.Since(start)

	if !result.OK {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Summary == nil || result.CallData == nil {
		t.Fatalf("expected summary and call data, got %+v", result)
	}
	if got := fetcher.count(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	// two waits: 10ms then 20ms
	if elapsed < 30*time.Millisecond {
		t.Fatalf("backoff too fast: %v", elapsed)
	}
}

func TestGetCallSummaryExhaustsAttempts(t *testing.T) {
	fetcher := &fakeFetcher{readyAfter: 100} // never ready
	svc := NewSummaryService(fetcher, &fakeSegmenter{}, nil, testSummaryConfig(), nil)

	result := svc.GetCallSummary(context.Background(), "call-1")

	if result.OK {
		t.Fatal("expected failure")
	}
	if result.Error == "" {
		t.Fatal("expected an error message")
	}
	if got := fetcher.count(); got != 5 {
		t.Fatalf("expected exactly MaxAttempts (5) fetches, got %d", got)
	}
}

func TestGetCallSummaryFetchErrorIsRetried(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	svc := NewSummaryService(fetcher, &fakeSegmenter{}, nil, testSummaryConfig(), nil)

	result := svc.GetCallSummary(context.Background(), "call-1")

	if result.OK {
		t.Fatal("expected failure")
	}
	if got := fetcher.count(); got != 5 {
		t.Fatalf("expected 5 attempts, got %d", got)
	}
}

func TestGetCallSummarySegmentationFailureIsTerminal(t *testing.T) {
	fetcher := &fakeFetcher{readyAfter: 1}
	seg := &fakeSegmenter{err: errors.New("upstream 500")}
	svc := NewSummaryService(fetcher, seg, nil, testSummaryConfig(), nil)

	result := svc.GetCallSummary(context.Background(), "call-1")

	if result.OK {
		t.Fatal("expected failure")
	}
	if result.CallData == nil {
		t.Fatal("raw call data should still come back on segmentation failure")
	}
	if got := fetcher.count(); got != 1 {
		t.Fatalf("segmentation failure must not trigger refetches, got %d attempts", got)
	}
}

func TestGetCallSummaryHonorsContextCancel(t *testing.T) {
	fetcher := &fakeFetcher{readyAfter: 100}
	svc := NewSummaryService(fetcher, &fakeSegmenter{}, nil, testSummaryConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := svc.GetCallSummary(ctx, "call-1")
	if result.OK {
		t.Fatal("expected failure after cancellation")
	}
}

func TestRephraseRequiresText(t *testing.T) {
	svc := NewSummaryService(&fakeFetcher{}, &fakeSegmenter{}, nil, testSummaryConfig(), nil)

	if _, err := svc.Rephrase(context.Background(), "  "); err == nil {
		t.Fatal("expected validation error")
	}

	out, err := svc.Rephrase(context.Background(), "my kid loves it")
	if err != nil {
		t.Fatalf("rephrase: %v", err)
	}
	if out != "rephrased: my kid loves it" {
		t.Fatalf("unexpected output %q", out)
	}
}
