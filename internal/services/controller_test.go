package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nbtcare/voicescreen/internal/models"
	"github.com/nbtcare/voicescreen/internal/voice"
)

type fakeVoiceClient struct {
	mu       sync.Mutex
	events   chan voice.Event
	startErr error
	callID   string
	stopped  int
	sent     []string
	muted    []bool
	closed   bool
}

func newFakeVoiceClient(callID string) *fakeVoiceClient {
	return &fakeVoiceClient{callID: callID, events: make(chan voice.Event, 16)}
}

func (f *fakeVoiceClient) Start(ctx context.Context, cfg voice.AssistantConfig) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.callID, nil
}

func (f *fakeVoiceClient) Stop(ctx context.Context) error {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
	return nil
}

func (f *fakeVoiceClient) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeVoiceClient) SetMuted(ctx context.Context, muted bool) error {
	f.mu.Lock()
	f.muted = append(f.muted, muted)
	f.mu.Unlock()
	return nil
}

func (f *fakeVoiceClient) Events() <-chan voice.Event { return f.events }

func (f *fakeVoiceClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeVoiceClient) emit(ev voice.Event) { f.events <- ev }

func (f *fakeVoiceClient) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type testController struct {
	ctrl   *CallController
	client *fakeVoiceClient
	ready  chan string
}

func newTestController(t *testing.T, client *fakeVoiceClient) *testController {
	t.Helper()
	tc := &testController{client: client, ready: make(chan string, 4)}
	tc.ctrl = NewCallController(ControllerDeps{
		SessionID: "sess-1",
		UserID:    "user-1",
		ChildName: "Aarav",
		NewClient: func() voice.Client { return tc.client },
		OnSummaryReady: func(callID string) {
			tc.ready <- callID
		},
		Config: ControllerConfig{
			CompletionEndDelay: 20 * time.Millisecond,
			SummaryReadyDelay:  20 * time.Millisecond,
		},
	})
	return tc
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestControllerStartsInactiveWithWelcome(t *testing.T) {
	tc := newTestController(t, newFakeVoiceClient("call-1"))

	snap := tc.ctrl.Snapshot()
	if snap.Status != models.CallInactive {
		t.Fatalf("expected inactive, got %s", snap.Status)
	}
	if len(snap.Transcript) != 1 || snap.Transcript[0].Speaker != models.SpeakerAssistant {
		t.Fatalf("expected welcome entry, got %+v", snap.Transcript)
	}
}

func TestControllerLifecycle(t *testing.T) {
	tc := newTestController(t, newFakeVoiceClient("call-1"))
	ctrl := tc.ctrl

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.Status != models.CallConnecting || !snap.Connecting {
		t.Fatalf("expected connecting, got %+v", snap)
	}
	if snap.CallID != "call-1" {
		t.Fatalf("expected call id recorded, got %q", snap.CallID)
	}

	tc.client.emit(voice.Event{Kind: voice.EventCallStart})
	waitFor(t, func() bool { return ctrl.Snapshot().Status == models.CallActive }, "never went active")

	snap = ctrl.Snapshot()
	if snap.Muted {
		t.Fatal("muted must reset to false on activation")
	}

	tc.client.emit(voice.Event{Kind: voice.EventSpeechStart, Role: voice.RoleAssistant})
	tc.client.emit(voice.Event{Kind: voice.EventTranscript, Role: voice.RoleAssistant, Transcript: "Does your child point at things?", Final: true})
	tc.client.emit(voice.Event{Kind: voice.EventTranscript, Role: voice.RoleUser, Transcript: "yes", Final: true})

	waitFor(t, func() bool {
		entries := ctrl.Snapshot().Transcript
		return len(entries) > 0 && entries[len(entries)-1].Speaker == models.SpeakerParent
	}, "transcript never settled")

	for _, e := range ctrl.Snapshot().Transcript {
		if e.Speaker == models.SpeakerAssistant && e.Interim {
			t.Fatalf("placeholder survived: %+v", e)
		}
	}

	if err := ctrl.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := ctrl.Snapshot().Status; got != models.CallEnded {
		t.Fatalf("expected ended, got %s", got)
	}

	// stopping again is a no-op
	if err := ctrl.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	select {
	case callID := <-tc.ready:
		if callID != "call-1" {
			t.Fatalf("unexpected call id %q", callID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("summary ready never fired")
	}

	// the signal is one-time per call
	select {
	case <-tc.ready:
		t.Fatal("summary ready fired twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestControllerStartFailure(t *testing.T) {
	client := newFakeVoiceClient("")
	client.startErr = &voice.PlatformError{Type: "start-method-error", Message: "Failed to start call. Please check the assistant configuration."}
	tc := newTestController(t, client)

	if err := tc.ctrl.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}

	snap := tc.ctrl.Snapshot()
	if snap.Status != models.CallInactive || snap.Connecting {
		t.Fatalf("expected fallback to inactive, got %+v", snap)
	}
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Speaker != models.SpeakerError {
		t.Fatalf("expected error entry, got %+v", last)
	}
}

func TestControllerRejectsDoubleStart(t *testing.T) {
	tc := newTestController(t, newFakeVoiceClient("call-1"))
	if err := tc.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tc.ctrl.Start(context.Background()); err == nil {
		t.Fatal("expected second start to be rejected")
	}
}

func TestControllerMuteOutsideActiveCallIsNoop(t *testing.T) {
	tc := newTestController(t, newFakeVoiceClient("call-1"))

	if err := tc.ctrl.SetMuted(context.Background(), true); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if tc.ctrl.Snapshot().Muted {
		t.Fatal("muted flag changed outside an active call")
	}
	if len(tc.client.muted) != 0 {
		t.Fatal("platform mute called outside an active call")
	}
}

func TestControllerSendTextValidation(t *testing.T) {
	tc := newTestController(t, newFakeVoiceClient("call-1"))

	if err := tc.ctrl.SendText(context.Background(), "   "); err == nil {
		t.Fatal("expected empty text to be rejected")
	}
	if err := tc.ctrl.SendText(context.Background(), "hello"); err == nil {
		t.Fatal("expected send outside active call to be rejected")
	}
}

func TestControllerCompletionPhraseForcesEnd(t *testing.T) {
	tc := newTestController(t, newFakeVoiceClient("call-1"))
	ctrl := tc.ctrl

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	tc.client.emit(voice.Event{Kind: voice.EventCallStart})
	waitFor(t, func() bool { return ctrl.Snapshot().Status == models.CallActive }, "never went active")

	tc.client.emit(voice.Event{
		Kind:       voice.EventTranscript,
		Role:       voice.RoleAssistant,
		Transcript: "Thank you for answering all the questions. We are done now.",
		Final:      true,
	})

	waitFor(t, func() bool { return ctrl.Snapshot().Completed }, "completion never detected")
	waitFor(t, func() bool { return ctrl.Snapshot().Status == models.CallEnded }, "forced end never happened")

	if tc.client.stopCount() == 0 {
		t.Fatal("platform stop never requested")
	}

	select {
	case <-tc.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("summary ready never fired")
	}
}

func TestControllerErrorWhileConnectingFallsBack(t *testing.T) {
	tc := newTestController(t, newFakeVoiceClient("call-1"))
	ctrl := tc.ctrl

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	tc.client.emit(voice.Event{Kind: voice.EventError, Err: &voice.PlatformError{Message: "Connection failed"}})

	waitFor(t, func() bool { return ctrl.Snapshot().Status == models.CallInactive }, "never fell back to inactive")

	snap := ctrl.Snapshot()
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Speaker != models.SpeakerError {
		t.Fatalf("expected error entry, got %+v", last)
	}
}

func TestControllerCloseSuppressesPendingSignals(t *testing.T) {
	tc := newTestController(t, newFakeVoiceClient("call-1"))
	ctrl := tc.ctrl

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	tc.client.emit(voice.Event{Kind: voice.EventCallStart})
	waitFor(t, func() bool { return ctrl.Snapshot().Status == models.CallActive }, "never went active")

	if err := ctrl.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// teardown before the summary-ready delay elapses
	if err := ctrl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case <-tc.ready:
		t.Fatal("summary ready fired after teardown")
	case <-time.After(100 * time.Millisecond):
	}
}
