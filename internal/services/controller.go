package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nbtcare/voicescreen/internal/models"
	mongorepo "github.com/nbtcare/voicescreen/internal/repositories/mongo"
	"github.com/nbtcare/voicescreen/internal/script"
	"github.com/nbtcare/voicescreen/internal/utils"
	"github.com/nbtcare/voicescreen/internal/voice"
)

type ControllerConfig struct {
	// CompletionEndDelay covers trailing audio between the completion
	// phrase and the forced end of the call.
	CompletionEndDelay time.Duration
	// SummaryReadyDelay keeps the "session ended" notice visible before
	// the summary_ready signal fires.
	SummaryReadyDelay time.Duration
	// ArchiveTTL bounds how long finalized transcript entries stay in Mongo.
	ArchiveTTL time.Duration
}

func (c *ControllerConfig) applyDefaults() {
	if c.CompletionEndDelay <= 0 {
		c.CompletionEndDelay = 5 * time.Second
	}
	if c.SummaryReadyDelay <= 0 {
		c.SummaryReadyDelay = 2 * time.Second
	}
	if c.ArchiveTTL <= 0 {
		c.ArchiveTTL = 30 * 24 * time.Hour
	}
}

type ControllerDeps struct {
	SessionID string
	UserID    string
	ChildName string

	// NewClient builds a fresh platform connection per start attempt.
	NewClient func() voice.Client

	Publisher SessionPublisher
	Sessions  mongorepo.SessionRepository    // optional
	Archive   mongorepo.TranscriptRepository // optional

	// OnSummaryReady fires exactly once per call id, after the session
	// has ended and the summary-ready delay has elapsed.
	OnSummaryReady func(callID string)

	Logger *logrus.Logger
	Config ControllerConfig
}

// CallController owns the lifecycle of one screening call:
// inactive -> connecting -> active -> ended. It consumes the platform's
// event stream, feeds the transcript log, and schedules the delayed
// forced-end and summary-ready transitions. Every timer and event loop is
// keyed to a generation token so a restarted session ignores stale work.
type CallController struct {
	sessionID string
	userID    string
	childName string

	newClient      func() voice.Client
	pub            SessionPublisher
	sessions       mongorepo.SessionRepository
	archive        mongorepo.TranscriptRepository
	onSummaryReady func(callID string)
	log            *logrus.Entry
	cfg            ControllerConfig

	mu              sync.Mutex
	client          voice.Client
	status          models.CallStatus
	callID          string
	muted           bool
	connecting      bool
	completed       bool
	summarySignaled bool
	generation      int
	tlog            *transcriptLog
}

// SessionSnapshot is the read-only view handed to the presentation layer.
type SessionSnapshot struct {
	SessionID  string                   `json:"session_id"`
	Status     models.CallStatus        `json:"status"`
	Muted      bool                     `json:"muted"`
	Connecting bool                     `json:"connecting"`
	CallID     string                   `json:"call_id,omitempty"`
	Completed  bool                     `json:"completed"`
	Transcript []models.TranscriptEntry `json:"transcript"`
}

func NewCallController(d ControllerDeps) *CallController {
	d.Config.applyDefaults()
	if d.Publisher == nil {
		d.Publisher = noopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}

	c := &CallController{
		sessionID:      d.SessionID,
		userID:         d.UserID,
		childName:      d.ChildName,
		newClient:      d.NewClient,
		pub:            d.Publisher,
		sessions:       d.Sessions,
		archive:        d.Archive,
		onSummaryReady: d.OnSummaryReady,
		log:            d.Logger.WithField("session_id", d.SessionID),
		cfg:            d.Config,
		status:         models.CallInactive,
		tlog:           newTranscriptLog(),
	}
	c.tlog.AppendAssistant(script.WelcomeMessage)
	return c
}

func (c *CallController) Snapshot() SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SessionSnapshot{
		SessionID:  c.sessionID,
		Status:     c.status,
		Muted:      c.muted,
		Connecting: c.connecting,
		CallID:     c.callID,
		Completed:  c.completed,
		Transcript: c.tlog.Entries(),
	}
}

// Start begins the platform handshake. On failure the session falls back to
// inactive with an error entry; there is no automatic retry.
func (c *CallController) Start(ctx context.Context) error {
	const op = "CallController.Start"

	c.mu.Lock()
	if c.status == models.CallConnecting || c.status == models.CallActive {
		c.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "a call is already in progress", nil)
	}
	c.generation++
	gen := c.generation
	c.status = models.CallConnecting
	c.connecting = true
	c.callID = ""
	c.muted = false
	c.completed = false
	c.summarySignaled = false
	if old := c.client; old != nil {
		_ = old.Close()
	}
	client := c.newClient()
	c.client = client
	c.mu.Unlock()

	c.persistStatus(models.CallConnecting)
	c.publishStatus(ctx, "")

	go c.consume(client, gen)

	callID, err := client.Start(ctx, script.Assistant(c.childName))
	if err != nil {
		_ = client.Close()
		perr := voice.NormalizeErr(err)
		c.mu.Lock()
		var entry *models.TranscriptEntry
		if c.generation == gen {
			c.status = models.CallInactive
			c.connecting = false
			e := c.tlog.AppendError("Error: " + perr.Message)
			entry = &e
		}
		c.mu.Unlock()
		if entry != nil {
			c.emit(*entry)
			c.publishStatus(context.Background(), "")
			c.persistStatus(models.CallInactive)
		}
		return utils.E(utils.CodeUnavailable, op, perr.Message, err)
	}

	c.mu.Lock()
	recorded := false
	if c.generation == gen && c.callID == "" {
		c.callID = callID
		recorded = true
	}
	c.mu.Unlock()
	if recorded {
		c.persistCallID(callID)
		c.log.WithField("call_id", callID).Info("call started")
	}
	return nil
}

// Stop ends the call. Requesting stop while neither active nor connecting
// is a no-op; stopping while connecting is the cancellation path.
func (c *CallController) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.status != models.CallActive && c.status != models.CallConnecting {
		c.mu.Unlock()
		return nil
	}
	client := c.client
	gen := c.generation
	c.mu.Unlock()

	if client != nil {
		_ = client.Stop(ctx)
	}
	c.endSession(gen)
	return nil
}

// SetMuted toggles the microphone. Outside of an active call this is a
// no-op and must not change the muted flag.
func (c *CallController) SetMuted(ctx context.Context, muted bool) error {
	const op = "CallController.SetMuted"

	c.mu.Lock()
	if c.status != models.CallActive {
		c.mu.Unlock()
		return nil
	}
	client := c.client
	c.mu.Unlock()

	if err := client.SetMuted(ctx, muted); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to update mute state", err)
	}

	c.mu.Lock()
	if c.status == models.CallActive {
		c.muted = muted
	}
	c.mu.Unlock()
	c.publishStatus(ctx, "")
	return nil
}

// SendText injects a typed parent turn into the active call.
func (c *CallController) SendText(ctx context.Context, text string) error {
	const op = "CallController.SendText"

	text = strings.TrimSpace(text)
	if text == "" {
		return utils.E(utils.CodeInvalidArgument, op, "text is required", nil)
	}

	c.mu.Lock()
	if c.status != models.CallActive {
		c.mu.Unlock()
		return utils.E(utils.CodeInvalidArgument, op, "no active call", nil)
	}
	client := c.client
	entry := c.tlog.AppendParentText(text)
	c.mu.Unlock()
	c.emit(entry)

	if err := client.Send(ctx, text); err != nil {
		perr := voice.NormalizeErr(err)
		c.mu.Lock()
		failed := c.tlog.AppendError("Failed to send message: " + perr.Message)
		c.mu.Unlock()
		c.emit(failed)
		return utils.E(utils.CodeUnavailable, op, perr.Message, err)
	}
	return nil
}

// Close tears the session down (view unmounted / server shutdown). Pending
// timers for this session become no-ops.
func (c *CallController) Close() error {
	c.mu.Lock()
	c.generation++
	client := c.client
	c.client = nil
	wasLive := c.status == models.CallActive || c.status == models.CallConnecting
	if wasLive {
		c.status = models.CallEnded
		c.connecting = false
	}
	c.mu.Unlock()

	if wasLive {
		c.persistEnd()
	}
	if client != nil {
		return client.Close()
	}
	return nil
}

func (c *CallController) consume(client voice.Client, gen int) {
	for ev := range client.Events() {
		c.handleEvent(gen, ev)
	}
}

func (c *CallController) handleEvent(gen int, ev voice.Event) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}

	switch ev.Kind {
	case voice.EventCallStart:
		if c.status != models.CallConnecting {
			c.mu.Unlock()
			return
		}
		c.status = models.CallActive
		c.connecting = false
		c.muted = false
		entry := c.tlog.AppendSystem("Assessment session started")
		c.mu.Unlock()

		c.emit(entry)
		c.publishStatus(context.Background(), "")
		c.persistStatus(models.CallActive)

	case voice.EventCallEnd:
		c.mu.Unlock()
		c.endSession(gen)

	case voice.EventSpeechStart:
		if c.status != models.CallActive || ev.Role != voice.RoleAssistant {
			c.mu.Unlock()
			return
		}
		entry, added := c.tlog.AssistantSpeaking()
		c.mu.Unlock()
		if added {
			c.pub.PublishTranscript(context.Background(), c.sessionID, entry)
		}

	case voice.EventTranscript:
		if c.status != models.CallActive || !ev.Final || ev.Transcript == "" {
			c.mu.Unlock()
			return
		}
		c.handleFinalTranscriptLocked(gen, ev)

	case voice.EventError:
		perr := ev.Err
		if perr == nil {
			perr = &voice.PlatformError{Message: "Connection failed"}
		}
		entry := c.tlog.AppendError("Error: " + perr.Message)
		statusChanged := false
		if c.status == models.CallConnecting {
			c.status = models.CallInactive
			c.connecting = false
			statusChanged = true
		}
		c.mu.Unlock()

		c.emit(entry)
		if statusChanged {
			c.publishStatus(context.Background(), "")
			c.persistStatus(models.CallInactive)
		}
		c.log.WithField("error_type", perr.Type).Warn(perr.Message)

	default:
		c.mu.Unlock()
	}
}

// handleFinalTranscriptLocked is entered with the mutex held and releases it.
func (c *CallController) handleFinalTranscriptLocked(gen int, ev voice.Event) {
	switch ev.Role {
	case voice.RoleAssistant:
		entry := c.tlog.FinalAssistant(ev.Transcript)
		var completion *models.TranscriptEntry
		if !c.completed && script.ContainsCompletionPhrase(ev.Transcript) {
			c.completed = true
			e := c.tlog.AppendSystem("Assessment complete. Thank you for your responses.")
			completion = &e
		}
		c.mu.Unlock()

		c.emit(entry)
		if completion != nil {
			c.emit(*completion)
			c.persistCompleted()
			c.afterFunc(c.cfg.CompletionEndDelay, gen, func() {
				c.forceEnd(gen)
			})
		}

	case voice.RoleUser:
		entry := c.tlog.FinalParent(ev.Transcript)
		c.mu.Unlock()
		c.emit(entry)

	default:
		c.mu.Unlock()
	}
}

// forceEnd stops the platform call after the completion phrase delay.
func (c *CallController) forceEnd(gen int) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Stop(ctx)
	}
	c.endSession(gen)
}

// endSession moves a live session to ended and, when a call id is known,
// schedules the one-time summary-ready signal.
func (c *CallController) endSession(gen int) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	if c.status != models.CallActive && c.status != models.CallConnecting {
		c.mu.Unlock()
		return
	}
	c.status = models.CallEnded
	c.connecting = false
	entry := c.tlog.AppendSystem("Assessment session ended")
	callID := c.callID
	signal := callID != "" && !c.summarySignaled
	if signal {
		c.summarySignaled = true
	}
	c.mu.Unlock()

	c.emit(entry)
	c.publishStatus(context.Background(), "")
	c.persistEnd()

	if signal {
		c.afterFunc(c.cfg.SummaryReadyDelay, gen, func() {
			c.pub.PublishStatus(context.Background(), c.sessionID, StatusUpdate{
				Type:    "summary_ready",
				Status:  models.CallEnded,
				CallID:  callID,
				Message: "Your assessment summary is ready",
			})
			if c.onSummaryReady != nil {
				c.onSummaryReady(callID)
			}
		})
	}
}

// afterFunc schedules fn unless the session generation has moved on by the
// time the timer fires.
func (c *CallController) afterFunc(d time.Duration, gen int, fn func()) {
	time.AfterFunc(d, func() {
		c.mu.Lock()
		stale := c.generation != gen
		c.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
}

// emit archives a finalized entry and pushes it to the UI stream.
func (c *CallController) emit(entry models.TranscriptEntry) {
	c.pub.PublishTranscript(context.Background(), c.sessionID, entry)

	if c.archive == nil {
		return
	}
	// assistant placeholders never reach the archive
	if entry.Interim && entry.Speaker == models.SpeakerAssistant {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := time.Now().UTC()
	err := c.archive.Upsert(ctx, &models.ArchivedEntry{
		SessionID: c.sessionID,
		EntryID:   entry.ID,
		Speaker:   entry.Speaker,
		Text:      entry.Text,
		Timestamp: entry.Timestamp,
		ExpiresAt: now.Add(c.cfg.ArchiveTTL),
	})
	if err != nil {
		c.log.WithError(err).Warn("transcript archive failed")
	}
}

func (c *CallController) publishStatus(ctx context.Context, message string) {
	c.mu.Lock()
	update := StatusUpdate{
		Type:       "status",
		Status:     c.status,
		Muted:      c.muted,
		Connecting: c.connecting,
		CallID:     c.callID,
		Message:    message,
	}
	c.mu.Unlock()
	c.pub.PublishStatus(ctx, c.sessionID, update)
}

func (c *CallController) persistStatus(status models.CallStatus) {
	if c.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.sessions.SetStatus(ctx, c.sessionID, status); err != nil {
		c.log.WithError(err).Warn("session status persist failed")
	}
}

func (c *CallController) persistCallID(callID string) {
	if c.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.sessions.SetCallID(ctx, c.sessionID, callID); err != nil {
		c.log.WithError(err).Warn("session call id persist failed")
	}
}

func (c *CallController) persistCompleted() {
	if c.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.sessions.MarkCompleted(ctx, c.sessionID); err != nil {
		c.log.WithError(err).Warn("session completed persist failed")
	}
}

func (c *CallController) persistEnd() {
	if c.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.sessions.End(ctx, c.sessionID, time.Now().UTC()); err != nil {
		c.log.WithError(err).Warn("session end persist failed")
	}
}
