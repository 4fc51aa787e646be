package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nbtcare/voicescreen/internal/models"
	mongorepo "github.com/nbtcare/voicescreen/internal/repositories/mongo"
	"github.com/nbtcare/voicescreen/internal/script"
	"github.com/nbtcare/voicescreen/internal/utils"
	"github.com/nbtcare/voicescreen/internal/voice"
)

// SummaryJob is handed to the summary worker once a call has ended and the
// summary-ready delay elapsed.
type SummaryJob struct {
	CallID    string
	SessionID string
	UserID    string
	ChildName string
}

// SummaryEnqueuer hands completed calls off for background summarization.
type SummaryEnqueuer interface {
	Enqueue(ctx context.Context, job SummaryJob) error
}

type SessionManager interface {
	// Create registers a new screening session for the user. The child's
	// name personalizes the assistant script; empty falls back to the
	// script default.
	Create(ctx context.Context, userID, childName string) (SessionSnapshot, error)
	Snapshot(ctx context.Context, userID, sessionID string) (SessionSnapshot, error)
	Start(ctx context.Context, userID, sessionID string) error
	Stop(ctx context.Context, userID, sessionID string) error
	SetMuted(ctx context.Context, userID, sessionID string, muted bool) error
	SendText(ctx context.Context, userID, sessionID, text string) error
	// Delete tears the session down; live timers and event loops for it
	// become no-ops.
	Delete(ctx context.Context, userID, sessionID string) error
	// History lists the user's past sessions from Mongo.
	History(ctx context.Context, userID string, limit int64) ([]models.ScreeningSession, error)
	// CloseAll is the shutdown hook.
	CloseAll()
}

type ManagerDeps struct {
	NewClient func() voice.Client
	Publisher SessionPublisher
	Sessions  mongorepo.SessionRepository
	Archive   mongorepo.TranscriptRepository
	Summaries SummaryEnqueuer // optional
	Logger    *logrus.Logger
	Config    ControllerConfig
}

type sessionManager struct {
	deps ManagerDeps
	log  *logrus.Logger

	mu     sync.RWMutex
	owners map[string]string          // session id -> user id
	ctrls  map[string]*CallController // session id -> controller
}

func NewSessionManager(deps ManagerDeps) SessionManager {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	return &sessionManager{
		deps:   deps,
		log:    deps.Logger,
		owners: make(map[string]string),
		ctrls:  make(map[string]*CallController),
	}
}

func (m *sessionManager) Create(ctx context.Context, userID, childName string) (SessionSnapshot, error) {
	const op = "SessionManager.Create"

	if userID == "" {
		return SessionSnapshot{}, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if childName == "" {
		childName = script.DefaultChildName
	}

	sessionID := uuid.NewString()
	ctrl := NewCallController(ControllerDeps{
		SessionID: sessionID,
		UserID:    userID,
		ChildName: childName,
		NewClient: m.deps.NewClient,
		Publisher: m.deps.Publisher,
		Sessions:  m.deps.Sessions,
		Archive:   m.deps.Archive,
		OnSummaryReady: func(callID string) {
			m.enqueueSummary(SummaryJob{
				CallID:    callID,
				SessionID: sessionID,
				UserID:    userID,
				ChildName: childName,
			})
		},
		Logger: m.deps.Logger,
		Config: m.deps.Config,
	})

	m.mu.Lock()
	m.owners[sessionID] = userID
	m.ctrls[sessionID] = ctrl
	m.mu.Unlock()

	if m.deps.Sessions != nil {
		err := m.deps.Sessions.Create(ctx, &models.ScreeningSession{
			SessionID: sessionID,
			UserID:    userID,
			ChildName: childName,
			Language:  "multi",
			Status:    models.CallInactive,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			m.log.WithError(err).WithField("session_id", sessionID).Warn("session persist failed")
		}
	}

	return ctrl.Snapshot(), nil
}

func (m *sessionManager) controller(userID, sessionID string) (*CallController, error) {
	const op = "SessionManager.controller"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	m.mu.RLock()
	owner, ok := m.owners[sessionID]
	ctrl := m.ctrls[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", utils.ErrNotFound)
	}
	if owner != userID {
		return nil, utils.E(utils.CodeForbidden, op, "session belongs to another user", nil)
	}
	return ctrl, nil
}

func (m *sessionManager) Snapshot(ctx context.Context, userID, sessionID string) (SessionSnapshot, error) {
	ctrl, err := m.controller(userID, sessionID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

func (m *sessionManager) Start(ctx context.Context, userID, sessionID string) error {
	ctrl, err := m.controller(userID, sessionID)
	if err != nil {
		return err
	}
	return ctrl.Start(ctx)
}

func (m *sessionManager) Stop(ctx context.Context, userID, sessionID string) error {
	ctrl, err := m.controller(userID, sessionID)
	if err != nil {
		return err
	}
	return ctrl.Stop(ctx)
}

func (m *sessionManager) SetMuted(ctx context.Context, userID, sessionID string, muted bool) error {
	ctrl, err := m.controller(userID, sessionID)
	if err != nil {
		return err
	}
	return ctrl.SetMuted(ctx, muted)
}

func (m *sessionManager) SendText(ctx context.Context, userID, sessionID, text string) error {
	ctrl, err := m.controller(userID, sessionID)
	if err != nil {
		return err
	}
	return ctrl.SendText(ctx, text)
}

func (m *sessionManager) Delete(ctx context.Context, userID, sessionID string) error {
	ctrl, err := m.controller(userID, sessionID)
	if err != nil {
		// deleting an already-gone session is fine
		if utils.IsCode(err, utils.CodeNotFound) || errors.Is(err, utils.ErrNotFound) {
			return nil
		}
		return err
	}

	m.mu.Lock()
	delete(m.owners, sessionID)
	delete(m.ctrls, sessionID)
	m.mu.Unlock()

	return ctrl.Close()
}

func (m *sessionManager) History(ctx context.Context, userID string, limit int64) ([]models.ScreeningSession, error) {
	const op = "SessionManager.History"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if m.deps.Sessions == nil {
		return nil, nil
	}

	out, err := m.deps.Sessions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	return out, nil
}

func (m *sessionManager) CloseAll() {
	m.mu.Lock()
	ctrls := make([]*CallController, 0, len(m.ctrls))
	for id, c := range m.ctrls {
		ctrls = append(ctrls, c)
		delete(m.ctrls, id)
		delete(m.owners, id)
	}
	m.mu.Unlock()

	for _, c := range ctrls {
		_ = c.Close()
	}
}

func (m *sessionManager) enqueueSummary(job SummaryJob) {
	if m.deps.Summaries == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.deps.Summaries.Enqueue(ctx, job); err != nil {
		m.log.WithError(err).WithField("call_id", job.CallID).Warn("summary enqueue failed")
	}
}
