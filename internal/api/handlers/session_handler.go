package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nbtcare/voicescreen/internal/services"
	"github.com/nbtcare/voicescreen/internal/utils"
)

type SessionHandler struct {
	sessions services.SessionManager
	profiles services.ProfileService // optional, personalizes the script
}

func NewSessionHandler(sessions services.SessionManager, profiles services.ProfileService) *SessionHandler {
	return &SessionHandler{sessions: sessions, profiles: profiles}
}

type CreateSessionRequest struct {
	ChildName string `json:"child_name"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SessionHandler.Create", "invalid request body", err))
		return
	}

	childName := req.ChildName
	if childName == "" && h.profiles != nil {
		if p, err := h.profiles.GetMe(c.Request.Context(), userID); err == nil {
			childName = p.ChildName
		}
	}

	snap, err := h.sessions.Create(c.Request.Context(), userID, childName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SessionHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	snap, err := h.sessions.Snapshot(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SessionHandler) Start(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	if err := h.sessions.Start(c.Request.Context(), userID, sessionID); err != nil {
		writeError(c, err)
		return
	}

	snap, err := h.sessions.Snapshot(c.Request.Context(), userID, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SessionHandler) Stop(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	if err := h.sessions.Stop(c.Request.Context(), userID, sessionID); err != nil {
		writeError(c, err)
		return
	}

	snap, err := h.sessions.Snapshot(c.Request.Context(), userID, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type MuteRequest struct {
	Muted bool `json:"muted"`
}

func (h *SessionHandler) Mute(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SessionHandler.Mute", "invalid request body", err))
		return
	}

	sessionID := c.Param("session_id")
	if err := h.sessions.SetMuted(c.Request.Context(), userID, sessionID, req.Muted); err != nil {
		writeError(c, err)
		return
	}

	snap, err := h.sessions.Snapshot(c.Request.Context(), userID, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type SendTextRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *SessionHandler) SendText(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SessionHandler.SendText", "invalid request body", err))
		return
	}

	if err := h.sessions.SendText(c.Request.Context(), userID, c.Param("session_id"), req.Text); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.sessions.Delete(c.Request.Context(), userID, c.Param("session_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.sessions.History(c.Request.Context(), userID, 50)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": rows})
}
