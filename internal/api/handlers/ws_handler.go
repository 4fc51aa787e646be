package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/nbtcare/voicescreen/internal/services"
	"github.com/nbtcare/voicescreen/internal/utils"
)

// WSHandler streams a session's transcript and status updates to the browser
// and accepts the small set of in-call controls back over the same socket.
type WSHandler struct {
	sessions services.SessionManager
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions services.SessionManager, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		redis:    rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type  string `json:"type"` // start|stop|mute|text
	Muted bool   `json:"muted"`
	Text  string `json:"text"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) SessionWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "missing session_id", nil))
		return
	}

	// ownership check before the upgrade
	snap, err := h.sessions.Snapshot(c.Request.Context(), userID, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// current state first so a reconnecting client catches up
	if b, merr := json.Marshal(gin.H{"type": "snapshot", "session": snap}); merr == nil {
		_ = wc.writeText(b)
	}

	pubsub := h.redis.Subscribe(ctx,
		services.TranscriptChannel(sessionID),
		services.StatusChannel(sessionID),
	)
	defer pubsub.Close()

	// reader: WS -> session controls
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
				continue
			}

			switch msg.Type {
			case "start":
				if err := h.sessions.Start(ctx, userID, sessionID); err != nil {
					wc.writeErr(err)
				}
			case "stop":
				if err := h.sessions.Stop(ctx, userID, sessionID); err != nil {
					wc.writeErr(err)
				}
			case "mute":
				if err := h.sessions.SetMuted(ctx, userID, sessionID, msg.Muted); err != nil {
					wc.writeErr(err)
				}
			case "text":
				if err := h.sessions.SendText(ctx, userID, sessionID, msg.Text); err != nil {
					wc.writeErr(err)
				}
			default:
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
			}
		}
	}()

	// writer: Redis Pub/Sub -> WS
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		default:
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}

func (w *wsConn) writeErr(err error) {
	payload := map[string]any{"type": "error", "code": utils.CodeInternal, "message": "internal error"}
	var ae *utils.AppError
	if errors.As(err, &ae) {
		payload["code"] = ae.Code
		payload["message"] = ae.Message
	}
	b, merr := json.Marshal(payload)
	if merr != nil {
		return
	}
	_ = w.writeText(b)
}
