package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nbtcare/voicescreen/internal/models"
)

// PlatformClient is the production Client. Start creates a web call over
// REST, then dials the returned listen URL; events stream in over the
// websocket and control intents (add-message, mute, end) go out as POSTs to
// the call's control URL.
type PlatformClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	dialer  *websocket.Dialer
	log     *logrus.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	controlURL string
	closed     bool

	events chan Event
}

type PlatformConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     *logrus.Logger
}

func NewPlatformClient(cfg PlatformConfig) *PlatformClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &PlatformClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    cfg.HTTPClient,
		dialer:  cfg.Dialer,
		log:     cfg.Logger,
		events:  make(chan Event, 64),
	}
}

type startCallResponse struct {
	ID      string `json:"id"`
	Monitor struct {
		ListenURL  string `json:"listenUrl"`
		ControlURL string `json:"controlUrl"`
	} `json:"monitor"`
}

func (c *PlatformClient) Start(ctx context.Context, assistant AssistantConfig) (string, error) {
	body, err := json.Marshal(map[string]any{"assistant": assistant})
	if err != nil {
		return "", NormalizeErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call/web", bytes.NewReader(body))
	if err != nil {
		return "", NormalizeErr(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", NormalizeErr(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", NormalizeErrorPayload(raw)
	}

	var started startCallResponse
	if err := json.Unmarshal(raw, &started); err != nil {
		return "", NormalizeErr(err)
	}
	if started.ID == "" {
		return "", &PlatformError{Type: "start-method-error", Message: "platform returned no call id"}
	}

	conn, _, err := c.dialer.DialContext(ctx, started.Monitor.ListenURL, nil)
	if err != nil {
		return "", NormalizeErr(err)
	}

	c.mu.Lock()
	c.conn = conn
	c.controlURL = started.Monitor.ControlURL
	c.mu.Unlock()

	go c.readLoop(conn)
	return started.ID, nil
}

func (c *PlatformClient) readLoop(conn *websocket.Conn) {
	defer close(c.events)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		ev, ok := parseEvent(data)
		if !ok {
			continue
		}
		select {
		case c.events <- ev:
		default:
			c.log.WithField("kind", ev.Kind).Warn("voice event dropped, consumer too slow")
		}
	}
}

// parseEvent maps a raw platform frame onto an Event. Unknown frame types
// are skipped.
func parseEvent(data []byte) (Event, bool) {
	var frame struct {
		Type           string          `json:"type"`
		Role           string          `json:"role"`
		Transcript     string          `json:"transcript"`
		TranscriptType string          `json:"transcriptType"`
		Error          json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return Event{}, false
	}

	switch frame.Type {
	case "call-start":
		return Event{Kind: EventCallStart}, true
	case "call-end":
		return Event{Kind: EventCallEnd}, true
	case "speech-start":
		role := frame.Role
		if role == "" {
			role = RoleAssistant
		}
		return Event{Kind: EventSpeechStart, Role: role}, true
	case "speech-end":
		return Event{Kind: EventSpeechEnd, Role: frame.Role}, true
	case "transcript":
		return Event{
			Kind:       EventTranscript,
			Role:       frame.Role,
			Transcript: frame.Transcript,
			Final:      frame.TranscriptType == "final",
		}, true
	case "error":
		raw := frame.Error
		if len(raw) == 0 {
			raw = data
		}
		return Event{Kind: EventError, Err: NormalizeErrorPayload(raw)}, true
	default:
		return Event{}, false
	}
}

func (c *PlatformClient) control(ctx context.Context, payload any) error {
	c.mu.Lock()
	url := c.controlURL
	c.mu.Unlock()
	if url == "" {
		return &PlatformError{Message: "no active call"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return NormalizeErr(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return NormalizeErr(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return NormalizeErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return NormalizeErrorPayload(raw)
	}
	return nil
}

func (c *PlatformClient) Send(ctx context.Context, text string) error {
	return c.control(ctx, map[string]any{
		"type": "add-message",
		"message": map[string]string{
			"role":    "user",
			"content": text,
		},
	})
}

func (c *PlatformClient) SetMuted(ctx context.Context, muted bool) error {
	return c.control(ctx, map[string]any{"type": "set-muted", "muted": muted})
}

// Stop ends the call. No-op when nothing is active.
func (c *PlatformClient) Stop(ctx context.Context) error {
	c.mu.Lock()
	hasCall := c.controlURL != ""
	c.mu.Unlock()
	if !hasCall {
		return nil
	}
	err := c.control(ctx, map[string]any{"type": "end-call"})
	_ = c.Close()
	return err
}

func (c *PlatformClient) Events() <-chan Event { return c.events }

func (c *PlatformClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.controlURL = ""
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// API is the platform's REST surface used outside of a live call.
type API struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewAPI(baseURL, apiKey string) *API {
	return &API{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetCall fetches the raw call payload from GET /call/{id}. Empty Messages
// means the transcript has not been persisted yet; callers treat that as
// retryable, not as an error from this method.
func (a *API) GetCall(ctx context.Context, callID string) (*models.CallData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/call/"+callID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch call data: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var data models.CallData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
