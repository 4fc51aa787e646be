// Package voice wraps the external voice/LLM platform behind a narrow
// contract so the session controller can be driven by a fake in tests.
package voice

import "context"

type EventKind string

const (
	EventCallStart   EventKind = "call-start"
	EventCallEnd     EventKind = "call-end"
	EventSpeechStart EventKind = "speech-start"
	EventSpeechEnd   EventKind = "speech-end"
	EventTranscript  EventKind = "transcript"
	EventError       EventKind = "error"
)

const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// Event is one asynchronous notification from the platform, already
// normalized: transcript fragments carry Role/Transcript/Final, errors carry
// a normalized PlatformError.
type Event struct {
	Kind       EventKind
	Role       string
	Transcript string
	Final      bool
	Err        *PlatformError
}

// Client is the session-facing surface of the voice platform.
// Start begins the handshake and resolves to the platform-assigned call id.
// Stop is safe to call when no call is active. Events is closed when the
// underlying connection goes away.
type Client interface {
	Start(ctx context.Context, assistant AssistantConfig) (string, error)
	Stop(ctx context.Context) error
	Send(ctx context.Context, text string) error
	SetMuted(ctx context.Context, muted bool) error
	Events() <-chan Event
	Close() error
}

// AssistantConfig is the configuration payload sent on call start: persona,
// opening utterance, transcription/voice provider selection, and the LLM
// holding the screening script.
type AssistantConfig struct {
	Name         string            `json:"name"`
	FirstMessage string            `json:"firstMessage"`
	Transcriber  TranscriberConfig `json:"transcriber"`
	Voice        VoiceConfig       `json:"voice"`
	Model        ModelConfig       `json:"model"`
}

type TranscriberConfig struct {
	Model    string `json:"model"`
	Language string `json:"language"`
	Provider string `json:"provider"`
}

type VoiceConfig struct {
	Model                    string  `json:"model"`
	Pitch                    float64 `json:"pitch"`
	Speed                    float64 `json:"speed"`
	Region                   string  `json:"region"`
	Volume                   float64 `json:"volume"`
	VoiceID                  string  `json:"voiceId"`
	Provider                 string  `json:"provider"`
	LanguageBoost            string  `json:"languageBoost,omitempty"`
	TextNormalizationEnabled bool    `json:"textNormalizationEnabled"`
}

type ModelConfig struct {
	Model       string         `json:"model"`
	Messages    []ModelMessage `json:"messages"`
	Provider    string         `json:"provider"`
	Temperature float64        `json:"temperature"`
}

type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
