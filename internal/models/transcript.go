package models

import "time"

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerAssistant Speaker = "assistant"
	SpeakerParent    Speaker = "parent"
	SpeakerSystem    Speaker = "system"
	SpeakerError     Speaker = "error"
)

// SpeakingPlaceholder is the sentinel text shown while the assistant is
// speaking and the final transcript has not arrived yet.
const SpeakingPlaceholder = "Assistant is speaking..."

// TranscriptEntry is one displayable line of the conversation. Interim marks
// entries that may still be replaced: assistant placeholders and parent
// fragments that a later final transcript overwrites in place.
type TranscriptEntry struct {
	ID        int64     `bson:"entry_id" json:"id"`
	Speaker   Speaker   `bson:"speaker" json:"speaker"`
	Text      string    `bson:"text" json:"text"`
	Interim   bool      `bson:"interim" json:"interim"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ArchivedEntry is a finalized transcript entry persisted to MongoDB.
type ArchivedEntry struct {
	SessionID string    `bson:"session_id" json:"session_id"`
	EntryID   int64     `bson:"entry_id" json:"entry_id"`
	Speaker   Speaker   `bson:"speaker" json:"speaker"`
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
