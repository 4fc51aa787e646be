package services

import (
	"time"

	"github.com/nbtcare/voicescreen/internal/models"
)

// transcriptLog turns the platform's event stream into a clean, displayable
// transcript. Entry ids are monotonic and owned by the log, so every session
// numbers its entries independently.
//
// Reconciliation rules:
//   - "assistant began speaking" appends a placeholder entry; at most one
//     placeholder sits at the tail at a time.
//   - a finalized assistant fragment removes ALL outstanding assistant
//     placeholders and appends one real entry.
//   - a finalized parent fragment overwrites an immediately preceding
//     in-progress parent entry in place, otherwise appends.
type transcriptLog struct {
	nextID  int64
	entries []models.TranscriptEntry
}

func newTranscriptLog() *transcriptLog {
	return &transcriptLog{}
}

func (l *transcriptLog) push(speaker models.Speaker, text string, interim bool) models.TranscriptEntry {
	l.nextID++
	e := models.TranscriptEntry{
		ID:        l.nextID,
		Speaker:   speaker,
		Text:      text,
		Interim:   interim,
		Timestamp: time.Now().UTC(),
	}
	l.entries = append(l.entries, e)
	return e
}

func (l *transcriptLog) AppendAssistant(text string) models.TranscriptEntry {
	return l.push(models.SpeakerAssistant, text, false)
}

func (l *transcriptLog) AppendSystem(text string) models.TranscriptEntry {
	return l.push(models.SpeakerSystem, text, false)
}

func (l *transcriptLog) AppendError(text string) models.TranscriptEntry {
	return l.push(models.SpeakerError, text, false)
}

// AppendParentText records a typed parent message. Typed messages are final
// from the start and never overwritten by later voice fragments.
func (l *transcriptLog) AppendParentText(text string) models.TranscriptEntry {
	return l.push(models.SpeakerParent, text, false)
}

// AssistantSpeaking appends the speaking placeholder unless one is already
// at the tail.
func (l *transcriptLog) AssistantSpeaking() (models.TranscriptEntry, bool) {
	if n := len(l.entries); n > 0 {
		last := l.entries[n-1]
		if last.Speaker == models.SpeakerAssistant && last.Interim {
			return last, false
		}
	}
	return l.push(models.SpeakerAssistant, models.SpeakingPlaceholder, true), true
}

// FinalAssistant replaces every outstanding assistant placeholder with one
// real entry holding the final content. Multiple placeholder events may have
// fired before the final text arrived.
func (l *transcriptLog) FinalAssistant(text string) models.TranscriptEntry {
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.Speaker == models.SpeakerAssistant && e.Interim {
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return l.push(models.SpeakerAssistant, text, false)
}

// FinalParent models progressive correction of a single utterance: if the
// immediately preceding entry is an in-progress parent fragment it is
// overwritten in place, otherwise a new (still in-progress) entry is
// appended.
func (l *transcriptLog) FinalParent(text string) models.TranscriptEntry {
	if n := len(l.entries); n > 0 {
		last := &l.entries[n-1]
		if last.Speaker == models.SpeakerParent && last.Interim {
			last.Text = text
			last.Timestamp = time.Now().UTC()
			return *last
		}
	}
	return l.push(models.SpeakerParent, text, true)
}

// Entries returns a copy of the log in insertion order.
func (l *transcriptLog) Entries() []models.TranscriptEntry {
	out := make([]models.TranscriptEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
