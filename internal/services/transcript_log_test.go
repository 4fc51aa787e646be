package services

import (
	"testing"

	"github.com/nbtcare/voicescreen/internal/models"
)

func speakers(entries []models.TranscriptEntry) []models.Speaker {
	out := make([]models.Speaker, len(entries))
	for i, e := range entries {
		out[i] = e.Speaker
	}
	return out
}

func TestTranscriptLogIDsAreMonotonic(t *testing.T) {
	l := newTranscriptLog()
	a := l.AppendAssistant("hello")
	b := l.AppendSystem("started")
	c := l.AppendParentText("hi")

	if a.ID != 1 || b.ID != 2 || c.ID != 3 {
		t.Fatalf("unexpected ids: %d %d %d", a.ID, b.ID, c.ID)
	}
}

func TestAssistantSpeakingSinglePlaceholderAtTail(t *testing.T) {
	l := newTranscriptLog()
	l.AppendAssistant("welcome")

	first, added := l.AssistantSpeaking()
	if !added {
		t.Fatal("expected first placeholder to be appended")
	}
	if first.Text != models.SpeakingPlaceholder || !first.Interim {
		t.Fatalf("unexpected placeholder entry: %+v", first)
	}

	// second speech-start with the placeholder still at the tail is a no-op
	second, added := l.AssistantSpeaking()
	if added {
		t.Fatal("expected duplicate placeholder to be suppressed")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same entry back, got id %d want %d", second.ID, first.ID)
	}
	if n := len(l.Entries()); n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
}

func TestFinalAssistantRemovesAllPlaceholders(t *testing.T) {
	l := newTranscriptLog()
	l.AppendAssistant("welcome")
	l.AssistantSpeaking()
	l.FinalParent("yes")
	l.AssistantSpeaking() // parent entry broke the tail, so a second placeholder lands

	final := l.FinalAssistant("Does your child enjoy being swung?")
	if final.Interim {
		t.Fatal("final assistant entry must not be interim")
	}

	entries := l.Entries()
	for _, e := range entries {
		if e.Speaker == models.SpeakerAssistant && e.Interim {
			t.Fatalf("placeholder survived finalization: %+v", e)
		}
	}
	got := speakers(entries)
	want := []models.Speaker{models.SpeakerAssistant, models.SpeakerParent, models.SpeakerAssistant}
	if len(got) != len(want) {
		t.Fatalf("unexpected entries %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: got %s want %s", i, got[i], want[i])
		}
	}
	if entries[2].Text != "Does your child enjoy being swung?" {
		t.Fatalf("unexpected final text %q", entries[2].Text)
	}
}

func TestFinalParentOverwritesPrecedingFragment(t *testing.T) {
	l := newTranscriptLog()

	first := l.FinalParent("yes he")
	second := l.FinalParent("yes he does")

	if second.ID != first.ID {
		t.Fatalf("expected in-place overwrite, got new id %d", second.ID)
	}
	entries := l.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Text != "yes he does" {
		t.Fatalf("unexpected text %q", entries[0].Text)
	}
}

func TestFinalParentDoesNotOverwriteAcrossSpeakers(t *testing.T) {
	l := newTranscriptLog()
	l.FinalParent("yes")
	l.FinalAssistant("Thank you.")

	entry := l.FinalParent("no")
	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[2].ID != entry.ID || entries[2].Text != "no" {
		t.Fatalf("unexpected tail entry %+v", entries[2])
	}
}

func TestFinalParentDoesNotOverwriteTypedMessage(t *testing.T) {
	l := newTranscriptLog()
	typed := l.AppendParentText("typed answer")

	voiced := l.FinalParent("voice answer")
	if voiced.ID == typed.ID {
		t.Fatal("voice fragment overwrote a typed message")
	}
	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Text != "typed answer" {
		t.Fatalf("typed message mutated: %q", entries[0].Text)
	}
}
