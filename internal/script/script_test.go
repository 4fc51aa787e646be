package script

import (
	"strings"
	"testing"
)

func TestContainsCompletionPhrase(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Thank you for answering all the questions. This really helps.", true},
		{"THANK YOU FOR ANSWERING ALL THE QUESTIONS", true},
		{"thanks for your answer, next question", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ContainsCompletionPhrase(tc.text); got != tc.want {
			t.Fatalf("ContainsCompletionPhrase(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestSystemPromptPersonalization(t *testing.T) {
	p := SystemPrompt("Aarav")

	if !strings.Contains(p, "Aarav") {
		t.Fatal("child name missing from prompt")
	}
	if strings.Contains(p, "%s") {
		t.Fatal("unexpanded placeholder in prompt")
	}
	if !strings.Contains(p, "20.") {
		t.Fatal("question numbering incomplete")
	}
	if !ContainsCompletionPhrase(p) {
		t.Fatal("prompt must instruct the completion phrase")
	}
}

func TestSystemPromptDefaultsChildName(t *testing.T) {
	p := SystemPrompt("   ")
	if !strings.Contains(p, DefaultChildName) {
		t.Fatal("expected default child name")
	}
}

func TestQuestionCount(t *testing.T) {
	if len(Questions) != 20 {
		t.Fatalf("expected 20 questions, got %d", len(Questions))
	}
}

func TestAssistantConfig(t *testing.T) {
	cfg := Assistant("Aarav")
	if cfg.Name != AssistantName {
		t.Fatalf("unexpected assistant name %q", cfg.Name)
	}
	if cfg.FirstMessage != FirstMessage {
		t.Fatal("unexpected first message")
	}
	if len(cfg.Model.Messages) == 0 || !strings.Contains(cfg.Model.Messages[0].Content, "Aarav") {
		t.Fatal("system prompt not personalized")
	}
}
