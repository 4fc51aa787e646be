package segmenter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nbtcare/voicescreen/internal/models"
)

func TestSegment(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/conversation" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload struct {
			Messages []models.CallMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if len(payload.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(payload.Messages))
		}
		json.NewEncoder(w).Encode(models.SummaryRecord{
			ChatSegregation: models.ChatSegregation{
				Bot:  []string{"Does your child enjoy being swung?"},
				User: []string{"yes"},
			},
			QuestionsMapping: []models.QuestionMapping{
				{
					QuestionFromScript:  "Does your child like movement activities?",
					ActualQuestionAsked: "Does your child enjoy being swung?",
					UserResponse:        "yes",
					Language:            "English",
				},
			},
		})
	}))
	defer ts.Close()

	p := NewHTTPProvider(ts.URL, nil)
	record, err := p.Segment(context.Background(), []models.CallMessage{
		{Role: "bot", Message: "Does your child enjoy being swung?"},
		{Role: "user", Message: "yes"},
	})
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if len(record.QuestionsMapping) != 1 || record.QuestionsMapping[0].Language != "English" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestSegmentNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	p := NewHTTPProvider(ts.URL, nil)
	if _, err := p.Segment(context.Background(), nil); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestRephraseFieldFallback(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"response key", `{"response":"a cleaner answer"}`, "a cleaner answer"},
		{"text key", `{"text":"from text"}`, "from text"},
		{"rephrased key", `{"rephrased":"from rephrased"}`, "from rephrased"},
		{"result key", `{"result":"from result"}`, "from result"},
		{"response wins over later keys", `{"response":"winner","text":"loser"}`, "winner"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/text" {
					t.Fatalf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			p := NewHTTPProvider(ts.URL, nil)
			out, err := p.Rephrase(context.Background(), "raw answer")
			if err != nil {
				t.Fatalf("rephrase: %v", err)
			}
			if out != tc.want {
				t.Fatalf("got %q want %q", out, tc.want)
			}
		})
	}
}

func TestRephraseEmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	p := NewHTTPProvider(ts.URL, nil)
	if _, err := p.Rephrase(context.Background(), "raw"); err == nil {
		t.Fatal("expected error when no known field is present")
	}
}
