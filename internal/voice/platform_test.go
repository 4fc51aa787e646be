package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseEvent(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Event
		ok   bool
	}{
		{
			name: "call start",
			raw:  `{"type":"call-start"}`,
			want: Event{Kind: EventCallStart},
			ok:   true,
		},
		{
			name: "final assistant transcript",
			raw:  `{"type":"transcript","role":"assistant","transcript":"Hello","transcriptType":"final"}`,
			want: Event{Kind: EventTranscript, Role: RoleAssistant, Transcript: "Hello", Final: true},
			ok:   true,
		},
		{
			name: "partial transcript is not final",
			raw:  `{"type":"transcript","role":"user","transcript":"ye","transcriptType":"partial"}`,
			want: Event{Kind: EventTranscript, Role: RoleUser, Transcript: "ye"},
			ok:   true,
		},
		{
			name: "speech start defaults to assistant",
			raw:  `{"type":"speech-start"}`,
			want: Event{Kind: EventSpeechStart, Role: RoleAssistant},
			ok:   true,
		},
		{
			name: "unknown frame skipped",
			raw:  `{"type":"metrics"}`,
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseEvent([]byte(tc.raw))
			if ok != tc.ok {
				t.Fatalf("ok: got %v want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if got.Kind != tc.want.Kind || got.Role != tc.want.Role ||
				got.Transcript != tc.want.Transcript || got.Final != tc.want.Final {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestParseEventError(t *testing.T) {
	ev, ok := parseEvent([]byte(`{"type":"error","error":{"message":"assistant crashed"}}`))
	if !ok {
		t.Fatal("error frame skipped")
	}
	if ev.Kind != EventError || ev.Err == nil || ev.Err.Message != "assistant crashed" {
		t.Fatalf("unexpected event %+v err %+v", ev, ev.Err)
	}
}

func TestAPIGetCall(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call/call-42" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "call-42",
			"messages": []map[string]any{
				{"role": "bot", "message": "Hello", "secondsFromStart": 1.2},
			},
		})
	}))
	defer ts.Close()

	api := NewAPI(ts.URL, "test-key")
	data, err := api.GetCall(context.Background(), "call-42")
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if data.ID != "call-42" || len(data.Messages) != 1 {
		t.Fatalf("unexpected data %+v", data)
	}
	if data.Messages[0].Role != "bot" || data.Messages[0].SecondsFromStart != 1.2 {
		t.Fatalf("unexpected message %+v", data.Messages[0])
	}
}

func TestAPIGetCallNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	api := NewAPI(ts.URL, "test-key")
	if _, err := api.GetCall(context.Background(), "missing"); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestAPIGetCallEmptyMessagesIsNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "call-7", "messages": []any{}})
	}))
	defer ts.Close()

	api := NewAPI(ts.URL, "test-key")
	data, err := api.GetCall(context.Background(), "call-7")
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if len(data.Messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(data.Messages))
	}
}
