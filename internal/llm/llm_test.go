package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pavelanni/bandscore/internal/model"
)

func TestParseSuggestion(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Suggestion
		wantErr bool
	}{
		{
			name: "correct",
			raw:  `{"verdict": "correct", "confidence": 0.8, "reason": " minor misspelling "}`,
			want: Suggestion{Verdict: model.GradeCorrect, Confidence: 0.8, Reason: "minor misspelling"},
		},
		{
			name: "upper case verdict",
			raw:  `{"verdict": "INCORRECT", "confidence": 0.4}`,
			want: Suggestion{Verdict: model.GradeIncorrect, Confidence: 0.4},
		},
		{
			name: "confidence clamped",
			raw:  `{"verdict": "correct", "confidence": 3}`,
			want: Suggestion{Verdict: model.GradeCorrect, Confidence: 1},
		},
		{name: "auto rejected", raw: `{"verdict": "auto"}`, wantErr: true},
		{name: "not json", raw: `correct`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestion(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSuggestion: %v", err)
			}
			if *got != tt.want {
				t.Errorf("parseSuggestion() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		gotPrompt = req.Messages[0].Content
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "x", "object": "chat.completion", "model": "test",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"verdict\":\"correct\",\"confidence\":0.9,\"reason\":\"same day\"}"}}]
		}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/v1", "test-key", "test-model", "lenient")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	q := model.NumberedQuestion{
		Question:  model.GapQuestion{GapID: "gap4", Text: "Meeting day", AnswerKey: model.AnswerKey{Answer: "Tuesday"}},
		Number:    4,
		GroupType: model.TypeNoteCompletion,
	}
	s, err := c.Suggest(context.Background(), q, []string{"Tuesday"}, model.TextAnswer("Teusday"))
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if s.Number != 4 || s.Verdict != model.GradeCorrect || s.Reason != "same day" {
		t.Errorf("unexpected suggestion: %+v", s)
	}
	for _, want := range []string{"Meeting day", "Teusday", "Tuesday", "synonyms"} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestNewUnknownVariant(t *testing.T) {
	c, err := New("", "k", "m", "harsh")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.variant != "standard" {
		t.Errorf("variant = %q, want standard", c.variant)
	}
}
