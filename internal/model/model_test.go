package model

import (
	"encoding/json"
	"testing"
)

func TestCompositeIdentity(t *testing.T) {
	tests := []struct {
		raw    string
		wantOK bool
		want   int
	}{
		{"gap7", true, 7},
		{"cell-12", true, 12},
		{"q3a", true, 3},
		{"r1c2", true, 2},
		{"gap", false, 0},
		{"", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id := GapQuestion{GapID: tt.raw}.Identity()
			if id.OK != tt.wantOK || id.Value != tt.want {
				t.Errorf("Identity(%q) = %+v, want ok=%v value=%d", tt.raw, id, tt.wantOK, tt.want)
			}
			if id.Kind != KindGap {
				t.Errorf("Identity(%q).Kind = %q, want gap", tt.raw, id.Kind)
			}
		})
	}
}

func TestParseQuestionType(t *testing.T) {
	tests := []struct {
		tag  string
		want QuestionType
	}{
		{"multiple-choice", TypeMultipleChoice},
		{"Multiple Choice", TypeMultipleChoice},
		{"TABLE_COMPLETION", TypeTableCompletion},
		{"drag-and-drop", TypeUnsupported},
		{"", TypeUnsupported},
	}
	for _, tt := range tests {
		if got := ParseQuestionType(tt.tag); got != tt.want {
			t.Errorf("ParseQuestionType(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
	if TypeUnsupported.Supported() {
		t.Error("unsupported type should not be supported")
	}
}

func TestAnswerJSON(t *testing.T) {
	var sub Submission
	if err := json.Unmarshal([]byte(`{"1": "cat", "2": ["a", "b"], "3": null}`), &sub); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := sub[1].Parts; len(got) != 1 || got[0] != "cat" {
		t.Errorf("answer 1 = %v", got)
	}
	if got := sub[2].Parts; len(got) != 2 {
		t.Errorf("answer 2 = %v", got)
	}
	if got := sub[3].Parts; got != nil {
		t.Errorf("answer 3 = %v, want nil", got)
	}

	data, err := json.Marshal(sub[2])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `["a","b"]` {
		t.Errorf("Marshal multi = %s", data)
	}
	data, _ = json.Marshal(sub[1])
	if string(data) != `"cat"` {
		t.Errorf("Marshal single = %s", data)
	}

	if err := json.Unmarshal([]byte(`{"1": 5}`), &sub); err == nil {
		t.Error("expected error for numeric answer")
	}
}

func TestBandJSON(t *testing.T) {
	data, _ := json.Marshal(NoBand)
	if string(data) != "null" {
		t.Errorf("NoBand = %s, want null", data)
	}
	data, _ = json.Marshal(BandOf(7.5))
	if string(data) != "7.5" {
		t.Errorf("BandOf(7.5) = %s", data)
	}
	if BandOf(9).String() != "9.0" || NoBand.String() != "" {
		t.Errorf("unexpected String() formatting")
	}
}

func TestEmptyAnswerJSON(t *testing.T) {
	data, err := json.Marshal(Answer{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `[]` {
		t.Errorf("Marshal empty = %s, want []", data)
	}
	var a Answer
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(a.Parts) != 0 {
		t.Errorf("round trip = %q, want no parts", a.Parts)
	}
}

func TestNumberedQuestionPromotesVariant(t *testing.T) {
	nq := NumberedQuestion{
		Question: CellQuestion{CellID: "r2c5", Text: "Arrival time"},
		Number:   9,
	}
	if nq.Prompt() != "Arrival time" {
		t.Errorf("Prompt() = %q", nq.Prompt())
	}
	if id := nq.Identity(); !id.OK || id.Value != 5 || id.Kind != KindCell {
		t.Errorf("Identity() = %+v", id)
	}
	if nq.Kind() != KindCell {
		t.Errorf("Kind() = %q", nq.Kind())
	}
}
