package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/bandscore/internal/model"
)

const sampleDoc = `{
  "name": "Practice Test 1",
  "component": "Listening",
  "sections": [
    {
      "title": "Recording 1",
      "difficulty": "Easy",
      "audioUrl": "https://cdn.example.com/rec1.mp3",
      "groups": [
        {
          "type": "short_answer",
          "instruction": "Answer the questions below.",
          "questions": [
            {"number": 1, "text": "Pet?", "answer": "cat"},
            {"number": 2, "answers": ["dog", "puppy"]}
          ]
        },
        {
          "type": "Note Completion",
          "questions": [
            {"gapId": "gap3", "correctAnswer": "bird"},
            {"cellId": "r2c4", "correctMatch": "B"},
            {"stepId": "step5", "answer": "boil"},
            {"labelId": "label-6", "answer": "gate"},
            {"text": "no identity", "answer": "x"}
          ]
        },
        {
          "type": "drag-and-drop",
          "questions": []
        }
      ]
    }
  ]
}`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "Practice Test 1", doc.Name)
	assert.Equal(t, "listening", doc.Component)
	require.Len(t, doc.Sections, 1)

	sec := doc.Sections[0]
	assert.Equal(t, model.DifficultyEasy, sec.Difficulty)
	assert.Equal(t, "https://cdn.example.com/rec1.mp3", sec.AudioURL)
	require.Len(t, sec.Groups, 3)
	assert.Equal(t, model.TypeShortAnswer, sec.Groups[0].Type)
	assert.Equal(t, model.TypeNoteCompletion, sec.Groups[1].Type)
	assert.Equal(t, model.TypeUnsupported, sec.Groups[2].Type)
	assert.Equal(t, "drag-and-drop", sec.Groups[2].RawType)

	q1 := sec.Groups[0].Questions[0]
	assert.Equal(t, model.NumberQuestion{Number: 1, Text: "Pet?", AnswerKey: model.AnswerKey{Answer: "cat"}}, q1)

	kinds := []model.QuestionKind{}
	values := []int{}
	for _, q := range sec.Groups[1].Questions {
		kinds = append(kinds, q.Kind())
		values = append(values, q.Identity().Value)
	}
	assert.Equal(t, []model.QuestionKind{
		model.KindGap, model.KindCell, model.KindStep, model.KindLabel, model.KindUnidentified,
	}, kinds)
	assert.Equal(t, []int{3, 4, 5, 6, 0}, values)
	assert.False(t, sec.Groups[1].Questions[4].Identity().OK)
}

func TestParseIdentityPrecedence(t *testing.T) {
	doc, err := Parse([]byte(`{"sections":[{"groups":[{"questions":[
		{"gapId": "gap9", "number": 4},
		{"cellId": "c2", "labelId": "l7"}
	]}]}]}`))
	require.NoError(t, err)
	qs := doc.Sections[0].Groups[0].Questions
	assert.Equal(t, model.KindNumber, qs[0].Kind())
	assert.Equal(t, model.KindCell, qs[1].Kind())
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"sections": [`},
		{"missing sections", `{"name": "x"}`},
		{"sections not array", `{"sections": {}}`},
		{"number not integer", `{"sections":[{"groups":[{"questions":[{"number": 1.5}]}]}]}`},
		{"answers not strings", `{"sections":[{"groups":[{"questions":[{"answers": [1, 2]}]}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidContent)
		})
	}
}

func TestDecodeAndLoadFile(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	assert.Len(t, doc.Sections, 1)

	path := filepath.Join(t.TempDir(), "test.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))
	doc, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Practice Test 1", doc.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
