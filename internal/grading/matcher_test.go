package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pavelanni/bandscore/internal/model"
)

func TestMatch(t *testing.T) {
	paris := model.GapQuestion{GapID: "gap1", AnswerKey: model.AnswerKey{Answer: "Paris"}}
	multi := model.NumberQuestion{Number: 2, AnswerKey: model.AnswerKey{Answers: []string{"dog", "puppy"}}}
	noKey := model.NumberQuestion{Number: 3}

	tests := []struct {
		name string
		q    model.Question
		a    model.Answer
		want model.Verdict
	}{
		{"exact", paris, model.TextAnswer("Paris"), model.VerdictCorrect},
		{"whitespace and case", paris, model.TextAnswer(" Paris "), model.VerdictCorrect},
		{"lowercase", paris, model.TextAnswer("paris"), model.VerdictCorrect},
		{"wrong", paris, model.TextAnswer("London"), model.VerdictIncorrect},
		{"substring is not enough", paris, model.TextAnswer("Par"), model.VerdictIncorrect},
		{"superstring is not enough", paris, model.TextAnswer("Paris, France"), model.VerdictIncorrect},
		{"empty", paris, model.TextAnswer(""), model.VerdictUnanswered},
		{"blank", paris, model.TextAnswer("   "), model.VerdictUnanswered},
		{"missing", paris, model.Answer{}, model.VerdictUnanswered},
		{"list second alternative", multi, model.TextAnswer("PUPPY"), model.VerdictCorrect},
		{"list miss", multi, model.TextAnswer("fish"), model.VerdictIncorrect},
		{"no accepted answers", noKey, model.TextAnswer("anything"), model.VerdictIncorrect},
		{"no accepted answers unanswered", noKey, model.TextAnswer(""), model.VerdictUnanswered},
		{"nil question", nil, model.TextAnswer("x"), model.VerdictIncorrect},
		{"multi-part all match", multi, model.Answer{Parts: []string{"dog", " Puppy"}}, model.VerdictCorrect},
		{"multi-part one wrong", multi, model.Answer{Parts: []string{"dog", "cat"}}, model.VerdictIncorrect},
		{"multi-part blanks dropped", multi, model.Answer{Parts: []string{"", "dog"}}, model.VerdictCorrect},
		{"multi-part all blank", multi, model.Answer{Parts: []string{"", " "}}, model.VerdictUnanswered},
	}

	m := NewMatcher(model.PolicyCollectAll)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.q, tt.a))
		})
	}
}

func TestAcceptedAnswerPolicy(t *testing.T) {
	q := model.StepQuestion{StepID: "step4", AnswerKey: model.AnswerKey{
		CorrectAnswer: "filter",
		CorrectMatch:  "sieve",
	}}

	all := NewMatcher(model.PolicyCollectAll)
	assert.Equal(t, []string{"filter", "sieve"}, all.Accepted(q))
	assert.Equal(t, model.VerdictCorrect, all.Match(q, model.TextAnswer("sieve")))

	first := NewMatcher(model.PolicyFirstNonEmpty)
	assert.Equal(t, []string{"filter"}, first.Accepted(q))
	assert.Equal(t, model.VerdictIncorrect, first.Match(q, model.TextAnswer("sieve")))
}

func TestExplicitListWinsOverSingleFields(t *testing.T) {
	q := model.LabelQuestion{LabelID: "label2", AnswerKey: model.AnswerKey{
		Answers: []string{"bridge"},
		Answer:  "tunnel",
	}}
	m := NewMatcher("")
	assert.Equal(t, []string{"bridge"}, m.Accepted(q))
	assert.Equal(t, model.VerdictIncorrect, m.Match(q, model.TextAnswer("tunnel")))
}

func TestNewMatcherDefaultsPolicy(t *testing.T) {
	assert.Equal(t, model.PolicyCollectAll, NewMatcher("bogus").Policy)
	assert.Equal(t, model.PolicyFirstNonEmpty, NewMatcher(model.PolicyFirstNonEmpty).Policy)
}
