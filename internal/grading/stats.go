package grading

import (
	"math"

	"github.com/pavelanni/bandscore/internal/model"
)

// Stats aggregates final verdicts over a set of questions.
type Stats struct {
	Total          int `json:"total"`
	Correct        int `json:"correct"`
	Incorrect      int `json:"incorrect"`
	Unanswered     int `json:"unanswered"`
	Answered       int `json:"answered"`
	ManuallyGraded int `json:"manually_graded"`
	Percentage     int `json:"percentage"`
}

// Aggregate computes Stats for questions from scratch. ov may be nil.
func Aggregate(questions []model.NumberedQuestion, sub model.Submission, ov *Overrides, m Matcher) Stats {
	var st Stats
	for _, q := range questions {
		st.Total++
		if ov.Get(q.Number) != model.GradeAuto {
			st.ManuallyGraded++
		}
		automatic := m.Match(q.Question, sub[q.Number])
		switch ov.Resolve(q.Number, automatic) {
		case model.VerdictCorrect:
			st.Correct++
		case model.VerdictIncorrect:
			st.Incorrect++
		default:
			st.Unanswered++
		}
	}
	st.Answered = st.Correct + st.Incorrect
	st.Percentage = Percentage(st.Correct, st.Total)
	return st
}

// AggregateBySection returns one Stats per section, indexed by section index.
// sections is the number of sections in the test so that sections without
// questions still get a zeroed entry.
func AggregateBySection(questions []model.NumberedQuestion, sections int, sub model.Submission, ov *Overrides, m Matcher) []Stats {
	buckets := make([][]model.NumberedQuestion, sections)
	for _, q := range questions {
		if q.SectionIndex < 0 || q.SectionIndex >= sections {
			continue
		}
		buckets[q.SectionIndex] = append(buckets[q.SectionIndex], q)
	}
	out := make([]Stats, sections)
	for i, qs := range buckets {
		out[i] = Aggregate(qs, sub, ov, m)
	}
	return out
}

// Percentage returns correct/total as a rounded whole percentage, 0 when
// total is 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
