package grading

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/bandscore/internal/model"
	"github.com/pavelanni/bandscore/internal/numbering"
)

func TestAggregateEmpty(t *testing.T) {
	st := Aggregate(nil, nil, nil, NewMatcher(""))
	assert.Equal(t, Stats{}, st)
	assert.Equal(t, 0, st.Percentage)
}

func TestAggregateCountsAddUp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	var qs []model.Question
	for i := 0; i < 40; i++ {
		qs = append(qs, model.GapQuestion{
			GapID:     fmt.Sprintf("gap%d", i+1),
			AnswerKey: model.AnswerKey{Answer: "yes"},
		})
	}
	res := numbering.Number([]model.Section{
		{Groups: []model.QuestionGroup{{Type: model.TypeShortAnswer, Questions: qs[:25]}}},
		{Groups: []model.QuestionGroup{{Type: model.TypeShortAnswer, Questions: qs[25:]}}},
	})

	for round := 0; round < 20; round++ {
		sub := model.Submission{}
		ov := NewOverrides(nil)
		for n := 1; n <= 40; n++ {
			switch rng.Intn(3) {
			case 0:
				sub[n] = model.TextAnswer("YES ")
			case 1:
				sub[n] = model.TextAnswer("no")
			}
			switch rng.Intn(4) {
			case 0:
				require.NoError(t, ov.Set(n, model.GradeCorrect))
			case 1:
				require.NoError(t, ov.Set(n, model.GradeIncorrect))
			}
		}

		st := Aggregate(res.Questions(), sub, ov, NewMatcher(""))
		assert.Equal(t, st.Total, st.Correct+st.Incorrect+st.Unanswered)
		assert.Equal(t, st.Answered, st.Correct+st.Incorrect)
		assert.Equal(t, 40, st.Total)
		assert.Equal(t, ov.ManuallyGraded(), st.ManuallyGraded)

		bySection := AggregateBySection(res.Questions(), len(res.Sections), sub, ov, NewMatcher(""))
		require.Len(t, bySection, 2)
		assert.Equal(t, 25, bySection[0].Total)
		assert.Equal(t, 15, bySection[1].Total)
		assert.Equal(t, st.Correct, bySection[0].Correct+bySection[1].Correct)
	}
}

func TestAggregateIgnoresOverridesOutsideSet(t *testing.T) {
	res := scenario()
	ov := NewOverrides(map[int]model.ManualGrade{40: model.GradeCorrect})
	st := Aggregate(res.Questions(), scenarioAnswers(), ov, NewMatcher(""))
	assert.Equal(t, 0, st.ManuallyGraded)
	assert.Equal(t, 1, st.Correct)
}

func TestAggregateBySectionEmptySections(t *testing.T) {
	out := AggregateBySection(nil, 2, nil, nil, NewMatcher(""))
	assert.Equal(t, []Stats{{}, {}}, out)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{40, 40, 100},
		{1, 8, 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.correct, tt.total), "%d/%d", tt.correct, tt.total)
	}
}
