package numbering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/bandscore/internal/model"
)

func group(t model.QuestionType, qs ...model.Question) model.QuestionGroup {
	return model.QuestionGroup{Type: t, RawType: string(t), Instruction: "Write ONE WORD ONLY", Questions: qs}
}

func gaps(ids ...string) []model.Question {
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.GapQuestion{GapID: id})
	}
	return out
}

func sampleSections() []model.Section {
	return []model.Section{
		{
			Title:      "Part 1",
			Difficulty: model.DifficultyEasy,
			Groups: []model.QuestionGroup{
				group(model.TypeFormCompletion, gaps("gap1", "gap2", "gap3", "gap4", "gap5")...),
				group(model.TypeMultipleChoice,
					model.NumberQuestion{Number: 6},
					model.NumberQuestion{Number: 7},
					model.NumberQuestion{Number: 8},
				),
			},
		},
		{
			Title:      "Part 2",
			Difficulty: model.DifficultyHard,
			Groups: []model.QuestionGroup{
				group(model.TypeTableCompletion, model.CellQuestion{CellID: "r1c2"}, model.CellQuestion{CellID: "r2c2"}),
				group(model.TypeNoteCompletion),
			},
		},
		{
			Title:      "Part 3",
			Difficulty: model.DifficultyEasy,
		},
	}
}

func TestNumberContiguous(t *testing.T) {
	res := Number(sampleSections())

	qs := res.Questions()
	require.Len(t, qs, 10)
	for i, q := range qs {
		assert.Equal(t, i+1, q.Number, "question %d", i)
	}
	assert.Equal(t, 10, res.Total.TotalQuestions)
}

func TestNumberRanges(t *testing.T) {
	res := Number(sampleSections())
	require.Len(t, res.Stats, 3)

	s1 := res.Stats[0]
	assert.Equal(t, 8, s1.QuestionCount)
	assert.Equal(t, "1-8", s1.QuestionRange)
	assert.Equal(t, "1-5", s1.Groups[0].QuestionRange)
	assert.Equal(t, "6-8", s1.Groups[1].QuestionRange)
	assert.Equal(t, map[model.QuestionType]int{
		model.TypeFormCompletion: 5,
		model.TypeMultipleChoice: 3,
	}, s1.QuestionTypes)

	s2 := res.Stats[1]
	assert.Equal(t, "9-10", s2.QuestionRange)
	assert.Equal(t, 0, s2.Groups[1].QuestionCount)
	assert.Equal(t, "", s2.Groups[1].QuestionRange)

	s3 := res.Stats[2]
	assert.Equal(t, 0, s3.QuestionCount)
	assert.Equal(t, "", s3.QuestionRange)
	assert.Empty(t, s3.Groups)
}

func TestNumberSingleQuestionRange(t *testing.T) {
	sections := []model.Section{{
		Groups: []model.QuestionGroup{
			group(model.TypeShortAnswer, gaps("a1", "a2", "a3", "a4")...),
			group(model.TypeShortAnswer, gaps("b5")...),
		},
	}}
	res := Number(sections)
	assert.Equal(t, "5", res.Stats[0].Groups[1].QuestionRange)
}

func TestNumberTotals(t *testing.T) {
	res := Number(sampleSections())

	assert.InDelta(t, 10.0/3.0, res.Total.AverageQuestionsPerSection, 1e-9)
	assert.Equal(t, map[model.Difficulty]int{
		model.DifficultyEasy: 2,
		model.DifficultyHard: 1,
	}, res.Total.DifficultyBreakdown)
}

func TestNumberEmptyInput(t *testing.T) {
	for _, in := range [][]model.Section{nil, {}} {
		res := Number(in)
		assert.Equal(t, 0, res.Total.TotalQuestions)
		assert.Equal(t, 0.0, res.Total.AverageQuestionsPerSection)
		assert.Empty(t, res.Questions())
		assert.True(t, res.Diagnostics.Empty())
	}
}

func TestNumberIgnoresExplicitNumbers(t *testing.T) {
	sections := []model.Section{{
		Groups: []model.QuestionGroup{
			group(model.TypeMultipleChoice,
				model.NumberQuestion{Number: 14},
				model.NumberQuestion{Number: 2},
			),
		},
	}}
	res := Number(sections)
	qs := res.Questions()
	require.Len(t, qs, 2)
	assert.Equal(t, 1, qs[0].Number)
	assert.Equal(t, 2, qs[1].Number)
	assert.Equal(t, []Renumbering{{Explicit: 14, Assigned: 1}}, res.Diagnostics.Renumbered)
}

func TestNumberDeterministic(t *testing.T) {
	in := sampleSections()
	first := Number(in)
	second := Number(in)
	assert.Equal(t, first, second)

	// Input is not modified.
	assert.Equal(t, sampleSections(), in)
}

func TestNumberUnidentifiedDoesNotCollide(t *testing.T) {
	sections := []model.Section{{
		Groups: []model.QuestionGroup{
			group(model.TypeSentenceCompletion,
				model.UnidentifiedQuestion{Raw: "blank"},
				model.NumberQuestion{Number: 1},
				model.GapQuestion{GapID: "gap"},
			),
		},
	}}
	res := Number(sections)
	qs := res.Questions()
	require.Len(t, qs, 3)
	assert.Equal(t, 1, qs[0].Number)
	assert.Equal(t, 2, qs[1].Number)
	assert.Equal(t, 3, qs[2].Number)
	assert.Equal(t, []Position{{0, 0, 0}, {0, 0, 2}}, res.Diagnostics.Unidentified)
}

func TestNumberCollisionDiagnostic(t *testing.T) {
	sections := []model.Section{{
		Groups: []model.QuestionGroup{
			group(model.TypeTableCompletion,
				model.GapQuestion{GapID: "gap3"},
				model.CellQuestion{CellID: "cell3"},
			),
		},
	}}
	res := Number(sections)
	require.Len(t, res.Diagnostics.Collisions, 1)
	c := res.Diagnostics.Collisions[0]
	assert.Equal(t, 3, c.Value)
	assert.Equal(t, model.KindGap, c.First.Kind)
	assert.Equal(t, model.KindCell, c.Second.Kind)
	assert.Equal(t, []int{1, 2}, []int{res.Questions()[0].Number, res.Questions()[1].Number})
}

func TestNumberUnsupportedType(t *testing.T) {
	sections := []model.Section{{
		Groups: []model.QuestionGroup{
			{Type: model.TypeUnsupported, RawType: "drag-and-drop", Questions: gaps("g1", "g2")},
			{Type: model.TypeUnsupported, RawType: "drag-and-drop", Questions: gaps("g3")},
		},
	}}
	res := Number(sections)
	assert.Equal(t, 3, res.Total.TotalQuestions)
	assert.Equal(t, map[model.QuestionType]int{model.TypeUnsupported: 3}, res.Stats[0].QuestionTypes)
	assert.Equal(t, []string{"drag-and-drop"}, res.Diagnostics.UnsupportedTypes)
}

func TestLookup(t *testing.T) {
	res := Number(sampleSections())

	q, ok := res.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, 7, q.Number)
	assert.Equal(t, 0, q.SectionIndex)
	assert.Equal(t, 1, q.GroupIndex)

	q, ok = res.Lookup(10)
	require.True(t, ok)
	assert.Equal(t, model.KindCell, q.Question.Kind())

	_, ok = res.Lookup(0)
	assert.False(t, ok)
	_, ok = res.Lookup(11)
	assert.False(t, ok)
}

func TestRange(t *testing.T) {
	tests := []struct {
		first, last int
		want        string
	}{
		{5, 5, "5"},
		{6, 8, "6-8"},
		{3, 2, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Range(tt.first, tt.last))
	}
}
