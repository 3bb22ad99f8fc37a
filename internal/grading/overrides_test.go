package grading

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/bandscore/internal/model"
)

func TestOverridesSeed(t *testing.T) {
	o := NewOverrides(map[int]model.ManualGrade{
		1: model.GradeCorrect,
		2: model.GradeAuto,
		3: model.GradeIncorrect,
		4: "maybe",
	})
	assert.Equal(t, map[int]model.ManualGrade{1: model.GradeCorrect, 3: model.GradeIncorrect}, o.Snapshot())
	assert.Equal(t, 2, o.ManuallyGraded())
	assert.Equal(t, []int{1, 3}, o.Numbers())
}

func TestOverridesSetIsIdempotent(t *testing.T) {
	o := NewOverrides(nil)
	require.NoError(t, o.Set(5, model.GradeIncorrect))
	require.NoError(t, o.Set(5, model.GradeIncorrect))
	assert.Equal(t, model.GradeIncorrect, o.Get(5))
	assert.Equal(t, 1, o.ManuallyGraded())

	require.NoError(t, o.Set(5, model.GradeAuto))
	require.NoError(t, o.Set(5, model.GradeAuto))
	assert.Equal(t, model.GradeAuto, o.Get(5))
	assert.Equal(t, 0, o.ManuallyGraded())
}

func TestOverridesRejectInvalid(t *testing.T) {
	o := NewOverrides(nil)
	assert.ErrorIs(t, o.Set(1, "partial"), ErrInvalidGrade)
	assert.ErrorIs(t, o.BulkSet("", []int{1}), ErrInvalidGrade)
	assert.Equal(t, 0, o.ManuallyGraded())
}

func TestResolvePrecedence(t *testing.T) {
	o := NewOverrides(nil)
	verdicts := []model.Verdict{model.VerdictCorrect, model.VerdictIncorrect, model.VerdictUnanswered}

	// Auto and absence behave the same.
	for _, v := range verdicts {
		assert.Equal(t, v, o.Resolve(1, v))
	}
	require.NoError(t, o.Set(1, model.GradeAuto))
	for _, v := range verdicts {
		assert.Equal(t, v, o.Resolve(1, v))
	}

	require.NoError(t, o.Set(1, model.GradeCorrect))
	for _, v := range verdicts {
		assert.Equal(t, model.VerdictCorrect, o.Resolve(1, v))
	}
	require.NoError(t, o.Set(1, model.GradeIncorrect))
	for _, v := range verdicts {
		assert.Equal(t, model.VerdictIncorrect, o.Resolve(1, v))
	}
}

func TestBulkSet(t *testing.T) {
	o := NewOverrides(map[int]model.ManualGrade{9: model.GradeIncorrect})

	require.NoError(t, o.BulkSet(model.GradeCorrect, []int{1, 2, 3}))
	assert.Equal(t, map[int]model.ManualGrade{
		1: model.GradeCorrect,
		2: model.GradeCorrect,
		3: model.GradeCorrect,
		9: model.GradeIncorrect,
	}, o.Snapshot())

	require.NoError(t, o.BulkSet(model.GradeAuto, []int{1, 2, 3, 9}))
	assert.Empty(t, o.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	o := NewOverrides(nil)
	require.NoError(t, o.Set(1, model.GradeCorrect))
	snap := o.Snapshot()
	snap[2] = model.GradeIncorrect
	assert.Equal(t, model.GradeAuto, o.Get(2))
}

func TestNilOverridesReadAsAuto(t *testing.T) {
	var o *Overrides
	assert.Equal(t, model.GradeAuto, o.Get(1))
	assert.Equal(t, model.VerdictUnanswered, o.Resolve(1, model.VerdictUnanswered))
	assert.Equal(t, 0, o.ManuallyGraded())
	assert.Empty(t, o.Snapshot())
}

func TestOverridesConcurrentWriters(t *testing.T) {
	o := NewOverrides(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := model.GradeCorrect
			if i%2 == 0 {
				g = model.GradeIncorrect
			}
			_ = o.Set(1, g)
			_ = o.BulkSet(g, []int{2, 3})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 3, o.ManuallyGraded())
}
