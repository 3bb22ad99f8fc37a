package grading

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pavelanni/bandscore/internal/model"
)

var (
	// ErrInvalidGrade is returned for a manual grade outside correct, incorrect and auto.
	ErrInvalidGrade = errors.New("invalid manual grade")
	// ErrUnknownQuestion is returned for a question number the test does not have.
	ErrUnknownQuestion = errors.New("unknown question number")
)

// Overrides holds grader verdicts keyed by global question number. Only
// correct and incorrect are stored; auto is the absence of an entry.
// Concurrent writers get last-write-wins per question number.
type Overrides struct {
	mu     sync.RWMutex
	grades map[int]model.ManualGrade
}

// NewOverrides seeds the store from persisted grades. Auto and invalid
// entries in seed are skipped.
func NewOverrides(seed map[int]model.ManualGrade) *Overrides {
	o := &Overrides{grades: make(map[int]model.ManualGrade, len(seed))}
	for n, g := range seed {
		if g == model.GradeCorrect || g == model.GradeIncorrect {
			o.grades[n] = g
		}
	}
	return o
}

// Set records a grade for question n. GradeAuto clears it.
func (o *Overrides) Set(n int, g model.ManualGrade) error {
	if !g.Valid() {
		return fmt.Errorf("set override for question %d: %w: %q", n, ErrInvalidGrade, g)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if g == model.GradeAuto {
		delete(o.grades, n)
		return nil
	}
	o.grades[n] = g
	return nil
}

// BulkSet applies one grade to every listed question and replaces the state
// in a single step.
func (o *Overrides) BulkSet(g model.ManualGrade, numbers []int) error {
	if !g.Valid() {
		return fmt.Errorf("bulk set overrides: %w: %q", ErrInvalidGrade, g)
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	next := make(map[int]model.ManualGrade, len(o.grades)+len(numbers))
	for n, cur := range o.grades {
		next[n] = cur
	}
	for _, n := range numbers {
		if g == model.GradeAuto {
			delete(next, n)
			continue
		}
		next[n] = g
	}
	o.grades = next
	return nil
}

// Get returns the grade for question n, GradeAuto when none is stored.
func (o *Overrides) Get(n int) model.ManualGrade {
	if o == nil {
		return model.GradeAuto
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if g, ok := o.grades[n]; ok {
		return g
	}
	return model.GradeAuto
}

// Resolve returns the final verdict for question n given its automatic verdict.
func (o *Overrides) Resolve(n int, automatic model.Verdict) model.Verdict {
	g := o.Get(n)
	if g == model.GradeAuto {
		return automatic
	}
	return g.Verdict()
}

// ManuallyGraded returns how many questions carry a non-auto grade.
func (o *Overrides) ManuallyGraded() int {
	if o == nil {
		return 0
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.grades)
}

// Snapshot returns a copy of the stored grades for persistence.
func (o *Overrides) Snapshot() map[int]model.ManualGrade {
	out := make(map[int]model.ManualGrade)
	if o == nil {
		return out
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	for n, g := range o.grades {
		out[n] = g
	}
	return out
}

// Numbers returns the overridden question numbers in ascending order.
func (o *Overrides) Numbers() []int {
	snap := o.Snapshot()
	out := make([]int, 0, len(snap))
	for n := range snap {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
