package grading

import (
	"fmt"

	"github.com/pavelanni/bandscore/internal/band"
	"github.com/pavelanni/bandscore/internal/model"
	"github.com/pavelanni/bandscore/internal/numbering"
)

// Session is one grading pass over a numbered test and a submission. The
// override store is owned by the caller and shared by reference.
type Session struct {
	numbered  numbering.Result
	questions []model.NumberedQuestion
	answers   model.Submission
	overrides *Overrides
	matcher   Matcher
}

// NewSession wires the grading components together. A nil overrides store
// is replaced by an empty one.
func NewSession(numbered numbering.Result, answers model.Submission, overrides *Overrides, m Matcher) *Session {
	if overrides == nil {
		overrides = NewOverrides(nil)
	}
	if answers == nil {
		answers = model.Submission{}
	}
	return &Session{
		numbered:  numbered,
		questions: numbered.Questions(),
		answers:   answers,
		overrides: overrides,
		matcher:   m,
	}
}

// Overrides returns the session's override store.
func (s *Session) Overrides() *Overrides {
	return s.overrides
}

// Numbers returns every global question number of the test.
func (s *Session) Numbers() []int {
	out := make([]int, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Number
	}
	return out
}

// AutomaticVerdict matches question n against its current answer.
func (s *Session) AutomaticVerdict(n int) (model.Verdict, error) {
	q, ok := s.numbered.Lookup(n)
	if !ok {
		return "", fmt.Errorf("question %d: %w", n, ErrUnknownQuestion)
	}
	return s.matcher.Match(q.Question, s.answers[n]), nil
}

// FinalVerdict returns the grader's override for question n if it is not
// auto, and the automatic verdict otherwise.
func (s *Session) FinalVerdict(n int) (model.Verdict, error) {
	automatic, err := s.AutomaticVerdict(n)
	if err != nil {
		return "", err
	}
	return s.overrides.Resolve(n, automatic), nil
}

// SetOverride records a grader decision for question n.
func (s *Session) SetOverride(n int, g model.ManualGrade) error {
	if _, ok := s.numbered.Lookup(n); !ok {
		return fmt.Errorf("question %d: %w", n, ErrUnknownQuestion)
	}
	return s.overrides.Set(n, g)
}

// BulkSet applies g to every listed question, or to all questions when
// numbers is empty.
func (s *Session) BulkSet(g model.ManualGrade, numbers []int) error {
	if len(numbers) == 0 {
		numbers = s.Numbers()
	}
	for _, n := range numbers {
		if _, ok := s.numbered.Lookup(n); !ok {
			return fmt.Errorf("question %d: %w", n, ErrUnknownQuestion)
		}
	}
	return s.overrides.BulkSet(g, numbers)
}

// Stats aggregates the whole test.
func (s *Session) Stats() Stats {
	return Aggregate(s.questions, s.answers, s.overrides, s.matcher)
}

// QuestionResult is the grading outcome of one question.
type QuestionResult struct {
	Number       int                `json:"number"`
	SectionIndex int                `json:"section_index"`
	GroupIndex   int                `json:"group_index"`
	Type         model.QuestionType `json:"type"`
	Identity     model.Identity     `json:"identity"`
	Prompt       string             `json:"prompt,omitempty"`
	Candidate    model.Answer       `json:"candidate"`
	Accepted     []string           `json:"accepted,omitempty"`
	Automatic    model.Verdict      `json:"automatic"`
	Override     model.ManualGrade  `json:"override"`
	Final        model.Verdict      `json:"final"`
}

// SectionResult is the aggregate of one section.
type SectionResult struct {
	Stat  model.SectionStat `json:"stat"`
	Stats Stats             `json:"stats"`
}

// Report is the full outcome of a grading pass, suitable for rendering or
// persistence.
type Report struct {
	Component string                    `json:"component"`
	Questions []QuestionResult          `json:"questions"`
	Sections  []SectionResult           `json:"sections"`
	Total     Stats                     `json:"total"`
	Band      model.Band                `json:"band"`
	Overrides map[int]model.ManualGrade `json:"overrides,omitempty"`
}

// Report grades every question and converts the correct count for
// component. An empty component or a nil registry yields no band.
func (s *Session) Report(component string, reg *band.Registry) (Report, error) {
	rep := Report{
		Component: component,
		Questions: make([]QuestionResult, 0, len(s.questions)),
		Overrides: s.overrides.Snapshot(),
	}
	for _, q := range s.questions {
		automatic := s.matcher.Match(q.Question, s.answers[q.Number])
		override := s.overrides.Get(q.Number)
		rep.Questions = append(rep.Questions, QuestionResult{
			Number:       q.Number,
			SectionIndex: q.SectionIndex,
			GroupIndex:   q.GroupIndex,
			Type:         q.GroupType,
			Identity:     q.Question.Identity(),
			Prompt:       q.Question.Prompt(),
			Candidate:    s.answers[q.Number],
			Accepted:     s.matcher.Accepted(q.Question),
			Automatic:    automatic,
			Override:     override,
			Final:        s.overrides.Resolve(q.Number, automatic),
		})
	}

	bySection := AggregateBySection(s.questions, len(s.numbered.Sections), s.answers, s.overrides, s.matcher)
	for i, st := range bySection {
		rep.Sections = append(rep.Sections, SectionResult{Stat: s.numbered.Stats[i], Stats: st})
	}
	rep.Total = s.Stats()

	if component == "" || reg == nil {
		return rep, nil
	}
	b, err := reg.Convert(component, rep.Total.Correct)
	if err != nil {
		return rep, err
	}
	rep.Band = b
	return rep, nil
}
