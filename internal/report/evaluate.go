// Package report regrades stored submissions and renders the results as
// JSON or XLSX.
package report

import (
	"fmt"

	"github.com/pavelanni/bandscore/internal/band"
	"github.com/pavelanni/bandscore/internal/content"
	"github.com/pavelanni/bandscore/internal/grading"
	"github.com/pavelanni/bandscore/internal/model"
	"github.com/pavelanni/bandscore/internal/numbering"
	"github.com/pavelanni/bandscore/internal/store"
)

// Grader turns stored submissions into grading sessions.
type Grader struct {
	Registry         *band.Registry
	Matcher          grading.Matcher
	DefaultComponent string
}

// Evaluation is a loaded submission ready for grading.
type Evaluation struct {
	Bundle    store.SubmissionBundle
	Document  *content.Document
	Numbered  numbering.Result
	Session   *grading.Session
	Component string
}

// Evaluate decodes the test content of b and builds a session seeded with
// its stored manual grades.
func (g Grader) Evaluate(b store.SubmissionBundle) (*Evaluation, error) {
	doc, err := content.Parse(b.Test.Content)
	if err != nil {
		return nil, fmt.Errorf("decode test %d: %w", b.Test.ID, err)
	}
	numbered := numbering.Number(doc.Sections)
	return &Evaluation{
		Bundle:    b,
		Document:  doc,
		Numbered:  numbered,
		Session:   grading.NewSession(numbered, b.Answers, grading.NewOverrides(b.Grades), g.Matcher),
		Component: g.component(b.Test.Component, doc.Component),
	}, nil
}

// Report grades the evaluation with the grader's band tables.
func (g Grader) Report(e *Evaluation) (grading.Report, error) {
	return e.Session.Report(e.Component, g.Registry)
}

// Snapshot grades the evaluation and returns the row to persist.
func (g Grader) Snapshot(e *Evaluation) (model.GradeSnapshot, grading.Report, error) {
	rep, err := g.Report(e)
	if err != nil {
		return model.GradeSnapshot{}, rep, err
	}
	return model.GradeSnapshot{
		SubmissionID:   e.Bundle.Submission.ID,
		Component:      rep.Component,
		Total:          rep.Total.Total,
		Correct:        rep.Total.Correct,
		Incorrect:      rep.Total.Incorrect,
		Unanswered:     rep.Total.Unanswered,
		ManuallyGraded: rep.Total.ManuallyGraded,
		Percentage:     rep.Total.Percentage,
		Band:           rep.Band,
	}, rep, nil
}

func (g Grader) component(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return g.DefaultComponent
}

// Result flattens a report into its export form.
func Result(b store.SubmissionBundle, rep grading.Report) model.SubmissionResult {
	res := model.SubmissionResult{
		SubmissionID:   b.Submission.ID,
		TestName:       b.Test.Name,
		Component:      rep.Component,
		CandidateName:  b.Submission.CandidateName,
		Status:         b.Submission.Status,
		SubmittedAt:    b.Submission.SubmittedAt,
		Total:          rep.Total.Total,
		Correct:        rep.Total.Correct,
		Incorrect:      rep.Total.Incorrect,
		Unanswered:     rep.Total.Unanswered,
		ManuallyGraded: rep.Total.ManuallyGraded,
		Percentage:     rep.Total.Percentage,
		Band:           rep.Band,
		Questions:      make([]model.QuestionExport, 0, len(rep.Questions)),
	}
	for _, q := range rep.Questions {
		res.Questions = append(res.Questions, model.QuestionExport{
			Number:    q.Number,
			Section:   q.SectionIndex + 1,
			Type:      q.Type,
			Candidate: q.Candidate,
			Accepted:  q.Accepted,
			Automatic: q.Automatic,
			Override:  q.Override,
			Final:     q.Final,
		})
	}
	return res
}

// Build regrades every bundle for export.
func (g Grader) Build(bundles []store.SubmissionBundle) ([]model.SubmissionResult, error) {
	results := make([]model.SubmissionResult, 0, len(bundles))
	for _, b := range bundles {
		e, err := g.Evaluate(b)
		if err != nil {
			return nil, err
		}
		rep, err := g.Report(e)
		if err != nil {
			return nil, fmt.Errorf("grade submission %d: %w", b.Submission.ID, err)
		}
		results = append(results, Result(b, rep))
	}
	return results, nil
}
