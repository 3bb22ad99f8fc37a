package store

import (
	"fmt"

	"github.com/pavelanni/bandscore/internal/model"
)

// SubmissionBundle is everything stored about one submission, as needed to
// regrade or export it.
type SubmissionBundle struct {
	Submission model.SubmissionRecord
	Test       model.Test
	Answers    model.Submission
	Grades     map[int]model.ManualGrade
}

// LoadBundle assembles the bundle of one submission, or nil if the
// submission does not exist.
func (s *Store) LoadBundle(submissionID int64) (*SubmissionBundle, error) {
	sub, err := s.GetSubmission(submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission %d: %w", submissionID, err)
	}
	if sub == nil {
		return nil, nil
	}
	test, err := s.GetTest(sub.TestID)
	if err != nil {
		return nil, fmt.Errorf("get test %d: %w", sub.TestID, err)
	}
	if test == nil {
		return nil, fmt.Errorf("submission %d references missing test %d", sub.ID, sub.TestID)
	}
	answers, err := s.GetAnswers(sub.ID)
	if err != nil {
		return nil, fmt.Errorf("get answers %d: %w", sub.ID, err)
	}
	grades, err := s.ListManualGrades(sub.ID)
	if err != nil {
		return nil, fmt.Errorf("get grades %d: %w", sub.ID, err)
	}
	return &SubmissionBundle{
		Submission: *sub,
		Test:       *test,
		Answers:    answers,
		Grades:     grades,
	}, nil
}

// ExportBundles loads the bundles of every submission in ID order.
func (s *Store) ExportBundles() ([]SubmissionBundle, error) {
	subs, err := s.ListSubmissions(0)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	bundles := make([]SubmissionBundle, 0, len(subs))
	for i := len(subs) - 1; i >= 0; i-- {
		b, err := s.LoadBundle(subs[i].ID)
		if err != nil {
			return nil, err
		}
		if b != nil {
			bundles = append(bundles, *b)
		}
	}
	return bundles, nil
}
