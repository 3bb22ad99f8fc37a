package model

import "time"

// GradingExport is the top-level JSON structure for exported grading results.
type GradingExport struct {
	ExportedAt time.Time          `json:"exported_at"`
	Results    []SubmissionResult `json:"results"`
}

// SubmissionResult holds one submission's grading data for export.
type SubmissionResult struct {
	SubmissionID   int64            `json:"submission_id"`
	TestName       string           `json:"test_name"`
	Component      string           `json:"component"`
	CandidateName  string           `json:"candidate_name"`
	Status         SubmissionStatus `json:"status"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	Total          int              `json:"total"`
	Correct        int              `json:"correct"`
	Incorrect      int              `json:"incorrect"`
	Unanswered     int              `json:"unanswered"`
	ManuallyGraded int              `json:"manually_graded"`
	Percentage     int              `json:"percentage"`
	Band           Band             `json:"band"`
	Questions      []QuestionExport `json:"questions"`
}

// QuestionExport holds per-question data for export.
type QuestionExport struct {
	Number    int          `json:"number"`
	Section   int          `json:"section"`
	Type      QuestionType `json:"type"`
	Candidate Answer       `json:"candidate"`
	Accepted  []string     `json:"accepted"`
	Automatic Verdict      `json:"automatic"`
	Override  ManualGrade  `json:"override"`
	Final     Verdict      `json:"final"`
}
