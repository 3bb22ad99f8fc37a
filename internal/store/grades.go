package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/bandscore/internal/model"
)

// ListManualGrades returns the active overrides of a submission. Questions
// left on automatic have no row.
func (s *Store) ListManualGrades(submissionID int64) (map[int]model.ManualGrade, error) {
	records, err := s.ListManualGradeRecords(submissionID)
	if err != nil {
		return nil, err
	}
	grades := make(map[int]model.ManualGrade, len(records))
	for _, r := range records {
		grades[r.QuestionNumber] = r.Status
	}
	return grades, nil
}

// ListManualGradeRecords returns the override rows of a submission with
// their audit fields.
func (s *Store) ListManualGradeRecords(submissionID int64) ([]model.ManualGradeRecord, error) {
	rows, err := s.db.Query(
		`SELECT submission_id, question_number, status, graded_by, updated_at
		 FROM manual_grades WHERE submission_id = ? ORDER BY question_number`, submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.ManualGradeRecord
	for rows.Next() {
		var r model.ManualGradeRecord
		if err := rows.Scan(&r.SubmissionID, &r.QuestionNumber, &r.Status, &r.GradedBy, &r.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// UpsertManualGrade records a single grader decision. Setting a question
// back to automatic removes its row.
func (s *Store) UpsertManualGrade(submissionID int64, number int, status model.ManualGrade, gradedBy int64) error {
	if status == model.GradeAuto {
		_, err := s.db.Exec(
			`DELETE FROM manual_grades WHERE submission_id = ? AND question_number = ?`,
			submissionID, number,
		)
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO manual_grades (submission_id, question_number, status, graded_by, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(submission_id, question_number)
		 DO UPDATE SET status = excluded.status, graded_by = excluded.graded_by, updated_at = excluded.updated_at`,
		submissionID, number, status, gradedBy, time.Now(),
	)
	return err
}

// ReplaceManualGrades swaps the full override set of a submission in one
// transaction. Automatic entries are skipped.
func (s *Store) ReplaceManualGrades(submissionID int64, grades map[int]model.ManualGrade, gradedBy int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM manual_grades WHERE submission_id = ?`, submissionID); err != nil {
		return err
	}
	now := time.Now()
	for n, g := range grades {
		if g == model.GradeAuto {
			continue
		}
		_, err := tx.Exec(
			`INSERT INTO manual_grades (submission_id, question_number, status, graded_by, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			submissionID, n, g, gradedBy, now,
		)
		if err != nil {
			return fmt.Errorf("insert grade %d: %w", n, err)
		}
	}
	return tx.Commit()
}

// SaveSnapshot stores the latest grading result of a submission, replacing
// any earlier one. A fresh run ID is assigned when none is set.
func (s *Store) SaveSnapshot(snap model.GradeSnapshot) (model.GradeSnapshot, error) {
	if snap.RunID == "" {
		snap.RunID = uuid.NewString()
	}
	if snap.GradedAt.IsZero() {
		snap.GradedAt = time.Now()
	}
	var band sql.NullFloat64
	if snap.Band.OK {
		band = sql.NullFloat64{Float64: snap.Band.Value, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO grade_snapshots
		 (submission_id, run_id, component, total, correct, incorrect, unanswered, manually_graded, percentage, band, graded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(submission_id) DO UPDATE SET
		   run_id = excluded.run_id, component = excluded.component, total = excluded.total,
		   correct = excluded.correct, incorrect = excluded.incorrect, unanswered = excluded.unanswered,
		   manually_graded = excluded.manually_graded, percentage = excluded.percentage,
		   band = excluded.band, graded_at = excluded.graded_at`,
		snap.SubmissionID, snap.RunID, snap.Component, snap.Total, snap.Correct, snap.Incorrect,
		snap.Unanswered, snap.ManuallyGraded, snap.Percentage, band, snap.GradedAt,
	)
	if err != nil {
		return snap, err
	}
	return snap, nil
}

// GetSnapshot returns the latest grading result of a submission, or nil if
// it was never graded.
func (s *Store) GetSnapshot(submissionID int64) (*model.GradeSnapshot, error) {
	var snap model.GradeSnapshot
	var band sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT id, submission_id, run_id, component, total, correct, incorrect, unanswered,
		        manually_graded, percentage, band, graded_at
		 FROM grade_snapshots WHERE submission_id = ?`, submissionID,
	).Scan(&snap.ID, &snap.SubmissionID, &snap.RunID, &snap.Component, &snap.Total, &snap.Correct,
		&snap.Incorrect, &snap.Unanswered, &snap.ManuallyGraded, &snap.Percentage, &band, &snap.GradedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if band.Valid {
		snap.Band = model.BandOf(band.Float64)
	}
	return &snap, nil
}
