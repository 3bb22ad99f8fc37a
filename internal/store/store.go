package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/bandscore/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db         *sql.DB
	sessionTTL time.Duration
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		component TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_id INTEGER NOT NULL,
		candidate_id INTEGER NOT NULL DEFAULT 0,
		candidate_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'submitted',
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (test_id) REFERENCES tests(id)
	);

	CREATE TABLE IF NOT EXISTS answers (
		submission_id INTEGER NOT NULL,
		question_number INTEGER NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (submission_id, question_number),
		FOREIGN KEY (submission_id) REFERENCES submissions(id)
	);

	CREATE TABLE IF NOT EXISTS manual_grades (
		submission_id INTEGER NOT NULL,
		question_number INTEGER NOT NULL,
		status TEXT NOT NULL,
		graded_by INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (submission_id, question_number),
		FOREIGN KEY (submission_id) REFERENCES submissions(id)
	);

	CREATE TABLE IF NOT EXISTS grade_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id INTEGER NOT NULL UNIQUE,
		run_id TEXT NOT NULL,
		component TEXT NOT NULL DEFAULT '',
		total INTEGER NOT NULL DEFAULT 0,
		correct INTEGER NOT NULL DEFAULT 0,
		incorrect INTEGER NOT NULL DEFAULT 0,
		unanswered INTEGER NOT NULL DEFAULT 0,
		manually_graded INTEGER NOT NULL DEFAULT 0,
		percentage INTEGER NOT NULL DEFAULT 0,
		band REAL,
		graded_at DATETIME NOT NULL,
		FOREIGN KEY (submission_id) REFERENCES submissions(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertTest stores an authored test document.
func (s *Store) InsertTest(t model.Test) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO tests (name, component, content, created_at) VALUES (?, ?, ?, ?)`,
		t.Name, t.Component, string(t.Content), time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTest returns a test by ID, or nil if it does not exist.
func (s *Store) GetTest(id int64) (*model.Test, error) {
	var t model.Test
	var content string
	err := s.db.QueryRow(
		`SELECT id, name, component, content, created_at FROM tests WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Component, &content, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Content = json.RawMessage(content)
	return &t, nil
}

// ListTests returns all tests without their content.
func (s *Store) ListTests() ([]model.Test, error) {
	rows, err := s.db.Query(`SELECT id, name, component, created_at FROM tests ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Name, &t.Component, &t.CreatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// TestCount returns the number of stored tests.
func (s *Store) TestCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tests`).Scan(&count)
	return count, err
}

// CreateSubmission stores a submission and its answers in one transaction.
// Empty answers are kept so that the candidate's sheet is reproduced exactly.
func (s *Store) CreateSubmission(sub model.SubmissionRecord, answers model.Submission) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO submissions (test_id, candidate_id, candidate_name, status, submitted_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sub.TestID, sub.CandidateID, sub.CandidateName, model.StatusSubmitted, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	submissionID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for n, a := range answers {
		value, err := json.Marshal(a)
		if err != nil {
			return 0, fmt.Errorf("encode answer %d: %w", n, err)
		}
		_, err = tx.Exec(
			`INSERT INTO answers (submission_id, question_number, value) VALUES (?, ?, ?)`,
			submissionID, n, string(value),
		)
		if err != nil {
			return 0, err
		}
	}

	return submissionID, tx.Commit()
}

// GetSubmission returns a submission by ID, or nil if it does not exist.
func (s *Store) GetSubmission(id int64) (*model.SubmissionRecord, error) {
	var sub model.SubmissionRecord
	err := s.db.QueryRow(
		`SELECT id, test_id, candidate_id, candidate_name, status, submitted_at FROM submissions WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.TestID, &sub.CandidateID, &sub.CandidateName, &sub.Status, &sub.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubmissions returns submissions, newest first. A testID of 0 lists all.
func (s *Store) ListSubmissions(testID int64) ([]model.SubmissionRecord, error) {
	query := `SELECT id, test_id, candidate_id, candidate_name, status, submitted_at FROM submissions`
	var args []any
	if testID != 0 {
		query += ` WHERE test_id = ?`
		args = append(args, testID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.SubmissionRecord
	for rows.Next() {
		var sub model.SubmissionRecord
		if err := rows.Scan(&sub.ID, &sub.TestID, &sub.CandidateID, &sub.CandidateName, &sub.Status, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateSubmissionStatus updates the review status of a submission.
func (s *Store) UpdateSubmissionStatus(id int64, status model.SubmissionStatus) error {
	_, err := s.db.Exec(`UPDATE submissions SET status = ? WHERE id = ?`, status, id)
	return err
}

// GetAnswers returns the answers of a submission keyed by question number.
func (s *Store) GetAnswers(submissionID int64) (model.Submission, error) {
	rows, err := s.db.Query(
		`SELECT question_number, value FROM answers WHERE submission_id = ? ORDER BY question_number`, submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	answers := make(model.Submission)
	for rows.Next() {
		var n int
		var value string
		if err := rows.Scan(&n, &value); err != nil {
			return nil, err
		}
		var a model.Answer
		if err := json.Unmarshal([]byte(value), &a); err != nil {
			return nil, fmt.Errorf("decode answer %d: %w", n, err)
		}
		answers[n] = a
	}
	return answers, rows.Err()
}
