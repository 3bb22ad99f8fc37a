package model

import (
	"context"
	"encoding/json"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleCandidate is a test taker.
	UserRoleCandidate UserRole = "candidate"
	// UserRoleGrader reviews submissions and sets manual grades.
	UserRoleGrader UserRole = "grader"
	// UserRoleAdmin manages users and test content.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// SubmissionStatus represents where a submission is in the review flow.
type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "submitted"
	StatusGraded    SubmissionStatus = "graded"
	StatusReviewed  SubmissionStatus = "reviewed"
)

// Test is a stored authored test. Content holds the authored JSON document
// exactly as it was imported.
type Test struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Component string          `json:"component"`
	Content   json.RawMessage `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

// SubmissionRecord is a candidate's answer sheet for one test.
type SubmissionRecord struct {
	ID            int64            `json:"id"`
	TestID        int64            `json:"test_id"`
	CandidateID   int64            `json:"candidate_id"`
	CandidateName string           `json:"candidate_name"`
	Status        SubmissionStatus `json:"status"`
	SubmittedAt   time.Time        `json:"submitted_at"`
}

// ManualGradeRecord is one persisted grader decision.
type ManualGradeRecord struct {
	SubmissionID   int64       `json:"submission_id"`
	QuestionNumber int         `json:"question_number"`
	Status         ManualGrade `json:"status"`
	GradedBy       int64       `json:"graded_by"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// GradeSnapshot is the persisted result of one grading pass.
type GradeSnapshot struct {
	ID             int64     `json:"id"`
	SubmissionID   int64     `json:"submission_id"`
	RunID          string    `json:"run_id"`
	Component      string    `json:"component"`
	Total          int       `json:"total"`
	Correct        int       `json:"correct"`
	Incorrect      int       `json:"incorrect"`
	Unanswered     int       `json:"unanswered"`
	ManuallyGraded int       `json:"manually_graded"`
	Percentage     int       `json:"percentage"`
	Band           Band      `json:"band"`
	GradedAt       time.Time `json:"graded_at"`
}

// ServiceConfig holds runtime parameters set via CLI flags or config.
type ServiceConfig struct {
	Component     string       // default band component for tests that name none
	AnswerPolicy  AnswerPolicy // accepted-answer fallback policy
	BasePath      string       // URL prefix for sub-path deployments
	SecureCookies bool         // Set Secure flag on cookies (disable for local dev)
}
