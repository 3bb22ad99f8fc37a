package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/bandscore/internal/grading"
	appI18n "github.com/pavelanni/bandscore/internal/i18n"
	"github.com/pavelanni/bandscore/internal/model"
	"github.com/pavelanni/bandscore/internal/report"
	"github.com/pavelanni/bandscore/internal/store"
)

type submitRequest struct {
	CandidateName string           `json:"candidate_name"`
	Answers       model.Submission `json:"answers"`
}

type gradeRequest struct {
	Status model.ManualGrade `json:"status"`
}

type bulkGradeRequest struct {
	Status  model.ManualGrade `json:"status"`
	Numbers []int             `json:"numbers"`
}

// submissionView is a graded submission with display labels for the
// request's language.
type submissionView struct {
	Submission    model.SubmissionRecord `json:"submission"`
	Test          string                 `json:"test"`
	RunID         string                 `json:"run_id,omitempty"`
	Report        grading.Report         `json:"report"`
	BandLabel     string                 `json:"band_label"`
	ManualSummary string                 `json:"manual_summary"`
	Labels        map[int]string         `json:"labels"`
}

type suggestionView struct {
	Number     int               `json:"number"`
	Automatic  model.Verdict     `json:"automatic"`
	Override   model.ManualGrade `json:"override"`
	Verdict    model.ManualGrade `json:"verdict"`
	Confidence float64           `json:"confidence"`
	Reason     string            `json:"reason"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	testID, ok := idParam(w, r, "testID")
	if !ok {
		return
	}
	test, err := h.store.GetTest(testID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if test == nil {
		writeError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}

	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorText(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	user := model.UserFromContext(r.Context())
	name := req.CandidateName
	if name == "" || user.Role == model.UserRoleCandidate {
		name = user.DisplayName
	}

	bundle := store.SubmissionBundle{
		Submission: model.SubmissionRecord{TestID: test.ID, CandidateID: user.ID, CandidateName: name},
		Test:       *test,
		Answers:    req.Answers,
	}
	e, err := h.grader.Evaluate(bundle)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for n := range req.Answers {
		if _, ok := e.Numbered.Lookup(n); !ok {
			h.fail(w, r, fmt.Errorf("answer %d: %w", n, grading.ErrUnknownQuestion))
			return
		}
	}

	id, err := h.store.CreateSubmission(bundle.Submission, req.Answers)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("submission received", "submission_id", id, "test_id", test.ID, "user_id", user.ID)

	view, err := h.regrade(r, id, model.StatusGraded)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleSubmissionList(w http.ResponseWriter, r *http.Request) {
	var testID int64
	if v := r.URL.Query().Get("test_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeErrorText(w, http.StatusBadRequest, "invalid test_id")
			return
		}
		testID = id
	}
	subs, err := h.store.ListSubmissions(testID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if subs == nil {
		subs = []model.SubmissionRecord{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleSubmission(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEvaluation(w, r)
	if !ok {
		return
	}
	user := model.UserFromContext(r.Context())
	if user.Role == model.UserRoleCandidate && e.Bundle.Submission.CandidateID != user.ID {
		writeError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	rep, err := h.grader.Report(e)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view := h.view(r, e.Bundle, rep)
	snap, err := h.store.GetSnapshot(e.Bundle.Submission.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if snap != nil {
		view.RunID = snap.RunID
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSetGrade(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEvaluation(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeErrorText(w, http.StatusBadRequest, "invalid question number")
		return
	}
	var req gradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorText(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := e.Session.SetOverride(n, req.Status); err != nil {
		h.fail(w, r, err)
		return
	}

	user := model.UserFromContext(r.Context())
	subID := e.Bundle.Submission.ID
	if err := h.store.UpsertManualGrade(subID, n, req.Status, user.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("manual grade set", "submission_id", subID, "question", n, "status", req.Status, "grader_id", user.ID)

	view, err := h.persist(r, e, model.StatusReviewed)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleBulkGrade(w http.ResponseWriter, r *http.Request) {
	e, ok := h.loadEvaluation(w, r)
	if !ok {
		return
	}
	var req bulkGradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorText(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := e.Session.BulkSet(req.Status, req.Numbers); err != nil {
		h.fail(w, r, err)
		return
	}

	user := model.UserFromContext(r.Context())
	subID := e.Bundle.Submission.ID
	if err := h.store.ReplaceManualGrades(subID, e.Session.Overrides().Snapshot(), user.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("bulk grade set", "submission_id", subID, "status", req.Status, "count", len(req.Numbers), "grader_id", user.ID)

	view, err := h.persist(r, e, model.StatusReviewed)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	if h.llm == nil {
		writeError(w, r, http.StatusNotFound, "ErrSuggestionsDisabled")
		return
	}
	e, ok := h.loadEvaluation(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeErrorText(w, http.StatusBadRequest, "invalid question number")
		return
	}
	q, found := e.Numbered.Lookup(n)
	if !found {
		h.fail(w, r, fmt.Errorf("suggestion %d: %w", n, grading.ErrUnknownQuestion))
		return
	}
	automatic, err := e.Session.AutomaticVerdict(n)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.llm.Suggest(r.Context(), q, h.grader.Matcher.Accepted(q.Question), e.Bundle.Answers[n])
	if err != nil {
		slog.Error("suggestion failed", "submission_id", e.Bundle.Submission.ID, "question", n, "error", err)
		writeErrorText(w, http.StatusBadGateway, "suggestion failed")
		return
	}
	writeJSON(w, http.StatusOK, suggestionView{
		Number:     n,
		Automatic:  automatic,
		Override:   e.Session.Overrides().Get(n),
		Verdict:    s.Verdict,
		Confidence: s.Confidence,
		Reason:     s.Reason,
	})
}

func (h *Handler) loadEvaluation(w http.ResponseWriter, r *http.Request) (*report.Evaluation, bool) {
	id, ok := idParam(w, r, "submissionID")
	if !ok {
		return nil, false
	}
	b, err := h.store.LoadBundle(id)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if b == nil {
		writeError(w, r, http.StatusNotFound, "ErrNotFound")
		return nil, false
	}
	e, err := h.grader.Evaluate(*b)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return e, true
}

// regrade reloads a submission from the store and persists a fresh snapshot.
func (h *Handler) regrade(r *http.Request, id int64, status model.SubmissionStatus) (*submissionView, error) {
	b, err := h.store.LoadBundle(id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("submission %d vanished", id)
	}
	e, err := h.grader.Evaluate(*b)
	if err != nil {
		return nil, err
	}
	return h.persist(r, e, status)
}

// persist stores a snapshot of the evaluation's current state and moves
// the submission to status.
func (h *Handler) persist(r *http.Request, e *report.Evaluation, status model.SubmissionStatus) (*submissionView, error) {
	snap, rep, err := h.grader.Snapshot(e)
	if err != nil {
		return nil, err
	}
	saved, err := h.store.SaveSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	subID := e.Bundle.Submission.ID
	if err := h.store.UpdateSubmissionStatus(subID, status); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	e.Bundle.Submission.Status = status
	slog.Debug("snapshot saved", "submission_id", subID, "run_id", saved.RunID, "correct", snap.Correct, "band", snap.Band.String())

	view := h.view(r, e.Bundle, rep)
	view.RunID = saved.RunID
	return view, nil
}

// view renders rep for the requesting user. Candidates never see accepted
// answers or the override map.
func (h *Handler) view(r *http.Request, b store.SubmissionBundle, rep grading.Report) *submissionView {
	ctx := r.Context()
	if u := model.UserFromContext(ctx); u == nil || u.Role == model.UserRoleCandidate {
		rep = hideAnswerKey(rep)
	}
	labels := make(map[int]string, len(rep.Questions))
	for _, q := range rep.Questions {
		labels[q.Number] = appI18n.Verdict(ctx, q.Final)
	}
	return &submissionView{
		Submission:    b.Submission,
		Test:          b.Test.Name,
		Report:        rep,
		BandLabel:     appI18n.Band(ctx, rep.Band),
		ManualSummary: appI18n.Tp(ctx, "QuestionsGraded", rep.Total.ManuallyGraded),
		Labels:        labels,
	}
}

func hideAnswerKey(rep grading.Report) grading.Report {
	questions := make([]grading.QuestionResult, len(rep.Questions))
	for i, q := range rep.Questions {
		q.Accepted = nil
		questions[i] = q
	}
	rep.Questions = questions
	rep.Overrides = nil
	return rep
}
