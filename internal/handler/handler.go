package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/bandscore/internal/band"
	"github.com/pavelanni/bandscore/internal/content"
	"github.com/pavelanni/bandscore/internal/grading"
	appI18n "github.com/pavelanni/bandscore/internal/i18n"
	"github.com/pavelanni/bandscore/internal/llm"
	"github.com/pavelanni/bandscore/internal/model"
	"github.com/pavelanni/bandscore/internal/numbering"
	"github.com/pavelanni/bandscore/internal/report"
	"github.com/pavelanni/bandscore/internal/store"
)

// Suggester proposes overrides for rejected answers. *llm.Client implements it.
type Suggester interface {
	Suggest(ctx context.Context, q model.NumberedQuestion, accepted []string, answer model.Answer) (*llm.Suggestion, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	grader report.Grader
	llm    Suggester
	config model.ServiceConfig
}

// New creates a new Handler. A nil suggester disables suggestions.
func New(s *store.Store, g report.Grader, l Suggester, cfg model.ServiceConfig) *Handler {
	return &Handler{store: s, grader: g, llm: l, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.csrfMiddleware)

	r.Get("/csrf", h.handleCSRF)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/bands", h.handleBandList)
	r.Get("/bands/{component}", h.handleBand)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/me", h.handleMe)
		r.Get("/tests", h.handleTestList)
		r.Get("/tests/{testID}", h.handleTest)
		r.Post("/tests/{testID}/submissions", h.handleSubmit)
		r.Get("/submissions/{submissionID}", h.handleSubmission)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleGrader, model.UserRoleAdmin))
			r.Get("/submissions", h.handleSubmissionList)
			r.Put("/submissions/{submissionID}/grades/{number}", h.handleSetGrade)
			r.Post("/submissions/{submissionID}/grades", h.handleBulkGrade)
			r.Get("/submissions/{submissionID}/suggestions/{number}", h.handleSuggestion)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/users", h.handleListUsers)
			r.Post("/users", h.handleCreateUser)
			r.Post("/users/{userID}/toggle", h.handleToggleUserActive)
			r.Post("/tests", h.handleCreateTest)
		})
	})
}

// testView is a test as candidates see it: numbered prompts, no answers.
type testView struct {
	Test        model.Test             `json:"test"`
	Sections    []sectionView          `json:"sections"`
	Stats       []model.SectionStat    `json:"stats"`
	Total       model.TotalStat        `json:"total"`
	Diagnostics *numbering.Diagnostics `json:"diagnostics,omitempty"`
}

type sectionView struct {
	Title        string           `json:"title"`
	Difficulty   model.Difficulty `json:"difficulty"`
	AudioURL     string           `json:"audio_url,omitempty"`
	PassageTitle string           `json:"passage_title,omitempty"`
	PassageText  string           `json:"passage_text,omitempty"`
	Groups       []groupView      `json:"groups"`
}

type groupView struct {
	Type        model.QuestionType `json:"type"`
	Instruction string             `json:"instruction"`
	Range       string             `json:"range"`
	Questions   []questionView     `json:"questions"`
}

type questionView struct {
	Number int    `json:"number"`
	Prompt string `json:"prompt,omitempty"`
}

func (h *Handler) handleTestList(w http.ResponseWriter, r *http.Request) {
	tests, err := h.store.ListTests()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tests == nil {
		tests = []model.Test{}
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "testID")
	if !ok {
		return
	}
	test, err := h.store.GetTest(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if test == nil {
		writeError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	doc, err := content.Parse(test.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res := numbering.Number(doc.Sections)

	view := testView{Test: *test, Stats: res.Stats, Total: res.Total}
	for si, sec := range res.Sections {
		sv := sectionView{
			Title:        sec.Title,
			Difficulty:   sec.Difficulty,
			AudioURL:     doc.Sections[si].AudioURL,
			PassageTitle: doc.Sections[si].PassageTitle,
			PassageText:  doc.Sections[si].PassageText,
		}
		for gi, grp := range sec.Groups {
			gv := groupView{
				Type:        grp.Type,
				Instruction: grp.Instruction,
				Range:       res.Stats[si].Groups[gi].QuestionRange,
				Questions:   make([]questionView, 0, len(grp.Questions)),
			}
			for _, q := range grp.Questions {
				gv.Questions = append(gv.Questions, questionView{Number: q.Number, Prompt: q.Prompt()})
			}
			sv.Groups = append(sv.Groups, gv)
		}
		view.Sections = append(view.Sections, sv)
	}
	if u := model.UserFromContext(r.Context()); u != nil && u.Role != model.UserRoleCandidate {
		view.Diagnostics = &res.Diagnostics
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleBandList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"components": h.grader.Registry.Components()})
}

func (h *Handler) handleBand(w http.ResponseWriter, r *http.Request) {
	component := chi.URLParam(r, "component")
	correct, err := strconv.Atoi(r.URL.Query().Get("correct"))
	if err != nil {
		writeErrorText(w, http.StatusBadRequest, "correct must be an integer")
		return
	}
	b, err := h.grader.Registry.Convert(component, correct)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"component": component,
		"correct":   correct,
		"band":      b,
		"label":     appI18n.Band(r.Context(), b),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}

// fail maps domain errors to status codes. Anything unrecognized is logged
// and reported as an internal error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, grading.ErrUnknownQuestion):
		writeError(w, r, http.StatusNotFound, "ErrUnknownQuestion")
	case errors.Is(err, grading.ErrInvalidGrade):
		writeError(w, r, http.StatusBadRequest, "ErrInvalidGrade")
	case errors.Is(err, band.ErrUnknownComponent):
		writeError(w, r, http.StatusNotFound, "ErrNotFound")
	case errors.Is(err, content.ErrInvalidContent):
		writeError(w, r, http.StatusUnprocessableEntity, "ErrInvalidContent")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorText(w, http.StatusInternalServerError, "internal error")
	}
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeErrorText(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeErrorText(w, status, appI18n.T(r.Context(), msgID))
}

func writeErrorText(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
