package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/bandscore/internal/content"
	"github.com/pavelanni/bandscore/internal/model"
	"github.com/pavelanni/bandscore/internal/numbering"
)

const maxTestUpload = 10 << 20

type createUserRequest struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Password    string         `json:"password"`
	Role        model.UserRole `json:"role"`
}

func validRole(r model.UserRole) bool {
	switch r {
	case model.UserRoleCandidate, model.UserRoleGrader, model.UserRoleAdmin:
		return true
	}
	return false
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(model.UserRole(r.URL.Query().Get("role")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorText(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeErrorText(w, http.StatusBadRequest, "username and password required")
		return
	}
	if req.Role == "" {
		req.Role = model.UserRoleCandidate
	}
	if !validRole(req.Role) {
		writeErrorText(w, http.StatusBadRequest, "role must be candidate, grader or admin")
		return
	}

	existing, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if existing != nil {
		writeErrorText(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	u := model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}
	id, err := h.store.CreateUser(u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u.ID = id
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "userID")
	if !ok {
		return
	}
	if current := model.UserFromContext(r.Context()); current != nil && current.ID == id {
		writeErrorText(w, http.StatusBadRequest, "cannot deactivate yourself")
		return
	}
	if err := h.store.ToggleUserActive(id); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.store.GetUserByID(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if u == nil {
		writeError(w, r, http.StatusNotFound, "ErrNotFound")
		return
	}
	slog.Info("toggled user", "user_id", id, "active", u.Active)
	writeJSON(w, http.StatusOK, u)
}

// handleCreateTest stores an authored test document sent as the request
// body. The name query parameter overrides the document's own name.
func (h *Handler) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTestUpload))
	if err != nil {
		writeErrorText(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	doc, err := content.Parse(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = doc.Name
	}
	if name == "" {
		writeErrorText(w, http.StatusBadRequest, "test name required")
		return
	}
	component := doc.Component
	if component != "" {
		if _, ok := h.grader.Registry.Table(component); !ok {
			writeError(w, r, http.StatusUnprocessableEntity, "ErrInvalidContent")
			return
		}
	}

	res := numbering.Number(doc.Sections)
	id, err := h.store.InsertTest(model.Test{Name: name, Component: component, Content: data})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("test created", "test_id", id, "name", name, "questions", res.Total.TotalQuestions)
	if !res.Diagnostics.Empty() {
		slog.Warn("test content has numbering diagnostics", "test_id", id,
			"unidentified", len(res.Diagnostics.Unidentified),
			"collisions", len(res.Diagnostics.Collisions),
			"unsupported_types", res.Diagnostics.UnsupportedTypes)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          id,
		"name":        name,
		"component":   component,
		"total":       res.Total,
		"diagnostics": res.Diagnostics,
	})
}
