package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/bandscore/internal/model"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

// csrfMiddleware implements the double-submit cookie pattern. Safe requests
// get a token cookie if they lack one; everything else must echo the cookie
// in the X-CSRF-Token header.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(csrfCookieName)
		hasCookie := err == nil && cookie.Value != ""

		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			token := ""
			if hasCookie {
				token = cookie.Value
			} else {
				token, err = generateCSRFToken()
				if err != nil {
					slog.Error("failed to generate CSRF token", "error", err)
					writeErrorText(w, http.StatusInternalServerError, "internal error")
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     h.cookiePath(),
					HttpOnly: false,
					Secure:   h.config.SecureCookies,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := model.ContextWithCSRFToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if !hasCookie {
			slog.Warn("CSRF cookie missing", "path", r.URL.Path)
			writeError(w, r, http.StatusForbidden, "ErrCSRF")
			return
		}
		headerToken := r.Header.Get(csrfHeaderName)
		if len(headerToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch", "path", r.URL.Path)
			writeError(w, r, http.StatusForbidden, "ErrCSRF")
			return
		}
		ctx := model.ContextWithCSRFToken(r.Context(), cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"token": model.CSRFTokenFromContext(r.Context())})
}

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}
		if authSess == nil {
			writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil || !user.Active {
			writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, http.StatusForbidden, "ErrForbidden")
		})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		writeError(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}
	if user == nil || !user.Active {
		writeError(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Info("failed login", "username", req.Username)
		writeError(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}
