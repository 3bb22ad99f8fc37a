package i18n

import "net/http"

// Middleware injects a localizer into every request context. The language
// comes from the lang query parameter when present, otherwise from the
// Accept-Language header.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := r.URL.Query().Get("lang")
			if lang == "" {
				lang = Negotiate(r.Header.Get("Accept-Language"))
			}
			w.Header().Set("Content-Language", lang)
			ctx := WithLocalizer(r.Context(), NewLocalizer(lang))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
