package middleware

import (
	"net/http"
	"strconv"
)

// CacheControl marks successful anonymous GET responses as publicly
// cacheable for maxAge seconds. Requests carrying credentials are marked
// private so shared caches never store per-user data.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	public := "public, max-age=" + strconv.Itoa(maxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				if bearerOrCookie(r) != "" {
					w.Header().Set("Cache-Control", "private, no-store")
				} else {
					w.Header().Set("Cache-Control", public)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
