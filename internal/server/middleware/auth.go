package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/hrdesk/internal/auth"
)

// Auth requires a valid bearer token and stores its Principal in the
// request context. Browsers cannot set headers on WebSocket upgrades, so an
// access_token query parameter is accepted as well.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				tok = r.URL.Query().Get("access_token")
			}

			if tok != "" {
				claims, err := auth.ValidateToken(jwtSecret, tok)
				if err == nil {
					ctx := WithPrincipal(r.Context(), Principal{EmployeeID: claims.EmployeeID, Role: claims.Role})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("auth: rejected token")
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}
