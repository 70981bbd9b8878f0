// ABOUTME: RequireAuthenticated middleware for JWT Bearer auth.
// ABOUTME: Injects the acl.User identity into the request context.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/varden/scanmgr/internal/acl"
	"github.com/varden/scanmgr/internal/auth"
)

// RequireAuthenticated returns a middleware requiring a valid JWT access token
// in the Authorization header. On success the user identity is injected into
// the request context for handlers and the listing access clauses.
func (srv *Server) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseAccessToken(strings.TrimPrefix(header, "Bearer "), []byte(srv.cfg.JWTSecret))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			user := acl.User{ID: claims.UserID, Name: claims.Username, Admin: claims.Admin}
			ctx := context.WithValue(r.Context(), ctxUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
