// ABOUTME: Login endpoint issuing JWT access tokens.
// ABOUTME: Argon2 verification runs under the concurrency semaphore with timing normalization.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/varden/scanmgr/internal/auth"
)

// dummyPasswordHash is verified for nonexistent users so the login endpoint
// takes the same time whether or not the account exists.
const dummyPasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$" +
	"AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

type loginInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" maxLength:"255" doc:"Login name"`
		Password string `json:"password" minLength:"1" maxLength:"1024" doc:"Password"`
	}
}

type loginOutput struct {
	Body struct {
		Token     string `json:"token" doc:"Bearer access token"`
		ExpiresIn int64  `json:"expires_in" doc:"Token lifetime in seconds"`
	}
}

// loginHandler handles POST /api/v1/auth/login. Nonexistent users still run
// argon2 to normalize response timing.
func (srv *Server) loginHandler(ctx context.Context, input *loginInput) (*loginOutput, error) {
	user, err := srv.store.GetUserByName(ctx, input.Body.Username)
	if err != nil {
		slog.ErrorContext(ctx, "login: lookup user", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	if user == nil || user.PasswordHash == "" {
		if !srv.acquireArgon2() {
			return nil, huma.Error503ServiceUnavailable("server busy, please retry")
		}
		_, _ = auth.VerifyPassword(input.Body.Password, dummyPasswordHash) //nolint:errcheck
		srv.releaseArgon2()
		return nil, huma.Error401Unauthorized("invalid credentials")
	}

	if !srv.acquireArgon2() {
		return nil, huma.Error503ServiceUnavailable("server busy, please retry")
	}
	ok, err := auth.VerifyPassword(input.Body.Password, user.PasswordHash)
	srv.releaseArgon2()
	if err != nil {
		slog.ErrorContext(ctx, "login: verify password", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if !ok {
		return nil, huma.Error401Unauthorized("invalid credentials")
	}

	ttl := srv.cfg.AccessTokenTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	token, err := auth.IssueAccessToken([]byte(srv.cfg.JWTSecret), user.ID, user.Name, user.Admin, ttl)
	if err != nil {
		slog.ErrorContext(ctx, "login: issue access token", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	out := &loginOutput{}
	out.Body.Token = token
	out.Body.ExpiresIn = int64(ttl.Seconds())
	return out, nil
}

// registerAuthRoutes registers the auth routes on the public huma API.
func registerAuthRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID:   "login",
		Method:        http.MethodPost,
		Path:          "/login",
		Tags:          []string{"auth"},
		Summary:       "Log in and receive an access token",
		DefaultStatus: http.StatusOK,
	}, srv.loginHandler)
}
