// ABOUTME: Request context key types and constants for the api package.
// ABOUTME: Used by middleware to inject auth state and by handlers to read it.
package api

import (
	"context"

	"github.com/varden/scanmgr/internal/acl"
)

type contextKey int

const (
	ctxUser contextKey = iota // acl.User — authenticated user
)

// userFrom returns the authenticated user injected by RequireAuthenticated.
func userFrom(ctx context.Context) (acl.User, bool) {
	u, ok := ctx.Value(ctxUser).(acl.User)
	return u, ok
}
