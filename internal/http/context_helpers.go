package httpx

import (
	"context"

	domainauth "github.com/monanga/monanga-business/internal/domain/auth"
	"github.com/monanga/monanga-business/internal/domain/model"
)

// authKey is an unexported context key type to avoid collisions across packages.
type authKey struct{}

// AuthInfo carries the authenticated user and session for a request.
type AuthInfo struct {
	User    *model.User
	Session *domainauth.Session
}

// SetAuthInContext returns a child context that carries the authenticated
// user and session. Nil info returns the original ctx unchanged.
func SetAuthInContext(ctx context.Context, info *AuthInfo) context.Context {
	if info == nil || info.User == nil {
		return ctx
	}
	return context.WithValue(ctx, authKey{}, info)
}

// AuthFromContext returns the request's auth info and whether it is present.
func AuthFromContext(ctx context.Context) (*AuthInfo, bool) {
	if info, ok := ctx.Value(authKey{}).(*AuthInfo); ok && info != nil && info.User != nil {
		return info, true
	}
	return nil, false
}
