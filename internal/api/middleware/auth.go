package middleware

import (
	"context"
	"errors"
	"net/http"

	"blogapi/internal/app/service"
	"blogapi/internal/common"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const IdentityCtxKey contextKey = "identity"

var (
	errNoToken     = common.NewError(common.ErrUnauthorized, "Not authorized, no token")
	errTokenFailed = common.NewError(common.ErrUnauthorized, "Not authorized, token failed")
)

// Auth turns the token found by jwtauth.Verifier into a caller Identity.
type Auth struct {
	access *service.AccessControl
}

func NewAuth(access *service.AccessControl) *Auth {
	return &Auth{access: access}
}

// Authenticator rejects requests without a valid, unrevoked token for an existing user.
func (a *Auth) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.resolve(r)
		if err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// OptionalAuthenticator attaches the caller when the token is valid and continues
// anonymously otherwise.
func (a *Auth) OptionalAuthenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.resolve(r)
		if err != nil {
			if !errors.Is(err, common.ErrUnauthorized) {
				common.RespondWithDomainError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// AdminOnly must run after Authenticator.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if err := service.RequireAdmin(identity); err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) resolve(r *http.Request) (*service.Identity, error) {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		if errors.Is(err, jwtauth.ErrNoTokenFound) {
			return nil, errNoToken
		}
		return nil, errTokenFailed
	}
	if token == nil {
		return nil, errNoToken
	}
	return a.access.IdentityFromClaims(r.Context(), jwt.MapClaims(claims))
}

func WithIdentity(ctx context.Context, identity *service.Identity) context.Context {
	return context.WithValue(ctx, IdentityCtxKey, identity)
}

// IdentityFromContext returns the authenticated caller, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *service.Identity {
	identity, _ := ctx.Value(IdentityCtxKey).(*service.Identity)
	return identity
}
