package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/contractflow/contractflow/internal/adapter/http/response"
	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/usecase"
)

type contextKey string

const authActorKey contextKey = "auth_actor"

// Authenticator resolves a bearer token to the actor holding it
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Actor, error)
}

type AuthMiddleware struct {
	auth   Authenticator
	logger logger.Logger
}

func NewAuthMiddleware(auth Authenticator, log logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AuthMiddleware{
		auth:   auth,
		logger: log,
	}
}

// RequireAuth loads the current actor on every request, so a role change or
// a deleted account takes effect without waiting for the token to expire.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header required")
			return
		}

		// Extract Bearer token
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		actor, err := m.auth.Authenticate(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, usecase.ErrUnauthenticated) {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}
			m.logger.Error(r.Context(), "Failed to authenticate request", err, nil)
			response.InternalServerError(w, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), authActorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireAdmin ensures that the actor is an administrator
func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFromContext(r.Context()).IsAdministrator() {
			response.Forbidden(w, "Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext retrieves the authenticated actor from context
func ActorFromContext(ctx context.Context) *domain.Actor {
	if actor, ok := ctx.Value(authActorKey).(*domain.Actor); ok {
		return actor
	}
	return nil
}

// WithActor stores actor in ctx the same way RequireAuth does.
func WithActor(ctx context.Context, actor *domain.Actor) context.Context {
	return context.WithValue(ctx, authActorKey, actor)
}
