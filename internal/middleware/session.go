package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liu0521613/StudArch-sub001/internal/models"
	"github.com/liu0521613/StudArch-sub001/internal/service"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
	"github.com/liu0521613/StudArch-sub001/pkg/response"
)

// SessionResolver is the slice of the auth service the session middleware
// needs. The strict variant keeps collaborator outages distinct from a
// plain missing session.
type SessionResolver interface {
	ResolveStrict(ctx context.Context, token string) (*models.Principal, error)
}

// ContextUserKey is the gin context key storing the resolved principal.
const ContextUserKey = "currentUser"

// ContextSessionKey stores the full session state for the access guard.
const ContextSessionKey = "sessionState"

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// Session resolves the request's session up front and records the outcome,
// never blocking the request itself. A missing or invalid token yields an
// anonymous state; a resolver collaborator outage yields an unresolved state
// so the guard answers Pending instead of guessing.
func Session(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := service.SessionState{Resolved: true}

		if token, ok := bearerToken(c); ok {
			principal, err := resolver.ResolveStrict(c.Request.Context(), token)
			switch {
			case err == nil:
				state.Principal = principal
				c.Set(ContextUserKey, principal)
			case appErrors.HasCode(err, appErrors.ErrCollaboratorUnavailable.Code):
				state.Resolved = false
			default:
				// fail closed: any resolution failure means no session
			}
		}

		c.Set(ContextSessionKey, state)
		c.Next()
	}
}

// SessionState pulls the resolver outcome from the context. Absent state
// is treated as unresolved, which keeps the guard failing closed.
func SessionState(c *gin.Context) service.SessionState {
	if value, ok := c.Get(ContextSessionKey); ok {
		if state, ok := value.(service.SessionState); ok {
			return state
		}
	}
	return service.SessionState{}
}

// CurrentPrincipal returns the resolved principal or nil.
func CurrentPrincipal(c *gin.Context) *models.Principal {
	if value, ok := c.Get(ContextUserKey); ok {
		if principal, ok := value.(*models.Principal); ok {
			return principal
		}
	}
	return nil
}

// RequireSession blocks anonymous requests. Routes behind the guard get this
// implicitly; it exists for endpoints that need a principal but no role.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentPrincipal(c) == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
