package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/liu0521613/StudArch-sub001/internal/models"
	"github.com/liu0521613/StudArch-sub001/internal/service"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type resolverStub struct {
	principal *models.Principal
	err       error
	calls     int
}

func (s *resolverStub) ResolveStrict(context.Context, string) (*models.Principal, error) {
	s.calls++
	return s.principal, s.err
}

func runSession(t *testing.T, resolver SessionResolver, authHeader string) service.SessionState {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var state service.SessionState
	r := gin.New()
	r.Use(Session(resolver))
	r.GET("/whoami", func(c *gin.Context) {
		state = SessionState(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
	return state
}

func TestSessionAttachesPrincipal(t *testing.T) {
	resolver := &resolverStub{principal: &models.Principal{ID: "u1", Role: models.RoleStudent}}

	state := runSession(t, resolver, "Bearer token-1")
	require.True(t, state.Resolved)
	require.NotNil(t, state.Principal)
	require.Equal(t, "u1", state.Principal.ID)
}

func TestSessionAnonymousWithoutToken(t *testing.T) {
	resolver := &resolverStub{err: appErrors.ErrUnauthorized}

	state := runSession(t, resolver, "")
	require.True(t, state.Resolved)
	require.Nil(t, state.Principal)
	require.Zero(t, resolver.calls)
}

func TestSessionFailsClosedOnInvalidToken(t *testing.T) {
	resolver := &resolverStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "no session")}

	state := runSession(t, resolver, "Bearer expired")
	require.True(t, state.Resolved)
	require.Nil(t, state.Principal)
}

func TestSessionUnresolvedOnResolverOutage(t *testing.T) {
	resolver := &resolverStub{err: appErrors.Clone(appErrors.ErrCollaboratorUnavailable, "identity store unavailable")}

	state := runSession(t, resolver, "Bearer token-1")
	require.False(t, state.Resolved)
	require.Nil(t, state.Principal)
}
