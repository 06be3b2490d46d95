package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
)

type authRepoStub struct {
	users     map[string]*models.User
	lookupErr error
}

func (s *authRepoStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) UpdateLastLogin(context.Context, string, time.Time) error { return nil }
func (s *authRepoStub) UpdatePassword(context.Context, string, string, time.Time) error {
	return nil
}
func (s *authRepoStub) RevokeUserRefreshTokens(context.Context, string) error { return nil }
func (s *authRepoStub) CreateRefreshToken(context.Context, *models.RefreshToken) error {
	return nil
}
func (s *authRepoStub) FindRefreshToken(context.Context, string) (*models.RefreshToken, error) {
	return nil, sql.ErrNoRows
}
func (s *authRepoStub) RevokeRefreshToken(context.Context, string, time.Time) error { return nil }
func (s *authRepoStub) CreateAuditLog(context.Context, *models.AuditLog) error      { return nil }

func newResolverService(repo *authRepoStub) *AuthService {
	return NewAuthService(repo, nil, nil, nil, nil, AuthConfig{
		AccessTokenSecret: "resolver-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "studarch",
	})
}

func issueToken(t *testing.T, svc *AuthService, user *models.User) string {
	t.Helper()
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)
	return token
}

func activeStudent() *models.User {
	return &models.User{ID: "u1", Email: "alice@example.com", FullName: "Alice Zhang", Role: models.RoleStudent, Active: true}
}

func TestResolveStrictReturnsPrincipal(t *testing.T) {
	user := activeStudent()
	repo := &authRepoStub{users: map[string]*models.User{user.ID: user}}
	svc := newResolverService(repo)

	principal, err := svc.ResolveStrict(context.Background(), issueToken(t, svc, user))
	require.NoError(t, err)
	require.Equal(t, "u1", principal.ID)
	require.Equal(t, models.RoleStudent, principal.Role)
	require.Equal(t, "Alice Zhang", principal.DisplayName)
}

func TestResolveStrictRejectsMissingToken(t *testing.T) {
	svc := newResolverService(&authRepoStub{})

	_, err := svc.ResolveStrict(context.Background(), "")
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestResolveStrictRejectsForgedToken(t *testing.T) {
	user := activeStudent()
	repo := &authRepoStub{users: map[string]*models.User{user.ID: user}}
	svc := newResolverService(repo)

	other := NewAuthService(repo, nil, nil, nil, nil, AuthConfig{
		AccessTokenSecret: "other-secret",
		AccessTokenExpiry: time.Hour,
	})
	_, err := svc.ResolveStrict(context.Background(), issueToken(t, other, user))
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestResolveStrictRejectsDeactivatedAccount(t *testing.T) {
	user := activeStudent()
	repo := &authRepoStub{users: map[string]*models.User{user.ID: user}}
	svc := newResolverService(repo)
	token := issueToken(t, svc, user)

	user.Active = false
	_, err := svc.ResolveStrict(context.Background(), token)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestResolveStrictSurfacesIdentityStoreOutage(t *testing.T) {
	user := activeStudent()
	repo := &authRepoStub{users: map[string]*models.User{user.ID: user}}
	svc := newResolverService(repo)
	token := issueToken(t, svc, user)

	repo.lookupErr = errors.New("connection refused")
	_, err := svc.ResolveStrict(context.Background(), token)
	require.True(t, appErrors.HasCode(err, appErrors.ErrCollaboratorUnavailable.Code))
}

func TestResolveCollapsesOutageToUnauthorized(t *testing.T) {
	user := activeStudent()
	repo := &authRepoStub{users: map[string]*models.User{user.ID: user}}
	svc := newResolverService(repo)
	token := issueToken(t, svc, user)

	repo.lookupErr = errors.New("connection refused")
	_, err := svc.Resolve(context.Background(), token)
	require.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
	require.False(t, appErrors.HasCode(err, appErrors.ErrCollaboratorUnavailable.Code))
}
