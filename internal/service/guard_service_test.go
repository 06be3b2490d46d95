package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liu0521613/StudArch-sub001/internal/models"
)

type gateStub struct {
	gated bool
	err   error
	calls int
}

func (g *gateStub) Gated(ctx context.Context, userID string) (bool, error) {
	g.calls++
	return g.gated, g.err
}

func rolePtr(r models.UserRole) *models.UserRole { return &r }

func TestGuardUnresolvedSessionIsPending(t *testing.T) {
	svc := NewGuardService(&gateStub{}, nil)

	decision := svc.Authorize(context.Background(), SessionState{Resolved: false}, rolePtr(models.RoleTeacher), "/teacher")
	require.Equal(t, DecisionPending, decision.Kind)
	require.Empty(t, decision.Path)
}

func TestGuardAnonymousRedirectsToLoginWithReturnTo(t *testing.T) {
	gate := &gateStub{gated: true}
	svc := NewGuardService(gate, nil)

	decision := svc.Authorize(context.Background(), SessionState{Resolved: true}, rolePtr(models.RoleStudent), "/student/records")
	require.Equal(t, DecisionRedirect, decision.Kind)
	require.Equal(t, LoginPath, decision.Path)
	require.Equal(t, "/student/records", decision.ReturnTo)
	// auth loses before the profile gate is even consulted
	require.Zero(t, gate.calls)
}

func TestGuardRoleMismatchRedirectsToOwnHome(t *testing.T) {
	svc := NewGuardService(&gateStub{}, nil)
	student := SessionState{Resolved: true, Principal: &models.Principal{ID: "u1", Role: models.RoleStudent}}

	decision := svc.Authorize(context.Background(), student, rolePtr(models.RoleTeacher), "/teacher")
	require.Equal(t, DecisionRedirect, decision.Kind)
	require.Equal(t, "/student", decision.Path)
}

func TestGuardAdminDoesNotInheritTeacherAccess(t *testing.T) {
	svc := NewGuardService(&gateStub{}, nil)
	admin := SessionState{Resolved: true, Principal: &models.Principal{ID: "a1", Role: models.RoleAdmin}}

	decision := svc.Authorize(context.Background(), admin, rolePtr(models.RoleTeacher), "/teacher")
	require.Equal(t, DecisionRedirect, decision.Kind)
	require.Equal(t, "/admin", decision.Path)
}

func TestGuardGatedStudentRedirectsToOnboarding(t *testing.T) {
	gate := &gateStub{gated: true}
	svc := NewGuardService(gate, nil)
	student := SessionState{Resolved: true, Principal: &models.Principal{ID: "u1", Role: models.RoleStudent}}

	decision := svc.Authorize(context.Background(), student, rolePtr(models.RoleStudent), "/student/records")
	require.Equal(t, DecisionRedirect, decision.Kind)
	require.Equal(t, OnboardingPath, decision.Path)
	require.Equal(t, "/student/records", decision.ReturnTo)
}

func TestGuardOnboardingTargetBypassesGate(t *testing.T) {
	gate := &gateStub{gated: true}
	svc := NewGuardService(gate, nil)
	student := SessionState{Resolved: true, Principal: &models.Principal{ID: "u1", Role: models.RoleStudent}}

	decision := svc.Authorize(context.Background(), student, rolePtr(models.RoleStudent), OnboardingPath)
	require.Equal(t, DecisionAllow, decision.Kind)
	require.Zero(t, gate.calls)
}

func TestGuardCompletedStudentAllowed(t *testing.T) {
	svc := NewGuardService(&gateStub{gated: false}, nil)
	student := SessionState{Resolved: true, Principal: &models.Principal{ID: "u1", Role: models.RoleStudent}}

	decision := svc.Authorize(context.Background(), student, rolePtr(models.RoleStudent), "/student")
	require.Equal(t, DecisionAllow, decision.Kind)
}

func TestGuardGateErrorFailsClosed(t *testing.T) {
	gate := &gateStub{err: errors.New("profile store down")}
	svc := NewGuardService(gate, nil)
	student := SessionState{Resolved: true, Principal: &models.Principal{ID: "u1", Role: models.RoleStudent}}

	decision := svc.Authorize(context.Background(), student, rolePtr(models.RoleStudent), "/student")
	require.Equal(t, DecisionRedirect, decision.Kind)
	require.Equal(t, OnboardingPath, decision.Path)
}

func TestGuardTeacherSkipsProfileGate(t *testing.T) {
	gate := &gateStub{gated: true}
	svc := NewGuardService(gate, nil)
	teacher := SessionState{Resolved: true, Principal: &models.Principal{ID: "t1", Role: models.RoleTeacher}}

	decision := svc.Authorize(context.Background(), teacher, rolePtr(models.RoleTeacher), "/teacher")
	require.Equal(t, DecisionAllow, decision.Kind)
	require.Zero(t, gate.calls)
}

func TestGuardNoRequiredRoleStillGatesStudents(t *testing.T) {
	gate := &gateStub{gated: true}
	svc := NewGuardService(gate, nil)
	student := SessionState{Resolved: true, Principal: &models.Principal{ID: "u1", Role: models.RoleStudent}}

	decision := svc.Authorize(context.Background(), student, nil, "/shared")
	require.Equal(t, DecisionRedirect, decision.Kind)
	require.Equal(t, OnboardingPath, decision.Path)
}
