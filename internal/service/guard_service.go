package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/liu0521613/StudArch-sub001/internal/models"
)

// Canonical navigation targets used by gate decisions.
const (
	LoginPath      = "/login"
	OnboardingPath = "/student-profile-edit"
)

// DecisionKind enumerates gate outcomes.
type DecisionKind string

const (
	// DecisionPending means the session has not been resolved yet; the
	// caller must show a neutral loading state, never content.
	DecisionPending  DecisionKind = "PENDING"
	DecisionAllow    DecisionKind = "ALLOW"
	DecisionRedirect DecisionKind = "REDIRECT"
)

// Decision is the gate verdict for one request. Redirects are silent: no
// error is attached, the caller just navigates.
type Decision struct {
	Kind DecisionKind
	// Path is the redirect target when Kind is DecisionRedirect.
	Path string
	// ReturnTo carries the originally requested location so a post-login
	// flow can come back to it.
	ReturnTo string
}

// SessionState is the resolver outcome handed to the gate. Resolved false
// models the interval before the session resolver has settled.
type SessionState struct {
	Resolved  bool
	Principal *models.Principal
}

// completionGate asks whether a student is still blocked by onboarding.
type completionGate interface {
	Gated(ctx context.Context, userID string) (bool, error)
}

// GuardService is the single role-authorization gate. Every protected
// operation declares its required role once and routes through here.
type GuardService struct {
	gate   completionGate
	logger *zap.Logger
}

// NewGuardService constructs the gate. The completion gate is optional; when
// nil, student onboarding is never enforced.
func NewGuardService(gate completionGate, logger *zap.Logger) *GuardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardService{gate: gate, logger: logger}
}

// RoleHomePath maps each role to its canonical landing page.
func RoleHomePath(role models.UserRole) string {
	switch role {
	case models.RoleAdmin:
		return "/admin"
	case models.RoleTeacher:
		return "/teacher"
	case models.RoleStudent:
		return "/student"
	}
	return LoginPath
}

// Authorize decides whether the session may reach target. The ordering is
// significant: auth before role before profile gate, so an unauthenticated
// student is sent to login, never told to finish onboarding first.
func (s *GuardService) Authorize(ctx context.Context, sess SessionState, requiredRole *models.UserRole, target string) Decision {
	if !sess.Resolved {
		return Decision{Kind: DecisionPending}
	}

	if sess.Principal == nil {
		return Decision{Kind: DecisionRedirect, Path: LoginPath, ReturnTo: target}
	}

	// Exact match only: no role hierarchy.
	if requiredRole != nil && sess.Principal.Role != *requiredRole {
		return Decision{Kind: DecisionRedirect, Path: RoleHomePath(sess.Principal.Role)}
	}

	if sess.Principal.Role == models.RoleStudent && target != OnboardingPath && s.gate != nil {
		gated, err := s.gate.Gated(ctx, sess.Principal.ID)
		if err != nil {
			// The gate could not be evaluated; force onboarding rather
			// than leak access. The onboarding page itself stays open.
			s.logger.Warn("completion gate check failed", zap.String("user_id", sess.Principal.ID), zap.Error(err))
			gated = true
		}
		if gated {
			return Decision{Kind: DecisionRedirect, Path: OnboardingPath, ReturnTo: target}
		}
	}

	return Decision{Kind: DecisionAllow}
}
