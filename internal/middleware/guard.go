package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/liu0521613/StudArch-sub001/internal/models"
	"github.com/liu0521613/StudArch-sub001/internal/service"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
	"github.com/liu0521613/StudArch-sub001/pkg/response"
)

// Guard enforces the access gate on a route: authentication first, then an
// exact role match, then the student onboarding gate. Denials are silent
// redirects expressed in response metadata; an unresolved session yields a
// retryable pending answer, never content.
func Guard(guardSvc *service.GuardService, metricsSvc *service.MetricsService, requiredRole *models.UserRole) gin.HandlerFunc {
	return guardTarget(guardSvc, metricsSvc, requiredRole, "")
}

// GuardOnboarding guards the profile onboarding endpoints themselves: the
// completion gate must not lock a student out of the pages that clear it.
func GuardOnboarding(guardSvc *service.GuardService, metricsSvc *service.MetricsService) gin.HandlerFunc {
	role := models.RoleStudent
	return guardTarget(guardSvc, metricsSvc, &role, service.OnboardingPath)
}

func guardTarget(guardSvc *service.GuardService, metricsSvc *service.MetricsService, requiredRole *models.UserRole, target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := SessionState(c)
		routeTarget := target
		if routeTarget == "" {
			routeTarget = c.Request.URL.Path
		}
		decision := guardSvc.Authorize(c.Request.Context(), state, requiredRole, routeTarget)
		metricsSvc.ObserveGuardDecision(string(decision.Kind))

		switch decision.Kind {
		case service.DecisionAllow:
			c.Next()
			return
		case service.DecisionPending:
			c.Header("Retry-After", "1")
			response.ErrorWithMeta(c, appErrors.ErrCollaboratorUnavailable, map[string]interface{}{
				"decision": string(service.DecisionPending),
			})
			c.Abort()
			return
		}

		meta := map[string]interface{}{
			"decision": string(service.DecisionRedirect),
			"location": decision.Path,
		}
		if decision.ReturnTo != "" {
			meta["return_to"] = decision.ReturnTo
		}

		status := appErrors.ErrForbidden
		if decision.Path == service.LoginPath {
			status = appErrors.ErrUnauthorized
		}
		response.ErrorWithMeta(c, status, meta)
		c.Abort()
	}
}

// RequireRole is a convenience wrapper for routes guarded by one exact role.
func RequireRole(guardSvc *service.GuardService, metricsSvc *service.MetricsService, role models.UserRole) gin.HandlerFunc {
	return Guard(guardSvc, metricsSvc, &role)
}

// RequireAnyAuthenticated guards a route without a role requirement; the
// onboarding gate still applies to students.
func RequireAnyAuthenticated(guardSvc *service.GuardService, metricsSvc *service.MetricsService) gin.HandlerFunc {
	return Guard(guardSvc, metricsSvc, nil)
}
