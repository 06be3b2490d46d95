package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liu0521613/StudArch-sub001/internal/middleware"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	"github.com/liu0521613/StudArch-sub001/internal/service"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
	"github.com/liu0521613/StudArch-sub001/pkg/response"
)

// GuardHandler exposes the access gate as an endpoint so clients can ask
// whether a navigation target is reachable before rendering it.
type GuardHandler struct {
	guard   *service.GuardService
	metrics *service.MetricsService
}

// NewGuardHandler constructs the handler.
func NewGuardHandler(guard *service.GuardService, metrics *service.MetricsService) *GuardHandler {
	return &GuardHandler{guard: guard, metrics: metrics}
}

type accessDecisionResponse struct {
	Decision string `json:"decision"`
	Location string `json:"location,omitempty"`
	ReturnTo string `json:"return_to,omitempty"`
}

// Check godoc
// @Summary Evaluate route access
// @Description Decide whether the current session may reach a target path
// @Tags Access
// @Produce json
// @Param target query string true "Navigation target path"
// @Param role query string false "Role required by the target"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /access/check [get]
func (h *GuardHandler) Check(c *gin.Context) {
	target := c.Query("target")
	if target == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "target is required"))
		return
	}

	var requiredRole *models.UserRole
	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(raw)
		if !role.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown role"))
			return
		}
		requiredRole = &role
	}

	state := middleware.SessionState(c)
	decision := h.guard.Authorize(c.Request.Context(), state, requiredRole, target)
	h.metrics.ObserveGuardDecision(string(decision.Kind))

	response.JSON(c, http.StatusOK, accessDecisionResponse{
		Decision: string(decision.Kind),
		Location: decision.Path,
		ReturnTo: decision.ReturnTo,
	}, nil)
}

// Home godoc
// @Summary Role landing page
// @Description Return the canonical landing path for the session's role
// @Tags Access
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /access/home [get]
func (h *GuardHandler) Home(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"location": service.RoleHomePath(principal.Role)}, nil)
}
