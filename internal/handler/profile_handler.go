package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	"github.com/liu0521613/StudArch-sub001/internal/service"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
	"github.com/liu0521613/StudArch-sub001/pkg/response"
)

// ProfileHandler serves the student profile onboarding flow.
type ProfileHandler struct {
	profiles *service.ProfileService
	roster   *service.RosterService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(profiles *service.ProfileService, roster *service.RosterService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, roster: roster}
}

type profileResponse struct {
	Profile    *models.StudentProfile `json:"profile"`
	Completion models.Completion      `json:"completion"`
}

// GetMine godoc
// @Summary Own profile
// @Description Return the current student's profile with completion state
// @Tags Profiles
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /profiles/me [get]
func (h *ProfileHandler) GetMine(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, completion, err := h.profiles.Get(c.Request.Context(), principal.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profileResponse{Profile: profile, Completion: completion}, nil)
}

// UpdateMine godoc
// @Summary Edit own profile
// @Description Update profile fields while the profile is editable
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /profiles/me [put]
func (h *ProfileHandler) UpdateMine(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.profiles.UpdateFields(c.Request.Context(), principal.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// SubmitMine godoc
// @Summary Submit profile for review
// @Description Move the profile into the pending review state
// @Tags Profiles
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /profiles/me/submit [post]
func (h *ProfileHandler) SubmitMine(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.profiles.Submit(c.Request.Context(), principal.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// GetStudent godoc
// @Summary Student profile
// @Description Return one student's profile; teachers are roster-scoped
// @Tags Profiles
// @Produce json
// @Param id path string true "Student user id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/profile [get]
func (h *ProfileHandler) GetStudent(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	studentID := c.Param("id")

	switch principal.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if err := h.roster.Authorize(c.Request.Context(), principal.ID, studentID); err != nil {
			response.Error(c, err)
			return
		}
	default:
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	profile, completion, err := h.profiles.Get(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profileResponse{Profile: profile, Completion: completion}, nil)
}
