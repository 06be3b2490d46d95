package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	"github.com/liu0521613/StudArch-sub001/internal/service"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
	"github.com/liu0521613/StudArch-sub001/pkg/response"
)

// ReviewHandler serves the record review workflow.
type ReviewHandler struct {
	reviews *service.ReviewService
	proofs  *service.ProofService
	metrics *service.MetricsService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(reviews *service.ReviewService, proofs *service.ProofService, metrics *service.MetricsService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, proofs: proofs, metrics: metrics}
}

// Create godoc
// @Summary Submit a record
// @Description Create a pending record owned by the current student
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body dto.CreateRecordRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /records [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}

	record, err := h.reviews.CreateRecord(c.Request.Context(), principal, models.RecordKind(req.Kind), req.Payload, req.ProofFiles)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Get godoc
// @Summary Fetch a record
// @Description Return one record within the caller's scope
// @Tags Records
// @Produce json
// @Param id path string true "Record id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{id} [get]
func (h *ReviewHandler) Get(c *gin.Context) {
	record, err := h.reviews.Get(c.Request.Context(), c.Param("id"), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List godoc
// @Summary List records
// @Description Return records within the caller's scope with pagination
// @Tags Records
// @Produce json
// @Param kind query string false "Record kind"
// @Param status query string false "Review status"
// @Param owner_id query string false "Owner user id"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /records [get]
func (h *ReviewHandler) List(c *gin.Context) {
	var query dto.RecordQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	records, pagination, err := h.reviews.List(c.Request.Context(), query, principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Decide godoc
// @Summary Review a record
// @Description Approve or reject a pending record
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Record id"
// @Param payload body dto.DecideRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /records/{id}/decision [post]
func (h *ReviewHandler) Decide(c *gin.Context) {
	var req dto.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	record, err := h.reviews.Decide(c.Request.Context(), c.Param("id"), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveReviewDecision(string(record.Kind), string(record.Status))
	response.JSON(c, http.StatusOK, record, nil)
}

// Reopen godoc
// @Summary Reopen a record
// @Description Move a decided record back to pending
// @Tags Records
// @Produce json
// @Param id path string true "Record id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /records/{id}/reopen [post]
func (h *ReviewHandler) Reopen(c *gin.Context) {
	record, err := h.reviews.Reopen(c.Request.Context(), c.Param("id"), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveReviewDecision(string(record.Kind), string(record.Status))
	response.JSON(c, http.StatusOK, record, nil)
}

// UploadProof godoc
// @Summary Upload a proof file
// @Description Store a supporting document for later attachment to a record
// @Tags Records
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Proof file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /records/proofs [post]
func (h *ReviewHandler) UploadProof(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	relPath, err := h.proofs.Upload(c.Request.Context(), principal.ID, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"path": relPath})
}

// ProofLink godoc
// @Summary Issue a proof download link
// @Description Return a time-limited signed link for a record's proof file
// @Tags Records
// @Produce json
// @Param id path string true "Record id"
// @Param path query string true "Stored proof path"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{id}/proof-link [get]
func (h *ReviewHandler) ProofLink(c *gin.Context) {
	record, err := h.reviews.Get(c.Request.Context(), c.Param("id"), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	relPath := c.Query("path")
	token, expiresAt, err := h.proofs.SignedLink(record, relPath)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	}, nil)
}

// DownloadProof godoc
// @Summary Download a proof file
// @Description Serve a proof file referenced by a valid signed token
// @Tags Records
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /records/proofs/download [get]
func (h *ReviewHandler) DownloadProof(c *gin.Context) {
	file, name, err := h.proofs.OpenByToken(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.FileAttachment(file.Name(), name)
}
