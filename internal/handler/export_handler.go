package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/service"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
	"github.com/liu0521613/StudArch-sub001/pkg/response"
)

// ExportHandler serves downloadable review ledgers.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// ReviewLedger godoc
// @Summary Export the review ledger
// @Description Render the caller's visible records as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Param kind query string false "Record kind"
// @Param status query string false "Review status"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /records/export [get]
func (h *ExportHandler) ReviewLedger(c *gin.Context) {
	var query dto.RecordQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.exports.ReviewLedger(c.Request.Context(), query, principalFromContext(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
