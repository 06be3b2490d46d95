package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liu0521613/StudArch-sub001/internal/models"
	"github.com/liu0521613/StudArch-sub001/internal/service"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
	"github.com/liu0521613/StudArch-sub001/pkg/jobs"
	"github.com/liu0521613/StudArch-sub001/pkg/response"
)

// ImportHandlerConfig controls batch execution behaviour.
type ImportHandlerConfig struct {
	Async      bool
	Workers    int
	MaxRetries int
}

type importTask struct {
	job             *models.BatchImportJob
	rows            []service.RawRow
	assignTeacherID string
}

// ImportHandler accepts batch upload files and tracks their jobs. Processing
// runs inline or on a worker queue depending on configuration; either way the
// job record is the source of truth for progress.
type ImportHandler struct {
	imports *service.ImportService
	exports *service.ExportService
	metrics *service.MetricsService
	logger  *zap.Logger
	queue   *jobs.Queue
	async   bool
}

// NewImportHandler constructs the handler and its worker queue.
func NewImportHandler(imports *service.ImportService, exports *service.ExportService, metrics *service.MetricsService, logger *zap.Logger, cfg ImportHandlerConfig) *ImportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &ImportHandler{
		imports: imports,
		exports: exports,
		metrics: metrics,
		logger:  logger,
		async:   cfg.Async,
	}
	h.queue = jobs.NewQueue("batch-imports", h.processTask, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return h
}

// Start launches the background workers.
func (h *ImportHandler) Start(ctx context.Context) {
	if h.async {
		h.queue.Start(ctx)
	}
}

// Stop drains the background workers.
func (h *ImportHandler) Stop() {
	if h.async {
		h.queue.Stop()
	}
}

func (h *ImportHandler) processTask(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(importTask)
	if !ok {
		h.logger.Error("unexpected import task payload", zap.String("job_id", job.ID))
		return nil
	}
	processed, err := h.imports.Process(ctx, task.job, task.rows, task.assignTeacherID)
	if err != nil {
		return err
	}
	h.metrics.ObserveImportRows(string(processed.Kind), processed.SuccessRows, processed.FailedRows)
	return nil
}

// Submit godoc
// @Summary Upload a batch file
// @Description Register and process a CSV batch import
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Param kind formData string true "Import kind"
// @Param assign_to_roster formData bool false "Assign imported students to the caller's roster"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /imports [post]
func (h *ImportHandler) Submit(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if principal.Role == models.RoleStudent {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students cannot run imports"))
		return
	}

	kind := models.ImportKind(c.PostForm("kind"))
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

	assignTeacherID := ""
	if c.PostForm("assign_to_roster") == "true" && principal.Role == models.RoleTeacher {
		assignTeacherID = principal.ID
	}

	job, rows, err := h.imports.Submit(c.Request.Context(), kind, principal.ID, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	if job.Terminal() {
		// the file itself did not parse; nothing to process
		response.JSON(c, http.StatusOK, job, nil)
		return
	}

	if h.async {
		if err := h.queue.Enqueue(jobs.Job{
			ID:      job.ID,
			Type:    string(job.Kind),
			Payload: importTask{job: job, rows: rows, assignTeacherID: assignTeacherID},
		}); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue import"))
			return
		}
		response.JSON(c, http.StatusAccepted, job, nil)
		return
	}

	processed, err := h.imports.Process(c.Request.Context(), job, rows, assignTeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveImportRows(string(processed.Kind), processed.SuccessRows, processed.FailedRows)
	response.JSON(c, http.StatusOK, processed, nil)
}

// Get godoc
// @Summary Fetch a job
// @Description Return one import job with its row accounting
// @Tags Imports
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /imports/{id} [get]
func (h *ImportHandler) Get(c *gin.Context) {
	job, err := h.imports.GetJob(c.Request.Context(), c.Param("id"), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// List godoc
// @Summary List jobs
// @Description Return the caller's recent import jobs
// @Tags Imports
// @Produce json
// @Param limit query int false "Max jobs"
// @Success 200 {object} response.Envelope
// @Router /imports [get]
func (h *ImportHandler) List(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := parsePositiveInt(raw); err == nil {
			limit = parsed
		}
	}
	listed, err := h.imports.ListJobs(c.Request.Context(), principalFromContext(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listed, nil)
}

// FailureReport godoc
// @Summary Download row errors
// @Description Export one job's failed rows as CSV
// @Tags Imports
// @Produce text/csv
// @Param id path string true "Job id"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /imports/{id}/errors [get]
func (h *ImportHandler) FailureReport(c *gin.Context) {
	result, err := h.exports.ImportFailureReport(c.Request.Context(), c.Param("id"), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
