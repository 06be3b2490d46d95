package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/liu0521613/StudArch-sub001/internal/dto"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	appErrors "github.com/liu0521613/StudArch-sub001/pkg/errors"
	"github.com/liu0521613/StudArch-sub001/pkg/export"
)

type recordLister interface {
	List(ctx context.Context, query dto.RecordQuery, actor *models.Principal) ([]models.ReviewableRecord, *models.Pagination, error)
}

type importJobReader interface {
	GetJob(ctx context.Context, id string, actor *models.Principal) (*models.BatchImportJob, error)
}

// ExportFormat selects the rendered output.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes with download metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders review ledgers and import failure reports for
// download. Scope enforcement is delegated to the underlying services, so an
// export can never show more than the actor's own listings would.
type ExportService struct {
	records recordLister
	imports importJobReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(records recordLister, imports importJobReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		records: records,
		imports: imports,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

var reviewLedgerHeaders = []string{"Record ID", "Kind", "Owner", "Status", "Reviewed By", "Reviewed At", "Comment"}

// ReviewLedger exports the records visible to the actor as a CSV or PDF
// table.
func (s *ExportService) ReviewLedger(ctx context.Context, query dto.RecordQuery, actor *models.Principal, format ExportFormat) (*ExportResult, error) {
	if query.PageSize <= 0 {
		query.PageSize = 500
	}
	records, _, err := s.records.List(ctx, query, actor)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: reviewLedgerHeaders}
	for _, record := range records {
		row := map[string]string{
			"Record ID": record.ID,
			"Kind":      string(record.Kind),
			"Owner":     record.OwnerID,
			"Status":    string(record.Status),
		}
		if record.ReviewedBy != nil {
			row["Reviewed By"] = *record.ReviewedBy
		}
		if record.ReviewedAt != nil {
			row["Reviewed At"] = record.ReviewedAt.Format(time.RFC3339)
		}
		if record.ReviewComment != nil {
			row["Comment"] = *record.ReviewComment
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render ledger")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("review-ledger-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := s.pdf.Render(dataset, "Review Ledger")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render ledger")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("review-ledger-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
}

var importErrorHeaders = []string{"Row", "Error", "Raw Data"}

// ImportFailureReport exports one job's row errors as CSV, preserving the
// original row indices from the uploaded file.
func (s *ExportService) ImportFailureReport(ctx context.Context, jobID string, actor *models.Principal) (*ExportResult, error) {
	job, err := s.imports.GetJob(ctx, jobID, actor)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: importErrorHeaders}
	for _, rowErr := range job.RowErrors {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Row":      strconv.Itoa(rowErr.Row),
			"Error":    rowErr.Error,
			"Raw Data": rowErr.RawData,
		})
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render failure report")
	}
	return &ExportResult{
		FileName:    fmt.Sprintf("import-errors-%s.csv", job.ID),
		ContentType: "text/csv",
		Data:        data,
	}, nil
}
