package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bazarly/promo-api/internal/models"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
	"github.com/bazarly/promo-api/pkg/export"
)

// ExportFormat selects the rendered ledger document type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportConfig caps export size.
type ExportConfig struct {
	MaxRows int
}

// ExportDocument is a rendered ledger export ready to stream to the client.
type ExportDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders the promotion request ledger into CSV or PDF for
// admin reporting.
type ExportService struct {
	requests requestLedgerRepository
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(requests requestLedgerRepository, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{requests: requests, csv: csv, pdf: pdf, logger: logger, cfg: cfg}
}

var ledgerHeaders = []string{"ID", "Listing", "Package", "Requester", "Status", "Requested At", "Reviewed At", "Reviewer", "Notes"}

// ExportLedger renders the request ledger, optionally filtered by status.
func (s *ExportService) ExportLedger(ctx context.Context, status *models.RequestStatus, format ExportFormat) (*ExportDocument, error) {
	filter := models.RequestFilter{Status: status, Page: 1, PageSize: s.cfg.MaxRows}
	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request ledger")
	}
	if total > s.cfg.MaxRows {
		s.logger.Warn("ledger export truncated", zap.Int("total", total), zap.Int("max_rows", s.cfg.MaxRows))
	}

	dataset := export.Dataset{Headers: ledgerHeaders, Rows: make([]map[string]string, 0, len(requests))}
	for _, req := range requests {
		dataset.Rows = append(dataset.Rows, ledgerRow(req))
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportDocument{
			Filename:    fmt.Sprintf("promotion-requests-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, "Promotion Request Ledger")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportDocument{
			Filename:    fmt.Sprintf("promotion-requests-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func ledgerRow(req models.PromotionRequest) map[string]string {
	row := map[string]string{
		"ID":           strconv.FormatInt(req.ID, 10),
		"Listing":      strconv.FormatInt(req.ListingID, 10),
		"Package":      strconv.FormatInt(req.PackageID, 10),
		"Requester":    req.RequesterID,
		"Status":       string(req.Status),
		"Requested At": req.RequestedAt.Format(time.RFC3339),
	}
	if req.ReviewedAt != nil {
		row["Reviewed At"] = req.ReviewedAt.Format(time.RFC3339)
	}
	if req.ReviewerID != nil {
		row["Reviewer"] = *req.ReviewerID
	}
	if req.Notes != nil {
		row["Notes"] = strings.ReplaceAll(*req.Notes, "\n", " ")
	}
	return row
}

// ParseExportFormat maps a query value onto a supported format.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return ExportFormatCSV, nil
	case "pdf":
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}
