package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bazarly/promo-api/internal/models"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
)

func ledgerFixture() *mockRequestRepo {
	reviewed := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	reviewer := "admin-1"
	notes := "looks good"
	return &mockRequestRepo{
		listResult: []models.PromotionRequest{
			{ID: 1, ListingID: 42, PackageID: 7, RequesterID: "user-1", Status: models.RequestStatusApproved, RequestedAt: reviewed.Add(-24 * time.Hour), ReviewedAt: &reviewed, ReviewerID: &reviewer, Notes: &notes},
			{ID: 2, ListingID: 43, PackageID: 7, RequesterID: "user-2", Status: models.RequestStatusPending, RequestedAt: reviewed},
		},
		listTotal: 2,
	}
}

func TestExportLedgerCSV(t *testing.T) {
	svc := NewExportService(ledgerFixture(), ExportConfig{}, zap.NewNop(), nil, nil)

	doc, err := svc.ExportLedger(context.Background(), nil, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.ContentType)
	assert.True(t, strings.HasSuffix(doc.Filename, ".csv"))

	body := string(doc.Data)
	assert.Contains(t, body, "ID,Listing,Package,Requester,Status")
	assert.Contains(t, body, "APPROVED")
	assert.Contains(t, body, "user-2")
	assert.Contains(t, body, "looks good")
}

func TestExportLedgerPDF(t *testing.T) {
	svc := NewExportService(ledgerFixture(), ExportConfig{}, zap.NewNop(), nil, nil)

	doc, err := svc.ExportLedger(context.Background(), nil, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(string(doc.Data), "%PDF"))
}

func TestExportLedgerUnsupportedFormat(t *testing.T) {
	svc := NewExportService(ledgerFixture(), ExportConfig{}, zap.NewNop(), nil, nil)
	_, err := svc.ExportLedger(context.Background(), nil, ExportFormat("xlsx"))
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, format)

	format, err = ParseExportFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, format)

	_, err = ParseExportFormat("docx")
	require.Error(t, err)
}
