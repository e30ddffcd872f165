package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazarly/promo-api/internal/models"
)

func requestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "listing_id", "package_id", "requester_id", "status", "requested_at", "reviewed_at", "reviewer_id", "notes"})
}

func TestRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery("INSERT INTO promotion_requests").
		WithArgs(int64(42), int64(1), "poster-1", models.RequestStatusPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	req := &models.PromotionRequest{ListingID: 42, PackageID: 1, RequesterID: "poster-1"}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, int64(11), req.ID)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.False(t, req.RequestedAt.IsZero())
}

func TestRequestRepositoryCreateDuplicatePending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery("INSERT INTO promotion_requests").
		WithArgs(int64(42), int64(1), "poster-1", models.RequestStatusPending, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	req := &models.PromotionRequest{ListingID: 42, PackageID: 1, RequesterID: "poster-1"}
	err := repo.Create(context.Background(), req)
	require.ErrorIs(t, err, ErrDuplicatePending)
}

func TestRequestRepositoryHasPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(42), models.RequestStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.HasPending(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRequestRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	status := models.RequestStatusPending
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id, listing_id").
		WithArgs(status, 20, 0).
		WillReturnRows(requestRows().AddRow(11, 42, 1, "poster-1", "PENDING", now, nil, nil, nil))

	requests, total, err := repo.List(context.Background(), models.RequestFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, requests, 1)
	assert.Equal(t, int64(42), requests[0].ListingID)
}

func TestRequestRepositoryListByRequester(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("poster-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT id, listing_id").
		WithArgs("poster-1", 20, 0).
		WillReturnRows(requestRows().
			AddRow(12, 43, 2, "poster-1", "APPROVED", now, now, "admin-1", "ok").
			AddRow(11, 42, 1, "poster-1", "PENDING", now.Add(-time.Hour), nil, nil, nil))

	requests, total, err := repo.List(context.Background(), models.RequestFilter{RequesterID: "poster-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, requests, 2)
	assert.Equal(t, models.RequestStatusApproved, requests[0].Status)
}
