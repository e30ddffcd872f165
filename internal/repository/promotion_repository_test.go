package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazarly/promo-api/internal/models"
)

func promotionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "listing_id", "package_id", "request_id", "priority", "start_at", "end_at", "status", "activated_by", "activated_at"})
}

func TestPromotionRepositoryApprove(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	now := time.Now().UTC()
	requestID := int64(11)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE promotion_requests SET status").
		WithArgs(models.RequestStatusApproved, sqlmock.AnyArg(), "admin-1", nil, requestID, models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO active_promotions").
		WithArgs(int64(42), int64(1), &requestID, 3, sqlmock.AnyArg(), sqlmock.AnyArg(), models.PromotionStatusActive, "admin-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(99))
	mock.ExpectExec("UPDATE listings SET is_promoted").
		WithArgs(3, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	promo := &models.ActivePromotion{
		ListingID:   42,
		PackageID:   1,
		RequestID:   &requestID,
		Priority:    3,
		StartAt:     now,
		EndAt:       now.Add(7 * 24 * time.Hour),
		Status:      models.PromotionStatusActive,
		ActivatedBy: "admin-1",
		ActivatedAt: now,
	}
	decision := DecisionParams{RequestID: requestID, ReviewerID: "admin-1", ReviewedAt: now}

	require.NoError(t, repo.Approve(context.Background(), promo, decision))
	assert.Equal(t, int64(99), promo.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepositoryApproveNeverLowersSignal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	now := time.Now().UTC()
	requestID := int64(12)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE promotion_requests SET status").
		WithArgs(models.RequestStatusApproved, sqlmock.AnyArg(), "admin-1", nil, requestID, models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO active_promotions").
		WithArgs(int64(42), int64(2), &requestID, 1, sqlmock.AnyArg(), sqlmock.AnyArg(), models.PromotionStatusActive, "admin-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	// A listing already carrying a live priority-3 promotion must keep its
	// signal when a priority-1 promotion is approved on top of it.
	mock.ExpectExec("UPDATE listings SET is_promoted = TRUE, promo_priority = GREATEST").
		WithArgs(1, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	promo := &models.ActivePromotion{
		ListingID:   42,
		PackageID:   2,
		RequestID:   &requestID,
		Priority:    1,
		StartAt:     now,
		EndAt:       now.Add(3 * 24 * time.Hour),
		Status:      models.PromotionStatusActive,
		ActivatedBy: "admin-1",
		ActivatedAt: now,
	}
	decision := DecisionParams{RequestID: requestID, ReviewerID: "admin-1", ReviewedAt: now}

	require.NoError(t, repo.Approve(context.Background(), promo, decision))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepositoryApproveAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	requestID := int64(11)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE promotion_requests SET status").
		WithArgs(models.RequestStatusApproved, sqlmock.AnyArg(), "admin-2", nil, requestID, models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	promo := &models.ActivePromotion{ListingID: 42, PackageID: 1, RequestID: &requestID, Priority: 3, ActivatedBy: "admin-2"}
	err := repo.Approve(context.Background(), promo, DecisionParams{RequestID: requestID, ReviewerID: "admin-2", ReviewedAt: time.Now()})
	require.ErrorIs(t, err, ErrRequestDecided)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepositoryReject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	notes := "listing violates promo policy"

	mock.ExpectExec("UPDATE promotion_requests SET status").
		WithArgs(models.RequestStatusRejected, sqlmock.AnyArg(), "admin-1", &notes, int64(11), models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Reject(context.Background(), DecisionParams{RequestID: 11, ReviewerID: "admin-1", Notes: &notes, ReviewedAt: time.Now()})
	require.NoError(t, err)
}

func TestPromotionRepositoryRejectAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	mock.ExpectExec("UPDATE promotion_requests SET status").
		WithArgs(models.RequestStatusRejected, sqlmock.AnyArg(), "admin-1", nil, int64(11), models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reject(context.Background(), DecisionParams{RequestID: 11, ReviewerID: "admin-1", ReviewedAt: time.Now()})
	require.ErrorIs(t, err, ErrRequestDecided)
}

func TestPromotionRepositoryListExpired(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, listing_id").
		WithArgs(models.PromotionStatusActive, now, 100).
		WillReturnRows(promotionRows().AddRow(99, 42, 1, 11, 3, now.Add(-8*24*time.Hour), now.Add(-24*time.Hour), "ACTIVE", "admin-1", now.Add(-8*24*time.Hour)))

	promos, err := repo.ListExpired(context.Background(), now, 0)
	require.NoError(t, err)
	require.Len(t, promos, 1)
	assert.Equal(t, int64(99), promos[0].ID)
}

func TestPromotionRepositoryRetireClearsSignal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE active_promotions SET status").
		WithArgs(models.PromotionStatusExpired, int64(99), models.PromotionStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT MAX").
		WithArgs(int64(42), models.PromotionStatusActive, now).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectExec("UPDATE listings SET is_promoted").
		WithArgs(false, 0, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	signal, retired, err := repo.Retire(context.Background(), models.ActivePromotion{ID: 99, ListingID: 42}, now)
	require.NoError(t, err)
	assert.True(t, retired)
	assert.False(t, signal.IsPromoted)
	assert.Zero(t, signal.Priority)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepositoryRetireKeepsSurvivingPriority(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE active_promotions SET status").
		WithArgs(models.PromotionStatusExpired, int64(99), models.PromotionStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT MAX").
		WithArgs(int64(42), models.PromotionStatusActive, now).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))
	mock.ExpectExec("UPDATE listings SET is_promoted").
		WithArgs(true, 2, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	signal, retired, err := repo.Retire(context.Background(), models.ActivePromotion{ID: 99, ListingID: 42}, now)
	require.NoError(t, err)
	assert.True(t, retired)
	assert.True(t, signal.IsPromoted)
	assert.Equal(t, 2, signal.Priority)
}

func TestPromotionRepositoryRetireAlreadyExpired(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE active_promotions SET status").
		WithArgs(models.PromotionStatusExpired, int64(99), models.PromotionStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, retired, err := repo.Retire(context.Background(), models.ActivePromotion{ID: 99, ListingID: 42}, now)
	require.NoError(t, err)
	assert.False(t, retired)
}
