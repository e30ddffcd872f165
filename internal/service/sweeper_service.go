package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bazarly/promo-api/internal/dto"
	"github.com/bazarly/promo-api/internal/models"
	appErrors "github.com/bazarly/promo-api/pkg/errors"
)

type sweepRepository interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.ActivePromotion, error)
	Retire(ctx context.Context, promo models.ActivePromotion, now time.Time) (models.RankingSignal, bool, error)
}

// SweeperConfig controls the periodic expiration pass.
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
	OnBoot    bool
}

// SweeperService retires promotions whose window has elapsed and lowers the
// listing ranking signal accordingly. Sweeps are idempotent: a promotion
// already retired by a concurrent pass is simply skipped.
type SweeperService struct {
	promotions sweepRepository
	metrics    *MetricsService
	logger     *zap.Logger
	config     SweeperConfig
}

// NewSweeperService constructs a SweeperService instance.
func NewSweeperService(promotions sweepRepository, metrics *MetricsService, logger *zap.Logger, config SweeperConfig) *SweeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &SweeperService{promotions: promotions, metrics: metrics, logger: logger, config: config}
}

// Sweep retires every promotion with end_at at or before now. A failing
// record is logged and skipped so one bad row never blocks the rest; it will
// be retried on the next pass.
func (s *SweeperService) Sweep(ctx context.Context, now time.Time) (*dto.SweepResult, error) {
	started := time.Now()
	result := &dto.SweepResult{RetiredIDs: []int64{}, SweptAt: now}

	for {
		expired, err := s.promotions.ListExpired(ctx, now, s.config.BatchSize)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired promotions")
		}
		if len(expired) == 0 {
			break
		}

		progressed := false
		for _, promo := range expired {
			signal, retired, err := s.promotions.Retire(ctx, promo, now)
			if err != nil {
				s.logger.Warn("failed to retire promotion, skipping",
					zap.Int64("promotion_id", promo.ID),
					zap.Int64("listing_id", promo.ListingID),
					zap.Error(err))
				continue
			}
			if !retired {
				// Lost to a concurrent sweep, nothing left to do.
				continue
			}
			progressed = true
			result.RetiredIDs = append(result.RetiredIDs, promo.ID)
			s.logger.Info("promotion retired",
				zap.Int64("promotion_id", promo.ID),
				zap.Int64("listing_id", promo.ListingID),
				zap.Bool("listing_still_promoted", signal.IsPromoted))
		}

		if len(expired) < s.config.BatchSize {
			break
		}
		if !progressed {
			// Every row in a full batch failed or was stolen; stop rather
			// than spin on the same rows.
			break
		}
	}

	result.Count = len(result.RetiredIDs)
	s.metrics.RecordSweep(result.Count, time.Since(started))
	if result.Count > 0 {
		s.logger.Info("expiration sweep finished", zap.Int("retired", result.Count))
	}
	return result, nil
}

// Start launches the periodic sweep loop. It returns immediately; the loop
// stops when ctx is cancelled.
func (s *SweeperService) Start(ctx context.Context) {
	go func() {
		if s.config.OnBoot {
			if _, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
				s.logger.Error("boot sweep failed", zap.Error(err))
			}
		}

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx, time.Now().UTC()); err != nil {
					s.logger.Error("scheduled sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
