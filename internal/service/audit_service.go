package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bazarly/promo-api/internal/models"
	"github.com/bazarly/promo-api/pkg/jobs"
)

// auditRecorder is the fire-and-forget audit sink services write through.
type auditRecorder interface {
	Record(entry models.AuditLog)
}

type auditLogRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService writes audit trail entries asynchronously through a worker queue.
type AuditService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService wires the audit queue onto the repository.
func NewAuditService(repo auditLogRepository, workers, bufferSize int, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(models.AuditLog)
		if !ok {
			return fmt.Errorf("unexpected audit payload type %T", job.Payload)
		}
		return repo.CreateAuditLog(ctx, &entry)
	}

	queue := jobs.NewQueue("audit", handler, jobs.Options{
		Workers: workers,
		Buffer:  bufferSize,
		Logger:  logger,
	})

	return &AuditService{queue: queue, logger: logger}
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues an audit entry. Failures are logged, never surfaced.
func (s *AuditService) Record(entry models.AuditLog) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Kind:    entry.Action,
		Payload: entry,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}
