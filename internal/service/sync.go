package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/queue/client"
	"github.com/tajer-app/locations/internal/queue/task"
	"github.com/tajer-app/locations/internal/repository"
	"github.com/tajer-app/locations/pkg/logger"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type syncService struct {
	progressRepository repository.SyncProgress
	logRepository      repository.SyncLogs
	catalog            PartnerCatalog
	enqueuer           client.Enqueuer
	inspector          client.Inspector
	cfg                config.SyncConfig
	now                func() time.Time
}

func newSyncService(
	progressRepository repository.SyncProgress,
	logRepository repository.SyncLogs,
	catalog PartnerCatalog,
	enqueuer client.Enqueuer,
	inspector client.Inspector,
	cfg config.SyncConfig,
) *syncService {
	return &syncService{
		progressRepository: progressRepository,
		logRepository:      logRepository,
		catalog:            catalog,
		enqueuer:           enqueuer,
		inspector:          inspector,
		cfg:                cfg,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// Trigger creates a pending run and enqueues its job. When the partner
// already has a live run that one is returned with joined set. A run that
// has not moved for longer than the stale timeout is failed and replaced.
func (s *syncService) Trigger(ctx context.Context, input TriggerSyncInput) (*domain.SyncProgress, bool, error) {
	partner := input.Partner.Normalize()
	if !s.catalog.Supports(partner) {
		return nil, false, domain.ErrUnknownPartner
	}
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return nil, false, domain.ErrMissingPartnerToken
	}

	now := s.now()

	active, err := s.progressRepository.FindActive(ctx, partner)
	switch {
	case err == nil:
		if !active.IsStale(now, s.cfg.StaleAfter) {
			return active, true, nil
		}
		msg := fmt.Sprintf("no progress since %s, superseded by a new run", active.UpdatedAt.Format(time.RFC3339))
		if err := s.progressRepository.Finish(ctx, active.ID, domain.SyncStatusFailed, &msg, now); err != nil &&
			!errors.Is(err, domain.ErrInvalidTransition) {
			return nil, false, fmt.Errorf("fail stale sync failed: %w", err)
		}
		logger.Warn("stale sync failed", zap.String("progress_id", active.ID.String()), zap.String("partner", partner.String()))
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, false, fmt.Errorf("find active sync failed: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("generate progress id failed: %w", err)
	}

	progress := &domain.SyncProgress{
		ID:          id,
		TriggeredBy: input.TriggeredBy,
		Partner:     partner,
		SyncType:    domain.SyncTypeCitiesRegions,
		Status:      domain.SyncStatusPending,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.progressRepository.Create(ctx, progress); err != nil {
		return nil, false, fmt.Errorf("create sync progress failed: %w", err)
	}

	syncTask, err := task.NewLocationSyncTask(task.LocationSync{
		ProgressID:  progress.ID,
		Partner:     partner,
		Token:       token,
		TriggeredBy: input.TriggeredBy,
	}, s.cfg.TaskTimeout)
	if err == nil {
		_, err = s.enqueuer.EnqueueContext(ctx, syncTask)
	}
	if err != nil {
		msg := "enqueue sync job failed: " + err.Error()
		if finishErr := s.progressRepository.Finish(ctx, progress.ID, domain.SyncStatusFailed, &msg, s.now()); finishErr != nil {
			logger.Error("fail unqueued sync failed", zap.Error(finishErr))
		}
		return nil, false, fmt.Errorf("enqueue sync task failed: %w", err)
	}

	logger.Info("sync enqueued",
		zap.String("progress_id", progress.ID.String()),
		zap.String("partner", partner.String()),
		zap.String("triggered_by", input.TriggeredBy),
	)

	return progress, false, nil
}

func (s *syncService) Get(ctx context.Context, id uuid.UUID) (*domain.SyncProgress, error) {
	return s.progressRepository.GetByID(ctx, id)
}

// Cancel closes a live run as cancelled and stops its job. The worker sees
// its context cancelled and stops between cities.
func (s *syncService) Cancel(ctx context.Context, id uuid.UUID, cancelledBy string) (*domain.SyncProgress, error) {
	progress, err := s.progressRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !progress.Status.CanTransitionTo(domain.SyncStatusCancelled) {
		return nil, domain.ErrInvalidTransition
	}

	switch progress.Status {
	case domain.SyncStatusPending:
		if err := s.inspector.DeleteTask(task.LocationSyncQueueName, id.String()); err != nil {
			logger.Debug("delete pending sync task", zap.String("progress_id", id.String()), zap.Error(err))
		}
	case domain.SyncStatusInProgress:
		if err := s.inspector.CancelProcessing(id.String()); err != nil {
			logger.Warn("cancel sync task failed", zap.String("progress_id", id.String()), zap.Error(err))
		}
	}

	msg := "cancelled by " + cancelledBy
	if err := s.progressRepository.Finish(ctx, id, domain.SyncStatusCancelled, &msg, s.now()); err != nil {
		return nil, err
	}

	return s.progressRepository.GetByID(ctx, id)
}

func (s *syncService) History(ctx context.Context, limit int) ([]domain.SyncProgress, error) {
	return s.progressRepository.List(ctx, clampLimit(limit))
}

func (s *syncService) Logs(ctx context.Context, limit int) ([]domain.SyncLogEntry, error) {
	return s.logRepository.List(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
