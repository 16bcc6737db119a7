package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tajer-app/locations/internal/cache"
	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/queue/client"
	"github.com/tajer-app/locations/internal/queue/task"
	"github.com/tajer-app/locations/internal/repository"
	"github.com/tajer-app/locations/pkg/logger"
)

const defaultBatchSize = 100

// errRunClosed is returned when the progress row left in_progress under a
// running job, which only happens when it was cancelled through the api.
var errRunClosed = fmt.Errorf("sync run was closed: %w", context.Canceled)

type locationSync struct {
	repos          *repository.Repositories
	fetcher        LocationFetcher
	locker         Locker
	publisher      Publisher
	enqueuer       client.Enqueuer
	config         config.SyncConfig
	notifyFailures bool

	now func() time.Time
}

func newLocationSync(
	repos *repository.Repositories,
	fetcher LocationFetcher,
	locker Locker,
	publisher Publisher,
	enqueuer client.Enqueuer,
	config config.SyncConfig,
	notifyFailures bool,
) *locationSync {
	return &locationSync{
		repos:          repos,
		fetcher:        fetcher,
		locker:         locker,
		publisher:      publisher,
		enqueuer:       enqueuer,
		config:         config,
		notifyFailures: notifyFailures,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type syncedCity struct {
	id         uuid.UUID
	externalID string
	name       string
}

type syncStats struct {
	mu             sync.Mutex
	cities         int
	citiesSkipped  int
	regions        int
	regionsSkipped int
	citiesWithData []uuid.UUID
}

// addCity records a finished city. Only cities whose regions were all
// written take part in region deactivation, a skipped row still exists at
// the partner.
func (s *syncStats) addCity(cityID uuid.UUID, written, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.regions += written
	s.regionsSkipped += skipped
	if written > 0 && skipped == 0 {
		s.citiesWithData = append(s.citiesWithData, cityID)
	}
}

// Run executes one sync job end to end. The progress row has been created
// pending by the trigger, Run moves it to a terminal status in every path
// except when the row was already closed before the job started.
func (s *locationSync) Run(ctx context.Context, job task.LocationSync) error {
	startedAt := s.now()
	stats := &syncStats{}

	log := logger.Logger().With(
		zap.String("progress_id", job.ProgressID.String()),
		zap.String("partner", job.Partner.String()),
	)

	release, err := s.locker.Acquire(ctx, "sync:"+job.Partner.String(), s.lockTTL())
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			err = domain.ErrSyncAlreadyRunning
		}
		return s.finish(ctx, job, startedAt, stats, fmt.Errorf("acquire sync lock failed: %w", err))
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("release sync lock failed", zap.Error(err))
		}
	}()

	if err := s.repos.SyncProgress.MarkInProgress(ctx, job.ProgressID, startedAt); err != nil {
		if errors.Is(err, domain.ErrNoRowsAffected) {
			log.Info("sync run closed before start, skipping")
			return nil
		}
		return s.finish(ctx, job, startedAt, stats, fmt.Errorf("mark sync in progress failed: %w", err))
	}

	log.Info("location sync started")

	return s.finish(ctx, job, startedAt, stats, s.sync(ctx, job, stats))
}

func (s *locationSync) sync(ctx context.Context, job task.LocationSync, stats *syncStats) error {
	partnerCities, err := s.fetcher.FetchCities(ctx, job.Partner, job.Token)
	if err != nil {
		return fmt.Errorf("fetch cities failed: %w", err)
	}

	cities, err := s.upsertCities(ctx, job, partnerCities)
	if err != nil {
		return err
	}
	stats.cities = len(cities)
	stats.citiesSkipped = len(partnerCities) - len(cities)

	if err := s.repos.SyncProgress.SetTotalCities(ctx, job.ProgressID, len(cities)); err != nil {
		return s.progressErr("set total cities", err)
	}

	regionIDs, err := s.repos.Regions.MappingsByPartner(ctx, job.Partner)
	if err != nil {
		return fmt.Errorf("load region mappings failed: %w", err)
	}

	if err := s.syncRegions(ctx, job, cities, newIDIndex(regionIDs), stats); err != nil {
		return err
	}

	// a city row that failed to write still exists at the partner
	deactivateCities := len(partnerCities) > 0 && stats.citiesSkipped == 0
	s.deactivateStale(ctx, job, deactivateCities, stats.citiesWithData)

	return nil
}

func (s *locationSync) upsertCities(ctx context.Context, job task.LocationSync, partnerCities []domain.PartnerCity) ([]syncedCity, error) {
	known, err := s.repos.Cities.MappingsByPartner(ctx, job.Partner)
	if err != nil {
		return nil, fmt.Errorf("load city mappings failed: %w", err)
	}
	claimed := newIDIndex(known).claimed

	cities := make([]syncedCity, 0, len(partnerCities))
	for _, pc := range partnerCities {
		id, err := s.resolveCityID(ctx, pc, known, claimed)
		if err != nil {
			return nil, err
		}
		claimed[id] = pc.ExternalID

		city := &domain.City{
			ID:     id,
			Name:   pc.Name,
			NameAr: optional(pc.NameAr),
			NameEn: optional(pc.NameEn),
		}
		if err := s.repos.Cities.Upsert(ctx, city, job.Partner, pc.ExternalID, job.ProgressID); err != nil {
			logger.Warn("city upsert skipped",
				zap.String("partner", job.Partner.String()),
				zap.String("external_id", pc.ExternalID),
				zap.String("name", pc.Name),
				zap.Error(err),
			)
			continue
		}

		cities = append(cities, syncedCity{id: id, externalID: pc.ExternalID, name: pc.Name})
	}

	return cities, nil
}

// resolveCityID keeps ids stable across runs: the partner's own mapping wins,
// then a canonical city of the same name not yet claimed by this partner,
// then a fresh id.
func (s *locationSync) resolveCityID(ctx context.Context, pc domain.PartnerCity, known map[string]uuid.UUID, claimed map[uuid.UUID]string) (uuid.UUID, error) {
	if id, ok := known[pc.ExternalID]; ok {
		return id, nil
	}

	existing, err := s.repos.Cities.FindByName(ctx, pc.Name)
	switch {
	case err == nil:
		if _, taken := claimed[existing.ID]; !taken {
			return existing.ID, nil
		}
	case !errors.Is(err, domain.ErrNotFound):
		return uuid.Nil, fmt.Errorf("find city by name failed: %w", err)
	}

	return newID()
}

func (s *locationSync) syncRegions(ctx context.Context, job task.LocationSync, cities []syncedCity, regionIDs idIndex, stats *syncStats) error {
	workers := s.config.CityConcurrency
	if workers <= 1 {
		for _, city := range cities {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.syncCity(ctx, job, city, regionIDs, stats); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, city := range cities {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.syncCity(gctx, job, city, regionIDs, stats)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

// syncCity writes one city's regions in batches. The region total is raised
// before the first batch so completed_regions never passes it.
func (s *locationSync) syncCity(ctx context.Context, job task.LocationSync, city syncedCity, regionIDs idIndex, stats *syncStats) error {
	regions := s.fetcher.FetchRegions(ctx, job.Partner, job.Token, city.externalID)

	rows, err := s.regionRows(ctx, city, regions, regionIDs)
	if err != nil {
		return err
	}

	if err := s.repos.SyncProgress.AddTotalRegions(ctx, job.ProgressID, city.name, len(rows)); err != nil {
		return s.progressErr("add total regions", err)
	}

	batchSize := s.config.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	written := 0
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		batch := rows[start:end]

		n, err := s.repos.Regions.UpsertBatch(ctx, job.Partner, job.ProgressID, batch)
		if err != nil {
			return fmt.Errorf("upsert regions of city %s failed: %w", city.externalID, err)
		}
		written += n

		if err := s.repos.SyncProgress.AddCompletedRegions(ctx, job.ProgressID, len(batch)); err != nil {
			return s.progressErr("add completed regions", err)
		}
	}

	if err := s.repos.SyncProgress.AddCompletedCity(ctx, job.ProgressID); err != nil {
		return s.progressErr("add completed city", err)
	}

	stats.addCity(city.id, written, len(rows)-written)
	return nil
}

// regionRows assigns canonical ids the same way cities get them, with the
// name lookup limited to regions of the same canonical city.
func (s *locationSync) regionRows(ctx context.Context, city syncedCity, regions []domain.PartnerRegion, index idIndex) ([]domain.RegionUpsert, error) {
	if len(regions) == 0 {
		return nil, nil
	}

	existing, err := s.repos.Regions.ListByCity(ctx, city.id)
	if err != nil {
		return nil, fmt.Errorf("list regions of city %s failed: %w", city.externalID, err)
	}
	byName := make(map[string]uuid.UUID, len(existing))
	for _, region := range existing {
		byName[nameKey(region.Name)] = region.ID
	}

	used := make(map[uuid.UUID]struct{}, len(regions))
	rows := make([]domain.RegionUpsert, 0, len(regions))
	for _, pr := range regions {
		key := domain.RegionKey(city.externalID, pr.ExternalID)
		id, ok := index.known[key]
		if !ok {
			id, ok = byName[nameKey(pr.Name)]
			if ok {
				_, taken := used[id]
				if owner, claimed := index.claimed[id]; taken || (claimed && owner != key) {
					ok = false
				}
			}
		}
		if !ok {
			if id, err = newID(); err != nil {
				return nil, err
			}
		}
		used[id] = struct{}{}

		rows = append(rows, domain.RegionUpsert{
			Region: domain.Region{
				ID:     id,
				CityID: city.id,
				Name:   pr.Name,
			},
			ExternalID:     pr.ExternalID,
			ExternalCityID: city.externalID,
		})
	}

	return rows, nil
}

// deactivateStale runs after a successful refresh. Regions are only touched
// for cities whose region list came back with data and was fully written.
func (s *locationSync) deactivateStale(ctx context.Context, job task.LocationSync, deactivateCities bool, citiesWithData []uuid.UUID) {
	if deactivateCities {
		deactivated, err := s.repos.Cities.DeactivateStale(ctx, job.Partner, job.ProgressID)
		if err != nil {
			logger.Error("deactivate stale cities failed", zap.String("partner", job.Partner.String()), zap.Error(err))
		} else if deactivated > 0 {
			logger.Info("stale cities deactivated", zap.String("partner", job.Partner.String()), zap.Int64("count", deactivated))
		}
	} else {
		logger.Warn("stale cities kept, refresh was incomplete", zap.String("partner", job.Partner.String()))
	}

	for _, cityID := range citiesWithData {
		deactivated, err := s.repos.Regions.DeactivateStale(ctx, job.Partner, cityID, job.ProgressID)
		if err != nil {
			logger.Error("deactivate stale regions failed",
				zap.String("partner", job.Partner.String()),
				zap.String("city_id", cityID.String()),
				zap.Error(err),
			)
			continue
		}
		if deactivated > 0 {
			logger.Info("stale regions deactivated",
				zap.String("partner", job.Partner.String()),
				zap.String("city_id", cityID.String()),
				zap.Int64("count", deactivated),
			)
		}
	}
}

// finish closes the progress row, writes the audit entry and fans out
// notifications. It runs on a context detached from cancellation so a
// cancelled job still records its outcome.
func (s *locationSync) finish(ctx context.Context, job task.LocationSync, startedAt time.Time, stats *syncStats, runErr error) error {
	fctx := context.WithoutCancel(ctx)
	endedAt := s.now()

	status := domain.SyncStatusCompleted
	var errorMessage *string
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		status = domain.SyncStatusCancelled
		errorMessage = optional(runErr.Error())
	default:
		status = domain.SyncStatusFailed
		errorMessage = optional(runErr.Error())
	}

	log := logger.Logger().With(
		zap.String("progress_id", job.ProgressID.String()),
		zap.String("partner", job.Partner.String()),
		zap.String("status", string(status)),
	)

	if err := s.repos.SyncProgress.Finish(fctx, job.ProgressID, status, errorMessage, endedAt); err != nil {
		if !(status == domain.SyncStatusCancelled && errors.Is(err, domain.ErrInvalidTransition)) {
			log.Error("finish sync progress failed", zap.Error(err))
		}
	}

	entry := &domain.SyncLogEntry{
		ProgressID:      job.ProgressID,
		Partner:         job.Partner,
		TriggeredBy:     job.TriggeredBy,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		CitiesCount:     stats.cities,
		RegionsCount:    stats.regions,
		Success:         runErr == nil,
		ErrorMessage:    errorMessage,
		DurationSeconds: endedAt.Sub(startedAt).Seconds(),
	}
	if err := s.repos.SyncLogs.Create(fctx, entry); err != nil {
		log.Error("write sync log failed", zap.Error(err))
	}

	switch status {
	case domain.SyncStatusCompleted:
		log.Info("location sync completed",
			zap.Int("cities", stats.cities),
			zap.Int("regions", stats.regions),
			zap.Int("cities_skipped", stats.citiesSkipped),
			zap.Int("regions_skipped", stats.regionsSkipped),
			zap.Duration("duration", endedAt.Sub(startedAt)),
		)
		if err := s.publisher.Publish(fctx, cache.LocationsInvalidateChannel, job.Partner.String()); err != nil {
			log.Warn("publish locations invalidation failed", zap.Error(err))
		}
	case domain.SyncStatusCancelled:
		log.Info("location sync cancelled")
	case domain.SyncStatusFailed:
		log.Error("location sync failed", zap.Error(runErr))
		if s.notifyFailures {
			s.enqueueFailureEmail(fctx, job, startedAt, runErr)
		}
	}

	return runErr
}

func (s *locationSync) enqueueFailureEmail(ctx context.Context, job task.LocationSync, startedAt time.Time, runErr error) {
	t, err := task.NewSyncFailedEmailTask(task.SyncFailedEmail{
		ProgressID:   job.ProgressID,
		Partner:      job.Partner,
		TriggeredBy:  job.TriggeredBy,
		StartedAt:    startedAt,
		ErrorMessage: runErr.Error(),
	})
	if err != nil {
		logger.Error("create sync failed email task failed", zap.Error(err))
		return
	}

	if _, err := s.enqueuer.EnqueueContext(ctx, t); err != nil {
		logger.Error("enqueue sync failed email failed", zap.Error(err))
	}
}

func (s *locationSync) progressErr(op string, err error) error {
	if errors.Is(err, domain.ErrNoRowsAffected) {
		return errRunClosed
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

func (s *locationSync) lockTTL() time.Duration {
	if s.config.TaskTimeout > 0 {
		return s.config.TaskTimeout
	}
	return time.Hour
}

// idIndex is a partner's external id mapping in both directions. Region
// indexes are keyed by domain.RegionKey. It is read only once built, so city
// workers share it.
type idIndex struct {
	known   map[string]uuid.UUID
	claimed map[uuid.UUID]string
}

func newIDIndex(known map[string]uuid.UUID) idIndex {
	claimed := make(map[uuid.UUID]string, len(known))
	for externalID, id := range known {
		claimed[id] = externalID
	}
	return idIndex{known: known, claimed: claimed}
}

func newID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate id failed: %w", err)
	}
	return id, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
