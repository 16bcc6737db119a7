package worker

import (
	"context"
	"time"

	"github.com/tajer-app/locations/internal/config"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/queue/client"
	"github.com/tajer-app/locations/internal/queue/task"
	"github.com/tajer-app/locations/internal/repository"
	emailProvider "github.com/tajer-app/locations/pkg/email"
)

type Workers struct {
	EmailSender  EmailSender
	LocationSync LocationSync
}

// LocationFetcher reads a partner's location lists.
type LocationFetcher interface {
	FetchCities(ctx context.Context, partner domain.Partner, token string) ([]domain.PartnerCity, error)
	FetchRegions(ctx context.Context, partner domain.Partner, token, externalCityID string) []domain.PartnerRegion
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

type Deps struct {
	Repos         *repository.Repositories
	Fetcher       LocationFetcher
	Locker        Locker
	Publisher     Publisher
	Enqueuer      client.Enqueuer
	EmailProvider emailProvider.Sender
	Config        *config.Config
}

type EmailSender interface {
	SendSyncFailedEmail(ctx context.Context, data task.SyncFailedEmail) error
}

type LocationSync interface {
	Run(ctx context.Context, job task.LocationSync) error
}

func NewWorkers(deps Deps) *Workers {
	return &Workers{
		EmailSender: newEmailSender(deps.EmailProvider, deps.Config.Email),
		LocationSync: newLocationSync(
			deps.Repos,
			deps.Fetcher,
			deps.Locker,
			deps.Publisher,
			deps.Enqueuer,
			deps.Config.Sync,
			deps.Config.Email.Enabled && len(deps.Config.Email.Recipients) > 0,
		),
	}
}
