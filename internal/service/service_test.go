package service

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tajer-app/locations/internal/db"
	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/repository"
)

func newTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()

	conn, err := db.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(context.Background(), conn))
	return repository.NewRepositories(conn)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

type mockInspector struct {
	mock.Mock
}

func (m *mockInspector) CancelProcessing(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockInspector) DeleteTask(queue, id string) error {
	return m.Called(queue, id).Error(0)
}

type staticCatalog []domain.Partner

func (c staticCatalog) Supports(partner domain.Partner) bool {
	for _, p := range c {
		if p == partner.Normalize() {
			return true
		}
	}
	return false
}

func (c staticCatalog) Partners() []domain.Partner { return c }

var testCatalog = staticCatalog{domain.PartnerAlWaseet, domain.PartnerModon}
