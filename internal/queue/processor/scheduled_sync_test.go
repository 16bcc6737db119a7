package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tajer-app/locations/internal/domain"
	"github.com/tajer-app/locations/internal/queue/task"
	"github.com/tajer-app/locations/internal/service"
)

type mockTrigger struct {
	mock.Mock
}

func (m *mockTrigger) Trigger(ctx context.Context, input service.TriggerSyncInput) (*domain.SyncProgress, bool, error) {
	args := m.Called(ctx, input)
	progress, _ := args.Get(0).(*domain.SyncProgress)
	return progress, args.Bool(1), args.Error(2)
}

func TestScheduledSyncProcessor(t *testing.T) {
	newTask := func(t *testing.T, partner domain.Partner) *asynq.Task {
		t.Helper()
		tsk, err := task.NewScheduledSyncTask(partner)
		require.NoError(t, err)
		return tsk
	}

	t.Run("triggers with configured token", func(t *testing.T) {
		trigger := &mockTrigger{}
		trigger.On("Trigger", mock.Anything, service.TriggerSyncInput{
			Partner:     domain.PartnerAlWaseet,
			Token:       "scheduled-token",
			TriggeredBy: "scheduler",
		}).Return(&domain.SyncProgress{ID: uuid.New()}, false, nil).Once()

		p := NewScheduledSyncProcessor(trigger, map[string]string{"alwaseet": "scheduled-token"}, "scheduler")
		require.NoError(t, p.ProcessTask(context.Background(), newTask(t, domain.PartnerAlWaseet)))
		trigger.AssertExpectations(t)
	})

	t.Run("missing token is not retried", func(t *testing.T) {
		trigger := &mockTrigger{}
		p := NewScheduledSyncProcessor(trigger, map[string]string{}, "scheduler")

		err := p.ProcessTask(context.Background(), newTask(t, domain.PartnerModon))
		require.Error(t, err)
		assert.ErrorIs(t, err, asynq.SkipRetry)
		trigger.AssertNotCalled(t, "Trigger", mock.Anything, mock.Anything)
	})

	t.Run("bad payload", func(t *testing.T) {
		p := NewScheduledSyncProcessor(&mockTrigger{}, nil, "scheduler")
		payload, _ := json.Marshal("not an object")

		err := p.ProcessTask(context.Background(), asynq.NewTask(task.ScheduledSyncTaskName, payload))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}
