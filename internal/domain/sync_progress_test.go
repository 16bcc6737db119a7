package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSyncStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from SyncStatus
		to   SyncStatus
		want bool
	}{
		{SyncStatusPending, SyncStatusInProgress, true},
		{SyncStatusPending, SyncStatusCancelled, true},
		{SyncStatusPending, SyncStatusFailed, true},
		{SyncStatusInProgress, SyncStatusCompleted, true},
		{SyncStatusInProgress, SyncStatusPending, false},
		{SyncStatusCompleted, SyncStatusInProgress, false},
		{SyncStatusFailed, SyncStatusCompleted, false},
		{SyncStatusCancelled, SyncStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSyncProgress_IsStale(t *testing.T) {
	now := time.Now()
	p := &SyncProgress{Status: SyncStatusInProgress, UpdatedAt: now.Add(-time.Hour)}

	assert.True(t, p.IsStale(now, 30*time.Minute))
	assert.False(t, p.IsStale(now, 2*time.Hour))

	p.Status = SyncStatusCompleted
	assert.False(t, p.IsStale(now, 30*time.Minute))
}

func TestSyncProgress_Percent(t *testing.T) {
	p := &SyncProgress{Status: SyncStatusInProgress, TotalCities: 4, CompletedCities: 1}
	assert.InDelta(t, 25.0, p.Percent(), 0.001)

	p.Status = SyncStatusCompleted
	assert.InDelta(t, 100.0, p.Percent(), 0.001)
}
