package trigger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetherhq/tether/internal/config"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, name string, _ map[string]any) (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, name)
	return map[string]any{}, nil
}

func TestRegisterSchedules(t *testing.T) {
	s := NewScheduler(&recordingDispatcher{})
	err := s.RegisterSchedules([]config.ScheduleManifest{
		{Name: "morning", Tool: "report", Cron: "0 9 * * 1-5"},
		{Name: "hourly", Tool: "sync", Cron: "0 * * * *", Payload: map[string]any{"full": false}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())
}

func TestRegisterSchedulesInvalidCron(t *testing.T) {
	s := NewScheduler(&recordingDispatcher{})
	err := s.RegisterSchedules([]config.ScheduleManifest{
		{Name: "bad", Tool: "report", Cron: "not a cron"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registering cron")
}

func TestRegisterSchedulesEmpty(t *testing.T) {
	s := NewScheduler(&recordingDispatcher{})
	require.NoError(t, s.RegisterSchedules(nil))
	assert.Equal(t, 0, s.Entries())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&recordingDispatcher{})
	require.NoError(t, s.RegisterSchedules([]config.ScheduleManifest{
		{Name: "hourly", Tool: "sync", Cron: "0 * * * *"},
	}))
	s.Start()
	s.Stop()
}
