// Package trigger implements cron-driven tool dispatch: manifest schedules
// fire a named tool with a fixed payload on a cron expression.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/tetherhq/tether/internal/config"
)

// scheduleTimeout bounds one scheduled dispatch.
const scheduleTimeout = 10 * time.Minute

// ToolDispatcher executes a named tool. Satisfied by the agent's dispatch
// facades.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, params map[string]any) (map[string]any, error)
}

// Scheduler manages cron-based tool dispatch.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher ToolDispatcher
}

// NewScheduler creates a scheduler backed by the given dispatcher.
// Cron expressions use the standard 5-field format: minute hour day-of-month
// month day-of-week (e.g. "0 9 * * 1-5" for 09:00 on weekdays).
func NewScheduler(dispatcher ToolDispatcher) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		dispatcher: dispatcher,
	}
}

// RegisterSchedules adds cron entries from the manifest.
func (s *Scheduler) RegisterSchedules(schedules []config.ScheduleManifest) error {
	for _, sched := range schedules {
		name := sched.Name
		tool := sched.Tool
		payload := sched.Payload

		_, err := s.cron.AddFunc(sched.Cron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), scheduleTimeout)
			defer cancel()

			log.Info().
				Str("schedule", name).
				Str("tool", tool).
				Msg("scheduled_trigger_fired")

			if _, err := s.dispatcher.Dispatch(ctx, tool, payload); err != nil {
				log.Error().Err(err).
					Str("schedule", name).
					Str("tool", tool).
					Msg("scheduled_trigger_failed")
			}
		})
		if err != nil {
			return fmt.Errorf("registering cron %q for schedule %s: %w", sched.Cron, name, err)
		}
	}
	return nil
}

// Entries returns the number of registered cron entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins executing registered cron jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
