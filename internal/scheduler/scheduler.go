// Package scheduler arms the weekly run on a cron scheduler.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Belphemur/BackdropFetcher/internal/config"
)

// Scheduler fires job at the configured weekly slot. Manual mode arms nothing.
// Fires are not serialized here; job is expected to reject overlapping runs.
type Scheduler struct {
	mu    sync.Mutex
	cron  *cron.Cron
	job   func()
	entry cron.EntryID
	armed bool
	spec  string
}

// New creates a stopped scheduler for job
func New(job func()) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		job: job,
	}
}

// Spec builds the cron expression for a weekly schedule.
// ok is false when the schedule is manual.
func Spec(cfg *config.Config) (spec string, ok bool, err error) {
	if !strings.EqualFold(cfg.Schedule.Mode, config.ScheduleModeWeekly) {
		return "", false, nil
	}
	day, err := config.ParseWeekday(cfg.Schedule.Day)
	if err != nil {
		return "", false, err
	}
	hour, minute, err := config.ParseClock(cfg.Schedule.Time)
	if err != nil {
		return "", false, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return "", false, fmt.Errorf("invalid timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * %d", loc.String(), minute, hour, int(day)), true, nil
}

// Arm replaces the current entry with one built from cfg
func (s *Scheduler) Arm(cfg *config.Config) error {
	logger := config.GetLogger()
	spec, ok, err := Spec(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed {
		s.cron.Remove(s.entry)
		s.armed = false
		s.spec = ""
	}
	if !ok {
		logger.Info().Msg("Schedule is manual, no run armed")
		return nil
	}

	id, err := s.cron.AddFunc(spec, s.job)
	if err != nil {
		return fmt.Errorf("failed to arm schedule %q: %w", spec, err)
	}
	s.entry = id
	s.armed = true
	s.spec = spec
	logger.Info().Str("schedule", spec).Time("next", s.cron.Entry(id).Next).Msg("Weekly run armed")
	return nil
}

// Next returns the next fire time, if a run is armed
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return time.Time{}, false
	}
	return s.cron.Entry(s.entry).Next, true
}

// Armed returns the active cron expression, empty when nothing is armed
func (s *Scheduler) Armed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Start runs the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the loop and returns a context done once running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger routes cron's own messages through zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger := config.GetLogger()
	logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger := config.GetLogger()
	logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
