package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// everyMinute fires at second zero of each minute, the granularity the
// HH:MM reminder match needs.
const everyMinute = "0 * * * * *"

// SchedulerService wraps cron-based triggers. It only invokes jobs; the
// jobs themselves stay short-lived.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleEveryMinute registers job to run once per calendar minute.
func (s *SchedulerService) ScheduleEveryMinute(job func()) (cron.EntryID, error) {
	return s.cron.AddFunc(everyMinute, job)
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the trigger and waits for running jobs until ctx expires.
func (s *SchedulerService) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// parseClock validates an HH:MM (24h) time string.
func parseClock(timeStr string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(timeStr, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, ok = twoDigits(hh)
	if !ok || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, ok = twoDigits(mm)
	if !ok || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", timeStr)
	}
	return hour, minute, nil
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}
