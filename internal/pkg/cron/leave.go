package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/leave-backend-go/internal/domain/setting"
)

// AnnualResetter is the part of the leave service the reset job drives
type AnnualResetter interface {
	RunAnnualReset(ctx context.Context, req leave.AnnualResetRequest) (leave.AnnualResetResponse, error)
}

// LeaveJobs contains leave-related cron jobs
type LeaveJobs struct {
	resetter AnnualResetter
	settings setting.Repository
	location *time.Location
	rollover bool
	now      func() time.Time
}

// NewLeaveJobs creates leave cron jobs. loc decides when the new year starts.
func NewLeaveJobs(resetter AnnualResetter, settings setting.Repository, loc *time.Location, rollover bool) *LeaveJobs {
	if loc == nil {
		loc = time.UTC
	}
	return &LeaveJobs{
		resetter: resetter,
		settings: settings,
		location: loc,
		rollover: rollover,
		now:      time.Now,
	}
}

// RegisterJobs registers all leave-related cron jobs
func (j *LeaveJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJobWithTimeout("annual_leave_reset", interval, 30*time.Minute, j.AnnualReset)
}

// AnnualReset runs the year-boundary reset once per year, during January only
func (j *LeaveJobs) AnnualReset(ctx context.Context) error {
	now := j.now().In(j.location)
	if now.Month() != time.January {
		return nil
	}
	year := now.Year()

	done, err := j.settings.Exists(ctx, leave.AnnualResetSettingKey(year))
	if err != nil {
		return fmt.Errorf("failed to check annual reset record: %w", err)
	}
	if done {
		return nil
	}

	slog.Info("Cron: Starting annual leave reset", "year", year, "rollover", j.rollover)

	result, err := j.resetter.RunAnnualReset(ctx, leave.AnnualResetRequest{Year: year, Rollover: j.rollover})
	if err != nil {
		return fmt.Errorf("annual leave reset for %d: %w", year, err)
	}

	slog.Info("Cron: Annual leave reset finished",
		"year", year,
		"users_reset", result.UsersReset,
		"errors", len(result.Errors))
	return nil
}
