package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// JobFunc is the function signature for scheduled jobs
type JobFunc func(ctx context.Context) error

// cronPattern matches cron expressions (5 or 6 fields)
var cronPattern = regexp.MustCompile(`^(\S+\s+){4,5}\S+$`)

// Config holds scheduler configuration
type Config struct {
	// Interval is a duration ("60s", "5m") or cron expression ("*/5 * * * *")
	Interval       string
	Timezone       *time.Location
	RunImmediately bool
	Logger         *slog.Logger
}

// Scheduler drives periodic scan cycles through gocron. Jobs run in
// singleton mode: a slow cycle is never overlapped by the next tick.
type Scheduler struct {
	gocronScheduler gocron.Scheduler
	job             gocron.Job
	interval        string
	runImmediately  bool
	logger          *slog.Logger
}

// NewScheduler creates a scheduler executing jobFunc at the configured
// interval.
func NewScheduler(ctx context.Context, cfg Config, jobFunc JobFunc) (*Scheduler, error) {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Scheduler{
		interval:       cfg.Interval,
		runImmediately: cfg.RunImmediately,
		logger:         cfg.Logger,
	}

	gocronScheduler, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Timezone),
		gocron.WithLogger(newGocronLoggerAdapter(cfg.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.gocronScheduler = gocronScheduler

	definition, err := jobDefinition(cfg.Interval)
	if err != nil {
		return nil, err
	}

	job, err := gocronScheduler.NewJob(
		definition,
		gocron.NewTask(func() {
			if err := jobFunc(ctx); err != nil {
				s.logger.Error("Job execution failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}
	s.job = job

	return s, nil
}

// jobDefinition maps the interval setting onto a gocron job definition.
func jobDefinition(interval string) (gocron.JobDefinition, error) {
	if IsCron(interval) {
		withSeconds := len(strings.Fields(interval)) == 6
		return gocron.CronJob(interval, withSeconds), nil
	}
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval %q: %w", interval, err)
	}
	if d < time.Second {
		return nil, fmt.Errorf("interval %q is below 1s", interval)
	}
	return gocron.DurationJob(d), nil
}

// IsCron reports whether the interval is a cron expression rather than a
// plain duration.
func IsCron(interval string) bool {
	return cronPattern.MatchString(interval)
}

// ValidateInterval checks an interval setting without building a scheduler.
// Empty means one-shot mode and is valid.
func ValidateInterval(interval string) error {
	if interval == "" {
		return nil
	}
	_, err := jobDefinition(interval)
	return err
}

// Start begins the scheduler, optionally firing the job immediately.
func (s *Scheduler) Start() error {
	s.gocronScheduler.Start()

	if s.runImmediately {
		s.logger.Info("Executing job immediately")
		if err := s.job.RunNow(); err != nil {
			// Scheduled runs still proceed
			s.logger.Error("Immediate execution failed", "error", err)
		}
	}

	if nextRun, err := s.NextRun(); err == nil {
		s.logger.Info("Scheduler started", "next_run", nextRun.Format(time.RFC3339))
	} else {
		s.logger.Info("Scheduler started")
	}
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.gocronScheduler.Shutdown()
}

// NextRun returns the next scheduled run time
func (s *Scheduler) NextRun() (time.Time, error) {
	nextRun, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return nextRun, nil
}

// ExpectedInterval estimates the spacing between runs, used by the health
// checker for recency grace periods. Irregular cron schedules fall back to
// a conservative default.
func (s *Scheduler) ExpectedInterval() time.Duration {
	if d, err := time.ParseDuration(s.interval); err == nil {
		return d
	}
	return 5 * time.Minute
}

// gocronLoggerAdapter adapts slog.Logger to gocron.Logger interface
type gocronLoggerAdapter struct {
	logger *slog.Logger
}

func newGocronLoggerAdapter(logger *slog.Logger) gocron.Logger {
	return &gocronLoggerAdapter{logger: logger}
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *gocronLoggerAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *gocronLoggerAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *gocronLoggerAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
