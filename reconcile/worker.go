// Package reconcile schedules the invitation reconciliation sweep.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-staff/command"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/robfig/cron"
)

// DefaultSchedule runs the sweep every minute.
const DefaultSchedule = "@every 1m"

// Config tunes the worker.
type Config struct {
	Schedule   string
	OlderThan  time.Duration
	Limit      int
	MaxRetries int
	Logger     types.Logger
}

// Worker runs ReconcileInvitations on a cron schedule. Overlapping runs are
// skipped.
type Worker struct {
	runner     gocommand.Commander[command.ReconcileInvitationsInput]
	cron       *cron.Cron
	schedule   string
	olderThan  time.Duration
	limit      int
	maxRetries int
	logger     types.Logger
	running    atomic.Bool
	started    atomic.Bool
}

// NewWorker builds a stopped worker.
func NewWorker(runner gocommand.Commander[command.ReconcileInvitationsInput], cfg Config) (*Worker, error) {
	if runner == nil {
		return nil, errors.New("reconcile: runner required")
	}
	schedule := strings.TrimSpace(cfg.Schedule)
	if schedule == "" {
		schedule = DefaultSchedule
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Worker{
		runner:     runner,
		cron:       cron.New(),
		schedule:   schedule,
		olderThan:  cfg.OlderThan,
		limit:      cfg.Limit,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

// Start registers the sweep and starts the scheduler. ctx is passed to
// every run.
func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("reconcile: worker already started")
	}
	if err := w.cron.AddFunc(w.schedule, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("reconcile sweep failed", err, "schedule", w.schedule)
		}
	}); err != nil {
		w.started.Store(false)
		return err
	}
	w.cron.Start()
	w.logger.Info("reconcile worker started", "schedule", w.schedule)
	return nil
}

// RunOnce executes a single sweep. It returns a zero result without running
// when a sweep is already in progress.
func (w *Worker) RunOnce(ctx context.Context) (command.ReconcileInvitationsResult, error) {
	result := command.ReconcileInvitationsResult{}
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Debug("reconcile sweep skipped: previous run still active")
		return result, nil
	}
	defer w.running.Store(false)

	err := w.runner.Execute(ctx, command.ReconcileInvitationsInput{
		OlderThan:  w.olderThan,
		Limit:      w.limit,
		MaxRetries: w.maxRetries,
		Result:     &result,
	})
	return result, err
}

// Stop halts the scheduler. Running sweeps finish on their own.
func (w *Worker) Stop() {
	if w.started.CompareAndSwap(true, false) {
		w.cron.Stop()
		w.logger.Info("reconcile worker stopped")
	}
}
