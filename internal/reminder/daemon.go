package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NextRun returns when the cron expression fires next after t.
func NextRun(expression string, after time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expression)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron %q: %w", expression, err)
	}
	return schedule.Next(after), nil
}

// Daemon repeats Run on a cron schedule in the service's zone. Overlapping
// runs are skipped, not queued. Stop cancels the pass in flight.
type Daemon struct {
	svc    *Service
	opts   Options
	cron   *cron.Cron
	job    cron.Job
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDaemon(svc *Service, opts Options, expression string, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		svc:    svc,
		opts:   opts,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		cron: cron.New(
			cron.WithLocation(svc.Location()),
			cron.WithParser(cronParser),
			cron.WithLogger(cl),
		),
	}
	// One wrapped job for the first pass and the schedule, so they never overlap.
	d.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(d.tick))
	if _, err := d.cron.AddJob(expression, d.job); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule %q: %w", expression, err)
	}
	return d, nil
}

func (d *Daemon) tick() {
	res, err := d.svc.Run(d.ctx, d.opts)
	if err != nil {
		if d.ctx.Err() != nil {
			d.logger.Warn("sync_run_cancelled", "error", err)
			return
		}
		d.logger.Error("sync_run_failed", "error", err)
		return
	}
	d.logger.Info("sync_run_done",
		"created", len(res.Sync.Created),
		"skipped", res.Sync.Skipped,
		"selected", len(res.Selected),
		"feed_url", res.FeedURL,
	)
}

// Start begins a first pass in the background and then follows the schedule.
func (d *Daemon) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.job.Run()
	}()
	d.cron.Start()
	for _, e := range d.cron.Entries() {
		d.logger.Info("sync_scheduled", "next", e.Next)
	}
}

// Stop halts scheduling, cancels a running pass and waits for it to return, or for ctx.
func (d *Daemon) Stop(ctx context.Context) error {
	cronDone := d.cron.Stop()
	d.cancel()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron_"+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
