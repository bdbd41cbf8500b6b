package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"outagereminder/internal/calendar"
	"outagereminder/internal/ics"
	"outagereminder/internal/metrics"
	"outagereminder/internal/outage"
	"outagereminder/internal/repository"
)

// MessageSource returns up to limit recent channel posts.
type MessageSource interface {
	Fetch(ctx context.Context, channel string, limit int) ([]outage.RawMessage, error)
}

// Calendar is the reminder sink.
type Calendar interface {
	Sync(ctx context.Context, records []outage.OutageRecord, now time.Time) (calendar.SyncResult, error)
	FindStale(ctx context.Context, now time.Time) ([]calendar.Event, error)
	DeleteEvents(ctx context.Context, events []calendar.Event) (int, []error)
}

// FeedStore publishes the rendered ICS feed.
type FeedStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Archive keeps every parsed record and a log of runs.
type Archive interface {
	UpsertRecords(ctx context.Context, records []outage.OutageRecord, seenAt time.Time) (int, error)
	RecordRun(ctx context.Context, run repository.SyncRun) (int64, error)
}

// Notifier announces newly created reminders. feedURL may be empty.
type Notifier interface {
	Notify(ctx context.Context, text, feedURL string) error
}

// ErrNoCalendar is returned when a run needs the calendar but none is configured.
var ErrNoCalendar = errors.New("calendar is not configured")

// Options controls a single run.
type Options struct {
	Channel string
	Limit   int
	Group   string
	DryRun  bool
	FeedKey string
}

// Snapshot is what a run saw and kept.
type Snapshot struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Channel     string                `json:"channel"`
	Group       string                `json:"group,omitempty"`
	Messages    int                   `json:"messages"`
	Schedule    outage.Schedule       `json:"schedule"`
	Selected    []outage.OutageRecord `json:"selected"`
	Skipped     []outage.Skipped      `json:"skipped"`
	Pruned      []outage.Date         `json:"pruned_dates"`
	FeedURL     string                `json:"feed_url,omitempty"`
}

// Result adds what the run did to the calendar.
type Result struct {
	Snapshot
	DryRun   bool
	Sync     calendar.SyncResult
	Archived int
}

// CleanupResult counts a cleanup pass.
type CleanupResult struct {
	Stale   []calendar.Event
	Deleted int
	Errors  []error
}

// Confirm decides whether the listed stale events may be deleted.
type Confirm func(stale []calendar.Event) bool

type Deps struct {
	Source   MessageSource
	Calendar Calendar
	Feed     FeedStore
	Archive  Archive
	Notifier Notifier
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Service runs the fetch, parse, select, sync and publish pipeline.
type Service struct {
	source  MessageSource
	cal     Calendar
	feed    FeedStore
	archive Archive
	notify  Notifier
	loc     *time.Location
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu   sync.RWMutex
	last *Snapshot
}

func New(deps Deps) *Service {
	s := &Service{
		source:  deps.Source,
		cal:     deps.Calendar,
		feed:    deps.Feed,
		archive: deps.Archive,
		notify:  deps.Notifier,
		loc:     deps.Location,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		now:     deps.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Run performs one pass. Archive and feed failures are logged and do not fail
// the run; source and calendar failures do.
func (s *Service) Run(ctx context.Context, opts Options) (res Result, err error) {
	started := s.now()
	res.DryRun = opts.DryRun
	defer func() {
		s.metrics.Run(started, err)
		s.recordRun(ctx, opts, started, res, err)
	}()

	if s.source == nil {
		return res, errors.New("message source is not configured")
	}
	if !opts.DryRun && s.cal == nil {
		return res, ErrNoCalendar
	}

	messages, err := s.source.Fetch(ctx, opts.Channel, opts.Limit)
	if err != nil {
		return res, fmt.Errorf("fetch messages: %w", err)
	}
	s.metrics.MessagesFetched(len(messages))
	s.logger.Info("messages_fetched", "channel", opts.Channel, "count", len(messages))

	snap := s.parse(messages, opts, started)
	res.Snapshot = snap

	if s.archive != nil {
		archived, aerr := s.archive.UpsertRecords(ctx, snap.Schedule.All(), started)
		if aerr != nil {
			s.logger.Warn("archive_failed", "error", aerr)
		} else {
			res.Archived = archived
		}
	}

	if opts.DryRun {
		s.logger.Info("dry_run", "selected", len(snap.Selected))
	} else {
		synced, serr := s.cal.Sync(ctx, snap.Selected, started)
		res.Sync = synced
		s.metrics.Events("created", len(synced.Created))
		s.metrics.Events("skipped", synced.Skipped)
		if serr != nil {
			return res, fmt.Errorf("sync calendar: %w", serr)
		}
		res.FeedURL = s.publish(ctx, snap, opts)
		s.announce(ctx, synced.Created, res.FeedURL)
	}

	s.mu.Lock()
	stored := res.Snapshot
	s.last = &stored
	s.mu.Unlock()
	return res, nil
}

func (s *Service) parse(messages []outage.RawMessage, opts Options, now time.Time) Snapshot {
	schedule, skipped := outage.ParseMessages(messages, s.loc)
	for _, sk := range skipped {
		s.metrics.MessageSkipped(string(sk.Reason))
		s.logger.Debug("message_skipped", "message_id", sk.MessageID, "reason", sk.Reason)
	}
	all := schedule.All()
	selected := outage.Select(all, outage.Selection{Now: now, Location: s.loc, Group: opts.Group})
	pruned := outage.PrunedDates(schedule, now, s.loc)
	s.metrics.Records(len(all), len(selected))
	s.logger.Info("schedule_parsed",
		"records", len(all),
		"dates", schedule.Len(),
		"selected", len(selected),
		"skipped", len(skipped),
		"pruned_dates", len(pruned),
	)
	return Snapshot{
		GeneratedAt: now,
		Channel:     opts.Channel,
		Group:       opts.Group,
		Messages:    len(messages),
		Schedule:    schedule,
		Selected:    selected,
		Skipped:     skipped,
		Pruned:      pruned,
	}
}

func (s *Service) publish(ctx context.Context, snap Snapshot, opts Options) string {
	if s.feed == nil || opts.FeedKey == "" {
		return ""
	}
	body := ics.Render(snap.Selected, ics.Options{
		Name:     calendar.SummaryPrefix,
		Timezone: s.loc.String(),
		Now:      snap.GeneratedAt,
		Alarm:    30 * time.Minute,
	})
	url, err := s.feed.Put(ctx, opts.FeedKey, ics.ContentType, []byte(body))
	if err != nil {
		s.logger.Warn("feed_publish_failed", "key", opts.FeedKey, "error", err)
		return ""
	}
	s.logger.Info("feed_published", "url", url, "events", len(snap.Selected))
	return url
}

func (s *Service) announce(ctx context.Context, created []calendar.Event, feedURL string) {
	if s.notify == nil || len(created) == 0 {
		return
	}
	if err := s.notify.Notify(ctx, NoticeText(created, s.loc), feedURL); err != nil {
		s.logger.Warn("notify_failed", "error", err)
	}
}

func (s *Service) recordRun(ctx context.Context, opts Options, started time.Time, res Result, runErr error) {
	if s.archive == nil {
		return
	}
	run := repository.SyncRun{
		StartedAt:     started,
		FinishedAt:    s.now(),
		Channel:       opts.Channel,
		Messages:      res.Messages,
		Skipped:       len(res.Skipped),
		Records:       len(res.Schedule.All()),
		Selected:      len(res.Selected),
		EventsCreated: len(res.Sync.Created),
		EventsSkipped: res.Sync.Skipped,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if _, err := s.archive.RecordRun(ctx, run); err != nil {
		s.logger.Warn("record_run_failed", "error", err)
	}
}

// Last returns the snapshot of the most recent successful run.
func (s *Service) Last() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Snapshot{}, false
	}
	return *s.last, true
}

// Cleanup finds owned events outside today and tomorrow and deletes them once
// confirm agrees. A dry run only lists them.
func (s *Service) Cleanup(ctx context.Context, dryRun bool, confirm Confirm) (CleanupResult, error) {
	var res CleanupResult
	if s.cal == nil {
		return res, ErrNoCalendar
	}
	stale, err := s.cal.FindStale(ctx, s.now())
	if err != nil {
		return res, err
	}
	res.Stale = stale
	s.logger.Info("cleanup_found", "count", len(stale))
	if len(stale) == 0 || dryRun {
		return res, nil
	}
	if confirm != nil && !confirm(stale) {
		s.logger.Info("cleanup_cancelled")
		return res, nil
	}
	res.Deleted, res.Errors = s.cal.DeleteEvents(ctx, stale)
	s.metrics.Events("deleted", res.Deleted)
	return res, nil
}
