package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outagereminder/internal/outage"
)

// Calendar is the part of the Calendar API that sync and cleanup need.
type Calendar interface {
	Insert(ctx context.Context, calendarID string, ev Event) (Event, error)
	List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)
	Delete(ctx context.Context, calendarID, eventID string) error
}

// CleanupWindow is how far back and forward cleanup looks for stale reminders.
const CleanupWindow = 30 * 24 * time.Hour

// Syncer creates reminders for records and removes stale ones.
type Syncer struct {
	cal        Calendar
	calendarID string
	loc        *time.Location
	logger     *slog.Logger
}

func NewSyncer(cal Calendar, calendarID string, loc *time.Location, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Syncer{cal: cal, calendarID: calendarID, loc: loc, logger: logger}
}

// SyncResult counts what Sync did.
type SyncResult struct {
	Created  []Event
	Skipped  int
	Existing int
}

// Sync inserts one event per record unless an owned event with the same summary,
// start and end already exists between today 00:00 and the end of tomorrow.
// Records are expected to be pruned already.
func (s *Syncer) Sync(ctx context.Context, records []outage.OutageRecord, now time.Time) (SyncResult, error) {
	var res SyncResult
	today, tomorrow := outage.Window(now, s.loc)
	existing, err := s.cal.List(ctx, s.calendarID, today.In(s.loc), tomorrow.AddDays(1).In(s.loc))
	if err != nil {
		return res, fmt.Errorf("list existing events: %w", err)
	}
	var known []Event
	for _, ev := range existing {
		if Owned(ev) {
			known = append(known, ev)
		}
	}
	res.Existing = len(known)
	s.logger.Info("sync_existing", "calendar_id", s.calendarID, "count", len(known))

	for _, r := range records {
		ev := BuildEvent(r)
		if containsEvent(known, ev) {
			res.Skipped++
			s.logger.Info("sync_skipped_duplicate", "summary", ev.Summary, "start", ev.Start.DateTime)
			continue
		}
		created, err := s.cal.Insert(ctx, s.calendarID, ev)
		if err != nil {
			return res, fmt.Errorf("insert event %q: %w", ev.Summary, err)
		}
		known = append(known, ev)
		res.Created = append(res.Created, created)
		s.logger.Info("sync_created", "event_id", created.ID, "summary", ev.Summary, "link", created.HTMLLink)
	}
	return res, nil
}

// containsEvent compares instants rather than strings; the API may echo a
// dateTime in the calendar's own zone.
func containsEvent(events []Event, ev Event) bool {
	start, okStart := ev.StartTime()
	end, okEnd := ev.EndTime()
	for _, e := range events {
		if e.Summary != ev.Summary {
			continue
		}
		es, ok1 := e.StartTime()
		ee, ok2 := e.EndTime()
		if !ok1 || !ok2 || !okStart || !okEnd {
			if e.Start.DateTime == ev.Start.DateTime && e.End.DateTime == ev.End.DateTime {
				return true
			}
			continue
		}
		if es.Equal(start) && ee.Equal(end) {
			return true
		}
	}
	return false
}

// FindStale lists owned timed events within CleanupWindow of now whose start date,
// in the configured zone, is neither today nor tomorrow.
func (s *Syncer) FindStale(ctx context.Context, now time.Time) ([]Event, error) {
	events, err := s.cal.List(ctx, s.calendarID, now.Add(-CleanupWindow), now.Add(CleanupWindow))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	today, tomorrow := outage.Window(now, s.loc)
	var stale []Event
	for _, ev := range events {
		if !Owned(ev) {
			continue
		}
		start, ok := ev.StartTime()
		if !ok {
			continue
		}
		d := outage.DateOf(start, s.loc)
		if d != today && d != tomorrow {
			stale = append(stale, ev)
		}
	}
	return stale, nil
}

// DeleteEvents removes events one by one. Failures are logged and counted,
// and do not stop the remaining deletions.
func (s *Syncer) DeleteEvents(ctx context.Context, events []Event) (int, []error) {
	deleted := 0
	var errs []error
	for _, ev := range events {
		if err := s.cal.Delete(ctx, s.calendarID, ev.ID); err != nil {
			s.logger.Warn("cleanup_delete_failed", "event_id", ev.ID, "error", err)
			errs = append(errs, fmt.Errorf("delete %s: %w", ev.ID, err))
			continue
		}
		deleted++
		s.logger.Info("cleanup_deleted", "event_id", ev.ID, "summary", ev.Summary)
	}
	return deleted, errs
}
