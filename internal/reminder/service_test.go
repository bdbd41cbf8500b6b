package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"outagereminder/internal/calendar"
	"outagereminder/internal/logging"
	"outagereminder/internal/metrics"
	"outagereminder/internal/outage"
	"outagereminder/internal/repository"

	"google.golang.org/api/googleapi"
)

type fakeSource struct {
	messages []outage.RawMessage
	err      error
	calls    int
}

func (f *fakeSource) Fetch(_ context.Context, _ string, _ int) ([]outage.RawMessage, error) {
	f.calls++
	return f.messages, f.err
}

type fakeCalendar struct {
	events []calendar.Event
	nextID int
}

func (f *fakeCalendar) Insert(_ context.Context, _ string, ev calendar.Event) (calendar.Event, error) {
	f.nextID++
	ev.ID = fmt.Sprintf("ev%d", f.nextID)
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeCalendar) List(_ context.Context, _ string, timeMin, timeMax time.Time) ([]calendar.Event, error) {
	var out []calendar.Event
	for _, ev := range f.events {
		start, ok := ev.StartTime()
		if ok && !start.Before(timeMin) && start.Before(timeMax) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCalendar) Delete(_ context.Context, _ string, id string) error {
	for i, ev := range f.events {
		if ev.ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			return nil
		}
	}
	return &googleapi.Error{Code: 404}
}

type fakeFeed struct {
	puts map[string]string
}

func (f *fakeFeed) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	if f.puts == nil {
		f.puts = make(map[string]string)
	}
	f.puts[key] = string(body)
	return "https://cdn.example.com/" + key, nil
}

type fakeArchive struct {
	records []outage.OutageRecord
	runs    []repository.SyncRun
}

func (f *fakeArchive) UpsertRecords(_ context.Context, records []outage.OutageRecord, _ time.Time) (int, error) {
	f.records = append(f.records, records...)
	return len(records), nil
}

func (f *fakeArchive) RecordRun(_ context.Context, run repository.SyncRun) (int64, error) {
	f.runs = append(f.runs, run)
	return int64(len(f.runs)), nil
}

type fixture struct {
	loc     *time.Location
	now     time.Time
	source  *fakeSource
	cal     *fakeCalendar
	feed    *fakeFeed
	archive *fakeArchive
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := outage.LoadZone("Europe/Kyiv")
	if err != nil {
		t.Fatalf("zone: %v", err)
	}
	f := &fixture{
		loc: loc,
		now: time.Date(2025, time.November, 10, 9, 0, 0, 0, loc),
		source: &fakeSource{messages: []outage.RawMessage{
			{ID: 1, Timestamp: time.Date(2025, time.November, 9, 18, 30, 0, 0, loc), Text: "Графік відключень: Група 1.2, 08:00-12:00, з 20:00 до 23:30, 10.11"},
			{ID: 2, Timestamp: time.Date(2025, time.November, 9, 19, 0, 0, 0, loc), Text: "Відключення світла 08:00-10:00 05.11"},
			{ID: 3, Timestamp: time.Date(2025, time.November, 9, 19, 5, 0, 0, loc), Text: "Доброго вечора! Бережіть себе."},
		}},
		cal:     &fakeCalendar{},
		feed:    &fakeFeed{},
		archive: &fakeArchive{},
	}
	logger := logging.Discard()
	f.svc = New(Deps{
		Source:   f.source,
		Calendar: calendar.NewSyncer(f.cal, "primary", loc, logger),
		Feed:     f.feed,
		Archive:  f.archive,
		Location: loc,
		Logger:   logger,
		Metrics:  metrics.New(),
		Now:      func() time.Time { return f.now },
	})
	return f
}

func TestRunSyncsSelectedRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opts := Options{Channel: "dtek", Limit: 50, FeedKey: "outages/schedule.ics"}

	res, err := f.svc.Run(ctx, opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Selected) != 2 || len(res.Sync.Created) != 2 {
		t.Fatalf("expected 2 selected and created, got %d/%d", len(res.Selected), len(res.Sync.Created))
	}
	if len(res.Pruned) != 1 || res.Pruned[0].String() != "2025-11-05" {
		t.Fatalf("unexpected pruned dates %v", res.Pruned)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].MessageID != 3 {
		t.Fatalf("unexpected skipped %+v", res.Skipped)
	}
	if len(f.archive.records) != 3 {
		t.Fatalf("archive must see every parsed record, got %d", len(f.archive.records))
	}
	if res.FeedURL != "https://cdn.example.com/outages/schedule.ics" {
		t.Fatalf("unexpected feed url %q", res.FeedURL)
	}
	if body := f.feed.puts["outages/schedule.ics"]; strings.Count(body, "BEGIN:VEVENT") != 2 {
		t.Fatalf("feed must carry the selected records only:\n%s", body)
	}

	res, err = f.svc.Run(ctx, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(res.Sync.Created) != 0 || res.Sync.Skipped != 2 {
		t.Fatalf("second run must skip duplicates, got %+v", res.Sync)
	}
	if len(f.cal.events) != 2 {
		t.Fatalf("calendar holds %d events", len(f.cal.events))
	}
	if len(f.archive.runs) != 2 || f.archive.runs[0].EventsCreated != 2 || f.archive.runs[1].EventsSkipped != 2 {
		t.Fatalf("unexpected runs %+v", f.archive.runs)
	}
	snap, ok := f.svc.Last()
	if !ok || len(snap.Selected) != 2 {
		t.Fatalf("expected last snapshot, got %v %+v", ok, snap)
	}
}

func TestRunDryRunLeavesCalendarAndFeedAlone(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Run(context.Background(), Options{Channel: "dtek", Limit: 50, DryRun: true, FeedKey: "k.ics"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.DryRun || len(res.Selected) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.cal.events) != 0 || len(f.feed.puts) != 0 {
		t.Fatalf("dry run must not write: events=%d feeds=%d", len(f.cal.events), len(f.feed.puts))
	}
}

func TestRunDryRunWithoutCalendar(t *testing.T) {
	f := newFixture(t)
	svc := New(Deps{Source: f.source, Location: f.loc, Logger: logging.Discard(), Now: func() time.Time { return f.now }})
	if _, err := svc.Run(context.Background(), Options{Channel: "dtek", DryRun: true}); err != nil {
		t.Fatalf("dry run needs no calendar: %v", err)
	}
	if _, err := svc.Run(context.Background(), Options{Channel: "dtek"}); !errors.Is(err, ErrNoCalendar) {
		t.Fatalf("expected ErrNoCalendar, got %v", err)
	}
}

func TestRunGroupFilter(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Run(context.Background(), Options{Channel: "dtek", Group: "2.1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Selected) != 0 || len(f.cal.events) != 0 {
		t.Fatalf("group 2.1 must select nothing, got %d", len(res.Selected))
	}
}

func TestRunSourceErrorIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("channel unavailable")
	if _, err := f.svc.Run(context.Background(), Options{Channel: "dtek"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.archive.runs) != 1 || !strings.Contains(f.archive.runs[0].Error, "channel unavailable") {
		t.Fatalf("failed run must be recorded, got %+v", f.archive.runs)
	}
	if _, ok := f.svc.Last(); ok {
		t.Fatalf("failed run must not replace the snapshot")
	}
}

func TestCleanupRespectsConfirmation(t *testing.T) {
	f := newFixture(t)
	stale := time.Date(2025, time.November, 1, 8, 0, 0, 0, f.loc)
	current := time.Date(2025, time.November, 10, 8, 0, 0, 0, f.loc)
	f.cal.events = []calendar.Event{
		{ID: "old", Summary: calendar.SummaryPrefix + ": Не вказано", Start: calendar.EventTime{DateTime: stale.Format(time.RFC3339)}, End: calendar.EventTime{DateTime: stale.Add(time.Hour).Format(time.RFC3339)}},
		{ID: "today", Summary: calendar.SummaryPrefix + ": Не вказано", Start: calendar.EventTime{DateTime: current.Format(time.RFC3339)}, End: calendar.EventTime{DateTime: current.Add(time.Hour).Format(time.RFC3339)}},
		{ID: "dentist", Summary: "Dentist", Start: calendar.EventTime{DateTime: stale.Format(time.RFC3339)}, End: calendar.EventTime{DateTime: stale.Add(time.Hour).Format(time.RFC3339)}},
	}
	ctx := context.Background()

	res, err := f.svc.Cleanup(ctx, false, func([]calendar.Event) bool { return false })
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(res.Stale) != 1 || res.Deleted != 0 || len(f.cal.events) != 3 {
		t.Fatalf("declined cleanup must not delete: %+v", res)
	}

	res, err = f.svc.Cleanup(ctx, false, func([]calendar.Event) bool { return true })
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if res.Deleted != 1 || len(res.Errors) != 0 {
		t.Fatalf("unexpected cleanup result %+v", res)
	}
	for _, ev := range f.cal.events {
		if ev.ID == "old" {
			t.Fatalf("stale event survived")
		}
	}
}

func TestCacheRefreshesAfterTTL(t *testing.T) {
	f := newFixture(t)
	cache := NewCache(f.svc, Options{Channel: "dtek"}, 5*time.Minute)
	ctx := context.Background()

	if _, err := cache.Current(ctx); err != nil {
		t.Fatalf("current: %v", err)
	}
	if _, err := cache.Current(ctx); err != nil {
		t.Fatalf("current: %v", err)
	}
	if f.source.calls != 1 {
		t.Fatalf("fresh snapshot must be reused, fetched %d times", f.source.calls)
	}
	if len(f.cal.events) != 0 {
		t.Fatalf("cache must only dry run")
	}

	f.now = f.now.Add(6 * time.Minute)
	f.source.err = errors.New("temporary")
	snap, err := cache.Current(ctx)
	if err != nil {
		t.Fatalf("stale snapshot must be served on refresh failure: %v", err)
	}
	if f.source.calls != 2 || len(snap.Selected) != 2 {
		t.Fatalf("unexpected refresh: calls=%d selected=%d", f.source.calls, len(snap.Selected))
	}
}

type fakeNotifier struct {
	texts []string
	feeds []string
}

func (f *fakeNotifier) Notify(_ context.Context, text, feedURL string) error {
	f.texts = append(f.texts, text)
	f.feeds = append(f.feeds, feedURL)
	return nil
}

func TestRunNotifiesOnlyNewEvents(t *testing.T) {
	f := newFixture(t)
	notifier := &fakeNotifier{}
	f.svc.notify = notifier
	opts := Options{Channel: "dtek", FeedKey: "outages/schedule.ics"}

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Run(context.Background(), opts); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if len(notifier.texts) != 1 {
		t.Fatalf("expected one notice for the first run, got %d", len(notifier.texts))
	}
	text := notifier.texts[0]
	if !strings.Contains(text, "2 нових нагадувань") || !strings.Contains(text, "• 10.11 08:00–12:00 Не вказано (Група 1.2)") {
		t.Fatalf("unexpected notice:\n%s", text)
	}
	if notifier.feeds[0] != "https://cdn.example.com/outages/schedule.ics" {
		t.Fatalf("unexpected feed url %q", notifier.feeds[0])
	}
}
