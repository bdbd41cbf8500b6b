package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outagereminder/internal/outage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ArchivedRecord is an outage record as stored, with the bookkeeping columns.
type ArchivedRecord struct {
	ID        int64
	Date      outage.Date
	StartAt   time.Time
	EndAt     time.Time
	Group     string
	Location  string
	FirstSeen time.Time
	LastSeen  time.Time
}

// SyncRun summarizes one pipeline run.
type SyncRun struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Channel       string
	Messages      int
	Skipped       int
	Records       int
	Selected      int
	EventsCreated int
	EventsSkipped int
	Error         string
}

// UpsertRecords stores records keyed by interval, group and location. Records
// seen before only get last_seen and the description refreshed. It returns the
// number of rows that were new.
func (r *Repository) UpsertRecords(ctx context.Context, records []outage.OutageRecord, seenAt time.Time) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO outage_records (outage_date, start_at, end_at, grp, location, description, first_seen, last_seen)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			ON CONFLICT (start_at, end_at, grp, location)
			DO UPDATE SET description = EXCLUDED.description, last_seen = EXCLUDED.last_seen
			RETURNING (xmax = 0)`,
			rec.Date.In(time.UTC), rec.StartAt, rec.EndAt, rec.Group, rec.Location, rec.Description, seenAt)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range records {
		var fresh bool
		if err := br.QueryRow().Scan(&fresh); err != nil {
			return inserted, fmt.Errorf("upsert outage record: %w", err)
		}
		if fresh {
			inserted++
		}
	}
	return inserted, nil
}

// ListRange returns archived records whose date falls in [from, to], ordered by
// start. An empty group matches every group.
func (r *Repository) ListRange(ctx context.Context, from, to outage.Date, group string) ([]ArchivedRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, outage_date, start_at, end_at, grp, location, first_seen, last_seen
		FROM outage_records
		WHERE outage_date BETWEEN $1 AND $2 AND ($3 = '' OR grp = $3)
		ORDER BY start_at, id`,
		from.In(time.UTC), to.In(time.UTC), group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ArchivedRecord, 0)
	for rows.Next() {
		var rec ArchivedRecord
		var day time.Time
		if err := rows.Scan(&rec.ID, &day, &rec.StartAt, &rec.EndAt, &rec.Group, &rec.Location, &rec.FirstSeen, &rec.LastSeen); err != nil {
			return nil, err
		}
		rec.Date = outage.DateOf(day, time.UTC)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) RecordRun(ctx context.Context, run SyncRun) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sync_runs (started_at, finished_at, channel, messages, skipped, records, selected, events_created, events_skipped, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		run.StartedAt, run.FinishedAt, run.Channel, run.Messages, run.Skipped, run.Records, run.Selected,
		run.EventsCreated, run.EventsSkipped, run.Error).Scan(&id)
	return id, err
}

// LastRun returns the most recent run, or ok=false when none was recorded.
func (r *Repository) LastRun(ctx context.Context) (SyncRun, bool, error) {
	var run SyncRun
	err := r.pool.QueryRow(ctx, `
		SELECT id, started_at, finished_at, channel, messages, skipped, records, selected, events_created, events_skipped, error
		FROM sync_runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1`).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Channel, &run.Messages, &run.Skipped,
		&run.Records, &run.Selected, &run.EventsCreated, &run.EventsSkipped, &run.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return SyncRun{}, false, nil
	}
	if err != nil {
		return SyncRun{}, false, err
	}
	return run, true, nil
}
