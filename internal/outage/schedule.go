package outage

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Schedule groups records by calendar date. Iteration is always in date order.
type Schedule struct {
	byDate map[Date][]OutageRecord
}

// GroupByDate groups records by their Date. Records are kept as given; nothing is deduplicated.
func GroupByDate(records []OutageRecord) Schedule {
	s := Schedule{byDate: make(map[Date][]OutageRecord)}
	for _, r := range records {
		s.byDate[r.Date] = append(s.byDate[r.Date], r)
	}
	return s
}

// Dates returns the keys in ascending order.
func (s Schedule) Dates() []Date {
	dates := make([]Date, 0, len(s.byDate))
	for d := range s.byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func (s Schedule) On(d Date) []OutageRecord {
	return s.byDate[d]
}

func (s Schedule) Len() int {
	return len(s.byDate)
}

// All flattens the schedule in date order, keeping insertion order within a date.
func (s Schedule) All() []OutageRecord {
	out := make([]OutageRecord, 0)
	for _, d := range s.Dates() {
		out = append(out, s.byDate[d]...)
	}
	return out
}

// MarshalJSON renders the schedule as {"2006-01-02": [...]}.
func (s Schedule) MarshalJSON() ([]byte, error) {
	m := make(map[string][]OutageRecord, len(s.byDate))
	for d, records := range s.byDate {
		m[d.String()] = records
	}
	return json.Marshal(m)
}

// SkipReason explains why a message produced no records.
type SkipReason string

const (
	SkipEmpty       SkipReason = "empty"
	SkipNotOutage   SkipReason = "not_outage"
	SkipNoTimeRange SkipReason = "no_time_range"
)

// Skipped identifies a message the pipeline did not turn into records.
type Skipped struct {
	MessageID int64      `json:"message_id"`
	Reason    SkipReason `json:"reason"`
}

// ParseMessages runs every message through classification, extraction and
// resolution in loc and groups the result by date. Each message's send date is
// taken in loc. Skipped messages are reported, never treated as errors.
func ParseMessages(messages []RawMessage, loc *time.Location) (Schedule, []Skipped) {
	var records []OutageRecord
	var skipped []Skipped
	for _, msg := range messages {
		if strings.TrimSpace(msg.Text) == "" {
			skipped = append(skipped, Skipped{MessageID: msg.ID, Reason: SkipEmpty})
			continue
		}
		if !IsOutageMessage(msg.Text) {
			skipped = append(skipped, Skipped{MessageID: msg.ID, Reason: SkipNotOutage})
			continue
		}
		fragments := ExtractOutageInfo(msg.Text, DateOf(msg.Timestamp, loc))
		if len(fragments) == 0 {
			skipped = append(skipped, Skipped{MessageID: msg.ID, Reason: SkipNoTimeRange})
			continue
		}
		records = append(records, Build(fragments, loc)...)
	}
	return GroupByDate(records), skipped
}
