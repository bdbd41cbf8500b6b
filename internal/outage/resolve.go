package outage

import (
	"fmt"
	"strings"
	"time"
)

// YearRolloverGrace is how far in the past a year-less date may fall before it is
// moved to the next year (a late-December post about early January).
const YearRolloverGrace = 30 * 24 * time.Hour

// ZoneError reports an unknown or empty IANA zone name.
type ZoneError struct {
	Name string
	Err  error
}

func (e *ZoneError) Error() string {
	if e == nil {
		return "invalid timezone"
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid timezone %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("invalid timezone %q", e.Name)
}

func (e *ZoneError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LoadZone loads an IANA zone. It never falls back to another zone.
func LoadZone(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, &ZoneError{Name: name}
	}
	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, &ZoneError{Name: name, Err: err}
	}
	return loc, nil
}

// ResolveYear picks the year for a day/month mentioned without one: the message's
// year, or the following year when that would land more than YearRolloverGrace
// before the message date.
func ResolveYear(day int, month time.Month, messageDate Date) (Date, bool) {
	candidate, ok := NewDate(messageDate.Year, month, day)
	if ok {
		cutoff := messageDate.In(time.UTC).Add(-YearRolloverGrace)
		if !candidate.In(time.UTC).Before(cutoff) {
			return candidate, true
		}
	}
	return NewDate(messageDate.Year+1, month, day)
}

// Resolve combines the date with both clock times in loc. When end is not after
// start the range is overnight and the end moves to the next calendar day.
func Resolve(d Date, start, end Clock, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	startAt := time.Date(d.Year, d.Month, d.Day, start.Hour, start.Minute, 0, 0, loc)
	endDate := d
	if end.Minutes() <= start.Minutes() {
		endDate = d.AddDays(1)
	}
	endAt := time.Date(endDate.Year, endDate.Month, endDate.Day, end.Hour, end.Minute, 0, 0, loc)
	for !endAt.After(startAt) {
		// A DST fold can collapse a short range; keep the pair ordered.
		endAt = endAt.Add(time.Hour)
	}
	return startAt, endAt
}

// Build resolves fragments into records in loc.
func Build(fragments []Fragment, loc *time.Location) []OutageRecord {
	out := make([]OutageRecord, 0, len(fragments))
	for _, f := range fragments {
		startAt, endAt := Resolve(f.Date, f.Start, f.End, loc)
		out = append(out, OutageRecord{Fragment: f, StartAt: startAt, EndAt: endAt})
	}
	return out
}
