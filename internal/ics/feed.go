package ics

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"outagereminder/internal/calendar"
	"outagereminder/internal/outage"
)

const (
	productID   = "-//outagereminder//outage schedule//UK"
	uidDomain   = "outagereminder"
	ContentType = "text/calendar; charset=utf-8"
)

// Options describes the feed as a whole.
type Options struct {
	Name     string
	Timezone string
	Now      time.Time
	// Alarm, when positive, adds a display alarm that long before each outage.
	Alarm time.Duration
}

// Render builds a VCALENDAR with one VEVENT per record. Event UIDs depend only
// on the interval and group, so re-published feeds update events in place.
func Render(records []outage.OutageRecord, opts Options) string {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Timezone != "" {
		cal.SetXWRTimezone(opts.Timezone)
	}
	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}
	for _, r := range records {
		ev := cal.AddEvent(UID(r))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(r.StartAt)
		ev.SetEndAt(r.EndAt)
		ev.SetSummary(calendar.Summary(r))
		if r.Description != "" {
			ev.SetDescription(r.Description)
		}
		if r.Location != "" {
			ev.SetLocation(r.Location)
		}
		if r.Group != "" {
			ev.AddProperty(ical.ComponentPropertyCategories, "Група "+r.Group)
		}
		if opts.Alarm > 0 {
			alarm := ev.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", int(opts.Alarm.Minutes())))
		}
	}
	return cal.Serialize()
}

// UID is stable for the same interval and group.
func UID(r outage.OutageRecord) string {
	key := strings.Join([]string{
		r.StartAt.UTC().Format(time.RFC3339),
		r.EndAt.UTC().Format(time.RFC3339),
		r.Group,
		r.Location,
	}, "|")
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:10]) + "@" + uidDomain
}

// Event is a VEVENT read back from a feed.
type Event struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
}

// Parse reads the events of a feed; it is the inverse of Render for the fields it keeps.
func Parse(body string) ([]Event, error) {
	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}
	var out []Event
	for _, ve := range cal.Events() {
		ev := Event{}
		if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			ev.UID = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			ev.Summary = p.Value
		}
		if ev.Start, err = ve.GetStartAt(); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.UID, err)
		}
		if ev.End, err = ve.GetEndAt(); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.UID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}
