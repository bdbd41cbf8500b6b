package calendar

import (
	"strings"
	"time"

	"outagereminder/internal/outage"
)

const (
	// SummaryPrefix marks the events this tool owns; sync and cleanup only touch those.
	SummaryPrefix = "⚡ Відключення світла"
	// ColorID is the red "Tomato" event color.
	ColorID = "11"

	unknownLocation = "Не вказано"
)

// BuildEvent maps a record to an event body. Instants keep their zone offset.
func BuildEvent(r outage.OutageRecord) Event {
	return Event{
		Summary:     Summary(r),
		Description: r.Description,
		Start:       EventTime{DateTime: r.StartAt.Format(time.RFC3339)},
		End:         EventTime{DateTime: r.EndAt.Format(time.RFC3339)},
		ColorID:     ColorID,
	}
}

func Summary(r outage.OutageRecord) string {
	location := strings.TrimSpace(r.Location)
	if location == "" {
		location = unknownLocation
	}
	summary := SummaryPrefix + ": " + location
	if r.Group != "" {
		summary += " (Група " + r.Group + ")"
	}
	return summary
}

// Owned reports whether ev was created by this tool.
func Owned(ev Event) bool {
	return strings.HasPrefix(ev.Summary, SummaryPrefix)
}

// StartTime parses the timed start of ev. All-day events report false.
func (ev Event) StartTime() (time.Time, bool) {
	return parseEventTime(ev.Start)
}

func (ev Event) EndTime() (time.Time, bool) {
	return parseEventTime(ev.End)
}

func parseEventTime(et EventTime) (time.Time, bool) {
	if et.DateTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, et.DateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
