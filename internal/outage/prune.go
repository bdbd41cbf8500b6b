package outage

import "time"

// Window returns today and tomorrow as seen in loc at now.
func Window(now time.Time, loc *time.Location) (Date, Date) {
	today := DateOf(now, loc)
	return today, today.AddDays(1)
}

// Prune keeps records dated today or tomorrow in loc.
func Prune(records []OutageRecord, now time.Time, loc *time.Location) []OutageRecord {
	today, tomorrow := Window(now, loc)
	out := make([]OutageRecord, 0, len(records))
	for _, r := range records {
		if r.Date == today || r.Date == tomorrow {
			out = append(out, r)
		}
	}
	return out
}

// FilterGroup keeps records whose group equals group exactly. An empty group keeps everything.
func FilterGroup(records []OutageRecord, group string) []OutageRecord {
	if group == "" {
		return records
	}
	out := make([]OutageRecord, 0, len(records))
	for _, r := range records {
		if r.Group == group {
			out = append(out, r)
		}
	}
	return out
}

// Selection configures Select.
type Selection struct {
	Now      time.Time
	Location *time.Location
	Group    string
}

// Select applies the date window and the group filter; a record must pass both.
func Select(records []OutageRecord, sel Selection) []OutageRecord {
	return FilterGroup(Prune(records, sel.Now, sel.Location), sel.Group)
}

// PrunedDates lists the dates of s that fall outside the today/tomorrow window.
func PrunedDates(s Schedule, now time.Time, loc *time.Location) []Date {
	today, tomorrow := Window(now, loc)
	var out []Date
	for _, d := range s.Dates() {
		if d != today && d != tomorrow {
			out = append(out, d)
		}
	}
	return out
}
