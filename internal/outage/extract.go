package outage

import "strings"

// dateSource records which rule supplied a fragment's date.
type dateSource int

const (
	dateFromPreceding dateSource = iota
	dateFromFollowing
	dateFromMessage
)

func (s dateSource) String() string {
	switch s {
	case dateFromPreceding:
		return "preceding"
	case dateFromFollowing:
		return "following"
	default:
		return "message"
	}
}

// ExtractOutageInfo returns one fragment per time range found in text, in text order.
// Fragments without an explicit date fall back to messageDate. The whole text is kept
// as the description of every fragment.
func ExtractOutageInfo(text string, messageDate Date) []Fragment {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	scan := scanText(text)
	if len(scan.times) == 0 {
		return nil
	}
	out := make([]Fragment, 0, len(scan.times))
	for _, tm := range scan.times {
		date, _ := resolveDate(tm.span, scan.dates, messageDate)
		f := Fragment{
			Date:        date,
			Start:       tm.start,
			End:         tm.end,
			Description: text,
		}
		if g, ok := resolveMarker(tm.span, scan.groups); ok {
			f.Group = g.id
		}
		if loc, ok := resolveMarker(tm.span, scan.locations); ok {
			f.Location = loc.text
		}
		out = append(out, f)
	}
	return out
}

// resolveDate applies, in order: the nearest date before the range, the first date
// after it, and finally the message date. Dates without a year resolve against messageDate.
func resolveDate(at span, dates []dateMatch, messageDate Date) (Date, dateSource) {
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i].end > at.start {
			continue
		}
		if d, ok := dates[i].resolve(messageDate); ok {
			return d, dateFromPreceding
		}
	}
	for _, d := range dates {
		if d.start < at.end {
			continue
		}
		if resolved, ok := d.resolve(messageDate); ok {
			return resolved, dateFromFollowing
		}
	}
	return messageDate, dateFromMessage
}

func (d dateMatch) resolve(messageDate Date) (Date, bool) {
	if d.hasYear {
		return NewDate(d.year, d.month, d.day)
	}
	return ResolveYear(d.day, d.month, messageDate)
}

type marker interface {
	bounds() span
}

func (s span) bounds() span { return s }

// resolveMarker picks the nearest marker before the range. A range with no marker
// before it inherits the only marker of the message, if there is exactly one.
func resolveMarker[T marker](at span, markers []T) (T, bool) {
	var zero T
	for i := len(markers) - 1; i >= 0; i-- {
		if markers[i].bounds().end <= at.start {
			return markers[i], true
		}
	}
	if len(markers) == 1 {
		return markers[0], true
	}
	return zero, false
}
