package reminder

import (
	"fmt"
	"strings"
	"time"

	"outagereminder/internal/calendar"
)

// NoticeText lists created events as "dd.mm hh:mm–hh:mm summary" lines.
func NoticeText(created []calendar.Event, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d нових нагадувань\n", calendar.SummaryPrefix, len(created))
	for _, ev := range created {
		start, okStart := ev.StartTime()
		end, okEnd := ev.EndTime()
		if !okStart || !okEnd {
			fmt.Fprintf(&b, "• %s\n", ev.Summary)
			continue
		}
		start, end = start.In(loc), end.In(loc)
		detail := strings.TrimPrefix(strings.TrimPrefix(ev.Summary, calendar.SummaryPrefix), ": ")
		fmt.Fprintf(&b, "• %s %s–%s %s\n", start.Format("02.01"), start.Format("15:04"), end.Format("15:04"), detail)
	}
	return strings.TrimRight(b.String(), "\n")
}
