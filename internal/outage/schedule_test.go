package outage

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseMessagesEndToEnd(t *testing.T) {
	loc := kyiv(t)
	messages := []RawMessage{
		{ID: 1, Timestamp: mustTime(t, "2025-11-09T18:30:00+02:00"), Text: "Графік відключень: Група 1.2, 08:00-12:00, з 20:00 до 23:30, 10.11"},
		{ID: 2, Timestamp: mustTime(t, "2025-11-09T19:00:00+02:00"), Text: "Доброго вечора! Бережіть себе."},
		{ID: 3, Timestamp: mustTime(t, "2025-11-09T19:05:00+02:00"), Text: "   "},
	}
	schedule, skipped := ParseMessages(messages, loc)
	if schedule.Len() != 1 {
		t.Fatalf("expected one date, got %d", schedule.Len())
	}
	records := schedule.On(mustDate(t, "2025-11-10"))
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	wants := []struct{ start, end string }{
		{"2025-11-10T08:00:00+02:00", "2025-11-10T12:00:00+02:00"},
		{"2025-11-10T20:00:00+02:00", "2025-11-10T23:30:00+02:00"},
	}
	for i, w := range wants {
		if !records[i].StartAt.Equal(mustTime(t, w.start)) || !records[i].EndAt.Equal(mustTime(t, w.end)) {
			t.Fatalf("record %d: unexpected instants %s-%s", i, records[i].StartAt, records[i].EndAt)
		}
		if records[i].Group != "1.2" {
			t.Fatalf("record %d: unexpected group %q", i, records[i].Group)
		}
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped messages, got %+v", skipped)
	}
	if skipped[0] != (Skipped{MessageID: 2, Reason: SkipNotOutage}) || skipped[1] != (Skipped{MessageID: 3, Reason: SkipEmpty}) {
		t.Fatalf("unexpected skip reasons: %+v", skipped)
	}
}

func TestParseMessagesUsesLocalSendDate(t *testing.T) {
	loc := kyiv(t)
	// 22:30 UTC on the 9th is already the 10th in Kyiv.
	messages := []RawMessage{{ID: 7, Timestamp: mustTime(t, "2025-11-09T22:30:00Z"), Text: "Відключення світла 08:00-10:00"}}
	schedule, _ := ParseMessages(messages, loc)
	if len(schedule.On(mustDate(t, "2025-11-10"))) != 1 {
		t.Fatalf("expected the record on 2025-11-10, got dates %v", schedule.Dates())
	}
}

func TestGroupByDateKeepsDuplicates(t *testing.T) {
	loc := kyiv(t)
	f := Fragment{Date: mustDate(t, "2025-11-10"), Start: Clock{Hour: 8}, End: Clock{Hour: 12}}
	records := Build([]Fragment{f, f}, loc)
	s := GroupByDate(records)
	if got := len(s.On(f.Date)); got != 2 {
		t.Fatalf("expected duplicates to be kept, got %d", got)
	}
}

func TestScheduleOrderingAndJSON(t *testing.T) {
	loc := kyiv(t)
	fragments := []Fragment{
		{Date: mustDate(t, "2025-11-12"), Start: Clock{Hour: 8}, End: Clock{Hour: 9}},
		{Date: mustDate(t, "2025-11-10"), Start: Clock{Hour: 10}, End: Clock{Hour: 11}},
		{Date: mustDate(t, "2025-11-10"), Start: Clock{Hour: 6}, End: Clock{Hour: 7}},
	}
	s := GroupByDate(Build(fragments, loc))
	dates := s.Dates()
	if len(dates) != 2 || dates[0] != mustDate(t, "2025-11-10") || dates[1] != mustDate(t, "2025-11-12") {
		t.Fatalf("unexpected date order %v", dates)
	}
	all := s.All()
	if len(all) != 3 || all[0].Start.Hour != 10 || all[1].Start.Hour != 6 || all[2].Start.Hour != 8 {
		t.Fatalf("unexpected flattening order %+v", all)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	if strings.Index(body, `"2025-11-10"`) > strings.Index(body, `"2025-11-12"`) {
		t.Fatalf("expected sorted keys: %s", body)
	}
	if !strings.Contains(body, `"start_time":"10:00"`) || !strings.Contains(body, `"date":"2025-11-10"`) {
		t.Fatalf("unexpected record encoding: %s", body)
	}
}
