package outage

import (
	"testing"
	"time"
)

func TestExtractOutageInfoScheduleWithTrailingDate(t *testing.T) {
	text := "Графік відключень: Група 1.2, 08:00-12:00, з 20:00 до 23:30, 10.11"
	got := ExtractOutageInfo(text, mustDate(t, "2025-11-09"))
	if len(got) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(got))
	}
	want := []struct{ start, end Clock }{
		{Clock{Hour: 8}, Clock{Hour: 12}},
		{Clock{Hour: 20}, Clock{Hour: 23, Minute: 30}},
	}
	for i, w := range want {
		f := got[i]
		if f.Date != mustDate(t, "2025-11-10") {
			t.Fatalf("fragment %d: unexpected date %s", i, f.Date)
		}
		if f.Group != "1.2" {
			t.Fatalf("fragment %d: unexpected group %q", i, f.Group)
		}
		if f.Start != w.start || f.End != w.end {
			t.Fatalf("fragment %d: unexpected range %s-%s", i, f.Start, f.End)
		}
		if f.Description != text {
			t.Fatalf("fragment %d: description must be the verbatim text", i)
		}
		if f.Location != "" {
			t.Fatalf("fragment %d: unexpected location %q", i, f.Location)
		}
	}
}

func TestExtractOutageInfoBasic(t *testing.T) {
	got := ExtractOutageInfo("Відключення світла: Група 1, 10.11.2025, 08:00-12:00", mustDate(t, "2025-11-10"))
	if len(got) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(got))
	}
	if got[0].Group != "1" || got[0].Date != mustDate(t, "2025-11-10") {
		t.Fatalf("unexpected fragment: %+v", got[0])
	}
}

func TestExtractOutageInfoFallsBackToMessageDate(t *testing.T) {
	got := ExtractOutageInfo("Планові роботи з 14:30 до 18:00, група 2.1", mustDate(t, "2025-11-09"))
	if len(got) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(got))
	}
	f := got[0]
	if f.Date != mustDate(t, "2025-11-09") {
		t.Fatalf("expected message date, got %s", f.Date)
	}
	if f.Group != "2.1" {
		t.Fatalf("a single trailing group applies to the whole message, got %q", f.Group)
	}
	if f.Start != (Clock{Hour: 14, Minute: 30}) || f.End != (Clock{Hour: 18}) {
		t.Fatalf("unexpected range %s-%s", f.Start, f.End)
	}
}

func TestExtractOutageInfoSplitsPerGroup(t *testing.T) {
	text := "Графік на 11.11\nГрупа 1.1: 08:00-12:00, 16:00-20:00\nГрупа 1.2: 12:00-16:00, 20:00-24:00"
	got := ExtractOutageInfo(text, mustDate(t, "2025-11-10"))
	if len(got) != 4 {
		t.Fatalf("expected 4 fragments, got %d", len(got))
	}
	wantGroups := []string{"1.1", "1.1", "1.2", "1.2"}
	for i, g := range wantGroups {
		if got[i].Group != g {
			t.Fatalf("fragment %d: expected group %s, got %q", i, g, got[i].Group)
		}
		if got[i].Date != mustDate(t, "2025-11-11") {
			t.Fatalf("fragment %d: unexpected date %s", i, got[i].Date)
		}
	}
	if !got[3].Overnight() || got[3].End != (Clock{}) {
		t.Fatalf("20:00-24:00 must end at midnight: %+v", got[3])
	}
}

func TestExtractOutageInfoLeadingRangesWithManyGroupsStayUngrouped(t *testing.T) {
	text := "Відключення 07:00-08:00. Група 1: 09:00-10:00. Група 2: 10:00-11:00"
	got := ExtractOutageInfo(text, mustDate(t, "2025-11-10"))
	if len(got) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(got))
	}
	if got[0].Group != "" || got[1].Group != "1" || got[2].Group != "2" {
		t.Fatalf("unexpected groups: %q %q %q", got[0].Group, got[1].Group, got[2].Group)
	}
}

func TestExtractOutageInfoDatesPerSection(t *testing.T) {
	text := "Графік відключень\n10 листопада: 08:00-10:00\n11 листопада: 14:00-16:00"
	got := ExtractOutageInfo(text, mustDate(t, "2025-11-09"))
	if len(got) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(got))
	}
	if got[0].Date != mustDate(t, "2025-11-10") || got[1].Date != mustDate(t, "2025-11-11") {
		t.Fatalf("unexpected dates: %s %s", got[0].Date, got[1].Date)
	}
}

func TestExtractOutageInfoLocation(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		location string
	}{
		{name: "street abbreviation", text: "Відключення 10.11 вул. Шевченка 12: з 09:00 до 17:00", location: "Шевченка 12"},
		{name: "district", text: "Відключення район Оболонь: 08:00-12:00", location: "Оболонь"},
		{name: "plural district is not a marker", text: "Графік відключень у районах Оболонь: 08:00-12:00", location: ""},
		{name: "instrumental district is not a marker", text: "Відключення за районом Оболонь: 08:00-12:00", location: ""},
		{name: "plural street then real marker", text: "Роботи на вулицях міста, вул. Франка: 08:00-12:00", location: "Франка"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractOutageInfo(tt.text, mustDate(t, "2025-11-09"))
			if len(got) != 1 {
				t.Fatalf("expected 1 fragment, got %d", len(got))
			}
			if got[0].Location != tt.location {
				t.Fatalf("expected location %q, got %q", tt.location, got[0].Location)
			}
			if got[0].Group != "" {
				t.Fatalf("unexpected group %q", got[0].Group)
			}
		})
	}
}

func TestExtractOutageInfoNoTimes(t *testing.T) {
	if got := ExtractOutageInfo("Графік відключень буде пізніше", mustDate(t, "2025-11-09")); len(got) != 0 {
		t.Fatalf("expected no fragments, got %+v", got)
	}
	if got := ExtractOutageInfo("", mustDate(t, "2025-11-09")); got != nil {
		t.Fatalf("expected nil for empty text")
	}
}

func TestResolveDateLayers(t *testing.T) {
	msgDate := mustDate(t, "2025-11-09")
	text := "10.11 08:00-09:00 12.11"
	scan := scanText(text)
	if len(scan.dates) != 2 || len(scan.times) != 1 {
		t.Fatalf("unexpected scan: %+v", scan)
	}
	d, src := resolveDate(scan.times[0].span, scan.dates, msgDate)
	if src != dateFromPreceding || d != mustDate(t, "2025-11-10") {
		t.Fatalf("expected preceding date, got %s from %s", d, src)
	}
	d, src = resolveDate(scan.times[0].span, scan.dates[1:], msgDate)
	if src != dateFromFollowing || d != mustDate(t, "2025-11-12") {
		t.Fatalf("expected following date, got %s from %s", d, src)
	}
	d, src = resolveDate(scan.times[0].span, nil, msgDate)
	if src != dateFromMessage || d != msgDate {
		t.Fatalf("expected message date, got %s from %s", d, src)
	}
}

func TestExtractOutageInfoYearRollover(t *testing.T) {
	got := ExtractOutageInfo("Відключення 02.01: 08:00-12:00", mustDate(t, "2024-12-30"))
	if len(got) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(got))
	}
	if want := (Date{Year: 2025, Month: time.January, Day: 2}); got[0].Date != want {
		t.Fatalf("expected %s, got %s", want, got[0].Date)
	}
}

func TestExtractOutageInfoGroupListKeepsFirst(t *testing.T) {
	got := ExtractOutageInfo("Група 1.1 та 1.2: 08:00-12:00", mustDate(t, "2025-11-09"))
	if len(got) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(got))
	}
	if got[0].Group != "1.1" {
		t.Fatalf("expected group 1.1, got %q", got[0].Group)
	}
}
