package outage

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func kyiv(t *testing.T) *time.Location {
	t.Helper()
	loc, err := LoadZone("Europe/Kyiv")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return loc
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return ts
}
