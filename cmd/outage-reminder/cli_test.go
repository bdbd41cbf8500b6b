package main

import (
	"bytes"
	"flag"
	"io"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"outagereminder/internal/calendar"
	"outagereminder/internal/config"
	"outagereminder/internal/outage"
	"outagereminder/internal/reminder"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("outage-reminder", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlagsOverridesConfig(t *testing.T) {
	cfg := &config.Config{
		Telegram: config.TelegramConfig{Channel: "from_env", MaxMessages: 50},
		Group:    "1.1",
	}
	cli, err := parseFlags(newFlagSet(), []string{"-channel", "@dtek_kyiv", "-limit", "10", "-dry-run", "-cleanup", "-yes"}, cfg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Telegram.Channel != "@dtek_kyiv" || cfg.Telegram.MaxMessages != 10 || !cfg.DryRun {
		t.Fatalf("flags must override config: %+v", cfg)
	}
	if cfg.Group != "1.1" {
		t.Fatalf("unset flags must keep config values, got group %q", cfg.Group)
	}
	if !cli.cleanup || !cli.yes || cli.daemon {
		t.Fatalf("unexpected cli options %+v", cli)
	}
}

func TestParseFlagsRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"-limit", "0"},
		{"-cleanup", "-daemon"},
		{"-limit", "many"},
	} {
		cfg := &config.Config{Telegram: config.TelegramConfig{MaxMessages: 50}}
		if _, err := parseFlags(newFlagSet(), args, cfg); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestConfirmPromptNeedsLiteralYes(t *testing.T) {
	stale := []calendar.Event{{ID: "a"}, {ID: "b"}}
	for input, want := range map[string]bool{"yes\n": true, " yes \n": true, "y\n": false, "YES\n": false, "": false} {
		var out bytes.Buffer
		got := confirmPrompt(strings.NewReader(input), &out)(stale)
		if got != want {
			t.Fatalf("%q: got %v", input, got)
		}
		if !strings.Contains(out.String(), "Delete 2 event(s)?") {
			t.Fatalf("unexpected prompt %q", out.String())
		}
	}
}

func TestPrintResult(t *testing.T) {
	loc, err := outage.LoadZone("Europe/Kyiv")
	if err != nil {
		t.Fatalf("zone: %v", err)
	}
	day := outage.Date{Year: 2025, Month: time.November, Day: 10}
	records := outage.Build([]outage.Fragment{
		{Date: day, Start: outage.Clock{Hour: 22}, End: outage.Clock{Hour: 2}, Group: "1.2"},
	}, loc)
	res := reminder.Result{
		Snapshot: reminder.Snapshot{
			Channel:  "dtek",
			Messages: 4,
			Selected: records,
			Skipped:  []outage.Skipped{{MessageID: 1, Reason: outage.SkipNotOutage}},
			Pruned:   []outage.Date{day.AddDays(-2), day.AddDays(-1)},
		},
		Sync: calendar.SyncResult{Created: []calendar.Event{{HTMLLink: "https://calendar.google.com/event?eid=x"}}},
	}
	var out bytes.Buffer
	printResult(&out, res, loc)
	text := out.String()
	for _, want := range []string{
		"Fetched 4 message(s) from dtek, 1 skipped",
		"Pruned 2 date(s): 2025-11-08, 2025-11-09",
		"2025-11-10\n  22:00 - 02:00  ⚡ Відключення світла: Не вказано (Група 1.2)",
		"Created 1 event(s), skipped 0 duplicate(s)",
		"https://calendar.google.com/event?eid=x",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}

	res.DryRun = true
	out.Reset()
	printResult(&out, res, loc)
	if !strings.Contains(out.String(), "Dry run: 1 event(s) not created") || strings.Contains(out.String(), "Created") {
		t.Fatalf("unexpected dry run output:\n%s", out.String())
	}
}

func TestPrintCleanup(t *testing.T) {
	res := reminder.CleanupResult{
		Stale:   []calendar.Event{{Summary: calendar.SummaryPrefix + ": Не вказано", Start: calendar.EventTime{DateTime: "2025-11-01T08:00:00+02:00"}}},
		Deleted: 1,
	}
	var out bytes.Buffer
	printCleanup(&out, res, false)
	if !strings.Contains(out.String(), "Found 1 stale reminder(s)") || !strings.Contains(out.String(), "Deleted 1 event(s)") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	out.Reset()
	printCleanup(&out, reminder.CleanupResult{}, false)
	if strings.TrimSpace(out.String()) != "No stale reminders" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
