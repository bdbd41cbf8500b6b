package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"outagereminder/internal/calendar"
	"outagereminder/internal/config"
	"outagereminder/internal/outage"
	"outagereminder/internal/reminder"
)

type cliOptions struct {
	cleanup bool
	yes     bool
	daemon  bool
}

// parseFlags lets flags override the loaded config; unset flags keep the env values.
func parseFlags(fs *flag.FlagSet, args []string, cfg *config.Config) (cliOptions, error) {
	var cli cliOptions
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "parse and print, do not touch the calendar")
	fs.StringVar(&cfg.Telegram.Channel, "channel", cfg.Telegram.Channel, "channel name, @name or t.me link")
	fs.IntVar(&cfg.Telegram.MaxMessages, "limit", cfg.Telegram.MaxMessages, "how many recent messages to read")
	fs.StringVar(&cfg.Group, "group", cfg.Group, "only outages for this group, e.g. 1.2")
	fs.BoolVar(&cli.cleanup, "cleanup", false, "delete reminders that are not for today or tomorrow")
	fs.BoolVar(&cli.yes, "yes", false, "do not ask before deleting")
	fs.BoolVar(&cli.daemon, "daemon", false, "keep running and sync on SYNC_CRON")
	if err := fs.Parse(args); err != nil {
		return cli, err
	}
	if cfg.Telegram.MaxMessages < 1 {
		fmt.Fprintln(fs.Output(), "-limit must be positive")
		return cli, fmt.Errorf("invalid limit %d", cfg.Telegram.MaxMessages)
	}
	if cli.cleanup && cli.daemon {
		fmt.Fprintln(fs.Output(), "-cleanup and -daemon are exclusive")
		return cli, fmt.Errorf("conflicting modes")
	}
	return cli, nil
}

// confirmPrompt accepts only a literal "yes".
func confirmPrompt(in io.Reader, out io.Writer) reminder.Confirm {
	return func(stale []calendar.Event) bool {
		fmt.Fprintf(out, "Delete %d event(s)? Type 'yes' to confirm: ", len(stale))
		line, _ := bufio.NewReader(in).ReadString('\n')
		return strings.TrimSpace(line) == "yes"
	}
}

func printResult(out io.Writer, res reminder.Result, loc *time.Location) {
	fmt.Fprintf(out, "Fetched %d message(s) from %s, %d skipped\n", res.Messages, res.Channel, len(res.Skipped))
	if len(res.Pruned) > 0 {
		dates := make([]string, 0, len(res.Pruned))
		for _, d := range res.Pruned {
			dates = append(dates, d.String())
		}
		fmt.Fprintf(out, "Pruned %d date(s): %s\n", len(res.Pruned), strings.Join(dates, ", "))
	}
	if len(res.Selected) == 0 {
		fmt.Fprintln(out, "No outages for today or tomorrow")
		return
	}

	selected := outage.GroupByDate(res.Selected)
	for _, d := range selected.Dates() {
		fmt.Fprintln(out, d.String())
		for _, rec := range selected.On(d) {
			fmt.Fprintf(out, "  %s - %s  %s\n", rec.StartAt.In(loc).Format("15:04"), rec.EndAt.In(loc).Format("15:04"), calendar.Summary(rec))
		}
	}
	if res.DryRun {
		fmt.Fprintf(out, "Dry run: %d event(s) not created\n", len(res.Selected))
		return
	}
	fmt.Fprintf(out, "Created %d event(s), skipped %d duplicate(s)\n", len(res.Sync.Created), res.Sync.Skipped)
	for _, ev := range res.Sync.Created {
		if ev.HTMLLink != "" {
			fmt.Fprintf(out, "  %s\n", ev.HTMLLink)
		}
	}
	if res.FeedURL != "" {
		fmt.Fprintf(out, "Feed: %s\n", res.FeedURL)
	}
}

func printCleanup(out io.Writer, res reminder.CleanupResult, dryRun bool) {
	if len(res.Stale) == 0 {
		fmt.Fprintln(out, "No stale reminders")
		return
	}
	fmt.Fprintf(out, "Found %d stale reminder(s)\n", len(res.Stale))
	for _, ev := range res.Stale {
		fmt.Fprintf(out, "  %s  %s\n", ev.Start.DateTime, ev.Summary)
	}
	if dryRun {
		fmt.Fprintln(out, "Dry run: nothing deleted")
		return
	}
	fmt.Fprintf(out, "Deleted %d event(s)\n", res.Deleted)
}
