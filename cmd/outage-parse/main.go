package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"outagereminder/internal/fetch"
	"outagereminder/internal/logging"
	"outagereminder/internal/outage"
	"outagereminder/internal/reminder"
	"outagereminder/internal/telegram"
)

func main() {
	zoneFlag := flag.String("timezone", "Europe/Kyiv", "IANA zone the message was written in")
	dateFlag := flag.String("date", "", "message send date YYYY-MM-DD (default: today)")
	channelFlag := flag.String("channel", "", "fetch this channel instead of parsing text")
	limitFlag := flag.Int("limit", 20, "messages to fetch with -channel")
	timeoutFlag := flag.Duration("timeout", 30*time.Second, "fetch timeout")
	flag.Parse()

	loc, err := outage.LoadZone(*zoneFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	var payload interface{}
	if *channelFlag != "" {
		ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
		defer cancel()
		logger := logging.Discard()
		svc := reminder.New(reminder.Deps{
			Source:   telegram.NewSource(fetch.New(logger, fetch.Options{}), logger),
			Location: loc,
			Logger:   logger,
		})
		res, err := svc.Run(ctx, reminder.Options{Channel: *channelFlag, Limit: *limitFlag, DryRun: true})
		if err != nil {
			fmt.Fprintf(os.Stderr, "fetch error: %v\n", err)
			os.Exit(1)
		}
		payload = res.Snapshot
	} else {
		text, err := inputText(flag.Args(), os.Stdin)
		if err != nil || strings.TrimSpace(text) == "" {
			fmt.Fprintln(os.Stderr, "usage: outage-parse [-timezone Europe/Kyiv] [-date YYYY-MM-DD] \"<message text>\"  (or text on stdin)")
			os.Exit(2)
		}
		payload, err = parseText(text, *dateFlag, loc, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func inputText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type parseOutput struct {
	IsOutage bool                  `json:"is_outage"`
	Records  []outage.OutageRecord `json:"records"`
}

func parseText(text, date string, loc *time.Location, now time.Time) (parseOutput, error) {
	messageDate := outage.DateOf(now, loc)
	if date != "" {
		d, err := outage.ParseDate(date)
		if err != nil {
			return parseOutput{}, err
		}
		messageDate = d
	}
	out := parseOutput{IsOutage: outage.IsOutageMessage(text), Records: []outage.OutageRecord{}}
	if !out.IsOutage {
		return out, nil
	}
	out.Records = outage.Build(outage.ExtractOutageInfo(text, messageDate), loc)
	return out, nil
}
