package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"outagereminder/internal/fetch"
	"outagereminder/internal/outage"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultBaseURL  = "https://t.me"
	defaultMaxPages = 20
)

// Source reads recent posts from a public channel's t.me/s preview pages.
type Source struct {
	fetcher  fetch.Fetcher
	logger   *slog.Logger
	baseURL  string
	maxPages int
}

func NewSource(fetcher fetch.Fetcher, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{fetcher: fetcher, logger: logger, baseURL: DefaultBaseURL, maxPages: defaultMaxPages}
}

// WithBaseURL points the source at another host; tests use it with httptest.
func (s *Source) WithBaseURL(base string) *Source {
	s.baseURL = base
	return s
}

// Fetch returns up to limit of the newest posts of channel, newest first.
// Older pages are requested with ?before=<lowest id seen> until limit is
// reached or the channel runs out.
func (s *Source) Fetch(ctx context.Context, channel string, limit int) ([]outage.RawMessage, error) {
	if s == nil || s.fetcher == nil {
		return nil, fmt.Errorf("telegram source is not configured")
	}
	name, err := ChannelName(channel)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	seen := make(map[int64]struct{})
	out := make([]outage.RawMessage, 0, limit)
	var before int64
	for page := 0; page < s.maxPages && len(out) < limit; page++ {
		pageURL := PageURL(s.baseURL, name, before)
		body, status, err := s.fetcher.Get(ctx, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
		}
		if status == http.StatusNotFound {
			return nil, &UnsupportedInputError{Input: channel, Hint: "channel not found"}
		}
		if status >= http.StatusBadRequest {
			return nil, fmt.Errorf("fetch %s: status %d", pageURL, status)
		}
		posts, err := ParsePage(body)
		if err != nil {
			return nil, err
		}
		fresh := posts[:0]
		for _, p := range posts {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			fresh = append(fresh, p)
		}
		s.logger.Debug("telegram_page", "channel", name, "url", pageURL, "posts", len(fresh))
		if len(fresh) == 0 {
			break
		}
		sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID > fresh[j].ID })
		for _, p := range fresh {
			if len(out) == limit {
				break
			}
			out = append(out, p)
		}
		before = fresh[len(fresh)-1].ID
		if before <= 1 {
			break
		}
	}
	return out, nil
}

// ParsePage extracts posts from one preview page in page order. Posts without
// an id are ignored; posts without text are kept with empty Text.
func ParsePage(body []byte) ([]outage.RawMessage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse telegram page: %w", err)
	}
	var out []outage.RawMessage
	doc.Find("div.tgme_widget_message").Each(func(_ int, msg *goquery.Selection) {
		id := postID(msg.AttrOr("data-post", ""))
		if id <= 0 {
			return
		}
		out = append(out, outage.RawMessage{
			ID:        id,
			Timestamp: postTime(msg),
			Text:      messageText(msg.Find("div.tgme_widget_message_text").First()),
		})
	})
	return out, nil
}

func postID(dataPost string) int64 {
	parts := strings.Split(strings.TrimSpace(dataPost), "/")
	if len(parts) != 2 {
		return 0
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func postTime(msg *goquery.Selection) time.Time {
	node := msg.Find("a.tgme_widget_message_date time").First()
	if node.Length() == 0 {
		node = msg.Find("time[datetime]").First()
	}
	raw := strings.TrimSpace(node.AttrOr("datetime", ""))
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// messageText keeps line breaks, which the extractor relies on to split sections.
func messageText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	sel = sel.Clone()
	sel.Find("br").ReplaceWithHtml("\n")
	lines := strings.Split(sel.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
