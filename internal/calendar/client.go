package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// EventTime is either a dateTime (timed event) or a date (all-day event).
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is the subset of the Calendar event resource this tool reads and writes.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	ColorID     string    `json:"colorId,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
	Status      string    `json:"status,omitempty"`
}

// Client adapts the Calendar v3 service to the Calendar interface.
type Client struct {
	svc    *gcal.Service
	logger *slog.Logger
}

// NewClient builds the Calendar service from opts, typically
// option.WithTokenSource with a source from TokenSource.
func NewClient(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return &Client{svc: svc, logger: logger}, nil
}

// Insert creates ev in calendarID and returns the stored resource.
func (c *Client) Insert(ctx context.Context, calendarID string, ev Event) (Event, error) {
	created, err := c.svc.Events.Insert(strings.TrimSpace(calendarID), toAPI(ev)).Context(ctx).Do()
	if err != nil {
		return Event{}, err
	}
	c.logger.Debug("calendar_api", "op", "insert", "event_id", created.Id)
	return fromAPI(created), nil
}

// List returns the single (expanded) events starting in [timeMin, timeMax), following
// every result page.
func (c *Client) List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	var out []Event
	call := c.svc.Events.List(strings.TrimSpace(calendarID)).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339))
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			out = append(out, fromAPI(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("calendar_api", "op", "list", "count", len(out))
	return out, nil
}

// Delete removes eventID. An event that is already gone is not an error.
func (c *Client) Delete(ctx context.Context, calendarID, eventID string) error {
	err := c.svc.Events.Delete(strings.TrimSpace(calendarID), eventID).Context(ctx).Do()
	if IsStatus(err, http.StatusGone) {
		return nil
	}
	return err
}

// IsStatus reports whether err is a Calendar API error with the given HTTP status.
func IsStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func toAPI(ev Event) *gcal.Event {
	return &gcal.Event{
		Id:          ev.ID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.DateTime, Date: ev.Start.Date, TimeZone: ev.Start.TimeZone},
		End:         &gcal.EventDateTime{DateTime: ev.End.DateTime, Date: ev.End.Date, TimeZone: ev.End.TimeZone},
		ColorId:     ev.ColorID,
	}
}

func fromAPI(e *gcal.Event) Event {
	ev := Event{
		ID:          e.Id,
		Summary:     e.Summary,
		Description: e.Description,
		ColorID:     e.ColorId,
		HTMLLink:    e.HtmlLink,
		Status:      e.Status,
	}
	if e.Start != nil {
		ev.Start = EventTime{DateTime: e.Start.DateTime, Date: e.Start.Date, TimeZone: e.Start.TimeZone}
	}
	if e.End != nil {
		ev.End = EventTime{DateTime: e.End.DateTime, Date: e.End.Date, TimeZone: e.End.TimeZone}
	}
	return ev
}
