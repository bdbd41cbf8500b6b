package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"outagereminder/internal/calendar"
	"outagereminder/internal/ics"
	"outagereminder/internal/outage"
	"outagereminder/internal/reminder"
)

type scheduleQuery struct {
	Group string `validate:"omitempty,max=16"`
	All   bool
}

type outageView struct {
	Date        outage.Date `json:"date"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Group       string      `json:"group,omitempty"`
	Location    string      `json:"location,omitempty"`
	Summary     string      `json:"summary"`
	Description string      `json:"description"`
}

type dayView struct {
	Date    outage.Date  `json:"date"`
	Outages []outageView `json:"outages"`
}

type scheduleResponse struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Channel     string        `json:"channel"`
	Timezone    string        `json:"timezone"`
	Group       string        `json:"group,omitempty"`
	Days        []dayView     `json:"days"`
	PrunedDates []outage.Date `json:"pruned_dates"`
	Skipped     int           `json:"skipped_messages"`
}

func (h *Handler) parseScheduleQuery(r *http.Request) (scheduleQuery, bool) {
	q := scheduleQuery{Group: strings.TrimSpace(r.URL.Query().Get("group"))}
	if raw := r.URL.Query().Get("all"); raw != "" {
		all, err := strconv.ParseBool(raw)
		if err != nil {
			return q, false
		}
		q.All = all
	}
	return q, h.validator.Struct(q) == nil
}

// records picks what the query asks for: today and tomorrow by default, the
// whole parsed schedule with all=true. A query group narrows either set.
func (q scheduleQuery) records(snap reminder.Snapshot) []outage.OutageRecord {
	if q.All {
		return outage.FilterGroup(snap.Schedule.All(), q.Group)
	}
	return outage.FilterGroup(snap.Selected, q.Group)
}

// Schedule serves GET /schedule.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	q, ok := h.parseScheduleQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid query")
		return
	}
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	snap, err := h.snapshots.Current(ctx)
	if err != nil {
		logger.Error("schedule_snapshot_failed", "error", err)
		writeError(w, http.StatusBadGateway, "schedule unavailable")
		return
	}

	grouped := outage.GroupByDate(q.records(snap))
	days := make([]dayView, 0, grouped.Len())
	for _, d := range grouped.Dates() {
		day := dayView{Date: d}
		for _, rec := range grouped.On(d) {
			day.Outages = append(day.Outages, toOutageView(rec))
		}
		days = append(days, day)
	}
	pruned := snap.Pruned
	if pruned == nil {
		pruned = []outage.Date{}
	}
	group := q.Group
	if group == "" {
		group = snap.Group
	}
	writeJSON(w, http.StatusOK, scheduleResponse{
		GeneratedAt: snap.GeneratedAt,
		Channel:     snap.Channel,
		Timezone:    h.loc.String(),
		Group:       group,
		Days:        days,
		PrunedDates: pruned,
		Skipped:     len(snap.Skipped),
	})
}

// ScheduleICS serves GET /schedule.ics.
func (h *Handler) ScheduleICS(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	q, ok := h.parseScheduleQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid query")
		return
	}
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	snap, err := h.snapshots.Current(ctx)
	if err != nil {
		logger.Error("schedule_snapshot_failed", "error", err)
		writeError(w, http.StatusBadGateway, "schedule unavailable")
		return
	}
	body := ics.Render(q.records(snap), ics.Options{
		Name:     h.feedName,
		Timezone: h.loc.String(),
		Now:      snap.GeneratedAt,
	})
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func toOutageView(rec outage.OutageRecord) outageView {
	return outageView{
		Date:        rec.Date,
		Start:       rec.StartAt,
		End:         rec.EndAt,
		Group:       rec.Group,
		Location:    rec.Location,
		Summary:     calendar.Summary(rec),
		Description: rec.Description,
	}
}
