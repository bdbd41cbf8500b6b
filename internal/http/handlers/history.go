package handlers

import (
	"net/http"
	"strings"
	"time"

	"outagereminder/internal/outage"
)

// maxHistoryDays bounds one /history query.
const maxHistoryDays = 92

type historyQuery struct {
	From  string `validate:"required,datetime=2006-01-02"`
	To    string `validate:"required,datetime=2006-01-02"`
	Group string `validate:"omitempty,max=16"`
}

type historyItem struct {
	Date      outage.Date `json:"date"`
	Start     time.Time   `json:"start"`
	End       time.Time   `json:"end"`
	Group     string      `json:"group,omitempty"`
	Location  string      `json:"location,omitempty"`
	FirstSeen time.Time   `json:"first_seen"`
	LastSeen  time.Time   `json:"last_seen"`
}

// History serves GET /history?from=YYYY-MM-DD&to=YYYY-MM-DD[&group=X].
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}
	logger := h.loggerForRequest(r)
	q := historyQuery{
		From:  r.URL.Query().Get("from"),
		To:    r.URL.Query().Get("to"),
		Group: strings.TrimSpace(r.URL.Query().Get("group")),
	}
	if err := h.validator.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD")
		return
	}
	from, err := outage.ParseDate(q.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}
	to, err := outage.ParseDate(q.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}
	if from.AddDays(maxHistoryDays).Before(to) {
		writeError(w, http.StatusBadRequest, "range is too long")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	records, err := h.history.ListRange(ctx, from, to, q.Group)
	if err != nil {
		logger.Error("history_list_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	items := make([]historyItem, 0, len(records))
	for _, rec := range records {
		items = append(items, historyItem{
			Date:      rec.Date,
			Start:     rec.StartAt.In(h.loc),
			End:       rec.EndAt.In(h.loc),
			Group:     rec.Group,
			Location:  rec.Location,
			FirstSeen: rec.FirstSeen,
			LastSeen:  rec.LastSeen,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}
