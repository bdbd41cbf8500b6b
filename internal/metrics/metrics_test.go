package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.MessagesFetched(3)
	m.MessageSkipped("not_outage")
	m.Records(2, 1)
	m.Events("created", 1)
	m.Run(time.Now(), nil)
	if m.Registry() != nil {
		t.Fatalf("nil metrics must not expose a registry")
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(body)
}

func TestCounters(t *testing.T) {
	m := New()
	m.MessagesFetched(5)
	m.MessageSkipped("not_outage")
	m.MessageSkipped("not_outage")
	m.MessageSkipped("empty")
	m.Events("created", 2)
	m.Events("skipped", 0)
	m.Run(time.Now(), nil)
	m.Run(time.Now(), errors.New("boom"))

	out := scrape(t, m)
	for _, want := range []string{
		"outage_messages_fetched_total 5",
		`outage_messages_skipped_total{reason="not_outage"} 2`,
		`outage_messages_skipped_total{reason="empty"} 1`,
		`outage_calendar_events_total{action="created"} 2`,
		`outage_sync_runs_total{status="error"} 1`,
		`outage_sync_runs_total{status="ok"} 1`,
		"outage_sync_duration_seconds_count 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, `action="skipped"`) {
		t.Fatalf("zero-valued add must not create a series")
	}
}

func TestHandlerIncludesRuntimeCollectors(t *testing.T) {
	m := New()
	out := scrape(t, m)
	if !strings.Contains(out, "go_goroutines") {
		t.Fatalf("runtime collectors missing:\n%s", out)
	}
}
