package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	}
	t.Fatal("metric is neither a counter nor a gauge")
	return 0
}

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor("test", prometheus.NewRegistry())

	m.ObserveAction("number-guesser", "applied", 3*time.Millisecond)
	m.ObserveAction("number-guesser", "rejected", time.Millisecond)
	m.ObserveAction("number-guesser", "applied", time.Millisecond)
	m.IncPhaseTransition("three-crumbs", "round_end")
	m.IncPhaseTimeout("stale")
	m.IncActiveGames()
	m.IncActiveGames()
	m.DecActiveGames()

	if got := value(t, m.metrics.ActionsTotal.WithLabelValues("number-guesser", "applied")); got != 2 {
		t.Errorf("Expected 2 applied actions, got %v", got)
	}
	if got := value(t, m.metrics.PhaseTransitions.WithLabelValues("three-crumbs", "round_end")); got != 1 {
		t.Errorf("Expected 1 transition, got %v", got)
	}
	if got := value(t, m.metrics.ActiveGames); got != 1 {
		t.Errorf("Expected 1 active game, got %v", got)
	}
	if m.requestCount != 3 {
		t.Errorf("Expected request count 3, got %d", m.requestCount)
	}
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor("test", prometheus.NewRegistry())
	m.IncPhaseTimeout("resolved")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_phase_timeouts_total{result="resolved"} 1`) {
		t.Errorf("metrics output missing timeout counter:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	if !strings.Contains(rec.Body.String(), "memstats") {
		t.Error("expvar output should include memstats")
	}
}
