// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineSessions   prometheus.Gauge
	ActiveGames      prometheus.Gauge
	ActionsTotal     *prometheus.CounterVec
	PhaseTransitions *prometheus.CounterVec
	PhaseTimeouts    *prometheus.CounterVec
	ActionLatency    prometheus.Histogram
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of connected websocket sessions",
		}),
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Number of games that have started and not finished",
		}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_actions_total",
			Help:      "Game actions by game and outcome",
		}, []string{"game", "outcome"}),
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Phase changes by game and target phase",
		}, []string{"game", "phase"}),
		PhaseTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_timeouts_total",
			Help:      "Deadline callbacks by result",
		}, []string{"result"}),
		ActionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_latency_seconds",
			Help:      "Game action processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	reg.MustRegister(
		m.OnlineSessions,
		m.ActiveGames,
		m.ActionsTotal,
		m.PhaseTransitions,
		m.PhaseTimeouts,
		m.ActionLatency,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

// NewMonitor registers the metrics on reg, which /metrics also serves.
func NewMonitor(namespace string, reg *prometheus.Registry) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		gatherer:  reg,
		startTime: time.Now(),
	}
}

// Handler serves /metrics and /debug/vars.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

// StartServer publishes the expvar counters and serves Handler on addr.
func (m *Monitor) StartServer(addr string) *http.Server {
	// 添加expvar指标
	expvar.Publish("uptime", expvar.Func(func() any {
		return time.Since(m.startTime).Seconds()
	}))

	expvar.Publish("requests", expvar.Func(func() any {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return m.requestCount
	}))

	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	go srv.ListenAndServe()
	return srv
}

func (m *Monitor) IncOnlineSessions() {
	m.metrics.OnlineSessions.Inc()
}

func (m *Monitor) DecOnlineSessions() {
	m.metrics.OnlineSessions.Dec()
}

func (m *Monitor) IncActiveGames() {
	m.metrics.ActiveGames.Inc()
}

func (m *Monitor) DecActiveGames() {
	m.metrics.ActiveGames.Dec()
}

// ObserveAction records one processed action. outcome is "applied",
// "rejected" or "error".
func (m *Monitor) ObserveAction(game, outcome string, duration time.Duration) {
	m.metrics.ActionsTotal.WithLabelValues(game, outcome).Inc()
	m.metrics.ActionLatency.Observe(duration.Seconds())
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) IncPhaseTransition(game, phase string) {
	m.metrics.PhaseTransitions.WithLabelValues(game, phase).Inc()
}

// IncPhaseTimeout counts a deadline callback; result is "resolved" or "stale".
func (m *Monitor) IncPhaseTimeout(result string) {
	m.metrics.PhaseTimeouts.WithLabelValues(result).Inc()
}
