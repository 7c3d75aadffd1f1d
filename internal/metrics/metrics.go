package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/blendin/internal/model"
)

// Metrics holds the server's Prometheus collectors.
// Each instance owns its own registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	ActiveLobbies   prometheus.Gauge
	LobbiesCreated  prometheus.Counter
	OnlinePlayers   prometheus.Gauge
	PlayersJoined   prometheus.Counter
	RoundsStarted   prometheus.Counter
	RoundsCompleted *prometheus.CounterVec
	RoundsAborted   prometheus.Counter
	Connections     prometheus.Gauge
	Actions         *prometheus.CounterVec
	ActionLatency   *prometheus.HistogramVec
}

// New creates and registers all collectors under namespace
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActiveLobbies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_lobbies",
			Help:      "Number of live lobbies",
		}),
		LobbiesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobbies_created_total",
			Help:      "Total number of lobbies created",
		}),
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of players currently in a lobby",
		}),
		PlayersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_joined_total",
			Help:      "Total number of successful joins",
		}),
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Total number of rounds started",
		}),
		RoundsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_completed_total",
			Help:      "Total number of rounds revealed, by outcome",
		}, []string{"outcome"}),
		RoundsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_aborted_total",
			Help:      "Total number of rounds abandoned because the faker left",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Number of open WebSocket connections",
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Client actions handled, by action and result",
		}, []string{"action", "result"}),
		ActionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_latency_seconds",
			Help:      "Client action processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"action"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ActiveLobbies,
		m.LobbiesCreated,
		m.OnlinePlayers,
		m.PlayersJoined,
		m.RoundsStarted,
		m.RoundsCompleted,
		m.RoundsAborted,
		m.Connections,
		m.Actions,
		m.ActionLatency,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Lobby lifecycle

func (m *Metrics) LobbyOpened() {
	m.ActiveLobbies.Inc()
	m.LobbiesCreated.Inc()
}

func (m *Metrics) LobbyClosed() {
	m.ActiveLobbies.Dec()
}

func (m *Metrics) PlayerJoined() {
	m.OnlinePlayers.Inc()
	m.PlayersJoined.Inc()
}

func (m *Metrics) PlayerLeft() {
	m.OnlinePlayers.Dec()
}

// Rounds

func (m *Metrics) RoundStarted() {
	m.RoundsStarted.Inc()
}

func (m *Metrics) RoundCompleted(caught bool) {
	outcome := "escaped"
	if caught {
		outcome = "caught"
	}
	m.RoundsCompleted.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RoundAborted() {
	m.RoundsAborted.Inc()
}

// Transport

func (m *Metrics) ConnectionOpened() {
	m.Connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	m.Connections.Dec()
}

// ObserveAction records one handled client action. Failures are labelled by error kind.
func (m *Metrics) ObserveAction(action string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = string(model.KindOf(err))
	}
	m.Actions.WithLabelValues(action, result).Inc()
	m.ActionLatency.WithLabelValues(action).Observe(elapsed.Seconds())
}
