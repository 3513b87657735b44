package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gtil"

// Metrics holds the gameplay collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	kills           *prometheus.CounterVec
	shotsFired      prometheus.Counter
	shotsDropped    prometheus.Counter
	pathQueries     prometheus.Counter
	pathNoPath      prometheus.Counter
	events          *prometheus.CounterVec
	activeEnemies   prometheus.Gauge
	activeShots     prometheus.Gauge
	subscribers     prometheus.Gauge
	tickDuration    prometheus.Histogram
	sessionsStarted *prometheus.CounterVec

	mu   sync.Mutex
	prev struct{ fired, dropped, queries, noPath uint64 }
}

// NewMetrics builds and registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		kills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kills_total",
			Help:      "Enemies killed, by kind.",
		}, []string{"kind"}),
		shotsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projectiles_fired_total",
			Help:      "Projectiles launched from the pool.",
		}),
		shotsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projectiles_dropped_total",
			Help:      "Shots dropped because the projectile pool was exhausted.",
		}),
		pathQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_queries_total",
			Help:      "Pathfinding requests issued.",
		}),
		pathNoPath: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_no_path_total",
			Help:      "Pathfinding requests that found no route.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Event channel messages, by topic.",
		}, []string{"topic"}),
		activeEnemies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enemies_active",
			Help:      "Live enemies in the current session.",
		}),
		activeShots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "projectiles_active",
			Help:      "Active projectile slots.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_subscribers",
			Help:      "Connected event stream subscribers.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one simulation tick.",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
		}),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions launched, by mode.",
		}, []string{"mode"}),
	}
	m.registry.MustRegister(
		m.kills, m.shotsFired, m.shotsDropped, m.pathQueries, m.pathNoPath,
		m.events, m.activeEnemies, m.activeShots, m.subscribers, m.tickDuration,
		m.sessionsStarted,
	)
	return m
}

// Registry exposes the private registry for exposition and tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Kill counts one kill.
func (m *Metrics) Kill(boss bool) {
	if m == nil {
		return
	}
	kind := "enemy"
	if boss {
		kind = "boss"
	}
	m.kills.WithLabelValues(kind).Inc()
}

// Event counts one published message.
func (m *Metrics) Event(topic string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(topic).Inc()
}

// SessionStarted counts one launched session.
func (m *Metrics) SessionStarted(mode string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(mode).Inc()
}

// ObservePool records the pool's cumulative counters; only the increase
// since the previous call is added. A smaller value means the pool was
// rebuilt and counting restarts from it.
func (m *Metrics) ObservePool(fired, dropped uint64, active int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shotsFired.Add(delta(&m.prev.fired, fired))
	m.shotsDropped.Add(delta(&m.prev.dropped, dropped))
	m.activeShots.Set(float64(active))
}

// ObservePaths records the pathfinder's cumulative counters.
func (m *Metrics) ObservePaths(queries, noPath uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pathQueries.Add(delta(&m.prev.queries, queries))
	m.pathNoPath.Add(delta(&m.prev.noPath, noPath))
}

func delta(prev *uint64, cur uint64) float64 {
	d := cur
	if cur >= *prev {
		d = cur - *prev
	}
	*prev = cur
	return float64(d)
}

// SetActiveEnemies sets the live enemy gauge.
func (m *Metrics) SetActiveEnemies(n int) {
	if m == nil {
		return
	}
	m.activeEnemies.Set(float64(n))
}

// SetSubscribers sets the gateway subscriber gauge.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// ObserveTick records the wall time of one tick.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}
