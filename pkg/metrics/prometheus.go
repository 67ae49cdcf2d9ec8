// Package metrics provides Prometheus metrics for the otherday trivia service.
package metrics

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Game activity
	usersRegistered  prometheus.Counter
	answersSubmitted prometheus.Counter
	answersDuplicate prometheus.Counter
	votesCast        prometheus.Counter
	votesDuplicate   prometheus.Counter
	pairsServed      prometheus.Counter
	groupsCreated    prometheus.Counter
	groupJoins       prometheus.Counter

	// Ranking engine
	rankings         *prometheus.CounterVec
	rankingLatency   *prometheus.HistogramVec
	rankedPopulation *prometheus.GaugeVec

	// Question cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // avoids default Go metrics
)

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before anything is served.
func Configure(opts ...Option) {
	reg := prometheus.NewRegistry()
	m := NewManager(append([]Option{WithPrometheusRegistry(reg)}, opts...)...)
	customRegistry.Store(reg)
	globalManager.Store(m)
}

func manager() *Manager { return globalManager.Load() }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "otherday",
		subsystem:        "trivia",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	// A disabled manager still builds collectors so recorders never see nil,
	// it just does not register them anywhere.
	reg := m.registry
	if !m.enabled {
		reg = prometheus.NewRegistry()
	}
	auto := promauto.With(reg)

	m.usersRegistered = auto.NewCounter(m.counterOpts("users_registered_total", "Total number of registered users"))
	m.answersSubmitted = auto.NewCounter(m.counterOpts("answers_submitted_total", "Total number of accepted answers"))
	m.answersDuplicate = auto.NewCounter(m.counterOpts("answers_duplicate_total", "Answers rejected because the user already answered"))
	m.votesCast = auto.NewCounter(m.counterOpts("votes_total", "Total number of counted votes"))
	m.votesDuplicate = auto.NewCounter(m.counterOpts("votes_duplicate_total", "Votes dropped by the idempotency key check"))
	m.pairsServed = auto.NewCounter(m.counterOpts("pairs_served_total", "Answer pairs served for voting"))
	m.groupsCreated = auto.NewCounter(m.counterOpts("groups_created_total", "Total number of created groups"))
	m.groupJoins = auto.NewCounter(m.counterOpts("group_joins_total", "Total number of successful group joins"))

	m.rankings = auto.NewCounterVec(
		m.counterOpts("rankings_total", "Leaderboard computations by kind"),
		[]string{"kind"},
	)
	m.rankingLatency = auto.NewHistogramVec(
		m.histogramOpts("ranking_latency_milliseconds", "Leaderboard computation latency in milliseconds"),
		[]string{"kind"},
	)
	m.rankedPopulation = auto.NewGaugeVec(
		m.gaugeOpts("ranked_population", "Number of entities in the last ranking by kind"),
		[]string{"kind"},
	)

	m.cacheHits = auto.NewCounter(m.counterOpts("question_cache_hits_total", "Question cache hits"))
	m.cacheMisses = auto.NewCounter(m.counterOpts("question_cache_misses_total", "Question cache misses"))
	m.cacheErrors = auto.NewCounter(m.counterOpts("question_cache_errors_total", "Question cache backend errors"))

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Store operation latency in milliseconds"),
		[]string{"operation"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Store operation failures"),
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordUserRegistered increments the registered users counter.
func RecordUserRegistered() { manager().usersRegistered.Inc() }

// RecordAnswerSubmitted increments the accepted answers counter.
func RecordAnswerSubmitted() { manager().answersSubmitted.Inc() }

// RecordAnswerDuplicate increments the duplicate answers counter.
func RecordAnswerDuplicate() { manager().answersDuplicate.Inc() }

// RecordVote increments the votes counter.
func RecordVote() { manager().votesCast.Inc() }

// RecordVoteDuplicate increments the duplicate votes counter.
func RecordVoteDuplicate() { manager().votesDuplicate.Inc() }

// RecordPairServed increments the served pairs counter.
func RecordPairServed() { manager().pairsServed.Inc() }

// RecordGroupCreated increments the created groups counter.
func RecordGroupCreated() { manager().groupsCreated.Inc() }

// RecordGroupJoin increments the group joins counter.
func RecordGroupJoin() { manager().groupJoins.Inc() }

// RecordRanking records one leaderboard computation of the given kind over
// population entities.
func RecordRanking(kind string, population int, latencyMs float64) {
	manager().rankings.WithLabelValues(kind).Inc()
	manager().rankingLatency.WithLabelValues(kind).Observe(latencyMs)
	manager().rankedPopulation.WithLabelValues(kind).Set(float64(population))
}

// RecordCacheHit increments the question cache hit counter.
func RecordCacheHit() { manager().cacheHits.Inc() }

// RecordCacheMiss increments the question cache miss counter.
func RecordCacheMiss() { manager().cacheMisses.Inc() }

// RecordCacheError increments the question cache error counter.
func RecordCacheError() { manager().cacheErrors.Inc() }

// RecordStoreLatency records a store operation latency.
func RecordStoreLatency(operation string, latencyMs float64) {
	manager().storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError increments the store error counter for operation.
func RecordStoreError(operation string) {
	manager().storeErrors.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	manager().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	manager().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	manager().errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	manager().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	manager().systemGoroutineCount.Set(float64(count))
}

// StartSystemCollector samples memory and goroutine gauges every refresh
// interval until ctx is done.
func StartSystemCollector(ctx context.Context) {
	interval := manager().refreshInterval
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			sampleSystem()
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

func sampleSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.HeapInuse)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
