package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the governance collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	votesCast     *prometheus.CounterVec
	tallies       *prometheus.CounterVec
	tallyFailures *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	rateLimited   prometheus.Counter
	httpDuration  *prometheus.HistogramVec
}

// New registers the collectors with registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		votesCast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_votes_cast_total",
			Help: "Votes recorded, including changed votes",
		}, []string{"method", "choice"}),
		tallies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_tallies_total",
			Help: "Completed tallies by voting method and outcome",
		}, []string{"method", "passed"}),
		tallyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_tally_failures_total",
			Help: "Rejected or failed tally attempts by error code",
		}, []string{"code"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_vote_count_cache_total",
			Help: "Vote count cache lookups by outcome",
		}, []string{"outcome"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) VoteCast(method, choice string) {
	if m == nil {
		return
	}
	m.votesCast.WithLabelValues(method, choice).Inc()
}

func (m *Metrics) Tallied(method string, passed bool) {
	if m == nil {
		return
	}
	m.tallies.WithLabelValues(method, strconv.FormatBool(passed)).Inc()
}

func (m *Metrics) TallyFailed(code string) {
	if m == nil {
		return
	}
	m.tallyFailures.WithLabelValues(code).Inc()
}

// CacheLookup records "hit", "miss" or "error".
func (m *Metrics) CacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
