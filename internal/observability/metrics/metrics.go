package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments for the admission pipeline.
type Metrics struct {
	admissionDenied  *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
	usageRecorded    *prometheus.CounterVec
	usageDropped     prometheus.Counter
	rateLimitDenied  *prometheus.CounterVec
	openingsConsumed prometheus.Counter
}

// New registers the admission instruments on the provided registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		admissionDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roamkit_admission_denied_total",
			Help: "Requests rejected by the admission pipeline, by error code.",
		}, []string{"code"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roamkit_response_cache_requests_total",
			Help: "Response cache lookups by outcome (hit, miss).",
		}, []string{"outcome"}),
		usageRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roamkit_usage_events_total",
			Help: "Usage events persisted, by event type.",
		}, []string{"event_type"}),
		usageDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roamkit_usage_events_dropped_total",
			Help: "Usage events lost because persistence failed.",
		}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roamkit_rate_limit_denied_total",
			Help: "Public API requests denied by the token bucket.",
		}, []string{"endpoint"}),
		openingsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roamkit_openings_consumed_total",
			Help: "Widget openings counted against tenant quotas.",
		}),
	}

	collectors := []prometheus.Collector{
		m.admissionDenied,
		m.cacheRequests,
		m.usageRecorded,
		m.usageDropped,
		m.rateLimitDenied,
		m.openingsConsumed,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) RecordAdmissionDenied(code string) {
	if m == nil {
		return
	}
	m.admissionDenied.WithLabelValues(code).Inc()
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("hit").Inc()
}

func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

func (m *Metrics) RecordUsageEvent(eventType string) {
	if m == nil {
		return
	}
	m.usageRecorded.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordUsageDropped() {
	if m == nil {
		return
	}
	m.usageDropped.Inc()
}

func (m *Metrics) RecordRateLimitDenied(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) RecordOpeningConsumed() {
	if m == nil {
		return
	}
	m.openingsConsumed.Inc()
}
