package metrics

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics counts lifecycle events and upstream failures. A nil
// receiver is a no-op so services can run without metrics wired.
type DomainMetrics struct {
	events   *prometheus.CounterVec
	uploads  *prometheus.CounterVec
	upstream *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters on the provided registerer.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jetfund_events_total",
		Help: "Lifecycle events by name.",
	}, []string{"event"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jetfund_uploads_total",
		Help: "Screenshot upload hops by outcome.",
	}, []string{"hop", "result"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jetfund_upstream_failures_total",
		Help: "Failed calls to external services.",
	}, []string{"upstream"})
	reg.MustRegister(events, uploads, upstream)
	return &DomainMetrics{
		events:   events,
		uploads:  uploads,
		upstream: upstream,
	}
}

// IncEvent counts one lifecycle event.
func (d *DomainMetrics) IncEvent(event string) {
	if d == nil || d.events == nil {
		return
	}
	d.events.WithLabelValues(normalizeLabel(event)).Inc()
}

// ObserveUpload counts an upload attempt through the given hop.
func (d *DomainMetrics) ObserveUpload(hop string, err error) {
	if d == nil || d.uploads == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	d.uploads.WithLabelValues(normalizeLabel(hop), result).Inc()
}

// IncUpstreamFailure counts a failed call to an external service.
func (d *DomainMetrics) IncUpstreamFailure(upstream string) {
	if d == nil || d.upstream == nil {
		return
	}
	d.upstream.WithLabelValues(normalizeLabel(upstream)).Inc()
}
