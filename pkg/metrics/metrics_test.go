package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestHTTPMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe(http.MethodPost, "/api/v1/sessions/start", http.StatusCreated, 250*time.Millisecond)
	metrics.Observe(http.MethodPost, "/api/v1/sessions/start", http.StatusBadRequest, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "http_requests_total", "status", "201"); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 1 {
		t.Fatalf("expected requests=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/v1/sessions/start"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0.25 {
		t.Fatalf("expected duration sum > 0.25, got %f", got)
	}
}

func TestDomainMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDomainMetrics(reg)
	metrics.IncEvent("session_started")
	metrics.IncEvent("session_started")
	metrics.ObserveUpload("bucky", nil)
	metrics.ObserveUpload("bucky", errors.New("boom"))
	metrics.IncUpstreamFailure("hackatime")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "jetfund_events_total", "event", "session_started"); err != nil || got != 2 {
		t.Fatalf("expected session_started=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "jetfund_uploads_total", "result", "failure"); err != nil || got != 1 {
		t.Fatalf("expected one failed upload, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "jetfund_upstream_failures_total", "upstream", "hackatime"); err != nil || got != 1 {
		t.Fatalf("expected one hackatime failure, got %f err=%v", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var domain *DomainMetrics
	domain.IncEvent("sign_in")
	domain.ObserveUpload("s3", nil)
	domain.IncUpstreamFailure("airtable")

	var httpMetrics *HTTPMetrics
	httpMetrics.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	NewDomainMetrics(nil).IncEvent("sign_in")
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewDomainMetrics(reg).IncEvent("project_submitted")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `jetfund_events_total{event="project_submitted"} 1`) {
		t.Fatalf("expected exported counter, got %s", body)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	var sum float64
	found := false
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			sum += metric.GetHistogram().GetSampleSum()
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
	}
	return sum, nil
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
