// internal/metrics/metrics_test.go
package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/osd"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/poller"
)

var (
	_ poller.Observer = (*Metrics)(nil)
	_ osd.Observer    = (*Metrics)(nil)
)

func TestObservers(t *testing.T) {
	m := New()

	m.PollSucceeded("s1")
	m.PollSucceeded("s1")
	m.PollFailed("s1", poller.KindTimeout)
	m.ScaleOnline("s1", true)
	m.ScaleOnline("s1", false)
	m.PushSucceeded("cam1")
	m.PushFailed("cam1")
	m.CameraOnline("cam1", true)

	if v := testutil.ToFloat64(m.pollsTotal.WithLabelValues("s1")); v != 2 {
		t.Fatalf("polls: %v", v)
	}
	if v := testutil.ToFloat64(m.pollErrors.WithLabelValues("s1", "timeout")); v != 1 {
		t.Fatalf("poll errors: %v", v)
	}
	if v := testutil.ToFloat64(m.scaleOnline.WithLabelValues("s1")); v != 0 {
		t.Fatalf("scale online: %v", v)
	}
	if v := testutil.ToFloat64(m.cameraOnline.WithLabelValues("cam1")); v != 1 {
		t.Fatalf("camera online: %v", v)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.PollSucceeded("s1")
	m.PollFailed("s1", poller.KindFrame)
	m.CameraOnline("c", true)
}

func TestHandlerAndWrap(t *testing.T) {
	m := New()

	h := m.WrapHandler("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `massa_http_requests_total{route="/health",status="418"} 1`) {
		t.Fatalf("request counter missing from exposition:\n%s", body)
	}
}
