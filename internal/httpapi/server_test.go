// internal/httpapi/server_test.go
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/camera"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/isapi"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/metrics"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/overlay"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeStatus map[string]string

func (f fakeStatus) GetCameraStatus(id string) (string, bool) {
	s, ok := f[id]
	return s, ok
}

func newTestServer(t *testing.T, bus *events.Bus, m *metrics.Metrics) *httptest.Server {
	t.Helper()
	ts, _ := newTestServerWith(t, bus, m, nil)
	return ts
}

func newTestServerWith(t *testing.T, bus *events.Bus, m *metrics.Metrics, screens ScreenFactory) (*httptest.Server, *Server) {
	t.Helper()

	scales := device.NewRegistry()
	s1 := device.NewScale("s1", "Dock", "10.0.0.1:5001")
	s1.Publish(device.State{NetGrams: 1500, TareGrams: 200, Stable: true, Protocol: device.ProtocolWithTare, LastUpdate: testNow.Add(-2 * time.Second)})
	s2 := device.NewScale("s2", "", "10.0.0.2:5001")
	for _, s := range []*device.Scale{s1, s2} {
		if err := scales.Add(s); err != nil {
			t.Fatalf("add scale: %v", err)
		}
	}

	cams := camera.NewRegistry()
	err := cams.Add(&camera.Camera{
		ID: "cam1", Name: "Gate", Host: "10.0.0.9", Port: 80, Enabled: true,
		BaseX: 10, BaseY: 20, LineHeight: 30,
		Bindings: []camera.Binding{
			{ScaleID: "s1", OverlayID: 1, Enabled: true, AutoPosition: true},
			{ScaleID: "s2", OverlayID: 2, Enabled: true, AutoPosition: true},
		},
	})
	if err != nil {
		t.Fatalf("add camera: %v", err)
	}

	srv, err := New(Deps{
		Scales:  scales,
		Cameras: cams,
		Status:  fakeStatus{"cam1": "Offline: HTTP 401: denied"},
		Bus:     bus,
		Metrics: m,
		Screens: screens,
		Render: overlay.Options{
			NoConnectionText: "NO CONNECTION",
			UnstableText:     "U",
			OfflineThreshold: 5 * time.Second,
		},
		Now: func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv
}

func getJSON(t *testing.T, url string, wantStatus int, into any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func TestNew_RequiresRegistries(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var body map[string]any
	getJSON(t, ts.URL+"/health", http.StatusOK, &body)
	if body["status"] != "ok" || body["scales"].(float64) != 2 || body["cameras"].(float64) != 1 {
		t.Fatalf("health: %v", body)
	}
}

func TestListScales(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var out []ScaleView
	getJSON(t, ts.URL+"/api/scales", http.StatusOK, &out)
	if len(out) != 2 {
		t.Fatalf("got %d scales", len(out))
	}

	byID := map[string]ScaleView{}
	for _, v := range out {
		byID[v.ID] = v
	}

	s1 := byID["s1"]
	if !s1.Online || s1.NetGrams != 1500 || s1.Protocol != "with_tare" {
		t.Fatalf("s1: %+v", s1)
	}
	if s1.Overlay != "N 1.50kg T 0.20kg [S]" {
		t.Fatalf("s1 overlay: %q", s1.Overlay)
	}
	if s1.LastSeen != "2 seconds ago" {
		t.Fatalf("s1 last seen: %q", s1.LastSeen)
	}

	s2 := byID["s2"]
	if s2.Online || s2.LastSeen != "never" || s2.Overlay != "NO CONNECTION" || s2.Name != "s2" {
		t.Fatalf("s2: %+v", s2)
	}
}

func TestListCameras_Positions(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var out []CameraView
	getJSON(t, ts.URL+"/api/cameras", http.StatusOK, &out)
	if len(out) != 1 {
		t.Fatalf("got %d cameras", len(out))
	}
	c := out[0]
	if c.Endpoint != "10.0.0.9:80" || c.Status != "Offline: HTTP 401: denied" {
		t.Fatalf("camera: %+v", c)
	}
	if len(c.Bindings) != 2 || c.Bindings[1].X != 10 || c.Bindings[1].Y != 50 {
		t.Fatalf("bindings: %+v", c.Bindings)
	}
}

func TestCameraStatus(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var body map[string]string
	getJSON(t, ts.URL+"/api/cameras/cam1/status", http.StatusOK, &body)
	if body["status"] != "Offline: HTTP 401: denied" {
		t.Fatalf("status: %v", body)
	}

	getJSON(t, ts.URL+"/api/cameras/nope/status", http.StatusNotFound, nil)
}

func TestMetrics_RouteCounted(t *testing.T) {
	m := metrics.New()
	ts := newTestServer(t, nil, m)

	getJSON(t, ts.URL+"/health", http.StatusOK, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(buf.String(), `massa_http_requests_total{route="/health",status="200"} 1`) {
		t.Fatalf("request counter missing:\n%s", buf.String())
	}
}

func TestMetrics_NotMountedWithoutRegistry(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	getJSON(t, ts.URL+"/metrics", http.StatusNotFound, nil)
	getJSON(t, ts.URL+"/ws/events", http.StatusNotFound, nil)
}

func TestEventStream(t *testing.T) {
	bus := events.NewBus()
	ts := newTestServer(t, bus, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the subscription races the dial; keep publishing until one arrives
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(10 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				bus.Publish(events.ScaleStatusChanged{ScaleID: "s1", Online: false, Reason: "timeout"})
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Type string `json:"type"`
		Data struct {
			ScaleID string `json:"scale_id"`
			Reason  string `json:"reason"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != string(events.KindScaleStatusChanged) || frame.Data.ScaleID != "s1" || frame.Data.Reason != "timeout" {
		t.Fatalf("frame: %+v", frame)
	}
}

// fakeScreen is called from server goroutines, hence the lock.
type fakeScreen struct {
	mu     sync.Mutex
	host   string
	port   int
	calls  int
	closed bool
}

func (f *fakeScreen) GetVideoResolution(_ context.Context, host string, port int) isapi.Size {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.host, f.port = host, port
	f.calls++
	return isapi.Size{Width: 2560, Height: 1440}
}

func (f *fakeScreen) GetNormalizedScreenSize(context.Context, string, int) isapi.Size {
	return isapi.Size{Width: 704, Height: 576}
}

func (f *fakeScreen) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestCameraDetail_ScreenGeometry(t *testing.T) {
	var mu sync.Mutex
	readers := map[string]*fakeScreen{}
	built := 0
	ts, srv := newTestServerWith(t, nil, nil, func(c *camera.Camera) ScreenReader {
		mu.Lock()
		defer mu.Unlock()
		built++
		p := &fakeScreen{}
		readers[c.ID] = p
		return p
	})

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Screen struct {
			Resolution struct{ Width, Height int } `json:"resolution"`
			Normalized struct{ Width, Height int } `json:"normalized"`
		} `json:"screen"`
	}
	getJSON(t, ts.URL+"/api/cameras/cam1", http.StatusOK, &out)
	getJSON(t, ts.URL+"/api/cameras/cam1", http.StatusOK, &out)

	if out.ID != "cam1" || out.Status != "Offline: HTTP 401: denied" {
		t.Fatalf("detail: %+v", out)
	}
	if out.Screen.Resolution.Width != 2560 || out.Screen.Normalized.Height != 576 {
		t.Fatalf("screen: %+v", out.Screen)
	}

	mu.Lock()
	p, n := readers["cam1"], built
	mu.Unlock()

	p.mu.Lock()
	calls, host, port := p.calls, p.host, p.port
	p.mu.Unlock()
	if n != 1 || calls != 2 {
		t.Fatalf("reader reuse: built=%d calls=%d", n, calls)
	}
	if host != "10.0.0.9" || port != 80 {
		t.Fatalf("reader target: %s:%d", host, port)
	}

	getJSON(t, ts.URL+"/api/cameras/nope", http.StatusNotFound, nil)

	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		t.Fatalf("reader not closed")
	}
}

func TestCameraDetail_NoScreenWithoutFactory(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	var out map[string]any
	getJSON(t, ts.URL+"/api/cameras/cam1", http.StatusOK, &out)
	if _, ok := out["screen"]; ok {
		t.Fatalf("screen present without a factory: %v", out)
	}
}
