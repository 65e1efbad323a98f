// internal/isapi/client_test.go
package isapi

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// fake camera helper
func serve(t *testing.T, h http.HandlerFunc) (host string, port int) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	h0, p, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	port, _ = strconv.Atoi(p)
	return h0, port
}

func TestSetOverlayText_Body(t *testing.T) {
	var got textOverlay
	var path, user, pass string

	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, pass, _ = r.BasicAuth()
		if r.Method != http.MethodPut {
			t.Errorf("method: %s", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		if err := xml.Unmarshal(data, &got); err != nil {
			t.Errorf("body: %v (%s)", err, data)
		}
	})

	c := New("admin", "secret")
	defer c.Close()

	err := c.SetOverlayText(context.Background(), host, port, 2, 16, 64, "N 1.00kg <&>")
	if err != nil {
		t.Fatalf("SetOverlayText err=%v", err)
	}

	if path != "/ISAPI/System/Video/inputs/channels/1/overlays/text/2" {
		t.Fatalf("path: %s", path)
	}
	if user != "admin" || pass != "secret" {
		t.Fatalf("auth: %s/%s", user, pass)
	}
	if got.ID != 2 || !got.Enabled || got.PositionX != 16 || got.PositionY != 64 || got.DisplayText != "N 1.00kg <&>" {
		t.Fatalf("overlay: %+v", got)
	}
}

func TestClearOverlay(t *testing.T) {
	var got textOverlay
	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = xml.Unmarshal(data, &got)
	})

	c := New("", "")
	if err := c.ClearOverlay(context.Background(), host, port, 3); err != nil {
		t.Fatalf("ClearOverlay err=%v", err)
	}
	if got.ID != 3 || got.Enabled || got.DisplayText != "" {
		t.Fatalf("overlay: %+v", got)
	}
}

func TestSetOverlayText_ProtocolError(t *testing.T) {
	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "<ResponseStatus>Unauthorized</ResponseStatus>")
	})

	err := New("u", "p").SetOverlayText(context.Background(), host, port, 1, 0, 0, "x")

	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if pe.StatusCode != http.StatusUnauthorized || pe.Body != "<ResponseStatus>Unauthorized</ResponseStatus>" {
		t.Fatalf("error: %+v", pe)
	}
}

func TestGetVideoResolution_FallsBackToSecondChannel(t *testing.T) {
	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ISAPI/Streaming/channels/101":
			http.NotFound(w, r)
		case "/ISAPI/Streaming/channels/1":
			_, _ = io.WriteString(w, `<StreamingChannel xmlns="http://www.hikvision.com/ver20/XMLSchema">
  <Video><videoResolutionWidth>2560</videoResolutionWidth><videoResolutionHeight>1440</videoResolutionHeight></Video>
</StreamingChannel>`)
		}
	})

	got := New("", "").GetVideoResolution(context.Background(), host, port)
	if got != (Size{2560, 1440}) {
		t.Fatalf("got %+v", got)
	}
}

func TestGetVideoResolution_Default(t *testing.T) {
	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<StreamingChannel><Video/></StreamingChannel>")
	})

	got := New("", "").GetVideoResolution(context.Background(), host, port)
	if got != (Size{DefaultVideoWidth, DefaultVideoHeight}) {
		t.Fatalf("got %+v", got)
	}
}

func TestGetNormalizedScreenSize_Cached(t *testing.T) {
	var hits atomic.Int32
	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `<VideoOverlay><normalizedScreenSize>
<normalizedScreenWidth>1000</normalizedScreenWidth><normalizedScreenHeight>800</normalizedScreenHeight>
</normalizedScreenSize></VideoOverlay>`)
	})

	now := time.Unix(1_700_000_000, 0)
	c := New("", "", WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		if got := c.GetNormalizedScreenSize(context.Background(), host, port); got != (Size{1000, 800}) {
			t.Fatalf("got %+v", got)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("requests: %d want 1", hits.Load())
	}

	now = now.Add(ScreenCacheTTL + time.Second)
	c.GetNormalizedScreenSize(context.Background(), host, port)
	if hits.Load() != 2 {
		t.Fatalf("cache did not expire: %d", hits.Load())
	}
}

func TestGetNormalizedScreenSize_NegativeCache(t *testing.T) {
	var hits atomic.Int32
	host, port := serve(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := New("", "")
	for i := 0; i < 3; i++ {
		got := c.GetNormalizedScreenSize(context.Background(), host, port)
		if got != (Size{DefaultScreenWidth, DefaultScreenHeight}) {
			t.Fatalf("got %+v", got)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("failing camera hammered: %d requests", hits.Load())
	}
}

func TestFindInts_Malformed(t *testing.T) {
	if _, err := findInts([]byte("<a><w>12</w><h>x</h></a>"), "w", "h"); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
	if _, err := findInts([]byte("<a><w>12</w>"), "w", "h"); err == nil {
		t.Fatalf("expected error for truncated xml")
	}
}
