// internal/osd/engine_test.go
package osd

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/camera"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/isapi"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/overlay"
)

// ---- fake overlay client ----

type push struct {
	overlay, x, y int
	text          string
}

type fakeClient struct {
	mu      sync.Mutex
	pushes  []push
	cleared []int
	closed  bool
	err     error
}

func (f *fakeClient) SetOverlayText(_ context.Context, _ string, _ int, overlayID, x, y int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, push{overlayID, x, y, text})
	return nil
}

func (f *fakeClient) ClearOverlay(_ context.Context, _ string, _ int, overlayID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, overlayID)
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeClient) snapshot() []push {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]push(nil), f.pushes...)
}

func testConfig() Config {
	return Config{
		UpdateInterval: MinUpdateInterval,
		OnlineTimeout:  5 * time.Second,
		Render: overlay.Options{
			NoConnectionText: "NO CONNECTION",
			UnstableText:     "U",
			OfflineThreshold: 3 * time.Second,
		},
	}
}

// single camera with two auto bindings and one explicit one
func rig(t *testing.T, now func() time.Time, clients map[string]*fakeClient, bus *events.Bus) (*Engine, *camera.Registry, *device.Registry) {
	t.Helper()

	scales := device.NewRegistry()
	_ = scales.Add(device.NewScale("s1", "", "h:1"))
	_ = scales.Add(device.NewScale("s2", "", "h:2"))

	cams := camera.NewRegistry()
	err := cams.Add(&camera.Camera{
		ID: "cam1", Host: "10.0.0.5", Port: 80, Enabled: true,
		BaseX: 10, BaseY: 20, LineHeight: 30,
		Bindings: []camera.Binding{
			{ScaleID: "s1", OverlayID: 1, Enabled: true, AutoPosition: true},
			{ScaleID: "s2", OverlayID: 2, Enabled: true, AutoPosition: true},
			{ScaleID: "s2", OverlayID: 3, Enabled: false, AutoPosition: true},
			{ScaleID: "ghost", OverlayID: 4, Enabled: true, X: 500, Y: 600},
		},
	})
	if err != nil {
		t.Fatalf("camera add: %v", err)
	}

	e, err := NewEngine(cams, testConfig(), Deps{
		Clients: func(c *camera.Camera) OverlayClient {
			f, ok := clients[c.ID]
			if !ok {
				f = &fakeClient{}
				clients[c.ID] = f
			}
			return f
		},
		Scales: scales,
		Bus:    bus,
		Now:    now,
	})
	if err != nil {
		t.Fatalf("NewEngine err=%v", err)
	}
	return e, cams, scales
}

func loopFor(e *Engine, cam *camera.Camera, c OverlayClient) *loop {
	return &loop{engine: e, cam: cam, client: c, log: e.log}
}

func drain(ch <-chan events.Event) []events.CameraStatusChanged {
	var out []events.CameraStatusChanged
	for {
		select {
		case ev := <-ch:
			if cs, ok := ev.(events.CameraStatusChanged); ok {
				out = append(out, cs)
			}
		default:
			return out
		}
	}
}

// ---- tests ----

func TestNewEngine_NilRegistry(t *testing.T) {
	if _, err := NewEngine(nil, testConfig(), Deps{}); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}

func TestTick_PositionsAndText(t *testing.T) {
	now := time.Now()
	e, cams, scales := rig(t, func() time.Time { return now }, map[string]*fakeClient{}, nil)

	scales.Get("s1").Publish(device.State{NetGrams: 1500, TareGrams: 200, Stable: true, LastUpdate: now})
	// s2 has stale numbers but is offline
	scales.Get("s2").Publish(device.State{NetGrams: 999, LastUpdate: now.Add(-time.Minute)})

	fc := &fakeClient{}
	loopFor(e, cams.Get("cam1"), fc).tick(context.Background())

	got := fc.snapshot()
	want := []push{
		{1, 10, 20, "N 1.50kg T 0.20kg [S]"},
		{2, 10, 50, "NO CONNECTION"},
		{4, 500, 600, "NO CONNECTION"},
	}
	if len(got) != len(want) {
		t.Fatalf("pushes: got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("push %d: got %+v want %+v", i, got[i], want[i])
		}
	}

	if s, ok := e.GetCameraStatus("cam1"); !ok || s != "Online" {
		t.Fatalf("status: %q %v", s, ok)
	}
}

func TestTick_FailureIsEdgeTriggered(t *testing.T) {
	now := time.Now()
	bus := events.NewBus()
	ch, _ := bus.Subscribe("t", 16)

	e, cams, _ := rig(t, func() time.Time { return now }, map[string]*fakeClient{}, bus)
	fc := &fakeClient{}
	l := loopFor(e, cams.Get("cam1"), fc)

	l.tick(context.Background())

	fc.setErr(&isapi.ProtocolError{StatusCode: 401, Body: "Unauthorized"})
	for i := 0; i < 5; i++ {
		l.tick(context.Background())
	}

	fc.setErr(nil)
	l.tick(context.Background())
	l.tick(context.Background())

	evs := drain(ch)
	if len(evs) != 3 {
		t.Fatalf("status events: got %+v want online, offline, online", evs)
	}
	if !evs[0].Online || evs[1].Online || !evs[2].Online {
		t.Fatalf("edges: %+v", evs)
	}
	if evs[1].Reason != "HTTP 401: Unauthorized" {
		t.Fatalf("reason: %q", evs[1].Reason)
	}
}

func TestTick_OnlineTimeout(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	bus := events.NewBus()
	ch, _ := bus.Subscribe("t", 16)

	e, cams, _ := rig(t, clock, map[string]*fakeClient{}, bus)
	fc := &fakeClient{}
	l := loopFor(e, cams.Get("cam1"), fc)

	l.tick(context.Background())

	// pushes hang up silently from here on, and time jumps past the timeout
	fc.setErr(errors.New("context deadline exceeded"))
	now = now.Add(6 * time.Second)
	l.tick(context.Background())

	evs := drain(ch)
	if len(evs) != 2 || evs[1].Online || evs[1].Reason != ReasonUpdateTimeout {
		t.Fatalf("events: %+v", evs)
	}

	// the push error that followed is reflected in the status text
	s, _ := e.GetCameraStatus("cam1")
	if !strings.HasPrefix(s, "Offline: ") {
		t.Fatalf("status: %q", s)
	}
}

func TestEngine_IsolationAndStop(t *testing.T) {
	scales := device.NewRegistry()
	_ = scales.Add(device.NewScale("s1", "", "h:1"))

	cams := camera.NewRegistry()
	for _, id := range []string{"good", "bad"} {
		_ = cams.Add(&camera.Camera{
			ID: id, Host: id, Port: 80, Enabled: true,
			Bindings: []camera.Binding{{ScaleID: "s1", OverlayID: 1, Enabled: true, AutoPosition: true}},
		})
	}
	_ = cams.Add(&camera.Camera{ID: "off", Host: "off", Port: 80, Enabled: false})

	clients := map[string]*fakeClient{
		"good": {},
		"bad":  {err: errors.New("connection refused")},
	}
	cfg := testConfig()
	cfg.ClearOnStop = true

	e, _ := NewEngine(cams, cfg, Deps{
		Clients: func(c *camera.Camera) OverlayClient { return clients[c.ID] },
		Scales:  scales,
	})

	e.Start(context.Background())
	e.Start(context.Background())
	if n := e.Running(); n != 2 {
		t.Fatalf("running: %d", n)
	}

	time.Sleep(350 * time.Millisecond)
	e.StopAll()

	if n := len(clients["good"].snapshot()); n < 2 {
		t.Fatalf("good camera pushes: %d", n)
	}
	if s, _ := e.GetCameraStatus("good"); s != "Online" {
		t.Fatalf("good status: %q", s)
	}
	if s, _ := e.GetCameraStatus("bad"); s != "Offline: connection refused" {
		t.Fatalf("bad status: %q", s)
	}
	if _, ok := e.GetCameraStatus("off"); ok {
		t.Fatalf("disabled camera has a status")
	}

	for id, c := range clients {
		if !c.closed {
			t.Fatalf("%s client not closed", id)
		}
	}
	if len(clients["good"].cleared) != 1 {
		t.Fatalf("overlays not cleared: %v", clients["good"].cleared)
	}
	if e.Running() != 0 {
		t.Fatalf("loops still running")
	}
}

// slowClient takes delay per push and records when each push began and ended.
type slowClient struct {
	fakeClient
	delay time.Duration

	spanMu sync.Mutex
	starts []time.Time
	ends   []time.Time
}

func (s *slowClient) SetOverlayText(ctx context.Context, host string, port int, overlayID, x, y int, text string) error {
	start := time.Now()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
	}
	s.spanMu.Lock()
	s.starts = append(s.starts, start)
	s.ends = append(s.ends, time.Now())
	s.spanMu.Unlock()
	return s.fakeClient.SetOverlayText(ctx, host, port, overlayID, x, y, text)
}

func TestLoop_SleepsFullIntervalAfterSlowTick(t *testing.T) {
	scales := device.NewRegistry()
	_ = scales.Add(device.NewScale("s1", "", "h:1"))

	cams := camera.NewRegistry()
	_ = cams.Add(&camera.Camera{
		ID: "slow", Host: "10.0.0.5", Port: 80, Enabled: true,
		Bindings: []camera.Binding{{ScaleID: "s1", OverlayID: 1, Enabled: true, AutoPosition: true}},
	})

	cfg := testConfig()
	cfg.UpdateInterval = 100 * time.Millisecond
	cli := &slowClient{delay: 250 * time.Millisecond}

	e, err := NewEngine(cams, cfg, Deps{
		Clients: func(*camera.Camera) OverlayClient { return cli },
		Scales:  scales,
	})
	if err != nil {
		t.Fatalf("NewEngine err=%v", err)
	}

	e.Start(context.Background())
	time.Sleep(1200 * time.Millisecond)
	e.StopAll()

	cli.spanMu.Lock()
	defer cli.spanMu.Unlock()
	if len(cli.starts) < 2 {
		t.Fatalf("expected several ticks, got %d", len(cli.starts))
	}
	for i := 1; i < len(cli.starts); i++ {
		// small slack for timer granularity
		if gap := cli.starts[i].Sub(cli.ends[i-1]); gap < 90*time.Millisecond {
			t.Fatalf("tick %d started %v after the previous one ended, want >= %v", i, gap, cfg.UpdateInterval)
		}
	}
}
