// internal/osd/engine.go

// Package osd pushes live scale readings onto camera overlays, one
// independent loop per camera.
package osd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/camera"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/logging"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/overlay"
)

// clearTimeout bounds the best-effort overlay cleanup on stop.
const clearTimeout = 2 * time.Second

// Deps are the collaborators shared by all camera loops.
// Zero fields get working defaults.
type Deps struct {
	Clients  ClientFactory
	Scales   *device.Registry // fallback lookup for bindings without a direct reference
	Bus      *events.Bus
	Logger   *slog.Logger
	Observer Observer
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Clients == nil {
		d.Clients = ISAPIClients
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type worker struct {
	loop   *loop
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine runs one loop per enabled camera.
type Engine struct {
	cameras *camera.Registry
	cfg     Config
	deps    Deps
	log     *slog.Logger

	mu      sync.Mutex
	workers map[string]*worker

	statusMu sync.Mutex
	status   map[string]string
}

// NewEngine validates inputs. This is the only place the engine returns errors.
func NewEngine(cameras *camera.Registry, cfg Config, deps Deps) (*Engine, error) {
	if cameras == nil {
		return nil, errors.New("osd: camera registry required")
	}

	deps = deps.withDefaults()

	return &Engine{
		cameras: cameras,
		cfg:     cfg,
		deps:    deps,
		log:     deps.Logger.With(logging.SourceKey, "osd"),
		workers: make(map[string]*worker),
		status:  make(map[string]string),
	}, nil
}

// Start spawns a loop for every enabled camera that does not have one.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, cam := range e.cameras.List() {
		if !cam.Enabled {
			continue
		}
		if w, ok := e.workers[cam.ID]; ok {
			select {
			case <-w.done:
			default:
				continue
			}
		}

		l := &loop{
			engine: e,
			cam:    cam,
			client: e.deps.Clients(cam),
			log:    e.log.With("camera", cam.Label()),
		}
		wctx, cancel := context.WithCancel(ctx)
		w := &worker{loop: l, cancel: cancel, done: make(chan struct{})}
		e.workers[cam.ID] = w

		go e.run(wctx, w)
	}
}

func (e *Engine) run(ctx context.Context, w *worker) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("camera loop crashed",
				"camera", w.loop.cam.Label(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	w.loop.run(ctx)
}

// StopAll cancels every loop, waits for them, then releases their clients.
// Errors during shutdown are dropped.
func (e *Engine) StopAll() {
	e.mu.Lock()
	workers := e.workers
	e.workers = make(map[string]*worker)
	e.mu.Unlock()

	for _, w := range workers {
		w.cancel()
	}
	for _, w := range workers {
		<-w.done
	}

	for _, w := range workers {
		if e.cfg.ClearOnStop {
			w.loop.clear()
		}
		_ = w.loop.client.Close()
	}
}

// Running returns the number of live loops.
func (e *Engine) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, w := range e.workers {
		select {
		case <-w.done:
		default:
			n++
		}
	}
	return n
}

// GetCameraStatus returns the last status text of a camera.
func (e *Engine) GetCameraStatus(id string) (string, bool) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	s, ok := e.status[id]
	return s, ok
}

func (e *Engine) setStatus(id, text string) {
	e.statusMu.Lock()
	e.status[id] = text
	e.statusMu.Unlock()
}

// ---- per camera ----

type linkStatus uint8

const (
	statusUnknown linkStatus = iota
	statusOnline
	statusOffline
)

type loop struct {
	engine *Engine
	cam    *camera.Camera
	client OverlayClient
	log    *slog.Logger

	status      linkStatus
	lastSuccess time.Time
}

// run sleeps the full interval after every tick, however long the tick took,
// so a hung camera is retried at the configured pace.
func (l *loop) run(ctx context.Context) {
	interval := l.engine.cfg.interval()

	for {
		l.tick(ctx)
		if !sleep(ctx, interval) {
			return
		}
	}
}

// sleep waits d or until ctx is done. Returns false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// tick performs one pass over the camera's bindings.
func (l *loop) tick(ctx context.Context) {
	e := l.engine
	now := e.deps.Now()

	if l.status == statusOnline && now.Sub(l.lastSuccess) > e.cfg.onlineTimeout() {
		l.markOffline(ReasonUpdateTimeout, now)
	}

	for i, b := range l.cam.Bindings {
		if !b.Enabled {
			continue
		}

		x, y := l.cam.Position(i)
		text := renderBinding(b, e.deps.Scales, e.cfg, now)

		err := l.client.SetOverlayText(ctx, l.cam.Host, l.cam.Port, b.OverlayID, x, y, text)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.deps.Observer.PushFailed(l.cam.ID)
			l.markOffline(reason(err), now)
			return
		}
	}

	e.deps.Observer.PushSucceeded(l.cam.ID)
	l.lastSuccess = now
	l.markOnline(now)
}

func (l *loop) markOnline(now time.Time) {
	if l.status == statusOnline {
		return
	}
	l.status = statusOnline

	e := l.engine
	e.setStatus(l.cam.ID, "Online")
	l.log.Info("camera online")
	e.deps.Observer.CameraOnline(l.cam.ID, true)
	e.deps.Bus.Publish(events.CameraStatusChanged{
		CameraID: l.cam.ID,
		Online:   true,
		At:       now,
	})
}

func (l *loop) markOffline(why string, now time.Time) {
	e := l.engine
	e.setStatus(l.cam.ID, "Offline: "+why)

	if l.status == statusOffline {
		return
	}
	l.status = statusOffline

	l.log.Warn("camera offline", "reason", why)
	e.deps.Observer.CameraOnline(l.cam.ID, false)
	e.deps.Bus.Publish(events.CameraStatusChanged{
		CameraID: l.cam.ID,
		Online:   false,
		Reason:   why,
		At:       now,
	})
}

// clear blanks every enabled overlay of the camera.
func (l *loop) clear() {
	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()

	for _, b := range l.cam.Bindings {
		if !b.Enabled {
			continue
		}
		if err := l.client.ClearOverlay(ctx, l.cam.Host, l.cam.Port, b.OverlayID); err != nil {
			l.log.Debug("overlay clear failed", "overlay", b.OverlayID, "error", err)
		}
	}
}

func renderBinding(b camera.Binding, scales *device.Registry, cfg Config, now time.Time) string {
	s := b.Scale
	if s == nil && scales != nil {
		s = scales.Get(b.ScaleID)
	}
	return overlay.Render(s, cfg.Render, now)
}
