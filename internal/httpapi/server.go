// internal/httpapi/server.go

// Package httpapi serves the read-only status API: scales, cameras,
// metrics and a live event stream.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/camera"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/isapi"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/logging"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/metrics"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/overlay"
)

const shutdownTimeout = 5 * time.Second

// CameraStatus is the part of the OSD engine the API reads.
type CameraStatus interface {
	GetCameraStatus(id string) (string, bool)
}

// ScreenReader reads a camera's picture geometry. *isapi.Client implements it.
type ScreenReader interface {
	GetVideoResolution(ctx context.Context, host string, port int) isapi.Size
	GetNormalizedScreenSize(ctx context.Context, host string, port int) isapi.Size
	Close() error
}

// ScreenFactory builds the screen reader for one camera.
type ScreenFactory func(cam *camera.Camera) ScreenReader

// ISAPIScreens is the production factory.
func ISAPIScreens(cam *camera.Camera) ScreenReader {
	return isapi.New(cam.Username, cam.Password)
}

// Deps are the live objects the API reports on. Status, Bus, Metrics and
// Screens may be nil; the matching routes then degrade or are not mounted.
type Deps struct {
	Scales  *device.Registry
	Cameras *camera.Registry
	Status  CameraStatus
	Bus     *events.Bus
	Metrics *metrics.Metrics
	Screens ScreenFactory
	Render  overlay.Options
	Logger  *slog.Logger
	Now     func() time.Time
}

type Server struct {
	deps     Deps
	log      *slog.Logger
	upgrader websocket.Upgrader

	// one reader per camera id, so the screen size cache survives requests
	screenMu sync.Mutex
	screens  map[string]ScreenReader
}

func New(d Deps) (*Server, error) {
	if d.Scales == nil || d.Cameras == nil {
		return nil, errors.New("httpapi: scale and camera registries are required")
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Server{
		deps:    d,
		log:     d.Logger.With(logging.SourceKey, "http"),
		screens: make(map[string]ScreenReader),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}, nil
}

// Handler is the routed API with access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	s.route(r, "/health", s.health)
	s.route(r, "/api/scales", s.listScales)
	s.route(r, "/api/cameras", s.listCameras)
	s.route(r, "/api/cameras/{id}", s.getCamera)
	s.route(r, "/api/cameras/{id}/status", s.cameraStatus)

	if s.deps.Bus != nil {
		// not wrapped: the status recorder would hide http.Hijacker
		r.HandleFunc("/ws/events", s.streamEvents).Methods(http.MethodGet)
	}
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	var h http.Handler = r
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(printer{s.log}), handlers.PrintRecoveryStack(false))(h)
	h = handlers.LoggingHandler(lineWriter{s.log}, h)
	return h
}

func (s *Server) route(r *mux.Router, path string, fn http.HandlerFunc) {
	r.Handle(path, s.deps.Metrics.WrapHandler(path, fn)).Methods(http.MethodGet)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// screenReader returns the cached screen reader of cam, or nil without a factory.
func (s *Server) screenReader(cam *camera.Camera) ScreenReader {
	if s.deps.Screens == nil {
		return nil
	}
	s.screenMu.Lock()
	defer s.screenMu.Unlock()

	p, ok := s.screens[cam.ID]
	if !ok {
		p = s.deps.Screens(cam)
		s.screens[cam.ID] = p
	}
	return p
}

// Close releases the screen readers.
func (s *Server) Close() error {
	s.screenMu.Lock()
	defer s.screenMu.Unlock()

	var errs []error
	for id, p := range s.screens {
		errs = append(errs, p.Close())
		delete(s.screens, id)
	}
	return errors.Join(errs...)
}

// ---- log adapters ----

// lineWriter feeds gorilla access log lines into slog.
type lineWriter struct{ log *slog.Logger }

func (w lineWriter) Write(p []byte) (int, error) {
	w.log.Debug(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

type printer struct{ log *slog.Logger }

func (p printer) Println(v ...interface{}) {
	for _, x := range v {
		p.log.Error("http handler panic", "panic", x)
	}
}
