// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/logging"
)

// worker is the handle for one running scale loop.
type worker struct {
	poller *Poller
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine runs one independent Poller per enabled scale.
// Loops share nothing but read-only config.
type Engine struct {
	registry *device.Registry
	cfg      Config
	deps     Deps
	log      *slog.Logger

	mu      sync.Mutex
	workers map[string]*worker
}

// NewEngine validates inputs. This is the only place the engine returns errors.
func NewEngine(registry *device.Registry, cfg Config, deps Deps) (*Engine, error) {
	if registry == nil {
		return nil, errors.New("poller: device registry required")
	}
	if cfg.ConnectTimeout <= 0 {
		return nil, errors.New("poller: connect timeout must be > 0")
	}

	deps = deps.withDefaults()

	return &Engine{
		registry: registry,
		cfg:      cfg,
		deps:     deps,
		log:      deps.Logger.With(logging.SourceKey, "poller"),
		workers:  make(map[string]*worker),
	}, nil
}

// Start spawns a loop for every enabled scale that does not have one.
// Calling Start again is harmless.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.registry.List() {
		if !s.Enabled {
			continue
		}
		if w, ok := e.workers[s.ID]; ok {
			select {
			case <-w.done:
				// exited on its own (parent ctx ended); replace it
			default:
				continue
			}
		}

		p, err := New(s, e.cfg, e.deps)
		if err != nil {
			e.log.Error("poller build failed", "scale", s.Label(), "error", err)
			continue
		}

		wctx, cancel := context.WithCancel(ctx)
		w := &worker{poller: p, cancel: cancel, done: make(chan struct{})}
		e.workers[s.ID] = w

		go e.run(wctx, s, w)
	}
}

func (e *Engine) run(ctx context.Context, s *device.Scale, w *worker) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("poll loop crashed",
				"scale", s.Label(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	w.poller.Run(ctx)
}

// StopAll cancels every loop and waits for all of them to exit.
// Connections are closed by the loops themselves; close errors are dropped.
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

// Config returns the engine's poll config.
func (e *Engine) Config() Config { return e.cfg }
