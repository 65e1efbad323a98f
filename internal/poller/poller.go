// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/logging"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/protocol"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/transport"
)

var errNotConnected = errors.New("poller: not connected")

// Deps are the collaborators shared by all scale loops.
// Zero fields get working defaults.
type Deps struct {
	Dialer   transport.Dialer
	Bus      *events.Bus
	Logger   *slog.Logger
	Observer Observer
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Dialer == nil {
		d.Dialer = transport.Default()
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

type linkStatus uint8

const (
	statusUnknown linkStatus = iota
	statusOnline
	statusOffline
)

// Poller owns the connection and the loop for exactly one scale.
//
//	Connecting -> Streaming -> (error) -> Backoff -> Connecting
//	any state  -> Stopped on ctx cancellation
type Poller struct {
	scale *device.Scale
	cfg   Config
	deps  Deps
	log   *slog.Logger

	link transport.Link

	// protocol is decided by the first valid response and never revisited.
	protocol device.Protocol
	status   linkStatus
}

// New creates a poller for one scale.
func New(scale *device.Scale, cfg Config, deps Deps) (*Poller, error) {
	if scale == nil {
		return nil, errors.New("poller: scale required")
	}
	if scale.Address == "" {
		return nil, fmt.Errorf("poller: scale %s has no address", scale.ID)
	}
	if cfg.ConnectTimeout <= 0 {
		return nil, errors.New("poller: connect timeout must be > 0")
	}

	deps = deps.withDefaults()

	return &Poller{
		scale: scale,
		cfg:   cfg,
		deps:  deps,
		log:   deps.Logger.With(logging.SourceKey, "poller", "scale", scale.Label()),
	}, nil
}

// Run drives the state machine until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	defer p.closeLink()

	for {
		err := p.connect(ctx)
		if err == nil {
			err = p.stream(ctx)
		}

		kind := Classify(ctx, err)
		if kind == KindShutdown {
			return
		}
		p.fail(err, kind)
		p.closeLink()

		// Backoff
		if !sleep(ctx, p.cfg.ReconnectDelay) {
			return
		}
	}
}

func (p *Poller) connect(ctx context.Context) error {
	link, err := p.deps.Dialer.Dial(ctx, p.scale.Address, p.cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("connect %s: %w", p.scale.Address, err)
	}
	p.link = link

	if p.cfg.AutoZeroOnConnect {
		st := p.scale.State()
		st.NetGrams = 0
		st.TareGrams = 0
		p.scale.Publish(st)
	}
	return nil
}

func (p *Poller) stream(ctx context.Context) error {
	for {
		res := p.PollOnce(ctx)
		if res.Err != nil {
			return res.Err
		}
		p.apply(res)

		if !sleep(ctx, p.cfg.interval()) {
			return ctx.Err()
		}
	}
}

// PollOnce performs exactly one GET_MASSA round-trip on the open link.
// The round-trip is bounded by ConnectTimeout and by ctx.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{ScaleID: p.scale.ID}

	link := p.link
	if link == nil {
		res.Err = errNotConnected
		res.At = p.deps.Now()
		return res
	}

	rt, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	deadline, _ := rt.Deadline()
	_ = link.SetDeadline(deadline)
	defer watch(rt, link)()

	if _, err := link.Write(protocol.BuildGetMassa()); err != nil {
		res.Err = fmt.Errorf("write request: %w", err)
		res.At = p.deps.Now()
		return res
	}

	payload, err := protocol.ReadFrame(link)
	res.At = p.deps.Now()
	if err != nil {
		res.Err = err
		return res
	}

	reading, err := protocol.ParseMassa(payload)
	if err != nil {
		res.Err = err
		return res
	}

	res.Reading = reading
	return res
}

// apply folds a successful reading into the scale state.
func (p *Poller) apply(res PollResult) {
	r := res.Reading
	prev := p.scale.State()
	first := prev.LastUpdate.IsZero()

	if p.protocol == device.ProtocolUnknown {
		p.protocol = device.ProtocolWithoutTare
		if r.HasTare {
			p.protocol = device.ProtocolWithTare
		}
		p.log.Info("protocol detected", "protocol", p.protocol.String())
	}

	next := prev
	next.NetGrams = r.NetGrams
	if !first && math.Abs(r.NetGrams-prev.NetGrams) < p.cfg.DeadbandGrams {
		// Deadband: hold the previous value so jitter never accumulates.
		next.NetGrams = prev.NetGrams
	}
	next.TareGrams = 0
	if r.HasTare {
		next.TareGrams = r.TareGrams
	}
	next.Stable = r.Stable
	next.NetFlag = r.Net
	next.ZeroFlag = r.Zero
	next.Protocol = p.protocol
	next.LastUpdate = res.At

	cameOnline := p.status != statusOnline
	if cameOnline {
		next.Online = true
		next.StatusChangedAt = res.At
	}

	changed := first || differs(prev, next, p.cfg.DeadbandGrams)

	p.scale.Publish(next)
	p.deps.Observer.PollSucceeded(p.scale.ID)

	if cameOnline {
		p.status = statusOnline
		p.log.Info("scale online")
		p.deps.Observer.ScaleOnline(p.scale.ID, true)
		p.deps.Bus.Publish(events.ScaleStatusChanged{
			ScaleID: p.scale.ID,
			Online:  true,
			At:      res.At,
		})
	}

	if changed {
		p.deps.Bus.Publish(events.ScaleUpdated{
			ScaleID: p.scale.ID,
			Name:    p.scale.Name,
			State:   next,
		})
	}
}

// fail records a non-shutdown failure. Logging and the status event are
// edge-triggered: once per continuous offline period.
func (p *Poller) fail(err error, kind ErrorKind) {
	p.deps.Observer.PollFailed(p.scale.ID, kind)

	if p.status == statusOffline {
		return
	}
	p.status = statusOffline

	now := p.deps.Now()
	st := p.scale.State()
	st.Online = false
	st.StatusChangedAt = now
	p.scale.Publish(st)

	p.log.Warn("scale offline", "kind", kind.String(), "error", err)
	p.deps.Observer.ScaleOnline(p.scale.ID, false)
	p.deps.Bus.Publish(events.ScaleStatusChanged{
		ScaleID: p.scale.ID,
		Online:  false,
		Reason:  err.Error(),
		Code:    kind.Code(),
		At:      now,
	})
}

func (p *Poller) closeLink() {
	if p.link != nil {
		_ = p.link.Close()
		p.link = nil
	}
}

// differs reports a change worth notifying about.
func differs(prev, next device.State, deadband float64) bool {
	if math.Abs(next.NetGrams-prev.NetGrams) > deadband {
		return true
	}
	if math.Abs(next.TareGrams-prev.TareGrams) > deadband {
		return true
	}
	return next.Stable != prev.Stable ||
		next.NetFlag != prev.NetFlag ||
		next.ZeroFlag != prev.ZeroFlag ||
		next.Protocol != prev.Protocol
}

// watch forces the link deadline to now as soon as rt ends, so a blocked
// read returns on shutdown. The returned func stops the watcher and waits
// for it, so it never touches the link after the round-trip is over.
func watch(rt context.Context, link transport.Link) func() {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		select {
		case <-rt.Done():
			_ = link.SetDeadline(time.Now())
		case <-done:
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

// sleep waits d or until ctx is done. Returns false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
