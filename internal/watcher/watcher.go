// Package watcher keeps a client's view of one room current. It subscribes to
// the room's change channel, reconciles once after every confirmed
// subscription, and tells its owner either to refresh or to move on to the
// game once the room is playing.
package watcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/notify"
	"github.com/sirupsen/logrus"
)

// State is the watcher's lifecycle position.
type State int32

const (
	StateInit State = iota
	StateAwaitSession
	StateSubscribed
	StateRefreshing
	StateTransitioned
	StateDegraded
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitSession:
		return "await_session"
	case StateSubscribed:
		return "subscribed"
	case StateRefreshing:
		return "refreshing"
	case StateTransitioned:
		return "transitioned"
	case StateDegraded:
		return "degraded"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Signal is what the owner of a watcher is asked to do.
type Signal int

const (
	// SignalTransition: the room is playing, go to the game view.
	SignalTransition Signal = iota + 1
	// SignalRefresh: the room changed, re-render it.
	SignalRefresh
	// SignalDegraded: live updates are unavailable, offer a manual refresh.
	SignalDegraded
)

func (s Signal) String() string {
	switch s {
	case SignalTransition:
		return "transition"
	case SignalRefresh:
		return "refresh"
	case SignalDegraded:
		return "degraded"
	}
	return "unknown"
}

// SessionSource reports whether the client holds an authenticated session.
type SessionSource interface {
	HasSession(ctx context.Context) (bool, error)
	// SessionEstablished is closed once a session exists.
	SessionEstablished() <-chan struct{}
}

// StatusReader performs the reconciliation read.
type StatusReader interface {
	RoomStatus(ctx context.Context, roomID uuid.UUID) (models.RoomStatus, error)
}

// Config bounds waits and retries.
type Config struct {
	SessionTimeout time.Duration
	ReadTimeout    time.Duration
	MaxFailures    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// StableAfter is how long a confirmed subscription must stay up before a
	// drop no longer counts against the previous ones.
	StableAfter time.Duration
}

// DefaultConfig returns the defaults used when a Config field is zero.
func DefaultConfig() Config {
	return Config{
		SessionTimeout: 10 * time.Second,
		ReadTimeout:    5 * time.Second,
		MaxFailures:    5,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		StableAfter:    10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = d.MaxFailures
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.StableAfter <= 0 {
		c.StableAfter = d.StableAfter
	}
	return c
}

// Deps are the collaborators of a Watcher.
type Deps struct {
	Sessions   SessionSource
	Subscriber notify.Subscriber
	Reader     StatusReader
	// Sink receives signals on the goroutine running Run.
	Sink   func(Signal)
	Logger *logrus.Logger
}

// Watcher watches a single room. Create one per mounted room view.
type Watcher struct {
	roomID    uuid.UUID
	lastKnown models.RoomStatus
	deps      Deps
	cfg       Config
	log       *logrus.Entry

	state     atomic.Int32
	cancelled atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New returns a watcher for roomID whose last rendered status is lastKnown.
func New(roomID uuid.UUID, lastKnown models.RoomStatus, deps Deps, cfg Config) *Watcher {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Watcher{
		roomID:    roomID,
		lastKnown: lastKnown,
		deps:      deps,
		cfg:       cfg.withDefaults(),
		log:       logger.WithField("room_id", roomID),
	}
}

// State returns the current state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Stop cancels the watcher. No signal is emitted once the cancellation is
// observed, and the result of an in-flight reconciliation read is discarded.
func (w *Watcher) Stop() {
	w.cancelled.Store(true)
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run drives the state machine until the room transitions, the watcher
// degrades, or it is cancelled via ctx or Stop. It returns the final state.
func (w *Watcher) Run(ctx context.Context) State {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	if w.cancelled.Load() {
		return w.terminate()
	}

	if w.lastKnown == models.RoomPlaying {
		return w.finish(StateTransitioned, SignalTransition)
	}

	w.setState(StateAwaitSession)
	if !w.awaitSession(ctx) {
		if ctx.Err() != nil {
			return w.terminate()
		}
		w.log.Warn("no session established, live updates disabled")
		return w.finish(StateDegraded, SignalDegraded)
	}

	return w.serve(ctx)
}

func (w *Watcher) awaitSession(ctx context.Context) bool {
	ok, err := w.deps.Sessions.HasSession(ctx)
	if err != nil {
		w.log.Warnf("session check failed: %v", err)
	}
	if ok {
		return true
	}

	timer := time.NewTimer(w.cfg.SessionTimeout)
	defer timer.Stop()
	select {
	case <-w.deps.Sessions.SessionEstablished():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

type readResult struct {
	status models.RoomStatus
	err    error
}

// serve owns the subscription. Everything here runs on one goroutine except
// the reconciliation read, of which at most one is in flight.
func (w *Watcher) serve(ctx context.Context) State {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.cfg.InitialBackoff
	bo.MaxInterval = w.cfg.MaxBackoff
	bo.Reset()

	// Subscription failures (subscribe errors and drops) and read failures are
	// counted separately. A read success clears only the read count; the
	// subscription count clears once a subscription delivers an event or stays
	// up for StableAfter.
	var (
		sub          notify.Subscription
		ready        <-chan struct{}
		events       <-chan notify.Event
		confirmedAt  time.Time
		results      chan readResult
		reread       bool
		subFailures  int
		readFailures int
		timer        *time.Timer
		retry        <-chan time.Time
	)
	defer func() {
		if sub != nil {
			sub.Close()
		}
		if timer != nil {
			timer.Stop()
		}
	}()

	// fail records a failure in count and arms the retry timer. It reports
	// whether the failure budget is spent.
	fail := func(count *int, what string, err error) bool {
		*count++
		w.log.WithField("failures", *count).Debugf("%s: %v", what, err)
		if *count >= w.cfg.MaxFailures {
			return true
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(bo.NextBackOff())
		retry = timer.C
		return false
	}
	degrade := func() State {
		w.log.Warn("too many consecutive failures, live updates disabled")
		return w.finish(StateDegraded, SignalDegraded)
	}
	read := func() {
		if results != nil {
			reread = true
			return
		}
		w.setState(StateRefreshing)
		results = w.startRead(ctx)
	}

	for {
		if sub == nil && retry == nil {
			s, err := w.deps.Subscriber.Subscribe(ctx, w.roomID)
			if ctx.Err() != nil {
				if s != nil {
					s.Close()
				}
				return w.terminate()
			}
			if err != nil {
				if fail(&subFailures, "subscribe", err) {
					return degrade()
				}
				continue
			}
			sub, ready, events = s, s.Ready(), s.Events()
		}

		select {
		case <-ctx.Done():
			return w.terminate()

		case <-ready:
			ready = nil
			confirmedAt = time.Now()
			w.setState(StateSubscribed)
			read()

		case ev, ok := <-events:
			if !ok {
				err := sub.Err()
				stable := ready == nil && time.Since(confirmedAt) >= w.cfg.StableAfter
				sub.Close()
				sub, ready, events = nil, nil, nil
				if stable {
					subFailures = 0
					bo.Reset()
				}
				if fail(&subFailures, "subscription dropped", err) {
					return degrade()
				}
				continue
			}
			subFailures = 0
			bo.Reset()
			if ev.Status == models.RoomPlaying {
				return w.finish(StateTransitioned, SignalTransition)
			}
			w.emit(SignalRefresh)

		case res := <-results:
			results = nil
			if w.cancelled.Load() {
				return w.terminate()
			}
			if res.err != nil {
				if fail(&readFailures, "reconciliation read", res.err) {
					return degrade()
				}
				continue
			}
			readFailures = 0
			if subFailures == 0 {
				bo.Reset()
			}
			if res.status == models.RoomPlaying {
				return w.finish(StateTransitioned, SignalTransition)
			}
			if sub != nil {
				w.setState(StateSubscribed)
			}
			w.emit(SignalRefresh)
			if reread {
				reread = false
				read()
			}

		case <-retry:
			retry = nil
			if sub != nil && ready == nil {
				read()
			}
		}
	}
}

// startRead runs the reconciliation read on a context detached from ctx so
// that cancellation does not abort it; its result is dropped instead.
func (w *Watcher) startRead(ctx context.Context) chan readResult {
	ch := make(chan readResult, 1)
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.ReadTimeout)
	go func() {
		defer cancel()
		status, err := w.deps.Reader.RoomStatus(rctx, w.roomID)
		ch <- readResult{status: status, err: err}
	}()
	return ch
}

func (w *Watcher) setState(s State) {
	w.state.Store(int32(s))
}

func (w *Watcher) emit(sig Signal) {
	if w.cancelled.Load() || w.deps.Sink == nil {
		return
	}
	w.deps.Sink(sig)
}

func (w *Watcher) finish(s State, sig Signal) State {
	if w.cancelled.Load() {
		return w.terminate()
	}
	w.setState(s)
	w.emit(sig)
	return s
}

func (w *Watcher) terminate() State {
	w.cancelled.Store(true)
	w.setState(StateTerminated)
	return StateTerminated
}
