// Package presence tracks a single session's online state. Each tracker runs
// one goroutine that owns the Active/Idle/Offline state machine; callers feed
// it activity and visibility signals and it pushes best-effort heartbeat
// writes into the user store.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/pack1703/packchat/internal/store"
)

// State is the session's presence state. Exactly one holds at any instant.
type State int

const (
	// StateActive: recent activity, heartbeats flowing.
	StateActive State = iota
	// StateIdle: tab hidden, heartbeats suspended, no offline write. Keeps
	// tab-switchers from flapping between online and offline.
	StateIdle
	// StateOffline: inactivity window elapsed or session stopped.
	StateOffline
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateIdle:
		return "idle"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

type signalKind int

const (
	sigActivity signalKind = iota
	sigHidden
	sigVisible
)

// Tracker drives presence for one session. It is the sole mutator of the
// user's online/last_seen fields.
type Tracker struct {
	users      store.UserStore
	userID     string
	heartbeat  time.Duration
	inactivity time.Duration
	clock      clock.Clock
	log        *zerolog.Logger

	signals chan signalKind
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	state   State
	started bool
}

// NewTracker builds a tracker for the given user.
func NewTracker(users store.UserStore, userID string, heartbeat, inactivity time.Duration, cl clock.Clock, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		users:      users,
		userID:     userID,
		heartbeat:  heartbeat,
		inactivity: inactivity,
		clock:      cl,
		log:        logger,
		signals:    make(chan signalKind, 8),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		state:      StateActive,
	}
}

// Start launches the tracker loop and emits the initial online heartbeat.
// May be called once.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	t.writeOnline()
	go t.run(ctx)
}

// Signal records user activity: pointer, key, scroll, touch, click, or a
// visibility return. Non-blocking; a dropped signal is harmless because
// another one follows close behind.
func (t *Tracker) Signal() {
	select {
	case t.signals <- sigActivity:
	default:
	}
}

// SetVisible reports tab visibility changes.
func (t *Tracker) SetVisible(visible bool) {
	sig := sigHidden
	if visible {
		sig = sigVisible
	}
	select {
	case t.signals <- sig:
	default:
	}
}

// State returns the current presence state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Stop halts the tracker and issues a final best-effort offline write.
// Blocks until the loop has exited or ctx is done.
func (t *Tracker) Stop(ctx context.Context) {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return
	}

	select {
	case <-t.done:
		return
	default:
	}

	close(t.stop)
	select {
	case <-t.done:
	case <-ctx.Done():
	}
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)

	hb := t.clock.Ticker(t.heartbeat)
	defer hb.Stop()
	idle := t.clock.Timer(t.inactivity)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			t.setState(StateOffline)
			t.writeOffline()
			return

		case <-t.stop:
			t.setState(StateOffline)
			t.writeOffline()
			return

		case sig := <-t.signals:
			t.handleSignal(sig, idle)

		case <-hb.C:
			// Heartbeats only flow while active; Idle suspends them and
			// Offline has nothing to assert.
			if t.State() == StateActive {
				t.writeOnline()
			}

		case <-idle.C:
			if t.State() != StateOffline {
				t.setState(StateOffline)
				t.writeOffline()
			}
		}
	}
}

func (t *Tracker) handleSignal(sig signalKind, idle *clock.Timer) {
	switch sig {
	case sigActivity:
		idle.Reset(t.inactivity)
		if prev := t.swapState(StateActive); prev == StateOffline {
			// Waking from offline announces presence immediately rather
			// than waiting out the heartbeat interval.
			t.writeOnline()
		}
	case sigHidden:
		if t.State() == StateActive {
			t.setState(StateIdle)
		}
	case sigVisible:
		if t.State() == StateIdle {
			t.setState(StateActive)
			idle.Reset(t.inactivity)
			t.writeOnline()
		}
	}
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Tracker) swapState(s State) State {
	t.mu.Lock()
	prev := t.state
	t.state = s
	t.mu.Unlock()
	return prev
}

// writeOnline asserts online=true, last_seen=now. Presence is a best-effort
// signal: failures are logged and swallowed.
func (t *Tracker) writeOnline() {
	t.writePresence(true)
}

func (t *Tracker) writeOffline() {
	t.writePresence(false)
}

func (t *Tracker) writePresence(online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := t.clock.Now()
	patch := store.UserPatch{Online: &online, LastSeen: &now}
	if err := t.users.ApplyUser(ctx, t.userID, patch); err != nil {
		t.log.Warn().Err(err).Str("user_id", t.userID).Bool("online", online).
			Msg("presence update failed")
	}
}
