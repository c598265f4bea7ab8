// Package connect joins a network and confirms the join by watching the
// connected SSID.
//
// The join command is only a trigger. On macOS, networksetup is unreliable
// about reporting success for joins that use a cached credential, so the
// connected network is polled until it matches or a deadline passes. The one
// exception is an explicit rejection while a password was supplied: that
// signal is reliable and is reported as ErrBadCredential straight away.
package connect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shazow/wifiman/wifi"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultDeadline     = 20 * time.Second
)

// State is a step of one connection attempt.
type State int

const (
	StateIdle State = iota
	StateResolvingCredential
	StateAwaitingCredential
	StateJoining
	StateVerifying
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingCredential:
		return "resolving-credential"
	case StateAwaitingCredential:
		return "awaiting-credential"
	case StateJoining:
		return "joining"
	case StateVerifying:
		return "verifying"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transition describes one state change of an attempt.
type Transition struct {
	SSID     string
	From, To State
}

// Ledger is the persisted state the workflow updates. *usage.Store satisfies it.
type Ledger interface {
	Increment(ctx context.Context, name string) error
	Trusted(ctx context.Context) (map[string]bool, error)
	AddTrusted(ctx context.Context, name string) error
}

// Clock paces the verification polls.
type Clock interface {
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Error is a failed attempt. It wraps one of the wifi sentinel errors.
type Error struct {
	SSID string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.SSID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Workflow runs connection attempts. Only one attempt runs at a time; a
// second call while one is in flight fails with wifi.ErrBusy.
type Workflow struct {
	backend  wifi.Backend
	ledger   Ledger
	logger   *slog.Logger
	clock    Clock
	interval time.Duration
	deadline time.Duration
	observe  func(Transition)

	inFlight sync.Mutex
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithClock replaces the clock used between polls.
func WithClock(c Clock) Option {
	return func(w *Workflow) { w.clock = c }
}

// WithTiming overrides the poll interval and the verification deadline.
func WithTiming(interval, deadline time.Duration) Option {
	return func(w *Workflow) {
		w.interval = interval
		w.deadline = deadline
	}
}

// WithObserver registers a callback for every state change.
func WithObserver(fn func(Transition)) Option {
	return func(w *Workflow) { w.observe = fn }
}

func New(backend wifi.Backend, ledger Ledger, logger *slog.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		backend:  backend,
		ledger:   ledger,
		logger:   logger,
		clock:    realClock{},
		interval: DefaultPollInterval,
		deadline: DefaultDeadline,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type attempt struct {
	w     *Workflow
	ssid  string
	state State
}

func (a *attempt) to(s State) {
	t := Transition{SSID: a.ssid, From: a.state, To: s}
	a.state = s
	a.w.logger.Debug("connect transition", "ssid", t.SSID, "from", t.From, "to", t.To)
	if a.w.observe != nil {
		a.w.observe(t)
	}
}

func (a *attempt) fail(err error) error {
	a.to(StateFailed)
	return &Error{SSID: a.ssid, Err: err}
}

// Connect joins n. Open networks go straight to joining. Protected networks
// use the stored secret if there is one; otherwise Connect stops in
// StateAwaitingCredential and returns wifi.ErrCredentialRequired, and the
// caller continues with ConnectWithCredential or drops the attempt.
func (w *Workflow) Connect(ctx context.Context, n wifi.Network) error {
	if !w.inFlight.TryLock() {
		return fmt.Errorf("connect to %s: %w", n.SSID, wifi.ErrBusy)
	}
	defer w.inFlight.Unlock()

	a := &attempt{w: w, ssid: n.SSID, state: StateIdle}
	if !n.RequiresCredential() {
		return a.join(ctx, "")
	}

	a.to(StateResolvingCredential)
	secret, err := w.backend.GetSecret(ctx, n.SSID)
	if err != nil {
		w.logger.Debug("no stored credential", "ssid", n.SSID, "error", err)
		a.to(StateAwaitingCredential)
		return fmt.Errorf("connect to %s: %w", n.SSID, wifi.ErrCredentialRequired)
	}
	w.trustOnce(ctx, n.SSID, secret)
	return a.join(ctx, secret)
}

// ConnectWithCredential resumes an attempt with a password from the user. An
// empty password joins without one. The password is only stored once the
// connection is verified, so a rejected one is never offered again.
func (w *Workflow) ConnectWithCredential(ctx context.Context, n wifi.Network, password string) error {
	if !w.inFlight.TryLock() {
		return fmt.Errorf("connect to %s: %w", n.SSID, wifi.ErrBusy)
	}
	defer w.inFlight.Unlock()

	a := &attempt{w: w, ssid: n.SSID, state: StateAwaitingCredential}
	if err := a.join(ctx, password); err != nil {
		return err
	}
	if password != "" {
		w.trust(ctx, n.SSID, password)
	}
	return nil
}

// trustOnce registers the credential with the OS the first time we see a
// network. Nothing here can fail the attempt.
func (w *Workflow) trustOnce(ctx context.Context, ssid, password string) {
	trusted, err := w.ledger.Trusted(ctx)
	if err != nil {
		w.logger.Warn("could not read trusted networks", "error", err)
		return
	}
	if trusted[ssid] {
		return
	}
	w.trust(ctx, ssid, password)
}

// trust stores password with the OS and records the attempt.
func (w *Workflow) trust(ctx context.Context, ssid, password string) {
	w.backend.TrustSecret(ctx, ssid, password)
	if err := w.ledger.AddTrusted(ctx, ssid); err != nil {
		w.logger.Warn("could not record trusted network", "ssid", ssid, "error", err)
	}
}

func (a *attempt) join(ctx context.Context, password string) error {
	a.to(StateJoining)
	res, err := a.w.backend.JoinNetwork(ctx, a.ssid, password)
	if err != nil {
		return a.fail(fmt.Errorf("%w: %w", wifi.ErrJoinCommandFailed, err))
	}
	if res.Rejected {
		if password != "" {
			return a.fail(wifi.ErrBadCredential)
		}
		a.w.logger.Debug("join reported failure without a password, verifying anyway", "ssid", a.ssid, "output", res.Output)
	}

	a.to(StateVerifying)
	return a.verify(ctx)
}

// verify polls the connected SSID once per interval until it matches or the
// deadline is used up. Poll errors count as misses.
func (a *attempt) verify(ctx context.Context) error {
	var elapsed time.Duration
	for polls := 1; ; polls++ {
		current, err := a.w.backend.CurrentNetwork(ctx)
		if err != nil {
			a.w.logger.Debug("poll failed", "ssid", a.ssid, "poll", polls, "error", err)
		} else if current == a.ssid {
			a.to(StateConnected)
			if err := a.w.ledger.Increment(ctx, a.ssid); err != nil {
				a.w.logger.Warn("could not record connection", "ssid", a.ssid, "error", err)
			}
			return nil
		}

		if err := a.w.clock.Sleep(ctx, a.w.interval); err != nil {
			return a.fail(err)
		}
		elapsed += a.w.interval
		if elapsed >= a.w.deadline {
			a.w.logger.Debug("verification deadline reached", "ssid", a.ssid, "polls", polls)
			return a.fail(wifi.ErrTimeout)
		}
	}
}
