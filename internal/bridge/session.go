package bridge

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Supervision constants.
const (
	// defaultConnectTimeout bounds a single dial attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultInitialBackoff is the first retry delay after a failure.
	defaultInitialBackoff = 1 * time.Second

	// defaultMaxBackoff caps the retry delay.
	defaultMaxBackoff = 60 * time.Second

	// backoffMultiplier grows the delay between consecutive failures.
	backoffMultiplier = 1.5

	// backoffJitterFraction is the maximum random fraction added to each
	// delay so two endpoints never retry in lockstep.
	backoffJitterFraction = 0.2
)

// SessionState is the lifecycle state of one supervised endpoint session.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateShuttingDown
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Conn is the minimal contract a dialled session must satisfy.
// Done yields the connection-loss error (or closes) when the session dies;
// Close releases the underlying resources and unblocks Done.
type Conn interface {
	Done() <-chan error
	Close() error
}

// Logger is the optional structured logger interface used throughout the
// package. Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// BackoffConfig controls retry pacing for a supervised session.
// Zero values select the package defaults.
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
}

// backoff produces bounded exponential delays with jitter. Not safe for
// concurrent use; each Supervisor owns exactly one.
type backoff struct {
	cfg BackoffConfig
	cur time.Duration
	rng *rand.Rand
}

func newBackoff(cfg BackoffConfig) *backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = defaultInitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = defaultMaxBackoff
	}
	return &backoff{
		cfg: cfg,
		cur: cfg.Initial,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// next returns the delay to wait before the following attempt and advances
// the schedule. The returned delay is the current base plus up to
// backoffJitterFraction of random spread.
func (b *backoff) next() time.Duration {
	base := b.cur

	grown := time.Duration(float64(b.cur) * backoffMultiplier)
	if grown > b.cfg.Max {
		grown = b.cfg.Max
	}
	b.cur = grown

	jitter := time.Duration(b.rng.Int63n(int64(float64(base)*backoffJitterFraction) + 1))
	return base + jitter
}

// reset returns the schedule to the initial delay. Called on every
// successful connection so a later outage starts from a short retry again.
func (b *backoff) reset() {
	b.cur = b.cfg.Initial
}

// SupervisorConfig configures a Supervisor for one endpoint.
type SupervisorConfig[C Conn] struct {
	// Name identifies the endpoint in logs and state notifications
	// (e.g. "obs", "mixer").
	Name string

	// Dial establishes one session. It must respect ctx cancellation.
	Dial func(ctx context.Context) (C, error)

	// ConnectTimeout bounds each dial attempt. Default: 10s.
	ConnectTimeout time.Duration

	// Backoff controls retry pacing between failed attempts.
	Backoff BackoffConfig

	// OnUp is called after each successful dial with the new session.
	OnUp func(c C)

	// OnDown is called when an established session is lost.
	// err describes the loss and may be nil on a remote-initiated close.
	OnDown func(err error)

	// OnState is called on every state transition.
	OnState func(s SessionState)

	// Logger is optional.
	Logger Logger
}

// Supervisor keeps one endpoint session alive. It drives the state machine
//
//	Disconnected → Connecting → Connected → Disconnected → ...
//
// with ShuttingDown reachable from any state when its context is cancelled.
// Failed dials retry forever with bounded exponential backoff and jitter;
// the backoff resets to the initial delay on every successful connection.
//
// Each Supervisor is fully independent: the switcher supervisor retrying has
// no effect on the mixer supervisor and vice versa.
type Supervisor[C Conn] struct {
	cfg     SupervisorConfig[C]
	backoff *backoff

	stateMu sync.RWMutex
	state   SessionState

	reconnects int
}

// NewSupervisor creates a supervisor in the Disconnected state.
// Call Run to start it.
func NewSupervisor[C Conn](cfg SupervisorConfig[C]) *Supervisor[C] {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return &Supervisor[C]{
		cfg:     cfg,
		backoff: newBackoff(cfg.Backoff),
		state:   StateDisconnected,
	}
}

// State returns the current session state.
func (s *Supervisor[C]) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Reconnects returns the number of successful connections after the first.
func (s *Supervisor[C]) Reconnects() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.reconnects
}

func (s *Supervisor[C]) setState(state SessionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()

	if s.cfg.OnState != nil {
		s.cfg.OnState(state)
	}
}

// Run supervises the session until ctx is cancelled. It never returns an
// error for connection failures (those are retried forever); the only exit
// is cancellation.
func (s *Supervisor[C]) Run(ctx context.Context) {
	connections := 0

	for {
		if ctx.Err() != nil {
			s.setState(StateShuttingDown)
			return
		}

		s.setState(StateConnecting)

		conn, err := s.dialOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateShuttingDown)
				return
			}
			delay := s.backoff.next()
			s.logWarn("connect failed, retrying",
				"endpoint", s.cfg.Name, "error", err, "retry_in", delay.String())
			select {
			case <-ctx.Done():
				s.setState(StateShuttingDown)
				return
			case <-time.After(delay):
			}
			continue
		}

		s.backoff.reset()
		connections++
		if connections > 1 {
			s.stateMu.Lock()
			s.reconnects++
			s.stateMu.Unlock()
		}
		s.setState(StateConnected)
		s.logInfo("session established", "endpoint", s.cfg.Name)
		if s.cfg.OnUp != nil {
			s.cfg.OnUp(conn)
		}

		select {
		case <-ctx.Done():
			s.setState(StateShuttingDown)
			_ = conn.Close()
			return
		case lossErr := <-conn.Done():
			_ = conn.Close()
			s.logWarn("session lost", "endpoint", s.cfg.Name, "error", lossErr)
			if s.cfg.OnDown != nil {
				s.cfg.OnDown(lossErr)
			}
			s.setState(StateDisconnected)
		}
	}
}

// dialOnce performs one connection attempt bounded by ConnectTimeout.
func (s *Supervisor[C]) dialOnce(ctx context.Context) (C, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()
	return s.cfg.Dial(dialCtx)
}

func (s *Supervisor[C]) logInfo(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Info(msg, args...)
	}
}

func (s *Supervisor[C]) logWarn(msg string, args ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Warn(msg, args...)
	}
}
