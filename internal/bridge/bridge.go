package bridge

import (
	"context"
	"sync"
	"time"
)

// Dispatch constants.
const (
	// eventQueueSize bounds the serialized event queue. Scene changes are
	// human-paced, so a small buffer is ample headroom.
	eventQueueSize = 16

	// defaultCommandTimeout bounds a single mute command submission.
	defaultCommandTimeout = 5 * time.Second
)

// MixerConn is the control channel to an established mixer session.
// Satisfied by *mixer.Client.
type MixerConn interface {
	// SetChannelMute sets the mute state of a single channel.
	// Best-effort: an error means the command was not delivered.
	SetChannelMute(ctx context.Context, channel int, mute bool) error

	Done() <-chan error
	Close() error
}

// StatusPublisher receives operational events from the dispatch loop.
// Implementations must not block; publish failures are logged and dropped.
// Satisfied by the MQTT status publisher; nil disables publishing.
type StatusPublisher interface {
	// PublishSceneChange reports a completed scene transition and the
	// number of mute commands it required.
	PublishSceneChange(scene string, actions int) error
}

// Options configures a Bridge.
type Options struct {
	// Scenes maps scene names to the channels unmuted while each is live.
	Scenes SceneMap

	// ChannelCount is the console's total strip count. Together with
	// Scenes it defines the channel universe for resyncs.
	ChannelCount int

	// EagerResync resynchronises the console immediately when the mixer
	// session reconnects, instead of waiting for the next scene change.
	// Off by default; with it off a reconnect only marks the state
	// unknown and the next event performs the resync.
	EagerResync bool

	// CommandTimeout bounds each individual mute command. Default: 5s.
	CommandTimeout time.Duration

	// Status is optional; nil disables status publishing.
	Status StatusPublisher

	// Logger is optional.
	Logger Logger
}

// event is one entry in the serialized dispatch queue.
type event struct {
	scene           SceneName // scene change when non-empty
	mixerUp         MixerConn // mixer session established
	mixerDown       bool      // mixer session lost
	switcherClosing bool      // switcher reported it is closing

	// ack, when non-nil, is closed once the event has been processed.
	ack chan struct{}
}

// Bridge is the single-threaded dispatch loop at the centre of scenemix.
//
// Scene-change notifications and session lifecycle events from both
// supervisors funnel into one queue consumed by Run. Because only the Run
// goroutine touches MixerState and the active scene, no locking is needed on
// the core's mutable state and events are processed strictly in arrival
// order.
type Bridge struct {
	opts     Options
	universe []ChannelID

	events chan event

	// Owned exclusively by the Run goroutine.
	state    MixerState
	active   SceneName
	hasScene bool
	mixer    MixerConn

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Bridge. Call Run to start dispatching.
// Options.Scenes must already be validated against Options.ChannelCount.
func New(opts Options) *Bridge {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	return &Bridge{
		opts:     opts,
		universe: Universe(opts.ChannelCount),
		events:   make(chan event, eventQueueSize),
		state:    UnknownState(),
		done:     make(chan struct{}),
	}
}

// HandleSceneChanged enqueues a scene-change notification.
// Safe to call from any goroutine (typically the switcher session's read
// loop). Events are processed in the order they are enqueued.
func (b *Bridge) HandleSceneChanged(scene string) {
	b.enqueue(event{scene: SceneName(scene)})
}

// HandleSwitcherClosing enqueues the clean-shutdown request issued when the
// switcher reports it is closing.
func (b *Bridge) HandleSwitcherClosing() {
	b.enqueue(event{switcherClosing: true})
}

// MixerUp hands an established mixer session to the dispatch loop.
// Wire this to the mixer supervisor's OnUp hook.
func (b *Bridge) MixerUp(conn MixerConn) {
	b.enqueue(event{mixerUp: conn})
}

// MixerDown tells the dispatch loop the mixer session was lost.
// Wire this to the mixer supervisor's OnDown hook.
func (b *Bridge) MixerDown() {
	b.enqueue(event{mixerDown: true})
}

// enqueue delivers an event to the loop, giving up if the loop has exited.
func (b *Bridge) enqueue(ev event) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// flush blocks until every previously enqueued event has been processed, or
// the loop has exited. Used to sequence observations against the loop.
func (b *Bridge) flush() {
	ack := make(chan struct{})
	b.enqueue(event{ack: ack})
	select {
	case <-ack:
	case <-b.done:
	}
}

// Run consumes events until the switcher reports closing or ctx is
// cancelled. It returns nil in both cases; all runtime failures are absorbed
// into state invalidation and later resync per the error-handling policy.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.doneOnce.Do(func() { close(b.done) })

	for {
		select {
		case <-ctx.Done():
			b.logInfo("dispatch loop cancelled")
			return nil
		case ev := <-b.events:
			stop := b.dispatch(ctx, ev)
			if ev.ack != nil {
				close(ev.ack)
			}
			if stop {
				return nil
			}
		}
	}
}

// dispatch handles one event and reports whether the loop should stop.
func (b *Bridge) dispatch(ctx context.Context, ev event) bool {
	switch {
	case ev.switcherClosing:
		b.logInfo("switcher closing, stopping dispatch loop")
		return true
	case ev.mixerUp != nil:
		b.handleMixerUp(ctx, ev.mixerUp)
	case ev.mixerDown:
		b.mixer = nil
		b.state = UnknownState()
		b.logInfo("mixer session lost, state marked unknown")
	case ev.scene != "":
		b.handleScene(ctx, ev.scene)
	}
	return false
}

// handleMixerUp installs the new session and invalidates the mixer state.
// Whatever happened at the console while the session was down is unknowable,
// so the next reconciliation must be a full resync.
func (b *Bridge) handleMixerUp(ctx context.Context, conn MixerConn) {
	b.mixer = conn
	b.state = UnknownState()

	if b.opts.EagerResync && b.hasScene {
		b.logInfo("mixer session established, eager resync", "scene", string(b.active))
		b.apply(ctx, b.active)
		return
	}
	b.logInfo("mixer session established, resync deferred to next scene change")
}

// handleScene processes one scene-change notification.
//
// Duplicate events are suppressed only while the mixer state is known: after
// a reconnect or a failed submission the state is unknown, and a repeat of
// the active scene must still drive a full resync.
func (b *Bridge) handleScene(ctx context.Context, scene SceneName) {
	if b.hasScene && scene == b.active && b.state.Known() {
		b.logDebug("duplicate scene event ignored", "scene", string(scene))
		return
	}
	b.apply(ctx, scene)
}

// apply reconciles into scene and submits the resulting actions in order.
//
// On full success the mixer state and active scene are committed. If any
// action fails, the remaining actions for this event are abandoned and the
// state is marked unknown: the next scene change then performs a full resync
// instead of continuing from a possibly-stale partial state. Retrying the
// single failed action here would risk reordering against a fast-following
// scene change, so it is deliberately dropped.
func (b *Bridge) apply(ctx context.Context, scene SceneName) {
	actions := Reconcile(scene, b.opts.Scenes, b.state, b.universe)
	b.logDebug("reconcile computed actions",
		"scene", string(scene), "actions", len(actions))

	if b.mixer == nil {
		b.state = UnknownState()
		b.logWarn("no mixer session, scene transition deferred to resync",
			"scene", string(scene))
		return
	}

	for _, a := range actions {
		if err := b.submit(ctx, a); err != nil {
			b.state = UnknownState()
			b.logWarn("action failed, state marked unknown",
				"action", a.String(), "scene", string(scene), "error", err)
			return
		}
	}

	b.state = KnownState(b.opts.Scenes[scene]...)
	b.active = scene
	b.hasScene = true
	b.logInfo("scene applied", "scene", string(scene), "actions", len(actions))

	if b.opts.Status != nil {
		if err := b.opts.Status.PublishSceneChange(string(scene), len(actions)); err != nil {
			b.logWarn("status publish failed", "error", err)
		}
	}
}

// submit sends one action over the mixer session with a bounded timeout.
func (b *Bridge) submit(ctx context.Context, a Action) error {
	if b.mixer == nil {
		return ErrMixerUnavailable
	}
	cmdCtx, cancel := context.WithTimeout(ctx, b.opts.CommandTimeout)
	defer cancel()
	return b.mixer.SetChannelMute(cmdCtx, int(a.Channel), a.Mute)
}

// State returns a copy of the current mixer state belief. Exposed for
// observability; only meaningful between events.
func (b *Bridge) State() MixerState {
	return b.state
}

// ActiveScene returns the most recently applied scene and whether any scene
// has been applied yet.
func (b *Bridge) ActiveScene() (SceneName, bool) {
	return b.active, b.hasScene
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.opts.Logger != nil {
		b.opts.Logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.opts.Logger != nil {
		b.opts.Logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.opts.Logger != nil {
		b.opts.Logger.Warn(msg, args...)
	}
}
