package mixer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Timing constants for console communication.
const (
	// defaultConnectTimeout bounds the /xinfo handshake on connect.
	defaultConnectTimeout = 10 * time.Second

	// defaultWriteTimeout bounds a single datagram send.
	defaultWriteTimeout = 2 * time.Second

	// defaultProbeInterval is how often /xremote and /xinfo are sent.
	// XAir consoles forget a remote after ~10s of silence, so the
	// keepalive must comfortably undercut that.
	defaultProbeInterval = 5 * time.Second

	// missedProbeLimit is how many unanswered probe intervals declare the
	// session lost.
	missedProbeLimit = 3

	// readBufferSize fits any OSC reply the console sends.
	readBufferSize = 512
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds console connection configuration.
type Config struct {
	// Kind selects the console model (channel layout, default port).
	Kind Kind

	// Host is the console's address.
	Host string

	// Port is the console's OSC port. Zero selects the kind's default
	// (10024 for the XAir family, 10023 for the X32).
	Port int

	// ConnectTimeout bounds the handshake. Default: 10s.
	ConnectTimeout time.Duration

	// ProbeInterval is the keepalive/liveness probe cadence. Default: 5s.
	ProbeInterval time.Duration

	// Logger is optional.
	Logger Logger
}

// Info describes the console as reported by its /xinfo reply.
type Info struct {
	IP       string
	Name     string
	Model    string
	Firmware string
}

// Client is one control session to a console.
//
// A Client represents a single logical connection: once the console stops
// answering probes or a send fails, the loss is reported on Done and the
// Client is finished. Callers wanting a persistent session wrap Connect in a
// supervisor that redials.
type Client struct {
	cfg      Config
	channels int
	conn     net.Conn
	info     Info

	// lastHeard is the Unix-nano timestamp of the last datagram received.
	lastHeard atomic.Int64

	// failure delivers the session-loss cause exactly once.
	failure  chan error
	failOnce sync.Once

	done *closeOnce
	wg   sync.WaitGroup
}

// Connect dials the console and verifies it is reachable with an /xinfo
// handshake. On success the client starts its keepalive and receive loops;
// the session then stays usable until Done reports a loss or Close is
// called.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	channels, err := ChannelCount(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if cfg.Port == 0 {
		cfg.Port, _ = DefaultPort(cfg.Kind)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaultProbeInterval
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "udp", net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		cfg:      cfg,
		channels: channels,
		conn:     conn,
		failure:  make(chan error, 1),
		done:     newCloseOnce(),
	}

	info, err := c.handshake(dialCtx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.info = info
	c.lastHeard.Store(time.Now().UnixNano())

	c.wg.Add(2)
	go c.receiveLoop()
	go c.keepaliveLoop()

	return c, nil
}

// handshake sends /xinfo and waits for the console's reply.
// UDP silently swallows packets to a dead address, so this is the only way
// to know the console is actually there.
func (c *Client) handshake(ctx context.Context) (Info, error) {
	deadline := time.Now().Add(c.cfg.ConnectTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return Info{}, fmt.Errorf("%w: set deadline: %w", ErrConnectionFailed, err)
	}
	if _, err := c.conn.Write(encodeOSC("/xinfo")); err != nil {
		return Info{}, fmt.Errorf("%w: probe: %w", ErrConnectionFailed, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return Info{}, fmt.Errorf("%w: set deadline: %w", ErrConnectionFailed, err)
	}

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			return Info{}, fmt.Errorf("%w: no /xinfo reply: %w", ErrConnectionFailed, err)
		}
		addr, args, err := decodeOSC(buf[:n])
		if err != nil {
			// Stray or garbled datagram; keep waiting for the reply.
			continue
		}
		if addr != "/xinfo" {
			continue
		}
		return parseInfo(args), nil
	}
}

// parseInfo extracts console details from an /xinfo reply.
// The reply carries [ip, name, model, firmware] as strings; missing or
// mistyped fields are left empty rather than failing the handshake.
func parseInfo(args []any) Info {
	var info Info
	fields := []*string{&info.IP, &info.Name, &info.Model, &info.Firmware}
	for i, field := range fields {
		if i < len(args) {
			if s, ok := args[i].(string); ok {
				*field = s
			}
		}
	}
	return info
}

// Info returns the console details captured during the handshake.
func (c *Client) Info() Info {
	return c.info
}

// ChannelCount returns the number of addressable strips on this console.
func (c *Client) ChannelCount() int {
	return c.channels
}

// SetChannelMute sets the mute state of one channel strip.
//
// The command is fire-and-forget at the protocol level (the console does
// not acknowledge set operations); an error means the datagram could not be
// handed to the network, and also marks the session lost so the caller's
// supervisor redials.
func (c *Client) SetChannelMute(ctx context.Context, channel int, mute bool) error {
	if c.isClosed() {
		return ErrNotConnected
	}
	if channel < 1 || channel > c.channels {
		return fmt.Errorf("%w: %d (range 1..%d)", ErrInvalidChannel, channel, c.channels)
	}

	// Console semantics are "on": 0 mutes, 1 opens the channel.
	on := int32(1)
	if mute {
		on = 0
	}

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set deadline: %w", ErrCommandFailed, err)
	}

	if _, err := c.conn.Write(encodeOSC(muteAddress(channel), on)); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrCommandFailed, muteAddress(channel), err)
		c.fail(err)
		return err
	}

	c.logDebug("mute command sent", "channel", channel, "mute", mute)
	return nil
}

// Done yields the session-loss cause. It receives at most one error; a
// Close-initiated shutdown does not count as a loss.
func (c *Client) Done() <-chan error {
	return c.failure
}

// Close releases the session. Safe to call multiple times.
func (c *Client) Close() error {
	c.done.Close()
	c.conn.Close()
	c.wg.Wait()
	return nil
}

// fail records the session-loss cause once and wakes Done.
func (c *Client) fail(err error) {
	c.failOnce.Do(func() { c.failure <- err })
}

// isClosed reports whether Close has been called.
func (c *Client) isClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// receiveLoop consumes datagrams from the console. Every datagram, whatever
// its content, counts as proof of life; /xinfo replies are additionally
// decoded for debug logging.
func (c *Client) receiveLoop() {
	defer c.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		if c.isClosed() {
			return
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ProbeInterval)); err != nil {
			return
		}
		n, err := c.conn.Read(buf)
		if err != nil {
			if c.isClosed() {
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue // Staleness is judged by the keepalive loop.
			}
			c.fail(fmt.Errorf("%w: read: %w", ErrNotConnected, err))
			return
		}

		c.lastHeard.Store(time.Now().UnixNano())

		if addr, args, decErr := decodeOSC(buf[:n]); decErr == nil && addr == "/xinfo" {
			c.logDebug("console probe answered", "args", fmt.Sprint(args...))
		}
	}
}

// keepaliveLoop periodically renews the console's remote subscription and
// probes for liveness. When the console has been silent for more than
// missedProbeLimit probe intervals, the session is declared lost.
func (c *Client) keepaliveLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done.Done():
			return
		case <-ticker.C:
		}

		silence := time.Since(time.Unix(0, c.lastHeard.Load()))
		if silence > time.Duration(missedProbeLimit)*c.cfg.ProbeInterval {
			c.fail(fmt.Errorf("%w: silent for %s", ErrProbeTimeout, silence.Round(time.Second)))
			return
		}

		if err := c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
			return
		}
		for _, probe := range []string{"/xremote", "/xinfo"} {
			if _, err := c.conn.Write(encodeOSC(probe)); err != nil {
				if c.isClosed() {
					return
				}
				c.fail(fmt.Errorf("%w: keepalive: %w", ErrNotConnected, err))
				return
			}
		}
	}
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Debug(msg, args...)
	}
}
