package obs

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// defaultConnectTimeout bounds the dial plus the Identify handshake.
	defaultConnectTimeout = 10 * time.Second

	// defaultRequestTimeout bounds a request round-trip when the caller's
	// context carries no deadline of its own.
	defaultRequestTimeout = 5 * time.Second

	// writeTimeout bounds a single frame write.
	writeTimeout = 5 * time.Second

	// pingInterval is the client-side keepalive cadence. The server answers
	// pings at the websocket layer, so a pong drought means the link is
	// gone even when no events are flowing.
	pingInterval = 30 * time.Second

	// pongWait is how long the read side tolerates total silence.
	pongWait = 75 * time.Second
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

// Config holds connection configuration and event callbacks.
//
// Callbacks are registered up front so they are in place before the read
// loop starts; no event observed after Connect returns can be missed. Both
// fire from the read loop goroutine, one at a time, in server order.
type Config struct {
	// Host is the obs-websocket server address.
	Host string

	// Port is the obs-websocket server port. Default: 4455.
	Port int

	// Password authenticates the session when the server requires it.
	// Leave empty for servers with authentication disabled.
	Password string

	// ConnectTimeout bounds the dial and handshake. Default: 10s.
	ConnectTimeout time.Duration

	// OnSceneChanged fires for each CurrentProgramSceneChanged event with
	// the new scene's name.
	OnSceneChanged func(scene string)

	// OnClosing fires when the server announces it is exiting.
	OnClosing func()

	// Logger is optional.
	Logger Logger
}

// Client is one identified obs-websocket session.
//
// The session stays usable until Done reports a loss or Close is called;
// callers wanting a persistent session wrap Connect in a supervisor that
// redials.
type Client struct {
	cfg  Config
	conn *websocket.Conn

	// writeMu serializes frame writes across the ping loop and requests.
	writeMu sync.Mutex

	// pending holds in-flight requests keyed by request id.
	pendingMu sync.Mutex
	pending   map[string]chan requestResponseData
	reqSeq    uint64

	// failure delivers the session-loss cause exactly once.
	failure  chan error
	failOnce sync.Once

	done *closeOnce
	wg   sync.WaitGroup
}

// Connect dials the server and completes the Identify handshake,
// authenticating when the server demands it. On success the client starts
// its read and keepalive loops and event callbacks begin to fire.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Port == 0 {
		cfg.Port = 4455
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))}
	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, u.Host, err)
	}

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		pending: make(map[string]chan requestResponseData),
		failure: make(chan error, 1),
		done:    newCloseOnce(),
	}

	if err := c.handshake(dialCtx); err != nil {
		conn.Close()
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// handshake performs the Hello/Identify/Identified exchange.
func (c *Client) handshake(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.ConnectTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set deadline: %w", ErrConnectionFailed, err)
	}

	var hello helloData
	if err := c.readData(opHello, &hello); err != nil {
		return err
	}

	identify := identifyData{
		RPCVersion:         rpcVersion,
		EventSubscriptions: subGeneral | subScenes,
	}
	if hello.Authentication != nil {
		if c.cfg.Password == "" {
			return fmt.Errorf("%w: server requires a password", ErrAuthFailed)
		}
		identify.Authentication = authToken(c.cfg.Password, hello.Authentication.Salt, hello.Authentication.Challenge)
	}

	payload, err := encodeEnvelope(opIdentify, identify)
	if err != nil {
		return err
	}
	if err := c.write(payload); err != nil {
		return fmt.Errorf("%w: identify: %w", ErrConnectionFailed, err)
	}

	var identified identifiedData
	if err := c.readData(opIdentified, &identified); err != nil {
		if websocket.IsCloseError(err, closeAuthFailed) {
			return fmt.Errorf("%w: server rejected credentials", ErrAuthFailed)
		}
		if websocket.IsCloseError(err, closeUnsupportedRPC) {
			return fmt.Errorf("%w: rpc version %d not supported", ErrProtocol, rpcVersion)
		}
		return err
	}
	if identified.NegotiatedRPCVersion != rpcVersion {
		return fmt.Errorf("%w: negotiated rpc version %d", ErrProtocol, identified.NegotiatedRPCVersion)
	}

	c.logDebug("session identified", "server", hello.ObsWebSocketVersion)
	return nil
}

// readData reads one message and unmarshals its payload, insisting on the
// expected opcode. Handshake use only; the read loop owns the socket after
// Connect returns.
func (c *Client) readData(wantOp int, out any) error {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, closeAuthFailed, closeUnsupportedRPC) {
			return err
		}
		return fmt.Errorf("%w: read: %w", ErrConnectionFailed, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: bad frame: %w", ErrProtocol, err)
	}
	if env.Op != wantOp {
		return fmt.Errorf("%w: op %d, want %d", ErrProtocol, env.Op, wantOp)
	}
	if err := json.Unmarshal(env.D, out); err != nil {
		return fmt.Errorf("%w: op %d payload: %w", ErrProtocol, env.Op, err)
	}
	return nil
}

// Version fetches server version details, normally shown once at startup.
func (c *Client) Version(ctx context.Context) (Version, error) {
	var v Version
	err := c.request(ctx, "GetVersion", &v)
	return v, err
}

// request performs one request/response round-trip.
func (c *Client) request(ctx context.Context, requestType string, out any) error {
	if c.isClosed() {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	c.pendingMu.Lock()
	c.reqSeq++
	id := strconv.FormatUint(c.reqSeq, 10)
	ch := make(chan requestResponseData, 1)
	c.pending[id] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	payload, err := encodeEnvelope(opRequest, requestData{RequestType: requestType, RequestID: id})
	if err != nil {
		return err
	}
	if err := c.write(payload); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrRequestFailed, requestType, err)
		c.fail(err)
		return err
	}

	select {
	case resp := <-ch:
		if !resp.RequestStatus.Result {
			return fmt.Errorf("%w: %s: code %d %s", ErrRequestFailed, requestType, resp.RequestStatus.Code, resp.RequestStatus.Comment)
		}
		if out != nil && len(resp.ResponseData) > 0 {
			if err := json.Unmarshal(resp.ResponseData, out); err != nil {
				return fmt.Errorf("%w: %s response: %w", ErrProtocol, requestType, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", ErrRequestFailed, requestType, ctx.Err())
	case <-c.done.Done():
		return ErrNotConnected
	}
}

// Done yields the session-loss cause. It receives at most one error; a
// Close-initiated shutdown does not count as a loss.
func (c *Client) Done() <-chan error {
	return c.failure
}

// Close releases the session. Safe to call multiple times.
func (c *Client) Close() error {
	c.done.Close()

	// Best effort; the server may already be gone.
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.conn.Close()
	c.wg.Wait()
	return nil
}

// write sends one text frame under the write lock.
func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
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

// readLoop consumes frames until the connection drops, dispatching events
// to the configured callbacks and responses to their waiting requests.
func (c *Client) readLoop() {
	defer c.wg.Done()

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			c.fail(fmt.Errorf("%w: read: %w", ErrConnectionFailed, err))
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logWarn("discarding unparseable frame", "error", err)
			continue
		}

		switch env.Op {
		case opEvent:
			c.handleEvent(env.D)
		case opRequestResponse:
			c.handleResponse(env.D)
		}
	}
}

func (c *Client) handleEvent(data json.RawMessage) {
	var ev eventData
	if err := json.Unmarshal(data, &ev); err != nil {
		c.logWarn("discarding unparseable event", "error", err)
		return
	}

	switch ev.EventType {
	case eventSceneChanged:
		var sc sceneChangedEvent
		if err := json.Unmarshal(ev.EventData, &sc); err != nil {
			c.logWarn("discarding unparseable scene change", "error", err)
			return
		}
		c.logDebug("program scene changed", "scene", sc.SceneName)
		if c.cfg.OnSceneChanged != nil {
			c.cfg.OnSceneChanged(sc.SceneName)
		}
	case eventExitStarted:
		c.logInfo("server announced exit")
		if c.cfg.OnClosing != nil {
			c.cfg.OnClosing()
		}
	}
}

func (c *Client) handleResponse(data json.RawMessage) {
	var resp requestResponseData
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logWarn("discarding unparseable response", "error", err)
		return
	}

	c.pendingMu.Lock()
	ch := c.pending[resp.RequestID]
	delete(c.pending, resp.RequestID)
	c.pendingMu.Unlock()

	if ch != nil {
		ch <- resp
	}
}

// pingLoop keeps the connection warm. The read deadline only moves when
// frames arrive, so without traffic the pong replies are what keep the
// session alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done.Done():
			return
		case <-ticker.C:
		}

		c.writeMu.Lock()
		err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		c.writeMu.Unlock()
		if err != nil {
			if c.isClosed() {
				return
			}
			c.fail(fmt.Errorf("%w: ping: %w", ErrConnectionFailed, err))
			return
		}
	}
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Debug(msg, args...)
	}
}

func (c *Client) logInfo(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Info(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Warn(msg, args...)
	}
}
