// Package ws is a text-frame WebSocket client with automatic reconnection.
// Inbound frames are fanned out to named sinks, each drained by its own
// goroutine so slow handlers never block the read loop.
package ws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"github.com/rs/zerolog"
)

var (
	ErrNotConnected = errors.New("websocket not connected")
	ErrClosed       = errors.New("websocket client closed")
)

// Config holds the connection settings.
type Config struct {
	// URL is the endpoint, e.g. wss://ws.cex.io/ws.
	URL string
	// ReadTimeout closes the connection when no frame arrives in time. Zero disables it.
	ReadTimeout time.Duration
	// ReconnectEnabled redials after an unexpected close.
	ReconnectEnabled bool
	// ReconnectBaseWait is the first backoff step.
	ReconnectBaseWait time.Duration
	// ReconnectMaxWait caps the backoff.
	ReconnectMaxWait time.Duration
	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration
	// BufferSize is the queue length of each sink. A Subscribe sink drops
	// frames while its queue is full; a SubscribeBlocking sink stalls the read
	// loop instead.
	BufferSize int
}

// Client manages a single WebSocket connection.
type Client struct {
	config Config
	state  *State
	logger zerolog.Logger

	mu            sync.RWMutex
	conn          *gws.Conn
	sinks         map[string]*sink
	connectedChan chan struct{}
	stopChan      chan struct{}
	onState       func(ConnState)
	attempts      int
	wg            sync.WaitGroup
}

type sink struct {
	name     string
	dataCh   chan []byte
	done     chan struct{}
	blocking bool
}

// New creates a client. Zero fields of config get defaults.
func New(config Config) *Client {
	if config.ReconnectBaseWait <= 0 {
		config.ReconnectBaseWait = time.Second
	}
	if config.ReconnectMaxWait <= 0 {
		config.ReconnectMaxWait = 30 * time.Second
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}

	c := &Client{
		config:        config,
		state:         &State{},
		logger:        zerolog.Nop(),
		sinks:         make(map[string]*sink),
		connectedChan: make(chan struct{}),
		stopChan:      make(chan struct{}),
	}
	c.state.Store(StateDisconnected)
	return c
}

func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger.With().Str("component", "ws").Logger()
}

// OnStateChange registers fn to be called on every connection state change.
// It must be set before Connect.
func (c *Client) OnStateChange(fn func(ConnState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *Client) setState(s ConnState) {
	c.state.Store(s)
	c.mu.RLock()
	fn := c.onState
	c.mu.RUnlock()
	if fn != nil {
		fn(s)
	}
}

func (c *Client) State() ConnState {
	return c.state.Load()
}

func (c *Client) IsConnected() bool {
	return c.state.Load() == StateConnected
}

// Connect dials the server and blocks until the connection is open or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(StateDisconnected, StateConnecting) {
		switch current := c.state.Load(); current {
		case StateConnected:
			return nil
		case StateClosed:
			return ErrClosed
		default:
			return fmt.Errorf("invalid state for connect: %s", current)
		}
	}
	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	socket, _, err := gws.NewClient(&handler{client: c}, &gws.ClientOption{
		Addr:             c.config.URL,
		HandshakeTimeout: c.config.HandshakeTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}

	c.mu.Lock()
	c.conn = socket
	connected := c.connectedChan
	c.mu.Unlock()

	c.wg.Go(func() {
		socket.ReadLoop()
	})

	select {
	case <-connected:
		return nil
	case <-ctx.Done():
		_ = socket.NetConn().Close()
		return ctx.Err()
	case <-c.stopChan:
		_ = socket.NetConn().Close()
		return ErrClosed
	}
}

// Close shuts the connection down and stops all sinks. It is idempotent.
func (c *Client) Close() error {
	for {
		current := c.state.Load()
		if current == StateClosed {
			return nil
		}
		if c.state.CompareAndSwap(current, StateClosed) {
			break
		}
	}
	close(c.stopChan)

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteClose(1000, nil)
		_ = c.conn.NetConn().Close()
	}
	for name, s := range c.sinks {
		close(s.done)
		delete(c.sinks, name)
	}
	fn := c.onState
	c.mu.Unlock()

	c.wg.Wait()
	if fn != nil {
		fn(StateClosed)
	}
	return nil
}

// Subscribe registers h under name. Every inbound text frame is delivered to
// every sink in arrival order and the slice is owned by the handler. A
// repeated name replaces the previous handler.
func (c *Client) Subscribe(name string, h func(data []byte)) {
	c.subscribe(name, h, false)
}

// SubscribeBlocking is Subscribe for sinks that must see every frame, such as
// the protocol handler. A slow handler delays delivery to all sinks.
func (c *Client) SubscribeBlocking(name string, h func(data []byte)) {
	c.subscribe(name, h, true)
}

func (c *Client) subscribe(name string, h func(data []byte), blocking bool) {
	s := &sink{
		name:     name,
		dataCh:   make(chan []byte, c.config.BufferSize),
		done:     make(chan struct{}),
		blocking: blocking,
	}

	c.mu.Lock()
	if old, ok := c.sinks[name]; ok {
		close(old.done)
	}
	c.sinks[name] = s
	c.mu.Unlock()

	c.wg.Go(func() {
		for {
			select {
			case data := <-s.dataCh:
				h(data)
			case <-s.done:
				return
			}
		}
	})
	c.logger.Debug().Str("sink", name).Msg("sink registered")
}

// Unsubscribe removes the sink registered under name.
func (c *Client) Unsubscribe(name string) {
	c.mu.Lock()
	if s, ok := c.sinks[name]; ok {
		close(s.done)
		delete(c.sinks, name)
	}
	c.mu.Unlock()
}

// Subscriptions lists the registered sink names.
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.sinks))
	for name := range c.sinks {
		out = append(out, name)
	}
	return out
}

// WriteMessage sends data as a single text frame.
func (c *Client) WriteMessage(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil || c.state.Load() != StateConnected {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(gws.OpcodeText, data)
}

// SendJSON marshals v and sends it as a text frame.
func (c *Client) SendJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return c.WriteMessage(data)
}

func (c *Client) dispatch(data []byte) {
	c.mu.RLock()
	sinks := make([]*sink, 0, len(c.sinks))
	for _, s := range c.sinks {
		sinks = append(sinks, s)
	}
	c.mu.RUnlock()

	for _, s := range sinks {
		if s.blocking {
			select {
			case s.dataCh <- data:
			case <-s.done:
			}
			continue
		}
		select {
		case s.dataCh <- data:
		case <-s.done:
		default:
			c.logger.Warn().Str("sink", s.name).Int("size", len(data)).Msg("sink buffer full, dropping frame")
		}
	}
}

func (c *Client) touch(socket *gws.Conn) {
	if c.config.ReadTimeout > 0 {
		_ = socket.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}

func (c *Client) reconnect() {
	if !c.state.CompareAndSwap(StateDisconnected, StateReconnecting) {
		return
	}
	c.setState(StateReconnecting)

	for {
		c.mu.Lock()
		attempt := c.attempts
		c.attempts++
		c.mu.Unlock()

		wait := c.backoff(attempt)
		c.logger.Info().Dur("wait", wait).Int("attempt", attempt+1).Msg("attempting reconnect")

		select {
		case <-time.After(wait):
		case <-c.stopChan:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.config.HandshakeTimeout)
		err := c.dial(ctx)
		cancel()
		if err == nil {
			c.logger.Info().Int("attempt", attempt+1).Msg("reconnected")
			return
		}
		if errors.Is(err, ErrClosed) {
			return
		}
		c.logger.Error().Err(err).Int("attempt", attempt+1).Msg("reconnect failed")
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt > 30 {
		return c.config.ReconnectMaxWait
	}
	return min(c.config.ReconnectBaseWait*time.Duration(1<<uint(attempt)), c.config.ReconnectMaxWait)
}

type handler struct {
	client *Client
}

func (h *handler) OnOpen(socket *gws.Conn) {
	c := h.client
	if c.state.Load() == StateClosed {
		_ = socket.NetConn().Close()
		return
	}

	c.mu.Lock()
	c.attempts = 0
	select {
	case <-c.connectedChan:
	default:
		close(c.connectedChan)
	}
	c.mu.Unlock()

	c.touch(socket)
	c.setState(StateConnected)
	c.logger.Info().Str("url", c.config.URL).Msg("websocket connected")
}

func (h *handler) OnClose(socket *gws.Conn, err error) {
	c := h.client

	c.mu.Lock()
	if c.conn == socket {
		c.conn = nil
	}
	c.connectedChan = make(chan struct{})
	c.mu.Unlock()

	select {
	case <-c.stopChan:
		return
	default:
	}

	c.setState(StateDisconnected)
	c.logger.Warn().Err(err).Str("url", c.config.URL).Msg("websocket disconnected")

	if c.config.ReconnectEnabled {
		go c.reconnect()
	}
}

func (h *handler) OnPing(socket *gws.Conn, payload []byte) {
	h.client.touch(socket)
	_ = socket.WritePong(payload)
}

func (h *handler) OnPong(socket *gws.Conn, payload []byte) {
	h.client.touch(socket)
}

func (h *handler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	h.client.touch(socket)

	if message.Opcode != gws.OpcodeText {
		h.client.logger.Debug().Int("opcode", int(message.Opcode)).Msg("ignoring non-text frame")
		return
	}
	data := bytes.Clone(message.Bytes())
	if len(data) == 0 {
		return
	}
	h.client.dispatch(data)
}
