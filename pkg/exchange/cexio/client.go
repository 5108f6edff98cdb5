package cexio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"cexws/internal/circuitbreaker"
	"cexws/internal/keyring"
	"cexws/internal/ratelimit"
	"cexws/internal/ws"
	"cexws/pkg/auth"
	"cexws/pkg/core"
	"cexws/pkg/envelope"
)

// Transport carries text frames. *ws.Client satisfies it.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	IsConnected() bool
	WriteMessage(data []byte) error
	SubscribeBlocking(name string, h func(data []byte))
}

var _ Transport = (*ws.Client)(nil)

// Handler receives inbound envelopes registered with On. Handlers run on the
// receive goroutine and must not block.
type Handler func(env *envelope.Envelope)

type result struct {
	env *envelope.Envelope
	err error
}

// Client is a CEX.io WebSocket session. It is safe for concurrent use.
type Client struct {
	cfg        *core.Config
	transport  Transport
	limiter    *ratelimit.Limiter
	breaker    *circuitbreaker.Breaker
	keys       *keyring.KeyRing
	normalizer *Normalizer
	logger     zerolog.Logger
	now        func() time.Time
	newOID     func() string

	mu       sync.Mutex
	pending  map[string]chan result
	handlers map[envelope.Event][]Handler
	authed   bool
	authKey  string
	authDone chan struct{}
	authErr  error

	closed  atomic.Bool
	closeCh chan struct{}
}

// New creates a client for cfg. A nil cfg uses core.DefaultConfig.
func New(cfg *core.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{
		cfg:        cfg,
		limiter:    ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitPeriod),
		normalizer: NewNormalizer(),
		logger:     zerolog.Nop(),
		now:        time.Now,
		newOID:     defaultOID,
		pending:    make(map[string]chan result),
		handlers:   make(map[envelope.Event][]Handler),
		authDone:   make(chan struct{}),
		closeCh:    make(chan struct{}),
	}
	if cfg.CircuitBreakerEnabled {
		c.breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    cfg.CircuitBreakerFailThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
		})
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.keys == nil {
		c.keys = keyring.New(keyring.RotationNone, 0)
	}
	c.keys.SetLogger(c.logger)

	if c.transport == nil {
		t := ws.New(ws.Config{
			URL:               cfg.URL,
			ReadTimeout:       cfg.ReadTimeout,
			ReconnectEnabled:  cfg.ReconnectEnabled,
			ReconnectBaseWait: cfg.ReconnectBaseWait,
			ReconnectMaxWait:  cfg.ReconnectMaxWait,
			BufferSize:        cfg.BufferSize,
		})
		t.SetLogger(c.logger)
		c.transport = t
	}
	return c, nil
}

// Limiter exposes the outbound limiter so callers can add per-event limits.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Connect opens the connection. Authentication starts when the server sends
// its "connected" greeting; use WaitAuthenticated to wait for the outcome.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return core.ErrClientClosed
	}
	c.transport.SubscribeBlocking("cexio", c.handle)
	if err := c.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Close ends the session, fails outstanding requests and destroys the signers.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.closeCh)
	err := c.transport.Close()
	c.keys.Close()

	c.mu.Lock()
	c.authed = false
	c.finishAuthLocked(core.ErrClientClosed)
	c.mu.Unlock()
	return err
}

func (c *Client) IsConnected() bool {
	return c.transport.IsConnected()
}

func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authed
}

// WaitAuthenticated blocks until the current authentication attempt finishes
// and returns its outcome. Sessions without credentials report
// core.ErrNoCredentials.
func (c *Client) WaitAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	done := c.authDone
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closeCh:
		return core.ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authErr
}

// On registers h for inbound envelopes of event. EventUnknown receives frames
// with unrecognized tags.
func (c *Client) On(event envelope.Event, h Handler) {
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], h)
	c.mu.Unlock()
}

// Send writes env without waiting for a response.
func (c *Client) Send(ctx context.Context, env *envelope.Envelope) error {
	if c.closed.Load() {
		return core.ErrClientClosed
	}
	if env.Event().RequiresAuth() && !c.IsAuthenticated() {
		return core.ErrNotAuthenticated
	}
	return c.send(ctx, env)
}

// Request sends env and waits for the response carrying the same oid. A
// fresh oid is attached when env has none. A response with an error status
// is returned together with a *core.ExchangeError.
func (c *Client) Request(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
	if c.closed.Load() {
		return nil, core.ErrClientClosed
	}
	tag, _ := env.Tag()
	if env.Event().RequiresAuth() && !c.IsAuthenticated() {
		return nil, core.ErrNotAuthenticated
	}

	oid, ok := env.OID()
	if !ok {
		oid = c.newOID()
		env = env.WithOID(oid)
	}

	ch := make(chan result, 1)
	c.mu.Lock()
	if _, dup := c.pending[oid]; dup {
		c.mu.Unlock()
		return nil, fmt.Errorf("request %s: oid %q already in flight", tag, oid)
	}
	c.pending[oid] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, oid)
		c.mu.Unlock()
	}()

	if _, ok := ctx.Deadline(); !ok && c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	if err := c.send(ctx, env); err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if res.env.IsFailure() {
			return res.env, core.NewExchangeError(tag, oid, res.env.ErrorMessage())
		}
		return res.env, nil
	case <-ctx.Done():
		timeout := &core.ExchangeError{
			Type:      core.ErrorTypeTimeout,
			Event:     tag,
			OID:       oid,
			Code:      string(core.ErrCodeTimeout),
			Message:   "no response",
			Timestamp: time.Now(),
		}
		return nil, fmt.Errorf("%w: %w", timeout, ctx.Err())
	case <-c.closeCh:
		return nil, core.ErrClientClosed
	}
}

func (c *Client) send(ctx context.Context, env *envelope.Envelope) error {
	tag, _ := env.Tag()
	if err := c.limiter.Wait(ctx, tag); err != nil {
		return err
	}
	return c.write(env)
}

func (c *Client) write(env *envelope.Envelope) error {
	if !c.transport.IsConnected() {
		return core.ErrNotConnected
	}
	data, err := env.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := c.transport.WriteMessage(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Client) handle(data []byte) {
	env, err := envelope.ParseBytes(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping malformed frame")
		return
	}

	event := env.Event()
	oid, hasOID := env.OID()
	c.logger.Debug().Str("event", event.String()).Str("oid", oid).Msg("frame received")

	switch event {
	case envelope.EventConnected:
		c.onConnected()
	case envelope.EventPing:
		if err := c.write(envelope.Pong()); err != nil {
			c.logger.Warn().Err(err).Msg("pong failed")
		}
	case envelope.EventDisconnecting:
		c.onDisconnecting(env)
	case envelope.EventAuth:
		c.onAuthResult(env)
	}

	c.mu.Lock()
	var waiter chan result
	if hasOID {
		waiter = c.pending[oid]
	}
	handlers := c.handlers[event]
	c.mu.Unlock()

	if waiter != nil {
		select {
		case waiter <- result{env: env}:
		default:
		}
	}
	for _, h := range handlers {
		h(env)
	}
}

func (c *Client) onConnected() {
	c.mu.Lock()
	c.authed = false
	select {
	case <-c.authDone:
		c.authDone = make(chan struct{})
		c.authErr = nil
	default:
	}
	c.mu.Unlock()

	if err := c.authenticate(); err != nil {
		if !errors.Is(err, core.ErrNoCredentials) {
			c.logger.Error().Err(err).Msg("authentication not started")
		}
		c.finishAuth(err)
	}
}

// authenticate reads the clock once; the same value is signed and sent.
func (c *Client) authenticate() error {
	if c.breaker != nil && !c.breaker.Allow() {
		return core.ErrCircuitBreakerOpen
	}
	signer := c.keys.Current()
	if signer == nil {
		return core.ErrNoCredentials
	}

	now := uint64(c.now().Unix())
	req := envelope.AuthRequest(signer, now)
	c.keys.MarkUsed()

	c.mu.Lock()
	c.authKey = signer.KeyID()
	c.mu.Unlock()

	if err := c.write(req); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	c.logger.Info().Str("key", auth.MaskKey(signer.KeyID())).Msg("authenticating")
	return nil
}

func (c *Client) onAuthResult(env *envelope.Envelope) {
	c.mu.Lock()
	key := c.authKey
	c.mu.Unlock()

	if env.IsSuccess() {
		if c.breaker != nil {
			c.breaker.Success()
		}
		c.keys.OnSuccess(key)
		c.logger.Info().Str("key", auth.MaskKey(key)).Msg("authenticated")
		c.finishAuth(nil)
		return
	}

	authErr := core.NewExchangeError(envelope.EventAuth.String(), "", env.ErrorMessage())
	authErr.Type = core.ErrorTypeAuthentication
	authErr.WithCode(core.ErrCodeAuth)

	if c.breaker != nil {
		c.breaker.Failure()
	}
	c.keys.OnFailure(key)
	c.logger.Error().Str("key", auth.MaskKey(key)).Str("reason", authErr.Message).Msg("authentication rejected")

	if next := c.keys.Current(); next != nil && next.KeyID() != key {
		if err := c.authenticate(); err == nil {
			return
		}
	}
	c.finishAuth(authErr)
}

func (c *Client) onDisconnecting(env *envelope.Envelope) {
	reason, _ := env.Field("reason").AsString()
	c.logger.Warn().Str("reason", reason).Msg("server is disconnecting")

	disconnectErr := &core.ExchangeError{
		Type:      core.ErrorTypeNetwork,
		Event:     envelope.EventDisconnecting.String(),
		Code:      string(core.ErrCodeDisconnecting),
		Message:   reason,
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.authed = false
	for _, ch := range c.pending {
		select {
		case ch <- result{err: disconnectErr}:
		default:
		}
	}
}

func (c *Client) finishAuth(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishAuthLocked(err)
}

func (c *Client) finishAuthLocked(err error) {
	c.authed = err == nil
	c.authErr = err
	select {
	case <-c.authDone:
	default:
		close(c.authDone)
	}
}
