package cexio

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cexws/internal/keyring"
	"cexws/pkg/auth"
)

type Option func(*Client)

// WithTransport replaces the WebSocket connection, mainly for tests.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("exchange", "cexio").Logger()
	}
}

// WithClock replaces the time source used for auth timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithSigners supplies the credentials the client authenticates with. The
// client takes ownership and destroys them on Close. With several signers the
// next one is tried after a rejected authentication.
func WithSigners(signers ...*auth.Signer) Option {
	return func(c *Client) {
		c.keys = keyring.New(keyring.RotationOnError, 3, signers...)
	}
}

// WithOIDGenerator replaces the request correlation id source.
func WithOIDGenerator(fn func() string) Option {
	return func(c *Client) {
		c.newOID = fn
	}
}

func defaultOID() string {
	return uuid.NewString()
}
