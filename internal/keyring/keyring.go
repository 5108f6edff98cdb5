// Package keyring holds the API credentials a client may authenticate with
// and picks which one to use next.
package keyring

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cexws/pkg/auth"
)

type RotationStrategy int

const (
	// RotationNone keeps using the current key until it is disabled.
	RotationNone RotationStrategy = iota
	// RotationRoundRobin moves to the next key after every authentication.
	RotationRoundRobin
	// RotationOnError moves to the next key after a rejected authentication.
	RotationOnError
)

type entry struct {
	signer   *auth.Signer
	disabled bool
	lastUsed time.Time
	failures int
}

// KeyRing is safe for concurrent use. Signers added to it are owned by the
// ring and destroyed on Remove and Close.
type KeyRing struct {
	mu          sync.RWMutex
	keys        []*entry
	current     int
	strategy    RotationStrategy
	maxFailures int
	logger      zerolog.Logger
}

// New builds a ring over signers. A key is disabled after maxFailures
// rejected authentications; zero means never.
func New(strategy RotationStrategy, maxFailures int, signers ...*auth.Signer) *KeyRing {
	k := &KeyRing{
		strategy:    strategy,
		maxFailures: maxFailures,
		logger:      zerolog.Nop(),
	}
	for _, s := range signers {
		k.keys = append(k.keys, &entry{signer: s})
	}
	return k
}

func (k *KeyRing) SetLogger(logger zerolog.Logger) {
	k.mu.Lock()
	k.logger = logger.With().Str("component", "keyring").Logger()
	k.mu.Unlock()
}

func (k *KeyRing) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

// Current returns the signer to authenticate with, or nil when every key is
// disabled.
func (k *KeyRing) Current() *auth.Signer {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if e := k.currentLocked(); e != nil {
		return e.signer
	}
	return nil
}

func (k *KeyRing) currentLocked() *entry {
	for i := range k.keys {
		e := k.keys[(k.current+i)%len(k.keys)]
		if !e.disabled {
			return e
		}
	}
	return nil
}

// Rotate moves to the next enabled key.
func (k *KeyRing) Rotate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.rotateLocked()
}

func (k *KeyRing) rotateLocked() {
	n := len(k.keys)
	for i := 1; i <= n; i++ {
		idx := (k.current + i) % n
		if !k.keys[idx].disabled {
			k.current = idx
			return
		}
	}
}

// MarkUsed records an authentication attempt with the current key.
func (k *KeyRing) MarkUsed() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if e := k.currentLocked(); e != nil {
		e.lastUsed = time.Now()
	}
	if k.strategy == RotationRoundRobin {
		k.rotateLocked()
	}
}

// OnSuccess clears the failure count of the key that authenticated.
func (k *KeyRing) OnSuccess(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if e := k.findLocked(keyID); e != nil {
		e.failures = 0
	}
}

// OnFailure records a rejected authentication for keyID.
func (k *KeyRing) OnFailure(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e := k.findLocked(keyID)
	if e == nil {
		return
	}
	e.failures++
	if k.maxFailures > 0 && e.failures >= k.maxFailures && !e.disabled {
		e.disabled = true
		k.logger.Warn().
			Str("key", auth.MaskKey(keyID)).
			Int("failures", e.failures).
			Msg("key disabled after repeated authentication failures")
	}
	if k.strategy == RotationOnError || e.disabled {
		k.rotateLocked()
	}
}

// Disable stops keyID from being returned by Current.
func (k *KeyRing) Disable(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if e := k.findLocked(keyID); e != nil {
		e.disabled = true
	}
}

// Enable re-enables keyID and clears its failure count.
func (k *KeyRing) Enable(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if e := k.findLocked(keyID); e != nil {
		e.disabled = false
		e.failures = 0
	}
}

// Add appends signer unless a key with the same id is already present.
func (k *KeyRing) Add(signer *auth.Signer) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.findLocked(signer.KeyID()) != nil {
		return false
	}
	k.keys = append(k.keys, &entry{signer: signer})
	return true
}

// Remove drops keyID from the ring and destroys its signer.
func (k *KeyRing) Remove(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i, e := range k.keys {
		if e.signer.KeyID() != keyID {
			continue
		}
		e.signer.Destroy()
		k.keys = append(k.keys[:i], k.keys[i+1:]...)
		if i < k.current {
			k.current--
		}
		if k.current >= len(k.keys) {
			k.current = 0
		}
		return
	}
}

// Close destroys every signer in the ring.
func (k *KeyRing) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, e := range k.keys {
		e.signer.Destroy()
	}
	k.keys = nil
	k.current = 0
}

// Status describes a key without exposing its secret.
type Status struct {
	Key      string
	Disabled bool
	Failures int
	LastUsed time.Time
}

func (k *KeyRing) Statuses() []Status {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]Status, len(k.keys))
	for i, e := range k.keys {
		out[i] = Status{
			Key:      auth.MaskKey(e.signer.KeyID()),
			Disabled: e.disabled,
			Failures: e.failures,
			LastUsed: e.lastUsed,
		}
	}
	return out
}

func (k *KeyRing) findLocked(keyID string) *entry {
	for _, e := range k.keys {
		if e.signer.KeyID() == keyID {
			return e
		}
	}
	return nil
}
