// Package auth derives the request signatures used to authenticate a
// WebSocket session without sending the API secret over the wire.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
)

// ErrDestroyed is the panic value raised when a destroyed Signer is asked to sign.
var ErrDestroyed = errors.New("auth: signer used after Destroy")

// Signature is the lower-case hex encoding of an HMAC-SHA256 digest (64 characters).
type Signature string

// String returns the signature as a plain string.
func (s Signature) String() string {
	return string(s)
}

// Signer owns an API key identifier and its secret and produces exchange
// compatible signatures. It is immutable after construction and safe to share
// between goroutines without locking.
type Signer struct {
	_ noCopy

	keyID     string
	secret    *Secret
	destroyed atomic.Bool
}

// NewSigner creates a Signer for the given key identifier and secret. Neither
// value is validated since the exchange treats both as opaque. The secret is
// copied, so the caller may zero its slice once NewSigner returns.
func NewSigner(keyID string, secret []byte) *Signer {
	return &Signer{
		keyID:  keyID,
		secret: NewSecret(secret),
	}
}

// KeyID returns the API key identifier embedded in auth requests.
func (s *Signer) KeyID() string {
	return s.keyID
}

// Sign computes HMAC-SHA256(secret, decimal(unixTime) || keyID) and returns it
// hex encoded. The concatenation order and lower-case encoding are part of the
// wire contract.
func (s *Signer) Sign(unixTime uint64) Signature {
	if s.destroyed.Load() {
		panic(ErrDestroyed)
	}
	return Signature(signHMAC(s.message(unixTime), s.secret.b))
}

// Verify reports whether sig is the signature for unixTime, comparing in
// constant time.
func (s *Signer) Verify(unixTime uint64, sig Signature) bool {
	want, err := hex.DecodeString(string(s.Sign(unixTime)))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(string(sig))
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}

// Destroy zeroes the secret. It must not run concurrently with Sign; any Sign
// afterwards panics with ErrDestroyed.
func (s *Signer) Destroy() {
	if s.destroyed.Swap(true) {
		return
	}
	s.secret.Destroy()
}

func (s *Signer) message(unixTime uint64) []byte {
	msg := make([]byte, 0, 20+len(s.keyID))
	msg = strconv.AppendUint(msg, unixTime, 10)
	return append(msg, s.keyID...)
}

func (s *Signer) String() string {
	return fmt.Sprintf("Signer{Key:%s}", MaskKey(s.keyID))
}

// Format renders the signer through String for every verb so the secret
// pointer is never followed by %+v.
func (s *Signer) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, s.String())
}

// MaskKey shortens a key identifier for logs, keeping four characters at each end.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

func signHMAC(message, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(message)
	return hex.EncodeToString(h.Sum(nil))
}
