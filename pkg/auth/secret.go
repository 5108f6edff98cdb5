package auth

import (
	"fmt"
	"io"
)

const redacted = "[REDACTED]"

// noCopy lets go vet's copylocks check flag accidental copies of key material.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Secret holds private key material. It never prints, logs or serializes its
// contents; every textual rendering yields "[REDACTED]".
type Secret struct {
	_ noCopy

	b []byte
}

// NewSecret copies b into a new Secret. The caller keeps ownership of b and may
// zero it afterwards.
func NewSecret(b []byte) *Secret {
	s := &Secret{b: make([]byte, len(b))}
	copy(s.b, b)
	return s
}

// Len returns the length of the key material in bytes.
func (s *Secret) Len() int {
	return len(s.b)
}

// Destroy overwrites the key material with zeros.
func (s *Secret) Destroy() {
	clear(s.b)
	s.b = nil
}

func (s *Secret) String() string {
	return redacted
}

func (s *Secret) GoString() string {
	return "auth.Secret{" + redacted + "}"
}

// Format keeps the secret out of every fmt verb, including %x and %q.
func (s *Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

func (s *Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

func (s *Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func (s *Secret) MarshalYAML() (any, error) {
	return redacted, nil
}
