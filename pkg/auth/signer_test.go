package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test credentials published in the exchange's WebSocket API documentation.
const (
	testKey    = "1WZbtMTbMbo2NsW12vOz9IuPM"
	testSecret = "1IuUeW4IEWatK87zBTENHj1T17s"
)

func TestSigner_KnownVectors(t *testing.T) {
	tests := []struct {
		timestamp uint64
		want      Signature
	}{
		{1448034533, "7d581adb01ad22f1ed38e1159a7f08ac5d83906ae1a42fe17e7d977786fe9694"},
		{1448035135, "9a84b70f51ea2b149e71ef2436752a1a7c514f521e886700bcadd88f1767b7db"},
	}

	signer := NewSigner(testKey, []byte(testSecret))

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.timestamp), func(t *testing.T) {
			assert.Equal(t, tt.want, signer.Sign(tt.timestamp))
		})
	}
}

func TestSigner_RejectsReorderedMessage(t *testing.T) {
	signer := NewSigner(testKey, []byte(testSecret))

	reordered := signHMAC([]byte(testKey+"1448034533"), []byte(testSecret))
	assert.NotEqual(t, string(signer.Sign(1448034533)), reordered)

	upper := strings.ToUpper(string(signer.Sign(1448034533)))
	assert.NotEqual(t, string(signer.Sign(1448034533)), upper)
}

func TestSigner_Format(t *testing.T) {
	sig := NewSigner(testKey, []byte(testSecret)).Sign(0)

	assert.Len(t, sig, 64)
	assert.Equal(t, strings.ToLower(string(sig)), string(sig))
}

func TestSigner_Deterministic(t *testing.T) {
	signer := NewSigner(testKey, []byte(testSecret))

	assert.Equal(t, signer.Sign(1700000000), signer.Sign(1700000000))
	assert.NotEqual(t, signer.Sign(1700000000), signer.Sign(1700000001))
}

func TestSigner_KeyID(t *testing.T) {
	signer := NewSigner(testKey, []byte(testSecret))
	assert.Equal(t, testKey, signer.KeyID())
}

func TestSigner_AcceptsOpaqueCredentials(t *testing.T) {
	signer := NewSigner("", nil)

	assert.Len(t, signer.Sign(1), 64)
}

func TestSigner_CopiesSecret(t *testing.T) {
	secret := []byte(testSecret)
	signer := NewSigner(testKey, secret)

	clear(secret)

	assert.Equal(t, Signature("7d581adb01ad22f1ed38e1159a7f08ac5d83906ae1a42fe17e7d977786fe9694"), signer.Sign(1448034533))
}

func TestSigner_Verify(t *testing.T) {
	signer := NewSigner(testKey, []byte(testSecret))

	assert.True(t, signer.Verify(1448034533, "7d581adb01ad22f1ed38e1159a7f08ac5d83906ae1a42fe17e7d977786fe9694"))
	assert.False(t, signer.Verify(1448034534, "7d581adb01ad22f1ed38e1159a7f08ac5d83906ae1a42fe17e7d977786fe9694"))
	assert.False(t, signer.Verify(1448034533, "not-hex"))
}

func TestSigner_Destroy(t *testing.T) {
	signer := NewSigner(testKey, []byte(testSecret))
	secret := signer.secret

	signer.Destroy()
	signer.Destroy()

	assert.Equal(t, 0, secret.Len())
	assert.PanicsWithValue(t, ErrDestroyed, func() {
		signer.Sign(1448034533)
	})
}

func TestSigner_ConcurrentSign(t *testing.T) {
	signer := NewSigner(testKey, []byte(testSecret))
	want := signer.Sign(1448035135)

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			for range 100 {
				assert.Equal(t, want, signer.Sign(1448035135))
			}
		})
	}
	wg.Wait()
}

func TestSigner_NeverExposesSecret(t *testing.T) {
	signer := NewSigner(testKey, []byte(testSecret))

	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%x", "%q"} {
		out := fmt.Sprintf(verb, signer)
		assert.NotContains(t, out, testSecret, verb)
		assert.NotContains(t, out, testKey, verb)
	}
	assert.Equal(t, "Signer{Key:1WZb****IuPM}", signer.String())
}

func TestSecret_Redaction(t *testing.T) {
	secret := NewSecret([]byte(testSecret))

	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%x", "%q", "%d"} {
		assert.Equal(t, redacted, fmt.Sprintf(verb, secret), verb)
	}
	assert.Equal(t, "auth.Secret{[REDACTED]}", secret.GoString())

	data, err := json.Marshal(struct {
		Secret *Secret `json:"secret"`
	}{secret})
	require.NoError(t, err)
	assert.JSONEq(t, `{"secret":"[REDACTED]"}`, string(data))

	text, err := secret.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, redacted, string(text))

	y, err := secret.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, redacted, y)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", MaskKey("short"))
	assert.Equal(t, "1WZb****IuPM", MaskKey(testKey))
}
