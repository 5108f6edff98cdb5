package envelope

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cexws/pkg/auth"
	"cexws/pkg/core"
)

const (
	testKey    = "1WZbtMTbMbo2NsW12vOz9IuPM"
	testSecret = "1IuUeW4IEWatK87zBTENHj1T17s"
)

func testSigner() *auth.Signer {
	return auth.NewSigner(testKey, []byte(testSecret))
}

func decimal(t *testing.T, s string) apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return *d
}

func testOrder(t *testing.T) PlaceOrderRequest {
	return PlaceOrderRequest{
		Pair:   core.NewPair("BTC", "USD"),
		Side:   core.SideBuy,
		Amount: decimal(t, "0.02"),
		Price:  decimal(t, "241.9477"),
	}
}

func serialize(t *testing.T, env *Envelope) string {
	t.Helper()
	text, err := Serialize(env)
	require.NoError(t, err)
	return text
}

func TestAuthRequest(t *testing.T) {
	tests := []struct {
		ts        uint64
		signature string
	}{
		{1448034533, "7d581adb01ad22f1ed38e1159a7f08ac5d83906ae1a42fe17e7d977786fe9694"},
		{1448035135, "9a84b70f51ea2b149e71ef2436752a1a7c514f521e886700bcadd88f1767b7db"},
	}

	signer := testSigner()
	for _, tt := range tests {
		t.Run(tt.signature[:8], func(t *testing.T) {
			env := AuthRequest(signer, tt.ts)

			assert.Equal(t, EventAuth, env.Event())
			body := env.Field("auth")
			assert.Equal(t, []string{"key", "signature", "timestamp"}, body.Keys())

			key, _ := body.Get("key")
			sig, _ := body.Get("signature")
			ts, _ := body.Get("timestamp")

			keyStr, ok := key.AsString()
			require.True(t, ok)
			assert.Equal(t, testKey, keyStr)

			sigStr, ok := sig.AsString()
			require.True(t, ok)
			assert.Equal(t, tt.signature, sigStr)

			signed, ok := ts.AsUint()
			require.True(t, ok, "timestamp must be an integer")
			assert.Equal(t, tt.ts, signed)
			assert.True(t, signer.Verify(signed, auth.Signature(sigStr)))
		})
	}
}

func TestAuthRequest_NoSecret(t *testing.T) {
	text := serialize(t, AuthRequest(testSigner(), 1448034533))

	assert.NotContains(t, text, testSecret)
	assert.JSONEq(t, `{
		"e": "auth",
		"auth": {
			"key": "1WZbtMTbMbo2NsW12vOz9IuPM",
			"signature": "7d581adb01ad22f1ed38e1159a7f08ac5d83906ae1a42fe17e7d977786fe9694",
			"timestamp": 1448034533
		}
	}`, text)
}

func TestFactories_Shapes(t *testing.T) {
	pair := core.NewPair("BTC", "USD")

	tests := []struct {
		name string
		env  *Envelope
		want string
	}{
		{"ticker", Ticker("BTC", "USD"), `{"e":"ticker","data":["BTC","USD"]}`},
		{"ticker_order_kept", Ticker("USD", "BTC"), `{"e":"ticker","data":["USD","BTC"]}`},
		{"pong", Pong(), `{"e":"pong"}`},
		{"get_balance", GetBalance(), `{"e":"get-balance"}`},
		{"open_orders", OpenOrders("BTC", "USD"), `{"e":"open-orders","data":{"pair":["BTC","USD"]}}`},
		{"subscribe", Subscribe("tickers"), `{"e":"subscribe","rooms":["tickers"]}`},
		{"init_ohlcv", InitOHLCV("1m", "pair-BTC-USD"), `{"e":"init-ohlcv","i":"1m","rooms":["pair-BTC-USD"]}`},
		{
			"order_book_subscribe",
			OrderBookSubscribe(pair, true, 10),
			`{"e":"order-book-subscribe","data":{"pair":["BTC","USD"],"subscribe":true,"depth":10}}`,
		},
		{
			"order_book_unsubscribe",
			OrderBookUnsubscribe(pair),
			`{"e":"order-book-unsubscribe","data":{"pair":["BTC","USD"]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, serialize(t, tt.env))
		})
	}
}

func TestTicker_Exact(t *testing.T) {
	assert.Equal(t, `{"data":["BTC","USD"],"e":"ticker"}`, serialize(t, Ticker("BTC", "USD")))
}

func TestTicker_Data(t *testing.T) {
	data := Ticker("BTC", "USD").Data()

	require.Equal(t, KindArray, data.Kind())
	require.Equal(t, 2, data.Len())
	first, _ := data.Index(0).AsString()
	second, _ := data.Index(1).AsString()
	assert.Equal(t, "BTC", first)
	assert.Equal(t, "USD", second)
}
