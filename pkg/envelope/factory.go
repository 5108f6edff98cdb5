package envelope

import (
	"cexws/pkg/auth"
	"cexws/pkg/core"
)

// AuthRequest builds the auth frame for signer at unix time now:
//
//	{"e":"auth","auth":{"key":K,"signature":S,"timestamp":now}}
//
// The same now is signed and embedded, so callers must read the clock once
// and pass that value.
func AuthRequest(signer *auth.Signer, now uint64) *Envelope {
	return New(EventAuth,
		F("auth", Object(
			F("key", String(signer.KeyID())),
			F("signature", String(signer.Sign(now).String())),
			F("timestamp", Uint(now)),
		)),
	)
}

// Ticker requests the ticker for the pair base/quote. The order of the two
// symbols is preserved.
func Ticker(base, quote string) *Envelope {
	return New(EventTicker, F(KeyData, Strings(base, quote)))
}

// Pong answers a server ping.
func Pong() *Envelope {
	return New(EventPong)
}

// GetBalance requests the account balances.
func GetBalance() *Envelope {
	return New(EventGetBalance)
}

// OpenOrders requests the open orders for the pair base/quote.
func OpenOrders(base, quote string) *Envelope {
	return New(EventOpenOrders, F(KeyData, Object(pairField(base, quote))))
}

// Subscribe joins public rooms such as "tickers" or "pair-BTC-USD".
func Subscribe(rooms ...string) *Envelope {
	return New(EventSubscribe, F("rooms", Strings(rooms...)))
}

// InitOHLCV requests candles at interval (e.g. "1m") for the given pair rooms.
func InitOHLCV(interval string, rooms ...string) *Envelope {
	return New(EventInitOHLCV,
		F("i", String(interval)),
		F("rooms", Strings(rooms...)),
	)
}

// OrderBookSubscribe requests an order book snapshot for pair and, with
// subscribe set, the md_update stream that follows. depth 0 means the full book.
func OrderBookSubscribe(pair core.Pair, subscribe bool, depth int) *Envelope {
	return New(EventOrderBookSubscribe, F(KeyData, Object(
		pairField(pair.Base, pair.Quote),
		F("subscribe", Bool(subscribe)),
		F("depth", Int(int64(depth))),
	)))
}

// OrderBookUnsubscribe stops the md_update stream for pair.
func OrderBookUnsubscribe(pair core.Pair) *Envelope {
	return New(EventOrderBookUnsubscribe, F(KeyData, Object(pairField(pair.Base, pair.Quote))))
}

func pairField(base, quote string) Field {
	return F("pair", Strings(base, quote))
}
