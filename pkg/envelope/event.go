package envelope

import "fmt"

// Event is the closed set of event tags defined by the protocol. The numeric
// values are internal; only the wire strings are part of the contract.
type Event int

const (
	// EventNone marks a frame without a string "e" member.
	EventNone Event = iota
	// EventUnknown marks a frame whose tag is not in the protocol.
	EventUnknown

	// Protocol lifecycle
	EventConnected
	EventPing
	EventPong
	EventDisconnecting

	// Public channels
	EventAuth
	EventSubscribe
	EventTick
	EventMD
	EventMDGroupped
	EventHistory
	EventHistoryUpdate
	EventInitOHLCV
	EventOHLCV
	EventOHLCV24
	EventInitOHLCVData
	EventOHLCV1m
	EventOpenOrders

	// Private channels
	EventTicker
	EventGetBalance
	EventOrderBookSubscribe
	EventOrderBookUnsubscribe
	EventPlaceOrder
	EventCancelReplaceOrder
	EventGetOrder
	EventCancelOrder
	EventArchivedOrders

	// Subscription notifications
	EventTx
	EventBalance
	EventOBalance
	EventMDUpdate
	EventOrder

	eventCount
)

// Wire strings, indexed by Event. "md_groupped" is the server's spelling.
var eventWire = [eventCount]string{
	EventNone:    "",
	EventUnknown: "",

	EventConnected:     "connected",
	EventPing:          "ping",
	EventPong:          "pong",
	EventDisconnecting: "disconnecting",

	EventAuth:          "auth",
	EventSubscribe:     "subscribe",
	EventTick:          "tick",
	EventMD:            "md",
	EventMDGroupped:    "md_groupped",
	EventHistory:       "history",
	EventHistoryUpdate: "history-update",
	EventInitOHLCV:     "init-ohlcv",
	EventOHLCV:         "ohlcv",
	EventOHLCV24:       "ohlcv24",
	EventInitOHLCVData: "init-ohlcv-data",
	EventOHLCV1m:       "ohlcv1m",
	EventOpenOrders:    "open-orders",

	EventTicker:               "ticker",
	EventGetBalance:           "get-balance",
	EventOrderBookSubscribe:   "order-book-subscribe",
	EventOrderBookUnsubscribe: "order-book-unsubscribe",
	EventPlaceOrder:           "place-order",
	EventCancelReplaceOrder:   "cancel-replace-order",
	EventGetOrder:             "get-order",
	EventCancelOrder:          "cancel-order",
	EventArchivedOrders:       "archived-orders",

	EventTx:       "tx",
	EventBalance:  "balance",
	EventOBalance: "obalance",
	EventMDUpdate: "md_update",
	EventOrder:    "order",
}

var wireEvent = func() map[string]Event {
	m := make(map[string]Event, eventCount)
	for e := EventConnected; e < eventCount; e++ {
		m[eventWire[e]] = e
	}
	return m
}()

// ParseEvent maps a wire string to its Event.
func ParseEvent(s string) (Event, bool) {
	e, ok := wireEvent[s]
	return e, ok
}

// Events returns every protocol event in declaration order.
func Events() []Event {
	out := make([]Event, 0, eventCount-EventConnected)
	for e := EventConnected; e < eventCount; e++ {
		out = append(out, e)
	}
	return out
}

// IsValid reports whether e is a protocol event (not None or Unknown).
func (e Event) IsValid() bool {
	return e >= EventConnected && e < eventCount
}

// String returns the wire string, or "none"/"unknown" for the two markers.
func (e Event) String() string {
	switch {
	case e == EventNone:
		return "none"
	case e == EventUnknown, e < 0, e >= eventCount:
		return "unknown"
	}
	return eventWire[e]
}

func (e Event) MarshalText() ([]byte, error) {
	if !e.IsValid() {
		return nil, fmt.Errorf("event %d has no wire form", int(e))
	}
	return []byte(eventWire[e]), nil
}

func (e *Event) UnmarshalText(text []byte) error {
	ev, ok := ParseEvent(string(text))
	if !ok {
		return fmt.Errorf("unknown event %q", text)
	}
	*e = ev
	return nil
}

// Category groups events by channel.
type Category int

const (
	CategoryNone Category = iota
	CategoryProtocol
	CategoryPublic
	CategoryPrivate
	CategoryNotification
)

func (c Category) String() string {
	return [...]string{"none", "protocol", "public", "private", "notification"}[c]
}

// Category returns the channel the event belongs to.
func (e Event) Category() Category {
	switch {
	case e >= EventConnected && e <= EventDisconnecting:
		return CategoryProtocol
	case e >= EventAuth && e <= EventOpenOrders:
		return CategoryPublic
	case e >= EventTicker && e <= EventArchivedOrders:
		return CategoryPrivate
	case e >= EventTx && e < eventCount:
		return CategoryNotification
	}
	return CategoryNone
}

// RequiresAuth reports whether a request for e is rejected before the
// session has authenticated. open-orders is listed with the public events on
// the wire but is account data, so it requires auth as well.
func (e Event) RequiresAuth() bool {
	return e.Category() == CategoryPrivate || e == EventOpenOrders
}
