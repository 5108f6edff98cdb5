package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_WireRoundTrip(t *testing.T) {
	events := Events()
	require.Len(t, events, int(eventCount-EventConnected))

	seen := make(map[string]bool, len(events))
	for _, e := range events {
		wire := e.String()
		assert.NotEmpty(t, wire)
		assert.False(t, seen[wire], "duplicate wire string %q", wire)
		seen[wire] = true

		back, ok := ParseEvent(wire)
		assert.True(t, ok, wire)
		assert.Equal(t, e, back)
		assert.True(t, e.IsValid())

		text, err := e.MarshalText()
		require.NoError(t, err)
		var decoded Event
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, e, decoded)
	}
}

func TestEvent_WireStrings(t *testing.T) {
	tests := []struct {
		event Event
		wire  string
	}{
		{EventConnected, "connected"},
		{EventDisconnecting, "disconnecting"},
		{EventMDGroupped, "md_groupped"},
		{EventHistoryUpdate, "history-update"},
		{EventInitOHLCVData, "init-ohlcv-data"},
		{EventOpenOrders, "open-orders"},
		{EventGetBalance, "get-balance"},
		{EventOrderBookUnsubscribe, "order-book-unsubscribe"},
		{EventCancelReplaceOrder, "cancel-replace-order"},
		{EventMDUpdate, "md_update"},
		{EventOBalance, "obalance"},
	}

	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			assert.Equal(t, tt.wire, tt.event.String())
		})
	}
}

func TestEvent_Markers(t *testing.T) {
	assert.Equal(t, "none", EventNone.String())
	assert.Equal(t, "unknown", EventUnknown.String())
	assert.Equal(t, "unknown", Event(999).String())
	assert.False(t, EventNone.IsValid())
	assert.False(t, EventUnknown.IsValid())

	_, err := EventNone.MarshalText()
	assert.Error(t, err)

	var e Event
	assert.Error(t, e.UnmarshalText([]byte("md-groupped")))

	_, ok := ParseEvent("")
	assert.False(t, ok)
	_, ok = ParseEvent("TICKER")
	assert.False(t, ok)
}

func TestEvent_Category(t *testing.T) {
	tests := []struct {
		event    Event
		category Category
		auth     bool
	}{
		{EventNone, CategoryNone, false},
		{EventUnknown, CategoryNone, false},
		{EventPing, CategoryProtocol, false},
		{EventAuth, CategoryPublic, false},
		{EventTick, CategoryPublic, false},
		{EventOHLCV1m, CategoryPublic, false},
		{EventOpenOrders, CategoryPublic, true},
		{EventTicker, CategoryPrivate, true},
		{EventGetBalance, CategoryPrivate, true},
		{EventArchivedOrders, CategoryPrivate, true},
		{EventTx, CategoryNotification, false},
		{EventOrder, CategoryNotification, false},
	}

	for _, tt := range tests {
		t.Run(tt.event.String(), func(t *testing.T) {
			assert.Equal(t, tt.category, tt.event.Category())
			assert.Equal(t, tt.auth, tt.event.RequiresAuth())
		})
	}

	assert.Equal(t, "notification", CategoryNotification.String())
}
