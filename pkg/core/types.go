package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Pair is a trading pair. The order is significant: Base is priced in Quote.
type Pair struct {
	// Base is the asset being bought or sold (e.g., "BTC").
	Base string `json:"base" validate:"required"`
	// Quote is the asset the price is expressed in (e.g., "USD").
	Quote string `json:"quote" validate:"required"`
}

// NewPair creates a Pair from its base and quote symbols.
func NewPair(base, quote string) Pair {
	return Pair{Base: base, Quote: quote}
}

// ParsePair parses "BASE/QUOTE", "BASE-QUOTE" or "BASE:QUOTE".
func ParsePair(s string) (Pair, error) {
	for _, sep := range []string{"/", "-", ":"} {
		if base, quote, ok := strings.Cut(s, sep); ok && base != "" && quote != "" {
			return Pair{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}, nil
		}
	}
	return Pair{}, fmt.Errorf("invalid pair %q", s)
}

// String returns the pair as "BASE/QUOTE".
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// Room returns the subscription room name for the pair ("pair-BTC-USD").
func (p Pair) Room() string {
	return "pair-" + p.Base + "-" + p.Quote
}

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

// Order side constants define the direction of a trade.
const (
	// SideBuy indicates an order to purchase the base asset.
	SideBuy OrderSide = iota
	// SideSell indicates an order to sell the base asset.
	SideSell
)

// String returns the wire representation of the order side ("buy" or "sell").
func (s OrderSide) String() string {
	return [...]string{"buy", "sell"}[s]
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
// It accepts both uppercase and lowercase formats.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"buy"`, `"BUY"`:
		*s = SideBuy
	case `"sell"`, `"SELL"`:
		*s = SideSell
	default:
		return fmt.Errorf("invalid order side %s", data)
	}
	return nil
}

// Tick is a last-price notification for a pair from the public ticker room.
type Tick struct {
	Pair  Pair        `json:"pair"`
	Price apd.Decimal `json:"price"`
}

// Ticker represents the market summary returned for a pair.
type Ticker struct {
	// Pair is the trading pair this ticker describes.
	Pair Pair `json:"pair"`
	// Bid is the highest price a buyer is willing to pay.
	Bid apd.Decimal `json:"bid"`
	// Ask is the lowest price a seller is willing to accept.
	Ask apd.Decimal `json:"ask"`
	// Last is the price of the most recent trade.
	Last apd.Decimal `json:"last"`
	// High is the highest price in the last 24 hours.
	High apd.Decimal `json:"high"`
	// Low is the lowest price in the last 24 hours.
	Low apd.Decimal `json:"low"`
	// Volume is the total trading volume in the last 24 hours.
	Volume apd.Decimal `json:"volume"`
	// Timestamp is when this ticker data was generated.
	Timestamp time.Time `json:"timestamp"`
}

// Balance represents the account balance for a single currency.
type Balance struct {
	// Currency is the asset symbol (e.g., "BTC").
	Currency string `json:"currency"`
	// Available is the balance free for trading.
	Available apd.Decimal `json:"available"`
	// InOrders is the balance locked in open orders.
	InOrders apd.Decimal `json:"in_orders"`
}

// Order represents an exchange order as reported by order responses and
// order notifications.
type Order struct {
	// ID is the exchange-assigned order identifier.
	ID string `json:"id"`
	// Pair is the trading pair, when the response carries it.
	Pair Pair `json:"pair"`
	// Side indicates whether this is a buy or sell order.
	Side OrderSide `json:"side"`
	// Price is the limit price.
	Price apd.Decimal `json:"price"`
	// Amount is the total order amount.
	Amount apd.Decimal `json:"amount"`
	// Pending is the unfilled portion of the order.
	Pending apd.Decimal `json:"pending"`
	// Complete reports whether the order has been fully executed.
	Complete bool `json:"complete"`
	// Cancelled reports whether the order was cancelled before completing.
	Cancelled bool `json:"cancelled"`
	// CreatedAt is when the order was placed.
	CreatedAt time.Time `json:"created_at"`
}

// IsOpen returns true if the order still has an unfilled amount.
func (o *Order) IsOpen() bool {
	return !o.Complete && !o.Cancelled && o.Pending.Sign() > 0
}
