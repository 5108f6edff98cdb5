package cexio

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"cexws/pkg/core"
	"cexws/pkg/envelope"
)

// wireDecimal accepts amounts sent either as JSON numbers or as strings.
type wireDecimal struct {
	apd.Decimal
}

func (d *wireDecimal) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		return nil
	}
	if _, _, err := d.Decimal.SetString(s); err != nil {
		return fmt.Errorf("decimal %q: %w", s, err)
	}
	return nil
}

// wireString accepts ids sent either as strings or as numbers.
type wireString string

func (w *wireString) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	*w = wireString(s)
	return nil
}

// wireTime is a unix timestamp in seconds or milliseconds, quoted or bare.
type wireTime struct {
	time.Time
}

func (w *wireTime) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	if n > 1e12 {
		w.Time = time.UnixMilli(n)
	} else {
		w.Time = time.Unix(n, 0)
	}
	return nil
}

type cexTick struct {
	Symbol1 string      `json:"symbol1"`
	Symbol2 string      `json:"symbol2"`
	Price   wireDecimal `json:"price"`
}

type cexTicker struct {
	Pair      []string    `json:"pair"`
	Timestamp wireTime    `json:"timestamp"`
	Low       wireDecimal `json:"low"`
	High      wireDecimal `json:"high"`
	Last      wireDecimal `json:"last"`
	Volume    wireDecimal `json:"volume"`
	Bid       wireDecimal `json:"bid"`
	Ask       wireDecimal `json:"ask"`
}

type cexBalance struct {
	Balance  map[string]wireDecimal `json:"balance"`
	OBalance map[string]wireDecimal `json:"obalance"`
}

type cexOrder struct {
	ID       wireString  `json:"id"`
	Time     wireTime    `json:"time"`
	Type     string      `json:"type"`
	Price    wireDecimal `json:"price"`
	Amount   wireDecimal `json:"amount"`
	Pending  wireDecimal `json:"pending"`
	Remains  wireDecimal `json:"remains"`
	Complete bool        `json:"complete"`
	Status   string      `json:"status"`
	Symbol1  string      `json:"symbol1"`
	Symbol2  string      `json:"symbol2"`
	Pair     []string    `json:"pair"`
}

type cexOrderUpdate struct {
	ID      wireString  `json:"id"`
	Remains wireDecimal `json:"remains"`
	Cancel  bool        `json:"cancel"`
	Pair    struct {
		Symbol1 string `json:"symbol1"`
		Symbol2 string `json:"symbol2"`
	} `json:"pair"`
}

// OrderUpdate is the content of an "order" notification: an order was
// partially filled, filled or cancelled.
type OrderUpdate struct {
	ID        string
	Pair      core.Pair
	Remains   apd.Decimal
	Cancelled bool
}

// Normalizer converts CEX.io payloads to canonical core types.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Tick converts a "tick" notification from the tickers room.
func (n *Normalizer) Tick(env *envelope.Envelope) (*core.Tick, error) {
	var raw cexTick
	if err := decodeData(env, envelope.EventTick, &raw); err != nil {
		return nil, err
	}
	if raw.Symbol1 == "" || raw.Symbol2 == "" {
		return nil, fmt.Errorf("tick: missing symbols")
	}
	return &core.Tick{
		Pair:  core.NewPair(raw.Symbol1, raw.Symbol2),
		Price: raw.Price.Decimal,
	}, nil
}

// Ticker converts a "ticker" response.
func (n *Normalizer) Ticker(env *envelope.Envelope) (*core.Ticker, error) {
	var raw cexTicker
	if err := decodeData(env, envelope.EventTicker, &raw); err != nil {
		return nil, err
	}
	t := &core.Ticker{
		Bid:       raw.Bid.Decimal,
		Ask:       raw.Ask.Decimal,
		Last:      raw.Last.Decimal,
		High:      raw.High.Decimal,
		Low:       raw.Low.Decimal,
		Volume:    raw.Volume.Decimal,
		Timestamp: raw.Timestamp.Time,
	}
	if len(raw.Pair) == 2 {
		t.Pair = core.NewPair(raw.Pair[0], raw.Pair[1])
	}
	return t, nil
}

// Balances converts a "get-balance" response. Currencies are sorted; a
// currency present in only one of the two maps gets zero for the other.
func (n *Normalizer) Balances(env *envelope.Envelope) ([]core.Balance, error) {
	var raw cexBalance
	if err := decodeData(env, envelope.EventGetBalance, &raw); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw.Balance))
	for c := range raw.Balance {
		seen[c] = struct{}{}
	}
	for c := range raw.OBalance {
		seen[c] = struct{}{}
	}
	currencies := make([]string, 0, len(seen))
	for c := range seen {
		currencies = append(currencies, c)
	}
	slices.Sort(currencies)

	out := make([]core.Balance, len(currencies))
	for i, c := range currencies {
		out[i] = core.Balance{
			Currency:  c,
			Available: raw.Balance[c].Decimal,
			InOrders:  raw.OBalance[c].Decimal,
		}
	}
	return out, nil
}

// Order converts a place-order, cancel-replace-order or get-order response.
func (n *Normalizer) Order(env *envelope.Envelope) (*core.Order, error) {
	var raw cexOrder
	if err := env.DecodeData(&raw); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Event(), err)
	}
	return raw.normalize()
}

// OrderUpdate converts an "order" notification.
func (n *Normalizer) OrderUpdate(env *envelope.Envelope) (*OrderUpdate, error) {
	var raw cexOrderUpdate
	if err := decodeData(env, envelope.EventOrder, &raw); err != nil {
		return nil, err
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("order update: missing id")
	}
	u := &OrderUpdate{
		ID:        string(raw.ID),
		Remains:   raw.Remains.Decimal,
		Cancelled: raw.Cancel,
	}
	if raw.Pair.Symbol1 != "" && raw.Pair.Symbol2 != "" {
		u.Pair = core.NewPair(raw.Pair.Symbol1, raw.Pair.Symbol2)
	}
	return u, nil
}

// Orders converts an "open-orders" or "archived-orders" response.
func (n *Normalizer) Orders(env *envelope.Envelope) ([]core.Order, error) {
	want := envelope.EventOpenOrders
	if env.Event() == envelope.EventArchivedOrders {
		want = envelope.EventArchivedOrders
	}
	var raw []cexOrder
	if err := decodeData(env, want, &raw); err != nil {
		return nil, err
	}
	out := make([]core.Order, 0, len(raw))
	for i := range raw {
		o, err := raw[i].normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}

func (o *cexOrder) normalize() (*core.Order, error) {
	if o.ID == "" {
		return nil, fmt.Errorf("order: missing id")
	}
	order := &core.Order{
		ID:        string(o.ID),
		Price:     o.Price.Decimal,
		Amount:    o.Amount.Decimal,
		Pending:   o.Pending.Decimal,
		Complete:  o.Complete || o.Status == envelope.ArchivedDone,
		Cancelled: o.Status == envelope.ArchivedCancelled || o.Status == envelope.ArchivedCancelledPartly,
		CreatedAt: o.Time.Time,
	}
	if o.Pending.Form == apd.Finite && o.Pending.IsZero() && !o.Remains.IsZero() {
		order.Pending = o.Remains.Decimal
	}

	switch strings.ToLower(o.Type) {
	case "buy":
		order.Side = core.SideBuy
	case "sell":
		order.Side = core.SideSell
	default:
		return nil, fmt.Errorf("order %s: invalid side %q", o.ID, o.Type)
	}

	switch {
	case o.Symbol1 != "" && o.Symbol2 != "":
		order.Pair = core.NewPair(o.Symbol1, o.Symbol2)
	case len(o.Pair) == 2:
		order.Pair = core.NewPair(o.Pair[0], o.Pair[1])
	}
	return order, nil
}

func decodeData(env *envelope.Envelope, want envelope.Event, v any) error {
	if got := env.Event(); got != want {
		return fmt.Errorf("expected %s frame, got %s", want, got)
	}
	if err := env.DecodeData(v); err != nil {
		return fmt.Errorf("%s: %w", want, err)
	}
	return nil
}
