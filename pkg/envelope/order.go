package envelope

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-playground/validator/v10"

	"cexws/pkg/core"
)

var validate = validator.New()

// PlaceOrderRequest holds the parameters of a limit order.
type PlaceOrderRequest struct {
	Pair   core.Pair
	Side   core.OrderSide `validate:"min=0,max=1"`
	Amount apd.Decimal    `validate:"-"`
	Price  apd.Decimal    `validate:"-"`
}

// Validate checks the request before it is put on the wire.
func (r *PlaceOrderRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Amount.Form != apd.Finite || r.Amount.Sign() <= 0 {
		return errors.New("amount must be positive")
	}
	if r.Price.Form != apd.Finite || r.Price.Sign() <= 0 {
		return errors.New("price must be positive")
	}
	return nil
}

func (r *PlaceOrderRequest) fields() []Field {
	return []Field{
		pairField(r.Pair.Base, r.Pair.Quote),
		F("amount", Decimal(&r.Amount)),
		F("price", String(r.Price.Text('f'))),
		F("type", String(r.Side.String())),
	}
}

// PlaceOrder builds a place-order frame:
//
//	{"e":"place-order","data":{"pair":[B,Q],"amount":A,"price":"P","type":"buy"}}
//
// The server expects the amount as a number and the price as a string.
func PlaceOrder(req PlaceOrderRequest) (*Envelope, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("place-order: %w", err)
	}
	return New(EventPlaceOrder, F(KeyData, Object(req.fields()...))), nil
}

// CancelReplaceOrder atomically cancels orderID and places req in its place.
func CancelReplaceOrder(orderID string, req PlaceOrderRequest) (*Envelope, error) {
	if orderID == "" {
		return nil, errors.New("cancel-replace-order: order id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("cancel-replace-order: %w", err)
	}
	fields := append(req.fields(), F("order_id", String(orderID)))
	return New(EventCancelReplaceOrder, F(KeyData, Object(fields...))), nil
}

// GetOrder requests the state of a single order.
func GetOrder(orderID string) (*Envelope, error) {
	if orderID == "" {
		return nil, errors.New("get-order: order id is required")
	}
	return New(EventGetOrder, F(KeyData, Object(F("order_id", String(orderID))))), nil
}

// CancelOrder cancels a single order.
func CancelOrder(orderID string) (*Envelope, error) {
	if orderID == "" {
		return nil, errors.New("cancel-order: order id is required")
	}
	return New(EventCancelOrder, F(KeyData, Object(F("order_id", String(orderID))))), nil
}

// Archived order status filters.
const (
	ArchivedDone            = "d"
	ArchivedCancelled       = "c"
	ArchivedCancelledPartly = "cd"
)

// ArchivedOrdersQuery filters the archived-orders request. Zero times are
// omitted from the frame.
type ArchivedOrdersQuery struct {
	Pair           core.Pair
	Limit          int       `validate:"min=0,max=1000"`
	DateFrom       time.Time `validate:"-"`
	DateTo         time.Time `validate:"-"`
	LastTxDateFrom time.Time `validate:"-"`
	LastTxDateTo   time.Time `validate:"-"`
	Status         string    `validate:"omitempty,oneof=d c cd"`
}

// ArchivedOrders requests completed and cancelled orders for a pair.
func ArchivedOrders(q ArchivedOrdersQuery) (*Envelope, error) {
	if err := validate.Struct(&q); err != nil {
		return nil, fmt.Errorf("archived-orders: %w", err)
	}
	if !q.DateFrom.IsZero() && !q.DateTo.IsZero() && q.DateTo.Before(q.DateFrom) {
		return nil, errors.New("archived-orders: DateTo is before DateFrom")
	}

	fields := []Field{pairField(q.Pair.Base, q.Pair.Quote)}
	if q.Limit > 0 {
		fields = append(fields, F("limit", Int(int64(q.Limit))))
	}
	for _, bound := range []struct {
		key string
		t   time.Time
	}{
		{"dateFrom", q.DateFrom},
		{"dateTo", q.DateTo},
		{"lastTxDateFrom", q.LastTxDateFrom},
		{"lastTxDateTo", q.LastTxDateTo},
	} {
		if !bound.t.IsZero() {
			fields = append(fields, F(bound.key, Int(bound.t.Unix())))
		}
	}
	if q.Status != "" {
		fields = append(fields, F("status", String(q.Status)))
	}
	return New(EventArchivedOrders, F(KeyData, Object(fields...))), nil
}
