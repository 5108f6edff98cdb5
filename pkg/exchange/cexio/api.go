package cexio

import (
	"context"

	"cexws/pkg/core"
	"cexws/pkg/envelope"
)

// Ticker requests the market summary for pair.
func (c *Client) Ticker(ctx context.Context, pair core.Pair) (*core.Ticker, error) {
	resp, err := c.Request(ctx, envelope.Ticker(pair.Base, pair.Quote))
	if err != nil {
		return nil, err
	}
	t, err := c.normalizer.Ticker(resp)
	if err != nil {
		return nil, err
	}
	if t.Pair.Base == "" {
		t.Pair = pair
	}
	return t, nil
}

// Balances returns the available and in-order balance of every currency.
func (c *Client) Balances(ctx context.Context) ([]core.Balance, error) {
	resp, err := c.Request(ctx, envelope.GetBalance())
	if err != nil {
		return nil, err
	}
	return c.normalizer.Balances(resp)
}

// OpenOrders lists the open orders for pair.
func (c *Client) OpenOrders(ctx context.Context, pair core.Pair) ([]core.Order, error) {
	resp, err := c.Request(ctx, envelope.OpenOrders(pair.Base, pair.Quote))
	if err != nil {
		return nil, err
	}
	orders, err := c.normalizer.Orders(resp)
	if err != nil {
		return nil, err
	}
	return fillPair(orders, pair), nil
}

// ArchivedOrders lists completed and cancelled orders matching q.
func (c *Client) ArchivedOrders(ctx context.Context, q envelope.ArchivedOrdersQuery) ([]core.Order, error) {
	req, err := envelope.ArchivedOrders(q)
	if err != nil {
		return nil, err
	}
	resp, err := c.Request(ctx, req)
	if err != nil {
		return nil, err
	}
	orders, err := c.normalizer.Orders(resp)
	if err != nil {
		return nil, err
	}
	return fillPair(orders, q.Pair), nil
}

// PlaceOrder places a limit order.
func (c *Client) PlaceOrder(ctx context.Context, req envelope.PlaceOrderRequest) (*core.Order, error) {
	env, err := envelope.PlaceOrder(req)
	if err != nil {
		return nil, err
	}
	return c.orderRequest(ctx, env, req.Pair)
}

// CancelReplaceOrder cancels orderID and places req in one step.
func (c *Client) CancelReplaceOrder(ctx context.Context, orderID string, req envelope.PlaceOrderRequest) (*core.Order, error) {
	env, err := envelope.CancelReplaceOrder(orderID, req)
	if err != nil {
		return nil, err
	}
	return c.orderRequest(ctx, env, req.Pair)
}

// GetOrder returns the state of a single order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*core.Order, error) {
	env, err := envelope.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	return c.orderRequest(ctx, env, core.Pair{})
}

// CancelOrder cancels a single order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	env, err := envelope.CancelOrder(orderID)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, env)
	return err
}

// Subscribe joins public rooms. Notifications are delivered to handlers
// registered with On.
func (c *Client) Subscribe(ctx context.Context, rooms ...string) error {
	return c.Send(ctx, envelope.Subscribe(rooms...))
}

// SubscribeTickers joins the tickers room and calls fn for every tick.
// Malformed ticks are logged and skipped.
func (c *Client) SubscribeTickers(ctx context.Context, fn func(*core.Tick)) error {
	c.On(envelope.EventTick, func(env *envelope.Envelope) {
		tick, err := c.normalizer.Tick(env)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping tick")
			return
		}
		fn(tick)
	})
	return c.Subscribe(ctx, "tickers")
}

// OnOrderUpdate calls fn for every "order" notification about the account's
// orders. Malformed notifications are logged and skipped.
func (c *Client) OnOrderUpdate(fn func(*OrderUpdate)) {
	c.On(envelope.EventOrder, func(env *envelope.Envelope) {
		u, err := c.normalizer.OrderUpdate(env)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping order update")
			return
		}
		fn(u)
	})
}

// SubscribeOrderBook requests a snapshot of pair's book and, when subscribe
// is set, the md_update stream that follows it. The snapshot response is
// returned as is.
func (c *Client) SubscribeOrderBook(ctx context.Context, pair core.Pair, subscribe bool, depth int) (*envelope.Envelope, error) {
	return c.Request(ctx, envelope.OrderBookSubscribe(pair, subscribe, depth))
}

// UnsubscribeOrderBook stops the md_update stream for pair.
func (c *Client) UnsubscribeOrderBook(ctx context.Context, pair core.Pair) error {
	_, err := c.Request(ctx, envelope.OrderBookUnsubscribe(pair))
	return err
}

func (c *Client) orderRequest(ctx context.Context, env *envelope.Envelope, pair core.Pair) (*core.Order, error) {
	resp, err := c.Request(ctx, env)
	if err != nil {
		return nil, err
	}
	o, err := c.normalizer.Order(resp)
	if err != nil {
		return nil, err
	}
	if o.Pair.Base == "" {
		o.Pair = pair
	}
	return o, nil
}

func fillPair(orders []core.Order, pair core.Pair) []core.Order {
	for i := range orders {
		if orders[i].Pair.Base == "" {
			orders[i].Pair = pair
		}
	}
	return orders
}
