// Package ordermanager keeps an in-memory view of the orders placed during a
// session and folds order notifications into it.
package ordermanager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"cexws/pkg/core"
	"cexws/pkg/envelope"
	"cexws/pkg/exchange/cexio"
)

// Exchange is the part of *cexio.Client the manager uses.
type Exchange interface {
	PlaceOrder(ctx context.Context, req envelope.PlaceOrderRequest) (*core.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (*core.Order, error)
	OnOrderUpdate(fn func(*cexio.OrderUpdate))
}

var _ Exchange = (*cexio.Client)(nil)

type OrderCallback func(core.Order)

var ErrOrderNotFound = errors.New("order not tracked")

type Config struct {
	// MaxOrders bounds the number of tracked orders. Closed orders are evicted
	// first, oldest first.
	MaxOrders int `json:"max_orders" yaml:"max_orders"`
}

type Manager struct {
	exchange Exchange
	config   Config
	logger   zerolog.Logger

	mu        sync.RWMutex
	orders    map[string]*core.Order
	seq       map[string]uint64
	next      uint64
	callbacks []OrderCallback
}

// New creates a manager and subscribes it to the exchange's order notifications.
func New(ex Exchange, config Config) *Manager {
	if config.MaxOrders <= 0 {
		config.MaxOrders = 10000
	}
	m := &Manager{
		exchange: ex,
		config:   config,
		logger:   zerolog.Nop(),
		orders:   make(map[string]*core.Order),
		seq:      make(map[string]uint64),
	}
	ex.OnOrderUpdate(m.apply)
	return m
}

func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.logger = logger.With().Str("component", "ordermanager").Logger()
}

// PlaceOrder places req and starts tracking the resulting order.
func (m *Manager) PlaceOrder(ctx context.Context, req envelope.PlaceOrderRequest) (core.Order, error) {
	placed, err := m.exchange.PlaceOrder(ctx, req)
	if err != nil {
		return core.Order{}, fmt.Errorf("place order: %w", err)
	}

	m.mu.Lock()
	m.storeLocked(placed)
	snapshot := *placed
	m.mu.Unlock()

	m.notify(snapshot)
	return snapshot, nil
}

// CancelOrder cancels a tracked open order. The order is marked cancelled
// once the exchange accepts the request.
func (m *Manager) CancelOrder(ctx context.Context, orderID string) error {
	m.mu.RLock()
	o, ok := m.orders[orderID]
	open := ok && o.IsOpen()
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("cancel %s: %w", orderID, ErrOrderNotFound)
	}
	if !open {
		return fmt.Errorf("cancel %s: order is no longer open", orderID)
	}
	if err := m.exchange.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	m.update(orderID, func(o *core.Order) { o.Cancelled = true })
	return nil
}

// CancelAll cancels every open order, or only those on pair when it is set.
func (m *Manager) CancelAll(ctx context.Context, pair core.Pair) error {
	var errs []error
	for _, o := range m.Orders(Filter{Pair: pair, OpenOnly: true}) {
		if err := m.CancelOrder(ctx, o.ID); err != nil {
			m.logger.Warn().Err(err).Str("order_id", o.ID).Msg("failed to cancel order")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sync refreshes a tracked order from the exchange.
func (m *Manager) Sync(ctx context.Context, orderID string) (core.Order, error) {
	if _, ok := m.Get(orderID); !ok {
		return core.Order{}, fmt.Errorf("sync %s: %w", orderID, ErrOrderNotFound)
	}
	fresh, err := m.exchange.GetOrder(ctx, orderID)
	if err != nil {
		return core.Order{}, fmt.Errorf("sync order: %w", err)
	}

	var snapshot core.Order
	m.update(orderID, func(o *core.Order) {
		pair, created := o.Pair, o.CreatedAt
		*o = *fresh
		if o.Pair.Base == "" {
			o.Pair = pair
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = created
		}
		snapshot = *o
	})
	return snapshot, nil
}

// Get returns a copy of a tracked order.
func (m *Manager) Get(orderID string) (core.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[orderID]
	if !ok {
		return core.Order{}, false
	}
	return *o, true
}

// Filter selects tracked orders. Zero fields match everything.
type Filter struct {
	Pair     core.Pair
	Side     *core.OrderSide
	OpenOnly bool
}

func (f Filter) Matches(o *core.Order) bool {
	if f.Pair.Base != "" && o.Pair != f.Pair {
		return false
	}
	if f.Side != nil && o.Side != *f.Side {
		return false
	}
	if f.OpenOnly && !o.IsOpen() {
		return false
	}
	return true
}

// Orders returns copies of the matching orders in placement order.
func (m *Manager) Orders(f Filter) []core.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.orders))
	for id, o := range m.orders {
		if f.Matches(o) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b string) int { return cmp.Compare(m.seq[a], m.seq[b]) })

	out := make([]core.Order, len(ids))
	for i, id := range ids {
		out[i] = *m.orders[id]
	}
	return out
}

func (m *Manager) OnOrderUpdate(cb OrderCallback) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, cb)
	m.mu.Unlock()
}

func (m *Manager) apply(u *cexio.OrderUpdate) {
	applied := m.update(u.ID, func(o *core.Order) {
		o.Pending = u.Remains
		if u.Cancelled {
			o.Cancelled = true
		} else if u.Remains.IsZero() {
			o.Complete = true
		}
	})
	if !applied {
		m.logger.Debug().Str("order_id", u.ID).Msg("update for untracked order")
	}
}

func (m *Manager) update(orderID string, fn func(*core.Order)) bool {
	m.mu.Lock()
	o, ok := m.orders[orderID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	fn(o)
	snapshot := *o
	m.mu.Unlock()

	m.notify(snapshot)
	return true
}

func (m *Manager) storeLocked(o *core.Order) {
	if _, exists := m.orders[o.ID]; !exists {
		m.next++
		m.seq[o.ID] = m.next
	}
	m.orders[o.ID] = o
	m.evictLocked()
}

func (m *Manager) evictLocked() {
	for len(m.orders) > m.config.MaxOrders {
		victim := ""
		for id, o := range m.orders {
			if o.IsOpen() {
				continue
			}
			if victim == "" || m.seq[id] < m.seq[victim] {
				victim = id
			}
		}
		if victim == "" {
			return
		}
		delete(m.orders, victim)
		delete(m.seq, victim)
	}
}

func (m *Manager) notify(o core.Order) {
	m.mu.RLock()
	callbacks := slices.Clone(m.callbacks)
	m.mu.RUnlock()

	for _, cb := range callbacks {
		cb(o)
	}
}
