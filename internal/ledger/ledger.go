// Package ledger tracks the bot's own open orders and its signed position,
// reconstructed from the order event stream.
package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quoter/internal/core"
)

const (
	// gcThreshold is the processed-record count above which a sweep runs.
	gcThreshold = 10000
	// gcMaxAge is how long a processed-fill record outlives its last event.
	gcMaxAge = time.Hour
)

// FillFunc is fired after a fill moved the position. delta is the signed
// position change.
type FillFunc func(order core.Order, delta decimal.Decimal)

// fillRecord remembers how much of an order's fill has already been applied
// to the position, so replayed events are harmless.
type fillRecord struct {
	applied   decimal.Decimal
	lastEvent time.Time
}

// Ledger is the single source of truth for open orders and position. Events
// for other instruments or from before process start are dropped.
type Ledger struct {
	mu sync.Mutex

	instrument int64
	startTime  int64
	position   decimal.Decimal

	open      map[int64]core.Order
	processed map[int64]*fillRecord

	logger core.ILogger
	onFill FillFunc
	now    func() time.Time
}

// New creates a ledger for one instrument. startTime is the unix-seconds
// cutoff below which order events are considered stale. onFill may be nil.
func New(instrument int64, startTime int64, logger core.ILogger, onFill FillFunc) *Ledger {
	return &Ledger{
		instrument: instrument,
		startTime:  startTime,
		open:       make(map[int64]core.Order),
		processed:  make(map[int64]*fillRecord),
		logger:     logger.WithField("component", "ledger"),
		onFill:     onFill,
		now:        time.Now,
	}
}

// SeedPosition overwrites the position, used once at startup from config or
// from the exchange position snapshot.
func (l *Ledger) SeedPosition(position decimal.Decimal) {
	l.mu.Lock()
	l.position = position
	l.mu.Unlock()
	l.logger.Info("position seeded", "position", position.String())
}

// Position returns the current signed position.
func (l *Ledger) Position() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

// OpenOrders returns a copy of the currently open orders.
func (l *Ledger) OpenOrders() []core.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	orders := make([]core.Order, 0, len(l.open))
	for _, o := range l.open {
		orders = append(orders, o)
	}
	return orders
}

// Remove drops an order from the open set without waiting for its terminal
// event. Used when a cancel is proactively issued; the CANCELLED push that
// arrives later is a harmless replay.
func (l *Ledger) Remove(orderID int64) {
	l.mu.Lock()
	delete(l.open, orderID)
	l.mu.Unlock()
	l.logger.Debug("order removed from open set", "order_id", orderID)
}

// OpenOrderCount returns the number of currently open orders.
func (l *Ledger) OpenOrderCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}

// ProcessOrder applies one order event. Fill accounting runs before the
// status transition so a single FILLED event both books the fill and retires
// the order. Processing the same event twice changes nothing.
func (l *Ledger) ProcessOrder(order core.Order) {
	l.mu.Lock()

	if order.Instrument != l.instrument {
		l.mu.Unlock()
		l.logger.Debug("order event for other instrument dropped",
			"order_id", order.ID, "instrument", order.Instrument)
		return
	}
	if order.UpdateTime < l.startTime {
		l.mu.Unlock()
		l.logger.Debug("stale order event dropped",
			"order_id", order.ID, "update_time", order.UpdateTime)
		return
	}

	delta := l.applyFillLocked(order)

	switch order.Status {
	case core.OrderStatusNew, core.OrderStatusPartiallyFilled:
		l.open[order.ID] = order
	case core.OrderStatusFilled, core.OrderStatusCancelled:
		delete(l.open, order.ID)
	default:
		l.logger.Warn("unknown order status",
			"order_id", order.ID, "status", string(order.Status))
	}

	l.gcLocked()
	l.mu.Unlock()

	if !delta.IsZero() {
		l.logger.Info("fill applied",
			"order_id", order.ID, "side", string(order.Side),
			"delta", delta.String())
		if l.onFill != nil {
			l.onFill(order, delta)
		}
	}
}

// applyFillLocked books the not-yet-processed part of the order's cumulative
// fill into the position and returns the signed position delta.
func (l *Ledger) applyFillLocked(order core.Order) decimal.Decimal {
	filled := order.InitialSize.Sub(order.RemainingSize)
	if order.Status == core.OrderStatusFilled {
		filled = order.InitialSize
	}

	rec := l.processed[order.ID]
	already := decimal.Zero
	if rec != nil {
		rec.lastEvent = l.now()
		already = rec.applied
	}

	unprocessed := filled.Sub(already)
	if !unprocessed.IsPositive() {
		// zero-fill, replayed or out-of-order event, nothing to book
		return decimal.Zero
	}

	// the first fill-bearing event creates the record
	if rec == nil {
		rec = &fillRecord{lastEvent: l.now()}
		l.processed[order.ID] = rec
	}
	rec.applied = filled

	delta := unprocessed
	if order.Side == core.SideSell {
		delta = unprocessed.Neg()
	}
	l.position = l.position.Add(delta)
	return delta
}

// gcLocked sweeps aged processed-fill records once the table grows past the
// threshold. Records are only dropped well after their order stopped
// producing events, so idempotence is preserved in practice.
func (l *Ledger) gcLocked() {
	if len(l.processed) <= gcThreshold {
		return
	}
	cutoff := l.now().Add(-gcMaxAge)
	removed := 0
	for id, rec := range l.processed {
		if rec.lastEvent.Before(cutoff) {
			delete(l.processed, id)
			removed++
		}
	}
	if removed > 0 {
		l.logger.Info("fill records swept",
			"removed", removed, "remaining", len(l.processed))
	}
}
