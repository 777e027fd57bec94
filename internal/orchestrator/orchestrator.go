// Package orchestrator drives the cancel-and-replace quoting rounds and owns
// the trading gate.
package orchestrator

import (
	"context"
	"sync"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"quoter/internal/book"
	"quoter/internal/core"
	"quoter/internal/gateway"
	"quoter/internal/ledger"
	"quoter/internal/metrics"
	"quoter/internal/quote"
)

// Exchange is the slice of the transport the orchestrator uses.
type Exchange interface {
	PlaceOrder(ctx context.Context, instrument int64, price core.Price, size decimal.Decimal, orderType, timeInForce string, side core.Side, handler gateway.ResponseHandler) error
	CancelOrder(ctx context.Context, orderID int64, handler gateway.ResponseHandler) error
}

// Orchestrator serializes quoting rounds behind a three-flag gate. A round
// cancels everything open, recomputes the quote and places the fresh sides.
// At most one round is in flight at any time.
type Orchestrator struct {
	exchange Exchange
	book     *book.Tracker
	ledger   *ledger.Ledger
	engine   *quote.Engine
	metrics  *metrics.Metrics
	logger   core.ILogger

	instrument  int64
	tick        core.Price
	orderType   string
	timeInForce string

	mu                      sync.Mutex
	stopTrading             bool
	waitingForOrdersUpdates bool
	placeNewOrders          bool

	rounds sync.WaitGroup
	pool   *pond.WorkerPool
}

// New creates the orchestrator with trading stopped. Start opens the gate
// once the startup sequence has finished.
func New(exchange Exchange, bk *book.Tracker, led *ledger.Ledger, engine *quote.Engine, m *metrics.Metrics, instrument int64, tick core.Price, orderType, timeInForce string, logger core.ILogger) *Orchestrator {
	return &Orchestrator{
		exchange:    exchange,
		book:        bk,
		ledger:      led,
		engine:      engine,
		metrics:     m,
		logger:      logger.WithField("component", "orchestrator"),
		instrument:  instrument,
		tick:        tick,
		orderType:   orderType,
		timeInForce: timeInForce,
		stopTrading: true,
		pool:        pond.New(4, 16),
	}
}

// SetTick installs the instrument's minimum price increment once it is known.
func (o *Orchestrator) SetTick(tick core.Price) {
	o.mu.Lock()
	o.tick = tick
	o.mu.Unlock()
}

// Start opens the trading gate. Called once the startup sequence completed.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	o.stopTrading = false
	o.mu.Unlock()
	o.logger.Info("trading enabled")
}

// Trigger requests a new quoting round. If the gate is open a round starts on
// its own goroutine; otherwise the request stays pending in placeNewOrders
// until a later trigger finds the gate open.
func (o *Orchestrator) Trigger() {
	o.mu.Lock()
	o.placeNewOrders = true
	if o.stopTrading || o.waitingForOrdersUpdates {
		o.mu.Unlock()
		return
	}
	o.waitingForOrdersUpdates = true
	o.mu.Unlock()

	o.rounds.Add(1)
	go o.runRound()
}

func (o *Orchestrator) runRound() {
	defer o.rounds.Done()
	defer func() {
		o.mu.Lock()
		o.waitingForOrdersUpdates = false
		o.placeNewOrders = false
		o.mu.Unlock()
	}()

	log := o.logger.WithField("round_id", uuid.NewString())
	ctx := context.Background()

	o.cancelAll(ctx, log)

	bestBid, bidOK := o.book.BestBid()
	bestAsk, askOK := o.book.BestAsk()
	position := o.ledger.Position()

	o.mu.Lock()
	tick := o.tick
	o.mu.Unlock()

	q, ok := o.engine.Compute(bestBid, bestAsk, bidOK, askOK, position, tick)
	if !ok {
		log.Debug("no quote produced, round ends")
		return
	}

	// a late fill can re-open orders between the cancel phase and here
	if open := o.ledger.OpenOrderCount(); open >= 2 {
		log.Warn("round abandoned, open orders reappeared", "open", open)
		o.metrics.RoundsAbandoned.Inc()
		return
	}

	o.placeQuote(ctx, q, log)
	o.metrics.QuoteRounds.Inc()
}

// cancelAll issues a cancel for every open order concurrently and waits for
// every acknowledgement. Cancellation failures are logged and do not abort
// the round.
func (o *Orchestrator) cancelAll(ctx context.Context, log core.ILogger) {
	orders := o.ledger.OpenOrders()
	if len(orders) == 0 {
		return
	}

	grp, ctx := errgroup.WithContext(ctx)
	for _, order := range orders {
		order := order
		// the order leaves the open set the moment its cancel is issued,
		// so a cancel ack racing ahead of the CANCELLED push cannot make
		// the open set look re-populated
		o.ledger.Remove(order.ID)
		grp.Go(func() error {
			done := make(chan gateway.Result, 1)
			err := o.exchange.CancelOrder(ctx, order.ID, func(res gateway.Result) {
				done <- res
			})
			if err != nil {
				log.Warn("cancel request failed", "order_id", order.ID, "error", err)
				return nil
			}
			res := <-done
			if !res.OK() {
				log.Warn("cancel rejected", "order_id", order.ID, "value", string(res.Value))
				return nil
			}
			o.metrics.OrdersCancelled.Inc()
			log.Debug("order cancelled", "order_id", order.ID)
			return nil
		})
	}
	_ = grp.Wait()
}

// placeQuote submits the applicable sides concurrently and waits until every
// placement settles, successfully or not.
func (o *Orchestrator) placeQuote(ctx context.Context, q quote.Quote, log core.ILogger) {
	group := o.pool.Group()

	if q.HasBuy {
		group.Submit(func() {
			o.placeSide(ctx, core.SideBuy, q.BuyPrice, q.BuySize, log)
		})
	}
	if q.HasSell {
		group.Submit(func() {
			o.placeSide(ctx, core.SideSell, q.SellPrice, q.SellSize, log)
		})
	}
	group.Wait()
}

func (o *Orchestrator) placeSide(ctx context.Context, side core.Side, price core.Price, size decimal.Decimal, log core.ILogger) {
	done := make(chan gateway.Result, 1)
	err := o.exchange.PlaceOrder(ctx, o.instrument, price, size, o.orderType, o.timeInForce, side, func(res gateway.Result) {
		done <- res
	})
	if err != nil {
		log.Warn("place request failed", "side", string(side), "error", err)
		return
	}
	res := <-done
	if !res.OK() {
		o.metrics.OrdersRejected.Inc()
		log.Warn("order rejected",
			"side", string(side), "price", price.String(), "value", string(res.Value))
		return
	}
	o.metrics.OrdersPlaced.Inc()
	log.Info("order placed",
		"side", string(side), "price", price.String(), "size", size.String())
}

// Shutdown closes the gate, waits for any in-flight round and issues one
// final cancel-all before returning.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	o.stopTrading = true
	o.mu.Unlock()

	o.rounds.Wait()

	log := o.logger.WithField("round_id", uuid.NewString())
	o.cancelAll(ctx, log)
	o.pool.StopAndWait()
	o.logger.Info("trading stopped")
}
