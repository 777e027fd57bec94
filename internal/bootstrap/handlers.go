package bootstrap

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"quoter/internal/core"
	"quoter/internal/gateway"
	apperrors "quoter/pkg/errors"
)

// The startup chain mirrors the subscription order required to boot safely:
// position first (when seeded from the exchange), then instrument metadata,
// then own orders, then the order book. Trading opens only after the orders
// channel is live.

func (a *App) onAuth(res gateway.Result) {
	if !res.OK() {
		a.fail(fmt.Errorf("%w: %s", apperrors.ErrAuthenticationFailed, string(res.Value)))
		return
	}
	a.logger.Info("authenticated")

	if a.cfg.Trading.ReadInitialPositionFromExchange {
		if err := a.gw.Subscribe(core.ChannelPositions, a.onPositions); err != nil {
			a.fail(err)
		}
		return
	}

	a.ledger.SeedPosition(a.cfg.Trading.InitialPositionDec())
	a.metrics.Position.Set(a.cfg.Trading.InitialPosition)
	if err := a.gw.Subscribe(core.ChannelInstruments, a.onInstruments); err != nil {
		a.fail(err)
	}
}

// onPositions seeds the position from the first snapshot, then drops the
// subscription: position is tracked from fills afterwards.
func (a *App) onPositions(data json.RawMessage) {
	var res gateway.Result
	if err := json.Unmarshal(data, &res); err != nil || !res.OK() {
		return
	}

	var env payloadEnvelope
	if err := json.Unmarshal(res.Value, &env); err != nil {
		return
	}

	size, found := a.findPosition(env.Payload)

	a.seedOnce.Do(func() {
		if found {
			a.ledger.SeedPosition(size)
			a.metrics.Position.Set(size.InexactFloat64())
		} else {
			a.logger.Info("no exchange position for instrument, starting flat")
		}
		if err := a.gw.Subscribe(core.ChannelInstruments, a.onInstruments); err != nil {
			a.fail(err)
			return
		}
		if err := a.gw.Unsubscribe(core.ChannelPositions); err != nil {
			a.logger.Warn("positions unsubscribe failed", "error", err)
		}
	})
}

// findPosition handles both payload layouts: a map keyed by instrument id and
// a bare position object.
func (a *App) findPosition(payload json.RawMessage) (decimal.Decimal, bool) {
	var byInstrument map[string]wirePosition
	if err := json.Unmarshal(payload, &byInstrument); err == nil {
		if pos, ok := byInstrument[a.instrumentKey]; ok {
			return pos.Size, true
		}
		return decimal.Zero, false
	}

	var single wirePosition
	if err := json.Unmarshal(payload, &single); err == nil && single.InstrumentID == a.cfg.Trading.InstrumentID {
		return single.Size, true
	}
	return decimal.Zero, false
}

// onInstruments validates that the configured instrument is tradable and
// captures its tick size. Anything else is fatal.
func (a *App) onInstruments(data json.RawMessage) {
	var res gateway.Result
	if err := json.Unmarshal(data, &res); err != nil || !res.OK() {
		return
	}

	var instruments map[string]wireInstrument
	if err := json.Unmarshal(res.Value, &instruments); err != nil {
		a.logger.Warn("undecodable instruments push", "error", err)
		return
	}

	a.instrumentOnce.Do(func() {
		inst, ok := instruments[a.instrumentKey]
		if !ok || inst.Status != core.InstrumentStatusReadyToTrade {
			a.fail(fmt.Errorf("%w: instrument %s status %q",
				apperrors.ErrInstrumentNotTradable, a.instrumentKey, inst.Status))
			return
		}
		a.logger.Info("instrument validated",
			"symbol", inst.Symbol, "tick", inst.MinPriceIncrement.String())
		a.orch.SetTick(inst.MinPriceIncrement)

		if err := a.gw.Subscribe(core.ChannelOrders, a.onOrders); err != nil {
			a.fail(err)
		}
	})
}

// onOrders feeds order events into the ledger. The first push is the
// snapshot of pre-existing orders; it is skipped and instead completes the
// startup chain.
func (a *App) onOrders(data json.RawMessage) {
	first := false
	a.ordersOnce.Do(func() {
		first = true
		if err := a.gw.Subscribe(core.ChannelOrderbook, a.onOrderbook); err != nil {
			a.fail(err)
			return
		}
		a.orch.Start()
	})
	if first {
		return
	}

	var res gateway.Result
	if err := json.Unmarshal(data, &res); err != nil || !res.OK() {
		return
	}

	var env payloadEnvelope
	if err := json.Unmarshal(res.Value, &env); err != nil {
		return
	}

	// the payload is either a single order or a map keyed by order id
	var single wireOrder
	if err := json.Unmarshal(env.Payload, &single); err == nil && single.ID != 0 {
		a.ledger.ProcessOrder(single.toOrder())
		return
	}

	var byID map[string]wireOrder
	if err := json.Unmarshal(env.Payload, &byID); err != nil {
		a.logger.Warn("undecodable orders push", "error", err)
		return
	}
	for _, o := range byID {
		a.ledger.ProcessOrder(o.toOrder())
	}
}

// onOrderbook applies the delta for the configured instrument.
func (a *App) onOrderbook(data json.RawMessage) {
	var res gateway.Result
	if err := json.Unmarshal(data, &res); err != nil || !res.OK() {
		return
	}

	var books map[string]wireBook
	if err := json.Unmarshal(res.Value, &books); err != nil {
		a.logger.Warn("undecodable orderbook push", "error", err)
		return
	}

	delta, ok := books[a.instrumentKey]
	if !ok {
		return
	}
	a.book.Apply(core.BookUpdate{
		Bids: bookLevels(delta.Bids),
		Asks: bookLevels(delta.Asks),
	})
}

// onBestChange publishes the new top of book and requests a quoting round.
func (a *App) onBestChange(bid core.Price, bidOK bool, ask core.Price, askOK bool) {
	if bidOK {
		a.metrics.BestBid.Set(bid.Decimal().InexactFloat64())
	}
	if askOK {
		a.metrics.BestAsk.Set(ask.Decimal().InexactFloat64())
	}
	a.orch.Trigger()
}

// onFill publishes the new position and requests a quoting round so the
// quote re-centers around the moved inventory.
func (a *App) onFill(order core.Order, delta decimal.Decimal) {
	a.metrics.Position.Set(a.ledger.Position().InexactFloat64())
	a.metrics.FilledSize.Add(delta.Abs().InexactFloat64())
	a.logger.Info("position changed",
		"order_id", order.ID, "delta", delta.String(),
		"position", a.ledger.Position().String())
	a.orch.Trigger()
}
