// Package quote computes the two-sided quote from the top of book and the
// current position.
package quote

import (
	"github.com/shopspring/decimal"

	"quoter/internal/core"
)

// Quote is one pricing decision. A side may be absent when the position cap
// disables it or its clipped size is not positive.
type Quote struct {
	HasBuy   bool
	BuyPrice core.Price
	BuySize  decimal.Decimal

	HasSell   bool
	SellPrice core.Price
	SellSize  decimal.Decimal
}

// Empty reports whether the quote has no placeable side.
func (q Quote) Empty() bool {
	return !q.HasBuy && !q.HasSell
}

// Engine holds the static pricing parameters. It is stateless between calls;
// every input that changes lives in the book and the ledger.
type Engine struct {
	interest    decimal.Decimal
	shift       decimal.Decimal
	quoteSize   decimal.Decimal
	maxPosition decimal.Decimal

	logger core.ILogger
}

// NewEngine creates a pricing engine. interest is the half-spread, shift the
// per-unit position skew, maxPosition the absolute position cap.
func NewEngine(interest, shift, quoteSize, maxPosition decimal.Decimal, logger core.ILogger) *Engine {
	return &Engine{
		interest:    interest,
		shift:       shift,
		quoteSize:   quoteSize,
		maxPosition: maxPosition,
		logger:      logger.WithField("component", "quote"),
	}
}

// Compute derives the quote for the given top of book and position. The
// second return is false when no quote can be produced: missing or invalid
// top of book, or a spread that the tick rounding collapsed.
func (e *Engine) Compute(bestBid, bestAsk core.Price, bidOK, askOK bool, position decimal.Decimal, tick core.Price) (Quote, bool) {
	if !bidOK || !askOK {
		return Quote{}, false
	}

	// normalize both sides to the finer exponent before averaging
	exponent := bestBid.Exponent
	if bestAsk.Exponent < exponent {
		exponent = bestAsk.Exponent
	}
	if tick.Exponent < exponent {
		exponent = tick.Exponent
	}
	bid, ok := bestBid.Rescale(exponent)
	if !ok {
		return Quote{}, false
	}
	ask, ok := bestAsk.Rescale(exponent)
	if !ok {
		return Quote{}, false
	}
	tickAtScale, ok := tick.Rescale(exponent)
	if !ok || tickAtScale.Mantissa <= 0 {
		return Quote{}, false
	}

	tickDec := tickAtScale.Decimal()
	mid := roundToTick(bid.Decimal().Add(ask.Decimal()).Div(two), tickDec)

	// the edge can never be tighter than one tick
	edge := e.interest
	if edge.LessThan(tickDec) {
		edge = tickDec
	}
	skew := e.shift.Mul(position)

	buy := roundToTick(mid.Sub(edge).Sub(skew), tickDec)
	sell := roundToTick(mid.Add(edge).Sub(skew), tickDec)

	// rounding must not have collapsed the spread: sell-buy has to match
	// twice the configured interest to within one tick
	spreadError := sell.Sub(buy).Sub(e.interest.Mul(two)).Abs()
	if spreadError.GreaterThan(tickDec) {
		e.logger.Warn("quote rejected, spread collapsed by rounding",
			"buy", buy.String(), "sell", sell.String())
		return Quote{}, false
	}

	q := Quote{
		HasBuy:    position.LessThan(e.maxPosition),
		BuyPrice:  priceAt(buy, exponent),
		BuySize:   clipSize(e.quoteSize, e.maxPosition.Sub(position)),
		HasSell:   position.GreaterThan(e.maxPosition.Neg()),
		SellPrice: priceAt(sell, exponent),
		SellSize:  clipSize(e.quoteSize, e.maxPosition.Add(position)),
	}
	if !q.BuySize.IsPositive() {
		q.HasBuy = false
	}
	if !q.SellSize.IsPositive() {
		q.HasSell = false
	}
	return q, !q.Empty()
}

var two = decimal.NewFromInt(2)

// roundToTick snaps x to the nearest tick multiple, half away from zero.
func roundToTick(x, tick decimal.Decimal) decimal.Decimal {
	return x.Div(tick).Round(0).Mul(tick)
}

// clipSize caps the quote size by the remaining position headroom.
func clipSize(size, headroom decimal.Decimal) decimal.Decimal {
	if headroom.LessThan(size) {
		return headroom
	}
	return size
}

// priceAt converts a tick-aligned decimal back to the wire representation.
func priceAt(value decimal.Decimal, exponent int32) core.Price {
	return core.Price{Mantissa: value.Shift(-exponent).IntPart(), Exponent: exponent}
}
