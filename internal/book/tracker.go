// Package book maintains the local mirror of the exchange order book and the
// cached best quotes derived from it.
package book

import (
	"sync"

	"github.com/tidwall/btree"

	"quoter/internal/core"
)

// BestQuoteFunc is fired when the numeric value of the best bid or best ask
// actually changes. An invalid side is reported as ok=false.
type BestQuoteFunc func(bestBid core.Price, bidOK bool, bestAsk core.Price, askOK bool)

// Tracker applies incremental per-side deltas and keeps the best bid/ask
// cached. Sides are btrees ordered best-first, so the best quote is always
// the minimum item.
type Tracker struct {
	mu sync.Mutex

	bids *btree.BTreeG[core.BookLevel]
	asks *btree.BTreeG[core.BookLevel]

	bestBid    core.Price
	bestBidSet bool
	bestAsk    core.Price
	bestAskSet bool

	// last values reported through onBestChange
	prevBid    core.Price
	prevBidSet bool
	prevAsk    core.Price
	prevAskSet bool

	logger       core.ILogger
	onBestChange BestQuoteFunc
}

// NewTracker creates an empty tracker. onBestChange may be nil.
func NewTracker(logger core.ILogger, onBestChange BestQuoteFunc) *Tracker {
	return &Tracker{
		bids:         newBidTree(),
		asks:         newAskTree(),
		logger:       logger.WithField("component", "book"),
		onBestChange: onBestChange,
	}
}

// Sorted highest price first, so Min() is the best bid.
func newBidTree() *btree.BTreeG[core.BookLevel] {
	return btree.NewBTreeG(func(a, b core.BookLevel) bool {
		return a.Price.Cmp(b.Price) > 0
	})
}

// Sorted lowest price first, so Min() is the best ask.
func newAskTree() *btree.BTreeG[core.BookLevel] {
	return btree.NewBTreeG(func(a, b core.BookLevel) bool {
		return a.Price.Cmp(b.Price) < 0
	})
}

// Apply upserts every level of the delta, deleting levels whose size is zero.
// Applying the same delta twice leaves the book unchanged. A delta that
// crosses the book wipes both sides: a crossed book is corrupted local state,
// not a market condition.
func (t *Tracker) Apply(update core.BookUpdate) {
	t.mu.Lock()

	applySide(t.bids, update.Bids)
	applySide(t.asks, update.Asks)

	t.recomputeBestLocked()

	if t.bestBidSet && t.bestAskSet && t.bestBid.Cmp(t.bestAsk) > 0 {
		t.logger.Warn("crossed book detected, resetting both sides",
			"best_bid", t.bestBid.String(), "best_ask", t.bestAsk.String())
		t.bids = newBidTree()
		t.asks = newAskTree()
		t.recomputeBestLocked()
	}

	changed, args := t.collectChangeLocked()
	t.mu.Unlock()

	if changed && t.onBestChange != nil {
		t.onBestChange(args.bid, args.bidOK, args.ask, args.askOK)
	}
}

func applySide(side *btree.BTreeG[core.BookLevel], levels []core.BookLevel) {
	for _, level := range levels {
		if level.Size.IsZero() {
			side.Delete(core.BookLevel{Price: level.Price})
			continue
		}
		side.Set(level)
	}
}

func (t *Tracker) recomputeBestLocked() {
	if best, ok := t.bids.Min(); ok {
		t.bestBid, t.bestBidSet = best.Price, true
	} else {
		t.bestBid, t.bestBidSet = core.Price{}, false
	}
	if best, ok := t.asks.Min(); ok {
		t.bestAsk, t.bestAskSet = best.Price, true
	} else {
		t.bestAsk, t.bestAskSet = core.Price{}, false
	}
}

type bestChange struct {
	bid   core.Price
	bidOK bool
	ask   core.Price
	askOK bool
}

// collectChangeLocked edge-triggers on the cached previous values: an update
// that leaves the top of book numerically unchanged must not re-trigger
// downstream quoting.
func (t *Tracker) collectChangeLocked() (bool, bestChange) {
	changed := t.bestBidSet != t.prevBidSet ||
		t.bestAskSet != t.prevAskSet ||
		(t.bestBidSet && !t.bestBid.Equal(t.prevBid)) ||
		(t.bestAskSet && !t.bestAsk.Equal(t.prevAsk))

	t.prevBid, t.prevBidSet = t.bestBid, t.bestBidSet
	t.prevAsk, t.prevAskSet = t.bestAsk, t.bestAskSet

	return changed, bestChange{bid: t.bestBid, bidOK: t.bestBidSet, ask: t.bestAsk, askOK: t.bestAskSet}
}

// BestBid returns the highest live bid price, if any.
func (t *Tracker) BestBid() (core.Price, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bestBid, t.bestBidSet
}

// BestAsk returns the lowest live ask price, if any.
func (t *Tracker) BestAsk() (core.Price, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bestAsk, t.bestAskSet
}

// Depth returns the number of live levels per side.
func (t *Tracker) Depth() (bids, asks int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bids.Len(), t.asks.Len()
}
