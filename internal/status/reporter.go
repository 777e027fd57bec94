// Package status renders a periodic one-look summary of the bot's state.
package status

import (
	"fmt"
	"sort"
	"time"

	"quoter/internal/book"
	"quoter/internal/core"
	"quoter/internal/ledger"
)

// Reporter logs position, top of book and the active orders at a fixed
// interval.
type Reporter struct {
	interval time.Duration
	book     *book.Tracker
	ledger   *ledger.Ledger
	logger   core.ILogger

	stop chan struct{}
	done chan struct{}
}

// NewReporter creates a reporter. The interval is the minimum time between
// two renders.
func NewReporter(interval time.Duration, bk *book.Tracker, led *ledger.Ledger, logger core.ILogger) *Reporter {
	return &Reporter{
		interval: interval,
		book:     bk,
		ledger:   led,
		logger:   logger.WithField("component", "status"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins rendering in the background.
func (r *Reporter) Start() {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.render()
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop halts the reporter and waits for the last render to finish.
func (r *Reporter) Stop() {
	close(r.stop)
	<-r.done
}

func (r *Reporter) render() {
	bid, bidOK := r.book.BestBid()
	ask, askOK := r.book.BestAsk()

	fields := map[string]interface{}{
		"position": r.ledger.Position().String(),
		"best_bid": renderPrice(bid, bidOK),
		"best_ask": renderPrice(ask, askOK),
	}

	orders := r.ledger.OpenOrders()
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	for _, o := range orders {
		fields[fmt.Sprintf("order_%d", o.ID)] = fmt.Sprintf("%s %s @ %s",
			o.Side, o.InitialSize.String(), o.Price.String())
	}

	r.logger.WithFields(fields).Info("status")
}

func renderPrice(p core.Price, ok bool) string {
	if !ok {
		return "n/a"
	}
	return p.String()
}
