// Package core defines the domain types and interfaces shared by every
// component of the quoting bot.
package core

import (
	"github.com/shopspring/decimal"
)

// RPC methods of the exchange websocket API.
const (
	MethodChannelSubscribe   = 1
	MethodChannelUnsubscribe = 2
	MethodCall               = 9
)

// Channels pushed by the exchange.
const (
	ChannelInstruments = "instruments"
	ChannelOrderbook   = "orderbook"
	ChannelOrders      = "orders"
	ChannelPositions   = "positions"
)

// InstrumentStatusReadyToTrade marks an instrument as tradable.
const InstrumentStatusReadyToTrade = "READY_TO_TRADE"

// Side of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderStatus as reported on the orders channel.
// FILLED and CANCELLED are terminal.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// Terminal reports whether the status ends the order lifecycle.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// Order types accepted by the exchange.
const (
	OrderTypeLimit    = "LIMIT"
	OrderTypePostOnly = "POST_ONLY"
)

// Time-in-force values accepted by the exchange.
const (
	TimeInForceGTC = "GTC"
	TimeInForceIOC = "IOC"
	TimeInForceFOK = "FOK"
)

// Instrument holds the static per-instrument metadata fetched once at startup.
type Instrument struct {
	ID                int64  `json:"id"`
	Symbol            string `json:"symbol"`
	Status            string `json:"status"`
	MinPriceIncrement Price  `json:"minPriceIncrement"`
}

// Order is one exchange order as pushed on the orders channel.
// UpdateTime is unix seconds.
type Order struct {
	ID            int64           `json:"id"`
	Instrument    int64           `json:"instrument"`
	Side          Side            `json:"side"`
	Status        OrderStatus     `json:"status"`
	Price         Price           `json:"price"`
	InitialSize   decimal.Decimal `json:"initialSize"`
	RemainingSize decimal.Decimal `json:"remainingSize"`
	UpdateTime    int64           `json:"updateTime"`
}

// BookLevel is one price level on one side of the book. Size zero means the
// level is deleted.
type BookLevel struct {
	Price Price           `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// BookUpdate is the incremental per-side delta pushed on the orderbook channel.
type BookUpdate struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}
