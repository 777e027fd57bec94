package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"quoter/internal/core"
)

// Authenticate sends the login RPC signed with the shared secret. The handler
// receives the tagged result exactly once.
func (g *Gateway) Authenticate(signer *Signer, handler ResponseHandler) error {
	now := time.Now().Unix()
	params := methodParams{Data: methodCall{
		Method: "loginSessionByApiToken",
		Params: authParams{
			APIKey:     signer.Key(),
			Time:       protoTime{Seconds: now},
			HMACDigest: signer.Sign(now),
		},
	}}
	return g.Send(core.MethodCall, params, handler)
}

// PlaceOrder submits a new order. Order mutations share a rate limiter so a
// quoting storm cannot exceed the exchange request allowance.
func (g *Gateway) PlaceOrder(ctx context.Context, instrument int64, price core.Price, size decimal.Decimal, orderType, timeInForce string, side core.Side, handler ResponseHandler) error {
	if err := g.orderLimiter.Wait(ctx); err != nil {
		return err
	}
	params := methodParams{Data: methodCall{
		Method: "placeOrder",
		Params: placeOrderParams{
			Instrument:  instrument,
			Price:       price,
			Size:        json.Number(size.String()),
			Type:        orderType,
			TimeInForce: timeInForce,
			Side:        string(side),
		},
	}}
	return g.Send(core.MethodCall, params, handler)
}

// CancelOrder cancels a resting order by id.
func (g *Gateway) CancelOrder(ctx context.Context, orderID int64, handler ResponseHandler) error {
	if err := g.orderLimiter.Wait(ctx); err != nil {
		return err
	}
	params := methodParams{Data: methodCall{
		Method: "cancelOrder",
		Params: orderID,
	}}
	return g.Send(core.MethodCall, params, handler)
}
