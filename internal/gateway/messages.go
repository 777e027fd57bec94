package gateway

import (
	"encoding/json"

	"quoter/internal/core"
)

// envelope is the client→server RPC frame.
type envelope struct {
	Method int         `json:"method"`
	Params interface{} `json:"params"`
	ID     int64       `json:"id"`
}

// frame is the server→client message: either a correlated response (id set)
// or a channel push carried inside result.
type frame struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
}

type channelPush struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// Result is the tagged outcome of an RPC or channel event.
type Result struct {
	Tag   string          `json:"tag"`
	Value json.RawMessage `json:"value"`
}

// OK reports whether the server tagged the result as successful.
func (r Result) OK() bool {
	return r.Tag == "ok"
}

type channelParams struct {
	Channel string `json:"channel"`
}

// methodParams wraps a named method call for the generic method-call RPC.
type methodParams struct {
	Data methodCall `json:"data"`
}

type methodCall struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

type authParams struct {
	APIKey     string    `json:"apiKey"`
	Time       protoTime `json:"time"`
	HMACDigest string    `json:"hmacDigest"`
}

type protoTime struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

type placeOrderParams struct {
	Instrument  int64       `json:"instrument"`
	Price       core.Price  `json:"price"`
	Size        json.Number `json:"size"`
	Type        string      `json:"type"`
	TimeInForce string      `json:"timeInForce"`
	Side        string      `json:"side"`
}
