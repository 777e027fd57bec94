package bootstrap

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"quoter/internal/core"
)

// Channel payload shapes. Every push carries a tagged result; the value layout
// differs per channel.

type wireInstrument struct {
	Status            string     `json:"status"`
	Symbol            string     `json:"symbol"`
	MinPriceIncrement core.Price `json:"minPriceIncrement"`
}

type wireLevel struct {
	Price core.Price      `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

type wireBook struct {
	Bids []wireLevel `json:"bids"`
	Asks []wireLevel `json:"asks"`
}

type wireOrder struct {
	ID            int64           `json:"id"`
	Instrument    int64           `json:"instrument"`
	Status        string          `json:"status"`
	Side          string          `json:"side"`
	Price         core.Price      `json:"price"`
	InitialSize   decimal.Decimal `json:"initialSize"`
	RemainingSize decimal.Decimal `json:"remainingSize"`
	UpdateTime    int64           `json:"updateTime"`
}

func (w wireOrder) toOrder() core.Order {
	return core.Order{
		ID:            w.ID,
		Instrument:    w.Instrument,
		Side:          core.Side(w.Side),
		Status:        core.OrderStatus(w.Status),
		Price:         w.Price,
		InitialSize:   w.InitialSize,
		RemainingSize: w.RemainingSize,
		UpdateTime:    w.UpdateTime,
	}
}

// payloadEnvelope wraps the orders and positions channels, whose value nests
// the useful part under "payload".
type payloadEnvelope struct {
	Payload json.RawMessage `json:"payload"`
}

type wirePosition struct {
	InstrumentID int64           `json:"instrumentId"`
	Size         decimal.Decimal `json:"size"`
}

func bookLevels(levels []wireLevel) []core.BookLevel {
	out := make([]core.BookLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, core.BookLevel{Price: l.Price, Size: l.Size})
	}
	return out
}
