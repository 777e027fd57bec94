package quote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoter/internal/core"
	"quoter/internal/logging"
)

var tick = core.NewPrice(1, -2)

func newTestEngine(t *testing.T, interest, shift, size, maxPos string) *Engine {
	t.Helper()
	return NewEngine(
		decimal.RequireFromString(interest),
		decimal.RequireFromString(shift),
		decimal.RequireFromString(size),
		decimal.RequireFromString(maxPos),
		logging.NewNop(),
	)
}

func price(mantissa int64) core.Price {
	return core.NewPrice(mantissa, -2)
}

func TestCompute_FlatPosition(t *testing.T) {
	e := newTestEngine(t, "0.05", "0.01", "10", "50")

	q, ok := e.Compute(price(10050), price(10060), true, true, decimal.Zero, tick)
	require.True(t, ok)

	require.True(t, q.HasBuy)
	require.True(t, q.HasSell)
	assert.Equal(t, int64(10050), q.BuyPrice.Mantissa)
	assert.Equal(t, int64(10060), q.SellPrice.Mantissa)
	assert.True(t, q.BuySize.Equal(decimal.NewFromInt(10)))
	assert.True(t, q.SellSize.Equal(decimal.NewFromInt(10)))
}

func TestCompute_PositionSkew(t *testing.T) {
	e := newTestEngine(t, "0.05", "0.01", "10", "50")

	// long 20 with shift 0.01 pushes both prices down by 0.20
	q, ok := e.Compute(price(10050), price(10060), true, true, decimal.NewFromInt(20), tick)
	require.True(t, ok)

	assert.Equal(t, int64(10030), q.BuyPrice.Mantissa)
	assert.Equal(t, int64(10040), q.SellPrice.Mantissa)
}

func TestCompute_MidRoundsHalfAwayFromZero(t *testing.T) {
	e := newTestEngine(t, "0.05", "0", "10", "50")

	// mid of 100.50/100.55 is 100.525, rounds to 100.53
	q, ok := e.Compute(price(10050), price(10055), true, true, decimal.Zero, tick)
	require.True(t, ok)

	assert.Equal(t, int64(10048), q.BuyPrice.Mantissa)
	assert.Equal(t, int64(10058), q.SellPrice.Mantissa)
}

func TestCompute_PositionCapDisablesSide(t *testing.T) {
	e := newTestEngine(t, "0.05", "0", "10", "50")

	q, ok := e.Compute(price(10050), price(10060), true, true, decimal.NewFromInt(50), tick)
	require.True(t, ok)
	assert.False(t, q.HasBuy)
	assert.True(t, q.HasSell)

	q, ok = e.Compute(price(10050), price(10060), true, true, decimal.NewFromInt(-50), tick)
	require.True(t, ok)
	assert.True(t, q.HasBuy)
	assert.False(t, q.HasSell)
}

func TestCompute_SizeClippedToHeadroom(t *testing.T) {
	e := newTestEngine(t, "0.05", "0", "10", "50")

	q, ok := e.Compute(price(10050), price(10060), true, true, decimal.NewFromInt(45), tick)
	require.True(t, ok)

	assert.True(t, q.BuySize.Equal(decimal.NewFromInt(5)), "buy size %s", q.BuySize)
	assert.True(t, q.SellSize.Equal(decimal.NewFromInt(10)), "sell size %s", q.SellSize)
}

func TestCompute_EdgeClampedToOneTick(t *testing.T) {
	// interest below half a tick still quotes one tick around the mid
	e := newTestEngine(t, "0.005", "0", "10", "50")

	q, ok := e.Compute(price(10050), price(10060), true, true, decimal.Zero, tick)
	require.True(t, ok)

	assert.Equal(t, int64(10054), q.BuyPrice.Mantissa)
	assert.Equal(t, int64(10056), q.SellPrice.Mantissa)
}

func TestCompute_RejectsCollapsedSpread(t *testing.T) {
	// clamping widens the spread to 0.02 while 2*interest is 0.002,
	// more than one tick apart
	e := newTestEngine(t, "0.001", "0", "10", "50")

	_, ok := e.Compute(price(10050), price(10060), true, true, decimal.Zero, tick)
	assert.False(t, ok)
}

func TestCompute_MixedExponentsNormalized(t *testing.T) {
	e := newTestEngine(t, "0.05", "0", "10", "50")

	q, ok := e.Compute(core.NewPrice(1005, -1), price(10060), true, true, decimal.Zero, tick)
	require.True(t, ok)

	assert.Equal(t, int64(10050), q.BuyPrice.Mantissa)
	assert.Equal(t, int32(-2), q.BuyPrice.Exponent)
	assert.Equal(t, int64(10060), q.SellPrice.Mantissa)
}

func TestCompute_MissingTopOfBook(t *testing.T) {
	e := newTestEngine(t, "0.05", "0", "10", "50")

	_, ok := e.Compute(price(10050), core.Price{}, true, false, decimal.Zero, tick)
	assert.False(t, ok)

	_, ok = e.Compute(core.Price{}, price(10060), false, true, decimal.Zero, tick)
	assert.False(t, ok)
}
