package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_Cmp(t *testing.T) {
	assert.Equal(t, 0, NewPrice(10050, -2).Cmp(NewPrice(10050, -2)))
	assert.Equal(t, -1, NewPrice(10040, -2).Cmp(NewPrice(10050, -2)))
	assert.Equal(t, 1, NewPrice(10060, -2).Cmp(NewPrice(10050, -2)))

	// mixed exponents compare by value
	assert.Equal(t, 0, NewPrice(1005, -1).Cmp(NewPrice(10050, -2)))
	assert.Equal(t, 1, NewPrice(1006, -1).Cmp(NewPrice(10050, -2)))
}

func TestPrice_Rescale(t *testing.T) {
	p, ok := NewPrice(1005, -1).Rescale(-2)
	require.True(t, ok)
	assert.Equal(t, int64(10050), p.Mantissa)
	assert.Equal(t, int32(-2), p.Exponent)

	// coarser scale only works when divisible
	p, ok = NewPrice(10050, -2).Rescale(-1)
	require.True(t, ok)
	assert.Equal(t, int64(1005), p.Mantissa)

	_, ok = NewPrice(10055, -2).Rescale(-1)
	assert.False(t, ok)

	// same exponent is the identity
	p, ok = NewPrice(42, -2).Rescale(-2)
	require.True(t, ok)
	assert.Equal(t, int64(42), p.Mantissa)
}

func TestPrice_Decimal(t *testing.T) {
	assert.Equal(t, "100.50", NewPrice(10050, -2).Decimal().StringFixed(2))
	assert.Equal(t, "0.01", NewPrice(1, -2).String())
}

func TestPrice_IsZero(t *testing.T) {
	assert.True(t, Price{}.IsZero())
	assert.False(t, NewPrice(1, -2).IsZero())
}
