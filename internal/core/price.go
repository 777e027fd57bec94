package core

import (
	"github.com/shopspring/decimal"
)

// Price is an exact decimal price: Mantissa * 10^Exponent.
// All trading arithmetic stays in mantissa space; binary floating point is
// never used for comparisons or price math.
type Price struct {
	Mantissa int64 `json:"mantissa"`
	Exponent int32 `json:"exponent"`
}

// NewPrice builds a price from mantissa and exponent.
func NewPrice(mantissa int64, exponent int32) Price {
	return Price{Mantissa: mantissa, Exponent: exponent}
}

// IsZero reports whether the price carries no value. A zero price is used as
// the "no price" marker throughout the book tracker.
func (p Price) IsZero() bool {
	return p.Mantissa == 0
}

// Decimal converts the price to an exact decimal value.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(p.Mantissa, p.Exponent)
}

// Cmp compares two prices exactly. Same-exponent prices compare on the
// mantissa alone; mixed exponents go through decimal to stay exact.
func (p Price) Cmp(other Price) int {
	if p.Exponent == other.Exponent {
		switch {
		case p.Mantissa < other.Mantissa:
			return -1
		case p.Mantissa > other.Mantissa:
			return 1
		default:
			return 0
		}
	}
	return p.Decimal().Cmp(other.Decimal())
}

// Equal reports whether two prices carry the same value, regardless of scale.
func (p Price) Equal(other Price) bool {
	return p.Cmp(other) == 0
}

// Rescale re-expresses the price at the given exponent. Moving to a finer
// scale (smaller exponent) always succeeds; moving to a coarser one succeeds
// only when the value stays exact. The boolean reports success.
func (p Price) Rescale(exponent int32) (Price, bool) {
	if exponent == p.Exponent {
		return p, true
	}
	m := p.Mantissa
	if exponent < p.Exponent {
		for e := p.Exponent; e > exponent; e-- {
			next := m * 10
			if m != 0 && next/10 != m {
				return Price{}, false
			}
			m = next
		}
		return Price{Mantissa: m, Exponent: exponent}, true
	}
	for e := p.Exponent; e < exponent; e++ {
		if m%10 != 0 {
			return Price{}, false
		}
		m /= 10
	}
	return Price{Mantissa: m, Exponent: exponent}, true
}

func (p Price) String() string {
	return p.Decimal().String()
}
