package model

import (
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// Scale is the number of decimal places carried by Price and Notional.
const Scale = 3

var scaleFactor = decimal.New(1, Scale)

// Price is a last/open/high/low price scaled by 10^Scale.
type Price int64

func (p Price) AppendString(buf []byte) []byte {
	return appendScaledInt(buf, int64(p), Scale)
}

func (p Price) String() string {
	return string(p.AppendString(nil))
}

func (p Price) Float64() float64 {
	return float64(p) / 1000
}

// ParsePrice converts a decimal string into a scaled Price without float rounding.
func ParsePrice(s string) (Price, error) {
	v, err := parseScaled(s)
	return Price(v), err
}

// PriceFromFloat rounds a vendor float to the nearest scaled unit.
func PriceFromFloat(f float64) Price {
	return Price(decimal.NewFromFloat(f).Mul(scaleFactor).Round(0).IntPart())
}

// Quantity is a volume in shares or contracts. It is not scaled.
type Quantity int64

func (q Quantity) AppendString(buf []byte) []byte {
	return strconv.AppendInt(buf, int64(q), 10)
}

// ParseQuantity parses an integer volume; a fractional part is truncated.
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrap(err, "parse quantity").With("value", s)
	}
	return Quantity(d.IntPart()), nil
}

// Notional is a turnover amount scaled by 10^Scale.
type Notional int64

func (n Notional) AppendString(buf []byte) []byte {
	return appendScaledInt(buf, int64(n), Scale)
}

func (n Notional) String() string {
	return string(n.AppendString(nil))
}

// ParseNotional converts a decimal string into a scaled Notional.
func ParseNotional(s string) (Notional, error) {
	v, err := parseScaled(s)
	return Notional(v), err
}

func parseScaled(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrap(err, "parse decimal").With("value", s)
	}
	return d.Mul(scaleFactor).Round(0).IntPart(), nil
}

func appendScaledInt(buf []byte, value int64, scale int) []byte {
	if scale <= 0 {
		return strconv.AppendInt(buf, value, 10)
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return buf
	}

	idx := len(digits) - scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return buf
}
