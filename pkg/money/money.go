package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept in minor units.
const Scale = 2

var (
	// ErrEmpty is returned when parsing a blank amount.
	ErrEmpty = errors.New("amount is empty")
	// ErrNotNumeric is returned when the input is not a decimal number.
	ErrNotNumeric = errors.New("amount is not numeric")
	// ErrOutOfRange is returned when the amount does not fit in int64 minor units.
	ErrOutOfRange = errors.New("amount is out of range")
)

// MaxAmount is the largest magnitude accepted at any parse or scan boundary.
// Sums of many such amounts still fit in int64 minor units.
const MaxAmount Money = 99_999_999_999_999

var maxMinor = decimal.NewFromInt(int64(MaxAmount))

// fromDecimal converts a decimal already rounded to Scale into minor units.
func fromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(Scale)
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	return Money(minor.IntPart()), nil
}

// Money is an amount expressed in integer minor units (cents).
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// FromCents builds Money from minor units.
func FromCents(cents int64) Money {
	return Money(cents)
}

// FromMajor builds Money from whole currency units.
func FromMajor(units int64) Money {
	return Money(units * 100)
}

// ParseResult carries a parsed amount and whether rounding happened.
type ParseResult struct {
	Value   Money
	Rounded bool
}

// ParseExact parses a decimal string, rounding half away from zero to two places.
// Blank input, NaN, infinities and any non-decimal text are rejected.
func ParseExact(raw string) (ParseResult, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ParseResult{}, ErrEmpty
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	rounded := d.Round(Scale)
	value, err := fromDecimal(rounded)
	if err != nil {
		return ParseResult{}, err
	}
	return ParseResult{Value: value, Rounded: !rounded.Equal(d)}, nil
}

// Parse parses a decimal string into Money.
func Parse(raw string) (Money, error) {
	res, err := ParseExact(raw)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// ParseOrZero parses raw and falls back to zero on any error.
func ParseOrZero(raw string) Money {
	m, err := Parse(raw)
	if err != nil {
		return 0
	}
	return m
}

// MustParse parses raw and panics on failure. Intended for fixtures.
func MustParse(raw string) Money {
	m, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal converts to a decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -Scale)
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(Scale)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m < 0 }

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool { return m > 0 }

// Add returns m + o.
func (m Money) Add(o Money) Money { return m + o }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return m - o }

// Max returns the larger of a and b.
func Max(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// Percentage returns part/whole*100 rounded to two decimals, "0.00" when whole is zero.
func Percentage(part, whole Money) string {
	if whole == 0 {
		return decimal.Zero.StringFixed(Scale)
	}
	return part.Decimal().
		DivRound(whole.Decimal(), 8).
		Mul(decimal.NewFromInt(100)).
		Round(Scale).
		StringFixed(Scale)
}

// ExceedsRatio reports whether part/whole is strictly greater than pct percent.
func ExceedsRatio(part, whole Money, pct int64) bool {
	if whole <= 0 {
		return false
	}
	return int64(part)*100 > int64(whole)*pct
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts decimal strings and bare JSON numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC/TEXT columns.
func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = 0
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case int64:
		parsed, err := fromDecimal(decimal.NewFromInt(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v", ErrNotNumeric, v)
		}
		parsed, err := fromDecimal(decimal.NewFromFloat(v).Round(Scale))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	default:
		return fmt.Errorf("money: unsupported scan type %T", src)
	}
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
