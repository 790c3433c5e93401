package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed count of minor currency units (cents).
type Money int64

const minorPerMajor = 100

var (
	maxMoney = decimal.NewFromInt(math.MaxInt64)
	minMoney = decimal.NewFromInt(math.MinInt64)
)

func (m Money) Add(o Money) (Money, error) {
	if (o > 0 && m > math.MaxInt64-o) || (o < 0 && m < math.MinInt64-o) {
		return 0, ErrAmountOverflow
	}
	return m + o, nil
}

func (m Money) Sub(o Money) (Money, error) {
	if (o < 0 && m > math.MaxInt64+o) || (o > 0 && m < math.MinInt64+o) {
		return 0, ErrAmountOverflow
	}
	return m - o, nil
}

// Mul multiplies by an integer factor, e.g. a unit price by a quantity.
func (m Money) Mul(n int64) (Money, error) {
	if m == 0 || n == 0 {
		return 0, nil
	}
	r := m * Money(n)
	if r/Money(n) != m || (m == -1 && n == math.MinInt64) || (n == -1 && m == math.MinInt64) {
		return 0, ErrAmountOverflow
	}
	return r, nil
}

func (m Money) Neg() (Money, error) {
	if m == math.MinInt64 {
		return 0, ErrAmountOverflow
	}
	return -m, nil
}

func (m Money) IsPositive() bool { return m > 0 }

func (m Money) String() string { return DefaultMoneyFormat.Format(m) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(m), 10)), nil
}

// UnmarshalJSON accepts an integer number of cents or a decimal string in major units ("5.00", "5,00").
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMoney, b)
	}
	*m = Money(n)
	return nil
}

// ParseMoney reads a major-unit amount with at most two fractional digits.
// Both '.' and ',' are accepted as decimal separator.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	if s == "" {
		return 0, ErrInvalidMoney
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	if !d.Round(2).Equal(d) {
		return 0, fmt.Errorf("%w: more than two fractional digits", ErrInvalidMoney)
	}
	cents := d.Shift(2)
	if cents.GreaterThan(maxMoney) || cents.LessThan(minMoney) {
		return 0, ErrAmountOverflow
	}
	return Money(cents.IntPart()), nil
}

type MoneyFormat struct {
	DecimalSeparator string
	Symbol           string
}

var DefaultMoneyFormat = MoneyFormat{DecimalSeparator: ",", Symbol: "€"}

// Format renders m as major and minor units, e.g. "12,34€" or "-0,05€".
func (f MoneyFormat) Format(m Money) string {
	if m < 0 {
		return "-" + f.digits(m)
	}
	return f.digits(m)
}

// FormatSignedDiff always carries an explicit sign; zero renders as "+0,00€".
func (f MoneyFormat) FormatSignedDiff(m Money) string {
	if m < 0 {
		return "-" + f.digits(m)
	}
	return "+" + f.digits(m)
}

func (f MoneyFormat) digits(m Money) string {
	var u uint64
	if m < 0 {
		u = uint64(-(m + 1)) + 1
	} else {
		u = uint64(m)
	}
	sep := f.DecimalSeparator
	if sep == "" {
		sep = DefaultMoneyFormat.DecimalSeparator
	}
	return fmt.Sprintf("%d%s%02d%s", u/minorPerMajor, sep, u%minorPerMajor, f.Symbol)
}
