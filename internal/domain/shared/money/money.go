package money

import (
	"math"
	"math/bits"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrInvalidAmount    = errors.New("money: invalid decimal amount")
	ErrOverflow         = errors.New("money: amount out of range")
)

const (
	centsPerUnit = 100
	// BasisPoints is the denominator of a rate expressed in basis points.
	BasisPoints = 10000
)

// Money keeps amounts in integer minor units (cents) to avoid floating point issues.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseDecimal reads a plain decimal such as "49.99" or "-5" into minor units.
// More than two fractional digits are rounded half away from zero.
func ParseDecimal(raw, currency string) (Money, error) {
	cents, err := ParseCents(raw)
	if err != nil {
		return Money{}, err
	}
	return New(cents, currency)
}

func ParseCents(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, errors.Wrap(ErrInvalidAmount, "empty value")
	}
	neg := false
	switch value[0] {
	case '-':
		neg = true
		value = value[1:]
	case '+':
		value = value[1:]
	}
	whole, frac, hasDot := strings.Cut(value, ".")
	if whole == "" && frac == "" {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q", raw)
	}
	if hasDot && frac == "" {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q", raw)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q", raw)
	}
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > (1<<62)/centsPerUnit {
		return 0, errors.Wrapf(ErrInvalidAmount, "%q out of range", raw)
	}
	cents := units * centsPerUnit
	padded := frac + "000"
	cents += int64(padded[0]-'0')*10 + int64(padded[1]-'0')
	if len(frac) > 2 && padded[2] >= '5' {
		cents++
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	sum, ok := addInt64(m.Amount, other.Amount)
	if !ok {
		return Money{}, ErrOverflow
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Multiply fails with ErrOverflow when the product does not fit in int64.
func (m Money) Multiply(times int64) (Money, error) {
	product, ok := mulInt64(m.Amount, times)
	if !ok {
		return Money{}, ErrOverflow
	}
	return Money{Amount: product, Currency: m.Currency}, nil
}

// ApplyRate returns the amount scaled by a rate in basis points, rounded half
// away from zero to the cent.
func (m Money) ApplyRate(bp int64) (Money, error) {
	product, ok := mulInt64(m.Amount, bp)
	half := int64(BasisPoints / 2)
	if !ok || product > math.MaxInt64-half || product < math.MinInt64+half {
		return Money{}, ErrOverflow
	}
	if product < 0 {
		return Money{Amount: -((-product + half) / BasisPoints), Currency: m.Currency}, nil
	}
	return Money{Amount: (product + half) / BasisPoints, Currency: m.Currency}, nil
}

// Percent returns the truncated share of the amount; used for penalties.
// p is clamped to [0, 100].
func (m Money) Percent(p int) Money {
	if p <= 0 {
		return Money{Currency: m.Currency}
	}
	if p > 100 {
		p = 100
	}
	share := m.Amount/100*int64(p) + m.Amount%100*int64(p)/100
	return Money{Amount: share, Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// Decimal formats the amount with exactly two fractional digits.
func (m Money) Decimal() string {
	return FormatCents(m.Amount)
}

func (m Money) String() string {
	if m.Currency == "" {
		return m.Decimal()
	}
	return m.Decimal() + " " + m.Currency
}

func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := cents % centsPerUnit
	out := sign + strconv.FormatInt(cents/centsPerUnit, 10) + "."
	if frac < 10 {
		out += "0"
	}
	return out + strconv.FormatInt(frac, 10)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return errors.Wrapf(ErrCurrencyMismatch, "%s vs %s", m.Currency, other.Currency)
	}
	return nil
}

func addInt64(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	hi, lo := bits.Mul64(absUint64(a), absUint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	if (a < 0) != (b < 0) {
		return -int64(lo), true
	}
	return int64(lo), true
}

func absUint64(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}
