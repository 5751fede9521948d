package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"50", 5000},
		{"49.99", 4999},
		{"49.9", 4990},
		{"0.5", 50},
		{".5", 50},
		{"+12", 1200},
		{"-3.25", -325},
		{" 7 ", 700},
		{"1.005", 101},
		{"1.004", 100},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseCents(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCentsRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "1.", ".", "-", "1,50", "1e3", "12.3.4", "99999999999999999999"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseCents(raw)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestParseDecimalNormalizesCurrency(t *testing.T) {
	m, err := ParseDecimal("10.10", "usd")
	require.NoError(t, err)
	assert.Equal(t, Money{Amount: 1010, Currency: "USD"}, m)

	_, err = ParseDecimal("10", "dollars")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestApplyRateRoundsHalfUp(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		bp     int64
		want   int64
	}{
		{"ten percent of 200.00", 20000, 1000, 2000},
		{"five percent of 200.00", 20000, 500, 1000},
		{"half cent rounds up", 5, 1000, 1},
		{"below half rounds down", 4, 1000, 0},
		{"ten percent of 149.95", 14995, 1000, 1500},
		{"zero rate", 12345, 0, 0},
		{"negative symmetric", -5, 1000, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Must(tt.amount, "USD").ApplyRate(tt.bp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Amount)
			assert.Equal(t, "USD", got.Currency)
		})
	}
}

func TestArithmeticDetectsOverflow(t *testing.T) {
	big := Must(math.MaxInt64/2+1, "USD")

	_, err := big.Multiply(2)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = big.Add(big)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = Must(10_000_000_000_000_000, "USD").ApplyRate(1000)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = Must(math.MinInt64/2-1, "USD").Multiply(2)
	assert.ErrorIs(t, err, ErrOverflow)

	got, err := Must(-250, "USD").Multiply(4)
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), got.Amount)
	got, err = Must(math.MaxInt64/BasisPoints, "USD").ApplyRate(BasisPoints - 1)
	require.NoError(t, err)
	assert.Positive(t, got.Amount)
}

func TestPercentOfLargeAmounts(t *testing.T) {
	assert.Equal(t, int64(math.MaxInt64/100*50+math.MaxInt64%100*50/100), Must(math.MaxInt64, "USD").Percent(50).Amount)
	assert.Equal(t, int64(-333), Must(-1111, "USD").Percent(30).Amount)
	assert.Equal(t, int64(1111), Must(1111, "USD").Percent(150).Amount)
}

func TestAddRequiresSameCurrency(t *testing.T) {
	sum, err := Must(100, "USD").Add(Must(250, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(350), sum.Amount)

	_, err = Must(100, "USD").Add(Must(100, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = Money{Amount: 1}.Sub(Must(1, "USD"))
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestDecimal(t *testing.T) {
	assert.Equal(t, "230.00", Must(23000, "USD").Decimal())
	assert.Equal(t, "0.05", Must(5, "USD").Decimal())
	assert.Equal(t, "-1.50", Must(-150, "USD").Decimal())
	assert.Equal(t, "12.34 EUR", Must(1234, "EUR").String())
}

func TestPercentTruncates(t *testing.T) {
	assert.Equal(t, int64(333), Must(1111, "USD").Percent(30).Amount)
	assert.Equal(t, int64(0), Must(1111, "USD").Percent(0).Amount)
}
