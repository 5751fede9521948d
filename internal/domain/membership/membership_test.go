package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/domain/pricing"
)

func TestRatesForFallsBackToDefaults(t *testing.T) {
	table := DefaultTable(pricing.DefaultRates, "USD")

	assert.Equal(t, pricing.DefaultRates, table.RatesFor(TierBasic))
	assert.Equal(t, pricing.Rates{ServiceFee: 500, Insurance: 300}, table.RatesFor("PREMIUM"))
	assert.Equal(t, pricing.DefaultRates, table.RatesFor("gold"))
	assert.Equal(t, pricing.DefaultRates, table.RatesFor(""))
	assert.Len(t, table.Plans(), 3)
}

func TestNewTableRejectsInvalidPlans(t *testing.T) {
	_, err := NewTable(pricing.DefaultRates, []Plan{{Tier: "a"}, {Tier: " A "}})
	assert.ErrorIs(t, err, ErrDuplicateTier)

	_, err = NewTable(pricing.DefaultRates, []Plan{{Tier: ""}})
	assert.ErrorIs(t, err, ErrUnknownTier)

	_, err = NewTable(pricing.DefaultRates, []Plan{{Tier: "x", Rates: pricing.Rates{ServiceFee: 20000}}})
	assert.Error(t, err)

	table, err := NewTable(pricing.Rates{ServiceFee: 1200, Insurance: 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, pricing.Rates{ServiceFee: 1200}, table.RatesFor(TierPlus))
}
