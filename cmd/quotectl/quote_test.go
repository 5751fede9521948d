package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carshare/internal/domain/pricing"
	"carshare/internal/domain/shared/money"
)

func runQuote(t *testing.T, args ...string) (string, error) {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC) }
	cmd := newRootCmd(now)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"quote"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestQuoteTable(t *testing.T) {
	out, err := runQuote(t, "--price", "50", "--start", "2025-11-01", "--end", "2025-11-05")
	require.NoError(t, err)
	assert.Contains(t, out, "Days")
	assert.Contains(t, out, "200.00 USD")
	assert.Contains(t, out, "Service fee (0.1)")
	assert.Contains(t, out, "230.00 USD")
}

func TestQuoteJSON(t *testing.T) {
	out, err := runQuote(t, "--price", "50", "--start", "2025-11-01", "--end", "2025-11-05",
		"--service-fee-rate", "0", "--insurance", "25", "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 225.0, got["total"])
	assert.Equal(t, 0.0, got["service_fee"])
	assert.Equal(t, true, got["flat_insurance"])
	assert.NotContains(t, got, "available")
	assert.Contains(t, out, `"total": 225.00`)
}

func TestQuoteRejectsInvalidInput(t *testing.T) {
	_, err := runQuote(t, "--price", "50", "--start", "2025-11-05", "--end", "2025-11-01")
	kind, ok := pricing.KindOf(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, pricing.KindInvalidRange, kind)

	_, err = runQuote(t, "--price", "50", "--start", "2025-11-01", "--end", "2025-11-05", "--insurance-rate", "2")
	kind, _ = pricing.KindOf(err)
	assert.Equal(t, pricing.KindInvalidRate, kind)

	_, err = runQuote(t, "--start", "2025-11-01", "--end", "2025-11-05")
	assert.Error(t, err, "price is required")
}

func TestQuoteRejectsBadCurrency(t *testing.T) {
	_, err := runQuote(t, "--price", "50", "--start", "2025-11-01", "--end", "2025-11-05", "--currency", "US")
	require.ErrorIs(t, err, money.ErrInvalidCurrency)
	_, isValidation := pricing.KindOf(err)
	assert.False(t, isValidation)

	out, err := runQuote(t, "--price", "50", "--start", "2025-11-01", "--end", "2025-11-05", "--currency", "eur")
	require.NoError(t, err)
	assert.Contains(t, out, "230.00 EUR")
}
