package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountRendersTwoDecimals(t *testing.T) {
	payload, err := json.Marshal(map[string]Amount{"total": 23000, "fee": 5, "neg": -150})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fee":0.05,"neg":-1.50,"total":230.00}`, string(payload))
	assert.Contains(t, string(payload), `"total":230.00`)
}

func TestAmountAcceptsNumbersAndStrings(t *testing.T) {
	var body struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 49.99, "b": "15"}`), &body))
	assert.Equal(t, Amount(4999), body.A)
	assert.Equal(t, Amount(1500), body.B)

	assert.Error(t, json.Unmarshal([]byte(`{"a": "cheap"}`), &body))
}
