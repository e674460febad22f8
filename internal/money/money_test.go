package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorUnitConversion(t *testing.T) {
	m := FromMinorUnits(500_000)
	assert.Equal(t, "5000.00", m.String())

	minor, err := m.MinorUnits()
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), minor)

	cents := FromMinorUnits(99)
	assert.Equal(t, "0.99", cents.String())
	minor, err = cents.MinorUnits()
	require.NoError(t, err)
	assert.Equal(t, int64(99), minor)
}

func TestMinorUnitsRejectsSubKoboPrecision(t *testing.T) {
	m, err := Parse("10.005")
	require.NoError(t, err)
	_, err = m.MinorUnits()
	assert.ErrorIs(t, err, ErrNotMinorRepresentable)
}

func TestArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 drifts under binary floating point; it must not here.
	a, err := Parse("0.1")
	require.NoError(t, err)
	b, err := Parse("0.2")
	require.NoError(t, err)
	sum := a.Add(b)
	expected, _ := Parse("0.3")
	assert.True(t, sum.Equal(expected), "got %s", sum)

	total := Zero()
	increment, _ := Parse("0.01")
	for i := 0; i < 1000; i++ {
		total = total.Add(increment)
	}
	assert.Equal(t, "10.00", total.String())
}

func TestComparisons(t *testing.T) {
	small := FromUnits(100)
	big := FromUnits(500)
	assert.True(t, small.LessThan(big))
	assert.False(t, big.LessThan(small))
	assert.Equal(t, -1, small.Cmp(big))
	assert.True(t, big.Sub(small).IsPositive())
	assert.True(t, small.Sub(big).IsNegative())
	assert.False(t, Zero().IsPositive())
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount"`
	}

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 5000}`), &p))
	assert.Equal(t, "5000.00", p.Amount.String())

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "99.99"}`), &p))
	assert.Equal(t, "99.99", p.Amount.String())

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 99.99}`, string(out))
}
