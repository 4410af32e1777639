package parking

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{"5", 500},
		{"5.0", 500},
		{"8.50", 850},
		{"0.07", 7},
		{".5", 50},
		{" 12.34 ", 1234},
	}

	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseMoneyRejects(t *testing.T) {
	for _, in := range []string{
		"", ".", "-1", "+2", "1.234", "1.", "abc", "1,50",
		"0.-5", "1.-5", "1.+5", "-0.50", "1 .50",
		"92233720368547758.08", "99999999999999999999",
	} {
		_, err := ParseMoney(in)
		assert.True(t, errors.Is(err, ErrInvalidRate), "input %q", in)
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Rate  Money `json:"rate"`
		Hours Hours `json:"hours"`
	}{Rate: 3000, Hours: WholeHours(3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rate":30.00,"hours":3.00}`, string(data))

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":7.5,"b":"12.25"}`), &in))
	assert.Equal(t, Money(750), in.A)
	assert.Equal(t, Money(1225), in.B)
}

func TestParseMoneyUpperBound(t *testing.T) {
	m, err := ParseMoney("92233720368547757.99")
	require.NoError(t, err)
	assert.Equal(t, Money(9223372036854775799), m)
	assert.Equal(t, "92233720368547757.99", m.String())
}

func TestMoneyStringNegative(t *testing.T) {
	assert.Equal(t, "-0.05", Money(-5).String())
	assert.Equal(t, "-92233720368547758.08", Money(math.MinInt64).String())
}

func TestMoneyFromFloat(t *testing.T) {
	m, err := MoneyFromFloat(8.0)
	require.NoError(t, err)
	assert.Equal(t, Money(800), m)

	_, err = MoneyFromFloat(-0.01)
	assert.Error(t, err)
}
