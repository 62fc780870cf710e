package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency string
		want     int64
	}{
		{"positive cents", 1234, USD, 1234},
		{"zero", 0, USD, 0},
		{"negative cents", -5000, USD, -5000},
		{"pesos", 16000000, ARS, 16000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.cents, tt.currency)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     int64
	}{
		{"precise decimal", "123.45", USD, 12345},
		{"many decimals", "99.999", USD, 10000},
		{"whole number", "500", ARS, 50000},
		{"negative", "-25.50", USD, -2550},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := decimal.NewFromString(tt.amount)
			m := NewFromDecimal(d, tt.currency)
			assert.Equal(t, tt.want, m.Amount())
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$98,50", "98.5"},
		{"$1.234,56", "1234.56"},
		{"$ 12.345.678,9", "12345678.9"},
		{"U$S 200,00", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in, true)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "1234.50", New(123450, ARS).String())
	assert.Equal(t, "0.05", New(5, USD).String())
	var nilMoney *Money
	assert.Equal(t, "0.00", nilMoney.String())
}

func TestConvertQuoted(t *testing.T) {
	t.Run("pesos to dollars", func(t *testing.T) {
		salary := New(16000000, ARS) // 160000.00
		usd := salary.ConvertQuoted(USD, decimal.NewFromInt(200))
		require.NotNil(t, usd)
		assert.Equal(t, USD, usd.Currency())
		assert.Equal(t, int64(80000), usd.Amount())
	})

	t.Run("rounds to cents", func(t *testing.T) {
		salary := New(10000000, ARS) // 100000.00
		usd := salary.ConvertQuoted(USD, decimal.NewFromInt(3))
		assert.Equal(t, int64(3333333), usd.Amount())
	})

	t.Run("non-positive quote", func(t *testing.T) {
		assert.Nil(t, New(100, ARS).ConvertQuoted(USD, decimal.Zero))
	})
}
