package money

import (
	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates realistic salary test data using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// Salary generates a monthly gross salary in whole units.
func (g *TestDataGenerator) Salary(currency string) *Money {
	units := int64(g.faker.IntRange(50000, 900000))
	return New(units*100, currency)
}

// Quote generates an exchange quote (local units per dollar) with two decimals.
func (g *TestDataGenerator) Quote(minUnits, maxUnits int) decimal.Decimal {
	cents := g.faker.IntRange(minUnits*100, maxUnits*100)
	return decimal.New(int64(cents), -2)
}

// InflationPercent generates a non-negative monthly inflation percentage with one decimal.
func (g *TestDataGenerator) InflationPercent() decimal.Decimal {
	tenths := g.faker.IntRange(0, 150)
	return decimal.New(int64(tenths), -1)
}

// Bool returns a random boolean.
func (g *TestDataGenerator) Bool() bool {
	return g.faker.Bool()
}
