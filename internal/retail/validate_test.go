package retail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	cases := map[string]string{
		"  beauty ":   "Beauty",
		"BEAUTY":      "Beauty",
		"electronics": "Electronics",
		"m":           "M",
		"   ":         "",
		"":            "",
	}
	for in, want := range cases {
		got := NormalizeText(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.Equal(t, got, NormalizeText(got), "normalization must be idempotent for %q", in)
	}
}

func TestNormalizeRecomputesTotal(t *testing.T) {
	raw := tx(1, 1, "2022-01-01", "09:00", " male ", 30, "CLOTHING", 3, 19.99)
	raw.TotalSale = 999 // stale derived value supplied by the caller

	got := Normalize(raw)

	assert.Equal(t, "Male", got.Gender)
	assert.Equal(t, "Clothing", got.Category)
	assert.InDelta(t, 59.97, got.TotalSale, 0.001)
}

func TestValidatorRejectsOutOfDomainRecords(t *testing.T) {
	v := NewValidator()

	valid := tx(1, 1, "2022-01-01", "09:00", "F", 30, "Beauty", 2, 10)
	require.NoError(t, v.Check(valid))

	for name, mutate := range map[string]func(*SalesTransaction){
		"zero transaction id": func(s *SalesTransaction) { s.TransactionID = 0 },
		"zero customer id":    func(s *SalesTransaction) { s.CustomerID = 0 },
		"missing sale date":   func(s *SalesTransaction) { s.SaleDate = time.Time{} },
		"missing sale time":   func(s *SalesTransaction) { s.SaleTime = time.Time{} },
		"age above range":     func(s *SalesTransaction) { s.Age = 150 },
		"negative age":        func(s *SalesTransaction) { s.Age = -1 },
		"negative quantity":   func(s *SalesTransaction) { s.Quantity = -2 },
		"negative price":      func(s *SalesTransaction) { s.PricePerUnit = -1 },
		"blank gender":        func(s *SalesTransaction) { s.Gender = "" },
		"blank category":      func(s *SalesTransaction) { s.Category = "" },
	} {
		t.Run(name, func(t *testing.T) {
			bad := valid
			mutate(&bad)
			assert.Error(t, v.Check(bad))
		})
	}
}

func TestParseHelpersWrapInvalidArgument(t *testing.T) {
	_, err := ParseDate("05/11/2022")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseYearMonth("2022-13")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseClock("25:00")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	clock, err := ParseClock("09:30:15")
	require.NoError(t, err)
	assert.Equal(t, 9, clock.Hour())
	assert.Equal(t, 15, clock.Second())
}
