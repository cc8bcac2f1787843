package retail

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// NormalizeText trims surrounding whitespace and title-cases a label so
// "  beauty " and "BEAUTY" land on the same category key. Applying it twice
// is a no-op.
func NormalizeText(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(trimmed))
}

// Normalize returns a copy of the transaction with text fields normalized
// and the derived total recomputed from quantity and unit price.
func Normalize(tx SalesTransaction) SalesTransaction {
	tx.Gender = NormalizeText(tx.Gender)
	tx.Category = NormalizeText(tx.Category)
	tx.TotalSale = float64(tx.Quantity) * tx.PricePerUnit
	return tx
}

// Validator checks incoming transactions against the domain constraints.
type Validator struct {
	validate *validator.Validate
}

// NewValidator constructs a Validator instance.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Check validates one transaction. The record must already be normalized;
// a blank gender or category after trimming counts as a missing field.
func (v *Validator) Check(tx SalesTransaction) error {
	return v.validate.Struct(tx)
}
