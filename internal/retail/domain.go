// Package retail implements the sales reporting pipeline: bulk load of
// retail transactions, the cleansing pass, and the aggregate reports.
package retail

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the retail domain.
var (
	// ErrInvalidArgument indicates a report received an out-of-domain parameter.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateTransaction indicates a transaction id already loaded.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
)

// SalesTransaction is one retail sale line item.
type SalesTransaction struct {
	TransactionID int64     `json:"transaction_id" validate:"required,gt=0"`
	SaleDate      time.Time `json:"sale_date" validate:"required"`
	SaleTime      time.Time `json:"sale_time" validate:"required"`
	CustomerID    int64     `json:"customer_id" validate:"required,gt=0"`
	Gender        string    `json:"gender" validate:"required"`
	Age           int       `json:"age" validate:"gte=0,lte=120"`
	Category      string    `json:"category" validate:"required"`
	Quantity      int       `json:"quantity" validate:"gte=0"`
	PricePerUnit  float64   `json:"price_per_unit" validate:"gte=0"`
	COGS          float64   `json:"cogs" validate:"gte=0"`
	TotalSale     float64   `json:"total_sale"`
}

// Shift is the coarse time-of-day bucket a sale falls into.
type Shift string

const (
	ShiftMorning   Shift = "Morning"
	ShiftAfternoon Shift = "Afternoon"
	ShiftEvening   Shift = "Evening"
)

// ShiftFor buckets a clock time: Morning before 12:00, Afternoon from 12:00
// up to 17:00, Evening from 17:00 onwards.
func ShiftFor(t time.Time) Shift {
	switch h := t.Hour(); {
	case h < 12:
		return ShiftMorning
	case h < 17:
		return ShiftAfternoon
	default:
		return ShiftEvening
	}
}

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses the YYYY-MM form used by report parameters.
func ParseYearMonth(value string) (YearMonth, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: month %q", ErrInvalidArgument, value)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// ParseDate parses the YYYY-MM-DD form used by report parameters.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidArgument, value)
	}
	return t, nil
}

// ParseClock parses a time-of-day in HH:MM or HH:MM:SS form.
func ParseClock(value string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidArgument, value)
}

// Contains reports whether a sale date falls within the month.
func (ym YearMonth) Contains(date time.Time) bool {
	return date.Year() == ym.Year && date.Month() == ym.Month
}

// String renders the YYYY-MM form.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// TransactionFilter narrows the rows a repository read returns. Nil/zero
// fields are ignored. QuantityAbove and TotalAbove are exclusive bounds:
// only rows strictly greater than the value match.
type TransactionFilter struct {
	Date          *time.Time
	Month         *YearMonth
	Category      string
	QuantityAbove *int
	TotalAbove    *float64
}

// RejectedRecord describes one input record excluded during load.
type RejectedRecord struct {
	TransactionID int64  `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// LoadSummary reports the outcome of one bulk load.
type LoadSummary struct {
	BatchID  string           `json:"batch_id"`
	Accepted int              `json:"accepted"`
	Rejected []RejectedRecord `json:"rejected,omitempty"`
}

// CleanSummary reports the outcome of one cleansing pass.
type CleanSummary struct {
	Deleted    int64 `json:"deleted"`
	Normalized int   `json:"normalized"`
}

// CategoryTotal aggregates net sales and order count for one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	NetSales float64 `json:"net_sales"`
	Orders   int     `json:"orders"`
}

// GenderCategoryCount counts orders for one (gender, category) pair.
type GenderCategoryCount struct {
	Gender   string `json:"gender"`
	Category string `json:"category"`
	Orders   int    `json:"orders"`
}

// MonthlyBest is the best-selling month of one calendar year, ranked by
// average sale value.
type MonthlyBest struct {
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	AvgSale  float64 `json:"avg_sale"`
	NetSales float64 `json:"net_sales"`
	Orders   int     `json:"orders"`
}

// CustomerRank is one entry of the top-customer leaderboard.
type CustomerRank struct {
	CustomerID int64   `json:"customer_id"`
	TotalSales float64 `json:"total_sales"`
	Orders     int     `json:"orders"`
}

// CategoryAgeProfile reports the average buyer age of one category.
// AverageAge is nil when no orders match.
type CategoryAgeProfile struct {
	Category   string   `json:"category"`
	AverageAge *float64 `json:"average_age"`
	Orders     int      `json:"orders"`
}

// CategoryCustomers counts distinct buyers of one category.
type CategoryCustomers struct {
	Category        string `json:"category"`
	UniqueCustomers int    `json:"unique_customers"`
}

// ShiftCount counts orders in one time-of-day bucket.
type ShiftCount struct {
	Shift  Shift `json:"shift"`
	Orders int   `json:"orders"`
}
