package retail

import (
	"math"
	"sort"
	"time"
)

// Round2 rounds a currency or average value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MatchesFilter reports whether a transaction satisfies every set field of
// the filter. The SQL repository mirrors these predicates; in-memory stores
// use this function directly.
func MatchesFilter(tx SalesTransaction, f TransactionFilter) bool {
	if f.Date != nil && !sameDay(tx.SaleDate, *f.Date) {
		return false
	}
	if f.Month != nil && !f.Month.Contains(tx.SaleDate) {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.QuantityAbove != nil && tx.Quantity <= *f.QuantityAbove {
		return false
	}
	if f.TotalAbove != nil && tx.TotalSale <= *f.TotalAbove {
		return false
	}
	return true
}

// FilterTransactions returns the rows matching the filter, preserving order.
func FilterTransactions(rows []SalesTransaction, f TransactionFilter) []SalesTransaction {
	out := []SalesTransaction{}
	for _, tx := range rows {
		if MatchesFilter(tx, f) {
			out = append(out, tx)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// TotalsByCategory sums net sales and order counts per category, ordered by
// net sales descending. Ties fall back to category name ascending so the
// ordering is deterministic.
func TotalsByCategory(rows []SalesTransaction) []CategoryTotal {
	byCategory := map[string]*CategoryTotal{}
	for _, tx := range rows {
		total, ok := byCategory[tx.Category]
		if !ok {
			total = &CategoryTotal{Category: tx.Category}
			byCategory[tx.Category] = total
		}
		total.NetSales += tx.TotalSale
		total.Orders++
	}
	out := make([]CategoryTotal, 0, len(byCategory))
	for _, total := range byCategory {
		total.NetSales = Round2(total.NetSales)
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetSales != out[j].NetSales {
			return out[i].NetSales > out[j].NetSales
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// AverageAge computes the mean customer age over the rows, rounded to two
// decimals. The second return is false when no rows were supplied.
func AverageAge(rows []SalesTransaction) (float64, bool) {
	if len(rows) == 0 {
		return 0, false
	}
	sum := 0
	for _, tx := range rows {
		sum += tx.Age
	}
	return Round2(float64(sum) / float64(len(rows))), true
}

// CountsByGenderCategory counts orders per (gender, category) pair, ordered
// by gender then category.
func CountsByGenderCategory(rows []SalesTransaction) []GenderCategoryCount {
	type key struct{ gender, category string }
	counts := map[key]int{}
	for _, tx := range rows {
		counts[key{tx.Gender, tx.Category}]++
	}
	out := make([]GenderCategoryCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, GenderCategoryCount{Gender: k.gender, Category: k.category, Orders: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Gender != out[j].Gender {
			return out[i].Gender < out[j].Gender
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// BestMonthPerYear picks, for every calendar year present, the month with
// the highest average sale value. The rank-over-partition of the reference
// queries is realised as an explicit sort: higher average wins, and on equal
// averages the earlier month wins, so the result is deterministic.
func BestMonthPerYear(rows []SalesTransaction) []MonthlyBest {
	type bucket struct {
		total  float64
		orders int
	}
	months := map[YearMonth]*bucket{}
	for _, tx := range rows {
		ym := YearMonth{Year: tx.SaleDate.Year(), Month: tx.SaleDate.Month()}
		b, ok := months[ym]
		if !ok {
			b = &bucket{}
			months[ym] = b
		}
		b.total += tx.TotalSale
		b.orders++
	}
	best := map[int]MonthlyBest{}
	for ym, b := range months {
		candidate := MonthlyBest{
			Year:     ym.Year,
			Month:    int(ym.Month),
			AvgSale:  Round2(b.total / float64(b.orders)),
			NetSales: Round2(b.total),
			Orders:   b.orders,
		}
		current, ok := best[ym.Year]
		if !ok || candidate.AvgSale > current.AvgSale ||
			(candidate.AvgSale == current.AvgSale && candidate.Month < current.Month) {
			best[ym.Year] = candidate
		}
	}
	out := make([]MonthlyBest, 0, len(best))
	for _, mb := range best {
		out = append(out, mb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// TopCustomers ranks customers by total sales descending and returns at most
// n entries. Ties at any position, including the cutoff boundary, break
// toward the lower customer id.
func TopCustomers(rows []SalesTransaction, n int) []CustomerRank {
	totals := map[int64]*CustomerRank{}
	for _, tx := range rows {
		rank, ok := totals[tx.CustomerID]
		if !ok {
			rank = &CustomerRank{CustomerID: tx.CustomerID}
			totals[tx.CustomerID] = rank
		}
		rank.TotalSales += tx.TotalSale
		rank.Orders++
	}
	out := make([]CustomerRank, 0, len(totals))
	for _, rank := range totals {
		rank.TotalSales = Round2(rank.TotalSales)
		out = append(out, *rank)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSales != out[j].TotalSales {
			return out[i].TotalSales > out[j].TotalSales
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// UniqueCustomersPerCategory counts distinct buyers per category, ordered by
// category name.
func UniqueCustomersPerCategory(rows []SalesTransaction) []CategoryCustomers {
	seen := map[string]map[int64]struct{}{}
	for _, tx := range rows {
		customers, ok := seen[tx.Category]
		if !ok {
			customers = map[int64]struct{}{}
			seen[tx.Category] = customers
		}
		customers[tx.CustomerID] = struct{}{}
	}
	out := make([]CategoryCustomers, 0, len(seen))
	for category, customers := range seen {
		out = append(out, CategoryCustomers{Category: category, UniqueCustomers: len(customers)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// OrdersByShift counts orders per time-of-day bucket. Buckets with no orders
// are omitted, matching group-by semantics; present buckets keep the
// Morning, Afternoon, Evening order.
func OrdersByShift(rows []SalesTransaction) []ShiftCount {
	counts := map[Shift]int{}
	for _, tx := range rows {
		counts[ShiftFor(tx.SaleTime)]++
	}
	out := []ShiftCount{}
	for _, shift := range []Shift{ShiftMorning, ShiftAfternoon, ShiftEvening} {
		if n, ok := counts[shift]; ok {
			out = append(out, ShiftCount{Shift: shift, Orders: n})
		}
	}
	return out
}
