package retailhttp

import (
	"github.com/retailpulse/retailpulse/internal/retail"
)

// TransactionView is the wire form of one transaction, with date and clock
// rendered the way the source records carry them.
type TransactionView struct {
	TransactionID int64   `json:"transaction_id"`
	SaleDate      string  `json:"sale_date"`
	SaleTime      string  `json:"sale_time"`
	CustomerID    int64   `json:"customer_id"`
	Gender        string  `json:"gender"`
	Age           int     `json:"age"`
	Category      string  `json:"category"`
	Quantity      int     `json:"quantity"`
	PricePerUnit  float64 `json:"price_per_unit"`
	COGS          float64 `json:"cogs"`
	TotalSale     float64 `json:"total_sale"`
}

func newTransactionView(tx retail.SalesTransaction) TransactionView {
	return TransactionView{
		TransactionID: tx.TransactionID,
		SaleDate:      tx.SaleDate.Format("2006-01-02"),
		SaleTime:      tx.SaleTime.Format("15:04:05"),
		CustomerID:    tx.CustomerID,
		Gender:        tx.Gender,
		Age:           tx.Age,
		Category:      tx.Category,
		Quantity:      tx.Quantity,
		PricePerUnit:  tx.PricePerUnit,
		COGS:          tx.COGS,
		TotalSale:     tx.TotalSale,
	}
}

func newTransactionViews(rows []retail.SalesTransaction) []TransactionView {
	out := make([]TransactionView, 0, len(rows))
	for _, tx := range rows {
		out = append(out, newTransactionView(tx))
	}
	return out
}

// OverviewView bundles the headline reports for the overview endpoint.
type OverviewView struct {
	CategoryTotals  []retail.CategoryTotal     `json:"category_totals"`
	BestMonths      []retail.MonthlyBest       `json:"best_months"`
	TopCustomers    []retail.CustomerRank      `json:"top_customers"`
	UniqueCustomers []retail.CategoryCustomers `json:"unique_customers"`
	Shifts          []retail.ShiftCount        `json:"shifts"`
}

type loadRequest struct {
	Transactions []loadRecord `json:"transactions"`
}

type loadRecord struct {
	TransactionID int64   `json:"transaction_id"`
	SaleDate      string  `json:"sale_date"`
	SaleTime      string  `json:"sale_time"`
	CustomerID    int64   `json:"customer_id"`
	Gender        string  `json:"gender"`
	Age           int     `json:"age"`
	Category      string  `json:"category"`
	Quantity      int     `json:"quantity"`
	PricePerUnit  float64 `json:"price_per_unit"`
	COGS          float64 `json:"cogs"`
}

// toDomain converts parseable records and collects per-record rejections for
// the rest, mirroring the loader's tolerate-and-report behaviour.
func (req loadRequest) toDomain() ([]retail.SalesTransaction, []retail.RejectedRecord) {
	records := make([]retail.SalesTransaction, 0, len(req.Transactions))
	rejected := []retail.RejectedRecord{}
	for _, rec := range req.Transactions {
		date, err := retail.ParseDate(rec.SaleDate)
		if err != nil {
			rejected = append(rejected, retail.RejectedRecord{TransactionID: rec.TransactionID, Reason: "unparsable sale_date"})
			continue
		}
		clock, err := retail.ParseClock(rec.SaleTime)
		if err != nil {
			rejected = append(rejected, retail.RejectedRecord{TransactionID: rec.TransactionID, Reason: "unparsable sale_time"})
			continue
		}
		records = append(records, retail.SalesTransaction{
			TransactionID: rec.TransactionID,
			SaleDate:      date,
			SaleTime:      clock,
			CustomerID:    rec.CustomerID,
			Gender:        rec.Gender,
			Age:           rec.Age,
			Category:      rec.Category,
			Quantity:      rec.Quantity,
			PricePerUnit:  rec.PricePerUnit,
			COGS:          rec.COGS,
		})
	}
	return records, rejected
}
