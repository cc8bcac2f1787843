package retail

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/retailpulse/retailpulse/internal/platform/db"
)

// Repository persists retail sales data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var transactionColumns = []string{
	"transaction_id", "sale_date", "sale_time", "customer_id", "gender",
	"age", "category", "quantity", "price_per_unit", "cogs", "total_sale",
}

// InsertTransactions bulk loads validated transactions via COPY. The copy
// runs inside a transaction so a mid-batch failure leaves no partial rows.
func (r *Repository) InsertTransactions(ctx context.Context, rows []SalesTransaction) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("retail repository not initialised")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	var inserted int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"retail_sales"}, transactionColumns,
			pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
				row := rows[i]
				return []any{
					row.TransactionID, row.SaleDate, clockToPg(row.SaleTime), row.CustomerID,
					row.Gender, row.Age, row.Category, row.Quantity, row.PricePerUnit,
					row.COGS, row.TotalSale,
				}, nil
			}))
		inserted = n
		return err
	})
	return inserted, err
}

// ExistingIDs returns the subset of ids already present in the table.
func (r *Repository) ExistingIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("retail repository not initialised")
	}
	out := map[int64]struct{}{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT transaction_id FROM retail_sales WHERE transaction_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteIncomplete removes every row with a missing required field and
// reports how many rows were dropped.
func (r *Repository) DeleteIncomplete(ctx context.Context) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("retail repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM retail_sales
WHERE sale_date IS NULL OR sale_time IS NULL OR customer_id IS NULL
   OR gender IS NULL OR age IS NULL OR category IS NULL OR quantity IS NULL
   OR price_per_unit IS NULL OR cogs IS NULL OR total_sale IS NULL`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// TextRow carries the normalizable fields of one row.
type TextRow struct {
	TransactionID int64
	Gender        string
	Category      string
}

// ListTextFields returns gender and category for every complete row.
func (r *Repository) ListTextFields(ctx context.Context) ([]TextRow, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("retail repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT transaction_id, gender, category FROM retail_sales
WHERE gender IS NOT NULL AND category IS NOT NULL
ORDER BY transaction_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TextRow{}
	for rows.Next() {
		var row TextRow
		if err := rows.Scan(&row.TransactionID, &row.Gender, &row.Category); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTextFields rewrites the normalized text fields of one row.
func (r *Repository) UpdateTextFields(ctx context.Context, id int64, gender, category string) error {
	if r == nil || r.pool == nil {
		return errors.New("retail repository not initialised")
	}
	_, err := r.pool.Exec(ctx, `UPDATE retail_sales SET gender=$2, category=$3 WHERE transaction_id=$1`, id, gender, category)
	return err
}

// ListTransactions reads complete rows matching the filter. Rows with a
// missing required field never surface here, so reports stay on the cleaned
// set even before a cleanse pass persists the deletes.
func (r *Repository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]SalesTransaction, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("retail repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT transaction_id, sale_date, sale_time, customer_id, gender, age, category, quantity, price_per_unit, cogs, total_sale
FROM retail_sales
WHERE sale_date IS NOT NULL AND sale_time IS NOT NULL AND customer_id IS NOT NULL
  AND gender IS NOT NULL AND age IS NOT NULL AND category IS NOT NULL
  AND quantity IS NOT NULL AND price_per_unit IS NOT NULL AND cogs IS NOT NULL AND total_sale IS NOT NULL
  AND ($1::date IS NULL OR sale_date = $1)
  AND ($2::date IS NULL OR (sale_date >= $2 AND sale_date < $2 + INTERVAL '1 month'))
  AND ($3::text IS NULL OR category = $3)
  AND ($4::int IS NULL OR quantity > $4)
  AND ($5::numeric IS NULL OR total_sale > $5)
ORDER BY sale_date ASC, transaction_id ASC`,
		nullDate(filter.Date), nullMonthStart(filter.Month), nullText(filter.Category),
		nullIntPtr(filter.QuantityAbove), nullFloatPtr(filter.TotalAbove))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SalesTransaction{}
	for rows.Next() {
		var tx SalesTransaction
		var clock pgtype.Time
		if err := rows.Scan(&tx.TransactionID, &tx.SaleDate, &clock, &tx.CustomerID,
			&tx.Gender, &tx.Age, &tx.Category, &tx.Quantity, &tx.PricePerUnit,
			&tx.COGS, &tx.TotalSale); err != nil {
			return nil, err
		}
		tx.SaleTime = clockFromPg(clock)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func clockToPg(t time.Time) pgtype.Time {
	micros := int64(t.Hour())*3600_000_000 +
		int64(t.Minute())*60_000_000 +
		int64(t.Second())*1_000_000 +
		int64(t.Nanosecond())/1000
	return pgtype.Time{Microseconds: micros, Valid: true}
}

func clockFromPg(v pgtype.Time) time.Time {
	base := time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(v.Microseconds) * time.Microsecond)
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullMonthStart(ym *YearMonth) any {
	if ym == nil {
		return nil
	}
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

func nullText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullIntPtr(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullFloatPtr(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
