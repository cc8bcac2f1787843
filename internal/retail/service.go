package retail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Store is the backing-store contract the service depends on. The SQL
// repository implements it against PostgreSQL; tests substitute a map-backed
// store.
type Store interface {
	InsertTransactions(ctx context.Context, rows []SalesTransaction) (int64, error)
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
	DeleteIncomplete(ctx context.Context) (int64, error)
	ListTextFields(ctx context.Context) ([]TextRow, error)
	UpdateTextFields(ctx context.Context, id int64, gender, category string) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]SalesTransaction, error)
}

// Service orchestrates load, cleanse and the report battery over the store,
// caching report payloads behind the versioned cache.
type Service struct {
	store     Store
	cache     *Cache
	validator *Validator
	logger    *slog.Logger
}

// NewService wires a Store with the cache helper.
func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, validator: NewValidator(), logger: logger}
}

// Load validates, normalizes and bulk inserts raw transactions. Records that
// violate a domain constraint or reuse a transaction id are collected in the
// summary rather than failing the batch. The input is never mutated.
func (s *Service) Load(ctx context.Context, raw []SalesTransaction) (LoadSummary, error) {
	summary := LoadSummary{BatchID: uuid.NewString()}
	if len(raw) == 0 {
		return summary, nil
	}

	accepted := make([]SalesTransaction, 0, len(raw))
	seen := map[int64]struct{}{}
	ids := make([]int64, 0, len(raw))
	for _, tx := range raw {
		candidate := Normalize(tx)
		if err := s.validator.Check(candidate); err != nil {
			summary.Rejected = append(summary.Rejected, RejectedRecord{
				TransactionID: candidate.TransactionID,
				Reason:        validationReason(err),
			})
			continue
		}
		if _, dup := seen[candidate.TransactionID]; dup {
			summary.Rejected = append(summary.Rejected, RejectedRecord{
				TransactionID: candidate.TransactionID,
				Reason:        ErrDuplicateTransaction.Error(),
			})
			continue
		}
		seen[candidate.TransactionID] = struct{}{}
		ids = append(ids, candidate.TransactionID)
		accepted = append(accepted, candidate)
	}

	existing, err := s.store.ExistingIDs(ctx, ids)
	if err != nil {
		return summary, fmt.Errorf("retail: check existing ids: %w", err)
	}
	if len(existing) > 0 {
		kept := accepted[:0]
		for _, tx := range accepted {
			if _, dup := existing[tx.TransactionID]; dup {
				summary.Rejected = append(summary.Rejected, RejectedRecord{
					TransactionID: tx.TransactionID,
					Reason:        ErrDuplicateTransaction.Error(),
				})
				continue
			}
			kept = append(kept, tx)
		}
		accepted = kept
	}

	inserted, err := s.store.InsertTransactions(ctx, accepted)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return summary, fmt.Errorf("retail: bulk insert: %w", ErrDuplicateTransaction)
		}
		return summary, fmt.Errorf("retail: bulk insert: %w", err)
	}
	summary.Accepted = int(inserted)

	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("cache bump after load", slog.Any("error", err))
	}
	s.logger.Info("bulk load complete",
		slog.String("batch_id", summary.BatchID),
		slog.Int("accepted", summary.Accepted),
		slog.Int("rejected", len(summary.Rejected)))
	return summary, nil
}

// Clean deletes rows with missing required fields and rewrites text fields
// into normalized form. Running it against an already-clean store is a
// no-op, so the pass is idempotent.
func (s *Service) Clean(ctx context.Context) (CleanSummary, error) {
	deleted, err := s.store.DeleteIncomplete(ctx)
	if err != nil {
		return CleanSummary{}, fmt.Errorf("retail: delete incomplete: %w", err)
	}
	summary := CleanSummary{Deleted: deleted}

	rows, err := s.store.ListTextFields(ctx)
	if err != nil {
		return summary, fmt.Errorf("retail: list text fields: %w", err)
	}
	for _, row := range rows {
		gender := NormalizeText(row.Gender)
		category := NormalizeText(row.Category)
		if gender == row.Gender && category == row.Category {
			continue
		}
		if err := s.store.UpdateTextFields(ctx, row.TransactionID, gender, category); err != nil {
			return summary, fmt.Errorf("retail: normalize row %d: %w", row.TransactionID, err)
		}
		summary.Normalized++
	}

	if summary.Deleted > 0 || summary.Normalized > 0 {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("cache bump after cleanse", slog.Any("error", err))
		}
	}
	s.logger.Info("cleanse complete",
		slog.Int64("deleted", summary.Deleted),
		slog.Int("normalized", summary.Normalized))
	return summary, nil
}

// SalesOnDate returns every transaction made on the given day.
func (s *Service) SalesOnDate(ctx context.Context, date time.Time) ([]SalesTransaction, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date required", ErrInvalidArgument)
	}
	var out []SalesTransaction
	err := s.fetch(ctx, keyDailySales(date), &out, func(ctx context.Context) (interface{}, error) {
		return s.store.ListTransactions(ctx, TransactionFilter{Date: &date})
	})
	return out, err
}

// ClothingHighQuantity returns Clothing sales of more than four units within
// the given month.
func (s *Service) ClothingHighQuantity(ctx context.Context, month YearMonth) ([]SalesTransaction, error) {
	if month.Year == 0 || month.Month < time.January || month.Month > time.December {
		return nil, fmt.Errorf("%w: month required", ErrInvalidArgument)
	}
	minQty := 4
	var out []SalesTransaction
	err := s.fetch(ctx, keyClothingBulk(month), &out, func(ctx context.Context) (interface{}, error) {
		return s.store.ListTransactions(ctx, TransactionFilter{
			Month:         &month,
			Category:      "Clothing",
			QuantityAbove: &minQty,
		})
	})
	return out, err
}

// TotalsByCategory sums sales and orders per category.
func (s *Service) TotalsByCategory(ctx context.Context) ([]CategoryTotal, error) {
	var out []CategoryTotal
	err := s.fetch(ctx, keyCategoryTotals(), &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.store.ListTransactions(ctx, TransactionFilter{})
		if err != nil {
			return nil, err
		}
		return TotalsByCategory(rows), nil
	})
	return out, err
}

// AverageAgeForCategory computes the mean buyer age of one category.
func (s *Service) AverageAgeForCategory(ctx context.Context, category string) (CategoryAgeProfile, error) {
	category = NormalizeText(category)
	if category == "" {
		return CategoryAgeProfile{}, fmt.Errorf("%w: category required", ErrInvalidArgument)
	}
	var out CategoryAgeProfile
	err := s.fetch(ctx, keyAverageAge(category), &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.store.ListTransactions(ctx, TransactionFilter{Category: category})
		if err != nil {
			return nil, err
		}
		profile := CategoryAgeProfile{Category: category, Orders: len(rows)}
		if avg, ok := AverageAge(rows); ok {
			profile.AverageAge = &avg
		}
		return profile, nil
	})
	return out, err
}

// HighValueTransactions returns transactions whose total exceeds the
// caller-supplied threshold. The threshold is a parameter on purpose: the
// source material disagrees on the boundary, so no constant is baked in.
func (s *Service) HighValueTransactions(ctx context.Context, threshold float64) ([]SalesTransaction, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: threshold must be finite", ErrInvalidArgument)
	}
	var out []SalesTransaction
	err := s.fetch(ctx, keyHighValue(threshold), &out, func(ctx context.Context) (interface{}, error) {
		return s.store.ListTransactions(ctx, TransactionFilter{TotalAbove: &threshold})
	})
	return out, err
}

// CountsByGenderCategory counts orders per (gender, category) pair.
func (s *Service) CountsByGenderCategory(ctx context.Context) ([]GenderCategoryCount, error) {
	var out []GenderCategoryCount
	err := s.fetch(ctx, keyGenderCategory(), &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.store.ListTransactions(ctx, TransactionFilter{})
		if err != nil {
			return nil, err
		}
		return CountsByGenderCategory(rows), nil
	})
	return out, err
}

// BestMonthPerYear returns the best-selling month of every year on record.
func (s *Service) BestMonthPerYear(ctx context.Context) ([]MonthlyBest, error) {
	var out []MonthlyBest
	err := s.fetch(ctx, keyBestMonth(), &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.store.ListTransactions(ctx, TransactionFilter{})
		if err != nil {
			return nil, err
		}
		return BestMonthPerYear(rows), nil
	})
	return out, err
}

// TopCustomersBySales ranks the n biggest customers by total sales.
func (s *Service) TopCustomersBySales(ctx context.Context, n int) ([]CustomerRank, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidArgument)
	}
	var out []CustomerRank
	err := s.fetch(ctx, keyTopCustomers(n), &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.store.ListTransactions(ctx, TransactionFilter{})
		if err != nil {
			return nil, err
		}
		return TopCustomers(rows, n), nil
	})
	return out, err
}

// UniqueCustomersPerCategory counts distinct buyers per category.
func (s *Service) UniqueCustomersPerCategory(ctx context.Context) ([]CategoryCustomers, error) {
	var out []CategoryCustomers
	err := s.fetch(ctx, keyUniqueCustomers(), &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.store.ListTransactions(ctx, TransactionFilter{})
		if err != nil {
			return nil, err
		}
		return UniqueCustomersPerCategory(rows), nil
	})
	return out, err
}

// OrdersByShift counts orders per time-of-day bucket.
func (s *Service) OrdersByShift(ctx context.Context) ([]ShiftCount, error) {
	var out []ShiftCount
	err := s.fetch(ctx, keyShifts(), &out, func(ctx context.Context) (interface{}, error) {
		rows, err := s.store.ListTransactions(ctx, TransactionFilter{})
		if err != nil {
			return nil, err
		}
		return OrdersByShift(rows), nil
	})
	return out, err
}

func (s *Service) fetch(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	versioned, err := s.cache.BuildKey(ctx, key)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, versioned, dest, loader)
}

func validationReason(err error) string {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		return "field " + fe.Field() + " fails " + fe.Tag() + ruleParam(fe.Param())
	}
	return err.Error()
}

func ruleParam(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}
