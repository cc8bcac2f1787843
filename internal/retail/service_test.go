package retail

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore keeps transactions in memory and mirrors the repository's read
// semantics via FilterTransactions. Rows with missing required fields are
// tracked separately, matching how reads skip NULL columns.
type mockStore struct {
	rows       map[int64]SalesTransaction
	incomplete map[int64]struct{}
	listCalls  int
}

func newMockStore(rows ...SalesTransaction) *mockStore {
	s := &mockStore{rows: map[int64]SalesTransaction{}, incomplete: map[int64]struct{}{}}
	for _, tx := range rows {
		s.rows[tx.TransactionID] = tx
	}
	return s
}

func (s *mockStore) InsertTransactions(_ context.Context, rows []SalesTransaction) (int64, error) {
	for _, tx := range rows {
		s.rows[tx.TransactionID] = tx
	}
	return int64(len(rows)), nil
}

func (s *mockStore) ExistingIDs(_ context.Context, ids []int64) (map[int64]struct{}, error) {
	out := map[int64]struct{}{}
	for _, id := range ids {
		if _, ok := s.rows[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *mockStore) DeleteIncomplete(_ context.Context) (int64, error) {
	n := int64(len(s.incomplete))
	s.incomplete = map[int64]struct{}{}
	return n, nil
}

func (s *mockStore) ListTextFields(_ context.Context) ([]TextRow, error) {
	out := make([]TextRow, 0, len(s.rows))
	for _, tx := range s.rows {
		out = append(out, TextRow{TransactionID: tx.TransactionID, Gender: tx.Gender, Category: tx.Category})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out, nil
}

func (s *mockStore) UpdateTextFields(_ context.Context, id int64, gender, category string) error {
	tx := s.rows[id]
	tx.Gender = gender
	tx.Category = category
	s.rows[id] = tx
	return nil
}

func (s *mockStore) ListTransactions(_ context.Context, filter TransactionFilter) ([]SalesTransaction, error) {
	s.listCalls++
	all := make([]SalesTransaction, 0, len(s.rows))
	for _, tx := range s.rows {
		all = append(all, tx)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TransactionID < all[j].TransactionID })
	return FilterTransactions(all, filter), nil
}

func newTestService(t *testing.T, store Store) (*Service, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	return NewService(store, cache, nil), cache
}

func TestLoadRejectsInvalidAndDuplicateRecords(t *testing.T) {
	existing := tx(1, 1, "2022-01-01", "09:00", "M", 30, "Beauty", 1, 10)
	store := newMockStore(existing)
	svc, _ := newTestService(t, store)

	overAge := tx(4, 4, "2022-01-04", "09:00", "F", 30, "Beauty", 1, 10)
	overAge.Age = 150
	batch := []SalesTransaction{
		tx(2, 2, "2022-01-02", "09:00", " male ", 28, "CLOTHING", 2, 15),
		tx(2, 2, "2022-01-02", "09:00", "M", 28, "Clothing", 2, 15), // in-batch duplicate
		tx(1, 1, "2022-01-01", "09:00", "M", 30, "Beauty", 1, 10),   // already loaded
		overAge,
	}

	summary, err := svc.Load(context.Background(), batch)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.BatchID)
	assert.Equal(t, 1, summary.Accepted)
	require.Len(t, summary.Rejected, 3)

	reasons := map[int64]string{}
	for _, rej := range summary.Rejected {
		reasons[rej.TransactionID] = rej.Reason
	}
	assert.Contains(t, reasons[4], "Age")
	assert.Equal(t, ErrDuplicateTransaction.Error(), reasons[2])
	assert.Equal(t, ErrDuplicateTransaction.Error(), reasons[1])

	stored := store.rows[2]
	assert.Equal(t, "Male", stored.Gender)
	assert.Equal(t, "Clothing", stored.Category)
	assert.InDelta(t, 30.0, stored.TotalSale, 0.001)
}

func TestLoadEmptyBatch(t *testing.T) {
	svc, _ := newTestService(t, newMockStore())

	summary, err := svc.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Accepted)
	assert.Empty(t, summary.Rejected)
}

func TestCleanIsIdempotent(t *testing.T) {
	messy := tx(1, 1, "2022-01-01", "09:00", "M", 30, "Beauty", 1, 10)
	messy.Gender = " male "
	messy.Category = "BEAUTY"
	clean := tx(2, 2, "2022-01-02", "09:00", "F", 25, "Clothing", 1, 10)
	store := newMockStore(messy, clean)
	store.incomplete[99] = struct{}{}
	svc, _ := newTestService(t, store)

	first, err := svc.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Deleted)
	assert.Equal(t, 1, first.Normalized)
	assert.Equal(t, "Male", store.rows[1].Gender)
	assert.Equal(t, "Beauty", store.rows[1].Category)

	second, err := svc.Clean(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Deleted)
	assert.Zero(t, second.Normalized)
}

func TestReportsServeFromCacheUntilBump(t *testing.T) {
	store := newMockStore(
		tx(1, 1, "2022-01-01", "09:00", "M", 30, "Beauty", 1, 100),
		tx(2, 2, "2022-01-02", "09:00", "F", 25, "Clothing", 2, 40),
	)
	svc, cache := newTestService(t, store)
	ctx := context.Background()

	first, err := svc.TotalsByCategory(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Beauty", first[0].Category)
	assert.Equal(t, 1, store.listCalls)

	cached, err := svc.TotalsByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Equal(t, 1, store.listCalls, "second read must hit the cache")

	require.NoError(t, cache.Bump(ctx))

	_, err = svc.TotalsByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls, "version bump must invalidate the cached report")
}

func TestLoadInvalidatesCachedReports(t *testing.T) {
	store := newMockStore(tx(1, 1, "2022-01-01", "09:00", "M", 30, "Beauty", 1, 100))
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	totals, err := svc.TotalsByCategory(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 1)

	_, err = svc.Load(ctx, []SalesTransaction{
		tx(2, 2, "2022-01-02", "09:00", "F", 25, "Clothing", 2, 40),
	})
	require.NoError(t, err)

	totals, err = svc.TotalsByCategory(ctx)
	require.NoError(t, err)
	assert.Len(t, totals, 2, "totals must reflect rows loaded after caching")
}

func TestMissingSaleTimeExcludedFromShifts(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	complete := tx(1, 1, "2022-01-01", "09:00", "M", 30, "Beauty", 1, 10)
	untimed := tx(2, 2, "2022-01-02", "09:00", "F", 25, "Beauty", 1, 10)
	untimed.SaleTime = time.Time{}

	summary, err := svc.Load(ctx, []SalesTransaction{complete, untimed})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	require.Len(t, summary.Rejected, 1)
	assert.Equal(t, int64(2), summary.Rejected[0].TransactionID)
	assert.Contains(t, summary.Rejected[0].Reason, "SaleTime")

	counts, err := svc.OrdersByShift(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, ShiftCount{Shift: ShiftMorning, Orders: 1}, counts[0])
}

func TestReportArgumentValidation(t *testing.T) {
	svc, _ := newTestService(t, newMockStore())
	ctx := context.Background()

	_, err := svc.SalesOnDate(ctx, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.ClothingHighQuantity(ctx, YearMonth{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.AverageAgeForCategory(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.TopCustomersBySales(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.HighValueTransactions(ctx, math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestClothingHighQuantityScenario(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Load(ctx, []SalesTransaction{
		tx(1, 7, "2022-11-05", "10:00", "M", 34, "Clothing", 5, 20),
		tx(2, 8, "2022-11-06", "10:00", "F", 29, "Clothing", 4, 20),
	})
	require.NoError(t, err)

	month, err := ParseYearMonth("2022-11")
	require.NoError(t, err)

	got, err := svc.ClothingHighQuantity(ctx, month)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].TransactionID)
}

func TestAverageAgeForCategoryScenario(t *testing.T) {
	store := newMockStore(
		tx(1, 1, "2022-01-01", "09:00", "F", 20, "Beauty", 1, 10),
		tx(2, 2, "2022-01-02", "09:00", "F", 30, "Beauty", 1, 10),
		tx(3, 3, "2022-01-03", "09:00", "M", 50, "Clothing", 1, 10),
	)
	svc, _ := newTestService(t, store)

	profile, err := svc.AverageAgeForCategory(context.Background(), "beauty")
	require.NoError(t, err)
	assert.Equal(t, "Beauty", profile.Category)
	assert.Equal(t, 2, profile.Orders)
	require.NotNil(t, profile.AverageAge)
	assert.Equal(t, 25.00, *profile.AverageAge)

	empty, err := svc.AverageAgeForCategory(context.Background(), "Toys")
	require.NoError(t, err)
	assert.Nil(t, empty.AverageAge)
	assert.Zero(t, empty.Orders)
}

func TestServiceWithoutCache(t *testing.T) {
	store := newMockStore(tx(1, 1, "2022-01-01", "09:00", "M", 30, "Beauty", 1, 10))
	svc := NewService(store, nil, nil)

	totals, err := svc.TotalsByCategory(context.Background())
	require.NoError(t, err)
	assert.Len(t, totals, 1)

	_, err = svc.Clean(context.Background())
	require.NoError(t, err)
}
