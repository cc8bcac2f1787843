// Package retailhttp serves the sales reports as a JSON API.
package retailhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/retailpulse/retailpulse/internal/platform/httpx"
	"github.com/retailpulse/retailpulse/internal/retail"
)

var monthRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)

const defaultTopCustomers = 5

// PipelineService is the load/clean/report contract used by the handler.
type PipelineService interface {
	Load(ctx context.Context, raw []retail.SalesTransaction) (retail.LoadSummary, error)
	Clean(ctx context.Context) (retail.CleanSummary, error)
	SalesOnDate(ctx context.Context, date time.Time) ([]retail.SalesTransaction, error)
	ClothingHighQuantity(ctx context.Context, month retail.YearMonth) ([]retail.SalesTransaction, error)
	TotalsByCategory(ctx context.Context) ([]retail.CategoryTotal, error)
	AverageAgeForCategory(ctx context.Context, category string) (retail.CategoryAgeProfile, error)
	HighValueTransactions(ctx context.Context, threshold float64) ([]retail.SalesTransaction, error)
	CountsByGenderCategory(ctx context.Context) ([]retail.GenderCategoryCount, error)
	BestMonthPerYear(ctx context.Context) ([]retail.MonthlyBest, error)
	TopCustomersBySales(ctx context.Context, n int) ([]retail.CustomerRank, error)
	UniqueCustomersPerCategory(ctx context.Context) ([]retail.CategoryCustomers, error)
	OrdersByShift(ctx context.Context) ([]retail.ShiftCount, error)
}

// Handler coordinates HTTP requests for the retail reporting pipeline.
type Handler struct {
	logger  *slog.Logger
	service PipelineService
}

// NewHandler constructs the retail HTTP handler.
func NewHandler(logger *slog.Logger, service PipelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
		return
	}
	records, parseRejects := req.toDomain()
	summary, err := h.service.Load(r.Context(), records)
	if err != nil {
		h.respondError(w, "bulk load", err)
		return
	}
	summary.Rejected = append(summary.Rejected, parseRejects...)
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleCleanse(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Clean(r.Context())
	if err != nil {
		h.respondError(w, "cleanse", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleDailySales(w http.ResponseWriter, r *http.Request) {
	date, err := retail.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.respondError(w, "daily sales", err)
		return
	}
	rows, err := h.service.SalesOnDate(r.Context(), date)
	if err != nil {
		h.respondError(w, "daily sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newTransactionViews(rows))
}

func (h *Handler) handleClothingBulk(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("month")
	if !monthRegex.MatchString(raw) {
		h.respondError(w, "clothing bulk", retail.ErrInvalidArgument)
		return
	}
	month, err := retail.ParseYearMonth(raw)
	if err != nil {
		h.respondError(w, "clothing bulk", err)
		return
	}
	rows, err := h.service.ClothingHighQuantity(r.Context(), month)
	if err != nil {
		h.respondError(w, "clothing bulk", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newTransactionViews(rows))
}

func (h *Handler) handleCategoryTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.TotalsByCategory(r.Context())
	if err != nil {
		h.respondError(w, "category totals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) handleCategoryAverageAge(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.AverageAgeForCategory(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.respondError(w, "category average age", err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) handleHighValue(w http.ResponseWriter, r *http.Request) {
	threshold, err := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64)
	if err != nil {
		h.respondError(w, "high value", retail.ErrInvalidArgument)
		return
	}
	rows, err := h.service.HighValueTransactions(r.Context(), threshold)
	if err != nil {
		h.respondError(w, "high value", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newTransactionViews(rows))
}

func (h *Handler) handleGenderCategoryCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.CountsByGenderCategory(r.Context())
	if err != nil {
		h.respondError(w, "gender category counts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, counts)
}

func (h *Handler) handleBestMonth(w http.ResponseWriter, r *http.Request) {
	best, err := h.service.BestMonthPerYear(r.Context())
	if err != nil {
		h.respondError(w, "best month", err)
		return
	}
	httpx.JSON(w, http.StatusOK, best)
}

func (h *Handler) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopCustomers
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(w, "top customers", retail.ErrInvalidArgument)
			return
		}
		limit = parsed
	}
	ranks, err := h.service.TopCustomersBySales(r.Context(), limit)
	if err != nil {
		h.respondError(w, "top customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ranks)
}

func (h *Handler) handleUniqueCustomers(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.UniqueCustomersPerCategory(r.Context())
	if err != nil {
		h.respondError(w, "unique customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, counts)
}

func (h *Handler) handleShifts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.OrdersByShift(r.Context())
	if err != nil {
		h.respondError(w, "shifts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, counts)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	var vm OverviewView
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		totals, err := h.service.TotalsByCategory(ctx)
		vm.CategoryTotals = totals
		return err
	})
	g.Go(func() error {
		best, err := h.service.BestMonthPerYear(ctx)
		vm.BestMonths = best
		return err
	})
	g.Go(func() error {
		ranks, err := h.service.TopCustomersBySales(ctx, defaultTopCustomers)
		vm.TopCustomers = ranks
		return err
	})
	g.Go(func() error {
		counts, err := h.service.UniqueCustomersPerCategory(ctx)
		vm.UniqueCustomers = counts
		return err
	})
	g.Go(func() error {
		counts, err := h.service.OrdersByShift(ctx)
		vm.Shifts = counts
		return err
	})
	if err := g.Wait(); err != nil {
		h.respondError(w, "overview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vm)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, retail.ErrInvalidArgument) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Argument", err.Error())
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
