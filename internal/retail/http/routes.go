package retailhttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the load, cleanse and report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.handleLoad)
		r.Post("/cleanse", h.handleCleanse)
	})
	r.Route("/reports", func(r chi.Router) {
		r.Get("/daily-sales", h.handleDailySales)
		r.Get("/clothing-bulk", h.handleClothingBulk)
		r.Get("/category-totals", h.handleCategoryTotals)
		r.Get("/category-average-age", h.handleCategoryAverageAge)
		r.Get("/high-value", h.handleHighValue)
		r.Get("/gender-category-counts", h.handleGenderCategoryCounts)
		r.Get("/best-month", h.handleBestMonth)
		r.Get("/top-customers", h.handleTopCustomers)
		r.Get("/unique-customers", h.handleUniqueCustomers)
		r.Get("/shifts", h.handleShifts)
		r.Get("/overview", h.handleOverview)
	})
}
