package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/swiftdrop/api/internal/database"
	"github.com/swiftdrop/api/internal/middleware"
)

const recentOrderLimit = 10

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	ListDeliveredOrdersByOwner(ctx context.Context, ownerID uuid.UUID) ([]database.Order, error)
}

// ReportsHandler handles the store owner's sales report endpoints.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers report endpoints. Expected to be mounted at
// /reports behind a storeOwner role check.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sales", h.Sales)
}

// --- Response types ---

type salesReportResponse struct {
	TotalRevenue      string          `json:"total_revenue"`
	TotalOrders       int             `json:"total_orders"`
	AverageOrderValue string          `json:"average_order_value"`
	TodayRevenue      string          `json:"today_revenue"`
	TodayOrders       int             `json:"today_orders"`
	RecentOrders      []orderResponse `json:"recent_orders"`
}

// --- Handlers ---

// Sales aggregates the owner's delivered orders: lifetime and same-day
// revenue plus the most recent deliveries.
func (h *ReportsHandler) Sales(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.store.ListDeliveredOrdersByOwner(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list delivered orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, buildSalesReport(orders, time.Now()))
}

// --- Helpers ---

// buildSalesReport computes the report from delivered orders sorted newest
// first. "Today" buckets by order creation date in the server's local time.
func buildSalesReport(orders []database.Order, now time.Time) salesReportResponse {
	total := decimal.Zero
	today := decimal.Zero
	todayCount := 0

	year, month, day := now.Date()
	startOfDay := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	for _, o := range orders {
		amount := numericToDecimal(o.TotalAmount)
		total = total.Add(amount)
		if !o.CreatedAt.Before(startOfDay) {
			today = today.Add(amount)
			todayCount++
		}
	}

	avg := decimal.Zero
	if len(orders) > 0 {
		avg = total.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
	}

	recent := orders
	if len(recent) > recentOrderLimit {
		recent = recent[:recentOrderLimit]
	}
	recentResp := make([]orderResponse, len(recent))
	for i, o := range recent {
		recentResp[i] = toOrderResponse(o)
	}

	return salesReportResponse{
		TotalRevenue:      total.StringFixed(2),
		TotalOrders:       len(orders),
		AverageOrderValue: avg.StringFixed(2),
		TodayRevenue:      today.StringFixed(2),
		TodayOrders:       todayCount,
		RecentOrders:      recentResp,
	}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	d, err := decimal.NewFromString(numericToString(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}
