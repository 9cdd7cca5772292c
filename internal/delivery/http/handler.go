package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/stock-ledger/internal/cart"
	"github.com/tair/stock-ledger/internal/checkout"
	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/inventory"
	"github.com/tair/stock-ledger/internal/metrics"
	"github.com/tair/stock-ledger/internal/report"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/sold"
	"github.com/tair/stock-ledger/internal/warranty"
	"github.com/tair/stock-ledger/pkg/logger"
)

// LedgerHandler handles HTTP requests for products, cart, checkout, sales and reports
type LedgerHandler struct {
	sessions  *session.Manager
	inventory *inventory.Ledger
	cart      *cart.Manager
	sold      *sold.Ledger
	checkout  *checkout.Service
	reports   *report.Service
	metrics   *metrics.Collector
	opts      report.Options
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(
	sessions *session.Manager,
	inv *inventory.Ledger,
	c *cart.Manager,
	s *sold.Ledger,
	co *checkout.Service,
	reports *report.Service,
	m *metrics.Collector,
	opts report.Options,
) *LedgerHandler {
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = inventory.DefaultLowStockThreshold
	}
	if opts.Thresholds == nil {
		opts.Thresholds = warranty.Within(warranty.DefaultThresholds.SoonDays)
	}
	return &LedgerHandler{
		sessions:  sessions,
		inventory: inv,
		cart:      c,
		sold:      s,
		checkout:  co,
		reports:   reports,
		metrics:   m,
		opts:      opts,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RegisterRoutes registers all ledger routes
func (h *LedgerHandler) RegisterRoutes(router *mux.Router) {
	route := func(path string, fn http.HandlerFunc, methods ...string) {
		router.HandleFunc(path, h.metrics.Middleware(path, fn)).Methods(methods...)
	}

	route("/api/products", h.ListProducts, "GET")
	route("/api/products", h.CreateProduct, "POST")
	route("/api/products/low-stock", h.LowStock, "GET")
	route("/api/products/{id}", h.GetProduct, "GET")
	route("/api/products/{id}", h.UpdateProduct, "PUT")
	route("/api/products/{id}", h.DeleteProduct, "DELETE")
	route("/api/products/{id}/quantity", h.AdjustQuantity, "PATCH")

	route("/api/cart", h.GetCart, "GET")
	route("/api/cart", h.ClearCart, "DELETE")
	route("/api/cart/lines", h.AddCartLine, "POST")
	route("/api/cart/lines/{product_id}", h.RemoveCartLine, "DELETE")
	route("/api/checkout", h.Checkout, "POST")

	route("/api/sold-items", h.ListSales, "GET")
	route("/api/sold-items", h.CreateSale, "POST")
	route("/api/sold-items/{id}", h.GetSale, "GET")
	route("/api/sold-items/{id}", h.UpdateSale, "PUT")
	route("/api/sold-items/{id}", h.DeleteSale, "DELETE")
	route("/api/sold-items/{id}/return", h.ReturnSale, "POST")

	route("/api/reports/dashboard", h.Dashboard, "GET")
	route("/api/reports/daily", h.DailyReport, "GET")
	route("/api/reports/monthly", h.MonthlyReport, "GET")
	route("/api/reports/warranty", h.WarrantyReport, "GET")
	route("/api/reports/export.xlsx", h.ExportReport, "GET")
}

// RegisterHealthCheck registers health check endpoint. ping checks the store
// backend and may be nil.
func (h *LedgerHandler) RegisterHealthCheck(router *mux.Router, ping func(context.Context) error) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, Response{
					Success: false,
					Error:   "Store unavailable",
				})
				return
			}
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Ledger service is healthy",
		})
	}).Methods("GET")
}

// acquire takes the per-process operation lock for the request's user
func (h *LedgerHandler) acquire(r *http.Request) (*session.Session, func()) {
	return h.sessions.Acquire(r.Context())
}

// statusFor maps ledger error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPartialFailure):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsStockConflict(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrAmbiguousProduct),
		errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Internal errors are logged and
// their text is not sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	text := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg(msg)
		text = msg
	}
	respondJSON(w, status, Response{
		Success: false,
		Error:   text,
	})
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Error:   message,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
