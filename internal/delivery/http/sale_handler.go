package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/sold"
	"github.com/tair/stock-ledger/internal/warranty"
)

type saleRequest struct {
	ProductName    string            `json:"productName"`
	CustomerName   string            `json:"customerName"`
	InvoiceNumber  string            `json:"invoiceNumber"`
	IMEI           string            `json:"imei"`
	DateSold       domain.Date       `json:"dateSold"`
	WarrantyMonths int               `json:"warrantyMonths"`
	Status         domain.SaleStatus `json:"status"`
}

func (req saleRequest) command() sold.SaleCommand {
	return sold.SaleCommand{
		ProductName:    req.ProductName,
		CustomerName:   req.CustomerName,
		InvoiceNumber:  req.InvoiceNumber,
		IMEI:           req.IMEI,
		DateSold:       req.DateSold,
		WarrantyMonths: req.WarrantyMonths,
		Status:         req.Status,
	}
}

// ListSales handles GET /api/sold-items?q=term&status=active|soon|expired|returned
func (h *LedgerHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	filter := sold.Filter{
		Query:      r.URL.Query().Get("q"),
		Thresholds: h.opts.Thresholds,
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, ok := warranty.ParseStatus(v)
		if !ok {
			respondBadRequest(w, "Invalid status filter")
			return
		}
		filter.Status = status
	}

	sess, release := h.acquire(r)
	defer release()

	records, err := h.sold.List(r.Context(), sess, filter)
	if err != nil {
		respondError(w, r, err, "Failed to list sold items")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    records,
	})
}

// GetSale handles GET /api/sold-items/{id}
func (h *LedgerHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	item, err := h.sold.Get(r.Context(), sess, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err, "Failed to get sold item")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: sold.Record{
			SoldItem: item,
			Warranty: warranty.ForItem(item, sess.Now(), *h.opts.Thresholds),
		},
	})
}

// CreateSale handles POST /api/sold-items
func (h *LedgerHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	sess, release := h.acquire(r)
	defer release()

	item, err := h.sold.Create(r.Context(), sess, req.command())
	if err != nil {
		respondError(w, r, err, "Failed to record sale")
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Sale recorded successfully",
		Data:    item,
	})
}

// UpdateSale handles PUT /api/sold-items/{id}
func (h *LedgerHandler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	sess, release := h.acquire(r)
	defer release()

	item, err := h.sold.Update(r.Context(), sess, mux.Vars(r)["id"], req.command())
	if err != nil {
		respondError(w, r, err, "Failed to update sale")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Sale updated successfully",
		Data:    item,
	})
}

// DeleteSale handles DELETE /api/sold-items/{id}. Units go back to stock.
func (h *LedgerHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	if err := h.sold.Delete(r.Context(), sess, mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err, "Failed to delete sale")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Sale deleted successfully",
	})
}

// ReturnSale handles POST /api/sold-items/{id}/return
func (h *LedgerHandler) ReturnSale(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	item, err := h.sold.MarkReturned(r.Context(), sess, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err, "Failed to mark sale returned")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Sale marked as returned",
		Data:    item,
	})
}
