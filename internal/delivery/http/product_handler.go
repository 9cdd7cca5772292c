package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tair/stock-ledger/internal/domain"
)

// ListProducts handles GET /api/products
func (h *LedgerHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	products, err := h.inventory.List(r.Context(), sess)
	if err != nil {
		respondError(w, r, err, "Failed to list products")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    products,
	})
}

// GetProduct handles GET /api/products/{id}
func (h *LedgerHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	product, err := h.inventory.Get(r.Context(), sess, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err, "Failed to get product")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    product,
	})
}

// CreateProduct handles POST /api/products
func (h *LedgerHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	sess, release := h.acquire(r)
	defer release()

	saved, err := h.inventory.Upsert(r.Context(), sess, product)
	if err != nil {
		respondError(w, r, err, "Failed to save product")
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Product saved successfully",
		Data:    saved,
	})
}

// UpdateProduct handles PUT /api/products/{id}. The body replaces the product.
func (h *LedgerHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	product.ID = mux.Vars(r)["id"]

	sess, release := h.acquire(r)
	defer release()

	saved, err := h.inventory.Upsert(r.Context(), sess, product)
	if err != nil {
		respondError(w, r, err, "Failed to save product")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Product updated successfully",
		Data:    saved,
	})
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *LedgerHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	if err := h.inventory.Delete(r.Context(), sess, mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err, "Failed to delete product")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Product deleted successfully",
	})
}

// AdjustQuantity handles PATCH /api/products/{id}/quantity
func (h *LedgerHandler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}

	sess, release := h.acquire(r)
	defer release()

	product, err := h.inventory.AdjustQuantity(r.Context(), sess, mux.Vars(r)["id"], req.Delta)
	if err != nil {
		respondError(w, r, err, "Failed to adjust quantity")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Quantity updated successfully",
		Data:    product,
	})
}

// LowStock handles GET /api/products/low-stock?threshold=n
func (h *LedgerHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := h.opts.LowStockThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondBadRequest(w, "Invalid threshold")
			return
		}
		threshold = n
	}

	sess, release := h.acquire(r)
	defer release()

	products, err := h.inventory.LowStock(r.Context(), sess, threshold)
	if err != nil {
		respondError(w, r, err, "Failed to list low stock products")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    products,
	})
}
