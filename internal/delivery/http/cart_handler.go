package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// GetCart handles GET /api/cart
func (h *LedgerHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	lines, err := h.cart.Lines(r.Context(), sess)
	if err != nil {
		respondError(w, r, err, "Failed to load cart")
		return
	}
	total, err := h.cart.Total(r.Context(), sess)
	if err != nil {
		respondError(w, r, err, "Failed to load cart")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"lines": lines,
			"total": total,
		},
	})
}

// AddCartLine handles POST /api/cart/lines
func (h *LedgerHandler) AddCartLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  *int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body")
		return
	}
	if req.ProductID == "" {
		respondBadRequest(w, "product_id is required")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	sess, release := h.acquire(r)
	defer release()

	line, err := h.cart.AddLine(r.Context(), sess, req.ProductID, qty)
	if err != nil {
		respondError(w, r, err, "Failed to add to cart")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Added to cart",
		Data:    line,
	})
}

// RemoveCartLine handles DELETE /api/cart/lines/{product_id}
func (h *LedgerHandler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	if err := h.cart.RemoveLine(r.Context(), sess, mux.Vars(r)["product_id"]); err != nil {
		respondError(w, r, err, "Failed to remove cart line")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Removed from cart",
	})
}

// ClearCart handles DELETE /api/cart
func (h *LedgerHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	if err := h.cart.Clear(r.Context(), sess); err != nil {
		respondError(w, r, err, "Failed to clear cart")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Cart cleared",
	})
}

// Checkout handles POST /api/checkout
func (h *LedgerHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	result, err := h.checkout.Checkout(r.Context(), sess)
	if err != nil {
		respondError(w, r, err, "Checkout failed")
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Checkout completed",
		Data:    result,
	})
}
