package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tair/stock-ledger/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Dashboard handles GET /api/reports/dashboard
func (h *LedgerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	dashboard, err := h.reports.Dashboard(r.Context(), sess)
	if err != nil {
		respondError(w, r, err, "Failed to build dashboard")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    dashboard,
	})
}

// DailyReport handles GET /api/reports/daily
func (h *LedgerHandler) DailyReport(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	sales, err := h.reports.Daily(r.Context(), sess)
	if err != nil {
		respondError(w, r, err, "Failed to build daily report")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    sales,
	})
}

// MonthlyReport handles GET /api/reports/monthly
func (h *LedgerHandler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	sales, err := h.reports.Monthly(r.Context(), sess)
	if err != nil {
		respondError(w, r, err, "Failed to build monthly report")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    sales,
	})
}

// WarrantyReport handles GET /api/reports/warranty. window=forecast selects the
// short dashboard window instead of the report window.
func (h *LedgerHandler) WarrantyReport(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	build := h.reports.Warranty
	if r.URL.Query().Get("window") == "forecast" {
		build = h.reports.Forecast
	}

	forecast, err := build(r.Context(), sess)
	if err != nil {
		respondError(w, r, err, "Failed to build warranty report")
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    forecast,
	})
}

// ExportReport handles GET /api/reports/export.xlsx
func (h *LedgerHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	sess, release := h.acquire(r)
	defer release()

	var buf bytes.Buffer
	if err := h.reports.ExportXLSX(r.Context(), sess, &buf); err != nil {
		respondError(w, r, err, "Failed to export report")
		return
	}

	filename := fmt.Sprintf("ledger-%s.xlsx", sess.Today())
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn(r.Context()).Err(err).Msg("Failed to write export")
	}
}
