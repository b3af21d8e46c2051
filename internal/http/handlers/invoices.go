package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/minhvt/invoice-dash-back/internal/domain"
	"github.com/minhvt/invoice-dash-back/internal/repository"
	"github.com/minhvt/invoice-dash-back/internal/service"
	"github.com/minhvt/invoice-dash-back/internal/validation"
)

// InvoiceByID handles /v1/invoices/{id}: GET fetches, PUT saves an edited
// copy, POST on the check subpath runs a validity check.
func (api *API) InvoiceByID(w http.ResponseWriter, r *http.Request) {
	id, subPath, err := parsePathID(r.URL.Path, "/v1/invoices/")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invoice id must be a positive integer")
		return
	}

	switch {
	case subPath == "" && r.Method == http.MethodGet:
		api.getInvoice(w, r, id)
	case subPath == "" && r.Method == http.MethodPut:
		api.saveInvoice(w, r, id)
	case subPath == "check" && r.Method == http.MethodPost:
		api.checkInvoice(w, r, id)
	case subPath == "" || subPath == "check":
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "unknown invoice resource")
	}
}

func (api *API) getInvoice(w http.ResponseWriter, r *http.Request, id int64) {
	invoice, err := api.invoicesService.GetInvoice(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "invoice not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load invoice")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": invoice})
}

func (api *API) saveInvoice(w http.ResponseWriter, r *http.Request, id int64) {
	var payload domain.Invoice
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "body must be an invoice object")
		return
	}
	payload.ID = id

	saved, err := api.invoicesService.Save(r.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "not_found", "invoice not found")
		case errors.Is(err, validation.ErrSaveFailed):
			writeError(w, r, http.StatusBadGateway, "save_failed", "validation backend rejected the save")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to save invoice")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": saved})
}

func (api *API) checkInvoice(w http.ResponseWriter, r *http.Request, id int64) {
	invoice, err := api.invoicesService.CheckValidity(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "not_found", "invoice not found")
		case errors.Is(err, service.ErrCheckInFlight):
			writeError(w, r, http.StatusConflict, "check_in_flight", "a validity check for this invoice is already running")
		case errors.Is(err, validation.ErrMissingFields):
			writeError(w, r, http.StatusUnprocessableEntity, "missing_invoice_fields", "invoice is missing fields required for lookup")
		case errors.Is(err, validation.ErrChallengeUnavailable):
			writeError(w, r, http.StatusServiceUnavailable, "challenge_unavailable", "could not obtain a captcha challenge")
		case errors.Is(err, validation.ErrValidationFailed):
			writeError(w, r, http.StatusBadGateway, "validation_failed", "validity check did not complete")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to check invoice")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": invoice})
}

// ExportInvoices streams an XLSX workbook with every invoice, or with the
// invoices of the file named by ?file_id=.
func (api *API) ExportInvoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	fileID, err := parseQueryID(r, "file_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "file_id must be a positive integer")
		return
	}

	workbook, err := api.exportService.InvoicesXLSX(r.Context(), fileID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to build export")
		return
	}

	fileName := fmt.Sprintf("invoices-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}
